// Package jobs carries the sequenced notification stream between the
// coordinating goroutine and UI subscribers.
package jobs

import (
	"sync"
	"time"
)

// EventType classifies batch notifications.
type EventType string

const (
	// EventTypePrint carries one redirected worker output chunk.
	EventTypePrint EventType = "print"
	// EventTypeProgress marks one successfully completed file.
	EventTypeProgress EventType = "progress"
	// EventTypeSuccess is the terminal event of a fully completed batch.
	EventTypeSuccess EventType = "success"
	// EventTypeFailure is the terminal event of an aborted batch.
	EventTypeFailure EventType = "failure"
	// EventTypeStopped is the terminal event of a cancelled batch.
	EventTypeStopped EventType = "stopped"
)

// Terminal reports whether this event ends a batch. Exactly one
// terminal event is published per batch, always last.
func (t EventType) Terminal() bool {
	switch t {
	case EventTypeSuccess, EventTypeFailure, EventTypeStopped:
		return true
	default:
		return false
	}
}

// Event is a sequenced payload consumed by UI subscribers.
type Event struct {
	Seq         int64     `json:"seq"`
	Timestamp   time.Time `json:"timestamp"`
	BatchID     string    `json:"batchId"`
	Type        EventType `json:"type"`
	Message     string    `json:"message,omitempty"`
	TasksDone   int       `json:"tasksDone,omitempty"`
	TasksTotal  int       `json:"tasksTotal,omitempty"`
	OutputPaths []string  `json:"outputPaths,omitempty"`
}

// EventBus stores recent events and provides incremental reads.
type EventBus struct {
	mu        sync.RWMutex
	nextSeq   int64
	maxEvents int
	events    []Event
}

// NewEventBus creates a bounded in-memory event buffer.
func NewEventBus(maxEvents int) *EventBus {
	if maxEvents <= 0 {
		maxEvents = 500
	}

	return &EventBus{
		maxEvents: maxEvents,
		events:    make([]Event, 0, maxEvents),
	}
}

// Publish appends one event and assigns sequence and timestamp.
func (b *EventBus) Publish(event Event) Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextSeq++
	event.Seq = b.nextSeq
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now().UTC()
	}

	b.events = append(b.events, event)
	if len(b.events) > b.maxEvents {
		trim := len(b.events) - b.maxEvents
		b.events = append([]Event(nil), b.events[trim:]...)
	}

	return event
}

// Since returns events with sequence strictly greater than seq.
func (b *EventBus) Since(seq int64) []Event {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if len(b.events) == 0 {
		return nil
	}

	out := make([]Event, 0, len(b.events))
	for _, event := range b.events {
		if event.Seq > seq {
			out = append(out, event)
		}
	}
	return out
}
