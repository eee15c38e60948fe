package batch

import (
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// ErrTimerRunning is returned when starting an already running timer.
var ErrTimerRunning = errors.New("timer is already running")

// ErrTimerNotRunning is returned when stopping an idle timer.
var ErrTimerNotRunning = errors.New("timer is not running")

// TaskTimer measures elapsed wall time for one batch. Misuse is a
// local, recoverable condition callers guard with the returned errors.
type TaskTimer struct {
	mu        sync.Mutex
	startedAt time.Time
	running   bool
	now       func() time.Time
	log       zerolog.Logger
}

// NewTaskTimer creates an idle timer that reports through log.
func NewTaskTimer(log zerolog.Logger) *TaskTimer {
	return &TaskTimer{
		now: time.Now,
		log: log,
	}
}

// Start begins timing a new batch.
func (t *TaskTimer) Start() error {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.running {
		return ErrTimerRunning
	}

	t.startedAt = t.now()
	t.running = true
	return nil
}

// Stop ends timing and returns the elapsed seconds, logging them only
// when logElapsed is set.
func (t *TaskTimer) Stop(logElapsed bool) (float64, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.running {
		return 0, ErrTimerNotRunning
	}

	elapsed := t.now().Sub(t.startedAt).Seconds()
	t.running = false

	if logElapsed {
		t.log.Info().Float64("seconds", elapsed).Msg("batch elapsed time")
	}
	return elapsed, nil
}
