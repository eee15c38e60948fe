package batch

import "sync/atomic"

// StopSignal is the single flag shared between the controller thread
// that requests cancellation and the coordinating goroutine that polls
// for it. Set is idempotent and IsSet never blocks.
type StopSignal struct {
	flag atomic.Bool
}

// Set requests cancellation of the in-flight batch.
func (s *StopSignal) Set() {
	s.flag.Store(true)
}

// IsSet reports whether cancellation was requested.
func (s *StopSignal) IsSet() bool {
	return s.flag.Load()
}

// Clear resets the signal for the next batch. Must only be called when
// no batch is in flight.
func (s *StopSignal) Clear() {
	s.flag.Store(false)
}
