package batch

import (
	"errors"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog"
)

// ErrBatchAlreadyRunning is returned when starting a second batch.
var ErrBatchAlreadyRunning = errors.New("batch already running")

// ErrNoRunningBatch is returned when stop is requested while idle.
var ErrNoRunningBatch = errors.New("no running batch")

// Session owns one batch lifecycle: the coordinating goroutine, the
// stop signal, the elapsed-time timer, and task counts. Counts are
// written only by the coordinating goroutine and read atomically by
// the UI; the stop signal is the only multi-writer resource.
type Session struct {
	coordinator *Coordinator
	stop        StopSignal
	timer       *TaskTimer
	log         zerolog.Logger

	running    atomic.Bool
	tasksTotal atomic.Int64
	tasksDone  atomic.Int64

	mu    sync.Mutex
	files []string
}

// NewSession creates an idle session around the coordinator.
func NewSession(coordinator *Coordinator, log zerolog.Logger) *Session {
	return &Session{
		coordinator: coordinator,
		timer:       NewTaskTimer(log),
		log:         log,
	}
}

// Start launches the coordinating goroutine for a new batch. Only one
// batch may run at a time.
func (s *Session) Start(files []string, params Params, sink Notifier) error {
	if !s.running.CompareAndSwap(false, true) {
		return ErrBatchAlreadyRunning
	}

	// The coordinator gets the same private copy the session keeps, so
	// a caller mutating its slice cannot affect the batch.
	files = append([]string(nil), files...)
	s.mu.Lock()
	s.files = files
	s.mu.Unlock()
	s.tasksTotal.Store(int64(len(files)))
	s.tasksDone.Store(0)

	if err := s.timer.Start(); err != nil {
		s.log.Warn().Err(err).Msg("start batch timer")
	}

	s.log.Info().Int("files", len(files)).Msg("starting transcription batch")
	go s.coordinator.Run(files, params, &s.stop, sink)
	return nil
}

// Stop signals the in-flight batch to abort. It does not block; the
// batch reports through its own stopped notification.
func (s *Session) Stop() error {
	if !s.running.Load() {
		return ErrNoRunningBatch
	}
	s.stop.Set()
	return nil
}

// Finish resets the session after a terminal notification has been
// processed, making it ready for reuse. Returns the elapsed seconds;
// they are logged only on success.
func (s *Session) Finish(success bool) (float64, error) {
	elapsed, err := s.timer.Stop(success)
	if err != nil {
		s.log.Warn().Err(err).Msg("stop batch timer")
	}

	s.tasksTotal.Store(0)
	s.tasksDone.Store(0)
	s.stop.Clear()
	s.mu.Lock()
	s.files = nil
	s.mu.Unlock()
	s.running.Store(false)

	return elapsed, err
}

// TaskDone records one completed task. Called from the coordinating
// goroutine only.
func (s *Session) TaskDone() {
	s.tasksDone.Add(1)
}

// IsTranscribing reports whether a batch is in flight.
func (s *Session) IsTranscribing() bool {
	return s.running.Load()
}

// IsStopping reports whether cancellation has been requested.
func (s *Session) IsStopping() bool {
	return s.stop.IsSet()
}

// TasksDone returns the number of completed tasks.
func (s *Session) TasksDone() int {
	return int(s.tasksDone.Load())
}

// TasksTotal returns the batch size.
func (s *Session) TasksTotal() int {
	return int(s.tasksTotal.Load())
}

// CurrentFile returns the file being transcribed, or "" when idle or
// past the last task.
func (s *Session) CurrentFile() string {
	done := int(s.tasksDone.Load())

	s.mu.Lock()
	defer s.mu.Unlock()
	if done < len(s.files) {
		return s.files[done]
	}
	return ""
}
