package bootstrap

import (
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rs/zerolog"

	"whisper-desk/internal/batch"
	"whisper-desk/internal/domain"
	"whisper-desk/internal/jobs"
	"whisper-desk/internal/transcribe"
)

// fakeStore returns deterministic settings for App tests.
type fakeStore struct {
	settings domain.Settings
}

// Load returns preconfigured settings.
func (s *fakeStore) Load() (domain.Settings, error) {
	return s.settings, nil
}

// Save is a no-op for tests.
func (s *fakeStore) Save(domain.Settings) error {
	return nil
}

// fakeHandle is a scripted worker process handle.
type fakeHandle struct {
	done       atomic.Bool
	output     chan string
	transcript domain.Transcript
	resultErr  error
}

func newCompletedHandle(transcript domain.Transcript, resultErr error) *fakeHandle {
	h := &fakeHandle{
		output:     make(chan string),
		transcript: transcript,
		resultErr:  resultErr,
	}
	close(h.output)
	h.done.Store(true)
	return h
}

func newHangingHandle() *fakeHandle {
	h := &fakeHandle{output: make(chan string)}
	return h
}

func (h *fakeHandle) Done() bool {
	return h.done.Load()
}

func (h *fakeHandle) Output() <-chan string {
	return h.output
}

func (h *fakeHandle) Result() (domain.Transcript, error) {
	return h.transcript, h.resultErr
}

func (h *fakeHandle) Terminate(time.Duration) error {
	if h.done.CompareAndSwap(false, true) {
		close(h.output)
	}
	return nil
}

func (h *fakeHandle) Close() error {
	return nil
}

// fakeLauncher returns one scripted handle per launched task.
type fakeLauncher struct {
	handles  []*fakeHandle
	launches atomic.Int64
}

func (l *fakeLauncher) Launch(task transcribe.Task) (batch.WorkerHandle, error) {
	n := int(l.launches.Add(1))
	if n > len(l.handles) {
		return nil, errors.New("unexpected launch")
	}
	return l.handles[n-1], nil
}

// newTestApp wires an App around a scripted launcher.
func newTestApp(store *fakeStore, launcher *fakeLauncher) *App {
	app := &App{
		Store:  store,
		log:    zerolog.Nop(),
		events: jobs.NewEventBus(100),
	}
	coordinator := batch.NewCoordinatorForTests(launcher, app.writeTranscript, zerolog.Nop(), time.Millisecond, time.Second)
	app.Session = batch.NewSession(coordinator, zerolog.Nop())
	return app
}

// TestStartTranscriptionEnforcesSingleRunningBatch checks single-batch guard.
func TestStartTranscriptionEnforcesSingleRunningBatch(t *testing.T) {
	store := &fakeStore{
		settings: domain.Settings{
			ModelPath: "/tmp/model.bin",
			OutputDir: t.TempDir(),
			Language:  "auto",
		},
	}
	launcher := &fakeLauncher{handles: []*fakeHandle{newHangingHandle()}}
	app := newTestApp(store, launcher)

	if _, err := app.StartTranscription([]string{"/tmp/input.mp4"}); err != nil {
		t.Fatalf("start first batch: %v", err)
	}
	if _, err := app.StartTranscription([]string{"/tmp/input-2.mp4"}); !errors.Is(err, batch.ErrBatchAlreadyRunning) {
		t.Fatalf("second start error = %v, want %v", err, batch.ErrBatchAlreadyRunning)
	}

	if err := app.StopTranscription(); err != nil {
		t.Fatalf("stop: %v", err)
	}
	waitForTerminalEvent(t, app, jobs.EventTypeStopped)
}

// TestStartTranscriptionPublishesProgressAndSuccessEvents checks event flow.
func TestStartTranscriptionPublishesProgressAndSuccessEvents(t *testing.T) {
	root := t.TempDir()
	outputDir := filepath.Join(root, "out")
	store := &fakeStore{
		settings: domain.Settings{
			ModelPath: "/tmp/model.bin",
			OutputDir: outputDir,
			Language:  "en",
		},
	}

	transcript := domain.Transcript{
		Language: "en",
		Segments: []domain.Segment{{Start: 0, End: 1.5, Text: "hello"}},
	}
	launcher := &fakeLauncher{handles: []*fakeHandle{
		newCompletedHandle(transcript, nil),
		newCompletedHandle(transcript, nil),
	}}
	app := newTestApp(store, launcher)

	progress, err := app.StartTranscription([]string{
		filepath.Join(root, "clip-a.mp4"),
		filepath.Join(root, "clip-b.mp4"),
	})
	if err != nil {
		t.Fatalf("start batch: %v", err)
	}
	if progress.TasksTotal != 2 {
		t.Fatalf("tasks total = %d, want 2", progress.TasksTotal)
	}

	terminal := waitForTerminalEvent(t, app, jobs.EventTypeSuccess)
	if len(terminal.OutputPaths) != 6 {
		t.Fatalf("output paths = %d, want 6", len(terminal.OutputPaths))
	}
	for _, path := range terminal.OutputPaths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("stat artifact %s: %v", path, err)
		}
	}

	events := app.JobEvents(0)
	assertEventTypeExists(t, events, jobs.EventTypeProgress)

	waitForIdleSession(t, app)
	if got := app.Progress(); got.BatchID != "" {
		t.Fatalf("batch id = %q, want cleared", got.BatchID)
	}
}

// TestStartTranscriptionPublishesFailureEvents checks error path emissions.
func TestStartTranscriptionPublishesFailureEvents(t *testing.T) {
	root := t.TempDir()
	store := &fakeStore{
		settings: domain.Settings{
			ModelPath: "/tmp/model.bin",
			OutputDir: filepath.Join(root, "out"),
			Language:  "en",
		},
	}

	launcher := &fakeLauncher{handles: []*fakeHandle{
		newCompletedHandle(domain.Transcript{}, errors.New("model load failed")),
	}}
	app := newTestApp(store, launcher)

	if _, err := app.StartTranscription([]string{filepath.Join(root, "clip.mp4")}); err != nil {
		t.Fatalf("start batch: %v", err)
	}

	terminal := waitForTerminalEvent(t, app, jobs.EventTypeFailure)
	if terminal.Message == "" {
		t.Fatal("expected failure message")
	}
}

// TestStartTranscriptionRejectsEmptyInput checks input validation.
func TestStartTranscriptionRejectsEmptyInput(t *testing.T) {
	app := newTestApp(&fakeStore{}, &fakeLauncher{})

	if _, err := app.StartTranscription(nil); err == nil {
		t.Fatal("expected error for empty input")
	}
	if _, err := app.StartTranscription([]string{"  ", ""}); err == nil {
		t.Fatal("expected error for blank input paths")
	}
}

// waitForTerminalEvent polls until the batch emits the wanted terminal
// event or times out.
func waitForTerminalEvent(t *testing.T, app *App, want jobs.EventType) jobs.Event {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		for _, event := range app.JobEvents(0) {
			if !event.Type.Terminal() {
				continue
			}
			if event.Type != want {
				t.Fatalf("terminal event = %s, want %s", event.Type, want)
			}
			return event
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("terminal event %s not observed", want)
	return jobs.Event{}
}

// waitForIdleSession polls until the session resets after its terminal
// notification.
func waitForIdleSession(t *testing.T, app *App) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if !app.Session.IsTranscribing() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("session still running after terminal event")
}

// assertEventTypeExists verifies at least one event of given type exists.
func assertEventTypeExists(t *testing.T, events []jobs.Event, want jobs.EventType) {
	t.Helper()
	for _, event := range events {
		if event.Type == want {
			return
		}
	}
	t.Fatalf("event type %s not found", want)
}
