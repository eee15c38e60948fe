package bootstrap

import (
	"context"
	"fmt"
	"io/fs"
	"net/http"
	"os"
	"os/exec"
	"path/filepath"
	goruntime "runtime"
	"strings"
	"sync"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/wailsapp/wails/v2"
	"github.com/wailsapp/wails/v2/pkg/options"
	"github.com/wailsapp/wails/v2/pkg/options/assetserver"

	"whisper-desk/internal/batch"
	"whisper-desk/internal/config"
	"whisper-desk/internal/diagnostics"
	"whisper-desk/internal/domain"
	"whisper-desk/internal/export"
	"whisper-desk/internal/jobs"
	"whisper-desk/internal/logging"
	"whisper-desk/internal/transcribe"
	"whisper-desk/internal/worker"

	wailsruntime "github.com/wailsapp/wails/v2/pkg/runtime"
)

var mediaDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Media files",
		Pattern:     "*.mp4;*.mov;*.mkv;*.avi;*.mp3;*.wav;*.m4a;*.flac;*.aac;*.ogg;*.webm",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

var modelDialogFilter = []wailsruntime.FileFilter{
	{
		DisplayName: "Whisper models",
		Pattern:     "*.bin;*.gguf",
	},
	{
		DisplayName: "All files",
		Pattern:     "*",
	},
}

// App wires configuration, the batch session, diagnostics, and UI
// runtime callbacks.
type App struct {
	Settings    domain.Settings
	Store       config.Store
	Session     *batch.Session
	Diagnostics domain.DiagnosticReport
	assets      fs.FS
	checker     *diagnostics.Checker
	log         zerolog.Logger

	mu            sync.Mutex
	activeBatchID string
	events        *jobs.EventBus
	runtimeCtx    context.Context
}

// New builds the application with persisted settings and startup diagnostics.
func New() (*App, error) {
	return NewWithAssets(nil)
}

// NewWithAssets builds the application and optionally configures embedded frontend assets.
func NewWithAssets(assets fs.FS) (*App, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return nil, fmt.Errorf("resolve user home: %w", err)
	}
	if err := ensureLocalBinOnPATH(homeDir); err != nil {
		return nil, fmt.Errorf("prepare local tool path: %w", err)
	}

	store := config.NewJSONStore(filepath.Join(homeDir, ".whisper-desk", "settings.json"))
	settings, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("load settings: %w", err)
	}

	checker := diagnostics.NewChecker()
	report := checker.Run(settings)

	runner, err := worker.NewRunner()
	if err != nil {
		return nil, fmt.Errorf("prepare worker runner: %w", err)
	}

	log := logging.NewFromEnv()

	app := &App{
		Settings:    settings,
		Store:       store,
		Diagnostics: report,
		assets:      assets,
		checker:     checker,
		log:         log,
		events:      jobs.NewEventBus(1000),
	}

	coordinator := batch.NewCoordinator(workerLauncher{runner: runner}, app.writeTranscript, log)
	app.Session = batch.NewSession(coordinator, log)
	return app, nil
}

// Run starts the Wails desktop application and binds backend methods.
func (a *App) Run() error {
	assetOptions := &assetserver.Options{}
	if a.assets != nil {
		assetOptions.Assets = a.assets
	} else {
		assetOptions.Handler = http.FileServer(http.Dir("./frontend"))
	}

	return wails.Run(&options.App{
		Title:       "Whisper Desk",
		Width:       1180,
		Height:      780,
		AssetServer: assetOptions,
		OnStartup:   a.Startup,
		OnShutdown: func(ctx context.Context) {
			a.mu.Lock()
			defer a.mu.Unlock()
			a.runtimeCtx = nil
		},
		Bind: []interface{}{a},
	})
}

// Startup stores Wails runtime context for push events.
func (a *App) Startup(ctx context.Context) {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.runtimeCtx = ctx
}

// GetDiagnostics returns the latest cached diagnostics report.
func (a *App) GetDiagnostics() domain.DiagnosticReport {
	return a.Diagnostics
}

// GetSettings loads and returns the latest persisted settings.
func (a *App) GetSettings() (domain.Settings, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.Settings{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	return settings, nil
}

// SaveSettings normalizes and persists settings, then refreshes diagnostics.
func (a *App) SaveSettings(settings domain.Settings) (domain.Settings, error) {
	normalized := normalizeSettings(settings)
	if err := a.Store.Save(normalized); err != nil {
		return domain.Settings{}, fmt.Errorf("save settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = normalized
	if a.checker != nil {
		a.Diagnostics = a.checker.Run(normalized)
	}
	a.mu.Unlock()

	return normalized, nil
}

// PickInputFiles opens a native multi-select dialog for media files.
func (a *App) PickInputFiles() ([]string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return nil, err
	}

	paths, err := wailsruntime.OpenMultipleFilesDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select media files",
		Filters: mediaDialogFilter,
	})
	if err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(paths))
	for _, path := range paths {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			selected = append(selected, trimmed)
		}
	}
	return selected, nil
}

// PickModelFile opens a native file dialog for whisper model selection.
func (a *App) PickModelFile() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenFileDialog(ctx, wailsruntime.OpenDialogOptions{
		Title:   "Select whisper model",
		Filters: modelDialogFilter,
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickModelDirectory opens a native directory picker for model folders.
func (a *App) PickModelDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select model directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// PickOutputDirectory opens a native directory picker for transcript exports.
func (a *App) PickOutputDirectory() (string, error) {
	ctx, err := a.runtimeContext()
	if err != nil {
		return "", err
	}

	path, err := wailsruntime.OpenDirectoryDialog(ctx, wailsruntime.OpenDialogOptions{
		Title: "Select output directory",
	})
	if err != nil {
		return "", err
	}

	return strings.TrimSpace(path), nil
}

// OpenOutputFolder opens the given path (or configured output dir) in file manager.
func (a *App) OpenOutputFolder(path string) error {
	target := strings.TrimSpace(path)
	if target == "" {
		a.mu.Lock()
		target = a.Settings.OutputDir
		a.mu.Unlock()
	}
	if target == "" {
		return fmt.Errorf("output path is empty")
	}

	info, err := os.Stat(target)
	if err != nil {
		return fmt.Errorf("resolve output path: %w", err)
	}

	openPath := target
	if !info.IsDir() {
		openPath = filepath.Dir(target)
	}

	return openInFileManager(openPath)
}

// RefreshDiagnostics reloads settings and reruns dependency checks.
func (a *App) RefreshDiagnostics() (domain.DiagnosticReport, error) {
	settings, err := a.Store.Load()
	if err != nil {
		return domain.DiagnosticReport{}, fmt.Errorf("load settings: %w", err)
	}

	a.mu.Lock()
	a.Settings = settings
	a.Diagnostics = a.checker.Run(settings)
	report := a.Diagnostics
	a.mu.Unlock()

	return report, nil
}

// StartTranscription starts a batch over the given media files.
func (a *App) StartTranscription(inputPaths []string) (domain.BatchProgress, error) {
	files := make([]string, 0, len(inputPaths))
	for _, path := range inputPaths {
		trimmed := strings.TrimSpace(path)
		if trimmed != "" {
			files = append(files, trimmed)
		}
	}
	if len(files) == 0 {
		return domain.BatchProgress{}, fmt.Errorf("no input files selected")
	}

	settings, err := a.Store.Load()
	if err != nil {
		return domain.BatchProgress{}, fmt.Errorf("load settings: %w", err)
	}
	settings = normalizeSettings(settings)

	batchID := uuid.NewString()
	sink := &batchEventSink{app: a, batchID: batchID}
	params := batch.Params{
		ModelPath:          settings.ModelPath,
		Language:           settings.Language,
		TranslateToEnglish: settings.TranslateToEnglish,
		InitialPrompt:      settings.InitialPrompt,
	}

	a.mu.Lock()
	a.Settings = settings
	a.mu.Unlock()

	if err := a.Session.Start(files, params, sink); err != nil {
		return domain.BatchProgress{}, err
	}

	a.mu.Lock()
	a.activeBatchID = batchID
	a.mu.Unlock()

	a.log.Info().Str("batch", batchID).Int("files", len(files)).Msg("batch accepted")
	return a.Progress(), nil
}

// StopTranscription requests cancellation of the running batch.
func (a *App) StopTranscription() error {
	return a.Session.Stop()
}

// Progress returns a snapshot of the active batch for polling UIs.
func (a *App) Progress() domain.BatchProgress {
	a.mu.Lock()
	batchID := a.activeBatchID
	a.mu.Unlock()

	return domain.BatchProgress{
		Running:     a.Session.IsTranscribing(),
		TasksDone:   a.Session.TasksDone(),
		TasksTotal:  a.Session.TasksTotal(),
		CurrentFile: a.Session.CurrentFile(),
		BatchID:     batchID,
	}
}

// JobEvents returns all events with sequence greater than sinceSeq.
func (a *App) JobEvents(sinceSeq int64) []jobs.Event {
	return a.events.Since(sinceSeq)
}

// writeTranscript persists transcript artifacts using current settings.
func (a *App) writeTranscript(transcript domain.Transcript, audioPath string) ([]string, error) {
	a.mu.Lock()
	settings := a.Settings
	a.mu.Unlock()

	return export.Write(transcript, audioPath, settings.OutputDir, settings.UseLanguageCode, settings.TranslateToEnglish)
}

// publishEvent stores event history and emits runtime push notifications.
func (a *App) publishEvent(event jobs.Event) {
	published := a.events.Publish(event)

	a.mu.Lock()
	ctx := a.runtimeCtx
	a.mu.Unlock()
	if ctx != nil {
		wailsruntime.EventsEmit(ctx, "transcribe:event", published)
	}
}

// clearActiveBatch clears the batch ID once its terminal event is out.
func (a *App) clearActiveBatch(batchID string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.activeBatchID == batchID {
		a.activeBatchID = ""
	}
}

// workerLauncher adapts the process runner to the coordinator.
type workerLauncher struct {
	runner *worker.Runner
}

// Launch spawns one worker process for the task.
func (l workerLauncher) Launch(task transcribe.Task) (batch.WorkerHandle, error) {
	process, err := l.runner.Launch(task)
	if err != nil {
		return nil, err
	}
	return process, nil
}

// batchEventSink maps batch notifications onto the event bus and the
// session lifecycle. All methods run on the coordinating goroutine.
type batchEventSink struct {
	app     *App
	batchID string
}

// Print forwards one redirected worker output chunk.
func (s *batchEventSink) Print(text string) {
	s.app.publishEvent(jobs.Event{
		BatchID: s.batchID,
		Type:    jobs.EventTypePrint,
		Message: text,
	})
}

// Progress records one completed file.
func (s *batchEventSink) Progress() {
	s.app.Session.TaskDone()
	s.app.publishEvent(jobs.Event{
		BatchID:    s.batchID,
		Type:       jobs.EventTypeProgress,
		Message:    "File transcribed",
		TasksDone:  s.app.Session.TasksDone(),
		TasksTotal: s.app.Session.TasksTotal(),
	})
}

// Succeeded finishes the batch and reports all created artifacts.
func (s *batchEventSink) Succeeded(outputPaths []string) {
	s.app.publishEvent(jobs.Event{
		BatchID:     s.batchID,
		Type:        jobs.EventTypeSuccess,
		Message:     "Batch completed",
		TasksDone:   s.app.Session.TasksDone(),
		TasksTotal:  s.app.Session.TasksTotal(),
		OutputPaths: outputPaths,
	})
	s.finish(true)
}

// Failed finishes the batch with the flattened failure trace.
func (s *batchEventSink) Failed(trace string) {
	s.app.publishEvent(jobs.Event{
		BatchID: s.batchID,
		Type:    jobs.EventTypeFailure,
		Message: trace,
	})
	s.finish(false)
}

// Stopped finishes a cancelled batch.
func (s *batchEventSink) Stopped(reason string) {
	s.app.publishEvent(jobs.Event{
		BatchID: s.batchID,
		Type:    jobs.EventTypeStopped,
		Message: reason,
	})
	s.finish(false)
}

func (s *batchEventSink) finish(success bool) {
	if _, err := s.app.Session.Finish(success); err != nil {
		s.app.log.Warn().Err(err).Str("batch", s.batchID).Msg("finish batch session")
	}
	s.app.clearActiveBatch(s.batchID)
}

// runtimeContext returns current Wails runtime context for dialog APIs.
func (a *App) runtimeContext() (context.Context, error) {
	a.mu.Lock()
	defer a.mu.Unlock()
	if a.runtimeCtx == nil {
		return nil, fmt.Errorf("runtime context is not initialized")
	}
	return a.runtimeCtx, nil
}

// normalizeSettings trims user inputs and applies default language when empty.
func normalizeSettings(settings domain.Settings) domain.Settings {
	settings.ModelPath = strings.TrimSpace(settings.ModelPath)
	settings.OutputDir = strings.TrimSpace(settings.OutputDir)
	settings.Language = strings.TrimSpace(settings.Language)
	settings.InitialPrompt = strings.TrimSpace(settings.InitialPrompt)
	if settings.Language == "" {
		settings.Language = "auto"
	}
	return settings
}

// ensureLocalBinOnPATH prepends the app's private bin directory so
// locally installed whisper builds are found by the checker.
func ensureLocalBinOnPATH(homeDir string) error {
	binDir := filepath.Join(homeDir, ".whisper-desk", "bin")
	if err := os.MkdirAll(binDir, 0o755); err != nil {
		return err
	}

	current := os.Getenv("PATH")
	entries := filepath.SplitList(current)
	for _, entry := range entries {
		if filepath.Clean(entry) == filepath.Clean(binDir) {
			return nil
		}
	}

	if current == "" {
		return os.Setenv("PATH", binDir)
	}
	return os.Setenv("PATH", binDir+string(os.PathListSeparator)+current)
}

// openInFileManager launches the platform file explorer for the provided path.
func openInFileManager(path string) error {
	var cmd *exec.Cmd
	switch goruntime.GOOS {
	case "darwin":
		cmd = exec.Command("open", path)
	case "windows":
		cmd = exec.Command("explorer", filepath.Clean(path))
	default:
		cmd = exec.Command("xdg-open", path)
	}

	if err := cmd.Start(); err != nil {
		return fmt.Errorf("launch file manager: %w", err)
	}
	return nil
}

// localModelsDir is where one-click model downloads land by default.
func localModelsDir(homeDir string) string {
	return filepath.Join(homeDir, ".whisper-desk", "models")
}
