package batch

import (
	"time"

	"github.com/rs/zerolog"

	"whisper-desk/internal/domain"
	"whisper-desk/internal/transcribe"
)

// Notifier receives batch notifications. All calls happen on the
// coordinating goroutine; exactly one terminal notification (success,
// failure, or stopped) is emitted per batch, always last.
type Notifier interface {
	Printer
	Progress()
	Succeeded(outputPaths []string)
	Failed(trace string)
	Stopped(reason string)
}

// WorkerHandle is one live worker process owned by the coordinator for
// the lifetime of exactly one task.
type WorkerHandle interface {
	Done() bool
	Output() <-chan string
	Result() (domain.Transcript, error)
	Terminate(join time.Duration) error
	Close() error
}

// Launcher spawns one worker process per task.
type Launcher interface {
	Launch(task transcribe.Task) (WorkerHandle, error)
}

// TranscriptWriter persists one transcript's artifacts and returns the
// created file paths.
type TranscriptWriter func(transcript domain.Transcript, audioPath string) ([]string, error)

// Params are the per-batch transcription options shared by all tasks.
type Params struct {
	ModelPath          string
	Language           string
	TranslateToEnglish bool
	InitialPrompt      string
}

// Coordinator processes a batch of files strictly sequentially: one
// worker at a time, caller order, no retry. A failure on file N never
// attempts file N+1.
type Coordinator struct {
	launcher     Launcher
	write        TranscriptWriter
	log          zerolog.Logger
	pollInterval time.Duration
	joinTimeout  time.Duration
}

// NewCoordinator builds a coordinator with default polling tuning.
func NewCoordinator(launcher Launcher, write TranscriptWriter, log zerolog.Logger) *Coordinator {
	return &Coordinator{
		launcher:     launcher,
		write:        write,
		log:          log,
		pollInterval: 5 * time.Millisecond,
		joinTimeout:  3 * time.Second,
	}
}

// NewCoordinatorForTests builds a coordinator with injectable tuning.
func NewCoordinatorForTests(launcher Launcher, write TranscriptWriter, log zerolog.Logger, pollInterval, joinTimeout time.Duration) *Coordinator {
	return &Coordinator{
		launcher:     launcher,
		write:        write,
		log:          log,
		pollInterval: pollInterval,
		joinTimeout:  joinTimeout,
	}
}

// Run executes the batch. Exactly one terminal notification is sent;
// zero or more print notifications and one progress notification per
// completed file strictly precede it.
func (c *Coordinator) Run(files []string, params Params, stop *StopSignal, sink Notifier) {
	var outputPaths []string

	for _, audioPath := range files {
		handle, err := c.launcher.Launch(transcribe.Task{
			FilePath:           audioPath,
			ModelPath:          params.ModelPath,
			Language:           params.Language,
			TranslateToEnglish: params.TranslateToEnglish,
			InitialPrompt:      params.InitialPrompt,
		})
		if err != nil {
			c.log.Error().Err(err).Str("file", audioPath).Msg("launch worker")
			sink.Failed("An error occurred while starting the transcription worker.\n" + err.Error())
			return
		}

		relay := NewOutputRelay(handle.Output())
		if stopped := c.poll(handle, relay, stop, sink); stopped {
			_ = handle.Close()
			sink.Stopped("Transcription stopped due to stop signal.")
			return
		}

		// The worker may have written after the last poll but before
		// exit; forward whatever is left.
		relay.Flush(sink)

		result, err := handle.Result()
		_ = handle.Close()
		if err != nil {
			c.log.Error().Err(err).Str("file", audioPath).Msg("worker failed")
			sink.Failed("An error occurred while transcribing the file.\n" + err.Error())
			return
		}

		paths, err := c.write(result, audioPath)
		if err != nil {
			c.log.Error().Err(err).Str("file", audioPath).Msg("write transcript files")
			sink.Failed("An error occurred while writing transcript files.\n" + err.Error())
			return
		}

		outputPaths = append(outputPaths, paths...)
		sink.Progress()
	}

	sink.Succeeded(outputPaths)
}

// poll watches the worker until completion, relaying output and
// honoring cancellation within one poll interval. Returns true when
// the batch was stopped and the worker terminated.
func (c *Coordinator) poll(handle WorkerHandle, relay *OutputRelay, stop *StopSignal, sink Notifier) bool {
	for !handle.Done() {
		if stop.IsSet() {
			if err := handle.Terminate(c.joinTimeout); err != nil {
				c.log.Warn().Err(err).Msg("terminate worker")
			}
			return true
		}

		relay.Drain(sink)
		time.Sleep(c.pollInterval)
	}
	return false
}
