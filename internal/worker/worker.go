package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"runtime/debug"
	"strings"
	"syscall"

	"whisper-desk/internal/transcribe"
)

// MaybeRun detects a worker-mode invocation and executes it. Returns
// the process exit code and true when this invocation was a worker;
// GUI startup must be skipped in that case.
func MaybeRun(args []string) (int, bool) {
	if len(args) < 2 || args[1] != WorkerFlag {
		return 0, false
	}
	return Main(args[2:], os.Stdin, transcribe.NewCLIEngine()), true
}

// Main runs one transcription task inside an isolated worker process.
// The task arrives as JSON on stdin, console output goes to the
// inherited stdout/stderr (the parent's redirection pipe), and the
// outcome is written to the result file before the process exits.
func Main(args []string, stdin io.Reader, engine transcribe.Engine) int {
	resultPath := flagValue(args, resultFileFlag)
	if resultPath == "" {
		fmt.Fprintln(os.Stderr, "worker: missing result file path")
		return 2
	}

	var task transcribe.Task
	if err := json.NewDecoder(stdin).Decode(&task); err != nil {
		writeEnvelope(resultPath, ResultEnvelope{
			Error: fmt.Sprintf("decode worker task: %v", err),
			Trace: formatTrace(err),
		})
		return 2
	}

	// Termination cancels the engine run; exec's context handling then
	// kills the in-flight tool subprocess before this process exits.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		cancel()
	}()

	transcript, err := engine.Transcribe(ctx, task)
	if err != nil {
		if ctx.Err() != nil {
			// Stopped on request; the parent discards the result.
			return 0
		}
		// Report the failure through the result file first, then exit
		// abnormally so the parent sees a failed process too.
		writeEnvelope(resultPath, ResultEnvelope{
			Error: err.Error(),
			Trace: formatTrace(err),
		})
		return 1
	}

	if err := writeEnvelope(resultPath, ResultEnvelope{Transcript: &transcript}); err != nil {
		fmt.Fprintf(os.Stderr, "worker: write result: %v\n", err)
		return 1
	}

	return 0
}

// writeEnvelope persists the result envelope atomically so the parent
// never reads a partial document.
func writeEnvelope(path string, envelope ResultEnvelope) error {
	data, err := json.Marshal(envelope)
	if err != nil {
		return err
	}

	tmpPath := path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return err
	}
	return os.Rename(tmpPath, path)
}

// formatTrace flattens an error chain plus the goroutine stack into
// displayable text for the failure notification.
func formatTrace(err error) string {
	var lines []string
	for e := err; e != nil; e = errors.Unwrap(e) {
		lines = append(lines, e.Error())
	}

	var b strings.Builder
	b.WriteString(strings.Join(lines, "\ncaused by: "))
	b.WriteString("\n\n")
	b.Write(debug.Stack())
	return b.String()
}

// flagValue returns the value following a flag in raw args.
func flagValue(args []string, flag string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == flag {
			return args[i+1]
		}
	}
	return ""
}
