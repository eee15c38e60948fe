package worker

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sync/atomic"
	"time"

	"whisper-desk/internal/domain"
	"whisper-desk/internal/transcribe"
)

// ErrNoResult indicates the worker exited without writing an envelope.
var ErrNoResult = errors.New("worker exited without reporting a result")

// Runner launches one isolated worker process per transcription task.
type Runner struct {
	execPath  string
	baseArgs  []string
	extraEnv  []string
	mkdirTemp func(dir, pattern string) (string, error)
}

// NewRunner creates a runner that re-executes the current binary in
// worker mode.
func NewRunner() (*Runner, error) {
	execPath, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("resolve executable: %w", err)
	}

	return &Runner{
		execPath:  execPath,
		baseArgs:  []string{WorkerFlag},
		mkdirTemp: os.MkdirTemp,
	}, nil
}

// NewRunnerForTests creates a runner for an arbitrary command line.
func NewRunnerForTests(execPath string, baseArgs []string, extraEnv []string) *Runner {
	return &Runner{
		execPath:  execPath,
		baseArgs:  baseArgs,
		extraEnv:  extraEnv,
		mkdirTemp: os.MkdirTemp,
	}
}

// Launch starts a worker process for the task and returns its handle.
// The returned process owns a joined stdout/stderr pipe and a result
// file; both are torn down by Close.
func (r *Runner) Launch(task transcribe.Task) (*Process, error) {
	taskJSON, err := json.Marshal(task)
	if err != nil {
		return nil, fmt.Errorf("encode worker task: %w", err)
	}

	workDir, err := r.mkdirTemp("", "whisper-desk-worker-*")
	if err != nil {
		return nil, fmt.Errorf("create worker scratch dir: %w", err)
	}
	resultPath := filepath.Join(workDir, "result.json")

	outR, outW, err := os.Pipe()
	if err != nil {
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("create output pipe: %w", err)
	}

	args := append(append([]string{}, r.baseArgs...), resultFileFlag, resultPath)
	cmd := exec.Command(r.execPath, args...)
	cmd.Stdin = bytes.NewReader(taskJSON)
	cmd.Stdout = outW
	cmd.Stderr = outW
	setSysProcAttr(cmd)
	if len(r.extraEnv) > 0 {
		cmd.Env = append(os.Environ(), r.extraEnv...)
	}

	if err := cmd.Start(); err != nil {
		_ = outR.Close()
		_ = outW.Close()
		_ = os.RemoveAll(workDir)
		return nil, fmt.Errorf("start worker process: %w", err)
	}

	// The child holds the only remaining write end; the reader sees
	// EOF once the process exits.
	_ = outW.Close()

	p := &Process{
		cmd:        cmd,
		workDir:    workDir,
		resultPath: resultPath,
		output:     make(chan string, 64),
		waitCh:     make(chan struct{}),
		outR:       outR,
	}
	go p.pumpOutput()
	go p.reap()

	return p, nil
}

// Process is one live worker plus its communication primitives.
type Process struct {
	cmd        *exec.Cmd
	workDir    string
	resultPath string
	output     chan string
	outR       *os.File
	done       atomic.Bool
	waitCh     chan struct{}
	waitErr    error
	closed     atomic.Bool
}

// pumpOutput forwards raw pipe chunks to the output channel in order.
// Closes the channel on EOF.
func (p *Process) pumpOutput() {
	defer close(p.output)

	buf := make([]byte, 4096)
	for {
		n, err := p.outR.Read(buf)
		if n > 0 {
			p.output <- string(buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// reap waits for process exit and then marks completion. The worker
// writes its result file before exiting, so once Done reports true the
// result is retrievable.
func (p *Process) reap() {
	p.waitErr = p.cmd.Wait()
	p.done.Store(true)
	close(p.waitCh)
}

// Done reports worker completion without blocking.
func (p *Process) Done() bool {
	return p.done.Load()
}

// Output returns the ordered console output chunk channel. It is
// closed once the worker's streams reach EOF.
func (p *Process) Output() <-chan string {
	return p.output
}

// Result retrieves the worker's outcome. Call only after Done reports
// true. A worker that died without reporting yields ErrNoResult with
// the process exit state attached.
func (p *Process) Result() (domain.Transcript, error) {
	data, err := os.ReadFile(p.resultPath)
	if err != nil {
		return domain.Transcript{}, p.missingResult(err)
	}

	var envelope ResultEnvelope
	if err := json.Unmarshal(data, &envelope); err != nil {
		return domain.Transcript{}, p.missingResult(err)
	}

	if envelope.Error != "" {
		return domain.Transcript{}, &InferenceError{
			Message: envelope.Error,
			Trace:   envelope.Trace,
		}
	}
	if envelope.Transcript == nil {
		return domain.Transcript{}, p.missingResult(nil)
	}

	return *envelope.Transcript, nil
}

// missingResult wraps ErrNoResult with whatever exit detail is known.
func (p *Process) missingResult(cause error) error {
	err := fmt.Errorf("%w (pid %d)", ErrNoResult, p.cmd.Process.Pid)
	if p.waitErr != nil {
		err = fmt.Errorf("%w: %v", err, p.waitErr)
	}
	if cause != nil {
		err = fmt.Errorf("%w: %v", err, cause)
	}
	return err
}

// Terminate forcibly stops the worker and every subprocess it spawned,
// waiting up to join per escalation stage. SIGTERM reaches the whole
// process group first, giving the worker a chance to cancel an
// in-flight inference tool; a hard kill of the group follows if the
// worker does not exit in time.
func (p *Process) Terminate(join time.Duration) error {
	if p.done.Load() {
		return nil
	}

	if err := signalTree(p.cmd.Process.Pid, false); err != nil {
		return fmt.Errorf("terminate worker: %w", err)
	}
	select {
	case <-p.waitCh:
		return nil
	case <-time.After(join):
	}

	if err := signalTree(p.cmd.Process.Pid, true); err != nil {
		return fmt.Errorf("kill worker: %w", err)
	}
	select {
	case <-p.waitCh:
		return nil
	case <-time.After(join):
		return fmt.Errorf("worker pid %d did not exit within %s after kill", p.cmd.Process.Pid, join)
	}
}

// Close releases the pipe read end and the result scratch directory.
func (p *Process) Close() error {
	if !p.closed.CompareAndSwap(false, true) {
		return nil
	}

	err := p.outR.Close()
	if rmErr := os.RemoveAll(p.workDir); err == nil {
		err = rmErr
	}
	return err
}

// InferenceError is a worker-reported transcription failure. Error
// returns the full displayable trace so it can cross into the UI as a
// single flattened string.
type InferenceError struct {
	Message string
	Trace   string
}

// Error formats the failure with its trace text.
func (e *InferenceError) Error() string {
	if e.Trace == "" {
		return e.Message
	}
	return e.Message + "\n" + e.Trace
}
