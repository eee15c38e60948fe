package transcribe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"whisper-desk/internal/domain"
)

// Fixed search-quality parameters for every transcription run.
const (
	beamSize = 5
	bestOf   = 5
)

// Task describes one file to transcribe.
type Task struct {
	FilePath           string `json:"filePath"`
	ModelPath          string `json:"modelPath"`
	Language           string `json:"language"`
	TranslateToEnglish bool   `json:"translateToEnglish"`
	InitialPrompt      string `json:"initialPrompt"`
}

// Engine is the blocking inference call: file in, transcript out.
type Engine interface {
	Transcribe(ctx context.Context, task Task) (domain.Transcript, error)
}

// StageError is a stage-aware transcription failure.
type StageError struct {
	Stage   string `json:"stage"`
	Message string `json:"message"`
	Err     error  `json:"-"`
}

// Error formats engine failures for logs and UI.
func (e *StageError) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Stage, e.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.Stage, e.Message, e.Err)
}

// Unwrap exposes the underlying error for errors.Is / errors.As.
func (e *StageError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// commandRunner abstracts process execution for testability. Tool
// output is streamed to console as it is produced.
type commandRunner interface {
	Run(ctx context.Context, console io.Writer, name string, args ...string) error
}

// execRunner executes commands via os/exec with streamed output.
type execRunner struct{}

// Run executes one command, wiring stdout and stderr to the console.
func (r *execRunner) Run(ctx context.Context, console io.Writer, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = console
	cmd.Stderr = console
	return cmd.Run()
}

// CLIEngine performs inference through ffmpeg and whisper-cli.
type CLIEngine struct {
	ffmpegPath  string
	whisperPath string
	runner      commandRunner
	console     io.Writer
	mkdirTemp   func(dir, pattern string) (string, error)
	removeAll   func(path string) error
	stat        func(name string) (os.FileInfo, error)
	readDir     func(name string) ([]os.DirEntry, error)
	readFile    func(name string) ([]byte, error)
}

// NewCLIEngine constructs the production engine with OS dependencies.
// Console output goes to the process's own stdout, which inside a
// worker process is the redirection pipe back to the GUI.
func NewCLIEngine() *CLIEngine {
	return &CLIEngine{
		ffmpegPath:  "ffmpeg",
		whisperPath: "whisper-cli",
		runner:      &execRunner{},
		console:     os.Stdout,
		mkdirTemp:   os.MkdirTemp,
		removeAll:   os.RemoveAll,
		stat:        os.Stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}

// Transcribe preprocesses the media file and runs whisper inference.
func (e *CLIEngine) Transcribe(ctx context.Context, task Task) (domain.Transcript, error) {
	if strings.TrimSpace(task.FilePath) == "" {
		return domain.Transcript{}, &StageError{
			Stage:   "preprocessing",
			Message: "input media path is required",
		}
	}
	if _, err := e.stat(task.FilePath); err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "preprocessing",
			Message: fmt.Sprintf("cannot access input media: %s", task.FilePath),
			Err:     err,
		}
	}

	modelPath, err := e.resolveModelPath(task.ModelPath)
	if err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "transcribing",
			Message: err.Error(),
			Err:     err,
		}
	}

	tempDir, err := e.mkdirTemp("", "whisper-desk-*")
	if err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "preprocessing",
			Message: "failed to create temporary workspace",
			Err:     err,
		}
	}
	defer func() { _ = e.removeAll(tempDir) }()

	fmt.Fprintf(e.console, "\nTranscribing file: %s\n\n", task.FilePath)

	wavPath := filepath.Join(tempDir, "audio-16k-mono.wav")
	if err := e.runner.Run(ctx, e.console, e.ffmpegPath, buildFFmpegArgs(task.FilePath, wavPath)...); err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "preprocessing",
			Message: "ffmpeg audio conversion failed",
			Err:     err,
		}
	}
	if _, err := e.stat(wavPath); err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "preprocessing",
			Message: "ffmpeg completed but output file is missing",
			Err:     err,
		}
	}

	resultBase := filepath.Join(tempDir, "result")
	args := buildWhisperArgs(modelPath, wavPath, resultBase, task)
	if err := e.runner.Run(ctx, e.console, e.whisperPath, args...); err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "transcribing",
			Message: "whisper inference failed",
			Err:     err,
		}
	}

	data, err := e.readFile(resultBase + ".json")
	if err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "transcribing",
			Message: "whisper completed but the result JSON is missing",
			Err:     err,
		}
	}

	transcript, err := parseWhisperJSON(data)
	if err != nil {
		return domain.Transcript{}, &StageError{
			Stage:   "transcribing",
			Message: "cannot parse whisper result JSON",
			Err:     err,
		}
	}

	return transcript, nil
}

// resolveModelPath returns a model file path from file or directory input.
func (e *CLIEngine) resolveModelPath(rawPath string) (string, error) {
	modelPath := strings.TrimSpace(rawPath)
	if modelPath == "" {
		return "", errors.New("model path is required")
	}

	info, err := e.stat(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot access model path: %s", modelPath)
	}
	if !info.IsDir() {
		return modelPath, nil
	}

	entries, err := e.readDir(modelPath)
	if err != nil {
		return "", fmt.Errorf("cannot read model directory: %s", modelPath)
	}

	modelNames := make([]string, 0, len(entries))
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}

		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".bin" || ext == ".gguf" {
			modelNames = append(modelNames, entry.Name())
		}
	}
	if len(modelNames) == 0 {
		return "", fmt.Errorf("no .bin or .gguf model files found in: %s", modelPath)
	}

	sort.Strings(modelNames)
	return filepath.Join(modelPath, modelNames[0]), nil
}

// normalizeLanguage maps "auto" and empty language to no CLI override.
func normalizeLanguage(raw string) string {
	lang := strings.TrimSpace(raw)
	if lang == "" || strings.EqualFold(lang, "auto") {
		return ""
	}
	return lang
}

// buildFFmpegArgs builds preprocessing CLI args for mono 16k PCM WAV output.
func buildFFmpegArgs(inputPath, outPath string) []string {
	return []string{
		"-hide_banner",
		"-nostdin",
		"-y",
		"-i", inputPath,
		"-vn",
		"-ac", "1",
		"-ar", "16000",
		"-c:a", "pcm_s16le",
		outPath,
	}
}

// buildWhisperArgs builds whisper-cli args for JSON result export.
func buildWhisperArgs(modelPath, audioPath, resultBase string, task Task) []string {
	args := []string{
		"-m", modelPath,
		"-f", audioPath,
		"-of", resultBase,
		"-oj",
		"-bs", strconv.Itoa(beamSize),
		"-bo", strconv.Itoa(bestOf),
	}

	if lang := normalizeLanguage(task.Language); lang != "" {
		args = append(args, "-l", lang)
	}
	if task.TranslateToEnglish {
		args = append(args, "-tr")
	}
	if prompt := strings.TrimSpace(task.InitialPrompt); prompt != "" {
		args = append(args, "--prompt", prompt)
	}

	return args
}

// NewCLIEngineForTests constructs an engine with injectable dependencies.
func NewCLIEngineForTests(
	ffmpegPath string,
	whisperPath string,
	runner commandRunner,
	console io.Writer,
	mkdirTemp func(dir, pattern string) (string, error),
	removeAll func(path string) error,
	stat func(name string) (os.FileInfo, error),
) *CLIEngine {
	return &CLIEngine{
		ffmpegPath:  ffmpegPath,
		whisperPath: whisperPath,
		runner:      runner,
		console:     console,
		mkdirTemp:   mkdirTemp,
		removeAll:   removeAll,
		stat:        stat,
		readDir:     os.ReadDir,
		readFile:    os.ReadFile,
	}
}
