package transcribe

import (
	"bytes"
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"
)

// fakeRunner simulates command execution order and outcomes.
type fakeRunner struct {
	run func(ctx context.Context, console io.Writer, name string, args ...string) error
}

// Run delegates to injected behavior.
func (f *fakeRunner) Run(ctx context.Context, console io.Writer, name string, args ...string) error {
	if f.run == nil {
		return nil
	}
	return f.run(ctx, console, name, args...)
}

const sampleWhisperJSON = `{
  "result": {"language": "en"},
  "transcription": [
    {"offsets": {"from": 0, "to": 1800}, "text": " Hello there."},
    {"offsets": {"from": 1800, "to": 4200}, "text": " General greeting."}
  ]
}`

// TestEngineTranscribeSuccessAutoLanguage checks the full happy path.
func TestEngineTranscribeSuccessAutoLanguage(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "meeting.mp4")
	modelPath := filepath.Join(root, "ggml-base.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	call := 0
	var whisperArgs []string
	runner := &fakeRunner{
		run: func(ctx context.Context, console io.Writer, name string, args ...string) error {
			call++
			switch call {
			case 1:
				if name != "ffmpeg-custom" {
					t.Fatalf("command 1 name = %q, want ffmpeg-custom", name)
				}
				mustWriteFile(t, args[len(args)-1], "wav")
				return nil
			case 2:
				if name != "whisper-custom" {
					t.Fatalf("command 2 name = %q, want whisper-custom", name)
				}
				whisperArgs = append([]string{}, args...)
				mustWriteFile(t, argValue(args, "-of")+".json", sampleWhisperJSON)
				return nil
			default:
				t.Fatalf("unexpected command call: %d", call)
				return nil
			}
		},
	}

	var console bytes.Buffer
	engine := NewCLIEngineForTests("ffmpeg-custom", "whisper-custom", runner, &console, os.MkdirTemp, os.RemoveAll, os.Stat)
	transcript, err := engine.Transcribe(context.Background(), Task{
		FilePath:  inputPath,
		ModelPath: modelPath,
		Language:  "auto",
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	if call != 2 {
		t.Fatalf("command calls = %d, want 2", call)
	}
	if transcript.Language != "en" {
		t.Fatalf("language = %q, want en", transcript.Language)
	}
	if len(transcript.Segments) != 2 {
		t.Fatalf("segments = %d, want 2", len(transcript.Segments))
	}
	if transcript.Segments[0].Text != "Hello there." {
		t.Fatalf("segment text = %q", transcript.Segments[0].Text)
	}
	if transcript.Segments[1].Start != 1.8 || transcript.Segments[1].End != 4.2 {
		t.Fatalf("segment times = %v..%v, want 1.8..4.2", transcript.Segments[1].Start, transcript.Segments[1].End)
	}
	if hasArg(whisperArgs, "-l") {
		t.Fatalf("auto language should not pass -l, args=%v", whisperArgs)
	}
	if !hasArg(whisperArgs, "-bs") || argValue(whisperArgs, "-bs") != "5" {
		t.Fatalf("expected beam size 5, args=%v", whisperArgs)
	}
	if !hasArg(whisperArgs, "-bo") || argValue(whisperArgs, "-bo") != "5" {
		t.Fatalf("expected best-of 5, args=%v", whisperArgs)
	}
	if !bytes.Contains(console.Bytes(), []byte("Transcribing file: "+inputPath)) {
		t.Fatalf("console output missing banner: %q", console.String())
	}
}

// TestEngineTranscribeFFmpegFailure checks the conversion error path.
func TestEngineTranscribeFFmpegFailure(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp4")
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	var cleaned string
	runner := &fakeRunner{
		run: func(ctx context.Context, console io.Writer, name string, args ...string) error {
			return errors.New("exit status 1")
		},
	}

	engine := NewCLIEngineForTests(
		"ffmpeg",
		"whisper-cli",
		runner,
		io.Discard,
		os.MkdirTemp,
		func(path string) error {
			cleaned = path
			return os.RemoveAll(path)
		},
		os.Stat,
	)

	_, err := engine.Transcribe(context.Background(), Task{
		FilePath:  inputPath,
		ModelPath: modelPath,
		Language:  "auto",
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *StageError", err)
	}
	if sErr.Stage != "preprocessing" {
		t.Fatalf("stage = %s, want preprocessing", sErr.Stage)
	}
	if cleaned == "" {
		t.Fatal("expected temporary directory cleanup")
	}
	if _, statErr := os.Stat(cleaned); !errors.Is(statErr, os.ErrNotExist) {
		t.Fatalf("temp dir should be removed, stat err = %v", statErr)
	}
}

// TestEngineTranscribeModelDirectoryAndOptions checks model discovery
// plus translate and prompt argument wiring.
func TestEngineTranscribeModelDirectoryAndOptions(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mov")
	modelDir := filepath.Join(root, "models")
	mustWriteFile(t, inputPath, "media")
	if err := os.MkdirAll(modelDir, 0o755); err != nil {
		t.Fatalf("mkdir models: %v", err)
	}
	// lexical sort should pick this first.
	mustWriteFile(t, filepath.Join(modelDir, "a-small.gguf"), "model")
	mustWriteFile(t, filepath.Join(modelDir, "z-large.bin"), "model")

	var usedModel, usedLanguage, usedPrompt string
	var translated bool
	runner := &fakeRunner{
		run: func(ctx context.Context, console io.Writer, name string, args ...string) error {
			if name == "ffmpeg" {
				mustWriteFile(t, args[len(args)-1], "wav")
				return nil
			}

			usedModel = argValue(args, "-m")
			usedLanguage = argValue(args, "-l")
			usedPrompt = argValue(args, "--prompt")
			translated = hasArg(args, "-tr")
			mustWriteFile(t, argValue(args, "-of")+".json", sampleWhisperJSON)
			return nil
		},
	}

	engine := NewCLIEngineForTests("ffmpeg", "whisper-cli", runner, io.Discard, os.MkdirTemp, os.RemoveAll, os.Stat)
	_, err := engine.Transcribe(context.Background(), Task{
		FilePath:           inputPath,
		ModelPath:          modelDir,
		Language:           "ru",
		TranslateToEnglish: true,
		InitialPrompt:      "Casual conversation.",
	})
	if err != nil {
		t.Fatalf("Transcribe() error = %v", err)
	}

	wantModel := filepath.Join(modelDir, "a-small.gguf")
	if usedModel != wantModel {
		t.Fatalf("used model = %q, want %q", usedModel, wantModel)
	}
	if usedLanguage != "ru" {
		t.Fatalf("used language = %q, want ru", usedLanguage)
	}
	if !translated {
		t.Fatal("expected -tr flag")
	}
	if usedPrompt != "Casual conversation." {
		t.Fatalf("prompt = %q", usedPrompt)
	}
}

// TestEngineTranscribeMissingResultJSON checks the missing export path.
func TestEngineTranscribeMissingResultJSON(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp4")
	modelPath := filepath.Join(root, "model.bin")
	mustWriteFile(t, inputPath, "media")
	mustWriteFile(t, modelPath, "model")

	runner := &fakeRunner{
		run: func(ctx context.Context, console io.Writer, name string, args ...string) error {
			if name == "ffmpeg" {
				mustWriteFile(t, args[len(args)-1], "wav")
			}
			return nil
		},
	}

	engine := NewCLIEngineForTests("ffmpeg", "whisper-cli", runner, io.Discard, os.MkdirTemp, os.RemoveAll, os.Stat)
	_, err := engine.Transcribe(context.Background(), Task{
		FilePath:  inputPath,
		ModelPath: modelPath,
	})
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *StageError", err)
	}
	if sErr.Stage != "transcribing" {
		t.Fatalf("stage = %s, want transcribing", sErr.Stage)
	}
}

// TestEngineTranscribeRequiresModelPath checks validation for missing model.
func TestEngineTranscribeRequiresModelPath(t *testing.T) {
	root := t.TempDir()
	inputPath := filepath.Join(root, "clip.mp3")
	mustWriteFile(t, inputPath, "media")

	engine := NewCLIEngineForTests("ffmpeg", "whisper-cli", &fakeRunner{}, io.Discard, os.MkdirTemp, os.RemoveAll, os.Stat)
	_, err := engine.Transcribe(context.Background(), Task{FilePath: inputPath})
	if err == nil {
		t.Fatal("expected error")
	}

	var sErr *StageError
	if !errors.As(err, &sErr) {
		t.Fatalf("error type = %T, want *StageError", err)
	}
	if sErr.Stage != "transcribing" {
		t.Fatalf("stage = %s, want transcribing", sErr.Stage)
	}
}

// TestParseWhisperJSONRejectsEmptyTranscription checks parser validation.
func TestParseWhisperJSONRejectsEmptyTranscription(t *testing.T) {
	if _, err := parseWhisperJSON([]byte(`{"result":{"language":"en"},"transcription":[]}`)); err == nil {
		t.Fatal("expected error for empty transcription")
	}
	if _, err := parseWhisperJSON([]byte("{broken")); err == nil {
		t.Fatal("expected error for malformed JSON")
	}
}

// mustWriteFile creates parent directory and writes file content.
func mustWriteFile(t *testing.T, path, content string) {
	t.Helper()
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir parent: %v", err)
	}
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write file %s: %v", path, err)
	}
}

// argValue returns the value for key-style CLI args.
func argValue(args []string, key string) string {
	for i := 0; i < len(args)-1; i++ {
		if args[i] == key {
			return args[i+1]
		}
	}
	return ""
}

// hasArg reports whether args include the target flag.
func hasArg(args []string, key string) bool {
	for _, arg := range args {
		if arg == key {
			return true
		}
	}
	return false
}
