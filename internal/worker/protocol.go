package worker

import "whisper-desk/internal/domain"

// WorkerFlag marks a process invocation as a transcription worker.
const WorkerFlag = "--transcribe-worker"

// resultFileFlag carries the path the worker writes its envelope to.
const resultFileFlag = "--result"

// ResultEnvelope crosses the process boundary through the result file.
// Exactly one of Transcript or Error is set. The worker writes it
// before exiting, so a parent that observed process completion can
// always retrieve it.
type ResultEnvelope struct {
	Transcript *domain.Transcript `json:"transcript,omitempty"`
	Error      string             `json:"error,omitempty"`
	Trace      string             `json:"trace,omitempty"`
}
