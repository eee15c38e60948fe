package domain

// Settings contains user-selectable runtime configuration.
type Settings struct {
	ModelPath          string `json:"modelPath"`
	OutputDir          string `json:"outputDir"`
	Language           string `json:"language"`
	TranslateToEnglish bool   `json:"translateToEnglish"`
	UseLanguageCode    bool   `json:"useLanguageCode"`
	InitialPrompt      string `json:"initialPrompt"`
}

// Segment is one timed span of transcribed speech.
type Segment struct {
	Start float64 `json:"start"`
	End   float64 `json:"end"`
	Text  string  `json:"text"`
}

// Transcript is the structured outcome of transcribing one file.
type Transcript struct {
	Language string    `json:"language"`
	Segments []Segment `json:"segments"`
}

// BatchProgress is a read-only snapshot of the active batch for the UI.
type BatchProgress struct {
	Running     bool   `json:"running"`
	TasksDone   int    `json:"tasksDone"`
	TasksTotal  int    `json:"tasksTotal"`
	CurrentFile string `json:"currentFile"`
	BatchID     string `json:"batchId"`
}
