package transcribe

import (
	"encoding/json"
	"errors"
	"strings"

	"whisper-desk/internal/domain"
)

// whisperOutput mirrors the whisper-cli JSON export schema.
type whisperOutput struct {
	Result struct {
		Language string `json:"language"`
	} `json:"result"`
	Transcription []struct {
		Offsets struct {
			From int64 `json:"from"`
			To   int64 `json:"to"`
		} `json:"offsets"`
		Text string `json:"text"`
	} `json:"transcription"`
}

// parseWhisperJSON converts whisper-cli JSON output into a transcript.
// Segment offsets arrive in milliseconds.
func parseWhisperJSON(data []byte) (domain.Transcript, error) {
	var out whisperOutput
	if err := json.Unmarshal(data, &out); err != nil {
		return domain.Transcript{}, err
	}
	if len(out.Transcription) == 0 {
		return domain.Transcript{}, errors.New("whisper result contains no segments")
	}

	segments := make([]domain.Segment, 0, len(out.Transcription))
	for _, seg := range out.Transcription {
		segments = append(segments, domain.Segment{
			Start: float64(seg.Offsets.From) / 1000,
			End:   float64(seg.Offsets.To) / 1000,
			Text:  strings.TrimSpace(seg.Text),
		})
	}

	return domain.Transcript{
		Language: strings.TrimSpace(out.Result.Language),
		Segments: segments,
	}, nil
}
