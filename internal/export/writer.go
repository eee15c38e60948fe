// Package export persists transcripts as srt, txt, and vtt files with
// the naming contract <stem>.<language-specifier>.<ext>.
package export

import (
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"whisper-desk/internal/domain"
)

// Write persists one transcript's artifacts into outputDir and returns
// the created file paths in srt, txt, vtt order.
func Write(transcript domain.Transcript, audioPath, outputDir string, useLanguageCode, translatedToEnglish bool) ([]string, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	stem := fileStem(audioPath)
	specifier := LanguageSpecifier(transcript.Language, useLanguageCode, translatedToEnglish)

	writers := []struct {
		ext   string
		write func(w io.Writer, segments []domain.Segment)
	}{
		{".srt", writeSRT},
		{".txt", writeTXT},
		{".vtt", writeVTT},
	}

	paths := make([]string, 0, len(writers))
	for _, spec := range writers {
		path := filepath.Join(outputDir, stem+"."+specifier+spec.ext)
		file, err := os.Create(path)
		if err != nil {
			return nil, fmt.Errorf("create transcript file: %w", err)
		}

		spec.write(file, transcript.Segments)
		if err := file.Close(); err != nil {
			return nil, fmt.Errorf("close transcript file: %w", err)
		}
		paths = append(paths, path)
	}

	return paths, nil
}

// LanguageSpecifier resolves the filename language part. A translated
// result is in English regardless of the detected language.
func LanguageSpecifier(detected string, useLanguageCode, translatedToEnglish bool) string {
	specifier := strings.TrimSpace(detected)
	if translatedToEnglish {
		specifier = "english"
	}

	if useLanguageCode {
		return domain.LanguageCode(specifier)
	}
	return domain.LanguageName(specifier)
}

// fileStem returns the source file name without its extension.
func fileStem(audioPath string) string {
	base := filepath.Base(audioPath)
	return strings.TrimSuffix(base, filepath.Ext(base))
}

// writeTXT emits one trimmed line per segment.
func writeTXT(w io.Writer, segments []domain.Segment) {
	for _, segment := range segments {
		fmt.Fprintln(w, strings.TrimSpace(segment.Text))
	}
}

// writeVTT emits a WEBVTT document with MM:SS.mmm cue times.
func writeVTT(w io.Writer, segments []domain.Segment) {
	fmt.Fprint(w, "WEBVTT\n\n")
	for _, segment := range segments {
		fmt.Fprintf(
			w,
			"%s --> %s\n%s\n\n",
			formatTimestamp(segment.Start, false, "."),
			formatTimestamp(segment.End, false, "."),
			cueText(segment.Text),
		)
	}
}

// writeSRT emits 1-indexed cues with HH:MM:SS,mmm times.
func writeSRT(w io.Writer, segments []domain.Segment) {
	for i, segment := range segments {
		fmt.Fprintf(
			w,
			"%d\n%s --> %s\n%s\n\n",
			i+1,
			formatTimestamp(segment.Start, true, ","),
			formatTimestamp(segment.End, true, ","),
			cueText(segment.Text),
		)
	}
}

// cueText sanitizes segment text for subtitle cue bodies.
func cueText(text string) string {
	return strings.ReplaceAll(strings.TrimSpace(text), "-->", "->")
}

// formatTimestamp renders seconds as a subtitle timestamp. Hours are
// included only when present unless alwaysHours forces them.
func formatTimestamp(seconds float64, alwaysHours bool, decimalMarker string) string {
	milliseconds := int64(math.Round(seconds * 1000))

	hours := milliseconds / 3_600_000
	milliseconds -= hours * 3_600_000
	minutes := milliseconds / 60_000
	milliseconds -= minutes * 60_000
	secs := milliseconds / 1_000
	milliseconds -= secs * 1_000

	hoursMarker := ""
	if alwaysHours || hours > 0 {
		hoursMarker = fmt.Sprintf("%02d:", hours)
	}
	return fmt.Sprintf("%s%02d:%02d%s%03d", hoursMarker, minutes, secs, decimalMarker, milliseconds)
}
