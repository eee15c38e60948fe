// Package logging configures the zerolog logger shared by the app.
// Configured once at process start, used read-only thereafter.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// levelEnvVar overrides the default log level when set.
const levelEnvVar = "WHISPER_DESK_LOG_LEVEL"

// New builds a console logger writing to out at the given level.
func New(out io.Writer, level string) zerolog.Logger {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}

	writer := zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	return zerolog.New(writer).Level(lvl).With().Timestamp().Logger()
}

// NewFromEnv builds the default stderr logger, honoring the level
// environment override.
func NewFromEnv() zerolog.Logger {
	return New(os.Stderr, os.Getenv(levelEnvVar))
}
