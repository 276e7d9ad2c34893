package logging

import (
	"log/slog"
	"os"
	"strings"
)

// NewJSONLogger builds the process-wide structured logger. Every record
// carries the service name so api and worker streams stay separable when
// they land in the same sink.
func NewJSONLogger(service, level string) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: levelFromString(level),
	})
	return slog.New(handler).With(slog.String("service", service))
}

// levelFromString accepts the usual spellings case-insensitively and falls
// back to info rather than failing startup over a typo.
func levelFromString(raw string) slog.Level {
	text := strings.ToUpper(strings.TrimSpace(raw))
	if text == "WARNING" {
		text = "WARN"
	}

	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(text)); err != nil {
		return slog.LevelInfo
	}
	return lvl
}
