package bboard

import (
	"log/slog"
	"os"
)

// NewLogger builds the process-wide JSON logger and installs it as the
// slog default.
func NewLogger(logLevel *slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		AddSource: true,
		Level:     logLevel,
	}))
	slog.SetDefault(logger)

	return logger
}
