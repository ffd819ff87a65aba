// Package log configures structured logging for all botweaver components.
package log

import (
	"log/slog"
	"os"
	"strings"
)

// Setup installs the default slog handler. Levels are parsed
// case-insensitively; LOG_FORMAT=json switches to the JSON handler for
// log collectors.
func Setup(logLevel string) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(logLevel)); err != nil {
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if strings.EqualFold(os.Getenv("LOG_FORMAT"), "json") {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	slog.SetDefault(slog.New(handler))
}

// WithModule returns the default logger tagged with the component name.
func WithModule(module string) *slog.Logger {
	return slog.With("module", module)
}
