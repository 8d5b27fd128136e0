// Package logging sets up the process-wide slog logger.
package logging

import (
	"io"
	"log/slog"
)

// New returns a text logger in debug mode and a JSON logger in release
// mode, both writing to w.
func New(w io.Writer, release bool) *slog.Logger {
	if release {
		return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: slog.LevelInfo}))
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

// Setup builds the logger and installs it as the slog default.
func Setup(w io.Writer, release bool) *slog.Logger {
	l := New(w, release)
	slog.SetDefault(l)
	return l
}
