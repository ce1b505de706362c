// Package logger builds the process-wide structured logger. Other
// components receive the *slog.Logger constructed here either via a
// WithLogger option (the feed adapter, matching the teacher's
// f1livetiming.WithLogger convention) or as a constructor argument
// (publisher, recorder); they fall back to slog.Default() only when none
// is given.
package logger

import (
	"io"
	"log/slog"
	"os"
)

// Format selects the slog handler used for output.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
)

// Config controls the constructed logger's destination, format and level.
type Config struct {
	Format Format
	Level  slog.Level
	Output io.Writer
}

// New builds a *slog.Logger from cfg. A nil Output defaults to stderr, so
// the process log never collides with anything the operator console (or
// serve's own stdout progress) writes.
func New(cfg Config) *slog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}

	opts := &slog.HandlerOptions{Level: cfg.Level}

	var handler slog.Handler
	if cfg.Format == FormatJSON {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}

	return slog.New(handler)
}

// NewFile builds a logger writing JSON records to path, returning the open
// file so the caller can close it during shutdown.
func NewFile(path string, level slog.Level) (*slog.Logger, *os.File, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, nil, err
	}
	return New(Config{Format: FormatJSON, Level: level, Output: file}), file, nil
}
