// Package logging wires slog handlers for the daily log file and the console.
package logging

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// Config configures the logger.
type Config struct {
	// File receives every record at info level and above (debug with Debug set).
	File io.Writer
	// Console receives warnings and errors (everything with Debug set).
	Console io.Writer
	// Debug lowers both handlers to debug level.
	Debug bool
}

// New creates a logger fanning out to the configured writers.
// A nil writer disables that destination.
func New(cfg Config) *slog.Logger {
	fileLevel, consoleLevel := slog.LevelInfo, slog.LevelWarn
	if cfg.Debug {
		fileLevel, consoleLevel = slog.LevelDebug, slog.LevelDebug
	}

	var handlers []slog.Handler

	if cfg.File != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.File, &slog.HandlerOptions{Level: fileLevel}))
	}

	if cfg.Console != nil {
		handlers = append(handlers, slog.NewTextHandler(cfg.Console, &slog.HandlerOptions{Level: consoleLevel}))
	}

	if len(handlers) == 0 {
		return slog.New(slog.DiscardHandler)
	}

	return slog.New(fanout(handlers))
}

// Open opens (or creates) the log file at path for appending, creating its directory.
func Open(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("opening log file: %w", err)
	}

	return file, nil
}

// fanout dispatches each record to every handler that accepts its level.
type fanout []slog.Handler

func (f fanout) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range f {
		if h.Enabled(ctx, level) {
			return true
		}
	}

	return false
}

//nolint:gocritic // slog.Handler signature
func (f fanout) Handle(ctx context.Context, record slog.Record) error {
	var errs []error

	for _, h := range f {
		if h.Enabled(ctx, record.Level) {
			errs = append(errs, h.Handle(ctx, record.Clone()))
		}
	}

	return errors.Join(errs...)
}

func (f fanout) WithAttrs(attrs []slog.Attr) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithAttrs(attrs)
	}

	return out
}

func (f fanout) WithGroup(name string) slog.Handler {
	out := make(fanout, len(f))
	for i, h := range f {
		out[i] = h.WithGroup(name)
	}

	return out
}
