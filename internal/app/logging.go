package app

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
)

// LogOptions choose where records go.
type LogOptions struct {
	// File receives JSON records; used when Console is nil.
	File string
	// Console receives human-readable records instead of File.
	Console io.Writer
	Verbose bool
}

type nopCloser struct{}

func (nopCloser) Close() error { return nil }

// NewLogger builds the process logger. The TUI owns the terminal, so by
// default records go to the log file as JSON.
func NewLogger(opts LogOptions) (*slog.Logger, io.Closer, error) {
	level := slog.LevelInfo
	if opts.Verbose {
		level = slog.LevelDebug
	}
	handlerOpts := &slog.HandlerOptions{Level: level}

	if opts.Console != nil {
		return slog.New(slog.NewTextHandler(opts.Console, handlerOpts)), nopCloser{}, nil
	}
	if opts.File == "" {
		return slog.New(slog.NewTextHandler(io.Discard, handlerOpts)), nopCloser{}, nil
	}

	if err := os.MkdirAll(filepath.Dir(opts.File), 0o755); err != nil {
		return nil, nil, fmt.Errorf("create log dir: %w", err)
	}
	f, err := os.OpenFile(opts.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o600)
	if err != nil {
		return nil, nil, fmt.Errorf("open log file: %w", err)
	}
	return slog.New(slog.NewJSONHandler(f, handlerOpts)), f, nil
}
