// Package logging builds the process logger: human-readable lines on the
// console and a JSON run log in the state directory, both behind logr.
package logging

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/go-logr/logr"
	"github.com/go-logr/zapr"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options configures New.
type Options struct {
	// Verbose lowers the console level from info to debug, which shows per-action
	// progress (logr V(1)).
	Verbose bool

	// Console receives the console output. Nil disables it, which is what
	// the TUI wants since it owns the terminal.
	Console io.Writer

	// File is the path of the JSON run log. Empty disables it.
	File string
}

// New returns a logger and a function that flushes and closes its sinks.
// The file sink always records debug, so the run log holds every action even
// when the console is quiet.
func New(opts Options) (logr.Logger, func() error, error) {
	var cores []zapcore.Core
	var closers []func() error

	if opts.Console != nil {
		level := zap.InfoLevel
		if opts.Verbose {
			level = zap.DebugLevel
		}
		enc := zap.NewDevelopmentEncoderConfig()
		enc.EncodeLevel = zapcore.CapitalLevelEncoder
		enc.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		enc.EncodeCaller = nil
		cores = append(cores, zapcore.NewCore(zapcore.NewConsoleEncoder(enc), zapcore.AddSync(opts.Console), level))
	}

	if opts.File != "" {
		if err := os.MkdirAll(filepath.Dir(opts.File), 0o700); err != nil {
			return logr.Discard(), nil, fmt.Errorf("failed to create log directory: %w", err)
		}
		f, err := os.OpenFile(opts.File, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o600)
		if err != nil {
			return logr.Discard(), nil, fmt.Errorf("failed to open log file: %w", err)
		}
		closers = append(closers, f.Close)
		enc := zap.NewProductionEncoderConfig()
		enc.EncodeTime = zapcore.ISO8601TimeEncoder
		cores = append(cores, zapcore.NewCore(zapcore.NewJSONEncoder(enc), zapcore.AddSync(f), zap.DebugLevel))
	}

	if len(cores) == 0 {
		return logr.Discard(), func() error { return nil }, nil
	}

	zl := zap.New(zapcore.NewTee(cores...))
	cleanup := func() error {
		_ = zl.Sync()
		var first error
		for _, c := range closers {
			if err := c(); err != nil && first == nil {
				first = err
			}
		}
		return first
	}
	return zapr.NewLogger(zl), cleanup, nil
}
