// Package logging builds the zap logger shared by the services.
package logging

import (
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Options select where and how much to log.
type Options struct {
	Level string
	// File receives JSON logs. Ignored when Verbose is set.
	File string
	// Verbose sends console-encoded logs to stderr instead of File.
	Verbose bool
}

// New returns a logger for opt. Logging must never corrupt the TUI, so the
// default sink is a file rather than the terminal.
func New(opt Options) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(opt.Level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}

	var cfg zap.Config
	if opt.Verbose {
		cfg = zap.NewDevelopmentConfig()
		cfg.OutputPaths = []string{"stderr"}
		cfg.ErrorOutputPaths = []string{"stderr"}
		if level > zapcore.DebugLevel {
			level = zapcore.DebugLevel
		}
	} else {
		if opt.File == "" {
			return zap.NewNop(), nil
		}
		if err := os.MkdirAll(filepath.Dir(opt.File), 0o700); err != nil {
			return nil, fmt.Errorf("mkdir: %w", err)
		}
		cfg = zap.NewProductionConfig()
		cfg.OutputPaths = []string{opt.File}
		cfg.ErrorOutputPaths = []string{opt.File}
		cfg.Sampling = nil
	}
	cfg.Level = zap.NewAtomicLevelAt(level)
	cfg.DisableStacktrace = true

	return cfg.Build()
}

// OrNop returns l, or a no-op logger when l is nil.
func OrNop(l *zap.Logger) *zap.Logger {
	if l == nil {
		return zap.NewNop()
	}
	return l
}
