package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"gopkg.in/natefinch/lumberjack.v2"
)

// FileConfig describes a rotating log file
type FileConfig struct {
	Path       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
	Compress   bool
}

// NewRotatingLogger logs to stdout and to a size-rotated file. Close the
// returned closer on shutdown.
func NewRotatingLogger(cfg FileConfig, level Level) (*DefaultLogger, io.Closer, error) {
	if cfg.Path == "" {
		return nil, nil, fmt.Errorf("logger: no log file path")
	}
	if err := os.MkdirAll(filepath.Dir(cfg.Path), 0o755); err != nil {
		return nil, nil, fmt.Errorf("logger: create log dir: %w", err)
	}
	rotator := &lumberjack.Logger{
		Filename:   cfg.Path,
		MaxSize:    cfg.MaxSizeMB,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAgeDays,
		Compress:   cfg.Compress,
	}
	return NewWriterLogger(io.MultiWriter(os.Stdout, rotator), level), rotator, nil
}
