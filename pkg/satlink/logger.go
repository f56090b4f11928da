package satlink

import (
	"io"

	"avaneesh/satstate-go/pkg/internal/logger"
)

// Logger is the leveled printf-style logger every component accepts
type Logger = logger.Logger

// LogLevel represents logging level
type LogLevel int

const (
	// LevelDebug shows all log messages (most verbose)
	LevelDebug LogLevel = iota
	// LevelInfo shows info, warn, and error messages (default)
	LevelInfo
	// LevelWarn shows warn and error messages
	LevelWarn
	// LevelError shows only error messages
	LevelError
)

// SetLogLevel replaces the global default logger with a stdout logger at level
func SetLogLevel(level LogLevel) {
	logger.SetDefault(logger.NewDefaultLogger(logger.Level(level)))
}

// DefaultLogger returns the global default logger
func DefaultLogger() Logger {
	return logger.GetDefault()
}

// NewWriterLogger returns a logger writing to w
func NewWriterLogger(w io.Writer, level LogLevel) Logger {
	return logger.NewWriterLogger(w, logger.Level(level))
}
