package logger

import (
	"io"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

// Level orders log severities
type Level int

const (
	LevelDebug Level = iota
	LevelInfo
	LevelWarning
	LevelError
)

// ParseLevel maps a config string to a Level, defaulting to info
func ParseLevel(s string) Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug
	case "warn", "warning":
		return LevelWarning
	case "error":
		return LevelError
	default:
		return LevelInfo
	}
}

// Logger provides leveled logging (debug/info/warning/error) to
// stdout/stderr and optionally a log file.
type Logger struct {
	debugLog   *log.Logger
	infoLog    *log.Logger
	warningLog *log.Logger
	errorLog   *log.Logger
	level      Level
	closer     io.Closer
	mu         sync.Mutex
}

// New creates a Logger writing info and below to out and errors to errOut
func New(out, errOut io.Writer, level Level) *Logger {
	const flags = log.Ldate | log.Ltime | log.Lmicroseconds
	return &Logger{
		debugLog:   log.New(out, "DEBUG   ", flags),
		infoLog:    log.New(out, "INFO    ", flags),
		warningLog: log.New(out, "WARNING ", flags),
		errorLog:   log.New(errOut, "ERROR   ", flags),
		level:      level,
	}
}

// NewStd creates a Logger on stdout/stderr, additionally appending to
// logFile when it is not empty.
func NewStd(level Level, logFile string) (*Logger, error) {
	if logFile == "" {
		return New(os.Stdout, os.Stderr, level), nil
	}

	if err := os.MkdirAll(filepath.Dir(logFile), 0755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, err
	}
	l := New(io.MultiWriter(os.Stdout, f), io.MultiWriter(os.Stderr, f), level)
	l.closer = f
	return l, nil
}

// Discard returns a Logger that drops everything
func Discard() *Logger {
	return New(io.Discard, io.Discard, LevelError+1)
}

// Debug writes a formatted debug-level log entry.
func (l *Logger) Debug(format string, v ...interface{}) {
	l.write(LevelDebug, l.debugLog, format, v...)
}

// Info writes a formatted info-level log entry.
func (l *Logger) Info(format string, v ...interface{}) {
	l.write(LevelInfo, l.infoLog, format, v...)
}

// Warning writes a formatted warning-level log entry.
func (l *Logger) Warning(format string, v ...interface{}) {
	l.write(LevelWarning, l.warningLog, format, v...)
}

// Error writes a formatted error-level log entry.
func (l *Logger) Error(format string, v ...interface{}) {
	l.write(LevelError, l.errorLog, format, v...)
}

func (l *Logger) write(level Level, dst *log.Logger, format string, v ...interface{}) {
	if l == nil || level < l.level {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	dst.Printf(format, v...)
}

// Close releases the log file, if any
func (l *Logger) Close() error {
	if l == nil || l.closer == nil {
		return nil
	}
	return l.closer.Close()
}
