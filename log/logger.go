// Package log wires the process-wide slog default logger to stderr and an
// optional log file. The file survives external rotation: on SIGHUP the main
// program calls Rotate to reopen it.
package log

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

// Logger is the rotatable log file sink behind the slog handler.
type Logger struct {
	mu   sync.Mutex
	file *os.File
}

// NewLogger opens the log file in append mode.
func NewLogger(filename string) (*Logger, error) {
	file, err := os.OpenFile(filename, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		return nil, fmt.Errorf("cannot open log file: %w", err)
	}
	return &Logger{file: file}, nil
}

// Write implements io.Writer for the slog handler.
func (l *Logger) Write(p []byte) (int, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return len(p), nil
	}
	return l.file.Write(p)
}

// Rotate closes and reopens the log file at its original path. Called after
// an external tool renamed the file away.
func (l *Logger) Rotate() error {
	if l == nil {
		return nil
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file == nil {
		return nil
	}

	path := l.file.Name()
	_ = l.file.Close()

	file, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0666)
	if err != nil {
		l.file = nil
		return fmt.Errorf("cannot reopen log file: %w", err)
	}
	l.file = file

	return nil
}

// Close closes the log file. Writes after Close are dropped.
func (l *Logger) Close() {
	if l == nil {
		return
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	if l.file != nil {
		_ = l.file.Close()
		l.file = nil
	}
}

// Setup installs the process-wide default slog logger. Output goes to stderr
// and, when filename is not empty, to the returned rotatable file sink.
func Setup(filename string, debug bool) (*Logger, error) {
	level := slog.LevelInfo
	if debug {
		level = slog.LevelDebug
	}

	var logger *Logger
	var w io.Writer = os.Stderr
	if filename != "" {
		var err error
		logger, err = NewLogger(filename)
		if err != nil {
			return nil, err
		}
		w = io.MultiWriter(os.Stderr, logger)
	}

	slog.SetDefault(slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level})))
	return logger, nil
}
