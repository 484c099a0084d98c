package log

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestLoggerWrite(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer l.Close()

	if _, err := l.Write([]byte("first line\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile() error = %v", err)
	}
	if !strings.Contains(string(content), "first line") {
		t.Errorf("log file = %q, want to contain 'first line'", content)
	}
}

func TestLoggerRotate(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.log")

	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	defer l.Close()

	if _, err := l.Write([]byte("before rotate\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	// simulate logrotate: rename away, then reopen
	rotated := filepath.Join(dir, "test.log.1")
	if err := os.Rename(path, rotated); err != nil {
		t.Fatalf("Rename() error = %v", err)
	}
	if err := l.Rotate(); err != nil {
		t.Fatalf("Rotate() error = %v", err)
	}

	if _, err := l.Write([]byte("after rotate\n")); err != nil {
		t.Fatalf("Write() error = %v", err)
	}

	oldContent, err := os.ReadFile(rotated)
	if err != nil {
		t.Fatalf("ReadFile(rotated) error = %v", err)
	}
	newContent, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("ReadFile(new) error = %v", err)
	}

	if !strings.Contains(string(oldContent), "before rotate") || strings.Contains(string(oldContent), "after rotate") {
		t.Errorf("rotated file = %q, want only the pre-rotate line", oldContent)
	}
	if !strings.Contains(string(newContent), "after rotate") || strings.Contains(string(newContent), "before rotate") {
		t.Errorf("new file = %q, want only the post-rotate line", newContent)
	}
}

func TestLoggerWriteAfterClose(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.log")

	l, err := NewLogger(path)
	if err != nil {
		t.Fatalf("NewLogger() error = %v", err)
	}
	l.Close()

	// dropped, not an error
	if _, err := l.Write([]byte("late\n")); err != nil {
		t.Errorf("Write() after Close error = %v", err)
	}
}

func TestLoggerNilSafe(t *testing.T) {
	var l *Logger
	if err := l.Rotate(); err != nil {
		t.Errorf("nil Rotate() error = %v", err)
	}
	l.Close()
}
