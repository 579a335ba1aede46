package utils

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
	"time"
)

const timestampLayout = "2006-01-02 15:04:05"

// Logger writes timestamped lines to stdout and, when configured, a log file.
type Logger struct {
	mu        sync.Mutex
	writeFile *os.File
	out       io.Writer
}

// NewLogger opens logFile for appending and mirrors every line to stdout.
// An empty path logs to stdout only. If the file cannot be opened the
// failure is reported on stderr and the logger falls back to stdout.
func NewLogger(logFile string) *Logger {
	logger := &Logger{out: os.Stdout}
	if logFile == "" {
		return logger
	}

	_ = os.MkdirAll(filepath.Dir(logFile), 0o755)

	f, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		fmt.Fprintf(os.Stderr, "%s: Error opening log file (%s): %v\n", time.Now().Format(timestampLayout), logFile, err)
		return logger
	}
	logger.writeFile = f
	logger.out = io.MultiWriter(os.Stdout, f)
	return logger
}

// NewWriterLogger logs to an arbitrary writer. Used by tests to capture output.
func NewWriterLogger(w io.Writer) *Logger {
	return &Logger{out: w}
}

// Write appends a timestamped message to the log.
func (l *Logger) Write(message string) {
	if l == nil {
		return
	}
	line := fmt.Sprintf("%s: %s\n", time.Now().Format(timestampLayout), message)
	l.mu.Lock()
	defer l.mu.Unlock()
	_, _ = io.WriteString(l.out, line)
}

// Writer exposes the logger as an io.Writer so library loggers (gin) share it.
func (l *Logger) Writer() io.Writer {
	if l == nil {
		return os.Stdout
	}
	return l.out
}

// Close closes the underlying log file, if any.
func (l *Logger) Close() {
	if l == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.writeFile != nil {
		l.writeFile.Close()
		l.writeFile = nil
		l.out = os.Stdout
	}
}
