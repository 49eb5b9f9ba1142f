// Package runlog is the durable audit log of a provisioning run.
//
// The log is an append-only text file, one line per event:
//
//	[2026-01-02 15:04:05] [INFO] step 1/4: stop service
//
// It is opened with O_APPEND and never truncated or rewritten, so
// re-running against the same file preserves the full history of prior
// runs and a crash mid-run leaves every completed step's lines on disk.
package runlog

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"
)

// Line levels. The set is fixed by the log format.
const (
	LevelInfo  = "INFO"
	LevelWarn  = "WARN"
	LevelError = "ERROR"
)

const timeLayout = "2006-01-02 15:04:05"

// Log appends timestamped lines to a file and optionally mirrors them to
// a console writer. File append errors are returned to the caller; echo
// errors are swallowed — the console is a side channel, the file is the
// record.
type Log struct {
	f    *os.File
	echo io.Writer
	now  func() time.Time
}

// Option configures a Log.
type Option func(*Log)

// WithEcho mirrors every appended line to w (typically stderr).
func WithEcho(w io.Writer) Option {
	return func(l *Log) { l.echo = w }
}

// WithNow overrides the timestamp source.
func WithNow(now func() time.Time) Option {
	return func(l *Log) { l.now = now }
}

// Open creates or opens the log file for appending, creating parent
// directories as needed.
func Open(path string, opts ...Option) (*Log, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open log file: %w", err)
	}

	l := &Log{f: f, now: time.Now}
	for _, opt := range opts {
		opt(l)
	}
	return l, nil
}

// Path returns the underlying file path.
func (l *Log) Path() string { return l.f.Name() }

// Close closes the underlying file.
func (l *Log) Close() error { return l.f.Close() }

func (l *Log) Info(msg string) error  { return l.append(LevelInfo, msg) }
func (l *Log) Warn(msg string) error  { return l.append(LevelWarn, msg) }
func (l *Log) Error(msg string) error { return l.append(LevelError, msg) }

func (l *Log) append(level, msg string) error {
	line := fmt.Sprintf("[%s] [%s] %s\n", l.now().Format(timeLayout), level, msg)
	if _, err := l.f.WriteString(line); err != nil {
		return fmt.Errorf("append log line: %w", err)
	}
	if l.echo != nil {
		_, _ = io.WriteString(l.echo, line)
	}
	return nil
}
