package logging

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"
)

const filePrefix = "rxpad-"

// Options configures the process logger
type Options struct {
	Dir            string // empty logs to the console only
	RetentionWeeks int
	MaxFileSize    int64 // bytes, 0 disables size rotation
	ConsoleLevel   slog.Level
}

// RotatingLogger writes to one file per ISO week, with numbered overflow files
// once MaxFileSize is reached. Files older than the retention period are removed.
type RotatingLogger struct {
	dir         string
	retention   time.Duration
	maxFileSize int64

	mu      sync.Mutex
	file    *os.File
	week    string
	part    int
	size    int64
	stop    chan struct{}
	stopped chan struct{}
	once    sync.Once
}

// NewRotatingLogger opens the file of the current week in dir
func NewRotatingLogger(dir string, retentionWeeks int, maxFileSize int64) (*RotatingLogger, error) {
	if err := os.MkdirAll(dir, 0750); err != nil {
		return nil, fmt.Errorf("failed to create log directory: %w", err)
	}
	if retentionWeeks <= 0 {
		retentionWeeks = 4
	}

	rl := &RotatingLogger{
		dir:         dir,
		retention:   time.Duration(retentionWeeks) * 7 * 24 * time.Hour,
		maxFileSize: maxFileSize,
		stop:        make(chan struct{}),
		stopped:     make(chan struct{}),
	}

	rl.mu.Lock()
	err := rl.open(weekKey(time.Now()), 0)
	rl.mu.Unlock()
	if err != nil {
		return nil, err
	}

	go rl.cleanupLoop(24 * time.Hour)
	return rl, nil
}

// weekKey returns the ISO week in YYYY-Www format
func weekKey(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func fileName(week string, part int) string {
	if part == 0 {
		return fmt.Sprintf("%s%s.log", filePrefix, week)
	}
	return fmt.Sprintf("%s%s_%02d.log", filePrefix, week, part)
}

// open switches to the given week and part, caller must hold mu
func (rl *RotatingLogger) open(week string, part int) error {
	if rl.file != nil {
		if err := rl.file.Close(); err != nil {
			fmt.Fprintf(os.Stderr, "failed to close log file: %v\n", err)
		}
		rl.file = nil
	}

	// Resume the last part of the week after a restart
	for rl.maxFileSize > 0 {
		info, err := os.Stat(filepath.Join(rl.dir, fileName(week, part)))
		if err != nil || info.Size() < rl.maxFileSize {
			break
		}
		part++
	}

	path := filepath.Join(rl.dir, fileName(week, part))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0640)
	if err != nil {
		return fmt.Errorf("failed to open log file %s: %w", path, err)
	}

	var size int64
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	rl.file = f
	rl.week = week
	rl.part = part
	rl.size = size
	return nil
}

// Write implements io.Writer
func (rl *RotatingLogger) Write(p []byte) (int, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	week := weekKey(time.Now())
	switch {
	case week != rl.week:
		if err := rl.open(week, 0); err != nil {
			return 0, err
		}
	case rl.maxFileSize > 0 && rl.size > 0 && rl.size+int64(len(p)) > rl.maxFileSize:
		if err := rl.open(week, rl.part+1); err != nil {
			return 0, err
		}
	}

	if rl.file == nil {
		return 0, fmt.Errorf("log file is closed")
	}

	n, err := rl.file.Write(p)
	rl.size += int64(n)
	return n, err
}

// CurrentFile returns the path of the file being written
func (rl *RotatingLogger) CurrentFile() string {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return filepath.Join(rl.dir, fileName(rl.week, rl.part))
}

// cleanup removes log files last modified before the retention period
func (rl *RotatingLogger) cleanup() (int, error) {
	entries, err := os.ReadDir(rl.dir)
	if err != nil {
		return 0, fmt.Errorf("failed to read log directory: %w", err)
	}

	cutoff := time.Now().Add(-rl.retention)
	deleted := 0
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, filePrefix) || !strings.HasSuffix(name, ".log") {
			continue
		}
		info, err := entry.Info()
		if err != nil || !info.ModTime().Before(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(rl.dir, name)); err == nil {
			deleted++
		}
	}
	return deleted, nil
}

func (rl *RotatingLogger) cleanupLoop(every time.Duration) {
	defer close(rl.stopped)

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-rl.stop:
			return
		case <-ticker.C:
			// Reported on stderr, logging here would write into the file being cleaned
			if n, err := rl.cleanup(); err != nil {
				fmt.Fprintf(os.Stderr, "log cleanup failed: %v\n", err)
			} else if n > 0 {
				fmt.Fprintf(os.Stderr, "cleaned up %d old log files\n", n)
			}
		}
	}
}

// Close stops the cleanup goroutine and closes the current file
func (rl *RotatingLogger) Close() error {
	var err error
	rl.once.Do(func() {
		close(rl.stop)
		<-rl.stopped

		rl.mu.Lock()
		defer rl.mu.Unlock()
		if rl.file != nil {
			err = rl.file.Close()
			rl.file = nil
		}
	})
	return err
}

// setupLogger builds a console text handler and, when a directory is configured,
// a JSON file handler at debug level. Any file error falls back to the console alone.
func setupLogger(opts Options) (*slog.Logger, *RotatingLogger) {
	console := slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: opts.ConsoleLevel})
	if opts.Dir == "" {
		return slog.New(console), nil
	}

	rotator, err := NewRotatingLogger(opts.Dir, opts.RetentionWeeks, opts.MaxFileSize)
	if err != nil {
		logger := slog.New(console)
		logger.Error("Failed to initialize log file, logging to console only", "error", err)
		return logger, nil
	}

	file := slog.NewJSONHandler(rotator, &slog.HandlerOptions{Level: GetFileLogLevel()})
	return slog.New(&multiHandler{handlers: []slog.Handler{console, file}}), rotator
}

// multiHandler fans records out to every handler enabled for their level
type multiHandler struct {
	handlers []slog.Handler
}

func (m *multiHandler) Enabled(ctx context.Context, level slog.Level) bool {
	for _, h := range m.handlers {
		if h.Enabled(ctx, level) {
			return true
		}
	}
	return false
}

func (m *multiHandler) Handle(ctx context.Context, r slog.Record) error {
	var firstErr error
	for _, h := range m.handlers {
		if !h.Enabled(ctx, r.Level) {
			continue
		}
		if err := h.Handle(ctx, r.Clone()); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

func (m *multiHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithAttrs(attrs)
	}
	return &multiHandler{handlers: handlers}
}

func (m *multiHandler) WithGroup(name string) slog.Handler {
	handlers := make([]slog.Handler, len(m.handlers))
	for i, h := range m.handlers {
		handlers[i] = h.WithGroup(name)
	}
	return &multiHandler{handlers: handlers}
}
