// Package logger owns the process-wide slog logger. Until Init is called,
// records go to stderr.
package logger

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

var (
	root     *slog.Logger
	levelVar = newLevelVar()
	logFile  *os.File
	mu       sync.Mutex
	logPath  string
)

func newLevelVar() *slog.LevelVar {
	v := new(slog.LevelVar)
	v.Set(slog.LevelWarn)
	return v
}

// SetDebug enables or disables debug level logging.
func SetDebug(enabled bool) {
	if enabled {
		levelVar.Set(slog.LevelDebug)
	} else {
		levelVar.Set(slog.LevelWarn)
	}
}

// ParseLevel resolves a level name: debug, info, warn or error. An empty
// name means info.
func ParseLevel(name string) (slog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "debug":
		return slog.LevelDebug, nil
	case "info", "":
		return slog.LevelInfo, nil
	case "warn", "warning":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	}
	return slog.LevelInfo, fmt.Errorf("logger: unknown level %q", name)
}

// SetLevel sets the minimum level from its name.
func SetLevel(name string) error {
	l, err := ParseLevel(name)
	if err != nil {
		return err
	}
	levelVar.Set(l)
	return nil
}

// Level returns the current minimum level.
func Level() slog.Level {
	return levelVar.Level()
}

// Init sends all further records to the file at path, appending.
func Init(path string) error {
	mu.Lock()
	defer mu.Unlock()

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("logger: create log directory: %w", err)
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return fmt.Errorf("logger: open log file %s: %w", path, err)
	}
	if logFile != nil {
		logFile.Close()
	}
	logFile = f
	logPath = path
	root = newLogger(f)
	return nil
}

// InitWriter sends all further records to w. Tests use it to capture output.
func InitWriter(w io.Writer) {
	mu.Lock()
	defer mu.Unlock()
	root = newLogger(w)
}

// Path returns the log file in use, or "" when logging to stderr.
func Path() string {
	mu.Lock()
	defer mu.Unlock()
	return logPath
}

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: levelVar}))
}

// Get returns the root logger.
func Get() *slog.Logger {
	mu.Lock()
	defer mu.Unlock()
	if root == nil {
		root = newLogger(os.Stderr)
	}
	return root
}

// WithComponent returns a logger tagged with the component name.
func WithComponent(component string) *slog.Logger {
	return Get().With("component", component)
}

// WithSession returns a logger tagged with the session root directory.
func WithSession(dir string) *slog.Logger {
	return Get().With("session", dir)
}

// Close closes the log file, if any. Later records go to stderr.
func Close() {
	mu.Lock()
	defer mu.Unlock()
	if logFile != nil {
		logFile.Close()
		logFile = nil
	}
	logPath = ""
	root = nil
}

// Reset restores the initial state. Intended for tests.
func Reset() {
	Close()
	mu.Lock()
	defer mu.Unlock()
	levelVar = newLevelVar()
}
