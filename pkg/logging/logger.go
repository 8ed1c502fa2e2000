package logging

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"
)

var (
	mu      sync.RWMutex
	level   = new(slog.LevelVar)
	current = newLogger(os.Stderr)
)

func newLogger(w io.Writer) *slog.Logger {
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

// SetDebug toggles debug output.
func SetDebug(enabled bool) {
	if enabled {
		level.Set(slog.LevelDebug)
		return
	}
	level.Set(slog.LevelInfo)
}

// DebugEnabled reports whether Debugf prints anything.
func DebugEnabled() bool {
	return level.Level() <= slog.LevelDebug
}

// SetOutput redirects log output. A nil writer restores stderr.
func SetOutput(w io.Writer) {
	if w == nil {
		w = os.Stderr
	}
	mu.Lock()
	defer mu.Unlock()
	current = newLogger(w)
}

// Logger exposes the underlying structured logger.
func Logger() *slog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return current
}

// Debugf prints messages only when debug is enabled
func Debugf(format string, args ...interface{}) {
	Logger().Debug(fmt.Sprintf(format, args...))
}

// Infof prints messages always
func Infof(format string, args ...interface{}) {
	Logger().Info(fmt.Sprintf(format, args...))
}

// Warnf is used for non-fatal anomalies such as unknown labels.
func Warnf(format string, args ...interface{}) {
	Logger().Warn(fmt.Sprintf(format, args...))
}
