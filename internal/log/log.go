// Package log provides structured logging with -v=N verbosity for buildsize.
// It is a thin layer over log/slog; output always goes to stderr so that
// stdout stays clean for reports and JSON.
package log

import (
	"context"
	"io"
	"log/slog"
	"os"
	"sync/atomic"
)

var (
	logger    atomic.Pointer[slog.Logger]
	level     = new(slog.LevelVar)
	verbosity atomic.Int32
)

func init() {
	level.Set(slog.LevelWarn)
	verbosity.Store(VerbosityWarn)
	logger.Store(slog.New(NewHandler(HandlerOptions{Level: level, Format: "text"})))
}

// Init initializes the global logger (call once at startup).
func Init(v int, format string) {
	InitWithOutput(v, format, os.Stderr)
}

// InitWithOutput is Init with an explicit destination, used by tests.
func InitWithOutput(v int, format string, w io.Writer) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))

	l := slog.New(NewHandler(HandlerOptions{
		Level:  level,
		Format: format,
		Output: w,
	}))
	logger.Store(l)
	slog.SetDefault(l)
}

// SetVerbosity changes verbosity at runtime.
func SetVerbosity(v int) {
	verbosity.Store(int32(v))
	level.Set(VerbosityToLevel(v))
}

// Verbosity returns the current verbosity level.
func Verbosity() int {
	return int(verbosity.Load())
}

// Logger returns the current logger instance.
func Logger() *slog.Logger {
	return logger.Load()
}

// Error logs at error level (v=0).
func Error(msg string, args ...any) {
	logger.Load().Error(msg, args...)
}

// Warn logs at warn level (v=1).
func Warn(msg string, args ...any) {
	logger.Load().Warn(msg, args...)
}

// Info logs at info level (v=2).
func Info(msg string, args ...any) {
	logger.Load().Info(msg, args...)
}

// Debug logs at debug level (v=3).
func Debug(msg string, args ...any) {
	logger.Load().Debug(msg, args...)
}

// Trace logs at trace level (v=4).
func Trace(msg string, args ...any) {
	logger.Load().Log(context.Background(), LevelTrace, msg, args...)
}

// V returns a logger that only logs if verbosity >= v.
// Usage: log.V(3).Info("asset written", "asset", id)
func V(v int) *slog.Logger {
	if int(verbosity.Load()) >= v {
		return logger.Load()
	}
	return slog.New(discardHandler{})
}

// With returns a logger with additional context.
func With(args ...any) *slog.Logger {
	return logger.Load().With(args...)
}

// Component returns a logger tagged with a component name
// ("build-size", "emitter", "esbuild", "watch").
func Component(name string) *slog.Logger {
	return logger.Load().With("component", name)
}
