package log

import (
	"context"
	"io"
	"log/slog"
	"os"
)

// HandlerOptions configures the log handler.
type HandlerOptions struct {
	Level     slog.Leveler
	Format    string // "text" or "json"
	Output    io.Writer
	AddSource bool
}

// NewHandler creates a text or JSON handler. Output defaults to stderr.
func NewHandler(opts HandlerOptions) slog.Handler {
	if opts.Output == nil {
		opts.Output = os.Stderr
	}

	handlerOpts := &slog.HandlerOptions{
		Level:       opts.Level,
		AddSource:   opts.AddSource,
		ReplaceAttr: replaceLevelNames,
	}

	if opts.Format == "json" {
		return slog.NewJSONHandler(opts.Output, handlerOpts)
	}
	return slog.NewTextHandler(opts.Output, handlerOpts)
}

func replaceLevelNames(_ []string, a slog.Attr) slog.Attr {
	if a.Key == slog.LevelKey {
		if level, ok := a.Value.Any().(slog.Level); ok {
			a.Value = slog.StringValue(LevelName(level))
		}
	}
	return a
}

type discardHandler struct{}

func (discardHandler) Enabled(context.Context, slog.Level) bool  { return false }
func (discardHandler) Handle(context.Context, slog.Record) error { return nil }
func (d discardHandler) WithAttrs([]slog.Attr) slog.Handler      { return d }
func (d discardHandler) WithGroup(string) slog.Handler           { return d }
