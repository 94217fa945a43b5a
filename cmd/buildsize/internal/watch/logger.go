package watch

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"golang.org/x/term"
)

// ChangeType represents the type of file change.
type ChangeType string

const (
	ChangeAdded    ChangeType = "+"
	ChangeModified ChangeType = "~"
	ChangeDeleted  ChangeType = "-"
)

// Summary describes one finished rebuild.
type Summary struct {
	// Total is the byte total recorded in the size report.
	Total int64
	// Assets is the number of assets emitted, the report included.
	Assets int
	// Written is the number of files actually rewritten.
	Written int
	// Report is the report identifier, empty when the report is disabled.
	Report string
}

// Logger formats watch mode output for humans or as JSON lines.
type Logger struct {
	writer  io.Writer
	isTTY   bool
	verbose bool
	noColor bool
	jsonOut bool

	// outMu serializes writes from the event loop and the debounce timer.
	outMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// Stats tracks the watch session.
type Stats struct {
	BuildCount int
	ErrorCount int
	LastTotal  int64
	StartTime  time.Time
}

// LoggerConfig configures the logger.
type LoggerConfig struct {
	Writer  io.Writer
	Verbose bool
	NoColor bool
	JSON    bool
}

// NewLogger creates a logger. Colors are only used on a terminal.
func NewLogger(cfg LoggerConfig) *Logger {
	writer := cfg.Writer
	if writer == nil {
		writer = os.Stdout
	}

	isTTY := false
	if f, ok := writer.(*os.File); ok {
		isTTY = term.IsTerminal(int(f.Fd()))
	}

	return &Logger{
		writer:  writer,
		isTTY:   isTTY,
		verbose: cfg.Verbose,
		noColor: cfg.NoColor,
		jsonOut: cfg.JSON,
		stats:   Stats{StartTime: time.Now()},
	}
}

// Ready logs that watching has started.
func (l *Logger) Ready(fileCount int, dirs []string, root string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "ready",
			"files": fileCount,
			"dirs":  dirs,
			"path":  root,
		})
		return
	}

	l.printf("buildsize: watching %d files in %s\n", fileCount, root)
	if len(dirs) > 0 {
		l.printf("buildsize: dirs: %s\n", strings.Join(dirs, ", "))
	}
	l.println("buildsize: ready")
	l.println()
}

// FileChanged logs a source change. Text output only shows it when verbose.
func (l *Logger) FileChanged(path string, change ChangeType) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":  "file_changed",
			"path":   path,
			"change": string(change),
			"time":   time.Now().Format(time.RFC3339),
		})
		return
	}

	if l.verbose {
		l.printf("[%s] %s %s\n", l.timestamp(), l.colorize(string(change), change), path)
	}
}

// Rebuilding logs that a rebuild triggered by paths is starting.
func (l *Logger) Rebuilding(paths []string) {
	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "rebuilding",
			"paths": paths,
			"time":  time.Now().Format(time.RFC3339),
		})
		return
	}

	switch len(paths) {
	case 0:
		l.printf("[%s] building...\n", l.timestamp())
	case 1:
		l.printf("[%s] rebuilding after %s...\n", l.timestamp(), paths[0])
	default:
		l.printf("[%s] rebuilding after %d changes...\n", l.timestamp(), len(paths))
	}
}

// Built logs a successful build.
func (l *Logger) Built(s Summary) {
	l.statsMu.Lock()
	l.stats.BuildCount++
	l.stats.LastTotal = s.Total
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":   "built",
			"total":   s.Total,
			"assets":  s.Assets,
			"written": s.Written,
			"report":  s.Report,
			"time":    time.Now().Format(time.RFC3339),
		})
		return
	}

	checkmark := l.colorize("✓", ChangeAdded)
	if s.Report == "" {
		l.printf("[%s] %s %d assets, %d written\n", l.timestamp(), checkmark, s.Assets, s.Written)
		return
	}
	l.printf("[%s] %s %s total (%d assets, %d written) -> %s\n", l.timestamp(), checkmark,
		humanize.IBytes(uint64(s.Total)), s.Assets, s.Written, s.Report)
}

// Error logs a failed build or watcher error.
func (l *Logger) Error(err error) {
	l.statsMu.Lock()
	l.stats.ErrorCount++
	l.statsMu.Unlock()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event": "error",
			"error": err.Error(),
			"time":  time.Now().Format(time.RFC3339),
		})
		return
	}

	xmark := l.colorize("✗", ChangeDeleted)
	l.printf("[%s] %s error: %v\n", l.timestamp(), xmark, err)
}

// Shutdown logs the session statistics.
func (l *Logger) Shutdown() {
	stats := l.Stats()

	if l.jsonOut {
		l.writeJSON(map[string]any{
			"event":    "shutdown",
			"builds":   stats.BuildCount,
			"errors":   stats.ErrorCount,
			"duration": time.Since(stats.StartTime).String(),
		})
		return
	}

	l.println()
	l.printf("buildsize: shutting down (%d builds, %d errors)\n", stats.BuildCount, stats.ErrorCount)
}

// Stats returns the current session statistics.
func (l *Logger) Stats() Stats {
	l.statsMu.Lock()
	defer l.statsMu.Unlock()
	return l.stats
}

func (l *Logger) timestamp() string {
	return time.Now().Format("15:04:05")
}

func (l *Logger) colorize(s string, change ChangeType) string {
	if l.noColor || !l.isTTY {
		return s
	}

	var color string
	switch change {
	case ChangeAdded:
		color = "\033[32m"
	case ChangeModified:
		color = "\033[33m"
	case ChangeDeleted:
		color = "\033[31m"
	default:
		return s
	}
	return color + s + "\033[0m"
}

func (l *Logger) writeJSON(v any) {
	data, err := json.Marshal(v)
	if err != nil {
		l.println(`{"event":"internal_error","error":"json marshal failed"}`)
		return
	}
	l.println(string(data))
}

// Output errors are ignored; the stream is informational.
func (l *Logger) printf(format string, args ...any) {
	l.outMu.Lock()
	defer l.outMu.Unlock()
	_, _ = fmt.Fprintf(l.writer, format, args...)
}

func (l *Logger) println(args ...any) {
	l.outMu.Lock()
	defer l.outMu.Unlock()
	_, _ = fmt.Fprintln(l.writer, args...)
}
