package watch

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"
)

func noopBuild(context.Context) (Summary, error) { return Summary{}, nil }

func TestIsWatchLimitError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{name: "nil error", err: nil, expected: false},
		{name: "not exist", err: &os.PathError{Op: "watch", Path: "/foo", Err: os.ErrNotExist}, expected: false},
		{name: "no space", err: errors.New("inotify_add_watch: no space left on device"), expected: true},
		{name: "too many files", err: errors.New("too many open files"), expected: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isWatchLimitError(tt.err); got != tt.expected {
				t.Errorf("isWatchLimitError(%v) = %v, want %v", tt.err, got, tt.expected)
			}
		})
	}
}

func TestNewWatcher(t *testing.T) {
	w, err := New(Config{Root: t.TempDir(), Build: noopBuild})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	for _, ext := range []string{".ts", ".tsx", ".js", ".css"} {
		if !w.extensions[ext] {
			t.Errorf("expected extension %s", ext)
		}
	}
	for _, dir := range []string{".", "node_modules", "dist"} {
		if !w.ignoreDirs[dir] {
			t.Errorf("expected ignore pattern %s", dir)
		}
	}
}

func TestNewWatcherWithKindFilter(t *testing.T) {
	w, err := New(Config{Root: t.TempDir(), Kinds: []string{"ts"}, Build: noopBuild})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	defer w.Close()

	if !w.extensions[".ts"] {
		t.Error("expected .ts extension")
	}
	if w.extensions[".css"] {
		t.Error("should not have .css extension with filter")
	}
}

func TestNewWatcherRequiresBuild(t *testing.T) {
	if _, err := New(Config{Root: t.TempDir()}); err == nil {
		t.Error("New() without a build function should fail")
	}
}

func TestSkipDir(t *testing.T) {
	root := t.TempDir()
	w, err := New(Config{Root: root, Exclude: []string{"public/assets"}, Build: noopBuild})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	tests := []struct {
		path   string
		isRoot bool
		want   bool
	}{
		{path: filepath.Join(root, "src"), want: false},
		{path: filepath.Join(root, "node_modules"), want: true},
		{path: filepath.Join(root, ".git"), want: true},
		{path: filepath.Join(root, "public", "assets"), want: true},
		{path: filepath.Join(root, "public"), want: false},
		{path: filepath.Join(root, "src", "outline"), want: false},
		{path: filepath.Join(root, "src", "builders"), want: false},
		{path: filepath.Join(root, "src", "dist"), want: true},
		{path: root, isRoot: true, want: false},
	}
	for _, tt := range tests {
		if got := w.skipDir(tt.path, tt.isRoot); got != tt.want {
			t.Errorf("skipDir(%s) = %v, want %v", tt.path, got, tt.want)
		}
	}
}

func TestWatcherClose(t *testing.T) {
	w, err := New(Config{Root: t.TempDir(), Build: noopBuild})
	if err != nil {
		t.Fatalf("New() error = %v", err)
		return
	}
	if err := w.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	nilWatcher := &Watcher{}
	if err := nilWatcher.Close(); err != nil {
		t.Errorf("Close() on nil fsWatcher error = %v", err)
	}
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatal("condition not met before deadline")
}

func TestRunRebuildsOnChange(t *testing.T) {
	root := t.TempDir()
	src := filepath.Join(root, "src")
	if err := os.MkdirAll(src, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(src, "index.ts"), []byte("export {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}

	var builds atomic.Int32
	var out bytes.Buffer
	w, err := New(Config{
		Root:     root,
		Debounce: 20 * time.Millisecond,
		Writer:   &out,
		JSON:     true,
		Build: func(context.Context) (Summary, error) {
			n := builds.Add(1)
			return Summary{Total: int64(n), Assets: 1, Written: 1}, nil
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	waitFor(t, func() bool { return builds.Load() >= 1 })

	if err := os.WriteFile(filepath.Join(src, "index.ts"), []byte("export const a = 1\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	waitFor(t, func() bool { return builds.Load() >= 2 })

	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if stats := w.Logger().Stats(); stats.BuildCount < 2 {
		t.Errorf("BuildCount = %d, want >= 2", stats.BuildCount)
	}
}

func TestRunReportsBuildErrors(t *testing.T) {
	var out bytes.Buffer
	built := make(chan struct{}, 1)
	w, err := New(Config{
		Root:   t.TempDir(),
		Writer: &out,
		Build: func(context.Context) (Summary, error) {
			defer func() { built <- struct{}{} }()
			return Summary{}, errors.New("esbuild failed")
		},
	})
	if err != nil {
		t.Fatal(err)
	}
	defer w.Close()

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- w.Run(ctx) }()

	<-built
	cancel()
	if err := <-done; err != nil {
		t.Errorf("Run() error = %v", err)
	}
	if stats := w.Logger().Stats(); stats.ErrorCount != 1 || stats.BuildCount != 0 {
		t.Errorf("Stats() = %+v, want one error and no builds", stats)
	}
}
