package pipeline

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"sync"

	"github.com/albertocavalcante/buildsize/internal/incremental"
	"github.com/albertocavalcante/buildsize/internal/log"
	"golang.org/x/sync/errgroup"
)

// EmitStats summarizes one Emit call.
type EmitStats struct {
	Written int
	Skipped int
	Bytes   int64

	// Index describes every asset that is now on disk.
	Index *incremental.Index
}

// Emitter writes assets below a root directory.
type Emitter struct {
	root        string
	previous    *incremental.Index
	concurrency int
}

// EmitterOption configures an Emitter.
type EmitterOption func(*Emitter)

// WithPreviousIndex lets the emitter skip assets whose content hash matches
// the previous emit and whose file is still present.
func WithPreviousIndex(idx *incremental.Index) EmitterOption {
	return func(e *Emitter) {
		e.previous = idx
	}
}

// WithConcurrency bounds the number of files written in parallel.
func WithConcurrency(n int) EmitterOption {
	return func(e *Emitter) {
		if n > 0 {
			e.concurrency = n
		}
	}
}

// NewEmitter creates an emitter rooted at root.
func NewEmitter(root string, opts ...EmitterOption) *Emitter {
	e := &Emitter{
		root:        root,
		concurrency: runtime.GOMAXPROCS(0),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Root returns the directory assets are written under.
func (e *Emitter) Root() string { return e.root }

// Resolve maps an asset identifier to a path under the emitter root.
// Identifiers that would escape the root are rejected.
func (e *Emitter) Resolve(id string) (string, error) {
	p := filepath.FromSlash(id)
	if filepath.IsAbs(p) {
		rel, err := filepath.Rel(e.root, p)
		if err != nil {
			return "", fmt.Errorf("asset %q: %w", id, err)
		}
		p = rel
	}
	p = filepath.Clean(p)
	if !filepath.IsLocal(p) {
		return "", fmt.Errorf("asset %q resolves outside %s", id, e.root)
	}
	return filepath.Join(e.root, p), nil
}

type pendingWrite struct {
	id   string
	rel  string
	path string
	data []byte
	hash string
}

// Emit writes every asset in the set. Content is read and all identifiers are
// resolved before the first write, so a bad asset aborts the emit untouched.
func (e *Emitter) Emit(ctx context.Context, assets *AssetSet) (EmitStats, error) {
	stats := EmitStats{Index: incremental.NewIndex()}

	var writes []pendingWrite
	var resolveErr error
	assets.Range(func(id string, a Asset) bool {
		path, err := e.Resolve(id)
		if err != nil {
			resolveErr = err
			return false
		}
		data, err := a.Source()
		if err != nil {
			resolveErr = fmt.Errorf("failed to read asset %s: %w", id, err)
			return false
		}
		rel, _ := filepath.Rel(e.root, path)
		writes = append(writes, pendingWrite{
			id:   id,
			rel:  filepath.ToSlash(rel),
			path: path,
			data: data,
			hash: incremental.HashBytes(data),
		})
		return true
	})
	if resolveErr != nil {
		return EmitStats{}, resolveErr
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.concurrency)

	for _, w := range writes {
		if e.unchanged(w) {
			stats.Skipped++
			stats.Index.Add(&incremental.Entry{Path: w.rel, Hash: w.hash, Size: int64(len(w.data)), ModTime: modTime(w.path)})
			log.V(3).Debug("asset unchanged", "asset", w.id)
			continue
		}
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			if err := writeFileAtomic(w.path, w.data); err != nil {
				return fmt.Errorf("failed to write asset %s: %w", w.id, err)
			}
			mu.Lock()
			stats.Written++
			stats.Bytes += int64(len(w.data))
			stats.Index.Add(&incremental.Entry{Path: w.rel, Hash: w.hash, Size: int64(len(w.data)), ModTime: modTime(w.path)})
			mu.Unlock()
			log.V(3).Debug("asset written", "asset", w.id, "bytes", len(w.data))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return stats, err
	}
	return stats, nil
}

func (e *Emitter) unchanged(w pendingWrite) bool {
	prev, ok := e.previous.Get(w.rel)
	if !ok || prev.Hash != w.hash || prev.Size != int64(len(w.data)) {
		return false
	}
	info, err := os.Stat(w.path)
	return err == nil && info.Size() == prev.Size
}

func modTime(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.ModTime().UnixNano()
}

// writeFileAtomic writes to a temp file next to path and renames it into place.
func writeFileAtomic(path string, data []byte) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(filepath.Dir(path), "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Chmod(tmpPath, 0o644); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	if err := os.Rename(tmpPath, path); err != nil {
		_ = os.Remove(tmpPath)
		return err
	}
	return nil
}
