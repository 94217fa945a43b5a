package incremental

import (
	"context"
	"fmt"
	"path/filepath"
)

// Tracker ties the emit index store to a scanner over the output directory.
type Tracker struct {
	store   Store
	scanner *Scanner
	root    string
}

// NewTracker creates a tracker whose state lives under root and whose
// scanner covers outDir (relative to root).
func NewTracker(root, outDir string, ignore []string) (*Tracker, error) {
	scanner, err := NewScanner(ScanConfig{
		Root:   root,
		Dir:    outDir,
		Ignore: ignore,
	})
	if err != nil {
		return nil, err
	}
	return &Tracker{
		store:   NewJSONStore(root),
		scanner: scanner,
		root:    root,
	}, nil
}

// Previous returns the index saved by the last Record or Refresh.
func (t *Tracker) Previous() (*Index, error) {
	return t.store.Load()
}

// Record saves idx as the latest emit index.
func (t *Tracker) Record(idx *Index) error {
	if err := t.store.Save(idx); err != nil {
		return fmt.Errorf("failed to save state: %w", err)
	}
	return nil
}

// Status reports how the output directory differs from the last recorded
// emit, hashing only files whose size or mtime moved.
func (t *Tracker) Status(ctx context.Context) (*ChangeSet, error) {
	oldIdx, err := t.store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load state: %w", err)
	}

	fastIdx, err := t.scanner.ScanFast(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan output: %w", err)
	}

	return t.computeChangesWithLazyHash(oldIdx, fastIdx), nil
}

func (t *Tracker) computeChangesWithLazyHash(oldIdx, fastIdx *Index) *ChangeSet {
	cs := NewChangeSet()

	for _, path := range fastIdx.Paths() {
		newEntry := fastIdx.Entries[path]
		oldEntry, exists := oldIdx.Get(path)
		if !exists {
			cs.Added = append(cs.Added, path)
			continue
		}

		if oldEntry.ModTime == newEntry.ModTime && oldEntry.Size == newEntry.Size {
			continue
		}
		if oldEntry.Size != newEntry.Size {
			cs.Modified = append(cs.Modified, path)
			continue
		}

		hash, err := HashFile(filepath.Join(t.root, filepath.FromSlash(path)))
		if err != nil || oldEntry.Hash != hash {
			cs.Modified = append(cs.Modified, path)
		}
	}

	for _, path := range oldIdx.Paths() {
		if _, exists := fastIdx.Get(path); !exists {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs
}

// Refresh rescans the output directory and saves the result.
func (t *Tracker) Refresh(ctx context.Context) error {
	idx, err := t.scanner.Scan(ctx)
	if err != nil {
		return fmt.Errorf("failed to scan output: %w", err)
	}
	return t.Record(idx)
}

// HasState returns true if a previous state exists.
func (t *Tracker) HasState() bool {
	return t.store.Exists()
}

// TrackedFileCount returns the number of files in the stored index.
func (t *Tracker) TrackedFileCount() int {
	idx, err := t.store.Load()
	if err != nil {
		return 0
	}
	return idx.Len()
}
