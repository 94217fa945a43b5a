package incremental

import (
	"maps"
	"slices"
	"time"
)

// IndexVersion is the current version of the index format.
const IndexVersion = 1

// Index is a snapshot of the files under the emit root.
type Index struct {
	Version   int               `json:"version"`
	UpdatedAt time.Time         `json:"updated_at"`
	Entries   map[string]*Entry `json:"entries"`
}

// NewIndex creates an empty index.
func NewIndex() *Index {
	return &Index{
		Version:   IndexVersion,
		UpdatedAt: time.Now(),
		Entries:   make(map[string]*Entry),
	}
}

// Add adds or updates an entry.
func (idx *Index) Add(e *Entry) {
	if idx == nil || e == nil {
		return
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}
	idx.Entries[e.Path] = e
}

// Get retrieves an entry by path.
func (idx *Index) Get(path string) (*Entry, bool) {
	if idx == nil || idx.Entries == nil {
		return nil, false
	}
	e, ok := idx.Entries[path]
	return e, ok
}

// Len returns the number of entries.
func (idx *Index) Len() int {
	if idx == nil {
		return 0
	}
	return len(idx.Entries)
}

// Paths returns the tracked paths in sorted order.
func (idx *Index) Paths() []string {
	if idx == nil {
		return nil
	}
	return slices.Sorted(maps.Keys(idx.Entries))
}

// TotalSize sums the sizes of all entries.
func (idx *Index) TotalSize() int64 {
	if idx == nil {
		return 0
	}
	var total int64
	for _, e := range idx.Entries {
		total += e.Size
	}
	return total
}

// Diff compares this index against another, returning changes.
// The receiver (idx) is the "old" state, other is the "new" state.
func (idx *Index) Diff(other *Index) *ChangeSet {
	cs := NewChangeSet()

	oldEntries := map[string]*Entry{}
	newEntries := map[string]*Entry{}
	if idx != nil && idx.Entries != nil {
		oldEntries = idx.Entries
	}
	if other != nil && other.Entries != nil {
		newEntries = other.Entries
	}

	for path, newEntry := range newEntries {
		oldEntry, exists := oldEntries[path]
		if !exists {
			cs.Added = append(cs.Added, path)
			continue
		}
		if oldEntry.Size != newEntry.Size || oldEntry.Hash != newEntry.Hash {
			cs.Modified = append(cs.Modified, path)
		}
	}

	for path := range oldEntries {
		if _, exists := newEntries[path]; !exists {
			cs.Deleted = append(cs.Deleted, path)
		}
	}

	cs.sort()
	return cs
}
