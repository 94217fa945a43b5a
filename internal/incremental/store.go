package incremental

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const (
	// StateDir is the directory name for buildsize state files.
	StateDir = ".buildsize"

	// stateFile is the name of the emit index file.
	stateFile = "state.json"
)

// Store defines the interface for index persistence.
type Store interface {
	Load() (*Index, error)
	Save(idx *Index) error
	Exists() bool
}

// JSONStore implements Store using a JSON file.
type JSONStore struct {
	dir  string
	path string
}

// NewJSONStore creates a store that keeps .buildsize/state.json under root.
func NewJSONStore(root string) *JSONStore {
	dir := filepath.Join(root, StateDir)
	return &JSONStore{
		dir:  dir,
		path: filepath.Join(dir, stateFile),
	}
}

// Path returns the location of the state file.
func (s *JSONStore) Path() string { return s.path }

// Load reads the index from disk. A missing state file yields an empty index.
func (s *JSONStore) Load() (*Index, error) {
	data, err := os.ReadFile(s.path)
	if os.IsNotExist(err) {
		return NewIndex(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read state file: %w", err)
	}

	var idx Index
	if err := json.Unmarshal(data, &idx); err != nil {
		return nil, fmt.Errorf("failed to parse state file: %w", err)
	}

	if idx.Version > IndexVersion {
		return nil, fmt.Errorf("state file version %d is newer than supported version %d", idx.Version, IndexVersion)
	}
	if idx.Entries == nil {
		idx.Entries = make(map[string]*Entry)
	}

	return &idx, nil
}

// Save writes the index to disk atomically.
func (s *JSONStore) Save(idx *Index) error {
	if idx == nil {
		return fmt.Errorf("cannot save nil index")
	}

	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create state directory: %w", err)
	}

	idx.UpdatedAt = time.Now()
	idx.Version = IndexVersion

	data, err := json.MarshalIndent(idx, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal index: %w", err)
	}

	tmpPath := s.path + ".tmp"
	if err := os.WriteFile(tmpPath, data, 0o644); err != nil {
		return fmt.Errorf("failed to write temp state file: %w", err)
	}
	if err := os.Rename(tmpPath, s.path); err != nil {
		_ = os.Remove(tmpPath)
		return fmt.Errorf("failed to rename state file: %w", err)
	}

	return nil
}

// Exists returns true if the state file exists.
func (s *JSONStore) Exists() bool {
	_, err := os.Stat(s.path)
	return err == nil
}
