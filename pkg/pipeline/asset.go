// Package pipeline models the emit phase of a bundler build: an ordered set of
// in-memory output assets, a before-emit hook that observers tap into, and an
// emitter that persists the final set to disk.
package pipeline

import (
	"fmt"
	"os"
)

// Asset is a named build output held in memory before it is written.
type Asset interface {
	// Size returns the byte size of the asset content.
	Size() (int64, error)
	// Source returns the asset content.
	Source() ([]byte, error)
}

// RawSource is an asset backed by a byte slice.
type RawSource []byte

// NewRawSource returns a RawSource holding a copy of b.
func NewRawSource(b []byte) RawSource {
	return RawSource(append([]byte(nil), b...))
}

// Size returns len(s).
func (s RawSource) Size() (int64, error) { return int64(len(s)), nil }

// Source returns the underlying bytes.
func (s RawSource) Source() ([]byte, error) { return s, nil }

// FileSource is an asset backed by a file on disk. Content is read lazily.
type FileSource struct {
	Path string
}

// Size stats the file.
func (f FileSource) Size() (int64, error) {
	info, err := os.Stat(f.Path)
	if err != nil {
		return 0, err
	}
	if info.IsDir() {
		return 0, fmt.Errorf("%s is a directory", f.Path)
	}
	return info.Size(), nil
}

// Source reads the file.
func (f FileSource) Source() ([]byte, error) {
	return os.ReadFile(f.Path)
}
