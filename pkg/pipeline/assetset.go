package pipeline

import (
	"path"
	"slices"
)

// AssetSet maps asset identifiers to assets and remembers insertion order.
// Replacing an existing identifier keeps its original position.
// Identifiers are slash paths compared in path.Clean form, so "dist/./a.js"
// and "dist/a.js" name the same asset.
//
// An AssetSet is not safe for concurrent mutation; it belongs to one build.
type AssetSet struct {
	keys   []string
	assets map[string]Asset
}

// NewAssetSet creates an empty set.
func NewAssetSet() *AssetSet {
	return &AssetSet{assets: make(map[string]Asset)}
}

// Set inserts or replaces the asset stored under id.
func (s *AssetSet) Set(id string, a Asset) {
	id = cleanID(id)
	if s.assets == nil {
		s.assets = make(map[string]Asset)
	}
	if _, exists := s.assets[id]; !exists {
		s.keys = append(s.keys, id)
	}
	s.assets[id] = a
}

// Get returns the asset stored under id.
func (s *AssetSet) Get(id string) (Asset, bool) {
	if s == nil || s.assets == nil {
		return nil, false
	}
	a, ok := s.assets[cleanID(id)]
	return a, ok
}

// Has reports whether id is present.
func (s *AssetSet) Has(id string) bool {
	_, ok := s.Get(id)
	return ok
}

// Delete removes id from the set.
func (s *AssetSet) Delete(id string) {
	if s == nil || s.assets == nil {
		return
	}
	id = cleanID(id)
	if _, ok := s.assets[id]; !ok {
		return
	}
	delete(s.assets, id)
	s.keys = slices.DeleteFunc(s.keys, func(k string) bool { return k == id })
}

// Len returns the number of assets.
func (s *AssetSet) Len() int {
	if s == nil {
		return 0
	}
	return len(s.keys)
}

// Keys returns the identifiers in insertion order.
func (s *AssetSet) Keys() []string {
	if s == nil {
		return nil
	}
	return slices.Clone(s.keys)
}

// Range calls fn for each asset in insertion order until fn returns false.
// The set must not be mutated during iteration.
func (s *AssetSet) Range(fn func(id string, a Asset) bool) {
	if s == nil {
		return
	}
	for _, id := range s.keys {
		if !fn(id, s.assets[id]) {
			return
		}
	}
}

// Clone returns a shallow copy: a new set sharing the same Asset values.
func (s *AssetSet) Clone() *AssetSet {
	out := NewAssetSet()
	s.Range(func(id string, a Asset) bool {
		out.Set(id, a)
		return true
	})
	return out
}

func cleanID(id string) string {
	if id == "" {
		return id
	}
	return path.Clean(id)
}
