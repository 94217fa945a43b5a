package incremental

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"path/filepath"

	"github.com/bmatcuk/doublestar/v4"
)

// ScanConfig configures the scanner.
type ScanConfig struct {
	// Root is the directory entry paths are made relative to.
	Root string
	// Dir is the subtree of Root to walk. Empty means Root itself.
	Dir string
	// Ignore holds doublestar patterns matched against slash-separated
	// paths relative to Root. Matching directories are pruned.
	Ignore []string
}

// Scanner builds an Index by walking the filesystem.
type Scanner struct {
	root   string
	dir    string
	ignore []string
}

// NewScanner creates a scanner with the given config. Invalid ignore
// patterns are reported here rather than during the walk.
func NewScanner(cfg ScanConfig) (*Scanner, error) {
	for _, p := range cfg.Ignore {
		if !doublestar.ValidatePattern(p) {
			return nil, fmt.Errorf("invalid ignore pattern %q", p)
		}
	}
	dir := cfg.Root
	if cfg.Dir != "" {
		dir = filepath.Join(cfg.Root, cfg.Dir)
	}
	return &Scanner{
		root:   cfg.Root,
		dir:    dir,
		ignore: append([]string{StateDir, StateDir + "/**"}, cfg.Ignore...),
	}, nil
}

// Ignored reports whether the slash-separated relative path is excluded.
func (s *Scanner) Ignored(rel string) bool {
	for _, p := range s.ignore {
		if ok, _ := doublestar.Match(p, rel); ok {
			return true
		}
	}
	return false
}

// walk visits every non-ignored regular file in lexical order.
func (s *Scanner) walk(ctx context.Context, fn func(rel, path string, d fs.DirEntry) error) error {
	return filepath.WalkDir(s.dir, func(path string, d fs.DirEntry, err error) error {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		if err != nil {
			if path == s.dir && errors.Is(err, fs.ErrNotExist) {
				return nil
			}
			return err
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			return err
		}
		rel = filepath.ToSlash(rel)

		if d.IsDir() {
			if rel != "." && s.Ignored(rel) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() || s.Ignored(rel) {
			return nil
		}
		return fn(rel, path, d)
	})
}

// Files returns the relative paths of all files in walk order.
func (s *Scanner) Files(ctx context.Context) ([]string, error) {
	var files []string
	err := s.walk(ctx, func(rel, _ string, _ fs.DirEntry) error {
		files = append(files, rel)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return files, nil
}

// Scan walks the filesystem and builds an Index with content hashes.
func (s *Scanner) Scan(ctx context.Context) (*Index, error) {
	return s.scan(ctx, true)
}

// ScanFast builds an Index with mtime and size only.
func (s *Scanner) ScanFast(ctx context.Context) (*Index, error) {
	return s.scan(ctx, false)
}

func (s *Scanner) scan(ctx context.Context, hash bool) (*Index, error) {
	idx := NewIndex()
	err := s.walk(ctx, func(rel, path string, d fs.DirEntry) error {
		info, err := d.Info()
		if err != nil {
			return err
		}
		entry := &Entry{
			Path:    rel,
			ModTime: info.ModTime().UnixNano(),
			Size:    info.Size(),
		}
		if hash {
			if entry.Hash, err = HashFile(path); err != nil {
				return err
			}
		}
		idx.Add(entry)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return idx, nil
}
