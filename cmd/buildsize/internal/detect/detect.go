// Package detect finds bundle entry points and source kinds in a project.
//
// Detection only looks at file names, never file contents, so the same
// directory always yields the same result. Directories listed in
// sources.IgnoredDirs are skipped, except for the root itself.
package detect

import (
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"

	"github.com/albertocavalcante/buildsize/cmd/buildsize/internal/sources"
)

// entryDirs are searched in order for an entry file.
var entryDirs = []string{"src", "."}

// entryNames are the base names an entry file may have.
var entryNames = []string{"index", "main"}

// EntryPoints returns the conventional entry points found under root as
// slash-separated paths relative to root. The first match per directory
// wins, and src/ is preferred over the root so a single entry is returned
// for the usual layouts.
func EntryPoints(root string) ([]string, error) {
	for _, dir := range entryDirs {
		for _, name := range entryNames {
			for _, kind := range sources.EntryKinds {
				for _, ext := range sources.Extensions[kind] {
					rel := path.Join(dir, name+ext)
					info, err := os.Stat(filepath.Join(root, filepath.FromSlash(rel)))
					if err != nil {
						if os.IsNotExist(err) {
							continue
						}
						return nil, err
					}
					if info.Mode().IsRegular() {
						return []string{rel}, nil
					}
				}
			}
		}
	}
	return nil, nil
}

// Kinds returns the sorted source kinds present under root.
func Kinds(root string) ([]string, error) {
	ignored := sources.IgnoreDirSet(nil)
	found := make(map[string]bool)

	err := filepath.WalkDir(root, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			if p != root && sources.IsIgnoredDir(d.Name(), ignored) {
				return filepath.SkipDir
			}
			return nil
		}
		if kind := sources.Kind(filepath.Ext(p)); kind != "" {
			found[kind] = true
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	result := make([]string, 0, len(found))
	for kind := range found {
		result = append(result, kind)
	}
	slices.Sort(result)
	return result, nil
}

// HasKind checks if a source kind is present under root.
func HasKind(root, kind string) (bool, error) {
	kinds, err := Kinds(root)
	if err != nil {
		return false, err
	}
	return slices.Contains(kinds, kind), nil
}
