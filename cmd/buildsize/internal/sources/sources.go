// Package sources provides the shared table of bundler source kinds.
//
// Every component that recognizes source files by extension (entry point
// detection, the watcher) uses this package instead of keeping its own list.
// The mapping is fixed: a kind always yields the same extensions.
package sources

import "strings"

// Extensions maps source kinds to their file extensions.
var Extensions = map[string][]string{
	"js":   {".js", ".mjs", ".cjs"},
	"jsx":  {".jsx"},
	"ts":   {".ts", ".mts", ".cts"},
	"tsx":  {".tsx"},
	"css":  {".css"},
	"json": {".json"},
}

// EntryKinds lists the kinds that can start a bundle, in preference order.
var EntryKinds = []string{"ts", "tsx", "js", "jsx"}

// IgnoredDirs contains directory names to skip during detection and
// watching. Names match exactly, except "." which matches every hidden
// directory, including the .buildsize state directory.
var IgnoredDirs = []string{
	hiddenPrefix,   // Hidden directories
	"node_modules", // npm dependencies
	"dist",         // Default output
	"build",        // Generic build output
	"out",          // Generic output
	"coverage",     // Test coverage reports
}

// ExtensionSet returns a set of all extensions for the given kinds.
// If kinds is empty, every known extension is included.
func ExtensionSet(kinds []string) map[string]bool {
	extensions := make(map[string]bool)

	if len(kinds) == 0 {
		for _, exts := range Extensions {
			for _, ext := range exts {
				extensions[ext] = true
			}
		}
		return extensions
	}

	for _, kind := range kinds {
		for _, ext := range Extensions[kind] {
			extensions[ext] = true
		}
	}
	return extensions
}

const hiddenPrefix = "."

// IgnoreDirSet returns the ignored directory names combined with any
// additional names, such as the configured output directory.
func IgnoreDirSet(additional []string) map[string]bool {
	dirs := make(map[string]bool)
	for _, dir := range IgnoredDirs {
		dirs[dir] = true
	}
	for _, dir := range additional {
		if dir = strings.Trim(dir, "/"); dir != "" {
			dirs[dir] = true
		}
	}
	return dirs
}

// IsIgnoredDir reports whether a directory name is in set. A "." entry
// matches any hidden directory.
func IsIgnoredDir(name string, set map[string]bool) bool {
	if set[hiddenPrefix] && strings.HasPrefix(name, hiddenPrefix) {
		return true
	}
	return set[name]
}

// Kind returns the source kind for a file extension, or "" if none matches.
func Kind(ext string) string {
	for kind, exts := range Extensions {
		for _, e := range exts {
			if e == ext {
				return kind
			}
		}
	}
	return ""
}
