// Package incremental tracks what the emitter last wrote so unchanged assets
// can be skipped and out-of-band edits to the output directory detected.
package incremental

// Entry records one emitted file.
type Entry struct {
	Path    string `json:"path"`     // slash-separated, relative to the emit root
	Hash    string `json:"hash"`     // xxHash64 hex
	ModTime int64  `json:"mtime_ns"` // UnixNano
	Size    int64  `json:"size"`
}
