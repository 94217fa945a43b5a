package sizereport

import (
	"errors"
	"fmt"
)

// ErrConflict is returned under ConflictError when the report identifier is
// already present in the asset set.
var ErrConflict = errors.New("report asset already exists")

// EmitError describes a failure while building the report. When it is
// returned the asset set has not been modified.
type EmitError struct {
	Op    string // "size" or "encode"
	Asset string // empty for "encode"
	Err   error
}

func (e *EmitError) Error() string {
	if e.Asset != "" {
		return fmt.Sprintf("build-size %s %s: %v", e.Op, e.Asset, e.Err)
	}
	return fmt.Sprintf("build-size %s: %v", e.Op, e.Err)
}

func (e *EmitError) Unwrap() error { return e.Err }
