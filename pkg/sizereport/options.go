// Package sizereport implements the build-size reporter: a before-emit
// observer that measures every output asset, logs the sizes, and adds a JSON
// report asset to the set so it is emitted alongside the bundle.
//
// The report is an object mapping each asset identifier to its byte size,
// followed by a "total" key holding the sum. The report never counts itself.
package sizereport

import (
	"errors"
	"fmt"
	"path"
	"strings"
)

const (
	// DefaultFilename is the report file name when none is configured.
	DefaultFilename = "build-size.json"

	// DefaultTabSize is the JSON indentation width when none is configured.
	DefaultTabSize = 4

	// MaxTabSize is the widest indentation JSON.stringify honours; larger
	// values are clamped to it.
	MaxTabSize = 10

	// TotalKey is the reserved report key holding the sum of all sizes.
	TotalKey = "total"
)

// ConflictPolicy decides what happens when the report identifier is already
// taken by another asset.
type ConflictPolicy string

const (
	// ConflictOverwrite replaces the existing asset, logging a warning.
	ConflictOverwrite ConflictPolicy = "overwrite"
	// ConflictError fails the emit step with ErrConflict.
	ConflictError ConflictPolicy = "error"
)

// ParseConflictPolicy parses a policy name. Empty means ConflictOverwrite.
func ParseConflictPolicy(s string) (ConflictPolicy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", string(ConflictOverwrite):
		return ConflictOverwrite, nil
	case string(ConflictError):
		return ConflictError, nil
	default:
		return "", fmt.Errorf("%w: unknown conflict policy %q (valid: overwrite, error)", ErrInvalidOptions, s)
	}
}

// Options configures a Reporter. The zero value selects every default.
type Options struct {
	// Filename is the report path under the output base path.
	Filename string

	// TabSize is the number of spaces per JSON indentation level.
	// Zero selects DefaultTabSize.
	TabSize int

	// OnConflict decides how an existing asset with the report's
	// identifier is treated.
	OnConflict ConflictPolicy
}

// ErrInvalidOptions is wrapped by every configuration error.
var ErrInvalidOptions = errors.New("invalid build-size options")

// withDefaults validates opts and fills in defaults.
func (o Options) withDefaults() (Options, error) {
	out := o

	out.Filename = strings.TrimSpace(out.Filename)
	if out.Filename == "" {
		out.Filename = DefaultFilename
	}
	clean := path.Clean(out.Filename)
	if path.IsAbs(clean) || clean == "." || clean == ".." || strings.HasPrefix(clean, "../") {
		return Options{}, fmt.Errorf("%w: filename %q must be a relative path inside the output directory", ErrInvalidOptions, o.Filename)
	}
	if strings.HasSuffix(out.Filename, "/") {
		return Options{}, fmt.Errorf("%w: filename %q names a directory", ErrInvalidOptions, o.Filename)
	}

	switch {
	case out.TabSize < 0:
		return Options{}, fmt.Errorf("%w: tab size %d is negative", ErrInvalidOptions, o.TabSize)
	case out.TabSize == 0:
		out.TabSize = DefaultTabSize
	case out.TabSize > MaxTabSize:
		out.TabSize = MaxTabSize
	}

	policy, err := ParseConflictPolicy(string(out.OnConflict))
	if err != nil {
		return Options{}, err
	}
	out.OnConflict = policy

	return out, nil
}

// ReportPath joins the output base path and the report filename with a
// single slash. An empty base path means the current directory.
func ReportPath(basePath, filename string) string {
	base := strings.TrimRight(basePath, "/")
	if base == "" {
		if strings.HasPrefix(basePath, "/") {
			return "/" + filename
		}
		base = "."
	}
	return base + "/" + filename
}
