package sizereport

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"
)

// Entry is one key of a report.
type Entry struct {
	Name string
	Size int64
}

// Report is an insertion-ordered mapping from asset identifier to byte size,
// plus the reserved TotalKey. Setting an existing key keeps its position, so
// an asset literally named "total" is overwritten in place by the sum.
type Report struct {
	keys  []string
	sizes map[string]int64
}

// NewReport returns an empty report.
func NewReport() *Report {
	return &Report{sizes: make(map[string]int64)}
}

func (r *Report) set(name string, size int64) {
	if _, ok := r.sizes[name]; !ok {
		r.keys = append(r.keys, name)
	}
	r.sizes[name] = size
}

// Len returns the number of keys, TotalKey included.
func (r *Report) Len() int { return len(r.keys) }

// Total returns the value of TotalKey.
func (r *Report) Total() int64 { return r.sizes[TotalKey] }

// Size returns the recorded size for name.
func (r *Report) Size(name string) (int64, bool) {
	s, ok := r.sizes[name]
	return s, ok
}

// Entries returns every key in order, TotalKey included.
func (r *Report) Entries() []Entry {
	out := make([]Entry, len(r.keys))
	for i, k := range r.keys {
		out[i] = Entry{Name: k, Size: r.sizes[k]}
	}
	return out
}

// Assets returns every key except TotalKey, in order.
func (r *Report) Assets() []Entry {
	out := make([]Entry, 0, len(r.keys))
	for _, k := range r.keys {
		if k == TotalKey {
			continue
		}
		out = append(out, Entry{Name: k, Size: r.sizes[k]})
	}
	return out
}

// MarshalJSON encodes the report compactly, keys in order.
func (r *Report) MarshalJSON() ([]byte, error) {
	return r.MarshalIndent(0)
}

// MarshalIndent encodes the report in insertion order with indentation like
// JSON.stringify: one key per line indented by tab spaces, no trailing
// newline. A tab of zero produces the compact form.
func (r *Report) MarshalIndent(tab int) ([]byte, error) {
	if tab > MaxTabSize {
		tab = MaxTabSize
	}
	var buf bytes.Buffer
	if len(r.keys) == 0 {
		return []byte("{}"), nil
	}

	indent := strings.Repeat(" ", max(tab, 0))
	buf.WriteByte('{')
	for i, k := range r.keys {
		if i > 0 {
			buf.WriteByte(',')
		}
		if tab > 0 {
			buf.WriteByte('\n')
			buf.WriteString(indent)
		}
		key, err := encodeKey(k)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		if tab > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(strconv.FormatInt(r.sizes[k], 10))
	}
	if tab > 0 {
		buf.WriteByte('\n')
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// encodeKey quotes s as a JSON string without HTML escaping.
func encodeKey(s string) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(s); err != nil {
		return nil, err
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// UnmarshalJSON decodes a report, keeping the key order of the document.
// Every value must be a non-negative integer and TotalKey must be present.
func (r *Report) UnmarshalJSON(data []byte) error {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decode report: expected object, got %v", tok)
	}

	out := NewReport()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decode report: %w", err)
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decode report: unexpected key %v", tok)
		}

		tok, err = dec.Token()
		if err != nil {
			return fmt.Errorf("decode report: %w", err)
		}
		num, ok := tok.(json.Number)
		if !ok {
			return fmt.Errorf("decode report: value of %q is not a number", key)
		}
		size, err := num.Int64()
		if err != nil || size < 0 {
			return fmt.Errorf("decode report: value of %q is not a byte size: %s", key, num)
		}
		out.set(key, size)
	}

	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decode report: %w", err)
	}
	if _, err := dec.Token(); err != io.EOF {
		return fmt.Errorf("decode report: trailing data after object")
	}
	if _, ok := out.sizes[TotalKey]; !ok {
		return fmt.Errorf("decode report: missing %q key", TotalKey)
	}

	*r = *out
	return nil
}

// ParseReport decodes a report document.
func ParseReport(data []byte) (*Report, error) {
	r := NewReport()
	if err := r.UnmarshalJSON(data); err != nil {
		return nil, err
	}
	return r, nil
}

// SortedAssets returns Assets ordered by the given key: "size" (largest
// first, ties by name), "name", or anything else for report order.
func (r *Report) SortedAssets(by string) []Entry {
	entries := r.Assets()
	switch by {
	case "size":
		slices.SortStableFunc(entries, func(a, b Entry) int {
			if a.Size != b.Size {
				if a.Size > b.Size {
					return -1
				}
				return 1
			}
			return strings.Compare(a.Name, b.Name)
		})
	case "name":
		slices.SortStableFunc(entries, func(a, b Entry) int { return strings.Compare(a.Name, b.Name) })
	}
	return entries
}
