package sizereport

import (
	"encoding/json"
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// DeltaKind classifies how an asset changed between two reports.
type DeltaKind string

const (
	DeltaAdded     DeltaKind = "added"
	DeltaRemoved   DeltaKind = "removed"
	DeltaChanged   DeltaKind = "changed"
	DeltaUnchanged DeltaKind = "unchanged"
)

// Delta is the size change of one asset.
type Delta struct {
	Name string    `json:"name"`
	Kind DeltaKind `json:"kind"`
	Old  int64     `json:"old"`
	New  int64     `json:"new"`
}

// Change returns New - Old.
func (d Delta) Change() int64 { return d.New - d.Old }

// DiffResult is the outcome of comparing two reports.
type DiffResult struct {
	Deltas   []Delta `json:"assets"`
	OldTotal int64   `json:"oldTotal"`
	NewTotal int64   `json:"newTotal"`
}

// TotalChange returns NewTotal - OldTotal.
func (r DiffResult) TotalChange() int64 { return r.NewTotal - r.OldTotal }

// Changed reports whether any asset was added, removed or resized.
func (r DiffResult) Changed() bool {
	for _, d := range r.Deltas {
		if d.Kind != DeltaUnchanged {
			return true
		}
	}
	return false
}

// Diff compares two reports. Assets of newer come first in its order,
// followed by assets only present in older.
func Diff(older, newer *Report) DiffResult {
	res := DiffResult{OldTotal: older.Total(), NewTotal: newer.Total()}

	seen := make(map[string]bool)
	for _, e := range newer.Assets() {
		seen[e.Name] = true
		prev, ok := older.Size(e.Name)
		d := Delta{Name: e.Name, New: e.Size, Old: prev}
		switch {
		case !ok:
			d.Kind = DeltaAdded
		case prev != e.Size:
			d.Kind = DeltaChanged
		default:
			d.Kind = DeltaUnchanged
		}
		res.Deltas = append(res.Deltas, d)
	}
	for _, e := range older.Assets() {
		if seen[e.Name] {
			continue
		}
		res.Deltas = append(res.Deltas, Delta{Name: e.Name, Kind: DeltaRemoved, Old: e.Size})
	}
	return res
}

// RenderDiff writes res to w as a table, or as JSON when asJSON is set.
func RenderDiff(w io.Writer, res DiffResult, asJSON bool) error {
	if asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			DiffResult
			Change int64 `json:"change"`
		}{res, res.TotalChange()})
	}

	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Asset", "Status", "Old", "New", "Change"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_LEFT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
		tablewriter.ALIGN_RIGHT,
	})
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetTablePadding("  ")
	table.SetNoWhiteSpace(true)

	for _, d := range res.Deltas {
		table.Append([]string{
			d.Name,
			string(d.Kind),
			sizeCell(d.Old, d.Kind == DeltaAdded),
			sizeCell(d.New, d.Kind == DeltaRemoved),
			signedBytes(d.Change()),
		})
	}
	table.Append([]string{
		TotalKey,
		"",
		humanize.IBytes(uint64(res.OldTotal)),
		humanize.IBytes(uint64(res.NewTotal)),
		signedBytes(res.TotalChange()),
	})
	table.Render()
	return nil
}

func sizeCell(n int64, absent bool) string {
	if absent {
		return "-"
	}
	return humanize.IBytes(uint64(n))
}

// signedBytes formats a byte delta with an explicit sign.
func signedBytes(n int64) string {
	switch {
	case n > 0:
		return "+" + strconv.FormatInt(n, 10)
	case n < 0:
		return strconv.FormatInt(n, 10)
	default:
		return "0"
	}
}

// ExceedsBudget reports whether the total grew by more than limit bytes.
func (r DiffResult) ExceedsBudget(limit int64) error {
	if change := r.TotalChange(); change > limit {
		return fmt.Errorf("total grew by %d bytes (%s), over the %d byte limit",
			change, humanize.IBytes(uint64(change)), limit)
	}
	return nil
}
