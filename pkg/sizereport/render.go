package sizereport

import (
	"fmt"
	"io"
	"strconv"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"
)

// Format selects how a report is printed.
type Format string

const (
	FormatTable Format = "table"
	FormatJSON  Format = "json"
	FormatText  Format = "text"
)

// ParseFormat parses a format name. Empty means FormatTable.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case "", FormatTable:
		return FormatTable, nil
	case FormatJSON, FormatText:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown format %q (valid: table, json, text)", s)
	}
}

// RenderOptions controls Render.
type RenderOptions struct {
	Format Format
	// Sort is "size", "name" or empty for report order.
	Sort string
	// TabSize is the indentation for FormatJSON.
	TabSize int
}

// Render writes the report to w.
func Render(w io.Writer, r *Report, opts RenderOptions) error {
	switch opts.Format {
	case FormatJSON:
		tab := opts.TabSize
		if tab == 0 {
			tab = DefaultTabSize
		}
		data, err := r.MarshalIndent(tab)
		if err != nil {
			return err
		}
		_, err = fmt.Fprintf(w, "%s\n", data)
		return err
	case FormatText:
		for _, e := range r.SortedAssets(opts.Sort) {
			if _, err := fmt.Fprintf(w, "%s\t%d\n", e.Name, e.Size); err != nil {
				return err
			}
		}
		_, err := fmt.Fprintf(w, "%s\t%d\n", TotalKey, r.Total())
		return err
	default:
		renderTable(w, r, opts.Sort)
		return nil
	}
}

func renderTable(w io.Writer, r *Report, sortBy string) {
	table := tablewriter.NewWriter(w)
	table.SetHeader([]string{"Asset", "Size", "Bytes", "Share"})
	table.SetBorder(false)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetColumnAlignment([]int{
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

	total := r.Total()
	for _, e := range r.SortedAssets(sortBy) {
		table.Append([]string{
			e.Name,
			humanize.IBytes(uint64(e.Size)),
			strconv.FormatInt(e.Size, 10),
			share(e.Size, total),
		})
	}
	table.Append([]string{
		TotalKey,
		humanize.IBytes(uint64(total)),
		strconv.FormatInt(total, 10),
		"",
	})
	table.Render()
}

func share(size, total int64) string {
	if total == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f%%", float64(size)*100/float64(total))
}
