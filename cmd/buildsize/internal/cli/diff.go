package cli

import (
	"fmt"
	"math"
	"os"

	"github.com/albertocavalcante/buildsize/pkg/sizereport"
	"github.com/dustin/go-humanize"
	"github.com/spf13/cobra"
)

var diffFlags struct {
	json     bool
	failOver string
}

var diffCmd = &cobra.Command{
	Use:   "diff <old> <new>",
	Short: "Compare two size reports",
	Long: `Compares two build-size.json reports and lists added, removed and
resized assets together with the change in total.

With --fail-over the command exits non-zero when the total grew by more
than the given amount, which is useful as a size budget in CI:

  buildsize diff base/build-size.json dist/build-size.json --fail-over 10KiB`,
	Args: cobra.ExactArgs(2),
	RunE: runDiff,
}

func init() {
	diffCmd.Flags().BoolVar(&diffFlags.json, "json", false, "Output as JSON")
	diffCmd.Flags().StringVar(&diffFlags.failOver, "fail-over", "",
		"Fail when the total grows by more than this size (e.g. 0, 500B, 10KiB)")

	rootCmd.AddCommand(diffCmd)
}

func readReportFile(path string) (*sizereport.Report, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read report: %w", err)
	}
	r, err := sizereport.ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return r, nil
}

// parseBudget parses a --fail-over size. Sizes that do not fit in an int64
// are rejected rather than wrapping negative and disabling the budget.
func parseBudget(s string) (int64, error) {
	n, err := humanize.ParseBytes(s)
	if err != nil {
		return 0, fmt.Errorf("invalid --fail-over %q: %w", s, err)
	}
	if n > math.MaxInt64 {
		return 0, fmt.Errorf("invalid --fail-over %q: size too large", s)
	}
	return int64(n), nil
}

func runDiff(cmd *cobra.Command, args []string) error {
	var limit int64 = -1
	if diffFlags.failOver != "" {
		n, err := parseBudget(diffFlags.failOver)
		if err != nil {
			return err
		}
		limit = n
	}

	older, err := readReportFile(args[0])
	if err != nil {
		return err
	}
	newer, err := readReportFile(args[1])
	if err != nil {
		return err
	}

	res := sizereport.Diff(older, newer)
	if err := sizereport.RenderDiff(cmd.OutOrStdout(), res, diffFlags.json); err != nil {
		return err
	}
	if limit >= 0 {
		return res.ExceedsBudget(limit)
	}
	return nil
}
