package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

var statusFlags struct {
	verbose bool
	json    bool
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the output directory changed since the last build",
	Long: `Compares the output directory against what the last 'buildsize build'
wrote. Files edited, added or removed by hand since then make the size
report stale.

The --verbose flag lists the individual files.
The --json flag outputs the result as JSON for scripting.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	statusCmd.Flags().BoolVar(&statusFlags.verbose, "verbose", false,
		"Show individual file changes")
	statusCmd.Flags().BoolVar(&statusFlags.json, "json", false,
		"Output as JSON")

	rootCmd.AddCommand(statusCmd)
}

// StatusOutput is the JSON output format for buildsize status.
type StatusOutput struct {
	Stale         bool     `json:"stale"`
	Tracked       int      `json:"tracked"`
	StaleDirs     []string `json:"stale_dirs"`
	NewFiles      []string `json:"new_files,omitempty"`
	ModifiedFiles []string `json:"modified_files,omitempty"`
	DeletedFiles  []string `json:"deleted_files,omitempty"`
	Error         string   `json:"error,omitempty"`
}

func runStatus(cmd *cobra.Command, args []string) error {
	wd, err := projectDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return err
	}
	tracker, err := newTracker(wd, cfg)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if !tracker.HasState() {
		if statusFlags.json {
			return outputJSON(w, StatusOutput{
				Stale:     true,
				StaleDirs: []string{cfg.Build.Outdir},
				Error:     "no state found",
			})
		}
		fmt.Fprintln(w, "No state found. Run 'buildsize build' to create initial state.")
		return nil
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	cs, err := tracker.Status(ctx)
	if err != nil {
		return fmt.Errorf("failed to detect changes: %w", err)
	}

	if statusFlags.json {
		return outputJSON(w, StatusOutput{
			Stale:         !cs.IsEmpty(),
			Tracked:       tracker.TrackedFileCount(),
			StaleDirs:     cs.AffectedDirs(),
			NewFiles:      cs.Added,
			ModifiedFiles: cs.Modified,
			DeletedFiles:  cs.Deleted,
		})
	}

	if cs.IsEmpty() {
		fmt.Fprintf(w, "Output is up to date (%d files)\n", tracker.TrackedFileCount())
		return nil
	}

	dirs := cs.AffectedDirs()
	fmt.Fprintf(w, "Changed since last build: %d files in %d directories\n", cs.TotalChanges(), len(dirs))
	for _, dir := range dirs {
		fmt.Fprintf(w, "  %s\n", dir)
	}

	if statusFlags.verbose {
		printFiles := func(title, mark string, files []string) {
			if len(files) == 0 {
				return
			}
			fmt.Fprintf(w, "\n%s (%d):\n", title, len(files))
			for _, f := range files {
				fmt.Fprintf(w, "  %s %s\n", mark, f)
			}
		}
		printFiles("New files", "+", cs.Added)
		printFiles("Modified files", "~", cs.Modified)
		printFiles("Deleted files", "-", cs.Deleted)
	}

	fmt.Fprintln(w, "\nRun 'buildsize build' or 'buildsize report' to refresh the size report")
	return nil
}
