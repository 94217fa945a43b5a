package cli

import (
	"context"
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/buildsize/internal/incremental"
	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/albertocavalcante/buildsize/pkg/registry"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
	"github.com/spf13/cobra"
)

var reportFlags struct {
	filename string
	tabSize  int
	dryRun   bool
	format   string
	sort     string
	ignore   []string
}

var reportCmd = &cobra.Command{
	Use:   "report [dir]",
	Short: "Write a size report for an existing output directory",
	Long: `Measures every file in an already built output directory and writes
the size report into it, as if the files had just been emitted.

The directory defaults to build.outdir. Files matching scan.ignore
(source maps by default) are left out, and a report left by an earlier
run is replaced rather than measured.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runReport,
}

func init() {
	f := reportCmd.Flags()
	f.StringVar(&reportFlags.filename, "filename", "", "Report file name inside the directory")
	f.IntVar(&reportFlags.tabSize, "tab-size", 0, "Report JSON indentation (default 4)")
	f.BoolVar(&reportFlags.dryRun, "dry-run", false, "Print the report without writing it")
	f.StringVar(&reportFlags.format, "format", "table", "Output format (table, json, text)")
	f.StringVar(&reportFlags.sort, "sort", "", "Output order (size, name; default report order)")
	f.StringSliceVar(&reportFlags.ignore, "ignore", nil, "Additional doublestar patterns to leave out")

	rootCmd.AddCommand(reportCmd)
}

// scanCompilation turns the files under dir into a compilation whose
// identifiers are relative to workDir.
func scanCompilation(ctx context.Context, workDir, dir string, ignore []string) (*pipeline.Compilation, error) {
	if filepath.IsAbs(dir) {
		rel, err := filepath.Rel(workDir, dir)
		if err != nil {
			return nil, err
		}
		dir = rel
	}
	dir = filepath.Clean(dir)

	scanner, err := incremental.NewScanner(incremental.ScanConfig{
		Root:   workDir,
		Dir:    dir,
		Ignore: ignore,
	})
	if err != nil {
		return nil, err
	}
	files, err := scanner.Files(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	c := pipeline.NewCompilation(filepath.ToSlash(dir))
	for _, rel := range files {
		c.Assets.Set(rel, pipeline.FileSource{Path: filepath.Join(workDir, filepath.FromSlash(rel))})
	}
	return c, nil
}

func runReport(cmd *cobra.Command, args []string) error {
	format, err := sizereport.ParseFormat(reportFlags.format)
	if err != nil {
		return err
	}
	wd, err := projectDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return err
	}
	if cmd.Flags().Changed("filename") {
		cfg.Report.Filename = reportFlags.filename
	}
	if cmd.Flags().Changed("tab-size") {
		cfg.Report.TabSize = reportFlags.tabSize
	}

	dir := cfg.Build.Outdir
	if len(args) > 0 {
		dir = args[0]
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	ignore := append(append([]string{}, cfg.Scan.Ignore...), reportFlags.ignore...)
	c, err := scanCompilation(ctx, wd, dir, ignore)
	if err != nil {
		return err
	}
	if c.Assets.Len() == 0 {
		return fmt.Errorf("no files found in %s", dir)
	}

	reporter, err := newReporter(cfg)
	if err != nil {
		return err
	}
	id := reporter.ReportPath(c.OutputPath)
	if c.Assets.Has(id) {
		log.Debug("dropping previous report", "asset", id)
		c.Assets.Delete(id)
	}

	plugins, err := registry.LoadByName(cfg, []string{config.ObserverBuildSize})
	if err != nil {
		return err
	}
	h := pipeline.NewHooks()
	h.Apply(plugins...)

	if _, err := pipeline.Run(ctx, h, c, nil); err != nil {
		return err
	}
	report, err := readReport(c, id)
	if err != nil {
		return err
	}

	// The scanned files are already on disk; only the report is new.
	if !reportFlags.dryRun {
		asset, _ := c.Assets.Get(id)
		only := pipeline.NewAssetSet()
		only.Set(id, asset)
		if _, err := pipeline.NewEmitter(wd).Emit(ctx, only); err != nil {
			return err
		}
		if filepath.Clean(dir) == filepath.Clean(cfg.Build.Outdir) {
			refreshState(ctx, wd, cfg)
		}
	}

	w := cmd.OutOrStdout()
	if err := sizereport.Render(w, report, sizereport.RenderOptions{
		Format:  format,
		Sort:    reportFlags.sort,
		TabSize: cfg.Report.TabSize,
	}); err != nil {
		return err
	}
	if format != sizereport.FormatJSON && !reportFlags.dryRun {
		fmt.Fprintf(w, "\nwrote %s\n", id)
	}
	return nil
}

// refreshState rescans the output directory so status compares against what
// is on disk now, not against the last build.
func refreshState(ctx context.Context, workDir string, cfg *config.Config) {
	tracker, err := newTracker(workDir, cfg)
	if err == nil {
		err = tracker.Refresh(ctx)
	}
	if err != nil {
		log.Warn("failed to record output state", "error", err)
	}
}
