package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
	"github.com/spf13/cobra"
)

var buildFlags struct {
	outdir     string
	minify     bool
	sourcemap  bool
	filename   string
	tabSize    int
	onConflict string
	strict     bool
	noReport   bool
	manifest   bool
	dryRun     bool
	force      bool
	format     string
	sort       string
}

var buildCmd = &cobra.Command{
	Use:   "build [entry...]",
	Short: "Bundle the project and write a size report",
	Long: `Bundles the project with esbuild and writes the output together with
a size report.

Entry points come from the arguments, then build.entry_points in
buildsize.toml, then the conventional src/index.* or index.* files.

The report is added to the output just before it is written, so it
lists every other asset, including ones added by the manifest observer:

  {
      "index.js": 1000,
      "index.css": 200,
      "total": 1200
  }

Files whose content did not change since the last build are not
rewritten. Use --dry-run to print the report without writing anything.`,
	RunE: runBuild,
}

func init() {
	f := buildCmd.Flags()
	f.StringVar(&buildFlags.outdir, "outdir", "", "Output directory (default from config, \"dist\")")
	f.BoolVar(&buildFlags.minify, "minify", false, "Minify the output")
	f.BoolVar(&buildFlags.sourcemap, "sourcemap", false, "Emit linked source maps")
	f.StringVar(&buildFlags.filename, "filename", "", "Report file name inside the output directory")
	f.IntVar(&buildFlags.tabSize, "tab-size", 0, "Report JSON indentation (default 4)")
	f.StringVar(&buildFlags.onConflict, "on-conflict", "", "What to do when an asset already has the report name (overwrite, error)")
	f.BoolVar(&buildFlags.strict, "strict", false, "Shorthand for --on-conflict=error")
	f.BoolVar(&buildFlags.noReport, "no-report", false, "Do not add the size report")
	f.BoolVar(&buildFlags.manifest, "manifest", false, "Also add the asset manifest")
	f.BoolVar(&buildFlags.dryRun, "dry-run", false, "Build and report without writing files")
	f.BoolVar(&buildFlags.force, "force", false, "Rewrite every asset even if unchanged since the last build")
	f.StringVar(&buildFlags.format, "format", "table", "Summary format (table, json, text)")
	f.StringVar(&buildFlags.sort, "sort", "", "Summary order (size, name; default report order)")

	rootCmd.AddCommand(buildCmd)
}

// applyBuildFlags layers explicitly set flags over cfg.
func applyBuildFlags(cmd *cobra.Command, cfg *config.Config, entries []string) {
	f := cmd.Flags()
	trueVal, falseVal := true, false

	if len(entries) > 0 {
		cfg.Build.EntryPoints = entries
	}
	if f.Changed("outdir") {
		cfg.Build.Outdir = buildFlags.outdir
	}
	if f.Changed("minify") {
		cfg.Build.Minify = &buildFlags.minify
	}
	if f.Changed("sourcemap") {
		cfg.Build.Sourcemap = &buildFlags.sourcemap
	}
	if f.Changed("filename") {
		cfg.Report.Filename = buildFlags.filename
	}
	if f.Changed("tab-size") {
		cfg.Report.TabSize = buildFlags.tabSize
	}
	if f.Changed("on-conflict") {
		cfg.Report.OnConflict = buildFlags.onConflict
	}
	if buildFlags.strict {
		cfg.Report.OnConflict = string(sizereport.ConflictError)
	}
	if buildFlags.noReport {
		cfg.Report.Enabled = &falseVal
	}
	if buildFlags.manifest {
		cfg.Manifest.Enabled = &trueVal
	}
}

func runBuild(cmd *cobra.Command, args []string) error {
	format, err := sizereport.ParseFormat(buildFlags.format)
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
	applyBuildFlags(cmd, cfg, args)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	out, err := buildProject(ctx, wd, cfg, emitMode{DryRun: buildFlags.dryRun, Force: buildFlags.force})
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if out.Report != nil {
		if err := sizereport.Render(w, out.Report, sizereport.RenderOptions{
			Format:  format,
			Sort:    buildFlags.sort,
			TabSize: cfg.Report.TabSize,
		}); err != nil {
			return err
		}
	}
	if format == sizereport.FormatJSON {
		return nil
	}

	switch {
	case out.DryRun:
		fmt.Fprintf(w, "\ndry run: %d assets not written\n", out.Result.Compilation.Assets.Len())
	case out.ReportID != "":
		fmt.Fprintf(w, "\n%d written, %d unchanged, report %s\n", out.Stats.Written, out.Stats.Skipped, out.ReportID)
	default:
		fmt.Fprintf(w, "%d written, %d unchanged\n", out.Stats.Written, out.Stats.Skipped)
	}
	return nil
}
