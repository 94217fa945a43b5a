package cli

import (
	"context"
	"os"
	"os/signal"
	"path"
	"path/filepath"
	"slices"
	"syscall"
	"time"

	"github.com/albertocavalcante/buildsize/cmd/buildsize/internal/watch"
	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/spf13/cobra"
)

var watchFlags struct {
	debounce time.Duration
	verbose  bool
	json     bool
	noColor  bool
}

var watchCmd = &cobra.Command{
	Use:   "watch [entry...]",
	Short: "Rebuild and re-report whenever sources change",
	Long: `Builds once, then watches the source directories and rebuilds with a
fresh size report after every burst of changes.

Example output:

  $ buildsize watch

  buildsize: watching 42 files in /path/to/app
  buildsize: dirs: src
  buildsize: ready

  [14:32:15] building...
  [14:32:15] ✓ 182 KiB total (3 assets, 3 written) -> dist/build-size.json
  [14:32:20] rebuilding after src/app.ts...
  [14:32:20] ✓ 183 KiB total (3 assets, 2 written) -> dist/build-size.json

A failed build is reported and watching continues.
Press Ctrl+C to stop watching.`,
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchFlags.debounce, "debounce", 0,
		"Debounce window (default from config, 300ms)")
	watchCmd.Flags().BoolVar(&watchFlags.verbose, "verbose", false,
		"Show file-level changes")
	watchCmd.Flags().BoolVar(&watchFlags.json, "json", false,
		"Stream JSON events (for tooling integration)")
	watchCmd.Flags().BoolVar(&watchFlags.noColor, "no-color", false,
		"Disable colored output")

	rootCmd.AddCommand(watchCmd)
}

// watchDirs returns the configured watch directories, or the directories
// holding the entry points.
func watchDirs(cfg *config.Config, entries []string) []string {
	if len(cfg.Watch.Dirs) > 0 {
		return cfg.Watch.Dirs
	}
	var dirs []string
	for _, e := range entries {
		dir := path.Dir(filepath.ToSlash(e))
		if !slices.Contains(dirs, dir) {
			dirs = append(dirs, dir)
		}
	}
	slices.Sort(dirs)
	return dirs
}

func runWatch(cmd *cobra.Command, args []string) error {
	wd, err := projectDir()
	if err != nil {
		return err
	}
	cfg, err := loadConfig(wd)
	if err != nil {
		return err
	}
	if len(args) > 0 {
		cfg.Build.EntryPoints = args
	}

	entries, err := entryPoints(wd, cfg)
	if err != nil {
		return err
	}
	cfg.Build.EntryPoints = entries

	debounce := watchFlags.debounce
	if !cmd.Flags().Changed("debounce") {
		if debounce, err = cfg.DebounceDuration(); err != nil {
			return err
		}
	}

	// Include SIGHUP to handle terminal hangup
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM, syscall.SIGHUP)
	defer cancel()

	w, err := watch.New(watch.Config{
		Root:     wd,
		Dirs:     watchDirs(cfg, entries),
		Exclude:  []string{filepath.ToSlash(filepath.Clean(cfg.Build.Outdir))},
		Debounce: debounce,
		Verbose:  watchFlags.verbose,
		NoColor:  watchFlags.noColor,
		JSON:     watchFlags.json,
		Writer:   cmd.OutOrStdout(),
		Build: func(ctx context.Context) (watch.Summary, error) {
			out, err := buildProject(ctx, wd, cfg, emitMode{})
			if err != nil {
				return watch.Summary{}, err
			}
			s := watch.Summary{
				Assets:  out.Result.Compilation.Assets.Len(),
				Written: out.Stats.Written,
				Report:  out.ReportID,
			}
			if out.Report != nil {
				s.Total = out.Report.Total()
			}
			return s, nil
		},
	})
	if err != nil {
		return err
	}
	defer func() { _ = w.Close() }()

	return w.Run(ctx)
}
