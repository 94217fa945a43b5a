package cli

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/buildsize/cmd/buildsize/internal/detect"
	"github.com/albertocavalcante/buildsize/internal/incremental"
	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/albertocavalcante/buildsize/pkg/esbuildhost"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/albertocavalcante/buildsize/pkg/registry"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
)

// errNoEntryPoints is returned when neither config nor detection yields an
// entry point.
var errNoEntryPoints = errors.New("no entry points found; pass them as arguments or set build.entry_points in buildsize.toml")

// buildOutcome is everything one build and emit produced.
type buildOutcome struct {
	Result *esbuildhost.Result
	Stats  pipeline.EmitStats

	// Report is the parsed size report, nil when the report is disabled.
	Report   *sizereport.Report
	ReportID string

	DryRun bool
}

// emitMode controls how buildProject writes its output.
type emitMode struct {
	// DryRun skips writing entirely.
	DryRun bool
	// Force rewrites every asset, ignoring the previous emit index.
	Force bool
}

// entryPoints returns the configured entry points, or the detected ones.
func entryPoints(workDir string, cfg *config.Config) ([]string, error) {
	if len(cfg.Build.EntryPoints) > 0 {
		return cfg.Build.EntryPoints, nil
	}
	entries, err := detect.EntryPoints(workDir)
	if err != nil {
		return nil, fmt.Errorf("failed to detect entry points: %w", err)
	}
	if len(entries) == 0 {
		return nil, errNoEntryPoints
	}
	log.Debug("detected entry points", "entries", entries)
	return entries, nil
}

// esbuildOptions converts the build section of cfg.
func esbuildOptions(workDir string, cfg *config.Config, entries []string) esbuildhost.Options {
	b := cfg.Build
	return esbuildhost.Options{
		EntryPoints: entries,
		Outdir:      b.Outdir,
		WorkDir:     workDir,
		Bundle:      config.BoolValue(b.Bundle),
		Minify:      config.BoolValue(b.Minify),
		Sourcemap:   config.BoolValue(b.Sourcemap),
		Splitting:   config.BoolValue(b.Splitting),
		Format:      b.Format,
		Platform:    b.Platform,
		Target:      b.Target,
		Loaders:     b.Loaders,
		External:    b.External,
	}
}

// buildProject runs esbuild with the enabled observers and, unless this is a
// dry run, writes the final asset set and records it for status.
func buildProject(ctx context.Context, workDir string, cfg *config.Config, mode emitMode) (*buildOutcome, error) {
	entries, err := entryPoints(workDir, cfg)
	if err != nil {
		return nil, err
	}
	plugins, err := registry.Load(cfg)
	if err != nil {
		return nil, err
	}

	res, err := esbuildhost.Build(ctx, esbuildOptions(workDir, cfg, entries), plugins...)
	if err != nil {
		return nil, err
	}

	out := &buildOutcome{Result: res, DryRun: mode.DryRun}
	if out.Report, out.ReportID, err = findReport(res.Compilation, cfg); err != nil {
		return nil, err
	}
	if mode.DryRun {
		return out, nil
	}

	out.Stats, err = emit(ctx, workDir, cfg, res.Compilation.Assets, mode.Force)
	if err != nil {
		return nil, err
	}
	return out, nil
}

// emit writes assets under workDir, skipping files unchanged since the
// last recorded emit unless force is set, then records the new state.
func emit(ctx context.Context, workDir string, cfg *config.Config, assets *pipeline.AssetSet, force bool) (pipeline.EmitStats, error) {
	tracker, err := newTracker(workDir, cfg)
	if err != nil {
		return pipeline.EmitStats{}, err
	}

	var prev *incremental.Index
	if !force {
		if prev, err = tracker.Previous(); err != nil {
			log.Warn("ignoring unreadable emit state", "error", err)
			prev = nil
		}
	}

	stats, err := pipeline.NewEmitter(workDir, pipeline.WithPreviousIndex(prev)).Emit(ctx, assets)
	if err != nil {
		return stats, err
	}
	if err := tracker.Record(stats.Index); err != nil {
		log.Warn("failed to record emit state", "error", err)
	}
	log.Info("emit finished", "written", stats.Written, "unchanged", stats.Skipped, "bytes", stats.Bytes)
	return stats, nil
}

func newTracker(workDir string, cfg *config.Config) (*incremental.Tracker, error) {
	outdir := cfg.Build.Outdir
	if filepath.IsAbs(outdir) {
		rel, err := filepath.Rel(workDir, outdir)
		if err != nil {
			return nil, fmt.Errorf("output directory %s: %w", outdir, err)
		}
		outdir = rel
	}
	return incremental.NewTracker(workDir, outdir, cfg.Scan.Ignore)
}

// findReport parses the size report the reporter stored in c. It returns
// nil when the report observer is disabled.
func findReport(c *pipeline.Compilation, cfg *config.Config) (*sizereport.Report, string, error) {
	if !cfg.IsObserverEnabled(config.ObserverBuildSize) {
		return nil, "", nil
	}
	reporter, err := newReporter(cfg)
	if err != nil {
		return nil, "", err
	}
	id := reporter.ReportPath(c.OutputPath)
	report, err := readReport(c, id)
	if err != nil {
		return nil, "", err
	}
	return report, id, nil
}

// readReport parses the size report stored under id.
func readReport(c *pipeline.Compilation, id string) (*sizereport.Report, error) {
	asset, ok := c.Assets.Get(id)
	if !ok {
		return nil, fmt.Errorf("size report %s missing after emit phase", id)
	}
	data, err := asset.Source()
	if err != nil {
		return nil, err
	}
	report, err := sizereport.ParseReport(data)
	if err != nil {
		return nil, fmt.Errorf("size report %s: %w", id, err)
	}
	return report, nil
}

func newReporter(cfg *config.Config) (*sizereport.Reporter, error) {
	opts, err := registry.ReportOptions(cfg)
	if err != nil {
		return nil, err
	}
	return sizereport.New(opts)
}
