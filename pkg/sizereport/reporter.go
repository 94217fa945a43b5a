package sizereport

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/dustin/go-humanize"
)

// Name is the tap name the reporter registers under.
const Name = "build-size"

// Reporter measures the asset set and injects the size report.
type Reporter struct {
	opts Options
}

// New validates opts and returns a reporter.
func New(opts Options) (*Reporter, error) {
	o, err := opts.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Reporter{opts: o}, nil
}

// Options returns the effective options, defaults applied.
func (r *Reporter) Options() Options { return r.opts }

// Name implements pipeline.Observer.
func (r *Reporter) Name() string { return Name }

// Apply taps the before-emit hook.
func (r *Reporter) Apply(h *pipeline.Hooks) {
	h.TapBeforeEmit(Name, r.BeforeEmit)
}

// ReportPath returns the identifier the report is stored under for the
// given output base path.
func (r *Reporter) ReportPath(basePath string) string {
	return ReportPath(basePath, r.opts.Filename)
}

// Measure sizes every asset in order and returns the report, total
// included. The set is not modified.
func (r *Reporter) Measure(ctx context.Context, assets *pipeline.AssetSet) (*Report, error) {
	report := NewReport()
	var total int64
	var failure error

	assets.Range(func(id string, a pipeline.Asset) bool {
		if err := ctx.Err(); err != nil {
			failure = err
			return false
		}
		size, err := a.Size()
		if err != nil {
			failure = &EmitError{Op: "size", Asset: id, Err: err}
			return false
		}
		if size < 0 {
			failure = &EmitError{Op: "size", Asset: id, Err: fmt.Errorf("negative size %d", size)}
			return false
		}
		report.set(id, size)
		total += size
		return true
	})
	if failure != nil {
		return nil, failure
	}

	report.set(TotalKey, total)
	return report, nil
}

// BeforeEmit implements pipeline.Observer. On error the asset set is left
// untouched.
func (r *Reporter) BeforeEmit(ctx context.Context, c *pipeline.Compilation) error {
	logger := log.Component(Name)
	id := r.ReportPath(c.OutputPath)

	if c.Assets.Has(id) {
		if r.opts.OnConflict == ConflictError {
			return fmt.Errorf("%w: %s", ErrConflict, id)
		}
		logger.Warn("overwriting existing asset with size report", "asset", id)
	}

	report, err := r.Measure(ctx, c.Assets)
	if err != nil {
		var emitErr *EmitError
		if errors.As(err, &emitErr) {
			logger.Error("measuring assets failed", "asset", emitErr.Asset, "error", emitErr.Err)
		}
		return err
	}

	content, err := report.MarshalIndent(r.opts.TabSize)
	if err != nil {
		return &EmitError{Op: "encode", Err: err}
	}

	entries := report.Assets()
	attrs := make([]any, 0, len(entries))
	for _, e := range entries {
		attrs = append(attrs, slog.Int64(e.Name, e.Size))
	}
	logger.Info("build size", attrs...)
	logger.Info("total size",
		"bytes", report.Total(),
		"human", humanize.IBytes(uint64(report.Total())),
		"assets", len(entries),
		"report", id)

	c.Assets.Set(id, pipeline.RawSource(content))
	return nil
}

var (
	_ pipeline.Observer = (*Reporter)(nil)
	_ pipeline.Plugin   = (*Reporter)(nil)
)
