package pipeline

import (
	"context"
	"fmt"

	"github.com/albertocavalcante/buildsize/internal/log"
)

// Compilation is the state handed to before-emit observers.
type Compilation struct {
	// Assets is the finalized output set. Observers may add entries.
	Assets *AssetSet

	// OutputPath is the configured output base path. Asset identifiers
	// synthesized by observers are placed under it.
	OutputPath string
}

// NewCompilation creates a compilation with an empty asset set.
func NewCompilation(outputPath string) *Compilation {
	return &Compilation{
		Assets:     NewAssetSet(),
		OutputPath: outputPath,
	}
}

// BeforeEmitFunc is called once per build after assets are finalized
// and before any of them is written.
type BeforeEmitFunc func(ctx context.Context, c *Compilation) error

// Observer is something that wants to see the finalized asset set.
type Observer interface {
	Name() string
	BeforeEmit(ctx context.Context, c *Compilation) error
}

// Plugin registers itself on a Hooks table.
type Plugin interface {
	Apply(h *Hooks)
}

// ObserverPlugin adapts an Observer into a Plugin that taps BeforeEmit.
func ObserverPlugin(o Observer) Plugin {
	return observerPlugin{o}
}

type observerPlugin struct{ o Observer }

func (p observerPlugin) Apply(h *Hooks) { h.TapBeforeEmit(p.o.Name(), p.o.BeforeEmit) }

type tap struct {
	name string
	fn   BeforeEmitFunc
}

// Hooks holds the lifecycle callbacks for one build pipeline.
type Hooks struct {
	beforeEmit []tap
}

// NewHooks creates an empty hook table.
func NewHooks() *Hooks {
	return &Hooks{}
}

// TapBeforeEmit registers fn under name. Taps run in registration order.
func (h *Hooks) TapBeforeEmit(name string, fn BeforeEmitFunc) {
	h.beforeEmit = append(h.beforeEmit, tap{name: name, fn: fn})
}

// BeforeEmitTaps returns the registered tap names in order.
func (h *Hooks) BeforeEmitTaps() []string {
	names := make([]string, len(h.beforeEmit))
	for i, t := range h.beforeEmit {
		names[i] = t.name
	}
	return names
}

// CallBeforeEmit runs every before-emit tap synchronously. The first failing
// tap stops the chain and its error is returned wrapped in a *TapError.
func (h *Hooks) CallBeforeEmit(ctx context.Context, c *Compilation) error {
	for _, t := range h.beforeEmit {
		if err := ctx.Err(); err != nil {
			return err
		}
		log.V(4).Debug("calling before-emit tap", "tap", t.name, "assets", c.Assets.Len())
		if err := t.fn(ctx, c); err != nil {
			return &TapError{Tap: t.name, Err: err}
		}
	}
	return nil
}

// Apply registers each plugin on h.
func (h *Hooks) Apply(plugins ...Plugin) {
	for _, p := range plugins {
		p.Apply(h)
	}
}

// TapError reports which observer failed during the emit phase.
type TapError struct {
	Tap string
	Err error
}

func (e *TapError) Error() string {
	return fmt.Sprintf("before-emit %s: %v", e.Tap, e.Err)
}

func (e *TapError) Unwrap() error { return e.Err }

// Run executes the emit phase: it calls the before-emit taps and, only if all
// of them succeed, hands the asset set to the emitter. A nil emitter skips
// writing, which is useful for dry runs.
func Run(ctx context.Context, h *Hooks, c *Compilation, e *Emitter) (EmitStats, error) {
	if err := h.CallBeforeEmit(ctx, c); err != nil {
		return EmitStats{}, err
	}
	if e == nil {
		return EmitStats{}, nil
	}
	return e.Emit(ctx, c.Assets)
}
