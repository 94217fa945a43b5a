// Package manifest provides a before-emit observer that records every
// output asset with its size and content digest in a JSON manifest.
package manifest

import (
	"context"
	"encoding/json"
	"fmt"
	"path"
	"slices"

	"github.com/albertocavalcante/buildsize/internal/incremental"
	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
)

// Name is the tap name the manifest registers under.
const Name = "manifest"

// DefaultFilename is the manifest file name when none is configured.
const DefaultFilename = "asset-manifest.json"

// Entry describes one asset.
type Entry struct {
	Path string `json:"path"`
	Size int64  `json:"size"`
	Hash string `json:"hash"`
}

// Manifest is the document written to the output directory.
type Manifest struct {
	Assets []Entry `json:"assets"`
}

// Observer writes the manifest.
type Observer struct {
	filename string
}

// New returns a manifest observer writing to filename under the output path.
func New(filename string) *Observer {
	if filename == "" {
		filename = DefaultFilename
	}
	return &Observer{filename: filename}
}

// Name implements pipeline.Observer.
func (o *Observer) Name() string { return Name }

// Apply taps the before-emit hook.
func (o *Observer) Apply(h *pipeline.Hooks) {
	h.TapBeforeEmit(Name, o.BeforeEmit)
}

// Build computes the manifest for assets, sorted by path.
func Build(assets *pipeline.AssetSet) (*Manifest, error) {
	m := &Manifest{Assets: make([]Entry, 0, assets.Len())}
	var failure error
	assets.Range(func(id string, a pipeline.Asset) bool {
		data, err := a.Source()
		if err != nil {
			failure = fmt.Errorf("failed to read asset %s: %w", id, err)
			return false
		}
		m.Assets = append(m.Assets, Entry{
			Path: id,
			Size: int64(len(data)),
			Hash: incremental.HashBytes(data),
		})
		return true
	})
	if failure != nil {
		return nil, failure
	}
	slices.SortFunc(m.Assets, func(a, b Entry) int {
		switch {
		case a.Path < b.Path:
			return -1
		case a.Path > b.Path:
			return 1
		}
		return 0
	})
	return m, nil
}

// BeforeEmit implements pipeline.Observer.
func (o *Observer) BeforeEmit(ctx context.Context, c *pipeline.Compilation) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	id := path.Clean(sizereport.ReportPath(c.OutputPath, o.filename))

	m, err := Build(c.Assets)
	if err != nil {
		return err
	}
	// A manifest from an earlier observer or build never lists itself.
	m.Assets = slices.DeleteFunc(m.Assets, func(e Entry) bool { return e.Path == id })

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode manifest: %w", err)
	}

	log.Component(Name).Debug("asset manifest", "asset", id, "entries", len(m.Assets))
	c.Assets.Set(id, pipeline.NewRawSource(append(data, '\n')))
	return nil
}

var (
	_ pipeline.Observer = (*Observer)(nil)
	_ pipeline.Plugin   = (*Observer)(nil)
)
