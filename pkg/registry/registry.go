// Package registry provides an observer factory registry so buildsize only
// loads the before-emit observers that are enabled in configuration.
package registry

import (
	"fmt"

	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/albertocavalcante/buildsize/pkg/manifest"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
	"github.com/albertocavalcante/buildsize/pkg/util"
)

// Factory creates an observer plugin from configuration.
type Factory func(cfg *config.Config) (pipeline.Plugin, error)

// factories maps observer names to their factory functions.
var factories = map[string]Factory{
	config.ObserverManifest:  newManifest,
	config.ObserverBuildSize: newBuildSize,
}

// observerOrder defines the order in which observers are tapped.
// The manifest comes first so the size report measures it.
var observerOrder = []string{
	config.ObserverManifest,
	config.ObserverBuildSize,
}

func newManifest(cfg *config.Config) (pipeline.Plugin, error) {
	return manifest.New(cfg.Manifest.Filename), nil
}

func newBuildSize(cfg *config.Config) (pipeline.Plugin, error) {
	opts, err := ReportOptions(cfg)
	if err != nil {
		return nil, err
	}
	return sizereport.New(opts)
}

// ReportOptions converts the report section of cfg into reporter options.
func ReportOptions(cfg *config.Config) (sizereport.Options, error) {
	policy, err := sizereport.ParseConflictPolicy(cfg.Report.OnConflict)
	if err != nil {
		return sizereport.Options{}, err
	}
	return sizereport.Options{
		Filename:   cfg.Report.Filename,
		TabSize:    cfg.Report.TabSize,
		OnConflict: policy,
	}, nil
}

// Load builds the observers enabled in cfg, in a consistent order.
func Load(cfg *config.Config) ([]pipeline.Plugin, error) {
	var plugins []pipeline.Plugin
	for _, name := range observerOrder {
		if !cfg.IsObserverEnabled(name) {
			continue
		}
		p, err := build(name, cfg)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

// LoadByName builds specific observers by name, in the given order.
func LoadByName(cfg *config.Config, names []string) ([]pipeline.Plugin, error) {
	var plugins []pipeline.Plugin
	for _, name := range names {
		p, err := build(name, cfg)
		if err != nil {
			return nil, err
		}
		plugins = append(plugins, p)
	}
	return plugins, nil
}

func build(name string, cfg *config.Config) (pipeline.Plugin, error) {
	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("unknown observer %q", name)
	}
	p, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("observer %s: %w", name, err)
	}
	return p, nil
}

// Available returns the registered observer names, sorted.
func Available() []string {
	return util.SortedKeys(factories)
}

// IsAvailable checks if an observer factory is registered.
func IsAvailable(name string) bool {
	_, ok := factories[name]
	return ok
}

// Register registers an observer factory. Names outside the built-in
// order are only loaded through LoadByName.
func Register(name string, factory Factory) {
	factories[name] = factory
}
