// Package config provides configuration management for buildsize.
// It supports multi-layer configuration with precedence:
//  1. Built-in defaults (lowest priority)
//  2. Global user config (~/.config/buildsize/config.toml)
//  3. Project config (.buildsize/config.toml or buildsize.toml)
//  4. Environment variables (BUILDSIZE_*)
//  5. CLI flags (highest priority)
package config

import (
	"fmt"
	"slices"
	"time"
)

// Observer names understood by the registry.
const (
	ObserverManifest  = "manifest"
	ObserverBuildSize = "build-size"
)

// Config is the main configuration struct for buildsize.
type Config struct {
	// Observers configures which before-emit observers run.
	Observers ObserversConfig `toml:"observers"`

	// Build configures the esbuild invocation.
	Build BuildConfig `toml:"build"`

	// Report configures the build-size report.
	Report ReportConfig `toml:"report"`

	// Manifest configures the asset manifest.
	Manifest ManifestConfig `toml:"manifest"`

	// Watch configures watch mode.
	Watch WatchConfig `toml:"watch"`

	// Scan configures how existing output directories are read.
	Scan ScanConfig `toml:"scan"`
}

// ObserversConfig lists observers to disable regardless of their own
// enabled flag.
type ObserversConfig struct {
	Disabled []string `toml:"disabled"`
}

// BuildConfig holds esbuild settings.
type BuildConfig struct {
	// EntryPoints are the bundle entry files. Empty means detect.
	EntryPoints []string `toml:"entry_points"`

	// Outdir is the output directory, relative to the project.
	Outdir string `toml:"outdir"`

	Bundle    *bool `toml:"bundle"`
	Minify    *bool `toml:"minify"`
	Sourcemap *bool `toml:"sourcemap"`
	Splitting *bool `toml:"splitting"`

	// Format is "esm", "cjs" or "iife".
	Format string `toml:"format"`

	// Platform is "browser", "node" or "neutral".
	Platform string `toml:"platform"`

	// Target is an ECMAScript version such as "es2020", or "esnext".
	Target string `toml:"target"`

	// Loaders maps extensions to esbuild loader names.
	Loaders map[string]string `toml:"loaders"`

	// External lists imports left out of the bundle.
	External []string `toml:"external"`
}

// ReportConfig holds build-size report settings.
type ReportConfig struct {
	Enabled *bool `toml:"enabled"`

	// Filename is the report path inside the output directory.
	Filename string `toml:"filename"`

	// TabSize is the JSON indentation. Zero means the default of 4.
	TabSize int `toml:"tab_size"`

	// OnConflict is "overwrite" or "error".
	OnConflict string `toml:"on_conflict"`
}

// ManifestConfig holds asset manifest settings.
type ManifestConfig struct {
	Enabled  *bool  `toml:"enabled"`
	Filename string `toml:"filename"`
}

// WatchConfig holds watch mode settings.
type WatchConfig struct {
	// Debounce is a duration string such as "300ms".
	Debounce string `toml:"debounce"`

	// Dirs are the directories watched for changes. Empty means the
	// directories holding the entry points.
	Dirs []string `toml:"dirs"`
}

// ScanConfig holds output scanning settings.
type ScanConfig struct {
	// Ignore holds doublestar patterns excluded from scanned reports.
	Ignore []string `toml:"ignore"`
}

// NewConfig creates a new Config with built-in defaults.
// The report is on and the manifest is off.
func NewConfig() *Config {
	trueVal := true
	falseVal := false
	return &Config{
		Observers: ObserversConfig{
			Disabled: []string{},
		},
		Build: BuildConfig{
			Outdir:    "dist",
			Bundle:    &trueVal,
			Minify:    &falseVal,
			Sourcemap: &falseVal,
			Splitting: &falseVal,
			Format:    "esm",
			Platform:  "browser",
			Target:    "esnext",
		},
		Report: ReportConfig{
			Enabled:    &trueVal,
			Filename:   "build-size.json",
			TabSize:    4,
			OnConflict: "overwrite",
		},
		Manifest: ManifestConfig{
			Enabled:  &falseVal,
			Filename: "asset-manifest.json",
		},
		Watch: WatchConfig{
			Debounce: "300ms",
		},
		Scan: ScanConfig{
			Ignore: []string{"**/*.map"},
		},
	}
}

// IsObserverEnabled checks if an observer is enabled in the configuration.
func (c *Config) IsObserverEnabled(name string) bool {
	// Explicit disabled list wins
	if slices.Contains(c.Observers.Disabled, name) {
		return false
	}

	switch name {
	case ObserverBuildSize:
		return c.Report.Enabled != nil && *c.Report.Enabled
	case ObserverManifest:
		return c.Manifest.Enabled != nil && *c.Manifest.Enabled
	}
	return false
}

// EnabledObservers returns the enabled observer names in run order.
// The manifest runs first so the report measures it.
func (c *Config) EnabledObservers() []string {
	var enabled []string
	for _, name := range []string{ObserverManifest, ObserverBuildSize} {
		if c.IsObserverEnabled(name) {
			enabled = append(enabled, name)
		}
	}
	return enabled
}

// DebounceDuration parses Watch.Debounce.
func (c *Config) DebounceDuration() (time.Duration, error) {
	if c.Watch.Debounce == "" {
		return 300 * time.Millisecond, nil
	}
	d, err := time.ParseDuration(c.Watch.Debounce)
	if err != nil {
		return 0, fmt.Errorf("invalid watch.debounce %q: %w", c.Watch.Debounce, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("invalid watch.debounce %q: negative", c.Watch.Debounce)
	}
	return d, nil
}

// BoolValue dereferences a tri-state flag, treating nil as false.
func BoolValue(b *bool) bool {
	return b != nil && *b
}

// Merge merges another config into this one (other takes precedence).
func (c *Config) Merge(other *Config) {
	if other == nil {
		return
	}

	if len(other.Observers.Disabled) > 0 {
		c.Observers.Disabled = append(c.Observers.Disabled, other.Observers.Disabled...)
	}

	// Build
	if len(other.Build.EntryPoints) > 0 {
		c.Build.EntryPoints = other.Build.EntryPoints
	}
	if other.Build.Outdir != "" {
		c.Build.Outdir = other.Build.Outdir
	}
	if other.Build.Bundle != nil {
		c.Build.Bundle = other.Build.Bundle
	}
	if other.Build.Minify != nil {
		c.Build.Minify = other.Build.Minify
	}
	if other.Build.Sourcemap != nil {
		c.Build.Sourcemap = other.Build.Sourcemap
	}
	if other.Build.Splitting != nil {
		c.Build.Splitting = other.Build.Splitting
	}
	if other.Build.Format != "" {
		c.Build.Format = other.Build.Format
	}
	if other.Build.Platform != "" {
		c.Build.Platform = other.Build.Platform
	}
	if other.Build.Target != "" {
		c.Build.Target = other.Build.Target
	}
	if len(other.Build.Loaders) > 0 {
		if c.Build.Loaders == nil {
			c.Build.Loaders = make(map[string]string, len(other.Build.Loaders))
		}
		for ext, loader := range other.Build.Loaders {
			c.Build.Loaders[ext] = loader
		}
	}
	if len(other.Build.External) > 0 {
		c.Build.External = other.Build.External
	}

	// Report
	if other.Report.Enabled != nil {
		c.Report.Enabled = other.Report.Enabled
	}
	if other.Report.Filename != "" {
		c.Report.Filename = other.Report.Filename
	}
	if other.Report.TabSize != 0 {
		c.Report.TabSize = other.Report.TabSize
	}
	if other.Report.OnConflict != "" {
		c.Report.OnConflict = other.Report.OnConflict
	}

	// Manifest
	if other.Manifest.Enabled != nil {
		c.Manifest.Enabled = other.Manifest.Enabled
	}
	if other.Manifest.Filename != "" {
		c.Manifest.Filename = other.Manifest.Filename
	}

	// Watch
	if other.Watch.Debounce != "" {
		c.Watch.Debounce = other.Watch.Debounce
	}
	if len(other.Watch.Dirs) > 0 {
		c.Watch.Dirs = other.Watch.Dirs
	}

	// Scan
	if len(other.Scan.Ignore) > 0 {
		c.Scan.Ignore = other.Scan.Ignore
	}
}
