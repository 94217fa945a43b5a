// Package esbuildhost drives an esbuild build whose emit phase is owned by the
// pipeline package. esbuild runs with Write disabled; its output files become
// the compilation's asset set, before-emit observers run over it, and the
// caller decides how to persist the result.
package esbuildhost

import (
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/evanw/esbuild/pkg/api"
)

// Options is the subset of esbuild's build options buildsize exposes.
// Enumerated settings are plain strings so they can come from config files.
type Options struct {
	EntryPoints []string
	Outdir      string

	// WorkDir is the directory identifiers are made relative to.
	// Empty means the process working directory.
	WorkDir string

	Bundle    bool
	Minify    bool
	Sourcemap bool
	Splitting bool

	Format   string // esm, cjs, iife
	Platform string // browser, node, neutral
	Target   string // esnext, es2015 .. es2022

	// Loaders maps file extensions (".svg") to loader names ("file").
	Loaders  map[string]string
	External []string
}

// AbsWorkDir returns WorkDir as an absolute path.
func (o Options) AbsWorkDir() (string, error) {
	if o.WorkDir == "" {
		return os.Getwd()
	}
	return filepath.Abs(o.WorkDir)
}

// BuildOptions converts o into esbuild options. Write is always false and
// the metafile is always requested.
func (o Options) BuildOptions() (api.BuildOptions, error) {
	if len(o.EntryPoints) == 0 {
		return api.BuildOptions{}, fmt.Errorf("no entry points")
	}
	if o.Outdir == "" {
		return api.BuildOptions{}, fmt.Errorf("no output directory")
	}

	workDir, err := o.AbsWorkDir()
	if err != nil {
		return api.BuildOptions{}, fmt.Errorf("failed to resolve working directory: %w", err)
	}

	format, err := parseFormat(o.Format)
	if err != nil {
		return api.BuildOptions{}, err
	}
	platform, err := parsePlatform(o.Platform)
	if err != nil {
		return api.BuildOptions{}, err
	}
	target, err := parseTarget(o.Target)
	if err != nil {
		return api.BuildOptions{}, err
	}

	var loaders map[string]api.Loader
	if len(o.Loaders) > 0 {
		loaders = make(map[string]api.Loader, len(o.Loaders))
		for _, ext := range slices.Sorted(maps.Keys(o.Loaders)) {
			l, err := ParseLoader(o.Loaders[ext])
			if err != nil {
				return api.BuildOptions{}, fmt.Errorf("loader for %s: %w", ext, err)
			}
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			loaders[ext] = l
		}
	}

	sourcemap := api.SourceMapNone
	if o.Sourcemap {
		sourcemap = api.SourceMapLinked
	}

	return api.BuildOptions{
		EntryPoints:       o.EntryPoints,
		Outdir:            o.Outdir,
		AbsWorkingDir:     workDir,
		Bundle:            o.Bundle,
		Splitting:         o.Splitting,
		MinifyWhitespace:  o.Minify,
		MinifyIdentifiers: o.Minify,
		MinifySyntax:      o.Minify,
		Sourcemap:         sourcemap,
		Format:            format,
		Platform:          platform,
		Target:            target,
		Loader:            loaders,
		External:          o.External,
		Write:             false,
		Metafile:          true,
		LogLevel:          api.LogLevelSilent,
	}, nil
}

func parseFormat(s string) (api.Format, error) {
	switch strings.ToLower(s) {
	case "", "esm":
		return api.FormatESModule, nil
	case "cjs":
		return api.FormatCommonJS, nil
	case "iife":
		return api.FormatIIFE, nil
	default:
		return api.FormatDefault, fmt.Errorf("unknown format %q (valid: esm, cjs, iife)", s)
	}
}

func parsePlatform(s string) (api.Platform, error) {
	switch strings.ToLower(s) {
	case "", "browser":
		return api.PlatformBrowser, nil
	case "node":
		return api.PlatformNode, nil
	case "neutral":
		return api.PlatformNeutral, nil
	default:
		return api.PlatformBrowser, fmt.Errorf("unknown platform %q (valid: browser, node, neutral)", s)
	}
}

var targets = map[string]api.Target{
	"esnext": api.ESNext,
	"es2015": api.ES2015,
	"es2016": api.ES2016,
	"es2017": api.ES2017,
	"es2018": api.ES2018,
	"es2019": api.ES2019,
	"es2020": api.ES2020,
	"es2021": api.ES2021,
	"es2022": api.ES2022,
}

func parseTarget(s string) (api.Target, error) {
	if s == "" {
		return api.ESNext, nil
	}
	t, ok := targets[strings.ToLower(s)]
	if !ok {
		return api.DefaultTarget, fmt.Errorf("unknown target %q", s)
	}
	return t, nil
}

var loaderNames = map[string]api.Loader{
	"js":      api.LoaderJS,
	"jsx":     api.LoaderJSX,
	"ts":      api.LoaderTS,
	"tsx":     api.LoaderTSX,
	"json":    api.LoaderJSON,
	"css":     api.LoaderCSS,
	"text":    api.LoaderText,
	"base64":  api.LoaderBase64,
	"dataurl": api.LoaderDataURL,
	"file":    api.LoaderFile,
	"binary":  api.LoaderBinary,
	"copy":    api.LoaderCopy,
	"empty":   api.LoaderEmpty,
}

// ParseLoader maps a loader name to esbuild's loader.
func ParseLoader(name string) (api.Loader, error) {
	l, ok := loaderNames[strings.ToLower(name)]
	if !ok {
		return api.LoaderNone, fmt.Errorf("unknown loader %q", name)
	}
	return l, nil
}
