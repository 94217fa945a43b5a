package esbuildhost

import (
	"context"
	"encoding/json"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/albertocavalcante/buildsize/internal/log"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/evanw/esbuild/pkg/api"
)

// BuildError carries the error messages esbuild reported.
type BuildError struct {
	Messages []api.Message
}

func (e *BuildError) Error() string {
	msgs := make([]string, 0, len(e.Messages))
	for _, m := range e.Messages {
		msgs = append(msgs, FormatMessage(m))
	}
	return fmt.Sprintf("esbuild failed: %s", strings.Join(msgs, "; "))
}

// FormatMessage renders an esbuild message as file:line:col: text.
func FormatMessage(m api.Message) string {
	text := m.Text
	if m.PluginName != "" {
		text = fmt.Sprintf("[plugin %s] %s", m.PluginName, text)
	}
	if m.Location == nil {
		return text
	}
	return fmt.Sprintf("%s:%d:%d: %s", m.Location.File, m.Location.Line, m.Location.Column, text)
}

// Metafile is the part of esbuild's metafile buildsize reads.
type Metafile struct {
	Outputs map[string]MetafileOutput `json:"outputs"`
}

// MetafileOutput describes one output in the metafile.
type MetafileOutput struct {
	Bytes      int    `json:"bytes"`
	EntryPoint string `json:"entryPoint,omitempty"`
}

// ParseMetafile decodes esbuild's metafile JSON. An empty string yields an
// empty metafile.
func ParseMetafile(data string) (*Metafile, error) {
	mf := &Metafile{Outputs: map[string]MetafileOutput{}}
	if data == "" {
		return mf, nil
	}
	if err := json.Unmarshal([]byte(data), mf); err != nil {
		return nil, fmt.Errorf("failed to parse metafile: %w", err)
	}
	return mf, nil
}

// Result is a finished build whose assets have been through before-emit.
type Result struct {
	Compilation *pipeline.Compilation
	Warnings    []api.Message
	Metafile    *Metafile
	WorkDir     string
}

// Build runs esbuild, turns its output files into a compilation, applies
// plugins and calls the before-emit taps. Nothing is written to disk.
func Build(ctx context.Context, opts Options, plugins ...pipeline.Plugin) (*Result, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	buildOpts, err := opts.BuildOptions()
	if err != nil {
		return nil, err
	}
	workDir := buildOpts.AbsWorkingDir

	log.Debug("running esbuild", "entries", len(buildOpts.EntryPoints), "outdir", buildOpts.Outdir)
	res := api.Build(buildOpts)
	if len(res.Errors) > 0 {
		return nil, &BuildError{Messages: res.Errors}
	}
	for _, w := range res.Warnings {
		log.Warn("esbuild warning", "message", FormatMessage(w))
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	mf, err := ParseMetafile(res.Metafile)
	if err != nil {
		return nil, err
	}

	c := pipeline.NewCompilation(OutputPath(workDir, buildOpts.Outdir))
	c.Assets = AssetsFromOutputFiles(res.OutputFiles, workDir)

	h := pipeline.NewHooks()
	h.Apply(plugins...)
	if err := h.CallBeforeEmit(ctx, c); err != nil {
		return nil, err
	}

	return &Result{
		Compilation: c,
		Warnings:    res.Warnings,
		Metafile:    mf,
		WorkDir:     workDir,
	}, nil
}

// OutputPath returns outdir as an identifier relative to workDir.
func OutputPath(workDir, outdir string) string {
	if !filepath.IsAbs(outdir) {
		return filepath.ToSlash(filepath.Clean(outdir))
	}
	return Identifier(workDir, outdir)
}

// Plugin runs obs inside esbuild itself from an OnEnd callback. The
// observer sees the output files as an asset set and anything it adds is
// appended to result.OutputFiles. The build must run with Write disabled
// so the caller persists the final set.
func Plugin(obs pipeline.Observer) api.Plugin {
	return api.Plugin{
		Name: obs.Name(),
		Setup: func(build api.PluginBuild) {
			initial := build.InitialOptions
			if initial.Write {
				log.Warn("esbuild plugin needs Write disabled; synthesized assets will not be written",
					"plugin", obs.Name())
			}

			build.OnEnd(func(result *api.BuildResult) (api.OnEndResult, error) {
				if len(result.Errors) > 0 {
					return api.OnEndResult{}, nil
				}

				workDir := initial.AbsWorkingDir
				if workDir == "" {
					wd, err := Options{}.AbsWorkDir()
					if err != nil {
						return api.OnEndResult{}, err
					}
					workDir = wd
				}
				outdir := initial.Outdir
				if outdir == "" && initial.Outfile != "" {
					outdir = filepath.Dir(initial.Outfile)
				}

				c := pipeline.NewCompilation(OutputPath(workDir, outdir))
				c.Assets = AssetsFromOutputFiles(result.OutputFiles, workDir)

				if err := obs.BeforeEmit(context.Background(), c); err != nil {
					return api.OnEndResult{
						Errors: []api.Message{{PluginName: obs.Name(), Text: err.Error()}},
					}, nil
				}

				files, err := OutputFilesFromAssets(c.Assets, workDir)
				if err != nil {
					return api.OnEndResult{
						Errors: []api.Message{{PluginName: obs.Name(), Text: err.Error()}},
					}, nil
				}
				result.OutputFiles = files
				return api.OnEndResult{}, nil
			})
		},
	}
}
