package esbuildhost

import (
	"fmt"
	"path/filepath"

	"github.com/albertocavalcante/buildsize/pkg/pipeline"
	"github.com/evanw/esbuild/pkg/api"
)

// outputAsset is an esbuild output file held in an asset set.
type outputAsset struct {
	file api.OutputFile
}

func (a outputAsset) Size() (int64, error)    { return int64(len(a.file.Contents)), nil }
func (a outputAsset) Source() ([]byte, error) { return a.file.Contents, nil }

// Identifier converts an absolute esbuild output path into an asset
// identifier: relative to workDir, with forward slashes. Paths outside
// workDir keep their absolute form.
func Identifier(workDir, path string) string {
	rel, err := filepath.Rel(workDir, path)
	if err != nil || !filepath.IsLocal(rel) {
		return filepath.ToSlash(path)
	}
	return filepath.ToSlash(rel)
}

// AssetsFromOutputFiles builds an asset set from esbuild output files,
// keeping esbuild's order.
func AssetsFromOutputFiles(files []api.OutputFile, workDir string) *pipeline.AssetSet {
	set := pipeline.NewAssetSet()
	for _, f := range files {
		set.Set(Identifier(workDir, f.Path), outputAsset{file: f})
	}
	return set
}

// OutputFilesFromAssets converts an asset set back into esbuild output
// files with absolute paths under workDir. Assets that came from esbuild
// keep their original hash.
func OutputFilesFromAssets(set *pipeline.AssetSet, workDir string) ([]api.OutputFile, error) {
	files := make([]api.OutputFile, 0, set.Len())
	var failure error
	set.Range(func(id string, a pipeline.Asset) bool {
		if oa, ok := a.(outputAsset); ok && Identifier(workDir, oa.file.Path) == id {
			files = append(files, oa.file)
			return true
		}
		data, err := a.Source()
		if err != nil {
			failure = fmt.Errorf("failed to read asset %s: %w", id, err)
			return false
		}
		path := filepath.FromSlash(id)
		if !filepath.IsAbs(path) {
			path = filepath.Join(workDir, path)
		}
		files = append(files, api.OutputFile{Path: path, Contents: data})
		return true
	})
	if failure != nil {
		return nil, failure
	}
	return files, nil
}
