package manifest

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/albertocavalcante/buildsize/internal/incremental"
	"github.com/albertocavalcante/buildsize/pkg/pipeline"
)

func TestBeforeEmit(t *testing.T) {
	c := pipeline.NewCompilation("dist")
	c.Assets.Set("dist/b.js", pipeline.RawSource("bbb"))
	c.Assets.Set("dist/a.css", pipeline.RawSource("a"))

	if err := New("").BeforeEmit(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	asset, ok := c.Assets.Get("dist/asset-manifest.json")
	if !ok {
		t.Fatalf("manifest missing, keys = %v", c.Assets.Keys())
	}
	data, _ := asset.Source()

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	want := []Entry{
		{Path: "dist/a.css", Size: 1, Hash: incremental.HashBytes([]byte("a"))},
		{Path: "dist/b.js", Size: 3, Hash: incremental.HashBytes([]byte("bbb"))},
	}
	if len(m.Assets) != len(want) {
		t.Fatalf("Assets = %+v", m.Assets)
	}
	for i := range want {
		if m.Assets[i] != want[i] {
			t.Errorf("Assets[%d] = %+v, want %+v", i, m.Assets[i], want[i])
		}
	}
}

func TestBeforeEmitSkipsItself(t *testing.T) {
	c := pipeline.NewCompilation("dist")
	c.Assets.Set("dist/m.json", pipeline.RawSource("stale"))
	c.Assets.Set("dist/a.js", pipeline.RawSource("a"))

	if err := New("m.json").BeforeEmit(context.Background(), c); err != nil {
		t.Fatal(err)
	}
	asset, _ := c.Assets.Get("dist/m.json")
	data, _ := asset.Source()

	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatal(err)
	}
	if len(m.Assets) != 1 || m.Assets[0].Path != "dist/a.js" {
		t.Errorf("Assets = %+v, want only dist/a.js", m.Assets)
	}
}
