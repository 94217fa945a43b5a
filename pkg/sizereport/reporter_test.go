package sizereport

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/albertocavalcante/buildsize/pkg/pipeline"
)

// brokenAsset fails every size query.
type brokenAsset struct{ err error }

func (b brokenAsset) Size() (int64, error)    { return 0, b.err }
func (b brokenAsset) Source() ([]byte, error) { return nil, b.err }

func newCompilation(base string, assets ...any) *pipeline.Compilation {
	c := pipeline.NewCompilation(base)
	for i := 0; i+1 < len(assets); i += 2 {
		id := assets[i].(string)
		switch v := assets[i+1].(type) {
		case int:
			c.Assets.Set(id, pipeline.RawSource(bytes.Repeat([]byte("x"), v)))
		case pipeline.Asset:
			c.Assets.Set(id, v)
		}
	}
	return c
}

func mustNew(t *testing.T, opts Options) *Reporter {
	t.Helper()
	r, err := New(opts)
	if err != nil {
		t.Fatalf("New(%+v) error = %v", opts, err)
	}
	return r
}

func reportContent(t *testing.T, c *pipeline.Compilation, id string) string {
	t.Helper()
	a, ok := c.Assets.Get(id)
	if !ok {
		t.Fatalf("asset %q not found; have %v", id, c.Assets.Keys())
	}
	b, err := a.Source()
	if err != nil {
		t.Fatal(err)
	}
	return string(b)
}

func TestBeforeEmitEndToEnd(t *testing.T) {
	c := newCompilation("dist", "app.js", 1000, "app.css", 200)
	r := mustNew(t, Options{})

	if err := r.BeforeEmit(context.Background(), c); err != nil {
		t.Fatalf("BeforeEmit() error = %v", err)
	}

	want := "{\n    \"app.js\": 1000,\n    \"app.css\": 200,\n    \"total\": 1200\n}"
	if got := reportContent(t, c, "dist/build-size.json"); got != want {
		t.Errorf("report =\n%s\nwant\n%s", got, want)
	}

	wantKeys := []string{"app.js", "app.css", "dist/build-size.json"}
	if got := c.Assets.Keys(); strings.Join(got, ",") != strings.Join(wantKeys, ",") {
		t.Errorf("Keys() = %v, want %v", got, wantKeys)
	}
}

func TestBeforeEmitCountsAndTotal(t *testing.T) {
	tests := []struct {
		name   string
		sizes  []int
		total  int64
		report string
	}{
		{"empty", nil, 0, "{\n    \"total\": 0\n}"},
		{"single", []int{7}, 7, ""},
		{"many", []int{1, 2, 3, 4, 5}, 15, ""},
		{"zero sized", []int{0, 0, 10}, 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := pipeline.NewCompilation("out")
			for i, n := range tt.sizes {
				c.Assets.Set("a"+strings.Repeat("x", i)+".js", pipeline.RawSource(make([]byte, n)))
			}

			r := mustNew(t, Options{})
			report, err := r.Measure(context.Background(), c.Assets)
			if err != nil {
				t.Fatal(err)
			}
			if report.Len() != len(tt.sizes)+1 {
				t.Errorf("Len() = %d, want %d", report.Len(), len(tt.sizes)+1)
			}
			if report.Total() != tt.total {
				t.Errorf("Total() = %d, want %d", report.Total(), tt.total)
			}

			if err := r.BeforeEmit(context.Background(), c); err != nil {
				t.Fatal(err)
			}
			if tt.report != "" {
				if got := reportContent(t, c, "out/build-size.json"); got != tt.report {
					t.Errorf("report = %q, want %q", got, tt.report)
				}
			}
		})
	}
}

func TestBeforeEmitCustomOptions(t *testing.T) {
	c := newCompilation("dist", "a.js", 3)
	r := mustNew(t, Options{Filename: "sizes.json", TabSize: 2})

	if err := r.BeforeEmit(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	want := "{\n  \"a.js\": 3,\n  \"total\": 3\n}"
	if got := reportContent(t, c, "dist/sizes.json"); got != want {
		t.Errorf("report = %q, want %q", got, want)
	}
}

func TestBeforeEmitIdempotent(t *testing.T) {
	r := mustNew(t, Options{})
	first := newCompilation("dist", "vendor.js", 4096, "app.js", 512, "index.html", 90)
	second := newCompilation("dist", "vendor.js", 4096, "app.js", 512, "index.html", 90)

	if err := r.BeforeEmit(context.Background(), first); err != nil {
		t.Fatal(err)
	}
	if err := r.BeforeEmit(context.Background(), second); err != nil {
		t.Fatal(err)
	}

	a := reportContent(t, first, "dist/build-size.json")
	b := reportContent(t, second, "dist/build-size.json")
	if a != b {
		t.Errorf("reports differ:\n%s\n%s", a, b)
	}
}

func TestBeforeEmitReportNotCountedInItself(t *testing.T) {
	c := newCompilation("dist", "a.js", 10)
	r := mustNew(t, Options{})
	if err := r.BeforeEmit(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	report, err := ParseReport([]byte(reportContent(t, c, "dist/build-size.json")))
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := report.Size("dist/build-size.json"); ok {
		t.Error("report should not contain its own identifier")
	}
	if report.Total() != 10 {
		t.Errorf("Total() = %d, want 10", report.Total())
	}
}

func TestBeforeEmitAssetNamedTotal(t *testing.T) {
	c := newCompilation("dist", "total", 5, "app.js", 10)
	r := mustNew(t, Options{TabSize: 1})
	if err := r.BeforeEmit(context.Background(), c); err != nil {
		t.Fatal(err)
	}

	want := "{\n \"total\": 15,\n \"app.js\": 10\n}"
	if got := reportContent(t, c, "dist/build-size.json"); got != want {
		t.Errorf("report = %q, want %q", got, want)
	}
}

func TestBeforeEmitConflict(t *testing.T) {
	t.Run("overwrite", func(t *testing.T) {
		c := newCompilation("dist", "dist/build-size.json", 3, "a.js", 1)
		r := mustNew(t, Options{})
		if err := r.BeforeEmit(context.Background(), c); err != nil {
			t.Fatal(err)
		}
		got := reportContent(t, c, "dist/build-size.json")
		if !strings.Contains(got, `"total": 4`) {
			t.Errorf("report = %s, want the stale report measured and replaced", got)
		}
		if c.Assets.Keys()[0] != "dist/build-size.json" {
			t.Errorf("replacement should keep position, keys = %v", c.Assets.Keys())
		}
	})

	t.Run("error", func(t *testing.T) {
		stale := pipeline.RawSource("{}")
		c := newCompilation("dist", "dist/build-size.json", stale, "a.js", 1)
		r := mustNew(t, Options{OnConflict: ConflictError})

		err := r.BeforeEmit(context.Background(), c)
		if !errors.Is(err, ErrConflict) {
			t.Fatalf("BeforeEmit() error = %v, want ErrConflict", err)
		}
		if got := reportContent(t, c, "dist/build-size.json"); got != "{}" {
			t.Errorf("existing asset was modified: %q", got)
		}
		if c.Assets.Len() != 2 {
			t.Errorf("Len() = %d, want 2", c.Assets.Len())
		}
	})

	t.Run("error with unclean identifier", func(t *testing.T) {
		stale := pipeline.RawSource("{}")
		c := newCompilation("dist/", "dist/./build-size.json", stale, "a.js", 1)
		r := mustNew(t, Options{OnConflict: ConflictError})

		if err := r.BeforeEmit(context.Background(), c); !errors.Is(err, ErrConflict) {
			t.Fatalf("BeforeEmit() error = %v, want ErrConflict", err)
		}
		if c.Assets.Len() != 2 {
			t.Errorf("Len() = %d, want 2", c.Assets.Len())
		}
	})
}

func TestBeforeEmitSizeFailure(t *testing.T) {
	boom := errors.New("disk gone")
	c := newCompilation("dist", "a.js", 1, "b.js", brokenAsset{boom}, "c.js", 2)
	r := mustNew(t, Options{})

	err := r.BeforeEmit(context.Background(), c)
	var emitErr *EmitError
	if !errors.As(err, &emitErr) {
		t.Fatalf("BeforeEmit() error = %v, want *EmitError", err)
	}
	if emitErr.Op != "size" || emitErr.Asset != "b.js" {
		t.Errorf("EmitError = %+v, want size failure on b.js", emitErr)
	}
	if !errors.Is(err, boom) {
		t.Error("EmitError should unwrap to the underlying error")
	}
	if c.Assets.Has("dist/build-size.json") {
		t.Error("report must not be inserted after a size failure")
	}
}

func TestBeforeEmitCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	c := newCompilation("dist", "a.js", 1)
	r := mustNew(t, Options{})
	if err := r.BeforeEmit(ctx, c); !errors.Is(err, context.Canceled) {
		t.Fatalf("BeforeEmit() error = %v, want context.Canceled", err)
	}
	if c.Assets.Len() != 1 {
		t.Error("canceled emit must leave the set untouched")
	}
}

func TestApplyTapsBeforeEmit(t *testing.T) {
	h := pipeline.NewHooks()
	h.Apply(mustNew(t, Options{}))

	taps := h.BeforeEmitTaps()
	if len(taps) != 1 || taps[0] != Name {
		t.Fatalf("BeforeEmitTaps() = %v, want [%s]", taps, Name)
	}

	c := newCompilation("", "a.js", 2)
	if _, err := pipeline.Run(context.Background(), h, c, nil); err != nil {
		t.Fatal(err)
	}
	if !c.Assets.Has("./build-size.json") {
		t.Errorf("Keys() = %v, want ./build-size.json", c.Assets.Keys())
	}
}

func TestReporterOptionsDefaults(t *testing.T) {
	r := mustNew(t, Options{})
	got := r.Options()
	if got.Filename != DefaultFilename || got.TabSize != DefaultTabSize || got.OnConflict != ConflictOverwrite {
		t.Errorf("Options() = %+v", got)
	}
	if !strings.HasSuffix(r.ReportPath("build"), "/build-size.json") {
		t.Errorf("ReportPath() = %q", r.ReportPath("build"))
	}
}
