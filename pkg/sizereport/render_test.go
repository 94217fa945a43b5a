package sizereport

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestRenderFormats(t *testing.T) {
	r := sampleReport()

	t.Run("json", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, r, RenderOptions{Format: FormatJSON, TabSize: 2}); err != nil {
			t.Fatal(err)
		}
		if !strings.HasPrefix(buf.String(), "{\n  \"app.js\": 1000,") {
			t.Errorf("json output = %q", buf.String())
		}
	})

	t.Run("text", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, r, RenderOptions{Format: FormatText, Sort: "size"}); err != nil {
			t.Fatal(err)
		}
		want := "vendor.js\t4000\napp.js\t1000\napp.css\t200\ntotal\t5200\n"
		if buf.String() != want {
			t.Errorf("text output = %q, want %q", buf.String(), want)
		}
	})

	t.Run("table", func(t *testing.T) {
		var buf bytes.Buffer
		if err := Render(&buf, r, RenderOptions{}); err != nil {
			t.Fatal(err)
		}
		out := buf.String()
		for _, want := range []string{"ASSET", "vendor.js", "3.9 KiB", "76.9%", "total", "5200"} {
			if !strings.Contains(out, want) {
				t.Errorf("table output missing %q:\n%s", want, out)
			}
		}
	})
}

func TestParseFormat(t *testing.T) {
	for _, in := range []string{"", "table", "json", "text"} {
		if _, err := ParseFormat(in); err != nil {
			t.Errorf("ParseFormat(%q) error = %v", in, err)
		}
	}
	if _, err := ParseFormat("yaml"); err == nil {
		t.Error("ParseFormat(yaml) should fail")
	}
}

func TestDiff(t *testing.T) {
	older := NewReport()
	older.set("app.js", 1000)
	older.set("old.js", 50)
	older.set("app.css", 200)
	older.set(TotalKey, 1250)

	newer := NewReport()
	newer.set("app.js", 1100)
	newer.set("app.css", 200)
	newer.set("chunk.js", 300)
	newer.set(TotalKey, 1600)

	res := Diff(older, newer)

	want := []Delta{
		{Name: "app.js", Kind: DeltaChanged, Old: 1000, New: 1100},
		{Name: "app.css", Kind: DeltaUnchanged, Old: 200, New: 200},
		{Name: "chunk.js", Kind: DeltaAdded, Old: 0, New: 300},
		{Name: "old.js", Kind: DeltaRemoved, Old: 50, New: 0},
	}
	if len(res.Deltas) != len(want) {
		t.Fatalf("Deltas = %+v, want %+v", res.Deltas, want)
	}
	for i := range want {
		if res.Deltas[i] != want[i] {
			t.Errorf("Deltas[%d] = %+v, want %+v", i, res.Deltas[i], want[i])
		}
	}
	if res.TotalChange() != 350 {
		t.Errorf("TotalChange() = %d, want 350", res.TotalChange())
	}
	if !res.Changed() {
		t.Error("Changed() = false, want true")
	}

	if err := res.ExceedsBudget(400); err != nil {
		t.Errorf("ExceedsBudget(400) = %v, want nil", err)
	}
	if err := res.ExceedsBudget(100); err == nil {
		t.Error("ExceedsBudget(100) should fail")
	}
}

func TestDiffIdentical(t *testing.T) {
	res := Diff(sampleReport(), sampleReport())
	if res.Changed() {
		t.Errorf("Changed() = true for identical reports: %+v", res.Deltas)
	}
	if res.TotalChange() != 0 {
		t.Errorf("TotalChange() = %d, want 0", res.TotalChange())
	}
}

func TestRenderDiff(t *testing.T) {
	older := sampleReport()
	newer := NewReport()
	newer.set("app.js", 900)
	newer.set(TotalKey, 900)
	res := Diff(older, newer)

	var table bytes.Buffer
	if err := RenderDiff(&table, res, false); err != nil {
		t.Fatal(err)
	}
	for _, want := range []string{"removed", "changed", "-100", "-4300"} {
		if !strings.Contains(table.String(), want) {
			t.Errorf("table missing %q:\n%s", want, table.String())
		}
	}

	var js bytes.Buffer
	if err := RenderDiff(&js, res, true); err != nil {
		t.Fatal(err)
	}
	var decoded struct {
		Assets []Delta `json:"assets"`
		Change int64   `json:"change"`
	}
	if err := json.Unmarshal(js.Bytes(), &decoded); err != nil {
		t.Fatalf("invalid JSON: %v\n%s", err, js.String())
	}
	if decoded.Change != -4300 || len(decoded.Assets) != 3 {
		t.Errorf("decoded = %+v", decoded)
	}
}
