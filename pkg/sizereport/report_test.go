package sizereport

import (
	"bytes"
	"strings"
	"testing"
)

func sampleReport() *Report {
	r := NewReport()
	r.set("app.js", 1000)
	r.set("app.css", 200)
	r.set("vendor.js", 4000)
	r.set(TotalKey, 5200)
	return r
}

func TestMarshalIndent(t *testing.T) {
	r := NewReport()
	r.set("app.js", 1000)
	r.set(TotalKey, 1000)

	tests := []struct {
		tab  int
		want string
	}{
		{0, `{"app.js":1000,"total":1000}`},
		{2, "{\n  \"app.js\": 1000,\n  \"total\": 1000\n}"},
		{4, "{\n    \"app.js\": 1000,\n    \"total\": 1000\n}"},
		{12, "{\n" + strings.Repeat(" ", 10) + "\"app.js\": 1000,\n" + strings.Repeat(" ", 10) + "\"total\": 1000\n}"},
	}

	for _, tt := range tests {
		got, err := r.MarshalIndent(tt.tab)
		if err != nil {
			t.Fatal(err)
		}
		if string(got) != tt.want {
			t.Errorf("MarshalIndent(%d) = %q, want %q", tt.tab, got, tt.want)
		}
	}
}

func TestMarshalEmptyAndEscaping(t *testing.T) {
	empty, err := NewReport().MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	if string(empty) != "{}" {
		t.Errorf("empty report = %s, want {}", empty)
	}

	r := NewReport()
	r.set(`a<b>&"c".js`, 1)
	r.set(TotalKey, 1)
	got, err := r.MarshalJSON()
	if err != nil {
		t.Fatal(err)
	}
	want := `{"a<b>&\"c\".js":1,"total":1}`
	if string(got) != want {
		t.Errorf("MarshalJSON() = %s, want %s", got, want)
	}
}

func TestParseReportRoundTrip(t *testing.T) {
	orig := sampleReport()
	data, err := orig.MarshalIndent(4)
	if err != nil {
		t.Fatal(err)
	}

	parsed, err := ParseReport(data)
	if err != nil {
		t.Fatalf("ParseReport() error = %v", err)
	}

	again, err := parsed.MarshalIndent(4)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(data, again) {
		t.Errorf("round trip changed output:\n%s\n%s", data, again)
	}
	if parsed.Total() != 5200 {
		t.Errorf("Total() = %d, want 5200", parsed.Total())
	}
}

func TestParseReportErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
	}{
		{"not json", "nope"},
		{"array", "[1,2]"},
		{"missing total", `{"a.js": 1}`},
		{"string value", `{"a.js": "1", "total": 1}`},
		{"negative", `{"a.js": -1, "total": 0}`},
		{"fraction", `{"a.js": 1.5, "total": 1}`},
		{"trailing data", `{"total": 0} {}`},
		{"truncated", `{"total": 0`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := ParseReport([]byte(tt.input)); err == nil {
				t.Errorf("ParseReport(%q) should fail", tt.input)
			}
		})
	}
}

func TestAssetsExcludesTotal(t *testing.T) {
	r := sampleReport()
	for _, e := range r.Assets() {
		if e.Name == TotalKey {
			t.Fatal("Assets() should not include total")
		}
	}
	if got := len(r.Entries()); got != 4 {
		t.Errorf("len(Entries()) = %d, want 4", got)
	}
}

func TestSortedAssets(t *testing.T) {
	r := sampleReport()

	tests := []struct {
		by   string
		want []string
	}{
		{"", []string{"app.js", "app.css", "vendor.js"}},
		{"none", []string{"app.js", "app.css", "vendor.js"}},
		{"size", []string{"vendor.js", "app.js", "app.css"}},
		{"name", []string{"app.css", "app.js", "vendor.js"}},
	}

	for _, tt := range tests {
		var got []string
		for _, e := range r.SortedAssets(tt.by) {
			got = append(got, e.Name)
		}
		if strings.Join(got, ",") != strings.Join(tt.want, ",") {
			t.Errorf("SortedAssets(%q) = %v, want %v", tt.by, got, tt.want)
		}
	}
}
