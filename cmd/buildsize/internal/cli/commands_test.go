package cli

import (
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"

	"github.com/albertocavalcante/buildsize/pkg/config"
	"github.com/albertocavalcante/buildsize/pkg/sizereport"
)

func TestFlagDefaults(t *testing.T) {
	tests := []struct {
		cmd  string
		flag string
		def  string
	}{
		{cmd: "build", flag: "outdir", def: ""},
		{cmd: "build", flag: "tab-size", def: "0"},
		{cmd: "build", flag: "strict", def: "false"},
		{cmd: "build", flag: "no-report", def: "false"},
		{cmd: "build", flag: "dry-run", def: "false"},
		{cmd: "build", flag: "force", def: "false"},
		{cmd: "build", flag: "format", def: "table"},
		{cmd: "report", flag: "dry-run", def: "false"},
		{cmd: "report", flag: "format", def: "table"},
		{cmd: "diff", flag: "json", def: "false"},
		{cmd: "diff", flag: "fail-over", def: ""},
		{cmd: "status", flag: "json", def: "false"},
		{cmd: "watch", flag: "debounce", def: "0s"},
		{cmd: "watch", flag: "no-color", def: "false"},
		{cmd: "init", flag: "force", def: "false"},
		{cmd: "init", flag: "check", def: "false"},
	}

	for _, tt := range tests {
		t.Run(tt.cmd+"/"+tt.flag, func(t *testing.T) {
			f := findCommand(t, tt.cmd).Flags().Lookup(tt.flag)
			if f == nil {
				t.Fatalf("flag %q not found on %s", tt.flag, tt.cmd)
			}
			if f.DefValue != tt.def {
				t.Errorf("flag %q default = %q, want %q", tt.flag, f.DefValue, tt.def)
			}
			if f.Shorthand != "" {
				t.Errorf("flag %q shorthand = %q, want none", tt.flag, f.Shorthand)
			}
		})
	}
}

func TestBuildWritesReport(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"src/index.js": "export const answer = 42;\n",
	})

	out, err := execute(t, "build", "--dir", root, "--format", "json")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}

	report, err := sizereport.ParseReport([]byte(out))
	if err != nil {
		t.Fatalf("output is not a report: %v\n%s", err, out)
	}
	if got := report.Assets(); len(got) != 1 || got[0].Name != "dist/index.js" {
		t.Errorf("report assets = %+v, want only dist/index.js", got)
	}

	disk, err := os.ReadFile(filepath.Join(root, "dist", "build-size.json"))
	if err != nil {
		t.Fatal(err)
	}
	if out != string(disk)+"\n" {
		t.Errorf("printed report differs from written one:\n%s\nvs\n%s", out, disk)
	}
	info, err := os.Stat(filepath.Join(root, "dist", "index.js"))
	if err != nil {
		t.Fatal(err)
	}
	if size, _ := report.Size("dist/index.js"); size != info.Size() || report.Total() != info.Size() {
		t.Errorf("report size = %d, total = %d, file = %d", size, report.Total(), info.Size())
	}
}

func TestBuildSkipsUnchangedAndTracksStatus(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"src/index.js": "export const answer = 42;\n",
	})

	if out, err := execute(t, "build", "--dir", root); err != nil {
		t.Fatalf("first build: %v\n%s", err, out)
	}
	out, err := execute(t, "build", "--dir", root)
	if err != nil {
		t.Fatalf("second build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "0 written, 2 unchanged, report dist/build-size.json") {
		t.Errorf("second build should skip both assets:\n%s", out)
	}

	out, err = execute(t, "build", "--dir", root, "--force")
	if err != nil {
		t.Fatalf("forced build: %v\n%s", err, out)
	}
	if !strings.Contains(out, "2 written, 0 unchanged") {
		t.Errorf("--force should rewrite both assets:\n%s", out)
	}

	out, err = execute(t, "status", "--dir", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Output is up to date (2 files)") {
		t.Errorf("status = %q", out)
	}

	if err := os.WriteFile(filepath.Join(root, "dist", "index.js"), []byte("tampered\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	out, err = execute(t, "status", "--dir", root, "--json")
	if err != nil {
		t.Fatal(err)
	}
	var status StatusOutput
	if err := json.Unmarshal([]byte(out), &status); err != nil {
		t.Fatalf("status output: %v\n%s", err, out)
	}
	if !status.Stale || !slices.Equal(status.ModifiedFiles, []string{"dist/index.js"}) {
		t.Errorf("status = %+v", status)
	}
}

func TestStatusWithoutState(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{})

	out, err := execute(t, "status", "--dir", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "No state found") {
		t.Errorf("status = %q", out)
	}
}

func TestBuildDryRunWritesNothing(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"index.ts": "export default 1;\n",
	})

	out, err := execute(t, "build", "--dir", root, "--dry-run", "--format", "text", "--filename", "sizes.json")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "dist/index.js\t") || !strings.Contains(out, "dry run: 2 assets not written") {
		t.Errorf("unexpected output:\n%s", out)
	}
	if _, err := os.Stat(filepath.Join(root, "dist")); !os.IsNotExist(err) {
		t.Errorf("dry run created the output directory: %v", err)
	}
}

func TestBuildStrictConflict(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"src/index.js": "export const answer = 42;\n",
	})

	// The manifest claims the report's name first.
	out, err := execute(t, "build", "--dir", root, "--manifest", "--filename", "asset-manifest.json", "--strict")
	if !errors.Is(err, sizereport.ErrConflict) {
		t.Fatalf("build error = %v, want ErrConflict\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(root, "dist")); !os.IsNotExist(err) {
		t.Errorf("failed build wrote output: %v", err)
	}
}

func TestBuildNoReport(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"src/index.js": "export const answer = 42;\n",
	})

	out, err := execute(t, "build", "--dir", root, "--no-report")
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	if _, err := os.Stat(filepath.Join(root, "dist", "build-size.json")); !os.IsNotExist(err) {
		t.Errorf("report written despite --no-report: %v", err)
	}
	if !strings.Contains(out, "1 written, 0 unchanged") {
		t.Errorf("unexpected output:\n%s", out)
	}
}

func TestBuildNoEntryPoints(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{"README.md": "hi\n"})

	if _, err := execute(t, "build", "--dir", root); !errors.Is(err, errNoEntryPoints) {
		t.Errorf("build error = %v, want errNoEntryPoints", err)
	}
}

func TestBuildUsesConfigFile(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"app/main.js": "export const answer = 42;\n",
		config.ConfigFileName: `[build]
entry_points = ["app/main.js"]
outdir = "public"

[report]
filename = "stats/sizes.json"
tab_size = 2
`,
	})

	out, err := execute(t, "build", "--dir", root)
	if err != nil {
		t.Fatalf("build failed: %v\n%s", err, out)
	}
	data, err := os.ReadFile(filepath.Join(root, "public", "stats", "sizes.json"))
	if err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(string(data), "{\n  \"public/main.js\": ") {
		t.Errorf("report = %s", data)
	}
}

func TestReportExistingDirectory(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"out/app.js":          strings.Repeat("a", 1000),
		"out/app.css":         strings.Repeat("b", 200),
		"out/app.js.map":      "{}",
		"out/build-size.json": `{"stale": 1, "total": 1}`,
	})

	out, err := execute(t, "report", "out", "--dir", root, "--dry-run", "--format", "text")
	if err != nil {
		t.Fatalf("report failed: %v\n%s", err, out)
	}
	want := "out/app.css\t200\nout/app.js\t1000\ntotal\t1200\n"
	if out != want {
		t.Errorf("report output = %q, want %q", out, want)
	}

	if _, err := execute(t, "report", "out", "--dir", root); err != nil {
		t.Fatal(err)
	}
	data, err := os.ReadFile(filepath.Join(root, "out", "build-size.json"))
	if err != nil {
		t.Fatal(err)
	}
	wantFile := "{\n    \"out/app.css\": 200,\n    \"out/app.js\": 1000,\n    \"total\": 1200\n}"
	if string(data) != wantFile {
		t.Errorf("written report = %q, want %q", data, wantFile)
	}
}

func TestReportRecordsOutputState(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{
		"dist/app.js":  "console.log(1)",
		"dist/app.css": "body{}",
	})

	if _, err := execute(t, "report", "--dir", root); err != nil {
		t.Fatal(err)
	}
	out, err := execute(t, "status", "--dir", root)
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "Output is up to date (3 files)") {
		t.Errorf("status after report should track the whole directory:\n%s", out)
	}
}

func TestReportEmptyDirectory(t *testing.T) {
	isolate(t)
	root := writeProject(t, map[string]string{})

	if _, err := execute(t, "report", "--dir", root); err == nil {
		t.Error("report on a missing output directory should fail")
	}
}

func TestDiff(t *testing.T) {
	dir := t.TempDir()
	oldPath := filepath.Join(dir, "old.json")
	newPath := filepath.Join(dir, "new.json")
	if err := os.WriteFile(oldPath, []byte(`{"app.js": 1000, "total": 1000}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(newPath, []byte(`{"app.js": 1500, "app.css": 100, "total": 1600}`), 0o644); err != nil {
		t.Fatal(err)
	}

	out, err := execute(t, "diff", oldPath, newPath)
	if err != nil {
		t.Fatalf("diff failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "app.css") || !strings.Contains(out, "+500") {
		t.Errorf("diff output:\n%s", out)
	}

	if _, err := execute(t, "diff", oldPath, newPath, "--fail-over", "1KiB"); err != nil {
		t.Errorf("growth of 600 bytes should fit 1KiB: %v", err)
	}
	if _, err := execute(t, "diff", oldPath, newPath, "--fail-over", "100"); err == nil {
		t.Error("growth of 600 bytes should exceed 100 bytes")
	}
	if _, err := execute(t, "diff", oldPath, newPath, "--fail-over", "lots"); err == nil {
		t.Error("invalid --fail-over should be rejected")
	}
}

func TestParseBudget(t *testing.T) {
	tests := []struct {
		in      string
		want    int64
		wantErr bool
	}{
		{in: "0", want: 0},
		{in: "500B", want: 500},
		{in: "10KiB", want: 10240},
		{in: "8EiB", want: 0, wantErr: true},
		{in: "lots", wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseBudget(tt.in)
			if (err != nil) != tt.wantErr {
				t.Fatalf("parseBudget(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			}
			if !tt.wantErr && got != tt.want {
				t.Errorf("parseBudget(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestDiffRejectsOversizeBudget(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "r.json")
	if err := os.WriteFile(path, []byte(`{"app.js": 1, "total": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "diff", path, path, "--fail-over", "10EiB"); err == nil {
		t.Error("a budget beyond int64 should be rejected, not silently disabled")
	}
}

func TestDiffRejectsInvalidReport(t *testing.T) {
	dir := t.TempDir()
	bad := filepath.Join(dir, "bad.json")
	if err := os.WriteFile(bad, []byte(`{"app.js": 1}`), 0o644); err != nil {
		t.Fatal(err)
	}
	if _, err := execute(t, "diff", bad, bad); err == nil {
		t.Error("report without total should be rejected")
	}
}

func TestWatchDirs(t *testing.T) {
	cfg := config.NewConfig()
	got := watchDirs(cfg, []string{"src/index.ts", "src/worker.ts", "index.js"})
	if want := []string{".", "src"}; !slices.Equal(got, want) {
		t.Errorf("watchDirs() = %v, want %v", got, want)
	}

	cfg.Watch.Dirs = []string{"lib"}
	if got := watchDirs(cfg, []string{"src/index.ts"}); !slices.Equal(got, []string{"lib"}) {
		t.Errorf("configured dirs ignored: %v", got)
	}
}
