package config

import (
	"archive/zip"
	"io"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"testing"
)

func newTestReport(t *testing.T) (*Report, string) {
	t.Helper()
	dst := filepath.Join(t.TempDir(), "report.zip")
	r, err := (&ReporterConfig{Destination: dst}).Prepare()
	if err != nil {
		t.Fatalf("Prepare() error = %v", err)
	}
	return r, dst
}

// readReport returns archive entries in stored order and their content.
func readReport(t *testing.T, name string) ([]string, map[string]string) {
	t.Helper()
	arc, err := zip.OpenReader(name)
	if err != nil {
		t.Fatalf("unable to open report: %v", err)
	}
	defer arc.Close()

	var names []string
	content := make(map[string]string)
	for _, f := range arc.File {
		rc, err := f.Open()
		if err != nil {
			t.Fatalf("unable to open %s: %v", f.Name, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			t.Fatalf("unable to read %s: %v", f.Name, err)
		}
		names = append(names, f.Name)
		content[f.Name] = string(data)
	}
	return names, content
}

func TestReport_Close(t *testing.T) {
	r, dst := newTestReport(t)

	work := t.TempDir()
	dir := filepath.Join(work, "build")
	if err := os.MkdirAll(filepath.Join(dir, "pages"), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(dir, "pages", "0001.svg"), []byte("<svg/>"), 0644); err != nil {
		t.Fatal(err)
	}
	result := filepath.Join(work, "book.pdf")
	if err := os.WriteFile(result, []byte("%PDF"), 0644); err != nil {
		t.Fatal(err)
	}

	r.Store("workdir", dir)
	r.Store("result.pdf", result)
	r.Store("missing.pdf", filepath.Join(work, "missing.pdf"))
	r.StoreData("config/docflow.yaml", []byte("version: 1"))

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	if _, err := os.Stat(dir); !os.IsNotExist(err) {
		t.Error("stored directory was not removed")
	}
	if _, err := os.Stat(result); err != nil {
		t.Errorf("stored file must stay: %v", err)
	}

	names, content := readReport(t, dst)
	if names[0] != "MANIFEST" {
		t.Errorf("first entry = %s, want MANIFEST", names[0])
	}
	want := map[string]string{
		"workdir/pages/0001.svg": "<svg/>",
		"result.pdf":             "%PDF",
		"config/docflow.yaml":    "version: 1",
	}
	for name, data := range want {
		if content[name] != data {
			t.Errorf("entry %s = %q, want %q", name, content[name], data)
		}
	}
	if _, ok := content["missing.pdf"]; ok {
		t.Error("absent file must be skipped")
	}
	if !strings.Contains(content["MANIFEST"], "\tdata\tconfig/docflow.yaml\n") {
		t.Errorf("MANIFEST does not list data entry:\n%s", content["MANIFEST"])
	}
}

func TestReport_Nil(t *testing.T) {
	var r *Report
	r.Store("a", "b")
	r.StoreData("a", nil)
	if r.Name() != "" {
		t.Error("nil report has a name")
	}
	if err := r.Close(); err != nil {
		t.Errorf("Close() error = %v", err)
	}

	r = &Report{entries: make(map[string]entry)}
	if err := r.Close(); err != nil {
		t.Errorf("Close() without file error = %v", err)
	}
}

func TestReport_StoreConflict(t *testing.T) {
	r, _ := newTestReport(t)
	defer r.Close()

	r.Store("result", "a.pdf")
	r.Store("result", "a.pdf")

	defer func() {
		if recover() == nil {
			t.Error("Store() of different path under the same name did not panic")
		}
	}()
	r.Store("result", "b.pdf")
}

func TestReport_StoreDataVersions(t *testing.T) {
	r, dst := newTestReport(t)

	r.StoreData("toc/story.txt", []byte("pass 0"))
	r.StoreData("toc/story.txt", []byte("pass 1"))
	r.StoreData("toc/story.txt", []byte("pass 2"))
	r.StoreData("passes/b-10.txt", nil)
	r.StoreData("passes/b-2.txt", nil)

	if err := r.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}

	names, content := readReport(t, dst)
	if i, j := slices.Index(names, "passes/b-2.txt"), slices.Index(names, "passes/b-10.txt"); i < 0 || j < i {
		t.Errorf("passes are not in natural order: %v", names)
	}
	for i, name := range []string{"toc/story.txt", "toc/story.1.txt", "toc/story.2.txt"} {
		if want := "pass " + string(rune('0'+i)); content[name] != want {
			t.Errorf("%s = %q, want %q", name, content[name], want)
		}
	}
}
