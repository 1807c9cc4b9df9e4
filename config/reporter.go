package config

import (
	"archive/zip"
	"bytes"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/maruel/natural"
	"go.uber.org/multierr"

	"docflow/misc"
)

type ReporterConfig struct {
	Destination string `yaml:"destination" sanitize:"path_clean,assure_dir_exists_for_file" validate:"required,filepath"`
}

// Prepare creates empty report. When destination cannot be created report
// goes to temporary directory.
func (conf *ReporterConfig) Prepare() (*Report, error) {
	f, err := os.Create(conf.Destination)
	if err != nil {
		if f, err = os.CreateTemp("", misc.GetAppName()+"-report.*.zip"); err != nil {
			return nil, fmt.Errorf("unable to create report: %w", err)
		}
	}
	return &Report{
		entries:  make(map[string]entry),
		versions: make(map[string]int),
		file:     f,
	}, nil
}

type entry struct {
	source string // path as given, empty for data
	path   string // absolute path
	stamp  time.Time
	data   []byte
}

func (e entry) kind() string {
	if e.source == "" {
		return "data"
	}
	return "path"
}

// Report collects debug report content: configuration, logs, layout pass
// dumps and build results. Nil *Report is valid and ignores everything.
// Not safe for concurrent use.
type Report struct {
	entries  map[string]entry
	versions map[string]int
	file     *os.File
}

// Close writes report archive. Directories stored in the report are
// temporary and are removed once archived.
func (r *Report) Close() (err error) {
	if r == nil || r.file == nil {
		return nil
	}

	err = multierr.Append(r.finalize(), r.file.Close())

	for _, e := range r.entries {
		if e.source == "" {
			continue
		}
		if info, er := os.Stat(e.path); er == nil && info.IsDir() {
			err = multierr.Append(err, os.RemoveAll(e.path))
		}
	}
	return err
}

// Name returns absolute name of report archive.
func (r *Report) Name() string {
	if r == nil || r.file == nil {
		return ""
	}
	if n, err := filepath.Abs(r.file.Name()); err == nil {
		return n
	}
	return r.file.Name()
}

// Store adds file or directory to the report, content is read on Close.
// Storing the same name for different paths is a programming error.
func (r *Report) Store(name, source string) {
	if r == nil {
		return
	}
	if old, exists := r.entries[name]; exists && old.source != source {
		panic(fmt.Sprintf("report entry [%s] already refers to %s, cannot store %s", name, old.source, source))
	}

	e := entry{source: source, path: source, stamp: time.Now()}
	if p, err := filepath.Abs(source); err == nil {
		e.path = p
	}
	r.entries[name] = e
}

// StoreData adds data to the report under name. Repeated names get numbered
// versions: "toc.txt", "toc.1.txt", "toc.2.txt".
func (r *Report) StoreData(name string, data []byte) {
	if r == nil {
		return
	}
	if _, exists := r.entries[name]; exists {
		r.versions[name]++
		ext := path.Ext(name)
		name = fmt.Sprintf("%s.%d%s", strings.TrimSuffix(name, ext), r.versions[name], ext)
	}
	r.entries[name] = entry{data: data, stamp: time.Now()}
}

func (r *Report) finalize() (err error) {
	arc := zip.NewWriter(r.file)
	defer func() {
		err = multierr.Append(err, arc.Close())
	}()

	names := r.sortedNames()
	if err := saveFile(arc, "MANIFEST", time.Now(), r.manifest(names)); err != nil {
		return err
	}

	for _, name := range names {
		e := r.entries[name]
		if e.source == "" {
			if err := saveFile(arc, name, e.stamp, bytes.NewReader(e.data)); err != nil {
				return err
			}
			continue
		}

		info, err := os.Stat(e.path)
		if err != nil {
			// results of failed builds may be absent
			continue
		}
		switch {
		case info.Mode().IsRegular():
			if err := saveFileFrom(arc, name, e.path, info.ModTime()); err != nil {
				return err
			}
		case info.IsDir():
			if err := saveDir(arc, name, e.path); err != nil {
				return err
			}
		}
	}
	return nil
}

// sortedNames returns entry names in natural order so numbered passes follow
// each other.
func (r *Report) sortedNames() []string {
	names := make([]string, 0, len(r.entries))
	for k := range r.entries {
		names = append(names, k)
	}
	slices.SortFunc(names, func(a, b string) int {
		switch {
		case natural.Less(a, b):
			return -1
		case natural.Less(b, a):
			return 1
		}
		return 0
	})
	return names
}

func (r *Report) manifest(names []string) io.Reader {
	buf := new(bytes.Buffer)
	for _, k := range names {
		e := r.entries[k]
		fmt.Fprintf(buf, "%s\t%s\t%s", e.stamp.UTC().Format(time.RFC3339), e.kind(), k)
		if e.source != "" {
			fmt.Fprintf(buf, "\t%s : %s", e.source, e.path)
		}
		buf.WriteByte('\n')
	}
	return buf
}

func saveFile(dst *zip.Writer, name string, t time.Time, src io.Reader) error {
	w, err := dst.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Deflate, Modified: t})
	if err != nil {
		return fmt.Errorf("unable to add %s to report: %w", name, err)
	}
	_, err = io.Copy(w, src)
	return err
}

func saveFileFrom(dst *zip.Writer, name, src string, t time.Time) error {
	f, err := os.Open(src)
	if err != nil {
		return err
	}
	defer f.Close()
	return saveFile(dst, name, t, f)
}

// saveDir stores regular files under dir with dir itself renamed to name.
func saveDir(dst *zip.Writer, name, dir string) error {
	return filepath.WalkDir(dir, func(p string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.Type().IsRegular() {
			return nil
		}
		info, err := d.Info()
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(dir, p)
		if err != nil {
			return err
		}
		return saveFileFrom(dst, path.Join(name, filepath.ToSlash(rel)), p, info.ModTime())
	})
}
