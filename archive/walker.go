// Package archive visits story sources packed into zip files.
package archive

import (
	"archive/zip"
	"fmt"
	"path"
	"slices"
	"strings"

	"github.com/maruel/natural"
)

// WalkFunc is called for every matching file, archive is the path given to
// Walk. Returned error stops the walk and is returned by Walk.
type WalkFunc func(archive string, file *zip.File) error

// Walk calls walkFn for regular files of archive whose names start with
// prefix. Files are visited in natural order of their names ("ch2" before
// "ch10") so multi-story archives are built predictably. Archive containing
// absolute names or ".." components is rejected as a whole.
func Walk(archive, prefix string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if err != nil {
		return err
	}
	defer r.Close()

	files, err := Select(&r.Reader, prefix)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := walkFn(archive, f); err != nil {
			return err
		}
	}
	return nil
}

// Select returns regular files under prefix sorted naturally by name.
func Select(r *zip.Reader, prefix string) ([]*zip.File, error) {
	var files []*zip.File
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return nil, fmt.Errorf("zip entry %q: unsafe path (absolute or contains path traversal)", f.Name)
		}
		if f.FileInfo().IsDir() || !strings.HasPrefix(f.Name, prefix) {
			continue
		}
		files = append(files, f)
	}
	slices.SortStableFunc(files, func(a, b *zip.File) int {
		switch {
		case natural.Less(a.Name, b.Name):
			return -1
		case natural.Less(b.Name, a.Name):
			return 1
		}
		return 0
	})
	return files, nil
}

func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.Split(name, "/"), "..")
}
