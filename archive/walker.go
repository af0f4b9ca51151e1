// Package archive reads documents packed into zip archives.
package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"slices"
	"sort"
	"strings"

	"github.com/maruel/natural"
)

// ErrUnsafePath is returned for entries which would escape archive root.
var ErrUnsafePath = errors.New("archive: unsafe entry path")

// WalkFunc is called for every document visited by Walk. Name is the path
// of the entry inside the archive, r is valid only during the call.
type WalkFunc func(name string, r io.Reader) error

// Walk visits regular files of the archive with one of the extensions (any
// file when none is given) in natural order of their names. Processing stops
// on the first error. Archive with absolute or ".." entries is rejected
// before anything is visited.
func Walk(archive string, exts []string, walkFn WalkFunc) error {
	r, err := zip.OpenReader(archive)
	if errors.Is(err, zip.ErrInsecurePath) {
		// reader is valid, depends on GODEBUG zipinsecurepath
		r.Close()
		return fmt.Errorf("%w: %w", ErrUnsafePath, err)
	}
	if err != nil {
		return err
	}
	defer r.Close()

	files := make(map[string]*zip.File, len(r.File))
	for _, f := range r.File {
		if !isSafePath(f.Name) {
			return fmt.Errorf("%w: %q", ErrUnsafePath, f.Name)
		}
		if f.FileInfo().IsDir() || !matches(f.Name, exts) {
			continue
		}
		files[f.Name] = f
	}

	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Sort(natural.StringSlice(names))

	for _, name := range names {
		if err := visit(files[name], walkFn); err != nil {
			return err
		}
	}
	return nil
}

func visit(f *zip.File, walkFn WalkFunc) error {
	rc, err := f.Open()
	if err != nil {
		return fmt.Errorf("unable to open %q: %w", f.Name, err)
	}
	defer rc.Close()
	return walkFn(f.Name, rc)
}

func matches(name string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(path.Ext(name))
	return slices.ContainsFunc(exts, func(e string) bool {
		return strings.EqualFold(e, ext)
	})
}

// isSafePath returns false for absolute paths and paths containing ".."
// components.
func isSafePath(name string) bool {
	if path.IsAbs(name) || strings.HasPrefix(name, `\`) {
		return false
	}
	return !slices.Contains(strings.FieldsFunc(name, func(r rune) bool { return r == '/' || r == '\\' }), "..")
}
