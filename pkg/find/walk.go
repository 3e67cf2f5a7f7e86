package find

import (
	"errors"
	"io/fs"
	"os"
	"path"
	"path/filepath"

	"github.com/spf13/afero"
)

// SkipDir may be returned by a visit function to skip the directory it was
// called with.
var SkipDir = fs.SkipDir //nolint:gochecknoglobals // Alias of a stdlib sentinel.

// Filter decides whether a walked entry is accepted. Rejected directories are
// not descended into.
type Filter func(p string, isDir bool) bool

// VisitFunc is called for every accepted entry below the walk root.
type VisitFunc func(p string, info os.FileInfo) error

// Walk visits the entries of dir in lexical order, recursing into accepted
// subdirectories when deep is set. A root that is not a directory has no
// entries. Paths handed to filter and visit are
// absolute and slash-separated. The root itself is never visited.
func Walk(fsys afero.Fs, dir string, deep bool, filter Filter, visit VisitFunc) error {
	info, err := fsys.Stat(filepath.FromSlash(dir))
	if err != nil {
		return err
	}
	if !info.IsDir() {
		return nil
	}
	return walk(fsys, dir, deep, filter, visit)
}

func walk(fsys afero.Fs, dir string, deep bool, filter Filter, visit VisitFunc) error {
	entries, err := afero.ReadDir(fsys, filepath.FromSlash(dir))
	if err != nil {
		// The directory may vanish between listing and reading.
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return err
	}

	for _, entry := range entries {
		p := path.Join(dir, entry.Name())
		isDir := entry.IsDir()
		if filter != nil && !filter(p, isDir) {
			continue
		}

		err := visit(p, entry)
		switch {
		case errors.Is(err, SkipDir):
			continue
		case err != nil:
			return err
		}

		if isDir && deep {
			if err := walk(fsys, p, deep, filter, visit); err != nil {
				return err
			}
		}
	}
	return nil
}
