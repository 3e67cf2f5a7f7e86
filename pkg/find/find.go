// Package find resolves a pattern query into the concrete list of files it
// selects.
package find

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/pattern"
)

// Find returns the sorted, deduplicated absolute paths selected by q. Every
// base directory is walked once, recursively when any deep glob starts from
// it. A literal filename that does not exist is a user error.
func Find(ctx context.Context, fsys afero.Fs, q pattern.Query) ([]string, error) {
	m := pattern.Resolve(q)

	files := make([]string, 0, len(m.Filenames))
	for _, name := range m.Filenames {
		if _, err := fsys.Stat(filepath.FromSlash(name)); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				return nil, fault.Userf("%w: %s", fault.ErrFileNotFound, name)
			}
			return nil, err
		}
		files = append(files, name)
	}

	bases := GroupBases(m.Patterns)
	dirs := lo.Keys(bases)
	slices.Sort(dirs)

	filter := func(p string, isDir bool) bool {
		if isDir {
			return !m.IsIgnored(p)
		}
		return m.IsMatch(p)
	}

	for _, dir := range dirs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		slog.Debug("walking", slog.String(log.Dir, dir), slog.Bool("deep", bases[dir]))

		err := Walk(fsys, dir, bases[dir], filter, func(p string, info os.FileInfo) error {
			if err := ctx.Err(); err != nil {
				return err
			}
			if !info.IsDir() {
				files = append(files, p)
			}
			return nil
		})
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, err
		}
	}

	files = lo.Uniq(files)
	slices.Sort(files)
	return files, nil
}

// GroupBases maps the base directory of every glob to whether it needs a
// recursive walk. A base below a deep base is dropped, since the deep walk
// already visits it.
func GroupBases(globs []string) map[string]bool {
	bases := make(map[string]bool, len(globs))
	for _, g := range globs {
		res := pattern.Scan(g)
		base := res.Base
		if base == "" {
			base = "."
		}
		bases[base] = bases[base] || pattern.IsDeep(res.Glob)
	}
	for base := range bases {
		if lo.SomeBy(lo.Keys(bases), func(other string) bool {
			return other != base && bases[other] && pattern.Within(other, base)
		}) {
			delete(bases, base)
		}
	}
	return bases
}
