package pattern

import (
	"log/slog"
	"strings"

	"github.com/gobwas/glob"

	"github.com/yaklabco/zoar/internal/log"
)

// Predicate tests a slash-separated path.
type Predicate func(path string) bool

// Never is the predicate of an empty pattern list.
func Never(string) bool { return false }

// Compile returns a predicate matching any of the given globs. A glob that
// fails to compile never matches.
func Compile(patterns ...string) Predicate {
	globs := make([]glob.Glob, 0, len(patterns))
	for _, p := range patterns {
		for _, variant := range expandGlobstar(p) {
			g, err := glob.Compile(variant, '/')
			if err != nil {
				slog.Debug("ignoring invalid glob", slog.String(log.Pattern, p), slog.Any(log.Error, err))
				continue
			}
			globs = append(globs, g)
		}
	}
	if len(globs) == 0 {
		return Never
	}
	return func(path string) bool {
		for _, g := range globs {
			if g.Match(path) {
				return true
			}
		}
		return false
	}
}

// Files returns a predicate matching exactly the given paths.
func Files(paths ...string) Predicate {
	if len(paths) == 0 {
		return Never
	}
	set := make(map[string]struct{}, len(paths))
	for _, p := range paths {
		set[p] = struct{}{}
	}
	return func(path string) bool {
		_, ok := set[path]
		return ok
	}
}

// Any returns a predicate matching when any of preds does.
func Any(preds ...Predicate) Predicate {
	return func(path string) bool {
		for _, pred := range preds {
			if pred(path) {
				return true
			}
		}
		return false
	}
}

// expandGlobstar rewrites a glob so that gobwas/glob follows shell globstar
// rules: "a/**/b" also matches "a/b", and "a/**" also matches "a" itself.
// Each non-trailing "**" segment doubles the number of variants.
func expandGlobstar(p string) []string {
	segs := strings.Split(p, "/")
	variants := [][]string{nil}
	for i, seg := range segs {
		last := i == len(segs)-1
		next := make([][]string, 0, len(variants)*2)
		for _, v := range variants {
			if seg == "**" && (!last || i > 0) {
				next = append(next, clone(v))
			}
			next = append(next, append(clone(v), seg))
		}
		variants = next
	}

	out := make([]string, 0, len(variants))
	seen := make(map[string]bool, len(variants))
	for _, v := range variants {
		s := strings.Join(v, "/")
		if len(v) == 1 && v[0] == "" && strings.HasPrefix(p, "/") {
			s = "/"
		}
		if !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}
	return out
}

func clone(v []string) []string {
	return append(make([]string, 0, len(v)+1), v...)
}
