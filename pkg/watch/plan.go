package watch

import (
	"path"
	"slices"
	"strings"

	"github.com/samber/lo"

	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/pattern"
	"github.com/yaklabco/zoar/pkg/watch/wtarget"
)

type provisional struct {
	dir       string
	filenames []string
	globs     []string
	deepGlobs []string
	deep      bool
	absorbed  bool
}

// MergeTargets consolidates q into the minimal set of watch roots. Every
// directory that lies inside a deep target is folded into its outermost deep
// ancestor, so no file is covered by two targets. Deep targets come first,
// then shallow ones, each sorted by directory.
func MergeTargets(q pattern.Query) []wtarget.Target {
	m := pattern.Resolve(q)

	byDir := make(map[string]*provisional)
	get := func(dir string) *provisional {
		p, ok := byDir[dir]
		if !ok {
			p = &provisional{dir: dir}
			byDir[dir] = p
		}
		return p
	}

	for _, f := range m.Filenames {
		p := get(path.Dir(f))
		p.filenames = append(p.filenames, path.Base(f))
	}
	for _, g := range m.Patterns {
		res := pattern.Scan(g)
		p := get(res.Base)
		if pattern.IsDeep(res.Glob) {
			p.deepGlobs = append(p.deepGlobs, res.Glob)
			p.deep = true
		} else {
			p.globs = append(p.globs, res.Glob)
		}
	}

	dirs := lo.Keys(byDir)
	slices.Sort(dirs)

	for _, dir := range dirs {
		root := outermostDeepAncestor(byDir, dir)
		if root == nil {
			continue
		}
		p := byDir[dir]
		rel := pattern.Rel(root.dir, dir)
		rebase := func(s string) string { return path.Join(rel, s) }
		root.filenames = append(root.filenames, lo.Map(p.filenames, func(s string, _ int) string { return rebase(s) })...)
		root.globs = append(root.globs, lo.Map(p.globs, func(s string, _ int) string { return rebase(s) })...)
		root.deepGlobs = append(root.deepGlobs, lo.Map(p.deepGlobs, func(s string, _ int) string { return rebase(s) })...)
		p.absorbed = true
	}

	var deep, shallow []wtarget.Target
	for _, dir := range dirs {
		p := byDir[dir]
		if p.absorbed {
			continue
		}
		t := wtarget.Target{
			Dir:       p.dir,
			Deep:      p.deep,
			Filenames: lo.Uniq(p.filenames),
			Globs:     lo.Uniq(append(slices.Clone(p.deepGlobs), p.globs...)),
			Ignore:    rebaseIgnore(p.dir, m.IgnorePatterns),
		}
		if t.Deep {
			deep = append(deep, t)
		} else {
			shallow = append(shallow, t)
		}
	}
	return append(deep, shallow...)
}

// outermostDeepAncestor walks up from dir and returns the highest deep target
// strictly above it.
func outermostDeepAncestor(byDir map[string]*provisional, dir string) *provisional {
	var found *provisional
	for d := dir; d != "/" && d != "."; {
		d = path.Dir(d)
		if p, ok := byDir[d]; ok && p.deep {
			found = p
		}
	}
	return found
}

// rebaseIgnore expresses absolute ignore patterns relative to dir. Entries that
// escape dir are dropped unless they escape through a "**" segment, which
// still reaches into dir.
func rebaseIgnore(dir string, patterns []string) []string {
	out := make([]string, 0, len(patterns))
	for _, p := range patterns {
		res := pattern.Scan(p)
		rel := pattern.Rel(dir, res.Base)
		if res.Glob != "" {
			rel = path.Join(rel, res.Glob)
		}
		rel = stripEscapingGlobstar(rel)
		if rel == "." || rel == ".." || strings.HasPrefix(rel, "../") {
			continue
		}
		out = append(out, rel)
	}
	out = pruneSubsumed(lo.Uniq(out))
	slices.Sort(out)
	return out
}

// stripEscapingGlobstar turns "../../**/x" into "**/x". Other escaping paths
// are returned unchanged.
func stripEscapingGlobstar(rel string) string {
	for strings.HasPrefix(rel, "../") {
		rest := rel[len("../"):]
		if rest == "**" || strings.HasPrefix(rest, "**/") {
			return rest
		}
		if !strings.HasPrefix(rest, "../") {
			return rel
		}
		rel = rest
	}
	return rel
}

// pruneSubsumed drops "a/b/**/rest" when "a/**/rest" or "**/rest" is also
// present.
func pruneSubsumed(patterns []string) []string {
	type split struct{ prefix, rest string }
	parts := make([]split, len(patterns))
	for i, p := range patterns {
		switch {
		case strings.HasPrefix(p, "**/"):
			parts[i] = split{rest: p[len("**/"):]}
		case strings.Contains(p, "/**/"):
			idx := strings.Index(p, "/**/")
			parts[i] = split{prefix: p[:idx], rest: p[idx+len("/**/"):]}
		default:
			parts[i] = split{prefix: p}
		}
	}

	return lo.Filter(patterns, func(p string, i int) bool {
		if parts[i].rest == "" {
			return true
		}
		for j, other := range parts {
			if j == i || other.rest != parts[i].rest {
				continue
			}
			if other.prefix == "" && parts[i].prefix != "" {
				return false
			}
			if other.prefix != "" && strings.HasPrefix(parts[i].prefix, other.prefix+"/") {
				return false
			}
		}
		return true
	})
}

// Serialize turns targets back into a query selecting the same files.
func Serialize(targets []wtarget.Target) pattern.Query {
	var q pattern.Query
	for _, t := range targets {
		q.Specs = append(q.Specs, pattern.Spec{
			Cwd:     t.Dir,
			Pattern: append(slices.Clone(t.Filenames), t.Globs...),
		})
		if len(t.Ignore) > 0 {
			q.Ignore = append(q.Ignore, pattern.Spec{Cwd: t.Dir, Pattern: slices.Clone(t.Ignore)})
		}
	}
	return q
}

// CheckFilenames refuses literal filenames as watch targets unless allowed.
// A shell expanding "zoar -w *.spec.js" would otherwise silently watch a fixed
// file list.
func CheckFilenames(targets []wtarget.Target, allow bool) error {
	if allow {
		return nil
	}
	for _, t := range targets {
		if len(t.Filenames) > 0 {
			return fault.Userf("%w (this protects against unintentional glob expansion in your shell)", fault.ErrWatchFilenames)
		}
	}
	return nil
}
