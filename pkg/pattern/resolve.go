package pattern

import (
	"path"
	"path/filepath"
	"strings"

	"github.com/samber/lo"
)

// Spec is a list of patterns sharing the directory their relative entries are
// resolved against. An empty Cwd falls back to the Query's.
type Spec struct {
	Cwd     string   `yaml:"cwd,omitempty"`
	Pattern []string `yaml:"pattern"`
}

// Query groups the specs resolved together. Positive patterns come from
// Specs; Ignore specs accumulate and suppress glob matches.
type Query struct {
	Cwd    string `yaml:"cwd,omitempty"`
	Specs  []Spec `yaml:"specs,omitempty"`
	Ignore []Spec `yaml:"ignore,omitempty"`
}

// Empty reports whether the query holds no pattern at all.
func (q Query) Empty() bool {
	for _, s := range q.Specs {
		if len(s.Pattern) > 0 {
			return false
		}
	}
	return true
}

// Matcher is the compiled, immutable form of a Query. All paths are absolute
// and slash-separated.
type Matcher struct {
	Filenames        []string
	NegatedFilenames []string
	Patterns         []string
	NegatedPatterns  []string

	// IgnorePatterns lists every entry that suppresses matches: the ignore
	// specs' filenames and globs plus the negated positive entries.
	IgnorePatterns []string

	isFileMatch   Predicate
	isGlobMatch   Predicate
	isFileIgnored Predicate
	isGlobIgnored Predicate
	isIgnoreSpec  Predicate
}

type buckets struct {
	filenames        []string
	negatedFilenames []string
	patterns         []string
	negatedPatterns  []string
}

func (b *buckets) add(cwd, pattern string) {
	res := Scan(pattern)
	abs := Absolute(cwd, res.Base, res.Glob)
	switch {
	case res.IsGlob && res.Negated:
		b.negatedPatterns = append(b.negatedPatterns, abs)
	case res.IsGlob:
		b.patterns = append(b.patterns, abs)
	case res.Negated:
		b.negatedFilenames = append(b.negatedFilenames, abs)
	default:
		b.filenames = append(b.filenames, abs)
	}
}

func split(defaultCwd string, specs []Spec) buckets {
	var b buckets
	for _, spec := range specs {
		cwd := spec.Cwd
		if cwd == "" {
			cwd = defaultCwd
		}
		for _, p := range spec.Pattern {
			if p == "" {
				continue
			}
			b.add(cwd, p)
		}
	}
	b.filenames = lo.Uniq(b.filenames)
	b.negatedFilenames = lo.Uniq(b.negatedFilenames)
	b.patterns = lo.Uniq(b.patterns)
	b.negatedPatterns = lo.Uniq(b.negatedPatterns)
	return b
}

// Resolve compiles q. It never fails: an empty query yields a matcher that
// matches nothing and an invalid glob simply never matches.
func Resolve(q Query) *Matcher {
	pos := split(q.Cwd, q.Specs)
	ign := split(q.Cwd, q.Ignore)

	ignoreFile := Files(ign.filenames...)
	ignoreGlob := Compile(ign.patterns...)
	unignored := Any(Files(ign.negatedFilenames...), Compile(ign.negatedPatterns...))

	ignorePatterns := make([]string, 0, len(ign.filenames)+len(ign.patterns)+len(pos.negatedFilenames)+len(pos.negatedPatterns))
	ignorePatterns = append(ignorePatterns, ign.filenames...)
	ignorePatterns = append(ignorePatterns, ign.patterns...)
	ignorePatterns = append(ignorePatterns, pos.negatedFilenames...)
	ignorePatterns = append(ignorePatterns, pos.negatedPatterns...)

	return &Matcher{
		Filenames:        pos.filenames,
		NegatedFilenames: pos.negatedFilenames,
		Patterns:         pos.patterns,
		NegatedPatterns:  pos.negatedPatterns,
		IgnorePatterns:   lo.Uniq(ignorePatterns),

		isFileMatch:   Files(pos.filenames...),
		isGlobMatch:   Compile(pos.patterns...),
		isFileIgnored: Files(pos.negatedFilenames...),
		isGlobIgnored: Compile(pos.negatedPatterns...),
		isIgnoreSpec: func(p string) bool {
			return ignoreFile(p) || (!unignored(p) && ignoreGlob(p))
		},
	}
}

// IsFileMatch reports whether p is one of the literal filenames.
func (m *Matcher) IsFileMatch(p string) bool {
	return m.isFileMatch(ToSlash(p))
}

// IsGlobMatch reports whether p matches one of the positive globs.
func (m *Matcher) IsGlobMatch(p string) bool {
	return m.isGlobMatch(ToSlash(p))
}

// IsIgnored reports whether p is excluded by a negated entry or an ignore spec.
func (m *Matcher) IsIgnored(p string) bool {
	p = ToSlash(p)
	return m.isFileIgnored(p) || m.isGlobIgnored(p) || m.isIgnoreSpec(p)
}

// IsMatch is the overall verdict: literal filenames always match, globs only
// when not ignored.
func (m *Matcher) IsMatch(p string) bool {
	return m.IsFileMatch(p) || (!m.IsIgnored(p) && m.IsGlobMatch(p))
}

// Absolute joins cwd, base and glob into an absolute slash-separated pattern.
// A relative cwd is taken relative to the process working directory.
func Absolute(cwd, base, glob string) string {
	dir := ToSlash(base)
	if !isAbs(base) {
		dir = path.Join(absDir(cwd), dir)
	}
	if glob == "" {
		return dir
	}
	return path.Join(dir, glob)
}

// ToSlash normalizes p to a clean slash-separated path.
func ToSlash(p string) string {
	if p == "" {
		return p
	}
	return path.Clean(filepath.ToSlash(p))
}

func isAbs(p string) bool {
	return filepath.IsAbs(p) || strings.HasPrefix(filepath.ToSlash(p), "/")
}

func absDir(cwd string) string {
	if isAbs(cwd) {
		return ToSlash(cwd)
	}
	abs, err := filepath.Abs(cwd)
	if err != nil {
		return ToSlash(cwd)
	}
	return ToSlash(abs)
}

// Rel returns target relative to base as a slash-separated path. Both must be
// absolute. Identical paths yield ".".
func Rel(base, target string) string {
	b, t := segments(base), segments(target)
	i := 0
	for i < len(b) && i < len(t) && b[i] == t[i] {
		i++
	}
	parts := make([]string, 0, len(b)-i+len(t)-i)
	for range b[i:] {
		parts = append(parts, "..")
	}
	parts = append(parts, t[i:]...)
	if len(parts) == 0 {
		return "."
	}
	return strings.Join(parts, "/")
}

// Within reports whether p is dir or lies below it, comparing whole path
// segments.
func Within(dir, p string) bool {
	dir, p = ToSlash(dir), ToSlash(p)
	if dir == "/" {
		return strings.HasPrefix(p, "/")
	}
	return p == dir || strings.HasPrefix(p, dir+"/")
}

func segments(p string) []string {
	p = strings.Trim(ToSlash(p), "/")
	if p == "" || p == "." {
		return nil
	}
	return strings.Split(p, "/")
}
