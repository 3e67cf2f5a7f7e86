// Package pattern compiles glob and literal path specifications into matcher
// predicates over absolute, slash-separated paths.
package pattern

import "strings"

const globChars = "*?[{"

// ScanResult is the decomposition of one pattern.
type ScanResult struct {
	Input   string
	Base    string // non-glob directory prefix; the whole path for literals
	Glob    string // glob suffix relative to Base; empty for literals
	IsGlob  bool
	Negated bool
}

// Scan splits pattern into its static base directory and its glob part.
//
//	Scan("src/**/*.spec.js") => {Base: "src", Glob: "**/*.spec.js", IsGlob: true}
//	Scan("!test/foo.js")     => {Base: "test/foo.js", Negated: true}
func Scan(pattern string) ScanResult {
	res := ScanResult{Input: pattern}

	p := pattern
	if strings.HasPrefix(p, "!") {
		res.Negated = true
		p = p[1:]
	}
	for strings.HasPrefix(p, "./") {
		p = p[2:]
	}

	idx := indexGlobChar(p)
	if idx < 0 {
		res.Base = p
		return res
	}

	res.IsGlob = true
	slash := strings.LastIndex(p[:idx], "/")
	switch {
	case slash < 0:
		res.Glob = p
	case slash == 0:
		res.Base = "/"
		res.Glob = p[1:]
	default:
		res.Base = p[:slash]
		res.Glob = p[slash+1:]
	}
	return res
}

// IsDeep reports whether a glob suffix may match below its first path segment,
// which forces a recursive walk of its base directory.
func IsDeep(glob string) bool {
	return strings.Contains(glob, "**") || strings.Contains(glob, "/")
}

func indexGlobChar(s string) int {
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] == '\\':
			i++
		case strings.IndexByte(globChars, s[i]) >= 0:
			return i
		}
	}
	return -1
}
