// Package wtarget holds the watch target produced by the planner and its
// compiled runtime form.
package wtarget

import (
	"path"
	"strings"

	"github.com/yaklabco/zoar/pkg/pattern"
)

// Target is one filesystem watch root. Filenames, Globs and Ignore are
// relative to Dir. A shallow target covers only the direct children of Dir.
type Target struct {
	Dir       string   `yaml:"dir"`
	Deep      bool     `yaml:"deep"`
	Filenames []string `yaml:"filenames"`
	Globs     []string `yaml:"globs"`
	Ignore    []string `yaml:"ignore"`
}

// Compiled is the runtime matcher of a Target. All methods take paths relative
// to the target directory.
type Compiled struct {
	Target

	isFileMatch pattern.Predicate
	isGlobMatch pattern.Predicate
	isIgnored   pattern.Predicate
	fileDirs    map[string]struct{}
}

func Compile(t Target) *Compiled {
	fileDirs := make(map[string]struct{})
	for _, f := range t.Filenames {
		for d := path.Dir(f); d != "." && d != "/"; d = path.Dir(d) {
			fileDirs[d] = struct{}{}
		}
	}

	return &Compiled{
		Target:      t,
		isFileMatch: pattern.Files(t.Filenames...),
		isGlobMatch: pattern.Compile(t.Globs...),
		isIgnored:   pattern.Compile(t.Ignore...),
		fileDirs:    fileDirs,
	}
}

func (c *Compiled) IsFileMatch(rel string) bool { return c.isFileMatch(rel) }

func (c *Compiled) IsGlobMatch(rel string) bool { return c.isGlobMatch(rel) }

func (c *Compiled) IsIgnored(rel string) bool { return c.isIgnored(rel) }

// IsMatch reports whether a file is watched. Literal filenames win over
// ignore rules.
func (c *Compiled) IsMatch(rel string) bool {
	return c.IsFileMatch(rel) || (!c.IsIgnored(rel) && c.IsGlobMatch(rel))
}

// IsDirMatch reports whether a subdirectory is descended into. Shallow targets
// never descend.
func (c *Compiled) IsDirMatch(rel string) bool {
	if !c.Deep {
		return false
	}
	if _, ok := c.fileDirs[rel]; ok {
		return true
	}
	return !c.IsIgnored(rel)
}

// Filter adapts the target to absolute, slash-separated walk paths.
func (c *Compiled) Filter(p string, isDir bool) bool {
	rel, ok := c.Rel(p)
	if !ok {
		return false
	}
	if isDir {
		return c.IsDirMatch(rel)
	}
	return c.IsMatch(rel)
}

// Rel returns p relative to the target directory, and false when p lies
// outside of it.
func (c *Compiled) Rel(p string) (string, bool) {
	p = pattern.ToSlash(p)
	if p == c.Dir || !pattern.Within(c.Dir, p) {
		return "", false
	}
	return strings.TrimPrefix(pattern.Rel(c.Dir, p), "./"), true
}
