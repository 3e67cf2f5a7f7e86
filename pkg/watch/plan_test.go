package watch

import (
	"path"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/pattern"
	"github.com/yaklabco/zoar/pkg/watch/wtarget"
)

func query(patterns, ignore []string) pattern.Query {
	q := pattern.Query{Cwd: "/app", Specs: []pattern.Spec{{Pattern: patterns}}}
	if ignore != nil {
		q.Ignore = []pattern.Spec{{Pattern: ignore}}
	}
	return q
}

func TestMergeTargetsIntoDeepParents(t *testing.T) {
	actual := MergeTargets(query([]string{
		"README.md",
		"src/foo.spec.js",
		"test/**/*.spec.js",
		"test/foo.js",
		"test/bar/*.test.js",
	}, nil))

	assert.Equal(t, []wtarget.Target{
		{
			Dir:       "/app/test",
			Deep:      true,
			Filenames: []string{"foo.js"},
			Globs:     []string{"**/*.spec.js", "bar/*.test.js"},
			Ignore:    []string{},
		},
		{
			Dir:       "/app",
			Filenames: []string{"README.md"},
			Globs:     []string{},
			Ignore:    []string{},
		},
		{
			Dir:       "/app/src",
			Filenames: []string{"foo.spec.js"},
			Globs:     []string{},
			Ignore:    []string{},
		},
	}, actual)
}

func TestMergeTargetsIgnore(t *testing.T) {
	patterns := []string{"test/**/*.spec.js", "test/foo.js", "test/bar/*.test.js"}

	tests := []struct {
		name   string
		ignore []string
		want   []string
	}{
		{name: "inside", ignore: []string{"test/node_modules/**"}, want: []string{"node_modules/**"}},
		{name: "outside", ignore: []string{"node_modules/**", "test/nm"}, want: []string{"nm"}},
		{name: "globstar above", ignore: []string{"**/node_modules/**"}, want: []string{"**/node_modules/**"}},
		{name: "globstar far above", ignore: []string{"/**/tmp"}, want: []string{"**/tmp"}},
		{name: "subsumed", ignore: []string{"**/nm/**", "test/x/**/nm/**"}, want: []string{"**/nm/**"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			actual := MergeTargets(query(patterns, tt.ignore))
			require.Len(t, actual, 1)
			assert.Equal(t, wtarget.Target{
				Dir:       "/app/test",
				Deep:      true,
				Filenames: []string{"foo.js"},
				Globs:     []string{"**/*.spec.js", "bar/*.test.js"},
				Ignore:    tt.want,
			}, actual[0])
		})
	}
}

func TestMergeTargetsNegatedPatternsBecomeIgnores(t *testing.T) {
	actual := MergeTargets(query([]string{"test/**/*.js", "!test/skip.js", "!test/fixtures/**"}, nil))

	require.Len(t, actual, 1)
	assert.Equal(t, []string{"fixtures/**", "skip.js"}, actual[0].Ignore)
}

func TestMergeTargetsOutermostDeepAncestorWins(t *testing.T) {
	actual := MergeTargets(query([]string{
		"a/b/**/*.md",
		"a/**/*.js",
		"a/b/c/z.txt",
		"a/b/c/*.css",
	}, nil))

	assert.Equal(t, []wtarget.Target{{
		Dir:       "/app/a",
		Deep:      true,
		Filenames: []string{"b/c/z.txt"},
		Globs:     []string{"**/*.js", "b/**/*.md", "b/c/*.css"},
		Ignore:    []string{},
	}}, actual)
}

func TestMergeTargetsPathSegmentContainment(t *testing.T) {
	actual := MergeTargets(query([]string{"test/**/*.js", "testing/*.js"}, nil))

	require.Len(t, actual, 2)
	assert.Equal(t, "/app/test", actual[0].Dir)
	assert.True(t, actual[0].Deep)
	assert.Equal(t, "/app/testing", actual[1].Dir)
	assert.False(t, actual[1].Deep)
}

func TestMergeTargetsMultiSegmentGlobIsDeep(t *testing.T) {
	actual := MergeTargets(query([]string{"lib/*/*.spec.js"}, nil))

	require.Len(t, actual, 1)
	assert.Equal(t, "/app/lib", actual[0].Dir)
	assert.True(t, actual[0].Deep)
}

func TestMergeTargetsEmpty(t *testing.T) {
	assert.Empty(t, MergeTargets(pattern.Query{Cwd: "/app"}))
}

// complexQuery exercises several directories, nesting, negations and ignores.
func complexQuery() pattern.Query {
	return pattern.Query{
		Cwd: "/app",
		Specs: []pattern.Spec{
			{Pattern: []string{
				"README.md",
				"src/foo.spec.js",
				"test/**/*.spec.js",
				"test/foo.js",
				"test/bar/*.test.js",
				"!test/skip.spec.js",
			}},
			{Cwd: "/app/lib", Pattern: []string{"*.js", "deep/**/*.js", "deep/inner/*.mjs"}},
		},
		Ignore: []pattern.Spec{
			{Pattern: []string{"**/node_modules/**", "test/fixtures/**"}},
			{Cwd: "/app/lib", Pattern: []string{"deep/tmp"}},
		},
	}
}

func TestMergeTargetsIdempotent(t *testing.T) {
	for _, q := range []pattern.Query{
		complexQuery(),
		query([]string{"README.md", "src/foo.spec.js", "test/**/*.spec.js", "test/foo.js", "test/bar/*.test.js"}, nil),
		query([]string{"test/**/*.spec.js"}, []string{"node_modules/**", "test/nm", "**/tmp/**"}),
		query([]string{"a/b/**/*.md", "a/**/*.js", "a/b/c/z.txt"}, []string{"a/**/cache/**"}),
	} {
		first := MergeTargets(q)
		assert.Equal(t, first, MergeTargets(Serialize(first)))
	}
}

func TestMergeTargetsNonOverlap(t *testing.T) {
	targets := MergeTargets(complexQuery())
	for i, a := range targets {
		for j, b := range targets {
			if i == j {
				continue
			}
			assert.NotEqual(t, a.Dir, b.Dir)
			if a.Deep {
				assert.False(t, pattern.Within(a.Dir, b.Dir), "%s contains %s", a.Dir, b.Dir)
			}
		}
	}
}

// covered reports whether some target watches p, descending only through
// directories its matcher accepts.
func covered(targets []wtarget.Target, p string) bool {
	for _, target := range targets {
		c := wtarget.Compile(target)
		rel, ok := c.Rel(p)
		if !ok {
			continue
		}
		if !target.Deep && strings.Contains(rel, "/") {
			continue
		}
		reachable := true
		for d := path.Dir(rel); d != "."; d = path.Dir(d) {
			if !c.IsDirMatch(d) {
				reachable = false
				break
			}
		}
		if reachable && c.IsMatch(rel) {
			return true
		}
	}
	return false
}

func TestMergeTargetsCoverageEquivalence(t *testing.T) {
	q := complexQuery()
	m := pattern.Resolve(q)
	targets := MergeTargets(q)

	for _, p := range []string{
		"/app/README.md",
		"/app/other.md",
		"/app/x.spec.js",
		"/app/src/foo.spec.js",
		"/app/src/bar.spec.js",
		"/app/test/a.spec.js",
		"/app/test/sub/deeper/a.spec.js",
		"/app/test/skip.spec.js",
		"/app/test/foo.js",
		"/app/test/other.js",
		"/app/test/node_modules/x/a.spec.js",
		"/app/test/fixtures/a.spec.js",
		"/app/test/bar/a.test.js",
		"/app/test/bar/baz/a.test.js",
		"/app/lib/a.js",
		"/app/lib/sub/a.js",
		"/app/lib/deep/a.js",
		"/app/lib/deep/x/y/a.js",
		"/app/lib/deep/inner/a.mjs",
		"/app/lib/deep/inner/more/a.mjs",
		"/app/lib/deep/tmp",
		"/app/lib/deep/node_modules/a.js",
		"/elsewhere/a.spec.js",
	} {
		assert.Equal(t, m.IsMatch(p), covered(targets, p), p)
	}
}

func TestCheckFilenames(t *testing.T) {
	withFiles := MergeTargets(query([]string{"a.spec.js"}, nil))
	globsOnly := MergeTargets(query([]string{"*.spec.js"}, nil))

	err := CheckFilenames(withFiles, false)
	require.ErrorIs(t, err, fault.ErrWatchFilenames)
	assert.True(t, fault.IsUser(err))

	require.NoError(t, CheckFilenames(withFiles, true))
	require.NoError(t, CheckFilenames(globsOnly, false))
}
