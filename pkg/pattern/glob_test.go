package pattern

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestExpandGlobstar(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want []string
	}{
		{in: "*.js", want: []string{"*.js"}},
		{in: "**", want: []string{"**"}},
		{in: "**/*.js", want: []string{"*.js", "**/*.js"}},
		{in: "/app/**/x.js", want: []string{"/app/x.js", "/app/**/x.js"}},
		{in: "node_modules/**", want: []string{"node_modules", "node_modules/**"}},
		{in: "a/**/b/**", want: []string{"a/b", "a/b/**", "a/**/b", "a/**/b/**"}},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			t.Parallel()
			assert.ElementsMatch(t, tt.want, expandGlobstar(tt.in))
		})
	}
}

func TestCompile(t *testing.T) {
	t.Parallel()

	match := Compile("/app/test/**/*.spec.js", "/app/*.md", "/app/lib/{a,b}/?.js")

	for _, p := range []string{
		"/app/test/foo.spec.js",
		"/app/test/deep/er/foo.spec.js",
		"/app/README.md",
		"/app/lib/a/x.js",
		"/app/lib/b/y.js",
	} {
		assert.True(t, match(p), p)
	}

	for _, p := range []string{
		"/app/test/foo.js",
		"/app/docs/README.md",
		"/app/lib/c/x.js",
		"/app/lib/a/xy.js",
		"/other/test/foo.spec.js",
	} {
		assert.False(t, match(p), p)
	}
}

func TestCompileTrailingGlobstarMatchesDir(t *testing.T) {
	match := Compile("/app/node_modules/**")
	assert.True(t, match("/app/node_modules"))
	assert.True(t, match("/app/node_modules/x/index.js"))
	assert.False(t, match("/app/node_modules_old"))
}

func TestCompileInvalidNeverMatches(t *testing.T) {
	match := Compile("/app/[unclosed")
	assert.False(t, match("/app/[unclosed"))
	assert.False(t, match("/app/u"))

	assert.False(t, Compile()("/anything"))
}

func TestFiles(t *testing.T) {
	match := Files("/app/a.js", "/app/b.js")
	assert.True(t, match("/app/a.js"))
	assert.False(t, match("/app/c.js"))
	assert.False(t, Files()("/app/a.js"))
}
