package fsutils

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTruePath(t *testing.T) {
	// On macOS the temp dir itself sits behind a symlink.
	tempDir, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)

	real := filepath.Join(tempDir, "real.spec.js")
	require.NoError(t, os.WriteFile(real, []byte("ok"), 0o644))

	link := filepath.Join(tempDir, "link.spec.js")
	require.NoError(t, os.Symlink(real, link))
	nested := filepath.Join(tempDir, "nested.spec.js")
	require.NoError(t, os.Symlink(link, nested))

	for _, path := range []string{real, link, nested} {
		got, err := TruePath(path)
		require.NoError(t, err)
		assert.Equal(t, real, got, path)
	}
}

func TestTruePathNonExistent(t *testing.T) {
	path, err := TruePath(filepath.Join(t.TempDir(), "missing"))
	require.Error(t, err)
	assert.Empty(t, path)
}

func TestFindUp(t *testing.T) {
	root, err := filepath.EvalSymlinks(t.TempDir())
	require.NoError(t, err)
	deep := filepath.Join(root, "a", "b", "c")
	require.NoError(t, os.MkdirAll(deep, 0o755))

	found, err := FindUp(deep, ".marker")
	require.NoError(t, err)
	assert.Empty(t, found)

	marker := filepath.Join(root, "a", ".marker")
	require.NoError(t, os.WriteFile(marker, nil, 0o644))
	found, err = FindUp(deep, ".marker")
	require.NoError(t, err)
	assert.Equal(t, marker, found)

	// Directories with the same name do not count.
	require.NoError(t, os.Mkdir(filepath.Join(deep, ".marker"), 0o755))
	found, err = FindUp(deep, ".marker")
	require.NoError(t, err)
	assert.Equal(t, marker, found)
}
