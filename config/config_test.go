package config

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yaklabco/zoar/pkg/fault"
)

func writeConfig(t *testing.T, dir, name, content string) string {
	t.Helper()
	p := filepath.Join(dir, name)
	require.NoError(t, os.MkdirAll(filepath.Dir(p), 0o755))
	require.NoError(t, os.WriteFile(p, []byte(content), 0o644))
	return p
}

// isolate points the user config at an empty directory.
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("XDG_CONFIG_HOME", t.TempDir())
	t.Setenv("XDG_DATA_HOME", t.TempDir())
}

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(&LoadOptions{
		ProjectDir:        t.TempDir(),
		SkipUserConfig:    true,
		SkipProjectConfig: true,
		SkipEnv:           true,
	})
	require.NoError(t, err)

	want := DefaultConfig()
	assert.Equal(t, want.Files, cfg.Files)
	assert.Equal(t, want.Ignore, cfg.Ignore)
	assert.Equal(t, want.Exec, cfg.Exec)
	assert.Equal(t, DefaultWatchDebounce, cfg.Watch.Debounce)
	assert.Equal(t, DefaultFailExitCode, cfg.FailExitCode)
	assert.True(t, cfg.Interactive)
	assert.True(t, cfg.ExitOnCrash)
	assert.Nil(t, cfg.Only)
	assert.Empty(t, cfg.Sources)
	assert.Empty(t, cfg.ConfigFile())
}

func TestLoad_ProjectConfigWalksUp(t *testing.T) {
	isolate(t)
	root := t.TempDir()
	writeConfig(t, root, ProjectConfigFileName, `
files: ["test/**/*.test.js"]
exec: [node, --enable-source-maps]
watch:
  debounce: 50ms
only: true
`)
	sub := filepath.Join(root, "packages", "app")
	require.NoError(t, os.MkdirAll(sub, 0o755))

	cfg, err := Load(&LoadOptions{ProjectDir: sub, SkipEnv: true})
	require.NoError(t, err)

	realRoot, err := filepath.EvalSymlinks(root)
	require.NoError(t, err)

	assert.Equal(t, []string{"test/**/*.test.js"}, cfg.Files)
	assert.Equal(t, []string{"node", "--enable-source-maps"}, cfg.Exec)
	assert.Equal(t, 50*time.Millisecond, cfg.Watch.Debounce)
	require.NotNil(t, cfg.Only)
	assert.True(t, *cfg.Only)
	assert.Equal(t, DefaultIgnore(), cfg.Ignore)

	require.Len(t, cfg.Sources, 1)
	assert.Equal(t, realRoot, cfg.Sources[0].Dir)
	assert.Equal(t, []string{"test/**/*.test.js"}, cfg.Sources[0].Files)
	assert.Empty(t, cfg.Sources[0].Ignore)
	assert.Equal(t, filepath.Join(realRoot, ProjectConfigFileName), cfg.ConfigFile())
}

func TestLoad_UserThenProject(t *testing.T) {
	isolate(t)
	writeConfig(t, ResolveXDGPaths().ConfigDir(), ConfigFileName+".yaml", `
fail_exit_code: 3
ignore: ["**/dist"]
`)
	project := t.TempDir()
	writeConfig(t, project, ProjectConfigFileName, `
fail_exit_code: 4
`)

	cfg, err := Load(&LoadOptions{ProjectDir: project, SkipEnv: true})
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.FailExitCode)
	assert.Equal(t, []string{"**/dist"}, cfg.Ignore)
	require.Len(t, cfg.Sources, 2)
	assert.Equal(t, []string{"**/dist"}, cfg.Sources[0].Ignore)
}

func TestLoad_EnvAndOverrides(t *testing.T) {
	isolate(t)
	t.Setenv("ZOAR_WATCH_DEBOUNCE", "100ms")
	t.Setenv("ZOAR_FAIL_EXIT_CODE", "9")
	t.Setenv("ZOAR_ONLY", "false")

	cfg, err := Load(&LoadOptions{
		ProjectDir: t.TempDir(),
		Overrides:  Overrides{KeyFailExitCode: 7},
	})
	require.NoError(t, err)

	assert.Equal(t, 100*time.Millisecond, cfg.Watch.Debounce)
	assert.Equal(t, 7, cfg.FailExitCode)
	require.NotNil(t, cfg.Only)
	assert.False(t, *cfg.Only)
}

func TestLoad_ExplicitConfigFileMustExist(t *testing.T) {
	isolate(t)
	_, err := Load(&LoadOptions{ProjectDir: t.TempDir(), ConfigFile: "nope.yaml", SkipEnv: true})
	require.Error(t, err)
	assert.ErrorIs(t, err, os.ErrNotExist)
}

func TestLoad_InvalidValues(t *testing.T) {
	isolate(t)
	var stderr bytes.Buffer
	_, err := Load(&LoadOptions{
		ProjectDir: t.TempDir(),
		SkipEnv:    true,
		Stderr:     &stderr,
		Overrides: Overrides{
			KeyFailExitCode:  0,
			KeyWatchDebounce: -time.Second,
			KeyPipe:          []string{`"unterminated`},
		},
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), KeyFailExitCode)
	assert.Contains(t, err.Error(), KeyWatchDebounce)
	assert.Contains(t, err.Error(), KeyPipe)
}

func TestValidate_Warnings(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Files = nil

	result := cfg.Validate()
	assert.False(t, result.HasErrors())
	require.True(t, result.HasWarnings())

	var out bytes.Buffer
	result.WriteWarnings(&out)
	assert.Contains(t, out.String(), "config warning: files")
}

func TestWriteProjectConfig(t *testing.T) {
	isolate(t)
	dir := t.TempDir()

	path, err := WriteProjectConfig(dir, false)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, ProjectConfigFileName), path)

	_, err = WriteProjectConfig(dir, false)
	require.ErrorIs(t, err, ErrConfigExists)
	assert.True(t, fault.IsUser(err))

	_, err = WriteProjectConfig(dir, true)
	require.NoError(t, err)

	// The scaffold loads cleanly and matches the defaults.
	cfg, err := Load(&LoadOptions{ProjectDir: dir, SkipEnv: true})
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig().Files, cfg.Files)
	assert.Equal(t, DefaultIgnore(), cfg.Ignore)
	assert.Equal(t, DefaultWatchDebounce, cfg.Watch.Debounce)
}
