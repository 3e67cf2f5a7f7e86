package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/yaklabco/zoar/pkg/fault"
)

// ErrConfigExists is returned by WriteProjectConfig when the file exists and
// force is not set.
var ErrConfigExists = errors.New("config file already exists")

// WriteProjectConfig writes a commented project configuration file into dir.
func WriteProjectConfig(dir string, force bool) (string, error) {
	configPath := filepath.Join(dir, ProjectConfigFileName)

	if _, err := os.Stat(configPath); err == nil && !force {
		return "", fault.Userf("%w: %s (use --force to overwrite)", ErrConfigExists, configPath)
	}

	if err := os.WriteFile(configPath, []byte(projectConfigYAML()), 0o644); err != nil {
		return "", fmt.Errorf("failed to write config file: %w", err)
	}

	return configPath, nil
}

func projectConfigYAML() string {
	return `# zoar configuration
# Relative patterns resolve against the directory of this file.

# Test files.
files:
  - "` + DefaultFilePattern + `"

# Patterns to always ignore when finding or watching files.
# To ignore whole directories, use a pattern like **/node_modules.
ignore:
  - "**/node_modules"
  - "**/.git"

# Command each test file is passed to. Leave empty to execute the files.
exec:
  - ` + DefaultExec + `

watch:
  # Start in watch mode.
  enabled: false
  # Files whose changes trigger a rerun. Defaults to the test files.
  # patterns:
  #   - "{src,lib,test}/**/*.js"
  debounce: 20ms
  # Allow literal filenames as watch targets.
  filenames: false

# Commands the test output is piped through.
# pipe:
#   - tap-dot

# Exit code of a run with failing tests.
fail_exit_code: 1
`
}
