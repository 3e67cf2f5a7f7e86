package config

import (
	"time"

	"github.com/spf13/viper"
)

// Default configuration values.
const (
	// DefaultFilePattern selects the test files when nothing else does.
	DefaultFilePattern = "**/*.spec.js"

	// DefaultExec is the command each test file is passed to.
	DefaultExec = "node"

	// DefaultWatchDebounce is how long the watcher waits for a burst of
	// filesystem events to settle.
	DefaultWatchDebounce = 20 * time.Millisecond

	// DefaultFailExitCode is the exit code of a run with failing tests.
	DefaultFailExitCode = 1

	DefaultInteractive    = true
	DefaultPersistHistory = true
	DefaultVerbose        = false
	DefaultDebug          = false
)

// DefaultIgnore lists the patterns ignored both when finding and watching.
func DefaultIgnore() []string {
	return []string{"**/node_modules", "**/.git"}
}

// setDefaults configures default values in the viper instance.
func setDefaults(viperInstance *viper.Viper) {
	viperInstance.SetDefault(KeyFiles, []string{DefaultFilePattern})
	viperInstance.SetDefault(KeyIgnore, DefaultIgnore())
	viperInstance.SetDefault(KeyWatchEnabled, false)
	viperInstance.SetDefault(KeyWatchPatterns, []string{})
	viperInstance.SetDefault(KeyWatchDebounce, DefaultWatchDebounce)
	viperInstance.SetDefault(KeyWatchFilenames, false)
	viperInstance.SetDefault(KeyExec, []string{DefaultExec})
	viperInstance.SetDefault(KeyPipe, []string{})
	viperInstance.SetDefault(KeyFailExitCode, DefaultFailExitCode)
	viperInstance.SetDefault(KeyExitOnCrash, true)
	viperInstance.SetDefault(KeyInteractive, DefaultInteractive)
	viperInstance.SetDefault(KeyPersistHistory, DefaultPersistHistory)
	viperInstance.SetDefault(KeyVerbose, DefaultVerbose)
	viperInstance.SetDefault(KeyDebug, DefaultDebug)
}
