package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Configuration keys.
const (
	KeyFiles          = "files"
	KeyIgnore         = "ignore"
	KeyWatchEnabled   = "watch.enabled"
	KeyWatchPatterns  = "watch.patterns"
	KeyWatchDebounce  = "watch.debounce"
	KeyWatchFilenames = "watch.filenames"
	KeyExec           = "exec"
	KeyPipe           = "pipe"
	KeyOnly           = "only"
	KeyFailExitCode   = "fail_exit_code"
	KeyExitOnCrash    = "exit_on_crash"
	KeyInteractive    = "interactive"
	KeyPersistHistory = "persist_history"
	KeyVerbose        = "verbose"
	KeyDebug          = "debug"
)

// EnvPrefix prefixes the environment variables that override configuration
// keys, e.g. ZOAR_WATCH_DEBOUNCE for watch.debounce.
const EnvPrefix = "ZOAR"

// WatchConfig configures watch mode.
type WatchConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`

	// Patterns select the files whose changes trigger a rerun. When empty,
	// the test file patterns are watched.
	Patterns []string `mapstructure:"patterns" yaml:"patterns"`

	Debounce time.Duration `mapstructure:"debounce" yaml:"debounce"`

	// Filenames allows literal filenames among the watch targets.
	Filenames bool `mapstructure:"filenames" yaml:"filenames"`
}

// Config holds all zoar configuration values.
type Config struct {
	// Files are the test file patterns.
	Files []string `mapstructure:"files" yaml:"files"`

	// Ignore patterns apply to both finding and watching.
	Ignore []string `mapstructure:"ignore" yaml:"ignore"`

	Watch WatchConfig `mapstructure:"watch" yaml:"watch"`

	// Exec is the command prefix each test file is run with. Empty runs the
	// files themselves.
	Exec []string `mapstructure:"exec" yaml:"exec"`

	// Pipe lists command lines the test output is piped through.
	Pipe []string `mapstructure:"pipe" yaml:"pipe"`

	// Only enables only mode in the test files. Nil means: on in watch mode,
	// off otherwise.
	Only *bool `mapstructure:"-" yaml:"only,omitempty"`

	FailExitCode int `mapstructure:"fail_exit_code" yaml:"fail_exit_code"`

	// ExitOnCrash makes a one-shot run exit with the status of a runner that
	// died without reporting.
	ExitOnCrash bool `mapstructure:"exit_on_crash" yaml:"exit_on_crash"`

	Interactive    bool `mapstructure:"interactive" yaml:"interactive"`
	PersistHistory bool `mapstructure:"persist_history" yaml:"persist_history"`

	Verbose bool `mapstructure:"verbose" yaml:"verbose"`
	Debug   bool `mapstructure:"debug" yaml:"debug"`

	// Sources lists the pattern keys of every file that was loaded, in load
	// order.
	Sources []Source `mapstructure:"-" yaml:"-"`

	// configFile is the path to the config file that was loaded (if any).
	configFile string
}

// Source holds the patterns of one configuration file. Relative patterns
// resolve against Dir.
type Source struct {
	Path   string
	Dir    string
	Files  []string
	Ignore []string
	Watch  []string
}

// ConfigFile returns the path to the configuration file that was loaded,
// or an empty string if no file was loaded. The project file wins over the
// user file.
func (c *Config) ConfigFile() string {
	return c.configFile
}

// Overrides are configuration values set on the command line, by key. Only
// flags the user actually set belong here.
type Overrides map[string]any

// LoadOptions configures how configuration is loaded.
type LoadOptions struct {
	// ProjectDir is the directory to search for project-level config, walking
	// up. If empty, the current working directory is used.
	ProjectDir string

	// ConfigFile names the project config file explicitly. It is resolved
	// against ProjectDir.
	ConfigFile string

	// Stderr is where warnings are written.
	// If nil, os.Stderr is used.
	Stderr io.Writer

	SkipProjectConfig bool
	SkipUserConfig    bool
	SkipEnv           bool

	Overrides Overrides
}

// Load reads configuration from all sources and returns a Config struct.
// Configuration is loaded in the following order (later sources override earlier):
//  1. Defaults
//  2. User config file (~/.config/zoar/config.yaml)
//  3. Project config file (.zoar.yaml, found walking up from the project dir)
//  4. Environment variables (ZOAR_*)
//  5. Overrides
//
// If opts is nil, default options are used.
func Load(opts *LoadOptions) (*Config, error) {
	if opts == nil {
		opts = &LoadOptions{}
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}

	projectDir := opts.ProjectDir
	if projectDir == "" {
		var err error
		if projectDir, err = os.Getwd(); err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
	}

	viperInstance := viper.New()
	setDefaults(viperInstance)

	var sources []Source

	if !opts.SkipUserConfig {
		userConfigPath := ResolveXDGPaths().ConfigFilePath()
		source, err := mergeFile(viperInstance, userConfigPath, projectDir, false)
		if err != nil {
			return nil, fmt.Errorf("failed to read user config file: %w", err)
		}
		if source != nil {
			sources = append(sources, *source)
		}
	}

	if !opts.SkipProjectConfig {
		projectConfigPath, required := opts.ConfigFile, true
		if projectConfigPath == "" {
			var err error
			if projectConfigPath, err = FindProjectConfig(projectDir); err != nil {
				return nil, fmt.Errorf("failed to find project config file: %w", err)
			}
			required = false
		} else if !filepath.IsAbs(projectConfigPath) {
			projectConfigPath = filepath.Join(projectDir, projectConfigPath)
		}
		if projectConfigPath != "" {
			source, err := mergeFile(viperInstance, projectConfigPath, filepath.Dir(projectConfigPath), required)
			if err != nil {
				return nil, fmt.Errorf("failed to read project config file: %w", err)
			}
			if source != nil {
				sources = append(sources, *source)
			}
		}
	}

	if !opts.SkipEnv {
		viperInstance.SetEnvPrefix(EnvPrefix)
		viperInstance.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
		viperInstance.AutomaticEnv()
		// only has no default, so AutomaticEnv alone would not see it.
		_ = viperInstance.BindEnv(KeyOnly)
	}

	for key, value := range opts.Overrides {
		viperInstance.Set(key, value)
	}

	var cfg Config
	if err := viperInstance.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if viperInstance.IsSet(KeyOnly) {
		only := viperInstance.GetBool(KeyOnly)
		cfg.Only = &only
	}
	cfg.Sources = sources
	if len(sources) > 0 {
		cfg.configFile = sources[len(sources)-1].Path
	}

	result := cfg.Validate()
	if result.HasWarnings() {
		result.WriteWarnings(opts.Stderr)
	}
	if result.HasErrors() {
		return nil, errors.New(result.ErrorMessage())
	}

	return &cfg, nil
}

// mergeFile merges the YAML file at path into viperInstance and returns its
// patterns. A missing file is skipped unless required.
func mergeFile(viperInstance *viper.Viper, path, dir string, required bool) (*Source, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, os.ErrNotExist) && !required {
			return nil, nil
		}
		return nil, err
	}

	file := viper.New()
	file.SetConfigFile(path)
	file.SetConfigType("yaml")
	if err := file.ReadInConfig(); err != nil {
		return nil, err
	}
	if err := viperInstance.MergeConfigMap(file.AllSettings()); err != nil {
		return nil, err
	}

	return &Source{
		Path:   path,
		Dir:    dir,
		Files:  file.GetStringSlice(KeyFiles),
		Ignore: file.GetStringSlice(KeyIgnore),
		Watch:  file.GetStringSlice(KeyWatchPatterns),
	}, nil
}

// DefaultConfig returns a Config with all default values.
func DefaultConfig() *Config {
	return &Config{
		Files:  []string{DefaultFilePattern},
		Ignore: DefaultIgnore(),
		Watch: WatchConfig{
			Patterns: []string{},
			Debounce: DefaultWatchDebounce,
		},
		Exec:           []string{DefaultExec},
		Pipe:           []string{},
		FailExitCode:   DefaultFailExitCode,
		ExitOnCrash:    true,
		Interactive:    DefaultInteractive,
		PersistHistory: DefaultPersistHistory,
		Verbose:        DefaultVerbose,
		Debug:          DefaultDebug,
	}
}
