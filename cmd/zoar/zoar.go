package zoar

import (
	"context"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/fang"
	"github.com/google/shlex"
	"github.com/spf13/cobra"

	"github.com/yaklabco/zoar/cmd/zoar/version"
	"github.com/yaklabco/zoar/config"
	"github.com/yaklabco/zoar/pkg/env"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/prettylog"
	"github.com/yaklabco/zoar/pkg/runner"
	"github.com/yaklabco/zoar/pkg/supervisor"
	"github.com/yaklabco/zoar/pkg/zoar"
)

const (
	shortDescription = "zoar finds and runs test files, once or on every change."
)

// RunParams are the parsed command line.
type RunParams struct {
	Args []string

	Ignore        []string
	Watch         bool
	WatchPatterns []string
	Ls            bool
	Filter        []string
	Grep          []string
	Dump          string
	ConfigFile    string
	Init          bool
	Force         bool
	NoPipes       bool

	// Overrides holds the configuration keys set by flags the user gave.
	Overrides config.Overrides

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer
}

type rootCmdOptions struct {
	runFunc func(ctx context.Context, params RunParams) error
}

type Option func(*rootCmdOptions)

// This is intentionally designed to be unusable from outside this package,
// as it exists purely for testing purposes.
func withRunFunc(fn func(ctx context.Context, params RunParams) error) Option {
	return func(opts *rootCmdOptions) {
		opts.runFunc = fn
	}
}

// configFlags maps flags onto the configuration keys they override.
var configFlags = map[string]string{ //nolint:gochecknoglobals // lookup table
	"exec":            config.KeyExec,
	"pipe":            config.KeyPipe,
	"watch-debounce":  config.KeyWatchDebounce,
	"watch-filenames": config.KeyWatchFilenames,
	"fail-exit-code":  config.KeyFailExitCode,
	"exit-on-crash":   config.KeyExitOnCrash,
	"verbose":         config.KeyVerbose,
	"debug":           config.KeyDebug,
}

func NewRootCmd(ctx context.Context, opts ...Option) *cobra.Command {
	rootCmdOpts := &rootCmdOptions{
		runFunc: Run,
	}
	for _, opt := range opts {
		opt(rootCmdOpts)
	}

	var (
		runParams        RunParams
		execLine         string
		pipes            []string
		debounce         time.Duration
		watchFilenames   bool
		failExitCode     int
		exitOnCrash      bool
		verbose, debug   bool
		only, noOnly     bool
		noInteractive    bool
		noPersistHistory bool
	)

	rootCmd := &cobra.Command{
		Use:   "zoar [flags] [files...]",
		Short: shortDescription,
		Example: `	# Run the test files of the project
	zoar

	# Run some files, rerunning them on every change under src/
	zoar -W 'src/**/*.js' 'test/**/*.spec.js'

	# List the test files instead of running them
	zoar --ls

	# Run the files listed on stdin
	git diff --name-only | grep spec | zoar

	# Create a .zoar.yaml
	zoar --init`,
		Version: version.OverallVersionStringColorized(ctx),
		Args:    cobra.ArbitraryArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			flags := cmd.Flags()
			runParams.Args = args
			runParams.Stdin = cmd.InOrStdin()
			runParams.Stdout = cmd.OutOrStdout()
			runParams.Stderr = cmd.ErrOrStderr()

			overrides := config.Overrides{}
			values := map[string]any{
				"pipe":            pipes,
				"watch-debounce":  debounce,
				"watch-filenames": watchFilenames,
				"fail-exit-code":  failExitCode,
				"exit-on-crash":   exitOnCrash,
				"verbose":         verbose,
				"debug":           debug,
			}
			if flags.Changed("exec") {
				words, err := shlex.Split(execLine)
				if err != nil {
					return fault.Userf("invalid --exec: %v", err)
				}
				values["exec"] = words
			}
			for flag, key := range configFlags {
				if flags.Changed(flag) {
					overrides[key] = values[flag]
				}
			}
			if runParams.Watch || len(runParams.WatchPatterns) > 0 {
				overrides[config.KeyWatchEnabled] = true
			}
			switch {
			case flags.Changed("no-only") && noOnly:
				overrides[config.KeyOnly] = false
			case flags.Changed("only"):
				overrides[config.KeyOnly] = only
			}
			if noInteractive {
				overrides[config.KeyInteractive] = false
			}
			if noPersistHistory {
				overrides[config.KeyPersistHistory] = false
			}
			runParams.Overrides = overrides

			return rootCmdOpts.runFunc(cmd.Context(), runParams)
		},
	}

	rootCmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return fault.Userf("%w", err)
	})

	flags := rootCmd.Flags()

	// Selection.
	flags.StringArrayVarP(&runParams.Ignore, "ignore", "i", nil, "ignore pattern, can be repeated")
	flags.StringArrayVarP(&runParams.Filter, "filter", "f", nil, "only run test files matching the pattern, can be repeated")
	flags.StringArrayVarP(&runParams.Grep, "grep", "g", nil, "filter tests by title, passed on to the test files, can be repeated")

	// Behaviour.
	flags.BoolVarP(&runParams.Watch, "watch", "w", false, "enable watch mode")
	flags.StringArrayVarP(&runParams.WatchPatterns, "watch-pattern", "W", nil, "enable watch mode and add a watch pattern, can be repeated")
	flags.BoolVar(&noInteractive, "no-interactive", false, "disable the interactive prompt in watch mode")
	flags.BoolVarP(&runParams.Ls, "ls", "l", false, "list test files instead of running them")
	flags.StringArrayVar(&pipes, "pipe", nil, "pipe the test output through a command, can be repeated")
	flags.BoolVar(&runParams.NoPipes, "no-pipes", false, "skip configured pipes")
	flags.StringVar(&execLine, "exec", config.DefaultExec, "command each test file is passed to")
	flags.BoolVar(&only, "only", false, "enable only mode (default: true in watch mode)")
	flags.BoolVar(&noOnly, "no-only", false, "disable only mode")

	// Configuration.
	flags.StringVarP(&runParams.ConfigFile, "config", "c", "", "location of the zoar config file")
	flags.BoolVar(&runParams.Init, "init", false, "create a "+config.ProjectConfigFileName+" file")
	flags.BoolVar(&runParams.Force, "force", false, "overwrite an existing config file with --init")

	// Advanced.
	flags.DurationVar(&debounce, "watch-debounce", config.DefaultWatchDebounce, "watch debounce delay")
	flags.BoolVar(&watchFilenames, "watch-filenames", false, "allow filenames as watch targets (beware of shell glob expansion)")
	flags.BoolVar(&noPersistHistory, "no-persist-history", false, "do not write the prompt history")
	flags.IntVar(&failExitCode, "fail-exit-code", config.DefaultFailExitCode, "exit code when tests fail")
	flags.BoolVar(&exitOnCrash, "exit-on-crash", true, "exit with the runner's status when it dies without reporting")

	// Diagnostics.
	flags.StringVar(&runParams.Dump, "dump", "", "dump state for debugging ("+zoar.DumpInput+"|"+zoar.DumpOptions+"|"+zoar.DumpWatch+")")
	flags.Lookup("dump").NoOptDefVal = zoar.DumpOptions
	flags.BoolVarP(&verbose, "verbose", "v", env.Verbose(), "trace the commands zoar runs")
	flags.BoolVarP(&debug, "debug", "d", env.Debug(), "turn on debug messages")

	rootCmd.MarkFlagsMutuallyExclusive("only", "no-only")
	rootCmd.AddCommand(newRunnerCmd())

	return rootCmd
}

// newRunnerCmd is the child side of a test run. Users never call it.
func newRunnerCmd() *cobra.Command {
	return &cobra.Command{
		Use:    supervisor.RunnerCommand,
		Hidden: true,
		Args:   cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			prettylog.SetupPrettyLogger(cmd.ErrOrStderr(), prettylog.Options{Debug: env.Debug(), Prefix: "runner"})
			return runner.Main(ctx, runner.Config{
				Stdout: cmd.OutOrStdout(),
				Stderr: cmd.ErrOrStderr(),
			})
		},
	}
}

// Run loads the configuration and runs the selected mode.
func Run(ctx context.Context, params RunParams) error {
	cwd, err := os.Getwd()
	if err != nil {
		return err
	}

	cfg, err := config.Load(&config.LoadOptions{
		ProjectDir: cwd,
		ConfigFile: params.ConfigFile,
		Stderr:     params.Stderr,
		Overrides:  params.Overrides,
	})
	if err != nil {
		return fault.Userf("%w", err)
	}

	prettylog.SetupPrettyLogger(params.Stderr, prettylog.Options{Debug: cfg.Debug})
	// Read back by this process and inherited by the runner.
	if cfg.Verbose {
		_ = os.Setenv(env.VerboseEnv, "1")
	}
	if cfg.Debug {
		_ = os.Setenv(env.DebugEnv, "1")
	}

	stdin, _ := params.Stdin.(*os.File)
	app, err := zoar.New(cfg, zoar.Options{
		Cwd:     cwd,
		Files:   params.Args,
		Ignore:  params.Ignore,
		Watch:   params.WatchPatterns,
		Ls:      params.Ls,
		Filter:  params.Filter,
		Grep:    params.Grep,
		Dump:    params.Dump,
		Init:    params.Init,
		Force:   params.Force,
		NoPipes: params.NoPipes,
		Piped:   zoar.IsPiped(stdin),
		Stdin:   params.Stdin,
		Stdout:  params.Stdout,
		Stderr:  params.Stderr,
	})
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	return app.Run(ctx)
}

// ExecuteWithFang runs the root Cobra command with Fang-specific options.
// Errors that only carry an exit code are not printed.
func ExecuteWithFang(ctx context.Context, rootCmd *cobra.Command) error {
	//nolint:wrapcheck // top-level error from cobra, wrapping not needed
	return fang.Execute(
		ctx, rootCmd,
		fang.WithVersion(rootCmd.Version),
		fang.WithoutManpage(),
		fang.WithErrorHandler(func(w io.Writer, styles fang.Styles, err error) {
			if fault.IsSilent(err) {
				return
			}
			fang.DefaultErrorHandler(w, styles, err)
		}),
	)
}
