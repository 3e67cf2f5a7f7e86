// Package zoar wires configuration, file discovery, watching and the run
// supervisor into the modes of the zoar command.
package zoar

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"slices"
	"strings"

	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/yaklabco/zoar/config"
	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/env"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/find"
	"github.com/yaklabco/zoar/pkg/ipc"
	"github.com/yaklabco/zoar/pkg/pattern"
	"github.com/yaklabco/zoar/pkg/supervisor"
	"github.com/yaklabco/zoar/pkg/ui"
	"github.com/yaklabco/zoar/pkg/watch"
)

// Dump targets.
const (
	DumpInput   = "input"
	DumpOptions = "options"
	DumpWatch   = "watch"
)

// Options are the per-invocation settings that do not live in the
// configuration.
type Options struct {
	Cwd string

	// Files are the file patterns given as arguments.
	Files  []string
	Ignore []string
	// Watch are the watch patterns given on the command line.
	Watch []string

	Ls     bool
	Filter []string
	Grep   []string
	Dump   string

	Init  bool
	Force bool

	NoPipes bool

	// Piped reads additional file names from Stdin and skips configured
	// defaults.
	Piped bool

	Stdin  io.Reader
	Stdout io.Writer
	Stderr io.Writer

	Fs      afero.Fs
	Spawner supervisor.Spawner
}

// App runs one invocation of zoar.
type App struct {
	cfg  *config.Config
	opts Options
}

func New(cfg *config.Config, opts Options) (*App, error) {
	if opts.Cwd == "" {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get working directory: %w", err)
		}
		opts.Cwd = cwd
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Fs == nil {
		opts.Fs = afero.NewOsFs()
	}
	switch opts.Dump {
	case "", DumpInput, DumpOptions, DumpWatch:
	default:
		return nil, fault.Userf("invalid value for --dump: %s (accepts %s|%s|%s)", opts.Dump, DumpInput, DumpOptions, DumpWatch)
	}
	return &App{cfg: cfg, opts: opts}, nil
}

// Run executes the mode selected by the options.
func (a *App) Run(ctx context.Context) error {
	if a.opts.Init {
		path, err := config.WriteProjectConfig(a.opts.Cwd, a.opts.Force)
		if err != nil {
			return err
		}
		_, _ = fmt.Fprintf(a.opts.Stdout, "Created %s\n", path)
		return nil
	}

	input, err := a.input()
	if err != nil {
		return err
	}

	if a.opts.Dump != "" {
		return a.dump(input)
	}

	if a.opts.Ls {
		files, err := a.find(ctx, input)
		if err != nil {
			return err
		}
		for _, f := range files {
			_, _ = fmt.Fprintln(a.opts.Stdout, f)
		}
		return nil
	}

	if input.Watch != nil {
		return a.watch(ctx, input)
	}
	return a.once(ctx, input)
}

// Only reports whether only mode is enabled, defaulting to watch mode.
func (a *App) Only() bool {
	if a.cfg.Only != nil {
		return *a.cfg.Only
	}
	return a.cfg.Watch.Enabled && !a.opts.Piped
}

func (a *App) input() (Input, error) {
	cli := Layer{
		Name:         "command line",
		Cwd:          a.opts.Cwd,
		Files:        a.opts.Files,
		Ignore:       a.opts.Ignore,
		Watch:        a.opts.Watch,
		WatchEnabled: a.cfg.Watch.Enabled,
	}

	if a.opts.Piped {
		names, err := ReadFileList(a.opts.Stdin)
		if err != nil {
			return Input{}, err
		}
		cli.Files = append(slices.Clone(cli.Files), names...)
		cli.WatchEnabled = false
		return MergeInputs(cli), nil
	}

	layers := append(configLayers(a.cfg, a.opts.Cwd), cli)
	return MergeInputs(layers...), nil
}

func (a *App) find(ctx context.Context, input Input) ([]string, error) {
	if input.Files.Empty() {
		return []string{}, nil
	}
	files, err := find.Find(ctx, a.opts.Fs, input.Files)
	if err != nil {
		return nil, err
	}
	if len(a.opts.Filter) == 0 {
		return files, nil
	}
	keep := filterPredicate(a.opts.Cwd, a.opts.Filter)
	return lo.Filter(files, func(f string, _ int) bool { return keep(f) }), nil
}

// filterPredicate matches files against --filter values: globs resolve
// against cwd, plain strings match any part of the path.
func filterPredicate(cwd string, filters []string) pattern.Predicate {
	matcher := pattern.Resolve(pattern.Query{Cwd: cwd, Specs: []pattern.Spec{{Pattern: filters}}})
	literals := lo.Filter(filters, func(f string, _ int) bool { return !pattern.Scan(f).IsGlob })
	return func(p string) bool {
		if matcher.IsMatch(p) {
			return true
		}
		return lo.SomeBy(literals, func(l string) bool { return strings.Contains(p, l) })
	}
}

func (a *App) supervisor(exitOnCrash bool) (*supervisor.Supervisor, error) {
	pipes := a.cfg.Pipe
	if a.opts.NoPipes {
		pipes = nil
	}
	return supervisor.New(supervisor.Options{
		Spawner:     a.opts.Spawner,
		Stdout:      a.opts.Stdout,
		Stderr:      a.opts.Stderr,
		Pipes:       pipes,
		ExitOnCrash: exitOnCrash,
	})
}

func (a *App) runOptions() ipc.Options {
	return ipc.Options{
		Exec: a.cfg.Exec,
		Only: a.Only(),
		Grep: a.opts.Grep,
	}
}

// once runs the test files a single time. Failing tests end the process with
// the configured exit code.
func (a *App) once(ctx context.Context, input Input) error {
	files, err := a.find(ctx, input)
	if err != nil {
		return err
	}
	if len(files) == 0 {
		slog.Warn("no test files found")
		return nil
	}

	sup, err := a.supervisor(a.cfg.ExitOnCrash)
	if err != nil {
		return err
	}
	res, err := sup.Trigger(ctx, files, a.runOptions())
	if err != nil {
		return err
	}
	a.report(res)
	if code := res.Code(a.cfg.FailExitCode); code != 0 {
		return fault.Exit(code)
	}
	return nil
}

// watch runs the test files, then again after every change until ctx is
// done or the user quits.
func (a *App) watch(ctx context.Context, input Input) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	sup, err := a.supervisor(false)
	if err != nil {
		return err
	}
	defer func() { _ = sup.Cancel() }()

	run := func(ctx context.Context) error {
		files, err := a.find(ctx, input)
		if err != nil {
			return err
		}
		if stale := lo.Filter(files, func(f string, _ int) bool { return sup.Registry().Stale(f) }); len(stale) > 0 {
			slog.Debug("reloading files of an older run", slog.Int(log.Count, len(stale)))
		}
		res, err := sup.Trigger(ctx, files, a.runOptions())
		if err != nil {
			return err
		}
		if res.State != supervisor.Cancelled {
			a.report(res)
		}
		return nil
	}

	session := watch.NewSession(*input.Watch, run, watch.Options{
		Debounce:       a.cfg.Watch.Debounce,
		AllowFilenames: a.cfg.Watch.Filenames,
	})

	if a.interactive() {
		repl := a.newREPL(session, cancel)
		go func() {
			if err := repl.Run(ctx); err != nil {
				slog.Warn("interactive prompt stopped", slog.Any(log.Error, err))
			}
		}()
	}

	return session.Run(ctx)
}

func (a *App) interactive() bool {
	if !a.cfg.Interactive || a.opts.Piped || env.InCI() {
		return false
	}
	f, ok := a.opts.Stdin.(*os.File)
	return ok && ui.IsTerminal(f)
}
