// Package watch turns pattern queries into filesystem watch roots and reruns
// the test suite when a watched file changes.
package watch

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"sync"
	"time"

	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/pattern"
	"github.com/yaklabco/zoar/pkg/watch/wtarget"
)

// RunFunc performs one test run.
type RunFunc func(ctx context.Context) error

type Options struct {
	// Debounce is the quiet period after the last change before a rerun.
	Debounce time.Duration
	// AllowFilenames permits literal filenames as watch targets.
	AllowFilenames bool
}

// Session owns the watchers of one watch-mode invocation. All of its
// watchers share a single debouncer.
type Session struct {
	query pattern.Query
	run   RunFunc
	opts  Options

	mu        sync.Mutex
	ctx       context.Context //nolint:containedctx // Reruns triggered by the REPL run in the session's context.
	targets   []wtarget.Target
	watchers  []*DirWatcher
	debouncer *Debouncer
	fatal     chan error
}

func NewSession(q pattern.Query, run RunFunc, opts Options) *Session {
	if opts.Debounce <= 0 {
		opts.Debounce = DefaultDebounce
	}
	return &Session{
		query: q,
		run:   run,
		opts:  opts,
		fatal: make(chan error, 1),
	}
}

// Start performs the initial run, then plans the targets and starts watching
// them. It returns once every watcher is ready.
func (s *Session) Start(ctx context.Context) error {
	s.mu.Lock()
	s.ctx = ctx
	s.mu.Unlock()

	s.rerun(ctx)
	select {
	case err := <-s.fatal:
		return err
	default:
	}

	targets := MergeTargets(s.query)
	if err := CheckFilenames(targets, s.opts.AllowFilenames); err != nil {
		return err
	}

	debouncer := NewDebouncer(s.opts.Debounce, func() { s.rerun(ctx) })
	onChange := func(string) { debouncer.Schedule() }

	watchers := make([]*DirWatcher, 0, len(targets))
	for _, target := range targets {
		compiled := wtarget.Compile(target)
		w := NewDirWatcher(target.Dir, target.Deep, compiled.Filter)
		w.On(OpAdd, onChange)
		w.On(OpRemove, onChange)
		if err := w.Init(ctx); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				slog.Warn("not watching missing directory", slog.String(log.Dir, target.Dir))
				continue
			}
			debouncer.Stop()
			closeAll(watchers)
			return fmt.Errorf("failed to watch %s: %w", target.Dir, err)
		}
		slog.Debug("watching",
			slog.String(log.Target, target.Dir),
			slog.Bool("deep", target.Deep),
			slog.Any(log.Files, w.Paths()),
		)
		watchers = append(watchers, w)
	}

	s.mu.Lock()
	s.targets = targets
	s.watchers = watchers
	s.debouncer = debouncer
	s.mu.Unlock()
	return nil
}

// Run starts the session and blocks until ctx is done or a run asks the
// process to exit.
func (s *Session) Run(ctx context.Context) error {
	if err := s.Start(ctx); err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	select {
	case <-ctx.Done():
		return nil
	case err := <-s.fatal:
		return err
	}
}

// Rerun runs the suite now, bypassing the debouncer.
func (s *Session) Rerun() {
	s.mu.Lock()
	ctx := s.ctx
	s.mu.Unlock()
	if ctx == nil {
		return
	}
	s.rerun(ctx)
}

// Targets returns the planned watch targets.
func (s *Session) Targets() []wtarget.Target {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.targets
}

// Close stops every watcher and any pending rerun.
func (s *Session) Close() error {
	s.mu.Lock()
	watchers := s.watchers
	debouncer := s.debouncer
	s.watchers = nil
	s.mu.Unlock()

	if debouncer != nil {
		debouncer.Stop()
	}
	return closeAll(watchers)
}

func (s *Session) rerun(ctx context.Context) {
	err := s.run(ctx)
	switch {
	case err == nil:
	case fault.IsSilent(err):
		select {
		case s.fatal <- err:
		default:
		}
	case ctx.Err() != nil:
	default:
		slog.Error("re-run failed", slog.Any(log.Error, err))
	}
}

func closeAll(watchers []*DirWatcher) error {
	var errs []error
	for _, w := range watchers {
		errs = append(errs, w.Close())
	}
	return errors.Join(errs...)
}
