// Package supervisor runs test files in a child process, at most one at a
// time: triggering a run cancels the previous one and waits for it to end.
package supervisor

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/google/uuid"

	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/ipc"
	"github.com/yaklabco/zoar/pkg/pipe"
)

type Options struct {
	// Spawner starts the runner children. Defaults to this executable's
	// runner subcommand.
	Spawner Spawner
	Stdout  io.Writer
	Stderr  io.Writer
	// Pipes are command lines the child output is piped through, in order.
	Pipes []string
	// ExitOnCrash turns a child that exits without replying into a request to
	// exit with its status.
	ExitOnCrash bool
	Registry    *Registry
}

type Supervisor struct {
	opts     Options
	registry *Registry

	// triggerMu serializes cancel-wait-spawn sequences.
	triggerMu sync.Mutex

	mu     sync.Mutex
	active *Handle
}

// New validates opts and returns an idle supervisor.
func New(opts Options) (*Supervisor, error) {
	if _, err := pipe.Parse(opts.Pipes); err != nil {
		return nil, err
	}
	if opts.Spawner == nil {
		spawner, err := SelfSpawner(nil)
		if err != nil {
			return nil, err
		}
		opts.Spawner = spawner
	}
	if opts.Stdout == nil {
		opts.Stdout = os.Stdout
	}
	if opts.Stderr == nil {
		opts.Stderr = os.Stderr
	}
	if opts.Registry == nil {
		opts.Registry = NewRegistry()
	}
	return &Supervisor{opts: opts, registry: opts.Registry}, nil
}

func (s *Supervisor) Registry() *Registry {
	return s.registry
}

// Active returns the handle of the current run, or nil.
func (s *Supervisor) Active() *Handle {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Trigger runs files in a fresh child, after cancelling and waiting for any
// run still in progress, and blocks until the new run has completed. A run
// that gets cancelled by a later Trigger ends with State Cancelled.
func (s *Supervisor) Trigger(ctx context.Context, files []string, opts ipc.Options) (*Result, error) {
	h, err := s.start(ctx, files, opts)
	if err != nil {
		return nil, err
	}
	return h.Wait()
}

// Cancel terminates the current run, if any, and waits for it to end.
func (s *Supervisor) Cancel() error {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()
	return s.cancelPrevious()
}

func (s *Supervisor) start(ctx context.Context, files []string, opts ipc.Options) (*Handle, error) {
	s.triggerMu.Lock()
	defer s.triggerMu.Unlock()

	if err := s.cancelPrevious(); err != nil {
		return nil, err
	}
	return s.spawn(ctx, files, opts)
}

func (s *Supervisor) cancelPrevious() error {
	h := s.Active()
	if h == nil || h.State().Final() {
		return nil
	}
	if !h.Cancel() {
		return fault.Userf("%w", fault.ErrStaleRun)
	}
	<-h.Done()
	return nil
}

func (s *Supervisor) spawn(ctx context.Context, files []string, opts ipc.Options) (*Handle, error) {
	id := uuid.New()
	opts.Generation = s.registry.Next(files)
	opts.RunID = id.String()

	stdout := s.opts.Stdout
	var chain *pipe.Chain
	if len(s.opts.Pipes) > 0 {
		var err error
		if chain, err = pipe.Parse(s.opts.Pipes); err != nil {
			return nil, err
		}
		if stdout, err = chain.Start(ctx, s.opts.Stdout, s.opts.Stderr); err != nil {
			return nil, err
		}
	}

	proc, err := s.opts.Spawner.Spawn(ctx, stdout, s.opts.Stderr)
	if err != nil {
		if chain != nil {
			_, _ = chain.Wait()
		}
		return nil, fmt.Errorf("failed to start runner: %w", err)
	}

	h := newHandle(id, opts.Generation, proc, chain)
	s.mu.Lock()
	s.active = h
	s.mu.Unlock()

	slog.Debug("runner started",
		slog.String(log.RunID, opts.RunID),
		slog.Uint64(log.Generation, opts.Generation),
		slog.Int(log.Pid, proc.Pid()),
		slog.Int(log.Count, len(files)),
	)

	if err := proc.Send(ipc.Start(files, opts)); err != nil {
		slog.Warn("failed to start test run", slog.String(log.RunID, opts.RunID), slog.Any(log.Error, err))
		h.Cancel()
	} else {
		h.setState(Running)
	}

	go func() {
		h.run(s.opts.ExitOnCrash)
		s.mu.Lock()
		if s.active == h {
			s.active = nil
		}
		s.mu.Unlock()
	}()

	return h, nil
}
