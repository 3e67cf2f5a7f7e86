package supervisor

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"syscall"

	"github.com/google/uuid"

	"github.com/yaklabco/zoar/internal/ish"
	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/ipc"
	"github.com/yaklabco/zoar/pkg/pipe"
)

var (
	// ErrRun is reported when the runner child replies with an error.
	ErrRun = errors.New("test run failed")
	// ErrPipe is reported when a stage of the output pipe before the last
	// one fails.
	ErrPipe = errors.New("output pipe failed")
)

// Handle tracks one spawned child from start to completion.
type Handle struct {
	ID         uuid.UUID
	Generation uint64

	proc  Process
	chain *pipe.Chain

	mu        sync.Mutex
	state     State
	exited    bool
	replied   bool
	completed bool
	cancelled bool
	done      chan struct{}
	result    *Result
	err       error
}

func newHandle(id uuid.UUID, generation uint64, proc Process, chain *pipe.Chain) *Handle {
	return &Handle{
		ID:         id,
		Generation: generation,
		proc:       proc,
		chain:      chain,
		state:      Starting,
		done:       make(chan struct{}),
	}
}

func (h *Handle) State() State {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.state
}

// Done is closed once the run's completion has been observed.
func (h *Handle) Done() <-chan struct{} {
	return h.done
}

// Wait blocks until the run has completed.
func (h *Handle) Wait() (*Result, error) {
	<-h.done
	return h.result, h.err
}

// Cancel asks a live child to terminate. It returns false when the child has
// exited without its reply being read, in which case the handle can be
// neither cancelled nor replaced. A child that has replied is left to finish.
func (h *Handle) Cancel() bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	switch {
	case h.completed, h.replied:
		return true
	case h.exited:
		return false
	}
	h.cancelled = true
	if err := h.proc.Signal(syscall.SIGTERM); err != nil {
		slog.Debug("failed to signal runner", slog.String(log.RunID, h.ID.String()), slog.Any(log.Error, err))
	}
	return true
}

func (h *Handle) setState(state State) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.state = state
}

// run waits for the reply and the exit of the child, then resolves the
// handle.
func (h *Handle) run(exitOnCrash bool) {
	exitCh := make(chan error, 1)
	go func() {
		err := h.proc.Wait()
		h.mu.Lock()
		h.exited = true
		h.mu.Unlock()
		exitCh <- err
	}()

	reply, recvErr := h.proc.Receive()
	if recvErr == nil {
		h.mu.Lock()
		h.replied = true
		h.mu.Unlock()
	}
	if err := h.proc.CloseIPC(); err != nil {
		slog.Debug("failed to close ipc pipes", slog.String(log.RunID, h.ID.String()), slog.Any(log.Error, err))
	}
	waitErr := <-exitCh

	res := &Result{
		RunID:      h.ID,
		Generation: h.Generation,
		ExitCode:   ish.ExitStatus(waitErr),
	}
	var pipeErr error
	if h.chain != nil {
		res.Piped = true
		res.PipeCode, pipeErr = h.chain.Wait()
		if pipeErr != nil {
			pipeErr = fmt.Errorf("%w: %w", ErrPipe, pipeErr)
		}
	}

	h.mu.Lock()
	cancelled := h.cancelled
	h.mu.Unlock()

	var err error
	switch {
	case cancelled:
		res.State = Cancelled
	case recvErr == nil && reply.Type == ipc.TypeDone:
		res.State = Done
		res.Harnesses = reply.Harnesses
		res.Summary = Aggregate(reply.Harnesses)
	case recvErr == nil && reply.Type == ipc.TypeError:
		res.State = Failed
		err = fmt.Errorf("%w: %s", ErrRun, reply.Error)
	case recvErr == nil:
		res.State = Failed
		err = fmt.Errorf("%w: unexpected %q reply", fault.ErrProtocol, reply.Type)
	case errors.Is(recvErr, io.EOF):
		res.State = Failed
		res.Premature = true
		slog.Debug("runner exited prematurely", slog.String(log.RunID, h.ID.String()), slog.Int(log.Code, res.ExitCode))
		if exitOnCrash {
			err = fault.Exit(res.ExitCode)
		}
	default:
		res.State = Failed
		err = recvErr
	}
	if pipeErr != nil && !cancelled {
		err = errors.Join(err, pipeErr)
	}

	h.mu.Lock()
	h.state = res.State
	h.result = res
	h.err = err
	h.completed = true
	h.mu.Unlock()
	close(h.done)
}
