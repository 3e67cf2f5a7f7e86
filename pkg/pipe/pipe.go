// Package pipe runs a chain of shell-like commands that the test output is
// piped through, such as a TAP reporter.
package pipe

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/google/shlex"

	"github.com/yaklabco/zoar/internal/ish"
	"github.com/yaklabco/zoar/pkg/fault"
)

// Stage is one command of a chain.
type Stage struct {
	Raw  string
	Name string
	Args []string
}

// Chain is a sequence of stages, each reading the previous one's output.
type Chain struct {
	stages []Stage
	cmds   []*exec.Cmd
	input  io.WriteCloser
}

// Parse splits every spec into a command line. An empty or unparsable spec is
// a user error.
func Parse(specs []string) (*Chain, error) {
	c := &Chain{stages: make([]Stage, 0, len(specs))}
	for _, spec := range specs {
		words, err := shlex.Split(spec)
		if err != nil {
			return nil, fault.Userf("%w %q: %w", fault.ErrInvalidPipe, spec, err)
		}
		if len(words) == 0 {
			return nil, fault.Userf("%w %q: empty command", fault.ErrInvalidPipe, spec)
		}
		c.stages = append(c.stages, Stage{Raw: spec, Name: words[0], Args: words[1:]})
	}
	return c, nil
}

// Empty reports whether the chain has no stage.
func (c *Chain) Empty() bool {
	return c == nil || len(c.stages) == 0
}

func (c *Chain) Stages() []Stage {
	return c.stages
}

// String renders the chain the way a shell would show it.
func (c *Chain) String() string {
	raw := make([]string, 0, len(c.stages))
	for _, s := range c.stages {
		raw = append(raw, s.Raw)
	}
	return strings.Join(raw, " | ")
}

// Start launches every stage. The returned writer feeds the first stage; the
// last stage writes to stdout. Closing the writer lets the chain drain.
func (c *Chain) Start(ctx context.Context, stdout, stderr io.Writer) (io.WriteCloser, error) {
	if c.Empty() {
		return nil, errors.New("empty pipe chain")
	}

	c.cmds = make([]*exec.Cmd, len(c.stages))
	for i, s := range c.stages {
		c.cmds[i] = ish.Command(ctx, nil, nil, nil, stderr, s.Name, s.Args...)
	}

	input, err := c.cmds[0].StdinPipe()
	if err != nil {
		return nil, err
	}

	// Parent copies of the inter-stage pipe ends, closed once the stages own them.
	var parentEnds []*os.File
	closeParentEnds := func() {
		for _, f := range parentEnds {
			_ = f.Close()
		}
	}

	for i := 0; i < len(c.cmds)-1; i++ {
		r, w, err := os.Pipe()
		if err != nil {
			closeParentEnds()
			return nil, err
		}
		c.cmds[i].Stdout = w
		c.cmds[i+1].Stdin = r
		parentEnds = append(parentEnds, r, w)
	}
	c.cmds[len(c.cmds)-1].Stdout = stdout

	for i, cmd := range c.cmds {
		if err := cmd.Start(); err != nil {
			closeParentEnds()
			_ = input.Close()
			for _, started := range c.cmds[:i] {
				_ = started.Process.Kill()
				_ = started.Wait()
			}
			return nil, fault.Userf("%w %q: %w", fault.ErrInvalidPipe, c.stages[i].Raw, err)
		}
	}
	closeParentEnds()

	c.input = input
	return input, nil
}

// Wait closes the chain input, waits for every stage and returns the exit code
// of the last one. A failing earlier stage is reported as an error.
func (c *Chain) Wait() (int, error) {
	if c.input != nil {
		_ = c.input.Close()
	}

	var errs []error
	code := 0
	for i, cmd := range c.cmds {
		err := cmd.Wait()
		last := i == len(c.cmds)-1
		switch {
		case last:
			code = ish.ExitStatus(err)
			if err != nil && !ish.CmdRan(err) {
				errs = append(errs, fmt.Errorf("pipe %q: %w", c.stages[i].Raw, err))
			}
		case err != nil:
			errs = append(errs, fmt.Errorf("pipe %q failed with exit code %d: %w", c.stages[i].Raw, ish.ExitStatus(err), err))
		}
	}
	return code, errors.Join(errs...)
}
