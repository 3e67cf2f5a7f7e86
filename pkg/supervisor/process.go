package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"syscall"
	"time"

	"github.com/yaklabco/zoar/internal/ish"
	"github.com/yaklabco/zoar/pkg/ipc"
)

// RunnerCommand is the hidden subcommand that turns the zoar binary into a
// runner child.
const RunnerCommand = "__runner"

// killDelay is how long a cancelled child may take to exit after SIGTERM.
const killDelay = 5 * time.Second

// Process is a started runner child.
type Process interface {
	Pid() int
	Send(msg ipc.Message) error
	// Receive blocks for the next message; io.EOF once the child closed its
	// end of the IPC pipe.
	Receive() (ipc.Message, error)
	CloseIPC() error
	Signal(sig os.Signal) error
	Wait() error
}

// Spawner starts runner children.
type Spawner interface {
	Spawn(ctx context.Context, stdout, stderr io.Writer) (Process, error)
}

// SpawnerFunc adapts a function to Spawner.
type SpawnerFunc func(ctx context.Context, stdout, stderr io.Writer) (Process, error)

func (f SpawnerFunc) Spawn(ctx context.Context, stdout, stderr io.Writer) (Process, error) {
	return f(ctx, stdout, stderr)
}

// ExecSpawner runs Command with the IPC pipes on file descriptors 3
// (parent to child) and 4 (child to parent).
type ExecSpawner struct {
	Command []string
	Env     map[string]string
}

// SelfSpawner runs the current executable's runner subcommand.
func SelfSpawner(env map[string]string) (*ExecSpawner, error) {
	exe, err := os.Executable()
	if err != nil {
		return nil, fmt.Errorf("failed to locate zoar executable: %w", err)
	}
	return &ExecSpawner{Command: []string{exe, RunnerCommand}, Env: env}, nil
}

func (s *ExecSpawner) Spawn(ctx context.Context, stdout, stderr io.Writer) (Process, error) {
	if len(s.Command) == 0 {
		return nil, errors.New("no runner command")
	}

	toChildR, toChildW, err := os.Pipe()
	if err != nil {
		return nil, err
	}
	fromChildR, fromChildW, err := os.Pipe()
	if err != nil {
		_ = toChildR.Close()
		_ = toChildW.Close()
		return nil, err
	}

	cmd := ish.Command(ctx, s.Env, nil, stdout, stderr, s.Command[0], s.Command[1:]...)
	cmd.ExtraFiles = []*os.File{toChildR, fromChildW}
	cmd.Cancel = func() error { return cmd.Process.Signal(syscall.SIGTERM) }
	cmd.WaitDelay = killDelay

	startErr := cmd.Start()
	// The child owns its ends from here on.
	_ = toChildR.Close()
	_ = fromChildW.Close()
	if startErr != nil {
		_ = toChildW.Close()
		_ = fromChildR.Close()
		return nil, startErr
	}

	return &execProcess{
		cmd:    cmd,
		out:    toChildW,
		in:     fromChildR,
		writer: ipc.NewWriter(toChildW),
		reader: ipc.NewReader(fromChildR),
	}, nil
}

type execProcess struct {
	cmd    *exec.Cmd
	out    *os.File
	in     *os.File
	writer *ipc.Writer
	reader *ipc.Reader
}

func (p *execProcess) Pid() int { return p.cmd.Process.Pid }

func (p *execProcess) Send(msg ipc.Message) error { return p.writer.Write(msg) }

func (p *execProcess) Receive() (ipc.Message, error) { return p.reader.Read() }

func (p *execProcess) CloseIPC() error {
	return errors.Join(p.out.Close(), p.in.Close())
}

func (p *execProcess) Signal(sig os.Signal) error { return p.cmd.Process.Signal(sig) }

func (p *execProcess) Wait() error { return p.cmd.Wait() }
