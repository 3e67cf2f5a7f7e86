// Package runner is the child side of the supervisor protocol: it receives
// one start message, runs the test files and replies with their summaries.
package runner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/samber/lo"

	"github.com/yaklabco/zoar/internal/ish"
	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/env"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/ipc"
)

type Config struct {
	Stdout io.Writer
	Stderr io.Writer
	// Env is added to the environment of every test file.
	Env map[string]string
}

// Main serves the IPC pipes the supervisor opened on the child's file
// descriptors 3 and 4.
func Main(ctx context.Context, cfg Config) error {
	in := os.NewFile(ipc.ChildReadFD, "ipc-in")
	out := os.NewFile(ipc.ChildWriteFD, "ipc-out")
	if _, err := in.Stat(); err != nil {
		return fault.Fatalf(fault.ExitInternal, "the runner must be started by zoar: %v", err)
	}
	if _, err := out.Stat(); err != nil {
		return fault.Fatalf(fault.ExitInternal, "the runner must be started by zoar: %v", err)
	}
	closeOnExec(in)
	closeOnExec(out)
	defer in.Close()
	defer out.Close()

	return Serve(ctx, in, out, cfg)
}

// Serve reads exactly one message from in and answers on out. A run that
// cannot be carried out is reported to the parent and returned.
func Serve(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	if cfg.Stdout == nil {
		cfg.Stdout = os.Stdout
	}
	if cfg.Stderr == nil {
		cfg.Stderr = os.Stderr
	}

	msg, err := ipc.NewReader(in).Read()
	if errors.Is(err, io.EOF) {
		return fmt.Errorf("%w: no start message", fault.ErrProtocol)
	}
	if err != nil {
		return err
	}
	if msg.Type != ipc.TypeStart {
		return fmt.Errorf("%w: invalid message type: %s", fault.ErrProtocol, msg.Type)
	}

	opts := ipc.Options{}
	if msg.Options != nil {
		opts = *msg.Options
	}

	writer := ipc.NewWriter(out)
	harnesses, runErr := runFiles(ctx, msg.Files, opts, cfg)
	if ctx.Err() != nil {
		// The parent cancelled this run and expects no reply.
		return ctx.Err()
	}
	if runErr != nil {
		if err := writer.Write(ipc.Error(runErr)); err != nil {
			return errors.Join(runErr, err)
		}
		return runErr
	}
	return writer.Write(ipc.Done(harnesses))
}

func runFiles(ctx context.Context, files []string, opts ipc.Options, cfg Config) ([]ipc.Summary, error) {
	testEnv := lo.Assign(cfg.Env, fileEnv(opts))

	harnesses := make([]ipc.Summary, 0, len(files))
	for _, file := range files {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		summary, err := runFile(ctx, file, opts.Exec, testEnv, cfg)
		if err != nil {
			return nil, err
		}
		harnesses = append(harnesses, summary)
	}
	return harnesses, nil
}

func runFile(ctx context.Context, file string, prefix []string, testEnv map[string]string, cfg Config) (ipc.Summary, error) {
	name, args := file, []string(nil)
	if len(prefix) > 0 {
		name = prefix[0]
		args = append(append(args, prefix[1:]...), file)
	}

	counter := newTapCounter(cfg.Stdout)
	ran, code, err := ish.Exec(ctx, testEnv, nil, counter, cfg.Stderr, name, args...)
	if !ran {
		return ipc.Summary{}, fmt.Errorf("failed to run %s: %w", file, err)
	}

	summary := counter.Summary()
	summary.File = file
	summary.Pass = code == 0 && summary.FailureCount == 0
	slog.Debug("test file finished",
		slog.String(log.Path, file),
		slog.Int(log.Code, code),
		slog.Int(log.Count, summary.Count),
	)
	return summary, nil
}

func fileEnv(opts ipc.Options) map[string]string {
	vars := map[string]string{
		env.GenerationEnv: strconv.FormatUint(opts.Generation, 10),
	}
	if opts.Only {
		vars[env.OnlyEnv] = "1"
	}
	if len(opts.Grep) > 0 {
		vars[env.GrepEnv] = strings.Join(opts.Grep, "\n")
	}
	if opts.RunID != "" {
		vars[env.RunIDEnv] = opts.RunID
	}
	return vars
}
