// Package ish runs external commands for zoar and interprets how they ended.
package ish

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"strings"

	"github.com/samber/lo"

	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/env"
	"github.com/yaklabco/zoar/pkg/fault"
)

// Command prepares cmd with the process environment extended by extraEnv. The
// command line is traced to the console in verbose mode.
func Command(ctx context.Context, extraEnv map[string]string, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) *exec.Cmd {
	theCmd := exec.CommandContext(ctx, cmd, args...)
	theCmd.Env = env.ToAssignments(lo.Assign(env.ToMap(os.Environ()), extraEnv))
	theCmd.Stdin = stdin
	theCmd.Stdout = stdout
	theCmd.Stderr = stderr

	if env.Verbose() {
		quoted := make([]string, 0, len(args))
		for i := range args {
			quoted = append(quoted, fmt.Sprintf("%q", args[i]))
		}
		log.SimpleConsoleLogger.Println("exec:", cmd, strings.Join(quoted, " "))
	}
	return theCmd
}

// Exec runs the command to completion. ran reports whether it started and
// exited on its own; code is its exit status.
func Exec(ctx context.Context, extraEnv map[string]string, stdin io.Reader, stdout, stderr io.Writer, cmd string, args ...string) (bool, int, error) {
	err := Command(ctx, extraEnv, stdin, stdout, stderr, cmd, args...).Run()
	return CmdRan(err), ExitStatus(err), err
}

// CmdRan examines the error to determine if it was generated as a result of a
// command running via os/exec.Command.
func CmdRan(err error) bool {
	if err == nil {
		return true
	}
	var ee *exec.ExitError
	ok := errors.As(err, &ee)
	if ok {
		return ee.Exited()
	}
	return false
}

// ExitStatus returns the exit status of the error if it is an exec.ExitError
// or if it implements ExitStatus() int.
func ExitStatus(err error) int {
	if err == nil {
		return 0
	}
	var exit fault.ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	var e *exec.ExitError
	if errors.As(err, &e) {
		if ex, ok := e.Sys().(fault.ExitStatuser); ok {
			return ex.ExitStatus()
		}
	}
	return 1
}
