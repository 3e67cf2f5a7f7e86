// Package fault holds the error taxonomy of zoar and the mapping from errors
// to process exit codes.
package fault

import (
	"errors"
	"fmt"
)

// Process exit codes.
const (
	ExitOK       = 0
	ExitFailure  = 1
	ExitUser     = 254
	ExitInternal = 255
)

// Sentinel errors. All of them but ErrProtocol are user errors.
var (
	ErrFileNotFound   = errors.New("file not found")
	ErrWatchFilenames = errors.New("filenames are not allowed as watch targets")
	ErrInvalidPipe    = errors.New("invalid pipe")
	ErrStaleRun       = errors.New("staled test run")
	ErrProtocol       = errors.New("protocol violation")
)

type fatalError struct {
	code int
	error
}

func (f fatalError) ExitStatus() int {
	return f.code
}

func (f fatalError) Unwrap() error {
	return f.error
}

// ExitStatuser is an interface for errors that carry an exit status code.
type ExitStatuser interface {
	ExitStatus() int
}

// Fatal returns an error that will cause zoar to print out the
// given args and exit with the given exit code.
func Fatal(code int, args ...any) error {
	return fatalError{
		code:  code,
		error: errors.New(fmt.Sprint(args...)),
	}
}

// Fatalf returns an error that will cause zoar to print out the
// given message and exit with the given exit code.
func Fatalf(code int, format string, args ...any) error {
	return fatalError{
		code:  code,
		error: fmt.Errorf(format, args...),
	}
}

// UserError is an expected failure caused by the user's input. It is reported
// as a single line, without any diagnostic detail.
type UserError struct {
	err error
}

func (e *UserError) Error() string {
	return e.err.Error()
}

func (e *UserError) Unwrap() error {
	return e.err
}

func (e *UserError) ExitStatus() int {
	return ExitUser
}

// Userf returns a UserError. The format supports %w.
func Userf(format string, args ...any) error {
	return &UserError{err: fmt.Errorf(format, args...)}
}

// IsUser reports whether err is, or wraps, a UserError.
func IsUser(err error) bool {
	var ue *UserError
	return errors.As(err, &ue)
}

// ExitError asks the CLI to exit with a code without printing anything.
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

func (e *ExitError) ExitStatus() int {
	return e.Code
}

// Exit returns a silent ExitError for code.
func Exit(code int) error {
	return &ExitError{Code: code}
}

// IsSilent reports whether err only carries an exit code.
func IsSilent(err error) bool {
	var ee *ExitError
	return errors.As(err, &ee)
}

// ExitStatus queries the error for an exit status. If the error is nil, it
// returns 0. If the error does not implement ExitStatus() int, it is an
// internal error and ExitInternal is returned.
func ExitStatus(err error) int {
	if err == nil {
		return ExitOK
	}
	var exit ExitStatuser
	if errors.As(err, &exit) {
		return exit.ExitStatus()
	}
	return ExitInternal
}
