package supervisor

import (
	"github.com/google/uuid"

	"github.com/yaklabco/zoar/pkg/ipc"
)

// Result is the outcome of one triggered run.
type Result struct {
	RunID      uuid.UUID
	Generation uint64
	State      State
	Summary    ipc.Summary
	Harnesses  []ipc.Summary
	// ExitCode is the child's exit status.
	ExitCode int
	// Premature is set when the child exited without replying.
	Premature bool
	// Piped is set when the output went through a pipe chain.
	Piped bool
	// PipeCode is the exit status of the last output pipe stage.
	PipeCode int
}

// Pass reports whether the run completed, every harness passed and the last
// output pipe stage, if any, exited cleanly.
func (r *Result) Pass() bool {
	return r != nil && r.State == Done && r.Summary.Pass && (!r.Piped || r.PipeCode == 0)
}

// Code is the exit code of the run: 0 on a pass, the last pipe stage's code
// when it failed, failCode otherwise.
func (r *Result) Code(failCode int) int {
	switch {
	case r.Pass():
		return 0
	case r != nil && r.Piped && r.PipeCode != 0:
		return r.PipeCode
	default:
		return failCode
	}
}

// Aggregate folds harness summaries into one. No harness is a pass.
func Aggregate(harnesses []ipc.Summary) ipc.Summary {
	total := ipc.Summary{Pass: true}
	for _, h := range harnesses {
		total.Pass = total.Pass && h.Pass
		total.Count += h.Count
		total.FailureCount += h.FailureCount
		total.SkipCount += h.SkipCount
		total.SuccessCount += h.SuccessCount
	}
	return total
}
