package zoar

import (
	"fmt"
	"strings"

	"github.com/yaklabco/zoar/pkg/supervisor"
	"github.com/yaklabco/zoar/pkg/ui"
)

// report writes the one-line summary of a run to stderr.
func (a *App) report(res *supervisor.Result) {
	_, _ = fmt.Fprintln(a.opts.Stderr, summaryLine(res))
}

func summaryLine(res *supervisor.Result) string {
	passStyle, failStyle := ui.GetStatusStyles()

	if res.Premature {
		return failStyle.Render(fmt.Sprintf("runner exited with code %d before reporting", res.ExitCode))
	}

	s := res.Summary
	parts := []string{fmt.Sprintf("%d passed", s.SuccessCount)}
	if s.FailureCount > 0 {
		parts = append(parts, fmt.Sprintf("%d failed", s.FailureCount))
	}
	if s.SkipCount > 0 {
		parts = append(parts, fmt.Sprintf("%d skipped", s.SkipCount))
	}
	if res.Piped && res.PipeCode != 0 {
		parts = append(parts, fmt.Sprintf("pipe exited with %d", res.PipeCode))
	}
	line := fmt.Sprintf("%s (%d files, run %d)", strings.Join(parts, ", "), len(res.Harnesses), res.Generation)

	if res.Pass() {
		return passStyle.Render("PASS " + line)
	}
	return failStyle.Render("FAIL " + line)
}
