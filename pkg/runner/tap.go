package runner

import (
	"bytes"
	"io"
	"strings"
	"sync"

	"github.com/yaklabco/zoar/pkg/ipc"
)

// tapCounter passes output through to w and counts the top-level TAP test
// points it sees. Indented lines belong to subtests and are not counted.
type tapCounter struct {
	w io.Writer

	mu      sync.Mutex
	partial []byte
	summary ipc.Summary
}

func newTapCounter(w io.Writer) *tapCounter {
	return &tapCounter{w: w}
}

func (c *tapCounter) Write(p []byte) (int, error) {
	c.mu.Lock()
	c.partial = append(c.partial, p...)
	for {
		i := bytes.IndexByte(c.partial, '\n')
		if i < 0 {
			break
		}
		c.line(string(c.partial[:i]))
		c.partial = c.partial[i+1:]
	}
	c.mu.Unlock()
	return c.w.Write(p)
}

// Summary flushes a trailing unterminated line and returns the counts.
func (c *tapCounter) Summary() ipc.Summary {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.partial) > 0 {
		c.line(string(c.partial))
		c.partial = nil
	}
	return c.summary
}

func (c *tapCounter) line(line string) {
	line = strings.TrimRight(line, "\r")
	var ok bool
	switch {
	case isTestPoint(line, "not ok"):
		ok = false
	case isTestPoint(line, "ok"):
		ok = true
	default:
		return
	}

	c.summary.Count++
	switch {
	case hasDirective(line, "SKIP"), hasDirective(line, "TODO"):
		c.summary.SkipCount++
	case ok:
		c.summary.SuccessCount++
	default:
		c.summary.FailureCount++
	}
}

func isTestPoint(line, prefix string) bool {
	rest, found := strings.CutPrefix(line, prefix)
	return found && (rest == "" || rest[0] == ' ')
}

func hasDirective(line, name string) bool {
	_, directive, found := strings.Cut(line, "#")
	if !found {
		return false
	}
	directive = strings.ToUpper(strings.TrimSpace(directive))
	return strings.HasPrefix(directive, name)
}
