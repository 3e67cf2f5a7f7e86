package zoar

import (
	"bytes"
	"io"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
)

func newTestREPL(in io.Reader) (*REPL, *bytes.Buffer, *atomic.Int32, *atomic.Bool) {
	var out, history bytes.Buffer
	reruns := &atomic.Int32{}
	quit := &atomic.Bool{}
	r := &REPL{
		in:      in,
		out:     &out,
		width:   40,
		history: &history,
		rerun:   func() { reruns.Add(1) },
		options: func() any { return map[string]bool{"only": true} },
		targets: func() any { return []string{"/app"} },
		quit:    func() { quit.Store(true) },
	}
	r.init()
	return r, &out, reruns, quit
}

func TestREPLCommands(t *testing.T) {
	r, out, reruns, quit := newTestREPL(nil)

	assert.True(t, r.Exec(""))
	assert.True(t, r.Exec("rs"))
	assert.True(t, r.Exec("  restart "))
	assert.Equal(t, int32(3), reruns.Load())

	assert.True(t, r.Exec("o"))
	assert.Contains(t, out.String(), "only: true")

	assert.True(t, r.Exec("watch"))
	assert.Contains(t, out.String(), "- /app")

	assert.True(t, r.Exec("nope"))
	assert.Contains(t, out.String(), "Unknown command: nope")

	assert.False(t, r.Exec("q"))
	assert.True(t, quit.Load())

	assert.Equal(t, "rs\nrestart\no\nwatch\nnope\nq\n", r.history.(*bytes.Buffer).String())
}

func TestREPLHelpWraps(t *testing.T) {
	r, out, _, _ := newTestREPL(nil)

	r.Exec("?")
	for _, line := range strings.Split(strings.TrimRight(out.String(), "\n"), "\n") {
		assert.LessOrEqual(t, len(line), 40, line)
	}
	assert.Contains(t, out.String(), "  h, help, ?")
}

func TestREPLRunStopsOnQuit(t *testing.T) {
	r, _, reruns, quit := newTestREPL(strings.NewReader("rs\nquit\nrs\n"))

	assert.NoError(t, r.Run(t.Context()))
	assert.Equal(t, int32(1), reruns.Load())
	assert.True(t, quit.Load())
}

func TestREPLRunEndsWithInput(t *testing.T) {
	r, _, reruns, quit := newTestREPL(strings.NewReader("\n"))

	assert.NoError(t, r.Run(t.Context()))
	assert.Equal(t, int32(1), reruns.Load())
	assert.False(t, quit.Load())
}

func TestREPLHelpMarkdown(t *testing.T) {
	r, _, _, _ := newTestREPL(nil)

	md := r.helpMarkdown()
	assert.Contains(t, md, "## Commands")
	assert.Contains(t, md, "* `q`, `quit`, `exit`: Stop watching and exit.")
}
