package zoar

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/muesli/reflow/indent"
	"github.com/muesli/reflow/wordwrap"

	"github.com/yaklabco/zoar/config"
	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/ui"
	"github.com/yaklabco/zoar/pkg/watch"
)

const helpIndent = 2

type replCommand struct {
	names []string
	help  string
	run   func(r *REPL) bool
}

// REPL is the interactive prompt of watch mode. It reads one command per
// line.
type REPL struct {
	in      io.Reader
	out     io.Writer
	width   int
	styled  bool
	history io.Writer

	rerun   func()
	options func() any
	targets func() any
	quit    func()

	commands []replCommand
}

func (a *App) newREPL(session *watch.Session, quit func()) *REPL {
	r := &REPL{
		in:      a.opts.Stdin,
		out:     a.opts.Stderr,
		width:   ui.TerminalWidth(),
		styled:  isColorTerminal(a.opts.Stderr),
		rerun:   func() { go session.Rerun() },
		options: func() any { return a.runtimeOptions() },
		targets: func() any { return session.Targets() },
		quit:    quit,
	}
	if a.cfg.PersistHistory {
		if f, err := openHistory(config.ResolveXDGPaths().HistoryFilePath()); err != nil {
			slog.Debug("not keeping prompt history", slog.Any(log.Error, err))
		} else {
			r.history = f
		}
	}
	return r
}

func openHistory(path string) (*os.File, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	return os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o600)
}

func (r *REPL) init() {
	r.commands = []replCommand{
		{[]string{"rs", "restart"}, "Run the tests again. An empty line does the same.", func(r *REPL) bool {
			r.rerun()
			return true
		}},
		{[]string{"o", "options"}, "Show the options of the current session.", func(r *REPL) bool {
			r.show("options", r.options())
			return true
		}},
		{[]string{"w", "watch"}, "Show the watched directories and the patterns matched in each of them.", func(r *REPL) bool {
			r.show("watch", r.targets())
			return true
		}},
		{[]string{"h", "help", "?"}, "Show this help.", func(r *REPL) bool {
			r.help()
			return true
		}},
		{[]string{"q", "quit", "exit"}, "Stop watching and exit.", func(r *REPL) bool {
			r.quit()
			return false
		}},
	}
}

// Run reads commands until the input ends, ctx is done or the user quits.
func (r *REPL) Run(ctx context.Context) error {
	r.init()
	if c, ok := r.history.(io.Closer); ok {
		defer c.Close()
	}

	lines := make(chan string)
	errs := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(r.in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
		errs <- scanner.Err()
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case err := <-errs:
			return err
		case line := <-lines:
			if !r.Exec(line) {
				return nil
			}
		}
	}
}

// Exec runs one command line. It returns false once the prompt should stop.
func (r *REPL) Exec(line string) bool {
	line = strings.TrimSpace(line)
	if line == "" {
		r.rerun()
		return true
	}
	if r.history != nil {
		_, _ = fmt.Fprintln(r.history, line)
	}
	for _, cmd := range r.commands {
		for _, name := range cmd.names {
			if name == line {
				return cmd.run(r)
			}
		}
	}
	_, _ = fmt.Fprintf(r.out, "Unknown command: %s (type h for help)\n", line)
	return true
}

func (r *REPL) show(title string, value any) {
	if err := writeYAML(r.out, title, value); err != nil {
		_, _ = fmt.Fprintln(r.out, err)
	}
}

func (r *REPL) help() {
	if r.styled {
		if out, err := ui.RenderMarkdown(r.helpMarkdown(), r.width); err == nil {
			_, _ = fmt.Fprint(r.out, out)
			return
		}
	}
	_, _ = fmt.Fprintln(r.out, "Commands:")
	for _, cmd := range r.commands {
		_, _ = fmt.Fprintln(r.out, indent.String(strings.Join(cmd.names, ", "), helpIndent))
		text := wordwrap.String(cmd.help, max(r.width-2*helpIndent, 1))
		_, _ = fmt.Fprintln(r.out, indent.String(text, 2*helpIndent))
	}
}

func (r *REPL) helpMarkdown() string {
	var b strings.Builder
	b.WriteString("## Commands\n\n")
	for _, cmd := range r.commands {
		names := make([]string, len(cmd.names))
		for i, name := range cmd.names {
			names[i] = "`" + name + "`"
		}
		fmt.Fprintf(&b, "* %s: %s\n", strings.Join(names, ", "), cmd.help)
	}
	return b.String()
}

func isColorTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	return ok && ui.ColorEnabled(f)
}
