package zoar

import (
	"bytes"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/yaklabco/zoar/pkg/ui"
	"github.com/yaklabco/zoar/pkg/watch"
	"github.com/yaklabco/zoar/pkg/watch/wtarget"
)

// runtimeOptions is what --dump options shows: the configuration as this
// invocation sees it.
type runtimeOptions struct {
	Cwd     string   `yaml:"cwd"`
	Watch   bool     `yaml:"watch"`
	Only    bool     `yaml:"only"`
	Exec    []string `yaml:"exec"`
	Pipe    []string `yaml:"pipe"`
	Grep    []string `yaml:"grep,omitempty"`
	Filter  []string `yaml:"filter,omitempty"`
	Config  string   `yaml:"config,omitempty"`
	Options any      `yaml:"settings"`
}

func (a *App) runtimeOptions() runtimeOptions {
	pipes := a.cfg.Pipe
	if a.opts.NoPipes {
		pipes = []string{}
	}
	return runtimeOptions{
		Cwd:     a.opts.Cwd,
		Watch:   a.cfg.Watch.Enabled && !a.opts.Piped,
		Only:    a.Only(),
		Exec:    a.cfg.Exec,
		Pipe:    pipes,
		Grep:    a.opts.Grep,
		Filter:  a.opts.Filter,
		Config:  a.cfg.ConfigFile(),
		Options: a.cfg,
	}
}

func watchTargets(input Input) []wtarget.Target {
	if input.Watch == nil {
		return []wtarget.Target{}
	}
	return watch.MergeTargets(*input.Watch)
}

func (a *App) dump(input Input) error {
	var value any
	switch a.opts.Dump {
	case DumpInput:
		value = input
	case DumpOptions:
		value = a.runtimeOptions()
	case DumpWatch:
		value = watchTargets(input)
	}
	return writeYAML(a.opts.Stdout, a.opts.Dump, value)
}

// writeYAML renders value as YAML. On a terminal it is framed with the block
// styles.
func writeYAML(w io.Writer, title string, value any) error {
	var buf bytes.Buffer
	enc := yaml.NewEncoder(&buf)
	enc.SetIndent(2)
	if err := enc.Encode(value); err != nil {
		return fmt.Errorf("failed to encode %s: %w", title, err)
	}
	if err := enc.Close(); err != nil {
		return fmt.Errorf("failed to encode %s: %w", title, err)
	}

	if isColorTerminal(w) {
		titleStyle, blockStyle := ui.GetBlockStyles()
		_, _ = fmt.Fprintln(w, titleStyle.Render(title))
		_, _ = fmt.Fprintln(w, blockStyle.Render(strings.TrimRight(buf.String(), "\n")))
		return nil
	}
	_, err := w.Write(buf.Bytes())
	return err
}
