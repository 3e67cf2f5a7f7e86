package zoar

import (
	"bytes"
	"context"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/yaklabco/zoar/config"
	"github.com/yaklabco/zoar/pkg/fault"
	"github.com/yaklabco/zoar/pkg/ipc"
	"github.com/yaklabco/zoar/pkg/supervisor"
	"github.com/yaklabco/zoar/pkg/watch/wtarget"
)

func memFS(t *testing.T, files ...string) afero.Fs {
	t.Helper()
	fsys := afero.NewMemMapFs()
	for _, f := range files {
		require.NoError(t, fsys.MkdirAll(filepath.Dir(f), 0o755))
		require.NoError(t, afero.WriteFile(fsys, f, nil, 0o644))
	}
	return fsys
}

// fakeRunner answers every start message with one harness per file.
type fakeRunner struct {
	mu      sync.Mutex
	started []ipc.Message
	pass    bool
}

func (r *fakeRunner) Spawn(context.Context, io.Writer, io.Writer) (supervisor.Process, error) {
	return &fakeProcess{runner: r, reply: make(chan ipc.Message, 1)}, nil
}

func (r *fakeRunner) messages() []ipc.Message {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.started
}

type fakeProcess struct {
	runner *fakeRunner
	reply  chan ipc.Message
}

func (p *fakeProcess) Pid() int { return 1 }

func (p *fakeProcess) Send(msg ipc.Message) error {
	p.runner.mu.Lock()
	p.runner.started = append(p.runner.started, msg)
	pass := p.runner.pass
	p.runner.mu.Unlock()

	harnesses := make([]ipc.Summary, 0, len(msg.Files))
	for _, f := range msg.Files {
		s := ipc.Summary{File: f, Pass: pass, Count: 1, SuccessCount: 1}
		if !pass {
			s.SuccessCount, s.FailureCount = 0, 1
		}
		harnesses = append(harnesses, s)
	}
	p.reply <- ipc.Done(harnesses)
	return nil
}

func (p *fakeProcess) Receive() (ipc.Message, error) { return <-p.reply, nil }
func (p *fakeProcess) CloseIPC() error                { return nil }
func (p *fakeProcess) Signal(os.Signal) error         { return nil }
func (p *fakeProcess) Wait() error                    { return nil }

type fixture struct {
	cfg    *config.Config
	opts   Options
	stdout *bytes.Buffer
	stderr *bytes.Buffer
	runner *fakeRunner
}

func newFixture(t *testing.T, files ...string) *fixture {
	t.Helper()
	f := &fixture{
		cfg:    config.DefaultConfig(),
		stdout: &bytes.Buffer{},
		stderr: &bytes.Buffer{},
		runner: &fakeRunner{pass: true},
	}
	f.opts = Options{
		Cwd:     "/proj",
		Stdin:   strings.NewReader(""),
		Stdout:  f.stdout,
		Stderr:  f.stderr,
		Fs:      memFS(t, files...),
		Spawner: f.runner,
	}
	return f
}

func (f *fixture) run(t *testing.T) error {
	t.Helper()
	app, err := New(f.cfg, f.opts)
	require.NoError(t, err)
	return app.Run(t.Context())
}

var projectFiles = []string{
	"/proj/a.spec.js",
	"/proj/lib/b.spec.js",
	"/proj/lib/util.js",
	"/proj/node_modules/dep/c.spec.js",
}

func TestLs(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.opts.Ls = true

	require.NoError(t, f.run(t))
	assert.Equal(t, "/proj/a.spec.js\n/proj/lib/b.spec.js\n", f.stdout.String())
	assert.Empty(t, f.runner.messages())
}

func TestLsWithArgumentsAndFilter(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.opts.Ls = true
	f.opts.Files = []string{"lib/*.js"}
	f.opts.Filter = []string{"util"}

	require.NoError(t, f.run(t))
	assert.Equal(t, "/proj/lib/util.js\n", f.stdout.String())
}

func TestRunOnce(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.opts.Grep = []string{"adds"}

	require.NoError(t, f.run(t))

	msgs := f.runner.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"/proj/a.spec.js", "/proj/lib/b.spec.js"}, msgs[0].Files)
	require.NotNil(t, msgs[0].Options)
	assert.Equal(t, []string{"node"}, msgs[0].Options.Exec)
	assert.False(t, msgs[0].Options.Only)
	assert.Equal(t, []string{"adds"}, msgs[0].Options.Grep)
	assert.Equal(t, uint64(1), msgs[0].Options.Generation)
	assert.Contains(t, f.stderr.String(), "PASS 2 passed (2 files, run 1)")
}

func TestRunOnceFailing(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.runner.pass = false
	f.cfg.FailExitCode = 3

	err := f.run(t)
	require.Error(t, err)
	assert.True(t, fault.IsSilent(err))
	assert.Equal(t, 3, fault.ExitStatus(err))
	assert.Contains(t, f.stderr.String(), "FAIL 0 passed, 2 failed")
}

func TestRunOncePipeExitCode(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.cfg.Pipe = []string{"sh -c 'cat >/dev/null; exit 6'"}

	err := f.run(t)
	require.Error(t, err)
	assert.True(t, fault.IsSilent(err))
	assert.Equal(t, 6, fault.ExitStatus(err))
	assert.Contains(t, f.stderr.String(), "FAIL 2 passed, pipe exited with 6")

	f = newFixture(t, projectFiles...)
	f.cfg.Pipe = []string{"sh -c 'cat >/dev/null; exit 6'"}
	f.opts.NoPipes = true
	require.NoError(t, f.run(t))
}

func TestRunOnceMissingFile(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.opts.Files = []string{"missing.spec.js"}

	err := f.run(t)
	require.ErrorIs(t, err, fault.ErrFileNotFound)
	assert.Equal(t, fault.ExitUser, fault.ExitStatus(err))
}

func TestRunOnlyOption(t *testing.T) {
	f := newFixture(t, projectFiles...)
	only := true
	f.cfg.Only = &only

	require.NoError(t, f.run(t))
	assert.True(t, f.runner.messages()[0].Options.Only)
}

func TestPipedFileList(t *testing.T) {
	f := newFixture(t, projectFiles...)
	f.opts.Piped = true
	f.opts.Stdin = strings.NewReader("lib/util.js\n\n/proj/a.spec.js\n")

	require.NoError(t, f.run(t))
	msgs := f.runner.messages()
	require.Len(t, msgs, 1)
	assert.Equal(t, []string{"/proj/a.spec.js", "/proj/lib/util.js"}, msgs[0].Files)
}

func TestDumpInput(t *testing.T) {
	f := newFixture(t)
	f.opts.Dump = DumpInput
	f.opts.Files = []string{"test/*.js"}

	require.NoError(t, f.run(t))

	var input Input
	require.NoError(t, yaml.Unmarshal(f.stdout.Bytes(), &input))
	assert.Equal(t, "/proj", input.Files.Cwd)
	require.Len(t, input.Files.Specs, 1)
	assert.Equal(t, []string{"test/*.js"}, input.Files.Specs[0].Pattern)
	assert.Nil(t, input.Watch)
}

func TestDumpWatch(t *testing.T) {
	f := newFixture(t)
	f.opts.Dump = DumpWatch
	f.cfg.Watch.Enabled = true
	f.opts.Watch = []string{"src/**/*.js"}

	require.NoError(t, f.run(t))

	var targets []wtarget.Target
	require.NoError(t, yaml.Unmarshal(f.stdout.Bytes(), &targets))
	require.Len(t, targets, 1)
	assert.Equal(t, "/proj/src", targets[0].Dir)
	assert.True(t, targets[0].Deep)
	assert.Equal(t, []string{"**/*.js"}, targets[0].Globs)
}

func TestDumpOptions(t *testing.T) {
	f := newFixture(t)
	f.opts.Dump = DumpOptions
	f.cfg.Watch.Enabled = true

	require.NoError(t, f.run(t))
	assert.Contains(t, f.stdout.String(), "only: true")
	assert.Contains(t, f.stdout.String(), "debounce: 20ms")
}

func TestInvalidDump(t *testing.T) {
	_, err := New(config.DefaultConfig(), Options{Cwd: "/proj", Dump: "everything"})
	require.Error(t, err)
	assert.True(t, fault.IsUser(err))
}

func TestInit(t *testing.T) {
	dir := t.TempDir()
	f := newFixture(t)
	f.opts.Cwd = dir
	f.opts.Init = true

	require.NoError(t, f.run(t))
	assert.FileExists(t, filepath.Join(dir, config.ProjectConfigFileName))

	err := f.run(t)
	require.ErrorIs(t, err, config.ErrConfigExists)

	f.opts.Force = true
	require.NoError(t, f.run(t))
}

func TestReadFileList(t *testing.T) {
	names, err := ReadFileList(strings.NewReader("a.js\r\n  b.js \n\nc.js"))
	require.NoError(t, err)
	assert.Equal(t, []string{"a.js", "b.js", "c.js"}, names)
}
