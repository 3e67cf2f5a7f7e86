package watch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/afero"

	"github.com/yaklabco/zoar/internal/log"
	"github.com/yaklabco/zoar/pkg/find"
	"github.com/yaklabco/zoar/pkg/pattern"
)

// Op is the kind of change a DirWatcher reports.
type Op byte

const (
	// OpAdd reports a file that appeared or changed.
	OpAdd Op = '+'
	// OpRemove reports a file that disappeared.
	OpRemove Op = '-'
)

// Handler receives the slash-separated path of a changed file, relative to
// the watched directory.
type Handler func(rel string)

// DirWatcher watches the files of one directory tree accepted by a filter.
// Subdirectories are only followed when deep is set.
type DirWatcher struct {
	dir    string
	deep   bool
	filter find.Filter
	fsys   afero.Fs

	mu       sync.Mutex
	paths    map[string]bool
	handlers map[Op][]Handler
	watcher  *fsnotify.Watcher
	closed   bool
	done     chan struct{}
}

// NewDirWatcher returns an idle watcher. Filter receives absolute,
// slash-separated paths; a nil filter accepts everything.
func NewDirWatcher(dir string, deep bool, filter find.Filter) *DirWatcher {
	if filter == nil {
		filter = func(string, bool) bool { return true }
	}
	return &DirWatcher{
		dir:      pattern.ToSlash(dir),
		deep:     deep,
		filter:   filter,
		fsys:     afero.NewOsFs(),
		paths:    make(map[string]bool),
		handlers: make(map[Op][]Handler),
		done:     make(chan struct{}),
	}
}

// On subscribes fn to op.
func (w *DirWatcher) On(op Op, fn Handler) {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.handlers[op] = append(w.handlers[op], fn)
}

// Init scans the tree and starts watching it. Events are delivered until ctx
// is done or Close is called.
func (w *DirWatcher) Init(ctx context.Context) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	if err := watcher.Add(filepath.FromSlash(w.dir)); err != nil {
		_ = watcher.Close()
		return fmt.Errorf("failed to watch %q: %w", w.dir, err)
	}

	w.mu.Lock()
	w.watcher = watcher
	w.mu.Unlock()

	if err := w.scan(w.dir, nil); err != nil {
		_ = w.Close()
		return err
	}

	go w.loop(ctx)
	return nil
}

// Paths returns the watched files and directories, relative and sorted.
func (w *DirWatcher) Paths() []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	paths := lo.Keys(w.paths)
	slices.Sort(paths)
	return paths
}

// Close stops watching. It is safe to call more than once.
func (w *DirWatcher) Close() error {
	w.mu.Lock()
	if w.closed {
		w.mu.Unlock()
		return nil
	}
	w.closed = true
	watcher := w.watcher
	w.mu.Unlock()

	close(w.done)
	if watcher == nil {
		return nil
	}
	return watcher.Close()
}

// scan records the accepted entries below root and watches the accepted
// directories. Newly seen files are appended to added.
func (w *DirWatcher) scan(root string, added *[]string) error {
	return find.Walk(w.fsys, root, w.deep, w.filter, func(p string, info os.FileInfo) error {
		rel := pattern.Rel(w.dir, p)
		w.mu.Lock()
		_, known := w.paths[rel]
		w.paths[rel] = info.IsDir()
		watcher := w.watcher
		w.mu.Unlock()

		if info.IsDir() {
			if !w.deep {
				return nil
			}
			if err := watcher.Add(filepath.FromSlash(p)); err != nil {
				slog.Warn("failed to watch directory", slog.String(log.Dir, p), slog.Any(log.Error, err))
				return find.SkipDir
			}
			return nil
		}
		if !known && added != nil {
			*added = append(*added, rel)
		}
		return nil
	})
}

func (w *DirWatcher) loop(ctx context.Context) {
	defer func() { _ = w.Close() }()
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.done:
			return
		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handle(event)
		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			slog.Warn("watch error", slog.String(log.Dir, w.dir), slog.Any(log.Error, err))
		}
	}
}

func (w *DirWatcher) handle(event fsnotify.Event) {
	p := pattern.ToSlash(event.Name)
	rel, ok := w.rel(p)
	if !ok {
		return
	}

	switch {
	case event.Has(fsnotify.Create) || event.Has(fsnotify.Write):
		w.changed(p, rel)
	case event.Has(fsnotify.Remove) || event.Has(fsnotify.Rename):
		w.emit(OpRemove, w.forget(rel))
	}
}

func (w *DirWatcher) changed(p, rel string) {
	info, err := w.fsys.Stat(filepath.FromSlash(p))
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			w.emit(OpRemove, w.forget(rel))
		}
		return
	}

	if !info.IsDir() {
		if !w.filter(p, false) {
			return
		}
		w.mu.Lock()
		w.paths[rel] = false
		w.mu.Unlock()
		w.emit(OpAdd, []string{rel})
		return
	}

	if !w.deep || !w.filter(p, true) {
		return
	}
	w.mu.Lock()
	_, known := w.paths[rel]
	w.paths[rel] = true
	watcher := w.watcher
	w.mu.Unlock()
	if known {
		return
	}

	if err := watcher.Add(filepath.FromSlash(p)); err != nil {
		slog.Warn("failed to watch directory", slog.String(log.Dir, p), slog.Any(log.Error, err))
		return
	}
	var added []string
	if err := w.scan(p, &added); err != nil {
		slog.Debug("failed to scan new directory", slog.String(log.Dir, p), slog.Any(log.Error, err))
	}
	w.emit(OpAdd, added)
}

// forget drops rel and everything below it, returning the forgotten files.
func (w *DirWatcher) forget(rel string) []string {
	w.mu.Lock()
	defer w.mu.Unlock()

	var files []string
	for p, isDir := range w.paths {
		if p != rel && !strings.HasPrefix(p, rel+"/") {
			continue
		}
		delete(w.paths, p)
		if !isDir {
			files = append(files, p)
		}
	}
	slices.Sort(files)
	return files
}

func (w *DirWatcher) emit(op Op, rels []string) {
	if len(rels) == 0 {
		return
	}
	w.mu.Lock()
	handlers := slices.Clone(w.handlers[op])
	w.mu.Unlock()

	for _, rel := range rels {
		slog.Debug("changed", slog.String(log.Event, string(op)), slog.String(log.Path, rel), slog.String(log.Dir, w.dir))
		for _, fn := range handlers {
			fn(rel)
		}
	}
}

func (w *DirWatcher) rel(p string) (string, bool) {
	if p == w.dir || !pattern.Within(w.dir, p) {
		return "", false
	}
	rel := pattern.Rel(w.dir, p)
	if !w.deep && strings.Contains(rel, "/") {
		return "", false
	}
	return rel, true
}
