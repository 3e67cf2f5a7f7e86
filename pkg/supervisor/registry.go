package supervisor

import (
	"sync"

	"github.com/yaklabco/zoar/pkg/pattern"
)

// Registry numbers runs. Every run bumps the generation and stamps it on the
// files it loads, so a test file can tell that anything cached by an older
// generation is stale.
type Registry struct {
	mu         sync.Mutex
	generation uint64
	files      map[string]uint64
}

func NewRegistry() *Registry {
	return &Registry{files: make(map[string]uint64)}
}

// Next starts a new generation for files and returns it.
func (r *Registry) Next(files []string) uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.generation++
	for _, f := range files {
		r.files[pattern.ToSlash(f)] = r.generation
	}
	return r.generation
}

// Generation returns the current generation; zero before the first run.
func (r *Registry) Generation() uint64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.generation
}

// Lookup returns the generation file was last loaded in.
func (r *Registry) Lookup(file string) (uint64, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, ok := r.files[pattern.ToSlash(file)]
	return gen, ok
}

// Stale reports whether file was loaded by an older generation than the
// current one.
func (r *Registry) Stale(file string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	gen, ok := r.files[pattern.ToSlash(file)]
	return ok && gen < r.generation
}
