package tracker

import (
	"sync"
	"sync/atomic"

	"github.com/mmcdole/importwatch/internal/domain"
)

// Snapshot is an immutable, insertion-ordered view of the tracked imports.
// A new Snapshot is produced for every mutation; published values are never modified.
type Snapshot struct {
	order []string
	jobs  map[string]domain.ImportJob
}

var emptySnapshot = &Snapshot{jobs: map[string]domain.ImportJob{}}

// Len returns the number of tracked imports
func (s *Snapshot) Len() int { return len(s.order) }

// Visible reports whether the panel should be shown
func (s *Snapshot) Visible() bool { return len(s.order) > 0 }

// Get returns the tracked import for id
func (s *Snapshot) Get(id string) (domain.ImportJob, bool) {
	job, ok := s.jobs[id]
	return job, ok
}

// Jobs returns the tracked imports in arrival order
func (s *Snapshot) Jobs() []domain.ImportJob {
	out := make([]domain.ImportJob, 0, len(s.order))
	for _, id := range s.order {
		out = append(out, s.jobs[id])
	}
	return out
}

// with returns a copy of s with job inserted or replaced in place
func (s *Snapshot) with(job domain.ImportJob) *Snapshot {
	next := &Snapshot{
		order: s.order,
		jobs:  make(map[string]domain.ImportJob, len(s.jobs)+1),
	}
	for id, j := range s.jobs {
		next.jobs[id] = j
	}
	if _, exists := s.jobs[job.ID]; !exists {
		next.order = append(append(make([]string, 0, len(s.order)+1), s.order...), job.ID)
	}
	next.jobs[job.ID] = job
	return next
}

// Observer receives every published snapshot
type Observer interface {
	OnSnapshot(s *Snapshot)
}

// ObserverFunc adapts a function to Observer
type ObserverFunc func(s *Snapshot)

func (f ObserverFunc) OnSnapshot(s *Snapshot) { f(s) }

// Registry holds the current snapshot and fans it out to observers.
// Writers must be serialized by the caller; readers never block.
type Registry struct {
	current atomic.Pointer[Snapshot]

	mu        sync.RWMutex
	observers []Observer
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	r := &Registry{}
	r.current.Store(emptySnapshot)
	return r
}

// Snapshot returns the current snapshot
func (r *Registry) Snapshot() *Snapshot {
	return r.current.Load()
}

// Observe registers an observer for future snapshots
func (r *Registry) Observe(o Observer) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.observers = append(r.observers, o)
}

// publish replaces the current snapshot and notifies observers
func (r *Registry) publish(s *Snapshot) {
	r.current.Store(s)

	r.mu.RLock()
	observers := r.observers
	r.mu.RUnlock()

	for _, o := range observers {
		o.OnSnapshot(s)
	}
}

// reset publishes an empty snapshot in a single transition
func (r *Registry) reset() {
	r.publish(emptySnapshot)
}
