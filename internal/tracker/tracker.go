package tracker

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/mmcdole/importwatch/internal/domain"
)

// ConsoleChannel is the realtime channel carrying project events
const ConsoleChannel = "console"

// Deps are the collaborators a Tracker consumes
type Deps struct {
	Jobs        domain.JobLister
	Events      domain.EventSource
	Directory   domain.CollectionDirectory
	Notifier    domain.Notifier
	Router      domain.Router
	Invalidator domain.ViewInvalidator
}

// Config tunes a Tracker
type Config struct {
	ProjectID    string
	PollInterval time.Duration // 0 disables the polling fallback
}

// Tracker owns the import registry and reconciles backend events into it
type Tracker struct {
	cfg    Config
	deps   Deps
	logger *slog.Logger

	registry *Registry

	// mu serializes every registry write
	mu      sync.Mutex
	closed  bool
	lookups map[string]bool // job ids with a name lookup in flight

	ctx       context.Context
	cancel    context.CancelFunc
	group     *errgroup.Group
	poller    *poller
	closeOnce sync.Once
}

// New creates a Tracker. Nothing runs until Start.
func New(cfg Config, deps Deps, logger *slog.Logger) *Tracker {
	if logger == nil {
		logger = slog.Default()
	}
	ctx, cancel := context.WithCancel(context.Background())
	group, ctx := errgroup.WithContext(ctx)
	return &Tracker{
		cfg:      cfg,
		deps:     deps,
		logger:   logger,
		registry: NewRegistry(),
		lookups:  make(map[string]bool),
		ctx:      ctx,
		cancel:   cancel,
		group:    group,
	}
}

// Snapshot returns the current registry snapshot
func (t *Tracker) Snapshot() *Snapshot {
	return t.registry.Snapshot()
}

// Observe registers an observer for registry snapshots
func (t *Tracker) Observe(o Observer) {
	t.registry.Observe(o)
}

// Start seeds the registry with in-progress CSV imports, opens the realtime
// subscription and, when configured, the polling fallback. The returned
// disposer releases everything; it is also run when ctx is cancelled.
func (t *Tracker) Start(ctx context.Context) (dispose func()) {
	stop := context.AfterFunc(ctx, t.Close)

	t.mu.Lock()
	if !t.closed {
		t.group.Go(func() error {
			t.prefetch()
			return nil
		})
		if t.deps.Events != nil {
			t.group.Go(func() error {
				t.pump()
				return nil
			})
		}
		if t.cfg.PollInterval > 0 && t.deps.Jobs != nil {
			p, err := newPoller(t.cfg.PollInterval, t.poll)
			if err != nil {
				t.logger.Warn("polling fallback disabled", "error", err)
			} else {
				t.poller = p
				p.start()
			}
		}
	}
	t.mu.Unlock()

	t.logger.Info("import tracker started", "project", t.cfg.ProjectID, "pollInterval", t.cfg.PollInterval)

	return func() {
		stop()
		t.Close()
	}
}

// Close releases the subscription and waits for background work.
// Later calls are no-ops.
func (t *Tracker) Close() {
	t.closeOnce.Do(func() {
		t.mu.Lock()
		t.closed = true
		p := t.poller
		t.mu.Unlock()

		t.cancel()
		if p != nil {
			p.stop()
		}
		_ = t.group.Wait()
		t.logger.Info("import tracker stopped")
	})
}

// Clear empties the registry in a single transition
func (t *Tracker) Clear() {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.closed {
		return
	}
	t.registry.reset()
	t.logger.Debug("import panel cleared")
}

// Reconcile merges one job report into the registry.
// Non-CSV jobs are ignored. The status is written immediately; a missing
// collection name is resolved in the background and filled in later.
func (t *Tracker) Reconcile(job domain.Job) {
	if !job.IsCSV() {
		return
	}
	ref := domain.ParseResourceRef(job.ResourceID)

	t.mu.Lock()
	if t.closed {
		t.mu.Unlock()
		return
	}

	snap := t.registry.Snapshot()
	prev, exists := snap.Get(job.ID)
	if exists && ref.IsZero() {
		ref = prev.Resource
	}
	next := domain.ImportJob{
		ID:       job.ID,
		Status:   job.Status,
		Resource: ref,
		Errors:   job.Errors,
	}
	if exists && prev.Resource == ref {
		next.CollectionName = prev.CollectionName
	}

	// A same-status event may still refine a name an earlier lookup missed.
	if !(exists && prev.Status.IsTerminal()) {
		t.lookupName(job.ID, ref, next.CollectionName)
	}

	if skip(prev, exists, next) {
		t.mu.Unlock()
		t.logger.Debug("skipping import update", "id", job.ID, "status", job.Status, "current", prev.Status)
		return
	}

	t.registry.publish(snap.with(next))
	t.logger.Debug("import updated", "id", job.ID, "status", job.Status, "resource", ref.String())
	t.mu.Unlock()

	if next.Status.IsTerminal() {
		t.NotifyCompletion(ref.DatabaseID, ref.CollectionID, job)
	}
}

// skip reports whether an update must not be written.
// Terminal entries accept no further transitions, and an identical status is a no-op.
func skip(prev domain.ImportJob, exists bool, next domain.ImportJob) bool {
	if !exists {
		return false
	}
	if prev.Status.IsTerminal() {
		return true
	}
	return prev.Status == next.Status
}

// lookupName starts a background name lookup unless one is pending.
// Callers hold t.mu.
func (t *Tracker) lookupName(id string, ref domain.ResourceRef, known string) {
	if known != "" || ref.CollectionID == "" || t.deps.Directory == nil || t.lookups[id] {
		return
	}
	t.lookups[id] = true
	t.group.Go(func() error {
		t.resolveName(id, ref)
		return nil
	})
}

// resolveName looks up the collection name and refines the entry once.
// Failures leave the name unknown.
func (t *Tracker) resolveName(id string, ref domain.ResourceRef) {
	name, err := t.deps.Directory.CollectionName(t.ctx, ref.DatabaseID, ref.CollectionID)

	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.lookups, id)

	if err != nil {
		if !errors.Is(err, context.Canceled) {
			t.logger.Debug("collection name unavailable", "id", id, "resource", ref.String(), "error", err)
		}
		return
	}
	if t.closed || name == "" {
		return
	}

	snap := t.registry.Snapshot()
	job, ok := snap.Get(id)
	if !ok || job.CollectionName != "" || job.Resource != ref {
		return
	}
	job.CollectionName = name
	t.registry.publish(snap.with(job))
}

// prefetch seeds the registry from the one-shot listing
func (t *Tracker) prefetch() {
	if t.deps.Jobs == nil {
		return
	}
	jobs, err := t.deps.Jobs.ListJobs(t.ctx, domain.InProgressCSV())
	if err != nil {
		if t.ctx.Err() == nil {
			t.logger.Warn("failed to list in-progress imports", "error", err)
		}
		return
	}
	t.logger.Debug("listed in-progress imports", "count", len(jobs))
	for _, job := range jobs {
		t.Reconcile(job)
	}
}

// pump feeds realtime events into Reconcile until the tracker closes
func (t *Tracker) pump() {
	sub, err := t.deps.Events.Subscribe(t.ctx, ConsoleChannel)
	if err != nil {
		if t.ctx.Err() == nil {
			t.logger.Warn("realtime subscription failed", "error", err)
		}
		return
	}
	defer func() {
		if err := sub.Close(); err != nil {
			t.logger.Debug("closing realtime subscription", "error", err)
		}
	}()

	channel := ProjectChannel(t.cfg.ProjectID)
	for {
		select {
		case <-t.ctx.Done():
			return
		case ev, ok := <-sub.Events():
			if !ok {
				t.logger.Warn("realtime subscription ended")
				return
			}
			if Accepts(ev, channel) {
				t.Reconcile(ev.Payload)
			}
		}
	}
}
