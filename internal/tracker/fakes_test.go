package tracker

import (
	"context"
	"errors"
	"sync"

	"github.com/mmcdole/importwatch/internal/domain"
)

type fakeJobs struct {
	mu      sync.Mutex
	list    []domain.Job
	byID    map[string]domain.Job
	listErr error
	filters []domain.JobFilter
}

func (f *fakeJobs) ListJobs(ctx context.Context, filter domain.JobFilter) ([]domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.filters = append(f.filters, filter)
	if f.listErr != nil {
		return nil, f.listErr
	}
	return append([]domain.Job(nil), f.list...), nil
}

func (f *fakeJobs) GetJob(ctx context.Context, id string) (domain.Job, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	job, ok := f.byID[id]
	if !ok {
		return domain.Job{}, domain.ErrNotFound
	}
	return job, nil
}

type fakeSub struct {
	events chan domain.Event
	mu     sync.Mutex
	closes int
}

func (s *fakeSub) Events() <-chan domain.Event { return s.events }

func (s *fakeSub) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.closes++
	return nil
}

func (s *fakeSub) closeCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.closes
}

type fakeEvents struct {
	sub      *fakeSub
	err      error
	mu       sync.Mutex
	channels []string
}

func newFakeEvents() *fakeEvents {
	return &fakeEvents{sub: &fakeSub{events: make(chan domain.Event, 16)}}
}

func (f *fakeEvents) Subscribe(ctx context.Context, channels ...string) (domain.Subscription, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.channels = append(f.channels, channels...)
	if f.err != nil {
		return nil, f.err
	}
	return f.sub, nil
}

// fakeDirectory resolves names from a map. When gate is set, lookups wait
// for it (or for cancellation) before answering. The first failures calls
// return an error.
type fakeDirectory struct {
	names    map[string]string
	gate     chan struct{}
	failures int

	mu    sync.Mutex
	calls int
}

func (d *fakeDirectory) CollectionName(ctx context.Context, databaseID, collectionID string) (string, error) {
	d.mu.Lock()
	d.calls++
	fail := d.calls <= d.failures
	d.mu.Unlock()

	if fail {
		return "", errors.New("backend unavailable")
	}

	if d.gate != nil {
		select {
		case <-d.gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}
	name, ok := d.names[databaseID+":"+collectionID]
	if !ok {
		return "", domain.ErrCollectionNotFound
	}
	return name, nil
}

func (d *fakeDirectory) callCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []domain.Notification
}

func (n *recordingNotifier) Notify(note domain.Notification) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, note)
}

func (n *recordingNotifier) all() []domain.Notification {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]domain.Notification(nil), n.sent...)
}

type fakeRouter struct {
	current   domain.ResourceRef
	navigated []string
}

func (r *fakeRouter) CurrentCollection() domain.ResourceRef { return r.current }

func (r *fakeRouter) CollectionURL(ref domain.ResourceRef) string {
	return "/console/project-p1/databases/database-" + ref.DatabaseID + "/collection-" + ref.CollectionID
}

func (r *fakeRouter) NavigateTo(url string) error {
	if url == "" {
		return errors.New("empty url")
	}
	r.navigated = append(r.navigated, url)
	return nil
}

type recordingInvalidator struct {
	mu   sync.Mutex
	tags []string
}

func (i *recordingInvalidator) Invalidate(tag string) {
	i.mu.Lock()
	defer i.mu.Unlock()
	i.tags = append(i.tags, tag)
}

func (i *recordingInvalidator) all() []string {
	i.mu.Lock()
	defer i.mu.Unlock()
	return append([]string(nil), i.tags...)
}

// countingObserver counts published snapshots
type countingObserver struct {
	mu    sync.Mutex
	count int
	last  *Snapshot
}

func (o *countingObserver) OnSnapshot(s *Snapshot) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.count++
	o.last = s
}

func (o *countingObserver) published() int {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.count
}
