package tracker

import (
	"time"

	"github.com/go-co-op/gocron"

	"github.com/mmcdole/importwatch/internal/domain"
)

// poller re-reads import state on a fixed interval, covering gaps in the
// realtime feed (disconnects, missed frames).
type poller struct {
	scheduler *gocron.Scheduler
}

func newPoller(interval time.Duration, task func()) (*poller, error) {
	s := gocron.NewScheduler(time.UTC)
	s.SingletonModeAll()
	if _, err := s.Every(interval).WaitForSchedule().Do(task); err != nil {
		return nil, err
	}
	return &poller{scheduler: s}, nil
}

func (p *poller) start() { p.scheduler.StartAsync() }

func (p *poller) stop() { p.scheduler.Stop() }

// poll lists in-progress CSV imports and refreshes every tracked import the
// listing no longer returns, so completions are seen without realtime.
func (t *Tracker) poll() {
	jobs, err := t.deps.Jobs.ListJobs(t.ctx, domain.InProgressCSV())
	if err != nil {
		if t.ctx.Err() == nil {
			t.logger.Warn("poll: failed to list imports", "error", err)
		}
		return
	}

	seen := make(map[string]bool, len(jobs))
	for _, job := range jobs {
		seen[job.ID] = true
		t.Reconcile(job)
	}

	for _, tracked := range t.Snapshot().Jobs() {
		if seen[tracked.ID] || tracked.Status.IsTerminal() {
			continue
		}
		if t.ctx.Err() != nil {
			return
		}
		job, err := t.deps.Jobs.GetJob(t.ctx, tracked.ID)
		if err != nil {
			t.logger.Debug("poll: failed to refresh import", "id", tracked.ID, "error", err)
			continue
		}
		t.Reconcile(job)
	}
}
