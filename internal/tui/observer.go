package tui

import (
	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tracker"
)

// Channels adapts tracker, toast and invalidation callbacks to channels for
// Bubble Tea. Sends never block the publisher.
type Channels struct {
	Snapshots     chan *tracker.Snapshot
	Toasts        chan domain.Notification
	Invalidations chan string
}

// NewChannels creates the channel set
func NewChannels() *Channels {
	return &Channels{
		Snapshots:     make(chan *tracker.Snapshot, 1),
		Toasts:        make(chan domain.Notification, 16),
		Invalidations: make(chan string, 4),
	}
}

// OnSnapshot implements tracker.Observer. Only the latest snapshot matters,
// so a pending one is replaced.
func (c *Channels) OnSnapshot(s *tracker.Snapshot) {
	for {
		select {
		case c.Snapshots <- s:
			return
		default:
		}
		select {
		case <-c.Snapshots:
		default:
		}
	}
}

// OnToast forwards a new toast (non-blocking if channel full)
func (c *Channels) OnToast(n domain.Notification) {
	select {
	case c.Toasts <- n:
	default:
	}
}

// OnInvalidate forwards an invalidation tag (non-blocking if channel full)
func (c *Channels) OnInvalidate(tag string) {
	select {
	case c.Invalidations <- tag:
	default:
	}
}
