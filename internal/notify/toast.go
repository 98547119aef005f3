package notify

import (
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	ttlworker "github.com/FloatTech/ttl"
	"github.com/google/uuid"

	"github.com/mmcdole/importwatch/internal/domain"
)

// DefaultLifetime is how long a toast stays on screen
const DefaultLifetime = 8 * time.Second

// ToastObserver receives every new toast
type ToastObserver func(n domain.Notification)

// ToastCenter is the on-screen Notifier. Toasts expire after their lifetime;
// buttons can be triggered until then.
type ToastCenter struct {
	toasts *ttlworker.Cache[string, domain.Notification]
	logger *slog.Logger
	now    func() time.Time

	mu        sync.Mutex
	order     []string // newest last
	observers []ToastObserver
}

// NewToastCenter creates a toast center with the given lifetime
func NewToastCenter(lifetime time.Duration, logger *slog.Logger) *ToastCenter {
	if lifetime <= 0 {
		lifetime = DefaultLifetime
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ToastCenter{
		toasts: ttlworker.NewCache[string, domain.Notification](lifetime),
		logger: logger,
		now:    time.Now,
	}
}

// Observe registers an observer for new toasts
func (c *ToastCenter) Observe(o ToastObserver) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.observers = append(c.observers, o)
}

// Notify implements domain.Notifier
func (c *ToastCenter) Notify(n domain.Notification) {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = c.now()
	}

	c.mu.Lock()
	c.toasts.Set(n.ID, n)
	c.order = append(c.order, n.ID)
	observers := c.observers
	c.mu.Unlock()

	c.logger.Debug("toast shown", "id", n.ID, "severity", n.Severity.String())
	for _, o := range observers {
		o(n)
	}
}

// Active returns the toasts still on screen, oldest first
func (c *ToastCenter) Active() []domain.Notification {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := make([]domain.Notification, 0, len(c.order))
	kept := c.order[:0]
	for _, id := range c.order {
		n := c.toasts.Get(id)
		if n.ID == "" {
			continue
		}
		kept = append(kept, id)
		active = append(active, n)
	}
	c.order = kept
	return active
}

// Newest returns the most recent toast still on screen
func (c *ToastCenter) Newest() (domain.Notification, bool) {
	active := c.Active()
	if len(active) == 0 {
		return domain.Notification{}, false
	}
	return active[len(active)-1], true
}

// Dismiss removes a toast
func (c *ToastCenter) Dismiss(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.toasts.Delete(id)
	c.order = slices.DeleteFunc(c.order, func(v string) bool { return v == id })
}

// Trigger runs a toast button and dismisses the toast when it succeeds
func (c *ToastCenter) Trigger(id string, button int) error {
	c.mu.Lock()
	n := c.toasts.Get(id)
	c.mu.Unlock()

	if n.ID == "" {
		return domain.ErrToastExpired
	}
	if button < 0 || button >= len(n.Buttons) {
		return fmt.Errorf("toast %s has no button %d", id, button)
	}

	b := n.Buttons[button]
	if b.Action != nil {
		if err := b.Action(); err != nil {
			return fmt.Errorf("%s: %w", b.Name, err)
		}
	}
	c.Dismiss(id)
	return nil
}
