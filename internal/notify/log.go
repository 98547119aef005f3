package notify

import (
	"context"
	"html"
	"log/slog"
	"strings"

	"github.com/microcosm-cc/bluemonday"

	"github.com/mmcdole/importwatch/internal/domain"
)

// LogNotifier writes notifications to a logger; used when no screen is attached
type LogNotifier struct {
	logger *slog.Logger
	policy *bluemonday.Policy
}

// NewLogNotifier creates a log notifier
func NewLogNotifier(logger *slog.Logger) *LogNotifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogNotifier{logger: logger, policy: bluemonday.StrictPolicy()}
}

// Notify implements domain.Notifier
func (l *LogNotifier) Notify(n domain.Notification) {
	level := slog.LevelInfo
	if n.Severity == domain.SeverityError {
		level = slog.LevelError
	}

	attrs := []any{"severity", n.Severity.String()}
	if len(n.Buttons) > 0 {
		names := make([]string, 0, len(n.Buttons))
		for _, b := range n.Buttons {
			names = append(names, b.Name)
		}
		attrs = append(attrs, "actions", strings.Join(names, ", "))
	}
	l.logger.Log(context.Background(), level, PlainText(l.policy, n), attrs...)
}

// PlainText renders a notification message without markup
func PlainText(policy *bluemonday.Policy, n domain.Notification) string {
	if !n.IsHTML {
		return n.Message
	}
	return html.UnescapeString(policy.Sanitize(n.Message))
}

// Fanout delivers every notification to each notifier in turn
type Fanout []domain.Notifier

// Notify implements domain.Notifier
func (f Fanout) Notify(n domain.Notification) {
	for _, notifier := range f {
		if notifier != nil {
			notifier.Notify(n)
		}
	}
}
