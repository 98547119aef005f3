package tracker

import (
	"slices"
	"strings"

	"github.com/mmcdole/importwatch/internal/domain"
)

// MigrationEvents matches every migration lifecycle event
const MigrationEvents = "migrations.*"

// ProjectChannel is the topic realtime messages for a project are published on
func ProjectChannel(projectID string) string {
	return "projects." + projectID
}

// Accepts reports whether a realtime message belongs to the project channel
// and carries a migration lifecycle event.
func Accepts(ev domain.Event, channel string) bool {
	if !slices.Contains(ev.Channels, channel) {
		return false
	}
	for _, name := range ev.Events {
		if MatchEvent(MigrationEvents, name) {
			return true
		}
	}
	return false
}

// MatchEvent matches a dotted event name against a pattern. A "*" segment
// matches any one segment; a trailing "*" also matches all remaining segments.
func MatchEvent(pattern, event string) bool {
	ps := strings.Split(pattern, ".")
	es := strings.Split(event, ".")
	for i, p := range ps {
		if i >= len(es) {
			return false
		}
		if p == "*" {
			if i == len(ps)-1 {
				return true
			}
			continue
		}
		if p != es[i] {
			return false
		}
	}
	return len(ps) == len(es)
}
