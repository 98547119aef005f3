package tui

import (
	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tracker"
)

// Message types for the TUI

// ErrMsg represents an error
type ErrMsg struct {
	Err     error
	Context string
}

// Error implements the error interface
func (e ErrMsg) Error() string {
	if e.Context != "" {
		return e.Context + ": " + e.Err.Error()
	}
	return e.Err.Error()
}

// SnapshotMsg carries a newly published import registry snapshot
type SnapshotMsg struct {
	Snapshot *tracker.Snapshot
}

// ToastMsg signals that a notification was raised
type ToastMsg struct {
	Notification domain.Notification
}

// ToastTickMsg re-reads the active toasts so expired ones disappear
type ToastTickMsg struct{}

// ToastTriggeredMsg reports the outcome of a toast button
type ToastTriggeredMsg struct {
	ID     string
	Button string
	Err    error
}

// InvalidatedMsg signals that cached views for a dependency tag were dropped
type InvalidatedMsg struct {
	Tag string
}

// DocumentCountMsg carries the document count of the viewed collection
type DocumentCountMsg struct {
	Ref   domain.ResourceRef
	Count int
}

// CollectionNameMsg carries the display name of the viewed collection
type CollectionNameMsg struct {
	Ref  domain.ResourceRef
	Name string
}
