package tui

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tracker"
)

// Command factories for async operations

const toastTickInterval = 500 * time.Millisecond

// WaitForSnapshotCmd waits for the next registry snapshot
func WaitForSnapshotCmd(ch <-chan *tracker.Snapshot) tea.Cmd {
	return func() tea.Msg {
		s, ok := <-ch
		if !ok {
			return nil
		}
		return SnapshotMsg{Snapshot: s}
	}
}

// WaitForToastCmd waits for the next notification
func WaitForToastCmd(ch <-chan domain.Notification) tea.Cmd {
	return func() tea.Msg {
		n, ok := <-ch
		if !ok {
			return nil
		}
		return ToastMsg{Notification: n}
	}
}

// WaitForInvalidationCmd waits for the next view invalidation
func WaitForInvalidationCmd(ch <-chan string) tea.Cmd {
	return func() tea.Msg {
		tag, ok := <-ch
		if !ok {
			return nil
		}
		return InvalidatedMsg{Tag: tag}
	}
}

// LoadDocumentCountCmd fetches the document count of a collection
func LoadDocumentCountCmd(docs DocumentCounter, ref domain.ResourceRef) tea.Cmd {
	if docs == nil || ref.CollectionID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		count, err := docs.Count(ctx, ref)
		if err != nil {
			return ErrMsg{Err: err, Context: "counting documents"}
		}
		return DocumentCountMsg{Ref: ref, Count: count}
	}
}

// LoadCollectionNameCmd resolves the display name of a collection
func LoadCollectionNameCmd(dir domain.CollectionDirectory, ref domain.ResourceRef) tea.Cmd {
	if dir == nil || ref.CollectionID == "" {
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
		defer cancel()

		name, err := dir.CollectionName(ctx, ref.DatabaseID, ref.CollectionID)
		if err != nil {
			return ErrMsg{Err: err, Context: "resolving collection"}
		}
		return CollectionNameMsg{Ref: ref, Name: name}
	}
}

// TriggerToastCmd runs a toast button off the update loop
func TriggerToastCmd(toasts ToastCenter, n domain.Notification, button int) tea.Cmd {
	return func() tea.Msg {
		name := ""
		if button >= 0 && button < len(n.Buttons) {
			name = n.Buttons[button].Name
		}
		return ToastTriggeredMsg{ID: n.ID, Button: name, Err: toasts.Trigger(n.ID, button)}
	}
}

// ToastTickCmd schedules the next toast expiry check
func ToastTickCmd() tea.Cmd {
	return tea.Tick(toastTickInterval, func(time.Time) tea.Msg {
		return ToastTickMsg{}
	})
}
