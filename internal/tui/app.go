package tui

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/tracker"
	"github.com/mmcdole/importwatch/internal/tui/components"
	"github.com/mmcdole/importwatch/internal/tui/styles"
)

// ApplicationState represents the current state of the application
type ApplicationState int

const (
	StateWatching ApplicationState = iota
	StateHelp
)

// ChromeHeight is the number of lines used by header and footer
const ChromeHeight = 2

// ImportTracker is the part of the tracker the UI drives
type ImportTracker interface {
	Snapshot() *tracker.Snapshot
	Clear()
}

// ToastCenter holds the active notifications
type ToastCenter interface {
	Active() []domain.Notification
	Newest() (domain.Notification, bool)
	Dismiss(id string)
	Trigger(id string, button int) error
}

// DocumentCounter returns cached document counts
type DocumentCounter interface {
	Count(ctx context.Context, ref domain.ResourceRef) (int, error)
}

// CollectionDirectory resolves collection names and drops cached ones
type CollectionDirectory interface {
	domain.CollectionDirectory
	Forget(ref domain.ResourceRef)
}

// Deps bundles what the model talks to. Directory, Documents and Router
// are optional.
type Deps struct {
	Tracker   ImportTracker
	Toasts    ToastCenter
	Documents DocumentCounter
	Directory CollectionDirectory
	Router    domain.Router
	Channels  *Channels
	Logger    *slog.Logger
}

// Model is the main Bubble Tea model for the application
type Model struct {
	State ApplicationState
	Ready bool

	deps Deps
	keys KeyMap

	// UI Components
	Panel  *components.ImportPanel
	Toasts *components.ToastStack

	// Viewed collection
	Viewing        domain.ResourceRef
	CollectionName string
	DocumentCount  int
	CountKnown     bool

	// Dimensions
	Width  int
	Height int

	// UI state
	StatusMsg   string
	StatusIsErr bool
	ticking     bool
}

// NewModel creates a new application model
func NewModel(deps Deps, collapsed bool) Model {
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	if deps.Channels == nil {
		deps.Channels = NewChannels()
	}

	m := Model{
		State:  StateWatching,
		deps:   deps,
		keys:   DefaultKeyMap(),
		Panel:  components.NewImportPanel(collapsed),
		Toasts: components.NewToastStack(),
	}
	if deps.Tracker != nil {
		m.Panel.SetSnapshot(deps.Tracker.Snapshot())
	}
	if deps.Router != nil {
		m.Viewing = deps.Router.CurrentCollection()
	}
	return m
}

// Init initializes the application
func (m Model) Init() tea.Cmd {
	ch := m.deps.Channels
	return tea.Batch(
		WaitForSnapshotCmd(ch.Snapshots),
		WaitForToastCmd(ch.Toasts),
		WaitForInvalidationCmd(ch.Invalidations),
		m.Panel.Tick(),
		m.loadViewing(),
	)
}

// Update handles all messages
func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.Width = msg.Width
		m.Height = msg.Height
		m.Ready = true
		return m, nil

	case tea.KeyMsg:
		return m.handleKeyMsg(msg)

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.Panel, cmd = m.Panel.Update(msg)
		return m, cmd

	case SnapshotMsg:
		m.Panel.SetSnapshot(msg.Snapshot)
		if !m.Panel.Visible() && m.Panel.IsFiltering() {
			m.Panel.ClearFilter()
		}
		return m, WaitForSnapshotCmd(m.deps.Channels.Snapshots)

	case ToastMsg:
		m.refreshToasts()
		cmds := []tea.Cmd{WaitForToastCmd(m.deps.Channels.Toasts)}
		if !m.ticking {
			m.ticking = true
			cmds = append(cmds, ToastTickCmd())
		}
		return m, tea.Batch(cmds...)

	case ToastTickMsg:
		m.refreshToasts()
		if m.Toasts.Len() == 0 {
			m.ticking = false
			return m, nil
		}
		return m, ToastTickCmd()

	case ToastTriggeredMsg:
		m.refreshToasts()
		if msg.Err != nil {
			m.deps.Logger.Error("toast action failed", "toast", msg.ID, "button", msg.Button, "error", msg.Err)
			m.setStatus(msg.Err.Error(), true)
			return m, nil
		}
		return m, m.syncViewing()

	case InvalidatedMsg:
		cmds := []tea.Cmd{WaitForInvalidationCmd(m.deps.Channels.Invalidations)}
		if msg.Tag == domain.DependencyDocuments {
			m.CountKnown = false
			cmds = append(cmds, LoadDocumentCountCmd(m.deps.Documents, m.Viewing))
		}
		return m, tea.Batch(cmds...)

	case DocumentCountMsg:
		if msg.Ref == m.Viewing {
			m.DocumentCount = msg.Count
			m.CountKnown = true
		}
		return m, nil

	case CollectionNameMsg:
		if msg.Ref == m.Viewing {
			m.CollectionName = msg.Name
		}
		return m, nil

	case ErrMsg:
		m.deps.Logger.Error("background command failed", "context", msg.Context, "error", msg.Err)
		if !errors.Is(msg.Err, domain.ErrCollectionNotFound) {
			m.setStatus(msg.Error(), true)
		}
		return m, nil
	}

	return m, nil
}

func (m Model) handleKeyMsg(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.State == StateHelp {
		m.State = StateWatching
		return m, nil
	}

	// Typing into the filter swallows everything but ctrl+c
	if m.Panel.IsFilterTyping() {
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		var cmd tea.Cmd
		m.Panel, cmd = m.Panel.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		return m, tea.Quit

	case key.Matches(msg, m.keys.Help):
		m.State = StateHelp
		return m, nil

	case key.Matches(msg, m.keys.Collapse):
		if m.Panel.Visible() {
			m.Panel.ToggleCollapsed()
		}
		return m, nil

	case key.Matches(msg, m.keys.Clear):
		if m.deps.Tracker != nil {
			m.deps.Tracker.Clear()
			m.Panel.ClearFilter()
			m.Panel.SetSnapshot(m.deps.Tracker.Snapshot())
		}
		return m, nil

	case key.Matches(msg, m.keys.Refresh):
		if m.Viewing.IsZero() {
			return m, nil
		}
		if m.deps.Directory != nil {
			m.deps.Directory.Forget(m.Viewing)
		}
		m.CountKnown = false
		return m, m.loadViewing()

	case key.Matches(msg, m.keys.Filter):
		if m.Panel.Visible() {
			m.Panel.ToggleFilter()
		}
		return m, nil

	case key.Matches(msg, m.keys.Escape):
		if m.Panel.IsFiltering() {
			m.Panel.ClearFilter()
		}
		m.StatusMsg = ""
		return m, nil

	case key.Matches(msg, m.keys.View):
		if m.deps.Toasts == nil {
			return m, nil
		}
		n, ok := m.deps.Toasts.Newest()
		if !ok || len(n.Buttons) == 0 {
			return m, nil
		}
		return m, TriggerToastCmd(m.deps.Toasts, n, 0)

	case key.Matches(msg, m.keys.Dismiss):
		if m.deps.Toasts == nil {
			return m, nil
		}
		if n, ok := m.deps.Toasts.Newest(); ok {
			m.deps.Toasts.Dismiss(n.ID)
			m.refreshToasts()
		}
		return m, nil
	}

	return m, nil
}

// syncViewing picks up a navigation made through the router
func (m *Model) syncViewing() tea.Cmd {
	if m.deps.Router == nil {
		return nil
	}
	current := m.deps.Router.CurrentCollection()
	if current == m.Viewing {
		return nil
	}
	m.Viewing = current
	m.CollectionName = ""
	m.CountKnown = false
	return m.loadViewing()
}

// loadViewing fetches name and document count of the viewed collection
func (m *Model) loadViewing() tea.Cmd {
	var dir domain.CollectionDirectory
	if m.deps.Directory != nil {
		dir = m.deps.Directory
	}
	return tea.Batch(
		LoadCollectionNameCmd(dir, m.Viewing),
		LoadDocumentCountCmd(m.deps.Documents, m.Viewing),
	)
}

func (m *Model) refreshToasts() {
	if m.deps.Toasts == nil {
		return
	}
	m.Toasts.SetToasts(m.deps.Toasts.Active())
}

func (m *Model) setStatus(text string, isErr bool) {
	m.StatusMsg = text
	m.StatusIsErr = isErr
}

// View renders the application
func (m Model) View() string {
	if !m.Ready {
		return "Loading..."
	}

	if m.State == StateHelp {
		return m.renderHelp()
	}

	contentHeight := m.Height - ChromeHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	var stack []string
	if toasts := m.Toasts.View(); toasts != "" {
		stack = append(stack, toasts)
	}
	if panel := m.Panel.View(); panel != "" {
		stack = append(stack, panel)
	}

	var content string
	if len(stack) > 0 {
		content = lipgloss.JoinVertical(lipgloss.Right, stack...)
	}
	content = lipgloss.Place(m.Width, contentHeight, lipgloss.Right, lipgloss.Bottom, content)

	return lipgloss.JoinVertical(lipgloss.Left, m.renderHeader(), content, m.renderFooter())
}

func (m Model) renderHeader() string {
	title := styles.AccentStyle.Bold(true).Render("importwatch")
	if m.Viewing.IsZero() {
		return title + "  " + styles.DimStyle.Render("no collection open")
	}

	name := m.CollectionName
	if name == "" {
		name = m.Viewing.String()
	}
	header := title + "  " + styles.CollectionStyle.Render(name)
	if m.CountKnown {
		header += styles.DimStyle.Render(fmt.Sprintf(" · %d %s", m.DocumentCount, pluralize(m.DocumentCount, "document")))
	}
	return header
}

func (m Model) renderFooter() string {
	var left string
	if m.StatusMsg != "" {
		if m.StatusIsErr {
			left = styles.ErrorStyle.Render(m.StatusMsg)
		} else {
			left = styles.DimStyle.Render(m.StatusMsg)
		}
	} else if m.Panel.IsFiltering() {
		left = styles.DimStyle.Render("esc clears filter")
	}

	right := styles.AccentStyle.Render("?") + styles.DimStyle.Render(" help")

	gap := m.Width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 0 {
		gap = 0
	}
	return left + strings.Repeat(" ", gap) + right
}

// renderHelp renders the help screen
func (m Model) renderHelp() string {
	var b strings.Builder
	b.WriteString(styles.TitleStyle.Render("KEYS"))
	b.WriteString("\n")
	for _, binding := range m.keys.ShortHelp() {
		h := binding.Help()
		fmt.Fprintf(&b, "\n  %-8s %s", h.Key, h.Desc)
	}
	b.WriteString("\n\nPress any key to return...")

	return lipgloss.Place(m.Width, m.Height,
		lipgloss.Center, lipgloss.Center,
		styles.ModalStyle.Render(b.String()))
}

func pluralize(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
