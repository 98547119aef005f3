package tui

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmcdole/importwatch/internal/domain"
	"github.com/mmcdole/importwatch/internal/notify"
	"github.com/mmcdole/importwatch/internal/tracker"
)

var discard = slog.New(slog.NewTextHandler(io.Discard, nil))

type fakeRouter struct {
	mu      sync.Mutex
	current domain.ResourceRef
	opened  []string
}

func (r *fakeRouter) CurrentCollection() domain.ResourceRef {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.current
}

func (r *fakeRouter) CollectionURL(ref domain.ResourceRef) string {
	return "https://console.test/" + ref.String()
}

func (r *fakeRouter) NavigateTo(url string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.opened = append(r.opened, url)
	return nil
}

func (r *fakeRouter) set(ref domain.ResourceRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ref
}

type fakeDocuments struct {
	counts map[domain.ResourceRef]int
}

func (d *fakeDocuments) Count(_ context.Context, ref domain.ResourceRef) (int, error) {
	count, ok := d.counts[ref]
	if !ok {
		return 0, domain.ErrCollectionNotFound
	}
	return count, nil
}

type fakeDirectory struct {
	names     map[domain.ResourceRef]string
	forgotten []domain.ResourceRef
}

func (d *fakeDirectory) CollectionName(_ context.Context, databaseID, collectionID string) (string, error) {
	name, ok := d.names[domain.ResourceRef{DatabaseID: databaseID, CollectionID: collectionID}]
	if !ok {
		return "", domain.ErrCollectionNotFound
	}
	return name, nil
}

func (d *fakeDirectory) Forget(ref domain.ResourceRef) {
	d.forgotten = append(d.forgotten, ref)
}

type harness struct {
	tracker *tracker.Tracker
	toasts  *notify.ToastCenter
	router  *fakeRouter
	docs    *fakeDocuments
	model   Model
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		tracker: tracker.New(tracker.Config{ProjectID: "p1"}, tracker.Deps{}, discard),
		toasts:  notify.NewToastCenter(time.Minute, discard),
		router:  &fakeRouter{current: domain.ResourceRef{DatabaseID: "db", CollectionID: "books"}},
		docs: &fakeDocuments{counts: map[domain.ResourceRef]int{
			{DatabaseID: "db", CollectionID: "books"}:   12,
			{DatabaseID: "db", CollectionID: "authors"}: 3,
		}},
	}
	t.Cleanup(h.tracker.Close)

	h.model = NewModel(Deps{
		Tracker:   h.tracker,
		Toasts:    h.toasts,
		Documents: h.docs,
		Router:    h.router,
		Channels:  NewChannels(),
		Logger:    discard,
	}, false)
	h.send(tea.WindowSizeMsg{Width: 100, Height: 30})
	return h
}

func (h *harness) send(msg tea.Msg) tea.Cmd {
	next, cmd := h.model.Update(msg)
	h.model = next.(Model)
	return cmd
}

func (h *harness) press(keys string) tea.Cmd {
	switch keys {
	case " ":
		return h.send(tea.KeyMsg{Type: tea.KeySpace, Runes: []rune(" ")})
	case "esc":
		return h.send(tea.KeyMsg{Type: tea.KeyEsc})
	case "enter":
		return h.send(tea.KeyMsg{Type: tea.KeyEnter})
	}
	return h.send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(keys)})
}

func (h *harness) reconcile(id, status, resource string) {
	h.tracker.Reconcile(domain.Job{
		ID:         id,
		Source:     "CSV",
		Status:     domain.ParseStatus(status),
		ResourceID: resource,
	})
	h.send(SnapshotMsg{Snapshot: h.tracker.Snapshot()})
}

func TestPanelHiddenWhenEmpty(t *testing.T) {
	h := newHarness(t)

	assert.False(t, h.model.Panel.Visible())
	assert.Empty(t, h.model.Panel.View())
	assert.NotContains(t, h.model.View(), "Importing")
}

func TestPanelHeaderCountsActiveImports(t *testing.T) {
	h := newHarness(t)

	h.reconcile("m1", "pending", "db:books")
	assert.True(t, h.model.Panel.Visible())
	assert.Equal(t, "Importing 1 file", h.model.Panel.Header())

	h.reconcile("m2", "processing", "db:authors")
	assert.Equal(t, "Importing 2 files", h.model.Panel.Header())

	h.reconcile("m1", "completed", "db:books")
	h.reconcile("m2", "failed", "db:authors")
	assert.Equal(t, "Imported 2 files", h.model.Panel.Header())

	view := h.model.View()
	assert.Contains(t, view, "Import completed")
	assert.Contains(t, view, "Import failed")
}

func TestPanelRowsKeepArrivalOrder(t *testing.T) {
	h := newHarness(t)

	h.reconcile("m1", "pending", "db:books")
	h.reconcile("m2", "pending", "db:authors")
	h.reconcile("m1", "processing", "db:books")

	rows := h.model.Panel.Rows()
	require.Len(t, rows, 2)
	assert.Equal(t, "m1", rows[0].ID)
	assert.Equal(t, domain.StatusProcessing, rows[0].Status)
	assert.Equal(t, "m2", rows[1].ID)
}

func TestCollapseAndClearKeys(t *testing.T) {
	h := newHarness(t)
	h.reconcile("m1", "processing", "db:books")

	h.press(" ")
	assert.True(t, h.model.Panel.Collapsed())
	assert.NotContains(t, h.model.Panel.View(), "Importing CSV file")

	h.press(" ")
	assert.False(t, h.model.Panel.Collapsed())
	assert.Contains(t, h.model.Panel.View(), "Importing CSV file")

	h.press("c")
	assert.Equal(t, 0, h.tracker.Snapshot().Len())
	assert.False(t, h.model.Panel.Visible())
}

func TestFilterRows(t *testing.T) {
	h := newHarness(t)
	h.reconcile("m1", "completed", "db:books")
	h.reconcile("m2", "processing", "db:authors")

	h.press("/")
	require.True(t, h.model.Panel.IsFilterTyping())

	// Typing does not trigger other bindings
	h.press("c")
	h.press("o")
	h.press("m")
	assert.Equal(t, 2, h.tracker.Snapshot().Len())

	rows := h.model.Panel.Rows()
	require.Len(t, rows, 1)
	assert.Equal(t, "m1", rows[0].ID)

	h.press("enter")
	assert.True(t, h.model.Panel.IsFiltering())
	assert.False(t, h.model.Panel.IsFilterTyping())

	h.press("esc")
	assert.False(t, h.model.Panel.IsFiltering())
	assert.Len(t, h.model.Panel.Rows(), 2)
}

func TestFilterIgnoredWhenHidden(t *testing.T) {
	h := newHarness(t)

	h.press("/")
	assert.False(t, h.model.Panel.IsFiltering())
}

func TestToastViewAndDismiss(t *testing.T) {
	h := newHarness(t)

	var triggered int
	h.toasts.Notify(domain.Notification{
		Severity: domain.SeverityInfo,
		Message:  "Import to <b>Authors</b> completed",
		IsHTML:   true,
		Buttons: []domain.Button{{Name: "View", Action: func() error {
			triggered++
			h.router.set(domain.ResourceRef{DatabaseID: "db", CollectionID: "authors"})
			return nil
		}}},
	})
	cmd := h.send(ToastMsg{})
	require.NotNil(t, cmd)
	assert.Equal(t, 1, h.model.Toasts.Len())

	view := h.model.View()
	assert.Contains(t, view, "Import to Authors completed")
	assert.NotContains(t, view, "<b>")
	assert.Contains(t, view, "[v] View")

	cmd = h.press("v")
	require.NotNil(t, cmd)
	msg := cmd()
	res, ok := msg.(ToastTriggeredMsg)
	require.True(t, ok)
	require.NoError(t, res.Err)
	assert.Equal(t, "View", res.Button)
	assert.Equal(t, 1, triggered)

	cmd = h.send(res)
	assert.Equal(t, 0, h.model.Toasts.Len())
	assert.Equal(t, domain.ResourceRef{DatabaseID: "db", CollectionID: "authors"}, h.model.Viewing)
	require.NotNil(t, cmd)
}

func TestToastDismissKey(t *testing.T) {
	h := newHarness(t)

	h.toasts.Notify(domain.Notification{Severity: domain.SeverityError, Message: "Import failed"})
	h.send(ToastMsg{})
	require.Equal(t, 1, h.model.Toasts.Len())

	// No button, nothing to trigger
	assert.Nil(t, h.press("v"))

	h.press("x")
	assert.Equal(t, 0, h.model.Toasts.Len())
	assert.Empty(t, h.toasts.Active())
}

func TestToastTickStopsWhenEmpty(t *testing.T) {
	h := newHarness(t)

	h.toasts.Notify(domain.Notification{Message: "hello"})
	h.send(ToastMsg{})
	assert.True(t, h.model.ticking)

	// Still active, keep ticking
	assert.NotNil(t, h.send(ToastTickMsg{}))

	h.press("x")
	assert.Nil(t, h.send(ToastTickMsg{}))
	assert.False(t, h.model.ticking)
}

func TestDocumentCountHeader(t *testing.T) {
	h := newHarness(t)
	books := domain.ResourceRef{DatabaseID: "db", CollectionID: "books"}

	assert.NotContains(t, h.model.View(), "documents")

	cmd := LoadDocumentCountCmd(h.docs, books)
	require.NotNil(t, cmd)
	h.send(cmd())
	assert.True(t, h.model.CountKnown)
	assert.Contains(t, h.model.View(), "12 documents")

	// Counts for another collection are ignored
	h.send(DocumentCountMsg{Ref: domain.ResourceRef{DatabaseID: "db", CollectionID: "authors"}, Count: 3})
	assert.Equal(t, 12, h.model.DocumentCount)
}

func TestDocumentsInvalidationRefetches(t *testing.T) {
	h := newHarness(t)
	h.send(DocumentCountMsg{Ref: h.model.Viewing, Count: 1})

	cmd := h.send(InvalidatedMsg{Tag: domain.DependencyDocuments})
	require.NotNil(t, cmd)
	assert.False(t, h.model.CountKnown)

	cmd = h.send(InvalidatedMsg{Tag: "collections"})
	require.NotNil(t, cmd)
	assert.False(t, h.model.CountKnown)
}

func TestMissingCollectionIsNotAnError(t *testing.T) {
	h := newHarness(t)

	cmd := LoadDocumentCountCmd(h.docs, domain.ResourceRef{DatabaseID: "db", CollectionID: "gone"})
	h.send(cmd())
	assert.Empty(t, h.model.StatusMsg)

	h.send(ErrMsg{Err: domain.ErrServerOffline, Context: "counting documents"})
	assert.Equal(t, "counting documents: backend is unreachable", h.model.StatusMsg)
	assert.True(t, h.model.StatusIsErr)
}

func TestLoadDocumentCountNeedsCollection(t *testing.T) {
	assert.Nil(t, LoadDocumentCountCmd(&fakeDocuments{}, domain.ResourceRef{}))
	assert.Nil(t, LoadDocumentCountCmd(nil, domain.ResourceRef{CollectionID: "c"}))
}

func TestRefreshForgetsViewedCollection(t *testing.T) {
	books := domain.ResourceRef{DatabaseID: "db", CollectionID: "books"}
	dir := &fakeDirectory{names: map[domain.ResourceRef]string{books: "Books"}}
	model := NewModel(Deps{
		Directory: dir,
		Documents: &fakeDocuments{counts: map[domain.ResourceRef]int{books: 4}},
		Router:    &fakeRouter{current: books},
		Logger:    discard,
	}, false)

	next, _ := model.Update(tea.WindowSizeMsg{Width: 80, Height: 20})
	model = next.(Model)
	next, _ = model.Update(LoadCollectionNameCmd(dir, books)())
	model = next.(Model)
	assert.Contains(t, model.View(), "Books")

	next, cmd := model.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("r")})
	model = next.(Model)
	require.NotNil(t, cmd)
	assert.Equal(t, []domain.ResourceRef{books}, dir.forgotten)
	assert.False(t, model.CountKnown)
}

func TestHelpScreen(t *testing.T) {
	h := newHarness(t)

	h.press("?")
	assert.Equal(t, StateHelp, h.model.State)
	view := h.model.View()
	assert.Contains(t, view, "KEYS")
	assert.Contains(t, view, "╭", "help renders inside a bordered box")

	h.press("j")
	assert.Equal(t, StateWatching, h.model.State)
}

func TestQuitKey(t *testing.T) {
	h := newHarness(t)

	cmd := h.press("q")
	require.NotNil(t, cmd)
	assert.Equal(t, tea.Quit(), cmd())
}

func TestChannelsKeepLatestSnapshot(t *testing.T) {
	ch := NewChannels()
	tr := tracker.New(tracker.Config{}, tracker.Deps{}, discard)
	t.Cleanup(tr.Close)
	tr.Observe(ch)

	tr.Reconcile(domain.Job{ID: "m1", Source: "csv", Status: domain.StatusPending})
	tr.Reconcile(domain.Job{ID: "m2", Source: "csv", Status: domain.StatusPending})

	msg := WaitForSnapshotCmd(ch.Snapshots)()
	snap, ok := msg.(SnapshotMsg)
	require.True(t, ok)
	assert.Equal(t, 2, snap.Snapshot.Len())
	assert.Empty(t, ch.Snapshots)
}

func TestChannelsNeverBlock(t *testing.T) {
	ch := NewChannels()
	for i := 0; i < cap(ch.Toasts)+5; i++ {
		ch.OnToast(domain.Notification{Message: "n"})
	}
	for i := 0; i < cap(ch.Invalidations)+5; i++ {
		ch.OnInvalidate(domain.DependencyDocuments)
	}
	assert.Len(t, ch.Toasts, cap(ch.Toasts))
	assert.Len(t, ch.Invalidations, cap(ch.Invalidations))
}
