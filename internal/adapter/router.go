package adapter

import (
	"log/slog"
	"net/url"
	"strings"
	"sync"

	"github.com/mmcdole/importwatch/internal/domain"
)

// URLOpener opens a URL outside the process
type URLOpener interface {
	Open(url string) error
}

// BrowserRouter implements domain.Router on top of the web console.
// The current collection is the configured one until a navigation replaces it.
type BrowserRouter struct {
	consoleURL string
	projectID  string
	opener     URLOpener
	logger     *slog.Logger

	mu      sync.RWMutex
	current domain.ResourceRef
}

// NewBrowserRouter creates a router for the console at consoleURL
func NewBrowserRouter(consoleURL, projectID string, current domain.ResourceRef, opener URLOpener, logger *slog.Logger) *BrowserRouter {
	if logger == nil {
		logger = slog.Default()
	}
	return &BrowserRouter{
		consoleURL: strings.TrimRight(consoleURL, "/"),
		projectID:  projectID,
		opener:     opener,
		logger:     logger,
		current:    current,
	}
}

// CurrentCollection returns the collection being viewed
func (r *BrowserRouter) CurrentCollection() domain.ResourceRef {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.current
}

// SetCurrent records the collection being viewed
func (r *BrowserRouter) SetCurrent(ref domain.ResourceRef) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.current = ref
}

// CollectionURL builds the console page for a collection's documents
func (r *BrowserRouter) CollectionURL(ref domain.ResourceRef) string {
	return r.consoleURL +
		"/project-" + url.PathEscape(r.projectID) +
		"/databases/database-" + url.PathEscape(ref.DatabaseID) +
		"/collection-" + url.PathEscape(ref.CollectionID)
}

// NavigateTo opens target and, when it is a collection page, makes that
// collection the current one.
func (r *BrowserRouter) NavigateTo(target string) error {
	if r.opener != nil {
		if err := r.opener.Open(target); err != nil {
			return err
		}
	}
	if ref, ok := ParseCollectionURL(target); ok {
		r.SetCurrent(ref)
	}
	r.logger.Debug("navigated", "url", target)
	return nil
}

// ParseCollectionURL extracts the collection from a console collection URL
func ParseCollectionURL(target string) (domain.ResourceRef, bool) {
	u, err := url.Parse(target)
	if err != nil {
		return domain.ResourceRef{}, false
	}

	var ref domain.ResourceRef
	for _, seg := range strings.Split(u.Path, "/") {
		switch {
		case strings.HasPrefix(seg, "database-"):
			ref.DatabaseID = strings.TrimPrefix(seg, "database-")
		case strings.HasPrefix(seg, "collection-"):
			ref.CollectionID = strings.TrimPrefix(seg, "collection-")
		}
	}
	if ref.DatabaseID == "" || ref.CollectionID == "" {
		return domain.ResourceRef{}, false
	}
	return ref, true
}
