package service

import (
	"context"
	"log/slog"
	"sync"

	"github.com/mmcdole/importwatch/internal/domain"
)

// DocumentService serves cached document counts and implements
// domain.ViewInvalidator for the views built on them.
type DocumentService struct {
	counter domain.DocumentCounter
	store   domain.Store
	logger  *slog.Logger

	mu        sync.RWMutex
	listeners []func(tag string)
}

// NewDocumentService creates a new document service
func NewDocumentService(counter domain.DocumentCounter, store domain.Store, logger *slog.Logger) *DocumentService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DocumentService{counter: counter, store: store, logger: logger}
}

// Count returns the number of documents in a collection
func (s *DocumentService) Count(ctx context.Context, ref domain.ResourceRef) (int, error) {
	if ref.CollectionID == "" {
		return 0, domain.ErrCollectionNotFound
	}
	if s.store != nil {
		if count, ok := s.store.GetDocumentCount(ref); ok {
			return count, nil
		}
	}

	count, err := s.counter.CountDocuments(ctx, ref.DatabaseID, ref.CollectionID)
	if err != nil {
		return 0, err
	}
	if s.store != nil {
		if err := s.store.SaveDocumentCount(ref, count); err != nil {
			s.logger.Warn("failed to cache document count", "resource", ref.String(), "error", err)
		}
	}
	return count, nil
}

// OnInvalidate registers a listener called after every invalidation
func (s *DocumentService) OnInvalidate(fn func(tag string)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.listeners = append(s.listeners, fn)
}

// Invalidate drops cached data for a dependency tag and signals listeners
func (s *DocumentService) Invalidate(tag string) {
	if tag == domain.DependencyDocuments && s.store != nil {
		s.store.InvalidateDocuments()
	}
	s.logger.Debug("invalidated views", "tag", tag)

	s.mu.RLock()
	listeners := s.listeners
	s.mu.RUnlock()
	for _, fn := range listeners {
		fn(tag)
	}
}
