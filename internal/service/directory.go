package service

import (
	"context"
	"log/slog"

	"github.com/mmcdole/importwatch/internal/domain"
)

// DirectoryService resolves collection names from the local cache first and
// the backend second. Only successful lookups are cached.
type DirectoryService struct {
	remote domain.CollectionDirectory
	store  domain.Store
	logger *slog.Logger
}

// NewDirectoryService creates a new directory service
func NewDirectoryService(remote domain.CollectionDirectory, store domain.Store, logger *slog.Logger) *DirectoryService {
	if logger == nil {
		logger = slog.Default()
	}
	return &DirectoryService{remote: remote, store: store, logger: logger}
}

// CollectionName implements domain.CollectionDirectory
func (s *DirectoryService) CollectionName(ctx context.Context, databaseID, collectionID string) (string, error) {
	ref := domain.ResourceRef{DatabaseID: databaseID, CollectionID: collectionID}
	if s.store != nil {
		if name, ok := s.store.GetCollectionName(ref); ok {
			return name, nil
		}
	}

	name, err := s.remote.CollectionName(ctx, databaseID, collectionID)
	if err != nil {
		return "", err
	}

	if s.store != nil && name != "" {
		if err := s.store.SaveCollectionName(ref, name); err != nil {
			s.logger.Warn("failed to cache collection name", "resource", ref.String(), "error", err)
		}
	}
	return name, nil
}

// Forget drops the cached name of a collection, e.g. after a rename
func (s *DirectoryService) Forget(ref domain.ResourceRef) {
	if s.store != nil {
		s.store.InvalidateCollection(ref)
	}
}
