package domain

import (
	"context"
	"time"
)

// JobLister queries migrations on the backend
type JobLister interface {
	// ListJobs returns every migration matching the filter
	ListJobs(ctx context.Context, filter JobFilter) ([]Job, error)

	// GetJob returns a single migration by id
	GetJob(ctx context.Context, id string) (Job, error)
}

// CollectionDirectory resolves display names for collections.
// Returns ErrCollectionNotFound when the collection is missing or inaccessible.
type CollectionDirectory interface {
	CollectionName(ctx context.Context, databaseID, collectionID string) (string, error)
}

// Event is one realtime message
type Event struct {
	Channels   []string // Topics the message was published on
	Events     []string // Event names, including wildcard forms
	Payload    Job
	ReceivedAt time.Time
}

// EventSource opens realtime subscriptions
type EventSource interface {
	Subscribe(ctx context.Context, channels ...string) (Subscription, error)
}

// Subscription is a live realtime feed. Close must be called exactly once
// to release it; Events is closed afterwards.
type Subscription interface {
	Events() <-chan Event
	Close() error
}

// DocumentCounter counts the documents of a collection
type DocumentCounter interface {
	CountDocuments(ctx context.Context, databaseID, collectionID string) (int, error)
}
