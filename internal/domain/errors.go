package domain

import "errors"

// Sentinel errors for domain operations
var (
	// ErrNotFound indicates the requested resource does not exist
	ErrNotFound = errors.New("resource not found")

	// ErrCollectionNotFound indicates the collection is missing or not accessible
	ErrCollectionNotFound = errors.New("collection not found")

	// ErrServerOffline indicates the backend is unreachable
	ErrServerOffline = errors.New("backend is unreachable")

	// ErrAuthFailed indicates the API key was rejected
	ErrAuthFailed = errors.New("api key is invalid")

	// ErrSubscriptionClosed indicates the realtime subscription has been released
	ErrSubscriptionClosed = errors.New("subscription closed")

	// ErrToastExpired indicates a notification is no longer on screen
	ErrToastExpired = errors.New("notification expired")
)
