package domain

// Notifier delivers user-facing notifications. Fire-and-forget.
type Notifier interface {
	Notify(n Notification)
}

// Router knows what the user is looking at and how to move them elsewhere
type Router interface {
	// CurrentCollection returns the collection currently being viewed (zero if none)
	CurrentCollection() ResourceRef

	// CollectionURL builds the documents page URL for a collection
	CollectionURL(ref ResourceRef) string

	// NavigateTo moves the user to the given URL
	NavigateTo(url string) error
}

// ViewInvalidator refreshes cached views that depend on a resource tag
type ViewInvalidator interface {
	Invalidate(tag string)
}
