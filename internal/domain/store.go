package domain

// Store handles local cache (BoltDB + memory).
// Keys are "databaseId:collectionId" so one collection can be dropped by key.
type Store interface {
	// === Collections ===
	GetCollectionName(ref ResourceRef) (string, bool)
	SaveCollectionName(ref ResourceRef, name string) error

	// === Documents ===
	GetDocumentCount(ref ResourceRef) (int, bool)
	SaveDocumentCount(ref ResourceRef, count int) error

	// === Invalidation ===
	InvalidateCollection(ref ResourceRef)
	InvalidateDocuments()
	InvalidateAll()

	Close() error
}
