package domain

import "strings"

// ResourceRef identifies an import destination ("databaseId:collectionId")
type ResourceRef struct {
	DatabaseID   string
	CollectionID string
}

// ParseResourceRef splits a composite resource reference.
// Anything other than exactly two non-empty parts yields the zero value.
func ParseResourceRef(s string) ResourceRef {
	parts := strings.Split(s, ":")
	if len(parts) != 2 || parts[0] == "" || parts[1] == "" {
		return ResourceRef{}
	}
	return ResourceRef{DatabaseID: parts[0], CollectionID: parts[1]}
}

// IsZero reports whether the reference is absent or was malformed
func (r ResourceRef) IsZero() bool {
	return r.DatabaseID == "" && r.CollectionID == ""
}

// String returns the composite form, or "" for the zero value
func (r ResourceRef) String() string {
	if r.IsZero() {
		return ""
	}
	return r.DatabaseID + ":" + r.CollectionID
}
