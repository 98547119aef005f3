package domain

import (
	"strings"
	"time"
)

// SourceCSV is the migration source handled by this client
const SourceCSV = "CSV"

// DependencyDocuments tags cached document views for invalidation
const DependencyDocuments = "documents"

// Job is a migration as reported by the backend (listing, lookup or realtime payload)
type Job struct {
	ID           string    // Migration identifier
	Source       string    // Originating source, e.g. "CSV"
	Status       Status    // Raw lifecycle label
	Stage        string    // Backend stage name (informational)
	ResourceID   string    // "databaseId:collectionId" destination reference
	ResourceType string    // Destination resource type
	Errors       []string  // Error entries, usually JSON objects with a message field
	UpdatedAt    time.Time // Last update reported by the backend
}

// IsCSV reports whether the job originates from a CSV upload (case-insensitive)
func (j Job) IsCSV() bool {
	return strings.EqualFold(j.Source, SourceCSV)
}

// ImportJob is one tracked row of the import panel
type ImportJob struct {
	ID             string
	Status         Status
	Resource       ResourceRef
	CollectionName string // Empty until the directory lookup resolves
	Errors         []string
}

// Progress returns the displayed completion percentage for the row
func (j ImportJob) Progress() int {
	return ProgressPercent(j.Status)
}

// ProgressPercent maps a status onto the panel's progress bar.
// Unknown labels render as processing.
func ProgressPercent(s Status) int {
	switch s.Phase() {
	case PhasePending:
		return 10
	case PhaseProcessing:
		return 30
	case PhaseUploading:
		return 60
	case PhaseCompleted, PhaseFailed:
		return 100
	default:
		return 30
	}
}

// JobFilter selects migrations for a listing
type JobFilter struct {
	Source   string
	Statuses []Status
}

// InProgressCSV is the startup query: CSV imports still pending or processing
func InProgressCSV() JobFilter {
	return JobFilter{
		Source:   SourceCSV,
		Statuses: []Status{StatusPending, StatusProcessing},
	}
}
