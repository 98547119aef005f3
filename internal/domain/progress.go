package domain

import "strings"

// Status is the raw lifecycle label reported by the backend for an import.
// The domain is open: labels the client does not know are kept verbatim.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusUploading  Status = "uploading"
	StatusCompleted  Status = "completed"
	StatusFailed     Status = "failed"
)

// Phase is the closed set of states the client reasons about.
type Phase int

const (
	PhaseUnknown Phase = iota // unrecognized label, rendered as in-progress
	PhasePending
	PhaseProcessing
	PhaseUploading
	PhaseCompleted
	PhaseFailed
)

// ParseStatus normalizes a backend label. Unknown labels are preserved.
func ParseStatus(s string) Status {
	return Status(strings.ToLower(strings.TrimSpace(s)))
}

// Phase maps the label onto the closed enumeration.
func (s Status) Phase() Phase {
	switch s {
	case StatusPending:
		return PhasePending
	case StatusProcessing:
		return PhaseProcessing
	case StatusUploading:
		return PhaseUploading
	case StatusCompleted:
		return PhaseCompleted
	case StatusFailed:
		return PhaseFailed
	default:
		return PhaseUnknown
	}
}

// IsTerminal reports whether no further transitions are accepted.
func (s Status) IsTerminal() bool {
	p := s.Phase()
	return p == PhaseCompleted || p == PhaseFailed
}

// String returns the raw label
func (s Status) String() string { return string(s) }

// String returns a human-readable representation of the phase
func (p Phase) String() string {
	switch p {
	case PhasePending:
		return "Pending"
	case PhaseProcessing:
		return "Processing"
	case PhaseUploading:
		return "Uploading"
	case PhaseCompleted:
		return "Completed"
	case PhaseFailed:
		return "Failed"
	default:
		return "In Progress"
	}
}
