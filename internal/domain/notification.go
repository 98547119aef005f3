package domain

import "time"

// Severity of a notification
type Severity int

const (
	SeverityInfo Severity = iota
	SeveritySuccess
	SeverityError
)

// String returns the lowercase severity name
func (s Severity) String() string {
	switch s {
	case SeveritySuccess:
		return "success"
	case SeverityError:
		return "error"
	default:
		return "info"
	}
}

// Button is an action attached to a notification
type Button struct {
	Name   string
	Action func() error
}

// Notification is a toast raised for the user
type Notification struct {
	ID        string // Assigned by the sink when empty
	Severity  Severity
	Message   string
	IsHTML    bool // Message carries markup; interpolated values are already escaped
	Buttons   []Button
	CreatedAt time.Time
}
