package backend

import "encoding/json"

// Migration is the wire form of a migration
type Migration struct {
	ID           string            `json:"$id"`
	UpdatedAt    string            `json:"$updatedAt"`
	Status       string            `json:"status"`
	Stage        string            `json:"stage"`
	Source       string            `json:"source"`
	Destination  string            `json:"destination"`
	ResourceID   string            `json:"resourceId"`
	ResourceType string            `json:"resourceType"`
	Errors       []json.RawMessage `json:"errors"`
}

// MigrationList is the response of GET /v1/migrations
type MigrationList struct {
	Total      int         `json:"total"`
	Migrations []Migration `json:"migrations"`
}

// Collection is the subset of collection metadata the client reads
type Collection struct {
	ID         string `json:"$id"`
	DatabaseID string `json:"databaseId"`
	Name       string `json:"name"`
}

// DocumentList is the response of a document listing; only the total is read
type DocumentList struct {
	Total int `json:"total"`
}

// Query is one entry of the queries[] parameter
type Query struct {
	Method    string `json:"method"`
	Attribute string `json:"attribute,omitempty"`
	Values    []any  `json:"values,omitempty"`
}

// ErrorBody is the JSON error envelope returned with non-2xx responses
type ErrorBody struct {
	Message string `json:"message"`
	Code    int    `json:"code"`
	Type    string `json:"type"`
}

// Frame is one realtime message
type Frame struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// EventData is the data of an "event" frame
type EventData struct {
	Events    []string  `json:"events"`
	Channels  []string  `json:"channels"`
	Timestamp string    `json:"timestamp"`
	Payload   Migration `json:"payload"`
}

// ConnectedData is the data of a "connected" frame
type ConnectedData struct {
	Channels []string `json:"channels"`
}

// FrameError is the data of an "error" frame
type FrameError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}
