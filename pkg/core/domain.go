package core

import "fmt"

// EventType represents the type of change observed on a note file.
type EventType string

const (
	EventCreate EventType = "CREATE"
	EventModify EventType = "MODIFY"
	EventDelete EventType = "DELETE"
)

// Event represents a change to a note file.
type Event struct {
	Type      EventType
	ID        string // path relative to the repository root
	Timestamp int64  // Unix timestamp
}

func (e Event) String() string {
	return fmt.Sprintf("%s %s", e.Type, e.ID)
}
