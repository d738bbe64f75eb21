package core

import (
	"time"

	"github.com/google/uuid"
)

// Event is the envelope published by tooling that wants a typed payload on a topic.
type Event struct {
	ID        string                 `json:"id" msgpack:"id"`
	Type      string                 `json:"type" msgpack:"type"`
	Source    string                 `json:"source" msgpack:"source"`
	Timestamp time.Time              `json:"timestamp" msgpack:"timestamp"`
	Payload   map[string]interface{} `json:"payload" msgpack:"payload"`
}

// NewEvent returns an Event with a fresh id and the current UTC time.
func NewEvent(typ, source string, payload map[string]interface{}) Event {
	return Event{
		ID:        uuid.NewString(),
		Type:      typ,
		Source:    source,
		Timestamp: time.Now().UTC(),
		Payload:   payload,
	}
}
