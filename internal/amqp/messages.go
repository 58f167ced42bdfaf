package amqp

import (
	"encoding/json"
	"fmt"
	"time"

	"walletsync/internal/events"
)

// EventMessage is the wire form of a bus event. Origin is the instance id of
// the publishing process so it can skip its own messages.
type EventMessage struct {
	Action    events.Action `json:"action"`
	ID        string        `json:"id,omitempty"`
	Origin    string        `json:"origin"`
	Timestamp time.Time     `json:"timestamp"`
}

// NewEventMessage wraps a local event for publishing.
func NewEventMessage(e events.Event, origin string) *EventMessage {
	ts := e.At
	if ts.IsZero() {
		ts = time.Now()
	}
	return &EventMessage{
		Action:    e.Action,
		ID:        e.ID,
		Origin:    origin,
		Timestamp: ts,
	}
}

// Event converts the message back into a bus event tagged with its origin.
func (m *EventMessage) Event() events.Event {
	return events.Event{
		Action: m.Action,
		ID:     m.ID,
		Origin: m.Origin,
		At:     m.Timestamp,
	}
}

// ToJSON converts the message to JSON bytes
func (m *EventMessage) ToJSON() ([]byte, error) {
	return json.Marshal(m)
}

// EventMessageFromJSON decodes and validates a message body.
func EventMessageFromJSON(data []byte) (*EventMessage, error) {
	var msg EventMessage
	if err := json.Unmarshal(data, &msg); err != nil {
		return nil, err
	}
	if !msg.Action.IsValid() {
		return nil, fmt.Errorf("unknown action %q", msg.Action)
	}
	if msg.Origin == "" {
		return nil, fmt.Errorf("missing origin")
	}
	return &msg, nil
}
