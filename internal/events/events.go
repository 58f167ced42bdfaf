// Package events is the process-wide notification channel screens use to
// learn that transactions or accounts changed.
//
// Delivery is fire-and-forget and at most once. Every subscriber owns a
// bounded buffer drained by its own goroutine; when the buffer is full the
// event is dropped for that subscriber. Events published while nobody is
// subscribed are lost.
package events

import (
	"context"
	"fmt"
	"time"
)

// TopicTransactionUpdated is the single channel name, kept for the AMQP
// routing key and logs.
const TopicTransactionUpdated = "TRANSACTION_UPDATED"

type Action string

const (
	ActionCreate        Action = "create"
	ActionUpdate        Action = "update"
	ActionDelete        Action = "delete"
	ActionAccountUpdate Action = "account_update"
)

func (a Action) IsValid() bool {
	switch a {
	case ActionCreate, ActionUpdate, ActionDelete, ActionAccountUpdate:
		return true
	}
	return false
}

// Event tells subscribers which entity changed. Origin is empty for events
// raised in this process and holds the sender's instance id for events
// relayed from another process.
type Event struct {
	Action Action    `json:"action"`
	ID     string    `json:"id,omitempty"`
	Origin string    `json:"origin,omitempty"`
	At     time.Time `json:"timestamp"`
}

func (e Event) Validate() error {
	if !e.Action.IsValid() {
		return fmt.Errorf("invalid event action %q", e.Action)
	}
	return nil
}

// Local reports whether the event was raised in this process.
func (e Event) Local() bool { return e.Origin == "" }

// Handler receives events on the subscriber's goroutine. ctx is cancelled
// when the subscription ends.
type Handler func(ctx context.Context, e Event)

// Publisher is what emitters depend on.
type Publisher interface {
	Publish(ctx context.Context, e Event)
}
