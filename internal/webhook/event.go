// Package webhook consumes Strava push notifications and applies them to
// the local store.
package webhook

import (
	"errors"
	"fmt"
)

// Object and aspect values Strava emits.
const (
	ObjectActivity = "activity"
	ObjectAthlete  = "athlete"

	AspectCreate = "create"
	AspectUpdate = "update"
	AspectDelete = "delete"
)

// ErrInvalidEvent flags a payload that does not match the wire contract.
var ErrInvalidEvent = errors.New("invalid webhook event")

// Event is one push notification. It is transient: no dedup store exists,
// and replayed or out-of-order deliveries are absorbed by the idempotent
// store upsert.
type Event struct {
	ObjectType     string            `json:"object_type"`
	ObjectID       int64             `json:"object_id"`
	AspectType     string            `json:"aspect_type"`
	OwnerID        int64             `json:"owner_id"`
	SubscriptionID int64             `json:"subscription_id"`
	EventTime      int64             `json:"event_time"`
	Updates        map[string]string `json:"updates,omitempty"`
}

// Validate checks the event against the wire contract.
func (e Event) Validate() error {
	switch e.ObjectType {
	case ObjectActivity, ObjectAthlete:
	default:
		return fmt.Errorf("%w: unknown object_type %q", ErrInvalidEvent, e.ObjectType)
	}
	switch e.AspectType {
	case AspectCreate, AspectUpdate, AspectDelete:
	default:
		return fmt.Errorf("%w: unknown aspect_type %q", ErrInvalidEvent, e.AspectType)
	}
	if e.ObjectID <= 0 {
		return fmt.Errorf("%w: missing object_id", ErrInvalidEvent)
	}
	if e.OwnerID <= 0 {
		return fmt.Errorf("%w: missing owner_id", ErrInvalidEvent)
	}
	return nil
}
