// Package stream consumes the record store's change-notification stream and
// fans events out to live feed views.
package stream

import (
	"errors"
	"fmt"
)

// Entity names carried on change events.
const (
	EntityCatches = "catches"
	EntityFollows = "follows"
	EntityRatings = "ratings"
)

// EventKind is the closed set of mutation kinds on the change stream.
type EventKind string

const (
	EventInsert EventKind = "insert"
	EventUpdate EventKind = "update"
	EventDelete EventKind = "delete"
)

// ErrInvalidEvent is returned for events missing required fields or
// carrying a kind outside the closed set.
var ErrInvalidEvent = errors.New("invalid change event")

// ChangeEvent is one upstream mutation notification. The stream guarantees
// at least the identity of the changed row; consumers re-fetch for the rest.
type ChangeEvent struct {
	// Entity is the table the mutation applies to.
	Entity string `cbor:"entity"`

	// Kind is the mutation kind.
	Kind EventKind `cbor:"kind"`

	// ID identifies the changed row.
	ID string `cbor:"id"`

	// OwnerID is the row owner when the producer knows it, empty otherwise.
	OwnerID string `cbor:"owner_id,omitempty"`

	// TimeUS is the producer timestamp in microseconds.
	TimeUS int64 `cbor:"time_us"`
}

// Validate checks the event carries an entity, a known kind, and a row id.
func (e *ChangeEvent) Validate() error {
	if e.Entity == "" {
		return fmt.Errorf("%w: missing entity", ErrInvalidEvent)
	}
	switch e.Kind {
	case EventInsert, EventUpdate, EventDelete:
	default:
		return fmt.Errorf("%w: unknown kind %q", ErrInvalidEvent, string(e.Kind))
	}
	if e.ID == "" {
		return fmt.Errorf("%w: missing row id", ErrInvalidEvent)
	}
	return nil
}
