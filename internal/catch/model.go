// Package catch provides the catch record model, the visibility access
// policy, GPS redaction, and repositories for querying catches with keyset
// pagination.
package catch

import (
	"encoding/json"
	"fmt"
	"time"
)

// Well-known keys inside the catch attribute bag. The bag itself is an
// opaque JSON object; the core enforces no schema beyond these keys.
const (
	// AttrGPS holds the exact coordinates sub-object {lat, lng}. It is the
	// one field stripped for non-owners when HideExactSpot is set.
	AttrGPS = "gps"

	// AttrCustomSpecies holds a free-text species name when the catch is not
	// one of the catalogued species.
	AttrCustomSpecies = "custom_species"
)

// Visibility is the closed set of per-record access modes. Parsing funnels
// every unrecognized wire value into VisibilityUnknown, which all access
// paths deny, so a typo can never widen access.
type Visibility int

const (
	// VisibilityPublic makes a catch visible to everyone, anonymous viewers
	// included. Absent visibility values parse as public.
	VisibilityPublic Visibility = iota

	// VisibilityFollowers restricts a catch to viewers who follow the owner.
	VisibilityFollowers

	// VisibilityPrivate restricts a catch to its owner.
	VisibilityPrivate

	// VisibilityUnknown marks an unrecognized stored value. Denied everywhere.
	VisibilityUnknown
)

// ParseVisibility maps a stored string to a Visibility. Empty input means
// the record predates the visibility column and is treated as public.
func ParseVisibility(s string) Visibility {
	switch s {
	case "", "public":
		return VisibilityPublic
	case "followers":
		return VisibilityFollowers
	case "private":
		return VisibilityPrivate
	default:
		return VisibilityUnknown
	}
}

// String returns the wire name of the visibility mode.
func (v Visibility) String() string {
	switch v {
	case VisibilityPublic:
		return "public"
	case VisibilityFollowers:
		return "followers"
	case VisibilityPrivate:
		return "private"
	default:
		return "unknown"
	}
}

// MarshalJSON encodes the visibility as its wire name.
func (v Visibility) MarshalJSON() ([]byte, error) {
	return json.Marshal(v.String())
}

// UnmarshalJSON decodes a wire name, rejecting values outside the closed set.
func (v *Visibility) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	parsed := ParseVisibility(s)
	if parsed == VisibilityUnknown {
		return fmt.Errorf("invalid visibility %q", s)
	}
	*v = parsed
	return nil
}

// CatchRecord is a logged catch. Owned by its creator; mutated and deleted
// only by the owner (moderation runs outside this service).
type CatchRecord struct {
	ID            string         `json:"id"`
	OwnerID       string         `json:"owner_id"`
	Species       string         `json:"species"`
	Visibility    Visibility     `json:"visibility"`
	HideExactSpot bool           `json:"hide_exact_spot"`
	Location      *string        `json:"location,omitempty"`
	WeightKg      *float64       `json:"weight_kg,omitempty"`
	Attributes    map[string]any `json:"attributes,omitempty"`

	CaughtAt  time.Time  `json:"caught_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
	DeletedAt *time.Time `json:"deleted_at,omitempty"`
}

// Clone returns a copy of the record whose pointer fields and attribute bag
// are independent of the original. Nested attribute values are shared; the
// bag itself is copied one level deep, which is what redaction needs.
func (c *CatchRecord) Clone() *CatchRecord {
	if c == nil {
		return nil
	}
	out := *c
	if c.Location != nil {
		loc := *c.Location
		out.Location = &loc
	}
	if c.WeightKg != nil {
		w := *c.WeightKg
		out.WeightKg = &w
	}
	if c.DeletedAt != nil {
		d := *c.DeletedAt
		out.DeletedAt = &d
	}
	if c.Attributes != nil {
		attrs := make(map[string]any, len(c.Attributes))
		for k, v := range c.Attributes {
			attrs[k] = v
		}
		out.Attributes = attrs
	}
	return &out
}
