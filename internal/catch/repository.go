package catch

import (
	"context"
	"errors"

	"github.com/opencreel/creel/internal/pagination"
)

// Common errors for catch operations.
var (
	// ErrNotFound is returned when no live record exists for an id.
	ErrNotFound = errors.New("catch not found")

	// ErrDeleted is returned when mutating a soft-deleted record.
	ErrDeleted = errors.New("catch has been deleted")

	// ErrQueryFailed wraps store-level query rejections.
	ErrQueryFailed = errors.New("catch query failed")
)

// ListOptions selects one raw page of catches. The repository applies the
// descriptor's ordering, cursor predicate and limit plus any store-side
// filters; it performs no access filtering and no redaction — those are the
// feed service's job, applied after the fetch.
type ListOptions struct {
	Descriptor pagination.Descriptor

	// Species, when non-empty, is an exact store-side filter.
	Species string

	// OwnerID, when non-empty, restricts the page to one owner's catches.
	OwnerID string
}

// SearchOptions selects catches whose allow-listed text fields contain the
// query. Query must already have passed search.SanitizeQuery; repositories
// only match, they do not clean.
type SearchOptions struct {
	Query string
	Limit int
}

// Repository defines the store operations for catch records.
type Repository interface {
	// Create inserts a new record, assigning ID and timestamps.
	Create(ctx context.Context, rec *CatchRecord) error

	// Update overwrites the mutable fields of an existing live record.
	Update(ctx context.Context, rec *CatchRecord) error

	// Delete soft-deletes a record.
	Delete(ctx context.Context, id string) error

	// GetByID returns a live record by id, ErrNotFound otherwise.
	GetByID(ctx context.Context, id string) (*CatchRecord, error)

	// List returns one raw page: soft-deleted rows excluded, descriptor
	// ordering and cursor predicate applied, at most Descriptor.Limit rows.
	List(ctx context.Context, opts ListOptions) ([]*CatchRecord, error)

	// Search returns live records whose species or location contain the
	// query, newest first, capped at opts.Limit.
	Search(ctx context.Context, opts SearchOptions) ([]*CatchRecord, error)
}

// RatingStore aggregates child rating rows for the highest_rated sort.
type RatingStore interface {
	// AveragesFor returns the average rating per catch id. Catches with no
	// ratings are absent from the map.
	AveragesFor(ctx context.Context, catchIDs []string) (map[string]float64, error)
}
