package catch

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/opencreel/creel/internal/pagination"
)

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex. Used for testing and development.
type InMemoryRepository struct {
	mu      sync.RWMutex
	catches map[string]*CatchRecord
}

// NewInMemoryRepository creates a new in-memory catch repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		catches: make(map[string]*CatchRecord),
	}
}

// Create inserts a new record with a generated UUID.
func (r *InMemoryRepository) Create(_ context.Context, rec *CatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := time.Now()
	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	if rec.CaughtAt.IsZero() {
		rec.CaughtAt = now
	}
	rec.CreatedAt = now
	rec.UpdatedAt = now

	r.catches[rec.ID] = rec.Clone()
	return nil
}

// Update overwrites the mutable fields of an existing live record.
func (r *InMemoryRepository) Update(_ context.Context, rec *CatchRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, ok := r.catches[rec.ID]
	if !ok {
		return ErrNotFound
	}
	if existing.DeletedAt != nil {
		return ErrDeleted
	}

	updated := rec.Clone()
	updated.OwnerID = existing.OwnerID
	updated.CreatedAt = existing.CreatedAt
	updated.UpdatedAt = time.Now()
	r.catches[rec.ID] = updated
	return nil
}

// Delete soft-deletes a record. Deleting twice returns ErrNotFound.
func (r *InMemoryRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.catches[id]
	if !ok || rec.DeletedAt != nil {
		return ErrNotFound
	}
	now := time.Now()
	rec.DeletedAt = &now
	return nil
}

// GetByID returns a live record by id.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*CatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.catches[id]
	if !ok || rec.DeletedAt != nil {
		return nil, ErrNotFound
	}
	return rec.Clone(), nil
}

// List returns one raw page per the descriptor. No access filtering here;
// the feed service narrows the page after the fetch.
func (r *InMemoryRepository) List(_ context.Context, opts ListOptions) ([]*CatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var candidates []*CatchRecord
	for _, rec := range r.catches {
		if rec.DeletedAt != nil {
			continue
		}
		if opts.Species != "" && rec.Species != opts.Species {
			continue
		}
		if opts.OwnerID != "" && rec.OwnerID != opts.OwnerID {
			continue
		}
		if !afterCursor(rec, opts.Descriptor) {
			continue
		}
		candidates = append(candidates, rec)
	}

	sortForMode(candidates, opts.Descriptor.Mode)

	limit := opts.Descriptor.Limit
	if limit > 0 && len(candidates) > limit {
		candidates = candidates[:limit]
	}

	copies := make([]*CatchRecord, len(candidates))
	for i, rec := range candidates {
		copies[i] = rec.Clone()
	}
	return copies, nil
}

// Search returns live records whose species or location contain the query,
// newest first. Case-insensitive substring match, mirroring the store-side
// ILIKE filter of the postgres implementation.
func (r *InMemoryRepository) Search(_ context.Context, opts SearchOptions) ([]*CatchRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(opts.Query)
	if q == "" {
		return []*CatchRecord{}, nil
	}

	var matches []*CatchRecord
	for _, rec := range r.catches {
		if rec.DeletedAt != nil {
			continue
		}
		if strings.Contains(strings.ToLower(rec.Species), q) ||
			(rec.Location != nil && strings.Contains(strings.ToLower(*rec.Location), q)) {
			matches = append(matches, rec)
		}
	}

	sortForMode(matches, pagination.SortNewest)

	if opts.Limit > 0 && len(matches) > opts.Limit {
		matches = matches[:opts.Limit]
	}

	copies := make([]*CatchRecord, len(matches))
	for i, rec := range matches {
		copies[i] = rec.Clone()
	}
	return copies, nil
}

// afterCursor reports whether the record sorts strictly after the
// descriptor's cursor position. Records at or before the cursor were
// returned on earlier pages.
func afterCursor(rec *CatchRecord, d pagination.Descriptor) bool {
	if d.Cursor == nil || !d.Mode.StableRank() {
		return true
	}
	switch d.Mode {
	case pagination.SortNewest:
		t, err := pagination.DecodeTimeRank(d.Cursor.Rank)
		if err != nil {
			return false
		}
		if rec.CaughtAt.Before(t) {
			return true
		}
		return rec.CaughtAt.Equal(t) && rec.ID < d.Cursor.ID
	case pagination.SortHeaviest:
		cw, ct, err := pagination.DecodeHeaviestRank(d.Cursor.Rank)
		if err != nil {
			return false
		}
		if cw != nil {
			if rec.WeightKg == nil {
				// Null weights sort after every non-null cursor.
				return true
			}
			if *rec.WeightKg < *cw {
				return true
			}
			if *rec.WeightKg > *cw {
				return false
			}
		} else {
			if rec.WeightKg != nil {
				return false
			}
		}
		if rec.CaughtAt.Before(ct) {
			return true
		}
		return rec.CaughtAt.Equal(ct) && rec.ID < d.Cursor.ID
	default:
		return true
	}
}

// sortForMode sorts records for the given mode. The id tie-break runs in the
// same direction as the primary key so the order is total.
func sortForMode(recs []*CatchRecord, mode pagination.SortMode) {
	switch mode {
	case pagination.SortHeaviest:
		sort.Slice(recs, func(i, j int) bool {
			a, b := recs[i], recs[j]
			switch {
			case a.WeightKg == nil && b.WeightKg != nil:
				return false
			case a.WeightKg != nil && b.WeightKg == nil:
				return true
			case a.WeightKg != nil && b.WeightKg != nil && *a.WeightKg != *b.WeightKg:
				return *a.WeightKg > *b.WeightKg
			}
			if !a.CaughtAt.Equal(b.CaughtAt) {
				return a.CaughtAt.After(b.CaughtAt)
			}
			return a.ID > b.ID
		})
	default:
		// SortNewest; also the raw fetch order for SortHighestRated, whose
		// score ordering is applied by the feed service after aggregation.
		sort.Slice(recs, func(i, j int) bool {
			a, b := recs[i], recs[j]
			if !a.CaughtAt.Equal(b.CaughtAt) {
				return a.CaughtAt.After(b.CaughtAt)
			}
			return a.ID > b.ID
		})
	}
}
