// Package place provides the fishing place model and repository used by the
// composite search.
package place

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no place exists for an id.
var ErrNotFound = errors.New("place not found")

// Place is a named fishing spot or water.
type Place struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Region    string `json:"region,omitempty"`
	WaterType string `json:"water_type,omitempty"`
}

// Repository defines the store operations for places.
type Repository interface {
	// Create inserts a new place, assigning an ID.
	Create(ctx context.Context, p *Place) error

	// GetByID returns a place by id, ErrNotFound otherwise.
	GetByID(ctx context.Context, id string) (*Place, error)

	// Search returns places whose name or region contain the query, ordered
	// by name for stable output, capped at limit.
	Search(ctx context.Context, query string, limit int) ([]*Place, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	places map[string]*Place
}

// NewInMemoryRepository creates a new in-memory place repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		places: make(map[string]*Place),
	}
}

// Create inserts a new place with a generated UUID.
func (r *InMemoryRepository) Create(_ context.Context, p *Place) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	cp := *p
	r.places[p.ID] = &cp
	return nil
}

// GetByID returns a place by id.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.places[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Search returns places whose name or region contain the query.
func (r *InMemoryRepository) Search(_ context.Context, query string, limit int) ([]*Place, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	if q == "" {
		return []*Place{}, nil
	}

	var matches []*Place
	for _, p := range r.places {
		if strings.Contains(strings.ToLower(p.Name), q) ||
			strings.Contains(strings.ToLower(p.Region), q) {
			matches = append(matches, p)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Name < matches[j].Name
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	copies := make([]*Place, len(matches))
	for i, p := range matches {
		cp := *p
		copies[i] = &cp
	}
	return copies, nil
}
