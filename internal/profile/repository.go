// Package profile provides the angler profile model and repository used by
// the composite search.
package profile

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
)

// ErrNotFound is returned when no profile exists for an id.
var ErrNotFound = errors.New("profile not found")

// Profile is a public angler profile.
type Profile struct {
	ID          string    `json:"id"`
	Handle      string    `json:"handle"`
	DisplayName string    `json:"display_name"`
	Bio         string    `json:"bio,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository defines the store operations for profiles.
type Repository interface {
	// Create inserts a new profile, assigning an ID.
	Create(ctx context.Context, p *Profile) error

	// GetByID returns a profile by id, ErrNotFound otherwise.
	GetByID(ctx context.Context, id string) (*Profile, error)

	// Search returns profiles whose handle or display name contain the
	// query, ordered by handle for stable output, capped at limit.
	Search(ctx context.Context, query string, limit int) ([]*Profile, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu       sync.RWMutex
	profiles map[string]*Profile
}

// NewInMemoryRepository creates a new in-memory profile repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		profiles: make(map[string]*Profile),
	}
}

// Create inserts a new profile with a generated UUID.
func (r *InMemoryRepository) Create(_ context.Context, p *Profile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}
	p.CreatedAt = time.Now()
	cp := *p
	r.profiles[p.ID] = &cp
	return nil
}

// GetByID returns a profile by id.
func (r *InMemoryRepository) GetByID(_ context.Context, id string) (*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	p, ok := r.profiles[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *p
	return &cp, nil
}

// Search returns profiles whose handle or display name contain the query.
func (r *InMemoryRepository) Search(_ context.Context, query string, limit int) ([]*Profile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	q := strings.ToLower(query)
	if q == "" {
		return []*Profile{}, nil
	}

	var matches []*Profile
	for _, p := range r.profiles {
		if strings.Contains(strings.ToLower(p.Handle), q) ||
			strings.Contains(strings.ToLower(p.DisplayName), q) {
			matches = append(matches, p)
		}
	}

	sort.Slice(matches, func(i, j int) bool {
		return matches[i].Handle < matches[j].Handle
	})
	if limit > 0 && len(matches) > limit {
		matches = matches[:limit]
	}

	copies := make([]*Profile, len(matches))
	for i, p := range matches {
		cp := *p
		copies[i] = &cp
	}
	return copies, nil
}
