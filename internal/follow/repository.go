// Package follow provides the follow-edge store and the cached following
// set used to gate followers-only visibility.
package follow

import (
	"context"
	"errors"
	"sync"
	"time"
)

// Common errors for follow operations.
var (
	// ErrNotFound is returned when unfollowing an edge that does not exist.
	ErrNotFound = errors.New("follow edge not found")

	// ErrSelfFollow is returned when a user tries to follow themselves.
	ErrSelfFollow = errors.New("cannot follow yourself")
)

// Edge is a directed follow relationship.
type Edge struct {
	FollowerID  string    `json:"follower_id"`
	FollowingID string    `json:"following_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// Repository defines the store operations for follow edges.
type Repository interface {
	// Follow creates the (follower, following) edge. Idempotent.
	Follow(ctx context.Context, followerID, followingID string) error

	// Unfollow removes the edge, ErrNotFound if it does not exist.
	Unfollow(ctx context.Context, followerID, followingID string) error

	// FollowingIDs returns every user the follower follows.
	FollowingIDs(ctx context.Context, followerID string) ([]string, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	edges map[string]map[string]time.Time // follower -> following -> since
}

// NewInMemoryRepository creates a new in-memory follow repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		edges: make(map[string]map[string]time.Time),
	}
}

// Follow creates the edge. Re-following keeps the original timestamp.
func (r *InMemoryRepository) Follow(_ context.Context, followerID, followingID string) error {
	if followerID == followingID {
		return ErrSelfFollow
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.edges[followerID]
	if !ok {
		set = make(map[string]time.Time)
		r.edges[followerID] = set
	}
	if _, exists := set[followingID]; !exists {
		set[followingID] = time.Now()
	}
	return nil
}

// Unfollow removes the edge.
func (r *InMemoryRepository) Unfollow(_ context.Context, followerID, followingID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	set, ok := r.edges[followerID]
	if !ok {
		return ErrNotFound
	}
	if _, exists := set[followingID]; !exists {
		return ErrNotFound
	}
	delete(set, followingID)
	return nil
}

// FollowingIDs returns every user the follower follows.
func (r *InMemoryRepository) FollowingIDs(_ context.Context, followerID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	set := r.edges[followerID]
	ids := make([]string, 0, len(set))
	for id := range set {
		ids = append(ids, id)
	}
	return ids, nil
}
