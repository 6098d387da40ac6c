package catch

import (
	"context"
	"sync"
)

// InMemoryRatingStore is an in-memory implementation of RatingStore.
// Thread-safe via RWMutex.
type InMemoryRatingStore struct {
	mu      sync.RWMutex
	ratings map[string][]int
}

// NewInMemoryRatingStore creates a new in-memory rating store.
func NewInMemoryRatingStore() *InMemoryRatingStore {
	return &InMemoryRatingStore{
		ratings: make(map[string][]int),
	}
}

// Add records one rating for a catch.
func (s *InMemoryRatingStore) Add(catchID string, stars int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ratings[catchID] = append(s.ratings[catchID], stars)
}

// Rate records one rater's stars for a catch. The in-memory store does not
// track raters, so repeat ratings append rather than replace.
func (s *InMemoryRatingStore) Rate(_ context.Context, catchID, _ string, stars int) error {
	s.Add(catchID, stars)
	return nil
}

// AveragesFor returns the average rating per catch id. Catches with no
// ratings are absent from the result.
func (s *InMemoryRatingStore) AveragesFor(_ context.Context, catchIDs []string) (map[string]float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make(map[string]float64)
	for _, id := range catchIDs {
		stars := s.ratings[id]
		if len(stars) == 0 {
			continue
		}
		sum := 0
		for _, r := range stars {
			sum += r
		}
		out[id] = float64(sum) / float64(len(stars))
	}
	return out, nil
}
