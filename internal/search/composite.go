package search

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/place"
	"github.com/opencreel/creel/internal/profile"
	"github.com/opencreel/creel/internal/viewer"
)

// ErrEmptyQuery rejects a blank search query. Input that is non-blank but
// sanitizes to nothing is not an error: it yields an empty result without
// consulting any source.
var ErrEmptyQuery = errors.New("search query is empty")

// Source names for per-source errors in a composite result.
const (
	SourceCatches  = "catches"
	SourceProfiles = "profiles"
	SourcePlaces   = "places"
)

// SourceError records the failure of one sub-query of a composite search.
type SourceError struct {
	Source string `json:"source"`
	Err    error  `json:"-"`
}

// Error implements error.
func (e SourceError) Error() string {
	return e.Source + ": " + e.Err.Error()
}

// Result is the outcome of a composite search. Sources that failed are
// absent from the data fields and listed in Errors; the composite never
// fails wholesale because one sub-query errored.
type Result struct {
	Catches  []*catch.CatchRecord `json:"catches"`
	Profiles []*profile.Profile   `json:"profiles"`
	Places   []*place.Place       `json:"places"`
	Errors   []SourceError        `json:"-"`
}

// CatchSearcher is the catches leg of the composite search.
type CatchSearcher interface {
	SearchCatches(ctx context.Context, query string, v viewer.Context, limit int) ([]*catch.CatchRecord, error)
}

// Composite fans a sanitized query out to all sources, isolating each
// source's failure.
type Composite struct {
	catches  CatchSearcher
	profiles profile.Repository
	places   place.Repository
	limit    int
	logger   *slog.Logger
}

// NewComposite creates a composite searcher with a per-source result limit.
func NewComposite(catches CatchSearcher, profiles profile.Repository, places place.Repository, limit int, logger *slog.Logger) *Composite {
	if logger == nil {
		logger = slog.Default()
	}
	return &Composite{
		catches:  catches,
		profiles: profiles,
		places:   places,
		limit:    limit,
		logger:   logger,
	}
}

// Search sanitizes the raw query and runs the three sub-queries
// concurrently. A blank query is rejected with ErrEmptyQuery; a query that
// sanitizes to nothing early-returns an empty result. In neither case is a
// source consulted, and emptiness is never widened into match-everything.
func (c *Composite) Search(ctx context.Context, raw string, v viewer.Context) (*Result, error) {
	if strings.TrimSpace(raw) == "" {
		return nil, ErrEmptyQuery
	}

	result := &Result{
		Catches:  []*catch.CatchRecord{},
		Profiles: []*profile.Profile{},
		Places:   []*place.Place{},
	}

	cleaned := SanitizeQuery(raw)
	if cleaned == "" {
		return result, nil
	}

	var mu sync.Mutex
	fail := func(source string, err error) {
		c.logger.WarnContext(ctx, "composite search source failed",
			slog.String("source", source),
			slog.String("error", err.Error()))
		mu.Lock()
		result.Errors = append(result.Errors, SourceError{Source: source, Err: err})
		mu.Unlock()
	}

	var wg sync.WaitGroup
	wg.Add(3)

	go func() {
		defer wg.Done()
		items, err := c.catches.SearchCatches(ctx, cleaned, v, c.limit)
		if err != nil {
			fail(SourceCatches, err)
			return
		}
		mu.Lock()
		result.Catches = items
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		items, err := c.profiles.Search(ctx, cleaned, c.limit)
		if err != nil {
			fail(SourceProfiles, err)
			return
		}
		mu.Lock()
		result.Profiles = items
		mu.Unlock()
	}()

	go func() {
		defer wg.Done()
		items, err := c.places.Search(ctx, cleaned, c.limit)
		if err != nil {
			fail(SourcePlaces, err)
			return
		}
		mu.Lock()
		result.Places = items
		mu.Unlock()
	}()

	wg.Wait()
	return result, nil
}
