// Package pagination implements keyset (cursor) pagination for catch views.
//
// Cursors encode the (rank, id) pair of the last item on the previous page.
// The id tie-break always runs in the same direction as the primary rank key,
// so the next-page predicate is a single lexicographic comparison:
//
//	rank < c.rank OR (rank = c.rank AND id < c.id)   -- descending sorts
//
// Unlike offset paging, this never skips or duplicates rows across page
// boundaries when rows are inserted concurrently.
package pagination

import (
	"errors"
	"fmt"
)

// SortMode is the closed set of supported feed orderings.
type SortMode int

const (
	// SortNewest orders by caught_at descending.
	SortNewest SortMode = iota

	// SortHeaviest orders by weight descending, nulls last, with caught_at
	// and id as further tie-breaks.
	SortHeaviest

	// SortHighestRated orders by average rating aggregated from child rating
	// rows after the page is fetched. The aggregate is not a stable rank key:
	// pages can repeat or skip records when ratings change between page
	// loads. This is a known limitation of the mode, not a bug in the
	// paginator.
	SortHighestRated
)

// ErrUnknownSortMode is returned for sort strings outside the closed set.
var ErrUnknownSortMode = errors.New("unknown sort mode")

// ParseSortMode maps a wire string to a SortMode. Empty input selects
// SortNewest.
func ParseSortMode(s string) (SortMode, error) {
	switch s {
	case "", "newest":
		return SortNewest, nil
	case "heaviest":
		return SortHeaviest, nil
	case "highest_rated":
		return SortHighestRated, nil
	default:
		return SortNewest, fmt.Errorf("%w: %q", ErrUnknownSortMode, s)
	}
}

// String returns the wire name of the sort mode.
func (m SortMode) String() string {
	switch m {
	case SortNewest:
		return "newest"
	case SortHeaviest:
		return "heaviest"
	case SortHighestRated:
		return "highest_rated"
	default:
		return fmt.Sprintf("sortmode(%d)", int(m))
	}
}

// StableRank reports whether the mode's rank key is computed by the store
// and therefore safe for keyset pagination. SortHighestRated aggregates its
// rank client-side and is not stable.
func (m SortMode) StableRank() bool {
	return m != SortHighestRated
}
