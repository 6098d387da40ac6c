package pagination

import (
	"fmt"
	"strings"
	"time"
)

// OrderKey is one column of a view's ORDER BY clause.
type OrderKey struct {
	Column    string
	Desc      bool
	NullsLast bool
}

// Descriptor describes the ordered, cursor-filtered query for one page.
// It is built once per request and handed to a repository, which renders it
// either into SQL (postgres) or into in-memory comparisons.
type Descriptor struct {
	Mode   SortMode
	Order  []OrderKey
	Limit  int
	Cursor *Cursor
}

// BuildQuery builds the page descriptor for the given sort mode. The id
// column is always appended as a final strict tie-break in the same
// direction as the primary key, so the ordering is total even when many
// records share a rank value.
func BuildQuery(mode SortMode, cur *Cursor, limit int) (Descriptor, error) {
	d := Descriptor{Mode: mode, Limit: limit, Cursor: cur}
	switch mode {
	case SortNewest:
		d.Order = []OrderKey{
			{Column: "caught_at", Desc: true},
			{Column: "id", Desc: true},
		}
	case SortHeaviest:
		d.Order = []OrderKey{
			{Column: "weight_kg", Desc: true, NullsLast: true},
			{Column: "caught_at", Desc: true},
			{Column: "id", Desc: true},
		}
	case SortHighestRated:
		// Rank is aggregated after fetch; the store orders by recency and the
		// service re-sorts the page by score. See SortHighestRated.
		d.Order = []OrderKey{
			{Column: "caught_at", Desc: true},
			{Column: "id", Desc: true},
		}
	default:
		return Descriptor{}, fmt.Errorf("%w: %d", ErrUnknownSortMode, int(mode))
	}
	return d, nil
}

// OrderBySQL renders the ORDER BY clause body for the descriptor.
func (d Descriptor) OrderBySQL() string {
	parts := make([]string, 0, len(d.Order))
	for _, k := range d.Order {
		s := k.Column
		if k.Desc {
			s += " DESC"
		} else {
			s += " ASC"
		}
		if k.NullsLast {
			s += " NULLS LAST"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, ", ")
}

// KeysetSQL renders the cursor filter predicate for the descriptor, with
// placeholders numbered from startArg. Returns an empty clause when there is
// no cursor or when the mode's rank is not store-computed (SortHighestRated
// pages are cursor-filtered client-side after aggregation).
func (d Descriptor) KeysetSQL(startArg int) (string, []any, error) {
	if d.Cursor == nil || !d.Mode.StableRank() {
		return "", nil, nil
	}
	switch d.Mode {
	case SortNewest:
		t, err := DecodeTimeRank(d.Cursor.Rank)
		if err != nil {
			return "", nil, err
		}
		clause := fmt.Sprintf("(caught_at < $%d OR (caught_at = $%d AND id < $%d))",
			startArg, startArg, startArg+1)
		return clause, []any{t, d.Cursor.ID}, nil
	case SortHeaviest:
		weight, caughtAt, err := DecodeHeaviestRank(d.Cursor.Rank)
		if err != nil {
			return "", nil, err
		}
		if weight == nil {
			// Cursor sits inside the null-weight tail.
			clause := fmt.Sprintf("(weight_kg IS NULL AND (caught_at < $%d OR (caught_at = $%d AND id < $%d)))",
				startArg, startArg, startArg+1)
			return clause, []any{caughtAt, d.Cursor.ID}, nil
		}
		clause := fmt.Sprintf(
			"(weight_kg < $%d OR (weight_kg = $%d AND (caught_at < $%d OR (caught_at = $%d AND id < $%d))) OR weight_kg IS NULL)",
			startArg, startArg, startArg+1, startArg+1, startArg+2)
		return clause, []any{*weight, caughtAt, d.Cursor.ID}, nil
	default:
		return "", nil, nil
	}
}

// heaviestSep joins the weight and caught_at components of a heaviest rank.
const heaviestSep = ","

// EncodeHeaviestRank encodes the composite rank for the heaviest sort:
// weight (empty for NULL) plus the caught_at tie-break.
func EncodeHeaviestRank(weight *float64, caughtAt time.Time) string {
	w := ""
	if weight != nil {
		w = EncodeFloatRank(*weight)
	}
	return w + heaviestSep + EncodeTimeRank(caughtAt)
}

// DecodeHeaviestRank parses a rank produced by EncodeHeaviestRank.
// A nil weight means the cursor row had no recorded weight.
func DecodeHeaviestRank(rank string) (*float64, time.Time, error) {
	wPart, tPart, ok := strings.Cut(rank, heaviestSep)
	if !ok {
		return nil, time.Time{}, fmt.Errorf("%w: bad heaviest rank %q", ErrInvalidCursor, rank)
	}
	caughtAt, err := DecodeTimeRank(tPart)
	if err != nil {
		return nil, time.Time{}, err
	}
	if wPart == "" {
		return nil, caughtAt, nil
	}
	w, err := DecodeFloatRank(wPart)
	if err != nil {
		return nil, time.Time{}, err
	}
	return &w, caughtAt, nil
}
