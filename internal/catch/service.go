package catch

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/opencreel/creel/internal/pagination"
	"github.com/opencreel/creel/internal/viewer"
)

// Page is one page of a catch view after access filtering and redaction.
type Page struct {
	Items []*CatchRecord

	// NextCursor is the opaque token for the next page, empty when the view
	// is exhausted.
	NextCursor string

	// HasMore is an approximation derived from the raw row count: a full
	// page implies more may exist, a short page is terminal. A full final
	// page therefore reports HasMore=true once and the next page comes back
	// empty.
	HasMore bool
}

// FeedRequest describes one page request against the catch views.
type FeedRequest struct {
	Sort   pagination.SortMode
	Cursor string
	Viewer viewer.Context

	// Species is an exact store-side filter.
	Species string

	// CustomSpecies is a free-text filter against the custom_species
	// attribute. The attribute lives inside the opaque bag, so the store
	// cannot express it; it is applied after the fetch and strictly narrows
	// the page, which can make a page shorter than requested.
	CustomSpecies string
}

// FeedService runs the read pipeline for catch views: build the page query,
// fetch raw rows, drop rows the viewer may not see, redact the remainder.
// Post-fetch narrowing never touches the cursor, which always advances from
// the last raw row so no record is skipped.
type FeedService struct {
	catches  Repository
	ratings  RatingStore
	pageSize int
}

// NewFeedService creates a feed service with a fixed page size.
func NewFeedService(catches Repository, ratings RatingStore, pageSize int) *FeedService {
	return &FeedService{
		catches:  catches,
		ratings:  ratings,
		pageSize: pageSize,
	}
}

// PageSize returns the fixed page size.
func (s *FeedService) PageSize() int {
	return s.pageSize
}

// Page returns one page of the requested view for the viewer.
func (s *FeedService) Page(ctx context.Context, req FeedRequest) (*Page, error) {
	cur, err := pagination.DecodeCursor(req.Cursor)
	if err != nil {
		return nil, err
	}
	desc, err := pagination.BuildQuery(req.Sort, cur, s.pageSize)
	if err != nil {
		return nil, err
	}

	rows, err := s.catches.List(ctx, ListOptions{
		Descriptor: desc,
		Species:    req.Species,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	if req.Sort == pagination.SortHighestRated {
		return s.ratedPage(ctx, rows, cur, req)
	}

	page := &Page{
		Items:   s.narrow(rows, req),
		HasMore: len(rows) == s.pageSize,
	}
	if page.HasMore {
		last := rows[len(rows)-1]
		page.NextCursor = pagination.Cursor{Rank: rankFor(req.Sort, last), ID: last.ID}.Encode()
	}
	return page, nil
}

// ratedPage orders a raw page by average rating aggregated from child
// rating rows. The aggregate is computed after the fetch, so the cursor for
// this mode is not globally stable: pages can repeat or skip records when
// ratings change between page loads. Known limitation of the mode.
func (s *FeedService) ratedPage(ctx context.Context, rows []*CatchRecord, cur *pagination.Cursor, req FeedRequest) (*Page, error) {
	ids := make([]string, len(rows))
	for i, rec := range rows {
		ids[i] = rec.ID
	}
	avgs, err := s.ratings.AveragesFor(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}

	type rated struct {
		rec   *CatchRecord
		score float64
	}
	scored := make([]rated, 0, len(rows))
	for _, rec := range rows {
		scored = append(scored, rated{rec: rec, score: avgs[rec.ID]})
	}
	sort.Slice(scored, func(i, j int) bool {
		if scored[i].score != scored[j].score {
			return scored[i].score > scored[j].score
		}
		return scored[i].rec.ID > scored[j].rec.ID
	})

	// Client-side cursor skip over the aggregated order.
	if cur != nil {
		curScore, err := pagination.DecodeFloatRank(cur.Rank)
		if err != nil {
			return nil, err
		}
		kept := scored[:0]
		for _, sc := range scored {
			if sc.score < curScore || (sc.score == curScore && sc.rec.ID < cur.ID) {
				kept = append(kept, sc)
			}
		}
		scored = kept
	}

	ordered := make([]*CatchRecord, len(scored))
	for i, sc := range scored {
		ordered[i] = sc.rec
	}

	page := &Page{
		Items:   s.narrow(ordered, req),
		HasMore: len(rows) == s.pageSize,
	}
	if page.HasMore && len(scored) > 0 {
		last := scored[len(scored)-1]
		page.NextCursor = pagination.Cursor{
			Rank: pagination.EncodeFloatRank(last.score),
			ID:   last.rec.ID,
		}.Encode()
	}
	return page, nil
}

// narrow applies the post-fetch stages: access filtering, the
// custom-species text filter, and redaction. Strictly narrowing.
func (s *FeedService) narrow(rows []*CatchRecord, req FeedRequest) []*CatchRecord {
	items := make([]*CatchRecord, 0, len(rows))
	q := strings.ToLower(req.CustomSpecies)
	for _, rec := range rows {
		if !CanView(rec, req.Viewer) {
			continue
		}
		if q != "" && !customSpeciesMatches(rec, q) {
			continue
		}
		items = append(items, RedactForViewer(rec, req.Viewer.ViewerID))
	}
	return items
}

// customSpeciesMatches reports whether the record's custom_species
// attribute contains the lowercased query.
func customSpeciesMatches(rec *CatchRecord, q string) bool {
	raw, ok := rec.Attributes[AttrCustomSpecies]
	if !ok {
		return false
	}
	name, ok := raw.(string)
	if !ok {
		return false
	}
	return strings.Contains(strings.ToLower(name), q)
}

// SearchCatches runs the catches leg of a composite search: substring match
// over the allow-listed fields, then the same access filter and redaction as
// the feed. The query must already be sanitized; empty queries are the
// caller's early-return case, not a match-everything.
func (s *FeedService) SearchCatches(ctx context.Context, query string, v viewer.Context, limit int) ([]*CatchRecord, error) {
	rows, err := s.catches.Search(ctx, SearchOptions{Query: query, Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrQueryFailed, err)
	}
	items := make([]*CatchRecord, 0, len(rows))
	for _, rec := range rows {
		if !CanView(rec, v) {
			continue
		}
		items = append(items, RedactForViewer(rec, v.ViewerID))
	}
	return items, nil
}

// rankFor encodes the cursor rank of a record for a stable sort mode.
func rankFor(mode pagination.SortMode, rec *CatchRecord) string {
	if mode == pagination.SortHeaviest {
		return pagination.EncodeHeaviestRank(rec.WeightKg, rec.CaughtAt)
	}
	return pagination.EncodeTimeRank(rec.CaughtAt)
}
