package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/middleware"
	"github.com/opencreel/creel/internal/pagination"
)

// FeedHandlers holds dependencies for the feed endpoint.
type FeedHandlers struct {
	feed *catch.FeedService
}

// NewFeedHandlers creates a new FeedHandlers instance.
func NewFeedHandlers(feed *catch.FeedService) *FeedHandlers {
	return &FeedHandlers{feed: feed}
}

// FeedResponse is one page of the catch feed.
type FeedResponse struct {
	Items      []*catch.CatchRecord `json:"items"`
	NextCursor string               `json:"next_cursor,omitempty"`
	HasMore    bool                 `json:"has_more"`
	Count      int                  `json:"count"`
}

// Feed handles GET /feed - one page of the catch feed for the viewer.
//
// Query parameters:
//
//	sort           newest (default), heaviest, or highest_rated
//	cursor         opaque token from a previous page
//	species        exact species filter
//	custom_species free-text filter against the custom species attribute
func (h *FeedHandlers) Feed(w http.ResponseWriter, r *http.Request) {
	query := r.URL.Query()

	sortParam := query.Get("sort")
	mode, err := pagination.ParseSortMode(sortParam)
	if err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation,
			"sort must be one of: newest, heaviest, highest_rated")
		return
	}

	page, err := h.feed.Page(r.Context(), catch.FeedRequest{
		Sort:          mode,
		Cursor:        query.Get("cursor"),
		Viewer:        middleware.GetViewer(r.Context()),
		Species:       query.Get("species"),
		CustomSpecies: query.Get("custom_species"),
	})
	if err != nil {
		if errors.Is(err, pagination.ErrInvalidCursor) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid cursor")
			return
		}
		slog.ErrorContext(r.Context(), "failed to load feed page", "error", err, "sort", sortParam)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load feed")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, FeedResponse{
		Items:      page.Items,
		NextCursor: page.NextCursor,
		HasMore:    page.HasMore,
		Count:      len(page.Items),
	})
}
