package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/middleware"
	"github.com/opencreel/creel/internal/place"
	"github.com/opencreel/creel/internal/profile"
	"github.com/opencreel/creel/internal/search"
)

// SearchHandlers holds dependencies for the composite search endpoint.
type SearchHandlers struct {
	composite *search.Composite
}

// NewSearchHandlers creates a new SearchHandlers instance.
func NewSearchHandlers(composite *search.Composite) *SearchHandlers {
	return &SearchHandlers{composite: composite}
}

// SearchSourceError reports one failed sub-query of a composite search.
// The concrete error stays in the server log; the client only learns which
// source is missing.
type SearchSourceError struct {
	Source string `json:"source"`
	Error  string `json:"error"`
}

// SearchResponse is the combined result of a composite search. A source that
// failed contributes an empty list plus an entry in Errors; the request as a
// whole still succeeds.
type SearchResponse struct {
	Catches  []*catch.CatchRecord `json:"catches"`
	Profiles []*profile.Profile   `json:"profiles"`
	Places   []*place.Place       `json:"places"`
	Errors   []SearchSourceError  `json:"errors,omitempty"`
}

// Search handles GET /search - sanitized composite search over catches,
// profiles, and places. A blank query is rejected; a query that sanitizes
// to nothing returns an empty result without consulting any source.
func (h *SearchHandlers) Search(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")

	result, err := h.composite.Search(r.Context(), raw, middleware.GetViewer(r.Context()))
	if err != nil {
		if errors.Is(err, search.ErrEmptyQuery) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Query parameter 'q' is required")
			return
		}
		slog.ErrorContext(r.Context(), "composite search failed", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to search")
		return
	}

	resp := SearchResponse{
		Catches:  result.Catches,
		Profiles: result.Profiles,
		Places:   result.Places,
	}
	for _, srcErr := range result.Errors {
		resp.Errors = append(resp.Errors, SearchSourceError{
			Source: srcErr.Source,
			Error:  "source unavailable",
		})
	}

	WriteJSON(w, r.Context(), http.StatusOK, resp)
}
