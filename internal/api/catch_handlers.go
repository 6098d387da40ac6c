package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/middleware"
)

// RatingRecorder records one viewer's star rating for a catch.
type RatingRecorder interface {
	Rate(ctx context.Context, catchID, raterID string, stars int) error
}

// CatchHandlers holds dependencies for catch CRUD and rating endpoints.
type CatchHandlers struct {
	catches catch.Repository
	ratings RatingRecorder
}

// NewCatchHandlers creates a new CatchHandlers instance.
func NewCatchHandlers(catches catch.Repository, ratings RatingRecorder) *CatchHandlers {
	return &CatchHandlers{
		catches: catches,
		ratings: ratings,
	}
}

// catchRequest is the write payload for create and update. Visibility
// defaults to public when omitted; unknown visibility strings are rejected
// at decode time.
type catchRequest struct {
	Species       string           `json:"species"`
	Visibility    catch.Visibility `json:"visibility"`
	HideExactSpot bool             `json:"hide_exact_spot"`
	Location      *string          `json:"location,omitempty"`
	WeightKg      *float64         `json:"weight_kg,omitempty"`
	Attributes    map[string]any   `json:"attributes,omitempty"`
	CaughtAt      time.Time        `json:"caught_at"`
}

func (req *catchRequest) validate() string {
	if req.Species == "" {
		return "species is required"
	}
	if req.WeightKg != nil && *req.WeightKg < 0 {
		return "weight_kg must not be negative"
	}
	return ""
}

// Create handles POST /catches - logs a new catch owned by the viewer.
func (h *CatchHandlers) Create(w http.ResponseWriter, r *http.Request) {
	var req catchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	if req.CaughtAt.IsZero() {
		req.CaughtAt = time.Now().UTC()
	}

	rec := &catch.CatchRecord{
		OwnerID:       middleware.GetViewerID(r.Context()),
		Species:       req.Species,
		Visibility:    req.Visibility,
		HideExactSpot: req.HideExactSpot,
		Location:      req.Location,
		WeightKg:      req.WeightKg,
		Attributes:    req.Attributes,
		CaughtAt:      req.CaughtAt,
	}
	if err := h.catches.Create(r.Context(), rec); err != nil {
		slog.ErrorContext(r.Context(), "failed to create catch", "error", err)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to create catch")
		return
	}

	WriteJSON(w, r.Context(), http.StatusCreated, rec)
}

// Get handles GET /catches/{id} - one catch, redacted for the viewer.
// Records the viewer may not see report not found rather than forbidden, so
// private catches do not leak their existence.
func (h *CatchHandlers) Get(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.viewableCatch(w, r)
	if !ok {
		return
	}

	v := middleware.GetViewer(r.Context())
	WriteJSON(w, r.Context(), http.StatusOK, catch.RedactForViewer(rec, v.ViewerID))
}

// Update handles PUT /catches/{id} - owner-only full update of the mutable fields.
func (h *CatchHandlers) Update(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ownedCatch(w, r)
	if !ok {
		return
	}

	var req catchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, msg)
		return
	}

	rec.Species = req.Species
	rec.Visibility = req.Visibility
	rec.HideExactSpot = req.HideExactSpot
	rec.Location = req.Location
	rec.WeightKg = req.WeightKg
	rec.Attributes = req.Attributes
	if !req.CaughtAt.IsZero() {
		rec.CaughtAt = req.CaughtAt
	}

	if err := h.catches.Update(r.Context(), rec); err != nil {
		if errors.Is(err, catch.ErrNotFound) || errors.Is(err, catch.ErrDeleted) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Catch not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to update catch", "error", err, "catch_id", rec.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to update catch")
		return
	}

	WriteJSON(w, r.Context(), http.StatusOK, rec)
}

// Delete handles DELETE /catches/{id} - owner-only soft delete.
func (h *CatchHandlers) Delete(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.ownedCatch(w, r)
	if !ok {
		return
	}

	if err := h.catches.Delete(r.Context(), rec.ID); err != nil {
		if errors.Is(err, catch.ErrNotFound) || errors.Is(err, catch.ErrDeleted) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Catch not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete catch", "error", err, "catch_id", rec.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to delete catch")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ratingRequest is the payload for POST /catches/{id}/ratings.
type ratingRequest struct {
	Stars int `json:"stars"`
}

// Rate handles POST /catches/{id}/ratings - records the viewer's rating.
func (h *CatchHandlers) Rate(w http.ResponseWriter, r *http.Request) {
	rec, ok := h.viewableCatch(w, r)
	if !ok {
		return
	}

	var req ratingRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Invalid request body")
		return
	}
	if req.Stars < 1 || req.Stars > 5 {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "stars must be between 1 and 5")
		return
	}

	raterID := middleware.GetViewerID(r.Context())
	if err := h.ratings.Rate(r.Context(), rec.ID, raterID, req.Stars); err != nil {
		slog.ErrorContext(r.Context(), "failed to record rating", "error", err, "catch_id", rec.ID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to record rating")
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// viewableCatch loads the catch from the path and enforces the visibility
// policy. Writes the error response and returns ok=false on failure.
func (h *CatchHandlers) viewableCatch(w http.ResponseWriter, r *http.Request) (*catch.CatchRecord, bool) {
	rec, ok := h.loadCatch(w, r)
	if !ok {
		return nil, false
	}
	if !catch.CanView(rec, middleware.GetViewer(r.Context())) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
		WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Catch not found")
		return nil, false
	}
	return rec, true
}

// ownedCatch loads the catch from the path and requires the viewer to own
// it. The visibility policy runs first, so a catch the viewer may not see
// reports not found on the write paths exactly as it does on reads; 403 is
// reserved for viewable catches owned by someone else.
func (h *CatchHandlers) ownedCatch(w http.ResponseWriter, r *http.Request) (*catch.CatchRecord, bool) {
	rec, ok := h.viewableCatch(w, r)
	if !ok {
		return nil, false
	}
	if rec.OwnerID != middleware.GetViewerID(r.Context()) {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeForbidden)
		WriteError(w, ctx, http.StatusForbidden, ErrCodeForbidden, "Only the owner may modify a catch")
		return nil, false
	}
	return rec, true
}

func (h *CatchHandlers) loadCatch(w http.ResponseWriter, r *http.Request) (*catch.CatchRecord, bool) {
	id := r.PathValue("id")
	if id == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing catch id")
		return nil, false
	}

	rec, err := h.catches.GetByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, catch.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Catch not found")
			return nil, false
		}
		slog.ErrorContext(r.Context(), "failed to load catch", "error", err, "catch_id", id)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to load catch")
		return nil, false
	}
	return rec, true
}
