package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/opencreel/creel/internal/follow"
	"github.com/opencreel/creel/internal/middleware"
)

// FollowHandlers holds dependencies for follow edge endpoints.
type FollowHandlers struct {
	follows follow.Repository
	cache   *follow.Cache
}

// NewFollowHandlers creates a new FollowHandlers instance. cache may be nil
// when no Redis is configured.
func NewFollowHandlers(follows follow.Repository, cache *follow.Cache) *FollowHandlers {
	return &FollowHandlers{
		follows: follows,
		cache:   cache,
	}
}

// Follow handles PUT /follows/{id} - the viewer starts following the user.
// Idempotent; re-following an already-followed user succeeds.
func (h *FollowHandlers) Follow(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetViewerID(r.Context())
	targetID := r.PathValue("id")
	if targetID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing user id")
		return
	}

	if err := h.follows.Follow(r.Context(), viewerID, targetID); err != nil {
		if errors.Is(err, follow.ErrSelfFollow) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
			WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Cannot follow yourself")
			return
		}
		slog.ErrorContext(r.Context(), "failed to create follow", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to follow")
		return
	}

	h.invalidate(r, viewerID)
	w.WriteHeader(http.StatusNoContent)
}

// Unfollow handles DELETE /follows/{id} - the viewer stops following the user.
func (h *FollowHandlers) Unfollow(w http.ResponseWriter, r *http.Request) {
	viewerID := middleware.GetViewerID(r.Context())
	targetID := r.PathValue("id")
	if targetID == "" {
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeValidation)
		WriteError(w, ctx, http.StatusBadRequest, ErrCodeValidation, "Missing user id")
		return
	}

	if err := h.follows.Unfollow(r.Context(), viewerID, targetID); err != nil {
		if errors.Is(err, follow.ErrNotFound) {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "Follow edge not found")
			return
		}
		slog.ErrorContext(r.Context(), "failed to delete follow", "error", err, "target_id", targetID)
		ctx := middleware.SetErrorCode(r.Context(), ErrCodeInternal)
		WriteError(w, ctx, http.StatusInternalServerError, ErrCodeInternal, "Failed to unfollow")
		return
	}

	h.invalidate(r, viewerID)
	w.WriteHeader(http.StatusNoContent)
}

// invalidate drops the viewer's cached following set so visibility changes
// take effect on the next request rather than after the cache TTL.
func (h *FollowHandlers) invalidate(r *http.Request, viewerID string) {
	if h.cache == nil {
		return
	}
	h.cache.Invalidate(r.Context(), viewerID)
}
