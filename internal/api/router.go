package api

import (
	"log/slog"
	"net/http"

	"github.com/opencreel/creel/internal/middleware"
)

// RouterConfig collects the handler groups mounted by NewRouter.
type RouterConfig struct {
	Feed    *FeedHandlers
	Catches *CatchHandlers
	Search  *SearchHandlers
	Follows *FollowHandlers
	Health  *HealthHandlers

	// MetricsHandler serves GET /metrics (usually promhttp). Optional.
	MetricsHandler http.Handler
}

// NewRouter mounts all API routes on a ServeMux. Write routes require an
// authenticated viewer; read routes accept anonymous viewers, whose access
// the feed and search pipelines narrow to public records.
func NewRouter(cfg RouterConfig) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", cfg.Health.Health)
	mux.HandleFunc("GET /ready", cfg.Health.Ready)
	if cfg.MetricsHandler != nil {
		mux.Handle("GET /metrics", cfg.MetricsHandler)
	}

	mux.HandleFunc("GET /feed", cfg.Feed.Feed)
	mux.HandleFunc("GET /search", cfg.Search.Search)

	mux.HandleFunc("POST /catches", requireAuth(cfg.Catches.Create))
	mux.HandleFunc("GET /catches/{id}", cfg.Catches.Get)
	mux.HandleFunc("PUT /catches/{id}", requireAuth(cfg.Catches.Update))
	mux.HandleFunc("DELETE /catches/{id}", requireAuth(cfg.Catches.Delete))
	mux.HandleFunc("POST /catches/{id}/ratings", requireAuth(cfg.Catches.Rate))

	mux.HandleFunc("PUT /follows/{id}", requireAuth(cfg.Follows.Follow))
	mux.HandleFunc("DELETE /follows/{id}", requireAuth(cfg.Follows.Unfollow))

	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/" {
			ctx := middleware.SetErrorCode(r.Context(), ErrCodeNotFound)
			WriteError(w, ctx, http.StatusNotFound, ErrCodeNotFound, "The requested resource was not found")
			return
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte(`{"service":"creel-api","version":"0.0.1"}`)); err != nil {
			slog.Error("failed to write response", "error", err)
		}
	})

	return mux
}

// requireAuth adapts middleware.RequireAuth to a HandlerFunc.
func requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return middleware.RequireAuth(next).ServeHTTP
}
