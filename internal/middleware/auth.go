package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/opencreel/creel/internal/auth"
	"github.com/opencreel/creel/internal/viewer"
)

// viewerKey is the context key for the viewer context.
type viewerKey struct{}

// FollowingSource supplies the viewer's following set. Implemented by the
// follow cache; refreshed on its own cadence, read-only here.
type FollowingSource interface {
	FollowingIDs(ctx context.Context, viewerID string) ([]string, error)
}

// SetViewer stores the viewer context in the request context.
func SetViewer(ctx context.Context, v viewer.Context) context.Context {
	return context.WithValue(ctx, viewerKey{}, v)
}

// GetViewer retrieves the viewer context. An absent value is a valid
// anonymous viewer.
func GetViewer(ctx context.Context) viewer.Context {
	if v, ok := ctx.Value(viewerKey{}).(viewer.Context); ok {
		return v
	}
	return viewer.Anonymous()
}

// GetViewerID returns the authenticated viewer's ID, empty for anonymous.
func GetViewerID(ctx context.Context) string {
	return GetViewer(ctx).ViewerID
}

// Authenticate resolves an optional bearer token into a viewer context.
// Requests without a token proceed as anonymous; an invalid or expired token
// is rejected rather than downgraded, so a client can distinguish "logged
// out" from "token broken". The following set is loaded through the follow
// cache; a cache or store failure degrades to an empty set, narrowing (never
// widening) what the viewer can see.
func Authenticate(jwtService *auth.JWTService, following FollowingSource) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			header := r.Header.Get("Authorization")
			if header == "" {
				next.ServeHTTP(w, r.WithContext(SetViewer(r.Context(), viewer.Anonymous())))
				return
			}

			token, ok := strings.CutPrefix(header, "Bearer ")
			if !ok || token == "" {
				ctx := SetErrorCode(r.Context(), "auth_failed")
				UpdateResponseContext(w, ctx)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			claims, err := jwtService.ValidateToken(token)
			if err != nil || claims.Type != auth.TokenTypeAccess {
				ctx := SetErrorCode(r.Context(), "auth_failed")
				UpdateResponseContext(w, ctx)
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}

			var followingIDs []string
			if following != nil {
				followingIDs, err = following.FollowingIDs(r.Context(), claims.Subject)
				if err != nil {
					followingIDs = nil
				}
			}

			v := viewer.For(claims.Subject, followingIDs)
			next.ServeHTTP(w, r.WithContext(SetViewer(r.Context(), v)))
		})
	}
}

// RequireAuth rejects anonymous requests. Place after Authenticate.
func RequireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if GetViewer(r.Context()).IsAnonymous() {
			ctx := SetErrorCode(r.Context(), "auth_failed")
			UpdateResponseContext(w, ctx)
			http.Error(w, "Unauthorized", http.StatusUnauthorized)
			return
		}
		next.ServeHTTP(w, r)
	})
}
