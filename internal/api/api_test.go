package api

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/follow"
	"github.com/opencreel/creel/internal/middleware"
	"github.com/opencreel/creel/internal/place"
	"github.com/opencreel/creel/internal/profile"
	"github.com/opencreel/creel/internal/search"
	"github.com/opencreel/creel/internal/viewer"
)

// testEnv wires a full in-memory API stack for handler tests.
type testEnv struct {
	catches  *catch.InMemoryRepository
	ratings  *catch.InMemoryRatingStore
	follows  *follow.InMemoryRepository
	profiles *profile.InMemoryRepository
	places   *place.InMemoryRepository
	mux      *http.ServeMux
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	env := &testEnv{
		catches:  catch.NewInMemoryRepository(),
		ratings:  catch.NewInMemoryRatingStore(),
		follows:  follow.NewInMemoryRepository(),
		profiles: profile.NewInMemoryRepository(),
		places:   place.NewInMemoryRepository(),
	}

	feed := catch.NewFeedService(env.catches, env.ratings, 20)
	composite := search.NewComposite(feed, env.profiles, env.places, 25, nil)

	env.mux = NewRouter(RouterConfig{
		Feed:    NewFeedHandlers(feed),
		Catches: NewCatchHandlers(env.catches, env.ratings),
		Search:  NewSearchHandlers(composite),
		Follows: NewFollowHandlers(env.follows, follow.NewCache(nil, env.follows, 0, nil)),
		Health:  NewHealthHandlers(HealthHandlersConfig{}),
	})
	return env
}

// asViewer attaches an authenticated viewer to the request context, the way
// the auth middleware would.
func asViewer(r *http.Request, viewerID string, following ...string) *http.Request {
	v := viewer.For(viewerID, following)
	return r.WithContext(middleware.SetViewer(r.Context(), v))
}

func (env *testEnv) seedCatch(t *testing.T, owner, species string, vis catch.Visibility) *catch.CatchRecord {
	t.Helper()
	rec := &catch.CatchRecord{
		OwnerID:    owner,
		Species:    species,
		Visibility: vis,
		CaughtAt:   time.Now().UTC(),
	}
	if err := env.catches.Create(context.Background(), rec); err != nil {
		t.Fatalf("seed catch: %v", err)
	}
	return rec
}

func (env *testEnv) do(req *http.Request) *httptest.ResponseRecorder {
	rec := httptest.NewRecorder()
	env.mux.ServeHTTP(rec, req)
	return rec
}
