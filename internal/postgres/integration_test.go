//go:build integration

package postgres

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"testing"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/db"
	"github.com/opencreel/creel/internal/follow"
	"github.com/opencreel/creel/internal/pagination"
)

// setupTestDB opens the test database, applies migrations, and truncates the
// tables touched by these tests.
func setupTestDB(t *testing.T) (*sql.DB, func()) {
	t.Helper()

	dbURL := os.Getenv("CREEL_TEST_DATABASE_URL")
	if dbURL == "" {
		t.Skip("CREEL_TEST_DATABASE_URL not set; skipping integration test")
	}

	if err := db.RunMigrations(dbURL); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	pool, err := db.Open(dbURL)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}
	if err := pool.Ping(); err != nil {
		t.Fatalf("failed to ping database: %v", err)
	}

	truncate := func() {
		_, _ = pool.Exec("TRUNCATE catches, follows, ratings, profiles, places")
	}
	truncate()

	return pool, func() {
		truncate()
		pool.Close()
	}
}

func seedCatchRow(t *testing.T, repo *CatchRepository, species string, caughtAt time.Time, weight *float64) *catch.CatchRecord {
	t.Helper()
	rec := &catch.CatchRecord{
		OwnerID:    "11111111-1111-1111-1111-111111111111",
		Species:    species,
		Visibility: catch.VisibilityPublic,
		WeightKg:   weight,
		CaughtAt:   caughtAt,
	}
	if err := repo.Create(context.Background(), rec); err != nil {
		t.Fatalf("Create(%s): %v", species, err)
	}
	return rec
}

func TestCatchRepositoryCRUD(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatchRepository(pool, nil)
	ctx := context.Background()

	rec := seedCatchRow(t, repo, "pike", time.Now().UTC(), nil)

	got, err := repo.GetByID(ctx, rec.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Species != "pike" {
		t.Errorf("species = %q, want pike", got.Species)
	}

	got.Species = "perch"
	if err := repo.Update(ctx, got); err != nil {
		t.Fatalf("Update: %v", err)
	}

	if err := repo.Delete(ctx, rec.ID); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	if _, err := repo.GetByID(ctx, rec.ID); !errors.Is(err, catch.ErrNotFound) {
		t.Errorf("GetByID after delete = %v, want ErrNotFound", err)
	}
	if err := repo.Update(ctx, got); !errors.Is(err, catch.ErrDeleted) {
		t.Errorf("Update after delete = %v, want ErrDeleted", err)
	}
}

func TestCatchRepositoryListNewestKeyset(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatchRepository(pool, nil)
	ctx := context.Background()

	base := time.Now().UTC().Truncate(time.Microsecond)
	for i := 0; i < 5; i++ {
		seedCatchRow(t, repo, "trout", base.Add(time.Duration(i)*time.Minute), nil)
	}

	d, err := pagination.BuildQuery(pagination.SortNewest, nil, 2)
	if err != nil {
		t.Fatalf("BuildQuery: %v", err)
	}
	var seen []string
	cur := (*pagination.Cursor)(nil)
	for {
		d.Cursor = cur
		rows, err := repo.List(ctx, catch.ListOptions{Descriptor: d})
		if err != nil {
			t.Fatalf("List: %v", err)
		}
		if len(rows) == 0 {
			break
		}
		for _, r := range rows {
			seen = append(seen, r.ID)
		}
		last := rows[len(rows)-1]
		cur = &pagination.Cursor{Rank: pagination.EncodeTimeRank(last.CaughtAt), ID: last.ID}
		if len(rows) < d.Limit {
			break
		}
	}

	if len(seen) != 5 {
		t.Fatalf("walked %d rows, want 5", len(seen))
	}
	unique := make(map[string]struct{}, len(seen))
	for _, id := range seen {
		unique[id] = struct{}{}
	}
	if len(unique) != 5 {
		t.Errorf("cursor walk repeated rows: %v", seen)
	}
}

func TestCatchRepositorySearchEscapesLike(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewCatchRepository(pool, nil)
	ctx := context.Background()

	seedCatchRow(t, repo, "100% carp", time.Now().UTC(), nil)
	seedCatchRow(t, repo, "carp", time.Now().UTC(), nil)

	rows, err := repo.Search(ctx, catch.SearchOptions{Query: "100%", Limit: 10})
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(rows) != 1 || rows[0].Species != "100% carp" {
		t.Errorf("escaped search matched %d rows, want the literal %% row only", len(rows))
	}
}

func TestFollowRepositoryRoundTrip(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	repo := NewFollowRepository(pool)
	ctx := context.Background()

	a := "11111111-1111-1111-1111-111111111111"
	b := "22222222-2222-2222-2222-222222222222"

	if err := repo.Follow(ctx, a, b); err != nil {
		t.Fatalf("Follow: %v", err)
	}
	if err := repo.Follow(ctx, a, b); err != nil {
		t.Fatalf("repeated Follow must be idempotent: %v", err)
	}
	if err := repo.Follow(ctx, a, a); !errors.Is(err, follow.ErrSelfFollow) {
		t.Errorf("self-follow = %v, want ErrSelfFollow", err)
	}

	ids, err := repo.FollowingIDs(ctx, a)
	if err != nil {
		t.Fatalf("FollowingIDs: %v", err)
	}
	if len(ids) != 1 || ids[0] != b {
		t.Errorf("FollowingIDs = %v, want [%s]", ids, b)
	}

	if err := repo.Unfollow(ctx, a, b); err != nil {
		t.Fatalf("Unfollow: %v", err)
	}
	if err := repo.Unfollow(ctx, a, b); !errors.Is(err, follow.ErrNotFound) {
		t.Errorf("second Unfollow = %v, want ErrNotFound", err)
	}
}

func TestRatingStoreAverages(t *testing.T) {
	pool, cleanup := setupTestDB(t)
	defer cleanup()

	catches := NewCatchRepository(pool, nil)
	ratings := NewRatingStore(pool)
	ctx := context.Background()

	rec := seedCatchRow(t, catches, "salmon", time.Now().UTC(), nil)

	raterA := "33333333-3333-3333-3333-333333333333"
	raterB := "44444444-4444-4444-4444-444444444444"
	if err := ratings.Rate(ctx, rec.ID, raterA, 5); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	if err := ratings.Rate(ctx, rec.ID, raterB, 3); err != nil {
		t.Fatalf("Rate: %v", err)
	}
	// Re-rating replaces, not appends.
	if err := ratings.Rate(ctx, rec.ID, raterB, 4); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	unrated := "55555555-5555-5555-5555-555555555555"
	avgs, err := ratings.AveragesFor(ctx, []string{rec.ID, unrated})
	if err != nil {
		t.Fatalf("AveragesFor: %v", err)
	}
	if got := avgs[rec.ID]; got != 4.5 {
		t.Errorf("average = %g, want 4.5", got)
	}
	if _, ok := avgs[unrated]; ok {
		t.Error("unrated id must be absent from the result")
	}
}
