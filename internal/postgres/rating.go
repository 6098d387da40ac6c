package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/lib/pq"

	"github.com/opencreel/creel/internal/tracing"
)

// RatingStore implements catch.RatingStore using PostgreSQL. One rating per
// (catch, rater) pair; re-rating replaces the previous stars.
type RatingStore struct {
	db *sql.DB
}

// NewRatingStore creates a new PostgreSQL rating store.
func NewRatingStore(db *sql.DB) *RatingStore {
	return &RatingStore{db: db}
}

// Rate records or replaces one rater's stars for a catch.
func (s *RatingStore) Rate(ctx context.Context, catchID, raterID string, stars int) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "ratings", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO ratings (catch_id, rater_id, stars)
		VALUES ($1, $2, $3)
		ON CONFLICT (catch_id, rater_id) DO UPDATE SET stars = EXCLUDED.stars
	`
	if _, err = s.db.ExecContext(ctx, query, catchID, raterID, stars); err != nil {
		return fmt.Errorf("failed to record rating: %w", err)
	}
	return nil
}

// AveragesFor returns the average rating per catch id. Catches with no
// ratings are absent from the map.
func (s *RatingStore) AveragesFor(ctx context.Context, catchIDs []string) (avgs map[string]float64, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "ratings", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	avgs = make(map[string]float64)
	if len(catchIDs) == 0 {
		return avgs, nil
	}

	query := `
		SELECT catch_id, AVG(stars)::float8
		FROM ratings
		WHERE catch_id = ANY($1)
		GROUP BY catch_id
	`
	rows, err := s.db.QueryContext(ctx, query, pq.Array(catchIDs))
	if err != nil {
		return nil, fmt.Errorf("failed to query ratings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var (
			id  string
			avg float64
		)
		if err := rows.Scan(&id, &avg); err != nil {
			return nil, fmt.Errorf("failed to scan rating: %w", err)
		}
		avgs[id] = avg
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read ratings: %w", err)
	}
	return avgs, nil
}
