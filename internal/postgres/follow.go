package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/opencreel/creel/internal/follow"
	"github.com/opencreel/creel/internal/tracing"
)

// FollowRepository implements follow.Repository using PostgreSQL.
type FollowRepository struct {
	db *sql.DB
}

// NewFollowRepository creates a new PostgreSQL follow repository.
func NewFollowRepository(db *sql.DB) *FollowRepository {
	return &FollowRepository{db: db}
}

// Follow creates the (follower, following) edge. Idempotent.
func (r *FollowRepository) Follow(ctx context.Context, followerID, followingID string) (err error) {
	if followerID == followingID {
		return follow.ErrSelfFollow
	}

	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	query := `
		INSERT INTO follows (follower_id, following_id)
		VALUES ($1, $2)
		ON CONFLICT (follower_id, following_id) DO NOTHING
	`
	if _, err = r.db.ExecContext(ctx, query, followerID, followingID); err != nil {
		return fmt.Errorf("failed to create follow: %w", err)
	}
	return nil
}

// Unfollow removes the edge, follow.ErrNotFound if it does not exist.
func (r *FollowRepository) Unfollow(ctx context.Context, followerID, followingID string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM follows WHERE follower_id = $1 AND following_id = $2`,
		followerID, followingID)
	if err != nil {
		return fmt.Errorf("failed to delete follow: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return follow.ErrNotFound
	}
	return nil
}

// FollowingIDs returns every user the follower follows.
func (r *FollowRepository) FollowingIDs(ctx context.Context, followerID string) (ids []string, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "follows", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	rows, err := r.db.QueryContext(ctx,
		`SELECT following_id FROM follows WHERE follower_id = $1`, followerID)
	if err != nil {
		return nil, fmt.Errorf("failed to query follows: %w", err)
	}
	defer rows.Close()

	ids = []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan follow: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read follows: %w", err)
	}
	return ids, nil
}
