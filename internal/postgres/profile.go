package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opencreel/creel/internal/profile"
	"github.com/opencreel/creel/internal/search"
	"github.com/opencreel/creel/internal/tracing"
)

// ProfileRepository implements profile.Repository using PostgreSQL.
type ProfileRepository struct {
	db *sql.DB
}

// NewProfileRepository creates a new PostgreSQL profile repository.
func NewProfileRepository(db *sql.DB) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// Create inserts a new profile, assigning an ID.
func (r *ProfileRepository) Create(ctx context.Context, p *profile.Profile) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `
		INSERT INTO profiles (id, handle, display_name, bio)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`
	err = r.db.QueryRowContext(ctx, query, p.ID, p.Handle, p.DisplayName, p.Bio).Scan(&p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert profile: %w", err)
	}
	return nil
}

// GetByID returns a profile by id, profile.ErrNotFound otherwise.
func (r *ProfileRepository) GetByID(ctx context.Context, id string) (p *profile.Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	p = &profile.Profile{}
	query := `SELECT id, handle, display_name, bio, created_at FROM profiles WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Handle, &p.DisplayName, &p.Bio, &p.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, profile.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get profile: %w", err)
	}
	return p, nil
}

// Search returns profiles whose handle or display name contain the query,
// ordered by handle, capped at limit.
func (r *ProfileRepository) Search(ctx context.Context, query string, limit int) (profiles []*profile.Profile, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "profiles", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if query == "" {
		return []*profile.Profile{}, nil
	}

	pattern := "%" + search.EscapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, handle, display_name, bio, created_at
		FROM profiles
		WHERE handle ILIKE $1 ESCAPE '\' OR display_name ILIKE $1 ESCAPE '\'
		ORDER BY handle
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query profiles: %w", err)
	}
	defer rows.Close()

	profiles = []*profile.Profile{}
	for rows.Next() {
		p := &profile.Profile{}
		if err := rows.Scan(&p.ID, &p.Handle, &p.DisplayName, &p.Bio, &p.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan profile: %w", err)
		}
		profiles = append(profiles, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read profiles: %w", err)
	}
	return profiles, nil
}
