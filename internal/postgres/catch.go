// Package postgres provides PostgreSQL-backed repositories for Creel.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/opencreel/creel/internal/catch"
	"github.com/opencreel/creel/internal/search"
	"github.com/opencreel/creel/internal/tracing"
)

// catchColumns is the select list shared by every catch query.
const catchColumns = `id, owner_id, species, visibility, hide_exact_spot,
	location, weight_kg, attributes, caught_at, created_at, updated_at, deleted_at`

// CatchRepository implements catch.Repository using PostgreSQL.
type CatchRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewCatchRepository creates a new PostgreSQL catch repository.
func NewCatchRepository(db *sql.DB, logger *slog.Logger) *CatchRepository {
	if logger == nil {
		logger = slog.Default()
	}
	return &CatchRepository{
		db:     db,
		logger: logger,
	}
}

// Create inserts a new catch record, assigning ID and timestamps.
func (r *CatchRepository) Create(ctx context.Context, rec *catch.CatchRecord) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if rec.ID == "" {
		rec.ID = uuid.New().String()
	}
	now := time.Now().UTC()
	rec.CreatedAt = now
	rec.UpdatedAt = now

	attrs, err := marshalAttributes(rec.Attributes)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO catches (id, owner_id, species, visibility, hide_exact_spot,
			location, weight_kg, attributes, caught_at, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`
	_, err = r.db.ExecContext(ctx, query,
		rec.ID, rec.OwnerID, rec.Species, rec.Visibility.String(), rec.HideExactSpot,
		rec.Location, rec.WeightKg, attrs, rec.CaughtAt, rec.CreatedAt, rec.UpdatedAt)
	if err != nil {
		r.logger.Error("failed to insert catch",
			slog.String("error", err.Error()),
			slog.String("catch_id", rec.ID))
		return fmt.Errorf("failed to insert catch: %w", err)
	}
	return nil
}

// Update overwrites the mutable fields of an existing live record.
func (r *CatchRepository) Update(ctx context.Context, rec *catch.CatchRecord) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationUpdate)
	defer func() { endSpan(err) }()

	attrs, err := marshalAttributes(rec.Attributes)
	if err != nil {
		return err
	}

	query := `
		UPDATE catches
		SET species = $2, visibility = $3, hide_exact_spot = $4, location = $5,
			weight_kg = $6, attributes = $7, caught_at = $8, updated_at = NOW()
		WHERE id = $1 AND deleted_at IS NULL
	`
	result, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.Species, rec.Visibility.String(), rec.HideExactSpot,
		rec.Location, rec.WeightKg, attrs, rec.CaughtAt)
	if err != nil {
		return fmt.Errorf("failed to update catch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return r.missingReason(ctx, rec.ID)
	}
	return nil
}

// Delete soft-deletes a record.
func (r *CatchRepository) Delete(ctx context.Context, id string) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationDelete)
	defer func() { endSpan(err) }()

	query := `UPDATE catches SET deleted_at = NOW(), updated_at = NOW() WHERE id = $1 AND deleted_at IS NULL`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("failed to delete catch: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check delete result: %w", err)
	}
	if affected == 0 {
		return r.missingReason(ctx, id)
	}
	return nil
}

// GetByID returns a live record by id, catch.ErrNotFound otherwise.
func (r *CatchRepository) GetByID(ctx context.Context, id string) (rec *catch.CatchRecord, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + catchColumns + ` FROM catches WHERE id = $1 AND deleted_at IS NULL`
	rec, err = scanCatch(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, catch.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get catch: %w", err)
	}
	return rec, nil
}

// List returns one raw page: soft-deleted rows excluded, descriptor ordering
// and cursor predicate applied, at most Descriptor.Limit rows.
func (r *CatchRepository) List(ctx context.Context, opts catch.ListOptions) (recs []*catch.CatchRecord, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	query := `SELECT ` + catchColumns + ` FROM catches WHERE deleted_at IS NULL`
	args := []any{}

	if opts.Species != "" {
		args = append(args, opts.Species)
		query += fmt.Sprintf(" AND LOWER(species) = LOWER($%d)", len(args))
	}
	if opts.OwnerID != "" {
		args = append(args, opts.OwnerID)
		query += fmt.Sprintf(" AND owner_id = $%d", len(args))
	}

	clause, keysetArgs, err := opts.Descriptor.KeysetSQL(len(args) + 1)
	if err != nil {
		return nil, err
	}
	if clause != "" {
		query += " AND " + clause
		args = append(args, keysetArgs...)
	}

	args = append(args, opts.Descriptor.Limit)
	query += fmt.Sprintf(" ORDER BY %s LIMIT $%d", opts.Descriptor.OrderBySQL(), len(args))

	return r.queryCatches(ctx, query, args...)
}

// Search returns live records whose species or location contain the query,
// newest first, capped at opts.Limit. The query must already be sanitized;
// LIKE metacharacters are escaped here so user text only ever matches
// literally.
func (r *CatchRepository) Search(ctx context.Context, opts catch.SearchOptions) (recs []*catch.CatchRecord, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "catches", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if opts.Query == "" {
		return []*catch.CatchRecord{}, nil
	}

	pattern := "%" + search.EscapeLike(opts.Query) + "%"
	query := `
		SELECT ` + catchColumns + `
		FROM catches
		WHERE deleted_at IS NULL
			AND (species ILIKE $1 ESCAPE '\' OR location ILIKE $1 ESCAPE '\')
		ORDER BY caught_at DESC, id DESC
		LIMIT $2
	`
	return r.queryCatches(ctx, query, pattern, opts.Limit)
}

// missingReason distinguishes a soft-deleted record from an absent one.
func (r *CatchRepository) missingReason(ctx context.Context, id string) error {
	var deletedAt sql.NullTime
	err := r.db.QueryRowContext(ctx, `SELECT deleted_at FROM catches WHERE id = $1`, id).Scan(&deletedAt)
	if err == sql.ErrNoRows {
		return catch.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("failed to check catch existence: %w", err)
	}
	if deletedAt.Valid {
		return catch.ErrDeleted
	}
	return catch.ErrNotFound
}

func (r *CatchRepository) queryCatches(ctx context.Context, query string, args ...any) ([]*catch.CatchRecord, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.Error("catch query failed", slog.String("error", err.Error()))
		return nil, fmt.Errorf("failed to query catches: %w", err)
	}
	defer rows.Close()

	var recs []*catch.CatchRecord
	for rows.Next() {
		rec, err := scanCatch(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan catch: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read catches: %w", err)
	}
	return recs, nil
}

// scanner abstracts *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanCatch(s scanner) (*catch.CatchRecord, error) {
	var (
		rec        catch.CatchRecord
		visibility string
		location   sql.NullString
		weight     sql.NullFloat64
		attrs      []byte
		deletedAt  sql.NullTime
	)
	err := s.Scan(&rec.ID, &rec.OwnerID, &rec.Species, &visibility, &rec.HideExactSpot,
		&location, &weight, &attrs, &rec.CaughtAt, &rec.CreatedAt, &rec.UpdatedAt, &deletedAt)
	if err != nil {
		return nil, err
	}

	rec.Visibility = catch.ParseVisibility(visibility)
	if location.Valid {
		rec.Location = &location.String
	}
	if weight.Valid {
		rec.WeightKg = &weight.Float64
	}
	if deletedAt.Valid {
		t := deletedAt.Time
		rec.DeletedAt = &t
	}
	if len(attrs) > 0 {
		if err := json.Unmarshal(attrs, &rec.Attributes); err != nil {
			return nil, fmt.Errorf("failed to decode attributes: %w", err)
		}
	}
	return &rec, nil
}

func marshalAttributes(attrs map[string]any) ([]byte, error) {
	if attrs == nil {
		return []byte("{}"), nil
	}
	data, err := json.Marshal(attrs)
	if err != nil {
		return nil, fmt.Errorf("failed to encode attributes: %w", err)
	}
	return data, nil
}
