package postgres

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/google/uuid"

	"github.com/opencreel/creel/internal/place"
	"github.com/opencreel/creel/internal/search"
	"github.com/opencreel/creel/internal/tracing"
)

// PlaceRepository implements place.Repository using PostgreSQL.
type PlaceRepository struct {
	db *sql.DB
}

// NewPlaceRepository creates a new PostgreSQL place repository.
func NewPlaceRepository(db *sql.DB) *PlaceRepository {
	return &PlaceRepository{db: db}
}

// Create inserts a new place, assigning an ID.
func (r *PlaceRepository) Create(ctx context.Context, p *place.Place) (err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationInsert)
	defer func() { endSpan(err) }()

	if p.ID == "" {
		p.ID = uuid.New().String()
	}

	query := `INSERT INTO places (id, name, region, water_type) VALUES ($1, $2, $3, $4)`
	if _, err = r.db.ExecContext(ctx, query, p.ID, p.Name, p.Region, p.WaterType); err != nil {
		return fmt.Errorf("failed to insert place: %w", err)
	}
	return nil
}

// GetByID returns a place by id, place.ErrNotFound otherwise.
func (r *PlaceRepository) GetByID(ctx context.Context, id string) (p *place.Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	p = &place.Place{}
	query := `SELECT id, name, region, water_type FROM places WHERE id = $1`
	err = r.db.QueryRowContext(ctx, query, id).Scan(&p.ID, &p.Name, &p.Region, &p.WaterType)
	if err == sql.ErrNoRows {
		return nil, place.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get place: %w", err)
	}
	return p, nil
}

// Search returns places whose name or region contain the query, ordered by
// name, capped at limit.
func (r *PlaceRepository) Search(ctx context.Context, query string, limit int) (places []*place.Place, err error) {
	ctx, endSpan := tracing.StartDBSpan(ctx, "places", tracing.DBOperationQuery)
	defer func() { endSpan(err) }()

	if query == "" {
		return []*place.Place{}, nil
	}

	pattern := "%" + search.EscapeLike(query) + "%"
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, name, region, water_type
		FROM places
		WHERE name ILIKE $1 ESCAPE '\' OR region ILIKE $1 ESCAPE '\'
		ORDER BY name
		LIMIT $2
	`, pattern, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query places: %w", err)
	}
	defer rows.Close()

	places = []*place.Place{}
	for rows.Next() {
		p := &place.Place{}
		if err := rows.Scan(&p.ID, &p.Name, &p.Region, &p.WaterType); err != nil {
			return nil, fmt.Errorf("failed to scan place: %w", err)
		}
		places = append(places, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read places: %w", err)
	}
	return places, nil
}
