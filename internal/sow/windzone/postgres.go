package windzone

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
)

// A county row wins over the state-wide row (county = '').
const lookupQuery = `
	SELECT state, county, design_wind_speed, hvhz, exposure_category, code_reference
	FROM wind_zones
	WHERE state = $1 AND county IN ($2, '')
	ORDER BY county DESC
	LIMIT 1`

type PostgresRepository struct {
	db *sql.DB
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Lookup(ctx context.Context, j Jurisdiction) (*WindZone, error) {
	j = j.Normalized()
	if j.State == "" {
		return nil, fmt.Errorf("%w: state is required", ErrNotFound)
	}

	var zone WindZone
	err := r.db.QueryRowContext(ctx, lookupQuery, j.State, j.County).Scan(
		&zone.State,
		&zone.County,
		&zone.DesignWindSpeed,
		&zone.HVHZ,
		&zone.ExposureCategory,
		&zone.CodeReference,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, j)
	}
	if err != nil {
		return nil, fmt.Errorf("query wind_zones for %s: %w", j, err)
	}
	return &zone, nil
}
