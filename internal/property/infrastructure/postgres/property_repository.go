package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	property "kitchensafe-cloud/internal/property/domain"
)

// PropertyRepository is a Postgres implementation for properties.
type PropertyRepository struct {
	db DBTX
}

// NewPropertyRepository constructs a repository.
func NewPropertyRepository(db DBTX) *PropertyRepository {
	return &PropertyRepository{db: db}
}

// Get loads a property by id.
func (r *PropertyRepository) Get(ctx context.Context, id string) (*property.Property, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("property repo: nil db")
	}
	if id == "" {
		return nil, errors.New("property repo: empty id")
	}

	var prop property.Property
	if err := r.db.QueryRowContext(ctx, `
SELECT id, name, timezone, created_at, updated_at
FROM properties
WHERE id = $1
LIMIT 1`, id).Scan(
		&prop.ID,
		&prop.Name,
		&prop.Timezone,
		&prop.CreatedAt,
		&prop.UpdatedAt,
	); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	prop.CreatedAt = prop.CreatedAt.UTC()
	prop.UpdatedAt = prop.UpdatedAt.UTC()
	return &prop, nil
}

// Save upserts a property.
func (r *PropertyRepository) Save(ctx context.Context, prop *property.Property) error {
	if r == nil || r.db == nil {
		return errors.New("property repo: nil db")
	}
	if prop == nil {
		return errors.New("property repo: nil property")
	}
	if err := prop.Validate(); err != nil {
		return err
	}

	now := time.Now().UTC()
	if prop.CreatedAt.IsZero() {
		prop.CreatedAt = now
	}
	prop.UpdatedAt = now

	_, err := r.db.ExecContext(ctx, `
INSERT INTO properties (id, name, timezone, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5)
ON CONFLICT (id) DO UPDATE SET
	name = EXCLUDED.name,
	timezone = EXCLUDED.timezone,
	updated_at = EXCLUDED.updated_at`,
		prop.ID, prop.Name, prop.Timezone, prop.CreatedAt, prop.UpdatedAt)
	return err
}
