package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5/pgconn"

	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// UnitRepository persists refrigeration units in PostgreSQL.
type UnitRepository struct {
	db DBTX
}

// NewUnitRepository constructs a UnitRepository.
func NewUnitRepository(db DBTX) (*UnitRepository, error) {
	if db == nil {
		return nil, errors.New("unit repository: nil db")
	}
	return &UnitRepository{db: db}, nil
}

// Insert stores a new unit. A per-property name collision surfaces as
// ErrDuplicateName.
func (r *UnitRepository) Insert(ctx context.Context, unit *refrigeration.Unit) error {
	if err := unit.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO refrigeration_units (id, property_id, name, type, is_active, created_at, updated_at)
VALUES ($1, $2, $3, $4, TRUE, NOW(), NOW())
`, unit.ID, unit.PropertyID, unit.Name, string(unit.Type))
	if err != nil {
		if isUniqueViolation(err) {
			return refrigeration.ErrDuplicateName
		}
		return fmt.Errorf("insert unit: %w", err)
	}
	return nil
}

// GetActive returns the active unit, or nil when absent.
func (r *UnitRepository) GetActive(ctx context.Context, propertyID, unitID string) (*refrigeration.Unit, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT id, property_id, name, type, is_active, created_at, updated_at
FROM refrigeration_units
WHERE property_id = $1 AND id = $2 AND is_active = TRUE
`, propertyID, unitID)

	unit, err := scanUnit(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("get unit: %w", err)
	}
	return &unit, nil
}

// ListActive returns the property's active units ordered by name.
func (r *UnitRepository) ListActive(ctx context.Context, propertyID string) ([]refrigeration.Unit, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, property_id, name, type, is_active, created_at, updated_at
FROM refrigeration_units
WHERE property_id = $1 AND is_active = TRUE
ORDER BY name ASC
`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list units: %w", err)
	}
	defer rows.Close()

	units := make([]refrigeration.Unit, 0)
	for rows.Next() {
		unit, err := scanUnit(rows)
		if err != nil {
			return nil, fmt.Errorf("scan unit: %w", err)
		}
		units = append(units, unit)
	}
	return units, rows.Err()
}

// Deactivate retires a unit.
func (r *UnitRepository) Deactivate(ctx context.Context, propertyID, unitID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE refrigeration_units
SET is_active = FALSE, updated_at = NOW()
WHERE property_id = $1 AND id = $2 AND is_active = TRUE
`, propertyID, unitID)
	if err != nil {
		return false, fmt.Errorf("deactivate unit: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("deactivate unit: %w", err)
	}
	return affected > 0, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUnit(row rowScanner) (refrigeration.Unit, error) {
	var unit refrigeration.Unit
	var unitType string
	if err := row.Scan(&unit.ID, &unit.PropertyID, &unit.Name, &unitType, &unit.IsActive, &unit.CreatedAt, &unit.UpdatedAt); err != nil {
		return refrigeration.Unit{}, err
	}
	unit.Type = refrigeration.UnitType(unitType)
	unit.CreatedAt = unit.CreatedAt.UTC()
	unit.UpdatedAt = unit.UpdatedAt.UTC()
	return unit, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
