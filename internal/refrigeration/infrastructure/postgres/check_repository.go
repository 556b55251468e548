package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
)

// CheckRepository persists unit temperature checks in PostgreSQL.
type CheckRepository struct {
	db DBTX
}

// NewCheckRepository constructs a CheckRepository.
func NewCheckRepository(db DBTX) (*CheckRepository, error) {
	if db == nil {
		return nil, errors.New("check repository: nil db")
	}
	return &CheckRepository{db: db}, nil
}

const checkColumns = `id, property_id, unit_id, period, status, value_c, COALESCE(notes, ''), in_range, created_by_user_id, logged_at`

// Insert stores a check row.
func (r *CheckRepository) Insert(ctx context.Context, check *refrigeration.Check) error {
	if err := check.Validate(); err != nil {
		return err
	}
	_, err := r.db.ExecContext(ctx, `
INSERT INTO unit_temperature_checks
  (id, property_id, unit_id, period, status, value_c, notes, in_range, created_by_user_id, logged_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, $9, $10)
`, check.ID, check.PropertyID, check.UnitID, string(check.Period), string(check.Status),
		check.ValueC, check.Notes, check.InRange, check.CreatedByUserID, check.LoggedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert check: %w", err)
	}
	return nil
}

// ListSince returns AM/PM checks logged at or after from, newest first.
func (r *CheckRepository) ListSince(ctx context.Context, propertyID string, from time.Time) ([]refrigeration.Check, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+checkColumns+`
FROM unit_temperature_checks
WHERE property_id = $1 AND logged_at >= $2 AND period IN ('AM', 'PM')
ORDER BY logged_at DESC
LIMIT 1000
`, propertyID, from.UTC())
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return scanChecks(rows)
}

// ListRange returns all checks in [from, to) ordered oldest first.
func (r *CheckRepository) ListRange(ctx context.Context, propertyID string, from, to time.Time) ([]refrigeration.Check, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT `+checkColumns+`
FROM unit_temperature_checks
WHERE property_id = $1 AND logged_at >= $2 AND logged_at < $3
ORDER BY logged_at ASC
LIMIT 5000
`, propertyID, from.UTC(), to.UTC())
	if err != nil {
		return nil, fmt.Errorf("list checks: %w", err)
	}
	return scanChecks(rows)
}

func scanChecks(rows *sql.Rows) ([]refrigeration.Check, error) {
	defer rows.Close()

	checks := make([]refrigeration.Check, 0)
	for rows.Next() {
		var check refrigeration.Check
		var period, status string
		if err := rows.Scan(&check.ID, &check.PropertyID, &check.UnitID, &period, &status,
			&check.ValueC, &check.Notes, &check.InRange, &check.CreatedByUserID, &check.LoggedAt); err != nil {
			return nil, fmt.Errorf("scan check: %w", err)
		}
		check.Period = refrigeration.CheckPeriod(period)
		check.Status = refrigeration.CheckStatus(status)
		check.LoggedAt = check.LoggedAt.UTC()
		checks = append(checks, check)
	}
	return checks, rows.Err()
}
