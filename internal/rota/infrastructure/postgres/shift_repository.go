package postgres

import (
	"context"
	"errors"
	"fmt"

	rota "kitchensafe-cloud/internal/rota/domain"
)

// ShiftRepository persists rota shifts in PostgreSQL.
type ShiftRepository struct {
	db DBTX
}

// NewShiftRepository constructs a ShiftRepository.
func NewShiftRepository(db DBTX) (*ShiftRepository, error) {
	if db == nil {
		return nil, errors.New("shift repository: nil db")
	}
	return &ShiftRepository{db: db}, nil
}

// Insert stores a new shift.
func (r *ShiftRepository) Insert(ctx context.Context, shift *rota.Shift) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO rota_shifts
  (id, property_id, week_id, day_index, start_time, end_time, role, notes, assignee_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, NULLIF($8, ''), NULLIF($9, ''), $10)
`, shift.ID, shift.PropertyID, shift.WeekID, shift.DayIndex, shift.StartTime, shift.EndTime,
		shift.Role, shift.Notes, shift.AssigneeUserID, shift.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert shift: %w", err)
	}
	return nil
}

// Update rewrites the editable fields of a shift the property owns.
func (r *ShiftRepository) Update(ctx context.Context, shift *rota.Shift) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE rota_shifts
SET start_time = $3, end_time = $4, role = $5, notes = NULLIF($6, ''), assignee_user_id = NULLIF($7, '')
WHERE property_id = $1 AND id = $2
`, shift.PropertyID, shift.ID, shift.StartTime, shift.EndTime, shift.Role, shift.Notes, shift.AssigneeUserID)
	if err != nil {
		return false, fmt.Errorf("update shift: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("update shift: %w", err)
	}
	return affected > 0, nil
}

// Delete removes a shift the property owns.
func (r *ShiftRepository) Delete(ctx context.Context, propertyID, shiftID string) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
DELETE FROM rota_shifts WHERE property_id = $1 AND id = $2
`, propertyID, shiftID)
	if err != nil {
		return false, fmt.Errorf("delete shift: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("delete shift: %w", err)
	}
	return affected > 0, nil
}

// ListByWeek returns the week's shifts in day-then-start order.
func (r *ShiftRepository) ListByWeek(ctx context.Context, propertyID, weekID string) ([]rota.Shift, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, property_id, week_id, day_index, start_time, end_time, role,
       COALESCE(notes, ''), COALESCE(assignee_user_id, ''), created_at
FROM rota_shifts
WHERE property_id = $1 AND week_id = $2
ORDER BY day_index ASC, start_time ASC, created_at ASC
`, propertyID, weekID)
	if err != nil {
		return nil, fmt.Errorf("list shifts: %w", err)
	}
	defer rows.Close()

	shifts := make([]rota.Shift, 0)
	for rows.Next() {
		var shift rota.Shift
		if err := rows.Scan(&shift.ID, &shift.PropertyID, &shift.WeekID, &shift.DayIndex,
			&shift.StartTime, &shift.EndTime, &shift.Role, &shift.Notes,
			&shift.AssigneeUserID, &shift.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan shift: %w", err)
		}
		shift.CreatedAt = shift.CreatedAt.UTC()
		shifts = append(shifts, shift)
	}
	return shifts, rows.Err()
}

// ClearWeek removes every shift on the week.
func (r *ShiftRepository) ClearWeek(ctx context.Context, propertyID, weekID string) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM rota_shifts WHERE property_id = $1 AND week_id = $2
`, propertyID, weekID)
	if err != nil {
		return fmt.Errorf("clear week: %w", err)
	}
	return nil
}
