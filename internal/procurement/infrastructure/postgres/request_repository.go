package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	procurement "kitchensafe-cloud/internal/procurement/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// RequestRepository persists procurement requests in PostgreSQL.
type RequestRepository struct {
	db DBTX
}

// NewRequestRepository constructs a RequestRepository.
func NewRequestRepository(db DBTX) (*RequestRepository, error) {
	if db == nil {
		return nil, errors.New("request repository: nil db")
	}
	return &RequestRepository{db: db}, nil
}

const requestColumns = `id, property_id, category, status, item_name, quantity, COALESCE(unit, ''), needed_by, COALESCE(notes, ''), requested_by_user_id, COALESCE(decided_by_user_id, ''), decided_at, COALESCE(rejected_reason, ''), COALESCE(rejected_note, ''), created_at`

// Insert stores a new request.
func (r *RequestRepository) Insert(ctx context.Context, req *procurement.Request) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO procurement_requests
  (id, property_id, category, status, item_name, quantity, unit, needed_by, notes, requested_by_user_id, created_at)
VALUES ($1, $2, $3, $4, $5, $6, NULLIF($7, ''), $8, NULLIF($9, ''), $10, $11)
`, req.ID, req.PropertyID, string(req.Category), string(req.Status), req.ItemName,
		req.Quantity, req.Unit, req.NeededBy, req.Notes, req.RequestedByUserID, req.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert request: %w", err)
	}
	return nil
}

// List returns requests ordered pending-first, newest within each status.
func (r *RequestRepository) List(ctx context.Context, propertyID string, filter procurement.ListFilter) ([]procurement.Request, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = 100
	}
	if limit > 200 {
		limit = 200
	}

	query := `
SELECT ` + requestColumns + `
FROM procurement_requests
WHERE property_id = $1`
	args := []any{propertyID}
	if filter.Category != "" {
		args = append(args, string(filter.Category))
		query += ` AND category = $` + strconv.Itoa(len(args))
	}
	if filter.Status != "" {
		args = append(args, string(filter.Status))
		query += ` AND status = $` + strconv.Itoa(len(args))
	}
	args = append(args, limit)
	query += `
ORDER BY status ASC, created_at DESC
LIMIT $` + strconv.Itoa(len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	requests := make([]procurement.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		requests = append(requests, req)
	}
	return requests, rows.Err()
}

// Decide applies a transition. The status guard in the UPDATE keeps decided
// requests immutable without a read-modify-write race.
func (r *RequestRepository) Decide(ctx context.Context, propertyID string, decision procurement.Decision) (*procurement.Request, error) {
	row := r.db.QueryRowContext(ctx, `
UPDATE procurement_requests
SET status = $3,
    decided_by_user_id = $4,
    decided_at = $5,
    rejected_reason = NULLIF($6, ''),
    rejected_note = NULLIF($7, '')
WHERE property_id = $1 AND id = $2 AND status = 'PENDING'
RETURNING `+requestColumns+`
`, propertyID, decision.RequestID, string(decision.Status), decision.UserID,
		decision.DecidedAt.UTC(), string(decision.Reason), decision.Note)

	req, err := scanRequest(row)
	if err == nil {
		return &req, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("decide request: %w", err)
	}

	// Guard failed: distinguish a foreign id from an already-decided request.
	var exists bool
	checkErr := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM procurement_requests WHERE property_id = $1 AND id = $2)
`, propertyID, decision.RequestID).Scan(&exists)
	if checkErr != nil {
		return nil, fmt.Errorf("decide request: %w", checkErr)
	}
	if !exists {
		return nil, procurement.ErrNotFound
	}
	return nil, procurement.ErrAlreadyDecided
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRequest(row rowScanner) (procurement.Request, error) {
	var req procurement.Request
	var category, status, reason string
	if err := row.Scan(&req.ID, &req.PropertyID, &category, &status, &req.ItemName,
		&req.Quantity, &req.Unit, &req.NeededBy, &req.Notes,
		&req.RequestedByUserID, &req.DecidedByUserID, &req.DecidedAt,
		&reason, &req.RejectedNote, &req.CreatedAt); err != nil {
		return procurement.Request{}, err
	}
	req.Category = procurement.Category(category)
	req.Status = procurement.Status(status)
	req.RejectedReason = procurement.RejectReason(reason)
	req.CreatedAt = req.CreatedAt.UTC()
	return req, nil
}
