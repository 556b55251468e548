package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	teamlog "kitchensafe-cloud/internal/teamlog/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// HandoverRepository persists handovers and read receipts in PostgreSQL.
type HandoverRepository struct {
	db DBTX
}

// NewHandoverRepository constructs a HandoverRepository.
func NewHandoverRepository(db DBTX) (*HandoverRepository, error) {
	if db == nil {
		return nil, errors.New("handover repository: nil db")
	}
	return &HandoverRepository{db: db}, nil
}

// Insert stores a new handover.
func (r *HandoverRepository) Insert(ctx context.Context, handover *teamlog.Handover) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO team_handovers (id, property_id, author_id, message, handover_date, created_at)
VALUES ($1, $2, $3, $4, $5, $6)
`, handover.ID, handover.PropertyID, handover.AuthorID, handover.Message,
		handover.HandoverDate.UTC(), handover.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert handover: %w", err)
	}
	return nil
}

// List returns handovers dated on or after cutoff, newest first.
func (r *HandoverRepository) List(ctx context.Context, propertyID string, cutoff time.Time) ([]teamlog.Handover, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, property_id, author_id, message, handover_date, created_at
FROM team_handovers
WHERE property_id = $1 AND handover_date >= $2
ORDER BY handover_date DESC, created_at DESC
LIMIT 500
`, propertyID, cutoff.UTC())
	if err != nil {
		return nil, fmt.Errorf("list handovers: %w", err)
	}
	defer rows.Close()

	handovers := make([]teamlog.Handover, 0)
	for rows.Next() {
		var handover teamlog.Handover
		if err := rows.Scan(&handover.ID, &handover.PropertyID, &handover.AuthorID,
			&handover.Message, &handover.HandoverDate, &handover.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan handover: %w", err)
		}
		handover.HandoverDate = handover.HandoverDate.UTC()
		handover.CreatedAt = handover.CreatedAt.UTC()
		handovers = append(handovers, handover)
	}
	return handovers, rows.Err()
}

// Reads returns receipts for the given handovers, oldest first.
func (r *HandoverRepository) Reads(ctx context.Context, handoverIDs []string) ([]teamlog.Read, error) {
	if len(handoverIDs) == 0 {
		return nil, nil
	}
	rows, err := r.db.QueryContext(ctx, `
SELECT id, handover_id, reader_id, read_at
FROM team_handover_reads
WHERE handover_id = ANY($1)
ORDER BY read_at ASC
`, handoverIDs)
	if err != nil {
		return nil, fmt.Errorf("list reads: %w", err)
	}
	defer rows.Close()

	reads := make([]teamlog.Read, 0)
	for rows.Next() {
		var read teamlog.Read
		if err := rows.Scan(&read.ID, &read.HandoverID, &read.ReaderID, &read.ReadAt); err != nil {
			return nil, fmt.Errorf("scan read: %w", err)
		}
		read.ReadAt = read.ReadAt.UTC()
		reads = append(reads, read)
	}
	return reads, rows.Err()
}

// Exists reports whether the property owns the handover.
func (r *HandoverRepository) Exists(ctx context.Context, propertyID, handoverID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM team_handovers WHERE property_id = $1 AND id = $2)
`, propertyID, handoverID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("handover exists: %w", err)
	}
	return exists, nil
}

// MarkRead records a receipt. The unique (handover, reader) pair makes
// re-reads no-ops.
func (r *HandoverRepository) MarkRead(ctx context.Context, read *teamlog.Read) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO team_handover_reads (id, handover_id, reader_id, read_at)
VALUES ($1, $2, $3, $4)
ON CONFLICT (handover_id, reader_id) DO NOTHING
`, read.ID, read.HandoverID, read.ReaderID, read.ReadAt.UTC())
	if err != nil {
		return fmt.Errorf("mark read: %w", err)
	}
	return nil
}

// PruneBefore drops handovers dated before cutoff. Receipts go with them via
// the cascading foreign key.
func (r *HandoverRepository) PruneBefore(ctx context.Context, propertyID string, cutoff time.Time) error {
	_, err := r.db.ExecContext(ctx, `
DELETE FROM team_handovers WHERE property_id = $1 AND handover_date < $2
`, propertyID, cutoff.UTC())
	if err != nil {
		return fmt.Errorf("prune handovers: %w", err)
	}
	return nil
}
