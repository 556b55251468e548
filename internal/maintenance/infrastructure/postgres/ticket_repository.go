package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	maintenance "kitchensafe-cloud/internal/maintenance/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// TicketRepository persists maintenance tickets in PostgreSQL.
type TicketRepository struct {
	db DBTX
}

// NewTicketRepository constructs a TicketRepository.
func NewTicketRepository(db DBTX) (*TicketRepository, error) {
	if db == nil {
		return nil, errors.New("ticket repository: nil db")
	}
	return &TicketRepository{db: db}, nil
}

// Insert stores a new ticket.
func (r *TicketRepository) Insert(ctx context.Context, ticket *maintenance.Ticket) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO maintenance_tickets
  (id, property_id, title, details, location, equipment, urgency, reported_by_user_id, created_at)
VALUES ($1, $2, $3, NULLIF($4, ''), NULLIF($5, ''), NULLIF($6, ''), $7, $8, $9)
`, ticket.ID, ticket.PropertyID, ticket.Title, ticket.Details, ticket.Location,
		ticket.Equipment, string(ticket.Urgency), ticket.ReportedByUserID, ticket.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert ticket: %w", err)
	}
	return nil
}

// List returns the property's tickets, open first then newest.
func (r *TicketRepository) List(ctx context.Context, propertyID string) ([]maintenance.Ticket, error) {
	rows, err := r.db.QueryContext(ctx, `
SELECT id, property_id, title, COALESCE(details, ''), COALESCE(location, ''), COALESCE(equipment, ''),
       urgency, reported_by_user_id, COALESCE(completed_by_user_id, ''), completed_at, created_at
FROM maintenance_tickets
WHERE property_id = $1
ORDER BY (completed_at IS NULL) DESC, created_at DESC
LIMIT 500
`, propertyID)
	if err != nil {
		return nil, fmt.Errorf("list tickets: %w", err)
	}
	defer rows.Close()

	tickets := make([]maintenance.Ticket, 0)
	for rows.Next() {
		var ticket maintenance.Ticket
		var urgency string
		if err := rows.Scan(&ticket.ID, &ticket.PropertyID, &ticket.Title, &ticket.Details,
			&ticket.Location, &ticket.Equipment, &urgency, &ticket.ReportedByUserID,
			&ticket.CompletedByUserID, &ticket.CompletedAt, &ticket.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan ticket: %w", err)
		}
		ticket.Urgency = maintenance.Urgency(urgency)
		ticket.CreatedAt = ticket.CreatedAt.UTC()
		tickets = append(tickets, ticket)
	}
	return tickets, rows.Err()
}

// Complete closes a ticket. The completed_at guard keeps the first
// completion's record intact.
func (r *TicketRepository) Complete(ctx context.Context, propertyID, ticketID, adminID string, at time.Time) (bool, error) {
	result, err := r.db.ExecContext(ctx, `
UPDATE maintenance_tickets
SET completed_by_user_id = $3, completed_at = $4
WHERE property_id = $1 AND id = $2 AND completed_at IS NULL
`, propertyID, ticketID, adminID, at.UTC())
	if err != nil {
		return false, fmt.Errorf("complete ticket: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("complete ticket: %w", err)
	}
	return affected > 0, nil
}

// Exists reports whether the property owns the ticket.
func (r *TicketRepository) Exists(ctx context.Context, propertyID, ticketID string) (bool, error) {
	var exists bool
	err := r.db.QueryRowContext(ctx, `
SELECT EXISTS (SELECT 1 FROM maintenance_tickets WHERE property_id = $1 AND id = $2)
`, propertyID, ticketID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("ticket exists: %w", err)
	}
	return exists, nil
}
