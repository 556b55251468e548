package teamlog

import (
	"context"
	"errors"
	"time"
)

// RetentionDays is how long handovers stay on the board: today plus the
// previous thirteen days.
const RetentionDays = 14

// Handover is a shift-change note for the whole team.
type Handover struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	AuthorID   string `json:"authorId"`
	Message    string `json:"message"`
	// HandoverDate is the UTC day start, used for grouping and rotation.
	HandoverDate time.Time `json:"handoverDate"`
	CreatedAt    time.Time `json:"createdAt"`
}

// Read is a per-user read receipt on a handover.
type Read struct {
	ID         string    `json:"id"`
	HandoverID string    `json:"handoverId"`
	ReaderID   string    `json:"readerId"`
	ReadAt     time.Time `json:"readAt"`
}

// DayStart truncates t to its UTC day.
func DayStart(t time.Time) time.Time {
	day := t.UTC()
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
}

// RetentionCutoff returns the oldest handover date still on the board.
func RetentionCutoff(now time.Time) time.Time {
	return DayStart(now).AddDate(0, 0, -(RetentionDays - 1))
}

// ErrNotFound reports a handover the property does not own.
var ErrNotFound = errors.New("team log: handover not found")

// Repository persists handovers and read receipts.
type Repository interface {
	Insert(ctx context.Context, handover *Handover) error
	// List returns handovers dated on or after cutoff, newest first.
	List(ctx context.Context, propertyID string, cutoff time.Time) ([]Handover, error)
	// Reads returns receipts for the given handovers, oldest first.
	Reads(ctx context.Context, handoverIDs []string) ([]Read, error)
	// Exists reports whether the property owns the handover.
	Exists(ctx context.Context, propertyID, handoverID string) (bool, error)
	// MarkRead records a receipt. Reading twice is a no-op: the first
	// receipt stands.
	MarkRead(ctx context.Context, read *Read) error
	// PruneBefore drops handovers dated before cutoff, receipts included.
	PruneBefore(ctx context.Context, propertyID string, cutoff time.Time) error
}
