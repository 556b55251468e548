package maintenance

import (
	"context"
	"errors"
	"time"
)

// Urgency is how quickly a fault needs attention.
type Urgency string

const (
	UrgencyH24  Urgency = "H24"
	UrgencyH48  Urgency = "H48"
	UrgencyWeek Urgency = "WEEK"
)

// NormalizeUrgency maps unknown values to WEEK, the historical default.
func NormalizeUrgency(value string) Urgency {
	switch Urgency(value) {
	case UrgencyH24, UrgencyH48:
		return Urgency(value)
	default:
		return UrgencyWeek
	}
}

// Ticket is a reported maintenance fault.
type Ticket struct {
	ID         string  `json:"id"`
	PropertyID string  `json:"propertyId"`
	Title      string  `json:"title"`
	Details    string  `json:"details,omitempty"`
	Location   string  `json:"location,omitempty"`
	Equipment  string  `json:"equipment,omitempty"`
	Urgency    Urgency `json:"urgency"`

	ReportedByUserID  string     `json:"reportedByUserId"`
	CompletedByUserID string     `json:"completedByUserId,omitempty"`
	CompletedAt       *time.Time `json:"completedAt"`

	CreatedAt time.Time `json:"createdAt"`
}

// Open reports whether the ticket is still outstanding.
func (t Ticket) Open() bool { return t.CompletedAt == nil }

// ErrNotFound reports a ticket the property does not own.
var ErrNotFound = errors.New("maintenance: ticket not found")

// Repository persists maintenance tickets.
type Repository interface {
	Insert(ctx context.Context, ticket *Ticket) error
	// List returns the property's tickets, open first then newest.
	List(ctx context.Context, propertyID string) ([]Ticket, error)
	// Complete closes a ticket with a guarded UPDATE. Completing an
	// already-completed ticket is a no-op that reports false; the original
	// completion stands.
	Complete(ctx context.Context, propertyID, ticketID, adminID string, at time.Time) (bool, error)
	// Exists reports whether the property owns the ticket.
	Exists(ctx context.Context, propertyID, ticketID string) (bool, error)
}
