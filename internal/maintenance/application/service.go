package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	maintenance "kitchensafe-cloud/internal/maintenance/domain"
	property "kitchensafe-cloud/internal/property/domain"
)

var (
	// ErrTitleRequired indicates a ticket without a title.
	ErrTitleRequired = errors.New("maintenance: title is required")
	// ErrIDRequired indicates a completion without a ticket id.
	ErrIDRequired = errors.New("maintenance: ticket id is required")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service coordinates maintenance tickets.
type Service struct {
	tickets maintenance.Repository
	users   property.UserDirectory
	clock   Clock
}

// NewService constructs a Service.
func NewService(tickets maintenance.Repository, users property.UserDirectory, clock Clock) (*Service, error) {
	if tickets == nil {
		return nil, errors.New("maintenance service: nil repository")
	}
	if clock == nil {
		return nil, errors.New("maintenance service: nil clock")
	}
	return &Service{tickets: tickets, users: users, clock: clock}, nil
}

// CreateRequest reports a fault.
type CreateRequest struct {
	PropertyID string
	UserID     string
	Title      string
	Details    string
	Location   string
	Equipment  string
	Urgency    string
}

// Create files a ticket.
func (s *Service) Create(ctx context.Context, req CreateRequest) (maintenance.Ticket, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		return maintenance.Ticket{}, ErrTitleRequired
	}

	ticket := maintenance.Ticket{
		ID:               uuid.NewString(),
		PropertyID:       req.PropertyID,
		Title:            title,
		Details:          strings.TrimSpace(req.Details),
		Location:         strings.TrimSpace(req.Location),
		Equipment:        strings.TrimSpace(req.Equipment),
		Urgency:          maintenance.NormalizeUrgency(strings.TrimSpace(req.Urgency)),
		ReportedByUserID: req.UserID,
		CreatedAt:        s.clock.Now().UTC(),
	}
	if err := s.tickets.Insert(ctx, &ticket); err != nil {
		return maintenance.Ticket{}, err
	}
	return ticket, nil
}

// TicketView is a ticket decorated with display identities.
type TicketView struct {
	maintenance.Ticket
	ReportedBy  string `json:"reportedBy,omitempty"`
	CompletedBy string `json:"completedBy,omitempty"`
}

// List returns the property's tickets, open first.
func (s *Service) List(ctx context.Context, propertyID string) ([]TicketView, error) {
	tickets, err := s.tickets.List(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	return s.decorate(ctx, tickets)
}

// Complete closes a ticket. Completing an already-closed ticket succeeds
// without touching the original completion record.
func (s *Service) Complete(ctx context.Context, propertyID, adminID, ticketID string) error {
	ticketID = strings.TrimSpace(ticketID)
	if ticketID == "" {
		return ErrIDRequired
	}

	changed, err := s.tickets.Complete(ctx, propertyID, ticketID, adminID, s.clock.Now())
	if err != nil {
		return err
	}
	if changed {
		return nil
	}

	exists, err := s.tickets.Exists(ctx, propertyID, ticketID)
	if err != nil {
		return err
	}
	if !exists {
		return maintenance.ErrNotFound
	}
	return nil
}

func (s *Service) decorate(ctx context.Context, tickets []maintenance.Ticket) ([]TicketView, error) {
	views := make([]TicketView, 0, len(tickets))
	users := map[string]property.User{}
	if s.users != nil && len(tickets) > 0 {
		ids := make([]string, 0, len(tickets)*2)
		seen := make(map[string]struct{})
		for _, ticket := range tickets {
			for _, id := range []string{ticket.ReportedByUserID, ticket.CompletedByUserID} {
				if id == "" {
					continue
				}
				if _, ok := seen[id]; ok {
					continue
				}
				seen[id] = struct{}{}
				ids = append(ids, id)
			}
		}
		resolved, err := s.users.GetUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		users = resolved
	}

	for _, ticket := range tickets {
		view := TicketView{Ticket: ticket}
		if user, ok := users[ticket.ReportedByUserID]; ok {
			view.ReportedBy = user.DisplayName()
		}
		if user, ok := users[ticket.CompletedByUserID]; ok {
			view.CompletedBy = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}
