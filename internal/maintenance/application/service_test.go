package application

import (
	"context"
	"errors"
	"testing"
	"time"

	maintenance "kitchensafe-cloud/internal/maintenance/domain"
	property "kitchensafe-cloud/internal/property/domain"
)

var now = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fakeClock struct{}

func (fakeClock) Now() time.Time { return now }

type stubRepo struct {
	tickets map[string]*maintenance.Ticket
}

func newStubRepo() *stubRepo {
	return &stubRepo{tickets: make(map[string]*maintenance.Ticket)}
}

func (s *stubRepo) Insert(_ context.Context, ticket *maintenance.Ticket) error {
	s.tickets[ticket.ID] = ticket
	return nil
}

func (s *stubRepo) List(context.Context, string) ([]maintenance.Ticket, error) {
	var tickets []maintenance.Ticket
	for _, ticket := range s.tickets {
		tickets = append(tickets, *ticket)
	}
	return tickets, nil
}

func (s *stubRepo) Complete(_ context.Context, propertyID, ticketID, adminID string, at time.Time) (bool, error) {
	ticket, ok := s.tickets[ticketID]
	if !ok || ticket.PropertyID != propertyID || ticket.CompletedAt != nil {
		return false, nil
	}
	ticket.CompletedByUserID = adminID
	ticket.CompletedAt = &at
	return true, nil
}

func (s *stubRepo) Exists(_ context.Context, propertyID, ticketID string) (bool, error) {
	ticket, ok := s.tickets[ticketID]
	return ok && ticket.PropertyID == propertyID, nil
}

type stubUsers struct{}

func (stubUsers) GetUsers(context.Context, []string) (map[string]property.User, error) {
	return map[string]property.User{}, nil
}

func newService(t *testing.T, repo *stubRepo) *Service {
	t.Helper()
	service, err := NewService(repo, stubUsers{}, fakeClock{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestCreate_RequiresTitle(t *testing.T) {
	service := newService(t, newStubRepo())

	_, err := service.Create(context.Background(), CreateRequest{PropertyID: "prop-1", Title: "  "})
	if !errors.Is(err, ErrTitleRequired) {
		t.Fatalf("expected ErrTitleRequired, got %v", err)
	}
}

func TestCreate_DefaultsUrgencyToWeek(t *testing.T) {
	repo := newStubRepo()
	service := newService(t, repo)

	ticket, err := service.Create(context.Background(), CreateRequest{
		PropertyID: "prop-1", UserID: "user-1", Title: "Oven door seal", Urgency: "ASAP",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	if ticket.Urgency != maintenance.UrgencyWeek {
		t.Fatalf("expected WEEK default, got %s", ticket.Urgency)
	}
	if !ticket.Open() {
		t.Fatal("expected new ticket open")
	}
}

func TestComplete_GuardedAndIdempotent(t *testing.T) {
	repo := newStubRepo()
	service := newService(t, repo)

	ticket, err := service.Create(context.Background(), CreateRequest{
		PropertyID: "prop-1", UserID: "user-1", Title: "Freezer compressor", Urgency: "H24",
	})
	if err != nil {
		t.Fatalf("create: %v", err)
	}

	if err := service.Complete(context.Background(), "prop-1", "admin-1", ticket.ID); err != nil {
		t.Fatalf("complete: %v", err)
	}
	stored := repo.tickets[ticket.ID]
	if stored.CompletedAt == nil || stored.CompletedByUserID != "admin-1" {
		t.Fatalf("completion not recorded: %+v", stored)
	}
	firstCompletion := *stored.CompletedAt

	// Second completion succeeds without overwriting the record.
	if err := service.Complete(context.Background(), "prop-1", "admin-2", ticket.ID); err != nil {
		t.Fatalf("second complete: %v", err)
	}
	if stored.CompletedByUserID != "admin-1" || !stored.CompletedAt.Equal(firstCompletion) {
		t.Fatalf("original completion overwritten: %+v", stored)
	}
}

func TestComplete_UnknownTicket(t *testing.T) {
	service := newService(t, newStubRepo())

	err := service.Complete(context.Background(), "prop-1", "admin-1", "t-missing")
	if !errors.Is(err, maintenance.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := service.Complete(context.Background(), "prop-1", "admin-1", ""); !errors.Is(err, ErrIDRequired) {
		t.Fatalf("expected ErrIDRequired, got %v", err)
	}
}
