package application

import (
	"context"
	"errors"
	"testing"
	"time"

	property "kitchensafe-cloud/internal/property/domain"
	teamlog "kitchensafe-cloud/internal/teamlog/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubRepo struct {
	inserted    []teamlog.Handover
	pruneCutoff time.Time
	list        []teamlog.Handover
	listCutoff  time.Time
	reads       []teamlog.Read
	exists      bool
	marked      []teamlog.Read
}

func (s *stubRepo) Insert(_ context.Context, handover *teamlog.Handover) error {
	s.inserted = append(s.inserted, *handover)
	return nil
}

func (s *stubRepo) List(_ context.Context, _ string, cutoff time.Time) ([]teamlog.Handover, error) {
	s.listCutoff = cutoff
	return s.list, nil
}

func (s *stubRepo) Reads(context.Context, []string) ([]teamlog.Read, error) {
	return s.reads, nil
}

func (s *stubRepo) Exists(context.Context, string, string) (bool, error) {
	return s.exists, nil
}

func (s *stubRepo) MarkRead(_ context.Context, read *teamlog.Read) error {
	s.marked = append(s.marked, *read)
	return nil
}

func (s *stubRepo) PruneBefore(_ context.Context, _ string, cutoff time.Time) error {
	s.pruneCutoff = cutoff
	return nil
}

type stubUsers struct {
	users map[string]property.User
}

func (s *stubUsers) GetUsers(_ context.Context, ids []string) (map[string]property.User, error) {
	result := make(map[string]property.User, len(ids))
	for _, id := range ids {
		if user, ok := s.users[id]; ok {
			result[id] = user
		}
	}
	return result, nil
}

func newTestService(t *testing.T, repo *stubRepo, now time.Time) *Service {
	t.Helper()
	users := &stubUsers{users: map[string]property.User{
		"user-1": {ID: "user-1", Email: "dana@kitchen.test", Name: "Dana"},
		"user-2": {ID: "user-2", Email: "sam@kitchen.test"},
	}}
	service, err := NewService(repo, users, fixedClock{now: now})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestPost_RequiresMessage(t *testing.T) {
	now := time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC)
	service := newTestService(t, &stubRepo{}, now)

	if _, err := service.Post(context.Background(), "prop-1", "user-1", "   "); !errors.Is(err, ErrMessageRequired) {
		t.Fatalf("expected ErrMessageRequired, got %v", err)
	}
}

func TestPost_RotatesBoardAndStampsDay(t *testing.T) {
	now := time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC)
	repo := &stubRepo{}
	service := newTestService(t, repo, now)

	handover, err := service.Post(context.Background(), "prop-1", "user-1", "  Fryer filter changed  ")
	if err != nil {
		t.Fatalf("post: %v", err)
	}

	wantCutoff := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	if !repo.pruneCutoff.Equal(wantCutoff) {
		t.Fatalf("expected prune cutoff %v, got %v", wantCutoff, repo.pruneCutoff)
	}
	wantDay := time.Date(2026, time.August, 28, 0, 0, 0, 0, time.UTC)
	if !handover.HandoverDate.Equal(wantDay) {
		t.Fatalf("expected handover date %v, got %v", wantDay, handover.HandoverDate)
	}
	if handover.Message != "Fryer filter changed" {
		t.Fatalf("expected trimmed message, got %q", handover.Message)
	}
	if len(repo.inserted) != 1 {
		t.Fatalf("expected one insert, got %d", len(repo.inserted))
	}
}

func TestMarkRead_UnknownHandover(t *testing.T) {
	now := time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC)
	service := newTestService(t, &stubRepo{exists: false}, now)

	err := service.MarkRead(context.Background(), "prop-1", "user-1", "missing")
	if !errors.Is(err, teamlog.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestMarkRead_RecordsReceipt(t *testing.T) {
	now := time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC)
	repo := &stubRepo{exists: true}
	service := newTestService(t, repo, now)

	if err := service.MarkRead(context.Background(), "prop-1", "user-2", "h-1"); err != nil {
		t.Fatalf("mark read: %v", err)
	}
	if len(repo.marked) != 1 || repo.marked[0].ReaderID != "user-2" || repo.marked[0].HandoverID != "h-1" {
		t.Fatalf("unexpected receipt %+v", repo.marked)
	}
}

func TestList_DecoratesAuthorsAndReads(t *testing.T) {
	now := time.Date(2026, time.August, 28, 14, 30, 0, 0, time.UTC)
	day := time.Date(2026, time.August, 27, 0, 0, 0, 0, time.UTC)
	repo := &stubRepo{
		list: []teamlog.Handover{
			{ID: "h-1", PropertyID: "prop-1", AuthorID: "user-1", Message: "Walk-in door sticking", HandoverDate: day},
			{ID: "h-2", PropertyID: "prop-1", AuthorID: "user-2", Message: "New supplier delivery Friday", HandoverDate: day},
		},
		reads: []teamlog.Read{
			{ID: "read-1", HandoverID: "h-1", ReaderID: "user-2", ReadAt: now.Add(-time.Hour)},
		},
	}
	service := newTestService(t, repo, now)

	views, err := service.List(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(views) != 2 {
		t.Fatalf("expected two handovers, got %d", len(views))
	}
	if views[0].Author != "Dana" {
		t.Fatalf("expected author name resolved, got %q", views[0].Author)
	}
	if len(views[0].Reads) != 1 || views[0].Reads[0].Reader != "sam@kitchen.test" {
		t.Fatalf("expected receipt with email fallback, got %+v", views[0].Reads)
	}
	if len(views[1].Reads) != 0 {
		t.Fatalf("expected empty reads slice, got %+v", views[1].Reads)
	}

	wantCutoff := time.Date(2026, time.August, 15, 0, 0, 0, 0, time.UTC)
	if !repo.listCutoff.Equal(wantCutoff) {
		t.Fatalf("expected list cutoff %v, got %v", wantCutoff, repo.listCutoff)
	}
}
