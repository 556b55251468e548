package application

import (
	"context"
	"errors"
	"testing"
	"time"

	property "kitchensafe-cloud/internal/property/domain"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
	settings "kitchensafe-cloud/internal/settings/domain"
)

var now = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fakeClock struct{}

func (fakeClock) Now() time.Time { return now }

type stubUnitRepo struct {
	inserted []*refrigeration.Unit
	active   map[string]*refrigeration.Unit
	list     []refrigeration.Unit

	insertErr   error
	deactivated bool
}

func (s *stubUnitRepo) Insert(_ context.Context, unit *refrigeration.Unit) error {
	if s.insertErr != nil {
		return s.insertErr
	}
	s.inserted = append(s.inserted, unit)
	return nil
}

func (s *stubUnitRepo) GetActive(_ context.Context, _, unitID string) (*refrigeration.Unit, error) {
	return s.active[unitID], nil
}

func (s *stubUnitRepo) ListActive(context.Context, string) ([]refrigeration.Unit, error) {
	return s.list, nil
}

func (s *stubUnitRepo) Deactivate(context.Context, string, string) (bool, error) {
	return s.deactivated, nil
}

type stubCheckRepo struct {
	inserted []*refrigeration.Check
	since    []refrigeration.Check
}

func (s *stubCheckRepo) Insert(_ context.Context, check *refrigeration.Check) error {
	s.inserted = append(s.inserted, check)
	return nil
}

func (s *stubCheckRepo) ListSince(context.Context, string, time.Time) ([]refrigeration.Check, error) {
	return s.since, nil
}

func (s *stubCheckRepo) ListRange(context.Context, string, time.Time, time.Time) ([]refrigeration.Check, error) {
	return nil, nil
}

type stubSettingsRepo struct{}

func (stubSettingsRepo) Get(_ context.Context, propertyID string) (settings.PropertySettings, error) {
	return settings.Defaults(propertyID), nil
}

func (stubSettingsRepo) Save(context.Context, settings.PropertySettings) error { return nil }

type stubUsers struct {
	users map[string]property.User
}

func (s stubUsers) GetUsers(context.Context, []string) (map[string]property.User, error) {
	return s.users, nil
}

type captureNotifier struct {
	checks []refrigeration.Check
}

func (n *captureNotifier) ReadingOutOfRange(_ context.Context, _ string, _ refrigeration.Unit, check refrigeration.Check) {
	n.checks = append(n.checks, check)
}

func fridge(id string) *refrigeration.Unit {
	return &refrigeration.Unit{
		ID: id, PropertyID: "prop-1", Name: "Walk-in", Type: refrigeration.UnitFridge, IsActive: true,
	}
}

func freezer(id string) *refrigeration.Unit {
	return &refrigeration.Unit{
		ID: id, PropertyID: "prop-1", Name: "Chest freezer", Type: refrigeration.UnitFreezer, IsActive: true,
	}
}

func newService(t *testing.T, units *stubUnitRepo, checks *stubCheckRepo, opts ...Option) *Service {
	t.Helper()
	service, err := NewService(units, checks, stubSettingsRepo{}, stubUsers{}, fakeClock{}, opts...)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func floatPtr(v float64) *float64 { return &v }

func TestCreateUnit_Validates(t *testing.T) {
	service := newService(t, &stubUnitRepo{}, &stubCheckRepo{})

	if _, err := service.CreateUnit(context.Background(), "prop-1", "  ", "FRIDGE"); !errors.Is(err, ErrNameRequired) {
		t.Fatalf("expected ErrNameRequired, got %v", err)
	}
	if _, err := service.CreateUnit(context.Background(), "prop-1", "Walk-in", "OVEN"); !errors.Is(err, ErrInvalidUnitType) {
		t.Fatalf("expected ErrInvalidUnitType, got %v", err)
	}
}

func TestCreateUnit_DefaultsToFridge(t *testing.T) {
	repo := &stubUnitRepo{}
	service := newService(t, repo, &stubCheckRepo{})

	unit, err := service.CreateUnit(context.Background(), "prop-1", "Walk-in", "")
	if err != nil {
		t.Fatalf("create unit: %v", err)
	}
	if unit.Type != refrigeration.UnitFridge {
		t.Fatalf("expected FRIDGE default, got %s", unit.Type)
	}
	if unit.ID == "" || !unit.IsActive {
		t.Fatalf("unexpected unit: %+v", unit)
	}
}

func TestCreateUnit_DuplicateNameBubbles(t *testing.T) {
	repo := &stubUnitRepo{insertErr: refrigeration.ErrDuplicateName}
	service := newService(t, repo, &stubCheckRepo{})

	_, err := service.CreateUnit(context.Background(), "prop-1", "Walk-in", "FRIDGE")
	if !errors.Is(err, refrigeration.ErrDuplicateName) {
		t.Fatalf("expected ErrDuplicateName, got %v", err)
	}
}

func TestRecordCheck_NormalRequiresReading(t *testing.T) {
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{"u1": fridge("u1")}}, &stubCheckRepo{})

	_, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u1", Period: "AM", Status: "NORMAL",
	})
	if !errors.Is(err, ErrReadingRequired) {
		t.Fatalf("expected ErrReadingRequired, got %v", err)
	}
}

func TestRecordCheck_RejectsForeignUnit(t *testing.T) {
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{}}, &stubCheckRepo{})

	_, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u-other", ValueC: floatPtr(4),
	})
	if !errors.Is(err, ErrUnknownUnit) {
		t.Fatalf("expected ErrUnknownUnit, got %v", err)
	}
}

func TestRecordCheck_ClassifiesFridgeReading(t *testing.T) {
	checks := &stubCheckRepo{}
	notifier := &captureNotifier{}
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{"u1": fridge("u1")}}, checks, WithNotifier(notifier))

	// Default fridge band is 1.0..5.0 C.
	check, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u1", Period: "AM", ValueC: floatPtr(4.0),
	})
	if err != nil {
		t.Fatalf("record check: %v", err)
	}
	if check.InRange == nil || !*check.InRange {
		t.Fatalf("expected in range, got %v", check.InRange)
	}
	if len(notifier.checks) != 0 {
		t.Fatalf("expected no alert, got %d", len(notifier.checks))
	}

	check, err = service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u1", Period: "PM", ValueC: floatPtr(8.5),
	})
	if err != nil {
		t.Fatalf("record check: %v", err)
	}
	if check.InRange == nil || *check.InRange {
		t.Fatalf("expected out of range, got %v", check.InRange)
	}
	if len(notifier.checks) != 1 {
		t.Fatalf("expected 1 alert, got %d", len(notifier.checks))
	}
}

func TestRecordCheck_FreezerBand(t *testing.T) {
	checks := &stubCheckRepo{}
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{"f1": freezer("f1")}}, checks)

	// Default freezer band is -25.0..-15.0 C.
	check, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "f1", Period: "AM", ValueC: floatPtr(-18),
	})
	if err != nil {
		t.Fatalf("record check: %v", err)
	}
	if check.InRange == nil || !*check.InRange {
		t.Fatalf("expected in range, got %v", check.InRange)
	}
}

func TestRecordCheck_DefrostSkipsClassification(t *testing.T) {
	checks := &stubCheckRepo{}
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{"u1": fridge("u1")}}, checks)

	check, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u1", Period: "AM", Status: "DEFROST",
		ValueC: floatPtr(12),
	})
	if err != nil {
		t.Fatalf("record check: %v", err)
	}
	if check.ValueC != nil {
		t.Fatalf("expected DEFROST reading dropped, got %v", *check.ValueC)
	}
	if check.InRange != nil {
		t.Fatal("expected no classification for DEFROST")
	}
}

func TestTodayLatest_LatestPerUnitAndPeriod(t *testing.T) {
	checks := &stubCheckRepo{since: []refrigeration.Check{
		{
			ID: "c3", PropertyID: "prop-1", UnitID: "u1", Period: refrigeration.CheckAM,
			Status: refrigeration.CheckNormal, ValueC: floatPtr(3.5),
			CreatedByUserID: "user-1", LoggedAt: now.Add(-time.Hour),
		},
		{
			ID: "c2", PropertyID: "prop-1", UnitID: "u1", Period: refrigeration.CheckAM,
			Status: refrigeration.CheckNormal, ValueC: floatPtr(6.0),
			CreatedByUserID: "user-1", LoggedAt: now.Add(-2 * time.Hour),
		},
		{
			ID: "c1", PropertyID: "prop-1", UnitID: "u1", Period: refrigeration.CheckPM,
			Status: refrigeration.CheckDefrost,
			CreatedByUserID: "user-2", LoggedAt: now.Add(-3 * time.Hour),
		},
	}}
	service, err := NewService(&stubUnitRepo{}, checks, stubSettingsRepo{}, stubUsers{users: map[string]property.User{
		"user-1": {ID: "user-1", Email: "amy@example.com"},
	}}, fakeClock{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	latest, err := service.TodayLatest(context.Background(), "prop-1")
	if err != nil {
		t.Fatalf("today latest: %v", err)
	}
	if len(latest) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(latest))
	}
	am := latest["u1:AM"]
	if am.ValueC == nil || *am.ValueC != 3.5 {
		t.Fatalf("expected newest AM reading 3.5, got %v", am.ValueC)
	}
	if am.ByEmail != "amy@example.com" {
		t.Fatalf("expected byEmail set, got %q", am.ByEmail)
	}
	if latest["u1:PM"].Status != refrigeration.CheckDefrost {
		t.Fatalf("expected PM defrost, got %+v", latest["u1:PM"])
	}
}

func TestRecordCheck_UnknownStatusTreatedAsNormal(t *testing.T) {
	service := newService(t, &stubUnitRepo{active: map[string]*refrigeration.Unit{"u1": fridge("u1")}}, &stubCheckRepo{})

	_, err := service.RecordCheck(context.Background(), CheckRequest{
		PropertyID: "prop-1", UserID: "user-1", UnitID: "u1", Status: "BROKEN",
	})
	if !errors.Is(err, ErrReadingRequired) {
		t.Fatalf("expected ErrReadingRequired, got %v", err)
	}
}
