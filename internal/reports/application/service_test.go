package application

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	blastchill "kitchensafe-cloud/internal/blastchill/domain"
	maintenance "kitchensafe-cloud/internal/maintenance/domain"
	property "kitchensafe-cloud/internal/property/domain"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

var now = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fakeClock struct{}

func (fakeClock) Now() time.Time { return now }

type stubProperties struct{}

func (stubProperties) Get(context.Context, string) (*property.Property, error) {
	return &property.Property{ID: "prop-1", Name: "Harbour Kitchen"}, nil
}

func (stubProperties) Save(context.Context, *property.Property) error { return nil }

type stubRecords struct {
	logs   []templog.Record
	events []templog.Record
}

func (s *stubRecords) Insert(context.Context, *templog.Record) error { return nil }

func (s *stubRecords) ListDay(context.Context, string, time.Time) ([]templog.Record, error) {
	return nil, nil
}

func (s *stubRecords) ListRange(context.Context, string, time.Time, time.Time) ([]templog.Record, error) {
	return s.logs, nil
}

func (s *stubRecords) ListChillEvents(context.Context, string, time.Time) ([]templog.Record, error) {
	return s.events, nil
}

func (s *stubRecords) LatestChillStart(context.Context, string, string, string) (*templog.Record, error) {
	return nil, nil
}

type stubChecks struct {
	checks []refrigeration.Check
}

func (s *stubChecks) Insert(context.Context, *refrigeration.Check) error { return nil }

func (s *stubChecks) ListSince(context.Context, string, time.Time) ([]refrigeration.Check, error) {
	return nil, nil
}

func (s *stubChecks) ListRange(context.Context, string, time.Time, time.Time) ([]refrigeration.Check, error) {
	return s.checks, nil
}

type stubUnits struct {
	units []refrigeration.Unit
}

func (s *stubUnits) Insert(context.Context, *refrigeration.Unit) error { return nil }

func (s *stubUnits) GetActive(context.Context, string, string) (*refrigeration.Unit, error) {
	return nil, nil
}

func (s *stubUnits) ListActive(context.Context, string) ([]refrigeration.Unit, error) {
	return s.units, nil
}

func (s *stubUnits) Deactivate(context.Context, string, string) (bool, error) {
	return false, nil
}

type stubTickets struct {
	tickets []maintenance.Ticket
}

func (s *stubTickets) Insert(context.Context, *maintenance.Ticket) error { return nil }

func (s *stubTickets) List(context.Context, string) ([]maintenance.Ticket, error) {
	return s.tickets, nil
}

func (s *stubTickets) Complete(context.Context, string, string, string, time.Time) (bool, error) {
	return false, nil
}

func (s *stubTickets) Exists(context.Context, string, string) (bool, error) {
	return false, nil
}

func floatPtr(v float64) *float64 { return &v }

func newService(t *testing.T, records *stubRecords, checks *stubChecks, units *stubUnits, tickets *stubTickets) *Service {
	t.Helper()
	service, err := NewService(stubProperties{}, records, checks, units, tickets, fakeClock{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return service
}

func TestBuildPack_DefaultsToRetentionWindow(t *testing.T) {
	service := newService(t, &stubRecords{}, &stubChecks{}, &stubUnits{}, &stubTickets{})

	pack, err := service.BuildPack(context.Background(), "prop-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("build pack: %v", err)
	}
	if !pack.To.Equal(now) {
		t.Fatalf("expected to=%v, got %v", now, pack.To)
	}
	if !pack.From.Equal(now.Add(-90 * 24 * time.Hour)) {
		t.Fatalf("unexpected from %v", pack.From)
	}
	if pack.PropertyName != "Harbour Kitchen" {
		t.Fatalf("unexpected property name %q", pack.PropertyName)
	}
}

func TestBuildPack_RejectsInvertedRange(t *testing.T) {
	service := newService(t, &stubRecords{}, &stubChecks{}, &stubUnits{}, &stubTickets{})

	_, err := service.BuildPack(context.Background(), "prop-1", now, now.Add(-time.Hour))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestBuildPack_ReconcilesBatchesAndJoinsUnits(t *testing.T) {
	startAt := now.Add(-2 * time.Hour)
	endAt := startAt.Add(45 * time.Minute)
	records := &stubRecords{
		events: []templog.Record{
			{
				ID: "r-1", PropertyID: "prop-1", FoodName: "Beef stew",
				ChillEvent: templog.ChillStart, BatchID: "bc-1",
				LoggedAt: startAt, TempC: floatPtr(70),
			},
			{
				ID: "r-2", PropertyID: "prop-1", FoodName: "Beef stew",
				ChillEvent: templog.ChillEnd, BatchID: "bc-1",
				LoggedAt: endAt, TempC: floatPtr(4), Status: templog.StatusOK,
			},
		},
	}
	checks := &stubChecks{checks: []refrigeration.Check{
		{ID: "c-1", PropertyID: "prop-1", UnitID: "u-1", ValueC: floatPtr(3.5), LoggedAt: now.Add(-time.Hour)},
	}}
	units := &stubUnits{units: []refrigeration.Unit{
		{ID: "u-1", PropertyID: "prop-1", Name: "Walk-in fridge", Type: refrigeration.UnitFridge},
	}}
	service := newService(t, records, checks, units, &stubTickets{})

	pack, err := service.BuildPack(context.Background(), "prop-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("build pack: %v", err)
	}
	if len(pack.Batches) != 1 {
		t.Fatalf("expected 1 batch, got %d", len(pack.Batches))
	}
	batch := pack.Batches[0]
	if batch.BatchID != "bc-1" || batch.Open() {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.Minutes == nil || *batch.Minutes != 45 {
		t.Fatalf("expected 45 minutes, got %v", batch.Minutes)
	}
	if batch.Status != blastchill.StatusOK {
		t.Fatalf("expected OK verdict, got %s", batch.Status)
	}
	if len(pack.FridgeChecks) != 1 || pack.FridgeChecks[0].UnitName != "Walk-in fridge" {
		t.Fatalf("unit not joined: %+v", pack.FridgeChecks)
	}
}

func TestBuildPack_FiltersOldMaintenance(t *testing.T) {
	tickets := &stubTickets{tickets: []maintenance.Ticket{
		{ID: "t-1", PropertyID: "prop-1", Title: "Door seal", CreatedAt: now.Add(-3 * 24 * time.Hour)},
		{ID: "t-2", PropertyID: "prop-1", Title: "Old fault", CreatedAt: now.Add(-30 * 24 * time.Hour)},
	}}
	service := newService(t, &stubRecords{}, &stubChecks{}, &stubUnits{}, tickets)

	pack, err := service.BuildPack(context.Background(), "prop-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("build pack: %v", err)
	}
	if len(pack.Maintenance) != 1 || pack.Maintenance[0].ID != "t-1" {
		t.Fatalf("expected only recent ticket, got %+v", pack.Maintenance)
	}
}

func TestExportPDF_ProducesDocument(t *testing.T) {
	records := &stubRecords{logs: []templog.Record{
		{ID: "r-1", PropertyID: "prop-1", FoodName: "Soup", LoggedAt: now.Add(-time.Hour),
			TempC: floatPtr(63.5), Period: templog.PeriodAM, Status: templog.StatusOK},
	}}
	service := newService(t, records, &stubChecks{}, &stubUnits{}, &stubTickets{})

	data, err := service.ExportPDF(context.Background(), "prop-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("export pdf: %v", err)
	}
	if !bytes.HasPrefix(data, []byte("%PDF")) {
		t.Fatalf("expected PDF magic, got %q", data[:min(8, len(data))])
	}
}

func TestExportXLSX_ProducesWorkbook(t *testing.T) {
	service := newService(t, &stubRecords{}, &stubChecks{}, &stubUnits{}, &stubTickets{})

	data, err := service.ExportXLSX(context.Background(), "prop-1", time.Time{}, time.Time{})
	if err != nil {
		t.Fatalf("export xlsx: %v", err)
	}
	if len(data) < 4 || data[0] != 'P' || data[1] != 'K' {
		t.Fatal("expected ZIP magic")
	}
}
