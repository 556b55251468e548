package application

import (
	"context"
	"errors"
	"time"

	blastchill "kitchensafe-cloud/internal/blastchill/domain"
	maintenance "kitchensafe-cloud/internal/maintenance/domain"
	property "kitchensafe-cloud/internal/property/domain"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

// Window bounds for the inspection pack. Food and fridge history cover the
// retention window; maintenance only the recent fortnight.
const (
	logWindow         = 90 * 24 * time.Hour
	maintenanceWindow = 14 * 24 * time.Hour
)

// ErrInvalidRange indicates a malformed or inverted from/to range.
var ErrInvalidRange = errors.New("reports: invalid from/to range")

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Metrics counts pack exports.
type Metrics interface {
	IncReportExport(format string)
}

// Pack is everything an inspection pack renders.
type Pack struct {
	PropertyName string
	From, To     time.Time
	GeneratedAt  time.Time

	FoodLogs     []templog.Record
	Batches      []blastchill.Batch
	FridgeChecks []FridgeCheckRow
	Maintenance  []maintenance.Ticket
}

// FridgeCheckRow is a unit check joined with its unit's name and type.
type FridgeCheckRow struct {
	refrigeration.Check
	UnitName string
	UnitType refrigeration.UnitType
}

// Service assembles inspection packs.
type Service struct {
	properties property.PropertyRepository
	records    templog.Repository
	checks     refrigeration.CheckRepository
	units      refrigeration.UnitRepository
	tickets    maintenance.Repository
	clock      Clock
	metrics    Metrics
}

// Option configures the service.
type Option func(*Service)

// WithMetrics attaches metrics.
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService constructs a Service.
func NewService(properties property.PropertyRepository, records templog.Repository, checks refrigeration.CheckRepository, units refrigeration.UnitRepository, tickets maintenance.Repository, clock Clock, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("reports service: nil record repository")
	}
	if checks == nil {
		return nil, errors.New("reports service: nil check repository")
	}
	if tickets == nil {
		return nil, errors.New("reports service: nil ticket repository")
	}
	if clock == nil {
		return nil, errors.New("reports service: nil clock")
	}
	service := &Service{
		properties: properties,
		records:    records,
		checks:     checks,
		units:      units,
		tickets:    tickets,
		clock:      clock,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// BuildPack gathers the pack's data for [from, to). Zero bounds default to
// the retention window ending now.
func (s *Service) BuildPack(ctx context.Context, propertyID string, from, to time.Time) (Pack, error) {
	now := s.clock.Now().UTC()
	if to.IsZero() {
		to = now
	}
	if from.IsZero() {
		from = to.Add(-logWindow)
	}
	if !from.Before(to) {
		return Pack{}, ErrInvalidRange
	}

	pack := Pack{From: from.UTC(), To: to.UTC(), GeneratedAt: now}

	if s.properties != nil {
		prop, err := s.properties.Get(ctx, propertyID)
		if err != nil {
			return Pack{}, err
		}
		if prop != nil {
			pack.PropertyName = prop.Name
		}
	}

	foodLogs, err := s.records.ListRange(ctx, propertyID, pack.From, pack.To)
	if err != nil {
		return Pack{}, err
	}
	pack.FoodLogs = foodLogs

	chillEvents, err := s.records.ListChillEvents(ctx, propertyID, pack.From)
	if err != nil {
		return Pack{}, err
	}
	pack.Batches = reconcileBatches(chillEvents, pack.To)

	checks, err := s.checks.ListRange(ctx, propertyID, pack.From, pack.To)
	if err != nil {
		return Pack{}, err
	}
	pack.FridgeChecks, err = s.joinUnits(ctx, propertyID, checks)
	if err != nil {
		return Pack{}, err
	}

	maintenanceFrom := now.Add(-maintenanceWindow)
	tickets, err := s.tickets.List(ctx, propertyID)
	if err != nil {
		return Pack{}, err
	}
	for _, ticket := range tickets {
		if ticket.CreatedAt.Before(maintenanceFrom) {
			continue
		}
		pack.Maintenance = append(pack.Maintenance, ticket)
	}

	return pack, nil
}

// ExportPDF renders the pack as a PDF.
func (s *Service) ExportPDF(ctx context.Context, propertyID string, from, to time.Time) ([]byte, error) {
	pack, err := s.BuildPack(ctx, propertyID, from, to)
	if err != nil {
		return nil, err
	}
	data, err := RenderPackPDF(pack)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncReportExport("pdf")
	}
	return data, nil
}

// ExportXLSX renders the pack as a spreadsheet.
func (s *Service) ExportXLSX(ctx context.Context, propertyID string, from, to time.Time) ([]byte, error) {
	pack, err := s.BuildPack(ctx, propertyID, from, to)
	if err != nil {
		return nil, err
	}
	data, err := RenderPackXLSX(pack)
	if err != nil {
		return nil, err
	}
	if s.metrics != nil {
		s.metrics.IncReportExport("xlsx")
	}
	return data, nil
}

func reconcileBatches(records []templog.Record, to time.Time) []blastchill.Batch {
	events := make([]blastchill.Event, 0, len(records))
	for _, rec := range records {
		if rec.LoggedAt.After(to) {
			continue
		}
		kind := blastchill.KindStart
		if rec.ChillEvent == templog.ChillEnd {
			kind = blastchill.KindEnd
		}
		events = append(events, blastchill.Event{
			RecordID: rec.ID,
			Kind:     kind,
			BatchID:  rec.BatchID,
			FoodName: rec.FoodName,
			LoggedAt: rec.LoggedAt,
			TempC:    rec.TempC,
			Notes:    rec.Notes,
			Status:   string(rec.Status),
			UserID:   rec.CreatedByUserID,
		})
	}
	return blastchill.Reconcile(events)
}

func (s *Service) joinUnits(ctx context.Context, propertyID string, checks []refrigeration.Check) ([]FridgeCheckRow, error) {
	rows := make([]FridgeCheckRow, 0, len(checks))
	names := map[string]refrigeration.Unit{}
	if s.units != nil {
		units, err := s.units.ListActive(ctx, propertyID)
		if err != nil {
			return nil, err
		}
		for _, unit := range units {
			names[unit.ID] = unit
		}
	}
	for _, check := range checks {
		row := FridgeCheckRow{Check: check}
		if unit, ok := names[check.UnitID]; ok {
			row.UnitName = unit.Name
			row.UnitType = unit.Type
		}
		rows = append(rows, row)
	}
	return rows, nil
}
