package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	property "kitchensafe-cloud/internal/property/domain"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
	settings "kitchensafe-cloud/internal/settings/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

var (
	// ErrNameRequired indicates a unit create without a name.
	ErrNameRequired = errors.New("refrigeration: unit name is required")
	// ErrInvalidUnitType indicates an unknown unit type.
	ErrInvalidUnitType = errors.New("refrigeration: type must be FRIDGE or FREEZER")
	// ErrUnknownUnit indicates a check against a unit the property does not own.
	ErrUnknownUnit = errors.New("refrigeration: invalid refrigeration unit")
	// ErrReadingRequired indicates a NORMAL check without a reading.
	ErrReadingRequired = errors.New("refrigeration: reading is required for NORMAL checks")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// AlertNotifier is told about readings outside the safe band.
type AlertNotifier interface {
	ReadingOutOfRange(ctx context.Context, propertyID string, unit refrigeration.Unit, check refrigeration.Check)
}

// Metrics counts check writes.
type Metrics interface {
	IncCheckWrite(status string, inRange bool)
}

// Service coordinates refrigeration units and temperature checks.
type Service struct {
	units    refrigeration.UnitRepository
	checks   refrigeration.CheckRepository
	settings settings.Repository
	users    property.UserDirectory
	clock    Clock
	notifier AlertNotifier
	metrics  Metrics
}

// Option configures the service.
type Option func(*Service)

// WithNotifier attaches an alert notifier.
func WithNotifier(notifier AlertNotifier) Option {
	return func(s *Service) { s.notifier = notifier }
}

// WithMetrics attaches metrics.
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService constructs a Service.
func NewService(units refrigeration.UnitRepository, checks refrigeration.CheckRepository, settingsRepo settings.Repository, users property.UserDirectory, clock Clock, opts ...Option) (*Service, error) {
	if units == nil {
		return nil, errors.New("refrigeration service: nil unit repository")
	}
	if checks == nil {
		return nil, errors.New("refrigeration service: nil check repository")
	}
	if settingsRepo == nil {
		return nil, errors.New("refrigeration service: nil settings repository")
	}
	if clock == nil {
		return nil, errors.New("refrigeration service: nil clock")
	}
	service := &Service{units: units, checks: checks, settings: settingsRepo, users: users, clock: clock}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateUnit registers a refrigeration unit.
func (s *Service) CreateUnit(ctx context.Context, propertyID, name, unitType string) (refrigeration.Unit, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return refrigeration.Unit{}, ErrNameRequired
	}
	normalized, ok := refrigeration.NormalizeUnitType(unitType)
	if !ok {
		return refrigeration.Unit{}, ErrInvalidUnitType
	}

	now := s.clock.Now().UTC()
	unit := refrigeration.Unit{
		ID:         uuid.NewString(),
		PropertyID: propertyID,
		Name:       name,
		Type:       normalized,
		IsActive:   true,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	if err := s.units.Insert(ctx, &unit); err != nil {
		return refrigeration.Unit{}, err
	}
	return unit, nil
}

// ListUnits returns the property's active units ordered by name.
func (s *Service) ListUnits(ctx context.Context, propertyID string) ([]refrigeration.Unit, error) {
	units, err := s.units.ListActive(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if units == nil {
		units = []refrigeration.Unit{}
	}
	return units, nil
}

// DeactivateUnit retires a unit; its history stays queryable.
func (s *Service) DeactivateUnit(ctx context.Context, propertyID, unitID string) error {
	ok, err := s.units.Deactivate(ctx, propertyID, unitID)
	if err != nil {
		return err
	}
	if !ok {
		return ErrUnknownUnit
	}
	return nil
}

// CheckRequest is a single unit reading.
type CheckRequest struct {
	PropertyID string
	UserID     string
	UnitID     string
	Period     string
	Status     string
	ValueC     *float64
	Notes      string
}

// RecordCheck writes a reading. NORMAL checks are classified against the
// property's safe band for the unit type; DEFROST checks never carry a
// reading and are never classified.
func (s *Service) RecordCheck(ctx context.Context, req CheckRequest) (refrigeration.Check, error) {
	if req.UnitID == "" {
		return refrigeration.Check{}, ErrUnknownUnit
	}
	status, ok := refrigeration.NormalizeCheckStatus(req.Status)
	if !ok {
		status = refrigeration.CheckNormal
	}
	if status == refrigeration.CheckNormal && req.ValueC == nil {
		return refrigeration.Check{}, ErrReadingRequired
	}

	unit, err := s.units.GetActive(ctx, req.PropertyID, req.UnitID)
	if err != nil {
		return refrigeration.Check{}, err
	}
	if unit == nil {
		return refrigeration.Check{}, ErrUnknownUnit
	}

	check := refrigeration.Check{
		ID:              uuid.NewString(),
		PropertyID:      req.PropertyID,
		UnitID:          req.UnitID,
		Period:          refrigeration.NormalizeCheckPeriod(req.Period),
		Status:          status,
		Notes:           strings.TrimSpace(req.Notes),
		CreatedByUserID: req.UserID,
		LoggedAt:        s.clock.Now().UTC(),
	}

	if status == refrigeration.CheckNormal {
		check.ValueC = req.ValueC

		propertySettings, err := s.settings.Get(ctx, req.PropertyID)
		if err != nil {
			return refrigeration.Check{}, err
		}
		inRange := s.safeRange(*unit, propertySettings).Contains(*req.ValueC)
		check.InRange = &inRange
	}

	if err := s.checks.Insert(ctx, &check); err != nil {
		return refrigeration.Check{}, err
	}
	if s.metrics != nil {
		inRange := check.InRange == nil || *check.InRange
		s.metrics.IncCheckWrite(string(check.Status), inRange)
	}
	if check.InRange != nil && !*check.InRange && s.notifier != nil {
		s.notifier.ReadingOutOfRange(ctx, req.PropertyID, *unit, check)
	}
	return check, nil
}

// LatestCheck is the freshest reading for one unit and period.
type LatestCheck struct {
	UnitID   string                    `json:"unitId"`
	Period   refrigeration.CheckPeriod `json:"period"`
	Status   refrigeration.CheckStatus `json:"status"`
	ValueC   *float64                  `json:"valueC"`
	InRange  *bool                     `json:"inRange,omitempty"`
	Notes    string                    `json:"notes,omitempty"`
	LoggedAt time.Time                 `json:"loggedAt"`
	ByEmail  string                    `json:"byEmail,omitempty"`
}

// TodayLatest returns the latest AM and PM check per unit for the current
// UTC day, keyed "unitID:period".
func (s *Service) TodayLatest(ctx context.Context, propertyID string) (map[string]LatestCheck, error) {
	dayStart := templog.UTCDayStart(s.clock.Now())
	checks, err := s.checks.ListSince(ctx, propertyID, dayStart)
	if err != nil {
		return nil, err
	}

	emails := s.resolveEmails(ctx, checks)

	latest := make(map[string]LatestCheck)
	for _, check := range checks {
		key := check.UnitID + ":" + string(check.Period)
		if _, ok := latest[key]; ok {
			continue
		}
		latest[key] = LatestCheck{
			UnitID:   check.UnitID,
			Period:   check.Period,
			Status:   check.Status,
			ValueC:   check.ValueC,
			InRange:  check.InRange,
			Notes:    check.Notes,
			LoggedAt: check.LoggedAt,
			ByEmail:  emails[check.CreatedByUserID],
		}
	}
	return latest, nil
}

func (s *Service) safeRange(unit refrigeration.Unit, ps settings.PropertySettings) refrigeration.SafeRange {
	if unit.Type == refrigeration.UnitFreezer {
		return refrigeration.SafeRange{MinTenthC: ps.FreezerMinTenthC, MaxTenthC: ps.FreezerMaxTenthC}
	}
	return refrigeration.SafeRange{MinTenthC: ps.FridgeMinTenthC, MaxTenthC: ps.FridgeMaxTenthC}
}

func (s *Service) resolveEmails(ctx context.Context, checks []refrigeration.Check) map[string]string {
	emails := make(map[string]string)
	if s.users == nil || len(checks) == 0 {
		return emails
	}
	ids := make([]string, 0, len(checks))
	seen := make(map[string]struct{})
	for _, check := range checks {
		if check.CreatedByUserID == "" {
			continue
		}
		if _, ok := seen[check.CreatedByUserID]; ok {
			continue
		}
		seen[check.CreatedByUserID] = struct{}{}
		ids = append(ids, check.CreatedByUserID)
	}
	users, err := s.users.GetUsers(ctx, ids)
	if err != nil {
		return emails
	}
	for id, user := range users {
		emails[id] = user.Email
	}
	return emails
}
