package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	property "kitchensafe-cloud/internal/property/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

// retentionWindow bounds how far back range queries may reach. Older rows
// stay in the table but are only surfaced through the reporting exports.
const retentionWindow = 3

// Minimum spot checks per service period for a compliant day.
const (
	minAMChecks = 5
	minPMChecks = 5
)

var (
	// ErrImmutable indicates an attempt to edit an existing log row.
	ErrImmutable = errors.New("temp log: logs are immutable and cannot be edited")
	// ErrFoodNameRequired indicates a missing food name.
	ErrFoodNameRequired = errors.New("temp log: food name is required")
	// ErrInvalidPeriod indicates a period outside AM/PM/OTHER.
	ErrInvalidPeriod = errors.New("temp log: period must be one of AM, PM, OTHER")
	// ErrInvalidStatus indicates an unknown status value.
	ErrInvalidStatus = errors.New("temp log: unknown status")
	// ErrInvalidRange indicates a malformed or inverted from/to range.
	ErrInvalidRange = errors.New("temp log: invalid from/to range")
	// ErrRangeTooOld indicates a range request past the retention window.
	ErrRangeTooOld = errors.New("temp log: range is limited to the last 3 months")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Metrics counts log writes.
type Metrics interface {
	IncLogWrite(status string)
}

// Service coordinates immutable temperature log writes and day/range reads.
type Service struct {
	records templog.Repository
	users   property.UserDirectory
	clock   Clock
	metrics Metrics
}

// Option configures the service.
type Option func(*Service)

// WithMetrics attaches metrics.
func WithMetrics(metrics Metrics) Option {
	return func(s *Service) { s.metrics = metrics }
}

// NewService constructs a Service.
func NewService(records templog.Repository, users property.UserDirectory, clock Clock, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("temp log service: nil record repository")
	}
	if clock == nil {
		return nil, errors.New("temp log service: nil clock")
	}
	service := &Service{records: records, users: users, clock: clock}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// CreateRequest is a single spot-check write.
type CreateRequest struct {
	ID         string
	PropertyID string
	UserID     string
	FoodName   string
	TempC      *float64
	Notes      string
	Period     string
	Status     string
	LoggedAt   *time.Time
}

// Create appends a log row. Rows are create-only: a client-supplied id is
// rejected rather than treated as an update.
func (s *Service) Create(ctx context.Context, req CreateRequest) (templog.Record, error) {
	if req.ID != "" {
		return templog.Record{}, ErrImmutable
	}
	foodName := strings.TrimSpace(req.FoodName)
	if foodName == "" {
		return templog.Record{}, ErrFoodNameRequired
	}
	period, ok := templog.NormalizePeriod(req.Period)
	if !ok {
		return templog.Record{}, ErrInvalidPeriod
	}
	status, ok := templog.NormalizeStatus(req.Status)
	if !ok {
		return templog.Record{}, ErrInvalidStatus
	}

	loggedAt := s.clock.Now().UTC()
	if req.LoggedAt != nil {
		loggedAt = req.LoggedAt.UTC()
	}

	record := templog.Record{
		ID:              uuid.NewString(),
		PropertyID:      req.PropertyID,
		FoodName:        foodName,
		LoggedAt:        loggedAt,
		LogDate:         templog.UTCDayStart(loggedAt),
		TempC:           req.TempC,
		Notes:           strings.TrimSpace(req.Notes),
		Period:          period,
		Status:          status,
		CreatedByUserID: req.UserID,
	}
	if err := s.records.Insert(ctx, &record); err != nil {
		return templog.Record{}, err
	}
	if s.metrics != nil {
		s.metrics.IncLogWrite(string(status))
	}
	return record, nil
}

// RecordView is a log row decorated with the logger's display identity.
type RecordView struct {
	templog.Record
	LoggedBy string `json:"loggedBy,omitempty"`
}

// Compliance summarizes whether the day met the minimum spot-check counts.
type Compliance struct {
	AMCount   int  `json:"amCount"`
	PMCount   int  `json:"pmCount"`
	AMMin     int  `json:"amMin"`
	PMMin     int  `json:"pmMin"`
	AMMissing int  `json:"amMissing"`
	PMMissing int  `json:"pmMissing"`
	AMOK      bool `json:"amOk"`
	PMOK      bool `json:"pmOk"`
}

// TodayResult is the current UTC day's logs plus the compliance summary.
type TodayResult struct {
	LogDate    time.Time    `json:"logDate"`
	Logs       []RecordView `json:"logs"`
	Compliance Compliance   `json:"compliance"`
}

// Today lists the current UTC day's logs newest first.
func (s *Service) Today(ctx context.Context, propertyID string) (TodayResult, error) {
	dayStart := templog.UTCDayStart(s.clock.Now())
	records, err := s.records.ListDay(ctx, propertyID, dayStart)
	if err != nil {
		return TodayResult{}, err
	}

	views, err := s.decorate(ctx, records)
	if err != nil {
		return TodayResult{}, err
	}

	compliance := Compliance{AMMin: minAMChecks, PMMin: minPMChecks}
	for _, rec := range records {
		switch rec.Period {
		case templog.PeriodAM:
			compliance.AMCount++
		case templog.PeriodPM:
			compliance.PMCount++
		}
	}
	compliance.AMMissing = max(0, compliance.AMMin-compliance.AMCount)
	compliance.PMMissing = max(0, compliance.PMMin-compliance.PMCount)
	compliance.AMOK = compliance.AMCount >= compliance.AMMin
	compliance.PMOK = compliance.PMCount >= compliance.PMMin

	return TodayResult{LogDate: dayStart, Logs: views, Compliance: compliance}, nil
}

// RangeResult is a bounded slice of log history.
type RangeResult struct {
	From time.Time        `json:"from"`
	To   time.Time        `json:"to"`
	Logs []templog.Record `json:"logs"`
}

// Range lists logs between from and to. Zero bounds default to the retention
// window: three months back through the end of the current UTC day.
func (s *Service) Range(ctx context.Context, propertyID string, from, to time.Time) (RangeResult, error) {
	now := s.clock.Now().UTC()
	minAllowed := templog.UTCDayStart(now.AddDate(0, -retentionWindow, 0))

	if from.IsZero() {
		from = minAllowed
	}
	if to.IsZero() {
		to = templog.UTCDayStart(now).Add(24 * time.Hour)
	}
	if !from.Before(to) {
		return RangeResult{}, ErrInvalidRange
	}
	if from.Before(minAllowed) {
		return RangeResult{}, ErrRangeTooOld
	}

	records, err := s.records.ListRange(ctx, propertyID, from, to)
	if err != nil {
		return RangeResult{}, err
	}
	if records == nil {
		records = []templog.Record{}
	}
	return RangeResult{From: from, To: to, Logs: records}, nil
}

func (s *Service) decorate(ctx context.Context, records []templog.Record) ([]RecordView, error) {
	views := make([]RecordView, 0, len(records))
	users := map[string]property.User{}
	if s.users != nil && len(records) > 0 {
		ids := make([]string, 0, len(records))
		seen := make(map[string]struct{})
		for _, rec := range records {
			if rec.CreatedByUserID == "" {
				continue
			}
			if _, ok := seen[rec.CreatedByUserID]; ok {
				continue
			}
			seen[rec.CreatedByUserID] = struct{}{}
			ids = append(ids, rec.CreatedByUserID)
		}
		resolved, err := s.users.GetUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		users = resolved
	}

	for _, rec := range records {
		view := RecordView{Record: rec}
		if user, ok := users[rec.CreatedByUserID]; ok {
			view.LoggedBy = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}
