package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	blastchill "kitchensafe-cloud/internal/blastchill/domain"
	property "kitchensafe-cloud/internal/property/domain"
	settings "kitchensafe-cloud/internal/settings/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

// openBatchWindow bounds how far back reconciliation looks for candidate
// events. Batches older than this are EHO-report territory, not live ops.
const openBatchWindow = 90 * 24 * time.Hour

var (
	// ErrStartTempRequired indicates a START without a starting temperature.
	ErrStartTempRequired = errors.New("blast chill: start temperature is required")
	// ErrEndTempRequired indicates an END without a finishing temperature.
	ErrEndTempRequired = errors.New("blast chill: finish temperature is required")
	// ErrFoodNameRequired indicates a missing food name.
	ErrFoodNameRequired = errors.New("blast chill: food name is required")
	// ErrNoOpenBatch indicates an END with no START to pair with; an orphan
	// END cannot be scored, so the write is rejected.
	ErrNoOpenBatch = errors.New("blast chill: no START found for this batch")
	// ErrEndBeforeStart indicates an END logged earlier than its START.
	ErrEndBeforeStart = errors.New("blast chill: END logged before START")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// AlertNotifier is told about failed chill cycles. Implementations must be
// safe to call from the request path.
type AlertNotifier interface {
	BatchOutOfRange(ctx context.Context, propertyID string, batch blastchill.Batch)
}

// Metrics records reconciliation observations.
type Metrics interface {
	ObserveReconcile(result string, seconds float64)
}

// Service coordinates blast-chill writes and read projections.
type Service struct {
	records  templog.Repository
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
func NewService(records templog.Repository, settingsRepo settings.Repository, users property.UserDirectory, clock Clock, opts ...Option) (*Service, error) {
	if records == nil {
		return nil, errors.New("blast chill service: nil record repository")
	}
	if settingsRepo == nil {
		return nil, errors.New("blast chill service: nil settings repository")
	}
	if clock == nil {
		return nil, errors.New("blast chill service: nil clock")
	}
	service := &Service{records: records, settings: settingsRepo, users: users, clock: clock}
	for _, opt := range opts {
		opt(service)
	}
	return service, nil
}

// StartRequest begins a chill cycle.
type StartRequest struct {
	PropertyID string
	UserID     string
	FoodName   string
	TempC      *float64
	Notes      string
	LoggedAt   *time.Time
}

// StartResponse reports the created START record.
type StartResponse struct {
	BatchID  string    `json:"batchId"`
	RecordID string    `json:"recordId"`
	FoodName string    `json:"foodName"`
	StartAt  time.Time `json:"startAt"`
}

// StartBatch logs a START event with a fresh batch id.
func (s *Service) StartBatch(ctx context.Context, req StartRequest) (StartResponse, error) {
	foodName := strings.TrimSpace(req.FoodName)
	if foodName == "" {
		return StartResponse{}, ErrFoodNameRequired
	}
	if req.TempC == nil {
		return StartResponse{}, ErrStartTempRequired
	}

	loggedAt := s.clock.Now().UTC()
	if req.LoggedAt != nil {
		loggedAt = req.LoggedAt.UTC()
	}

	record := &templog.Record{
		ID:              uuid.NewString(),
		PropertyID:      req.PropertyID,
		FoodName:        foodName,
		LoggedAt:        loggedAt,
		TempC:           req.TempC,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          templog.StatusOK,
		ChillEvent:      templog.ChillStart,
		BatchID:         uuid.NewString(),
		CreatedByUserID: req.UserID,
	}
	if err := s.records.Insert(ctx, record); err != nil {
		return StartResponse{}, err
	}
	return StartResponse{
		BatchID:  record.BatchID,
		RecordID: record.ID,
		FoodName: record.FoodName,
		StartAt:  record.LoggedAt,
	}, nil
}

// EndRequest completes a chill cycle.
type EndRequest struct {
	PropertyID string
	UserID     string
	BatchID    string
	FoodName   string
	TempC      *float64
	Notes      string
	LoggedAt   *time.Time
}

// EndResponse reports the scored END record.
type EndResponse struct {
	BatchID  string    `json:"batchId"`
	RecordID string    `json:"recordId"`
	FoodName string    `json:"foodName"`
	StartAt  time.Time `json:"startAt"`
	EndAt    time.Time `json:"endAt"`
	Minutes  int       `json:"minutes"`
	Status   string    `json:"status"`
}

// EndBatch logs an END event, pairing it with its START and stamping the
// verdict. The verdict is computed once, against the thresholds in force
// now, and never revisited.
func (s *Service) EndBatch(ctx context.Context, req EndRequest) (EndResponse, error) {
	foodName := strings.TrimSpace(req.FoodName)
	if foodName == "" && req.BatchID == "" {
		return EndResponse{}, ErrFoodNameRequired
	}
	if req.TempC == nil {
		return EndResponse{}, ErrEndTempRequired
	}

	loggedAt := s.clock.Now().UTC()
	if req.LoggedAt != nil {
		loggedAt = req.LoggedAt.UTC()
	}

	start, err := s.records.LatestChillStart(ctx, req.PropertyID, req.BatchID, foodName)
	if err != nil {
		return EndResponse{}, err
	}
	if start == nil {
		return EndResponse{}, ErrNoOpenBatch
	}
	if loggedAt.Before(start.LoggedAt) {
		return EndResponse{}, ErrEndBeforeStart
	}
	if foodName == "" {
		foodName = start.FoodName
	}

	minutes := blastchill.ElapsedMinutes(start.LoggedAt, loggedAt)

	propertySettings, err := s.settings.Get(ctx, req.PropertyID)
	if err != nil {
		return EndResponse{}, err
	}
	verdict := blastchill.Verdict(*req.TempC, minutes, blastchill.Thresholds{
		TargetTenthC: propertySettings.BlastChillTargetTenthC,
		MaxMinutes:   propertySettings.BlastChillMaxMinutes,
	})

	record := &templog.Record{
		ID:              uuid.NewString(),
		PropertyID:      req.PropertyID,
		FoodName:        foodName,
		LoggedAt:        loggedAt,
		TempC:           req.TempC,
		Notes:           strings.TrimSpace(req.Notes),
		Status:          templog.Status(verdict),
		ChillEvent:      templog.ChillEnd,
		BatchID:         start.BatchID,
		ChillMinutes:    &minutes,
		CreatedByUserID: req.UserID,
	}
	if err := s.records.Insert(ctx, record); err != nil {
		return EndResponse{}, err
	}

	response := EndResponse{
		BatchID:  start.BatchID,
		RecordID: record.ID,
		FoodName: foodName,
		StartAt:  start.LoggedAt,
		EndAt:    loggedAt,
		Minutes:  minutes,
		Status:   verdict,
	}
	if verdict == blastchill.StatusOutOfRange && s.notifier != nil {
		s.notifier.BatchOutOfRange(ctx, req.PropertyID, blastchill.Batch{
			BatchID:  start.BatchID,
			FoodName: foodName,
			StartAt:  &start.LoggedAt,
			EndAt:    &loggedAt,
			EndTempC: req.TempC,
			Minutes:  &minutes,
			Status:   verdict,
		})
	}
	return response, nil
}

// BatchView is a batch decorated with display identities for the UI.
type BatchView struct {
	blastchill.Batch
	StartBy string `json:"startBy,omitempty"`
	EndBy   string `json:"endBy,omitempty"`
}

// OpenBatches returns currently-open batches from the candidate window,
// newest first, with the starting user's identity attached.
func (s *Service) OpenBatches(ctx context.Context, propertyID string) ([]BatchView, error) {
	batches, err := s.reconcileWindow(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	var open []blastchill.Batch
	for _, batch := range batches {
		if batch.Open() {
			open = append(open, batch)
		}
	}
	return s.decorate(ctx, open)
}

// TodayBatches returns batches completed during the current UTC day, newest
// first, with both user identities attached.
func (s *Service) TodayBatches(ctx context.Context, propertyID string) ([]BatchView, error) {
	batches, err := s.reconcileWindow(ctx, propertyID)
	if err != nil {
		return nil, err
	}

	dayStart := templog.UTCDayStart(s.clock.Now())
	dayEnd := dayStart.Add(24 * time.Hour)

	var today []blastchill.Batch
	for _, batch := range batches {
		if batch.Open() {
			continue
		}
		if !batch.EndAt.Before(dayStart) && batch.EndAt.Before(dayEnd) {
			today = append(today, batch)
		}
	}
	return s.decorate(ctx, today)
}

func (s *Service) reconcileWindow(ctx context.Context, propertyID string) ([]blastchill.Batch, error) {
	from := s.clock.Now().UTC().Add(-openBatchWindow)
	records, err := s.records.ListChillEvents(ctx, propertyID, from)
	if err != nil {
		if s.metrics != nil {
			s.metrics.ObserveReconcile("error", 0)
		}
		return nil, err
	}

	events := make([]blastchill.Event, 0, len(records))
	for _, rec := range records {
		events = append(events, recordToEvent(rec))
	}

	started := time.Now()
	batches := blastchill.Reconcile(events)
	if s.metrics != nil {
		s.metrics.ObserveReconcile("success", time.Since(started).Seconds())
	}
	return batches, nil
}

func recordToEvent(rec templog.Record) blastchill.Event {
	kind := blastchill.KindStart
	if rec.ChillEvent == templog.ChillEnd {
		kind = blastchill.KindEnd
	}
	return blastchill.Event{
		RecordID: rec.ID,
		Kind:     kind,
		BatchID:  rec.BatchID,
		FoodName: rec.FoodName,
		LoggedAt: rec.LoggedAt,
		TempC:    rec.TempC,
		Notes:    rec.Notes,
		Status:   string(rec.Status),
		UserID:   rec.CreatedByUserID,
	}
}

func (s *Service) decorate(ctx context.Context, batches []blastchill.Batch) ([]BatchView, error) {
	views := make([]BatchView, 0, len(batches))
	if len(batches) == 0 {
		return views, nil
	}

	users := map[string]property.User{}
	if s.users != nil {
		ids := make([]string, 0, len(batches)*2)
		seen := make(map[string]struct{})
		for _, batch := range batches {
			for _, id := range []string{batch.StartUserID, batch.EndUserID} {
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

	for _, batch := range batches {
		view := BatchView{Batch: batch}
		if user, ok := users[batch.StartUserID]; ok {
			view.StartBy = user.DisplayName()
		}
		if user, ok := users[batch.EndUserID]; ok {
			view.EndBy = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}
