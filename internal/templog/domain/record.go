package templog

import (
	"context"
	"errors"
	"time"
)

// Status classifies a food temperature log record.
type Status string

const (
	StatusOK         Status = "OK"
	StatusOutOfRange Status = "OUT_OF_RANGE"
	StatusDiscarded  Status = "DISCARDED"
	StatusReheated   Status = "REHEATED"
	StatusCooled     Status = "COOLED"
)

// NormalizeStatus validates a status string. Empty defaults to OK.
func NormalizeStatus(value string) (Status, bool) {
	if value == "" {
		return StatusOK, true
	}
	switch Status(value) {
	case StatusOK, StatusOutOfRange, StatusDiscarded, StatusReheated, StatusCooled:
		return Status(value), true
	default:
		return "", false
	}
}

// Period is the service period a check belongs to.
type Period string

const (
	PeriodAM    Period = "AM"
	PeriodPM    Period = "PM"
	PeriodOther Period = "OTHER"
)

// NormalizePeriod validates a period string. Empty is allowed (no period).
func NormalizePeriod(value string) (Period, bool) {
	if value == "" {
		return "", true
	}
	switch Period(value) {
	case PeriodAM, PeriodPM, PeriodOther:
		return Period(value), true
	default:
		return "", false
	}
}

// ChillEvent marks a record's role in a blast-chill batch. Blast-chill
// identity lives in dedicated columns; notes stay human commentary only.
type ChillEvent string

const (
	ChillStart ChillEvent = "START"
	ChillEnd   ChillEvent = "END"
)

// Record is an immutable food temperature log row. Rows are only ever
// inserted; corrections are new rows.
type Record struct {
	ID         string
	PropertyID string
	FoodName   string
	LoggedAt   time.Time
	LogDate    time.Time
	TempC      *float64
	Notes      string
	Period     Period
	Status     Status

	ChillEvent   ChillEvent
	BatchID      string
	ChillMinutes *int

	CreatedByUserID string
	CreatedAt       time.Time
}

// Validate checks record invariants.
func (r Record) Validate() error {
	if r.ID == "" {
		return errors.New("temp log: empty id")
	}
	if r.PropertyID == "" {
		return errors.New("temp log: empty property id")
	}
	if r.FoodName == "" {
		return errors.New("temp log: empty food name")
	}
	if r.LoggedAt.IsZero() {
		return errors.New("temp log: zero logged_at")
	}
	if _, ok := NormalizeStatus(string(r.Status)); !ok {
		return errors.New("temp log: invalid status")
	}
	if _, ok := NormalizePeriod(string(r.Period)); !ok {
		return errors.New("temp log: invalid period")
	}
	switch r.ChillEvent {
	case "", ChillStart, ChillEnd:
	default:
		return errors.New("temp log: invalid chill event")
	}
	return nil
}

// UTCDayStart truncates a time to the start of its UTC calendar day.
func UTCDayStart(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

// Repository persists and queries temperature log records. The log is
// append-only: there is no update or delete path.
type Repository interface {
	Insert(ctx context.Context, rec *Record) error
	ListDay(ctx context.Context, propertyID string, dayStart time.Time) ([]Record, error)
	ListRange(ctx context.Context, propertyID string, from, to time.Time) ([]Record, error)

	// ListChillEvents returns every blast-chill START/END record logged at or
	// after from, for reconciliation.
	ListChillEvents(ctx context.Context, propertyID string, from time.Time) ([]Record, error)

	// LatestChillStart returns the most recent START record matching the
	// batch id (preferred) or, when batchID is empty, the food name. Nil when
	// none exists.
	LatestChillStart(ctx context.Context, propertyID, batchID, foodName string) (*Record, error)
}
