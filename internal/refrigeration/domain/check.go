package refrigeration

import (
	"context"
	"errors"
	"math"
	"time"
)

// CheckStatus is how a reading was taken. DEFROST checks carry no reading.
type CheckStatus string

const (
	CheckNormal  CheckStatus = "NORMAL"
	CheckDefrost CheckStatus = "DEFROST"
)

// NormalizeCheckStatus validates a check status. Empty defaults to NORMAL.
func NormalizeCheckStatus(value string) (CheckStatus, bool) {
	switch CheckStatus(value) {
	case "":
		return CheckNormal, true
	case CheckNormal, CheckDefrost:
		return CheckStatus(value), true
	default:
		return "", false
	}
}

// CheckPeriod is the service period a check belongs to.
type CheckPeriod string

const (
	CheckAM    CheckPeriod = "AM"
	CheckPM    CheckPeriod = "PM"
	CheckOther CheckPeriod = "OTHER"
)

// NormalizeCheckPeriod validates a period. Anything unknown maps to OTHER,
// matching the historical write behavior.
func NormalizeCheckPeriod(value string) CheckPeriod {
	switch CheckPeriod(value) {
	case CheckAM, CheckPM:
		return CheckPeriod(value)
	default:
		return CheckOther
	}
}

// Check is a single unit temperature reading.
type Check struct {
	ID         string      `json:"id"`
	PropertyID string      `json:"propertyId"`
	UnitID     string      `json:"unitId"`
	Period     CheckPeriod `json:"period"`
	Status     CheckStatus `json:"status"`
	ValueC     *float64    `json:"valueC"`
	Notes      string      `json:"notes,omitempty"`
	InRange    *bool       `json:"inRange,omitempty"`

	CreatedByUserID string    `json:"createdByUserId"`
	LoggedAt        time.Time `json:"loggedAt"`
}

// Validate checks reading invariants.
func (c Check) Validate() error {
	if c.ID == "" {
		return errors.New("refrigeration: empty check id")
	}
	if c.PropertyID == "" {
		return errors.New("refrigeration: empty property id")
	}
	if c.UnitID == "" {
		return errors.New("refrigeration: empty unit id")
	}
	if c.Status == CheckNormal && c.ValueC == nil {
		return errors.New("refrigeration: NORMAL check requires a reading")
	}
	return nil
}

// SafeRange is a unit type's acceptable band in tenth-degrees C.
type SafeRange struct {
	MinTenthC int
	MaxTenthC int
}

// Contains reports whether a reading in degrees C falls inside the band.
func (r SafeRange) Contains(valueC float64) bool {
	tenth := int(math.Round(valueC * 10))
	return tenth >= r.MinTenthC && tenth <= r.MaxTenthC
}

// CheckRepository persists unit temperature checks.
type CheckRepository interface {
	Insert(ctx context.Context, check *Check) error
	// ListSince returns AM/PM checks logged at or after from, newest first.
	ListSince(ctx context.Context, propertyID string, from time.Time) ([]Check, error)
	// ListRange returns all checks in [from, to) ordered oldest first.
	ListRange(ctx context.Context, propertyID string, from, to time.Time) ([]Check, error)
}
