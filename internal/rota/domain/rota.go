package rota

import (
	"context"
	"errors"
	"time"
)

// Week is one property's rota for a Monday-aligned week. Weeks are created
// lazily as blank slates the first time a shift or publish action touches
// them.
type Week struct {
	ID          string     `json:"id"`
	PropertyID  string     `json:"propertyId"`
	WeekStart   time.Time  `json:"weekStart"`
	Published   bool       `json:"published"`
	PublishedAt *time.Time `json:"publishedAt,omitempty"`
	PublishedBy string     `json:"publishedBy,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
}

// Shift is a single entry on the rota.
type Shift struct {
	ID         string `json:"id"`
	PropertyID string `json:"propertyId"`
	WeekID     string `json:"weekId"`
	// DayIndex is 0 for Monday through 6 for Sunday.
	DayIndex int `json:"dayIndex"`
	// StartTime and EndTime are HH:MM wall times.
	StartTime      string    `json:"startTime"`
	EndTime        string    `json:"endTime"`
	Role           string    `json:"role"`
	Notes          string    `json:"notes,omitempty"`
	AssigneeUserID string    `json:"assigneeUserId,omitempty"`
	CreatedAt      time.Time `json:"createdAt"`
}

// MondayOf returns the Monday 00:00 UTC starting the week that contains t.
func MondayOf(t time.Time) time.Time {
	day := t.UTC()
	midnight := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	back := (int(midnight.Weekday()) + 6) % 7
	return midnight.AddDate(0, 0, -back)
}

// ValidClockTime reports whether s is a 24h HH:MM wall time.
func ValidClockTime(s string) bool {
	if len(s) != 5 {
		return false
	}
	_, err := time.Parse("15:04", s)
	return err == nil
}

// ErrShiftNotFound reports a shift the property does not own.
var ErrShiftNotFound = errors.New("rota: shift not found")

// WeekRepository persists rota weeks.
type WeekRepository interface {
	// Ensure returns the week row for the property's Monday, creating an
	// unpublished blank week when missing.
	Ensure(ctx context.Context, propertyID string, weekStart time.Time) (Week, error)
	// Get returns the week, or nil when it was never created.
	Get(ctx context.Context, propertyID string, weekStart time.Time) (*Week, error)
	// Publish makes the week visible to staff, stamping who and when.
	Publish(ctx context.Context, propertyID string, weekStart time.Time, userID string, at time.Time) (Week, error)
	// Unpublish hides the week again and clears the publish stamp.
	Unpublish(ctx context.Context, propertyID string, weekStart time.Time) (Week, error)
}

// ShiftRepository persists rota shifts.
type ShiftRepository interface {
	Insert(ctx context.Context, shift *Shift) error
	// Update rewrites the editable fields of a shift the property owns and
	// reports whether a row matched.
	Update(ctx context.Context, shift *Shift) (bool, error)
	Delete(ctx context.Context, propertyID, shiftID string) (bool, error)
	// ListByWeek returns the week's shifts in day-then-start order.
	ListByWeek(ctx context.Context, propertyID, weekID string) ([]Shift, error)
	// ClearWeek removes every shift on the week.
	ClearWeek(ctx context.Context, propertyID, weekID string) error
}
