package application

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"

	property "kitchensafe-cloud/internal/property/domain"
	rota "kitchensafe-cloud/internal/rota/domain"
)

var (
	// ErrWeekStartRequired indicates a request without a target week.
	ErrWeekStartRequired = errors.New("rota: weekStart is required")
	// ErrDayIndex indicates a day outside the Monday..Sunday range.
	ErrDayIndex = errors.New("rota: dayIndex must be 0 (Monday) to 6 (Sunday)")
	// ErrTimeFormat indicates a start or end time that is not HH:MM.
	ErrTimeFormat = errors.New("rota: times must be HH:MM")
	// ErrRoleRequired indicates a shift without a role label.
	ErrRoleRequired = errors.New("rota: role is required")
	// ErrIDRequired indicates an edit without a shift id.
	ErrIDRequired = errors.New("rota: shift id is required")
	// ErrAssigneeNotMember indicates an assignee outside the property.
	ErrAssigneeNotMember = errors.New("rota: assignee is not in this property")
	// ErrWeekNotPublished indicates a staff view of an unpublished future week.
	ErrWeekNotPublished = errors.New("rota: week is not published yet")
)

// Clock abstracts time for tests.
type Clock interface {
	Now() time.Time
}

// Service coordinates rota weeks and shifts.
type Service struct {
	weeks   rota.WeekRepository
	shifts  rota.ShiftRepository
	members property.MembershipRepository
	users   property.UserDirectory
	clock   Clock
}

// NewService constructs a Service. members and users are optional: without a
// membership repository assignees are stored unverified, without a user
// directory views carry ids only.
func NewService(weeks rota.WeekRepository, shifts rota.ShiftRepository, members property.MembershipRepository, users property.UserDirectory, clock Clock) (*Service, error) {
	if weeks == nil || shifts == nil {
		return nil, errors.New("rota service: nil repository")
	}
	if clock == nil {
		return nil, errors.New("rota service: nil clock")
	}
	return &Service{weeks: weeks, shifts: shifts, members: members, users: users, clock: clock}, nil
}

// CreateShiftRequest describes a new shift.
type CreateShiftRequest struct {
	PropertyID     string
	WeekStart      time.Time
	DayIndex       int
	StartTime      string
	EndTime        string
	Role           string
	Notes          string
	AssigneeUserID string
}

// CreateShift adds a shift, creating the week row when missing.
func (s *Service) CreateShift(ctx context.Context, req CreateShiftRequest) (rota.Shift, error) {
	if req.WeekStart.IsZero() {
		return rota.Shift{}, ErrWeekStartRequired
	}
	if req.DayIndex < 0 || req.DayIndex > 6 {
		return rota.Shift{}, ErrDayIndex
	}
	if !rota.ValidClockTime(req.StartTime) || !rota.ValidClockTime(req.EndTime) {
		return rota.Shift{}, ErrTimeFormat
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return rota.Shift{}, ErrRoleRequired
	}
	assignee, err := s.checkAssignee(ctx, req.PropertyID, req.AssigneeUserID)
	if err != nil {
		return rota.Shift{}, err
	}

	// Writes land on the canonical Monday even when the client sends a
	// mid-week date.
	week, err := s.weeks.Ensure(ctx, req.PropertyID, rota.MondayOf(req.WeekStart))
	if err != nil {
		return rota.Shift{}, err
	}

	shift := rota.Shift{
		ID:             uuid.NewString(),
		PropertyID:     req.PropertyID,
		WeekID:         week.ID,
		DayIndex:       req.DayIndex,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Role:           role,
		Notes:          strings.TrimSpace(req.Notes),
		AssigneeUserID: assignee,
		CreatedAt:      s.clock.Now().UTC(),
	}
	if err := s.shifts.Insert(ctx, &shift); err != nil {
		return rota.Shift{}, err
	}
	return shift, nil
}

// UpdateShiftRequest rewrites a shift's editable fields.
type UpdateShiftRequest struct {
	PropertyID     string
	ShiftID        string
	StartTime      string
	EndTime        string
	Role           string
	Notes          string
	AssigneeUserID string
}

// UpdateShift edits a shift the property owns.
func (s *Service) UpdateShift(ctx context.Context, req UpdateShiftRequest) error {
	id := strings.TrimSpace(req.ShiftID)
	if id == "" {
		return ErrIDRequired
	}
	if !rota.ValidClockTime(req.StartTime) || !rota.ValidClockTime(req.EndTime) {
		return ErrTimeFormat
	}
	role := strings.TrimSpace(req.Role)
	if role == "" {
		return ErrRoleRequired
	}
	assignee, err := s.checkAssignee(ctx, req.PropertyID, req.AssigneeUserID)
	if err != nil {
		return err
	}

	found, err := s.shifts.Update(ctx, &rota.Shift{
		ID:             id,
		PropertyID:     req.PropertyID,
		StartTime:      req.StartTime,
		EndTime:        req.EndTime,
		Role:           role,
		Notes:          strings.TrimSpace(req.Notes),
		AssigneeUserID: assignee,
	})
	if err != nil {
		return err
	}
	if !found {
		return rota.ErrShiftNotFound
	}
	return nil
}

// DeleteShift removes a shift the property owns.
func (s *Service) DeleteShift(ctx context.Context, propertyID, shiftID string) error {
	shiftID = strings.TrimSpace(shiftID)
	if shiftID == "" {
		return ErrIDRequired
	}
	found, err := s.shifts.Delete(ctx, propertyID, shiftID)
	if err != nil {
		return err
	}
	if !found {
		return rota.ErrShiftNotFound
	}
	return nil
}

// ShiftView is a shift decorated with the assignee's display name.
type ShiftView struct {
	rota.Shift
	Assignee string `json:"assignee,omitempty"`
}

// WeekView is a week with its shifts in grid order.
type WeekView struct {
	rota.Week
	Shifts []ShiftView `json:"shifts"`
}

// Week returns the rota for the week containing start, or nil when the week
// was never created. Staff only see a future week once it is published; the
// current and past weeks are always visible.
func (s *Service) Week(ctx context.Context, propertyID string, start time.Time, privileged bool) (*WeekView, error) {
	if start.IsZero() {
		return nil, ErrWeekStartRequired
	}
	weekStart := rota.MondayOf(start)
	week, err := s.weeks.Get(ctx, propertyID, weekStart)
	if err != nil {
		return nil, err
	}
	if week == nil {
		return nil, nil
	}
	if !privileged && !week.Published && weekStart.After(rota.MondayOf(s.clock.Now())) {
		return nil, ErrWeekNotPublished
	}

	shifts, err := s.shifts.ListByWeek(ctx, propertyID, week.ID)
	if err != nil {
		return nil, err
	}
	views, err := s.decorate(ctx, shifts)
	if err != nil {
		return nil, err
	}
	return &WeekView{Week: *week, Shifts: views}, nil
}

// Publish makes the week visible to staff.
func (s *Service) Publish(ctx context.Context, propertyID, userID string, start time.Time) (rota.Week, error) {
	if start.IsZero() {
		return rota.Week{}, ErrWeekStartRequired
	}
	return s.weeks.Publish(ctx, propertyID, rota.MondayOf(start), userID, s.clock.Now().UTC())
}

// Unpublish hides the week from staff again.
func (s *Service) Unpublish(ctx context.Context, propertyID string, start time.Time) (rota.Week, error) {
	if start.IsZero() {
		return rota.Week{}, ErrWeekStartRequired
	}
	return s.weeks.Unpublish(ctx, propertyID, rota.MondayOf(start))
}

// ClearWeek removes every shift on the week.
func (s *Service) ClearWeek(ctx context.Context, propertyID string, start time.Time) error {
	if start.IsZero() {
		return ErrWeekStartRequired
	}
	week, err := s.weeks.Ensure(ctx, propertyID, rota.MondayOf(start))
	if err != nil {
		return err
	}
	return s.shifts.ClearWeek(ctx, propertyID, week.ID)
}

func (s *Service) checkAssignee(ctx context.Context, propertyID, userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", nil
	}
	if s.members == nil {
		return userID, nil
	}
	membership, err := s.members.ActiveMembership(ctx, propertyID, userID)
	if err != nil {
		return "", err
	}
	if membership == nil {
		return "", ErrAssigneeNotMember
	}
	return userID, nil
}

func (s *Service) decorate(ctx context.Context, shifts []rota.Shift) ([]ShiftView, error) {
	views := make([]ShiftView, 0, len(shifts))
	users := map[string]property.User{}
	if s.users != nil && len(shifts) > 0 {
		ids := make([]string, 0, len(shifts))
		seen := make(map[string]struct{})
		for _, shift := range shifts {
			if shift.AssigneeUserID == "" {
				continue
			}
			if _, ok := seen[shift.AssigneeUserID]; ok {
				continue
			}
			seen[shift.AssigneeUserID] = struct{}{}
			ids = append(ids, shift.AssigneeUserID)
		}
		resolved, err := s.users.GetUsers(ctx, ids)
		if err != nil {
			return nil, err
		}
		users = resolved
	}

	for _, shift := range shifts {
		view := ShiftView{Shift: shift}
		if user, ok := users[shift.AssigneeUserID]; ok {
			view.Assignee = user.DisplayName()
		}
		views = append(views, view)
	}
	return views, nil
}
