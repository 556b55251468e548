package http

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"kitchensafe-cloud/internal/auth"
	property "kitchensafe-cloud/internal/property/domain"
	rotaapp "kitchensafe-cloud/internal/rota/application"
	rota "kitchensafe-cloud/internal/rota/domain"
)

type fixedClock struct {
	now time.Time
}

func (c fixedClock) Now() time.Time { return c.now }

type stubWeeks struct {
	week *rota.Week
}

func (s *stubWeeks) Ensure(_ context.Context, propertyID string, weekStart time.Time) (rota.Week, error) {
	return rota.Week{ID: "week-1", PropertyID: propertyID, WeekStart: weekStart}, nil
}

func (s *stubWeeks) Get(context.Context, string, time.Time) (*rota.Week, error) {
	return s.week, nil
}

func (s *stubWeeks) Publish(_ context.Context, propertyID string, weekStart time.Time, userID string, at time.Time) (rota.Week, error) {
	return rota.Week{
		ID: "week-1", PropertyID: propertyID, WeekStart: weekStart,
		Published: true, PublishedAt: &at, PublishedBy: userID,
	}, nil
}

func (s *stubWeeks) Unpublish(_ context.Context, propertyID string, weekStart time.Time) (rota.Week, error) {
	return rota.Week{ID: "week-1", PropertyID: propertyID, WeekStart: weekStart}, nil
}

type stubShifts struct {
	list        []rota.Shift
	deleteFound bool
}

func (s *stubShifts) Insert(context.Context, *rota.Shift) error { return nil }

func (s *stubShifts) Update(context.Context, *rota.Shift) (bool, error) { return true, nil }

func (s *stubShifts) Delete(context.Context, string, string) (bool, error) {
	return s.deleteFound, nil
}

func (s *stubShifts) ListByWeek(context.Context, string, string) ([]rota.Shift, error) {
	return s.list, nil
}

func (s *stubShifts) ClearWeek(context.Context, string, string) error { return nil }

type stubMembers struct{}

func (stubMembers) ActiveMembership(_ context.Context, propertyID, userID string) (*property.Membership, error) {
	if userID == "user-1" {
		return &property.Membership{PropertyID: propertyID, UserID: userID, IsActive: true}, nil
	}
	return nil, nil
}

type stubUsers struct{}

func (stubUsers) GetUsers(_ context.Context, ids []string) (map[string]property.User, error) {
	result := make(map[string]property.User, len(ids))
	for _, id := range ids {
		if id == "user-1" {
			result[id] = property.User{ID: id, Email: "dana@kitchen.test", Name: "Dana"}
		}
	}
	return result, nil
}

func newTestHandler(t *testing.T, weeks *stubWeeks, shifts *stubShifts) *Handler {
	t.Helper()
	now := time.Date(2026, time.January, 7, 10, 0, 0, 0, time.UTC)
	service, err := rotaapp.NewService(weeks, shifts, stubMembers{}, stubUsers{}, fixedClock{now: now})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func adminRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.WithIdentity(req.Context(), "prop-1", auth.RoleAdmin, "admin-1")
	return req.WithContext(ctx)
}

func staffRequest(method, target, body string) *http.Request {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	ctx := auth.WithIdentity(req.Context(), "prop-1", auth.RoleStaff, "user-1")
	return req.WithContext(ctx)
}

func TestCreateShift_Created(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v1/rotas/shifts",
		`{"weekStart":"2026-01-05","dayIndex":2,"startTime":"09:00","endTime":"17:00","role":"Chef","assigneeUserId":"user-1"}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK    bool       `json:"ok"`
		Shift rota.Shift `json:"shift"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if !resp.OK || resp.Shift.WeekID != "week-1" || resp.Shift.Role != "Chef" {
		t.Fatalf("unexpected response %+v", resp)
	}
}

func TestCreateShift_RejectsBadTime(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v1/rotas/shifts",
		`{"weekStart":"2026-01-05","dayIndex":0,"startTime":"9am","endTime":"17:00","role":"Chef"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestDeleteShift_Unknown(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{deleteFound: false})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodDelete, "/api/v1/rotas/shifts/missing", ""))

	if rec.Code != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", rec.Code)
	}
}

func TestWeekView_ReturnsShiftsWithAssignees(t *testing.T) {
	monday := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	weeks := &stubWeeks{week: &rota.Week{ID: "week-1", PropertyID: "prop-1", WeekStart: monday}}
	shifts := &stubShifts{list: []rota.Shift{
		{ID: "shift-1", PropertyID: "prop-1", WeekID: "week-1", DayIndex: 0, StartTime: "09:00", EndTime: "17:00", Role: "Chef", AssigneeUserID: "user-1"},
	}}
	handler := newTestHandler(t, weeks, shifts)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, staffRequest(http.MethodGet, "/api/v1/rotas/week?start=2026-01-05", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"role":"Chef"`) || !strings.Contains(body, `"assignee":"Dana"`) {
		t.Fatalf("expected decorated shifts, got %s", body)
	}
}

func TestWeekView_StaffBlockedOnUnpublishedFutureWeek(t *testing.T) {
	nextMonday := time.Date(2026, time.January, 12, 0, 0, 0, 0, time.UTC)
	weeks := &stubWeeks{week: &rota.Week{ID: "week-1", PropertyID: "prop-1", WeekStart: nextMonday}}
	handler := newTestHandler(t, weeks, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, staffRequest(http.MethodGet, "/api/v1/rotas/week?start=2026-01-12", ""))
	if rec.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for staff, got %d", rec.Code)
	}

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodGet, "/api/v1/rotas/week?start=2026-01-12", ""))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200 for admin, got %d", rec.Code)
	}
}

func TestPublishWeek_StampsActor(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v1/rotas/week/publish",
		`{"weekStart":"2026-01-12"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	body := rec.Body.String()
	if !strings.Contains(body, `"published":true`) || !strings.Contains(body, `"publishedBy":"admin-1"`) {
		t.Fatalf("expected publish stamp in response, got %s", body)
	}
}

func TestClearWeek_OK(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodPost, "/api/v1/rotas/week/clear",
		`{"weekStart":"2026-01-05"}`))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
}

func TestMethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &stubWeeks{}, &stubShifts{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, adminRequest(http.MethodGet, "/api/v1/rotas/week/publish", ""))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
