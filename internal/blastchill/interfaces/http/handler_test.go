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
	blastchillapp "kitchensafe-cloud/internal/blastchill/application"
	property "kitchensafe-cloud/internal/property/domain"
	settings "kitchensafe-cloud/internal/settings/domain"
	templog "kitchensafe-cloud/internal/templog/domain"
)

var testNow = time.Date(2026, time.March, 10, 14, 0, 0, 0, time.UTC)

type fixedClock struct{}

func (fixedClock) Now() time.Time { return testNow }

type stubRecordRepo struct {
	inserted []*templog.Record
	events   []templog.Record
	start    *templog.Record
}

func (s *stubRecordRepo) Insert(_ context.Context, rec *templog.Record) error {
	s.inserted = append(s.inserted, rec)
	return nil
}

func (s *stubRecordRepo) ListDay(context.Context, string, time.Time) ([]templog.Record, error) {
	return nil, nil
}

func (s *stubRecordRepo) ListRange(context.Context, string, time.Time, time.Time) ([]templog.Record, error) {
	return nil, nil
}

func (s *stubRecordRepo) ListChillEvents(context.Context, string, time.Time) ([]templog.Record, error) {
	return s.events, nil
}

func (s *stubRecordRepo) LatestChillStart(context.Context, string, string, string) (*templog.Record, error) {
	return s.start, nil
}

type stubSettingsRepo struct{}

func (stubSettingsRepo) Get(_ context.Context, propertyID string) (settings.PropertySettings, error) {
	return settings.Defaults(propertyID), nil
}

func (stubSettingsRepo) Save(context.Context, settings.PropertySettings) error { return nil }

type stubUsers struct{}

func (stubUsers) GetUsers(context.Context, []string) (map[string]property.User, error) {
	return map[string]property.User{}, nil
}

func newTestHandler(t *testing.T, repo *stubRecordRepo) *Handler {
	t.Helper()
	service, err := blastchillapp.NewService(repo, stubSettingsRepo{}, stubUsers{}, fixedClock{})
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	handler, err := NewHandler(service, nil)
	if err != nil {
		t.Fatalf("new handler: %v", err)
	}
	return handler
}

func authedRequest(method, target, body string) *http.Request {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}
	ctx := auth.WithIdentity(req.Context(), "prop-1", auth.RoleStaff, "user-1")
	return req.WithContext(ctx)
}

func TestHandler_StartCreatesBatch(t *testing.T) {
	repo := &stubRecordRepo{}
	handler := newTestHandler(t, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/blast-chill/start",
		`{"foodName":"Lasagne","tempC":65.0}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp blastchillapp.StartResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.BatchID == "" || resp.RecordID == "" {
		t.Fatalf("expected generated ids, got %+v", resp)
	}
	if len(repo.inserted) != 1 || repo.inserted[0].PropertyID != "prop-1" {
		t.Fatalf("record not written for property: %+v", repo.inserted)
	}
	if repo.inserted[0].CreatedByUserID != "user-1" {
		t.Fatalf("expected creator from token subject, got %q", repo.inserted[0].CreatedByUserID)
	}
}

func TestHandler_StartMissingTempIsBadRequest(t *testing.T) {
	handler := newTestHandler(t, &stubRecordRepo{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/blast-chill/start",
		`{"foodName":"Lasagne"}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_EndScoresBatch(t *testing.T) {
	repo := &stubRecordRepo{start: &templog.Record{
		ID: "r1", PropertyID: "prop-1", FoodName: "Lasagne",
		LoggedAt: testNow.Add(-40 * time.Minute), BatchID: "bc1",
		ChillEvent: templog.ChillStart,
	}}
	handler := newTestHandler(t, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/blast-chill/end",
		`{"batchId":"bc1","tempC":3.0}`))

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var resp blastchillapp.EndResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if resp.Status != "OK" || resp.Minutes != 40 {
		t.Fatalf("unexpected verdict: %+v", resp)
	}
}

func TestHandler_EndOrphanIsRejected(t *testing.T) {
	handler := newTestHandler(t, &stubRecordRepo{start: nil})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodPost, "/api/v1/blast-chill/end",
		`{"batchId":"bc-missing","tempC":3.0}`))

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", rec.Code)
	}
}

func TestHandler_OpenListsBatches(t *testing.T) {
	repo := &stubRecordRepo{events: []templog.Record{
		{
			ID: "r1", PropertyID: "prop-1", FoodName: "Soup",
			LoggedAt: testNow.Add(-time.Hour), BatchID: "bc2",
			ChillEvent: templog.ChillStart,
			CreatedByUserID: "user-1", Status: templog.StatusOK,
		},
	}}
	handler := newTestHandler(t, repo)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/blast-chill/open", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var resp struct {
		Batches []blastchillapp.BatchView `json:"batches"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(resp.Batches) != 1 || resp.Batches[0].BatchID != "bc2" {
		t.Fatalf("expected bc2 open, got %+v", resp.Batches)
	}
}

func TestHandler_TodayEmptyIsEmptyList(t *testing.T) {
	handler := newTestHandler(t, &stubRecordRepo{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/blast-chill/today", ""))

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"batches":[]`) {
		t.Fatalf("expected empty list, got %s", rec.Body.String())
	}
}

func TestHandler_MethodNotAllowed(t *testing.T) {
	handler := newTestHandler(t, &stubRecordRepo{})

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, authedRequest(http.MethodGet, "/api/v1/blast-chill/start", ""))

	if rec.Code != http.StatusMethodNotAllowed {
		t.Fatalf("expected 405, got %d", rec.Code)
	}
}
