package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestAuthMiddleware_NoToken(t *testing.T) {
	secret := []byte("test-secret")
	policy := NewDefaultPolicy(nil, nil)
	mw := NewMiddleware(secret, policy)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/v1/blast-chill/open", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusUnauthorized {
		t.Fatalf("expected 401, got %d", resp.Code)
	}
}

func TestAuthMiddleware_StaffForbiddenSettings(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "property-a", "staff")
	policy := NewDefaultPolicy(nil, nil)
	mw := NewMiddleware(secret, policy)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/settings", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusForbidden {
		t.Fatalf("expected 403, got %d", resp.Code)
	}
}

func TestAuthMiddleware_StaffAllowedBlastChill(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "property-a", "staff")
	policy := NewDefaultPolicy(nil, nil)
	mw := NewMiddleware(secret, policy)

	var gotProperty, gotSubject string
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotProperty = PropertyIDFromContext(r.Context())
		gotSubject = SubjectFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/blast-chill/start", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
	if gotProperty != "property-a" {
		t.Fatalf("expected property-a in context, got %q", gotProperty)
	}
	if gotSubject != "user-1" {
		t.Fatalf("expected user-1 subject, got %q", gotSubject)
	}
}

func TestAuthMiddleware_AdminAllowedMaintenanceComplete(t *testing.T) {
	secret := []byte("test-secret")
	token := mustToken(t, secret, "property-a", "admin")
	policy := NewDefaultPolicy(nil, nil)
	mw := NewMiddleware(secret, policy)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodPost, "/api/v1/maintenance/complete", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestAuthMiddleware_ExemptHealthz(t *testing.T) {
	secret := []byte("test-secret")
	policy := NewDefaultPolicy([]string{"/healthz"}, nil)
	mw := NewMiddleware(secret, policy)
	handler := mw.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	resp := httptest.NewRecorder()
	handler.ServeHTTP(resp, req)
	if resp.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.Code)
	}
}

func TestPolicy_RotaWritesRequireAdmin(t *testing.T) {
	policy := NewDefaultPolicy(nil, nil)

	cases := []struct {
		method string
		path   string
		want   Role
	}{
		{http.MethodPost, "/api/v1/rotas/shifts", RoleAdmin},
		{http.MethodPatch, "/api/v1/rotas/shifts/shift-1", RoleAdmin},
		{http.MethodDelete, "/api/v1/rotas/shifts/shift-1", RoleAdmin},
		{http.MethodPost, "/api/v1/rotas/week/publish", RoleAdmin},
		{http.MethodPost, "/api/v1/rotas/week/clear", RoleAdmin},
		{http.MethodGet, "/api/v1/rotas/week", RoleStaff},
		{http.MethodGet, "/api/v1/team-log/handovers", RoleStaff},
		{http.MethodPost, "/api/v1/team-log/read", RoleStaff},
	}
	for _, tc := range cases {
		req := httptest.NewRequest(tc.method, tc.path, nil)
		got, ok := policy.RequiredRole(req)
		if !ok || got != tc.want {
			t.Fatalf("%s %s: expected role %q, got %q (ok=%v)", tc.method, tc.path, tc.want, got, ok)
		}
	}
}

func mustToken(t *testing.T, secret []byte, propertyID, role string) string {
	t.Helper()
	claims := Claims{
		PropertyID: propertyID,
		Role:       role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "user-1",
			IssuedAt:  jwt.NewNumericDate(time.Now().Add(-time.Minute)),
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(secret)
	if err != nil {
		t.Fatalf("sign token: %v", err)
	}
	return signed
}
