package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	refrigerationapp "kitchensafe-cloud/internal/refrigeration/application"
	refrigeration "kitchensafe-cloud/internal/refrigeration/domain"
)

// Handler provides refrigeration HTTP endpoints: unit management under
// /api/v1/refrigeration and temperature checks under /api/v1/temperature.
type Handler struct {
	service     *refrigerationapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *refrigerationapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("refrigeration handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes unit and check endpoints.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	path := r.URL.Path
	switch {
	case path == "/api/v1/refrigeration" && r.Method == http.MethodGet:
		h.handleListUnits(w, r)
	case path == "/api/v1/refrigeration" && r.Method == http.MethodPost:
		h.handleCreateUnit(w, r)
	case strings.HasPrefix(path, "/api/v1/refrigeration/") && strings.HasSuffix(path, "/deactivate") && r.Method == http.MethodPost:
		h.handleDeactivateUnit(w, r)
	case path == "/api/v1/temperature" && r.Method == http.MethodPost:
		h.handleRecordCheck(w, r)
	case path == "/api/v1/temperature/today" && r.Method == http.MethodGet:
		h.handleToday(w, r)
	case path == "/api/v1/refrigeration" || path == "/api/v1/temperature" || path == "/api/v1/temperature/today":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleListUnits(w http.ResponseWriter, r *http.Request) {
	units, err := h.service.ListUnits(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"units": units})
}

type createUnitPayload struct {
	Name string `json:"name"`
	Type string `json:"type"`
}

func (h *Handler) handleCreateUnit(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload createUnitPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	unit, err := h.service.CreateUnit(r.Context(), auth.PropertyIDFromContext(r.Context()), payload.Name, payload.Type)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"unit": unit})

	h.logAudit(r, "refrigeration.unit.create", unit.ID, body)
}

func (h *Handler) handleDeactivateUnit(w http.ResponseWriter, r *http.Request) {
	unitID := strings.TrimSuffix(strings.TrimPrefix(r.URL.Path, "/api/v1/refrigeration/"), "/deactivate")
	if unitID == "" {
		http.Error(w, "unit id required", http.StatusBadRequest)
		return
	}

	err := h.service.DeactivateUnit(r.Context(), auth.PropertyIDFromContext(r.Context()), unitID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "refrigeration.unit.deactivate", unitID, nil)
}

type checkPayload struct {
	UnitID string   `json:"unitId"`
	Period string   `json:"period"`
	Status string   `json:"status"`
	ValueC *float64 `json:"valueC"`
	Notes  string   `json:"notes"`
}

func (h *Handler) handleRecordCheck(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload checkPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	check, err := h.service.RecordCheck(r.Context(), refrigerationapp.CheckRequest{
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		UnitID:     payload.UnitID,
		Period:     payload.Period,
		Status:     payload.Status,
		ValueC:     payload.ValueC,
		Notes:      payload.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"log": check})

	h.logAudit(r, "refrigeration.check.create", check.ID, body)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	latest, err := h.service.TodayLatest(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"latest": latest})
}

func (h *Handler) logAudit(r *http.Request, action, resourceID string, body []byte) {
	if h.auditLogger == nil {
		return
	}
	propertyID := auth.PropertyIDFromContext(r.Context())
	if propertyID == "" {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		PropertyID:    propertyID,
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "refrigeration_unit",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, refrigerationapp.ErrNameRequired),
		errors.Is(err, refrigerationapp.ErrInvalidUnitType),
		errors.Is(err, refrigerationapp.ErrReadingRequired),
		errors.Is(err, refrigerationapp.ErrUnknownUnit),
		errors.Is(err, refrigeration.ErrDuplicateName):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
