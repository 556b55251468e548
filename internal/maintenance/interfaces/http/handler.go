package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	maintenanceapp "kitchensafe-cloud/internal/maintenance/application"
	maintenance "kitchensafe-cloud/internal/maintenance/domain"
)

// Handler provides maintenance HTTP endpoints under /api/v1/maintenance.
type Handler struct {
	service     *maintenanceapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *maintenanceapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("maintenance handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes ticket listing, creation and completion.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/maintenance/requests" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/maintenance/requests" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case r.URL.Path == "/api/v1/maintenance/complete" && r.Method == http.MethodPost:
		h.handleComplete(w, r)
	case r.URL.Path == "/api/v1/maintenance/requests" || r.URL.Path == "/api/v1/maintenance/complete":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	tickets, err := h.service.List(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"tickets": tickets})
}

type createPayload struct {
	Title     string `json:"title"`
	Details   string `json:"details"`
	Location  string `json:"location"`
	Equipment string `json:"equipment"`
	Urgency   string `json:"urgency"`
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload createPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	ticket, err := h.service.Create(r.Context(), maintenanceapp.CreateRequest{
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		Title:      payload.Title,
		Details:    payload.Details,
		Location:   payload.Location,
		Equipment:  payload.Equipment,
		Urgency:    payload.Urgency,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "id": ticket.ID})

	h.logAudit(r, "maintenance.ticket.create", ticket.ID, body)
}

type completePayload struct {
	RequestID string `json:"requestId"`
}

func (h *Handler) handleComplete(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload completePayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	err = h.service.Complete(r.Context(),
		auth.PropertyIDFromContext(r.Context()), auth.SubjectFromContext(r.Context()), payload.RequestID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "maintenance.ticket.complete", payload.RequestID, body)
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
		ResourceType:  "maintenance_ticket",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, maintenanceapp.ErrTitleRequired),
		errors.Is(err, maintenanceapp.ErrIDRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, maintenance.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
