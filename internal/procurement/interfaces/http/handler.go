package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"time"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	procurementapp "kitchensafe-cloud/internal/procurement/application"
	procurement "kitchensafe-cloud/internal/procurement/domain"
)

// Handler provides procurement HTTP endpoints under
// /api/v1/procurement/requests.
type Handler struct {
	service     *procurementapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *procurementapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("procurement handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes request listing, creation and admin decisions.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/procurement/requests" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/procurement/requests" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case r.URL.Path == "/api/v1/procurement/requests/ordered" && r.Method == http.MethodPost:
		h.handleOrdered(w, r)
	case r.URL.Path == "/api/v1/procurement/requests/rejected" && r.Method == http.MethodPost:
		h.handleRejected(w, r)
	case r.URL.Path == "/api/v1/procurement/requests" ||
		r.URL.Path == "/api/v1/procurement/requests/ordered" ||
		r.URL.Path == "/api/v1/procurement/requests/rejected":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if value := r.URL.Query().Get("limit"); value != "" {
		parsed, err := strconv.Atoi(value)
		if err != nil {
			http.Error(w, "limit must be a number", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	items, err := h.service.List(r.Context(), auth.PropertyIDFromContext(r.Context()),
		r.URL.Query().Get("category"), r.URL.Query().Get("status"), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"items": items})
}

type createPayload struct {
	Category string   `json:"category"`
	ItemName string   `json:"itemName"`
	Quantity *float64 `json:"quantity"`
	Unit     string   `json:"unit"`
	NeededBy string   `json:"neededBy"`
	Notes    string   `json:"notes"`
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

	var neededBy *time.Time
	if payload.NeededBy != "" {
		parsed, err := time.Parse(time.RFC3339, payload.NeededBy)
		if err != nil {
			http.Error(w, "neededBy must be RFC3339", http.StatusBadRequest)
			return
		}
		neededBy = &parsed
	}

	item, err := h.service.Create(r.Context(), procurementapp.CreateRequest{
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		Category:   payload.Category,
		ItemName:   payload.ItemName,
		Quantity:   payload.Quantity,
		Unit:       payload.Unit,
		NeededBy:   neededBy,
		Notes:      payload.Notes,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"item": item})

	h.logAudit(r, "procurement.request.create", item.ID, body)
}

type decisionPayload struct {
	ID             string `json:"id"`
	RejectedReason string `json:"rejectedReason"`
	RejectedNote   string `json:"rejectedNote"`
}

func (h *Handler) handleOrdered(w http.ResponseWriter, r *http.Request) {
	payload, body, ok := h.readDecision(w, r)
	if !ok {
		return
	}

	item, err := h.service.MarkOrdered(r.Context(),
		auth.PropertyIDFromContext(r.Context()), auth.SubjectFromContext(r.Context()), payload.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"item": item})

	h.logAudit(r, "procurement.request.ordered", item.ID, body)
}

func (h *Handler) handleRejected(w http.ResponseWriter, r *http.Request) {
	payload, body, ok := h.readDecision(w, r)
	if !ok {
		return
	}

	item, err := h.service.Reject(r.Context(),
		auth.PropertyIDFromContext(r.Context()), auth.SubjectFromContext(r.Context()),
		payload.ID, payload.RejectedReason, payload.RejectedNote)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"item": item})

	h.logAudit(r, "procurement.request.rejected", item.ID, body)
}

func (h *Handler) readDecision(w http.ResponseWriter, r *http.Request) (decisionPayload, []byte, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return decisionPayload{}, nil, false
	}
	defer r.Body.Close()

	var payload decisionPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return decisionPayload{}, nil, false
	}
	return payload, body, true
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
		ResourceType:  "procurement_request",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, procurementapp.ErrItemNameRequired),
		errors.Is(err, procurementapp.ErrItemNameTooLong),
		errors.Is(err, procurementapp.ErrInvalidCategory),
		errors.Is(err, procurementapp.ErrInvalidStatus),
		errors.Is(err, procurementapp.ErrInvalidReason),
		errors.Is(err, procurementapp.ErrNoteRequired),
		errors.Is(err, procurementapp.ErrIDRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, procurement.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	case errors.Is(err, procurement.ErrAlreadyDecided):
		http.Error(w, err.Error(), http.StatusConflict)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
