package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	teamlogapp "kitchensafe-cloud/internal/teamlog/application"
	teamlog "kitchensafe-cloud/internal/teamlog/domain"
)

// Handler provides handover board endpoints under /api/v1/team-log/.
type Handler struct {
	service     *teamlogapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *teamlogapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("team log handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes board listing, posting and read receipts.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/team-log/handovers" && r.Method == http.MethodGet:
		h.handleList(w, r)
	case r.URL.Path == "/api/v1/team-log/handovers" && r.Method == http.MethodPost:
		h.handlePost(w, r)
	case r.URL.Path == "/api/v1/team-log/read" && r.Method == http.MethodPost:
		h.handleRead(w, r)
	case r.URL.Path == "/api/v1/team-log/handovers" || r.URL.Path == "/api/v1/team-log/read":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleList(w http.ResponseWriter, r *http.Request) {
	handovers, err := h.service.List(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"handovers": handovers})
}

type postPayload struct {
	Message string `json:"message"`
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload postPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	handover, err := h.service.Post(r.Context(),
		auth.PropertyIDFromContext(r.Context()), auth.SubjectFromContext(r.Context()), payload.Message)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "id": handover.ID})

	h.logAudit(r, "teamlog.handover.post", handover.ID, body)
}

type readPayload struct {
	HandoverID string `json:"handoverId"`
}

func (h *Handler) handleRead(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload readPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	err = h.service.MarkRead(r.Context(),
		auth.PropertyIDFromContext(r.Context()), auth.SubjectFromContext(r.Context()), payload.HandoverID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "teamlog.handover.read", payload.HandoverID, body)
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
		ResourceType:  "team_handover",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, teamlogapp.ErrMessageRequired),
		errors.Is(err, teamlogapp.ErrIDRequired):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, teamlog.ErrNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
