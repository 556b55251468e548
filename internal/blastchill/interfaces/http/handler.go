package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	blastchillapp "kitchensafe-cloud/internal/blastchill/application"
)

// Handler provides blast-chill HTTP endpoints under /api/v1/blast-chill/.
type Handler struct {
	service     *blastchillapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *blastchillapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("blast chill handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes start/end writes and open/today projections.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/v1/blast-chill/")
	switch {
	case action == "start" && r.Method == http.MethodPost:
		h.handleStart(w, r)
	case action == "end" && r.Method == http.MethodPost:
		h.handleEnd(w, r)
	case action == "open" && r.Method == http.MethodGet:
		h.handleOpen(w, r)
	case action == "today" && r.Method == http.MethodGet:
		h.handleToday(w, r)
	case action == "start" || action == "end" || action == "open" || action == "today":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type startPayload struct {
	FoodName string   `json:"foodName"`
	TempC    *float64 `json:"tempC"`
	Notes    string   `json:"notes"`
	LoggedAt string   `json:"loggedAt"`
}

type endPayload struct {
	BatchID  string   `json:"batchId"`
	FoodName string   `json:"foodName"`
	TempC    *float64 `json:"tempC"`
	Notes    string   `json:"notes"`
	LoggedAt string   `json:"loggedAt"`
}

func (h *Handler) handleStart(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload startPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	loggedAt, err := parseOptionalTime(payload.LoggedAt)
	if err != nil {
		http.Error(w, "loggedAt must be RFC3339", http.StatusBadRequest)
		return
	}

	resp, err := h.service.StartBatch(r.Context(), blastchillapp.StartRequest{
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		FoodName:   payload.FoodName,
		TempC:      payload.TempC,
		Notes:      payload.Notes,
		LoggedAt:   loggedAt,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)

	h.logAudit(r, "blastchill.start", resp.BatchID, body)
}

func (h *Handler) handleEnd(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload endPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	loggedAt, err := parseOptionalTime(payload.LoggedAt)
	if err != nil {
		http.Error(w, "loggedAt must be RFC3339", http.StatusBadRequest)
		return
	}

	resp, err := h.service.EndBatch(r.Context(), blastchillapp.EndRequest{
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		BatchID:    payload.BatchID,
		FoodName:   payload.FoodName,
		TempC:      payload.TempC,
		Notes:      payload.Notes,
		LoggedAt:   loggedAt,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(resp)

	h.logAudit(r, "blastchill.end", resp.BatchID, body)
}

func (h *Handler) handleOpen(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.OpenBatches(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"batches": batches})
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	batches, err := h.service.TodayBatches(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"batches": batches})
}

func (h *Handler) logAudit(r *http.Request, action, batchID string, body []byte) {
	if h.auditLogger == nil {
		return
	}
	propertyID := auth.PropertyIDFromContext(r.Context())
	if propertyID == "" {
		return
	}
	meta, _ := json.Marshal(map[string]any{"batch_id": batchID})
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		PropertyID:    propertyID,
		Actor:         auth.SubjectFromContext(r.Context()),
		Role:          string(auth.RoleFromContext(r.Context())),
		Action:        action,
		ResourceType:  "blast_chill_batch",
		ResourceID:    batchID,
		Metadata:      meta,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func parseOptionalTime(value string) (*time.Time, error) {
	if value == "" {
		return nil, nil
	}
	parsed, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, blastchillapp.ErrFoodNameRequired),
		errors.Is(err, blastchillapp.ErrStartTempRequired),
		errors.Is(err, blastchillapp.ErrEndTempRequired),
		errors.Is(err, blastchillapp.ErrEndBeforeStart),
		errors.Is(err, blastchillapp.ErrNoOpenBatch):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
