package http

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	templogapp "kitchensafe-cloud/internal/templog/application"
)

const timeLayout = time.RFC3339

// Handler provides temperature log HTTP endpoints under /api/v1/temp-logs/.
type Handler struct {
	service     *templogapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *templogapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("temp log handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes create writes and today/range/export reads.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	action := strings.TrimPrefix(r.URL.Path, "/api/v1/temp-logs")
	action = strings.TrimPrefix(action, "/")
	switch {
	case action == "" && r.Method == http.MethodPost:
		h.handleCreate(w, r)
	case action == "today" && r.Method == http.MethodGet:
		h.handleToday(w, r)
	case action == "range" && r.Method == http.MethodGet:
		h.handleRange(w, r)
	case action == "export.csv" && r.Method == http.MethodGet:
		h.handleExportCSV(w, r)
	case action == "" || action == "today" || action == "range" || action == "export.csv":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type createPayload struct {
	ID       string   `json:"id"`
	FoodName string   `json:"foodName"`
	TempC    *float64 `json:"tempC"`
	Notes    string   `json:"notes"`
	Period   string   `json:"period"`
	Status   string   `json:"status"`
	LoggedAt string   `json:"loggedAt"`
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

	var loggedAt *time.Time
	if payload.LoggedAt != "" {
		parsed, err := time.Parse(timeLayout, payload.LoggedAt)
		if err != nil {
			http.Error(w, "loggedAt must be RFC3339", http.StatusBadRequest)
			return
		}
		loggedAt = &parsed
	}

	record, err := h.service.Create(r.Context(), templogapp.CreateRequest{
		ID:         payload.ID,
		PropertyID: auth.PropertyIDFromContext(r.Context()),
		UserID:     auth.SubjectFromContext(r.Context()),
		FoodName:   payload.FoodName,
		TempC:      payload.TempC,
		Notes:      payload.Notes,
		Period:     payload.Period,
		Status:     payload.Status,
		LoggedAt:   loggedAt,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"mode": "created", "log": record})

	h.logAudit(r, record.ID, body)
}

func (h *Handler) handleToday(w http.ResponseWriter, r *http.Request) {
	result, err := h.service.Today(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleRange(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Range(r.Context(), auth.PropertyIDFromContext(r.Context()), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(result)
}

func (h *Handler) handleExportCSV(w http.ResponseWriter, r *http.Request) {
	from, to, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	result, err := h.service.Range(r.Context(), auth.PropertyIDFromContext(r.Context()), from, to)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="temp-logs.csv"`)
	writer := csv.NewWriter(w)
	_ = writer.Write([]string{
		"logged_at",
		"log_date",
		"food_name",
		"temp_c",
		"period",
		"status",
		"notes",
	})
	for _, rec := range result.Logs {
		tempC := ""
		if rec.TempC != nil {
			tempC = strconv.FormatFloat(*rec.TempC, 'f', 1, 64)
		}
		_ = writer.Write([]string{
			rec.LoggedAt.Format(timeLayout),
			rec.LogDate.Format("2006-01-02"),
			rec.FoodName,
			tempC,
			string(rec.Period),
			string(rec.Status),
			rec.Notes,
		})
	}
	writer.Flush()
}

func (h *Handler) logAudit(r *http.Request, recordID string, body []byte) {
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
		Action:        "templog.create",
		ResourceType:  "food_temperature_log",
		ResourceID:    recordID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func parseRangeQuery(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if value := r.URL.Query().Get("from"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("from must be RFC3339")
		}
		from = parsed
	}
	if value := r.URL.Query().Get("to"); value != "" {
		parsed, err := time.Parse(timeLayout, value)
		if err != nil {
			return time.Time{}, time.Time{}, errors.New("to must be RFC3339")
		}
		to = parsed
	}
	return from, to, nil
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, templogapp.ErrImmutable),
		errors.Is(err, templogapp.ErrFoodNameRequired),
		errors.Is(err, templogapp.ErrInvalidPeriod),
		errors.Is(err, templogapp.ErrInvalidStatus),
		errors.Is(err, templogapp.ErrInvalidRange),
		errors.Is(err, templogapp.ErrRangeTooOld):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
