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
	rotaapp "kitchensafe-cloud/internal/rota/application"
	rota "kitchensafe-cloud/internal/rota/domain"
)

const basePath = "/api/v1/rotas/"

// Handler provides rota HTTP endpoints under /api/v1/rotas/.
type Handler struct {
	service     *rotaapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *rotaapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("rota handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes shift writes, week views and week-level actions.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	rest := strings.TrimPrefix(r.URL.Path, basePath)
	switch {
	case rest == "shifts" && r.Method == http.MethodPost:
		h.handleCreateShift(w, r)
	case strings.HasPrefix(rest, "shifts/") && r.Method == http.MethodPatch:
		h.handleUpdateShift(w, r, strings.TrimPrefix(rest, "shifts/"))
	case strings.HasPrefix(rest, "shifts/") && r.Method == http.MethodDelete:
		h.handleDeleteShift(w, r, strings.TrimPrefix(rest, "shifts/"))
	case rest == "week" && r.Method == http.MethodGet:
		h.handleWeek(w, r)
	case rest == "week/publish" && r.Method == http.MethodPost:
		h.handlePublish(w, r, true)
	case rest == "week/unpublish" && r.Method == http.MethodPost:
		h.handlePublish(w, r, false)
	case rest == "week/clear" && r.Method == http.MethodPost:
		h.handleClear(w, r)
	case rest == "shifts" || strings.HasPrefix(rest, "shifts/"),
		rest == "week" || strings.HasPrefix(rest, "week/"):
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type shiftPayload struct {
	WeekStart      string `json:"weekStart"`
	DayIndex       *int   `json:"dayIndex"`
	StartTime      string `json:"startTime"`
	EndTime        string `json:"endTime"`
	Role           string `json:"role"`
	Notes          string `json:"notes"`
	AssigneeUserID string `json:"assigneeUserId"`
}

func (h *Handler) handleCreateShift(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload shiftPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	weekStart, err := parseDate(payload.WeekStart)
	if err != nil {
		http.Error(w, "weekStart must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	dayIndex := -1
	if payload.DayIndex != nil {
		dayIndex = *payload.DayIndex
	}

	shift, err := h.service.CreateShift(r.Context(), rotaapp.CreateShiftRequest{
		PropertyID:     auth.PropertyIDFromContext(r.Context()),
		WeekStart:      weekStart,
		DayIndex:       dayIndex,
		StartTime:      payload.StartTime,
		EndTime:        payload.EndTime,
		Role:           payload.Role,
		Notes:          payload.Notes,
		AssigneeUserID: payload.AssigneeUserID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "shift": shift})

	h.logAudit(r, "rota.shift.create", shift.ID, body)
}

func (h *Handler) handleUpdateShift(w http.ResponseWriter, r *http.Request, shiftID string) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload shiftPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	err = h.service.UpdateShift(r.Context(), rotaapp.UpdateShiftRequest{
		PropertyID:     auth.PropertyIDFromContext(r.Context()),
		ShiftID:        shiftID,
		StartTime:      payload.StartTime,
		EndTime:        payload.EndTime,
		Role:           payload.Role,
		Notes:          payload.Notes,
		AssigneeUserID: payload.AssigneeUserID,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "rota.shift.update", shiftID, body)
}

func (h *Handler) handleDeleteShift(w http.ResponseWriter, r *http.Request, shiftID string) {
	err := h.service.DeleteShift(r.Context(), auth.PropertyIDFromContext(r.Context()), shiftID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "rota.shift.delete", shiftID, nil)
}

func (h *Handler) handleWeek(w http.ResponseWriter, r *http.Request) {
	start, err := parseDate(r.URL.Query().Get("start"))
	if err != nil {
		http.Error(w, "start must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
		return
	}
	privileged := auth.RoleFromContext(r.Context()) == auth.RoleAdmin
	view, err := h.service.Week(r.Context(), auth.PropertyIDFromContext(r.Context()), start, privileged)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"week": view})
}

type weekPayload struct {
	WeekStart string `json:"weekStart"`
}

func (h *Handler) handlePublish(w http.ResponseWriter, r *http.Request, publish bool) {
	body, weekStart, ok := h.readWeekPayload(w, r)
	if !ok {
		return
	}

	propertyID := auth.PropertyIDFromContext(r.Context())
	var week rota.Week
	var err error
	action := "rota.week.publish"
	if publish {
		week, err = h.service.Publish(r.Context(), propertyID, auth.SubjectFromContext(r.Context()), weekStart)
	} else {
		action = "rota.week.unpublish"
		week, err = h.service.Unpublish(r.Context(), propertyID, weekStart)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "week": week})

	h.logAudit(r, action, week.ID, body)
}

func (h *Handler) handleClear(w http.ResponseWriter, r *http.Request) {
	body, weekStart, ok := h.readWeekPayload(w, r)
	if !ok {
		return
	}

	if err := h.service.ClearWeek(r.Context(), auth.PropertyIDFromContext(r.Context()), weekStart); err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})

	h.logAudit(r, "rota.week.clear", weekStart.Format("2006-01-02"), body)
}

func (h *Handler) readWeekPayload(w http.ResponseWriter, r *http.Request) ([]byte, time.Time, bool) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return nil, time.Time{}, false
	}
	defer r.Body.Close()

	var payload weekPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return nil, time.Time{}, false
	}
	weekStart, err := parseDate(payload.WeekStart)
	if err != nil {
		http.Error(w, "weekStart must be RFC3339 or YYYY-MM-DD", http.StatusBadRequest)
		return nil, time.Time{}, false
	}
	return body, weekStart, true
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
		ResourceType:  "rota",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

// parseDate accepts RFC3339 or a plain date. Empty input maps to the zero
// time so the service can decide whether the field was required.
func parseDate(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, rotaapp.ErrWeekStartRequired),
		errors.Is(err, rotaapp.ErrDayIndex),
		errors.Is(err, rotaapp.ErrTimeFormat),
		errors.Is(err, rotaapp.ErrRoleRequired),
		errors.Is(err, rotaapp.ErrIDRequired),
		errors.Is(err, rotaapp.ErrAssigneeNotMember):
		http.Error(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, rotaapp.ErrWeekNotPublished):
		http.Error(w, err.Error(), http.StatusForbidden)
	case errors.Is(err, rota.ErrShiftNotFound):
		http.Error(w, err.Error(), http.StatusNotFound)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
