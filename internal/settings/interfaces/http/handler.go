package http

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	settings "kitchensafe-cloud/internal/settings/domain"
)

// Handler serves property settings reads and updates.
type Handler struct {
	repo        settings.Repository
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(repo settings.Repository, auditLogger audit.Logger) (*Handler, error) {
	if repo == nil {
		return nil, errors.New("settings handler: nil repo")
	}
	return &Handler{repo: repo, auditLogger: auditLogger}, nil
}

type settingsPayload struct {
	FridgeMinTenthC        *int `json:"fridgeMinTenthC"`
	FridgeMaxTenthC        *int `json:"fridgeMaxTenthC"`
	FreezerMinTenthC       *int `json:"freezerMinTenthC"`
	FreezerMaxTenthC       *int `json:"freezerMaxTenthC"`
	CookedMinTenthC        *int `json:"cookedMinTenthC"`
	ReheatedMinTenthC      *int `json:"reheatedMinTenthC"`
	ChilledMinTenthC       *int `json:"chilledMinTenthC"`
	ChilledMaxTenthC       *int `json:"chilledMaxTenthC"`
	BlastChillTargetTenthC *int `json:"blastChillTargetTenthC"`
	BlastChillMaxMinutes   *int `json:"blastChillMaxMinutes"`
	FoodCostTargetBps      *int `json:"foodCostTargetBps"`
}

// ServeHTTP handles GET/POST /api/v1/settings.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.handleGet(w, r)
	case http.MethodPost:
		h.handlePost(w, r)
	default:
		w.WriteHeader(http.StatusMethodNotAllowed)
	}
}

func (h *Handler) handleGet(w http.ResponseWriter, r *http.Request) {
	propertyID := auth.PropertyIDFromContext(r.Context())
	if propertyID == "" {
		http.Error(w, "no active property", http.StatusBadRequest)
		return
	}

	current, err := h.repo.Get(r.Context(), propertyID)
	if err != nil {
		http.Error(w, "load settings error", http.StatusInternalServerError)
		return
	}
	writeSettings(w, current)
}

func (h *Handler) handlePost(w http.ResponseWriter, r *http.Request) {
	propertyID := auth.PropertyIDFromContext(r.Context())
	if propertyID == "" {
		http.Error(w, "no active property", http.StatusBadRequest)
		return
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload settingsPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	current, err := h.repo.Get(r.Context(), propertyID)
	if err != nil {
		http.Error(w, "load settings error", http.StatusInternalServerError)
		return
	}
	applyPayload(&current, payload)

	if err := current.Validate(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if err := h.repo.Save(r.Context(), current); err != nil {
		http.Error(w, "save settings error", http.StatusInternalServerError)
		return
	}

	writeSettings(w, current)
	h.logAudit(r, propertyID, body)
}

func applyPayload(s *settings.PropertySettings, p settingsPayload) {
	setInt := func(dst *int, src *int) {
		if src != nil {
			*dst = *src
		}
	}
	setInt(&s.FridgeMinTenthC, p.FridgeMinTenthC)
	setInt(&s.FridgeMaxTenthC, p.FridgeMaxTenthC)
	setInt(&s.FreezerMinTenthC, p.FreezerMinTenthC)
	setInt(&s.FreezerMaxTenthC, p.FreezerMaxTenthC)
	setInt(&s.CookedMinTenthC, p.CookedMinTenthC)
	setInt(&s.ReheatedMinTenthC, p.ReheatedMinTenthC)
	setInt(&s.ChilledMinTenthC, p.ChilledMinTenthC)
	setInt(&s.ChilledMaxTenthC, p.ChilledMaxTenthC)
	setInt(&s.BlastChillTargetTenthC, p.BlastChillTargetTenthC)
	setInt(&s.BlastChillMaxMinutes, p.BlastChillMaxMinutes)
	setInt(&s.FoodCostTargetBps, p.FoodCostTargetBps)
}

func writeSettings(w http.ResponseWriter, s settings.PropertySettings) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"settings": s})
}

func (h *Handler) logAudit(r *http.Request, propertyID string, payload []byte) {
	if h.auditLogger == nil || propertyID == "" {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		PropertyID:   propertyID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "settings.update",
		ResourceType: "property_settings",
		ResourceID:   propertyID,
		Metadata:     payload,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
