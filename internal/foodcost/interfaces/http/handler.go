package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	foodcostapp "kitchensafe-cloud/internal/foodcost/application"
	foodcost "kitchensafe-cloud/internal/foodcost/domain"
)

// Handler provides food-cost HTTP endpoints under /api/v1/food-cost/.
type Handler struct {
	service     *foodcostapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *foodcostapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("food cost handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes month writes, year reads, target access and exports.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch {
	case r.URL.Path == "/api/v1/food-cost/month" && r.Method == http.MethodPost:
		h.handleSaveMonth(w, r)
	case r.URL.Path == "/api/v1/food-cost/year" && r.Method == http.MethodGet:
		h.handleYear(w, r)
	case r.URL.Path == "/api/v1/food-cost/target" && r.Method == http.MethodGet:
		h.handleGetTarget(w, r)
	case r.URL.Path == "/api/v1/food-cost/target" && r.Method == http.MethodPost:
		h.handleSetTarget(w, r)
	case r.URL.Path == "/api/v1/food-cost/export.xlsx" && r.Method == http.MethodGet:
		h.handleExportXLSX(w, r)
	case r.URL.Path == "/api/v1/food-cost/month" || r.URL.Path == "/api/v1/food-cost/year" ||
		r.URL.Path == "/api/v1/food-cost/target" || r.URL.Path == "/api/v1/food-cost/export.xlsx":
		w.WriteHeader(http.StatusMethodNotAllowed)
	default:
		http.NotFound(w, r)
	}
}

type monthPayload struct {
	MonthStartISO      string `json:"monthStartISO"`
	OpeningStockPence  *int64 `json:"openingStockPence"`
	FoodPurchasesPence *int64 `json:"foodPurchasesPence"`
	CreditsPence       *int64 `json:"creditsPence"`
	FoodSalesPence     *int64 `json:"foodSalesPence"`
	ClosingStockPence  *int64 `json:"closingStockPence"`
}

func (h *Handler) handleSaveMonth(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload monthPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}
	if payload.MonthStartISO == "" {
		http.Error(w, "monthStartISO is required", http.StatusBadRequest)
		return
	}
	monthStart, err := time.Parse(time.RFC3339, payload.MonthStartISO)
	if err != nil {
		http.Error(w, "monthStartISO must be RFC3339", http.StatusBadRequest)
		return
	}

	record, err := h.service.SaveMonth(r.Context(), auth.PropertyIDFromContext(r.Context()), monthStart, foodcost.Patch{
		OpeningStockPence:  payload.OpeningStockPence,
		FoodPurchasesPence: payload.FoodPurchasesPence,
		CreditsPence:       payload.CreditsPence,
		FoodSalesPence:     payload.FoodSalesPence,
		ClosingStockPence:  payload.ClosingStockPence,
	})
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "record": record})

	h.logAudit(r, "foodcost.month.save", record.MonthStart.Format("2006-01"), body)
}

func (h *Handler) handleYear(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}

	result, err := h.service.Year(r.Context(), auth.PropertyIDFromContext(r.Context()), year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	isAdmin := auth.RoleAtLeast(auth.RoleFromContext(r.Context()), auth.RoleAdmin)
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"ok":      true,
		"year":    result.Year,
		"isAdmin": isAdmin,
		"records": result.Records,
		"target":  result.TargetPct,
	})
}

func (h *Handler) handleGetTarget(w http.ResponseWriter, r *http.Request) {
	target, err := h.service.TargetPct(r.Context(), auth.PropertyIDFromContext(r.Context()))
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "targetFoodCostPct": target})
}

type targetPayload struct {
	TargetFoodCostPct *float64 `json:"targetFoodCostPct"`
}

func (h *Handler) handleSetTarget(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(r.Body)
	if err != nil {
		http.Error(w, "read body error", http.StatusBadRequest)
		return
	}
	defer r.Body.Close()

	var payload targetPayload
	if err := json.Unmarshal(body, &payload); err != nil {
		http.Error(w, "invalid json", http.StatusBadRequest)
		return
	}

	if err := h.service.SetTargetPct(r.Context(), auth.PropertyIDFromContext(r.Context()), payload.TargetFoodCostPct); err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "targetFoodCostPct": payload.TargetFoodCostPct})

	h.logAudit(r, "foodcost.target.save", "target", body)
}

func (h *Handler) handleExportXLSX(w http.ResponseWriter, r *http.Request) {
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		http.Error(w, "year is required", http.StatusBadRequest)
		return
	}

	data, err := h.service.ExportYearXLSX(r.Context(), auth.PropertyIDFromContext(r.Context()), year)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", fmt.Sprintf(`attachment; filename="food-cost-%d.xlsx"`, year))
	_, _ = w.Write(data)
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
		ResourceType:  "monthly_food_cost",
		ResourceID:    resourceID,
		PayloadDigest: audit.DigestJSON(body),
		IP:            audit.ClientIP(r),
		UserAgent:     r.UserAgent(),
	})
}

func respondServiceError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, foodcost.ErrMonthRequired),
		errors.Is(err, foodcostapp.ErrInvalidMonth),
		errors.Is(err, foodcostapp.ErrInvalidYear),
		errors.Is(err, foodcostapp.ErrEmptyPatch),
		errors.Is(err, foodcostapp.ErrInvalidTarget):
		http.Error(w, err.Error(), http.StatusBadRequest)
	default:
		http.Error(w, err.Error(), http.StatusInternalServerError)
	}
}
