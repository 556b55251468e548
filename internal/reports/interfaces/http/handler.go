package http

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	reportsapp "kitchensafe-cloud/internal/reports/application"
)

// Handler serves inspection pack exports under /api/v1/reports.
type Handler struct {
	service     *reportsapp.Service
	auditLogger audit.Logger
}

// NewHandler constructs a handler.
func NewHandler(service *reportsapp.Service, auditLogger audit.Logger) (*Handler, error) {
	if service == nil {
		return nil, errors.New("reports handler: nil service")
	}
	return &Handler{service: service, auditLogger: auditLogger}, nil
}

// ServeHTTP routes inspection pack downloads.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	switch r.URL.Path {
	case "/api/v1/reports/eho-pack":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "pdf")
	case "/api/v1/reports/eho-pack.xlsx":
		if r.Method != http.MethodGet {
			w.WriteHeader(http.StatusMethodNotAllowed)
			return
		}
		h.handleExport(w, r, "xlsx")
	default:
		http.NotFound(w, r)
	}
}

func (h *Handler) handleExport(w http.ResponseWriter, r *http.Request, format string) {
	from, to, err := parseRangeQuery(r)
	if err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}

	propertyID := auth.PropertyIDFromContext(r.Context())
	var data []byte
	switch format {
	case "xlsx":
		data, err = h.service.ExportXLSX(r.Context(), propertyID, from, to)
	default:
		data, err = h.service.ExportPDF(r.Context(), propertyID, from, to)
	}
	if err != nil {
		if errors.Is(err, reportsapp.ErrInvalidRange) {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}

	stamp := time.Now().UTC().Format("2006-01-02")
	if format == "xlsx" {
		w.Header().Set("Content-Type", "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=eho-pack-%s.xlsx", stamp))
	} else {
		w.Header().Set("Content-Type", "application/pdf")
		w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=eho-pack-%s.pdf", stamp))
	}
	_, _ = w.Write(data)

	h.logAudit(r, format)
}

func parseRangeQuery(r *http.Request) (time.Time, time.Time, error) {
	var from, to time.Time
	if raw := r.URL.Query().Get("from"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid from: %w", err)
		}
		from = parsed
	}
	if raw := r.URL.Query().Get("to"); raw != "" {
		parsed, err := parseTimeParam(raw)
		if err != nil {
			return time.Time{}, time.Time{}, fmt.Errorf("invalid to: %w", err)
		}
		to = parsed
	}
	return from, to, nil
}

func parseTimeParam(raw string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}

func (h *Handler) logAudit(r *http.Request, format string) {
	if h.auditLogger == nil {
		return
	}
	propertyID := auth.PropertyIDFromContext(r.Context())
	if propertyID == "" {
		return
	}
	_ = h.auditLogger.Log(r.Context(), audit.Entry{
		PropertyID:   propertyID,
		Actor:        auth.SubjectFromContext(r.Context()),
		Role:         string(auth.RoleFromContext(r.Context())),
		Action:       "report.eho.export",
		ResourceType: "report",
		ResourceID:   format,
		IP:           audit.ClientIP(r),
		UserAgent:    r.UserAgent(),
	})
}
