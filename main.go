package main

import (
	"context"
	"database/sql"
	"errors"
	"log"
	"net/http"
	"os"
	"time"

	"kitchensafe-cloud/internal/alerting"
	"kitchensafe-cloud/internal/audit"
	"kitchensafe-cloud/internal/auth"
	blastchillapp "kitchensafe-cloud/internal/blastchill/application"
	blastchillhttp "kitchensafe-cloud/internal/blastchill/interfaces/http"
	foodcostapp "kitchensafe-cloud/internal/foodcost/application"
	foodcostrepo "kitchensafe-cloud/internal/foodcost/infrastructure/postgres"
	foodcosthttp "kitchensafe-cloud/internal/foodcost/interfaces/http"
	maintenanceapp "kitchensafe-cloud/internal/maintenance/application"
	maintenancerepo "kitchensafe-cloud/internal/maintenance/infrastructure/postgres"
	maintenancehttp "kitchensafe-cloud/internal/maintenance/interfaces/http"
	"kitchensafe-cloud/internal/observability/metrics"
	procurementapp "kitchensafe-cloud/internal/procurement/application"
	procurementrepo "kitchensafe-cloud/internal/procurement/infrastructure/postgres"
	procurementhttp "kitchensafe-cloud/internal/procurement/interfaces/http"
	propertyrepo "kitchensafe-cloud/internal/property/infrastructure/postgres"
	refrigerationapp "kitchensafe-cloud/internal/refrigeration/application"
	refrigerationrepo "kitchensafe-cloud/internal/refrigeration/infrastructure/postgres"
	refrigerationhttp "kitchensafe-cloud/internal/refrigeration/interfaces/http"
	reportsapp "kitchensafe-cloud/internal/reports/application"
	reportshttp "kitchensafe-cloud/internal/reports/interfaces/http"
	rotaapp "kitchensafe-cloud/internal/rota/application"
	rotarepo "kitchensafe-cloud/internal/rota/infrastructure/postgres"
	rotahttp "kitchensafe-cloud/internal/rota/interfaces/http"
	settingsrepo "kitchensafe-cloud/internal/settings/infrastructure/postgres"
	settingshttp "kitchensafe-cloud/internal/settings/interfaces/http"
	teamlogapp "kitchensafe-cloud/internal/teamlog/application"
	teamlogrepo "kitchensafe-cloud/internal/teamlog/infrastructure/postgres"
	teamloghttp "kitchensafe-cloud/internal/teamlog/interfaces/http"
	templogapp "kitchensafe-cloud/internal/templog/application"
	templogrepo "kitchensafe-cloud/internal/templog/infrastructure/postgres"
	temploghttp "kitchensafe-cloud/internal/templog/interfaces/http"

	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func main() {
	cfg := loadConfig()
	logger := log.New(os.Stdout, "", log.LstdFlags)

	db, err := sql.Open("pgx", cfg.DatabaseURL)
	if err != nil {
		logger.Fatalf("db open error: %v", err)
	}
	defer db.Close()

	if err := db.Ping(); err != nil {
		logger.Fatalf("db ping error: %v", err)
	}

	metrics.Init(db, logger)
	auditRepo := audit.NewRepository(db)
	membershipChecker := auth.NewMembershipChecker(db)

	propertyRepo := propertyrepo.NewPropertyRepository(db)
	userRepo := propertyrepo.NewUserRepository(db)
	settingsRepo := settingsrepo.NewSettingsRepository(db)
	recordRepo := templogrepo.NewRecordRepository(db)

	settingsHandler, err := settingshttp.NewHandler(settingsRepo, auditRepo)
	if err != nil {
		logger.Fatalf("settings handler error: %v", err)
	}

	alertCfg, err := alerting.LoadConfig()
	if err != nil {
		logger.Fatalf("alerting config error: %v", err)
	}
	var alertNotifier *alerting.Notifier
	if alertCfg.Enabled() {
		channel, err := alerting.NewWebhookChannel(alertCfg.WebhookURL)
		if err != nil {
			logger.Fatalf("alert webhook error: %v", err)
		}
		tpl, err := alerting.NewTemplate(alertCfg.Template)
		if err != nil {
			logger.Fatalf("alert template error: %v", err)
		}
		alertNotifier, err = alerting.NewNotifier(meteredChannel{inner: channel}, tpl,
			alerting.WithCooldown(alertCfg.Cooldown),
			alerting.WithDedupeWindow(alertCfg.DedupeWindow),
			alerting.WithUserDirectory(userRepo),
			alerting.WithPropertyRepository(propertyRepo),
		)
		if err != nil {
			logger.Fatalf("alert notifier error: %v", err)
		}
	}

	templogOpts := []templogapp.Option{templogapp.WithMetrics(templogMetrics{})}
	templogService, err := templogapp.NewService(recordRepo, userRepo, systemClock{}, templogOpts...)
	if err != nil {
		logger.Fatalf("temp log service error: %v", err)
	}
	templogHandler, err := temploghttp.NewHandler(templogService, auditRepo)
	if err != nil {
		logger.Fatalf("temp log handler error: %v", err)
	}

	blastchillOpts := []blastchillapp.Option{blastchillapp.WithMetrics(blastchillMetrics{})}
	if alertNotifier != nil {
		blastchillOpts = append(blastchillOpts, blastchillapp.WithNotifier(alertNotifier))
	}
	blastchillService, err := blastchillapp.NewService(recordRepo, settingsRepo, userRepo, systemClock{}, blastchillOpts...)
	if err != nil {
		logger.Fatalf("blast chill service error: %v", err)
	}
	blastchillHandler, err := blastchillhttp.NewHandler(blastchillService, auditRepo)
	if err != nil {
		logger.Fatalf("blast chill handler error: %v", err)
	}

	unitRepo, err := refrigerationrepo.NewUnitRepository(db)
	if err != nil {
		logger.Fatalf("unit repository error: %v", err)
	}
	checkRepo, err := refrigerationrepo.NewCheckRepository(db)
	if err != nil {
		logger.Fatalf("check repository error: %v", err)
	}
	refrigerationOpts := []refrigerationapp.Option{refrigerationapp.WithMetrics(refrigerationMetrics{})}
	if alertNotifier != nil {
		refrigerationOpts = append(refrigerationOpts, refrigerationapp.WithNotifier(alertNotifier))
	}
	refrigerationService, err := refrigerationapp.NewService(unitRepo, checkRepo, settingsRepo, userRepo, systemClock{}, refrigerationOpts...)
	if err != nil {
		logger.Fatalf("refrigeration service error: %v", err)
	}
	refrigerationHandler, err := refrigerationhttp.NewHandler(refrigerationService, auditRepo)
	if err != nil {
		logger.Fatalf("refrigeration handler error: %v", err)
	}

	foodCostRepo, err := foodcostrepo.NewFoodCostRepository(db)
	if err != nil {
		logger.Fatalf("food cost repository error: %v", err)
	}
	foodCostService, err := foodcostapp.NewService(foodCostRepo, settingsRepo)
	if err != nil {
		logger.Fatalf("food cost service error: %v", err)
	}
	foodCostHandler, err := foodcosthttp.NewHandler(foodCostService, auditRepo)
	if err != nil {
		logger.Fatalf("food cost handler error: %v", err)
	}

	requestRepo, err := procurementrepo.NewRequestRepository(db)
	if err != nil {
		logger.Fatalf("procurement repository error: %v", err)
	}
	procurementService, err := procurementapp.NewService(requestRepo, userRepo, systemClock{})
	if err != nil {
		logger.Fatalf("procurement service error: %v", err)
	}
	procurementHandler, err := procurementhttp.NewHandler(procurementService, auditRepo)
	if err != nil {
		logger.Fatalf("procurement handler error: %v", err)
	}

	ticketRepo, err := maintenancerepo.NewTicketRepository(db)
	if err != nil {
		logger.Fatalf("maintenance repository error: %v", err)
	}
	maintenanceService, err := maintenanceapp.NewService(ticketRepo, userRepo, systemClock{})
	if err != nil {
		logger.Fatalf("maintenance service error: %v", err)
	}
	maintenanceHandler, err := maintenancehttp.NewHandler(maintenanceService, auditRepo)
	if err != nil {
		logger.Fatalf("maintenance handler error: %v", err)
	}

	weekRepo, err := rotarepo.NewWeekRepository(db)
	if err != nil {
		logger.Fatalf("rota week repository error: %v", err)
	}
	shiftRepo, err := rotarepo.NewShiftRepository(db)
	if err != nil {
		logger.Fatalf("rota shift repository error: %v", err)
	}
	membershipRepo := propertyrepo.NewMembershipRepository(db)
	rotaService, err := rotaapp.NewService(weekRepo, shiftRepo, membershipRepo, userRepo, systemClock{})
	if err != nil {
		logger.Fatalf("rota service error: %v", err)
	}
	rotaHandler, err := rotahttp.NewHandler(rotaService, auditRepo)
	if err != nil {
		logger.Fatalf("rota handler error: %v", err)
	}

	handoverRepo, err := teamlogrepo.NewHandoverRepository(db)
	if err != nil {
		logger.Fatalf("team log repository error: %v", err)
	}
	teamlogService, err := teamlogapp.NewService(handoverRepo, userRepo, systemClock{})
	if err != nil {
		logger.Fatalf("team log service error: %v", err)
	}
	teamlogHandler, err := teamloghttp.NewHandler(teamlogService, auditRepo)
	if err != nil {
		logger.Fatalf("team log handler error: %v", err)
	}

	reportsService, err := reportsapp.NewService(propertyRepo, recordRepo, checkRepo, unitRepo, ticketRepo, systemClock{},
		reportsapp.WithMetrics(reportsMetrics{}))
	if err != nil {
		logger.Fatalf("reports service error: %v", err)
	}
	reportsHandler, err := reportshttp.NewHandler(reportsService, auditRepo)
	if err != nil {
		logger.Fatalf("reports handler error: %v", err)
	}

	policy := auth.NewDefaultPolicy([]string{"/healthz", "/metrics"}, nil)
	authMiddleware := auth.NewMiddleware([]byte(cfg.JWTSecret), policy)

	mux := http.NewServeMux()
	mux.Handle("/api/v1/settings", settingsHandler)
	mux.Handle("/api/v1/temp-logs", templogHandler)
	mux.Handle("/api/v1/temp-logs/", templogHandler)
	mux.Handle("/api/v1/blast-chill/", blastchillHandler)
	mux.Handle("/api/v1/refrigeration", refrigerationHandler)
	mux.Handle("/api/v1/refrigeration/", refrigerationHandler)
	mux.Handle("/api/v1/temperature", refrigerationHandler)
	mux.Handle("/api/v1/temperature/", refrigerationHandler)
	mux.Handle("/api/v1/food-cost/", foodCostHandler)
	mux.Handle("/api/v1/procurement/requests", procurementHandler)
	mux.Handle("/api/v1/procurement/requests/", procurementHandler)
	mux.Handle("/api/v1/maintenance/", maintenanceHandler)
	mux.Handle("/api/v1/rotas/", rotaHandler)
	mux.Handle("/api/v1/team-log/", teamlogHandler)
	mux.Handle("/api/v1/reports/", reportsHandler)
	mux.Handle("/metrics", promhttp.Handler())
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	handler := loggingMiddleware(authMiddleware.Wrap(membershipMiddleware(mux, membershipChecker)), logger)
	server := &http.Server{Addr: cfg.HTTPAddr, Handler: handler}
	logger.Printf("http listening on %s", cfg.HTTPAddr)
	logger.Fatal(server.ListenAndServe())
}

type config struct {
	DatabaseURL string
	HTTPAddr    string
	JWTSecret   string
}

func loadConfig() config {
	cfg := config{
		DatabaseURL: getenvDefault("DATABASE_URL", getenvDefault("PG_DSN", "")),
		HTTPAddr:    getenvDefault("HTTP_ADDR", ":8080"),
		JWTSecret:   getenvDefault("AUTH_JWT_SECRET", getenvDefault("JWT_SECRET", "")),
	}
	if cfg.DatabaseURL == "" {
		log.Fatal("DATABASE_URL or PG_DSN is required")
	}
	if cfg.JWTSecret == "" {
		log.Fatal("AUTH_JWT_SECRET is required")
	}
	return cfg
}

func getenvDefault(key, fallback string) string {
	value := os.Getenv(key)
	if value == "" {
		return fallback
	}
	return value
}

// membershipMiddleware rejects authenticated requests whose subject holds no
// active membership at the property claimed in the token.
func membershipMiddleware(next http.Handler, checker auth.PropertyMemberChecker) http.Handler {
	if checker == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		propertyID := auth.PropertyIDFromContext(r.Context())
		subject := auth.SubjectFromContext(r.Context())
		if propertyID != "" && subject != "" {
			if err := checker.EnsureMember(r.Context(), propertyID, subject); err != nil {
				if errors.Is(err, auth.ErrNotMember) {
					metrics.IncAuthFailure("membership")
					http.Error(w, "forbidden", http.StatusForbidden)
					return
				}
				http.Error(w, "membership check failed", http.StatusInternalServerError)
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func loggingMiddleware(next http.Handler, logger *log.Logger) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		resp := &statusWriter{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(resp, r)
		logger.Printf("http %s %s %d %s", r.Method, r.URL.Path, resp.status, time.Since(start))
	})
}

type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(status int) {
	w.status = status
	w.ResponseWriter.WriteHeader(status)
}

// ---- Adapters ----

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

type templogMetrics struct{}

func (templogMetrics) IncLogWrite(status string) { metrics.IncLogWrite(status) }

type refrigerationMetrics struct{}

func (refrigerationMetrics) IncCheckWrite(status string, inRange bool) {
	metrics.IncCheckWrite(status, inRange)
}

type blastchillMetrics struct{}

func (blastchillMetrics) ObserveReconcile(result string, seconds float64) {
	metrics.ObserveReconcile(result, seconds)
}

type reportsMetrics struct{}

func (reportsMetrics) IncReportExport(format string) { metrics.IncReportExport(format) }

type meteredChannel struct {
	inner alerting.Channel
}

func (c meteredChannel) Send(ctx context.Context, content string) error {
	if err := c.inner.Send(ctx, content); err != nil {
		return err
	}
	metrics.IncAlertSent("webhook")
	return nil
}
