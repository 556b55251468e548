package integration_test

import (
	"context"
	"database/sql"
	"os"
	"testing"
	"time"

	blastchillapp "kitchensafe-cloud/internal/blastchill/application"
	blastchill "kitchensafe-cloud/internal/blastchill/domain"
	propertyrepo "kitchensafe-cloud/internal/property/infrastructure/postgres"
	settingsrepo "kitchensafe-cloud/internal/settings/infrastructure/postgres"
	templogrepo "kitchensafe-cloud/internal/templog/infrastructure/postgres"

	_ "github.com/jackc/pgx/v5/stdlib"
)

type stepClock struct {
	now time.Time
}

func (c *stepClock) Now() time.Time { return c.now }

func TestBlastChillLedger_Postgres(t *testing.T) {
	dsn := os.Getenv("PG_DSN")
	if dsn == "" {
		t.Skip("PG_DSN not set")
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	defer db.Close()

	if !tableExists(db, "properties") ||
		!tableExists(db, "users") ||
		!tableExists(db, "property_settings") ||
		!tableExists(db, "food_temperature_logs") {
		t.Skip("missing tables; run migrations")
	}

	ctx := context.Background()
	propertyID := "prop-it-chill"
	userID := "user-it-chill"

	_, _ = db.ExecContext(ctx, "DELETE FROM food_temperature_logs WHERE property_id = $1", propertyID)
	_, _ = db.ExecContext(ctx, "DELETE FROM property_settings WHERE property_id = $1", propertyID)
	_, _ = db.ExecContext(ctx, "DELETE FROM properties WHERE id = $1", propertyID)
	_, _ = db.ExecContext(ctx, "DELETE FROM users WHERE id = $1", userID)

	if _, err := db.ExecContext(ctx, `
INSERT INTO properties (id, name, timezone)
VALUES ($1, $2, $3)`, propertyID, "Integration Kitchen", "UTC"); err != nil {
		t.Fatalf("insert property: %v", err)
	}
	if _, err := db.ExecContext(ctx, `
INSERT INTO users (id, email, name)
VALUES ($1, $2, $3)`, userID, "chef@integration.test", "Chef"); err != nil {
		t.Fatalf("insert user: %v", err)
	}

	recordRepo := templogrepo.NewRecordRepository(db)
	settingsRepo := settingsrepo.NewSettingsRepository(db)
	userRepo := propertyrepo.NewUserRepository(db)

	clock := &stepClock{now: time.Now().UTC().Truncate(time.Minute)}
	service, err := blastchillapp.NewService(recordRepo, settingsRepo, userRepo, clock)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	temp := func(v float64) *float64 { return &v }

	started, err := service.StartBatch(ctx, blastchillapp.StartRequest{
		PropertyID: propertyID, UserID: userID, FoodName: "Lamb shank", TempC: temp(72),
	})
	if err != nil {
		t.Fatalf("start batch: %v", err)
	}

	open, err := service.OpenBatches(ctx, propertyID)
	if err != nil {
		t.Fatalf("open batches: %v", err)
	}
	if len(open) != 1 || open[0].BatchID != started.BatchID {
		t.Fatalf("expected started batch open, got %+v", open)
	}

	clock.now = clock.now.Add(40 * time.Minute)
	ended, err := service.EndBatch(ctx, blastchillapp.EndRequest{
		PropertyID: propertyID, UserID: userID, BatchID: started.BatchID, TempC: temp(3.5),
	})
	if err != nil {
		t.Fatalf("end batch: %v", err)
	}
	if ended.Minutes != 40 || ended.Status != blastchill.StatusOK {
		t.Fatalf("unexpected verdict %+v", ended)
	}

	open, err = service.OpenBatches(ctx, propertyID)
	if err != nil {
		t.Fatalf("open batches after end: %v", err)
	}
	if len(open) != 0 {
		t.Fatalf("expected no open batches, got %+v", open)
	}

	today, err := service.TodayBatches(ctx, propertyID)
	if err != nil {
		t.Fatalf("today batches: %v", err)
	}
	if len(today) != 1 || today[0].BatchID != started.BatchID {
		t.Fatalf("expected closed batch today, got %+v", today)
	}
	if today[0].EndBy != "Chef" {
		t.Fatalf("expected EndBy resolved, got %q", today[0].EndBy)
	}

	// The END verdict is stamped on the row, not recomputed on read.
	var stampedStatus string
	var stampedMinutes sql.NullInt64
	if err := db.QueryRowContext(ctx, `
SELECT status, chill_minutes
FROM food_temperature_logs
WHERE property_id = $1 AND chill_event = 'END' AND batch_id = $2`,
		propertyID, started.BatchID).Scan(&stampedStatus, &stampedMinutes); err != nil {
		t.Fatalf("read END row: %v", err)
	}
	if stampedStatus != blastchill.StatusOK || !stampedMinutes.Valid || stampedMinutes.Int64 != 40 {
		t.Fatalf("verdict not stamped: status=%s minutes=%+v", stampedStatus, stampedMinutes)
	}
}

func tableExists(db *sql.DB, name string) bool {
	var exists bool
	err := db.QueryRow(`SELECT EXISTS (
SELECT 1 FROM information_schema.tables WHERE table_name = $1
)`, name).Scan(&exists)
	return err == nil && exists
}
