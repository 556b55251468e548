package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	templog "kitchensafe-cloud/internal/templog/domain"
)

// RecordRepository is a Postgres implementation for temperature log records.
type RecordRepository struct {
	db DBTX
}

// NewRecordRepository constructs a repository.
func NewRecordRepository(db DBTX) *RecordRepository {
	return &RecordRepository{db: db}
}

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const recordColumns = `
id, property_id, food_name, logged_at, log_date, temp_c, COALESCE(notes, ''),
COALESCE(period, ''), status, COALESCE(chill_event, ''), COALESCE(batch_id, ''),
chill_minutes, created_by_user_id, created_at`

// Insert appends a record. Records are immutable; there is no update path.
func (r *RecordRepository) Insert(ctx context.Context, rec *templog.Record) error {
	if r == nil || r.db == nil {
		return errors.New("temp log repo: nil db")
	}
	if rec == nil {
		return errors.New("temp log repo: nil record")
	}
	if err := rec.Validate(); err != nil {
		return err
	}
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now().UTC()
	}
	if rec.LogDate.IsZero() {
		rec.LogDate = templog.UTCDayStart(rec.LoggedAt)
	}

	_, err := r.db.ExecContext(ctx, `
INSERT INTO food_temperature_logs (
	id, property_id, food_name, logged_at, log_date, temp_c, notes,
	period, status, chill_event, batch_id, chill_minutes,
	created_by_user_id, created_at
) VALUES (
	$1,$2,$3,$4,$5,$6,NULLIF($7,''),
	NULLIF($8,''),$9,NULLIF($10,''),NULLIF($11,''),$12,
	$13,$14
)`,
		rec.ID, rec.PropertyID, rec.FoodName, rec.LoggedAt.UTC(), rec.LogDate.UTC(), rec.TempC, rec.Notes,
		string(rec.Period), string(rec.Status), string(rec.ChillEvent), rec.BatchID, rec.ChillMinutes,
		rec.CreatedByUserID, rec.CreatedAt)
	return err
}

// ListDay returns records for one UTC day, newest first.
func (r *RecordRepository) ListDay(ctx context.Context, propertyID string, dayStart time.Time) ([]templog.Record, error) {
	dayStart = templog.UTCDayStart(dayStart)
	return r.list(ctx, `
SELECT `+recordColumns+`
FROM food_temperature_logs
WHERE property_id = $1 AND logged_at >= $2 AND logged_at < $3
ORDER BY logged_at DESC
LIMIT 2000`, propertyID, dayStart, dayStart.Add(24*time.Hour))
}

// ListRange returns records between from (inclusive) and to (exclusive), newest first.
func (r *RecordRepository) ListRange(ctx context.Context, propertyID string, from, to time.Time) ([]templog.Record, error) {
	return r.list(ctx, `
SELECT `+recordColumns+`
FROM food_temperature_logs
WHERE property_id = $1 AND logged_at >= $2 AND logged_at < $3
ORDER BY logged_at DESC
LIMIT 5000`, propertyID, from.UTC(), to.UTC())
}

// ListChillEvents returns blast-chill events logged at or after from.
func (r *RecordRepository) ListChillEvents(ctx context.Context, propertyID string, from time.Time) ([]templog.Record, error) {
	return r.list(ctx, `
SELECT `+recordColumns+`
FROM food_temperature_logs
WHERE property_id = $1 AND chill_event IS NOT NULL AND logged_at >= $2
ORDER BY logged_at DESC
LIMIT 4000`, propertyID, from.UTC())
}

// LatestChillStart resolves the most recent START by batch id, else food name.
func (r *RecordRepository) LatestChillStart(ctx context.Context, propertyID, batchID, foodName string) (*templog.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("temp log repo: nil db")
	}

	var rows []templog.Record
	var err error
	if batchID != "" {
		rows, err = r.list(ctx, `
SELECT `+recordColumns+`
FROM food_temperature_logs
WHERE property_id = $1 AND chill_event = 'START' AND batch_id = $2
ORDER BY logged_at DESC
LIMIT 1`, propertyID, batchID)
	} else {
		rows, err = r.list(ctx, `
SELECT `+recordColumns+`
FROM food_temperature_logs
WHERE property_id = $1 AND chill_event = 'START' AND food_name = $2
ORDER BY logged_at DESC
LIMIT 1`, propertyID, foodName)
	}
	if err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec := rows[0]
	return &rec, nil
}

func (r *RecordRepository) list(ctx context.Context, query string, args ...any) ([]templog.Record, error) {
	if r == nil || r.db == nil {
		return nil, errors.New("temp log repo: nil db")
	}
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var records []templog.Record
	for rows.Next() {
		var rec templog.Record
		var period, status, chillEvent string
		if err := rows.Scan(
			&rec.ID, &rec.PropertyID, &rec.FoodName, &rec.LoggedAt, &rec.LogDate, &rec.TempC, &rec.Notes,
			&period, &status, &chillEvent, &rec.BatchID,
			&rec.ChillMinutes, &rec.CreatedByUserID, &rec.CreatedAt,
		); err != nil {
			return nil, err
		}
		rec.Period = templog.Period(period)
		rec.Status = templog.Status(status)
		rec.ChillEvent = templog.ChillEvent(chillEvent)
		rec.LoggedAt = rec.LoggedAt.UTC()
		rec.LogDate = rec.LogDate.UTC()
		rec.CreatedAt = rec.CreatedAt.UTC()
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return records, nil
}
