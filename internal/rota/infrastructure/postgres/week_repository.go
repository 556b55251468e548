package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	rota "kitchensafe-cloud/internal/rota/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

const weekColumns = `id, property_id, week_start, is_published, published_at, COALESCE(published_by_user_id, ''), created_at`

// WeekRepository persists rota weeks in PostgreSQL.
type WeekRepository struct {
	db DBTX
}

// NewWeekRepository constructs a WeekRepository.
func NewWeekRepository(db DBTX) (*WeekRepository, error) {
	if db == nil {
		return nil, errors.New("week repository: nil db")
	}
	return &WeekRepository{db: db}, nil
}

// Ensure returns the week row, creating a blank unpublished week when
// missing. The no-op DO UPDATE keeps RETURNING populated on conflict.
func (r *WeekRepository) Ensure(ctx context.Context, propertyID string, weekStart time.Time) (rota.Week, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO rota_weeks (id, property_id, week_start)
VALUES ($1, $2, $3)
ON CONFLICT (property_id, week_start) DO UPDATE SET week_start = EXCLUDED.week_start
RETURNING `+weekColumns, uuid.NewString(), propertyID, weekStart.UTC())
	week, err := scanWeek(row)
	if err != nil {
		return rota.Week{}, fmt.Errorf("ensure week: %w", err)
	}
	return week, nil
}

// Get returns the week, or nil when it was never created.
func (r *WeekRepository) Get(ctx context.Context, propertyID string, weekStart time.Time) (*rota.Week, error) {
	row := r.db.QueryRowContext(ctx, `
SELECT `+weekColumns+`
FROM rota_weeks
WHERE property_id = $1 AND week_start = $2`, propertyID, weekStart.UTC())
	week, err := scanWeek(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get week: %w", err)
	}
	return &week, nil
}

// Publish marks the week visible, stamping who and when.
func (r *WeekRepository) Publish(ctx context.Context, propertyID string, weekStart time.Time, userID string, at time.Time) (rota.Week, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO rota_weeks (id, property_id, week_start, is_published, published_at, published_by_user_id)
VALUES ($1, $2, $3, TRUE, $4, $5)
ON CONFLICT (property_id, week_start)
DO UPDATE SET is_published = TRUE, published_at = EXCLUDED.published_at, published_by_user_id = EXCLUDED.published_by_user_id
RETURNING `+weekColumns, uuid.NewString(), propertyID, weekStart.UTC(), at.UTC(), userID)
	week, err := scanWeek(row)
	if err != nil {
		return rota.Week{}, fmt.Errorf("publish week: %w", err)
	}
	return week, nil
}

// Unpublish hides the week and clears the publish stamp.
func (r *WeekRepository) Unpublish(ctx context.Context, propertyID string, weekStart time.Time) (rota.Week, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO rota_weeks (id, property_id, week_start, is_published, published_at, published_by_user_id)
VALUES ($1, $2, $3, FALSE, NULL, NULL)
ON CONFLICT (property_id, week_start)
DO UPDATE SET is_published = FALSE, published_at = NULL, published_by_user_id = NULL
RETURNING `+weekColumns, uuid.NewString(), propertyID, weekStart.UTC())
	week, err := scanWeek(row)
	if err != nil {
		return rota.Week{}, fmt.Errorf("unpublish week: %w", err)
	}
	return week, nil
}

func scanWeek(row *sql.Row) (rota.Week, error) {
	var week rota.Week
	if err := row.Scan(
		&week.ID,
		&week.PropertyID,
		&week.WeekStart,
		&week.Published,
		&week.PublishedAt,
		&week.PublishedBy,
		&week.CreatedAt,
	); err != nil {
		return rota.Week{}, err
	}
	week.WeekStart = week.WeekStart.UTC()
	week.CreatedAt = week.CreatedAt.UTC()
	if week.PublishedAt != nil {
		at := week.PublishedAt.UTC()
		week.PublishedAt = &at
	}
	return week, nil
}
