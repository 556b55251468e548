package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	foodcost "kitchensafe-cloud/internal/foodcost/domain"
)

// DBTX abstracts *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// FoodCostRepository persists monthly food-cost rows in PostgreSQL.
type FoodCostRepository struct {
	db DBTX
}

// NewFoodCostRepository constructs a FoodCostRepository.
func NewFoodCostRepository(db DBTX) (*FoodCostRepository, error) {
	if db == nil {
		return nil, errors.New("food cost repository: nil db")
	}
	return &FoodCostRepository{db: db}, nil
}

// Upsert applies a partial patch in a single statement. Nil patch fields
// bind as NULL, which COALESCE resolves to zero on insert and to the stored
// value on update.
func (r *FoodCostRepository) Upsert(ctx context.Context, propertyID string, monthStart time.Time, patch foodcost.Patch) (foodcost.MonthlyRecord, error) {
	row := r.db.QueryRowContext(ctx, `
INSERT INTO monthly_food_costs
  (property_id, month_start, opening_stock_pence, food_purchases_pence, credits_pence, food_sales_pence, closing_stock_pence, created_at, updated_at)
VALUES ($1, $2, COALESCE($3, 0), COALESCE($4, 0), COALESCE($5, 0), COALESCE($6, 0), COALESCE($7, 0), NOW(), NOW())
ON CONFLICT (property_id, month_start) DO UPDATE SET
  opening_stock_pence  = COALESCE($3, monthly_food_costs.opening_stock_pence),
  food_purchases_pence = COALESCE($4, monthly_food_costs.food_purchases_pence),
  credits_pence        = COALESCE($5, monthly_food_costs.credits_pence),
  food_sales_pence     = COALESCE($6, monthly_food_costs.food_sales_pence),
  closing_stock_pence  = COALESCE($7, monthly_food_costs.closing_stock_pence),
  updated_at = NOW()
RETURNING property_id, month_start, opening_stock_pence, food_purchases_pence, credits_pence, food_sales_pence, closing_stock_pence
`, propertyID, monthStart.UTC(),
		patch.OpeningStockPence, patch.FoodPurchasesPence, patch.CreditsPence,
		patch.FoodSalesPence, patch.ClosingStockPence)

	record, err := scanRecord(row)
	if err != nil {
		return foodcost.MonthlyRecord{}, fmt.Errorf("upsert food cost: %w", err)
	}
	return record, nil
}

// EnsureOpening seeds next month's opening stock. The WHERE clause keeps an
// already-entered opening intact.
func (r *FoodCostRepository) EnsureOpening(ctx context.Context, propertyID string, monthStart time.Time, openingPence int64) error {
	_, err := r.db.ExecContext(ctx, `
INSERT INTO monthly_food_costs (property_id, month_start, opening_stock_pence, created_at, updated_at)
VALUES ($1, $2, $3, NOW(), NOW())
ON CONFLICT (property_id, month_start) DO UPDATE SET
  opening_stock_pence = $3,
  updated_at = NOW()
WHERE monthly_food_costs.opening_stock_pence = 0
`, propertyID, monthStart.UTC(), openingPence)
	if err != nil {
		return fmt.Errorf("ensure opening stock: %w", err)
	}
	return nil
}

// ListYear returns the year's rows ordered by month.
func (r *FoodCostRepository) ListYear(ctx context.Context, propertyID string, year int) ([]foodcost.MonthlyRecord, error) {
	start := time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(1, 0, 0)

	rows, err := r.db.QueryContext(ctx, `
SELECT property_id, month_start, opening_stock_pence, food_purchases_pence, credits_pence, food_sales_pence, closing_stock_pence
FROM monthly_food_costs
WHERE property_id = $1 AND month_start >= $2 AND month_start < $3
ORDER BY month_start ASC
`, propertyID, start, end)
	if err != nil {
		return nil, fmt.Errorf("list food costs: %w", err)
	}
	defer rows.Close()

	records := make([]foodcost.MonthlyRecord, 0)
	for rows.Next() {
		record, err := scanRecord(rows)
		if err != nil {
			return nil, fmt.Errorf("scan food cost: %w", err)
		}
		records = append(records, record)
	}
	return records, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRecord(row rowScanner) (foodcost.MonthlyRecord, error) {
	var record foodcost.MonthlyRecord
	if err := row.Scan(&record.PropertyID, &record.MonthStart,
		&record.OpeningStockPence, &record.FoodPurchasesPence, &record.CreditsPence,
		&record.FoodSalesPence, &record.ClosingStockPence); err != nil {
		return foodcost.MonthlyRecord{}, err
	}
	record.MonthStart = record.MonthStart.UTC()
	return record, nil
}
