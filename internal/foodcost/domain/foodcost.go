package foodcost

import (
	"context"
	"errors"
	"time"
)

// MonthlyRecord is one month's food-cost ledger for a property. All money is
// stored in integer pence; fractions never enter the ledger.
type MonthlyRecord struct {
	PropertyID string    `json:"propertyId"`
	MonthStart time.Time `json:"monthStart"`

	OpeningStockPence  int64 `json:"openingStockPence"`
	FoodPurchasesPence int64 `json:"foodPurchasesPence"`
	CreditsPence       int64 `json:"creditsPence"`
	FoodSalesPence     int64 `json:"foodSalesPence"`
	ClosingStockPence  int64 `json:"closingStockPence"`
}

// CostPct computes the month's food-cost percentage:
//
//	(opening + purchases - credits - closing) / sales * 100
//
// Nil when there are no sales to divide by.
func (m MonthlyRecord) CostPct() *float64 {
	if m.FoodSalesPence == 0 {
		return nil
	}
	used := m.OpeningStockPence + m.FoodPurchasesPence - m.CreditsPence - m.ClosingStockPence
	pct := float64(used) / float64(m.FoodSalesPence) * 100
	return &pct
}

// Patch carries the fields a partial update provides. Nil fields are left
// untouched on existing rows and default to zero on new ones.
type Patch struct {
	OpeningStockPence  *int64
	FoodPurchasesPence *int64
	CreditsPence       *int64
	FoodSalesPence     *int64
	ClosingStockPence  *int64
}

// Empty reports whether the patch carries no fields at all.
func (p Patch) Empty() bool {
	return p.OpeningStockPence == nil && p.FoodPurchasesPence == nil &&
		p.CreditsPence == nil && p.FoodSalesPence == nil && p.ClosingStockPence == nil
}

// MonthStartUTC truncates a time to the first of its UTC month.
func MonthStartUTC(t time.Time) time.Time {
	t = t.UTC()
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}

// ErrMonthRequired indicates an update without a month.
var ErrMonthRequired = errors.New("food cost: month start is required")

// Repository persists monthly food-cost rows.
type Repository interface {
	// Upsert applies a partial patch to the month's row, creating it with
	// zero defaults when absent, and returns the resulting row.
	Upsert(ctx context.Context, propertyID string, monthStart time.Time, patch Patch) (MonthlyRecord, error)

	// EnsureOpening seeds the month's opening stock, creating the row when
	// absent. An existing non-zero opening is left alone.
	EnsureOpening(ctx context.Context, propertyID string, monthStart time.Time, openingPence int64) error

	// ListYear returns the year's rows ordered by month.
	ListYear(ctx context.Context, propertyID string, year int) ([]MonthlyRecord, error)
}
