package application

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/xuri/excelize/v2"

	foodcost "kitchensafe-cloud/internal/foodcost/domain"
	settings "kitchensafe-cloud/internal/settings/domain"
)

var (
	// ErrInvalidMonth indicates a malformed month value.
	ErrInvalidMonth = errors.New("food cost: invalid month start")
	// ErrInvalidYear indicates a malformed year value.
	ErrInvalidYear = errors.New("food cost: invalid year")
	// ErrEmptyPatch indicates an update with no fields.
	ErrEmptyPatch = errors.New("food cost: no fields provided")
	// ErrInvalidTarget indicates a nonsensical target percentage.
	ErrInvalidTarget = errors.New("food cost: target must be between 0 and 100")
)

// Service coordinates the monthly food-cost ledger.
type Service struct {
	records  foodcost.Repository
	settings settings.Repository
}

// NewService constructs a Service.
func NewService(records foodcost.Repository, settingsRepo settings.Repository) (*Service, error) {
	if records == nil {
		return nil, errors.New("food cost service: nil repository")
	}
	if settingsRepo == nil {
		return nil, errors.New("food cost service: nil settings repository")
	}
	return &Service{records: records, settings: settingsRepo}, nil
}

// SaveMonth applies a partial update to one month and, when a closing stock
// was provided, carries it forward as the next month's opening stock. A next
// month whose opening was already entered keeps its value.
func (s *Service) SaveMonth(ctx context.Context, propertyID string, monthStart time.Time, patch foodcost.Patch) (foodcost.MonthlyRecord, error) {
	if monthStart.IsZero() {
		return foodcost.MonthlyRecord{}, foodcost.ErrMonthRequired
	}
	if patch.Empty() {
		return foodcost.MonthlyRecord{}, ErrEmptyPatch
	}
	monthStart = foodcost.MonthStartUTC(monthStart)

	record, err := s.records.Upsert(ctx, propertyID, monthStart, patch)
	if err != nil {
		return foodcost.MonthlyRecord{}, err
	}

	if patch.ClosingStockPence != nil {
		nextMonth := monthStart.AddDate(0, 1, 0)
		if err := s.records.EnsureOpening(ctx, propertyID, nextMonth, *patch.ClosingStockPence); err != nil {
			return foodcost.MonthlyRecord{}, err
		}
	}
	return record, nil
}

// MonthView is a ledger row with its derived percentage.
type MonthView struct {
	foodcost.MonthlyRecord
	CostPct *float64 `json:"costPct"`
}

// YearResult is a calendar year of ledger rows plus the property target.
type YearResult struct {
	Year         int         `json:"year"`
	Records      []MonthView `json:"records"`
	TargetPct    *float64    `json:"targetPct"`
	MonthsOver   int         `json:"monthsOver"`
	MonthsListed int         `json:"monthsListed"`
}

// Year lists the year's rows with derived percentages.
func (s *Service) Year(ctx context.Context, propertyID string, year int) (YearResult, error) {
	if year < 2000 || year > 2200 {
		return YearResult{}, ErrInvalidYear
	}

	records, err := s.records.ListYear(ctx, propertyID, year)
	if err != nil {
		return YearResult{}, err
	}
	target, err := s.TargetPct(ctx, propertyID)
	if err != nil {
		return YearResult{}, err
	}

	result := YearResult{Year: year, Records: make([]MonthView, 0, len(records)), TargetPct: target}
	for _, record := range records {
		view := MonthView{MonthlyRecord: record, CostPct: record.CostPct()}
		if target != nil && view.CostPct != nil && *view.CostPct > *target {
			result.MonthsOver++
		}
		result.Records = append(result.Records, view)
	}
	result.MonthsListed = len(result.Records)
	return result, nil
}

// TargetPct reads the property's food-cost target as a percentage. Nil when
// no target is set.
func (s *Service) TargetPct(ctx context.Context, propertyID string) (*float64, error) {
	propertySettings, err := s.settings.Get(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	if propertySettings.FoodCostTargetBps <= 0 {
		return nil, nil
	}
	pct := float64(propertySettings.FoodCostTargetBps) / 100
	return &pct, nil
}

// SetTargetPct stores the target percentage, or clears it when nil.
func (s *Service) SetTargetPct(ctx context.Context, propertyID string, targetPct *float64) error {
	if targetPct != nil && (*targetPct < 0 || *targetPct > 100) {
		return ErrInvalidTarget
	}

	propertySettings, err := s.settings.Get(ctx, propertyID)
	if err != nil {
		return err
	}
	if targetPct == nil {
		propertySettings.FoodCostTargetBps = 0
	} else {
		propertySettings.FoodCostTargetBps = int(math.Round(*targetPct * 100))
	}
	return s.settings.Save(ctx, propertySettings)
}

// ExportYearXLSX renders the year's ledger as a spreadsheet.
func (s *Service) ExportYearXLSX(ctx context.Context, propertyID string, year int) ([]byte, error) {
	result, err := s.Year(ctx, propertyID, year)
	if err != nil {
		return nil, err
	}

	f := excelize.NewFile()
	sheet := "food-cost"
	f.SetSheetName("Sheet1", sheet)

	headers := []string{"Month", "Opening stock", "Purchases", "Credits", "Sales", "Closing stock", "Cost %"}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, header)
	}
	for i, view := range result.Records {
		row := i + 2
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), view.MonthStart.Format("2006-01"))
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), penceToPounds(view.OpeningStockPence))
		_ = f.SetCellValue(sheet, fmt.Sprintf("C%d", row), penceToPounds(view.FoodPurchasesPence))
		_ = f.SetCellValue(sheet, fmt.Sprintf("D%d", row), penceToPounds(view.CreditsPence))
		_ = f.SetCellValue(sheet, fmt.Sprintf("E%d", row), penceToPounds(view.FoodSalesPence))
		_ = f.SetCellValue(sheet, fmt.Sprintf("F%d", row), penceToPounds(view.ClosingStockPence))
		if view.CostPct != nil {
			_ = f.SetCellValue(sheet, fmt.Sprintf("G%d", row), *view.CostPct)
		}
	}
	if result.TargetPct != nil {
		row := len(result.Records) + 3
		_ = f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Target %")
		_ = f.SetCellValue(sheet, fmt.Sprintf("B%d", row), *result.TargetPct)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func penceToPounds(pence int64) float64 {
	return float64(pence) / 100
}
