package application

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// RenderPackPDF renders an inspection pack as a PDF.
func RenderPackPDF(pack Pack) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "EHO Inspection Pack")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	if pack.PropertyName != "" {
		pdf.Cell(0, 6, fmt.Sprintf("Property: %s", pack.PropertyName))
		pdf.Ln(5)
	}
	pdf.Cell(0, 6, fmt.Sprintf("Period: %s to %s", pack.From.Format("2006-01-02"), pack.To.Format("2006-01-02")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Generated: %s", pack.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	// Food temperature logs
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Food Temperature Logs (last 3 months)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(34, 6, "Logged", "1", 0, "C", false, 0, "")
	pdf.CellFormat(60, 6, "Food", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Temp (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Period", "1", 0, "C", false, 0, "")
	pdf.CellFormat(36, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, rec := range pack.FoodLogs {
		pdf.CellFormat(34, 6, rec.LoggedAt.UTC().Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(60, 6, rec.FoodName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, formatTemp(rec.TempC), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 6, string(rec.Period), "1", 0, "C", false, 0, "")
		pdf.CellFormat(36, 6, string(rec.Status), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	if len(pack.FoodLogs) == 0 {
		pdf.Cell(0, 6, "No food temperature logs in this period.")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	// Blast-chill batches
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Blast Chill Batches")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(56, 6, "Food", "1", 0, "C", false, 0, "")
	pdf.CellFormat(34, 6, "Started", "1", 0, "C", false, 0, "")
	pdf.CellFormat(34, 6, "Ended", "1", 0, "C", false, 0, "")
	pdf.CellFormat(20, 6, "Minutes", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Verdict", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, batch := range pack.Batches {
		pdf.CellFormat(56, 6, batch.FoodName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(34, 6, formatOptTime(batch.StartAt), "1", 0, "C", false, 0, "")
		pdf.CellFormat(34, 6, formatOptTime(batch.EndAt), "1", 0, "C", false, 0, "")
		pdf.CellFormat(20, 6, formatMinutes(batch.Minutes), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, batch.Status, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	if len(pack.Batches) == 0 {
		pdf.Cell(0, 6, "No blast-chill batches in this period.")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	// Fridge temperature logs
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Fridge Temperature Logs (last 3 months)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(34, 6, "Logged", "1", 0, "C", false, 0, "")
	pdf.CellFormat(56, 6, "Unit", "1", 0, "C", false, 0, "")
	pdf.CellFormat(22, 6, "Temp (C)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(18, 6, "Period", "1", 0, "C", false, 0, "")
	pdf.CellFormat(40, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, row := range pack.FridgeChecks {
		unit := row.UnitName
		if unit == "" {
			unit = row.UnitID
		}
		status := string(row.Status)
		if row.InRange != nil && !*row.InRange {
			status = status + " (out of range)"
		}
		pdf.CellFormat(34, 6, row.LoggedAt.UTC().Format("2006-01-02 15:04"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(56, 6, unit, "1", 0, "L", false, 0, "")
		pdf.CellFormat(22, 6, formatTemp(row.ValueC), "1", 0, "R", false, 0, "")
		pdf.CellFormat(18, 6, string(row.Period), "1", 0, "C", false, 0, "")
		pdf.CellFormat(40, 6, status, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	if len(pack.FridgeChecks) == 0 {
		pdf.Cell(0, 6, "No fridge temperature logs in this period.")
		pdf.Ln(-1)
	}
	pdf.Ln(6)

	// Maintenance
	pdf.SetFont("Arial", "B", 11)
	pdf.Cell(0, 7, "Maintenance Logs (last 2 weeks)")
	pdf.Ln(8)
	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(30, 6, "Reported", "1", 0, "C", false, 0, "")
	pdf.CellFormat(70, 6, "Title", "1", 0, "C", false, 0, "")
	pdf.CellFormat(24, 6, "Urgency", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Completed", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)
	for _, ticket := range pack.Maintenance {
		completed := "open"
		if ticket.CompletedAt != nil {
			completed = ticket.CompletedAt.UTC().Format("2006-01-02")
		}
		pdf.CellFormat(30, 6, ticket.CreatedAt.UTC().Format("2006-01-02"), "1", 0, "C", false, 0, "")
		pdf.CellFormat(70, 6, ticket.Title, "1", 0, "L", false, 0, "")
		pdf.CellFormat(24, 6, string(ticket.Urgency), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, completed, "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
	}
	if len(pack.Maintenance) == 0 {
		pdf.Cell(0, 6, "No maintenance reports in this period.")
		pdf.Ln(-1)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// RenderPackXLSX renders an inspection pack as a spreadsheet, one sheet per
// section.
func RenderPackXLSX(pack Pack) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	foodSheet := "food-temps"
	chillSheet := "blast-chill"
	fridgeSheet := "fridge-temps"
	maintenanceSheet := "maintenance"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(foodSheet)
	f.NewSheet(chillSheet)
	f.NewSheet(fridgeSheet)
	f.NewSheet(maintenanceSheet)

	_ = f.SetCellValue(summarySheet, "A1", "EHO Inspection Pack")
	_ = f.SetCellValue(summarySheet, "A3", "Property")
	_ = f.SetCellValue(summarySheet, "B3", pack.PropertyName)
	_ = f.SetCellValue(summarySheet, "A4", "From")
	_ = f.SetCellValue(summarySheet, "B4", pack.From.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "To")
	_ = f.SetCellValue(summarySheet, "B5", pack.To.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Generated")
	_ = f.SetCellValue(summarySheet, "B6", pack.GeneratedAt.Format(time.RFC3339))
	_ = f.SetCellValue(summarySheet, "A8", "Food temperature logs")
	_ = f.SetCellValue(summarySheet, "B8", len(pack.FoodLogs))
	_ = f.SetCellValue(summarySheet, "A9", "Blast-chill batches")
	_ = f.SetCellValue(summarySheet, "B9", len(pack.Batches))
	_ = f.SetCellValue(summarySheet, "A10", "Fridge temperature logs")
	_ = f.SetCellValue(summarySheet, "B10", len(pack.FridgeChecks))
	_ = f.SetCellValue(summarySheet, "A11", "Maintenance reports")
	_ = f.SetCellValue(summarySheet, "B11", len(pack.Maintenance))

	_ = f.SetCellValue(foodSheet, "A1", "Logged")
	_ = f.SetCellValue(foodSheet, "B1", "Food")
	_ = f.SetCellValue(foodSheet, "C1", "Temp (C)")
	_ = f.SetCellValue(foodSheet, "D1", "Period")
	_ = f.SetCellValue(foodSheet, "E1", "Status")
	_ = f.SetCellValue(foodSheet, "F1", "Notes")
	for i, rec := range pack.FoodLogs {
		row := i + 2
		_ = f.SetCellValue(foodSheet, fmt.Sprintf("A%d", row), rec.LoggedAt.UTC().Format("2006-01-02 15:04"))
		_ = f.SetCellValue(foodSheet, fmt.Sprintf("B%d", row), rec.FoodName)
		if rec.TempC != nil {
			_ = f.SetCellValue(foodSheet, fmt.Sprintf("C%d", row), *rec.TempC)
		}
		_ = f.SetCellValue(foodSheet, fmt.Sprintf("D%d", row), string(rec.Period))
		_ = f.SetCellValue(foodSheet, fmt.Sprintf("E%d", row), string(rec.Status))
		_ = f.SetCellValue(foodSheet, fmt.Sprintf("F%d", row), rec.Notes)
	}

	_ = f.SetCellValue(chillSheet, "A1", "Food")
	_ = f.SetCellValue(chillSheet, "B1", "Started")
	_ = f.SetCellValue(chillSheet, "C1", "Start temp (C)")
	_ = f.SetCellValue(chillSheet, "D1", "Ended")
	_ = f.SetCellValue(chillSheet, "E1", "End temp (C)")
	_ = f.SetCellValue(chillSheet, "F1", "Minutes")
	_ = f.SetCellValue(chillSheet, "G1", "Verdict")
	for i, batch := range pack.Batches {
		row := i + 2
		_ = f.SetCellValue(chillSheet, fmt.Sprintf("A%d", row), batch.FoodName)
		_ = f.SetCellValue(chillSheet, fmt.Sprintf("B%d", row), formatOptTime(batch.StartAt))
		if batch.StartTempC != nil {
			_ = f.SetCellValue(chillSheet, fmt.Sprintf("C%d", row), *batch.StartTempC)
		}
		_ = f.SetCellValue(chillSheet, fmt.Sprintf("D%d", row), formatOptTime(batch.EndAt))
		if batch.EndTempC != nil {
			_ = f.SetCellValue(chillSheet, fmt.Sprintf("E%d", row), *batch.EndTempC)
		}
		if batch.Minutes != nil {
			_ = f.SetCellValue(chillSheet, fmt.Sprintf("F%d", row), *batch.Minutes)
		}
		_ = f.SetCellValue(chillSheet, fmt.Sprintf("G%d", row), batch.Status)
	}

	_ = f.SetCellValue(fridgeSheet, "A1", "Logged")
	_ = f.SetCellValue(fridgeSheet, "B1", "Unit")
	_ = f.SetCellValue(fridgeSheet, "C1", "Type")
	_ = f.SetCellValue(fridgeSheet, "D1", "Temp (C)")
	_ = f.SetCellValue(fridgeSheet, "E1", "Period")
	_ = f.SetCellValue(fridgeSheet, "F1", "Status")
	_ = f.SetCellValue(fridgeSheet, "G1", "In range")
	for i, row := range pack.FridgeChecks {
		n := i + 2
		unit := row.UnitName
		if unit == "" {
			unit = row.UnitID
		}
		_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("A%d", n), row.LoggedAt.UTC().Format("2006-01-02 15:04"))
		_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("B%d", n), unit)
		_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("C%d", n), string(row.UnitType))
		if row.ValueC != nil {
			_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("D%d", n), *row.ValueC)
		}
		_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("E%d", n), string(row.Period))
		_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("F%d", n), string(row.Status))
		if row.InRange != nil {
			_ = f.SetCellValue(fridgeSheet, fmt.Sprintf("G%d", n), *row.InRange)
		}
	}

	_ = f.SetCellValue(maintenanceSheet, "A1", "Reported")
	_ = f.SetCellValue(maintenanceSheet, "B1", "Title")
	_ = f.SetCellValue(maintenanceSheet, "C1", "Urgency")
	_ = f.SetCellValue(maintenanceSheet, "D1", "Location")
	_ = f.SetCellValue(maintenanceSheet, "E1", "Equipment")
	_ = f.SetCellValue(maintenanceSheet, "F1", "Completed")
	for i, ticket := range pack.Maintenance {
		row := i + 2
		completed := ""
		if ticket.CompletedAt != nil {
			completed = ticket.CompletedAt.UTC().Format("2006-01-02")
		}
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("A%d", row), ticket.CreatedAt.UTC().Format("2006-01-02"))
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("B%d", row), ticket.Title)
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("C%d", row), string(ticket.Urgency))
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("D%d", row), ticket.Location)
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("E%d", row), ticket.Equipment)
		_ = f.SetCellValue(maintenanceSheet, fmt.Sprintf("F%d", row), completed)
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatTemp(value *float64) string {
	if value == nil {
		return ""
	}
	return fmt.Sprintf("%.1f", *value)
}

func formatOptTime(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format("2006-01-02 15:04")
}

func formatMinutes(minutes *int) string {
	if minutes == nil {
		return ""
	}
	return fmt.Sprintf("%d", *minutes)
}
