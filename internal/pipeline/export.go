package pipeline

import (
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"estimatex/internal"
)

// ExportReportToXLSX writes the report breakdown and a summary block to
// a single-sheet workbook.
func ExportReportToXLSX(r internal.Report, outputPath string) error {
	f := excelize.NewFile()
	sheet := f.GetSheetName(0)

	headers := []string{
		"description", "quantity", "unit", "rate", "amount",
		"dsr_code", "match_confidence", "matched", "category",
	}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(sheet, cell, h)
	}

	annotated := AnnotateCategories(r)
	for i, entry := range annotated.CostEstimate.Breakdown {
		row := i + 2
		set := func(col int, value any) {
			cell, _ := excelize.CoordinatesToCellName(col, row)
			_ = f.SetCellValue(sheet, cell, value)
		}

		set(1, entry.Description)
		set(2, entry.Quantity)
		set(3, entry.Unit)
		set(4, entry.Rate)
		set(5, entry.Amount)
		set(6, entry.DSRCode)
		set(7, entry.MatchConfidence)
		set(8, entry.Matched)
		set(9, entry.Category)
	}

	summaryRow := len(annotated.CostEstimate.Breakdown) + 3
	summary := [][2]any{
		{"report_id", r.ReportID},
		{"generated_at", r.GeneratedAt.Format("2006-01-02 15:04:05")},
		{"total_cost", r.CostEstimate.TotalCost},
		{"matched_items", r.CostEstimate.MatchedItems},
		{"unmatched_items", r.CostEstimate.UnmatchedItems},
		{"match_percentage", r.CostEstimate.MatchPercentage},
	}
	for i, pair := range summary {
		labelCell, _ := excelize.CoordinatesToCellName(1, summaryRow+i)
		valueCell, _ := excelize.CoordinatesToCellName(2, summaryRow+i)
		_ = f.SetCellValue(sheet, labelCell, pair[0])
		_ = f.SetCellValue(sheet, valueCell, pair[1])
	}

	if err := os.MkdirAll(filepath.Dir(outputPath), 0o755); err != nil {
		return err
	}
	return f.SaveAs(outputPath)
}
