package pipeline

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"estimatex/internal"
)

func TestExportReportToXLSX(t *testing.T) {
	m := matched("cement concrete m20", 10, "cum", "DSR-001", 8500, 1)
	m.Best.Category = "Concrete"
	matches := []internal.MatchResult{m, unmatched("ornamental grill work", 3, "sqm")}

	rep := internal.Report{
		ReportID:     "dsr_1000_aaaaaaaaa",
		GeneratedAt:  time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC),
		Matches:      matches,
		CostEstimate: CalculateCost(matches),
	}

	path := filepath.Join(t.TempDir(), "report.xlsx")
	if err := ExportReportToXLSX(rep, path); err != nil {
		t.Fatalf("export: %v", err)
	}

	f, err := excelize.OpenFile(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()

	sheet := f.GetSheetName(0)
	rows, err := f.GetRows(sheet)
	if err != nil {
		t.Fatalf("rows: %v", err)
	}

	if rows[0][0] != "description" || rows[0][3] != "rate" {
		t.Fatalf("header=%v", rows[0])
	}
	if rows[1][0] != "cement concrete m20" || rows[1][4] != "85000" {
		t.Fatalf("row=%v", rows[1])
	}
	if rows[1][8] != "Concrete" {
		t.Fatalf("row=%v", rows[1])
	}
	if rows[2][0] != "ornamental grill work" || rows[2][8] != "Unknown" {
		t.Fatalf("row=%v", rows[2])
	}

	// summary block sits below the breakdown
	found := false
	for _, row := range rows {
		if len(row) >= 2 && row[0] == "total_cost" {
			if row[1] != "85000" {
				t.Fatalf("summary row=%v", row)
			}
			found = true
		}
	}
	if !found {
		t.Fatal("summary block missing")
	}
}
