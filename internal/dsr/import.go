package dsr

import (
	"fmt"
	"strings"

	"github.com/xuri/excelize/v2"

	"estimatex/internal"
	"estimatex/internal/util"
)

// ImportXLSX reads a rate schedule workbook into DSR items. Column
// positions are inferred from the header rows; rows without a code or a
// parseable rate are skipped.
func ImportXLSX(path string) ([]internal.DSRItem, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	out := []internal.DSRItem{}
	for _, sheet := range f.GetSheetList() {
		rows, err := f.GetRows(sheet)
		if err != nil {
			continue
		}

		cols := scheduleColumns{code: -1, description: -1, unit: -1, rate: -1, category: -1, subCategory: -1}
		for i, row := range rows {
			cells := make([]string, len(row))
			for j, c := range row {
				cells[j] = util.NormalizeSpaces(c)
			}

			if cols.code < 0 {
				if i < 3 {
					cols = inferScheduleColumns(cells)
				}
				if cols.code < 0 {
					continue
				}
				continue
			}

			code := pick(cells, cols.code)
			rate, ok := util.ParseFloatCell(pick(cells, cols.rate))
			if code == "" || !ok || rate < 0 {
				continue
			}

			item := internal.DSRItem{
				ItemCode:    code,
				Description: pick(cells, cols.description),
				Unit:        strings.ToLower(pick(cells, cols.unit)),
				Rate:        rate,
				Category:    pick(cells, cols.category),
				SubCategory: pick(cells, cols.subCategory),
				IsActive:    true,
			}
			if item.Description == "" {
				continue
			}
			out = append(out, item)
		}
	}

	if len(out) == 0 {
		return nil, fmt.Errorf("no schedule rows found in %s", path)
	}
	return out, nil
}

type scheduleColumns struct {
	code, description, unit, rate, category, subCategory int
}

func inferScheduleColumns(headers []string) scheduleColumns {
	norm := make([]string, len(headers))
	for i, h := range headers {
		norm[i] = strings.ToLower(h)
	}
	return scheduleColumns{
		code:        findHeader(norm, "code", "item"),
		description: findHeader(norm, "desc"),
		unit:        findHeader(norm, "unit"),
		rate:        findHeader(norm, "rate"),
		category:    findHeader(norm, "category"),
		subCategory: findHeader(norm, "sub"),
	}
}

func findHeader(headers []string, probes ...string) int {
	for i, h := range headers {
		for _, probe := range probes {
			if strings.Contains(h, probe) {
				return i
			}
		}
	}
	return -1
}

func pick(cells []string, idx int) string {
	if idx >= 0 && idx < len(cells) {
		return cells[idx]
	}
	return ""
}
