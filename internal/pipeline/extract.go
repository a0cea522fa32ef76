package pipeline

import (
	"regexp"
	"sort"
	"strconv"
	"strings"

	"estimatex/internal"
	"estimatex/internal/config"
	"estimatex/internal/util"
)

// lineStrategy is one named line-parsing rule. Strategies are tried in
// order; the first match wins.
type lineStrategy struct {
	name string
	re   *regexp.Regexp
}

// Extractor recovers line items from the intermediate document form.
// A line or row that matches no rule is dropped, never an error.
type Extractor struct {
	vocab      config.Vocabulary
	units      map[string]struct{}
	strategies []lineStrategy
	qtyCellRe  *regexp.Regexp
}

func NewExtractor(vocab config.Vocabulary) *Extractor {
	units := make(map[string]struct{}, len(vocab.Units))
	for _, u := range vocab.Units {
		units[strings.ToLower(u)] = struct{}{}
	}

	alt := unitAlternation(vocab)
	return &Extractor{
		vocab: vocab,
		units: units,
		strategies: []lineStrategy{
			{name: "dash-separated", re: regexp.MustCompile(`(?i)^(.+?)\s*-\s*(\d+\.?\d*)\s*(` + alt + `)`)},
			{name: "plain", re: regexp.MustCompile(`(?i)^(.+?)\s+(\d+\.?\d*)\s+(` + alt + `)`)},
		},
		qtyCellRe: regexp.MustCompile(`(?i)^(\d+\.?\d*)\s*(` + alt + `)?$`),
	}
}

// ExtractDocument walks pages in document order: raw text line by line,
// then every table with its header row skipped.
func (e *Extractor) ExtractDocument(doc internal.Document) []internal.LineItem {
	items := []internal.LineItem{}
	for _, page := range doc.Pages {
		if page.Text != "" {
			for _, line := range util.SplitLines(page.Text) {
				if item := e.ParseLine(line); item != nil {
					items = append(items, *item)
				}
			}
		}
		for _, table := range page.Tables {
			for i, row := range table.Rows {
				if i == 0 {
					continue
				}
				if item := e.ParseTableRow(row); item != nil {
					items = append(items, *item)
				}
			}
		}
	}
	return items
}

// ParseLine applies the line strategies in order. Expected shapes:
//
//	Excavation in ordinary soil - 50 cum
//	Cement 43 Grade 100 bags
func (e *Extractor) ParseLine(line string) *internal.LineItem {
	for _, strat := range e.strategies {
		m := strat.re.FindStringSubmatch(line)
		if m == nil {
			continue
		}
		qty, err := strconv.ParseFloat(m[2], 64)
		if err != nil || qty <= 0 {
			return nil
		}
		return &internal.LineItem{
			Description: strings.TrimSpace(m[1]),
			Quantity:    qty,
			Unit:        e.NormalizeUnit(m[3]),
			RawText:     line,
		}
	}
	return nil
}

// ParseTableRow scans cells left to right for one parseable as
// "quantity [unit]". The unit falls back to the following cell, the
// description to the cell before the quantity (or the first cell).
func (e *Extractor) ParseTableRow(row []any) *internal.LineItem {
	if len(row) < 2 {
		return nil
	}

	cells := make([]string, len(row))
	for i, cell := range row {
		cells[i] = util.CellString(cell)
	}

	var description, unit string
	var quantity float64
	if len(cells) >= 3 {
		for i, cell := range cells {
			m := e.qtyCellRe.FindStringSubmatch(cell)
			if m == nil {
				continue
			}
			qty, err := strconv.ParseFloat(m[1], 64)
			if err != nil {
				continue
			}
			quantity = qty
			if m[2] != "" {
				unit = e.NormalizeUnit(m[2])
			} else if i+1 < len(cells) && cells[i+1] != "" {
				unit = e.NormalizeUnit(cells[i+1])
			}
			if i > 0 && cells[i-1] != "" {
				description = cells[i-1]
			} else {
				description = cells[0]
			}
			break
		}
	}

	if description == "" || quantity <= 0 {
		return nil
	}
	if unit == "" {
		unit = "nos"
	}
	return &internal.LineItem{
		Description: description,
		Quantity:    quantity,
		Unit:        unit,
		RawText:     strings.Join(cells, " "),
	}
}

// NormalizeUnit maps a unit token to its canonical form via the alias
// table; unknown tokens pass through lowercased.
func (e *Extractor) NormalizeUnit(unit string) string {
	u := strings.ToLower(strings.TrimSpace(unit))
	if canonical, ok := e.vocab.UnitAliases[u]; ok {
		return canonical
	}
	return u
}

// unitAlternation builds the unit branch of the line patterns from the
// vocabulary, longest token first so "bags" wins over "bag".
func unitAlternation(vocab config.Vocabulary) string {
	tokens := make([]string, 0, len(vocab.Units)+len(vocab.UnitAliases))
	tokens = append(tokens, vocab.Units...)
	for alias := range vocab.UnitAliases {
		tokens = append(tokens, alias)
	}
	sort.Slice(tokens, func(i, j int) bool {
		if len(tokens[i]) != len(tokens[j]) {
			return len(tokens[i]) > len(tokens[j])
		}
		return tokens[i] < tokens[j]
	})
	escaped := make([]string, 0, len(tokens))
	for _, t := range tokens {
		escaped = append(escaped, regexp.QuoteMeta(strings.ToLower(t)))
	}
	return strings.Join(escaped, "|")
}
