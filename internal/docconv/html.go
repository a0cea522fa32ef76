package docconv

import (
	"io"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"estimatex/internal"
)

// FromHTML converts an HTML document into the intermediate form: one
// page whose tables mirror the document's <table> elements (first row
// kept as the header) and whose text is the table-free body text.
func FromHTML(r io.Reader) (internal.Document, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return internal.Document{}, err
	}

	page := internal.Page{}
	doc.Find("table").Each(func(_ int, table *goquery.Selection) {
		rows := [][]any{}
		table.Find("tr").Each(func(_ int, tr *goquery.Selection) {
			cells := []any{}
			tr.Find("th,td").Each(func(_ int, cell *goquery.Selection) {
				cells = append(cells, strings.TrimSpace(cell.Text()))
			})
			if len(cells) > 0 {
				rows = append(rows, cells)
			}
		})
		if len(rows) > 0 {
			page.Tables = append(page.Tables, internal.Table{Rows: rows})
		}
	})

	body := doc.Find("body").Clone()
	body.Find("table").Remove()
	page.Text = strings.TrimSpace(body.Text())

	return internal.Document{Pages: []internal.Page{page}}, nil
}
