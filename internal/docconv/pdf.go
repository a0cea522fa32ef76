package docconv

import (
	"bytes"

	pdf "github.com/ledongthuc/pdf"

	"estimatex/internal"
)

// FromPDF converts a raw PDF into the intermediate form, one page per
// document page carrying its plain text. Table detection is left to the
// external conversion collaborator; pages that fail text extraction are
// included empty rather than aborting the document.
func FromPDF(content []byte) (internal.Document, error) {
	r, err := pdf.NewReader(bytes.NewReader(content), int64(len(content)))
	if err != nil {
		return internal.Document{}, err
	}

	doc := internal.Document{Pages: make([]internal.Page, 0, r.NumPage())}
	for i := 1; i <= r.NumPage(); i++ {
		p := r.Page(i)
		if p.V.IsNull() {
			continue
		}
		text, err := p.GetPlainText(nil)
		if err != nil {
			doc.Pages = append(doc.Pages, internal.Page{})
			continue
		}
		doc.Pages = append(doc.Pages, internal.Page{Text: text})
	}
	return doc, nil
}
