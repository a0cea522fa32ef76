// Package docconv produces the intermediate document form consumed by
// the estimation pipeline: per-page raw text and per-page tables.
package docconv

import (
	"encoding/json"
	"fmt"

	"estimatex/internal"
)

// ParseDocument decodes the intermediate JSON form. A malformed payload
// is a contract violation surfaced to the caller; an empty page list is
// valid input.
func ParseDocument(blob []byte) (internal.Document, error) {
	var doc internal.Document
	if err := json.Unmarshal(blob, &doc); err != nil {
		return internal.Document{}, fmt.Errorf("malformed document payload: %w", err)
	}
	return doc, nil
}
