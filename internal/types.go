package internal

import "time"

// Document is the intermediate form produced by the external conversion
// collaborator: per-page raw text plus per-page tables.
type Document struct {
	Pages []Page `json:"pages"`
}

type Page struct {
	Text   string  `json:"text,omitempty"`
	Tables []Table `json:"tables,omitempty"`
}

// Table rows carry string or numeric cells as decoded from JSON.
// Row 0 is the header row and is skipped during extraction.
type Table struct {
	Rows [][]any `json:"rows"`
}

// LineItem is one quantified unit of work recovered from a document.
type LineItem struct {
	Description string  `json:"description"`
	Quantity    float64 `json:"quantity"`
	Unit        string  `json:"unit"`
	RawText     string  `json:"raw_text"`
}

// DSRItem is a reference rate-schedule record. Administered through the
// item CRUD surface; the matcher only reads it.
type DSRItem struct {
	ID                 int     `json:"id"`
	ItemCode           string  `json:"item_code"`
	Description        string  `json:"description"`
	Unit               string  `json:"unit"`
	Rate               float64 `json:"rate"`
	Category           string  `json:"category,omitempty"`
	SubCategory        string  `json:"sub_category,omitempty"`
	MaterialCost       float64 `json:"material_cost,omitempty"`
	LaborCost          float64 `json:"labor_cost,omitempty"`
	EquipmentCost      float64 `json:"equipment_cost,omitempty"`
	OverheadPercentage float64 `json:"overhead_percentage,omitempty"`
	Notes              string  `json:"notes,omitempty"`
	IsActive           bool    `json:"is_active"`
}

// CandidateMatch is a scored reference candidate for one lookup.
type CandidateMatch struct {
	Item       DSRItem `json:"item"`
	Similarity float64 `json:"similarity"`
}

// AlternateMatch is the lightweight projection of a non-best candidate.
type AlternateMatch struct {
	ItemCode    string  `json:"item_code"`
	Description string  `json:"description"`
	Rate        float64 `json:"rate"`
	Unit        string  `json:"unit"`
}

// MatchResult pairs one extracted item with its best reference match.
// Best is nil when no candidate cleared the similarity threshold or the
// lookup failed; Error carries the lookup diagnostic in the latter case.
type MatchResult struct {
	Extracted  LineItem         `json:"extracted"`
	Best       *DSRItem         `json:"dsr_item"`
	MatchScore float64          `json:"match_score"`
	Alternates []AlternateMatch `json:"all_matches"`
	Error      string           `json:"error,omitempty"`
}

type BreakdownEntry struct {
	Description     string  `json:"description"`
	Quantity        float64 `json:"quantity"`
	Unit            string  `json:"unit"`
	Rate            float64 `json:"rate"`
	Amount          float64 `json:"amount"`
	DSRCode         string  `json:"dsr_code,omitempty"`
	MatchConfidence float64 `json:"match_confidence"`
	Matched         bool    `json:"matched"`
	Category        string  `json:"category,omitempty"`
}

// CostEstimate is derived from a list of MatchResult. Breakdown order
// matches extraction order.
type CostEstimate struct {
	TotalCost       float64          `json:"total_cost"`
	MatchedItems    int              `json:"matched_items"`
	UnmatchedItems  int              `json:"unmatched_items"`
	TotalItems      int              `json:"total_items"`
	MatchPercentage float64          `json:"match_percentage"`
	Breakdown       []BreakdownEntry `json:"breakdown"`
}

// Report is the persisted result of one estimation run. Immutable after
// creation; retrievable by ID until evicted from the report store.
type Report struct {
	ReportID       string        `json:"report_id"`
	GeneratedAt    time.Time     `json:"generated_at"`
	ExtractedItems int           `json:"extracted_items"`
	Matches        []MatchResult `json:"matches"`
	CostEstimate   CostEstimate  `json:"cost_estimate"`
	OwnerID        string        `json:"user_id,omitempty"`
}

func StringPtr(v string) *string  { return &v }
func FloatPtr(v float64) *float64 { return &v }
