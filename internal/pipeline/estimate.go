package pipeline

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"estimatex/internal"
	"estimatex/internal/report"
)

// CalculateCost folds a list of match results into a cost estimate.
// Breakdown order follows the input order; unmatched items contribute a
// zero amount.
func CalculateCost(matches []internal.MatchResult) internal.CostEstimate {
	estimate := internal.CostEstimate{
		Breakdown: make([]internal.BreakdownEntry, 0, len(matches)),
	}

	for _, match := range matches {
		entry := internal.BreakdownEntry{
			Description: match.Extracted.Description,
			Quantity:    match.Extracted.Quantity,
			Unit:        match.Extracted.Unit,
		}
		if match.Best != nil {
			entry.Rate = match.Best.Rate
			entry.Amount = match.Extracted.Quantity * match.Best.Rate
			entry.DSRCode = match.Best.ItemCode
			entry.MatchConfidence = match.MatchScore
			entry.Matched = true
			if entry.Unit == "" {
				entry.Unit = match.Best.Unit
			}
			estimate.TotalCost += entry.Amount
			estimate.MatchedItems++
		} else {
			estimate.UnmatchedItems++
		}
		estimate.Breakdown = append(estimate.Breakdown, entry)
	}

	estimate.TotalItems = len(matches)
	if estimate.TotalItems > 0 {
		estimate.MatchPercentage = float64(estimate.MatchedItems) / float64(estimate.TotalItems) * 100
	}
	return estimate
}

// AnnotateCategories returns a copy of the report whose breakdown
// entries carry the matched reference item's category.
func AnnotateCategories(r internal.Report) internal.Report {
	categories := make(map[string]string, len(r.Matches))
	for _, match := range r.Matches {
		if match.Best != nil {
			categories[match.Extracted.Description] = match.Best.Category
		}
	}

	breakdown := make([]internal.BreakdownEntry, len(r.CostEstimate.Breakdown))
	copy(breakdown, r.CostEstimate.Breakdown)
	for i := range breakdown {
		if category, ok := categories[breakdown[i].Description]; ok && category != "" {
			breakdown[i].Category = category
		} else {
			breakdown[i].Category = "Unknown"
		}
	}

	r.CostEstimate.Breakdown = breakdown
	return r
}

// Outcome is the estimation response returned to the caller. ReportID is
// empty when the document yielded no line items.
type Outcome struct {
	ExtractedItems int                    `json:"extracted_items"`
	Matches        []internal.MatchResult `json:"matches"`
	CostEstimate   internal.CostEstimate  `json:"cost_estimate"`
	ReportID       string                 `json:"report_id,omitempty"`
	ReportLink     string                 `json:"report_link,omitempty"`
}

// Service runs the extraction, matching and costing pipeline for one
// document and records the result in the report store.
type Service struct {
	extractor *Extractor
	matcher   *Matcher
	reports   *report.Store
	baseURL   string
	logger    *zap.Logger
}

func NewService(extractor *Extractor, matcher *Matcher, reports *report.Store, baseURL string, logger *zap.Logger) *Service {
	return &Service{
		extractor: extractor,
		matcher:   matcher,
		reports:   reports,
		baseURL:   baseURL,
		logger:    logger,
	}
}

// Estimate is synchronous and single-pass. An empty extraction is not an
// error: it returns a zero-value estimate and no report.
func (s *Service) Estimate(ctx context.Context, doc internal.Document, ownerID string) Outcome {
	trace := uuid.NewString()
	start := time.Now()

	items := s.extractor.ExtractDocument(doc)
	s.logger.Info("extracted line items",
		zap.String("trace_id", trace),
		zap.String("stage", "extract"),
		zap.Int("items", len(items)))

	if len(items) == 0 {
		return Outcome{
			Matches:      []internal.MatchResult{},
			CostEstimate: CalculateCost(nil),
		}
	}

	matches := s.matcher.MatchAll(ctx, items)
	estimate := CalculateCost(matches)

	rep := internal.Report{
		ReportID:       newReportID(),
		GeneratedAt:    time.Now().UTC(),
		ExtractedItems: len(items),
		Matches:        matches,
		CostEstimate:   estimate,
		OwnerID:        ownerID,
	}
	s.reports.Put(rep)

	s.logger.Info("cost estimate calculated",
		zap.String("trace_id", trace),
		zap.String("report_id", rep.ReportID),
		zap.Int("total_items", estimate.TotalItems),
		zap.Int("matched_items", estimate.MatchedItems),
		zap.Float64("total_cost", estimate.TotalCost),
		zap.Duration("took", time.Since(start)))

	return Outcome{
		ExtractedItems: len(items),
		Matches:        matches,
		CostEstimate:   estimate,
		ReportID:       rep.ReportID,
		ReportLink:     s.baseURL + "/api/v1/dsr/report/" + rep.ReportID,
	}
}

// Reports exposes the store for retrieval-time callers.
func (s *Service) Reports() *report.Store {
	return s.reports
}

const base36 = "0123456789abcdefghijklmnopqrstuvwxyz"

// newReportID builds a time-based identifier with a random suffix,
// collision-safe under expected request volume. The millisecond prefix
// keeps lexical key order aligned with insertion order for eviction.
func newReportID() string {
	suffix := make([]byte, 9)
	if _, err := rand.Read(suffix); err != nil {
		return fmt.Sprintf("dsr_%d_%09d", time.Now().UnixMilli(), time.Now().UnixNano()%1_000_000_000)
	}
	for i, b := range suffix {
		suffix[i] = base36[int(b)%len(base36)]
	}
	return fmt.Sprintf("dsr_%d_%s", time.Now().UnixMilli(), suffix)
}
