package pipeline

import (
	"context"
	"sort"
	"strings"
	"sync"

	"go.uber.org/zap"

	"estimatex/internal"
	"estimatex/internal/config"
)

// Lookup is the reference-data collaborator queried by the matcher.
// Implementations return active items only.
type Lookup interface {
	// FindExact returns case-insensitive exact description matches.
	FindExact(ctx context.Context, description string) ([]internal.DSRItem, error)
	// FindFuzzyCandidates returns substring matches of the description
	// unioned with per-keyword substring matches.
	FindFuzzyCandidates(ctx context.Context, description string, keywords []string) ([]internal.DSRItem, error)
}

// Matcher ranks reference candidates for extracted items. A lookup
// failure degrades the affected item to an unmatched result; it never
// aborts the batch.
type Matcher struct {
	store  Lookup
	scorer *Scorer
	cfg    config.Config
	logger *zap.Logger
}

func NewMatcher(store Lookup, scorer *Scorer, cfg config.Config, logger *zap.Logger) *Matcher {
	return &Matcher{store: store, scorer: scorer, cfg: cfg, logger: logger}
}

// MatchAll matches every item and returns results in input order.
// Lookups are independent and read-only, so they fan out over a small
// worker pool; results are written by index to keep the ordering
// invariant.
func (m *Matcher) MatchAll(ctx context.Context, items []internal.LineItem) []internal.MatchResult {
	results := make([]internal.MatchResult, len(items))

	workers := m.cfg.MatchWorkers
	if workers < 1 {
		workers = 1
	}
	sem := make(chan struct{}, workers)

	var wg sync.WaitGroup
	for i, item := range items {
		wg.Add(1)
		go func(i int, item internal.LineItem) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			results[i] = m.MatchItem(ctx, item)
		}(i, item)
	}
	wg.Wait()

	return results
}

func (m *Matcher) MatchItem(ctx context.Context, item internal.LineItem) internal.MatchResult {
	result := internal.MatchResult{
		Extracted:  item,
		Alternates: []internal.AlternateMatch{},
	}

	candidates, err := m.findCandidates(ctx, item.Description)
	if err != nil {
		m.logger.Error("reference lookup failed",
			zap.String("stage", "match"),
			zap.String("description", item.Description),
			zap.Error(err))
		result.Error = err.Error()
		return result
	}
	if len(candidates) == 0 {
		return result
	}

	best := candidates[0].Item
	result.Best = &best
	result.MatchScore = candidates[0].Similarity

	limit := m.cfg.AlternatesLimit
	for _, c := range candidates[1:] {
		if len(result.Alternates) >= limit {
			break
		}
		result.Alternates = append(result.Alternates, internal.AlternateMatch{
			ItemCode:    c.Item.ItemCode,
			Description: c.Item.Description,
			Rate:        c.Item.Rate,
			Unit:        c.Item.Unit,
		})
	}
	return result
}

// findCandidates runs the two lookup passes: exact description equality
// first, then the scored substring/keyword query filtered by the
// minimum-similarity threshold.
func (m *Matcher) findCandidates(ctx context.Context, description string) ([]internal.CandidateMatch, error) {
	query := strings.ToLower(strings.TrimSpace(description))

	exact, err := m.store.FindExact(ctx, query)
	if err != nil {
		return nil, err
	}
	if len(exact) > 0 {
		out := make([]internal.CandidateMatch, 0, len(exact))
		for _, item := range exact {
			out = append(out, internal.CandidateMatch{Item: item, Similarity: 1.0})
		}
		return out, nil
	}

	rows, err := m.store.FindFuzzyCandidates(ctx, query, queryKeywords(query))
	if err != nil {
		return nil, err
	}

	scored := make([]internal.CandidateMatch, 0, len(rows))
	for _, item := range rows {
		scored = append(scored, internal.CandidateMatch{
			Item:       item,
			Similarity: m.scorer.Score(query, strings.ToLower(item.Description)),
		})
	}
	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Similarity > scored[j].Similarity })

	out := scored[:0]
	for _, c := range scored {
		if c.Similarity >= m.cfg.MinSimilarity {
			out = append(out, c)
		}
	}
	return out, nil
}

// queryKeywords picks the whitespace-separated query tokens long enough
// to be worth a per-keyword substring lookup.
func queryKeywords(query string) []string {
	out := []string{}
	for _, word := range strings.Fields(query) {
		if len(word) > 3 {
			out = append(out, word)
		}
	}
	return out
}
