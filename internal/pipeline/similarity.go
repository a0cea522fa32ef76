package pipeline

import (
	"regexp"
	"strings"

	"estimatex/internal/config"
)

var reKeywordSplit = regexp.MustCompile(`[\s,\-]+`)

// Scorer computes a [0,1] similarity between two free-text item
// descriptions. Exact equality is rare in real input, so the composite
// scheme rewards partial, reordered and synonym-bearing matches.
type Scorer struct {
	stopWords map[string]struct{}
	synonyms  map[string][]string
}

func NewScorer(vocab config.Vocabulary) *Scorer {
	stop := make(map[string]struct{}, len(vocab.StopWords))
	for _, w := range vocab.StopWords {
		stop[strings.ToLower(w)] = struct{}{}
	}
	return &Scorer{stopWords: stop, synonyms: vocab.Synonyms}
}

// Keywords tokenizes a description: lowercase, split on whitespace,
// hyphens and commas, drop short tokens and stop words, dedupe keeping
// first-seen order.
func (s *Scorer) Keywords(text string) []string {
	parts := reKeywordSplit.Split(strings.ToLower(text), -1)
	seen := map[string]struct{}{}
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if len([]rune(p)) <= 2 {
			continue
		}
		if _, stop := s.stopWords[p]; stop {
			continue
		}
		if _, dup := seen[p]; dup {
			continue
		}
		seen[p] = struct{}{}
		out = append(out, p)
	}
	return out
}

// Score evaluates the rules in order; the first applicable short-circuit
// wins. The additive bonuses can overshoot, the final clamp keeps the
// published [0,1] bound.
func (s *Scorer) Score(a, b string) float64 {
	s1 := strings.ToLower(a)
	s2 := strings.ToLower(b)

	if s1 == s2 {
		return 1.0
	}

	if strings.Contains(s1, s2) || strings.Contains(s2, s1) {
		shorter, longer := s1, s2
		if len(s1) > len(s2) {
			shorter, longer = s2, s1
		}
		if len(longer) == 0 {
			return 1.0
		}
		return float64(len(shorter)) / float64(len(longer)) * 0.9
	}

	words1 := s.Keywords(s1)
	words2 := s.Keywords(s2)
	if len(words1) == 0 || len(words2) == 0 {
		return 0
	}

	direct := intersect(words1, words2)
	common := dedupe(append(direct, s.synonymMatches(words1, words2)...))

	union := map[string]struct{}{}
	for _, w := range words1 {
		union[w] = struct{}{}
	}
	for _, w := range words2 {
		union[w] = struct{}{}
	}

	similarity := float64(len(common)) / float64(len(union))

	directBonus := 0.1 * float64(len(direct))
	if directBonus > 0.3 {
		directBonus = 0.3
	}
	similarity += directBonus

	if run := consecutiveRun(words1, words2); run > 0 {
		similarity += float64(run) / float64(max(len(words1), len(words2))) * 0.2
	}

	if sameWordOrder(words1, words2, direct) {
		similarity += 0.1
	}

	if similarity > 1.0 {
		similarity = 1.0
	}
	return similarity
}

// synonymMatches collects words in either set whose domain synonym
// appears in the other set. Direct matches are excluded; the table is
// consulted in both directions.
func (s *Scorer) synonymMatches(words1, words2 []string) []string {
	set1 := toSet(words1)
	set2 := toSet(words2)

	matches := []string{}
	collect := func(words []string, own, other map[string]struct{}) {
		for _, word := range words {
			if _, direct := other[word]; direct {
				continue
			}
			for _, synonym := range s.synonyms[word] {
				if _, ok := other[synonym]; ok {
					matches = append(matches, word)
					break
				}
			}
		}
	}
	collect(words1, set1, set2)
	collect(words2, set2, set1)
	return dedupe(matches)
}

// consecutiveRun returns the longest run of words1 entries, in order,
// that each appear anywhere in words2.
func consecutiveRun(words1, words2 []string) int {
	set2 := toSet(words2)
	longest, current := 0, 0
	for _, w := range words1 {
		if _, ok := set2[w]; ok {
			current++
			if current > longest {
				longest = current
			}
		} else {
			current = 0
		}
	}
	return longest
}

// sameWordOrder reports whether the directly matched words keep the same
// relative order in both token sequences.
func sameWordOrder(words1, words2, common []string) bool {
	if len(common) < 2 {
		return false
	}

	indices1 := make([]int, 0, len(common))
	indices2 := make([]int, 0, len(common))
	for _, w := range common {
		if idx := indexOf(words1, w); idx >= 0 {
			indices1 = append(indices1, idx)
		}
		if idx := indexOf(words2, w); idx >= 0 {
			indices2 = append(indices2, idx)
		}
	}
	if len(indices1) != len(indices2) {
		return false
	}

	for i := 1; i < len(indices1); i++ {
		if (indices1[i] > indices1[i-1]) != (indices2[i] > indices2[i-1]) {
			return false
		}
	}
	return true
}

func intersect(words1, words2 []string) []string {
	set2 := toSet(words2)
	out := []string{}
	for _, w := range words1 {
		if _, ok := set2[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

func dedupe(words []string) []string {
	seen := map[string]struct{}{}
	out := make([]string, 0, len(words))
	for _, w := range words {
		if _, ok := seen[w]; ok {
			continue
		}
		seen[w] = struct{}{}
		out = append(out, w)
	}
	return out
}

func toSet(words []string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[w] = struct{}{}
	}
	return set
}

func indexOf(words []string, word string) int {
	for i, w := range words {
		if w == word {
			return i
		}
	}
	return -1
}
