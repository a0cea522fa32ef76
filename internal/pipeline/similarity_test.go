package pipeline

import (
	"math"
	"testing"

	"estimatex/internal/config"
)

func newTestScorer() *Scorer {
	return NewScorer(config.DefaultVocabulary())
}

func TestScoreExactMatch(t *testing.T) {
	s := newTestScorer()
	if got := s.Score("cement concrete M20", "Cement Concrete m20"); got != 1.0 {
		t.Fatalf("got %v", got)
	}
}

func TestScoreContainment(t *testing.T) {
	s := newTestScorer()
	got := s.Score("cement concrete M20 grade", "cement concrete M20")
	want := float64(len("cement concrete m20")) / float64(len("cement concrete m20 grade")) * 0.9
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("got %v want %v", got, want)
	}
	if got < 0.67 || got > 0.69 {
		t.Fatalf("got %v, expected ~0.68", got)
	}
}

func TestScoreSynonyms(t *testing.T) {
	s := newTestScorer()
	withSynonym := s.Score("excavation hard rock", "earthwork hard rock")
	without := s.Score("excavation hard rock", "painting hard rock")
	if withSynonym <= without {
		t.Fatalf("synonym score %v not above %v", withSynonym, without)
	}
}

func TestScoreStopWordsAndShortTokens(t *testing.T) {
	s := newTestScorer()
	// Tokens of length <= 2 and stop words never count as keywords.
	if got := s.Score("in of to", "as per the"); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestScoreDisjoint(t *testing.T) {
	s := newTestScorer()
	if got := s.Score("steel reinforcement bars", "ceramic floor tiles"); got != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestScoreBounds(t *testing.T) {
	s := newTestScorer()
	pairs := [][2]string{
		{"cement concrete M20", "cement concrete M20"},
		{"excavation in ordinary soil", "earthwork excavation trenching soil"},
		{"brick masonry in cement mortar", "brickwork in cm 1:6"},
		{"providing and laying cement concrete", "cement concrete laying providing"},
		{"", ""},
		{"a", "b"},
		{"steel reinforcement", ""},
	}
	for _, pair := range pairs {
		got := s.Score(pair[0], pair[1])
		if got < 0 || got > 1 {
			t.Fatalf("Score(%q, %q) = %v out of bounds", pair[0], pair[1], got)
		}
	}
}

func TestScoreSelfIdentity(t *testing.T) {
	s := newTestScorer()
	for _, text := range []string{
		"cement concrete M20",
		"Excavation in ordinary soil",
		"steel reinforcement Fe500",
	} {
		if got := s.Score(text, text); got != 1.0 {
			t.Fatalf("Score(%q, %q) = %v", text, text, got)
		}
	}
}

func TestScoreRewardsWordOrder(t *testing.T) {
	s := newTestScorer()
	sameOrder := s.Score("cement concrete slab", "cement concrete beam")
	scrambled := s.Score("cement concrete slab", "concrete cement beam")
	if sameOrder <= scrambled {
		t.Fatalf("same-order score %v not above scrambled %v", sameOrder, scrambled)
	}
}

func TestScoreDeterministic(t *testing.T) {
	s := newTestScorer()
	first := s.Score("excavation in hard soil", "earthwork in hard strata")
	for i := 0; i < 10; i++ {
		if got := s.Score("excavation in hard soil", "earthwork in hard strata"); got != first {
			t.Fatalf("run %d: got %v want %v", i, got, first)
		}
	}
}

func TestKeywords(t *testing.T) {
	s := newTestScorer()
	got := s.Keywords("Providing and laying cement-concrete, in foundation")
	want := []string{"providing", "laying", "cement", "concrete", "foundation"}
	if len(got) != len(want) {
		t.Fatalf("got %v want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v want %v", got, want)
		}
	}
}
