package config

import (
	"os"

	"gopkg.in/yaml.v3"
)

// Vocabulary holds the domain word tables used by extraction and scoring:
// the unit vocabulary with its aliases, the stop words dropped during
// keyword extraction, and the construction-domain synonym table.
type Vocabulary struct {
	Units       []string            `yaml:"units"`
	UnitAliases map[string]string   `yaml:"unit_aliases"`
	StopWords   []string            `yaml:"stop_words"`
	Synonyms    map[string][]string `yaml:"synonyms"`
}

func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Units: []string{
			"sqm", "cum", "rmt", "kg", "nos", "sqft", "cft",
			"ton", "ltr", "bag", "set", "each", "pair", "dozen",
		},
		UnitAliases: map[string]string{
			"bags": "bag",
		},
		StopWords: []string{
			"in", "of", "the", "and", "or", "for",
			"with", "to", "from", "as", "per", "including",
		},
		Synonyms: map[string][]string{
			"excavation": {"earthwork", "digging", "trenching"},
			"earthwork":  {"excavation", "digging", "trenching"},
			"concrete":   {"cement", "rcc", "reinforced"},
			"cement":     {"concrete", "rcc"},
			"masonry":    {"brickwork", "brick", "blockwork"},
			"brickwork":  {"masonry", "brick"},
			"plastering": {"plaster", "finishing"},
			"painting":   {"paint", "finishing"},
			"flooring":   {"floor", "tiles"},
			"carpentry":  {"woodwork", "wood"},
			"electrical": {"electric", "wiring"},
			"plumbing":   {"pipes", "water", "sanitation"},
		},
	}
}

// LoadVocabulary reads a YAML vocabulary file and overlays it on the
// defaults. Empty path or empty sections keep the built-in tables.
func LoadVocabulary(path string) (Vocabulary, error) {
	vocab := DefaultVocabulary()
	if path == "" {
		return vocab, nil
	}

	blob, err := os.ReadFile(path)
	if err != nil {
		return Vocabulary{}, err
	}

	var loaded Vocabulary
	if err := yaml.Unmarshal(blob, &loaded); err != nil {
		return Vocabulary{}, err
	}

	if len(loaded.Units) > 0 {
		vocab.Units = loaded.Units
	}
	if len(loaded.UnitAliases) > 0 {
		vocab.UnitAliases = loaded.UnitAliases
	}
	if len(loaded.StopWords) > 0 {
		vocab.StopWords = loaded.StopWords
	}
	if len(loaded.Synonyms) > 0 {
		vocab.Synonyms = loaded.Synonyms
	}

	return vocab, nil
}
