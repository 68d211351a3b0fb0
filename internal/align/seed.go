package align

import (
	"fmt"
	"io"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Seed is a hand-authored label pair asserted to correspond across two ontologies
type Seed struct {
	Source string `yaml:"source"`
	Target string `yaml:"target"`
	Kind   string `yaml:"type,omitempty"` // class or property; empty matches either
}

type seedFile struct {
	Seeds []Seed `yaml:"seeds"`
}

// LoadSeeds reads a YAML seed table
func LoadSeeds(path string) ([]Seed, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open seeds: %w", err)
	}
	defer f.Close()
	return ParseSeeds(f)
}

// ParseSeeds decodes a seed table, rejecting entries with an empty side
func ParseSeeds(r io.Reader) ([]Seed, error) {
	var sf seedFile
	if err := yaml.NewDecoder(r).Decode(&sf); err != nil && err != io.EOF {
		return nil, fmt.Errorf("parse seeds: %w", err)
	}
	for i, s := range sf.Seeds {
		if strings.TrimSpace(s.Source) == "" || strings.TrimSpace(s.Target) == "" {
			return nil, fmt.Errorf("parse seeds: entry %d needs both source and target", i)
		}
	}
	return sf.Seeds, nil
}

// SeedGenerator resolves a seed table against two concept lists and scores each resolved pair
type SeedGenerator struct {
	seeds     []Seed
	scorer    ConceptScorer
	threshold float64
}

// NewSeedGenerator creates a generator over a fixed seed table
func NewSeedGenerator(seeds []Seed, scorer ConceptScorer, threshold float64) *SeedGenerator {
	return &SeedGenerator{seeds: seeds, scorer: scorer, threshold: threshold}
}

// Generate emits one mapping per resolved (source, target) concept pair of the same kind.
// Seeds naming a concept that does not exist on either side are ignored.
func (g *SeedGenerator) Generate(source, target []model.Concept) model.AlignmentSet {
	set := model.AlignmentSet{}
	seen := make(map[model.MappingKey]bool)

	for _, seed := range g.seeds {
		want := model.KindUnknown
		if seed.Kind != "" {
			want = model.ParseKind(seed.Kind)
		}

		for _, src := range resolve(source, seed.Source, want) {
			for _, tgt := range resolve(target, seed.Target, src.Kind) {
				m := model.NewMapping(src.URI, tgt.URI, g.scorer.Similarity(src.Label, tgt.Label), src.Kind, g.threshold)
				if seen[m.Key()] {
					continue
				}
				seen[m.Key()] = true
				set = append(set, m)
			}
		}
	}

	return set
}

// resolve finds concepts whose label or IRI local name equals name, ignoring case.
// KindUnknown accepts any kind.
func resolve(concepts []model.Concept, name string, kind model.Kind) []model.Concept {
	name = strings.TrimSpace(name)
	var out []model.Concept
	for _, c := range concepts {
		if kind != model.KindUnknown && c.Kind != kind {
			continue
		}
		if strings.EqualFold(c.Label, name) || strings.EqualFold(model.LocalName(c.URI), name) {
			out = append(out, c)
		}
	}
	return out
}
