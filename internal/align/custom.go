package align

import (
	"sort"

	"github.com/ppiankov/ontobridge/internal/model"
)

// ConceptScorer scores two concepts and two raw labels
type ConceptScorer interface {
	ConceptSimilarity(a, b model.Concept) float64
	Similarity(a, b string) float64
}

// CustomGenerator searches the full cross-product of same-kind concepts
type CustomGenerator struct {
	scorer        ConceptScorer
	minSimilarity float64
	topK          int
	threshold     float64
}

// NewCustomGenerator creates a generator. Pairs scoring at or below minSimilarity are
// discarded and at most topK candidates are kept per source concept.
func NewCustomGenerator(scorer ConceptScorer, minSimilarity float64, topK int, threshold float64) *CustomGenerator {
	if topK <= 0 {
		topK = 3
	}
	return &CustomGenerator{
		scorer:        scorer,
		minSimilarity: minSimilarity,
		topK:          topK,
		threshold:     threshold,
	}
}

type scoredTarget struct {
	concept model.Concept
	score   float64
}

// Generate proposes up to topK targets for every source concept, best first.
// A class is never proposed against a property.
func (g *CustomGenerator) Generate(source, target []model.Concept) model.AlignmentSet {
	set := model.AlignmentSet{}

	for _, src := range source {
		var matches []scoredTarget
		for _, tgt := range target {
			if src.Kind != tgt.Kind {
				continue
			}
			score := g.scorer.ConceptSimilarity(src, tgt)
			if score <= g.minSimilarity {
				continue
			}
			matches = append(matches, scoredTarget{concept: tgt, score: score})
		}

		// Stable so equal scores keep target order
		sort.SliceStable(matches, func(i, j int) bool {
			return matches[i].score > matches[j].score
		})

		if len(matches) > g.topK {
			matches = matches[:g.topK]
		}
		for _, m := range matches {
			set = append(set, model.NewMapping(src.URI, m.concept.URI, m.score, src.Kind, g.threshold))
		}
	}

	return set
}
