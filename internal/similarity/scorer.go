package similarity

import (
	"math"
	"strings"

	"github.com/adrg/strutil"
	"github.com/adrg/strutil/metrics"
	"github.com/pmezard/go-difflib/difflib"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
)

// Component weights, in Breakdown field order. They sum to 1.0.
const (
	WeightSequence    = 0.25
	WeightJaroWinkler = 0.25
	WeightLevenshtein = 0.20
	WeightRatcliff    = 0.20
	WeightSemantic    = 0.10
)

// Default concept weights: label and comment similarity
const (
	DefaultLabelWeight   = 0.7
	DefaultCommentWeight = 0.3
)

// Semantic scores two words by their distance in a lexical taxonomy
type Semantic interface {
	PathSimilarity(a, b string) float64
}

// Breakdown exposes each component score alongside the blended result
type Breakdown struct {
	Sequence          float64 `json:"sequence"`
	JaroWinkler       float64 `json:"jaro_winkler"`
	Levenshtein       float64 `json:"levenshtein"`
	RatcliffObershelp float64 `json:"ratcliff_obershelp"`
	Semantic          float64 `json:"semantic"`
	Combined          float64 `json:"combined"`
}

// Scorer blends four lexical metrics and one semantic metric into a similarity in [0,1]
type Scorer struct {
	semantic      Semantic
	labelWeight   float64
	commentWeight float64
	logger        *zap.Logger
}

// NewScorer creates a scorer. A nil semantic source makes the semantic component 0.
func NewScorer(semantic Semantic, labelWeight, commentWeight float64, logger *zap.Logger) *Scorer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scorer{
		semantic:      semantic,
		labelWeight:   labelWeight,
		commentWeight: commentWeight,
		logger:        logger,
	}
}

// Similarity returns the blended similarity of two strings, compared case-insensitively.
// It never panics; a failing component contributes 0.
func (s *Scorer) Similarity(a, b string) float64 {
	return s.Breakdown(a, b).Combined
}

// Breakdown computes every component for a pair of strings
func (s *Scorer) Breakdown(a, b string) Breakdown {
	a, b = strings.ToLower(a), strings.ToLower(b)

	// Exact self-match saturates every component
	if a == b {
		return Breakdown{
			Sequence:          1,
			JaroWinkler:       1,
			Levenshtein:       1,
			RatcliffObershelp: 1,
			Semantic:          1,
			Combined:          1,
		}
	}

	// Components see their inputs in a fixed order so the blend is exactly symmetric
	if b < a {
		a, b = b, a
	}

	br := Breakdown{
		Sequence:          s.component("sequence", a, b, sequenceRatio),
		JaroWinkler:       s.component("jaro_winkler", a, b, jaroWinkler),
		Levenshtein:       s.component("levenshtein", a, b, levenshtein),
		RatcliffObershelp: s.component("ratcliff_obershelp", a, b, ratcliffObershelp),
		Semantic:          s.component("semantic", a, b, s.semanticSimilarity),
	}
	br.Combined = clamp(WeightSequence*br.Sequence +
		WeightJaroWinkler*br.JaroWinkler +
		WeightLevenshtein*br.Levenshtein +
		WeightRatcliff*br.RatcliffObershelp +
		WeightSemantic*br.Semantic)

	return br
}

// ConceptSimilarity blends label and comment similarity.
// The comment term is 0 when either comment is empty; weights are not renormalized.
func (s *Scorer) ConceptSimilarity(a, b model.Concept) float64 {
	score := s.labelWeight * s.Similarity(a.Label, b.Label)
	if a.Comment != "" && b.Comment != "" {
		score += s.commentWeight * s.Similarity(a.Comment, b.Comment)
	}
	return clamp(score)
}

// component runs one metric behind a recover guard
func (s *Scorer) component(name, a, b string, fn func(a, b string) float64) (v float64) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Debug("similarity component failed",
				zap.String("component", name),
				zap.Any("panic", r))
			v = 0
		}
	}()

	v = fn(a, b)
	if math.IsNaN(v) {
		s.logger.Debug("similarity component returned NaN", zap.String("component", name))
		return 0
	}
	return clamp(v)
}

func (s *Scorer) semanticSimilarity(a, b string) float64 {
	if s.semantic == nil {
		return 0
	}
	return s.semantic.PathSimilarity(a, b)
}

// sequenceRatio is the difflib SequenceMatcher ratio over characters
func sequenceRatio(a, b string) float64 {
	m := difflib.NewMatcher(strings.Split(a, ""), strings.Split(b, ""))
	return m.Ratio()
}

func jaroWinkler(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewJaroWinkler())
}

// levenshtein is 1 - distance/max(len(a), len(b)), 1 when both are empty
func levenshtein(a, b string) float64 {
	return strutil.Similarity(a, b, metrics.NewLevenshtein())
}

func clamp(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	default:
		return v
	}
}
