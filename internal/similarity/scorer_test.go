package similarity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/lexicon"
	"github.com/ppiankov/ontobridge/internal/model"
)

type panicSemantic struct{}

func (panicSemantic) PathSimilarity(a, b string) float64 { panic("taxonomy unavailable") }

type constSemantic float64

func (c constSemantic) PathSimilarity(a, b string) float64 { return float64(c) }

func newTestScorer(t *testing.T) *Scorer {
	t.Helper()
	lx, err := lexicon.Default()
	require.NoError(t, err)
	return NewScorer(lx, DefaultLabelWeight, DefaultCommentWeight, zap.NewNop())
}

var samplePairs = [][2]string{
	{"numberOfPeople", "requiredPlaces"},
	{"booking", "reservation"},
	{"cottage", "house"},
	{"startDate", "bookingStartDate"},
	{"", "nearestCity"},
	{"", ""},
	{"a", "b"},
	{"Lake", "lake"},
	{"wikimedia", "wikimania"},
	{"maxDistanceToLake", "distanceToLake"},
	{"Ünïcödé", "unicode"},
	{"number of guests", "requiredPlaces"},
}

func TestSimilarity_SelfMatch(t *testing.T) {
	s := newTestScorer(t)
	for _, x := range []string{"a", "numberOfPeople", "Cottage", "some longer free-text comment", "日本"} {
		assert.Equal(t, 1.0, s.Similarity(x, x), x)
	}
}

func TestSimilarity_Symmetric(t *testing.T) {
	s := newTestScorer(t)
	for _, p := range samplePairs {
		assert.Equal(t, s.Similarity(p[0], p[1]), s.Similarity(p[1], p[0]), "%q vs %q", p[0], p[1])
		assert.Equal(t, s.Breakdown(p[0], p[1]), s.Breakdown(p[1], p[0]))
	}
}

func TestSimilarity_Range(t *testing.T) {
	s := newTestScorer(t)
	for _, p := range samplePairs {
		v := s.Similarity(p[0], p[1])
		assert.GreaterOrEqual(t, v, 0.0, "%q vs %q", p[0], p[1])
		assert.LessOrEqual(t, v, 1.0, "%q vs %q", p[0], p[1])
	}
}

func TestSimilarity_CaseInsensitive(t *testing.T) {
	s := newTestScorer(t)
	assert.Equal(t, 1.0, s.Similarity("LAKE", "lake"))
	assert.Equal(t, s.Similarity("BookerName", "bookingName"), s.Similarity("bookername", "bookingname"))
}

func TestSimilarity_SemanticContributes(t *testing.T) {
	s := newTestScorer(t)
	lexicalOnly := NewScorer(nil, DefaultLabelWeight, DefaultCommentWeight, nil)

	br := s.Breakdown("booking", "reservation")
	assert.Equal(t, 1.0, br.Semantic)
	assert.InDelta(t, s.Similarity("booking", "reservation")-lexicalOnly.Similarity("booking", "reservation"), WeightSemantic, 1e-12)
}

func TestSimilarity_FailingComponentIsZero(t *testing.T) {
	failing := NewScorer(panicSemantic{}, DefaultLabelWeight, DefaultCommentWeight, zap.NewNop())
	lexicalOnly := NewScorer(nil, DefaultLabelWeight, DefaultCommentWeight, zap.NewNop())

	var got float64
	require.NotPanics(t, func() { got = failing.Similarity("cottage", "house") })
	assert.Equal(t, lexicalOnly.Similarity("cottage", "house"), got)

	nan := NewScorer(constSemantic(math.NaN()), DefaultLabelWeight, DefaultCommentWeight, zap.NewNop())
	assert.Equal(t, 0.0, nan.Breakdown("cottage", "house").Semantic)

	tooHigh := NewScorer(constSemantic(7), DefaultLabelWeight, DefaultCommentWeight, zap.NewNop())
	assert.Equal(t, 1.0, tooHigh.Breakdown("cottage", "house").Semantic)
}

func TestBreakdown_Components(t *testing.T) {
	s := NewScorer(nil, DefaultLabelWeight, DefaultCommentWeight, nil)

	br := s.Breakdown("wikimedia", "wikimania")
	assert.InDelta(t, 7.0/9.0, br.Sequence, 1e-12)
	assert.InDelta(t, 14.0/18.0, br.RatcliffObershelp, 1e-12)
	assert.InDelta(t, 1-2.0/9.0, br.Levenshtein, 1e-12)
	assert.Greater(t, br.JaroWinkler, 0.8)
	assert.Equal(t, 0.0, br.Semantic)

	want := WeightSequence*br.Sequence + WeightJaroWinkler*br.JaroWinkler +
		WeightLevenshtein*br.Levenshtein + WeightRatcliff*br.RatcliffObershelp
	assert.InDelta(t, want, br.Combined, 1e-12)
}

func TestBreakdown_EmptyAgainstNonEmpty(t *testing.T) {
	s := NewScorer(nil, DefaultLabelWeight, DefaultCommentWeight, nil)
	br := s.Breakdown("", "city")
	assert.Equal(t, 0.0, br.Sequence)
	assert.Equal(t, 0.0, br.Levenshtein)
	assert.Equal(t, 0.0, br.RatcliffObershelp)
}

func TestRatcliffObershelp(t *testing.T) {
	tests := []struct {
		a, b string
		want float64
	}{
		{"", "", 1},
		{"abc", "", 0},
		{"abc", "abc", 1},
		{"abc", "xyz", 0},
		{"wikimedia", "wikimania", 14.0 / 18.0},
		{"pennsylvania", "pencilvaneya", 2 * 8.0 / 24.0},
	}

	for _, tt := range tests {
		assert.InDelta(t, tt.want, ratcliffObershelp(tt.a, tt.b), 1e-12, "%q vs %q", tt.a, tt.b)
	}
}

func TestConceptSimilarity(t *testing.T) {
	s := newTestScorer(t)

	t.Run("identical label and comment", func(t *testing.T) {
		a := model.Concept{URI: "http://a#Booking", Label: "Booking", Comment: "A cottage reservation", Kind: model.KindClass}
		b := model.Concept{URI: "http://b#Booking", Label: "Booking", Comment: "A cottage reservation", Kind: model.KindClass}
		assert.Equal(t, 1.0, s.ConceptSimilarity(a, b))
	})

	t.Run("missing comment contributes zero", func(t *testing.T) {
		a := model.Concept{Label: "Booking", Comment: "A cottage reservation"}
		b := model.Concept{Label: "Booking"}
		assert.InDelta(t, DefaultLabelWeight, s.ConceptSimilarity(a, b), 1e-12)
	})

	t.Run("low lexical overlap", func(t *testing.T) {
		a := model.Concept{URI: "http://client#numberOfPeople", Label: "numberOfPeople", Kind: model.KindProperty}
		b := model.Concept{URI: "http://provider#requiredPlaces", Label: "requiredPlaces", Kind: model.KindProperty}
		got := s.ConceptSimilarity(a, b)
		assert.Less(t, got, 0.6)
		assert.Less(t, got, model.DefaultConfidenceThreshold)
	})
}
