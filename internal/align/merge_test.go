package align

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/ppiankov/ontobridge/internal/model"
)

func mapping(src, tgt string, conf float64) model.CandidateMapping {
	return model.NewMapping(src, tgt, conf, model.KindProperty, model.DefaultConfidenceThreshold)
}

func confidences(set model.AlignmentSet) map[model.MappingKey]float64 {
	out := make(map[model.MappingKey]float64, len(set))
	for _, m := range set {
		out[m.Key()] = m.Confidence
	}
	return out
}

func TestMerge_HigherConfidenceWins(t *testing.T) {
	custom := model.AlignmentSet{mapping("s#a", "t#a", 0.6), mapping("s#b", "t#b", 0.9)}
	api := model.AlignmentSet{mapping("s#a", "t#a", 0.8), mapping("s#c", "t#c", 0.4)}

	merged := Merge(custom, api)

	assert.Len(t, merged, 3)
	assert.Equal(t, map[model.MappingKey]float64{
		{Source: "s#a", Target: "t#a"}: 0.8,
		{Source: "s#b", Target: "t#b"}: 0.9,
		{Source: "s#c", Target: "t#c"}: 0.4,
	}, confidences(merged))

	// First-seen key order
	assert.Equal(t, "s#a", merged[0].SourceURI)
	assert.Equal(t, "s#b", merged[1].SourceURI)
	assert.Equal(t, "s#c", merged[2].SourceURI)
	assert.False(t, merged[0].NeedsConfirmation, "winning entry carries its own flag")
}

func TestMerge_TieKeepsFirst(t *testing.T) {
	first := model.NewMapping("s#a", "t#a", 0.7, model.KindClass, 0.7)
	second := model.NewMapping("s#a", "t#a", 0.7, model.KindUnknown, 0.7)

	merged := Merge(model.AlignmentSet{first}, model.AlignmentSet{second})
	assert.Equal(t, model.AlignmentSet{first}, merged)

	merged = Merge(model.AlignmentSet{second}, model.AlignmentSet{first})
	assert.Equal(t, model.AlignmentSet{second}, merged)
}

func TestMerge_Commutative(t *testing.T) {
	a := model.AlignmentSet{
		mapping("s#1", "t#1", 0.55),
		mapping("s#2", "t#2", 0.91),
		mapping("s#3", "t#3", 0.70),
	}
	b := model.AlignmentSet{
		mapping("s#3", "t#3", 0.72),
		mapping("s#1", "t#1", 0.55),
		mapping("s#4", "t#4", 0.10),
		mapping("s#2", "t#9", 0.66),
	}

	assert.Equal(t, confidences(Merge(a, b)), confidences(Merge(b, a)))
	assert.Len(t, Merge(a, b), 5)
}

func TestMerge_EmptyInputs(t *testing.T) {
	assert.Empty(t, Merge(nil, nil))

	a := model.AlignmentSet{mapping("s#1", "t#1", 0.5)}
	assert.Equal(t, a, Merge(a, nil))
	assert.Equal(t, a, Merge(nil, a))
}
