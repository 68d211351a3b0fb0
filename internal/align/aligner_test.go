package align

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
)

const clientOntology = `@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix cl: <http://client.example.org/onto#> .

cl:Booking a owl:Class ;
    rdfs:comment "A cottage reservation" .
cl:bookerName a owl:DatatypeProperty .
cl:numberOfPeople a owl:DatatypeProperty .
`

const providerOntology = `@prefix owl: <http://www.w3.org/2002/07/owl#> .
@prefix rdfs: <http://www.w3.org/2000/01/rdf-schema#> .
@prefix pv: <http://provider.example.org/onto#> .

pv:Booking a owl:Class ;
    rdfs:comment "A cottage reservation" .
pv:bookerName a owl:DatatypeProperty .
pv:requiredPlaces a owl:DatatypeProperty .
`

func testConfig(t *testing.T) *model.Config {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Tool.Enabled = false
	cfg.Store.Dir = t.TempDir()
	return cfg
}

func newTestAligner(t *testing.T, cfg *model.Config) *Aligner {
	t.Helper()
	a, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	return a
}

func findMapping(set model.AlignmentSet, src, tgt string) (model.CandidateMapping, bool) {
	for _, m := range set {
		if m.SourceURI == src && m.TargetURI == tgt {
			return m, true
		}
	}
	return model.CandidateMapping{}, false
}

func TestAligner_Custom(t *testing.T) {
	a := newTestAligner(t, testConfig(t))

	set, err := a.Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.MethodCustom)
	require.NoError(t, err)

	booking, ok := findMapping(set, "http://client.example.org/onto#Booking", "http://provider.example.org/onto#Booking")
	require.True(t, ok)
	assert.Equal(t, 1.0, booking.Confidence)
	assert.Equal(t, model.KindClass, booking.Kind)
	assert.False(t, booking.NeedsConfirmation)

	name, ok := findMapping(set, "http://client.example.org/onto#bookerName", "http://provider.example.org/onto#bookerName")
	require.True(t, ok)
	assert.InDelta(t, 0.7, name.Confidence, 1e-12, "identical label, no comments")

	perSource := make(map[string]int)
	for _, m := range set {
		perSource[m.SourceURI]++
		assert.Greater(t, m.Confidence, 0.5)
		if strings.HasSuffix(m.SourceURI, "#Booking") {
			assert.Equal(t, model.KindClass, m.Kind)
		} else {
			assert.Equal(t, model.KindProperty, m.Kind)
		}
	}
	for src, n := range perSource {
		assert.LessOrEqual(t, n, 3, src)
	}
}

func TestAligner_CombinedWithoutToolEqualsCustom(t *testing.T) {
	ctx := context.Background()

	disabled := newTestAligner(t, testConfig(t))
	custom, err := disabled.Align(ctx, []byte(clientOntology), []byte(providerOntology), model.MethodCustom)
	require.NoError(t, err)

	combined, err := disabled.Align(ctx, []byte(clientOntology), []byte(providerOntology), model.MethodCombined)
	require.NoError(t, err)
	assert.Equal(t, custom, combined)

	cfg := testConfig(t)
	cfg.Tool.Enabled = true
	cfg.Tool.Command = []string{"/nonexistent/align-tool", "{source}", "{target}"}
	broken := newTestAligner(t, cfg)

	combined, err = broken.Align(ctx, []byte(clientOntology), []byte(providerOntology), model.MethodCombined)
	require.NoError(t, err)
	assert.Equal(t, custom, combined)

	api, err := broken.Align(ctx, []byte(clientOntology), []byte(providerOntology), model.MethodAPI)
	require.NoError(t, err)
	assert.Empty(t, api)
}

func TestAligner_MalformedInput(t *testing.T) {
	a := newTestAligner(t, testConfig(t))
	broken := []byte(`<?xml version="1.0"?><rdf:RDF xmlns:rdf="http://www.w3.org/1999/02/22-rdf-syntax-ns#"><rdf:Description`)

	for _, method := range []model.Method{model.MethodCustom, model.MethodAPI, model.MethodCombined} {
		_, err := a.Align(context.Background(), broken, []byte(providerOntology), method)
		assert.ErrorIs(t, err, model.ErrMalformedOntology, method)

		_, err = a.Align(context.Background(), []byte(clientOntology), []byte("   "), method)
		assert.ErrorIs(t, err, model.ErrMalformedOntology, method)
	}
}

func TestAligner_UnknownMethod(t *testing.T) {
	a := newTestAligner(t, testConfig(t))
	_, err := a.Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.Method("magic"))
	assert.ErrorIs(t, err, model.ErrUnknownMethod)
}

func TestAligner_Seeds(t *testing.T) {
	cfg := testConfig(t)

	_, err := newTestAligner(t, cfg).Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.MethodSeed)
	assert.ErrorIs(t, err, model.ErrInvalidConfig)

	path := filepath.Join(t.TempDir(), "seeds.yaml")
	require.NoError(t, os.WriteFile(path, []byte("seeds:\n  - source: numberOfPeople\n    target: requiredPlaces\n    type: property\n"), 0o644))
	cfg.Alignment.SeedsPath = path
	a := newTestAligner(t, cfg)

	set, err := a.Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.MethodSeed)
	require.NoError(t, err)
	require.Len(t, set, 1)
	assert.Equal(t, "http://client.example.org/onto#numberOfPeople", set[0].SourceURI)
	assert.Equal(t, "http://provider.example.org/onto#requiredPlaces", set[0].TargetURI)
	assert.Less(t, set[0].Confidence, 0.6)
	assert.True(t, set[0].NeedsConfirmation)

	// Combined folds the seed mapping in next to the cross-product results
	combined, err := a.Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.MethodCombined)
	require.NoError(t, err)
	_, ok := findMapping(combined, set[0].SourceURI, set[0].TargetURI)
	assert.True(t, ok)
}

func TestAligner_Explain(t *testing.T) {
	a := newTestAligner(t, testConfig(t))
	set, err := a.Align(context.Background(), []byte(clientOntology), []byte(providerOntology), model.MethodCustom)
	require.NoError(t, err)

	ex, err := a.Explain([]byte(clientOntology), []byte(providerOntology), set)
	require.NoError(t, err)
	require.Len(t, ex, len(set))

	for _, e := range ex {
		if e.SourceLabel == "Booking" {
			assert.Equal(t, 1.0, e.Label.Combined)
			require.NotNil(t, e.Comment)
			assert.Equal(t, 1.0, e.Comment.Combined)
		}
	}
}

func TestNew_BadSeedsPath(t *testing.T) {
	cfg := testConfig(t)
	cfg.Alignment.SeedsPath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err := New(cfg, nil)
	assert.Error(t, err)
}
