package align

import (
	"context"
	"fmt"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/ontobridge/internal/lexicon"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/ontology"
	"github.com/ppiankov/ontobridge/internal/similarity"
)

// Aligner dispatches an alignment request to the configured generators
type Aligner struct {
	scorer    *similarity.Scorer
	custom    *CustomGenerator
	seeds     *SeedGenerator // nil without a seed table
	tool      *ToolGenerator // nil when the external tool is disabled
	threshold float64
	logger    *zap.Logger
}

// New builds an aligner from configuration
func New(cfg *model.Config, logger *zap.Logger) (*Aligner, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	lex, err := lexicon.LoadFile(cfg.Lexicon.Path)
	if err != nil {
		return nil, fmt.Errorf("load lexicon: %w", err)
	}

	ac := cfg.Alignment
	scorer := similarity.NewScorer(lex, ac.LabelWeight, ac.CommentWeight, logger.Named("similarity"))

	a := &Aligner{
		scorer:    scorer,
		custom:    NewCustomGenerator(scorer, ac.MinSimilarity, ac.TopK, ac.ConfidenceThreshold),
		threshold: ac.ConfidenceThreshold,
		logger:    logger,
	}

	if ac.SeedsPath != "" {
		seeds, err := LoadSeeds(ac.SeedsPath)
		if err != nil {
			return nil, err
		}
		a.seeds = NewSeedGenerator(seeds, scorer, ac.ConfidenceThreshold)
	}

	if cfg.Tool.Enabled {
		a.tool = NewToolGenerator(cfg.Tool.Command, cfg.Tool.Timeout, ac.ConfidenceThreshold, logger.Named("tool"))
	}

	return a, nil
}

// Scorer exposes the similarity scorer used by the generators
func (a *Aligner) Scorer() *similarity.Scorer {
	return a.scorer
}

// Concepts parses an RDF document and extracts its concepts
func Concepts(doc []byte) ([]model.Concept, error) {
	g, err := ontology.ParseBytes(doc, "")
	if err != nil {
		return nil, err
	}
	return ontology.Extract(g), nil
}

// Align proposes mappings from the source ontology to the target ontology.
// Unparseable input fails with model.ErrMalformedOntology; the external tool never fails the call.
func (a *Aligner) Align(ctx context.Context, source, target []byte, method model.Method) (model.AlignmentSet, error) {
	switch method {
	case model.MethodCustom:
		src, tgt, err := parsePair(source, target)
		if err != nil {
			return nil, err
		}
		return a.custom.Generate(src, tgt), nil

	case model.MethodSeed:
		if a.seeds == nil {
			return nil, fmt.Errorf("%w: method seed needs alignment.seeds_path", model.ErrInvalidConfig)
		}
		src, tgt, err := parsePair(source, target)
		if err != nil {
			return nil, err
		}
		return a.seeds.Generate(src, tgt), nil

	case model.MethodAPI:
		if _, _, err := parsePair(source, target); err != nil {
			return nil, err
		}
		return a.runTool(ctx, source, target), nil

	case model.MethodCombined, "":
		return a.combined(ctx, source, target)

	default:
		return nil, fmt.Errorf("%w: %q", model.ErrUnknownMethod, method)
	}
}

// combined runs the custom search and the external tool concurrently and merges them,
// custom entries first. Seed mappings are merged last when a seed table is configured.
func (a *Aligner) combined(ctx context.Context, source, target []byte) (model.AlignmentSet, error) {
	var custom, seeded, api model.AlignmentSet

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		src, tgt, err := parsePair(source, target)
		if err != nil {
			return err
		}
		custom = a.custom.Generate(src, tgt)
		if a.seeds != nil {
			seeded = a.seeds.Generate(src, tgt)
		}
		return nil
	})
	g.Go(func() error {
		api = a.runTool(gctx, source, target)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := Merge(custom, api)
	if len(seeded) > 0 {
		merged = Merge(merged, seeded)
	}

	a.logger.Debug("combined alignment",
		zap.Int("custom", len(custom)),
		zap.Int("api", len(api)),
		zap.Int("seed", len(seeded)),
		zap.Int("merged", len(merged)))
	return merged, nil
}

func (a *Aligner) runTool(ctx context.Context, source, target []byte) model.AlignmentSet {
	if a.tool == nil {
		return model.AlignmentSet{}
	}
	return a.tool.Generate(ctx, source, target)
}

func parsePair(source, target []byte) ([]model.Concept, []model.Concept, error) {
	src, err := Concepts(source)
	if err != nil {
		return nil, nil, fmt.Errorf("source ontology: %w", err)
	}
	tgt, err := Concepts(target)
	if err != nil {
		return nil, nil, fmt.Errorf("target ontology: %w", err)
	}
	return src, tgt, nil
}

// Explanation pairs a mapping with the component scores behind it
type Explanation struct {
	Mapping     model.CandidateMapping `json:"mapping"`
	SourceLabel string                 `json:"source_label"`
	TargetLabel string                 `json:"target_label"`
	Label       similarity.Breakdown   `json:"label"`
	Comment     *similarity.Breakdown  `json:"comment,omitempty"` // nil when either side has no comment
}

// Explain recomputes the scoring breakdown for every mapping whose concepts exist in both documents
func (a *Aligner) Explain(source, target []byte, set model.AlignmentSet) ([]Explanation, error) {
	src, tgt, err := parsePair(source, target)
	if err != nil {
		return nil, err
	}

	srcByURI := indexByURI(src)
	tgtByURI := indexByURI(tgt)

	var out []Explanation
	for _, m := range set {
		s, ok1 := srcByURI[m.SourceURI]
		t, ok2 := tgtByURI[m.TargetURI]
		if !ok1 || !ok2 {
			continue
		}
		ex := Explanation{
			Mapping:     m,
			SourceLabel: s.Label,
			TargetLabel: t.Label,
			Label:       a.scorer.Breakdown(s.Label, t.Label),
		}
		if s.Comment != "" && t.Comment != "" {
			br := a.scorer.Breakdown(s.Comment, t.Comment)
			ex.Comment = &br
		}
		out = append(out, ex)
	}
	return out, nil
}

func indexByURI(concepts []model.Concept) map[string]model.Concept {
	out := make(map[string]model.Concept, len(concepts))
	for _, c := range concepts {
		out[c.URI] = c
	}
	return out
}
