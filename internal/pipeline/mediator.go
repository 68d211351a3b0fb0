package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/align"
	"github.com/ppiankov/ontobridge/internal/cache"
	"github.com/ppiankov/ontobridge/internal/llm"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/store"
	"github.com/ppiankov/ontobridge/internal/transform"
	"github.com/ppiankov/ontobridge/internal/worker"
)

// Mediator runs the alignment workflow between the local ontology and remote services
type Mediator struct {
	config   *model.Config
	aligner  *align.Aligner
	store    store.Store
	fetcher  *Fetcher
	reviewer *llm.Reviewer // disabled unless llm.provider is set
	local    []byte        // local ontology document, nil when not configured
	locks    *keyedMutex
	logger   *zap.Logger
}

// NewMediator wires the workflow from configuration
func NewMediator(cfg *model.Config, logger *zap.Logger) (*Mediator, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	aligner, err := align.New(cfg, logger.Named("align"))
	if err != nil {
		return nil, err
	}

	st, err := store.NewFileStore(cfg.Store.Dir, cfg.Store.MemoryTTL, logger.Named("store"))
	if err != nil {
		return nil, err
	}

	reviewer, err := llm.NewReviewer(llm.ConfigFromModel(cfg.LLM, cfg.HTTP), logger.Named("review"))
	if err != nil {
		logger.Warn("LLM reviewer disabled", zap.Error(err))
		reviewer = nil
	}

	var local []byte
	if cfg.Mediator.LocalOntology != "" {
		local, err = os.ReadFile(cfg.Mediator.LocalOntology)
		if err != nil {
			return nil, fmt.Errorf("read local ontology: %w", err)
		}
	}

	limiter := worker.NewLimiter(cfg.RateLimiting.RequestsPerSecond, cfg.RateLimiting.BurstSize)

	return &Mediator{
		config:   cfg,
		aligner:  aligner,
		store:    st,
		fetcher:  NewFetcher(cfg.HTTP, limiter, cache.New(cfg.Cache), logger.Named("fetch")),
		reviewer: reviewer,
		local:    local,
		locks:    newKeyedMutex(),
		logger:   logger,
	}, nil
}

// Aligner returns the underlying aligner
func (m *Mediator) Aligner() *align.Aligner {
	return m.aligner
}

// Fetcher returns the fetcher used for remote services
func (m *Mediator) Fetcher() *Fetcher {
	return m.fetcher
}

// FetchAndAlign returns the alignment for serviceURL. A stored alignment is reused;
// otherwise the remote description is fetched, aligned against the local ontology and saved.
func (m *Mediator) FetchAndAlign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error) {
	return m.fetchAndAlign(ctx, serviceURL, method, false)
}

// Realign ignores any stored alignment and replaces it with a fresh one
func (m *Mediator) Realign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error) {
	return m.fetchAndAlign(ctx, serviceURL, method, true)
}

func (m *Mediator) fetchAndAlign(ctx context.Context, serviceURL string, method model.Method, force bool) (*model.ServiceAlignment, error) {
	serviceURL = strings.TrimSpace(serviceURL)
	if serviceURL == "" {
		return nil, fmt.Errorf("%w: service URL is required", model.ErrInvalidRequest)
	}
	id := store.ServiceID(serviceURL)

	unlock := m.locks.Lock(id)
	defer unlock()

	if !force {
		set, found, err := m.store.Load(id)
		if err != nil {
			return nil, err
		}
		if found {
			m.logger.Debug("reusing stored alignment", zap.String("service_id", id))
			return &model.ServiceAlignment{
				ServiceID:  id,
				ServiceURL: serviceURL,
				Status:     model.StatusOf(set),
				Alignments: set,
				Cached:     true,
			}, nil
		}
	}

	if m.local == nil {
		return nil, fmt.Errorf("%w: mediator.local_ontology is not set", model.ErrInvalidConfig)
	}

	doc, err := m.fetcher.FetchWithRetry(ctx, serviceURL)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", serviceURL, err)
	}
	if len(bytes.TrimSpace(doc.Body)) == 0 {
		return nil, fmt.Errorf("%w: empty response from %s", model.ErrMalformedOntology, serviceURL)
	}

	set, err := m.aligner.Align(ctx, m.local, doc.Body, method)
	if err != nil {
		return nil, err
	}
	if set == nil {
		set = model.AlignmentSet{}
	}

	if err := m.store.Save(id, set); err != nil {
		return nil, fmt.Errorf("save alignment: %w", err)
	}

	result := &model.ServiceAlignment{
		ServiceID:  id,
		ServiceURL: serviceURL,
		Status:     model.StatusOf(set),
		Alignments: set,
	}

	if result.Status == model.StatusNeedsConfirmation && m.reviewer.IsEnabled() {
		note, err := m.reviewer.Review(ctx, serviceURL, set)
		if err != nil {
			m.logger.Warn("review failed", zap.String("service_id", id), zap.Error(err))
		}
		result.Review = note
	}

	m.logger.Info("aligned service",
		zap.String("service_id", id),
		zap.String("method", string(method)),
		zap.Int("mappings", len(set)),
		zap.Int("pending", len(set.Pending())),
		zap.Bool("from_cache", doc.FromCache))

	return result, nil
}

// Get returns the stored alignment of a service id
func (m *Mediator) Get(ctx context.Context, serviceID string) (*model.ServiceAlignment, error) {
	set, err := m.load(serviceID)
	if err != nil {
		return nil, err
	}
	return &model.ServiceAlignment{
		ServiceID:  serviceID,
		Status:     model.StatusOf(set),
		Alignments: set,
		Cached:     true,
	}, nil
}

// Confirm records human-confirmed mappings. For every source URI in confirmed, the stored
// entries of that source are replaced by its confirmed entries at the position of the first
// one; sources with no stored entry are appended. Confirmed entries never need confirmation.
func (m *Mediator) Confirm(ctx context.Context, serviceID string, confirmed model.AlignmentSet) (*model.ServiceAlignment, error) {
	for i, c := range confirmed {
		if c.SourceURI == "" || c.TargetURI == "" {
			return nil, fmt.Errorf("%w: confirmed mapping %d needs source_uri and target_uri", model.ErrInvalidRequest, i)
		}
	}

	unlock := m.locks.Lock(serviceID)
	defer unlock()

	existing, err := m.load(serviceID)
	if err != nil {
		return nil, err
	}

	updated := applyConfirmations(existing, confirmed)
	if err := m.store.Save(serviceID, updated); err != nil {
		return nil, fmt.Errorf("save alignment: %w", err)
	}

	m.logger.Info("confirmed mappings",
		zap.String("service_id", serviceID),
		zap.Int("confirmed", len(confirmed)),
		zap.Int("pending", len(updated.Pending())))

	return &model.ServiceAlignment{
		ServiceID:  serviceID,
		Status:     model.StatusOf(updated),
		Alignments: updated,
	}, nil
}

func applyConfirmations(existing, confirmed model.AlignmentSet) model.AlignmentSet {
	pairs := make(map[model.MappingKey]model.CandidateMapping, len(existing))
	for _, e := range existing {
		if _, ok := pairs[e.Key()]; !ok {
			pairs[e.Key()] = e
		}
	}

	var order []string
	bySource := make(map[string]model.AlignmentSet)
	for _, c := range confirmed {
		// Zero fields inherit from the stored entry of the same pair
		if prev, ok := pairs[c.Key()]; ok {
			if c.Kind == "" {
				c.Kind = prev.Kind
			}
			if c.Confidence == 0 {
				c.Confidence = prev.Confidence
			}
		}
		if c.Kind == "" {
			c.Kind = model.KindUnknown
		}
		c.NeedsConfirmation = false

		if _, ok := bySource[c.SourceURI]; !ok {
			order = append(order, c.SourceURI)
		}
		bySource[c.SourceURI] = append(bySource[c.SourceURI], c)
	}

	out := make(model.AlignmentSet, 0, len(existing)+len(confirmed))
	emitted := make(map[string]bool, len(order))
	for _, e := range existing {
		group, ok := bySource[e.SourceURI]
		if !ok {
			out = append(out, e)
			continue
		}
		if !emitted[e.SourceURI] {
			out = append(out, group...)
			emitted[e.SourceURI] = true
		}
	}
	for _, src := range order {
		if !emitted[src] {
			out = append(out, bySource[src]...)
		}
	}
	return out
}

// Apply transforms payload keys through the stored alignment of serviceID
func (m *Mediator) Apply(ctx context.Context, payload map[string]any, serviceID string, dir model.Direction) (transform.Result, error) {
	set, err := m.load(serviceID)
	if err != nil {
		return transform.Result{}, err
	}
	return transform.Apply(payload, set, dir), nil
}

func (m *Mediator) load(serviceID string) (model.AlignmentSet, error) {
	set, found, err := m.store.Load(serviceID)
	if err != nil {
		if errors.Is(err, store.ErrInvalidID) {
			return nil, fmt.Errorf("%w: %v", model.ErrNotFound, err)
		}
		return nil, err
	}
	if !found {
		return nil, fmt.Errorf("%w: service %s", model.ErrNotFound, serviceID)
	}
	return set, nil
}

// Batch aligns many services through the worker pool
func (m *Mediator) Batch(ctx context.Context, urls []string, method model.Method) []*worker.AlignResult {
	return worker.NewBatchProcessor(m, m.config.Concurrency.Workers, method).ProcessURLs(ctx, urls)
}
