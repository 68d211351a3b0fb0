package pipeline

import (
	"bytes"
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/ontology"
	"github.com/ppiankov/ontobridge/internal/store"
	"github.com/ppiankov/ontobridge/internal/transform"
)

const (
	defaultRequestType = "Booking"
	nTriplesType       = "application/n-triples"
)

// BookRequest asks a remote service for offers using the client's own vocabulary
type BookRequest struct {
	ServiceURL  string         `json:"service_url"`           // Service whose alignment translates the payload
	BookURL     string         `json:"book_url"`              // Endpoint receiving the request graph; defaults to ServiceURL
	Payload     map[string]any `json:"payload"`               // Client-side field names
	RequestType string         `json:"request_type,omitempty"` // Client class of the request node, default Booking
	ResultType  string         `json:"result_type,omitempty"`  // Keep only response records of this client class
}

// BookRecord is one response resource translated back into the client vocabulary
type BookRecord struct {
	ID       string         `json:"id"`
	Types    []string       `json:"types,omitempty"`
	Payload  map[string]any `json:"payload"`
	Unmapped []string       `json:"unmapped,omitempty"`
}

// BookResult is the outcome of a booking round trip
type BookResult struct {
	ServiceID string           `json:"service_id"`
	Request   transform.Result `json:"request"`
	Records   []BookRecord     `json:"records"`
}

// Book translates the payload into the provider vocabulary, posts it as an
// N-Triples request graph and translates the response records back.
// The service must already have a stored alignment.
func (m *Mediator) Book(ctx context.Context, req BookRequest) (*BookResult, error) {
	if strings.TrimSpace(req.ServiceURL) == "" {
		return nil, fmt.Errorf("%w: service_url is required", model.ErrInvalidRequest)
	}
	if len(req.Payload) == 0 {
		return nil, fmt.Errorf("%w: payload is empty", model.ErrInvalidRequest)
	}
	bookURL := req.BookURL
	if bookURL == "" {
		bookURL = req.ServiceURL
	}

	id := store.ServiceID(req.ServiceURL)
	set, err := m.load(id)
	if err != nil {
		return nil, err
	}

	forward := transform.Apply(req.Payload, set, model.Forward)

	requestType := req.RequestType
	if requestType == "" {
		requestType = defaultRequestType
	}
	namespace := targetNamespace(set, m.config.Mediator.Namespace)
	typeIRI := mappedClass(set, requestType, model.Forward)
	if typeIRI == "" && namespace != "" {
		typeIRI = namespace + requestType
	}

	graph, err := ontology.RequestGraph(forward.Payload, typeIRI, namespace)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", model.ErrInvalidRequest, err)
	}
	var body bytes.Buffer
	if err := ontology.WriteNTriples(&body, graph); err != nil {
		return nil, fmt.Errorf("encode request: %w", err)
	}

	resp, err := m.fetcher.Post(ctx, bookURL, nTriplesType, body.Bytes())
	if err != nil {
		return nil, fmt.Errorf("book %s: %w", bookURL, err)
	}

	respGraph, err := ontology.ParseBytes(resp.Body, resp.ContentType)
	if err != nil {
		return nil, fmt.Errorf("book response: %w", err)
	}

	resultType := ""
	if req.ResultType != "" {
		resultType = model.LocalName(mappedClass(set, req.ResultType, model.Forward))
		if resultType == "" {
			resultType = req.ResultType
		}
	}

	result := &BookResult{ServiceID: id, Request: forward, Records: []BookRecord{}}
	for _, rec := range ontology.Records(respGraph) {
		if resultType != "" && !rec.HasType(resultType) {
			continue
		}
		back := transform.Apply(rec.Payload(), set, model.Reverse)
		result.Records = append(result.Records, BookRecord{
			ID:       rec.ID,
			Types:    rec.Types,
			Payload:  back.Payload,
			Unmapped: back.Unmapped,
		})
	}

	m.logger.Info("booking round trip",
		zap.String("service_id", id),
		zap.String("book_url", bookURL),
		zap.Int("request_fields", len(forward.Payload)),
		zap.Int("records", len(result.Records)))

	return result, nil
}

// mappedClass returns the counterpart of class name, or "". Confirmed mappings win,
// then higher confidence, as in transform.Apply.
func mappedClass(set model.AlignmentSet, name string, dir model.Direction) string {
	to, _ := transform.Resolve(set, name, dir, model.KindClass)
	return to
}

// targetNamespace picks the most common target namespace of set; ties go to the first seen
func targetNamespace(set model.AlignmentSet, fallback string) string {
	counts := make(map[string]int)
	var order []string
	for _, c := range set {
		ns := model.Namespace(c.TargetURI)
		if ns == "" {
			continue
		}
		if counts[ns] == 0 {
			order = append(order, ns)
		}
		counts[ns]++
	}

	best := ""
	for _, ns := range order {
		if counts[ns] > counts[best] {
			best = ns
		}
	}
	if best == "" {
		return fallback
	}
	return best
}
