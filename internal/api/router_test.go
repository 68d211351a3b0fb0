package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/pipeline"
	"github.com/ppiankov/ontobridge/internal/transform"
)

type fakeMediator struct {
	err        error
	lastMethod model.Method
	realigned  bool
	lastID     string
	lastDir    model.Direction
	confirmed  model.AlignmentSet
	booked     pipeline.BookRequest
}

func (f *fakeMediator) alignment(id string) *model.ServiceAlignment {
	set := model.AlignmentSet{model.NewMapping("http://c#a", "http://p#b", 0.4, model.KindProperty, 0.7)}
	return &model.ServiceAlignment{ServiceID: id, Status: model.StatusOf(set), Alignments: set}
}

func (f *fakeMediator) FetchAndAlign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error) {
	f.lastMethod = method
	if f.err != nil {
		return nil, f.err
	}
	return f.alignment("svc"), nil
}

func (f *fakeMediator) Realign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error) {
	f.realigned = true
	return f.FetchAndAlign(ctx, serviceURL, method)
}

func (f *fakeMediator) Get(ctx context.Context, serviceID string) (*model.ServiceAlignment, error) {
	f.lastID = serviceID
	if f.err != nil {
		return nil, f.err
	}
	return f.alignment(serviceID), nil
}

func (f *fakeMediator) Confirm(ctx context.Context, serviceID string, confirmed model.AlignmentSet) (*model.ServiceAlignment, error) {
	f.lastID = serviceID
	f.confirmed = confirmed
	if f.err != nil {
		return nil, f.err
	}
	return &model.ServiceAlignment{ServiceID: serviceID, Status: model.StatusAligned, Alignments: confirmed}, nil
}

func (f *fakeMediator) Apply(ctx context.Context, payload map[string]any, serviceID string, dir model.Direction) (transform.Result, error) {
	f.lastID = serviceID
	f.lastDir = dir
	if f.err != nil {
		return transform.Result{}, f.err
	}
	return transform.Result{Payload: payload}, nil
}

func (f *fakeMediator) Book(ctx context.Context, req pipeline.BookRequest) (*pipeline.BookResult, error) {
	f.booked = req
	if f.err != nil {
		return nil, f.err
	}
	return &pipeline.BookResult{ServiceID: "svc", Records: []pipeline.BookRecord{{ID: "urn:x", Payload: map[string]any{"cottageName": "Lakeside"}}}}, nil
}

func newTestServer(t *testing.T, svc *fakeMediator) *httptest.Server {
	t.Helper()
	cfg := model.DefaultConfig()
	cfg.Alignment.Method = "custom"
	cfg.Server.RateLimitRPS = 0
	server := httptest.NewServer(NewRouter(svc, cfg, zap.NewNop()))
	t.Cleanup(server.Close)
	return server
}

func do(t *testing.T, method, url, body string) (*http.Response, map[string]any) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	require.NoError(t, err)
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()

	var out map[string]any
	_ = json.NewDecoder(resp.Body).Decode(&out)
	return resp, out
}

func TestHealth(t *testing.T) {
	server := newTestServer(t, &fakeMediator{})

	resp, body := do(t, http.MethodGet, server.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "ok", body["status"])
	assert.NotEmpty(t, resp.Header.Get("X-Request-ID"))
}

func TestRequestIDEchoed(t *testing.T) {
	server := newTestServer(t, &fakeMediator{})

	req, err := http.NewRequest(http.MethodGet, server.URL+"/health", nil)
	require.NoError(t, err)
	req.Header.Set("X-Request-ID", "abc-123")
	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	_ = resp.Body.Close()
	assert.Equal(t, "abc-123", resp.Header.Get("X-Request-ID"))
}

func TestCreateAlignment(t *testing.T) {
	svc := &fakeMediator{}
	server := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, server.URL+"/v1/alignments", `{"service_url":"http://cottages.example"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "needs_confirmation", body["status"])
	assert.Equal(t, model.MethodCustom, svc.lastMethod, "configured default method")
	assert.False(t, svc.realigned)

	resp, _ = do(t, http.MethodPost, server.URL+"/v1/alignments", `{"service_url":"http://cottages.example","method":"api","refresh":true}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.MethodAPI, svc.lastMethod)
	assert.True(t, svc.realigned)
}

func TestCreateAlignment_BadRequests(t *testing.T) {
	server := newTestServer(t, &fakeMediator{})

	tests := []struct {
		name string
		body string
	}{
		{"not json", `{`},
		{"missing url", `{"method":"custom"}`},
		{"unknown method", `{"service_url":"http://x","method":"magic"}`},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, body := do(t, http.MethodPost, server.URL+"/v1/alignments", tt.body)
			assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
			assert.NotEmpty(t, body["error"])
		})
	}
}

func TestErrorStatusMapping(t *testing.T) {
	tests := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: service x", model.ErrNotFound), http.StatusNotFound},
		{fmt.Errorf("wrap: %w", model.ErrMalformedOntology), http.StatusUnprocessableEntity},
		{fmt.Errorf("%w: bad", model.ErrInvalidRequest), http.StatusBadRequest},
		{errors.New("disk on fire"), http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(tt.err.Error(), func(t *testing.T) {
			server := newTestServer(t, &fakeMediator{err: tt.err})
			resp, body := do(t, http.MethodGet, server.URL+"/v1/alignments/abc", "")
			assert.Equal(t, tt.status, resp.StatusCode)
			assert.Equal(t, tt.err.Error(), body["error"])
		})
	}
}

func TestGetAlignment(t *testing.T) {
	svc := &fakeMediator{}
	server := newTestServer(t, svc)

	resp, body := do(t, http.MethodGet, server.URL+"/v1/alignments/abc123", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "abc123", svc.lastID)
	assert.Equal(t, "abc123", body["service_id"])
	assert.Len(t, body["alignments"], 1)
}

func TestConfirm(t *testing.T) {
	svc := &fakeMediator{}
	server := newTestServer(t, svc)

	resp, _ := do(t, http.MethodPost, server.URL+"/v1/alignments/abc/confirm", `{"alignments":[]}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, server.URL+"/v1/alignments/abc/confirm",
		`{"alignments":[{"source_uri":"http://c#a","target_uri":"http://p#b","confidence":0.9,"type":"property"}]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "aligned", body["status"])
	require.Len(t, svc.confirmed, 1)
	assert.Equal(t, "http://c#a", svc.confirmed[0].SourceURI)
	assert.Equal(t, model.KindProperty, svc.confirmed[0].Kind)
}

func TestApply(t *testing.T) {
	svc := &fakeMediator{}
	server := newTestServer(t, svc)

	resp, _ := do(t, http.MethodPost, server.URL+"/v1/alignments/abc/apply", `{"payload":{"a":1},"direction":"sideways"}`)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body := do(t, http.MethodPost, server.URL+"/v1/alignments/abc/apply", `{"payload":{"a":1},"direction":"reverse"}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, model.Reverse, svc.lastDir)
	assert.Equal(t, map[string]any{"a": float64(1)}, body["payload"])
}

func TestBook(t *testing.T) {
	svc := &fakeMediator{}
	server := newTestServer(t, svc)

	resp, body := do(t, http.MethodPost, server.URL+"/v1/book",
		`{"service_url":"http://cottages.example","book_url":"http://cottages.example/book","payload":{"numberOfPeople":4}}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, "http://cottages.example/book", svc.booked.BookURL)
	assert.Equal(t, float64(4), svc.booked.Payload["numberOfPeople"])
	assert.Len(t, body["records"], 1)
}

func TestRateLimit(t *testing.T) {
	cfg := model.DefaultConfig()
	cfg.Server.RateLimitRPS = 0.001
	cfg.Server.RateLimitBurst = 1
	server := httptest.NewServer(NewRouter(&fakeMediator{}, cfg, nil))
	defer server.Close()

	resp, _ := do(t, http.MethodGet, server.URL+"/health", "")
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, body := do(t, http.MethodGet, server.URL+"/health", "")
	assert.Equal(t, http.StatusTooManyRequests, resp.StatusCode)
	assert.Equal(t, "rate limit exceeded", body["error"])
}

func TestServe_StopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() {
		done <- Serve(ctx, "127.0.0.1:0", http.NotFoundHandler(), zap.NewNop())
	}()
	cancel()
	assert.NoError(t, <-done)
}
