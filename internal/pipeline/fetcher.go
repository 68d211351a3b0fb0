package pipeline

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/ontobridge/internal/cache"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/util"
	"github.com/ppiankov/ontobridge/internal/worker"
)

// ErrDisallowed is returned when robots.txt forbids fetching a service description
var ErrDisallowed = errors.New("disallowed by robots.txt")

const (
	maxFetchAttempts = 3
	rdfAccept        = "text/turtle, application/rdf+xml;q=0.9, application/n-triples;q=0.8, */*;q=0.1"
)

// fetchSleepFunc waits between retries; tests replace it
var fetchSleepFunc = time.Sleep

// StatusError is a non-2xx HTTP response
type StatusError struct {
	Code   int
	Status string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status: %d %s", e.Code, e.Status)
}

// Fetcher retrieves RDF documents from remote services
type Fetcher struct {
	httpClient *http.Client
	userAgent  string
	maxBytes   int64
	robots     *util.RobotsChecker // nil when robots.txt is ignored
	limiter    *worker.Limiter
	docs       cache.Cache
	logger     *zap.Logger

	mu      sync.Mutex
	delayed map[string]bool // hosts whose crawl delay was applied to the limiter
}

// NewFetcher creates a fetcher. limiter and docs may be nil.
func NewFetcher(cfg model.HTTPConfig, limiter *worker.Limiter, docs cache.Cache, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if limiter == nil {
		limiter = worker.NewLimiter(0, 1)
	}
	if docs == nil {
		docs = cache.NopCache{}
	}

	client := &http.Client{
		Timeout: cfg.Timeout,
		Transport: &http.Transport{
			Proxy: util.NewProxyFunc(cfg),
		},
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) >= 3 {
				return fmt.Errorf("stopped after 3 redirects")
			}
			return nil
		},
	}

	f := &Fetcher{
		httpClient: client,
		userAgent:  cfg.UserAgent,
		maxBytes:   cfg.MaxBodyBytes,
		limiter:    limiter,
		docs:       docs,
		logger:     logger,
		delayed:    make(map[string]bool),
	}
	if cfg.RespectRobots {
		f.robots = util.NewRobotsChecker(client, cfg.UserAgent, logger.Named("robots"))
	}
	return f
}

// FetchResult is a fetched RDF document
type FetchResult struct {
	Body        []byte
	ContentType string
	FinalURL    string
	StatusCode  int
	FromCache   bool
}

// Fetch performs one GET of rawURL
func (f *Fetcher) Fetch(ctx context.Context, rawURL string) (*FetchResult, error) {
	if err := f.checkRobots(ctx, rawURL); err != nil {
		return nil, err
	}
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", rdfAccept)

	return f.do(req)
}

// FetchWithRetry serves rawURL from the document cache or fetches it,
// retrying transient failures with exponential backoff.
func (f *Fetcher) FetchWithRetry(ctx context.Context, rawURL string) (*FetchResult, error) {
	key := cache.DocumentKey(rawURL)
	if data, ok := f.docs.Get(key); ok {
		doc, err := cache.DecodeDocument(data)
		if err == nil {
			f.logger.Debug("document cache hit", zap.String("url", rawURL))
			return &FetchResult{
				Body:        doc.Body,
				ContentType: doc.ContentType,
				FinalURL:    doc.FinalURL,
				StatusCode:  http.StatusOK,
				FromCache:   true,
			}, nil
		}
		_ = f.docs.Delete(key)
	}

	var lastErr error
	for attempt := 0; attempt < maxFetchAttempts; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(1<<(attempt-1)) * 500 * time.Millisecond
			f.logger.Debug("retrying fetch", zap.String("url", rawURL), zap.Int("attempt", attempt+1), zap.Error(lastErr))
			fetchSleepFunc(backoff)
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
		}

		result, err := f.Fetch(ctx, rawURL)
		if err == nil {
			f.store(key, rawURL, result)
			return result, nil
		}
		lastErr = err
		if !isRetryableFetchError(err) {
			return nil, err
		}
	}

	return nil, lastErr
}

// Post sends body to rawURL and returns the response document. It is never retried.
func (f *Fetcher) Post(ctx context.Context, rawURL, contentType string, body []byte) (*FetchResult, error) {
	if err := f.limiter.Wait(ctx, rawURL); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, rawURL, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", contentType)
	req.Header.Set("Accept", rdfAccept)

	return f.do(req)
}

func (f *Fetcher) do(req *http.Request) (*FetchResult, error) {
	req.Header.Set("User-Agent", f.userAgent)

	resp, err := f.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Code: resp.StatusCode, Status: http.StatusText(resp.StatusCode)}
	}

	reader := io.Reader(resp.Body)
	if f.maxBytes > 0 {
		reader = io.LimitReader(resp.Body, f.maxBytes+1)
	}
	body, err := io.ReadAll(reader)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if f.maxBytes > 0 && int64(len(body)) > f.maxBytes {
		return nil, fmt.Errorf("read body: response exceeds %d bytes", f.maxBytes)
	}

	return &FetchResult{
		Body:        body,
		ContentType: resp.Header.Get("Content-Type"),
		FinalURL:    resp.Request.URL.String(),
		StatusCode:  resp.StatusCode,
	}, nil
}

func (f *Fetcher) checkRobots(ctx context.Context, rawURL string) error {
	if f.robots == nil {
		return nil
	}
	allowed, delay, err := f.robots.CanFetch(ctx, rawURL)
	if err != nil {
		return fmt.Errorf("robots: %w", err)
	}
	if !allowed {
		return fmt.Errorf("%w: %s", ErrDisallowed, rawURL)
	}
	if delay > 0 {
		f.applyCrawlDelay(rawURL, delay)
	}
	return nil
}

// applyCrawlDelay slows the host's limiter down to the robots.txt crawl delay, once per host
func (f *Fetcher) applyCrawlDelay(rawURL string, delay time.Duration) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.delayed[u.Host] {
		return
	}
	f.delayed[u.Host] = true
	f.limiter.SetDomainRate(u.Host, 1/delay.Seconds(), 1)
	f.logger.Debug("applied crawl delay", zap.String("host", u.Host), zap.Duration("delay", delay))
}

func (f *Fetcher) store(key, rawURL string, result *FetchResult) {
	data, err := cache.EncodeDocument(&cache.Document{
		URL:         rawURL,
		FinalURL:    result.FinalURL,
		ContentType: result.ContentType,
		Body:        result.Body,
		FetchedAt:   time.Now().UTC(),
	})
	if err != nil {
		return
	}
	if err := f.docs.Set(key, data, 0); err != nil {
		f.logger.Warn("document cache write failed", zap.String("url", rawURL), zap.Error(err))
	}
}

// isRetryableFetchError reports whether err is worth another attempt:
// 429, 5xx, and transport failures that are not cancellations.
func isRetryableFetchError(err error) bool {
	if err == nil {
		return false
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Code == http.StatusTooManyRequests || statusErr.Code >= 500
	}

	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}

	var urlErr *url.Error
	return errors.As(err, &urlErr)
}
