package worker

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/ppiankov/ontobridge/internal/model"
)

// ServiceAligner fetches a remote service description and aligns it with the local ontology
type ServiceAligner interface {
	FetchAndAlign(ctx context.Context, serviceURL string, method model.Method) (*model.ServiceAlignment, error)
}

// AlignJob aligns one service
type AlignJob struct {
	Index   int
	URL     string
	Method  model.Method
	Aligner ServiceAligner
}

// Execute executes the align job
func (j *AlignJob) Execute(ctx context.Context) Result {
	alignment, err := j.Aligner.FetchAndAlign(ctx, j.URL, j.Method)
	if err != nil {
		return &AlignResult{Index: j.Index, URL: j.URL, Error: err}
	}
	return &AlignResult{Index: j.Index, URL: j.URL, Alignment: alignment}
}

// AlignResult is the outcome of one AlignJob
type AlignResult struct {
	Index     int
	URL       string
	Alignment *model.ServiceAlignment
	Error     error
}

// GetError returns the error from the align result
func (r *AlignResult) GetError() error {
	return r.Error
}

// BatchProcessor aligns many services concurrently
type BatchProcessor struct {
	aligner     ServiceAligner
	concurrency int
	method      model.Method
}

// NewBatchProcessor creates a new batch processor
func NewBatchProcessor(aligner ServiceAligner, concurrency int, method model.Method) *BatchProcessor {
	return &BatchProcessor{
		aligner:     aligner,
		concurrency: concurrency,
		method:      method,
	}
}

// ProcessURLs aligns every URL and returns the results in input order
func (b *BatchProcessor) ProcessURLs(ctx context.Context, urls []string) []*AlignResult {
	if len(urls) == 0 {
		return []*AlignResult{}
	}

	pool := NewPoolWithContext(ctx, b.concurrency)
	pool.Start()

	for i, u := range urls {
		pool.Submit(&AlignJob{
			Index:   i,
			URL:     u,
			Method:  b.method,
			Aligner: b.aligner,
		})
	}

	results := pool.Wait()

	out := make([]*AlignResult, 0, len(results))
	for _, result := range results {
		out = append(out, result.(*AlignResult))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })

	return out
}

// ProcessFile reads URLs from a file and aligns them concurrently
func (b *BatchProcessor) ProcessFile(ctx context.Context, filePath string) ([]*AlignResult, error) {
	urls, err := ReadURLsFromFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("read URLs: %w", err)
	}

	return b.ProcessURLs(ctx, urls), nil
}

// ReadURLsFromFile reads service URLs from a file, one per line.
// Blank lines and '#' comments are skipped and duplicates dropped.
func ReadURLsFromFile(filePath string) ([]string, error) {
	file, err := os.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}
	defer func() { _ = file.Close() }()

	var urls []string
	seen := make(map[string]bool)

	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		if !seen[line] {
			seen[line] = true
			urls = append(urls, line)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan file: %w", err)
	}

	return urls, nil
}

// Summary counts the outcomes of a batch
func Summary(results []*AlignResult) (aligned, pending, failed int) {
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
		case r.Alignment != nil && r.Alignment.Status == model.StatusNeedsConfirmation:
			pending++
		default:
			aligned++
		}
	}
	return aligned, pending, failed
}
