package cli

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontobridge/internal/llm"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/pipeline"
	"github.com/ppiankov/ontobridge/internal/util"
)

var (
	fetchMethod   string
	fetchRefresh  bool
	fetchReviewMD string
	applyReverse  bool
	bookURL       string
	bookRequest   string
	bookResult    string
	opTimeout     time.Duration
)

var fetchCmd = &cobra.Command{
	Use:   "fetch <service-url>",
	Short: "Fetch a service ontology and align it with the local ontology",
	Long: `Fetch downloads the ontology published at a service URL and aligns it
with mediator.local_ontology. A stored alignment for the service is reused
unless --refresh is given.

Example:
  ontobridge fetch http://cottages.example/ontology
  ontobridge fetch http://cottages.example/ontology --refresh --review-md review.md`,
	Args: cobra.ExactArgs(1),
	RunE: runFetch,
}

var confirmCmd = &cobra.Command{
	Use:   "confirm <service-id|service-url> <mappings.json>",
	Short: "Record human-confirmed mappings for a service",
	Long: `Confirm reads a JSON list of mappings ({source_uri, target_uri, ...})
and stores them as confirmed. All stored mappings of a confirmed source are
replaced by the confirmed ones.`,
	Args: cobra.ExactArgs(2),
	RunE: runConfirm,
}

var applyCmd = &cobra.Command{
	Use:   "apply <service-id|service-url> <payload.json>",
	Short: "Translate a JSON payload through a stored alignment",
	Args:  cobra.ExactArgs(2),
	RunE:  runApply,
}

var bookCmd = &cobra.Command{
	Use:   "book <service-url> <payload.json>",
	Short: "Send a request in the client vocabulary and translate the response back",
	Long: `Book translates the payload into the service vocabulary, posts it as an
N-Triples request graph, and translates every record of the RDF response back
into the client vocabulary.

Example:
  ontobridge book http://cottages.example/ontology request.json \
    --book-url http://cottages.example/book --result-type CottageSuggestion`,
	Args: cobra.ExactArgs(2),
	RunE: runBook,
}

func init() {
	rootCmd.AddCommand(fetchCmd, confirmCmd, applyCmd, bookCmd)

	fetchCmd.Flags().StringVar(&fetchMethod, "method", "", "alignment method: custom, api, combined, seed (default from config)")
	fetchCmd.Flags().BoolVar(&fetchRefresh, "refresh", false, "ignore the stored alignment and realign")
	fetchCmd.Flags().StringVar(&fetchReviewMD, "review-md", "", "write LLM review notes as Markdown to this path")

	applyCmd.Flags().BoolVar(&applyReverse, "reverse", false, "translate from the service vocabulary back to the client vocabulary")

	bookCmd.Flags().StringVar(&bookURL, "book-url", "", "endpoint receiving the request (default: the service URL)")
	bookCmd.Flags().StringVar(&bookRequest, "request-type", "", "client class of the request node (default: Booking)")
	bookCmd.Flags().StringVar(&bookResult, "result-type", "", "keep only response records of this client class")

	for _, c := range []*cobra.Command{fetchCmd, confirmCmd, applyCmd, bookCmd} {
		c.Flags().DurationVar(&opTimeout, "timeout", 2*time.Minute, "overall timeout")
	}
}

func newMediator() (*pipeline.Mediator, *model.Config, func(), error) {
	cfg, logger, err := setup()
	if err != nil {
		return nil, nil, nil, err
	}
	m, err := pipeline.NewMediator(cfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	return m, cfg, func() { _ = logger.Sync() }, nil
}

func runFetch(cmd *cobra.Command, args []string) error {
	m, cfg, done, err := newMediator()
	if err != nil {
		return err
	}
	defer done()

	method, err := resolveMethod(cfg, fetchMethod)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	align := m.FetchAndAlign
	if fetchRefresh {
		align = m.Realign
	}
	result, err := align(ctx, args[0], method)
	if err != nil {
		return fmt.Errorf("fetch failed: %w", err)
	}

	fmt.Fprintf(os.Stderr, "✓ Service %s: %s (%d mappings, %d pending)\n",
		result.ServiceID, result.Status, len(result.Alignments), len(result.Alignments.Pending()))

	if fetchReviewMD != "" && result.Review != nil {
		if err := util.WriteFileAtomic(fetchReviewMD, []byte(llm.RenderMarkdown(result.Review)), 0o644); err != nil {
			return err
		}
		fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", fetchReviewMD)
	}

	return emitJSON(result, "")
}

func runConfirm(cmd *cobra.Command, args []string) error {
	var confirmed model.AlignmentSet
	if err := readJSONFile(args[1], &confirmed); err != nil {
		return err
	}

	m, _, done, err := newMediator()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := m.Confirm(ctx, resolveServiceID(args[0]), confirmed)
	if err != nil {
		return fmt.Errorf("confirm failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ Service %s: %s\n", result.ServiceID, result.Status)
	return emitJSON(result, "")
}

func runApply(cmd *cobra.Command, args []string) error {
	var payload map[string]any
	if err := readJSONFile(args[1], &payload); err != nil {
		return err
	}

	m, _, done, err := newMediator()
	if err != nil {
		return err
	}
	defer done()

	dir := model.Forward
	if applyReverse {
		dir = model.Reverse
	}

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := m.Apply(ctx, payload, resolveServiceID(args[0]), dir)
	if err != nil {
		return fmt.Errorf("apply failed: %w", err)
	}
	if len(result.Collisions) > 0 {
		fmt.Fprintf(os.Stderr, "⚠️  Dropped colliding keys: %v\n", result.Collisions)
	}
	return emitJSON(result, "")
}

func runBook(cmd *cobra.Command, args []string) error {
	var payload map[string]any
	if err := readJSONFile(args[1], &payload); err != nil {
		return err
	}

	m, _, done, err := newMediator()
	if err != nil {
		return err
	}
	defer done()

	ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
	defer cancel()

	result, err := m.Book(ctx, pipeline.BookRequest{
		ServiceURL:  args[0],
		BookURL:     bookURL,
		Payload:     payload,
		RequestType: bookRequest,
		ResultType:  bookResult,
	})
	if err != nil {
		return fmt.Errorf("book failed: %w", err)
	}
	fmt.Fprintf(os.Stderr, "✓ %d records\n", len(result.Records))
	return emitJSON(result, "")
}
