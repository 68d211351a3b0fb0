package cli

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/ontobridge/internal/pipeline"
	"github.com/ppiankov/ontobridge/internal/worker"
)

var (
	batchMethod  string
	outputDir    string
	batchTimeout time.Duration
)

var batchCmd = &cobra.Command{
	Use:   "batch <file>",
	Short: "Align many services from a file in parallel",
	Long: `Batch aligns every service URL listed in a file (one per line, '#' starts
a comment) against the local ontology. Stored alignments are reused.

Example:
  ontobridge batch services.txt
  ontobridge batch services.txt --concurrency 8 --output-dir ./alignments-report`,
	Args: cobra.ExactArgs(1),
	RunE: runBatch,
}

func init() {
	rootCmd.AddCommand(batchCmd)

	batchCmd.Flags().Int("concurrency", 0, "number of concurrent workers (default from concurrency.workers)")
	batchCmd.Flags().StringVar(&batchMethod, "method", "", "alignment method: custom, api, combined, seed (default from config)")
	batchCmd.Flags().StringVar(&outputDir, "output-dir", "", "also write each service alignment to this directory")
	batchCmd.Flags().DurationVar(&batchTimeout, "timeout", 10*time.Minute, "total timeout for batch processing")

	_ = viper.BindPFlag("concurrency.workers", batchCmd.Flags().Lookup("concurrency"))
}

func runBatch(cmd *cobra.Command, args []string) error {
	file := args[0]

	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	method, err := resolveMethod(cfg, batchMethod)
	if err != nil {
		return err
	}

	m, err := pipeline.NewMediator(cfg, logger)
	if err != nil {
		return err
	}

	urls, err := worker.ReadURLsFromFile(file)
	if err != nil {
		return fmt.Errorf("process file: %w", err)
	}

	if outputDir != "" {
		if err := os.MkdirAll(outputDir, 0o755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), batchTimeout)
	defer cancel()

	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Input file:   %s\n", file)
	fmt.Fprintf(os.Stderr, "  Services:     %d\n", len(urls))
	fmt.Fprintf(os.Stderr, "  Workers:      %d\n", cfg.Concurrency.Workers)
	fmt.Fprintf(os.Stderr, "  Method:       %s\n", method)
	fmt.Fprintf(os.Stderr, "\n")

	results := m.Batch(ctx, urls, method)

	for _, result := range results {
		if result.Error != nil {
			fmt.Fprintf(os.Stderr, "✗ %s: %v\n", result.URL, result.Error)
			continue
		}

		a := result.Alignment
		fmt.Fprintf(os.Stderr, "✓ %s (%s, %d mappings)\n", result.URL, a.Status, len(a.Alignments))

		if outputDir != "" {
			path := filepath.Join(outputDir, a.ServiceID+".json")
			if err := emitJSON(a, path); err != nil {
				fmt.Fprintf(os.Stderr, "✗ %s: failed to write JSON: %v\n", result.URL, err)
			}
		}
	}

	aligned, pending, failed := worker.Summary(results)
	fmt.Fprintf(os.Stderr, "\n")
	fmt.Fprintf(os.Stderr, "  Total:              %d\n", len(results))
	fmt.Fprintf(os.Stderr, "  Aligned:            %d\n", aligned)
	fmt.Fprintf(os.Stderr, "  Needs confirmation: %d\n", pending)
	fmt.Fprintf(os.Stderr, "  Failures:           %d\n", failed)
	fmt.Fprintf(os.Stderr, "\n")

	if failed > 0 {
		return fmt.Errorf("%d of %d services failed", failed, len(results))
	}
	return nil
}
