package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ppiankov/ontobridge/internal/align"
	"github.com/ppiankov/ontobridge/internal/model"
	"github.com/ppiankov/ontobridge/internal/util"
)

var (
	alignMethod  string
	alignOut     string
	alignExplain bool
	alignTimeout time.Duration
)

var alignCmd = &cobra.Command{
	Use:   "align <source-ontology> <target-ontology>",
	Short: "Align two local ontology files",
	Long: `Align reads two RDF documents (Turtle, RDF/XML or N-Triples),
extracts their classes and datatype properties, and proposes mappings
between them. Mappings below the confidence threshold are flagged for
human confirmation.

Example:
  ontobridge align client.ttl provider.rdf
  ontobridge align client.ttl provider.rdf --method custom --explain
  ontobridge align client.ttl provider.rdf --out alignment.json`,
	Args: cobra.ExactArgs(2),
	RunE: runAlign,
}

func init() {
	rootCmd.AddCommand(alignCmd)

	alignCmd.Flags().StringVar(&alignMethod, "method", "", "alignment method: custom, api, combined, seed (default from config)")
	alignCmd.Flags().StringVar(&alignOut, "out", "", "write the alignment JSON to this path instead of stdout")
	alignCmd.Flags().BoolVar(&alignExplain, "explain", false, "include the per-metric score breakdown of every mapping")
	alignCmd.Flags().DurationVar(&alignTimeout, "timeout", 2*time.Minute, "overall timeout")
}

func runAlign(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	method, err := resolveMethod(cfg, alignMethod)
	if err != nil {
		return err
	}

	source, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("read source ontology: %w", err)
	}
	target, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read target ontology: %w", err)
	}

	aligner, err := align.New(cfg, logger.Named("align"))
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), alignTimeout)
	defer cancel()

	if verbose {
		fmt.Fprintf(os.Stderr, "⚙️  Aligning %s -> %s (method: %s)\n", args[0], args[1], method)
	}

	set, err := aligner.Align(ctx, source, target, method)
	if err != nil {
		return fmt.Errorf("align failed: %w", err)
	}

	var out any = set
	if alignExplain {
		ex, err := aligner.Explain(source, target, set)
		if err != nil {
			return fmt.Errorf("explain failed: %w", err)
		}
		out = ex
	}

	if verbose {
		fmt.Fprintf(os.Stderr, "✓ %d mappings, %d need confirmation\n", len(set), len(set.Pending()))
	}

	return emitJSON(out, alignOut)
}

// resolveMethod prefers the flag over alignment.method
func resolveMethod(cfg *model.Config, flag string) (model.Method, error) {
	if flag != "" {
		return model.ParseMethod(flag)
	}
	return model.ParseMethod(cfg.Alignment.Method)
}

// emitJSON prints v to stdout, or writes it atomically to path
func emitJSON(v any, path string) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	data = append(data, '\n')

	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	if err := util.WriteFileAtomic(path, data, 0o644); err != nil {
		return err
	}
	fmt.Fprintf(os.Stderr, "✓ Wrote %s\n", path)
	return nil
}

// readJSONFile decodes a JSON file into v
func readJSONFile(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode %s: %w", path, err)
	}
	return nil
}
