package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/ppiankov/ontobridge/internal/api"
	"github.com/ppiankov/ontobridge/internal/pipeline"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve exposes the mediator over HTTP:

  POST /v1/alignments                        fetch and align a service
  GET  /v1/alignments/{serviceID}            stored alignment
  POST /v1/alignments/{serviceID}/confirm    confirm mappings
  POST /v1/alignments/{serviceID}/apply      translate a payload
  POST /v1/book                              booking round trip
  GET  /health`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
	serveCmd.Flags().String("addr", "", "listen address (default from server.addr)")
	_ = viper.BindPFlag("server.addr", serveCmd.Flags().Lookup("addr"))
}

func runServe(cmd *cobra.Command, args []string) error {
	cfg, logger, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	m, err := pipeline.NewMediator(cfg, logger)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	fmt.Fprintf(os.Stderr, "Listening on %s\n", cfg.Server.Addr)
	return api.Serve(ctx, cfg.Server.Addr, api.NewRouter(m, cfg, logger.Named("api")), logger)
}
