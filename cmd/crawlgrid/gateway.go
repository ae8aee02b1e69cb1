package main

import (
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/gateway"
)

// gatewayCmd creates the "gateway" subcommand.
func gatewayCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "gateway",
		Short: "Run the browser-facing gateway",
		Long:  "Run the gateway: serve the monitoring page and forward crawl submissions, searches and status polls to the Control Service.",
		RunE:  runGateway,
	}
}

func runGateway(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	if controlURL != "" {
		cfg.Gateway.ControlURL = controlURL
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := gateway.NewServer(&cfg.Gateway, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("gateway stopped")
	return nil
}
