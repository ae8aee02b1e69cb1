package main

import (
	"context"
	"errors"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/control"
)

// controlCmd creates the "control" subcommand.
func controlCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "control",
		Short: "Run the Control Service",
		Long:  "Run the coordination plane: crawl submissions, search, heartbeat ingestion, fleet status and the per-rank failover liveness endpoints.",
		RunE:  runControl,
	}
}

func runControl(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	q, err := openQueue(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	srv := control.NewServer(st, q, cfg, logger)
	if err := srv.Run(ctx); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	logger.Info("control service stopped")
	return nil
}
