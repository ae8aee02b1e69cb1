package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/refresher"
)

// refresherCmd creates the "refresher" subcommand.
func refresherCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "refresher",
		Short: "Run the index refresher",
		Long:  "Run the standalone index refresher: watch the page store for changes and rebuild the inverted keyword index.",
		RunE:  runRefresher,
	}
}

func runRefresher(cmd *cobra.Command, args []string) error {
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

	ctx, cancel := signalContext()
	defer cancel()

	metrics := maybeStartMetrics(cfg, logger)

	logger.Info("refresher starting", "interval", cfg.Refresher.Interval)
	refresher.New(st, metrics, &cfg.Refresher, logger).Run(ctx)
	logger.Info("refresher stopped")
	return nil
}
