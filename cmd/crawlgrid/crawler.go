package main

import (
	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/crawler"
	"github.com/crawlgrid/crawlgrid/internal/failover"
	"github.com/crawlgrid/crawlgrid/internal/fetcher"
	"github.com/crawlgrid/crawlgrid/internal/types"
	"github.com/crawlgrid/crawlgrid/internal/worker"
)

// crawlerCmd creates the "crawler" subcommand.
func crawlerCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "crawler",
		Short: "Run a crawler worker",
		Long:  "Run a crawler worker: lease tasks off the task queue, fetch and parse pages, hand results to the indexer queue and fan out child tasks.",
		RunE:  runCrawler,
	}
}

func runCrawler(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger := setupLogger(cfg)

	q, err := openQueue(cfg, logger)
	if err != nil {
		return err
	}

	ctx, cancel := signalContext()
	defer cancel()

	state := worker.NewState()
	gate := failover.NewGate(cfg.Node.ControlURL, types.RoleCrawler, cfg.Node.Rank, cfg.Node.HeartbeatTimeout, logger)
	metrics := maybeStartMetrics(cfg, logger)

	httpFetcher := fetcher.NewHTTPFetcher(&cfg.Crawler, logger)
	defer httpFetcher.Close()

	hb := worker.NewHeartbeatSender(state, cfg.Node.ID, types.RoleCrawler, cfg.Node.ControlURL, cfg.Node.HeartbeatInterval, cfg.Node.HeartbeatTimeout, logger)
	go hb.Run(ctx)

	logger.Info("crawler starting",
		"node", cfg.Node.ID,
		"rank", cfg.Node.Rank,
		"threads", cfg.Crawler.Threads,
	)

	pool := crawler.NewPool(q, httpFetcher, gate, state, metrics, cfg, logger)
	pool.Run(ctx)

	logger.Info("crawler stopped", "urls_processed", state.URLCount())
	return nil
}
