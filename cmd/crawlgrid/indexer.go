package main

import (
	"context"
	"sync"

	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/failover"
	"github.com/crawlgrid/crawlgrid/internal/indexer"
	"github.com/crawlgrid/crawlgrid/internal/refresher"
	"github.com/crawlgrid/crawlgrid/internal/types"
	"github.com/crawlgrid/crawlgrid/internal/worker"
)

var withRefresher bool

// indexerCmd creates the "indexer" subcommand.
func indexerCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "indexer",
		Short: "Run an indexer worker",
		Long:  "Run an indexer worker: lease crawl results off the indexer queue and persist cleaned pages into the page store.",
		RunE:  runIndexer,
	}
	cmd.Flags().BoolVar(&withRefresher, "refresher", false, "also run the index refresher as a sidecar")
	return cmd
}

func runIndexer(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if withRefresher {
		cfg.Indexer.RunRefresher = true
	}
	logger := setupLogger(cfg)

	q, err := openQueue(cfg, logger)
	if err != nil {
		return err
	}
	st, err := openStore(cfg, logger)
	if err != nil {
		return err
	}
	defer st.Close(context.Background())

	ctx, cancel := signalContext()
	defer cancel()

	state := worker.NewState()
	gate := failover.NewGate(cfg.Node.ControlURL, types.RoleIndexer, cfg.Node.Rank, cfg.Node.HeartbeatTimeout, logger)
	metrics := maybeStartMetrics(cfg, logger)

	hb := worker.NewHeartbeatSender(state, cfg.Node.ID, types.RoleIndexer, cfg.Node.ControlURL, cfg.Node.HeartbeatInterval, cfg.Node.HeartbeatTimeout, logger)
	go hb.Run(ctx)

	var wg sync.WaitGroup
	if cfg.Indexer.RunRefresher {
		wg.Add(1)
		go func() {
			defer wg.Done()
			refresher.New(st, metrics, &cfg.Refresher, logger).Run(ctx)
		}()
	}

	logger.Info("indexer starting",
		"node", cfg.Node.ID,
		"rank", cfg.Node.Rank,
		"threads", cfg.Indexer.Threads,
		"refresher", cfg.Indexer.RunRefresher,
	)

	pool := indexer.NewPool(q, st, nil, gate, state, metrics, cfg, logger)
	pool.Run(ctx)
	wg.Wait()

	logger.Info("indexer stopped", "pages_indexed", state.URLCount())
	return nil
}
