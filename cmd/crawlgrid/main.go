package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/observability"
	"github.com/crawlgrid/crawlgrid/internal/queue"
	"github.com/crawlgrid/crawlgrid/internal/store"
)

var (
	cfgFile    string
	verbose    bool
	nodeID     string
	rank       int
	controlURL string
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "crawlgrid",
		Short: "CrawlGrid — distributed crawl & search pipeline",
		Long: `CrawlGrid is a distributed web crawling and search pipeline.

One binary runs every role:
  • control   — coordination plane: submissions, search, heartbeats, failover
  • crawler   — fetches pages off the task queue and fans out child tasks
  • indexer   — persists crawled pages into the page store
  • refresher — rebuilds the inverted keyword index on corpus changes
  • gateway   — browser-facing proxy with the monitoring page

Workers carry a rank: rank 1 is the primary, higher ranks stay standby
until every higher-priority rank of their role goes quiet.`,
	}

	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
	rootCmd.PersistentFlags().StringVar(&nodeID, "node-id", "", "node identifier (default: hostname)")
	rootCmd.PersistentFlags().IntVar(&rank, "rank", 0, "failover rank, 1 = primary (default: config)")
	rootCmd.PersistentFlags().StringVar(&controlURL, "control-url", "", "control service base URL (default: config)")

	rootCmd.AddCommand(controlCmd())
	rootCmd.AddCommand(crawlerCmd())
	rootCmd.AddCommand(indexerCmd())
	rootCmd.AddCommand(refresherCmd())
	rootCmd.AddCommand(gatewayCmd())
	rootCmd.AddCommand(versionCmd())
	rootCmd.AddCommand(configCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadConfig loads and validates the configuration with CLI overrides
// applied.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if nodeID != "" {
		cfg.Node.ID = nodeID
	}
	if rank > 0 {
		cfg.Node.Rank = rank
	}
	if controlURL != "" {
		cfg.Node.ControlURL = controlURL
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// setupLogger creates the structured logger from the logging config.
func setupLogger(cfg *config.Config) *slog.Logger {
	level := slog.LevelInfo
	switch cfg.Logging.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	if verbose {
		level = slog.LevelDebug
	}

	out := os.Stderr
	if cfg.Logging.Output == "stdout" {
		out = os.Stdout
	}

	opts := &slog.HandlerOptions{Level: level}
	var handler slog.Handler
	if cfg.Logging.Format == "json" {
		handler = slog.NewJSONHandler(out, opts)
	} else {
		handler = slog.NewTextHandler(out, opts)
	}
	return slog.New(handler)
}

// signalContext returns a context cancelled on SIGINT or SIGTERM.
func signalContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
}

func openQueue(cfg *config.Config, logger *slog.Logger) (queue.Queue, error) {
	q, err := queue.NewMongoQueue(cfg.Queue.URI, cfg.Queue.Database, cfg.Queue.VisibilityTimeout, cfg.Queue.DedupWindow, logger)
	if err != nil {
		return nil, fmt.Errorf("connect queue: %w", err)
	}
	return q, nil
}

func openStore(cfg *config.Config, logger *slog.Logger) (store.PageStore, error) {
	st, err := store.NewMongoStore(cfg.Store.URI, cfg.Store.Database, logger)
	if err != nil {
		return nil, fmt.Errorf("connect store: %w", err)
	}
	return st, nil
}

// maybeStartMetrics starts the Prometheus endpoint when enabled and
// always returns a usable Metrics instance.
func maybeStartMetrics(cfg *config.Config, logger *slog.Logger) *observability.Metrics {
	metrics := observability.NewMetrics(logger)
	if cfg.Metrics.Enabled {
		if err := metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path); err != nil {
			logger.Warn("failed to start metrics server", "error", err)
		}
	}
	return metrics
}

// versionCmd creates the "version" subcommand.
func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("CrawlGrid %s\n", config.Version)
		},
	}
}

// configCmd creates the "config" subcommand for inspecting configuration.
func configCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "config",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			fmt.Printf("Node:\n")
			fmt.Printf("  ID:                 %s\n", cfg.Node.ID)
			fmt.Printf("  Rank:               %d\n", cfg.Node.Rank)
			fmt.Printf("  Control URL:        %s\n", cfg.Node.ControlURL)
			fmt.Printf("  Heartbeat Interval: %s\n", cfg.Node.HeartbeatInterval)
			fmt.Printf("\nControl:\n")
			fmt.Printf("  Port:               %d\n", cfg.Control.Port)
			fmt.Printf("  Stale After:        %s\n", cfg.Control.StaleAfter)
			fmt.Printf("  Crawler Liveness:   %s\n", cfg.Control.CrawlerLiveness)
			fmt.Printf("  Indexer Liveness:   %s\n", cfg.Control.IndexerLiveness)
			fmt.Printf("  Default Max Depth:  %d\n", cfg.Control.DefaultMaxDepth)
			fmt.Printf("  Ranks:              %d bound\n", len(cfg.Control.Ranks))
			fmt.Printf("\nCrawler:\n")
			fmt.Printf("  Threads:            %d\n", cfg.Crawler.Threads)
			fmt.Printf("  Politeness Delay:   %s\n", cfg.Crawler.PolitenessDelay)
			fmt.Printf("  Request Timeout:    %s\n", cfg.Crawler.RequestTimeout)
			fmt.Printf("  Max Body Size:      %d bytes\n", cfg.Crawler.MaxBodySize)
			fmt.Printf("\nIndexer:\n")
			fmt.Printf("  Threads:            %d\n", cfg.Indexer.Threads)
			fmt.Printf("  Run Refresher:      %v\n", cfg.Indexer.RunRefresher)
			fmt.Printf("\nRefresher:\n")
			fmt.Printf("  Interval:           %s\n", cfg.Refresher.Interval)
			fmt.Printf("\nQueue:\n")
			fmt.Printf("  URI:                %s\n", cfg.Queue.URI)
			fmt.Printf("  Task Queue:         %s\n", cfg.Queue.TaskQueue)
			fmt.Printf("  Indexer Queue:      %s\n", cfg.Queue.IndexerQueue)
			fmt.Printf("  Visibility Timeout: %s\n", cfg.Queue.VisibilityTimeout)
			fmt.Printf("  Receive Wait:       %s\n", cfg.Queue.ReceiveWait)
			fmt.Printf("  Dedup Window:       %s\n", cfg.Queue.DedupWindow)
			fmt.Printf("\nStore:\n")
			fmt.Printf("  URI:                %s\n", cfg.Store.URI)
			fmt.Printf("  Database:           %s\n", cfg.Store.Database)
			fmt.Printf("\nGateway:\n")
			fmt.Printf("  Port:               %d\n", cfg.Gateway.Port)
			fmt.Printf("  Control URL:        %s\n", cfg.Gateway.ControlURL)
			fmt.Printf("\nMetrics:\n")
			fmt.Printf("  Enabled:            %v\n", cfg.Metrics.Enabled)
			fmt.Printf("  Port:               %d\n", cfg.Metrics.Port)
			return nil
		},
	}
}
