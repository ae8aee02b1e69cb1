package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Load reads configuration from file, environment, and CLI flags.
// Priority (highest to lowest): CLI flags > env vars > config file > defaults.
func Load(configPath string) (*Config, error) {
	cfg := DefaultConfig()

	v := viper.New()
	v.SetConfigType("yaml")

	// Set defaults from struct
	setDefaults(v, cfg)

	// Environment variable support
	v.SetEnvPrefix("CRAWLGRID")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Load config file
	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		// Search default locations
		v.SetConfigName("crawlgrid")
		v.AddConfigPath(".")
		v.AddConfigPath("./configs")
		home, err := os.UserHomeDir()
		if err == nil {
			v.AddConfigPath(filepath.Join(home, ".crawlgrid"))
		}
	}

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok && configPath != "" {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
		// Config file not found is okay if not explicitly specified
	}

	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Node.ID == "" {
		if host, err := os.Hostname(); err == nil {
			cfg.Node.ID = host
		} else {
			cfg.Node.ID = "node-unknown"
		}
	}
	if cfg.Queue.URI == "" {
		cfg.Queue.URI = cfg.Store.URI
	}

	return cfg, nil
}

// setDefaults registers default values in viper.
func setDefaults(v *viper.Viper, cfg *Config) {
	v.SetDefault("node.rank", cfg.Node.Rank)
	v.SetDefault("node.control_url", cfg.Node.ControlURL)
	v.SetDefault("node.heartbeat_interval", cfg.Node.HeartbeatInterval)
	v.SetDefault("node.heartbeat_timeout", cfg.Node.HeartbeatTimeout)

	v.SetDefault("control.port", cfg.Control.Port)
	v.SetDefault("control.stale_after", cfg.Control.StaleAfter)
	v.SetDefault("control.crawler_liveness", cfg.Control.CrawlerLiveness)
	v.SetDefault("control.indexer_liveness", cfg.Control.IndexerLiveness)
	v.SetDefault("control.default_max_depth", cfg.Control.DefaultMaxDepth)
	v.SetDefault("control.ranks", cfg.Control.Ranks)

	v.SetDefault("gateway.port", cfg.Gateway.Port)
	v.SetDefault("gateway.control_url", cfg.Gateway.ControlURL)
	v.SetDefault("gateway.timeout", cfg.Gateway.Timeout)

	v.SetDefault("crawler.threads", cfg.Crawler.Threads)
	v.SetDefault("crawler.politeness_delay", cfg.Crawler.PolitenessDelay)
	v.SetDefault("crawler.request_timeout", cfg.Crawler.RequestTimeout)
	v.SetDefault("crawler.user_agent", cfg.Crawler.UserAgent)
	v.SetDefault("crawler.max_body_size", cfg.Crawler.MaxBodySize)

	v.SetDefault("indexer.threads", cfg.Indexer.Threads)
	v.SetDefault("indexer.run_refresher", cfg.Indexer.RunRefresher)

	v.SetDefault("refresher.interval", cfg.Refresher.Interval)

	v.SetDefault("queue.database", cfg.Queue.Database)
	v.SetDefault("queue.task_queue", cfg.Queue.TaskQueue)
	v.SetDefault("queue.indexer_queue", cfg.Queue.IndexerQueue)
	v.SetDefault("queue.visibility_timeout", cfg.Queue.VisibilityTimeout)
	v.SetDefault("queue.receive_wait", cfg.Queue.ReceiveWait)
	v.SetDefault("queue.dedup_window", cfg.Queue.DedupWindow)

	v.SetDefault("store.uri", cfg.Store.URI)
	v.SetDefault("store.database", cfg.Store.Database)

	v.SetDefault("logging.level", cfg.Logging.Level)
	v.SetDefault("logging.format", cfg.Logging.Format)
	v.SetDefault("logging.output", cfg.Logging.Output)

	v.SetDefault("metrics.enabled", cfg.Metrics.Enabled)
	v.SetDefault("metrics.port", cfg.Metrics.Port)
	v.SetDefault("metrics.path", cfg.Metrics.Path)
}
