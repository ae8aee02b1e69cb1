package config

import (
	"fmt"
	"net/url"
	"regexp"
)

// submitURLPattern accepts what the crawl-submission endpoint accepts:
// an optional http(s) scheme, a dotted hostname, and an optional path.
var submitURLPattern = regexp.MustCompile(`(?i)^(https?://)?([a-z0-9-]+\.)+[a-z]{2,}(/.*)?$`)

// Validate checks the configuration for invalid values.
func Validate(cfg *Config) error {
	if cfg.Node.Rank < 1 {
		return fmt.Errorf("node.rank must be >= 1, got %d", cfg.Node.Rank)
	}
	if _, err := url.Parse(cfg.Node.ControlURL); err != nil {
		return fmt.Errorf("node.control_url is invalid: %w", err)
	}
	if cfg.Node.HeartbeatInterval <= 0 {
		return fmt.Errorf("node.heartbeat_interval must be > 0")
	}

	if cfg.Control.Port < 1 || cfg.Control.Port > 65535 {
		return fmt.Errorf("control.port must be 1-65535, got %d", cfg.Control.Port)
	}
	if cfg.Control.StaleAfter <= 0 {
		return fmt.Errorf("control.stale_after must be > 0")
	}
	if cfg.Control.CrawlerLiveness <= 0 || cfg.Control.IndexerLiveness <= 0 {
		return fmt.Errorf("control liveness thresholds must be > 0")
	}
	if cfg.Control.DefaultMaxDepth < 0 {
		return fmt.Errorf("control.default_max_depth must be >= 0, got %d", cfg.Control.DefaultMaxDepth)
	}

	if cfg.Crawler.Threads < 1 {
		return fmt.Errorf("crawler.threads must be >= 1, got %d", cfg.Crawler.Threads)
	}
	if cfg.Crawler.RequestTimeout <= 0 {
		return fmt.Errorf("crawler.request_timeout must be > 0")
	}
	if cfg.Crawler.PolitenessDelay < 0 {
		return fmt.Errorf("crawler.politeness_delay must be >= 0")
	}
	if cfg.Crawler.MaxBodySize <= 0 {
		return fmt.Errorf("crawler.max_body_size must be > 0")
	}

	if cfg.Indexer.Threads < 1 {
		return fmt.Errorf("indexer.threads must be >= 1, got %d", cfg.Indexer.Threads)
	}
	if cfg.Refresher.Interval <= 0 {
		return fmt.Errorf("refresher.interval must be > 0")
	}

	if cfg.Queue.TaskQueue == "" || cfg.Queue.IndexerQueue == "" {
		return fmt.Errorf("queue names must not be empty")
	}
	if cfg.Queue.TaskQueue == cfg.Queue.IndexerQueue {
		return fmt.Errorf("queue.task_queue and queue.indexer_queue must differ")
	}
	if cfg.Queue.VisibilityTimeout <= 0 {
		return fmt.Errorf("queue.visibility_timeout must be > 0")
	}
	if cfg.Queue.ReceiveWait <= 0 {
		return fmt.Errorf("queue.receive_wait must be > 0")
	}

	if cfg.Store.URI == "" {
		return fmt.Errorf("store.uri must not be empty")
	}
	if cfg.Store.Database == "" {
		return fmt.Errorf("store.database must not be empty")
	}

	validLogLevels := map[string]bool{
		"debug": true, "info": true, "warn": true, "error": true,
	}
	if !validLogLevels[cfg.Logging.Level] {
		return fmt.Errorf("logging.level must be debug/info/warn/error, got %q", cfg.Logging.Level)
	}
	if cfg.Logging.Format != "text" && cfg.Logging.Format != "json" {
		return fmt.Errorf("logging.format must be 'text' or 'json', got %q", cfg.Logging.Format)
	}

	if cfg.Metrics.Enabled {
		if cfg.Metrics.Port < 1 || cfg.Metrics.Port > 65535 {
			return fmt.Errorf("metrics.port must be 1-65535, got %d", cfg.Metrics.Port)
		}
	}

	return nil
}

// ValidSubmitURL reports whether a crawl-submission URL is acceptable.
func ValidSubmitURL(raw string) bool {
	return submitURLPattern.MatchString(raw)
}
