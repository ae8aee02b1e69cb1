package config

import (
	"time"
)

// Version is set at build time via ldflags.
var Version = "dev"

// Config is the root configuration for CrawlGrid. Every process role
// (control, crawler, indexer, refresher, gateway) reads the same file and
// uses the sections it needs.
type Config struct {
	Node      NodeConfig      `mapstructure:"node"      yaml:"node"`
	Control   ControlConfig   `mapstructure:"control"   yaml:"control"`
	Gateway   GatewayConfig   `mapstructure:"gateway"   yaml:"gateway"`
	Crawler   CrawlerConfig   `mapstructure:"crawler"   yaml:"crawler"`
	Indexer   IndexerConfig   `mapstructure:"indexer"   yaml:"indexer"`
	Refresher RefresherConfig `mapstructure:"refresher" yaml:"refresher"`
	Queue     QueueConfig     `mapstructure:"queue"     yaml:"queue"`
	Store     StoreConfig     `mapstructure:"store"     yaml:"store"`
	Logging   LoggingConfig   `mapstructure:"logging"   yaml:"logging"`
	Metrics   MetricsConfig   `mapstructure:"metrics"   yaml:"metrics"`
}

// NodeConfig identifies this process inside the fleet.
type NodeConfig struct {
	// ID is the stable node identifier bound to a rank at deploy time.
	// Defaults to the hostname.
	ID string `mapstructure:"id" yaml:"id"`

	// Rank is this worker's 1-based position in its role's priority
	// list. Rank 1 is the primary and never consults the failover gate.
	Rank int `mapstructure:"rank" yaml:"rank"`

	// ControlURL is the base URL of the Control Service, e.g.
	// "http://10.0.0.5:5000".
	ControlURL string `mapstructure:"control_url" yaml:"control_url"`

	// HeartbeatInterval is the period between heartbeat POSTs.
	HeartbeatInterval time.Duration `mapstructure:"heartbeat_interval" yaml:"heartbeat_interval"`

	// HeartbeatTimeout bounds each heartbeat POST.
	HeartbeatTimeout time.Duration `mapstructure:"heartbeat_timeout" yaml:"heartbeat_timeout"`
}

// ControlConfig controls the Control Service HTTP surface.
type ControlConfig struct {
	Port int `mapstructure:"port" yaml:"port"`

	// StaleAfter is the heartbeat age past which a node is reported
	// "not active" by /api/status.
	StaleAfter time.Duration `mapstructure:"stale_after" yaml:"stale_after"`

	// CrawlerLiveness and IndexerLiveness are the heartbeat-age
	// thresholds behind the per-rank liveness endpoints.
	CrawlerLiveness time.Duration `mapstructure:"crawler_liveness" yaml:"crawler_liveness"`
	IndexerLiveness time.Duration `mapstructure:"indexer_liveness" yaml:"indexer_liveness"`

	// Ranks binds rank names to node ids, e.g. "crawler-1" -> the
	// hostname of the primary crawler. Loaded at startup; the liveness
	// endpoints consult it instead of hardcoded node-id substrings.
	Ranks map[string]string `mapstructure:"ranks" yaml:"ranks"`

	// DefaultMaxDepth is applied to crawl submissions that omit one.
	DefaultMaxDepth int `mapstructure:"default_max_depth" yaml:"default_max_depth"`
}

// GatewayConfig controls the browser-facing gateway.
type GatewayConfig struct {
	Port       int           `mapstructure:"port"        yaml:"port"`
	ControlURL string        `mapstructure:"control_url" yaml:"control_url"`
	Timeout    time.Duration `mapstructure:"timeout"     yaml:"timeout"`
}

// CrawlerConfig controls the crawler worker pool.
type CrawlerConfig struct {
	Threads         int           `mapstructure:"threads"          yaml:"threads"`
	PolitenessDelay time.Duration `mapstructure:"politeness_delay" yaml:"politeness_delay"`
	RequestTimeout  time.Duration `mapstructure:"request_timeout"  yaml:"request_timeout"`
	UserAgent       string        `mapstructure:"user_agent"       yaml:"user_agent"`
	MaxBodySize     int64         `mapstructure:"max_body_size"    yaml:"max_body_size"`
}

// IndexerConfig controls the indexer worker pool.
type IndexerConfig struct {
	Threads int `mapstructure:"threads" yaml:"threads"`

	// RunRefresher starts the Index Refresher as a sidecar goroutine of
	// this indexer process.
	RunRefresher bool `mapstructure:"run_refresher" yaml:"run_refresher"`
}

// RefresherConfig controls the inverted-index refresh loop.
type RefresherConfig struct {
	Interval time.Duration `mapstructure:"interval" yaml:"interval"`
}

// QueueConfig controls the durable task queue.
type QueueConfig struct {
	// URI and Database locate the queue backing store. When empty, URI
	// falls back to store.uri so a single deployment can share one
	// database server.
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`

	// TaskQueue and IndexerQueue are the two logical queue names.
	TaskQueue    string `mapstructure:"task_queue"    yaml:"task_queue"`
	IndexerQueue string `mapstructure:"indexer_queue" yaml:"indexer_queue"`

	// VisibilityTimeout is how long a received, un-deleted message stays
	// invisible before it is redelivered.
	VisibilityTimeout time.Duration `mapstructure:"visibility_timeout" yaml:"visibility_timeout"`

	// ReceiveWait bounds the long-poll of a single receive call.
	ReceiveWait time.Duration `mapstructure:"receive_wait" yaml:"receive_wait"`

	// DedupWindow collapses retransmits carrying the same deduplication
	// id. Zero disables name-based deduplication.
	DedupWindow time.Duration `mapstructure:"dedup_window" yaml:"dedup_window"`
}

// StoreConfig controls the page store.
type StoreConfig struct {
	URI      string `mapstructure:"uri"      yaml:"uri"`
	Database string `mapstructure:"database" yaml:"database"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level  string `mapstructure:"level"  yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
	Output string `mapstructure:"output" yaml:"output"`
}

// MetricsConfig controls the Prometheus metrics endpoint.
type MetricsConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Port    int    `mapstructure:"port"    yaml:"port"`
	Path    string `mapstructure:"path"    yaml:"path"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Node: NodeConfig{
			Rank:              1,
			ControlURL:        "http://127.0.0.1:5000",
			HeartbeatInterval: 2 * time.Second,
			HeartbeatTimeout:  3 * time.Second,
		},
		Control: ControlConfig{
			Port:            5000,
			StaleAfter:      10 * time.Second,
			CrawlerLiveness: 4 * time.Second,
			IndexerLiveness: 5 * time.Second,
			Ranks: map[string]string{
				"crawler-1": "crawler1",
				"crawler-2": "crawler2",
				"indexer-1": "indexer1",
			},
			DefaultMaxDepth: 2,
		},
		Gateway: GatewayConfig{
			Port:       5050,
			ControlURL: "http://127.0.0.1:5000",
			Timeout:    5 * time.Second,
		},
		Crawler: CrawlerConfig{
			Threads:         3,
			PolitenessDelay: 2 * time.Second,
			RequestTimeout:  5 * time.Second,
			UserAgent:       "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
			MaxBodySize:     10 * 1024 * 1024, // 10MB
		},
		Indexer: IndexerConfig{
			Threads:      2,
			RunRefresher: false,
		},
		Refresher: RefresherConfig{
			Interval: 3 * time.Second,
		},
		Queue: QueueConfig{
			Database:          "crawlgrid",
			TaskQueue:         "tasks",
			IndexerQueue:      "pages",
			VisibilityTimeout: 30 * time.Second,
			ReceiveWait:       10 * time.Second,
			DedupWindow:       5 * time.Minute,
		},
		Store: StoreConfig{
			URI:      "mongodb://127.0.0.1:27017",
			Database: "crawlgrid",
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
			Output: "stderr",
		},
		Metrics: MetricsConfig{
			Enabled: false,
			Port:    9090,
			Path:    "/metrics",
		},
	}
}
