package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

// --- Validate Tests ---

func TestValidateDefaults(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Node.ID = "test-node"
	if err := Validate(cfg); err != nil {
		t.Fatalf("default config should validate, got %v", err)
	}
}

func TestValidateRejections(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"zero rank", func(c *Config) { c.Node.Rank = 0 }},
		{"bad control port", func(c *Config) { c.Control.Port = 70000 }},
		{"zero stale after", func(c *Config) { c.Control.StaleAfter = 0 }},
		{"negative max depth", func(c *Config) { c.Control.DefaultMaxDepth = -1 }},
		{"zero crawler threads", func(c *Config) { c.Crawler.Threads = 0 }},
		{"zero request timeout", func(c *Config) { c.Crawler.RequestTimeout = 0 }},
		{"zero indexer threads", func(c *Config) { c.Indexer.Threads = 0 }},
		{"zero refresher interval", func(c *Config) { c.Refresher.Interval = 0 }},
		{"same queue names", func(c *Config) { c.Queue.IndexerQueue = c.Queue.TaskQueue }},
		{"zero visibility timeout", func(c *Config) { c.Queue.VisibilityTimeout = 0 }},
		{"empty store uri", func(c *Config) { c.Store.URI = "" }},
		{"bad log level", func(c *Config) { c.Logging.Level = "loud" }},
		{"bad log format", func(c *Config) { c.Logging.Format = "xml" }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			if err := Validate(cfg); err == nil {
				t.Errorf("expected validation error for %s", tc.name)
			}
		})
	}
}

// --- ValidSubmitURL Tests ---

func TestValidSubmitURL(t *testing.T) {
	valid := []string{
		"example.com",
		"example.com/path/to/page",
		"https://example.com",
		"http://sub.example.co.uk/x?y=z",
		"HTTPS://EXAMPLE.COM",
	}
	for _, raw := range valid {
		if !ValidSubmitURL(raw) {
			t.Errorf("expected %q to be accepted", raw)
		}
	}

	invalid := []string{
		"",
		"not a url",
		"localhost",
		"ftp://example.com",
		"https://",
		"example",
	}
	for _, raw := range invalid {
		if ValidSubmitURL(raw) {
			t.Errorf("expected %q to be rejected", raw)
		}
	}
}

// --- Load Tests ---

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.Control.Port != 5000 {
		t.Errorf("expected control port 5000, got %d", cfg.Control.Port)
	}
	if cfg.Gateway.Port != 5050 {
		t.Errorf("expected gateway port 5050, got %d", cfg.Gateway.Port)
	}
	if cfg.Crawler.PolitenessDelay != 2*time.Second {
		t.Errorf("expected 2s politeness delay, got %s", cfg.Crawler.PolitenessDelay)
	}
	if cfg.Node.ID == "" {
		t.Error("node id should default to the hostname")
	}
	if cfg.Queue.URI != cfg.Store.URI {
		t.Errorf("queue uri should fall back to store uri, got %q", cfg.Queue.URI)
	}
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "crawlgrid.yaml")
	content := `
node:
  id: crawler-west-2
  rank: 2
control:
  port: 6000
  default_max_depth: 4
crawler:
  threads: 7
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}

	if cfg.Node.ID != "crawler-west-2" || cfg.Node.Rank != 2 {
		t.Errorf("node section not applied: %+v", cfg.Node)
	}
	if cfg.Control.Port != 6000 || cfg.Control.DefaultMaxDepth != 4 {
		t.Errorf("control section not applied: %+v", cfg.Control)
	}
	if cfg.Crawler.Threads != 7 {
		t.Errorf("crawler section not applied: %+v", cfg.Crawler)
	}
	// Untouched keys keep their defaults.
	if cfg.Indexer.Threads != 2 {
		t.Errorf("expected default indexer threads, got %d", cfg.Indexer.Threads)
	}
}

func TestLoadMissingExplicitFile(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "absent.yaml")); err == nil {
		t.Fatal("expected error for missing explicit config file")
	}
}
