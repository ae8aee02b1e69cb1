package types

import (
	"encoding/json"
	"fmt"
	"strings"
)

// CrawlTask is a unit of crawl work carried on the task queue.
// The Control Service produces depth-0 tasks; crawlers produce children
// at depth+1 until MaxDepth is reached.
type CrawlTask struct {
	// URL is the page to fetch.
	URL string `json:"url"`

	// Depth is the distance from the seed URL (seed = 0).
	Depth int `json:"depth"`

	// MaxDepth is the inclusive depth limit for this crawl tree.
	MaxDepth int `json:"max_depth"`

	// RestrictDomain keeps the crawl inside the seed's origin.
	RestrictDomain bool `json:"restrict_domain"`

	// DomainPrefix is "scheme://host" of the seed; only meaningful when
	// RestrictDomain is set.
	DomainPrefix string `json:"domain_prefix,omitempty"`
}

// Child derives the task for a link discovered on this task's page.
// Depth limits are enforced by the consumer, not here.
func (t CrawlTask) Child(link string) CrawlTask {
	return CrawlTask{
		URL:            link,
		Depth:          t.Depth + 1,
		MaxDepth:       t.MaxDepth,
		RestrictDomain: t.RestrictDomain,
		DomainPrefix:   t.DomainPrefix,
	}
}

// Exhausted reports whether this task is beyond its depth limit and must
// be dropped on receipt.
func (t CrawlTask) Exhausted() bool {
	return t.Depth > t.MaxDepth
}

// Encode serializes the task as a queue message body.
func (t CrawlTask) Encode() ([]byte, error) {
	return json.Marshal(t)
}

// DecodeCrawlTask parses a queue message body into a CrawlTask.
func DecodeCrawlTask(body []byte) (CrawlTask, error) {
	var t CrawlTask
	if err := json.Unmarshal(body, &t); err != nil {
		return CrawlTask{}, fmt.Errorf("decode crawl task: %w", err)
	}
	return t, nil
}

// PagePayload is the crawl result handed to the indexer fleet: the raw
// page text plus every resolved outbound link.
type PagePayload struct {
	URL   string   `json:"url"`
	Text  string   `json:"text"`
	Links []string `json:"links"`
}

// Encode serializes the payload as a queue message body.
func (p PagePayload) Encode() ([]byte, error) {
	return json.Marshal(p)
}

// DecodePagePayload parses a queue message body into a PagePayload.
func DecodePagePayload(body []byte) (PagePayload, error) {
	var p PagePayload
	if err := json.Unmarshal(body, &p); err != nil {
		return PagePayload{}, fmt.Errorf("decode page payload: %w", err)
	}
	return p, nil
}

// NormalizeTaskURL fixes up scheme-relative URLs ("//host/path") by
// prepending https. Other URLs pass through unchanged.
func NormalizeTaskURL(raw string) string {
	if strings.HasPrefix(raw, "//") {
		return "https:" + raw
	}
	return raw
}

// IsJunkURL reports whether a URL is non-crawlable and should be acked
// and discarded: empty, fragment-only, or a javascript: pseudo-link.
func IsJunkURL(raw string) bool {
	trimmed := strings.TrimSpace(raw)
	return trimmed == "" ||
		strings.HasPrefix(trimmed, "#") ||
		strings.HasPrefix(trimmed, "javascript:")
}
