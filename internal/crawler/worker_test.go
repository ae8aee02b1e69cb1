package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/failover"
	"github.com/crawlgrid/crawlgrid/internal/observability"
	"github.com/crawlgrid/crawlgrid/internal/queue"
	"github.com/crawlgrid/crawlgrid/internal/types"
	"github.com/crawlgrid/crawlgrid/internal/worker"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

// fakeFetcher serves canned HTML bodies by URL.
type fakeFetcher struct {
	pages map[string]string
}

func (f *fakeFetcher) Fetch(_ context.Context, rawURL string) ([]byte, error) {
	body, ok := f.pages[rawURL]
	if !ok {
		return nil, &types.FetchError{URL: rawURL, StatusCode: 404, Err: fmt.Errorf("not found")}
	}
	return []byte(body), nil
}

func newTestPool(t *testing.T, pages map[string]string) (*Pool, *queue.MemoryQueue, *worker.State) {
	t.Helper()
	cfg := config.DefaultConfig()
	cfg.Crawler.PolitenessDelay = 0

	q := queue.NewMemoryQueue(30*time.Second, 0)
	state := worker.NewState()
	gate := failover.NewGate("http://unused.invalid", types.RoleCrawler, 1, time.Second, testLogger)
	metrics := observability.NewMetrics(testLogger)

	p := NewPool(q, &fakeFetcher{pages: pages}, gate, state, metrics, cfg, testLogger)
	p.sleepFunc = func(context.Context, time.Duration) {}
	return p, q, state
}

// crawlOne pushes a task and runs it through handleTask.
func crawlOne(t *testing.T, p *Pool, q *queue.MemoryQueue, task types.CrawlTask) {
	t.Helper()
	ctx := context.Background()
	body, err := task.Encode()
	if err != nil {
		t.Fatalf("encode task: %v", err)
	}
	if err := q.Send(ctx, p.cfg.Queue.TaskQueue, body, ""); err != nil {
		t.Fatalf("send task: %v", err)
	}
	msgs, err := q.Receive(ctx, p.cfg.Queue.TaskQueue, 1, 100*time.Millisecond)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("receive task: %v (%d msgs)", err, len(msgs))
	}
	p.handleTask(ctx, "crawler-thread-1", testLogger, msgs[0])
}

func receivePayload(t *testing.T, p *Pool, q *queue.MemoryQueue) types.PagePayload {
	t.Helper()
	msgs, err := q.Receive(context.Background(), p.cfg.Queue.IndexerQueue, 1, 100*time.Millisecond)
	if err != nil || len(msgs) != 1 {
		t.Fatalf("receive payload: %v (%d msgs)", err, len(msgs))
	}
	payload, err := types.DecodePagePayload(msgs[0].Body)
	if err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return payload
}

// --- Crawl Tests ---

func TestHandleTaskEmitsPayloadAndChildren(t *testing.T) {
	p, q, state := newTestPool(t, map[string]string{
		"https://example.com": `<html><body>
			<p>Root page content</p>
			<a href="/child1">One</a>
			<a href="https://example.com/child2">Two</a>
		</body></html>`,
	})

	crawlOne(t, p, q, types.CrawlTask{URL: "https://example.com", Depth: 0, MaxDepth: 2})

	payload := receivePayload(t, p, q)
	if payload.URL != "https://example.com" {
		t.Errorf("unexpected payload url %q", payload.URL)
	}
	if payload.Text != "Root page content One Two" {
		t.Errorf("unexpected payload text %q", payload.Text)
	}
	if len(payload.Links) != 2 {
		t.Errorf("expected 2 links, got %v", payload.Links)
	}

	// Two children at depth 1, original task acked.
	if got := q.Len(p.cfg.Queue.TaskQueue); got != 2 {
		t.Fatalf("expected 2 child tasks, got %d", got)
	}
	msgs, _ := q.Receive(context.Background(), p.cfg.Queue.TaskQueue, 2, 100*time.Millisecond)
	for _, msg := range msgs {
		child, err := types.DecodeCrawlTask(msg.Body)
		if err != nil {
			t.Fatalf("decode child: %v", err)
		}
		if child.Depth != 1 || child.MaxDepth != 2 {
			t.Errorf("unexpected child depth %+v", child)
		}
	}

	if state.URLCount() != 1 {
		t.Errorf("expected url counter 1, got %d", state.URLCount())
	}
}

func TestHandleTaskSkipsPayloadForTextlessPage(t *testing.T) {
	p, q, state := newTestPool(t, map[string]string{
		"https://example.com/nav": `<html><head><script>track()</script></head>
			<body>   <a href="/child"><img src="x.png"></a>   </body></html>`,
	})

	crawlOne(t, p, q, types.CrawlTask{URL: "https://example.com/nav", Depth: 0, MaxDepth: 2})

	if got := q.Len(p.cfg.Queue.IndexerQueue); got != 0 {
		t.Errorf("textless page must not produce a payload, got %d", got)
	}

	// The link still fans out and the task is acked.
	msgs, _ := q.Receive(context.Background(), p.cfg.Queue.TaskQueue, 2, 100*time.Millisecond)
	if len(msgs) != 1 {
		t.Fatalf("expected 1 child task, got %d", len(msgs))
	}
	child, err := types.DecodeCrawlTask(msgs[0].Body)
	if err != nil {
		t.Fatalf("decode child: %v", err)
	}
	if child.URL != "https://example.com/child" || child.Depth != 1 {
		t.Errorf("unexpected child %+v", child)
	}
	if state.URLCount() != 1 {
		t.Errorf("textless page still counts as crawled, got %d", state.URLCount())
	}
}

func TestHandleTaskStopsAtMaxDepth(t *testing.T) {
	p, q, _ := newTestPool(t, map[string]string{
		"https://example.com/leaf": `<html><body><a href="/deeper">More</a></body></html>`,
	})

	crawlOne(t, p, q, types.CrawlTask{URL: "https://example.com/leaf", Depth: 2, MaxDepth: 2})

	// Page still indexed, but no children past the depth limit.
	receivePayload(t, p, q)
	if got := q.Len(p.cfg.Queue.TaskQueue); got != 0 {
		t.Errorf("expected no children at max depth, got %d", got)
	}
}

func TestHandleTaskDropsExhaustedTask(t *testing.T) {
	p, q, state := newTestPool(t, nil)

	crawlOne(t, p, q, types.CrawlTask{URL: "https://example.com", Depth: 3, MaxDepth: 2})

	if got := q.Len(p.cfg.Queue.IndexerQueue); got != 0 {
		t.Errorf("exhausted task must not be fetched, got %d payloads", got)
	}
	if got := q.Len(p.cfg.Queue.TaskQueue); got != 0 {
		t.Errorf("exhausted task must be acked, got %d", got)
	}
	if state.URLCount() != 0 {
		t.Error("exhausted task must not count as processed")
	}
}

func TestHandleTaskDropsJunkURL(t *testing.T) {
	p, q, _ := newTestPool(t, nil)

	for _, raw := range []string{"", "#fragment", "javascript:void(0)"} {
		crawlOne(t, p, q, types.CrawlTask{URL: raw, Depth: 0, MaxDepth: 2})
	}

	if got := q.Len(p.cfg.Queue.IndexerQueue); got != 0 {
		t.Errorf("junk URLs must not produce payloads, got %d", got)
	}
	if got := q.Len(p.cfg.Queue.TaskQueue); got != 0 {
		t.Errorf("junk tasks must be acked, got %d", got)
	}
}

func TestHandleTaskNormalizesSchemeRelativeURL(t *testing.T) {
	p, q, _ := newTestPool(t, map[string]string{
		"https://example.com/page": `<html><body>ok</body></html>`,
	})

	crawlOne(t, p, q, types.CrawlTask{URL: "//example.com/page", Depth: 0, MaxDepth: 0})

	payload := receivePayload(t, p, q)
	if payload.URL != "https://example.com/page" {
		t.Errorf("expected normalized url, got %q", payload.URL)
	}
}

func TestHandleTaskRestrictsDomain(t *testing.T) {
	p, q, _ := newTestPool(t, map[string]string{
		"https://example.com": `<html><body>
			<a href="https://example.com/inside">In</a>
			<a href="https://other.org/outside">Out</a>
		</body></html>`,
	})

	crawlOne(t, p, q, types.CrawlTask{
		URL: "https://example.com", Depth: 0, MaxDepth: 2,
		RestrictDomain: true, DomainPrefix: "https://example.com",
	})

	payload := receivePayload(t, p, q)
	if len(payload.Links) != 1 || payload.Links[0] != "https://example.com/inside" {
		t.Errorf("expected off-domain links filtered, got %v", payload.Links)
	}
	if got := q.Len(p.cfg.Queue.TaskQueue); got != 1 {
		t.Errorf("expected 1 on-domain child, got %d", got)
	}
}

func TestHandleTaskAcksFailedFetch(t *testing.T) {
	p, q, state := newTestPool(t, nil)

	crawlOne(t, p, q, types.CrawlTask{URL: "https://example.com/missing", Depth: 0, MaxDepth: 2})

	if got := q.Len(p.cfg.Queue.TaskQueue); got != 0 {
		t.Errorf("failed fetch must still ack the task, got %d", got)
	}
	if got := q.Len(p.cfg.Queue.IndexerQueue); got != 0 {
		t.Errorf("failed fetch must not emit a payload, got %d", got)
	}
	if state.URLCount() != 0 {
		t.Error("failed fetch must not count as processed")
	}
}
