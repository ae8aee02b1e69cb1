package crawler

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/failover"
	"github.com/crawlgrid/crawlgrid/internal/observability"
	"github.com/crawlgrid/crawlgrid/internal/parser"
	"github.com/crawlgrid/crawlgrid/internal/queue"
	"github.com/crawlgrid/crawlgrid/internal/types"
	"github.com/crawlgrid/crawlgrid/internal/worker"
)

// standbyPause is how long a gated-out thread sleeps before re-checking
// the failover gate.
const standbyPause = 1 * time.Second

// Fetcher fetches one page body.
type Fetcher interface {
	Fetch(ctx context.Context, rawURL string) ([]byte, error)
}

// Pool runs the crawler worker threads. Each thread repeatedly checks
// the failover gate, leases a task from the task queue, fetches and
// parses the page, hands the result to the indexer queue, and fans out
// child tasks for the discovered links.
type Pool struct {
	queue     queue.Queue
	fetcher   Fetcher
	gate      *failover.Gate
	state     *worker.State
	metrics   *observability.Metrics
	cfg       *config.Config
	logger    *slog.Logger
	sleepFunc func(ctx context.Context, d time.Duration)
}

// NewPool assembles a crawler pool.
func NewPool(q queue.Queue, fetcher Fetcher, gate *failover.Gate, state *worker.State, metrics *observability.Metrics, cfg *config.Config, logger *slog.Logger) *Pool {
	return &Pool{
		queue:     q,
		fetcher:   fetcher,
		gate:      gate,
		state:     state,
		metrics:   metrics,
		cfg:       cfg,
		logger:    logger.With("component", "crawler"),
		sleepFunc: sleepCtx,
	}
}

// Run starts the configured number of threads and blocks until the
// context is cancelled and every thread has drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 1; i <= p.cfg.Crawler.Threads; i++ {
		wg.Add(1)
		thread := fmt.Sprintf("crawler-thread-%d", i)
		p.state.SetThreadStatus(thread, worker.StatusWaiting)
		go func() {
			defer wg.Done()
			p.runThread(ctx, thread)
		}()
	}
	wg.Wait()
}

func (p *Pool) runThread(ctx context.Context, thread string) {
	logger := p.logger.With("thread", thread)
	for {
		select {
		case <-ctx.Done():
			p.state.SetThreadStatus(thread, worker.StatusIdle)
			return
		default:
		}

		if !p.gate.Primary() && !p.gate.Allowed(ctx) {
			p.state.SetThreadStatus(thread, worker.StatusStandby)
			p.metrics.GateDenials.Add(1)
			p.sleepFunc(ctx, standbyPause)
			continue
		}

		p.state.SetThreadStatus(thread, worker.StatusWaiting)
		msgs, err := p.queue.Receive(ctx, p.cfg.Queue.TaskQueue, 1, p.cfg.Queue.ReceiveWait)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("task receive failed", "error", err)
				p.sleepFunc(ctx, standbyPause)
			}
			continue
		}
		for _, msg := range msgs {
			p.handleTask(ctx, thread, logger, msg)
		}
	}
}

// handleTask processes one leased task message. The message is acked in
// every terminal path except a failed child/payload send, where leaving
// the lease to expire gets the whole task redelivered.
func (p *Pool) handleTask(ctx context.Context, thread string, logger *slog.Logger, msg queue.Message) {
	p.metrics.TasksReceived.Add(1)

	task, err := types.DecodeCrawlTask(msg.Body)
	if err != nil {
		logger.Warn("dropping undecodable task", "error", err)
		p.ack(ctx, p.cfg.Queue.TaskQueue, msg, logger)
		p.metrics.TasksDropped.Add(1)
		return
	}

	task.URL = types.NormalizeTaskURL(task.URL)
	if types.IsJunkURL(task.URL) || task.Exhausted() {
		p.ack(ctx, p.cfg.Queue.TaskQueue, msg, logger)
		p.metrics.TasksDropped.Add(1)
		return
	}

	p.state.SetThreadStatus(thread, "Crawling "+task.URL)
	p.metrics.ActiveThreads.Add(1)
	defer p.metrics.ActiveThreads.Add(-1)
	defer p.state.SetThreadStatus(thread, worker.StatusIdle)

	// Politeness delay before every fetch.
	p.sleepFunc(ctx, p.cfg.Crawler.PolitenessDelay)
	if ctx.Err() != nil {
		return
	}

	p.metrics.FetchesTotal.Add(1)
	body, err := p.fetcher.Fetch(ctx, task.URL)
	if err != nil {
		logger.Warn("fetch failed", "url", task.URL, "depth", task.Depth, "error", err)
		p.metrics.FetchesFailed.Add(1)
		p.ack(ctx, p.cfg.Queue.TaskQueue, msg, logger)
		return
	}
	p.metrics.BytesDownloaded.Add(int64(len(body)))

	page, err := parser.ExtractPage(task.URL, body)
	if err != nil {
		logger.Warn("parse failed", "url", task.URL, "error", err)
		p.ack(ctx, p.cfg.Queue.TaskQueue, msg, logger)
		return
	}

	links := page.Links
	if task.RestrictDomain {
		links = parser.FilterByPrefix(links, task.DomainPrefix)
	}

	// Pages with no visible text produce no payload; their links still
	// fan out below.
	if text := strings.TrimSpace(page.Text); text != "" {
		payload := types.PagePayload{URL: task.URL, Text: page.Text, Links: links}
		payloadBody, err := payload.Encode()
		if err != nil {
			logger.Error("encode payload failed", "url", task.URL, "error", err)
			return
		}
		if err := p.queue.Send(ctx, p.cfg.Queue.IndexerQueue, payloadBody, task.URL); err != nil {
			logger.Warn("indexer enqueue failed, leaving task for redelivery", "url", task.URL, "error", err)
			return
		}
	} else {
		logger.Debug("page has no visible text, skipping index payload", "url", task.URL)
	}

	if emitted, err := p.emitChildren(ctx, task, links); err != nil {
		logger.Warn("child enqueue failed, leaving task for redelivery", "url", task.URL, "error", err)
		return
	} else if emitted > 0 {
		p.metrics.TasksEmitted.Add(int64(emitted))
		logger.Debug("children enqueued", "url", task.URL, "count", emitted)
	}

	p.ack(ctx, p.cfg.Queue.TaskQueue, msg, logger)
	p.state.IncrementURLs()
	logger.Info("page crawled", "url", task.URL, "depth", task.Depth, "links", len(links))
}

// emitChildren enqueues one child task per crawlable link, unless the
// next depth would exceed the task's limit.
func (p *Pool) emitChildren(ctx context.Context, task types.CrawlTask, links []string) (int, error) {
	emitted := 0
	for _, link := range links {
		link = types.NormalizeTaskURL(link)
		if types.IsJunkURL(link) {
			continue
		}
		child := task.Child(link)
		if child.Exhausted() {
			continue
		}
		body, err := child.Encode()
		if err != nil {
			return emitted, err
		}
		if err := p.queue.Send(ctx, p.cfg.Queue.TaskQueue, body, child.URL); err != nil {
			return emitted, err
		}
		emitted++
	}
	return emitted, nil
}

func (p *Pool) ack(ctx context.Context, queueName string, msg queue.Message, logger *slog.Logger) {
	if err := p.queue.Delete(ctx, queueName, msg.Handle); err != nil {
		logger.Warn("ack failed", "handle", msg.Handle, "error", err)
	}
}

func sleepCtx(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
	case <-timer.C:
	}
}
