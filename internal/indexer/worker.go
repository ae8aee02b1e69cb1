package indexer

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/failover"
	"github.com/crawlgrid/crawlgrid/internal/observability"
	"github.com/crawlgrid/crawlgrid/internal/parser"
	"github.com/crawlgrid/crawlgrid/internal/queue"
	"github.com/crawlgrid/crawlgrid/internal/store"
	"github.com/crawlgrid/crawlgrid/internal/types"
	"github.com/crawlgrid/crawlgrid/internal/worker"
)

const standbyPause = 1 * time.Second

// PlaceholderObjID marks pages persisted without an external
// search-engine document behind them.
const PlaceholderObjID = "dummy-id"

// ExternalIndexer pushes a page into an external search engine and
// returns the engine's document id. Optional; without one, pages get
// PlaceholderObjID.
type ExternalIndexer interface {
	IndexPage(ctx context.Context, url, text string) (string, error)
}

// Pool runs the indexer worker threads. Each thread leases crawl
// results off the indexer queue, cleans the text, and upserts the page
// into the store keyed by URL, so duplicate deliveries collapse.
type Pool struct {
	queue    queue.Queue
	store    store.PageStore
	external ExternalIndexer
	gate     *failover.Gate
	state    *worker.State
	metrics  *observability.Metrics
	cfg      *config.Config
	logger   *slog.Logger
}

// NewPool assembles an indexer pool. external may be nil.
func NewPool(q queue.Queue, st store.PageStore, external ExternalIndexer, gate *failover.Gate, state *worker.State, metrics *observability.Metrics, cfg *config.Config, logger *slog.Logger) *Pool {
	return &Pool{
		queue:    q,
		store:    st,
		external: external,
		gate:     gate,
		state:    state,
		metrics:  metrics,
		cfg:      cfg,
		logger:   logger.With("component", "indexer"),
	}
}

// Run starts the configured number of threads and blocks until the
// context is cancelled and every thread has drained.
func (p *Pool) Run(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 1; i <= p.cfg.Indexer.Threads; i++ {
		wg.Add(1)
		thread := fmt.Sprintf("indexer-thread-%d", i)
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
			sleepCtx(ctx, standbyPause)
			continue
		}

		p.state.SetThreadStatus(thread, worker.StatusWaiting)
		msgs, err := p.queue.Receive(ctx, p.cfg.Queue.IndexerQueue, 1, p.cfg.Queue.ReceiveWait)
		if err != nil {
			if ctx.Err() == nil {
				logger.Warn("payload receive failed", "error", err)
				sleepCtx(ctx, standbyPause)
			}
			continue
		}
		for _, msg := range msgs {
			p.handlePayload(ctx, thread, logger, msg)
		}
	}
}

// handlePayload indexes one leased page payload. Store failures leave
// the message unacked so the visibility timeout redelivers it.
func (p *Pool) handlePayload(ctx context.Context, thread string, logger *slog.Logger, msg queue.Message) {
	payload, err := types.DecodePagePayload(msg.Body)
	if err != nil {
		logger.Warn("dropping undecodable payload", "error", err)
		p.ack(ctx, msg, logger)
		return
	}

	p.state.SetThreadStatus(thread, "Indexing "+payload.URL)
	p.metrics.ActiveThreads.Add(1)
	defer p.metrics.ActiveThreads.Add(-1)
	defer p.state.SetThreadStatus(thread, worker.StatusIdle)

	content := parser.CleanHTML(payload.Text)

	objID := PlaceholderObjID
	if p.external != nil {
		id, err := p.external.IndexPage(ctx, payload.URL, content)
		if err != nil {
			logger.Warn("external index failed, storing placeholder", "url", payload.URL, "error", err)
		} else {
			objID = id
		}
	}

	page := types.IndexedPage{URL: payload.URL, Content: content, IndexedObjID: objID}
	inserted, err := p.store.UpsertPage(ctx, page)
	if err != nil {
		logger.Warn("page upsert failed, leaving payload for redelivery", "url", payload.URL, "error", err)
		return
	}
	if !inserted {
		p.metrics.PagesReplayed.Add(1)
	}

	p.ack(ctx, msg, logger)
	p.state.IncrementURLs()
	p.metrics.PagesIndexed.Add(1)
	logger.Info("page indexed", "url", payload.URL, "bytes", len(content))
}

func (p *Pool) ack(ctx context.Context, msg queue.Message, logger *slog.Logger) {
	if err := p.queue.Delete(ctx, p.cfg.Queue.IndexerQueue, msg.Handle); err != nil {
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
