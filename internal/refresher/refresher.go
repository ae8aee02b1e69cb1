package refresher

import (
	"context"
	"errors"
	"log/slog"
	"regexp"
	"strings"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/observability"
	"github.com/crawlgrid/crawlgrid/internal/store"
	"github.com/crawlgrid/crawlgrid/internal/types"
)

// keywordPattern selects the words worth indexing: alphabetic runs of
// three or more letters.
var keywordPattern = regexp.MustCompile(`\b[a-zA-Z]{3,}\b`)

// Refresher rebuilds the inverted keyword index whenever the page
// corpus changes. Change detection compares the store signature
// (row count, max insert sequence) against the last one seen, so an
// idle corpus costs one cheap query per tick.
type Refresher struct {
	store    store.PageStore
	metrics  *observability.Metrics
	interval time.Duration
	logger   *slog.Logger

	lastSig store.Signature
}

// New creates a refresher.
func New(st store.PageStore, metrics *observability.Metrics, cfg *config.RefresherConfig, logger *slog.Logger) *Refresher {
	return &Refresher{
		store:    st,
		metrics:  metrics,
		interval: cfg.Interval,
		logger:   logger.With("component", "refresher"),
	}
}

// Run loops until the context is cancelled. The baseline signature is
// read before the first tick, so pages already present at boot only
// get re-indexed once the corpus changes again.
func (r *Refresher) Run(ctx context.Context) {
	sig, err := r.store.Signature(ctx)
	if err != nil {
		r.logger.Warn("initial signature read failed", "error", err)
	} else {
		r.lastSig = sig
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
		if err := r.Tick(ctx); err != nil {
			r.logger.Warn("refresh pass failed", "error", err)
			r.recover(ctx, err)
		}
	}
}

// Tick runs one change-detect-and-rebuild pass.
func (r *Refresher) Tick(ctx context.Context) error {
	sig, err := r.store.Signature(ctx)
	if err != nil {
		return err
	}
	if sig == r.lastSig {
		return nil
	}

	pages, err := r.store.LoadPages(ctx)
	if err != nil {
		return err
	}

	index := BuildKeywordIndex(pages)
	if err := r.store.ReplaceKeywordIndex(ctx, index); err != nil {
		return err
	}

	r.lastSig = sig
	if r.metrics != nil {
		r.metrics.IndexRefreshes.Add(1)
	}
	r.logger.Info("keyword index rebuilt", "pages", len(pages), "keywords", len(index))
	return nil
}

// recover reconnects the store after a transient failure so the next
// tick starts from a fresh connection.
func (r *Refresher) recover(ctx context.Context, err error) {
	var serr *types.StoreError
	if !errors.As(err, &serr) || !serr.Transient {
		return
	}
	if rerr := r.store.Reconnect(ctx); rerr != nil {
		r.logger.Error("store reconnect failed", "error", rerr)
	}
}

// BuildKeywordIndex maps every keyword to the list of page URLs whose
// content contains it, in corpus order, without duplicates.
func BuildKeywordIndex(pages []types.IndexedPage) map[string][]string {
	index := make(map[string][]string)
	seen := make(map[string]map[string]struct{})

	for _, page := range pages {
		for _, word := range keywordPattern.FindAllString(strings.ToLower(page.Content), -1) {
			urls, ok := seen[word]
			if !ok {
				urls = make(map[string]struct{})
				seen[word] = urls
			}
			if _, dup := urls[page.URL]; dup {
				continue
			}
			urls[page.URL] = struct{}{}
			index[word] = append(index[word], page.URL)
		}
	}
	return index
}
