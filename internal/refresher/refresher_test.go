package refresher

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/store"
	"github.com/crawlgrid/crawlgrid/internal/types"
)

var testLogger = slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelError}))

func newTestRefresher(st store.PageStore) *Refresher {
	cfg := &config.RefresherConfig{Interval: 10 * time.Millisecond}
	return New(st, nil, cfg, testLogger)
}

// --- BuildKeywordIndex Tests ---

func TestBuildKeywordIndex(t *testing.T) {
	pages := []types.IndexedPage{
		{URL: "https://a.com", Content: "Raft consensus and RAFT logs"},
		{URL: "https://b.com", Content: "consensus protocols at scale"},
	}

	index := BuildKeywordIndex(pages)

	if urls := index["consensus"]; len(urls) != 2 {
		t.Fatalf("expected consensus on both pages, got %v", urls)
	}
	// Repeated word on the same page indexes once, case-folded.
	if urls := index["raft"]; len(urls) != 1 || urls[0] != "https://a.com" {
		t.Errorf("expected raft deduped to one url, got %v", urls)
	}
	// Short words are skipped.
	if _, ok := index["at"]; ok {
		t.Error("two-letter word should not be indexed")
	}
	if _, ok := index["and"]; !ok {
		t.Error("three-letter word should be indexed")
	}
}

func TestBuildKeywordIndexSkipsDigits(t *testing.T) {
	index := BuildKeywordIndex([]types.IndexedPage{
		{URL: "https://a.com", Content: "version 1234 of protocol9 draft"},
	})

	if _, ok := index["1234"]; ok {
		t.Error("numeric token should not be indexed")
	}
	if _, ok := index["version"]; !ok {
		t.Error("alphabetic token missing from index")
	}
}

// --- Tick Tests ---

func TestTickRebuildsOnChange(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	r := newTestRefresher(st)

	st.UpsertPage(ctx, types.IndexedPage{URL: "https://a.com", Content: "distributed consensus"})

	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	urls, _ := st.LookupKeyword(ctx, "consensus")
	if len(urls) != 1 || urls[0] != "https://a.com" {
		t.Fatalf("expected rebuilt index, got %v", urls)
	}
}

func TestTickSkipsUnchangedCorpus(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	r := newTestRefresher(st)

	st.UpsertPage(ctx, types.IndexedPage{URL: "https://a.com", Content: "distributed consensus"})
	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	// Wipe the index behind the refresher's back; an unchanged signature
	// must not trigger a rebuild.
	st.ReplaceKeywordIndex(ctx, map[string][]string{})
	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	urls, _ := st.LookupKeyword(ctx, "consensus")
	if len(urls) != 0 {
		t.Errorf("unchanged corpus should not rebuild, got %v", urls)
	}
}

func TestTickRebuildsAfterNewPage(t *testing.T) {
	st := store.NewMemoryStore()
	ctx := context.Background()
	r := newTestRefresher(st)

	st.UpsertPage(ctx, types.IndexedPage{URL: "https://a.com", Content: "distributed consensus"})
	r.Tick(ctx)

	st.UpsertPage(ctx, types.IndexedPage{URL: "https://b.com", Content: "consensus replication"})
	if err := r.Tick(ctx); err != nil {
		t.Fatalf("tick error: %v", err)
	}

	urls, _ := st.LookupKeyword(ctx, "consensus")
	if len(urls) != 2 {
		t.Errorf("expected both pages indexed after change, got %v", urls)
	}
	urls, _ = st.LookupKeyword(ctx, "replication")
	if len(urls) != 1 {
		t.Errorf("expected new keyword indexed, got %v", urls)
	}
}
