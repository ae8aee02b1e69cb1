package store

import (
	"context"
	"testing"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

// --- Page Tests ---

func TestMemoryStoreUpsertIdempotent(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	page := types.IndexedPage{URL: "https://example.com", Content: "first", IndexedObjID: "dummy-id"}
	inserted, err := st.UpsertPage(ctx, page)
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	if !inserted {
		t.Error("first upsert should report an insert")
	}

	sigAfterInsert, _ := st.Signature(ctx)

	// Replaying the same URL updates content but leaves the signature alone.
	page.Content = "second"
	inserted, err = st.UpsertPage(ctx, page)
	if err != nil {
		t.Fatalf("upsert error: %v", err)
	}
	if inserted {
		t.Error("replay should report a replacement, not an insert")
	}

	pages, err := st.LoadPages(ctx)
	if err != nil {
		t.Fatalf("load error: %v", err)
	}
	if len(pages) != 1 {
		t.Fatalf("expected 1 page, got %d", len(pages))
	}
	if pages[0].Content != "second" {
		t.Errorf("expected updated content, got %q", pages[0].Content)
	}

	sigAfterReplay, _ := st.Signature(ctx)
	if sigAfterReplay != sigAfterInsert {
		t.Errorf("replay moved the signature: %+v -> %+v", sigAfterInsert, sigAfterReplay)
	}
}

func TestMemoryStoreSignatureAdvances(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	empty, err := st.Signature(ctx)
	if err != nil {
		t.Fatalf("signature error: %v", err)
	}
	if empty.Count != 0 || empty.MaxSeq != 0 {
		t.Fatalf("expected zero signature for empty store, got %+v", empty)
	}

	st.UpsertPage(ctx, types.IndexedPage{URL: "https://a.com", Content: "a"})
	one, _ := st.Signature(ctx)
	st.UpsertPage(ctx, types.IndexedPage{URL: "https://b.com", Content: "b"})
	two, _ := st.Signature(ctx)

	if two.Count != one.Count+1 {
		t.Errorf("count did not advance: %+v -> %+v", one, two)
	}
	if two.MaxSeq <= one.MaxSeq {
		t.Errorf("max sequence did not advance: %+v -> %+v", one, two)
	}
}

func TestMemoryStoreLoadPagesInsertionOrder(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	urls := []string{"https://c.com", "https://a.com", "https://b.com"}
	for _, u := range urls {
		st.UpsertPage(ctx, types.IndexedPage{URL: u, Content: u})
	}

	pages, _ := st.LoadPages(ctx)
	for i, u := range urls {
		if pages[i].URL != u {
			t.Fatalf("expected insertion order %v, got %v at %d", urls, pages[i].URL, i)
		}
	}
}

// --- Keyword Tests ---

func TestMemoryStoreKeywordIndexSwap(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	st.ReplaceKeywordIndex(ctx, map[string][]string{
		"consensus": {"https://a.com", "https://b.com"},
	})

	urls, err := st.LookupKeyword(ctx, "consensus")
	if err != nil {
		t.Fatalf("lookup error: %v", err)
	}
	if len(urls) != 2 {
		t.Fatalf("expected 2 urls, got %v", urls)
	}

	// The swap is total: old keywords vanish.
	st.ReplaceKeywordIndex(ctx, map[string][]string{
		"replication": {"https://c.com"},
	})

	gone, _ := st.LookupKeyword(ctx, "consensus")
	if len(gone) != 0 {
		t.Errorf("stale keyword survived the swap: %v", gone)
	}
	fresh, _ := st.LookupKeyword(ctx, "replication")
	if len(fresh) != 1 || fresh[0] != "https://c.com" {
		t.Errorf("expected fresh keyword, got %v", fresh)
	}
}

func TestMemoryStoreLookupMissingKeyword(t *testing.T) {
	st := NewMemoryStore()

	urls, err := st.LookupKeyword(context.Background(), "absent")
	if err != nil {
		t.Fatalf("missing keyword should not error, got %v", err)
	}
	if urls == nil || len(urls) != 0 {
		t.Errorf("expected empty list, got %v", urls)
	}
}

// --- Heartbeat Tests ---

func TestMemoryStoreHeartbeats(t *testing.T) {
	st := NewMemoryStore()
	ctx := context.Background()

	st.UpsertHeartbeat(ctx, types.HeartbeatRecord{NodeID: "crawler-b", Role: types.RoleCrawler, IP: "10.0.0.2", URLCount: 5})
	st.UpsertHeartbeat(ctx, types.HeartbeatRecord{NodeID: "crawler-a", Role: types.RoleCrawler, IP: "10.0.0.1", URLCount: 3})
	st.UpsertHeartbeat(ctx, types.HeartbeatRecord{NodeID: "crawler-a", Role: types.RoleCrawler, IP: "10.0.0.1", URLCount: 7})

	recs, err := st.ListHeartbeats(ctx)
	if err != nil {
		t.Fatalf("list error: %v", err)
	}
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].NodeID != "crawler-a" || recs[1].NodeID != "crawler-b" {
		t.Errorf("expected records sorted by node id, got %v", recs)
	}
	if recs[0].URLCount != 7 {
		t.Errorf("upsert did not replace the record, got count %d", recs[0].URLCount)
	}
}
