package store

import (
	"context"
	"sort"
	"sync"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

// MemoryStore is an in-process PageStore with the same visible semantics
// as the Mongo backend, including insert-sequence signatures and the
// all-or-nothing keyword swap. It backs tests.
type MemoryStore struct {
	mu         sync.RWMutex
	pages      map[string]types.IndexedPage
	seqs       map[string]int64
	keywords   map[string][]string
	heartbeats map[string]types.HeartbeatRecord
	nextSeq    int64
}

// NewMemoryStore creates an empty in-memory store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		pages:      make(map[string]types.IndexedPage),
		seqs:       make(map[string]int64),
		keywords:   make(map[string][]string),
		heartbeats: make(map[string]types.HeartbeatRecord),
	}
}

func (s *MemoryStore) UpsertPage(_ context.Context, page types.IndexedPage) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, exists := s.pages[page.URL]
	if !exists {
		s.nextSeq++
		s.seqs[page.URL] = s.nextSeq
	}
	s.pages[page.URL] = page
	return !exists, nil
}

func (s *MemoryStore) LoadPages(_ context.Context) ([]types.IndexedPage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	pages := make([]types.IndexedPage, 0, len(s.pages))
	for _, p := range s.pages {
		pages = append(pages, p)
	}
	sort.Slice(pages, func(i, j int) bool { return s.seqs[pages[i].URL] < s.seqs[pages[j].URL] })
	return pages, nil
}

func (s *MemoryStore) Signature(_ context.Context) (Signature, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sig := Signature{Count: int64(len(s.pages))}
	for _, seq := range s.seqs {
		if seq > sig.MaxSeq {
			sig.MaxSeq = seq
		}
	}
	return sig, nil
}

func (s *MemoryStore) ReplaceKeywordIndex(_ context.Context, index map[string][]string) error {
	replacement := make(map[string][]string, len(index))
	for k, urls := range index {
		replacement[k] = append([]string(nil), urls...)
	}
	s.mu.Lock()
	s.keywords = replacement
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) LookupKeyword(_ context.Context, keyword string) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	urls, ok := s.keywords[keyword]
	if !ok {
		return []string{}, nil
	}
	return append([]string(nil), urls...), nil
}

func (s *MemoryStore) UpsertHeartbeat(_ context.Context, rec types.HeartbeatRecord) error {
	s.mu.Lock()
	s.heartbeats[rec.NodeID] = rec
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) ListHeartbeats(_ context.Context) ([]types.HeartbeatRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	recs := make([]types.HeartbeatRecord, 0, len(s.heartbeats))
	for _, r := range s.heartbeats {
		recs = append(recs, r)
	}
	sort.Slice(recs, func(i, j int) bool { return recs[i].NodeID < recs[j].NodeID })
	return recs, nil
}

func (s *MemoryStore) Reconnect(context.Context) error { return nil }

func (s *MemoryStore) Close(context.Context) error { return nil }
