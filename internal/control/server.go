package control

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
	"github.com/crawlgrid/crawlgrid/internal/queue"
	"github.com/crawlgrid/crawlgrid/internal/search"
	"github.com/crawlgrid/crawlgrid/internal/store"
	"github.com/crawlgrid/crawlgrid/internal/types"
)

// Server is the Control Service: the coordination plane the whole
// pipeline talks to. It accepts crawl submissions, answers searches,
// ingests heartbeats, and exposes the aggregated fleet status plus the
// per-rank liveness endpoints the failover gates poll.
type Server struct {
	store  store.PageStore
	queue  queue.Queue
	cfg    *config.Config
	logger *slog.Logger
	clock  func() time.Time

	mu         sync.Mutex
	threads    map[string][]types.ThreadInfo
	prevCounts map[string]int64
}

// NewServer builds the Control Service.
func NewServer(st store.PageStore, q queue.Queue, cfg *config.Config, logger *slog.Logger) *Server {
	return &Server{
		store:      st,
		queue:      q,
		cfg:        cfg,
		logger:     logger.With("component", "control"),
		clock:      time.Now,
		threads:    make(map[string][]types.ThreadInfo),
		prevCounts: make(map[string]int64),
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/api/crawl", s.handleCrawl)
	mux.HandleFunc("/api/search", s.handleSearch)
	mux.HandleFunc("/api/heartbeat", s.handleHeartbeat)
	mux.HandleFunc("/api/status", s.handleStatus)
	mux.HandleFunc("/ping", s.handlePing)

	for rank := range s.cfg.Control.Ranks {
		role, idx, ok := splitRank(rank)
		if !ok {
			s.logger.Warn("ignoring malformed rank name", "rank", rank)
			continue
		}
		rank := rank
		path := fmt.Sprintf("/api/%s%s-status", role, idx)
		mux.HandleFunc(path, func(w http.ResponseWriter, r *http.Request) {
			s.handleRankStatus(w, r, rank, role)
		})
	}
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Control.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("control service listening", "addr", srv.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		return err
	}
}

// crawlRequest is the submission body. MaxDepth stays raw because the
// browser form posts it as a JSON string; coerceMaxDepth normalizes it.
type crawlRequest struct {
	URL              string          `json:"url"`
	MaxDepth         json.RawMessage `json:"max_depth"`
	DomainRestricted bool            `json:"domain_restricted"`
}

// coerceMaxDepth accepts max_depth as a JSON number or a numeric
// string, falling back to the default when absent or unparseable.
func coerceMaxDepth(raw json.RawMessage, fallback int) int {
	if len(raw) == 0 || string(raw) == "null" {
		return fallback
	}
	var n int
	if err := json.Unmarshal(raw, &n); err == nil {
		return n
	}
	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		if v, convErr := strconv.Atoi(strings.TrimSpace(s)); convErr == nil {
			return v
		}
	}
	return fallback
}

func (s *Server) handleCrawl(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var req crawlRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	raw := strings.TrimSpace(req.URL)
	if raw == "" || !config.ValidSubmitURL(raw) {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}
	if !strings.HasPrefix(raw, "http://") && !strings.HasPrefix(raw, "https://") {
		raw = "https://" + raw
	}

	parsed, err := url.Parse(raw)
	if err != nil || parsed.Host == "" {
		writeError(w, http.StatusBadRequest, "Invalid URL")
		return
	}

	maxDepth := coerceMaxDepth(req.MaxDepth, s.cfg.Control.DefaultMaxDepth)
	if maxDepth < 0 {
		writeError(w, http.StatusBadRequest, "max_depth must be >= 0")
		return
	}

	task := types.CrawlTask{
		URL:            raw,
		Depth:          0,
		MaxDepth:       maxDepth,
		RestrictDomain: req.DomainRestricted,
	}
	if req.DomainRestricted {
		task.DomainPrefix = parsed.Scheme + "://" + parsed.Host
	}

	body, err := task.Encode()
	if err != nil {
		writeError(w, http.StatusInternalServerError, "failed to encode task")
		return
	}
	if err := s.queue.Send(r.Context(), s.cfg.Queue.TaskQueue, body, task.URL); err != nil {
		s.logger.Error("task enqueue failed", "url", raw, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to enqueue crawl task")
		return
	}

	s.logger.Info("crawl submitted", "url", raw, "max_depth", maxDepth, "domain_restricted", req.DomainRestricted)
	writeJSON(w, http.StatusOK, map[string]string{
		"message": fmt.Sprintf("URL '%s' submitted for crawling with max depth %d.", raw, maxDepth),
	})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	keyword := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("keyword")))
	if keyword == "" {
		writeError(w, http.StatusBadRequest, "Keyword is required")
		return
	}

	pages, err := s.store.LoadPages(r.Context())
	if err != nil {
		s.logger.Error("page load failed", "error", err)
		writeError(w, http.StatusInternalServerError, "search unavailable")
		return
	}

	docs := make([]search.Document, len(pages))
	for i, p := range pages {
		docs[i] = search.Document{URL: p.URL, Content: p.Content}
	}

	results := search.Rank(docs, keyword)
	urls := make([]string, 0, len(results))
	for _, res := range results {
		urls = append(urls, res.URL)
	}
	writeJSON(w, http.StatusOK, map[string]any{"keyword": keyword, "urls": urls})
}

func (s *Server) handleHeartbeat(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "POST required")
		return
	}

	var hb types.Heartbeat
	if err := json.NewDecoder(r.Body).Decode(&hb); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if !hb.Valid() {
		writeError(w, http.StatusBadRequest, "heartbeat requires node_id, role and ip")
		return
	}

	rec := types.HeartbeatRecord{
		NodeID:   hb.NodeID,
		Role:     hb.Role,
		IP:       hb.IP,
		LastSeen: s.clock(),
		URLCount: hb.URLCount,
	}
	if err := s.store.UpsertHeartbeat(r.Context(), rec); err != nil {
		s.logger.Error("heartbeat upsert failed", "node", hb.NodeID, "error", err)
		writeError(w, http.StatusInternalServerError, "failed to record heartbeat")
		return
	}

	// Thread details stay in memory; only identity and counters are durable.
	s.mu.Lock()
	s.threads[hb.NodeID] = hb.ThreadsInfo
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, map[string]string{"message": "ok"})
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	recs, err := s.store.ListHeartbeats(r.Context())
	if err != nil {
		s.logger.Error("heartbeat list failed", "error", err)
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	detailed := r.URL.Query().Get("detailed") == "true"
	now := s.clock()
	reports := make([]types.NodeReport, 0, len(recs))

	s.mu.Lock()
	for _, rec := range recs {
		report := types.NodeReport{
			NodeID:   rec.NodeID,
			Role:     rec.Role,
			IP:       rec.IP,
			URLCount: rec.URLCount,
			LastSeen: rec.LastSeen,
			Status:   s.deriveStatusLocked(rec, now),
		}
		// Per-thread detail is opt-in; the summary view stays small.
		if detailed {
			report.ThreadsInfo = s.threads[rec.NodeID]
		}
		reports = append(reports, report)
	}
	s.mu.Unlock()

	writeJSON(w, http.StatusOK, reports)
}

// deriveStatusLocked classifies one node. A stale heartbeat wins over
// everything; otherwise the node is running exactly when its URL
// counter moved since the previous status poll. Callers hold s.mu.
func (s *Server) deriveStatusLocked(rec types.HeartbeatRecord, now time.Time) string {
	if now.Sub(rec.LastSeen) > s.cfg.Control.StaleAfter {
		return types.StatusNotActive
	}
	prev, seen := s.prevCounts[rec.NodeID]
	s.prevCounts[rec.NodeID] = rec.URLCount
	if seen && rec.URLCount > prev {
		return types.StatusRunning
	}
	return types.StatusIdle
}

// handleRankStatus answers one per-rank liveness probe: active means the
// bound node's heartbeat is younger than the role's liveness threshold.
// An unbound rank or a missing heartbeat reads as inactive, which lets
// the next standby take over.
func (s *Server) handleRankStatus(w http.ResponseWriter, r *http.Request, rank, role string) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "GET required")
		return
	}

	nodeID := s.cfg.Control.Ranks[rank]
	if nodeID == "" {
		writeJSON(w, http.StatusOK, map[string]bool{"active": false})
		return
	}

	recs, err := s.store.ListHeartbeats(r.Context())
	if err != nil {
		s.logger.Error("heartbeat list failed", "rank", rank, "error", err)
		writeError(w, http.StatusInternalServerError, "status unavailable")
		return
	}

	threshold := s.cfg.Control.CrawlerLiveness
	if role == types.RoleIndexer {
		threshold = s.cfg.Control.IndexerLiveness
	}

	active := false
	now := s.clock()
	for _, rec := range recs {
		if rec.NodeID == nodeID && now.Sub(rec.LastSeen) <= threshold {
			active = true
			break
		}
	}
	writeJSON(w, http.StatusOK, map[string]bool{"active": active})
}

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	fmt.Fprint(w, "pong")
}

// splitRank parses a rank name like "crawler-1" into its role and index.
func splitRank(rank string) (role, idx string, ok bool) {
	role, idx, ok = strings.Cut(rank, "-")
	if !ok || role == "" || idx == "" {
		return "", "", false
	}
	return role, idx, true
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(body)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
