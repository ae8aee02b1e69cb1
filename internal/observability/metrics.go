package observability

import (
	"fmt"
	"log/slog"
	"net/http"
	"sync/atomic"
)

// Metrics tracks operational counters for the crawl pipeline. All
// fields are atomic so worker threads update them without locking.
type Metrics struct {
	// Fetch metrics
	FetchesTotal  atomic.Int64
	FetchesFailed atomic.Int64

	// Task metrics
	TasksReceived atomic.Int64
	TasksDropped  atomic.Int64
	TasksEmitted  atomic.Int64

	// Index metrics
	PagesIndexed   atomic.Int64
	PagesReplayed  atomic.Int64
	IndexRefreshes atomic.Int64

	// Worker metrics
	ActiveThreads   atomic.Int32
	GateDenials     atomic.Int64
	BytesDownloaded atomic.Int64

	logger *slog.Logger
}

// NewMetrics creates a new Metrics instance.
func NewMetrics(logger *slog.Logger) *Metrics {
	return &Metrics{
		logger: logger.With("component", "metrics"),
	}
}

// ServeHTTP serves metrics in Prometheus text exposition format.
func (m *Metrics) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; version=0.0.4; charset=utf-8")

	metrics := []struct {
		name  string
		help  string
		value int64
	}{
		{"crawlgrid_fetches_total", "Total page fetches attempted", m.FetchesTotal.Load()},
		{"crawlgrid_fetches_failed_total", "Total failed page fetches", m.FetchesFailed.Load()},
		{"crawlgrid_tasks_received_total", "Total tasks received from the queue", m.TasksReceived.Load()},
		{"crawlgrid_tasks_dropped_total", "Total tasks dropped (junk URL or depth exhausted)", m.TasksDropped.Load()},
		{"crawlgrid_tasks_emitted_total", "Total child tasks emitted", m.TasksEmitted.Load()},
		{"crawlgrid_pages_indexed_total", "Total pages written to the store", m.PagesIndexed.Load()},
		{"crawlgrid_pages_replayed_total", "Total duplicate page deliveries absorbed", m.PagesReplayed.Load()},
		{"crawlgrid_index_refreshes_total", "Total inverted-index rebuilds", m.IndexRefreshes.Load()},
		{"crawlgrid_active_threads", "Currently active worker threads", int64(m.ActiveThreads.Load())},
		{"crawlgrid_gate_denials_total", "Total loop iterations denied by the failover gate", m.GateDenials.Load()},
		{"crawlgrid_bytes_downloaded_total", "Total bytes downloaded", m.BytesDownloaded.Load()},
	}

	for _, metric := range metrics {
		fmt.Fprintf(w, "# HELP %s %s\n", metric.name, metric.help)
		fmt.Fprintf(w, "# TYPE %s counter\n", metric.name)
		fmt.Fprintf(w, "%s %d\n", metric.name, metric.value)
	}
}

// StartServer starts the metrics HTTP server.
func (m *Metrics) StartServer(port int, path string) error {
	mux := http.NewServeMux()
	mux.Handle(path, m)
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, "ok")
	})

	addr := fmt.Sprintf(":%d", port)
	m.logger.Info("metrics server starting", "addr", addr, "path", path)

	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			m.logger.Error("metrics server error", "error", err)
		}
	}()

	return nil
}

// Snapshot returns all metrics as a map.
func (m *Metrics) Snapshot() map[string]int64 {
	return map[string]int64{
		"fetches_total":    m.FetchesTotal.Load(),
		"fetches_failed":   m.FetchesFailed.Load(),
		"tasks_received":   m.TasksReceived.Load(),
		"tasks_dropped":    m.TasksDropped.Load(),
		"tasks_emitted":    m.TasksEmitted.Load(),
		"pages_indexed":    m.PagesIndexed.Load(),
		"pages_replayed":   m.PagesReplayed.Load(),
		"index_refreshes":  m.IndexRefreshes.Load(),
		"active_threads":   int64(m.ActiveThreads.Load()),
		"gate_denials":     m.GateDenials.Load(),
		"bytes_downloaded": m.BytesDownloaded.Load(),
	}
}
