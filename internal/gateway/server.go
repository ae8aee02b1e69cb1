package gateway

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/config"
)

// Server is the browser-facing gateway. It serves the monitoring page
// and forwards submissions, searches and status polls to the Control
// Service, so browsers never need to reach the coordination plane
// directly.
type Server struct {
	cfg    *config.GatewayConfig
	client *http.Client
	logger *slog.Logger
}

// NewServer builds the gateway.
func NewServer(cfg *config.GatewayConfig, logger *slog.Logger) *Server {
	return &Server{
		cfg:    cfg,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: logger.With("component", "gateway"),
	}
}

// Handler returns the HTTP routing table.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/crawl", s.forward("/api/crawl"))
	mux.HandleFunc("/search", s.forward("/api/search"))
	mux.HandleFunc("/status", s.forward("/api/status"))
	mux.HandleFunc("/heartbeat", s.forward("/api/heartbeat"))
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		fmt.Fprint(w, "pong")
	})
	return mux
}

// Run serves until the context is cancelled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", s.cfg.Port),
		Handler: s.Handler(),
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("gateway listening", "addr", srv.Addr, "control_url", s.cfg.ControlURL)
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

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	fmt.Fprint(w, monitorPage)
}

// forward proxies a gateway request to the equivalent Control Service
// endpoint, preserving method, query string and body.
func (s *Server) forward(controlPath string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		target := s.cfg.ControlURL + controlPath
		if r.URL.RawQuery != "" {
			target += "?" + r.URL.RawQuery
		}

		req, err := http.NewRequestWithContext(r.Context(), r.Method, target, r.Body)
		if err != nil {
			http.Error(w, "bad gateway request", http.StatusInternalServerError)
			return
		}
		if ct := r.Header.Get("Content-Type"); ct != "" {
			req.Header.Set("Content-Type", ct)
		}

		resp, err := s.client.Do(req)
		if err != nil {
			s.logger.Warn("control service unreachable", "path", controlPath, "error", err)
			http.Error(w, "control service unavailable", http.StatusBadGateway)
			return
		}
		defer resp.Body.Close()

		if ct := resp.Header.Get("Content-Type"); ct != "" {
			w.Header().Set("Content-Type", ct)
		}
		w.WriteHeader(resp.StatusCode)
		if _, err := io.Copy(w, resp.Body); err != nil {
			s.logger.Debug("response copy interrupted", "path", controlPath, "error", err)
		}
	}
}
