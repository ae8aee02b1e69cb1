package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

// HeartbeatSender periodically posts this worker's state to the Control
// Service. It keeps running even when the failover gate denies work, so
// a standby's own liveness stays observable.
type HeartbeatSender struct {
	state      *State
	nodeID     string
	role       string
	ip         string
	controlURL string
	interval   time.Duration
	client     *http.Client
	logger     *slog.Logger
}

// NewHeartbeatSender creates a sender for the given worker identity.
func NewHeartbeatSender(state *State, nodeID, role, controlURL string, interval, timeout time.Duration, logger *slog.Logger) *HeartbeatSender {
	return &HeartbeatSender{
		state:      state,
		nodeID:     nodeID,
		role:       role,
		ip:         PrivateIP(),
		controlURL: controlURL,
		interval:   interval,
		client:     &http.Client{Timeout: timeout},
		logger:     logger.With("component", "heartbeat"),
	}
}

// Run posts heartbeats until the context is cancelled.
func (h *HeartbeatSender) Run(ctx context.Context) {
	ticker := time.NewTicker(h.interval)
	defer ticker.Stop()

	for {
		if err := h.send(ctx); err != nil {
			h.logger.Warn("heartbeat failed", "error", err)
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (h *HeartbeatSender) send(ctx context.Context) error {
	urlCount, active, threads := h.state.Snapshot()
	payload := types.Heartbeat{
		NodeID:        h.nodeID,
		Role:          h.role,
		IP:            h.ip,
		URLCount:      urlCount,
		ActiveThreads: active,
		ThreadsInfo:   threads,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, h.controlURL+"/api/heartbeat", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := h.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("heartbeat rejected: HTTP %d", resp.StatusCode)
	}
	return nil
}

// PrivateIP discovers this host's outbound interface address by dialing
// a UDP socket; no packets are sent. Falls back to loopback.
func PrivateIP() string {
	conn, err := net.Dial("udp", "10.255.255.255:1")
	if err != nil {
		return "127.0.0.1"
	}
	defer conn.Close()
	if addr, ok := conn.LocalAddr().(*net.UDPAddr); ok {
		return addr.IP.String()
	}
	return "127.0.0.1"
}
