package failover

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"
)

// Gate decides whether a standby rank may consume work. A rank is
// allowed only when every higher-priority rank of its role is reported
// inactive by the Control Service. Any endpoint failure denies work
// (fail-closed), so a partition never produces duplicate primaries.
//
// The primary rank holds no endpoints and is always allowed.
type Gate struct {
	endpoints []string
	client    *http.Client
	logger    *slog.Logger
}

// NewGate builds the gate for a worker of the given role and 1-based
// rank. Rank 1 gets an unconditional gate; rank k checks the liveness
// endpoints of ranks 1..k-1 in priority order.
func NewGate(controlURL, role string, rank int, timeout time.Duration, logger *slog.Logger) *Gate {
	var endpoints []string
	for i := 1; i < rank; i++ {
		endpoints = append(endpoints, fmt.Sprintf("%s/api/%s%d-status", controlURL, role, i))
	}
	return &Gate{
		endpoints: endpoints,
		client:    &http.Client{Timeout: timeout},
		logger:    logger.With("component", "failover_gate"),
	}
}

// Allowed evaluates the gate. Standbys call this at the top of every
// loop iteration; when denied they must not touch the task queue.
func (g *Gate) Allowed(ctx context.Context) bool {
	for _, endpoint := range g.endpoints {
		active, err := g.rankActive(ctx, endpoint)
		if err != nil {
			g.logger.Debug("liveness check failed, staying standby", "endpoint", endpoint, "error", err)
			return false
		}
		if active {
			return false
		}
	}
	return true
}

// Primary reports whether this gate belongs to the primary rank.
func (g *Gate) Primary() bool {
	return len(g.endpoints) == 0
}

func (g *Gate) rankActive(ctx context.Context, endpoint string) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return false, err
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return false, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return false, fmt.Errorf("liveness endpoint returned HTTP %d", resp.StatusCode)
	}

	var body struct {
		Active bool `json:"active"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&body); err != nil {
		return false, err
	}
	return body.Active, nil
}
