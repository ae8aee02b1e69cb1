package worker

import (
	"sort"
	"strings"
	"sync"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

// Thread status labels shown in the monitoring UI.
const (
	StatusWaiting = "Waiting for task"
	StatusStandby = "Standby"
	StatusIdle    = "Idle"
)

// State is the worker-local mutable state shared between the worker
// threads and the heartbeat sender: the URL counter and the per-thread
// status map. One mutex guards both so heartbeat snapshots are
// consistent.
type State struct {
	mu       sync.Mutex
	urlCount int64
	threads  map[string]string
}

// NewState creates an empty worker state.
func NewState() *State {
	return &State{threads: make(map[string]string)}
}

// SetThreadStatus records a thread's current activity.
func (s *State) SetThreadStatus(thread, status string) {
	s.mu.Lock()
	s.threads[thread] = status
	s.mu.Unlock()
}

// IncrementURLs bumps the processed-URL counter.
func (s *State) IncrementURLs() {
	s.mu.Lock()
	s.urlCount++
	s.mu.Unlock()
}

// URLCount returns the processed-URL counter.
func (s *State) URLCount() int64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.urlCount
}

// Snapshot returns the counter, the active-thread count, and the thread
// statuses (sorted by thread id) as one consistent view.
func (s *State) Snapshot() (int64, int, []types.ThreadInfo) {
	s.mu.Lock()
	defer s.mu.Unlock()

	infos := make([]types.ThreadInfo, 0, len(s.threads))
	active := 0
	for id, status := range s.threads {
		infos = append(infos, types.ThreadInfo{ID: id, Status: status})
		if isActiveStatus(status) {
			active++
		}
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return s.urlCount, active, infos
}

func isActiveStatus(status string) bool {
	return strings.HasPrefix(status, "Crawling ") || strings.HasPrefix(status, "Indexing ")
}
