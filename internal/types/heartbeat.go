package types

import "time"

// Roles a worker process can assume.
const (
	RoleCrawler = "crawler"
	RoleIndexer = "indexer"
)

// Node status values derived by the Control Service from heartbeat age
// and URL-counter movement.
const (
	StatusRunning   = "running"
	StatusIdle      = "idle"
	StatusNotActive = "not active"
)

// ThreadInfo describes one worker thread for the monitoring UI. It is
// ephemeral: carried on heartbeats, never persisted.
type ThreadInfo struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// Heartbeat is the wire form a worker POSTs to the Control Service.
type Heartbeat struct {
	NodeID        string       `json:"node_id"`
	Role          string       `json:"role"`
	IP            string       `json:"ip"`
	URLCount      int64        `json:"url_count"`
	ActiveThreads int          `json:"active_threads,omitempty"`
	ThreadsInfo   []ThreadInfo `json:"threads_info,omitempty"`
}

// Valid reports whether the heartbeat carries the required identity fields.
func (h Heartbeat) Valid() bool {
	return h.NodeID != "" && h.Role != "" && h.IP != ""
}

// HeartbeatRecord is the durable heartbeat row, keyed by node id.
type HeartbeatRecord struct {
	NodeID   string    `bson:"_id"       json:"node_id"`
	Role     string    `bson:"role"      json:"role"`
	IP       string    `bson:"ip"        json:"ip"`
	LastSeen time.Time `bson:"last_seen" json:"last_seen"`
	URLCount int64     `bson:"url_count" json:"url_count"`
}

// NodeReport is one row of the /api/status response: the durable record
// plus the derived status and, when requested, the thread sidecar.
type NodeReport struct {
	NodeID      string       `json:"node_id"`
	Role        string       `json:"role"`
	IP          string       `json:"ip"`
	URLCount    int64        `json:"url_count"`
	LastSeen    time.Time    `json:"last_seen"`
	Status      string       `json:"status"`
	ThreadsInfo []ThreadInfo `json:"threads_info,omitempty"`
}

// IndexedPage is a cleaned page stored by the indexer fleet.
type IndexedPage struct {
	URL          string `bson:"_id"            json:"url"`
	Content      string `bson:"content"        json:"content"`
	IndexedObjID string `bson:"indexed_obj_id" json:"indexed_obj_id"`
}

// KeywordEntry maps one keyword to every URL whose content contains it.
// The whole table is rebuilt by each refresh cycle.
type KeywordEntry struct {
	Keyword string   `bson:"_id"  json:"keyword"`
	URLs    []string `bson:"urls" json:"urls"`
}
