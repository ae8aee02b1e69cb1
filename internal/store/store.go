package store

import (
	"context"

	"github.com/crawlgrid/crawlgrid/internal/types"
)

// Signature is the change signature of the page store: row count plus
// the highest insert sequence. The Index Refresher compares consecutive
// signatures to decide whether a rebuild is due.
type Signature struct {
	Count  int64
	MaxSeq int64
}

// PageStore is the durable state shared by indexers, the refresher, and
// the Control Service: indexed pages, the inverted keyword index, and
// the heartbeat table.
type PageStore interface {
	// UpsertPage inserts a page or replaces its content and object id.
	// The URL is the key; redelivered payloads are safe to replay. The
	// returned flag reports whether a new row was inserted rather than
	// an existing one replaced.
	UpsertPage(ctx context.Context, page types.IndexedPage) (inserted bool, err error)

	// LoadPages returns every indexed page.
	LoadPages(ctx context.Context) ([]types.IndexedPage, error)

	// Signature returns the current change signature.
	Signature(ctx context.Context) (Signature, error)

	// ReplaceKeywordIndex atomically swaps the whole keyword table for
	// the given keyword -> URLs mapping. Readers see the old index or
	// the new one, never a partial rebuild.
	ReplaceKeywordIndex(ctx context.Context, index map[string][]string) error

	// LookupKeyword returns the URL list for one keyword; a missing
	// keyword yields an empty list, not an error.
	LookupKeyword(ctx context.Context, keyword string) ([]string, error)

	// UpsertHeartbeat records a worker heartbeat row.
	UpsertHeartbeat(ctx context.Context, rec types.HeartbeatRecord) error

	// ListHeartbeats returns every known heartbeat row.
	ListHeartbeats(ctx context.Context) ([]types.HeartbeatRecord, error)

	// Reconnect tears down and reopens the underlying connection after
	// a transient error.
	Reconnect(ctx context.Context) error

	// Close releases the connection.
	Close(ctx context.Context) error
}
