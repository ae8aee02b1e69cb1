package queue

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Message is a single received queue message. Handle identifies this
// delivery; it must be passed to Delete to ack the message before the
// visibility timeout expires, otherwise the message is redelivered.
type Message struct {
	Body   []byte
	Handle string
}

// Queue is the durable message bus contract the pipeline is built on.
// Delivery is at-least-once: consumers must make handlers idempotent.
type Queue interface {
	// Send enqueues a message body. A non-empty dedupKey lets the queue
	// collapse obvious retransmits inside its dedup window; correctness
	// never depends on it.
	Send(ctx context.Context, queue string, body []byte, dedupKey string) error

	// Receive long-polls for up to wait and returns at most max
	// messages. Received messages become invisible until deleted or
	// until the visibility timeout lapses.
	Receive(ctx context.Context, queue string, max int, wait time.Duration) ([]Message, error)

	// Delete acks a received message by its delivery handle. Deleting a
	// handle whose visibility lease has already been lost is a no-op.
	Delete(ctx context.Context, queue string, handle string) error
}

// DedupID derives a name-based UUIDv5 from a dedup key (normally the
// task URL), matching the ids supplied to FIFO queue backends.
func DedupID(key string) string {
	return uuid.NewSHA1(uuid.NameSpaceDNS, []byte(key)).String()
}
