package queue

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// MemoryQueue is an in-process Queue with the same at-least-once,
// visibility-timeout semantics as the Mongo backend. It backs tests and
// single-process deployments.
type MemoryQueue struct {
	mu                sync.Mutex
	queues            map[string][]*memMessage
	dedup             map[string]time.Time
	visibilityTimeout time.Duration
	dedupWindow       time.Duration
	nextID            int
}

type memMessage struct {
	id           int
	body         []byte
	visibleAfter time.Time
	claim        string
}

// NewMemoryQueue creates an in-memory queue.
func NewMemoryQueue(visibilityTimeout, dedupWindow time.Duration) *MemoryQueue {
	return &MemoryQueue{
		queues:            make(map[string][]*memMessage),
		dedup:             make(map[string]time.Time),
		visibilityTimeout: visibilityTimeout,
		dedupWindow:       dedupWindow,
	}
}

// Send enqueues a message, collapsing duplicates inside the dedup window.
func (q *MemoryQueue) Send(ctx context.Context, queue string, body []byte, dedupKey string) error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if dedupKey != "" && q.dedupWindow > 0 {
		key := queue + "/" + DedupID(dedupKey)
		if seen, ok := q.dedup[key]; ok && time.Since(seen) < q.dedupWindow {
			return nil
		}
		q.dedup[key] = time.Now()
	}

	q.nextID++
	q.queues[queue] = append(q.queues[queue], &memMessage{
		id:           q.nextID,
		body:         append([]byte(nil), body...),
		visibleAfter: time.Now(),
	})
	return nil
}

// Receive claims up to max visible messages, polling until wait expires.
func (q *MemoryQueue) Receive(ctx context.Context, queue string, max int, wait time.Duration) ([]Message, error) {
	if max < 1 {
		max = 1
	}
	deadline := time.Now().Add(wait)

	for {
		msgs := q.claim(queue, max)
		if len(msgs) > 0 || time.Now().After(deadline) {
			return msgs, nil
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(5 * time.Millisecond):
		}
	}
}

func (q *MemoryQueue) claim(queue string, max int) []Message {
	q.mu.Lock()
	defer q.mu.Unlock()

	now := time.Now()
	var msgs []Message
	for _, m := range q.queues[queue] {
		if len(msgs) >= max {
			break
		}
		if m.visibleAfter.After(now) {
			continue
		}
		m.visibleAfter = now.Add(q.visibilityTimeout)
		m.claim = fmt.Sprintf("claim-%d-%d", m.id, now.UnixNano())
		msgs = append(msgs, Message{
			Body:   append([]byte(nil), m.body...),
			Handle: fmt.Sprintf("%d:%s", m.id, m.claim),
		})
	}
	return msgs
}

// Delete acks a claimed message; a stale handle is a no-op.
func (q *MemoryQueue) Delete(ctx context.Context, queue string, handle string) error {
	var id int
	var claim string
	if _, err := fmt.Sscanf(handle, "%d:", &id); err != nil {
		return fmt.Errorf("malformed handle %q", handle)
	}
	if i := len(fmt.Sprintf("%d:", id)); i <= len(handle) {
		claim = handle[i:]
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	msgs := q.queues[queue]
	for i, m := range msgs {
		if m.id == id && m.claim == claim {
			q.queues[queue] = append(msgs[:i], msgs[i+1:]...)
			return nil
		}
	}
	return nil
}

// Len reports how many messages (visible or in flight) remain on a queue.
func (q *MemoryQueue) Len(queue string) int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.queues[queue])
}
