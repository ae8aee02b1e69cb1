package types

import (
	"errors"
	"fmt"
	"time"
)

// Sentinel errors for common failure modes.
var (
	ErrInvalidURL    = errors.New("invalid URL")
	ErrMaxDepth      = errors.New("max depth exceeded")
	ErrEmptyResponse = errors.New("empty response body")
	ErrGateDenied    = errors.New("failover gate denied work")
	ErrQueueEmpty    = errors.New("no messages available")
	ErrStopped       = errors.New("worker has been stopped")
)

// FetchError wraps errors that occur during fetching.
type FetchError struct {
	URL        string
	StatusCode int
	Err        error
	Retryable  bool
	RetryAfter time.Duration // populated from Retry-After header on HTTP 429
}

func (e *FetchError) Error() string {
	if e.StatusCode > 0 {
		return fmt.Sprintf("fetch error for %s (status %d): %v", e.URL, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("fetch error for %s: %v", e.URL, e.Err)
}

func (e *FetchError) Unwrap() error { return e.Err }

func (e *FetchError) IsRetryable() bool { return e.Retryable }

// StoreError wraps errors from the page store. Transient errors are
// retried by reconnecting; the caller skips the current cycle.
type StoreError struct {
	Op        string
	Err       error
	Transient bool
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("store error (%s): %v", e.Op, e.Err)
}

func (e *StoreError) Unwrap() error { return e.Err }

// QueueError wraps errors from the task queue. A queue error never acks
// the in-flight message; visibility-timeout redelivery drives the retry.
type QueueError struct {
	Queue string
	Op    string
	Err   error
}

func (e *QueueError) Error() string {
	return fmt.Sprintf("queue error (%s/%s): %v", e.Queue, e.Op, e.Err)
}

func (e *QueueError) Unwrap() error { return e.Err }
