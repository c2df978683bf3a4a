package app

import (
	"sync"

	"github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"
)

// IngestionQueue is the bounded FIFO admission point for formatted messages.
// Many ingress handlers enqueue concurrently; the worker is the only consumer.
type IngestionQueue struct {
	mu       sync.Mutex
	items    []domain.Message
	capacity int
	nextSeq  uint64
	onAdmit  func()
}

// QueueOption configures an IngestionQueue.
type QueueOption func(*IngestionQueue)

// WithAdmitHook sets a function called under the queue lock for every
// admitted message, before any Drain can observe it.
func WithAdmitHook(fn func()) QueueOption {
	return func(q *IngestionQueue) { q.onAdmit = fn }
}

// NewIngestionQueue creates a queue holding at most capacity messages.
func NewIngestionQueue(capacity int, opts ...QueueOption) *IngestionQueue {
	q := &IngestionQueue{
		items:    make([]domain.Message, 0, capacity),
		capacity: capacity,
	}
	for _, opt := range opts {
		opt(q)
	}
	return q
}

// Enqueue admits a formatted event and assigns its sequence number.
// Returns domain.ErrQueueFull without touching existing entries when at capacity.
func (q *IngestionQueue) Enqueue(ev domain.RawEvent, text string) (domain.Message, error) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if len(q.items) >= q.capacity {
		return domain.Message{}, domain.ErrQueueFull
	}

	q.nextSeq++
	msg := domain.Message{
		Seq:        q.nextSeq,
		ReceivedAt: ev.ReceivedAt,
		Text:       text,
		Channel:    ev.Channel,
	}
	q.items = append(q.items, msg)
	if q.onAdmit != nil {
		q.onAdmit()
	}
	return msg, nil
}

// Drain removes and returns up to max of the oldest messages.
func (q *IngestionQueue) Drain(max int) []domain.Message {
	if max <= 0 {
		return nil
	}

	q.mu.Lock()
	defer q.mu.Unlock()

	n := len(q.items)
	if n == 0 {
		return nil
	}
	if max < n {
		n = max
	}

	out := make([]domain.Message, n)
	copy(out, q.items[:n])
	q.items = append(q.items[:0], q.items[n:]...)
	return out
}

// Len returns the number of queued messages.
func (q *IngestionQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

// Cap returns the queue capacity.
func (q *IngestionQueue) Cap() int {
	return q.capacity
}
