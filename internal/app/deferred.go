package app

import "github.com/Nopitch/Bridge-webhook-tot-discord/internal/domain"

// DeferredBuffer holds messages that missed dispatch in an earlier cycle.
// It is owned by the worker goroutine and is not synchronized.
type DeferredBuffer struct {
	items    []domain.Message
	capacity int
}

// NewDeferredBuffer creates a buffer holding at most capacity messages.
func NewDeferredBuffer(capacity int) *DeferredBuffer {
	return &DeferredBuffer{capacity: capacity}
}

// Len returns the number of deferred messages.
func (b *DeferredBuffer) Len() int {
	return len(b.items)
}

// Take removes and returns every deferred message, oldest first.
func (b *DeferredBuffer) Take() []domain.Message {
	out := b.items
	b.items = nil
	return out
}

// Push appends msgs in order. When the buffer would exceed its capacity the
// oldest excess messages are evicted and returned.
func (b *DeferredBuffer) Push(msgs []domain.Message) (dropped []domain.Message) {
	b.items = append(b.items, msgs...)

	over := len(b.items) - b.capacity
	if over <= 0 {
		return nil
	}

	dropped = append([]domain.Message(nil), b.items[:over]...)
	b.items = append([]domain.Message(nil), b.items[over:]...)
	return dropped
}
