package market

import (
	"sync"
	"time"
)

// Buffer accumulates ingested events until the emitter drains them.
// Producers call Append; the single consumer calls Drain. Appends signal a
// broadcast channel so callers can block for new events without polling.
type Buffer struct {
	mu       sync.Mutex
	pending  Batch
	notifyCh chan struct{}
}

// NewBuffer returns an empty buffer.
func NewBuffer() *Buffer {
	return &Buffer{notifyCh: make(chan struct{})}
}

// Append merges a batch into the pending buffer, preserving per-category
// order, and wakes any waiters.
func (b *Buffer) Append(batch Batch) {
	if batch.Empty() {
		return
	}
	b.mu.Lock()
	b.pending.Append(batch)
	ch := b.notifyCh
	b.notifyCh = make(chan struct{})
	b.mu.Unlock()
	close(ch)
}

// Drain returns the pending batch. When clear is true the buffer is emptied
// atomically with the read, so a second Drain with no intervening Append
// yields an empty batch. The returned batch is never shared: the caller owns
// it exclusively.
func (b *Buffer) Drain(clear bool) Batch {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := b.pending
	if clear {
		b.pending = Batch{}
	}
	return out
}

// Len returns the pending event count.
func (b *Buffer) Len() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.pending.Len()
}

// WaitForAppend blocks until either a new append occurs or timeout elapses.
// It returns true if woken by an append, false on timeout.
func (b *Buffer) WaitForAppend(timeout time.Duration) bool {
	b.mu.Lock()
	ch := b.notifyCh
	b.mu.Unlock()
	if timeout <= 0 {
		<-ch
		return true
	}
	select {
	case <-ch:
		return true
	case <-time.After(timeout):
		return false
	}
}
