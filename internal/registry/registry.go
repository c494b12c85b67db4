package registry

import (
	"context"
	"errors"
	"sort"
	"sync"

	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// ErrAlreadyConnected is returned by Join for an id that is already
// registered.
var ErrAlreadyConnected = errors.New("subscriber already connected")

// SubscriberID identifies one connected subscriber.
type SubscriberID string

// Item is one queued message for a subscriber's writer.
type Item struct {
	Kind    string
	Payload []byte
}

// Sink is implemented by transports to receive dispatched payloads.
type Sink interface {
	Send(Item) error
	Context() context.Context
	Flush() error
}

type conn struct {
	sink Sink
	ch   chan Item
	done chan struct{}
	once sync.Once
}

// close signals shutdown via done. ch itself is never closed: Send may be
// selecting on it concurrently, and sending into a channel another goroutine
// closes is a panic.
func (c *conn) close() { c.once.Do(func() { close(c.done) }) }

// Registry tracks connected subscribers. All methods are safe for
// concurrent use.
type Registry struct {
	logger logpkg.Logger
	bufLen int

	mu    sync.RWMutex
	conns map[SubscriberID]*conn
}

// NewRegistry returns a registry whose per-subscriber writer queues hold
// bufLen items.
func NewRegistry(bufLen int, logger logpkg.Logger) *Registry {
	if bufLen <= 0 {
		bufLen = 1024
	}
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &Registry{
		logger: logger.With(logpkg.Component("registry")),
		bufLen: bufLen,
		conns:  map[SubscriberID]*conn{},
	}
}

// Join registers a subscriber sink and starts its async writer. The writer
// runs until Leave is called or the sink's context ends.
func (r *Registry) Join(id SubscriberID, sink Sink) error {
	c := &conn{sink: sink, ch: make(chan Item, r.bufLen), done: make(chan struct{})}
	r.mu.Lock()
	if _, exists := r.conns[id]; exists {
		r.mu.Unlock()
		return ErrAlreadyConnected
	}
	r.conns[id] = c
	r.mu.Unlock()

	go r.writeLoop(id, c)
	r.logger.Debug("subscriber joined", logpkg.Str("subscriber", string(id)))
	return nil
}

// Leave disconnects a subscriber. Queued items are dropped.
func (r *Registry) Leave(id SubscriberID) {
	r.mu.Lock()
	c, ok := r.conns[id]
	if ok {
		delete(r.conns, id)
	}
	r.mu.Unlock()
	if ok {
		c.close()
		r.logger.Debug("subscriber left", logpkg.Str("subscriber", string(id)))
	}
}

// leaveConn removes id only while it still maps to c. A writer that exits
// after its subscriber re-joined with the same id must not evict the fresh
// connection.
func (r *Registry) leaveConn(id SubscriberID, c *conn) {
	r.mu.Lock()
	cur, ok := r.conns[id]
	if ok && cur == c {
		delete(r.conns, id)
	} else {
		ok = false
	}
	r.mu.Unlock()
	c.close()
	if ok {
		r.logger.Debug("subscriber left", logpkg.Str("subscriber", string(id)))
	}
}

// Connected returns the current subscriber ids in sorted order, so a
// fan-out pass visits subscribers deterministically.
func (r *Registry) Connected() []SubscriberID {
	r.mu.RLock()
	ids := make([]SubscriberID, 0, len(r.conns))
	for id := range r.conns {
		ids = append(ids, id)
	}
	r.mu.RUnlock()
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// Count returns the number of connected subscribers.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.conns)
}

// Send queues a payload for one subscriber. It never blocks: a full queue
// drops the item, warns, and reports failure, as does an unknown id.
func (r *Registry) Send(id SubscriberID, kind string, payload []byte) bool {
	r.mu.RLock()
	c, ok := r.conns[id]
	r.mu.RUnlock()
	if !ok {
		return false
	}
	select {
	case c.ch <- Item{Kind: kind, Payload: payload}:
		return true
	case <-c.done:
		return false
	default:
		r.logger.Warn("subscriber queue full, dropping payload",
			logpkg.Str("subscriber", string(id)), logpkg.Str("kind", kind))
		return false
	}
}

// writeLoop decouples dispatch from the transport: queued sends, flush
// once the queue drains, exit when the sink's context ends.
func (r *Registry) writeLoop(id SubscriberID, c *conn) {
	defer r.leaveConn(id, c)
	ctx := c.sink.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	for {
		select {
		case it := <-c.ch:
			if err := c.sink.Send(it); err != nil {
				r.logger.Debug("subscriber send failed",
					logpkg.Str("subscriber", string(id)), logpkg.Err(err))
				return
			}
			if len(c.ch) == 0 {
				_ = c.sink.Flush()
			}
		case <-c.done:
			return
		case <-ctx.Done():
			return
		}
	}
}
