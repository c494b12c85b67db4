package registry

import (
	"context"
	"sync"
	"testing"
	"time"
)

// testSink records delivered items.
type testSink struct {
	ctx     context.Context
	mu      sync.Mutex
	items   []Item
	flushes int
	sendErr error
}

func newTestSink() *testSink { return &testSink{ctx: context.Background()} }

func (s *testSink) Send(it Item) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sendErr != nil {
		return s.sendErr
	}
	s.items = append(s.items, it)
	return nil
}

func (s *testSink) Context() context.Context { return s.ctx }

func (s *testSink) Flush() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushes++
	return nil
}

func (s *testSink) received() []Item {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Item, len(s.items))
	copy(out, s.items)
	return out
}

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestJoinSendLeave(t *testing.T) {
	r := NewRegistry(8, nil)
	sink := newTestSink()
	if err := r.Join("sub-1", sink); err != nil {
		t.Fatalf("join: %v", err)
	}
	if !r.Send("sub-1", "emission", []byte(`{}`)) {
		t.Fatalf("send should succeed")
	}
	waitFor(t, func() bool { return len(sink.received()) == 1 })
	got := sink.received()[0]
	if got.Kind != "emission" || string(got.Payload) != `{}` {
		t.Fatalf("item: %+v", got)
	}
	r.Leave("sub-1")
	waitFor(t, func() bool { return r.Count() == 0 })
	if r.Send("sub-1", "emission", nil) {
		t.Fatalf("send after leave must fail")
	}
}

func TestJoinDuplicateID(t *testing.T) {
	r := NewRegistry(1, nil)
	if err := r.Join("dup", newTestSink()); err != nil {
		t.Fatalf("join: %v", err)
	}
	if err := r.Join("dup", newTestSink()); err != ErrAlreadyConnected {
		t.Fatalf("expected ErrAlreadyConnected, got %v", err)
	}
}

func TestConnectedSorted(t *testing.T) {
	r := NewRegistry(1, nil)
	for _, id := range []SubscriberID{"c", "a", "b"} {
		if err := r.Join(id, newTestSink()); err != nil {
			t.Fatalf("join %s: %v", id, err)
		}
	}
	ids := r.Connected()
	if len(ids) != 3 || ids[0] != "a" || ids[1] != "b" || ids[2] != "c" {
		t.Fatalf("ids: %v", ids)
	}
}

func TestSendToUnknownSubscriber(t *testing.T) {
	r := NewRegistry(1, nil)
	if r.Send("nobody", "emission", nil) {
		t.Fatalf("send to unknown id must fail")
	}
}

func TestSinkContextEndDisconnects(t *testing.T) {
	r := NewRegistry(4, nil)
	ctx, cancel := context.WithCancel(context.Background())
	sink := newTestSink()
	sink.ctx = ctx
	if err := r.Join("sub-ctx", sink); err != nil {
		t.Fatalf("join: %v", err)
	}
	cancel()
	waitFor(t, func() bool { return r.Count() == 0 })
}

func TestFullQueueDropsWithoutBlocking(t *testing.T) {
	r := NewRegistry(1, nil)
	// sink whose context never fires and whose writer is stalled by a
	// blocked first send
	block := make(chan struct{})
	sink := &blockingSink{ctx: context.Background(), release: block}
	if err := r.Join("slow", sink); err != nil {
		t.Fatalf("join: %v", err)
	}
	// first item is picked up by the writer, second fills the queue
	r.Send("slow", "emission", []byte("1"))
	waitFor(t, func() bool { return sink.sending() })
	r.Send("slow", "emission", []byte("2"))
	done := make(chan bool, 1)
	go func() { done <- r.Send("slow", "emission", []byte("3")) }()
	select {
	case ok := <-done:
		if ok {
			t.Fatalf("send into a full queue must report failure")
		}
	case <-time.After(time.Second):
		t.Fatalf("send blocked on a full queue")
	}
	close(block)
}

func TestSendDuringDisconnectChurn(t *testing.T) {
	r := NewRegistry(4, nil)
	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				r.Send("churn", "emission", []byte(`{}`))
			}
		}
	}()
	for i := 0; i < 200; i++ {
		if err := r.Join("churn", newTestSink()); err != nil {
			t.Fatalf("join %d: %v", i, err)
		}
		r.Leave("churn")
	}
	close(stop)
	wg.Wait()
	waitFor(t, func() bool { return r.Count() == 0 })
}

func TestStaleWriterDoesNotEvictReconnect(t *testing.T) {
	r := NewRegistry(4, nil)
	block := make(chan struct{})
	old := &blockingSink{ctx: context.Background(), release: block}
	if err := r.Join("sub-r", old); err != nil {
		t.Fatalf("join: %v", err)
	}
	r.Send("sub-r", "emission", []byte("1"))
	waitFor(t, func() bool { return old.sending() })

	// subscriber drops and reconnects with the same id while the old
	// writer is still stuck in its transport send
	r.Leave("sub-r")
	fresh := newTestSink()
	if err := r.Join("sub-r", fresh); err != nil {
		t.Fatalf("rejoin: %v", err)
	}
	close(block)

	if !r.Send("sub-r", "emission", []byte("2")) {
		t.Fatalf("send to fresh connection failed")
	}
	waitFor(t, func() bool { return len(fresh.received()) == 1 })
	deadline := time.Now().Add(200 * time.Millisecond)
	for time.Now().Before(deadline) {
		if r.Count() != 1 {
			t.Fatalf("fresh connection evicted, connected=%d", r.Count())
		}
		time.Sleep(5 * time.Millisecond)
	}
	if !r.Send("sub-r", "emission", []byte("3")) {
		t.Fatalf("fresh connection no longer reachable")
	}
	waitFor(t, func() bool { return len(fresh.received()) == 2 })
}

type blockingSink struct {
	ctx     context.Context
	release chan struct{}
	mu      sync.Mutex
	started bool
}

func (s *blockingSink) Send(Item) error {
	s.mu.Lock()
	s.started = true
	s.mu.Unlock()
	<-s.release
	return nil
}

func (s *blockingSink) Context() context.Context { return s.ctx }
func (s *blockingSink) Flush() error             { return nil }

func (s *blockingSink) sending() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.started
}
