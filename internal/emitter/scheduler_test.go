package emitter

import (
	"context"
	"encoding/json"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/rzbill/surgecast/internal/interest"
	"github.com/rzbill/surgecast/internal/market"
	"github.com/rzbill/surgecast/internal/membership"
	"github.com/rzbill/surgecast/internal/registry"
	"github.com/rzbill/surgecast/internal/settings"
	pebblestore "github.com/rzbill/surgecast/internal/storage/pebble"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

type fakeConns struct {
	mu      sync.Mutex
	ids     []registry.SubscriberID
	sent    map[registry.SubscriberID][][]byte
	panicOn registry.SubscriberID
}

func newFakeConns(ids ...registry.SubscriberID) *fakeConns {
	return &fakeConns{ids: ids, sent: map[registry.SubscriberID][][]byte{}}
}

func (f *fakeConns) Connected() []registry.SubscriberID {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]registry.SubscriberID, len(f.ids))
	copy(out, f.ids)
	return out
}

func (f *fakeConns) Send(id registry.SubscriberID, kind string, payload []byte) bool {
	if id == f.panicOn {
		panic("transport wedged")
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	f.sent[id] = append(f.sent[id], payload)
	return true
}

func (f *fakeConns) sentTo(id registry.SubscriberID) [][]byte {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.sent[id]
}

type schedEnv struct {
	sched     *Scheduler
	buffer    *market.Buffer
	conns     *fakeConns
	store     *settings.Store
	interests *interest.Cache
	filters   *interest.FilterCache
	capture   *logpkg.CaptureOutput
	nowMs     *atomic.Int64
}

func newSchedulerForTest(t *testing.T, conns *fakeConns, groups map[string][]string) *schedEnv {
	t.Helper()
	db, err := pebblestore.Open(pebblestore.Options{DataDir: t.TempDir(), Fsync: pebblestore.FsyncModeNever})
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	logger, capture := logpkg.NewTestLogger()
	store := settings.NewStore(db)
	interests := interest.NewCache(interest.Options{Store: store, Logger: logger})
	filters := interest.NewFilterCache(interest.FilterOptions{Store: store, DefaultMinCount: 2, Logger: logger})
	buffer := market.NewBuffer()

	var now atomic.Int64
	now.Store(1_000_000)

	sched := NewScheduler(Options{
		Buffer:       buffer,
		Conns:        conns,
		Interests:    interests,
		Filters:      filters,
		Resolver:     &membership.StaticResolver{Groups: groups},
		EmitInterval: time.Second,
		PollCadence:  250 * time.Millisecond,
		Logger:       logger,
		NowMs:        func() int64 { return now.Load() },
	})
	return &schedEnv{
		sched: sched, buffer: buffer, conns: conns, store: store,
		interests: interests, filters: filters, capture: capture, nowMs: &now,
	}
}

type wireDoc struct {
	Highs []struct {
		Sym string `json:"sym"`
	} `json:"highs"`
	Lows []struct {
		Sym   string `json:"sym"`
		Count int    `json:"count"`
	} `json:"lows"`
}

func decodeDoc(t *testing.T, raw []byte) wireDoc {
	t.Helper()
	var doc wireDoc
	if err := json.Unmarshal(raw, &doc); err != nil {
		t.Fatalf("decode payload: %v", err)
	}
	return doc
}

func highEvents(symbols ...string) []market.Event {
	out := make([]market.Event, len(symbols))
	for i, s := range symbols {
		out[i] = market.Event{Symbol: s, Count: 1}
	}
	return out
}

func TestZeroSubscribersSkipsWithoutDraining(t *testing.T) {
	conns := newFakeConns()
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})

	if !env.sched.TryCycle(context.Background()) {
		t.Fatalf("cycle attempt should run")
	}
	if env.buffer.Len() != 1 {
		t.Fatalf("buffer drained with zero subscribers")
	}
	if got := env.sched.Stats().LastEmissionMs; got != 0 {
		t.Fatalf("pacing must not advance on a skipped cycle, got %d", got)
	}

	// once a subscriber connects, the queued events flow
	conns.mu.Lock()
	conns.ids = []registry.SubscriberID{"sub-1"}
	conns.mu.Unlock()
	env.sched.TryCycle(context.Background())
	if env.buffer.Len() != 0 {
		t.Fatalf("buffer not drained after subscriber connected")
	}
	if len(conns.sentTo("sub-1")) != 1 {
		t.Fatalf("subscriber did not receive queued events")
	}
}

func TestSingleDrainServesEverySubscriber(t *testing.T) {
	conns := newFakeConns("a", "b")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})

	env.sched.TryCycle(context.Background())
	for _, id := range []registry.SubscriberID{"a", "b"} {
		if len(conns.sentTo(id)) != 1 {
			t.Fatalf("subscriber %s: %d payloads", id, len(conns.sentTo(id)))
		}
	}
	// idempotence of the drain: nothing left for a second pass
	if leftover := env.buffer.Drain(true); leftover.Len() != 0 {
		t.Fatalf("second drain must be empty")
	}
}

func TestEmptyBatchEndsCycleEarly(t *testing.T) {
	conns := newFakeConns("a")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})

	env.sched.TryCycle(context.Background())
	st := env.sched.Stats()
	if st.Cycles != 1 || st.LastEmissionMs == 0 {
		t.Fatalf("pacing must advance on an empty-batch cycle: %+v", st)
	}
	if st.LastNonEmptyMs != 0 {
		t.Fatalf("non-empty bookkeeping advanced on empty batch")
	}
	if len(conns.sentTo("a")) != 0 {
		t.Fatalf("no payload expected for empty batch")
	}
}

func TestPacingHoldsUntilIntervalElapses(t *testing.T) {
	conns := newFakeConns("a")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})

	if !env.sched.TryCycle(context.Background()) {
		t.Fatalf("first cycle should run")
	}
	if env.sched.TryCycle(context.Background()) {
		t.Fatalf("cycle ran before the interval elapsed")
	}
	env.nowMs.Add(1000)
	if !env.sched.TryCycle(context.Background()) {
		t.Fatalf("cycle should run once the interval elapsed")
	}
}

func TestOverlappingTickIsDropped(t *testing.T) {
	conns := newFakeConns("a")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})

	env.sched.cycleMu.Lock()
	if env.sched.TryCycle(context.Background()) {
		t.Fatalf("tick must be dropped while a cycle is in progress")
	}
	env.sched.cycleMu.Unlock()
	if st := env.sched.Stats(); st.MissedTicks != 1 {
		t.Fatalf("missed tick not counted: %+v", st)
	}
}

func TestInterestFilteringPerSubscriber(t *testing.T) {
	conns := newFakeConns("x")
	env := newSchedulerForTest(t, conns, map[string][]string{
		"TECH10": {"AAPL", "MSFT"},
	})
	if err := env.store.SaveInterestSelection(context.Background(), "x", "market", []string{"TECH10"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL", "GOOG", "MSFT")})

	env.sched.TryCycle(context.Background())
	sent := conns.sentTo("x")
	if len(sent) != 1 {
		t.Fatalf("payloads: %d", len(sent))
	}
	doc := decodeDoc(t, sent[0])
	if len(doc.Highs) != 2 || doc.Highs[0].Sym != "AAPL" || doc.Highs[1].Sym != "MSFT" {
		t.Fatalf("filtered highs: %+v", doc.Highs)
	}
}

func TestUnfilteredFallbackOnEmptyResolvedSet(t *testing.T) {
	conns := newFakeConns("x")
	// no groups exist, so every resolution comes back empty
	env := newSchedulerForTest(t, conns, map[string][]string{})
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL", "GOOG")})

	env.sched.TryCycle(context.Background())
	sent := conns.sentTo("x")
	if len(sent) != 1 {
		t.Fatalf("fallback emission missing")
	}
	doc := decodeDoc(t, sent[0])
	if len(doc.Highs) != 2 {
		t.Fatalf("fallback must carry the unfiltered batch: %+v", doc.Highs)
	}
	if n := env.capture.CountMessage(logpkg.WarnLevel, "empty resolved symbol set, emitting unfiltered"); n != 1 {
		t.Fatalf("expected exactly one fallback warning, got %d", n)
	}
	if st := env.sched.Stats(); st.Fallbacks != 1 {
		t.Fatalf("fallback not counted: %+v", st)
	}
}

func TestEmptyFilteredBatchSendsNothing(t *testing.T) {
	conns := newFakeConns("x", "y")
	env := newSchedulerForTest(t, conns, map[string][]string{
		"TECH10": {"AAPL"},
		"ENERGY": {"XOM"},
	})
	ctx := context.Background()
	if err := env.store.SaveInterestSelection(ctx, "x", "market", []string{"TECH10"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	if err := env.store.SaveInterestSelection(ctx, "y", "market", []string{"ENERGY"}); err != nil {
		t.Fatalf("save: %v", err)
	}
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})

	env.sched.TryCycle(ctx)
	if len(conns.sentTo("x")) != 1 {
		t.Fatalf("x should receive the AAPL event")
	}
	if len(conns.sentTo("y")) != 0 {
		t.Fatalf("y matched nothing and must receive nothing")
	}
}

func TestCriteriaMinCountEndToEnd(t *testing.T) {
	conns := newFakeConns("y")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"P", "Q"}})
	ctx := context.Background()
	if err := env.store.SaveFilterCriteria(ctx, "y", settings.Criteria{Enabled: true, MinCount: 2}); err != nil {
		t.Fatalf("save: %v", err)
	}
	env.buffer.Append(market.Batch{Lows: []market.Event{
		{Symbol: "P", Count: 1},
		{Symbol: "Q", Count: 3},
	}})

	env.sched.TryCycle(ctx)
	sent := conns.sentTo("y")
	if len(sent) != 1 {
		t.Fatalf("payloads: %d", len(sent))
	}
	doc := decodeDoc(t, sent[0])
	if len(doc.Lows) != 1 || doc.Lows[0].Sym != "Q" {
		t.Fatalf("criteria-filtered lows: %+v", doc.Lows)
	}
}

func TestPerSubscriberIsolation(t *testing.T) {
	conns := newFakeConns("bad", "good")
	conns.panicOn = "bad"
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})

	env.sched.TryCycle(context.Background())
	if len(conns.sentTo("good")) != 1 {
		t.Fatalf("failure for one subscriber leaked to another")
	}
	st := env.sched.Stats()
	if st.SubErrors != 1 {
		t.Fatalf("subscriber error not counted: %+v", st)
	}
	if n := env.capture.CountMessage(logpkg.ErrorLevel, "subscriber emission failed"); n != 1 {
		t.Fatalf("expected one isolation error log, got %d", n)
	}
}

func TestFinalFlushIgnoresPacing(t *testing.T) {
	conns := newFakeConns("a")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})

	env.sched.TryCycle(context.Background())
	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})
	// interval has not elapsed, but shutdown must still flush
	env.sched.FinalFlush()
	if len(conns.sentTo("a")) != 1 {
		t.Fatalf("buffered events lost at shutdown")
	}
}

func TestRunLoopEmits(t *testing.T) {
	conns := newFakeConns("a")
	env := newSchedulerForTest(t, conns, map[string][]string{"all": {"AAPL"}})
	env.sched.poll = 5 * time.Millisecond
	env.sched.interval = 10 * time.Millisecond
	env.sched.nowMs = func() int64 { return time.Now().UnixMilli() }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() { env.sched.Run(ctx); close(done) }()

	env.buffer.Append(market.Batch{Highs: highEvents("AAPL")})
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) && len(conns.sentTo("a")) == 0 {
		time.Sleep(5 * time.Millisecond)
	}
	cancel()
	<-done
	if len(conns.sentTo("a")) == 0 {
		t.Fatalf("loop never emitted")
	}
}
