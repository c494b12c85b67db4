package emitter

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/surgecast/internal/analytics"
	"github.com/rzbill/surgecast/internal/filter"
	"github.com/rzbill/surgecast/internal/interest"
	"github.com/rzbill/surgecast/internal/market"
	"github.com/rzbill/surgecast/internal/membership"
	"github.com/rzbill/surgecast/internal/payload"
	"github.com/rzbill/surgecast/internal/registry"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// MessageKindEmission tags the per-cycle payload on the transport.
const MessageKindEmission = "emission"

// Connections is the registry surface the scheduler consumes.
type Connections interface {
	Connected() []registry.SubscriberID
	Send(id registry.SubscriberID, kind string, payload []byte) bool
}

// Activity is the best-effort analytics collaborator. May be nil.
type Activity interface {
	RecordCycle(batch market.Batch, connected int)
	Latest() (analytics.Snapshot, bool)
}

// Options configure a Scheduler.
type Options struct {
	Buffer    *market.Buffer
	Conns     Connections
	Interests *interest.Cache
	Filters   *interest.FilterCache
	Resolver  membership.Resolver
	Activity  Activity
	Pipeline  *filter.Pipeline

	// EmitInterval is the minimum spacing between cycles that reach the
	// drain. PollCadence is how often the loop checks whether a cycle is
	// due; it is shorter than EmitInterval.
	EmitInterval time.Duration
	PollCadence  time.Duration

	Logger logpkg.Logger
	// NowMs is swappable for tests.
	NowMs func() int64
}

// Stats are cumulative scheduler counters.
type Stats struct {
	Cycles         uint64
	MissedTicks    uint64
	SkippedNoSubs  uint64
	Emissions      uint64
	Fallbacks      uint64
	SubErrors      uint64
	LastEmissionMs int64
	LastNonEmptyMs int64
}

// Scheduler owns the emission loop. Exactly one cycle runs at a time; a
// tick that arrives mid-cycle is dropped.
type Scheduler struct {
	buffer    *market.Buffer
	conns     Connections
	interests *interest.Cache
	filters   *interest.FilterCache
	resolver  membership.Resolver
	activity  Activity
	pipeline  *filter.Pipeline

	interval time.Duration
	poll     time.Duration
	logger   logpkg.Logger
	nowMs    func() int64

	// cycleMu is the single-flight guard. lastEmissionMs and stats are
	// written only while it is held.
	cycleMu sync.Mutex

	statsMu sync.Mutex
	stats   Stats
}

// NewScheduler wires a scheduler from its collaborators.
func NewScheduler(opts Options) *Scheduler {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.With(logpkg.Component("emitter"))
	if opts.EmitInterval <= 0 {
		opts.EmitInterval = time.Second
	}
	if opts.PollCadence <= 0 {
		opts.PollCadence = 250 * time.Millisecond
	}
	if opts.NowMs == nil {
		opts.NowMs = func() int64 { return time.Now().UnixMilli() }
	}
	pipeline := opts.Pipeline
	if pipeline == nil {
		pipeline = filter.NewPipeline(logger)
	}
	return &Scheduler{
		buffer:    opts.Buffer,
		conns:     opts.Conns,
		interests: opts.Interests,
		filters:   opts.Filters,
		resolver:  opts.Resolver,
		activity:  opts.Activity,
		pipeline:  pipeline,
		interval:  opts.EmitInterval,
		poll:      opts.PollCadence,
		logger:    logger,
		nowMs:     opts.NowMs,
	}
}

// Run drives the loop until ctx is canceled, then performs one final
// drain-and-emit pass so buffered events are not lost at shutdown.
func (s *Scheduler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.poll)
	defer ticker.Stop()
	s.logger.Info("emission loop started",
		logpkg.Duration("interval", s.interval),
		logpkg.Duration("poll", s.poll))
	for {
		select {
		case <-ctx.Done():
			s.FinalFlush()
			s.logger.Info("emission loop stopped")
			return
		case <-ticker.C:
			s.TryCycle(ctx)
		}
	}
}

// TryCycle attempts one cycle: it runs only when no cycle is in progress
// and the emission interval has elapsed. It reports whether a cycle ran.
func (s *Scheduler) TryCycle(ctx context.Context) bool {
	if !s.cycleMu.TryLock() {
		s.statsMu.Lock()
		s.stats.MissedTicks++
		s.statsMu.Unlock()
		return false
	}
	defer s.cycleMu.Unlock()
	now := s.nowMs()
	if elapsed := now - s.lastEmission(); elapsed < s.interval.Milliseconds() {
		return false
	}
	s.runCycle(ctx, now)
	return true
}

// FinalFlush runs one cycle regardless of pacing. It waits for an
// in-progress cycle to finish first. Cache loads run under their own
// timeouts, so a canceled caller context does not abort the pass.
func (s *Scheduler) FinalFlush() {
	s.cycleMu.Lock()
	defer s.cycleMu.Unlock()
	s.runCycle(context.Background(), s.nowMs())
}

// Stats returns a copy of the cumulative counters.
func (s *Scheduler) Stats() Stats {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats
}

func (s *Scheduler) lastEmission() int64 {
	s.statsMu.Lock()
	defer s.statsMu.Unlock()
	return s.stats.LastEmissionMs
}

// runCycle executes one emission cycle. Caller holds cycleMu.
func (s *Scheduler) runCycle(ctx context.Context, nowMs int64) {
	ids := s.conns.Connected()
	if len(ids) == 0 {
		// Buffered events stay queued for a cycle with subscribers, and
		// pacing is untouched so the next poll can fire immediately.
		s.statsMu.Lock()
		s.stats.SkippedNoSubs++
		s.statsMu.Unlock()
		return
	}

	// Single destructive drain serves every subscriber this cycle. Pacing
	// updates on every cycle that reaches the drain, sent or not.
	batch := s.buffer.Drain(true)
	s.statsMu.Lock()
	s.stats.Cycles++
	s.stats.LastEmissionMs = nowMs
	if !batch.Empty() {
		s.stats.LastNonEmptyMs = nowMs
	}
	s.statsMu.Unlock()

	var snap *analytics.Snapshot
	if s.activity != nil {
		s.activity.RecordCycle(batch, len(ids))
		if sn, ok := s.activity.Latest(); ok {
			snap = &sn
		}
	}

	if batch.Empty() {
		return
	}

	// Batch is immutable after the drain; subscribers are processed
	// sequentially with per-subscriber error isolation.
	start := time.Now()
	for _, id := range ids {
		s.emitTo(ctx, id, batch, snap, nowMs)
	}
	s.logger.Debug("emit.cycle",
		logpkg.Int("drained_n", batch.Len()),
		logpkg.Int("subs_n", len(ids)),
		logpkg.Int64("dur_ms", time.Since(start).Milliseconds()))
}

// emitTo resolves, filters, formats and dispatches for one subscriber.
// Failures are contained here and never disturb the remaining subscribers.
func (s *Scheduler) emitTo(ctx context.Context, id registry.SubscriberID, batch market.Batch, snap *analytics.Snapshot, nowMs int64) {
	defer func() {
		if r := recover(); r != nil {
			s.statsMu.Lock()
			s.stats.SubErrors++
			s.statsMu.Unlock()
			s.logger.Error("subscriber emission failed",
				logpkg.Str("subscriber", string(id)),
				logpkg.Any("panic", r))
		}
	}()

	sel := s.interests.GetOrLoad(ctx, string(id))
	set := membership.ResolveSelection(ctx, s.resolver, sel)

	out := batch
	if len(set) == 0 {
		// Safety fallback: an unresolvable interest set gets the whole
		// batch rather than silence.
		s.statsMu.Lock()
		s.stats.Fallbacks++
		s.statsMu.Unlock()
		s.logger.Warn("empty resolved symbol set, emitting unfiltered",
			logpkg.Str("subscriber", string(id)))
	} else {
		crit, applyCriteria := s.filters.GetOrLoad(ctx, string(id))
		out = s.pipeline.Apply(batch, set, crit, applyCriteria)
		if out.Empty() {
			return
		}
	}

	raw, err := payload.Encode(payload.Format(out, snap, nowMs))
	if err != nil {
		s.statsMu.Lock()
		s.stats.SubErrors++
		s.statsMu.Unlock()
		s.logger.Warn("payload encode failed",
			logpkg.Str("subscriber", string(id)), logpkg.Err(err))
		return
	}
	if s.conns.Send(id, MessageKindEmission, raw) {
		s.statsMu.Lock()
		s.stats.Emissions++
		s.statsMu.Unlock()
	}
}
