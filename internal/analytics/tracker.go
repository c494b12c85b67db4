package analytics

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/surgecast/internal/market"
	pebblestore "github.com/rzbill/surgecast/internal/storage/pebble"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// Keyspace:
//
//	analytics/session -> Snapshot (JSON)
var sessionKey = []byte("analytics/session")

// Snapshot is the activity block attached to every emission payload.
type Snapshot struct {
	SessionStartMs int64            `json:"session_start_ms"`
	UpdatedMs      int64            `json:"updated_ms"`
	Cycles         uint64           `json:"cycles"`
	EventsSeen     uint64           `json:"events_seen"`
	PerCategory    map[string]int64 `json:"per_category"`
	Connected      int              `json:"connected"`
}

// Options configure a Tracker.
type Options struct {
	DB           *pebblestore.DB
	SyncInterval time.Duration
	Logger       logpkg.Logger
}

// Tracker accumulates session counters and periodically writes them to the
// store. All methods are safe for concurrent use.
type Tracker struct {
	db     *pebblestore.DB
	sync   time.Duration
	logger logpkg.Logger

	mu   sync.Mutex
	cur  Snapshot
	seen bool
}

// NewTracker returns a tracker, resuming session counters from the store
// when a previous snapshot exists.
func NewTracker(opts Options) *Tracker {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	t := &Tracker{
		db:     opts.DB,
		sync:   opts.SyncInterval,
		logger: logger.With(logpkg.Component("analytics")),
	}
	t.cur = Snapshot{
		SessionStartMs: time.Now().UnixMilli(),
		PerCategory:    map[string]int64{},
	}
	if t.db != nil {
		var prev Snapshot
		found, err := t.db.GetJSON(sessionKey, &prev)
		if err != nil {
			t.logger.Warn("analytics snapshot load failed", logpkg.Err(err))
		} else if found {
			prev.Connected = 0
			if prev.PerCategory == nil {
				prev.PerCategory = map[string]int64{}
			}
			t.cur = prev
			t.seen = true
		}
	}
	return t
}

// RecordCycle notes one completed emission cycle and the events it drained.
func (t *Tracker) RecordCycle(batch market.Batch, connected int) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.cur.Cycles++
	t.cur.EventsSeen += uint64(batch.Len())
	for _, c := range market.Categories() {
		if n := len(batch.Events(c)); n > 0 {
			t.cur.PerCategory[string(c)] += int64(n)
		}
	}
	t.cur.Connected = connected
	t.cur.UpdatedMs = time.Now().UnixMilli()
	t.seen = true
}

// Latest returns the current snapshot. The second return is false until the
// first cycle has been recorded this session (and no prior session resumed).
func (t *Tracker) Latest() (Snapshot, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.seen {
		return Snapshot{}, false
	}
	out := t.cur
	out.PerCategory = make(map[string]int64, len(t.cur.PerCategory))
	for k, v := range t.cur.PerCategory {
		out.PerCategory[k] = v
	}
	return out, true
}

// Sync writes the current snapshot to the store. Failures are logged and
// swallowed; persistence is best-effort.
func (t *Tracker) Sync() {
	if t.db == nil {
		return
	}
	snap, ok := t.Latest()
	if !ok {
		return
	}
	if err := t.db.SetJSON(sessionKey, snap); err != nil {
		t.logger.Warn("analytics snapshot sync failed", logpkg.Err(err))
	}
}

// Run syncs on the configured interval until ctx is canceled, then performs
// a final sync.
func (t *Tracker) Run(ctx context.Context) {
	if t.db == nil || t.sync <= 0 {
		<-ctx.Done()
		return
	}
	ticker := time.NewTicker(t.sync)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			t.Sync()
			return
		case <-ticker.C:
			t.Sync()
		}
	}
}
