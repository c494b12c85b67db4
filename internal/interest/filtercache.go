package interest

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/surgecast/internal/settings"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// LoadOutcome distinguishes why a criteria lookup produced its result.
// "No criteria configured" and "store failed" both degrade to "apply no
// secondary filtering" on the emission path, but they are reported apart.
type LoadOutcome int

const (
	// CriteriaLoaded means criteria were found on file.
	CriteriaLoaded LoadOutcome = iota
	// CriteriaAbsent means the subscriber has no criteria configured.
	CriteriaAbsent
	// CriteriaLoadFailed means the settings store did not respond usably.
	CriteriaLoadFailed
)

// String returns the wire name of the outcome.
func (o LoadOutcome) String() string {
	switch o {
	case CriteriaLoaded:
		return "loaded"
	case CriteriaAbsent:
		return "absent"
	case CriteriaLoadFailed:
		return "load_failed"
	default:
		return "unknown"
	}
}

type criteriaEntry struct {
	criteria settings.Criteria
	outcome  LoadOutcome
}

// FilterCache is the per-subscriber criteria cache. Same contract as Cache:
// lazy load, explicit update, explicit invalidate, never errors toward the
// emitter.
type FilterCache struct {
	store           *settings.Store
	logger          logpkg.Logger
	defaultMinCount int
	loadTimeout     time.Duration

	mu      sync.RWMutex
	entries map[string]criteriaEntry

	statsMu      sync.Mutex
	loads        int64
	loadFailures int64
}

// FilterOptions configures a FilterCache.
type FilterOptions struct {
	Store *settings.Store
	// DefaultMinCount substitutes for an enabled criteria without an
	// explicit threshold.
	DefaultMinCount int
	LoadTimeout     time.Duration
	Logger          logpkg.Logger
}

// NewFilterCache returns an empty criteria cache.
func NewFilterCache(opts FilterOptions) *FilterCache {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if opts.DefaultMinCount <= 0 {
		opts.DefaultMinCount = 2
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 2 * time.Second
	}
	return &FilterCache{
		store:           opts.Store,
		logger:          logger.With(logpkg.Component("filter-cache")),
		defaultMinCount: opts.DefaultMinCount,
		loadTimeout:     opts.LoadTimeout,
		entries:         map[string]criteriaEntry{},
	}
}

// GetOrLoad returns the subscriber's criteria and whether secondary filtering
// applies. Absent criteria and failed loads both report apply=false; failed
// loads are cached (retried only after Invalidate) to keep store I/O off the
// per-tick hot path.
func (fc *FilterCache) GetOrLoad(ctx context.Context, subscriberID string) (settings.Criteria, bool) {
	fc.mu.RLock()
	if e, ok := fc.entries[subscriberID]; ok {
		fc.mu.RUnlock()
		return e.criteria, e.outcome == CriteriaLoaded && e.criteria.Enabled
	}
	fc.mu.RUnlock()

	e := fc.load(ctx, subscriberID)
	fc.mu.Lock()
	fc.entries[subscriberID] = e
	fc.mu.Unlock()
	return e.criteria, e.outcome == CriteriaLoaded && e.criteria.Enabled
}

// Outcome returns the cached load outcome for a subscriber, loading if needed.
func (fc *FilterCache) Outcome(ctx context.Context, subscriberID string) LoadOutcome {
	fc.mu.RLock()
	if e, ok := fc.entries[subscriberID]; ok {
		fc.mu.RUnlock()
		return e.outcome
	}
	fc.mu.RUnlock()
	fc.GetOrLoad(ctx, subscriberID)
	fc.mu.RLock()
	defer fc.mu.RUnlock()
	return fc.entries[subscriberID].outcome
}

func (fc *FilterCache) load(ctx context.Context, subscriberID string) criteriaEntry {
	fc.statsMu.Lock()
	fc.loads++
	fc.statsMu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, fc.loadTimeout)
	defer cancel()
	c, ok, err := fc.store.LoadFilterCriteria(lctx, subscriberID)
	if err != nil {
		fc.statsMu.Lock()
		fc.loadFailures++
		fc.statsMu.Unlock()
		fc.logger.Warn("criteria load failed, filtering disabled",
			logpkg.Str("sub", subscriberID), logpkg.Err(err))
		return criteriaEntry{outcome: CriteriaLoadFailed}
	}
	if !ok {
		return criteriaEntry{outcome: CriteriaAbsent}
	}
	return criteriaEntry{criteria: fc.normalize(c), outcome: CriteriaLoaded}
}

// Update validates and replaces the cache entry. Call after a confirmed
// store write.
func (fc *FilterCache) Update(subscriberID string, c settings.Criteria) {
	fc.mu.Lock()
	fc.entries[subscriberID] = criteriaEntry{criteria: fc.normalize(c), outcome: CriteriaLoaded}
	fc.mu.Unlock()
}

// Invalidate removes the entry, forcing the next GetOrLoad to reload.
func (fc *FilterCache) Invalidate(subscriberID string) {
	fc.mu.Lock()
	delete(fc.entries, subscriberID)
	fc.mu.Unlock()
}

// Stats returns cache activity counters.
func (fc *FilterCache) Stats() CacheStats {
	fc.mu.RLock()
	entries := len(fc.entries)
	fc.mu.RUnlock()
	fc.statsMu.Lock()
	defer fc.statsMu.Unlock()
	return CacheStats{Entries: entries, Loads: fc.loads, LoadFailures: fc.loadFailures}
}

func (fc *FilterCache) normalize(c settings.Criteria) settings.Criteria {
	if c.Enabled && c.MinCount <= 0 {
		c.MinCount = fc.defaultMinCount
	}
	return c
}
