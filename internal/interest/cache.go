package interest

import (
	"context"
	"sync"
	"time"

	"github.com/rzbill/surgecast/internal/settings"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// Recognized tracker categories. Every selection served by the cache carries
// all of them with at least one group.
const (
	CategoryMarket  = "market"
	CategoryHighLow = "highlow"
	CategoryTrend   = "trend"
	CategorySurge   = "surge"
)

// TrackerCategories lists the recognized selection categories.
func TrackerCategories() []string {
	return []string{CategoryMarket, CategoryHighLow, CategoryTrend, CategorySurge}
}

// CacheStats is a point-in-time view of cache activity.
type CacheStats struct {
	Entries         int   `json:"entries"`
	Loads           int64 `json:"loads"`
	LoadFailures    int64 `json:"load_failures"`
	DefaultsApplied int64 `json:"defaults_applied"`
}

// Cache is the per-subscriber interest-selection cache. Reads come from the
// emission goroutine, writes from HTTP handlers; an RWMutex map keeps the two
// paths from blocking each other beyond map-level critical sections.
// Collaborator loads run outside the lock under a per-subscriber gate so a
// burst of ticks cannot issue duplicate loads.
type Cache struct {
	store        *settings.Store
	logger       logpkg.Logger
	defaultGroup string
	loadTimeout  time.Duration

	mu      sync.RWMutex
	entries map[string]settings.Selection
	loading map[string]chan struct{}

	statsMu         sync.Mutex
	loads           int64
	loadFailures    int64
	defaultsApplied int64
}

// Options configures a Cache.
type Options struct {
	Store *settings.Store
	// DefaultGroup is the sentinel substituted for missing/invalid categories.
	DefaultGroup string
	// LoadTimeout bounds store reads issued from the emission path.
	LoadTimeout time.Duration
	Logger      logpkg.Logger
}

// NewCache returns an empty interest cache.
func NewCache(opts Options) *Cache {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if opts.DefaultGroup == "" {
		opts.DefaultGroup = "all"
	}
	if opts.LoadTimeout <= 0 {
		opts.LoadTimeout = 2 * time.Second
	}
	return &Cache{
		store:        opts.Store,
		logger:       logger.With(logpkg.Component("interest-cache")),
		defaultGroup: opts.DefaultGroup,
		loadTimeout:  opts.LoadTimeout,
		entries:      map[string]settings.Selection{},
		loading:      map[string]chan struct{}{},
	}
}

// GetOrLoad returns the subscriber's validated selection, loading it from the
// settings store on first access. It never returns an error: a failed or
// absent load yields the default selection, which is cached until
// invalidated.
func (c *Cache) GetOrLoad(ctx context.Context, subscriberID string) settings.Selection {
	for {
		c.mu.RLock()
		if sel, ok := c.entries[subscriberID]; ok {
			c.mu.RUnlock()
			return sel.Clone()
		}
		c.mu.RUnlock()

		c.mu.Lock()
		if sel, ok := c.entries[subscriberID]; ok {
			c.mu.Unlock()
			return sel.Clone()
		}
		if gate, inflight := c.loading[subscriberID]; inflight {
			c.mu.Unlock()
			select {
			case <-gate:
			case <-ctx.Done():
				return c.defaultSelection()
			}
			continue
		}
		gate := make(chan struct{})
		c.loading[subscriberID] = gate
		c.mu.Unlock()

		sel := c.load(ctx, subscriberID)
		c.mu.Lock()
		c.entries[subscriberID] = sel
		delete(c.loading, subscriberID)
		c.mu.Unlock()
		close(gate)
		return sel.Clone()
	}
}

func (c *Cache) load(ctx context.Context, subscriberID string) settings.Selection {
	c.statsMu.Lock()
	c.loads++
	c.statsMu.Unlock()

	lctx, cancel := context.WithTimeout(ctx, c.loadTimeout)
	defer cancel()
	raw, ok, err := c.store.LoadInterestSelection(lctx, subscriberID)
	if err != nil {
		c.statsMu.Lock()
		c.loadFailures++
		c.statsMu.Unlock()
		c.logger.Warn("interest load failed, serving defaults",
			logpkg.Str("sub", subscriberID), logpkg.Err(err))
		return c.defaultSelection()
	}
	if !ok {
		return c.defaultSelection()
	}
	return c.validate(subscriberID, raw)
}

// Update validates and replaces the cache entry. Call after a confirmed
// store write.
func (c *Cache) Update(subscriberID string, sel settings.Selection) {
	v := c.validate(subscriberID, sel)
	c.mu.Lock()
	c.entries[subscriberID] = v
	c.mu.Unlock()
}

// Invalidate removes the entry, forcing the next GetOrLoad to reload.
func (c *Cache) Invalidate(subscriberID string) {
	c.mu.Lock()
	delete(c.entries, subscriberID)
	c.mu.Unlock()
}

// Stats returns cache activity counters.
func (c *Cache) Stats() CacheStats {
	c.mu.RLock()
	entries := len(c.entries)
	c.mu.RUnlock()
	c.statsMu.Lock()
	defer c.statsMu.Unlock()
	return CacheStats{
		Entries:         entries,
		Loads:           c.loads,
		LoadFailures:    c.loadFailures,
		DefaultsApplied: c.defaultsApplied,
	}
}

// validate ensures every recognized category maps to a non-empty list of
// non-blank group names, substituting the sentinel default per category
// otherwise. Unrecognized categories pass through untouched.
func (c *Cache) validate(subscriberID string, raw settings.Selection) settings.Selection {
	out := raw.Clone()
	if out == nil {
		out = settings.Selection{}
	}
	for _, cat := range TrackerCategories() {
		groups := out[cat]
		cleaned := groups[:0:0]
		for _, g := range groups {
			if g != "" {
				cleaned = append(cleaned, g)
			}
		}
		if len(cleaned) == 0 {
			cleaned = []string{c.defaultGroup}
			c.statsMu.Lock()
			c.defaultsApplied++
			c.statsMu.Unlock()
			c.logger.Debug("defaulted interest category",
				logpkg.Str("sub", subscriberID), logpkg.Str("category", cat))
		}
		out[cat] = cleaned
	}
	return out
}

func (c *Cache) defaultSelection() settings.Selection {
	sel := settings.Selection{}
	for _, cat := range TrackerCategories() {
		sel[cat] = []string{c.defaultGroup}
	}
	return sel
}
