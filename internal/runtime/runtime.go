package runtime

import (
	"context"
	"errors"
	"time"

	"github.com/rzbill/surgecast/internal/analytics"
	cfgpkg "github.com/rzbill/surgecast/internal/config"
	"github.com/rzbill/surgecast/internal/emitter"
	"github.com/rzbill/surgecast/internal/interest"
	"github.com/rzbill/surgecast/internal/market"
	"github.com/rzbill/surgecast/internal/membership"
	"github.com/rzbill/surgecast/internal/registry"
	"github.com/rzbill/surgecast/internal/settings"
	pebblestore "github.com/rzbill/surgecast/internal/storage/pebble"
	"github.com/rzbill/surgecast/internal/subscription"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// Options for building the Runtime.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
}

// Runtime wires storage, config, and the emission components for a
// single-node instance.
type Runtime struct {
	db     *pebblestore.DB
	config cfgpkg.Config
	logger logpkg.Logger

	store     *settings.Store
	buffer    *market.Buffer
	registry  *registry.Registry
	interests *interest.Cache
	filters   *interest.FilterCache
	resolver  membership.Resolver
	planner   *subscription.Planner
	activity  *analytics.Tracker
	scheduler *emitter.Scheduler
}

// Open initializes storage and builds the component graph.
func Open(opts Options) (*Runtime, error) {
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	db, err := pebblestore.Open(pebblestore.Options{DataDir: opts.DataDir, Fsync: opts.Fsync, FsyncInterval: opts.FsyncInterval})
	if err != nil {
		return nil, err
	}
	cfg := opts.Config

	rt := &Runtime{db: db, config: cfg, logger: logger}
	rt.store = settings.NewStore(db)
	rt.buffer = market.NewBuffer()
	rt.registry = registry.NewRegistry(cfg.SendBufLen, logger)
	rt.resolver = membership.NewStoreResolver(rt.store, logger)
	rt.interests = interest.NewCache(interest.Options{
		Store:        rt.store,
		DefaultGroup: cfg.DefaultInterestGroup,
		LoadTimeout:  cfg.LoadTimeout(),
		Logger:       logger,
	})
	rt.filters = interest.NewFilterCache(interest.FilterOptions{
		Store:           rt.store,
		DefaultMinCount: cfg.DefaultMinCount,
		LoadTimeout:     cfg.LoadTimeout(),
		Logger:          logger,
	})
	rt.planner = subscription.NewPlanner(cfg.MaxUpstreamSymbols, logger)
	rt.activity = analytics.NewTracker(analytics.Options{
		DB:           db,
		SyncInterval: cfg.AnalyticsSync(),
		Logger:       logger,
	})
	rt.scheduler = emitter.NewScheduler(emitter.Options{
		Buffer:       rt.buffer,
		Conns:        rt.registry,
		Interests:    rt.interests,
		Filters:      rt.filters,
		Resolver:     rt.resolver,
		Activity:     rt.activity,
		EmitInterval: cfg.EmitInterval(),
		PollCadence:  cfg.PollCadence(),
		Logger:       logger,
	})
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple storage health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if r.db == nil {
		return errors.New("db not open")
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	it.Close()
	return nil
}

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Store returns the settings store.
func (r *Runtime) Store() *settings.Store { return r.store }

// Buffer returns the shared ingestion buffer.
func (r *Runtime) Buffer() *market.Buffer { return r.buffer }

// Registry returns the connection registry.
func (r *Runtime) Registry() *registry.Registry { return r.registry }

// Interests returns the interest-selection cache.
func (r *Runtime) Interests() *interest.Cache { return r.interests }

// Filters returns the filter-criteria cache.
func (r *Runtime) Filters() *interest.FilterCache { return r.filters }

// Planner returns the upstream subscription planner.
func (r *Runtime) Planner() *subscription.Planner { return r.planner }

// Activity returns the analytics tracker.
func (r *Runtime) Activity() *analytics.Tracker { return r.activity }

// Scheduler returns the emission scheduler.
func (r *Runtime) Scheduler() *emitter.Scheduler { return r.scheduler }

// DB exposes the underlying DB for advanced operations (internal use only).
func (r *Runtime) DB() *pebblestore.DB { return r.db }
