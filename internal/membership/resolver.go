package membership

import (
	"context"
	"sync"

	"github.com/rzbill/surgecast/internal/settings"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// SymbolSet is a membership set keyed by symbol.
type SymbolSet map[string]struct{}

// Contains reports set membership.
func (s SymbolSet) Contains(symbol string) bool {
	_, ok := s[symbol]
	return ok
}

// Add inserts every symbol into the set.
func (s SymbolSet) Add(symbols ...string) {
	for _, sym := range symbols {
		s[sym] = struct{}{}
	}
}

// Resolver resolves an interest-group name to its symbol set. Unknown group
// names return an empty set, never an error.
type Resolver interface {
	ResolveGroup(ctx context.Context, group string) SymbolSet
}

// StoreResolver resolves groups from the settings store.
type StoreResolver struct {
	store  *settings.Store
	logger logpkg.Logger
	warned sync.Map // group name → struct{}, dedups unknown-group warns
}

// NewStoreResolver returns a resolver backed by the settings store.
func NewStoreResolver(store *settings.Store, logger logpkg.Logger) *StoreResolver {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &StoreResolver{store: store, logger: logger.With(logpkg.Component("membership"))}
}

// ResolveGroup returns the group's symbol set. Missing groups and store
// failures both yield an empty set; each unknown name is warn-logged once.
func (r *StoreResolver) ResolveGroup(ctx context.Context, group string) SymbolSet {
	if err := ctx.Err(); err != nil {
		return SymbolSet{}
	}
	symbols, ok, err := r.store.GroupSymbols(group)
	if err != nil {
		r.logger.Warn("group resolve failed", logpkg.Str("group", group), logpkg.Err(err))
		return SymbolSet{}
	}
	if !ok {
		r.warnOnce(group)
		return SymbolSet{}
	}
	set := make(SymbolSet, len(symbols))
	set.Add(symbols...)
	return set
}

func (r *StoreResolver) warnOnce(group string) {
	if _, seen := r.warned.LoadOrStore(group, struct{}{}); !seen {
		r.logger.Warn("unknown interest group", logpkg.Str("group", group))
	}
}

// StaticResolver resolves groups from a fixed in-memory table. Used by tests
// and fixtures.
type StaticResolver struct {
	Groups map[string][]string
}

// ResolveGroup returns the configured symbols; unknown groups yield an empty set.
func (r *StaticResolver) ResolveGroup(_ context.Context, group string) SymbolSet {
	set := SymbolSet{}
	set.Add(r.Groups[group]...)
	return set
}

// ResolveSelection unions the symbol sets of every group across all
// categories of a selection. Called once per subscriber per emission cycle.
func ResolveSelection(ctx context.Context, r Resolver, sel settings.Selection) SymbolSet {
	out := SymbolSet{}
	for _, groups := range sel {
		for _, g := range groups {
			for sym := range r.ResolveGroup(ctx, g) {
				out[sym] = struct{}{}
			}
		}
	}
	return out
}
