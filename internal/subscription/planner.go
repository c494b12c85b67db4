// Package subscription plans the single upstream ingestion subscription: the
// symbol list SurgeCast asks its data provider for, independent of any one
// subscriber's interests.
package subscription

import (
	"sync"

	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// Planner owns the active upstream symbol list. It caps the list at a fixed
// maximum by taking a stable prefix, never by sampling or reordering, so the
// upstream subscription stays deterministic across restarts.
type Planner struct {
	logger     logpkg.Logger
	maxSymbols int

	mu     sync.RWMutex
	active []string
	index  map[string]struct{}
}

// NewPlanner returns a planner with the given cap.
func NewPlanner(maxSymbols int, logger logpkg.Logger) *Planner {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	if maxSymbols <= 0 {
		maxSymbols = 5000
	}
	return &Planner{
		logger:     logger.With(logpkg.Component("subscription")),
		maxSymbols: maxSymbols,
		index:      map[string]struct{}{},
	}
}

// UpstreamSymbols returns the active subscription list (a copy).
func (p *Planner) UpstreamSymbols() []string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]string(nil), p.active...)
}

// ApplyUpdate replaces the active set with newSymbols (deduplicated in first-
// seen order, capped to a stable prefix) and returns how many symbols were
// added and removed relative to the previous set. Callers re-issue the
// upstream subscription only when added+removed > 0.
func (p *Planner) ApplyUpdate(newSymbols []string) (added, removed int) {
	deduped := make([]string, 0, len(newSymbols))
	seen := make(map[string]struct{}, len(newSymbols))
	for _, s := range newSymbols {
		if s == "" {
			continue
		}
		if _, dup := seen[s]; dup {
			continue
		}
		seen[s] = struct{}{}
		deduped = append(deduped, s)
	}
	if len(deduped) > p.maxSymbols {
		p.logger.Warn("upstream symbol list truncated",
			logpkg.Int("requested", len(deduped)), logpkg.Int("max", p.maxSymbols))
		for _, s := range deduped[p.maxSymbols:] {
			delete(seen, s)
		}
		deduped = deduped[:p.maxSymbols]
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	for _, s := range deduped {
		if _, ok := p.index[s]; !ok {
			added++
		}
	}
	for s := range p.index {
		if _, ok := seen[s]; !ok {
			removed++
		}
	}
	p.active = deduped
	p.index = seen
	return added, removed
}

// Coverage describes how well the active subscription covers a required set.
type Coverage struct {
	Percent float64  `json:"percent"`
	Missing []string `json:"missing"`
}

// ValidateCoverage reports the share of requiredSymbols present in the active
// subscription and the ones absent from it, in input order. Diagnostics only;
// filtering correctness never depends on this.
func (p *Planner) ValidateCoverage(requiredSymbols []string) Coverage {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if len(requiredSymbols) == 0 {
		return Coverage{Percent: 100, Missing: []string{}}
	}
	missing := []string{}
	for _, s := range requiredSymbols {
		if _, ok := p.index[s]; !ok {
			missing = append(missing, s)
		}
	}
	covered := len(requiredSymbols) - len(missing)
	return Coverage{
		Percent: 100 * float64(covered) / float64(len(requiredSymbols)),
		Missing: missing,
	}
}
