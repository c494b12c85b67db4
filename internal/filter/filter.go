package filter

import (
	"github.com/rzbill/surgecast/internal/market"
	"github.com/rzbill/surgecast/internal/membership"
	"github.com/rzbill/surgecast/internal/settings"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// KeepEventsWithoutSymbol is the fail-open policy for membership filtering:
// an event whose symbol field is blank is kept rather than dropped, so
// malformed upstream data degrades to over-delivery instead of silent loss.
const KeepEventsWithoutSymbol = true

// Pipeline applies the two filtering stages. It is stateless apart from a
// cache of compiled criteria expressions.
type Pipeline struct {
	logger logpkg.Logger
	exprs  *ExprCache
}

// NewPipeline returns a pipeline.
func NewPipeline(logger logpkg.Logger) *Pipeline {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	logger = logger.With(logpkg.Component("filter"))
	return &Pipeline{logger: logger, exprs: NewExprCache(logger)}
}

// Apply runs membership filtering then, when applyCriteria is set, criteria
// filtering. The input batch is never mutated.
func (p *Pipeline) Apply(batch market.Batch, set membership.SymbolSet, crit settings.Criteria, applyCriteria bool) market.Batch {
	out := Membership(batch, set)
	if applyCriteria {
		out = p.Criteria(out, crit)
	}
	return out
}

// Membership retains, per category, only events whose symbol belongs to the
// resolved set. Membership tests are O(1); order is preserved exactly; an
// empty input category yields an empty (present) output category.
func Membership(batch market.Batch, set membership.SymbolSet) market.Batch {
	var out market.Batch
	for _, c := range market.Categories() {
		in := batch.Events(c)
		kept := make([]market.Event, 0, len(in))
		for _, ev := range in {
			if ev.Symbol == "" {
				if KeepEventsWithoutSymbol {
					kept = append(kept, ev)
				}
				continue
			}
			if set.Contains(ev.Symbol) {
				kept = append(kept, ev)
			}
		}
		out.SetEvents(c, kept)
	}
	return out
}

// Criteria applies the subscriber's secondary filter to an already
// membership-filtered batch, using only attributes carried on the events.
// The built-in predicate drops high/low events whose carried count is below
// the threshold; the optional expression predicate applies to every category.
func (p *Pipeline) Criteria(batch market.Batch, crit settings.Criteria) market.Batch {
	expr := p.exprs.Get(crit.Expression)
	var out market.Batch
	for _, c := range market.Categories() {
		in := batch.Events(c)
		kept := make([]market.Event, 0, len(in))
		for _, ev := range in {
			if minCountApplies(c) && ev.Count < crit.MinCount {
				continue
			}
			if expr != nil && !expr.Eval(c, ev) {
				continue
			}
			kept = append(kept, ev)
		}
		out.SetEvents(c, kept)
	}
	return out
}

// minCountApplies limits the count threshold to the high/low tracker, whose
// Count attribute means "times fired this session".
func minCountApplies(c market.Category) bool {
	return c == market.CategoryHighs || c == market.CategoryLows
}
