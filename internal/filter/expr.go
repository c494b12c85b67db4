package filter

import (
	"strings"
	"sync"
	"time"

	"github.com/google/cel-go/cel"

	"github.com/rzbill/surgecast/internal/market"
	logpkg "github.com/rzbill/surgecast/pkg/log"
)

// ExprFilter wraps a compiled CEL program evaluated per event during the
// criteria stage.
type ExprFilter struct {
	prog cel.Program
}

// CompileExpr parses and checks a criteria expression. Empty expressions
// return (nil, nil).
func CompileExpr(expr string) (*ExprFilter, error) {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil, nil
	}
	env, err := cel.NewEnv(
		cel.Variable("sym", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("count", cel.IntType),
		cel.Variable("pct_change", cel.DoubleType),
		cel.Variable("volume", cel.DoubleType),
		cel.Variable("label", cel.StringType),
		cel.Variable("time_ms", cel.IntType),
		// Current time in ms for windowed predicates
		cel.Variable("now_ms", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	ast, iss := env.Parse(expr)
	if iss != nil && iss.Err() != nil {
		return nil, iss.Err()
	}
	checked, iss2 := env.Check(ast)
	if iss2 != nil && iss2.Err() != nil {
		return nil, iss2.Err()
	}
	prog, err := env.Program(checked)
	if err != nil {
		return nil, err
	}
	return &ExprFilter{prog: prog}, nil
}

// Eval evaluates the expression against one event. Evaluation errors count
// as non-matches.
func (f *ExprFilter) Eval(category market.Category, ev market.Event) bool {
	out, _, err := f.prog.Eval(map[string]any{
		"sym":        ev.Symbol,
		"category":   string(category),
		"price":      ev.Price,
		"count":      int64(ev.Count),
		"pct_change": ev.PercentChange,
		"volume":     ev.Volume,
		"label":      ev.Label,
		"time_ms":    ev.TimeMs,
		"now_ms":     time.Now().UnixMilli(),
	})
	if err != nil {
		return false
	}
	b, ok := out.Value().(bool)
	return ok && b
}

// ExprCache memoizes compiled expressions by source text. Uncompilable
// expressions are remembered as nil so the criteria stage degrades to the
// built-in predicate without recompiling (and re-logging) every cycle.
type ExprCache struct {
	logger logpkg.Logger
	mu     sync.RWMutex
	byExpr map[string]*ExprFilter
}

// NewExprCache returns an empty cache.
func NewExprCache(logger logpkg.Logger) *ExprCache {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	return &ExprCache{logger: logger, byExpr: map[string]*ExprFilter{}}
}

// Get returns the compiled filter for expr, compiling on first sight.
// Empty and uncompilable expressions return nil.
func (c *ExprCache) Get(expr string) *ExprFilter {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return nil
	}
	c.mu.RLock()
	f, seen := c.byExpr[expr]
	c.mu.RUnlock()
	if seen {
		return f
	}
	compiled, err := CompileExpr(expr)
	if err != nil {
		c.logger.Warn("criteria expression rejected", logpkg.Str("expr", expr), logpkg.Err(err))
		compiled = nil
	}
	c.mu.Lock()
	c.byExpr[expr] = compiled
	c.mu.Unlock()
	return compiled
}
