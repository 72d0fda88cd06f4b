package oracle

import (
	"context"
	"fmt"

	"github.com/go-air/gini"
	"github.com/go-air/gini/logic"
	"github.com/go-air/gini/z"
)

func init() {
	Register("sat", NewGini)
	Register("gini", NewGini)
}

// NewGini returns an oracle backed by the gini CDCL solver. Queries are
// lowered to a logic.C circuit and solved under the assumption that the
// circuit output holds.
func NewGini(cfg Config) Oracle {
	return newSolver("gini", cfg, giniSat)
}

func giniSat(ctx context.Context, f *Expr, vars []string) (bool, map[string]bool, error) {
	if f.Kind == KindConst {
		return f.Value, constModel(vars), nil
	}

	c := logic.NewC()
	lits := make(map[string]z.Lit, len(vars))
	for _, v := range vars {
		lits[v] = c.Lit()
	}
	root := lowerGini(c, lits, f)

	g := gini.New()
	c.ToCnf(g)
	g.Assume(root)

	s := g.GoSolve()
	done := make(chan int, 1)
	go func() { done <- s.Wait() }()

	var r int
	select {
	case r = <-done:
	case <-ctx.Done():
		s.Stop()
		return false, nil, ctx.Err()
	}
	switch r {
	case 1:
		model := make(map[string]bool, len(vars))
		for v, m := range lits {
			model[v] = g.Value(m)
		}
		return true, model, nil
	case -1:
		return false, nil, nil
	}
	return false, nil, fmt.Errorf("gini returned %d: %w", r, ErrUnknown)
}

func lowerGini(c *logic.C, lits map[string]z.Lit, e *Expr) z.Lit {
	switch e.Kind {
	case KindConst:
		if e.Value {
			return c.T
		}
		return c.F
	case KindVar:
		return lits[e.Name]
	case KindNot:
		return lowerGini(c, lits, e.Args[0]).Not()
	}
	args := make([]z.Lit, len(e.Args))
	for i, a := range e.Args {
		args[i] = lowerGini(c, lits, a)
	}
	if e.Kind == KindAnd {
		return c.Ands(args...)
	}
	return c.Ors(args...)
}

// constModel is the model of a formula that folded to a constant.
func constModel(vars []string) map[string]bool {
	model := make(map[string]bool, len(vars))
	for _, v := range vars {
		model[v] = false
	}
	return model
}
