package oracle

import (
	"context"

	"github.com/crillab/gophersat/bf"
)

func init() {
	Register("gophersat", NewGophersat)
}

// NewGophersat returns an oracle backed by gophersat's boolean formula
// front end. The solver cannot be interrupted, so a cancelled query is
// abandoned and left to finish in the background.
func NewGophersat(cfg Config) Oracle {
	return newSolver("gophersat", cfg, gophersatSat)
}

func gophersatSat(_ context.Context, f *Expr, vars []string) (bool, map[string]bool, error) {
	if f.Kind == KindConst {
		return f.Value, constModel(vars), nil
	}
	model := bf.Solve(lowerBF(f))
	if model == nil {
		return false, nil, nil
	}
	out := make(map[string]bool, len(vars))
	for _, v := range vars {
		out[v] = model[v]
	}
	return true, out, nil
}

func lowerBF(e *Expr) bf.Formula {
	switch e.Kind {
	case KindConst:
		if e.Value {
			return bf.True
		}
		return bf.False
	case KindVar:
		return bf.Var(e.Name)
	case KindNot:
		return bf.Not(lowerBF(e.Args[0]))
	}
	args := make([]bf.Formula, len(e.Args))
	for i, a := range e.Args {
		args[i] = lowerBF(a)
	}
	if e.Kind == KindAnd {
		return bf.And(args...)
	}
	return bf.Or(args...)
}
