//go:build z3

package oracle

import (
	"context"
	"fmt"

	"github.com/mitchellh/go-z3"
)

func init() {
	Register("z3", NewZ3)
}

// NewZ3 returns an oracle backed by Z3. It needs cgo and libz3, hence the
// build tag.
func NewZ3(cfg Config) Oracle {
	return newSolver("z3", cfg, z3Sat)
}

func z3Sat(_ context.Context, f *Expr, vars []string) (bool, map[string]bool, error) {
	if f.Kind == KindConst {
		return f.Value, constModel(vars), nil
	}

	config := z3.NewConfig()
	zctx := z3.NewContext(config)
	config.Close()
	defer zctx.Close()

	consts := make(map[string]*z3.AST, len(vars))
	for _, v := range vars {
		consts[v] = zctx.Const(zctx.Symbol(v), zctx.BoolSort())
	}

	s := zctx.NewSolver()
	defer s.Close()
	s.Assert(lowerZ3(zctx, consts, f))

	switch s.Check() {
	case z3.True:
		m := s.Model()
		assignments := m.Assignments()
		m.Close()
		model := make(map[string]bool, len(vars))
		for _, v := range vars {
			a, ok := assignments[v]
			model[v] = ok && a.String() == "true"
		}
		return true, model, nil
	case z3.False:
		return false, nil, nil
	}
	return false, nil, fmt.Errorf("z3 returned undef: %w", ErrUnknown)
}

func lowerZ3(ctx *z3.Context, consts map[string]*z3.AST, e *Expr) *z3.AST {
	switch e.Kind {
	case KindConst:
		if e.Value {
			return ctx.True()
		}
		return ctx.False()
	case KindVar:
		return consts[e.Name]
	case KindNot:
		return lowerZ3(ctx, consts, e.Args[0]).Not()
	}
	first := lowerZ3(ctx, consts, e.Args[0])
	rest := make([]*z3.AST, len(e.Args)-1)
	for i, a := range e.Args[1:] {
		rest[i] = lowerZ3(ctx, consts, a)
	}
	if e.Kind == KindAnd {
		return first.And(rest...)
	}
	return first.Or(rest...)
}
