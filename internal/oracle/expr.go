// Package oracle discharges propositional side conditions to a
// satisfiability solver. A query is valid when its facts entail its claim,
// which the backends decide by refuting facts together with the negated
// claim.
package oracle

import (
	"slices"
	"strings"
)

// Kind identifies the connective at the root of an Expr.
type Kind uint8

const (
	KindConst Kind = iota
	KindVar
	KindNot
	KindAnd
	KindOr
)

// Expr is a propositional formula over named boolean variables.
type Expr struct {
	Kind  Kind
	Name  string // KindVar
	Value bool   // KindConst
	Args  []*Expr
}

var (
	trueExpr  = &Expr{Kind: KindConst, Value: true}
	falseExpr = &Expr{Kind: KindConst, Value: false}
)

func True() *Expr  { return trueExpr }
func False() *Expr { return falseExpr }

// Const returns True or False.
func Const(v bool) *Expr {
	if v {
		return trueExpr
	}
	return falseExpr
}

func Var(name string) *Expr { return &Expr{Kind: KindVar, Name: name} }

// Not negates e, folding constants and double negation.
func Not(e *Expr) *Expr {
	switch e.Kind {
	case KindConst:
		return Const(!e.Value)
	case KindNot:
		return e.Args[0]
	}
	return &Expr{Kind: KindNot, Args: []*Expr{e}}
}

// And is the conjunction of args. Constants are folded and nested
// conjunctions flattened, so And() is True.
func And(args ...*Expr) *Expr { return junction(KindAnd, args) }

// Or is the disjunction of args; Or() is False.
func Or(args ...*Expr) *Expr { return junction(KindOr, args) }

func junction(kind Kind, args []*Expr) *Expr {
	unit := kind == KindAnd
	var out []*Expr
	for _, a := range args {
		switch {
		case a.Kind == KindConst && a.Value == unit:
			continue
		case a.Kind == KindConst:
			return Const(!unit)
		case a.Kind == kind:
			out = append(out, a.Args...)
		default:
			out = append(out, a)
		}
	}
	switch len(out) {
	case 0:
		return Const(unit)
	case 1:
		return out[0]
	}
	return &Expr{Kind: kind, Args: out}
}

func Implies(a, b *Expr) *Expr { return Or(Not(a), b) }

// ExactlyOne holds when exactly one of args is true.
func ExactlyOne(args ...*Expr) *Expr {
	parts := []*Expr{Or(args...)}
	for i := range args {
		for j := i + 1; j < len(args); j++ {
			parts = append(parts, Or(Not(args[i]), Not(args[j])))
		}
	}
	return And(parts...)
}

// Eval evaluates e under an assignment; missing variables are false.
func (e *Expr) Eval(assign map[string]bool) bool {
	switch e.Kind {
	case KindConst:
		return e.Value
	case KindVar:
		return assign[e.Name]
	case KindNot:
		return !e.Args[0].Eval(assign)
	case KindAnd:
		for _, a := range e.Args {
			if !a.Eval(assign) {
				return false
			}
		}
		return true
	case KindOr:
		for _, a := range e.Args {
			if a.Eval(assign) {
				return true
			}
		}
		return false
	}
	panic("oracle: unknown expression kind")
}

// Vars returns the sorted variable names occurring in e.
func (e *Expr) Vars() []string {
	seen := map[string]bool{}
	var walk func(*Expr)
	walk = func(x *Expr) {
		if x.Kind == KindVar {
			seen[x.Name] = true
		}
		for _, a := range x.Args {
			walk(a)
		}
	}
	walk(e)
	names := make([]string, 0, len(seen))
	for n := range seen {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

func (e *Expr) String() string {
	var b strings.Builder
	e.write(&b)
	return b.String()
}

func (e *Expr) write(b *strings.Builder) {
	switch e.Kind {
	case KindConst:
		if e.Value {
			b.WriteString("true")
		} else {
			b.WriteString("false")
		}
	case KindVar:
		b.WriteString(e.Name)
	case KindNot:
		b.WriteByte('!')
		e.Args[0].write(b)
	case KindAnd, KindOr:
		sep := " & "
		if e.Kind == KindOr {
			sep = " | "
		}
		b.WriteByte('(')
		for i, a := range e.Args {
			if i > 0 {
				b.WriteString(sep)
			}
			a.write(b)
		}
		b.WriteByte(')')
	}
}
