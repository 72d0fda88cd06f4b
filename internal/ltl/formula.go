// Package ltl holds the abstract syntax of linear temporal logic goals,
// a textual parser for them and the normal forms the automaton backends use.
package ltl

import (
	"fmt"
	"slices"
	"strings"
)

// Op identifies the operator at the root of a formula node.
type Op int

const (
	OpTrue Op = iota
	OpFalse
	OpProp
	OpNot
	OpAnd
	OpOr
	OpImplies
	OpIff
	OpNext
	OpFinally
	OpGlobally
	OpUntil
	OpRelease
	OpWeakUntil
)

var opNames = [...]string{
	OpTrue:      "true",
	OpFalse:     "false",
	OpProp:      "prop",
	OpNot:       "!",
	OpAnd:       "&",
	OpOr:        "|",
	OpImplies:   "->",
	OpIff:       "<->",
	OpNext:      "X",
	OpFinally:   "F",
	OpGlobally:  "G",
	OpUntil:     "U",
	OpRelease:   "R",
	OpWeakUntil: "W",
}

func (o Op) String() string {
	if int(o) < len(opNames) {
		return opNames[o]
	}
	return fmt.Sprintf("Op(%d)", int(o))
}

// Temporal reports whether the operator refers to future steps.
func (o Op) Temporal() bool {
	switch o {
	case OpNext, OpFinally, OpGlobally, OpUntil, OpRelease, OpWeakUntil:
		return true
	}
	return false
}

// Formula is an immutable LTL syntax tree. Prop is set only for OpProp nodes.
type Formula struct {
	Op   Op
	Prop string
	Args []*Formula
}

// Formula constructors
func True() *Formula                   { return &Formula{Op: OpTrue} }
func False() *Formula                  { return &Formula{Op: OpFalse} }
func Prop(name string) *Formula        { return &Formula{Op: OpProp, Prop: name} }
func Not(f *Formula) *Formula          { return &Formula{Op: OpNot, Args: []*Formula{f}} }
func Next(f *Formula) *Formula         { return &Formula{Op: OpNext, Args: []*Formula{f}} }
func Finally(f *Formula) *Formula      { return &Formula{Op: OpFinally, Args: []*Formula{f}} }
func Globally(f *Formula) *Formula     { return &Formula{Op: OpGlobally, Args: []*Formula{f}} }
func Implies(a, b *Formula) *Formula   { return &Formula{Op: OpImplies, Args: []*Formula{a, b}} }
func Iff(a, b *Formula) *Formula       { return &Formula{Op: OpIff, Args: []*Formula{a, b}} }
func Until(a, b *Formula) *Formula     { return &Formula{Op: OpUntil, Args: []*Formula{a, b}} }
func Release(a, b *Formula) *Formula   { return &Formula{Op: OpRelease, Args: []*Formula{a, b}} }
func WeakUntil(a, b *Formula) *Formula { return &Formula{Op: OpWeakUntil, Args: []*Formula{a, b}} }

// And returns the conjunction of fs. Nested conjunctions are flattened,
// the empty conjunction is true.
func And(fs ...*Formula) *Formula { return junction(OpAnd, fs) }

// Or returns the disjunction of fs. The empty disjunction is false.
func Or(fs ...*Formula) *Formula { return junction(OpOr, fs) }

func junction(op Op, fs []*Formula) *Formula {
	var args []*Formula
	for _, f := range fs {
		if f.Op == op {
			args = append(args, f.Args...)
			continue
		}
		args = append(args, f)
	}
	switch len(args) {
	case 0:
		if op == OpAnd {
			return True()
		}
		return False()
	case 1:
		return args[0]
	}
	return &Formula{Op: op, Args: args}
}

// IsPropositional reports whether f mentions no temporal operator.
func (f *Formula) IsPropositional() bool {
	if f.Op.Temporal() {
		return false
	}
	for _, a := range f.Args {
		if !a.IsPropositional() {
			return false
		}
	}
	return true
}

// Eval evaluates a propositional formula against a valuation. It panics on
// temporal operators; callers check IsPropositional first.
func (f *Formula) Eval(holds func(prop string) bool) bool {
	switch f.Op {
	case OpTrue:
		return true
	case OpFalse:
		return false
	case OpProp:
		return holds(f.Prop)
	case OpNot:
		return !f.Args[0].Eval(holds)
	case OpAnd:
		for _, a := range f.Args {
			if !a.Eval(holds) {
				return false
			}
		}
		return true
	case OpOr:
		for _, a := range f.Args {
			if a.Eval(holds) {
				return true
			}
		}
		return false
	case OpImplies:
		return !f.Args[0].Eval(holds) || f.Args[1].Eval(holds)
	case OpIff:
		return f.Args[0].Eval(holds) == f.Args[1].Eval(holds)
	}
	panic(fmt.Sprintf("ltl: cannot evaluate temporal operator %s", f.Op))
}

// Props returns the sorted atomic propositions mentioned by f.
func (f *Formula) Props() []string {
	seen := map[string]bool{}
	var walk func(*Formula)
	walk = func(n *Formula) {
		if n.Op == OpProp {
			seen[n.Prop] = true
		}
		for _, a := range n.Args {
			walk(a)
		}
	}
	walk(f)

	props := make([]string, 0, len(seen))
	for p := range seen {
		props = append(props, p)
	}
	slices.Sort(props)
	return props
}

// Equal reports structural equality.
func (f *Formula) Equal(g *Formula) bool {
	if f.Op != g.Op || f.Prop != g.Prop || len(f.Args) != len(g.Args) {
		return false
	}
	for i := range f.Args {
		if !f.Args[i].Equal(g.Args[i]) {
			return false
		}
	}
	return true
}

// String renders f in the syntax accepted by Parse.
func (f *Formula) String() string {
	var sb strings.Builder
	f.write(&sb)
	return sb.String()
}

func (f *Formula) write(sb *strings.Builder) {
	switch f.Op {
	case OpTrue, OpFalse:
		sb.WriteString(f.Op.String())
	case OpProp:
		sb.WriteString(f.Prop)
	case OpNot:
		sb.WriteString("!")
		f.Args[0].write(sb)
	case OpNext, OpFinally, OpGlobally:
		sb.WriteString(f.Op.String())
		sb.WriteString(" ")
		f.Args[0].write(sb)
	default:
		sb.WriteString("(")
		for i, a := range f.Args {
			if i > 0 {
				sb.WriteString(" ")
				sb.WriteString(f.Op.String())
				sb.WriteString(" ")
			}
			a.write(sb)
		}
		sb.WriteString(")")
	}
}
