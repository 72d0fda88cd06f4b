package ltl2dpa

import (
	"fmt"

	"github.com/lox/cgsynth/internal/ltl"
)

type atomKind int

const (
	atomNow         atomKind = iota // p holds at the atom's step
	atomEventually                  // F p
	atomAlways                      // G p
	atomUntil                       // p U q
	atomRelease                     // p R q
	atomInfOften                    // G F p
	atomFinGlobally                 // F G p
	atomResponse                    // G (p -> F q)
	atomPersist                     // F (p & G q)
)

var atomNames = [...]string{"now", "F", "G", "U", "R", "GF", "FG", "resp", "persist"}

// atom is one deterministic pattern automaton started after delay steps.
// Core states are small integers starting at 0; a negative state counts the
// steps still to skip before the core starts.
type atom struct {
	kind  atomKind
	delay int
	p, q  *ltl.Formula
}

func (a atom) key() string {
	q := ""
	if a.q != nil {
		q = a.q.String()
	}
	return fmt.Sprintf("%s/%d/%s/%s", atomNames[a.kind], a.delay, a.p, q)
}

func (a atom) initial() int { return -a.delay }

// inf reports whether the atom's colour must be seen infinitely often
// (true) or finitely often (false).
func (a atom) inf() bool { return a.kind != atomFinGlobally && a.kind != atomPersist }

// marked reports whether core state s carries the atom's colour.
func (a atom) marked(s int) bool {
	if s < 0 {
		return false
	}
	switch a.kind {
	case atomNow, atomEventually, atomUntil:
		return s == 1
	case atomAlways, atomResponse, atomPersist:
		return s == 0
	case atomRelease:
		return s != 2
	case atomInfOften, atomFinGlobally:
		return s == 1
	}
	return false
}

func (a atom) step(s int, holds func(string) bool) int {
	if s < 0 {
		return s + 1
	}
	p := a.p.Eval(holds)
	switch a.kind {
	case atomNow:
		if s != 0 {
			return s
		}
		if p {
			return 1
		}
		return 2
	case atomEventually:
		if s == 1 || p {
			return 1
		}
		return 0
	case atomAlways:
		if s == 1 || !p {
			return 1
		}
		return 0
	case atomUntil:
		if s != 0 {
			return s
		}
		switch {
		case a.q.Eval(holds):
			return 1
		case p:
			return 0
		}
		return 2
	case atomRelease:
		if s != 0 {
			return s
		}
		switch {
		case !a.q.Eval(holds):
			return 2
		case p:
			return 1
		}
		return 0
	case atomInfOften:
		if p {
			return 1
		}
		return 0
	case atomFinGlobally:
		if p {
			return 0
		}
		return 1
	case atomResponse:
		q := a.q.Eval(holds)
		if s == 0 {
			if p && !q {
				return 1
			}
			return 0
		}
		if q {
			return 0
		}
		return 1
	case atomPersist:
		// 1 while q has held since the last step where p and q held together.
		if !a.q.Eval(holds) {
			return 0
		}
		if s == 1 || p {
			return 1
		}
		return 0
	}
	return s
}

type condKind int

const (
	condTrue condKind = iota
	condFalse
	condInf
	condFin
	condAnd
	condOr
)

// cond is an Emerson-Lei acceptance condition over atom colours.
type cond struct {
	kind  condKind
	color int
	args  []*cond
}

// holds evaluates the condition for a run whose set of colours seen
// infinitely often is inf.
func (c *cond) holds(inf uint64) bool {
	switch c.kind {
	case condTrue:
		return true
	case condFalse:
		return false
	case condInf:
		return inf&(1<<c.color) != 0
	case condFin:
		return inf&(1<<c.color) == 0
	case condAnd:
		for _, a := range c.args {
			if !a.holds(inf) {
				return false
			}
		}
		return true
	case condOr:
		for _, a := range c.args {
			if a.holds(inf) {
				return true
			}
		}
		return false
	}
	return false
}

// maxColors bounds the number of distinct atoms, one bit each.
const maxColors = 64

// decomposer splits an NNF formula into atoms and an acceptance condition.
type decomposer struct {
	atoms []atom
	index map[string]int
}

type unsupportedError struct{ sub *ltl.Formula }

func (e *unsupportedError) Error() string {
	return fmt.Sprintf("unsupported subformula %s", e.sub)
}

func (d *decomposer) add(a atom) (*cond, error) {
	k := a.key()
	color, ok := d.index[k]
	if !ok {
		if len(d.atoms) == maxColors {
			return nil, fmt.Errorf("more than %d temporal patterns", maxColors)
		}
		color = len(d.atoms)
		d.index[k] = color
		d.atoms = append(d.atoms, a)
	}
	if a.inf() {
		return &cond{kind: condInf, color: color}, nil
	}
	return &cond{kind: condFin, color: color}, nil
}

func (d *decomposer) decompose(f *ltl.Formula, delay int) (*cond, error) {
	if f.IsPropositional() {
		switch f.Op {
		case ltl.OpTrue:
			return &cond{kind: condTrue}, nil
		case ltl.OpFalse:
			return &cond{kind: condFalse}, nil
		}
		return d.add(atom{kind: atomNow, delay: delay, p: f})
	}

	switch f.Op {
	case ltl.OpAnd, ltl.OpOr:
		kind := condAnd
		if f.Op == ltl.OpOr {
			kind = condOr
		}
		c := &cond{kind: kind}
		for _, arg := range f.Args {
			sub, err := d.decompose(arg, delay)
			if err != nil {
				return nil, err
			}
			c.args = append(c.args, sub)
		}
		return c, nil

	case ltl.OpNext:
		return d.decompose(f.Args[0], delay+1)

	case ltl.OpFinally:
		x := f.Args[0]
		switch {
		case x.IsPropositional():
			return d.add(atom{kind: atomEventually, delay: delay, p: x})
		case x.Op == ltl.OpGlobally && x.Args[0].IsPropositional():
			return d.add(atom{kind: atomFinGlobally, delay: delay, p: x.Args[0]})
		case x.Op == ltl.OpOr:
			args := make([]*ltl.Formula, len(x.Args))
			for i, a := range x.Args {
				args[i] = ltl.Finally(a)
			}
			return d.decompose(ltl.Or(args...), delay)
		case x.Op == ltl.OpNext:
			return d.decompose(ltl.Finally(x.Args[0]), delay+1)
		case x.Op == ltl.OpFinally:
			return d.decompose(x, delay)
		case x.Op == ltl.OpAnd:
			if p, q, ok := persistParts(x); ok {
				return d.add(atom{kind: atomPersist, delay: delay, p: p, q: q})
			}
		}

	case ltl.OpGlobally:
		x := f.Args[0]
		switch {
		case x.IsPropositional():
			return d.add(atom{kind: atomAlways, delay: delay, p: x})
		case x.Op == ltl.OpFinally && x.Args[0].IsPropositional():
			return d.add(atom{kind: atomInfOften, delay: delay, p: x.Args[0]})
		case x.Op == ltl.OpAnd:
			args := make([]*ltl.Formula, len(x.Args))
			for i, a := range x.Args {
				args[i] = ltl.Globally(a)
			}
			return d.decompose(ltl.And(args...), delay)
		case x.Op == ltl.OpNext:
			return d.decompose(ltl.Globally(x.Args[0]), delay+1)
		case x.Op == ltl.OpGlobally:
			return d.decompose(x, delay)
		case x.Op == ltl.OpOr:
			if p, q, ok := responseParts(x); ok {
				return d.add(atom{kind: atomResponse, delay: delay, p: p, q: q})
			}
		}

	case ltl.OpUntil:
		if f.Args[0].IsPropositional() && f.Args[1].IsPropositional() {
			return d.add(atom{kind: atomUntil, delay: delay, p: f.Args[0], q: f.Args[1]})
		}
		if f.Args[0].IsPropositional() && f.Args[0].Op == ltl.OpTrue {
			return d.decompose(ltl.Finally(f.Args[1]), delay)
		}

	case ltl.OpRelease:
		if f.Args[0].IsPropositional() && f.Args[1].IsPropositional() {
			return d.add(atom{kind: atomRelease, delay: delay, p: f.Args[0], q: f.Args[1]})
		}
		if f.Args[0].Op == ltl.OpFalse {
			return d.decompose(ltl.Globally(f.Args[1]), delay)
		}
	}
	return nil, &unsupportedError{sub: f}
}

// responseParts matches the NNF of G (p -> F q): a disjunction of
// propositional terms and exactly one F q with q propositional.
func responseParts(or *ltl.Formula) (p, q *ltl.Formula, ok bool) {
	var rest []*ltl.Formula
	for _, a := range or.Args {
		switch {
		case a.IsPropositional():
			rest = append(rest, a)
		case a.Op == ltl.OpFinally && a.Args[0].IsPropositional() && q == nil:
			q = a.Args[0]
		default:
			return nil, nil, false
		}
	}
	if q == nil {
		return nil, nil, false
	}
	return ltl.Not(ltl.Or(rest...)), q, true
}

// persistParts matches the NNF of !G (p -> F !q): a conjunction of
// propositional terms and at least one G q with q propositional.
func persistParts(and *ltl.Formula) (p, q *ltl.Formula, ok bool) {
	var rest, always []*ltl.Formula
	for _, a := range and.Args {
		switch {
		case a.IsPropositional():
			rest = append(rest, a)
		case a.Op == ltl.OpGlobally && a.Args[0].IsPropositional():
			always = append(always, a.Args[0])
		default:
			return nil, nil, false
		}
	}
	if len(always) == 0 {
		return nil, nil, false
	}
	return ltl.And(rest...), ltl.And(always...), true
}
