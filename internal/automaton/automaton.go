// Package automaton defines deterministic parity automata over a game's
// alphabet and the Builder interface goal translators implement.
package automaton

import (
	"context"
	"errors"
	"fmt"
	"io"
	"slices"
	"strings"

	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl"
)

// Builder translates a goal into a deterministic automaton reading the
// given alphabet. Implementations must be safe for concurrent use.
type Builder interface {
	Build(ctx context.Context, goal *ltl.Formula, alphabet []game.Letter) (*Automaton, error)
}

// BuilderFunc adapts a function to Builder.
type BuilderFunc func(ctx context.Context, goal *ltl.Formula, alphabet []game.Letter) (*Automaton, error)

func (f BuilderFunc) Build(ctx context.Context, goal *ltl.Formula, alphabet []game.Letter) (*Automaton, error) {
	return f(ctx, goal, alphabet)
}

var ErrFormula = errors.New("formula error")

// FormulaError reports a goal that could not be translated.
type FormulaError struct {
	Formula string
	Reason  string
}

func (e *FormulaError) Error() string {
	return fmt.Sprintf("cannot translate %s: %s", e.Formula, e.Reason)
}

func (e *FormulaError) Unwrap() error { return ErrFormula }

// Automaton is a deterministic automaton with a max-even parity condition on
// states: a run is accepting iff the largest priority seen infinitely often
// is even. Delta[q][l] is the successor of q on letter l, or -1 when missing.
type Automaton struct {
	Initial  int
	Letters  int
	Delta    [][]int
	Priority []int
	Labels   []string
}

// New returns an empty automaton over an alphabet of the given size.
func New(letters int) *Automaton {
	return &Automaton{Letters: letters}
}

// AddState appends a state with no outgoing transitions.
func (a *Automaton) AddState(priority int, label string) int {
	row := make([]int, a.Letters)
	for i := range row {
		row[i] = -1
	}
	a.Delta = append(a.Delta, row)
	a.Priority = append(a.Priority, priority)
	a.Labels = append(a.Labels, label)
	return len(a.Delta) - 1
}

// SetTransition sets the successor of q on letter.
func (a *Automaton) SetTransition(q, letter, to int) {
	a.Delta[q][letter] = to
}

// NumStates returns the number of states.
func (a *Automaton) NumStates() int { return len(a.Delta) }

// Step returns the successor of q on letter.
func (a *Automaton) Step(q, letter int) int { return a.Delta[q][letter] }

// MaxPriority returns the largest priority of any state.
func (a *Automaton) MaxPriority() int {
	if len(a.Priority) == 0 {
		return 0
	}
	return slices.Max(a.Priority)
}

// Complete redirects every missing transition to a rejecting sink, added on
// demand. It reports whether a sink was added.
func (a *Automaton) Complete() bool {
	sink := -1
	for q := range a.Delta {
		for l, to := range a.Delta[q] {
			if to >= 0 {
				continue
			}
			if sink < 0 {
				sink = a.AddState(1, "sink")
				for i := range a.Delta[sink] {
					a.Delta[sink][i] = sink
				}
			}
			a.Delta[q][l] = sink
		}
	}
	return sink >= 0
}

// Validate checks that the automaton is deterministic and complete: exactly
// one in-range successor per state and letter.
func (a *Automaton) Validate() error {
	n := a.NumStates()
	if n == 0 {
		return errors.New("automaton has no states")
	}
	if a.Initial < 0 || a.Initial >= n {
		return fmt.Errorf("initial state %d out of range", a.Initial)
	}
	if len(a.Priority) != n {
		return fmt.Errorf("have %d priorities for %d states", len(a.Priority), n)
	}
	for q, row := range a.Delta {
		if len(row) != a.Letters {
			return fmt.Errorf("state %d has %d transitions, want %d", q, len(row), a.Letters)
		}
		for l, to := range row {
			if to < 0 || to >= n {
				return fmt.Errorf("state %d has no successor on letter %d", q, l)
			}
		}
		if a.Priority[q] < 0 {
			return fmt.Errorf("state %d has negative priority", q)
		}
	}
	return nil
}

// Accepting reports whether a cycle through the given states is accepting.
func (a *Automaton) Accepting(cycle []int) bool {
	best := -1
	for _, q := range cycle {
		best = max(best, a.Priority[q])
	}
	return best >= 0 && best%2 == 0
}

// Accepts decides acceptance of the ultimately periodic word prefix·loop^ω.
func (a *Automaton) Accepts(prefix, loop []int) bool {
	if len(loop) == 0 {
		return false
	}
	q := a.Initial
	for _, l := range prefix {
		q = a.Step(q, l)
	}
	// Iterate whole loops until the state at the loop boundary repeats; the
	// states visited from its first occurrence on are the ones seen forever.
	var boundary []int
	var visited [][]int
	for {
		if i := slices.Index(boundary, q); i >= 0 {
			var cycle []int
			for _, states := range visited[i:] {
				cycle = append(cycle, states...)
			}
			return a.Accepting(cycle)
		}
		boundary = append(boundary, q)
		states := make([]int, 0, len(loop))
		for _, l := range loop {
			q = a.Step(q, l)
			states = append(states, q)
		}
		visited = append(visited, states)
	}
}

// RabinPair is accepting when Fin is visited finitely often and Inf infinitely often.
type RabinPair struct {
	Fin []int
	Inf []int
}

// RabinPairs returns the Rabin condition equivalent to the parity condition:
// one pair per even priority d with Inf = {priority d} and Fin = {priority > d}.
func (a *Automaton) RabinPairs() []RabinPair {
	var pairs []RabinPair
	for d := 0; d <= a.MaxPriority(); d += 2 {
		var pair RabinPair
		for q, p := range a.Priority {
			switch {
			case p == d:
				pair.Inf = append(pair.Inf, q)
			case p > d:
				pair.Fin = append(pair.Fin, q)
			}
		}
		if len(pair.Inf) > 0 {
			pairs = append(pairs, pair)
		}
	}
	return pairs
}

// WriteDot renders the automaton in Graphviz format, merging parallel edges.
func (a *Automaton) WriteDot(w io.Writer, alphabet []game.Letter) error {
	var sb strings.Builder
	sb.WriteString("digraph automaton {\n  rankdir=LR;\n")
	fmt.Fprintf(&sb, "  init [shape=point];\n  init -> q%d;\n", a.Initial)
	for q := range a.Delta {
		shape := "circle"
		if a.Priority[q]%2 == 0 {
			shape = "doublecircle"
		}
		fmt.Fprintf(&sb, "  q%d [shape=%s,label=\"%d:%d\"];\n", q, shape, q, a.Priority[q])
	}
	for q, row := range a.Delta {
		edges := map[int][]string{}
		var targets []int
		for l, to := range row {
			if to < 0 {
				continue
			}
			if _, ok := edges[to]; !ok {
				targets = append(targets, to)
			}
			edges[to] = append(edges[to], alphabet[l].String())
		}
		for _, to := range targets {
			fmt.Fprintf(&sb, "  q%d -> q%d [label=%q];\n", q, to, strings.Join(edges[to], " "))
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
