// Package ltl2dpa is the built-in goal translator. It supports boolean
// combinations of X-shifted patterns (F p, G p, GF p, FG p, p U q, p R q,
// p W q, G(p -> F q)) over propositional p and q. Each pattern becomes a
// small deterministic automaton carrying one colour, their product carries
// an Emerson-Lei condition, and a colour appearance record turns that into
// a max-even parity condition.
package ltl2dpa

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/cgsynth/internal/automaton"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl"
)

// DefaultMaxStates bounds the size of a translated automaton.
const DefaultMaxStates = 100_000

// Translator implements automaton.Builder.
type Translator struct {
	MaxStates int
	logger    *log.Logger
}

var _ automaton.Builder = (*Translator)(nil)

// New returns a translator with the default state bound.
func New(logger *log.Logger) *Translator {
	if logger == nil {
		logger = log.Default()
	}
	return &Translator{MaxStates: DefaultMaxStates, logger: logger.WithPrefix("ltl2dpa")}
}

// carState is a product state together with its colour appearance record
// and the priority of the transition that entered it.
type carState struct {
	atoms    []int
	record   []int
	priority int
}

func (s carState) key() string {
	var sb strings.Builder
	for _, a := range s.atoms {
		sb.WriteString(strconv.Itoa(a))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	for _, c := range s.record {
		sb.WriteString(strconv.Itoa(c))
		sb.WriteByte(',')
	}
	sb.WriteByte('|')
	sb.WriteString(strconv.Itoa(s.priority))
	return sb.String()
}

// Build translates goal over alphabet.
func (t *Translator) Build(ctx context.Context, goal *ltl.Formula, alphabet []game.Letter) (*automaton.Automaton, error) {
	d := &decomposer{index: map[string]int{}}
	acc, err := d.decompose(ltl.NNF(goal), 0)
	if err != nil {
		var unsupported *unsupportedError
		if errors.As(err, &unsupported) {
			return nil, &automaton.FormulaError{Formula: goal.String(), Reason: unsupported.Error()}
		}
		return nil, &automaton.FormulaError{Formula: goal.String(), Reason: err.Error()}
	}

	holds := make([]func(string) bool, len(alphabet))
	for i, l := range alphabet {
		holds[i] = l.Has
	}

	identity := make([]int, len(d.atoms))
	for i := range identity {
		identity[i] = i
	}
	atoms0 := make([]int, len(d.atoms))
	for i, a := range d.atoms {
		atoms0[i] = a.initial()
	}
	initial := enter(identity, atoms0, d.atoms, acc)

	a := automaton.New(len(alphabet))
	index := map[string]int{}
	var states []carState
	push := func(s carState) (int, error) {
		k := s.key()
		if q, ok := index[k]; ok {
			return q, nil
		}
		if t.MaxStates > 0 && len(states) >= t.MaxStates {
			return -1, &automaton.FormulaError{
				Formula: goal.String(),
				Reason:  fmt.Sprintf("automaton exceeds %d states", t.MaxStates),
			}
		}
		q := a.AddState(s.priority, k)
		index[k] = q
		states = append(states, s)
		return q, nil
	}

	if _, err := push(initial); err != nil {
		return nil, err
	}
	for q := 0; q < len(states); q++ {
		if q%1024 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cur := states[q]
		for l := range alphabet {
			next := make([]int, len(cur.atoms))
			for i, at := range d.atoms {
				next[i] = at.step(cur.atoms[i], holds[l])
			}
			to, err := push(enter(cur.record, next, d.atoms, acc))
			if err != nil {
				return nil, err
			}
			a.SetTransition(q, l, to)
		}
	}

	if t.logger != nil {
		t.logger.Debug("translated goal", "goal", goal, "patterns", len(d.atoms), "states", a.NumStates())
	}
	return a, nil
}

// enter computes the record update for moving into the product state atoms.
// The colours marked there move to the front of the record; h is the deepest
// old position among them and the priority is 2(h+1), plus one when the
// colours in the old record prefix up to h do not satisfy the condition.
func enter(record, atoms []int, defs []atom, acc *cond) carState {
	var marked uint64
	for i, at := range defs {
		if at.marked(atoms[i]) {
			marked |= 1 << i
		}
	}

	h := -1
	var prefix uint64
	for pos, c := range record {
		if marked&(1<<c) != 0 {
			h = pos
		}
	}
	for _, c := range record[:h+1] {
		prefix |= 1 << c
	}

	next := make([]int, 0, len(record))
	for _, c := range record {
		if marked&(1<<c) != 0 {
			next = append(next, c)
		}
	}
	for _, c := range record {
		if marked&(1<<c) == 0 {
			next = append(next, c)
		}
	}

	priority := 2 * (h + 1)
	if !acc.holds(prefix) {
		priority++
	}
	return carState{atoms: slices.Clone(atoms), record: next, priority: priority}
}
