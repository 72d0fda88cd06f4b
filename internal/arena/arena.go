// Package arena builds the synchronous product of a game's environment and
// its players' goal automata. Only joint states reachable from the initial
// state are materialized.
package arena

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/cgsynth/internal/automaton"
	"github.com/lox/cgsynth/internal/game"
)

// DefaultMaxStates bounds arena construction when Options.MaxStates is zero.
const DefaultMaxStates = 1_000_000

var ErrArenaTooLarge = errors.New("arena exceeds state bound")

// JointState is an environment state plus one automaton state per player.
type JointState struct {
	Env   int
	Goals []int
}

// Key identifies a joint state structurally.
type Key string

func (s JointState) Key() Key {
	var sb strings.Builder
	sb.WriteString(strconv.Itoa(s.Env))
	for _, q := range s.Goals {
		sb.WriteByte(':')
		sb.WriteString(strconv.Itoa(q))
	}
	return Key(sb.String())
}

// Options tunes Build.
type Options struct {
	MaxStates int
	Logger    *log.Logger
}

// Arena is the explicit product. State 0 is the initial state and
// Succ[s][m] is the unique successor of state s under joint action m.
type Arena struct {
	Game     *game.Game
	Automata []*automaton.Automaton
	States   []JointState
	Succ     [][]int

	index map[Key]int
}

// Build explores the product breadth first from the initial joint state.
// Every automaton must be complete; Build fails otherwise.
func Build(ctx context.Context, g *game.Game, automata []*automaton.Automaton, opts Options) (*Arena, error) {
	if len(automata) != len(g.Players) {
		return nil, fmt.Errorf("have %d automata for %d players", len(automata), len(g.Players))
	}
	for i, aut := range automata {
		if aut.Letters != len(g.Alphabet()) {
			return nil, fmt.Errorf("player %s: automaton reads %d letters, game has %d", g.Players[i].Name, aut.Letters, len(g.Alphabet()))
		}
		if err := aut.Validate(); err != nil {
			return nil, fmt.Errorf("player %s: %w", g.Players[i].Name, err)
		}
	}

	maxStates := opts.MaxStates
	if maxStates <= 0 {
		maxStates = DefaultMaxStates
	}
	logger := opts.Logger
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("arena")

	a := &Arena{
		Game:     g,
		Automata: automata,
		index:    make(map[Key]int),
	}

	initial := JointState{Env: g.InitialEnv(), Goals: make([]int, len(automata))}
	for i, aut := range automata {
		initial.Goals[i] = aut.Initial
	}
	a.add(initial)

	moves := g.NumMoves()
	for s := 0; s < len(a.States); s++ {
		if s%4096 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
		}
		cur := a.States[s]
		succ := make([]int, moves)
		for m := range moves {
			env, letter := g.Step(cur.Env, m)
			next := JointState{Env: env, Goals: make([]int, len(automata))}
			for i, aut := range automata {
				next.Goals[i] = aut.Step(cur.Goals[i], letter)
			}
			id, ok := a.Lookup(next)
			if !ok {
				if len(a.States) >= maxStates {
					return nil, fmt.Errorf("%w: more than %d joint states", ErrArenaTooLarge, maxStates)
				}
				id = a.add(next)
			}
			succ[m] = id
		}
		a.Succ = append(a.Succ, succ)
	}

	logger.Debug("arena built", "states", len(a.States), "moves", moves, "players", len(g.Players))
	return a, nil
}

func (a *Arena) add(s JointState) int {
	id := len(a.States)
	a.States = append(a.States, s)
	a.index[s.Key()] = id
	return id
}

// Initial is the index of the initial joint state.
func (a *Arena) Initial() int { return 0 }

// NumStates returns the number of reachable joint states.
func (a *Arena) NumStates() int { return len(a.States) }

// Lookup finds a joint state by structural identity.
func (a *Arena) Lookup(s JointState) (int, bool) {
	id, ok := a.index[s.Key()]
	return id, ok
}

// Priority is the parity priority of player's automaton in joint state s.
func (a *Arena) Priority(s, player int) int {
	return a.Automata[player].Priority[a.States[s].Goals[player]]
}

// Describe renders joint state s as "env(q1,q2,...)".
func (a *Arena) Describe(s int) string {
	st := a.States[s]
	parts := make([]string, len(st.Goals))
	for i, q := range st.Goals {
		parts[i] = strconv.Itoa(q)
	}
	return fmt.Sprintf("%s(%s)", a.Game.EnvName(st.Env), strings.Join(parts, ","))
}

// Validate re-checks the arena invariants: every state has exactly one
// successor per joint action, that successor is the synchronous step of the
// environment and every automaton, and every state is reachable from the
// initial state.
func (a *Arena) Validate() error {
	moves := a.Game.NumMoves()
	if len(a.Succ) != len(a.States) {
		return fmt.Errorf("have successors for %d of %d states", len(a.Succ), len(a.States))
	}
	for s, succ := range a.Succ {
		if len(succ) != moves {
			return fmt.Errorf("state %s has %d successors, want %d", a.Describe(s), len(succ), moves)
		}
		cur := a.States[s]
		for m, to := range succ {
			if to < 0 || to >= len(a.States) {
				return fmt.Errorf("state %s: successor %d out of range", a.Describe(s), to)
			}
			env, letter := a.Game.Step(cur.Env, m)
			want := JointState{Env: env, Goals: make([]int, len(cur.Goals))}
			for i, aut := range a.Automata {
				want.Goals[i] = aut.Step(cur.Goals[i], letter)
			}
			if want.Key() != a.States[to].Key() {
				return fmt.Errorf("state %s: move %s leads to %s, want %s", a.Describe(s), a.Game.FormatMove(m), a.Describe(to), want.Key())
			}
		}
	}

	reached := make([]bool, len(a.States))
	reached[a.Initial()] = true
	queue := []int{a.Initial()}
	for len(queue) > 0 {
		s := queue[0]
		queue = queue[1:]
		for _, to := range a.Succ[s] {
			if !reached[to] {
				reached[to] = true
				queue = append(queue, to)
			}
		}
	}
	for s, ok := range reached {
		if !ok {
			return fmt.Errorf("state %s is unreachable", a.Describe(s))
		}
	}
	return nil
}
