// Package game describes concurrent game structures: players with their
// action alphabets and goals, an optional explicit environment, and the
// letters a joint step emits to the goal automata.
package game

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/lox/cgsynth/internal/ltl"
)

// Payoff is the outcome a player is required to receive in an equilibrium.
type Payoff int

const (
	PayoffWin Payoff = iota
	PayoffLose
	PayoffAny
)

func (p Payoff) String() string {
	switch p {
	case PayoffWin:
		return "win"
	case PayoffLose:
		return "lose"
	case PayoffAny:
		return "any"
	}
	return fmt.Sprintf("Payoff(%d)", int(p))
}

// ParsePayoff accepts "win", "lose" or "any". The empty string means win.
func ParsePayoff(s string) (Payoff, error) {
	switch strings.ToLower(s) {
	case "", "win", "w":
		return PayoffWin, nil
	case "lose", "l":
		return PayoffLose, nil
	case "any", "?":
		return PayoffAny, nil
	}
	return 0, fmt.Errorf("unknown payoff %q (want win, lose or any)", s)
}

// Admits reports whether outcome won satisfies the requirement.
func (p Payoff) Admits(won bool) bool {
	switch p {
	case PayoffWin:
		return won
	case PayoffLose:
		return !won
	}
	return true
}

// Player describes one participant. New copies the players it is given, so
// later changes to the caller's slices do not reach the game.
type Player struct {
	Name    string
	Actions []string
	Goal    *ltl.Formula
	Payoff  Payoff
}

// Letter is the set of atomic propositions true during one step.
type Letter struct {
	Props []string
}

// NewLetter builds a letter from props in any order, dropping duplicates.
func NewLetter(props ...string) Letter {
	sorted := slices.Clone(props)
	slices.Sort(sorted)
	return Letter{Props: slices.Compact(sorted)}
}

// Has reports whether prop is true in the letter.
func (l Letter) Has(prop string) bool {
	_, found := slices.BinarySearch(l.Props, prop)
	return found
}

// Key is a canonical encoding usable as a map key.
func (l Letter) Key() string { return strings.Join(l.Props, ",") }

func (l Letter) String() string { return "{" + l.Key() + "}" }

// EnvTransition fires when every guarded player plays the named action.
// Players missing from Guard, or guarded by "*", may play anything.
type EnvTransition struct {
	Guard map[string]string
	To    string
}

// EnvState is a named environment location. Its labels are emitted on every
// step leaving it. Transitions are tried in order and the first match wins.
type EnvState struct {
	Name        string
	Labels      []string
	Transitions []EnvTransition
}

// Environment is an explicit arena the players move through.
type Environment struct {
	Initial string
	States  []EnvState
}

// Move is a joint action: Move[i] indexes Players[i].Actions.
type Move []int

// Game is the validated, indexed form of a game description.
type Game struct {
	Name    string
	Players []Player

	strides []int
	moves   []Move

	envNames   []string
	envInitial int
	envNext    [][]int // [env state][move] -> env state
	letterOf   [][]int // [env state][move] -> letter index
	alphabet   []Letter
}

var ErrInvalidGame = errors.New("invalid game")

func invalidf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidGame, fmt.Sprintf(format, args...))
}

// New validates the players and environment and precomputes the move table
// and the alphabet. A nil environment is a single state with no labels.
func New(name string, players []Player, env *Environment) (*Game, error) {
	if len(players) == 0 {
		return nil, invalidf("at least one player is required")
	}
	g := &Game{Name: name, Players: make([]Player, len(players))}

	seen := map[string]bool{}
	for i, p := range players {
		p.Actions = slices.Clone(p.Actions)
		g.Players[i] = p
		if p.Name == "" || strings.ContainsAny(p.Name, " \t.,") {
			return nil, invalidf("invalid player name %q", p.Name)
		}
		if seen[p.Name] {
			return nil, invalidf("duplicate player %q", p.Name)
		}
		seen[p.Name] = true
		if len(p.Actions) == 0 {
			return nil, invalidf("player %s has no actions", p.Name)
		}
		acts := map[string]bool{}
		for _, a := range p.Actions {
			if a == "" || a == "*" || strings.ContainsAny(a, " \t.,") {
				return nil, invalidf("player %s: invalid action %q", p.Name, a)
			}
			if acts[a] {
				return nil, invalidf("player %s: duplicate action %q", p.Name, a)
			}
			acts[a] = true
		}
		if p.Goal == nil {
			return nil, invalidf("player %s has no goal", p.Name)
		}
	}

	g.buildMoves()

	if env == nil {
		env = &Environment{Initial: "env", States: []EnvState{{
			Name:        "env",
			Transitions: []EnvTransition{{To: "env"}},
		}}}
	}
	if err := g.compileEnvironment(env); err != nil {
		return nil, err
	}
	return g, nil
}

// buildMoves enumerates joint actions with the first player varying slowest.
func (g *Game) buildMoves() {
	n := len(g.Players)
	g.strides = make([]int, n)
	total := 1
	for i := n - 1; i >= 0; i-- {
		g.strides[i] = total
		total *= len(g.Players[i].Actions)
	}
	g.moves = make([]Move, total)
	for idx := range total {
		m := make(Move, n)
		for i := range n {
			m[i] = (idx / g.strides[i]) % len(g.Players[i].Actions)
		}
		g.moves[idx] = m
	}
}

func (g *Game) compileEnvironment(env *Environment) error {
	if len(env.States) == 0 {
		return invalidf("environment has no states")
	}
	index := map[string]int{}
	for i, s := range env.States {
		if _, dup := index[s.Name]; dup || s.Name == "" {
			return invalidf("environment: invalid or duplicate state %q", s.Name)
		}
		index[s.Name] = i
		g.envNames = append(g.envNames, s.Name)
	}

	initial := env.Initial
	if initial == "" {
		initial = env.States[0].Name
	}
	init, ok := index[initial]
	if !ok {
		return invalidf("environment: unknown initial state %q", initial)
	}
	g.envInitial = init

	letterIndex := map[string]int{}
	g.envNext = make([][]int, len(env.States))
	g.letterOf = make([][]int, len(env.States))
	for si, s := range env.States {
		for _, tr := range s.Transitions {
			if _, ok := index[tr.To]; !ok {
				return invalidf("environment state %s: transition to unknown state %q", s.Name, tr.To)
			}
			for player, action := range tr.Guard {
				pi, ok := g.PlayerIndex(player)
				if !ok {
					return invalidf("environment state %s: guard names unknown player %q", s.Name, player)
				}
				if action != "*" && !slices.Contains(g.Players[pi].Actions, action) {
					return invalidf("environment state %s: player %s has no action %q", s.Name, player, action)
				}
			}
		}

		g.envNext[si] = make([]int, len(g.moves))
		g.letterOf[si] = make([]int, len(g.moves))
		for mi, m := range g.moves {
			tr, ok := g.matchTransition(s.Transitions, m)
			if !ok {
				return invalidf("environment state %s has no transition for move %s", s.Name, g.FormatMove(mi))
			}
			g.envNext[si][mi] = index[tr.To]

			letter := g.emit(s.Labels, m)
			li, ok := letterIndex[letter.Key()]
			if !ok {
				li = len(g.alphabet)
				letterIndex[letter.Key()] = li
				g.alphabet = append(g.alphabet, letter)
			}
			g.letterOf[si][mi] = li
		}
	}
	return nil
}

func (g *Game) matchTransition(trs []EnvTransition, m Move) (EnvTransition, bool) {
	for _, tr := range trs {
		match := true
		for player, action := range tr.Guard {
			pi, _ := g.PlayerIndex(player)
			if action != "*" && g.Players[pi].Actions[m[pi]] != action {
				match = false
				break
			}
		}
		if match {
			return tr, true
		}
	}
	return EnvTransition{}, false
}

// emit builds the letter of one step: the state labels, "<player>.<action>"
// for every player, and every bare action name.
func (g *Game) emit(labels []string, m Move) Letter {
	props := slices.Clone(labels)
	for i, p := range g.Players {
		a := p.Actions[m[i]]
		props = append(props, p.Name+"."+a, a)
	}
	return NewLetter(props...)
}

// PlayerIndex looks a player up by name.
func (g *Game) PlayerIndex(name string) (int, bool) {
	for i, p := range g.Players {
		if p.Name == name {
			return i, true
		}
	}
	return -1, false
}

// Moves returns every joint action in a fixed order. Callers must not modify it.
func (g *Game) Moves() []Move { return g.moves }

// NumMoves is len(Moves()).
func (g *Game) NumMoves() int { return len(g.moves) }

// Replace returns the index of move mi with player's action swapped for action.
func (g *Game) Replace(mi, player, action int) int {
	return mi + (action-g.moves[mi][player])*g.strides[player]
}

// Alphabet lists every letter some step of the game can emit.
func (g *Game) Alphabet() []Letter { return g.alphabet }

// InitialEnv is the index of the environment's initial state.
func (g *Game) InitialEnv() int { return g.envInitial }

// NumEnvStates is the number of environment states.
func (g *Game) NumEnvStates() int { return len(g.envNames) }

// EnvName returns the name of environment state s.
func (g *Game) EnvName(s int) string { return g.envNames[s] }

// EnvIndex looks an environment state up by name.
func (g *Game) EnvIndex(name string) (int, bool) {
	i := slices.Index(g.envNames, name)
	return i, i >= 0
}

// Step advances the environment from state s by move mi and returns the
// successor state together with the index of the emitted letter.
func (g *Game) Step(s, mi int) (next, letter int) {
	return g.envNext[s][mi], g.letterOf[s][mi]
}

// Action returns the name of the action player plays in move mi.
func (g *Game) Action(mi, player int) string {
	return g.Players[player].Actions[g.moves[mi][player]]
}

// ActionIndex looks up an action of player by name.
func (g *Game) ActionIndex(player int, action string) (int, bool) {
	i := slices.Index(g.Players[player].Actions, action)
	return i, i >= 0
}

// FormatMove renders a joint action as "p1=a,p2=b".
func (g *Game) FormatMove(mi int) string {
	parts := make([]string, len(g.Players))
	for i, p := range g.Players {
		parts[i] = p.Name + "=" + g.Action(mi, i)
	}
	return strings.Join(parts, ",")
}

// ParseMove is the inverse of FormatMove.
func (g *Game) ParseMove(s string) (int, error) {
	parts := strings.Split(s, ",")
	if len(parts) != len(g.Players) {
		return -1, fmt.Errorf("move %q: want %d actions, got %d", s, len(g.Players), len(parts))
	}
	mi := 0
	for i, part := range parts {
		name, action, ok := strings.Cut(part, "=")
		if !ok || name != g.Players[i].Name {
			return -1, fmt.Errorf("move %q: expected %s=<action> at position %d", s, g.Players[i].Name, i)
		}
		ai, ok := g.ActionIndex(i, action)
		if !ok {
			return -1, fmt.Errorf("move %q: player %s has no action %q", s, name, action)
		}
		mi += ai * g.strides[i]
	}
	return mi, nil
}
