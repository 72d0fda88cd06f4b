package suspect

import (
	"errors"
	"fmt"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/parity"
)

// Lasso is an ultimately periodic path through the arena: position k sits
// in States[k] and plays Moves[k]; after the last position the path
// continues at position Loop.
type Lasso struct {
	States []int
	Moves  []int
	Loop   int
}

// Len is the number of positions.
func (l Lasso) Len() int { return len(l.States) }

// Next returns the position following k.
func (l Lasso) Next(k int) int {
	if k == len(l.States)-1 {
		return l.Loop
	}
	return k + 1
}

// Cycle returns the states visited infinitely often.
func (l Lasso) Cycle() []int { return l.States[l.Loop:] }

// Validate checks that the lasso starts in the initial state and follows
// arena edges, including the edge closing the loop.
func (l Lasso) Validate(a *arena.Arena) error {
	if len(l.States) == 0 || len(l.Moves) != len(l.States) {
		return errors.New("lasso needs one move per state and at least one state")
	}
	if l.Loop < 0 || l.Loop >= len(l.States) {
		return fmt.Errorf("loop start %d out of range", l.Loop)
	}
	if l.States[0] != a.Initial() {
		return errors.New("lasso does not start in the initial state")
	}
	for k, s := range l.States {
		if s < 0 || s >= a.NumStates() {
			return fmt.Errorf("position %d: state %d out of range", k, s)
		}
		m := l.Moves[k]
		if m < 0 || m >= a.Game.NumMoves() {
			return fmt.Errorf("position %d: move %d out of range", k, m)
		}
		if next := l.States[l.Next(k)]; a.Succ[s][m] != next {
			return fmt.Errorf("position %d: %s under %s does not lead to %s",
				k, a.Describe(s), a.Game.FormatMove(m), a.Describe(next))
		}
	}
	return nil
}

// Deviation witnesses a profitable unilateral deviation: at Position the
// player swaps its prescribed action, the resulting joint action Deviated
// leads to Target, and the coalition cannot falsify the player's goal from
// there.
type Deviation struct {
	Player   int
	Position int
	State    int
	Move     int
	Deviated int
	Target   int
}

// Report is the outcome of checking one player against a candidate.
type Report struct {
	Player     int
	Profitable bool
	Deviation  *Deviation
	// Layers are the cumulative sizes of the deviator's attractor towards
	// unpunishable deviations.
	Layers []int
	// Coalition holds the lasso positions from which the coalition keeps the
	// player from improving: the complement of the deviator's attractor.
	Coalition parity.Set
}

// Check plays the suspect game of player against a candidate outcome. Its
// states are lasso positions before any deviation plus two absorbing
// states after one: "escaped" when the deviation leads outside the
// punishment region and "caught" otherwise. A player that already wins on
// the lasso has nothing to gain, so all its deviations count as caught.
func Check(a *arena.Arena, l Lasso, player int, won bool, pun *Punishment) (*Report, error) {
	if err := l.Validate(a); err != nil {
		return nil, err
	}
	if pun.Player != player {
		return nil, fmt.Errorf("punishment is for player %d, not %d", pun.Player, player)
	}

	g := a.Game
	n := l.Len()
	pg := &parity.Game{}
	for range n {
		pg.AddNode(parity.Even, 0)
	}
	escaped := pg.AddNode(parity.Even, 0)
	caught := pg.AddNode(parity.Odd, 1)
	pg.AddEdge(escaped, escaped)
	pg.AddEdge(caught, caught)

	escapeAction := make([]int, n)
	for k := range n {
		escapeAction[k] = -1
		pg.AddEdge(k, l.Next(k))

		s, m := l.States[k], l.Moves[k]
		prescribed := g.Moves()[m][player]
		toCaught := false
		for act := range g.Players[player].Actions {
			if act == prescribed {
				continue
			}
			target := a.Succ[s][g.Replace(m, player, act)]
			if !won && !pun.Punishes(target) {
				if escapeAction[k] < 0 {
					escapeAction[k] = act
					pg.AddEdge(k, escaped)
				}
			} else if !toCaught {
				toCaught = true
				pg.AddEdge(k, caught)
			}
		}
	}

	target := parity.NewSet(pg.NumNodes())
	target[escaped] = true
	att := parity.Attractor(pg, nil, target, parity.Even)

	rep := &Report{
		Player:    player,
		Layers:    att.Layers,
		Coalition: parity.NewSet(n),
	}
	for k := range n {
		rep.Coalition[k] = !att.Set[k]
	}
	if !att.Set[0] {
		return rep, nil
	}

	k := 0
	for att.Strategy[k] != escaped {
		k = att.Strategy[k]
	}
	s, m := l.States[k], l.Moves[k]
	deviated := g.Replace(m, player, escapeAction[k])
	rep.Profitable = true
	rep.Deviation = &Deviation{
		Player:   player,
		Position: k,
		State:    s,
		Move:     m,
		Deviated: deviated,
		Target:   a.Succ[s][deviated],
	}
	return rep, nil
}
