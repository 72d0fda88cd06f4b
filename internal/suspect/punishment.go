// Package suspect builds the two-player games that decide whether a player
// can profit from deviating: the punishment game, in which everyone else
// tries to falsify one player's goal, and the check of a candidate outcome
// against that punishment.
package suspect

import (
	"context"
	"fmt"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/parity"
)

// Game is the punishment game of one player over an arena. In coalition
// nodes (one per joint state, owned by parity.Odd) the other players commit
// to their actions; in deviator nodes (owned by parity.Even) the player
// answers with its own action. Coalition nodes carry the priority of the
// player's goal automaton, so Even wins exactly the plays on which the
// goal holds.
type Game struct {
	Player int
	Arena  *arena.Arena
	Parity *parity.Game

	// profiles lists the joint actions in which the player plays its first
	// action; each one stands for a commitment of the coalition.
	profiles []int
}

// NewGame builds the punishment game of player over a.
func NewGame(a *arena.Arena, player int) *Game {
	g := a.Game
	sg := &Game{Player: player, Arena: a, Parity: &parity.Game{}}
	for m, move := range g.Moves() {
		if move[player] == 0 {
			sg.profiles = append(sg.profiles, m)
		}
	}

	n := a.NumStates()
	for s := range n {
		sg.Parity.AddNode(parity.Odd, a.Priority(s, player))
	}
	actions := len(g.Players[player].Actions)
	for s := range n {
		for _, m := range sg.profiles {
			d := sg.Parity.AddNode(parity.Even, 0)
			sg.Parity.AddEdge(s, d)
			for act := range actions {
				sg.Parity.AddEdge(d, a.Succ[s][g.Replace(m, player, act)])
			}
		}
	}
	return sg
}

// deviatorNode is the node where the player answers profile k in state s.
func (sg *Game) deviatorNode(s, k int) int {
	return sg.Arena.NumStates() + s*len(sg.profiles) + k
}

// Punishment is a solved punishment game.
type Punishment struct {
	Player int
	// Region holds the joint states from which the coalition can falsify
	// the player's goal whatever the player does.
	Region parity.Set
	// Response is the coalition's commitment in each state of Region, as a
	// joint action in which the player plays its first action; -1 outside.
	Response []int

	arena *arena.Arena
}

// Solve solves the game.
func (sg *Game) Solve() (*Punishment, error) {
	sol, err := parity.Solve(sg.Parity)
	if err != nil {
		return nil, fmt.Errorf("punishment game of %s: %w", sg.Arena.Game.Players[sg.Player].Name, err)
	}

	n := sg.Arena.NumStates()
	pun := &Punishment{
		Player:   sg.Player,
		Region:   parity.NewSet(n),
		Response: make([]int, n),
		arena:    sg.Arena,
	}
	for s := range n {
		pun.Response[s] = -1
		if sol.Winner[s] != parity.Odd {
			continue
		}
		pun.Region[s] = true
		for k, m := range sg.profiles {
			if sol.Strategy[s] == sg.deviatorNode(s, k) {
				pun.Response[s] = m
				break
			}
		}
	}
	return pun, nil
}

// BuildPunishment builds and solves the punishment game of player.
func BuildPunishment(ctx context.Context, a *arena.Arena, player int) (*Punishment, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return NewGame(a, player).Solve()
}

// Punishes reports whether the coalition can falsify the player's goal from s.
func (p *Punishment) Punishes(s int) bool { return p.Region[s] }

// Respond returns the joint action played in s when the coalition punishes
// and the player chooses action. ok is false outside the region.
func (p *Punishment) Respond(s, action int) (move int, ok bool) {
	if !p.Region[s] || p.Response[s] < 0 {
		return -1, false
	}
	return p.arena.Game.Replace(p.Response[s], p.Player, action), true
}

// Enforces checks that commit, a coalition commitment per joint state given
// as a joint action, punishes the player from every state of the region:
// whatever the player answers, play stays inside the region and its goal
// fails.
func (p *Punishment) Enforces(commit func(s int) (move int, ok bool)) error {
	a := p.arena
	g := a.Game
	name := g.Players[p.Player].Name
	n := a.NumStates()

	// The player alone picks among the successors the commitment allows.
	pg := &parity.Game{}
	for s := range n {
		pg.AddNode(parity.Even, a.Priority(s, p.Player))
	}
	outside := pg.AddNode(parity.Even, 1)
	pg.AddEdge(outside, outside)
	for s := range n {
		if !p.Region[s] {
			pg.AddEdge(s, outside)
			continue
		}
		m, ok := commit(s)
		if !ok {
			return fmt.Errorf("no punishment of %s in %s", name, a.Describe(s))
		}
		for act := range g.Players[p.Player].Actions {
			dev := g.Replace(m, p.Player, act)
			to := a.Succ[s][dev]
			if !p.Region[to] {
				return fmt.Errorf("%s escapes its punishment from %s to %s under %s", name, a.Describe(s), a.Describe(to), g.FormatMove(dev))
			}
			pg.AddEdge(s, to)
		}
	}

	sol, err := parity.Solve(pg)
	if err != nil {
		return err
	}
	won := sol.Region(parity.Even)
	for s := range n {
		if p.Region[s] && won[s] {
			return fmt.Errorf("%s reaches its goal from %s despite the punishment", name, a.Describe(s))
		}
	}
	return nil
}
