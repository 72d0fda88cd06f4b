package equilibrium

import (
	"context"
	"fmt"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/suspect"
)

// Verification is the outcome of re-checking a profile against a game.
type Verification struct {
	// Won records, per player, whether the replayed outcome satisfies its goal.
	Won []bool
	// Reports holds the suspect check of every losing player.
	Reports []*suspect.Report
	// Faults lists the losing players whose saved punishment strategies
	// fail to punish them.
	Faults []string
}

// Equilibrium reports whether no losing player can profit and every saved
// punishment holds.
func (v *Verification) Equilibrium() bool {
	if len(v.Faults) > 0 {
		return false
	}
	for _, r := range v.Reports {
		if r.Profitable {
			return false
		}
	}
	return true
}

// Verify rebuilds the arena of g, replays the profile's outcome, runs the
// suspect check of every losing player against it and checks that the
// punishment strategies saved for that player keep it losing. It fails
// when the outcome cannot be replayed or when the winners it records are
// wrong.
func Verify(ctx context.Context, g *game.Game, p *Profile, opts Options) (*Verification, error) {
	e, err := newEngine(g, opts)
	if err != nil {
		return nil, err
	}
	a, err := e.buildArena(ctx)
	if err != nil {
		return nil, err
	}
	l, err := p.Lasso(a)
	if err != nil {
		return nil, fmt.Errorf("replay profile: %w", err)
	}

	v := &Verification{Won: make([]bool, len(g.Players))}
	losers := make([]bool, len(g.Players))
	for i, pl := range g.Players {
		if v.Won[i], err = won(a, l, i); err != nil {
			return nil, err
		}
		if v.Won[i] != p.Won(pl.Name) {
			return nil, fmt.Errorf("profile records %s as winning=%t, outcome gives %t", pl.Name, p.Won(pl.Name), v.Won[i])
		}
		losers[i] = !v.Won[i]
	}

	puns, err := e.punishments(ctx, a, losers)
	if err != nil {
		return nil, err
	}
	for i := range g.Players {
		if !losers[i] {
			continue
		}
		rep, err := suspect.Check(a, l, i, false, puns[i])
		if err != nil {
			return nil, err
		}
		v.Reports = append(v.Reports, rep)
		if err := puns[i].Enforces(p.commitment(a, i)); err != nil {
			v.Faults = append(v.Faults, err.Error())
		}
	}
	return v, nil
}

// won decides player's goal on the outcome twice: from the arena priorities
// on the loop, and by running the goal automaton on the emitted letters.
// The two must agree.
func won(a *arena.Arena, l suspect.Lasso, player int) (bool, error) {
	top := -1
	for _, s := range l.Cycle() {
		top = max(top, a.Priority(s, player))
	}
	byArena := top%2 == 0

	g := a.Game
	letters := make([]int, l.Len())
	for k, s := range l.States {
		_, letters[k] = g.Step(a.States[s].Env, l.Moves[k])
	}
	byAutomaton := a.Automata[player].Accepts(letters[:l.Loop], letters[l.Loop:])
	if byArena != byAutomaton {
		return false, fmt.Errorf("arena and automaton disagree on the goal of %s", g.Players[player].Name)
	}
	return byArena, nil
}
