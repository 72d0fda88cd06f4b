package equilibrium

import (
	"fmt"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/oracle"
	"github.com/lox/cgsynth/internal/suspect"
)

// sideConditions encodes what a converged candidate must satisfy as a single
// oracle query with one conjunct per condition, so that a relaxed retry
// can discharge the conditions one by one:
//
//   - for each player, the top priority on the loop has the parity its
//     payoff demands, over variables loop_k marking loop positions;
//   - every position prescribes exactly one action per player;
//   - every deviation of a losing player lands where it can be punished.
//
// The facts pin the variables to the candidate.
func sideConditions(a *arena.Arena, l suspect.Lasso, winners Assignment, puns []*suspect.Punishment) oracle.Query {
	g := a.Game
	var facts, claims []*oracle.Expr

	loop := make([]*oracle.Expr, l.Len())
	for k := range loop {
		loop[k] = oracle.Var(fmt.Sprintf("loop_%d", k))
		if k >= l.Loop {
			facts = append(facts, loop[k])
		} else {
			facts = append(facts, oracle.Not(loop[k]))
		}
	}
	for i := range g.Players {
		claims = append(claims, loopParity(a, l, loop, i, winners[i]))
	}

	for k := range l.Len() {
		move := g.Moves()[l.Moves[k]]
		for i, p := range g.Players {
			vars := make([]*oracle.Expr, len(p.Actions))
			for act := range p.Actions {
				vars[act] = oracle.Var(fmt.Sprintf("act_%d_%s_%s", k, p.Name, p.Actions[act]))
				if act == move[i] {
					facts = append(facts, vars[act])
				} else {
					facts = append(facts, oracle.Not(vars[act]))
				}
			}
			claims = append(claims, oracle.ExactlyOne(vars...))
		}
	}

	for i, p := range g.Players {
		if winners[i] {
			continue
		}
		var punished []*oracle.Expr
		for k := range l.Len() {
			s, m := l.States[k], l.Moves[k]
			prescribed := g.Moves()[m][i]
			for act := range p.Actions {
				if act == prescribed {
					continue
				}
				v := oracle.Var(fmt.Sprintf("punished_%s_%d_%s", p.Name, k, p.Actions[act]))
				if puns[i].Punishes(a.Succ[s][g.Replace(m, i, act)]) {
					facts = append(facts, v)
				} else {
					facts = append(facts, oracle.Not(v))
				}
				punished = append(punished, v)
			}
		}
		claims = append(claims, oracle.And(punished...))
	}

	return oracle.Query{Name: "profile", Facts: facts, Claim: oracle.And(claims...)}
}

// loopParity claims that some loop position carries the highest priority
// among loop positions and that this priority has the wanted parity.
func loopParity(a *arena.Arena, l suspect.Lasso, loop []*oracle.Expr, player int, win bool) *oracle.Expr {
	var options []*oracle.Expr
	for k, s := range l.States {
		d := a.Priority(s, player)
		if (d%2 == 0) != win {
			continue
		}
		terms := []*oracle.Expr{loop[k]}
		for j, t := range l.States {
			if a.Priority(t, player) > d {
				terms = append(terms, oracle.Not(loop[j]))
			}
		}
		options = append(options, oracle.And(terms...))
	}
	return oracle.Or(options...)
}
