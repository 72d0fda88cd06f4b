package equilibrium

import (
	"cmp"
	"slices"
	"strings"

	"github.com/lox/cgsynth/internal/game"
)

// Assignment fixes, for each player, whether it wins the candidate outcome.
type Assignment []bool

// Winners counts the winning players.
func (a Assignment) Winners() int {
	n := 0
	for _, w := range a {
		if w {
			n++
		}
	}
	return n
}

// Format renders the assignment as "p1=win,p2=lose".
func (a Assignment) Format(players []game.Player) string {
	parts := make([]string, len(a))
	for i, w := range a {
		outcome := "lose"
		if w {
			outcome = "win"
		}
		parts[i] = players[i].Name + "=" + outcome
	}
	return strings.Join(parts, ",")
}

// assignments enumerates the assignments admitted by every player's payoff
// requirement, most winners first. Ties keep the order in which earlier
// players win first.
func assignments(players []game.Player) []Assignment {
	out := []Assignment{{}}
	for _, p := range players {
		var next []Assignment
		for _, a := range out {
			for _, won := range []bool{true, false} {
				if p.Payoff.Admits(won) {
					next = append(next, append(slices.Clone(a), won))
				}
			}
		}
		out = next
	}
	slices.SortStableFunc(out, func(x, y Assignment) int {
		return cmp.Compare(y.Winners(), x.Winners())
	})
	return out
}
