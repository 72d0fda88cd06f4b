package parity

import (
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAttractorLayers(t *testing.T) {
	t.Parallel()

	// 0 -> 1 -> 2 -> 3 (target), 2 may also return to 0, and 4 is owned
	// by Odd with edges to 3 and 4.
	g := &Game{}
	for range 4 {
		g.AddNode(Even, 0)
	}
	g.AddNode(Odd, 0)
	g.AddEdge(0, 1)
	g.AddEdge(1, 2)
	g.AddEdge(2, 3)
	g.AddEdge(2, 0)
	g.AddEdge(3, 3)
	g.AddEdge(4, 3)
	g.AddEdge(4, 4)

	target := NewSet(5)
	target[3] = true
	att := Attractor(g, nil, target, Even)

	assert.Equal(t, []int{0, 1, 2, 3}, att.Set.Members())
	assert.Equal(t, []int{1, 2, 3, 4}, att.Layers)
	assert.Equal(t, []int{3, 2, 1, 0, -1}, att.Rank)
	assert.Equal(t, 1, att.Strategy[0])
	assert.Equal(t, -1, att.Strategy[3])

	// Odd can attract node 4 too, because it owns it.
	att = Attractor(g, nil, target, Odd)
	assert.True(t, att.Set[4])
	assert.False(t, att.Set[2], "Even owns 2 and cannot be forced")
}

func TestAttractorMonotoneOnRandomGames(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(1, 2))
	for range 200 {
		g := randomGame(rng, 2+rng.IntN(12), 4)
		target := NewSet(g.NumNodes())
		target[rng.IntN(g.NumNodes())] = true
		for _, p := range []Player{Even, Odd} {
			att := Attractor(g, nil, target, p)
			require.LessOrEqual(t, len(att.Layers), g.NumNodes()+1)
			for i := 1; i < len(att.Layers); i++ {
				require.Less(t, att.Layers[i-1], att.Layers[i], "layers must grow strictly until stable")
			}
			require.Equal(t, att.Set.Count(), att.Layers[len(att.Layers)-1])

			// Closure: no node outside can be forced in.
			for v := range g.NumNodes() {
				if att.Set[v] {
					continue
				}
				some, all := false, true
				for _, w := range g.Succ[v] {
					some = some || att.Set[w]
					all = all && att.Set[w]
				}
				if g.Owner[v] == p {
					require.False(t, some, "node %d should have been attracted", v)
				} else {
					require.False(t, all, "node %d should have been attracted", v)
				}
			}
		}
	}
}

func TestSolveSmallGame(t *testing.T) {
	t.Parallel()

	// Node 0 (Odd) chooses between 1 (priority 2, self loop) and 2 (priority 1, self loop).
	g := &Game{}
	g.AddNode(Odd, 0)
	g.AddNode(Even, 2)
	g.AddNode(Even, 1)
	g.AddEdge(0, 1)
	g.AddEdge(0, 2)
	g.AddEdge(1, 1)
	g.AddEdge(2, 2)

	sol, err := Solve(g)
	require.NoError(t, err)
	assert.Equal(t, []Player{Odd, Even, Odd}, sol.Winner)
	assert.Equal(t, 2, sol.Strategy[0])
}

func TestSolveRejectsDeadEnds(t *testing.T) {
	t.Parallel()

	g := &Game{}
	g.AddNode(Even, 0)
	_, err := Solve(g)
	assert.Error(t, err)
}

func TestSolveStrategiesWinOnRandomGames(t *testing.T) {
	t.Parallel()

	rng := rand.New(rand.NewPCG(7, 11))
	for range 300 {
		g := randomGame(rng, 1+rng.IntN(10), 5)
		sol, err := Solve(g)
		require.NoError(t, err)

		for v := range g.NumNodes() {
			w := sol.Winner[v]
			if g.Owner[v] == w {
				require.GreaterOrEqual(t, sol.Strategy[v], 0, "node %d lacks a strategy", v)
				require.Contains(t, g.Succ[v], sol.Strategy[v])
			}
			require.True(t, strategyWins(g, sol, v, w), "winner %s of node %d cannot be beaten but its strategy loses", w, v)
		}
	}
}

// strategyWins fixes the winner's strategy and checks the opponent has no
// reachable cycle whose top priority has the opponent's parity.
func strategyWins(g *Game, sol *Solution, start int, winner Player) bool {
	n := g.NumNodes()
	succ := func(v int) []int {
		if g.Owner[v] == winner {
			return []int{sol.Strategy[v]}
		}
		return g.Succ[v]
	}

	reach := NewSet(n)
	reach[start] = true
	stack := []int{start}
	for len(stack) > 0 {
		v := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if sol.Winner[v] != winner {
			return false
		}
		for _, w := range succ(v) {
			if !reach[w] {
				reach[w] = true
				stack = append(stack, w)
			}
		}
	}

	// For each priority d of the opponent's parity, look for a cycle through
	// a d-node using only nodes of priority <= d.
	for d := int(winner.Opponent()); d <= 10; d += 2 {
		for v := range n {
			if !reach[v] || g.Priority[v] != d {
				continue
			}
			seen := NewSet(n)
			stack := []int{v}
			for len(stack) > 0 {
				u := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				for _, w := range succ(u) {
					if g.Priority[w] > d {
						continue
					}
					if w == v {
						return false
					}
					if !seen[w] {
						seen[w] = true
						stack = append(stack, w)
					}
				}
			}
		}
	}
	return true
}

func randomGame(rng *rand.Rand, n, maxPriority int) *Game {
	g := &Game{}
	for range n {
		g.AddNode(Player(rng.IntN(2)), rng.IntN(maxPriority+1))
	}
	for v := range n {
		edges := 1 + rng.IntN(3)
		for range edges {
			g.AddEdge(v, rng.IntN(n))
		}
	}
	return g
}
