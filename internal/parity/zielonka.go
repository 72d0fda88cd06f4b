package parity

// Solution partitions the nodes into winning regions and gives each node's
// winner a positional strategy on its own nodes.
type Solution struct {
	Winner []Player
	// Strategy[v] is the successor the winner of v picks when it owns v,
	// and -1 when the opponent owns v.
	Strategy []int
}

// Region returns the nodes won by p.
func (s *Solution) Region(p Player) Set {
	out := NewSet(len(s.Winner))
	for v, w := range s.Winner {
		out[v] = w == p
	}
	return out
}

// Solve computes both winning regions of a max-parity game.
func Solve(g *Game) (*Solution, error) {
	if err := g.Validate(); err != nil {
		return nil, err
	}
	n := g.NumNodes()
	z := &zielonka{g: g, strategy: make([]int, n)}
	for v := range z.strategy {
		z.strategy[v] = -1
	}
	won := z.solve(Full(n))

	sol := &Solution{Winner: make([]Player, n), Strategy: make([]int, n)}
	for v := range n {
		sol.Winner[v] = Even
		if won[Odd][v] {
			sol.Winner[v] = Odd
		}
		sol.Strategy[v] = -1
		if g.Owner[v] == sol.Winner[v] {
			sol.Strategy[v] = z.strategy[v]
		}
	}
	return sol, nil
}

type zielonka struct {
	g        *Game
	strategy []int
}

func (z *zielonka) solve(sub Set) [2]Set {
	n := z.g.NumNodes()
	top := -1
	for v, in := range sub {
		if in {
			top = max(top, z.g.Priority[v])
		}
	}
	if top < 0 {
		return [2]Set{NewSet(n), NewSet(n)}
	}

	p := Player(top % 2)
	opp := p.Opponent()
	peak := NewSet(n)
	for v, in := range sub {
		peak[v] = in && z.g.Priority[v] == top
	}

	attr := Attractor(z.g, sub, peak, p)
	inner := z.solve(sub.Minus(attr.Set))

	if inner[opp].Count() == 0 {
		for v, in := range attr.Set {
			if !in || z.g.Owner[v] != p {
				continue
			}
			if peak[v] {
				z.strategy[v] = z.stay(sub, v)
			} else {
				z.strategy[v] = attr.Strategy[v]
			}
		}
		var won [2]Set
		won[p] = sub
		won[opp] = NewSet(n)
		return won
	}

	escape := Attractor(z.g, sub, inner[opp], opp)
	for v, in := range escape.Set {
		if in && !inner[opp][v] && z.g.Owner[v] == opp {
			z.strategy[v] = escape.Strategy[v]
		}
	}
	rest := z.solve(sub.Minus(escape.Set))

	var won [2]Set
	won[p] = rest[p]
	won[opp] = rest[opp].Union(escape.Set)
	return won
}

// stay picks a successor of v inside sub. Subgames built by the recursion
// are traps, so one always exists.
func (z *zielonka) stay(sub Set, v int) int {
	for _, w := range z.g.Succ[v] {
		if sub[w] {
			return w
		}
	}
	return z.g.Succ[v][0]
}
