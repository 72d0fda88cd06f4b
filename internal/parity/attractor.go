package parity

// Attraction is the result of an attractor computation.
type Attraction struct {
	// Set is the attractor: nodes from which the player can force a visit
	// to the target while staying inside the subgame.
	Set Set
	// Strategy maps the player's own attracted nodes outside the target to
	// the successor that moves one layer closer; -1 elsewhere.
	Strategy []int
	// Rank is the layer in which a node joined, -1 for non-members.
	Rank []int
	// Layers holds the cumulative attractor size after each round, starting
	// with the target itself. It is non-decreasing and has at most
	// |subgame|+1 entries.
	Layers []int
}

// Attractor computes the least fixpoint X = target ∪ CPre_p(X) inside sub,
// where CPre_p holds the player's nodes with some successor in X and the
// opponent's nodes with all successors (inside sub) in X. A nil sub means
// the whole game.
func Attractor(g *Game, sub, target Set, p Player) Attraction {
	n := g.NumNodes()
	if sub == nil {
		sub = Full(n)
	}
	pred := g.predecessors()

	att := Attraction{
		Set:      NewSet(n),
		Strategy: make([]int, n),
		Rank:     make([]int, n),
	}
	for v := range n {
		att.Strategy[v] = -1
		att.Rank[v] = -1
	}

	// remaining[v] counts the opponent node's successors not yet attracted.
	remaining := make([]int, n)
	for v := range n {
		if !sub[v] || g.Owner[v] == p {
			continue
		}
		for _, w := range g.Succ[v] {
			if sub[w] {
				remaining[v]++
			}
		}
	}

	var layer []int
	for v := range n {
		if sub[v] && target[v] {
			att.Set[v] = true
			att.Rank[v] = 0
			layer = append(layer, v)
		}
	}
	size := len(layer)
	att.Layers = append(att.Layers, size)

	for rank := 1; len(layer) > 0; rank++ {
		var next []int
		for _, w := range layer {
			for _, v := range pred[w] {
				if !sub[v] || att.Set[v] {
					continue
				}
				if g.Owner[v] == p {
					att.Strategy[v] = w
				} else {
					remaining[v]--
					if remaining[v] > 0 {
						continue
					}
				}
				att.Set[v] = true
				att.Rank[v] = rank
				next = append(next, v)
			}
		}
		if len(next) == 0 {
			break
		}
		size += len(next)
		att.Layers = append(att.Layers, size)
		layer = next
	}
	return att
}
