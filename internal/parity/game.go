// Package parity solves two-player max-parity games on finite graphs with
// Zielonka's recursive algorithm. Player Even wins a play when the largest
// priority seen infinitely often is even.
package parity

import "fmt"

// Player is one of the two parity players.
type Player int

const (
	Even Player = 0
	Odd  Player = 1
)

// Opponent returns the other player.
func (p Player) Opponent() Player { return 1 - p }

func (p Player) String() string {
	if p == Even {
		return "even"
	}
	return "odd"
}

// Set is a dense set of node indices.
type Set []bool

// NewSet returns an empty set over n nodes.
func NewSet(n int) Set { return make(Set, n) }

// Full returns the set of all n nodes.
func Full(n int) Set {
	s := NewSet(n)
	for i := range s {
		s[i] = true
	}
	return s
}

// Count returns the number of members.
func (s Set) Count() int {
	n := 0
	for _, in := range s {
		if in {
			n++
		}
	}
	return n
}

// Members lists the members in increasing order.
func (s Set) Members() []int {
	var out []int
	for v, in := range s {
		if in {
			out = append(out, v)
		}
	}
	return out
}

// Minus returns s \ other.
func (s Set) Minus(other Set) Set {
	out := NewSet(len(s))
	for v, in := range s {
		out[v] = in && !other[v]
	}
	return out
}

// Union returns s ∪ other.
func (s Set) Union(other Set) Set {
	out := NewSet(len(s))
	for v, in := range s {
		out[v] = in || other[v]
	}
	return out
}

// Game is a parity game graph. Every node needs at least one successor.
type Game struct {
	Owner    []Player
	Priority []int
	Succ     [][]int

	pred [][]int
}

// AddNode adds a node and returns its index.
func (g *Game) AddNode(owner Player, priority int) int {
	g.Owner = append(g.Owner, owner)
	g.Priority = append(g.Priority, priority)
	g.Succ = append(g.Succ, nil)
	g.pred = nil
	return len(g.Owner) - 1
}

// AddEdge adds an edge from -> to.
func (g *Game) AddEdge(from, to int) {
	g.Succ[from] = append(g.Succ[from], to)
	g.pred = nil
}

// NumNodes returns the number of nodes.
func (g *Game) NumNodes() int { return len(g.Owner) }

// Validate checks edges are in range and no node is a dead end.
func (g *Game) Validate() error {
	n := g.NumNodes()
	if len(g.Priority) != n || len(g.Succ) != n {
		return fmt.Errorf("parity game has %d owners, %d priorities and %d successor lists", n, len(g.Priority), len(g.Succ))
	}
	for v, succ := range g.Succ {
		if len(succ) == 0 {
			return fmt.Errorf("node %d has no successor", v)
		}
		for _, w := range succ {
			if w < 0 || w >= n {
				return fmt.Errorf("node %d: successor %d out of range", v, w)
			}
		}
		if g.Priority[v] < 0 {
			return fmt.Errorf("node %d has negative priority", v)
		}
	}
	return nil
}

func (g *Game) predecessors() [][]int {
	if g.pred == nil {
		g.pred = make([][]int, g.NumNodes())
		for v, succ := range g.Succ {
			for _, w := range succ {
				g.pred[w] = append(g.pred[w], v)
			}
		}
	}
	return g.pred
}
