package equilibrium

import (
	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/suspect"
)

// constraint requires player's goal to hold (win) or fail on the outcome.
type constraint struct {
	player int
	win    bool
}

// wants reports whether priority d, as the top priority of a cycle, gives
// the required outcome.
func (c constraint) wants(d int) bool { return (d%2 == 0) == c.win }

// edgeFilter reports whether joint action m may be played in state s.
type edgeFilter func(s, m int) bool

func allEdges(int, int) bool { return true }

type step struct{ state, move int }

// searcher looks for ultimately periodic outcomes in an arena whose cycle
// meets a conjunction of parity constraints. Joint actions are tried in
// order.
type searcher struct {
	a     *arena.Arena
	order []int
}

// find returns a lasso from the initial state using only allowed edges on
// which every constraint holds.
func (s *searcher) find(cs []constraint, allowed edgeFilter) (suspect.Lasso, bool) {
	reach := s.reachable(allowed)
	comp := s.accepting(reach, cs, allowed)
	if comp == nil {
		return suspect.Lasso{}, false
	}
	in := make([]bool, s.a.NumStates())
	for _, v := range comp {
		in[v] = true
	}

	// Enter the component at the state closest to the initial state.
	prefix, entry, _ := s.path(s.a.Initial(), func(v int) bool { return in[v] }, reach, allowed, false)

	var cycle []step
	cur := entry
	for _, c := range cs {
		top := s.top(comp, c.player)
		if cur == top {
			continue
		}
		seg, end, _ := s.path(cur, func(v int) bool { return v == top }, in, allowed, false)
		cycle = append(cycle, seg...)
		cur = end
	}
	back, _, _ := s.path(cur, func(v int) bool { return v == entry }, in, allowed, len(cycle) == 0)
	cycle = append(cycle, back...)

	steps := append(prefix, cycle...)
	l := suspect.Lasso{
		States: make([]int, len(steps)),
		Moves:  make([]int, len(steps)),
		Loop:   len(prefix),
	}
	for k, st := range steps {
		l.States[k] = st.state
		l.Moves[k] = st.move
	}
	return l, true
}

// top returns a state of comp carrying the component's highest priority
// for player.
func (s *searcher) top(comp []int, player int) int {
	best := comp[0]
	for _, v := range comp[1:] {
		if s.a.Priority(v, player) > s.a.Priority(best, player) {
			best = v
		}
	}
	return best
}

func (s *searcher) reachable(allowed edgeFilter) []bool {
	seen := make([]bool, s.a.NumStates())
	seen[s.a.Initial()] = true
	queue := []int{s.a.Initial()}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, m := range s.order {
			if !allowed(v, m) {
				continue
			}
			if w := s.a.Succ[v][m]; !seen[w] {
				seen[w] = true
				queue = append(queue, w)
			}
		}
	}
	return seen
}

// accepting returns a strongly connected set of states inside sub, with at
// least one internal edge, whose top priority meets every constraint. When
// a component's top priority is wrong for some player, the states carrying
// it can never lie on a good cycle, so they are removed and the rest of the
// component is searched again.
func (s *searcher) accepting(sub []bool, cs []constraint, allowed edgeFilter) []int {
	for _, comp := range s.components(sub, allowed) {
		if !s.cyclic(comp, allowed) {
			continue
		}
		ok := true
		for _, c := range cs {
			top := s.a.Priority(s.top(comp, c.player), c.player)
			if c.wants(top) {
				continue
			}
			ok = false
			rest := make([]bool, len(sub))
			for _, v := range comp {
				rest[v] = s.a.Priority(v, c.player) != top
			}
			if found := s.accepting(rest, cs, allowed); found != nil {
				return found
			}
			break
		}
		if ok {
			return comp
		}
	}
	return nil
}

// cyclic reports whether comp contains an edge, which for a single state
// means a self loop.
func (s *searcher) cyclic(comp []int, allowed edgeFilter) bool {
	if len(comp) > 1 {
		return true
	}
	v := comp[0]
	for _, m := range s.order {
		if allowed(v, m) && s.a.Succ[v][m] == v {
			return true
		}
	}
	return false
}

// components computes the strongly connected components of the subgraph
// induced by sub, with an iterative Tarjan so deep arenas cannot exhaust
// the stack.
func (s *searcher) components(sub []bool, allowed edgeFilter) [][]int {
	n := len(sub)
	index := make([]int, n)
	low := make([]int, n)
	onStack := make([]bool, n)
	for v := range index {
		index[v] = -1
	}
	var (
		stack []int
		comps [][]int
		next  int
	)
	type frame struct{ v, i int }

	visit := func(v int) {
		index[v], low[v] = next, next
		next++
		stack = append(stack, v)
		onStack[v] = true
	}

	for root := range n {
		if !sub[root] || index[root] >= 0 {
			continue
		}
		visit(root)
		call := []frame{{v: root}}
		for len(call) > 0 {
			f := &call[len(call)-1]
			v := f.v
			if f.i < len(s.order) {
				m := s.order[f.i]
				f.i++
				if !allowed(v, m) {
					continue
				}
				w := s.a.Succ[v][m]
				switch {
				case !sub[w]:
				case index[w] < 0:
					visit(w)
					call = append(call, frame{v: w})
				case onStack[w]:
					low[v] = min(low[v], index[w])
				}
				continue
			}

			call = call[:len(call)-1]
			if len(call) > 0 {
				parent := call[len(call)-1].v
				low[parent] = min(low[parent], low[v])
			}
			if low[v] == index[v] {
				var comp []int
				for {
					w := stack[len(stack)-1]
					stack = stack[:len(stack)-1]
					onStack[w] = false
					comp = append(comp, w)
					if w == v {
						break
					}
				}
				comps = append(comps, comp)
			}
		}
	}
	return comps
}

// path finds a shortest sequence of steps from `from` to a state satisfying
// goal, staying inside within. With nonEmpty set the path takes at least
// one step even when from already satisfies goal.
func (s *searcher) path(from int, goal func(int) bool, within []bool, allowed edgeFilter, nonEmpty bool) ([]step, int, bool) {
	if !nonEmpty && goal(from) {
		return nil, from, true
	}
	n := s.a.NumStates()
	seen := make([]bool, n)
	prev := make([]step, n)
	seen[from] = true
	queue := []int{from}
	for len(queue) > 0 {
		v := queue[0]
		queue = queue[1:]
		for _, m := range s.order {
			if !allowed(v, m) {
				continue
			}
			w := s.a.Succ[v][m]
			if !within[w] {
				continue
			}
			if goal(w) {
				steps := []step{{v, m}}
				for cur := v; cur != from; {
					st := prev[cur]
					steps = append(steps, st)
					cur = st.state
				}
				for i, j := 0, len(steps)-1; i < j; i, j = i+1, j-1 {
					steps[i], steps[j] = steps[j], steps[i]
				}
				return steps, w, true
			}
			if !seen[w] {
				seen[w] = true
				prev[w] = step{v, m}
				queue = append(queue, w)
			}
		}
	}
	return nil, from, false
}
