package arena

import (
	"fmt"
	"io"
	"strings"
)

// Edge is a joint action taken in a joint state.
type Edge struct {
	State int
	Move  int
}

// WriteDot renders the arena in Graphviz format. Parallel edges are merged
// into one labelled with every joint action; highlighted edges are drawn bold.
func WriteDot(w io.Writer, a *Arena, highlight []Edge) error {
	bold := make(map[Edge]bool, len(highlight))
	for _, e := range highlight {
		bold[e] = true
	}

	var sb strings.Builder
	sb.WriteString("digraph arena {\n  node [shape=box];\n")
	fmt.Fprintf(&sb, "  init [shape=point];\n  init -> s%d;\n", a.Initial())
	for s := range a.States {
		fmt.Fprintf(&sb, "  s%d [label=%q];\n", s, a.Describe(s))
	}
	for s, succ := range a.Succ {
		labels := map[int][]string{}
		marked := map[int]bool{}
		var targets []int
		for m, to := range succ {
			if _, ok := labels[to]; !ok {
				targets = append(targets, to)
			}
			labels[to] = append(labels[to], a.Game.FormatMove(m))
			if bold[Edge{State: s, Move: m}] {
				marked[to] = true
			}
		}
		for _, to := range targets {
			style := ""
			if marked[to] {
				style = ",style=bold,color=blue"
			}
			fmt.Fprintf(&sb, "  s%d -> s%d [label=%q%s];\n", s, to, strings.Join(labels[to], "\n"), style)
		}
	}
	sb.WriteString("}\n")
	_, err := io.WriteString(w, sb.String())
	return err
}
