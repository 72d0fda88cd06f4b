package equilibrium

import "fmt"

// Phase is a state of the search.
type Phase uint8

const (
	PhaseInit Phase = iota
	PhaseCheck
	PhaseImprove
	PhaseConverged
	PhaseRejected
)

func (p Phase) String() string {
	switch p {
	case PhaseInit:
		return "init"
	case PhaseCheck:
		return "check"
	case PhaseImprove:
		return "improve"
	case PhaseConverged:
		return "converged"
	case PhaseRejected:
		return "rejected"
	}
	return fmt.Sprintf("Phase(%d)", uint8(p))
}

// IsTerminal reports whether the search stops in p.
func IsTerminal(p Phase) bool {
	return p == PhaseConverged || p == PhaseRejected
}

// machine tracks the current phase and refuses transitions the search
// never makes.
type machine struct {
	phase   Phase
	history []Phase
	onEnter func(Phase)
}

func newMachine(onEnter func(Phase)) *machine {
	return &machine{phase: PhaseInit, history: []Phase{PhaseInit}, onEnter: onEnter}
}

func (m *machine) transition(to Phase) error {
	if !isAllowedTransition(m.phase, to) {
		return fmt.Errorf("disallowed search transition %s -> %s", m.phase, to)
	}
	m.phase = to
	m.history = append(m.history, to)
	if m.onEnter != nil {
		m.onEnter(to)
	}
	return nil
}

func isAllowedTransition(from, to Phase) bool {
	if to == PhaseRejected {
		return !IsTerminal(from)
	}
	switch from {
	case PhaseInit:
		// Init moves on to the next payoff assignment when no outcome exists.
		return to == PhaseInit || to == PhaseCheck
	case PhaseCheck:
		return to == PhaseImprove || to == PhaseConverged
	case PhaseImprove:
		return to == PhaseCheck || to == PhaseInit
	default:
		return false
	}
}
