package equilibrium

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl"
	"github.com/lox/cgsynth/internal/randutil"
)

func TestAssignmentsMostWinnersFirst(t *testing.T) {
	t.Parallel()

	players := []game.Player{
		{Name: "a", Payoff: game.PayoffAny},
		{Name: "b", Payoff: game.PayoffWin},
		{Name: "c", Payoff: game.PayoffAny},
	}
	var got []string
	for _, asg := range assignments(players) {
		got = append(got, asg.Format(players))
	}
	assert.Equal(t, []string{
		"a=win,b=win,c=win",
		"a=win,b=win,c=lose",
		"a=lose,b=win,c=win",
		"a=lose,b=win,c=lose",
	}, got)

	players[1].Payoff = game.PayoffLose
	for _, asg := range assignments(players) {
		assert.False(t, asg[1])
	}
}

func TestMachineTransitions(t *testing.T) {
	t.Parallel()

	var seen []Phase
	m := newMachine(func(p Phase) { seen = append(seen, p) })
	require.NoError(t, m.transition(PhaseInit))
	require.NoError(t, m.transition(PhaseCheck))
	assert.Error(t, m.transition(PhaseInit), "a checked candidate is either improved or accepted")
	require.NoError(t, m.transition(PhaseImprove))
	require.NoError(t, m.transition(PhaseCheck))
	require.NoError(t, m.transition(PhaseConverged))
	assert.Error(t, m.transition(PhaseRejected), "terminal phases are final")
	assert.Error(t, m.transition(PhaseCheck))

	assert.Equal(t, []Phase{PhaseInit, PhaseCheck, PhaseImprove, PhaseCheck, PhaseConverged}, seen)
	assert.Equal(t, append([]Phase{PhaseInit}, seen...), m.history)
	assert.True(t, IsTerminal(PhaseRejected))
	assert.False(t, IsTerminal(PhaseImprove))
}

func TestFindLassoMeetsConstraints(t *testing.T) {
	t.Parallel()

	g := newGame(t,
		player("p1", "GF p1.a & GF p1.b", game.PayoffWin),
		player("p2", "FG p2.b", game.PayoffWin),
	)
	e, err := newEngine(g, quietOptions())
	require.NoError(t, err)
	a, err := e.buildArena(context.Background())
	require.NoError(t, err)

	for _, seed := range []int64{0, 3, 11} {
		search := &searcher{a: a, order: randutil.Order(seed, g.NumMoves())}
		cases := [][]constraint{
			{{0, true}, {1, true}},
			{{0, true}, {1, false}},
			{{0, false}, {1, true}},
			{{0, false}, {1, false}},
		}
		for _, cs := range cases {
			l, ok := search.find(cs, allEdges)
			require.True(t, ok, "seed %d: %v", seed, cs)
			require.NoError(t, l.Validate(a))
			for _, c := range cs {
				got, err := won(a, l, c.player)
				require.NoError(t, err)
				assert.Equal(t, c.win, got, "seed %d: %v", seed, cs)
			}
		}
	}
}

func TestFindRespectsEdgeFilter(t *testing.T) {
	t.Parallel()

	g := newGame(t, player("p", "F a", game.PayoffWin))
	e, err := newEngine(g, quietOptions())
	require.NoError(t, err)
	a, err := e.buildArena(context.Background())
	require.NoError(t, err)
	search := &searcher{a: a, order: []int{0, 1}}

	// Without the move a the goal cannot be reached.
	noA := func(_, m int) bool { return m != 0 }
	_, ok := search.find([]constraint{{0, true}}, noA)
	assert.False(t, ok)

	l, ok := search.find([]constraint{{0, false}}, noA)
	require.True(t, ok)
	assert.Equal(t, []int{1}, l.Moves)
}

func TestSideConditionsMatchCandidate(t *testing.T) {
	t.Parallel()

	g := coordinationGame(t)
	e, err := newEngine(g, quietOptions())
	require.NoError(t, err)
	a, err := e.buildArena(context.Background())
	require.NoError(t, err)
	puns, err := e.punishments(context.Background(), a, nil)
	require.NoError(t, err)

	search := &searcher{a: a, order: []int{0, 1, 2, 3}}
	l, ok := search.find([]constraint{{0, false}, {1, true}}, allEdges)
	require.True(t, ok)

	q := sideConditions(a, l, Assignment{false, true}, puns)
	res, err := e.oracle.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "valid", res.Verdict.String())

	// Claiming the wrong winners makes the parity condition fail.
	q = sideConditions(a, l, Assignment{true, true}, puns)
	res, err = e.oracle.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, "invalid", res.Verdict.String())
}

func TestConfig(t *testing.T) {
	t.Parallel()

	require.NoError(t, DefaultConfig().Validate())

	cfg, err := ConfigFromSettings(game.Settings{MaxIterations: 5, Timeout: "30s", Seed: 9, Oracle: "gophersat"})
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.MaxIterations)
	assert.Equal(t, 30*time.Second, cfg.Timeout)
	assert.Equal(t, int64(9), cfg.Seed)
	assert.Equal(t, "gophersat", cfg.Oracle)
	assert.Equal(t, DefaultConfig().MaxArenaStates, cfg.MaxArenaStates)

	_, err = ConfigFromSettings(game.Settings{Timeout: "soon"})
	assert.Error(t, err)

	bad := DefaultConfig()
	bad.Parallelism = 0
	assert.Error(t, bad.Validate())
	bad = DefaultConfig()
	bad.Oracle = "minisat"
	assert.ErrorContains(t, bad.Validate(), "not available")

	_, err = Synthesize(context.Background(), newGame(t, player("p", "F a", game.PayoffWin)), Options{Config: bad, Logger: quiet})
	assert.ErrorContains(t, err, "invalid config")
}

func TestErrorMessages(t *testing.T) {
	t.Parallel()

	err := kindf(ErrUnrealizable, "goal of %s cannot be satisfied", "p")
	assert.Equal(t, "unrealizable: goal of p cannot be satisfied", err.Error())
	assert.ErrorIs(t, err, ErrUnrealizable)

	cause := &ltl.ParseError{Input: "F", Offset: 1, Msg: "missing operand"}
	err = wrap(ErrFormula, cause, "")
	assert.ErrorIs(t, err, ErrFormula)
	var pe *ltl.ParseError
	assert.ErrorAs(t, err, &pe)
	assert.Equal(t, OutcomeSearchBoundExceeded.String(), "search bound exceeded")
}
