// Package equilibrium synthesizes Nash equilibria of concurrent games with
// temporal goals. It builds the goal automata and their product arena,
// solves each player's punishment game and then searches for an outcome on
// which no losing player has a deviation the others cannot punish.
package equilibrium

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"golang.org/x/sync/errgroup"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/automaton"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl2dpa"
	"github.com/lox/cgsynth/internal/oracle"
	"github.com/lox/cgsynth/internal/randutil"
	"github.com/lox/cgsynth/internal/runid"
	"github.com/lox/cgsynth/internal/suspect"
)

// Outcome classifies a finished run.
type Outcome int

const (
	OutcomeConverged Outcome = iota
	OutcomeUnrealizable
	OutcomeSearchBoundExceeded
)

func (o Outcome) String() string {
	switch o {
	case OutcomeConverged:
		return "converged"
	case OutcomeUnrealizable:
		return "unrealizable"
	case OutcomeSearchBoundExceeded:
		return "search bound exceeded"
	}
	return fmt.Sprintf("Outcome(%d)", int(o))
}

// Options carries the collaborators of a run. Zero values select the
// defaults: DefaultConfig, the built-in LTL translator, the configured
// oracle backend, the real clock and the default logger.
type Options struct {
	Config   Config
	Builder  automaton.Builder
	Oracle   oracle.Oracle
	Clock    quartz.Clock
	Logger   *log.Logger
	Progress func(Progress)
}

// Progress is reported on every phase change.
type Progress struct {
	Phase      Phase
	Assignment string
	Iteration  int
	Elapsed    time.Duration
}

// Stats counts the work a run did.
type Stats struct {
	AutomatonStates []int         `json:"automaton_states"`
	ArenaStates     int           `json:"arena_states"`
	Assignments     int           `json:"assignments"`
	Iterations      int           `json:"iterations"`
	Checks          int           `json:"checks"`
	Elapsed         time.Duration `json:"elapsed"`
}

// Diagnostics explains a result.
type Diagnostics struct {
	RunID string
	// Reason says why the run was unrealizable or inconclusive.
	Reason string
	// Assignment is the payoff assignment of the last candidate.
	Assignment string
	Phases     []Phase
	// Bans lists the outcome edges rejected by Improve, as "state move".
	Bans   []string
	Oracle *oracle.Result
	Stats  Stats
	// Cause is the underlying error of an inconclusive run.
	Cause error
}

// Result is the answer of Synthesize. Profile is set only when Outcome is
// OutcomeConverged.
type Result struct {
	Outcome     Outcome
	Profile     *Profile
	Diagnostics Diagnostics
}

// Err returns nil for a converged run and an *Error of kind
// ErrUnrealizable or ErrSearchBoundExceeded otherwise.
func (r *Result) Err() error {
	switch r.Outcome {
	case OutcomeUnrealizable:
		return kindf(ErrUnrealizable, "%s", r.Diagnostics.Reason)
	case OutcomeSearchBoundExceeded:
		return wrap(ErrSearchBoundExceeded, r.Diagnostics.Cause, "%s", r.Diagnostics.Reason)
	}
	return nil
}

type engine struct {
	g        *game.Game
	cfg      Config
	builder  automaton.Builder
	oracle   oracle.Oracle
	clock    quartz.Clock
	logger   *log.Logger
	progress func(Progress)

	start    time.Time
	timedOut atomic.Bool
	diag     Diagnostics
}

func newEngine(g *game.Game, opts Options) (*engine, error) {
	cfg := opts.Config
	if cfg == (Config{}) {
		cfg = DefaultConfig()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	e := &engine{
		g:        g,
		cfg:      cfg,
		builder:  opts.Builder,
		oracle:   opts.Oracle,
		clock:    opts.Clock,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
	if e.logger == nil {
		e.logger = log.Default()
	}
	e.logger = e.logger.WithPrefix("equilibrium")
	if e.clock == nil {
		e.clock = quartz.NewReal()
	}
	if e.builder == nil {
		tr := ltl2dpa.New(e.logger)
		tr.MaxStates = cfg.MaxAutomatonStates
		e.builder = tr
	}
	if e.oracle == nil {
		o, err := oracle.New(cfg.Oracle, oracle.Config{MaxVars: cfg.OracleMaxVars, Logger: e.logger})
		if err != nil {
			return nil, err
		}
		e.oracle = o
	}

	id, err := runid.New()
	if err != nil {
		return nil, err
	}
	e.diag.RunID = id
	e.start = e.clock.Now()
	return e, nil
}

// Synthesize searches for a Nash equilibrium of g. Unrealizable and
// inconclusive runs are reported through Result.Outcome; the error is set
// only for formula errors, undecidable side conditions and failures of the
// collaborators.
func Synthesize(ctx context.Context, g *game.Game, opts Options) (*Result, error) {
	e, err := newEngine(g, opts)
	if err != nil {
		return nil, err
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	if e.cfg.Timeout > 0 {
		t := e.clock.AfterFunc(e.cfg.Timeout, func() {
			e.timedOut.Store(true)
			cancel()
		}, "synthesize")
		defer t.Stop()
	}

	e.logger.Debug("synthesis started", "run", e.diag.RunID, "game", g.Name, "players", len(g.Players), "moves", g.NumMoves())
	res, err := e.run(ctx)
	if err != nil {
		return e.failed(ctx, err)
	}
	e.logger.Debug("synthesis finished", "run", e.diag.RunID, "outcome", res.Outcome, "iterations", res.Diagnostics.Stats.Iterations)
	return res, nil
}

// BuildArena translates the goals of g and explores their product arena
// without searching it.
func BuildArena(ctx context.Context, g *game.Game, opts Options) (*arena.Arena, error) {
	e, err := newEngine(g, opts)
	if err != nil {
		return nil, err
	}
	return e.buildArena(ctx)
}

func (e *engine) run(ctx context.Context) (*Result, error) {
	a, err := e.buildArena(ctx)
	if err != nil {
		return nil, err
	}
	search := &searcher{a: a, order: randutil.Order(e.cfg.Seed, e.g.NumMoves())}

	if reason := e.precheck(search); reason != "" {
		return e.result(OutcomeUnrealizable, reason), nil
	}

	puns, err := e.punishments(ctx, a, nil)
	if err != nil {
		return nil, err
	}

	// unsafe[i] holds the outcome edges from which player i, losing, has a
	// deviation the coalition cannot punish. It depends only on the edge and
	// i's punishment region, so it carries over between assignments.
	unsafe := make([]map[arena.Edge]bool, len(e.g.Players))
	for i := range unsafe {
		unsafe[i] = map[arena.Edge]bool{}
	}

	m := newMachine(e.enter)
	e.enter(PhaseInit)
	for n, asg := range assignments(e.g.Players) {
		if n > 0 {
			if err := m.transition(PhaseInit); err != nil {
				return nil, err
			}
		}
		e.diag.Assignment = asg.Format(e.g.Players)
		e.diag.Stats.Assignments++

		cs := make([]constraint, len(asg))
		var losers []int
		for i, won := range asg {
			cs[i] = constraint{player: i, win: won}
			if !won {
				losers = append(losers, i)
			}
		}
		allowed := func(s, mv int) bool {
			for _, i := range losers {
				if unsafe[i][arena.Edge{State: s, Move: mv}] {
					return false
				}
			}
			return true
		}

		for {
			if err := ctx.Err(); err != nil {
				return nil, err
			}
			l, ok := search.find(cs, allowed)
			if !ok {
				e.logger.Debug("no outcome", "assignment", e.diag.Assignment)
				break
			}
			if err := m.transition(PhaseCheck); err != nil {
				return nil, err
			}

			dev, err := e.check(a, l, losers, puns)
			if err != nil {
				return nil, err
			}
			if dev == nil {
				if err := m.transition(PhaseConverged); err != nil {
					return nil, err
				}
				return e.converge(ctx, a, l, asg, puns)
			}

			if e.diag.Stats.Iterations >= e.cfg.MaxIterations {
				if err := m.transition(PhaseRejected); err != nil {
					return nil, err
				}
				return e.result(OutcomeSearchBoundExceeded, fmt.Sprintf("no convergence within %d iterations", e.cfg.MaxIterations)), nil
			}
			if err := m.transition(PhaseImprove); err != nil {
				return nil, err
			}
			e.diag.Stats.Iterations++
			unsafe[dev.Player][arena.Edge{State: dev.State, Move: dev.Move}] = true
			ban := fmt.Sprintf("%s %s", a.Describe(dev.State), e.g.FormatMove(dev.Move))
			e.diag.Bans = append(e.diag.Bans, ban)
			e.logger.Debug("profitable deviation", "player", e.g.Players[dev.Player].Name,
				"position", dev.Position, "edge", ban, "deviation", e.g.FormatMove(dev.Deviated))
		}
	}

	if err := m.transition(PhaseRejected); err != nil {
		return nil, err
	}
	return e.result(OutcomeUnrealizable, "no payoff assignment admits an outcome without a profitable deviation"), nil
}

// buildArena translates every goal and explores the product.
func (e *engine) buildArena(ctx context.Context) (*arena.Arena, error) {
	g := e.g
	automata := make([]*automaton.Automaton, len(g.Players))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Parallelism)
	for i, p := range g.Players {
		eg.Go(func() error {
			aut, err := e.builder.Build(ectx, p.Goal, g.Alphabet())
			if err != nil {
				return fmt.Errorf("goal of %s: %w", p.Name, err)
			}
			if aut.Complete() {
				e.logger.Debug("completed automaton with a sink", "player", p.Name)
			}
			automata[i] = aut
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}

	for _, aut := range automata {
		e.diag.Stats.AutomatonStates = append(e.diag.Stats.AutomatonStates, aut.NumStates())
	}
	a, err := arena.Build(ctx, g, automata, arena.Options{MaxStates: e.cfg.MaxArenaStates, Logger: e.logger})
	if err != nil {
		return nil, err
	}
	e.diag.Stats.ArenaStates = a.NumStates()
	return a, nil
}

// precheck rules out players whose required payoff no outcome can give.
func (e *engine) precheck(search *searcher) string {
	for i, p := range e.g.Players {
		switch p.Payoff {
		case game.PayoffWin:
			if _, ok := search.find([]constraint{{player: i, win: true}}, allEdges); !ok {
				return fmt.Sprintf("the goal of %s cannot be satisfied", p.Name)
			}
		case game.PayoffLose:
			if _, ok := search.find([]constraint{{player: i, win: false}}, allEdges); !ok {
				return fmt.Sprintf("the goal of %s cannot be falsified", p.Name)
			}
		}
	}
	return ""
}

// punishments solves the punishment game of every player selected by only
// (all players when nil), concurrently.
func (e *engine) punishments(ctx context.Context, a *arena.Arena, only []bool) ([]*suspect.Punishment, error) {
	puns := make([]*suspect.Punishment, len(e.g.Players))
	eg, ectx := errgroup.WithContext(ctx)
	eg.SetLimit(e.cfg.Parallelism)
	for i := range e.g.Players {
		if only != nil && !only[i] {
			continue
		}
		eg.Go(func() error {
			pun, err := suspect.BuildPunishment(ectx, a, i)
			if err != nil {
				return err
			}
			puns[i] = pun
			e.logger.Debug("punishment solved", "player", e.g.Players[i].Name, "region", pun.Region.Count(), "states", a.NumStates())
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	return puns, nil
}

// check runs the suspect check of every loser and returns the first
// profitable deviation. Winners are skipped: they cannot do better.
func (e *engine) check(a *arena.Arena, l suspect.Lasso, losers []int, puns []*suspect.Punishment) (*suspect.Deviation, error) {
	for _, i := range losers {
		e.diag.Stats.Checks++
		rep, err := suspect.Check(a, l, i, false, puns[i])
		if err != nil {
			return nil, err
		}
		if rep.Profitable {
			return rep.Deviation, nil
		}
	}
	return nil, nil
}

// converge validates the candidate with the oracle and packages it.
func (e *engine) converge(ctx context.Context, a *arena.Arena, l suspect.Lasso, asg Assignment, puns []*suspect.Punishment) (*Result, error) {
	for i, want := range asg {
		got, err := won(a, l, i)
		if err != nil {
			return nil, err
		}
		if got != want {
			return nil, fmt.Errorf("outcome gives %s winning=%t, assignment wants %t", e.g.Players[i].Name, got, want)
		}
	}

	q := sideConditions(a, l, asg, puns)
	res, err := e.oracle.Discharge(ctx, q)
	if err != nil {
		if errors.Is(err, oracle.ErrTimeout) {
			return nil, wrap(ErrOracleTimeout, err, "validating the candidate")
		}
		return nil, fmt.Errorf("discharge side conditions: %w", err)
	}
	e.diag.Oracle = &res
	switch res.Verdict {
	case oracle.Unknown:
		return nil, kindf(ErrOracleUnknown, "%s", res.Reason)
	case oracle.Invalid:
		return nil, fmt.Errorf("candidate violates its side conditions over %d variables", res.Vars)
	}

	out := e.result(OutcomeConverged, "")
	out.Profile = newProfile(e.diag.RunID, e.clock.Now(), a, l, asg, puns, e.diag.Stats.Iterations)
	return out, nil
}

func (e *engine) result(o Outcome, reason string) *Result {
	e.diag.Reason = reason
	e.diag.Stats.Elapsed = e.clock.Since(e.start)
	return &Result{Outcome: o, Diagnostics: e.diag}
}

// failed sorts an error into an inconclusive result or a returned error.
func (e *engine) failed(ctx context.Context, err error) (*Result, error) {
	switch {
	case e.timedOut.Load():
		res := e.result(OutcomeSearchBoundExceeded, fmt.Sprintf("timed out after %s", e.cfg.Timeout))
		res.Diagnostics.Cause = err
		return res, nil
	case errors.Is(err, ErrOracleTimeout):
		res := e.result(OutcomeSearchBoundExceeded, "oracle query cancelled")
		res.Diagnostics.Cause = err
		return res, nil
	case errors.Is(err, arena.ErrArenaTooLarge):
		res := e.result(OutcomeSearchBoundExceeded, "arena state bound reached")
		res.Diagnostics.Cause = err
		return res, nil
	case errors.Is(err, automaton.ErrFormula):
		return nil, wrap(ErrFormula, err, "")
	case ctx.Err() != nil:
		return nil, fmt.Errorf("synthesis cancelled: %w", err)
	}
	return nil, err
}

func (e *engine) enter(p Phase) {
	e.diag.Phases = append(e.diag.Phases, p)
	if e.progress == nil {
		return
	}
	e.progress(Progress{
		Phase:      p,
		Assignment: e.diag.Assignment,
		Iteration:  e.diag.Stats.Iterations,
		Elapsed:    e.clock.Since(e.start),
	})
}
