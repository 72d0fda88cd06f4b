package oracle

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"slices"
	"sync"

	"github.com/charmbracelet/log"
)

var (
	// ErrUnknown reports a query the solver could not decide.
	ErrUnknown = errors.New("oracle could not decide query")
	// ErrTimeout reports a query abandoned because its context ended.
	ErrTimeout = errors.New("oracle query timed out")
)

// Verdict is the answer to a discharge query.
type Verdict int

const (
	Valid Verdict = iota
	Invalid
	Unknown
)

func (v Verdict) String() string {
	switch v {
	case Valid:
		return "valid"
	case Invalid:
		return "invalid"
	default:
		return "unknown"
	}
}

// Query asks whether Facts entail Claim.
type Query struct {
	Name  string
	Facts []*Expr
	Claim *Expr
}

// Refutation is the formula a backend must show unsatisfiable for the
// query to be valid.
func (q Query) Refutation() *Expr {
	return And(append(slices.Clone(q.Facts), Not(q.Claim))...)
}

// Relax splits a conjunctive claim into one query per conjunct. Each part
// keeps only the facts connected to its conjunct through shared
// variables, so a part is no wider than the conjunct needs. Other claims
// are returned unchanged.
func (q Query) Relax() []Query {
	if q.Claim.Kind != KindAnd {
		return []Query{q}
	}
	groups := factGroups(q.Facts)
	out := make([]Query, len(q.Claim.Args))
	for i, c := range q.Claim.Args {
		facts, _ := splitFacts(groups, c.Vars())
		out[i] = Query{Name: fmt.Sprintf("%s[%d]", q.Name, i), Facts: facts, Claim: c}
	}
	return out
}

// factGroups partitions facts into the connected components of the
// relation "shares a variable", keeping the original order within each.
func factGroups(facts []*Expr) [][]*Expr {
	parent := make([]int, len(facts))
	for i := range parent {
		parent[i] = i
	}
	find := func(i int) int {
		for parent[i] != i {
			parent[i] = parent[parent[i]]
			i = parent[i]
		}
		return i
	}
	owner := map[string]int{}
	for i, f := range facts {
		for _, v := range f.Vars() {
			if j, ok := owner[v]; ok {
				parent[find(i)] = find(j)
			} else {
				owner[v] = i
			}
		}
	}

	index := map[int]int{}
	var groups [][]*Expr
	for i, f := range facts {
		root := find(i)
		gi, ok := index[root]
		if !ok {
			gi = len(groups)
			index[root] = gi
			groups = append(groups, nil)
		}
		groups[gi] = append(groups[gi], f)
	}
	return groups
}

// splitFacts returns the facts of the groups mentioning any of vars, and
// the remaining groups.
func splitFacts(groups [][]*Expr, vars []string) (facts []*Expr, rest [][]*Expr) {
	for _, g := range groups {
		touched := false
		for _, f := range g {
			for _, v := range f.Vars() {
				if slices.Contains(vars, v) {
					touched = true
					break
				}
			}
			if touched {
				break
			}
		}
		if touched {
			facts = append(facts, g...)
		} else {
			rest = append(rest, g)
		}
	}
	return facts, rest
}

// Result is the outcome of a discharged query.
type Result struct {
	Verdict Verdict
	// Reason explains an Unknown verdict.
	Reason string
	// Model is a counter-model for an Invalid verdict: an assignment that
	// satisfies the facts and falsifies the claim.
	Model map[string]bool
	Vars  int
}

// Oracle decides discharge queries.
type Oracle interface {
	Discharge(ctx context.Context, q Query) (Result, error)
}

// Config bounds the queries a backend accepts.
type Config struct {
	// MaxVars makes queries with more variables Unknown; zero means no bound.
	MaxVars int
	Logger  *log.Logger
}

// satFunc decides satisfiability of f over vars. It must return promptly
// with ctx.Err() once ctx ends if the backend can be interrupted.
type satFunc func(ctx context.Context, f *Expr, vars []string) (sat bool, model map[string]bool, err error)

// solver adapts a satFunc to the Oracle interface.
type solver struct {
	name   string
	cfg    Config
	sat    satFunc
	logger *log.Logger
}

func newSolver(name string, cfg Config, sat satFunc) *solver {
	logger := cfg.Logger
	if logger == nil {
		logger = log.Default()
	}
	return &solver{name: name, cfg: cfg, sat: sat, logger: logger.WithPrefix("oracle")}
}

func (s *solver) Discharge(ctx context.Context, q Query) (Result, error) {
	if ctx.Err() != nil {
		return Result{}, fmt.Errorf("%s: %w", q.Name, ErrTimeout)
	}
	f := q.Refutation()
	vars := f.Vars()
	res := Result{Vars: len(vars)}
	if s.cfg.MaxVars > 0 && len(vars) > s.cfg.MaxVars {
		res.Verdict = Unknown
		res.Reason = fmt.Sprintf("%d variables exceed the limit of %d", len(vars), s.cfg.MaxVars)
		return res, nil
	}

	type answer struct {
		sat   bool
		model map[string]bool
		err   error
	}
	done := make(chan answer, 1)
	go func() {
		sat, model, err := s.sat(ctx, f, vars)
		done <- answer{sat, model, err}
	}()

	var a answer
	select {
	case a = <-done:
	case <-ctx.Done():
		return Result{}, fmt.Errorf("%s: %w", q.Name, ErrTimeout)
	}
	switch {
	case errors.Is(a.err, ErrUnknown):
		res.Verdict = Unknown
		res.Reason = a.err.Error()
	case a.err != nil:
		if ctx.Err() != nil {
			return Result{}, fmt.Errorf("%s: %w", q.Name, ErrTimeout)
		}
		return Result{}, fmt.Errorf("%s backend: %w", s.name, a.err)
	case a.sat:
		res.Verdict = Invalid
		res.Model = a.model
	default:
		res.Verdict = Valid
	}
	s.logger.Debug("discharged", "backend", s.name, "query", q.Name, "vars", res.Vars, "verdict", res.Verdict)
	return res, nil
}

// Retrying discharges a query once more with the relaxed encoding when the
// first attempt is Unknown.
type Retrying struct {
	Oracle Oracle
}

func (r Retrying) Discharge(ctx context.Context, q Query) (Result, error) {
	res, err := r.Oracle.Discharge(ctx, q)
	if err != nil || res.Verdict != Unknown {
		return res, err
	}
	parts := q.Relax()
	if len(parts) == 1 {
		return res, nil
	}

	out := Result{Verdict: Valid}
	for _, p := range parts {
		pr, err := r.Oracle.Discharge(ctx, p)
		if err != nil {
			return Result{}, err
		}
		out.Vars = max(out.Vars, pr.Vars)
		switch pr.Verdict {
		case Invalid:
			return r.extend(ctx, q, p, pr)
		case Unknown:
			out.Verdict = Unknown
			out.Reason = fmt.Sprintf("%s: %s", p.Name, pr.Reason)
		}
	}
	return out, nil
}

// extend turns the counter-model of a relaxed part into one for the whole
// query by satisfying every fact group the part left out. If one of those
// groups is inconsistent the facts entail anything and q is Valid.
func (r Retrying) extend(ctx context.Context, q Query, part Query, pr Result) (Result, error) {
	_, rest := splitFacts(factGroups(q.Facts), part.Claim.Vars())
	model := maps.Clone(pr.Model)
	if model == nil {
		model = map[string]bool{}
	}
	for j, g := range rest {
		gr, err := r.Oracle.Discharge(ctx, Query{Name: fmt.Sprintf("%s.facts[%d]", q.Name, j), Facts: g, Claim: False()})
		if err != nil {
			return Result{}, err
		}
		switch gr.Verdict {
		case Valid:
			return Result{Verdict: Valid, Vars: pr.Vars}, nil
		case Unknown:
			return Result{Verdict: Unknown, Vars: gr.Vars, Reason: fmt.Sprintf("%s: %s", q.Name, gr.Reason)}, nil
		}
		maps.Copy(model, gr.Model)
	}
	pr.Model = model
	return pr, nil
}

// Factory builds an oracle from a config.
type Factory func(Config) Oracle

var (
	mu       sync.RWMutex
	backends = map[string]Factory{}
)

// Register makes a backend available to New under name.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()
	backends[name] = f
}

// Backends lists the registered backend names.
func Backends() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(backends))
	for n := range backends {
		names = append(names, n)
	}
	slices.Sort(names)
	return names
}

// New returns the named backend wrapped in Retrying. The empty name selects
// the default "sat" backend.
func New(name string, cfg Config) (Oracle, error) {
	if name == "" {
		name = "sat"
	}
	mu.RLock()
	f, ok := backends[name]
	mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown oracle backend %q (available: %v)", name, Backends())
	}
	return Retrying{Oracle: f(cfg)}, nil
}
