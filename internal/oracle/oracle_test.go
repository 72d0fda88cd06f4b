package oracle

import (
	"context"
	"errors"
	"io"
	"sync/atomic"
	"testing"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var quiet = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

func TestExprFolding(t *testing.T) {
	t.Parallel()

	a, b := Var("a"), Var("b")
	assert.Equal(t, True(), And())
	assert.Equal(t, False(), Or())
	assert.Equal(t, False(), And(a, False()))
	assert.Equal(t, a, Or(a, False()))
	assert.Equal(t, a, Not(Not(a)))
	assert.Equal(t, "(a & b & !a)", And(And(a, b), Not(a)).String())
	assert.Equal(t, []string{"a", "b"}, Or(b, And(a, b)).Vars())
}

func TestExactlyOne(t *testing.T) {
	t.Parallel()

	e := ExactlyOne(Var("x"), Var("y"), Var("z"))
	cases := []struct {
		assign map[string]bool
		want   bool
	}{
		{map[string]bool{}, false},
		{map[string]bool{"x": true}, true},
		{map[string]bool{"z": true}, true},
		{map[string]bool{"x": true, "y": true}, false},
		{map[string]bool{"x": true, "y": true, "z": true}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, e.Eval(tc.assign), "%v", tc.assign)
	}
}

func TestRelax(t *testing.T) {
	t.Parallel()

	a, b, x, y := Var("a"), Var("b"), Var("x"), Var("y")
	q := Query{
		Name:  "q",
		Facts: []*Expr{Var("f"), Implies(a, x), Implies(x, y), Var("c")},
		Claim: And(a, b),
	}
	parts := q.Relax()
	require.Len(t, parts, 2)
	assert.Equal(t, "q[1]", parts[1].Name)
	assert.Equal(t, b, parts[1].Claim)
	// Facts reach a part through chains of shared variables.
	assert.Equal(t, []*Expr{Implies(a, x), Implies(x, y)}, parts[0].Facts)
	assert.Empty(t, parts[1].Facts)

	single := Query{Name: "s", Claim: a}
	assert.Equal(t, []Query{single}, single.Relax())
}

func TestFactGroups(t *testing.T) {
	t.Parallel()

	a, b, c, d := Var("a"), Var("b"), Var("c"), Var("d")
	groups := factGroups([]*Expr{a, Or(c, d), Implies(b, a), d, False()})
	assert.Equal(t, [][]*Expr{
		{a, Implies(b, a)},
		{Or(c, d), d},
		{False()},
	}, groups)
}

func allBackends(t *testing.T) map[string]Oracle {
	t.Helper()
	out := map[string]Oracle{}
	for _, name := range Backends() {
		o, err := New(name, Config{Logger: quiet})
		require.NoError(t, err)
		out[name] = o
	}
	return out
}

func TestDischarge(t *testing.T) {
	t.Parallel()

	a, b, c := Var("a"), Var("b"), Var("c")
	cases := []struct {
		name  string
		query Query
		want  Verdict
	}{
		{"modus ponens", Query{Facts: []*Expr{a, Implies(a, b)}, Claim: b}, Valid},
		{"chain", Query{Facts: []*Expr{Implies(a, b), Implies(b, c)}, Claim: Implies(a, c)}, Valid},
		{"tautology", Query{Claim: Or(a, Not(a))}, Valid},
		{"converse", Query{Facts: []*Expr{Implies(a, b)}, Claim: Implies(b, a)}, Invalid},
		{"constant false claim", Query{Claim: False()}, Invalid},
		{"inconsistent facts", Query{Facts: []*Expr{a, Not(a)}, Claim: b}, Valid},
		{"exactly one", Query{Facts: []*Expr{ExactlyOne(a, b), a}, Claim: Not(b)}, Valid},
	}

	for name, o := range allBackends(t) {
		for _, tc := range cases {
			t.Run(name+"/"+tc.name, func(t *testing.T) {
				tc.query.Name = tc.name
				res, err := o.Discharge(context.Background(), tc.query)
				require.NoError(t, err)
				assert.Equal(t, tc.want, res.Verdict)
				if res.Verdict == Invalid {
					// The counter-model satisfies the facts and refutes the claim.
					for _, f := range tc.query.Facts {
						assert.True(t, f.Eval(res.Model))
					}
					assert.False(t, tc.query.Claim.Eval(res.Model))
				}
			})
		}
	}
}

func TestDefaultBackend(t *testing.T) {
	t.Parallel()

	assert.Contains(t, Backends(), "sat")
	assert.Contains(t, Backends(), "gophersat")
	_, err := New("", Config{})
	require.NoError(t, err)
	_, err = New("minisat", Config{})
	assert.ErrorContains(t, err, "unknown oracle backend")
}

func TestMaxVarsIsUnknown(t *testing.T) {
	t.Parallel()

	o := NewGini(Config{MaxVars: 2, Logger: quiet})
	q := Query{Name: "wide", Claim: Or(Var("a"), Var("b"), Var("c"), Not(Var("a")))}
	res, err := o.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict)
	assert.Contains(t, res.Reason, "exceed")
	assert.Equal(t, 3, res.Vars)
}

func TestRetryingRelaxes(t *testing.T) {
	t.Parallel()

	inner := NewGini(Config{MaxVars: 2, Logger: quiet})
	a, b, c, d := Var("a"), Var("b"), Var("c"), Var("d")

	// Each conjunct alone fits the variable bound.
	q := Query{Name: "conj", Claim: And(Or(a, Not(a)), Or(b, Not(b)), Implies(And(c, d), c))}
	res, err := Retrying{Oracle: inner}.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Verdict)

	q = Query{Name: "conj", Claim: And(Or(a, Not(a)), Implies(c, d))}
	res, err = Retrying{Oracle: inner}.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Invalid, res.Verdict)

	q = Query{Name: "wide", Claim: Or(a, b, c)}
	res, err = Retrying{Oracle: inner}.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Unknown, res.Verdict, "a single claim cannot be relaxed")
}

func TestRetryingExtendsCounterModel(t *testing.T) {
	t.Parallel()

	inner := NewGini(Config{MaxVars: 2, Logger: quiet})
	a, c, d := Var("a"), Var("c"), Var("d")
	q := Query{
		Name:  "pinned",
		Facts: []*Expr{Var("f"), Not(Var("g")), a},
		Claim: And(Or(a, Not(a)), Implies(c, d)),
	}
	res, err := Retrying{Oracle: inner}.Discharge(context.Background(), q)
	require.NoError(t, err)
	require.Equal(t, Invalid, res.Verdict)
	for _, f := range q.Facts {
		assert.True(t, f.Eval(res.Model), "fact %s", f)
	}
	assert.False(t, q.Claim.Eval(res.Model))
}

func TestRetryingInconsistentFacts(t *testing.T) {
	t.Parallel()

	inner := NewGini(Config{MaxVars: 2, Logger: quiet})
	f := Var("f")
	q := Query{
		Name:  "absurd",
		Facts: []*Expr{f, Not(f)},
		Claim: And(Or(Var("a"), Not(Var("a"))), Implies(Var("c"), Var("d"))),
	}
	res, err := Retrying{Oracle: inner}.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Verdict)
}

type countingOracle struct {
	calls atomic.Int32
	inner Oracle
}

func (c *countingOracle) Discharge(ctx context.Context, q Query) (Result, error) {
	c.calls.Add(1)
	return c.inner.Discharge(ctx, q)
}

func TestRetryingOnlyOnUnknown(t *testing.T) {
	t.Parallel()

	counter := &countingOracle{inner: NewGini(Config{Logger: quiet})}
	q := Query{Name: "q", Claim: And(Or(Var("a"), Not(Var("a"))), True())}
	res, err := Retrying{Oracle: counter}.Discharge(context.Background(), q)
	require.NoError(t, err)
	assert.Equal(t, Valid, res.Verdict)
	assert.Equal(t, int32(1), counter.calls.Load())
}

func TestCancelledContextTimesOut(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	for name, o := range allBackends(t) {
		_, err := o.Discharge(ctx, Query{Name: "late", Claim: Var("a")})
		assert.True(t, errors.Is(err, ErrTimeout), "%s: %v", name, err)
	}
}
