package ltl

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  *Formula
	}{
		{"a", Prop("a")},
		{"true", True()},
		{"F a", Finally(Prop("a"))},
		{"<> a", Finally(Prop("a"))},
		{"[] !b", Globally(Not(Prop("b")))},
		{"GF a", Globally(Finally(Prop("a")))},
		{"X X p1.a", Next(Next(Prop("p1.a")))},
		{"a U b U c", Until(Prop("a"), Until(Prop("b"), Prop("c")))},
		{"a & b | c", Or(And(Prop("a"), Prop("b")), Prop("c"))},
		{"a & (b | c)", And(Prop("a"), Or(Prop("b"), Prop("c")))},
		{"a -> b -> c", Implies(Prop("a"), Implies(Prop("b"), Prop("c")))},
		{"a <-> b", Iff(Prop("a"), Prop("b"))},
		{"G (req -> F grant)", Globally(Implies(Prop("req"), Finally(Prop("grant"))))},
		{"a W b", WeakUntil(Prop("a"), Prop("b"))},
		{"!a R b && c", And(Release(Not(Prop("a")), Prop("b")), Prop("c"))},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.True(t, got.Equal(tt.want), "got %s want %s", got, tt.want)
		})
	}
}

func TestParseErrors(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"", "a &", "(a", "a b", "F", "a $ b", "U a"} {
		_, err := Parse(input)
		var perr *ParseError
		require.True(t, errors.As(err, &perr), "input %q: expected ParseError, got %v", input, err)
	}
}

func TestStringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, input := range []string{"G (a -> F b)", "!(a & X b)", "(a U b) | FG c", "p1.a W (p2.b <-> c)"} {
		f := MustParse(input)
		again, err := Parse(f.String())
		require.NoError(t, err)
		assert.True(t, f.Equal(again), "%s did not round trip (%s)", input, f)
	}
}

func TestNNF(t *testing.T) {
	t.Parallel()

	tests := []struct {
		input string
		want  string
	}{
		{"!F a", "G !a"},
		{"!G a", "F !a"},
		{"!(a U b)", "(!a R !b)"},
		{"!X a", "X !a"},
		{"a -> b", "(!a | b)"},
		{"!(a & !b)", "(!a | b)"},
		{"a W b", "(b R (a | b))"},
		{"!!a", "a"},
	}

	for _, tt := range tests {
		got := NNF(MustParse(tt.input))
		assert.Equal(t, tt.want, got.String(), "NNF(%s)", tt.input)
	}
}

func TestEvalAndProps(t *testing.T) {
	t.Parallel()

	f := MustParse("(a | b) & !c")
	holds := func(set ...string) func(string) bool {
		return func(p string) bool {
			for _, s := range set {
				if s == p {
					return true
				}
			}
			return false
		}
	}

	assert.True(t, f.Eval(holds("a")))
	assert.False(t, f.Eval(holds("a", "c")))
	assert.False(t, f.Eval(holds()))
	assert.Equal(t, []string{"a", "b", "c"}, f.Props())
	assert.True(t, f.IsPropositional())
	assert.False(t, MustParse("a U b").IsPropositional())
}
