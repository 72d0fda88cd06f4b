package automaton

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cgsynth/internal/game"
)

// eventuallyA reads letters 0 ("a") and 1 ("b") and accepts words with an "a".
func eventuallyA() *Automaton {
	a := New(2)
	wait := a.AddState(1, "wait")
	done := a.AddState(2, "done")
	a.SetTransition(wait, 0, done)
	a.SetTransition(wait, 1, wait)
	a.SetTransition(done, 0, done)
	a.SetTransition(done, 1, done)
	return a
}

func TestValidate(t *testing.T) {
	t.Parallel()

	require.NoError(t, eventuallyA().Validate())

	partial := New(2)
	q := partial.AddState(0, "q")
	partial.SetTransition(q, 0, q)
	assert.Error(t, partial.Validate())

	assert.Error(t, New(1).Validate())
}

func TestCompleteAddsRejectingSink(t *testing.T) {
	t.Parallel()

	a := New(2)
	q := a.AddState(2, "q")
	a.SetTransition(q, 0, q)

	require.True(t, a.Complete())
	require.NoError(t, a.Validate())
	require.Equal(t, 2, a.NumStates())

	sink := a.Step(q, 1)
	assert.Equal(t, 1, a.Priority[sink]%2)
	assert.Equal(t, sink, a.Step(sink, 0))
	assert.Equal(t, sink, a.Step(sink, 1))

	assert.False(t, a.Complete(), "completing twice must be a no-op")
	assert.Equal(t, 2, a.NumStates())
}

func TestAccepts(t *testing.T) {
	t.Parallel()

	a := eventuallyA()
	assert.True(t, a.Accepts(nil, []int{0}))
	assert.True(t, a.Accepts([]int{1, 1}, []int{1, 0}))
	assert.False(t, a.Accepts([]int{1}, []int{1}))
	assert.False(t, a.Accepts(nil, nil))

	// Infinitely many "a": priorities alternate and the loop boundary moves.
	inf := New(2)
	seen := inf.AddState(2, "seen")
	unseen := inf.AddState(1, "unseen")
	for _, q := range []int{seen, unseen} {
		inf.SetTransition(q, 0, seen)
		inf.SetTransition(q, 1, unseen)
	}
	inf.Initial = unseen
	assert.True(t, inf.Accepts([]int{1, 1, 1}, []int{1, 0, 1}))
	assert.False(t, inf.Accepts([]int{0}, []int{1}))
}

func TestRabinPairs(t *testing.T) {
	t.Parallel()

	a := New(1)
	for _, p := range []int{0, 1, 2, 3, 4} {
		q := a.AddState(p, fmt.Sprint(p))
		a.SetTransition(q, 0, q)
	}
	pairs := a.RabinPairs()
	require.Len(t, pairs, 3)
	assert.Equal(t, RabinPair{Fin: []int{1, 2, 3, 4}, Inf: []int{0}}, pairs[0])
	assert.Equal(t, RabinPair{Fin: []int{3, 4}, Inf: []int{2}}, pairs[1])
	assert.Equal(t, RabinPair{Inf: []int{4}}, pairs[2])
}

func TestFormulaError(t *testing.T) {
	t.Parallel()

	err := fmt.Errorf("player p: %w", &FormulaError{Formula: "a U (G b)", Reason: "unsupported"})
	assert.True(t, errors.Is(err, ErrFormula))
	var ferr *FormulaError
	require.True(t, errors.As(err, &ferr))
	assert.Equal(t, "unsupported", ferr.Reason)
}

func TestWriteDot(t *testing.T) {
	t.Parallel()

	var buf bytes.Buffer
	alphabet := []game.Letter{game.NewLetter("a"), game.NewLetter("b")}
	require.NoError(t, eventuallyA().WriteDot(&buf, alphabet))
	out := buf.String()
	assert.Contains(t, out, "q1 [shape=doublecircle")
	assert.Contains(t, out, `q1 -> q1 [label="{a} {b}"]`)
}
