package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/cgsynth/internal/equilibrium"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/suspect"
)

var quiet = log.NewWithOptions(io.Discard, log.Options{Level: log.ErrorLevel})

func loadExample(t *testing.T, name string) (*game.Game, equilibrium.Config) {
	t.Helper()
	g, settings, err := game.LoadFile(filepath.Join("..", "..", "examples", "games", name+".hcl"))
	require.NoError(t, err)
	cfg, err := (&SolveCmd{}).config(settings)
	require.NoError(t, err)
	return g, cfg
}

func TestExitCode(t *testing.T) {
	t.Parallel()

	assert.Equal(t, exitEquilibrium, exitCode(nil))
	assert.Equal(t, exitError, exitCode(errors.New("boom")))
	assert.Equal(t, exitUnrealizable, exitCode(&exitStatus{code: exitUnrealizable}))
	assert.Equal(t, exitInconclusive, exitCode(fmt.Errorf("solve: %w", &exitStatus{code: exitInconclusive})))
}

func TestSolveOverridesSettings(t *testing.T) {
	t.Parallel()

	iterations, timeout, seed := 3, time.Second, int64(5)
	cmd := &SolveCmd{MaxIterations: &iterations, Timeout: &timeout, Seed: &seed, Oracle: "gophersat"}
	cfg, err := cmd.config(game.Settings{MaxIterations: 50, Timeout: "1m", Seed: 1})
	require.NoError(t, err)
	assert.Equal(t, 3, cfg.MaxIterations)
	assert.Equal(t, time.Second, cfg.Timeout)
	assert.Equal(t, int64(5), cfg.Seed)
	assert.Equal(t, "gophersat", cfg.Oracle)

	cmd = &SolveCmd{Oracle: "minisat"}
	_, err = cmd.config(game.Settings{})
	assert.ErrorContains(t, err, "invalid config")
}

func TestSolveExamples(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		code    int
		outcome string
		winners string
	}{
		{"coordination", exitEquilibrium, "converged", "p2"},
		{"matching-pennies", exitUnrealizable, "unrealizable", ""},
		{"arbiter", exitEquilibrium, "converged", "c1, c2"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			g, cfg := loadExample(t, tt.name)

			var out bytes.Buffer
			err := (&SolveCmd{}).solve(context.Background(), &out, g, cfg, quiet)
			assert.Equal(t, tt.code, exitCode(err))
			assert.Contains(t, out.String(), tt.outcome)
			if tt.winners != "" {
				assert.Contains(t, out.String(), tt.winners)
			}
		})
	}
}

func TestSolveInconclusive(t *testing.T) {
	t.Parallel()

	g, cfg := loadExample(t, "matching-pennies")
	cfg.MaxIterations = 1

	var out bytes.Buffer
	err := (&SolveCmd{}).solve(context.Background(), &out, g, cfg, quiet)
	assert.Equal(t, exitInconclusive, exitCode(err))
	assert.Contains(t, out.String(), "search bound exceeded")
}

func TestSolveThenCheck(t *testing.T) {
	t.Parallel()

	g, cfg := loadExample(t, "arbiter")
	path := filepath.Join(t.TempDir(), "arbiter.json")

	var out bytes.Buffer
	require.NoError(t, (&SolveCmd{Out: path}).solve(context.Background(), &out, g, cfg, quiet))

	p, err := equilibrium.LoadProfile(path)
	require.NoError(t, err)
	out.Reset()
	require.NoError(t, check(context.Background(), &out, g, p, cfg, quiet))
	assert.Contains(t, out.String(), "profile is a Nash equilibrium")

	out.Reset()
	require.NoError(t, writeArena(context.Background(), &out, g, p, cfg, quiet))
	assert.Contains(t, out.String(), "digraph arena")
	assert.Contains(t, out.String(), "style=bold")
}

func TestRenderVerification(t *testing.T) {
	t.Parallel()

	g, _ := loadExample(t, "coordination")
	v := &equilibrium.Verification{
		Won: []bool{false, true},
		Reports: []*suspect.Report{{
			Player:     0,
			Profitable: true,
			Deviation:  &suspect.Deviation{Player: 0, Position: 2, Deviated: 0},
		}},
	}
	var out bytes.Buffer
	require.NoError(t, renderVerification(&out, g, v))
	assert.Contains(t, out.String(), "deviates to p1=a,p2=a at position 2")
	assert.Contains(t, out.String(), "not a Nash equilibrium")
}

func TestAutomatonCommand(t *testing.T) {
	t.Parallel()

	g, _ := loadExample(t, "arbiter")
	var out bytes.Buffer
	cmd := &AutomatonCmd{Player: "c1", MaxStates: 1000}
	require.NoError(t, cmd.write(context.Background(), &out, g, quiet))
	assert.Contains(t, out.String(), "digraph automaton")

	out.Reset()
	cmd.Rabin = true
	require.NoError(t, cmd.write(context.Background(), &out, g, quiet))
	assert.Contains(t, out.String(), "pair 0: inf {")
	assert.NotContains(t, out.String(), "digraph")

	cmd.Player = "nobody"
	assert.ErrorContains(t, cmd.write(context.Background(), &out, g, quiet), "no player")
}
