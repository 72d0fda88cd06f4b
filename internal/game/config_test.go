package game

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const coordinationHCL = `
name = "coordination"

player "p1" {
  actions = ["a", "b"]
  goal    = "F (p1.a & p2.a)"
}

player "p2" {
  actions = ["a", "b"]
  goal    = "G !(p1.a & p2.a)"
  payoff  = "any"
}

environment {
  state "start" {
    labels = ["init"]
    transition {
      to    = "loop"
      guard = { p1 = "a" }
    }
    transition {
      to = "start"
    }
  }
  state "loop" {
    transition {
      to = "loop"
    }
  }
}

settings {
  max_iterations = 50
  timeout        = "2s"
  seed           = 7
}
`

func TestLoadFile(t *testing.T) {
	t.Parallel()

	path := filepath.Join(t.TempDir(), "coordination.hcl")
	require.NoError(t, os.WriteFile(path, []byte(coordinationHCL), 0o644))

	g, settings, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "coordination", g.Name)
	require.Len(t, g.Players, 2)
	assert.Equal(t, PayoffWin, g.Players[0].Payoff)
	assert.Equal(t, PayoffAny, g.Players[1].Payoff)
	assert.Equal(t, "F (p1.a & p2.a)", g.Players[0].Goal.String())
	assert.Equal(t, "start", g.EnvName(g.InitialEnv()))
	assert.Equal(t, 50, settings.MaxIterations)
	assert.Equal(t, int64(7), settings.Seed)
	timeout, err := settings.TimeoutDuration()
	require.NoError(t, err)
	assert.Equal(t, "2s", timeout.String())
}

func TestLoadRejectsBadInput(t *testing.T) {
	t.Parallel()

	tests := map[string]string{
		"syntax":      `player "p1" {`,
		"bad goal":    "player \"p1\" {\n actions = [\"a\"]\n goal = \"F (\"\n}\n",
		"bad payoff":  "player \"p1\" {\n actions = [\"a\"]\n goal = \"F a\"\n payoff = \"draw\"\n}\n",
		"bad timeout": "player \"p1\" {\n actions = [\"a\"]\n goal = \"F a\"\n}\nsettings {\n timeout = \"soon\"\n}\n",
		"bad oracle":  "player \"p1\" {\n actions = [\"a\"]\n goal = \"F a\"\n}\nsettings {\n oracle = \"bdd\"\n}\n",
		"no players":  "name = \"empty\"\n",
	}

	for name, src := range tests {
		t.Run(name, func(t *testing.T) {
			_, _, err := Load([]byte(src), name+".hcl")
			assert.Error(t, err)
		})
	}
}
