package game

import (
	"fmt"
	"os"
	"time"

	"github.com/hashicorp/hcl/v2/gohcl"
	"github.com/hashicorp/hcl/v2/hclparse"

	"github.com/lox/cgsynth/internal/ltl"
)

// File is the HCL game description:
//
//	name = "coordination"
//
//	player "p1" {
//	  actions = ["a", "b"]
//	  goal    = "F (p1.a & p2.a)"
//	  payoff  = "any"
//	}
//
//	environment {
//	  initial = "idle"
//	  state "idle" {
//	    labels = ["start"]
//	    transition {
//	      to    = "busy"
//	      guard = { p1 = "a" }
//	    }
//	  }
//	}
//
//	settings {
//	  max_iterations = 500
//	  timeout        = "30s"
//	}
type File struct {
	Name        string             `hcl:"name,optional"`
	Players     []PlayerConfig     `hcl:"player,block"`
	Environment *EnvironmentConfig `hcl:"environment,block"`
	Settings    *Settings          `hcl:"settings,block"`
}

// PlayerConfig is one player block.
type PlayerConfig struct {
	Name    string   `hcl:"name,label"`
	Actions []string `hcl:"actions"`
	Goal    string   `hcl:"goal"`
	Payoff  string   `hcl:"payoff,optional"`
}

// EnvironmentConfig is the optional explicit environment.
type EnvironmentConfig struct {
	Initial string        `hcl:"initial,optional"`
	States  []StateConfig `hcl:"state,block"`
}

// StateConfig is one environment state block.
type StateConfig struct {
	Name        string             `hcl:"name,label"`
	Labels      []string           `hcl:"labels,optional"`
	Transitions []TransitionConfig `hcl:"transition,block"`
}

// TransitionConfig is one guarded environment transition.
type TransitionConfig struct {
	To    string            `hcl:"to"`
	Guard map[string]string `hcl:"guard,optional"`
}

// Settings carries search limits stored alongside the game. Zero values
// mean "use the engine default".
type Settings struct {
	MaxIterations int    `hcl:"max_iterations,optional"`
	MaxStates     int    `hcl:"max_states,optional"`
	Timeout       string `hcl:"timeout,optional"`
	Parallelism   int    `hcl:"parallelism,optional"`
	Seed          int64  `hcl:"seed,optional"`
	Oracle        string `hcl:"oracle,optional"`
}

// TimeoutDuration parses Timeout; the empty string is zero.
func (s Settings) TimeoutDuration() (time.Duration, error) {
	if s.Timeout == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(s.Timeout)
	if err != nil {
		return 0, fmt.Errorf("invalid timeout %q: %w", s.Timeout, err)
	}
	return d, nil
}

// LoadFile reads and validates a game description from an HCL file.
func LoadFile(filename string) (*Game, Settings, error) {
	src, err := os.ReadFile(filename)
	if err != nil {
		return nil, Settings{}, fmt.Errorf("failed to read game file: %w", err)
	}
	return Load(src, filename)
}

// Load parses a game description held in memory. filename is used in diagnostics.
func Load(src []byte, filename string) (*Game, Settings, error) {
	parser := hclparse.NewParser()
	file, diags := parser.ParseHCL(src, filename)
	if diags.HasErrors() {
		return nil, Settings{}, fmt.Errorf("failed to parse HCL file: %s", diags.Error())
	}

	var cfg File
	diags = gohcl.DecodeBody(file.Body, nil, &cfg)
	if diags.HasErrors() {
		return nil, Settings{}, fmt.Errorf("failed to decode HCL: %s", diags.Error())
	}
	return cfg.Build()
}

// Build turns the decoded description into a Game.
func (cfg *File) Build() (*Game, Settings, error) {
	var settings Settings
	if cfg.Settings != nil {
		settings = *cfg.Settings
	}
	if err := settings.Validate(); err != nil {
		return nil, Settings{}, err
	}

	name := cfg.Name
	if name == "" {
		name = "game"
	}

	players := make([]Player, 0, len(cfg.Players))
	for _, pc := range cfg.Players {
		goal, err := ltl.Parse(pc.Goal)
		if err != nil {
			return nil, Settings{}, fmt.Errorf("player %s: goal: %w", pc.Name, err)
		}
		payoff, err := ParsePayoff(pc.Payoff)
		if err != nil {
			return nil, Settings{}, fmt.Errorf("player %s: %w", pc.Name, err)
		}
		players = append(players, Player{
			Name:    pc.Name,
			Actions: pc.Actions,
			Goal:    goal,
			Payoff:  payoff,
		})
	}

	var env *Environment
	if cfg.Environment != nil {
		env = &Environment{Initial: cfg.Environment.Initial}
		for _, sc := range cfg.Environment.States {
			state := EnvState{Name: sc.Name, Labels: sc.Labels}
			for _, tc := range sc.Transitions {
				state.Transitions = append(state.Transitions, EnvTransition{Guard: tc.Guard, To: tc.To})
			}
			env.States = append(env.States, state)
		}
	}

	g, err := New(name, players, env)
	if err != nil {
		return nil, Settings{}, err
	}
	return g, settings, nil
}

// Validate checks the settings block.
func (s Settings) Validate() error {
	if s.MaxIterations < 0 {
		return fmt.Errorf("max_iterations must be non-negative")
	}
	if s.MaxStates < 0 {
		return fmt.Errorf("max_states must be non-negative")
	}
	if s.Parallelism < 0 {
		return fmt.Errorf("parallelism must be non-negative")
	}
	if _, err := s.TimeoutDuration(); err != nil {
		return err
	}
	switch s.Oracle {
	case "", "sat", "gini", "gophersat", "z3":
	default:
		return fmt.Errorf("unknown oracle %q", s.Oracle)
	}
	return nil
}
