package equilibrium

import (
	"errors"
	"fmt"
	"runtime"
	"slices"
	"time"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl2dpa"
	"github.com/lox/cgsynth/internal/oracle"
)

// Config bounds a synthesis run.
type Config struct {
	// MaxIterations caps the number of Improve steps across all payoff
	// assignments.
	MaxIterations int `json:"max_iterations"`

	// MaxArenaStates and MaxAutomatonStates bound construction; exceeding
	// either makes the run inconclusive.
	MaxArenaStates     int `json:"max_arena_states"`
	MaxAutomatonStates int `json:"max_automaton_states"`

	// Timeout aborts the run, including outstanding oracle queries. Zero
	// disables it.
	Timeout time.Duration `json:"timeout"`

	// Parallelism limits concurrent automaton construction and punishment
	// solving.
	Parallelism int `json:"parallelism"`

	// Seed shuffles the order in which joint actions are tried when
	// searching for outcomes. Zero keeps the natural order.
	Seed int64 `json:"seed"`

	// Oracle names the backend that validates converged profiles.
	Oracle        string `json:"oracle"`
	OracleMaxVars int    `json:"oracle_max_vars"`
}

// DefaultConfig returns limits suitable for small hand-written games.
func DefaultConfig() Config {
	return Config{
		MaxIterations:      1000,
		MaxArenaStates:     arena.DefaultMaxStates,
		MaxAutomatonStates: ltl2dpa.DefaultMaxStates,
		Parallelism:        runtime.GOMAXPROCS(0),
		Oracle:             "sat",
	}
}

// Validate ensures the configuration is usable.
func (c Config) Validate() error {
	if c.MaxIterations < 0 {
		return errors.New("max iterations cannot be negative")
	}
	if c.MaxArenaStates <= 0 {
		return errors.New("max arena states must be > 0")
	}
	if c.MaxAutomatonStates <= 0 {
		return errors.New("max automaton states must be > 0")
	}
	if c.Timeout < 0 {
		return errors.New("timeout cannot be negative")
	}
	if c.Parallelism <= 0 {
		return errors.New("parallelism must be > 0")
	}
	if c.OracleMaxVars < 0 {
		return errors.New("oracle max vars cannot be negative")
	}
	if c.Oracle != "" && !slices.Contains(oracle.Backends(), c.Oracle) {
		return fmt.Errorf("oracle backend %q is not available (have %v)", c.Oracle, oracle.Backends())
	}
	return nil
}

// ConfigFromSettings overlays the non-zero settings of a game file on
// DefaultConfig.
func ConfigFromSettings(s game.Settings) (Config, error) {
	cfg := DefaultConfig()
	if err := s.Validate(); err != nil {
		return cfg, err
	}
	if s.MaxIterations > 0 {
		cfg.MaxIterations = s.MaxIterations
	}
	if s.MaxStates > 0 {
		cfg.MaxArenaStates = s.MaxStates
	}
	timeout, err := s.TimeoutDuration()
	if err != nil {
		return cfg, err
	}
	cfg.Timeout = timeout
	if s.Parallelism > 0 {
		cfg.Parallelism = s.Parallelism
	}
	cfg.Seed = s.Seed
	if s.Oracle != "" {
		cfg.Oracle = s.Oracle
	}
	return cfg, cfg.Validate()
}
