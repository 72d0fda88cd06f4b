package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/cgsynth/internal/equilibrium"
	"github.com/lox/cgsynth/internal/game"
)

// SolveCmd runs the equilibrium search on a game file.
type SolveCmd struct {
	Game          string         `arg:"" type:"existingfile" help:"Game description (HCL)"`
	Out           string         `short:"o" help:"Write the synthesized profile as JSON"`
	MaxIterations *int           `help:"Maximum number of improvement steps (overrides settings)"`
	Timeout       *time.Duration `help:"Overall time limit, e.g. 30s (overrides settings)"`
	Seed          *int64         `help:"Seed for the move order; 0 keeps the declared order (overrides settings)"`
	Oracle        string         `help:"Oracle backend: sat, gini, gophersat or z3 when built with it (overrides settings)"`
	Parallelism   *int           `help:"Concurrent automaton and punishment builds (overrides settings)"`
}

func (c *SolveCmd) Run(globals *Globals) error {
	logger := globals.Logger()

	g, settings, err := game.LoadFile(c.Game)
	if err != nil {
		return err
	}
	cfg, err := c.config(settings)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	return c.solve(ctx, os.Stdout, g, cfg, logger)
}

// config merges the game's settings block with command line overrides.
func (c *SolveCmd) config(settings game.Settings) (equilibrium.Config, error) {
	cfg, err := equilibrium.ConfigFromSettings(settings)
	if err != nil {
		return cfg, err
	}
	if c.MaxIterations != nil {
		cfg.MaxIterations = *c.MaxIterations
	}
	if c.Timeout != nil {
		cfg.Timeout = *c.Timeout
	}
	if c.Seed != nil {
		cfg.Seed = *c.Seed
	}
	if c.Oracle != "" {
		cfg.Oracle = c.Oracle
	}
	if c.Parallelism != nil {
		cfg.Parallelism = *c.Parallelism
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

func (c *SolveCmd) solve(ctx context.Context, w io.Writer, g *game.Game, cfg equilibrium.Config, logger *log.Logger) error {
	res, err := equilibrium.Synthesize(ctx, g, equilibrium.Options{
		Config: cfg,
		Logger: logger,
		Progress: func(p equilibrium.Progress) {
			logger.Info("phase", "phase", p.Phase, "assignment", p.Assignment, "iteration", p.Iteration, "elapsed", p.Elapsed)
		},
	})
	if err != nil {
		return err
	}

	if err := renderResult(w, g, res); err != nil {
		return err
	}

	switch res.Outcome {
	case equilibrium.OutcomeConverged:
		if c.Out != "" {
			if err := res.Profile.Save(c.Out); err != nil {
				return fmt.Errorf("failed to save profile: %w", err)
			}
			logger.Info("profile saved", "path", c.Out)
		}
		return nil
	case equilibrium.OutcomeUnrealizable:
		return &exitStatus{code: exitUnrealizable}
	default:
		return &exitStatus{code: exitInconclusive}
	}
}
