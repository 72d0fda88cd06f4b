package main

import (
	"context"
	"io"
	"os"

	"github.com/charmbracelet/log"

	"github.com/lox/cgsynth/internal/equilibrium"
	"github.com/lox/cgsynth/internal/game"
)

// CheckCmd re-validates a saved profile against the game it was made for.
type CheckCmd struct {
	Game    string `arg:"" type:"existingfile" help:"Game description (HCL)"`
	Profile string `arg:"" type:"existingfile" help:"Profile written by solve --out"`
}

func (c *CheckCmd) Run(globals *Globals) error {
	g, settings, err := game.LoadFile(c.Game)
	if err != nil {
		return err
	}
	cfg, err := equilibrium.ConfigFromSettings(settings)
	if err != nil {
		return err
	}
	p, err := equilibrium.LoadProfile(c.Profile)
	if err != nil {
		return err
	}
	return check(context.Background(), os.Stdout, g, p, cfg, globals.Logger())
}

func check(ctx context.Context, w io.Writer, g *game.Game, p *equilibrium.Profile, cfg equilibrium.Config, logger *log.Logger) error {
	v, err := equilibrium.Verify(ctx, g, p, equilibrium.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	if err := renderVerification(w, g, v); err != nil {
		return err
	}
	if !v.Equilibrium() {
		return &exitStatus{code: exitError}
	}
	return nil
}
