package main

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/log"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/automaton"
	"github.com/lox/cgsynth/internal/equilibrium"
	"github.com/lox/cgsynth/internal/fileutil"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/ltl2dpa"
)

// ArenaCmd writes the product arena of a game as Graphviz DOT.
type ArenaCmd struct {
	Game    string `arg:"" type:"existingfile" help:"Game description (HCL)"`
	Profile string `short:"p" type:"existingfile" help:"Highlight the outcome of a saved profile"`
	Out     string `short:"o" help:"Write DOT to this file instead of stdout"`
}

func (c *ArenaCmd) Run(globals *Globals) error {
	g, settings, err := game.LoadFile(c.Game)
	if err != nil {
		return err
	}
	cfg, err := equilibrium.ConfigFromSettings(settings)
	if err != nil {
		return err
	}
	var p *equilibrium.Profile
	if c.Profile != "" {
		if p, err = equilibrium.LoadProfile(c.Profile); err != nil {
			return err
		}
	}

	var buf bytes.Buffer
	if err := writeArena(context.Background(), &buf, g, p, cfg, globals.Logger()); err != nil {
		return err
	}
	return output(c.Out, buf.Bytes())
}

func writeArena(ctx context.Context, w io.Writer, g *game.Game, p *equilibrium.Profile, cfg equilibrium.Config, logger *log.Logger) error {
	a, err := equilibrium.BuildArena(ctx, g, equilibrium.Options{Config: cfg, Logger: logger})
	if err != nil {
		return err
	}
	logger.Info("arena built", "states", a.NumStates())

	var highlight []arena.Edge
	if p != nil {
		l, err := p.Lasso(a)
		if err != nil {
			return fmt.Errorf("replay profile: %w", err)
		}
		for k, s := range l.States {
			highlight = append(highlight, arena.Edge{State: s, Move: l.Moves[k]})
		}
	}
	return arena.WriteDot(w, a, highlight)
}

// AutomatonCmd writes the parity automaton of one player's goal.
type AutomatonCmd struct {
	Game      string `arg:"" type:"existingfile" help:"Game description (HCL)"`
	Player    string `arg:"" help:"Player whose goal is translated"`
	Out       string `short:"o" help:"Write DOT to this file instead of stdout"`
	MaxStates int    `help:"Bound on automaton states" default:"100000"`
	Rabin     bool   `help:"List the equivalent Rabin pairs instead of DOT"`
}

func (c *AutomatonCmd) Run(globals *Globals) error {
	g, _, err := game.LoadFile(c.Game)
	if err != nil {
		return err
	}
	var buf bytes.Buffer
	if err := c.write(context.Background(), &buf, g, globals.Logger()); err != nil {
		return err
	}
	return output(c.Out, buf.Bytes())
}

func (c *AutomatonCmd) write(ctx context.Context, w io.Writer, g *game.Game, logger *log.Logger) error {
	i, ok := g.PlayerIndex(c.Player)
	if !ok {
		return fmt.Errorf("game %s has no player %q", g.Name, c.Player)
	}
	tr := ltl2dpa.New(logger)
	tr.MaxStates = c.MaxStates
	aut, err := tr.Build(ctx, g.Players[i].Goal, g.Alphabet())
	if err != nil {
		return err
	}
	logger.Info("automaton built", "player", c.Player, "states", aut.NumStates(), "max_priority", aut.MaxPriority())
	if c.Rabin {
		return writeRabin(w, aut.RabinPairs())
	}
	return aut.WriteDot(w, g.Alphabet())
}

// writeRabin prints one line per pair: the states to visit infinitely often
// and the states to visit finitely often.
func writeRabin(w io.Writer, pairs []automaton.RabinPair) error {
	var sb strings.Builder
	for i, p := range pairs {
		fmt.Fprintf(&sb, "pair %d: inf %s fin %s\n", i, stateSet(p.Inf), stateSet(p.Fin))
	}
	_, err := io.WriteString(w, sb.String())
	return err
}

func stateSet(qs []int) string {
	parts := make([]string, len(qs))
	for i, q := range qs {
		parts[i] = "q" + strconv.Itoa(q)
	}
	return "{" + strings.Join(parts, ",") + "}"
}

func output(path string, data []byte) error {
	if path == "" {
		_, err := os.Stdout.Write(data)
		return err
	}
	return fileutil.WriteFileAtomic(path, data, 0o644)
}
