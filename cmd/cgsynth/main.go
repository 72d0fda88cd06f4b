package main

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/alecthomas/kong"
	"github.com/charmbracelet/log"
)

// version is set by ldflags during build
var version = "dev"

// Globals are the flags shared by every subcommand.
type Globals struct {
	LogLevel string `short:"l" default:"warn" enum:"debug,info,warn,error" help:"Log level (debug, info, warn, error)"`
}

// Logger returns a stderr logger at the configured level.
func (g *Globals) Logger() *log.Logger {
	logger := log.New(os.Stderr)
	switch strings.ToLower(g.LogLevel) {
	case "debug":
		logger.SetLevel(log.DebugLevel)
	case "info":
		logger.SetLevel(log.InfoLevel)
	case "error":
		logger.SetLevel(log.ErrorLevel)
	default:
		logger.SetLevel(log.WarnLevel)
	}
	return logger
}

type CLI struct {
	Globals `embed:""`

	Version   kong.VersionFlag `short:"v" help:"Show version"`
	Solve     SolveCmd         `cmd:"" help:"Synthesize a Nash equilibrium of a game"`
	Check     CheckCmd         `cmd:"" help:"Re-validate a saved profile against a game"`
	Arena     ArenaCmd         `cmd:"" help:"Build the product arena of a game"`
	Automaton AutomatonCmd     `cmd:"" help:"Translate a player's goal into a parity automaton"`
}

// Exit codes.
const (
	exitEquilibrium  = 0
	exitError        = 1
	exitUnrealizable = 2
	exitInconclusive = 3
)

// exitStatus makes a command end the process with a specific code. A nil
// err means the command succeeded but the answer is not an equilibrium.
type exitStatus struct {
	code int
	err  error
}

func (e *exitStatus) Error() string {
	if e.err == nil {
		return fmt.Sprintf("exit status %d", e.code)
	}
	return e.err.Error()
}

func (e *exitStatus) Unwrap() error { return e.err }

// exitCode maps the error returned by a command to a process exit code.
func exitCode(err error) int {
	if err == nil {
		return exitEquilibrium
	}
	var st *exitStatus
	if errors.As(err, &st) {
		return st.code
	}
	return exitError
}

func main() {
	var cli CLI
	ctx := kong.Parse(&cli,
		kong.Name("cgsynth"),
		kong.Description("Nash equilibrium synthesis for concurrent games with LTL goals"),
		kong.UsageOnError(),
		kong.ConfigureHelp(kong.HelpOptions{
			Compact: true,
		}),
		kong.Vars{
			"version": version,
		},
	)

	err := ctx.Run(&cli.Globals)
	code := exitCode(err)
	var st *exitStatus
	if err != nil && (!errors.As(err, &st) || st.err != nil) {
		fmt.Fprintln(os.Stderr, errorStyle.Render("error: ")+err.Error())
	}
	ctx.Exit(code)
}
