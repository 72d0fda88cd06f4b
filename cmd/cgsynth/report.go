package main

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/lox/cgsynth/internal/equilibrium"
	"github.com/lox/cgsynth/internal/game"
)

var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	labelStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	warningStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("11")).
			Bold(true)

	errorStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("9")).
			Bold(true)

	loopStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14"))
)

func outcomeStyle(o equilibrium.Outcome) lipgloss.Style {
	switch o {
	case equilibrium.OutcomeConverged:
		return successStyle
	case equilibrium.OutcomeUnrealizable:
		return errorStyle
	}
	return warningStyle
}

func field(sb *strings.Builder, label string, value any) {
	fmt.Fprintf(sb, "%s %v\n", labelStyle.Render(fmt.Sprintf("%-12s", label+":")), value)
}

// renderResult prints a human-readable summary of a synthesis run.
func renderResult(w io.Writer, g *game.Game, res *equilibrium.Result) error {
	var sb strings.Builder
	d := res.Diagnostics

	sb.WriteString(headerStyle.Render("Game "+g.Name) + "\n")
	field(&sb, "outcome", outcomeStyle(res.Outcome).Render(res.Outcome.String()))
	field(&sb, "run", d.RunID)
	if d.Reason != "" {
		field(&sb, "reason", d.Reason)
	}
	if d.Assignment != "" {
		field(&sb, "assignment", d.Assignment)
	}
	field(&sb, "automata", fmt.Sprint(d.Stats.AutomatonStates))
	field(&sb, "arena", fmt.Sprintf("%d states", d.Stats.ArenaStates))
	field(&sb, "search", fmt.Sprintf("%d assignments, %d iterations, %d checks in %s",
		d.Stats.Assignments, d.Stats.Iterations, d.Stats.Checks, d.Stats.Elapsed.Round(time.Millisecond)))
	if len(d.Bans) > 0 {
		field(&sb, "bans", strings.Join(d.Bans, "; "))
	}
	if d.Oracle != nil {
		field(&sb, "oracle", fmt.Sprintf("%s over %d variables", d.Oracle.Verdict, d.Oracle.Vars))
	}

	if p := res.Profile; p != nil {
		sb.WriteString("\n")
		renderProfile(&sb, p)
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

// renderProfile draws the outcome as one row per position, marking where
// the loop starts, followed by the punishment sizes of each strategy.
func renderProfile(sb *strings.Builder, p *equilibrium.Profile) {
	winners := "none"
	if len(p.Winners) > 0 {
		winners = strings.Join(p.Winners, ", ")
	}
	field(sb, "winners", winners)

	headers := append([]string{"#", "state"}, p.Players...)
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers(headers...).
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			if row >= p.Loop {
				return s.Inherit(loopStyle)
			}
			return s
		})
	for k, state := range p.States {
		pos := strconv.Itoa(k)
		if k == p.Loop {
			pos += " ↺"
		}
		row := []string{pos, state}
		for _, st := range p.Strategies {
			row = append(row, st.Outcome[k])
		}
		t.Row(row...)
	}
	sb.WriteString(t.String() + "\n")

	for _, st := range p.Strategies {
		if len(st.Punish) == 0 {
			continue
		}
		var parts []string
		for _, dev := range p.Players {
			if resp, ok := st.Punish[dev]; ok {
				parts = append(parts, fmt.Sprintf("%s in %d states", dev, len(resp)))
			}
		}
		field(sb, st.Player+" punishes", strings.Join(parts, ", "))
	}
}

// renderVerification prints the per-player verdicts of a re-validation.
func renderVerification(w io.Writer, g *game.Game, v *equilibrium.Verification) error {
	var sb strings.Builder
	sb.WriteString(headerStyle.Render("Game "+g.Name) + "\n")
	for i, p := range g.Players {
		verdict := successStyle.Render("wins")
		if !v.Won[i] {
			verdict = "loses, no profitable deviation"
			for _, r := range v.Reports {
				if r.Player == i && r.Profitable {
					verdict = errorStyle.Render(fmt.Sprintf("loses, deviates to %s at position %d",
						g.FormatMove(r.Deviation.Deviated), r.Deviation.Position))
				}
			}
		}
		field(&sb, p.Name, verdict)
	}
	for _, f := range v.Faults {
		field(&sb, "punishment", errorStyle.Render(f))
	}
	if v.Equilibrium() {
		sb.WriteString(successStyle.Render("profile is a Nash equilibrium") + "\n")
	} else {
		sb.WriteString(errorStyle.Render("profile is not a Nash equilibrium") + "\n")
	}
	_, err := io.WriteString(w, sb.String())
	return err
}
