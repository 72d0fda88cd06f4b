package equilibrium

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/lox/cgsynth/internal/arena"
	"github.com/lox/cgsynth/internal/fileutil"
	"github.com/lox/cgsynth/internal/game"
	"github.com/lox/cgsynth/internal/runid"
	"github.com/lox/cgsynth/internal/suspect"
)

const profileFileVersion = 1

// Profile is a synthesized equilibrium: an outcome lasso that every player
// follows, and for each player the punishment it joins when another
// player leaves the outcome.
type Profile struct {
	Version     int       `json:"version"`
	RunID       string    `json:"run_id"`
	GeneratedAt time.Time `json:"generated_at"`
	Game        string    `json:"game"`
	Players     []string  `json:"players"`
	Winners     []string  `json:"winners"`
	// States names the joint state at each outcome position.
	States []string `json:"states"`
	// Loop is the position the outcome returns to after the last one.
	Loop       int        `json:"loop"`
	Strategies []Strategy `json:"strategies"`
	Iterations int        `json:"iterations"`
}

// Strategy is one player's finite-memory strategy. The memory is the
// outcome position until somebody deviates, then the deviator's identity.
type Strategy struct {
	Player string `json:"player"`
	// Outcome lists the action played at each outcome position.
	Outcome []string `json:"outcome"`
	// Punish maps a deviating player to the action played in each joint
	// state of that player's punishment region.
	Punish map[string]map[string]string `json:"punish,omitempty"`
}

func newProfile(runID string, now time.Time, a *arena.Arena, l suspect.Lasso, won Assignment, puns []*suspect.Punishment, iterations int) *Profile {
	g := a.Game
	p := &Profile{
		Version:     profileFileVersion,
		RunID:       runID,
		GeneratedAt: now.UTC(),
		Game:        g.Name,
		Loop:        l.Loop,
		Iterations:  iterations,
		Winners:     []string{},
	}
	for _, s := range l.States {
		p.States = append(p.States, a.Describe(s))
	}
	for i, pl := range g.Players {
		p.Players = append(p.Players, pl.Name)
		if won[i] {
			p.Winners = append(p.Winners, pl.Name)
		}
	}

	for i, pl := range g.Players {
		st := Strategy{Player: pl.Name, Punish: map[string]map[string]string{}}
		for _, m := range l.Moves {
			st.Outcome = append(st.Outcome, g.Action(m, i))
		}
		for q, pun := range puns {
			if q == i || pun == nil {
				continue
			}
			resp := map[string]string{}
			for s := range a.NumStates() {
				if move, ok := pun.Respond(s, 0); ok {
					resp[a.Describe(s)] = g.Action(move, i)
				}
			}
			if len(resp) > 0 {
				st.Punish[g.Players[q].Name] = resp
			}
		}
		p.Strategies = append(p.Strategies, st)
	}
	return p
}

// Won reports whether the named player wins the outcome.
func (p *Profile) Won(player string) bool { return slices.Contains(p.Winners, player) }

// Lasso replays the outcome in a, checking that it reaches the recorded
// states and closes its loop.
func (p *Profile) Lasso(a *arena.Arena) (suspect.Lasso, error) {
	g := a.Game
	if err := p.matches(g); err != nil {
		return suspect.Lasso{}, err
	}
	n := len(p.States)
	l := suspect.Lasso{States: make([]int, n), Moves: make([]int, n), Loop: p.Loop}
	cur := a.Initial()
	for k := range n {
		if got := a.Describe(cur); got != p.States[k] {
			return suspect.Lasso{}, fmt.Errorf("position %d: outcome reaches %s, profile records %s", k, got, p.States[k])
		}
		move := 0
		for i, st := range p.Strategies {
			act, ok := g.ActionIndex(i, st.Outcome[k])
			if !ok {
				return suspect.Lasso{}, fmt.Errorf("position %d: %s has no action %q", k, st.Player, st.Outcome[k])
			}
			move = g.Replace(move, i, act)
		}
		l.States[k] = cur
		l.Moves[k] = move
		cur = a.Succ[cur][move]
	}
	if err := l.Validate(a); err != nil {
		return suspect.Lasso{}, err
	}
	return l, nil
}

// commitment reads the joint action the other players' saved strategies
// play against a deviation of player q, with q's own action left at its
// first one.
func (p *Profile) commitment(a *arena.Arena, q int) func(s int) (int, bool) {
	g := a.Game
	deviator := g.Players[q].Name
	return func(s int) (int, bool) {
		state := a.Describe(s)
		move := 0
		for j, st := range p.Strategies {
			if j == q {
				continue
			}
			act, ok := g.ActionIndex(j, st.Punish[deviator][state])
			if !ok {
				return -1, false
			}
			move = g.Replace(move, j, act)
		}
		return move, true
	}
}

// matches checks that the profile was produced for a game with g's players.
func (p *Profile) matches(g *game.Game) error {
	if len(p.Strategies) != len(g.Players) || len(p.Players) != len(g.Players) {
		return fmt.Errorf("profile has %d strategies, game has %d players", len(p.Strategies), len(g.Players))
	}
	for i, pl := range g.Players {
		if p.Players[i] != pl.Name || p.Strategies[i].Player != pl.Name {
			return fmt.Errorf("profile player %d is %q, game has %q", i, p.Strategies[i].Player, pl.Name)
		}
		if len(p.Strategies[i].Outcome) != len(p.States) {
			return fmt.Errorf("strategy of %s covers %d of %d positions", pl.Name, len(p.Strategies[i].Outcome), len(p.States))
		}
	}
	return nil
}

// Save writes the profile as JSON, atomically.
func (p *Profile) Save(path string) error {
	if p == nil {
		return errors.New("nil profile")
	}
	if path == "" {
		return errors.New("destination path is required")
	}
	return fileutil.WriteJSON(path, p, 0o644)
}

// LoadProfile reads a profile written by Save.
func LoadProfile(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	var p Profile
	if err := json.NewDecoder(f).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Version != profileFileVersion {
		return nil, fmt.Errorf("unsupported profile version %d", p.Version)
	}
	if len(p.States) == 0 || p.Loop < 0 || p.Loop >= len(p.States) {
		return nil, fmt.Errorf("profile outcome is not a lasso (%d positions, loop %d)", len(p.States), p.Loop)
	}
	if p.RunID != "" {
		if _, err := runid.Decode(p.RunID); err != nil {
			return nil, fmt.Errorf("profile run id: %w", err)
		}
	}
	return &p, nil
}
