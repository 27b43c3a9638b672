// Package config holds the in-process game settings and the flag and
// environment plumbing the binaries share.
package config

import (
	"errors"
	"flag"
	"fmt"
	"strconv"
	"strings"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/search"
)

// Settings is everything a session needs to run rounds.
type Settings struct {
	Board game.BoardSettings `json:"board"`
	// TickRate is ticks per second. Zero or less ticks only when a player
	// has queued input.
	TickRate float64 `json:"tick_rate"`
	// AIPlayers lists the player slots driven by the search.
	AIPlayers []int         `json:"ai_players"`
	Search    search.Config `json:"search"`
	// Seed of the first round. Zero picks a random seed.
	Seed uint64 `json:"seed"`
}

func Default() Settings {
	return Settings{
		Board:    game.DefaultBoardSettings(),
		TickRate: 8,
		Search:   search.DefaultConfig(),
	}
}

// IsAI reports whether slot is computer controlled.
func (s Settings) IsAI(slot int) bool {
	for _, p := range s.AIPlayers {
		if p == slot {
			return true
		}
	}
	return false
}

func (s Settings) Validate() error {
	if err := s.Board.Validate(); err != nil {
		return err
	}
	for _, p := range s.AIPlayers {
		if p < 0 || p >= int(s.Board.Players) {
			return fmt.Errorf("%w: ai player %d with %d players", game.ErrInvalidSettings, p, s.Board.Players)
		}
	}
	if s.Search.Depth < 1 {
		return fmt.Errorf("%w: search depth %d", game.ErrInvalidSettings, s.Search.Depth)
	}
	return nil
}

// RegisterFlags binds s to fs. Defaults come from the current values of s,
// overridden by SNAKES_* environment variables. An environment value that
// does not parse is reported in the returned error.
func (s *Settings) RegisterFlags(fs *flag.FlagSet) error {
	fs.Var(boardSizeFlag{&s.Board.Size}, "size", "Board size: small, medium or large (env SNAKES_SIZE)")
	fs.Var(appleFlag{&s.Board.Apples}, "apples", "Initial apples: 1, 3 or 5 (env SNAKES_APPLES)")
	fs.Var(playersFlag{&s.Board.Players}, "players", "Number of snakes, 1-4 (env SNAKES_PLAYERS)")
	fs.BoolVar(&s.Board.Walls, "walls", EnvBoolOr("SNAKES_WALLS", s.Board.Walls), "Spawn a wall on every other apple")
	fs.Float64Var(&s.TickRate, "tick-rate", EnvFloatOr("SNAKES_TICK_RATE", s.TickRate), "Ticks per second, 0 ticks on input only")
	fs.Var(intListFlag{&s.AIPlayers}, "ai", "Comma separated player slots played by the computer (env SNAKES_AI)")
	fs.IntVar(&s.Search.Depth, "ai-depth", EnvIntOr("SNAKES_AI_DEPTH", s.Search.Depth), "Search lookahead in ticks")
	fs.DurationVar(&s.Search.Budget, "ai-budget", EnvDurationOr("SNAKES_AI_BUDGET", s.Search.Budget), "Search time budget per move")
	fs.Func("seed", "Seed of the first round, 0 for random (env SNAKES_SEED)", func(v string) error {
		n, err := strconv.ParseUint(v, 10, 64)
		if err != nil {
			return err
		}
		s.Seed = n
		return nil
	})

	var errs []error
	for _, e := range []struct{ env, flag string }{
		{"SNAKES_SIZE", "size"},
		{"SNAKES_APPLES", "apples"},
		{"SNAKES_PLAYERS", "players"},
		{"SNAKES_AI", "ai"},
		{"SNAKES_SEED", "seed"},
	} {
		if v := EnvOr(e.env, ""); v != "" {
			if err := fs.Set(e.flag, v); err != nil {
				errs = append(errs, fmt.Errorf("%s=%q: %w", e.env, v, err))
			}
		}
	}
	return errors.Join(errs...)
}

type boardSizeFlag struct{ v *game.BoardSize }

func (f boardSizeFlag) String() string {
	if f.v == nil {
		return ""
	}
	return f.v.String()
}

func (f boardSizeFlag) Set(s string) error {
	v, err := game.ParseBoardSize(s)
	if err != nil {
		return err
	}
	*f.v = v
	return nil
}

type appleFlag struct{ v *game.AppleCount }

func (f appleFlag) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.Itoa(int(*f.v))
}

func (f appleFlag) Set(s string) error {
	v, err := game.ParseAppleCount(s)
	if err != nil {
		return err
	}
	*f.v = v
	return nil
}

type playersFlag struct{ v *game.PlayerCount }

func (f playersFlag) String() string {
	if f.v == nil {
		return ""
	}
	return strconv.Itoa(int(*f.v))
}

func (f playersFlag) Set(s string) error {
	v, err := game.ParsePlayerCount(s)
	if err != nil {
		return err
	}
	*f.v = v
	return nil
}

type intListFlag struct{ v *[]int }

func (f intListFlag) String() string {
	if f.v == nil {
		return ""
	}
	parts := make([]string, len(*f.v))
	for i, n := range *f.v {
		parts[i] = strconv.Itoa(n)
	}
	return strings.Join(parts, ",")
}

func (f intListFlag) Set(s string) error {
	var out []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return fmt.Errorf("player slot %q: %w", part, err)
		}
		out = append(out, n)
	}
	*f.v = out
	return nil
}
