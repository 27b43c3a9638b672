// Package search picks moves for computer-controlled snakes.
//
// TreeSearch expands every non-reversing move breadth first on cloned boards
// until a depth cap or a wall-clock budget is hit, then scores the leaves
// with a bounded flood fill. RandomWalk is the cheap fallback.
package search

import (
	"context"
	"errors"
	"time"

	"github.com/brensch/gunsnake/game"
)

var (
	// ErrNoSnake means the controlled snake is not on the board.
	ErrNoSnake = errors.New("search: snake not on board")
	// ErrNoMove means no branch could be evaluated.
	ErrNoMove = errors.New("search: no move available")
)

// Chooser is anything that can pick the next direction for a snake.
type Chooser interface {
	Choose(ctx context.Context, board *game.Board) (game.Direction, error)
}

// Config holds the search knobs. The reward and penalty values are tuning
// heuristics, not correctness properties.
type Config struct {
	// Snake is the id of the controlled snake.
	Snake uint8 `json:"snake"`
	// Depth is the number of ticks looked ahead.
	Depth int `json:"depth"`
	// Budget bounds the wall-clock time of one search.
	Budget time.Duration `json:"budget"`
	// AppleWeight multiplies the accumulated apple reward in the leaf score.
	AppleWeight float64 `json:"apple_weight"`
	// FillFactor times the body length caps the flood fill.
	FillFactor int `json:"fill_factor"`
	// TrapPenalty is added to leaves whose head cannot reach the tail.
	TrapPenalty float64 `json:"trap_penalty"`
	// DeathPenalty is added to leaves where the snake died. The depth it
	// survived to is added on top.
	DeathPenalty float64 `json:"death_penalty"`
	// Seed drives branch reseeding and tie-breaks.
	Seed uint64 `json:"seed"`
}

func DefaultConfig() Config {
	return Config{
		Depth:        7,
		Budget:       5 * time.Millisecond,
		AppleWeight:  2,
		FillFactor:   2,
		TrapPenalty:  -1000,
		DeathPenalty: -2000,
	}
}

// node is one queued or terminal search state. The board is owned by the
// node and never shared with another branch.
type node struct {
	board   *game.Board
	apples  float64
	depth   int
	history []game.Direction
	facing  game.Direction
	dead    bool
}

// Result describes one finished search.
type Result struct {
	Move      game.Direction
	Score     float64
	Expanded  int
	Terminals int
	// TimedOut is set when the budget or the context cut expansion short.
	TimedOut bool
}
