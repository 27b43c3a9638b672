package search

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/rules"
)

// RandomWalk picks a uniformly random move that does not hit anything on the
// next tick.
type RandomWalk struct {
	Snake uint8
	rng   *rand.Rand
}

func NewRandomWalk(snake uint8, seed uint64) *RandomWalk {
	return &RandomWalk{Snake: snake, rng: rand.New(rand.NewPCG(seed, ^seed))}
}

func (r *RandomWalk) Choose(_ context.Context, board *game.Board) (game.Direction, error) {
	if r.rng == nil {
		r.rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if _, ok, err := board.Snake(r.Snake); err != nil {
		return game.Straight, err
	} else if !ok {
		return game.Straight, fmt.Errorf("%w: id %d", ErrNoSnake, r.Snake)
	}

	moves := rules.SafeMoves(board, r.Snake)
	if len(moves) == 0 {
		return game.Straight, ErrNoMove
	}
	return moves[r.rng.IntN(len(moves))], nil
}

// Fallback tries each chooser in order and returns the first move found.
type Fallback []Chooser

func (f Fallback) Choose(ctx context.Context, board *game.Board) (game.Direction, error) {
	err := ErrNoMove
	for _, c := range f {
		var dir game.Direction
		dir, err = c.Choose(ctx, board)
		if err == nil {
			return dir, nil
		}
	}
	return game.Straight, err
}
