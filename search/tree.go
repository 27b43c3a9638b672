package search

import (
	"context"
	"fmt"
	"math/rand/v2"
	"slices"
	"time"

	"github.com/brensch/gunsnake/game"
)

// TreeSearch is a breadth-first lookahead over the controlled snake's moves.
// Other snakes are assumed to keep going straight.
//
// A TreeSearch is not safe for concurrent use; give each player its own.
type TreeSearch struct {
	Config Config
	// Sink receives an Overlay after every search when set.
	Sink Sink

	rng *rand.Rand
	now func() time.Time
}

func NewTreeSearch(cfg Config) *TreeSearch {
	s := &TreeSearch{Config: cfg}
	s.init()
	return s
}

func (s *TreeSearch) init() {
	if s.rng == nil {
		s.rng = rand.New(rand.NewPCG(s.Config.Seed, s.Config.Seed^0xda3e39cb94b95bdb))
	}
	if s.now == nil {
		s.now = time.Now
	}
}

// Choose implements Chooser.
func (s *TreeSearch) Choose(ctx context.Context, board *game.Board) (game.Direction, error) {
	res, err := s.Search(ctx, board)
	if err != nil {
		return game.Straight, err
	}
	return res.Move, nil
}

// Search runs one lookahead from board, which is never modified.
//
// The root is always expanded, even when the budget is already spent, so a
// move is available as long as the snake is on the board. After that the
// budget and ctx are polled before every expansion; once either runs out the
// queued states are scored as they stand.
func (s *TreeSearch) Search(ctx context.Context, board *game.Board) (Result, error) {
	s.init()
	cfg := s.Config

	snakes, err := board.Snakes()
	if err != nil {
		return Result{}, err
	}
	me, ok := snakes[cfg.Snake]
	if !ok {
		return Result{}, fmt.Errorf("%w: id %d", ErrNoSnake, cfg.Snake)
	}
	facing, err := me.Dir()
	if err != nil {
		return Result{}, err
	}

	maxID := cfg.Snake
	for id := range snakes {
		maxID = max(maxID, id)
	}
	inputs := make([]game.Direction, int(maxID)+1)

	deadline := s.now().Add(cfg.Budget)
	queue := []node{{board: board, facing: facing}}
	var terminals []node
	var res Result

	for len(queue) > 0 {
		if res.Expanded > 0 && s.expired(ctx, deadline) {
			res.TimedOut = true
			terminals = append(terminals, queue...)
			break
		}
		n := queue[0]
		queue = queue[1:]
		res.Expanded++

		for _, dir := range game.AllDirections {
			if dir == n.facing.Opposite() {
				continue
			}
			child, err := s.step(n, dir, inputs)
			if err != nil {
				return Result{}, err
			}
			if child.dead || child.depth >= cfg.Depth {
				terminals = append(terminals, child)
			} else {
				queue = append(queue, child)
			}
		}
	}

	if len(terminals) == 0 {
		return res, ErrNoMove
	}

	s.rng.Shuffle(len(terminals), func(i, j int) {
		terminals[i], terminals[j] = terminals[j], terminals[i]
	})
	scores := make([]float64, len(terminals))
	best := 0
	for i, t := range terminals {
		scores[i] = s.evaluate(t)
		if scores[i] > scores[best] {
			best = i
		}
	}

	res.Move = terminals[best].history[0]
	res.Score = scores[best]
	res.Terminals = len(terminals)

	if s.Sink != nil {
		s.Sink.Observe(s.overlay(me, terminals, scores, best))
	}
	return res, nil
}

func (s *TreeSearch) expired(ctx context.Context, deadline time.Time) bool {
	select {
	case <-ctx.Done():
		return true
	default:
	}
	return !s.now().Before(deadline)
}

// step ticks a private copy of n with dir for the controlled snake and
// straight for everyone else.
func (s *TreeSearch) step(n node, dir game.Direction, inputs []game.Direction) (node, error) {
	board := n.board.CloneWithSeed(s.rng.Uint64())
	for i := range inputs {
		inputs[i] = game.Straight
	}
	inputs[s.Config.Snake] = dir

	events, err := board.Tick(inputs)
	if err != nil {
		return node{}, fmt.Errorf("search: tick at depth %d: %w", n.depth, err)
	}

	child := node{
		board:   board,
		apples:  n.apples,
		depth:   n.depth + 1,
		history: append(slices.Clip(n.history), dir),
		facing:  dir,
	}
	for _, e := range events {
		if e.Snake != s.Config.Snake {
			continue
		}
		switch e.Kind {
		case game.EventAppleEaten:
			child.apples += 1 / float64(n.depth+1)
		case game.EventSnakeDamaged:
			child.dead = true
		}
	}
	return child, nil
}
