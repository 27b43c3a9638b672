package search

import (
	"github.com/brensch/gunsnake/game"
)

// Fill is the outcome of a bounded flood fill from a snake's head.
type Fill struct {
	// Cells are the passable cells reached, in visit order.
	Cells []game.Point
	// Cap is the distance bound that was used.
	Cap       int
	FoundTail bool
}

// Fraction is the reachable share of the cap, clamped to 1.
func (f Fill) Fraction() float64 {
	if f.Cap <= 0 {
		return 0
	}
	return min(float64(len(f.Cells)), float64(f.Cap)) / float64(f.Cap)
}

// FloodFill walks outward from the head of snake over empty and apple cells
// up to limit steps, noting whether the snake's own tail borders the fill.
func FloodFill(board *game.Board, snake game.Snake, limit int) Fill {
	out := Fill{Cap: limit}
	tail := snake.Tail()

	type item struct {
		p    game.Point
		dist int
	}
	visited := make([]bool, board.Width()*board.Height())
	mark := func(p game.Point) { visited[p.Y*board.Width()+p.X] = true }
	seen := func(p game.Point) bool { return visited[p.Y*board.Width()+p.X] }

	head := snake.Head()
	mark(head)
	queue := []item{{p: head}}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		for _, d := range game.AllDirections {
			next := cur.p.Add(d.Vec())
			if !board.InBounds(next) || seen(next) {
				continue
			}
			if next == tail && snake.Len() > 1 {
				out.FoundTail = true
				continue
			}
			c, _ := board.Get(next)
			if !c.Passable() || cur.dist >= limit {
				continue
			}
			mark(next)
			out.Cells = append(out.Cells, next)
			queue = append(queue, item{p: next, dist: cur.dist + 1})
		}
	}
	return out
}

// evaluate scores a terminal state. Deaths rank below everything else, with
// later deaths preferred. Living leaves whose head is cut off from the tail
// are traps. Otherwise the score is open space plus weighted apple progress.
func (s *TreeSearch) evaluate(n node) float64 {
	cfg := s.Config
	if n.dead {
		return cfg.DeathPenalty + float64(n.depth)
	}
	me, ok, err := n.board.Snake(cfg.Snake)
	if err != nil || !ok {
		return cfg.DeathPenalty + float64(n.depth)
	}
	fill := FloodFill(n.board, me, fillCap(cfg, me))
	if !fill.FoundTail {
		return cfg.TrapPenalty + n.apples
	}
	return fill.Fraction() + cfg.AppleWeight*n.apples
}

func fillCap(cfg Config, snake game.Snake) int {
	factor := cfg.FillFactor
	if factor <= 0 {
		factor = 2
	}
	return factor * snake.Len()
}
