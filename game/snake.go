package game

import (
	"fmt"
	"maps"
	"slices"
	"sort"
)

// Snake is a view derived from the grid. It is never stored on the board;
// Board.Snakes rebuilds it from the cell contents on every call.
type Snake struct {
	ID uint8
	// Body is ordered tail to head.
	Body []Point
}

func (s Snake) Len() int { return len(s.Body) }

func (s Snake) Head() Point { return s.Body[len(s.Body)-1] }

// Neck is the segment right behind the head.
func (s Snake) Neck() Point { return s.Body[len(s.Body)-2] }

// Hips is the segment right in front of the tail.
func (s Snake) Hips() Point { return s.Body[1] }

func (s Snake) Tail() Point { return s.Body[0] }

// Dir is the current facing, head minus neck.
func (s Snake) Dir() (Direction, error) {
	if len(s.Body) < 2 {
		return Straight, &SnakeError{ID: s.ID, Err: ErrSnakeTooShort}
	}
	d, ok := DirectionOf(s.Head().Sub(s.Neck()))
	if !ok {
		return Straight, &SnakeError{ID: s.ID, Err: fmt.Errorf("%w: head %v neck %v", ErrHeadNotAttachedToNeck, s.Head(), s.Neck())}
	}
	return d, nil
}

type segment struct {
	part int
	pos  Point
}

// Snakes groups snake cells by id. Each body must hold the parts 0..len-1
// exactly once, otherwise the grid is corrupted and ErrMalformedParts is
// returned.
func (b *Board) Snakes() (map[uint8]Snake, error) {
	return DeriveSnakes(b.cells, b.width)
}

// DeriveSnakes is the pure grid to view function behind Board.Snakes.
func DeriveSnakes(cells []Cell, width int) (map[uint8]Snake, error) {
	groups := make(map[uint8][]segment)
	for i, c := range cells {
		if c.Kind != KindSnake {
			continue
		}
		groups[c.ID] = append(groups[c.ID], segment{part: int(c.Part), pos: Point{X: i % width, Y: i / width}})
	}

	out := make(map[uint8]Snake, len(groups))
	// Ascending ids so the first malformed snake reported is always the same.
	for _, id := range slices.Sorted(maps.Keys(groups)) {
		segs := groups[id]
		sort.Slice(segs, func(i, j int) bool { return segs[i].part < segs[j].part })
		body := make([]Point, len(segs))
		for i, s := range segs {
			if s.part != i {
				return nil, &SnakeError{ID: id, Err: fmt.Errorf("%w: expected part %d, found %d", ErrMalformedParts, i, s.part)}
			}
			body[i] = s.pos
		}
		out[id] = Snake{ID: id, Body: body}
	}
	return out, nil
}

// Snake returns the view of a single snake.
func (b *Board) Snake(id uint8) (Snake, bool, error) {
	snakes, err := b.Snakes()
	if err != nil {
		return Snake{}, false, err
	}
	s, ok := snakes[id]
	return s, ok, nil
}

// SnakeIDs lists the ids present on the board in ascending order.
func (b *Board) SnakeIDs() []uint8 {
	var seen [256]bool
	var ids []uint8
	for _, c := range b.cells {
		if c.Kind == KindSnake && !seen[c.ID] {
			seen[c.ID] = true
			ids = append(ids, c.ID)
		}
	}
	slices.Sort(ids)
	return ids
}

// SnakeLen counts the segments of one snake without building the view.
func (b *Board) SnakeLen(id uint8) int {
	n := 0
	for _, c := range b.cells {
		if c.Kind == KindSnake && c.ID == id {
			n++
		}
	}
	return n
}
