// tick.go implements the simultaneous move rule.

package game

import (
	"fmt"
	"slices"
)

// headMove is the per-snake plan for one tick.
type headMove struct {
	id     uint8
	target Point
	length int

	damaged bool
	grow    bool
	natural bool
}

// Tick advances every snake by one cell at the same time.
//
// inputs is indexed by snake id and must be longer than the largest id on
// the board. Straight, or the reverse of the current facing, keeps the snake
// going the way it faces. Every collision is judged against the grid as it
// was before the tick, so the order snakes are processed in never changes
// the outcome.
//
// Errors are fatal to the round: ErrNotEnoughInputs is a caller bug and a
// SnakeError means the grid is corrupted. The board is unchanged on error.
func (b *Board) Tick(inputs []Direction) ([]Event, error) {
	snakes, err := b.Snakes()
	if err != nil {
		return nil, err
	}
	ids := make([]uint8, 0, len(snakes))
	for id := range snakes {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	if len(ids) > 0 && len(inputs) <= int(ids[len(ids)-1]) {
		return nil, fmt.Errorf("%w: have %d, need %d", ErrNotEnoughInputs, len(inputs), int(ids[len(ids)-1])+1)
	}

	moves := make([]headMove, 0, len(ids))
	for _, id := range ids {
		s := snakes[id]
		facing, err := s.Dir()
		if err != nil {
			return nil, err
		}
		moves = append(moves, b.planMove(s, ResolveDirection(inputs[id], facing)))
	}

	// Heads entering the same cell all destroy each other.
	contenders := make(map[Point]int, len(moves))
	for _, m := range moves {
		if !m.damaged {
			contenders[m.target]++
		}
	}
	for i := range moves {
		if !moves[i].damaged && contenders[moves[i].target] > 1 {
			moves[i].damaged, moves[i].grow = true, false
		}
	}

	var events []Event
	var grow [256]bool
	pendingApples := 0

	for _, m := range moves {
		if m.damaged {
			continue
		}
		if m.grow {
			grow[m.id] = true
			if m.natural {
				pendingApples++
				events = append(events, Event{Kind: EventAppleEaten, Snake: m.id})
			}
		}
		b.put(m.target, SnakeCell(m.id, m.length))
	}

	alive := 0
	for _, m := range moves {
		if !m.damaged {
			alive++
			continue
		}
		for i, c := range b.cells {
			if c.Kind == KindSnake && c.ID == m.id {
				b.cells[i] = AppleCell(false)
			}
		}
		events = append(events, Event{Kind: EventSnakeDamaged, Snake: m.id})
	}
	if alive == 0 {
		events = append(events, Event{Kind: EventGameOver})
	}

	for i, c := range b.cells {
		if c.Kind != KindSnake || grow[c.ID] {
			continue
		}
		if c.Part == 0 {
			b.cells[i] = EmptyCell()
		} else {
			c.Part--
			b.cells[i] = c
		}
	}

	for range pendingApples {
		// A full board simply gets no replacement apple this time.
		_, _ = b.SpawnApple()
		b.applesEaten++
		if b.walls && b.applesEaten%2 == 1 {
			_, _ = b.SpawnWall()
		}
	}

	return events, nil
}

// ResolveDirection applies the no-reversing rule to a requested direction.
func ResolveDirection(requested, facing Direction) Direction {
	if !requested.Valid() || requested == facing.Opposite() {
		return facing
	}
	return requested
}

// planMove classifies the cell in front of s against the current grid.
func (b *Board) planMove(s Snake, dir Direction) headMove {
	m := headMove{id: s.ID, target: s.Head().Add(dir.Vec()), length: s.Len()}
	if !b.InBounds(m.target) {
		m.damaged = true
		return m
	}
	c := b.at(m.target)
	switch c.Kind {
	case KindWall:
		m.damaged = true
	case KindSnake:
		if !c.IsTailOf(s.ID) {
			m.damaged = true
		}
	case KindApple:
		m.grow = true
		m.natural = c.Natural
	}
	return m
}
