package game

import (
	"fmt"
	"strings"
)

// Glyph is the single character used for a cell in text dumps.
func (c Cell) Glyph() byte {
	switch c.Kind {
	case KindWall:
		return '#'
	case KindApple:
		if c.Natural {
			return 'o'
		}
		return '*'
	case KindSnake:
		return 'a' + c.ID%26
	default:
		return '.'
	}
}

// String renders the board with the top row first. Heads are upper case.
func (b *Board) String() string {
	heads := make(map[Point]bool)
	for _, h := range b.heads() {
		heads[h] = true
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%dx%d apples_eaten=%d\n", b.width, b.height, b.applesEaten)
	for y := b.height - 1; y >= 0; y-- {
		for x := 0; x < b.width; x++ {
			p := Point{X: x, Y: y}
			g := b.at(p).Glyph()
			if heads[p] {
				g -= 'a' - 'A'
			}
			sb.WriteByte(g)
		}
		sb.WriteByte('\n')
	}
	return sb.String()
}

// ParseBoard builds a board from rows written top row first, the same layout
// String produces without its header. Snake bodies are given as letters;
// the upper-case letter marks the head and the body is traced back from it
// through orthogonal neighbours. It is meant for tests and fixtures.
func ParseBoard(rows []string, seed uint64) (*Board, error) {
	if len(rows) == 0 {
		return nil, fmt.Errorf("no rows")
	}
	h, w := len(rows), len(rows[0])
	b := NewEmpty(w, h, seed)
	heads := make(map[uint8]Point)
	bodies := make(map[uint8]map[Point]bool)

	for r, row := range rows {
		if len(row) != w {
			return nil, fmt.Errorf("row %d has width %d, want %d", r, len(row), w)
		}
		y := h - 1 - r
		for x := 0; x < w; x++ {
			p := Point{X: x, Y: y}
			ch := row[x]
			switch {
			case ch == '.':
			case ch == '#':
				b.put(p, WallCell())
			case ch == 'o':
				b.put(p, AppleCell(true))
			case ch == '*':
				b.put(p, AppleCell(false))
			case ch >= 'A' && ch <= 'Z':
				id := ch - 'A'
				if _, dup := heads[id]; dup {
					return nil, fmt.Errorf("snake %c has two heads", ch)
				}
				heads[id] = p
			case ch >= 'a' && ch <= 'z' && ch != 'o':
				id := ch - 'a'
				if bodies[id] == nil {
					bodies[id] = make(map[Point]bool)
				}
				bodies[id][p] = true
			default:
				return nil, fmt.Errorf("unknown glyph %q at (%d,%d)", ch, x, y)
			}
		}
	}

	for id, head := range heads {
		rest := bodies[id]
		path := []Point{head}
		for cur := head; len(rest) > 0; {
			next, ok := Point{}, false
			for _, d := range AllDirections {
				if n := cur.Add(d.Vec()); rest[n] {
					next, ok = n, true
					break
				}
			}
			if !ok {
				return nil, fmt.Errorf("snake %c body is not a single chain", 'A'+id)
			}
			delete(rest, next)
			path = append(path, next)
			cur = next
		}
		n := len(path)
		for i, p := range path {
			b.put(p, SnakeCell(id, n-1-i))
		}
	}
	for id := range bodies {
		if _, ok := heads[id]; !ok {
			return nil, fmt.Errorf("snake %c has no head", 'a'+id)
		}
	}
	return b, nil
}
