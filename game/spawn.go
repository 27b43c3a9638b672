// spawn.go implements apple and wall placement.

package game

// headSafetyRadius2 keeps walls out of a two cell buffer around every head.
const headSafetyRadius2 = 9

// EmptyCells lists every empty cell in index order.
func (b *Board) EmptyCells() []Point {
	out := make([]Point, 0, len(b.cells))
	for i, c := range b.cells {
		if c.Kind == KindEmpty {
			out = append(out, b.point(i))
		}
	}
	return out
}

// SpawnApple places a natural apple on a uniformly random empty cell.
func (b *Board) SpawnApple() (Point, error) {
	empty := b.EmptyCells()
	if len(empty) == 0 {
		return Point{}, ErrNoSpace
	}
	p := empty[b.rng.IntN(len(empty))]
	b.put(p, AppleCell(true))
	return p, nil
}

// SpawnWall places a wall on a random cell from Spawnable. A board with no
// eligible cell is left untouched and ErrNoSpace is returned.
func (b *Board) SpawnWall() (Point, error) {
	candidates := b.Spawnable()
	if len(candidates) == 0 {
		return Point{}, ErrNoSpace
	}
	p := candidates[b.rng.IntN(len(candidates))]
	b.put(p, WallCell())
	return p, nil
}

// Spawnable returns the empty cells where a wall may appear, in index order.
// It does not mutate the board, so repeated calls agree.
//
// A cell is excluded when it:
//   - sits next to a corner along an edge (a wall there pockets the corner)
//   - is within squared distance 9 of a snake head
//   - touches an existing wall, diagonals included
//   - is two cells along a border from a wall on that border
//   - pairs with an existing wall in one of the corner case pairs
func (b *Board) Spawnable() []Point {
	w, h := b.width, b.height
	blocked := make([]bool, len(b.cells))
	block := func(p Point) {
		if b.InBounds(p) {
			blocked[p.Y*w+p.X] = true
		}
	}

	for i, c := range b.cells {
		if c.Kind != KindEmpty {
			blocked[i] = true
		}
	}

	for _, p := range []Point{
		{X: 0, Y: 1}, {X: 1, Y: 0},
		{X: w - 1, Y: 1}, {X: w - 2, Y: 0},
		{X: 0, Y: h - 2}, {X: 1, Y: h - 1},
		{X: w - 1, Y: h - 2}, {X: w - 2, Y: h - 1},
	} {
		block(p)
	}

	for _, head := range b.heads() {
		for dy := -2; dy <= 2; dy++ {
			for dx := -2; dx <= 2; dx++ {
				if dx*dx+dy*dy < headSafetyRadius2 {
					block(head.Add(Point{X: dx, Y: dy}))
				}
			}
		}
	}

	cornerPairs := [4][2]Point{
		{{X: 0, Y: 2}, {X: 2, Y: 0}},
		{{X: 0, Y: h - 3}, {X: 2, Y: h - 1}},
		{{X: w - 3, Y: 0}, {X: w - 1, Y: 2}},
		{{X: w - 3, Y: h - 1}, {X: w - 1, Y: h - 3}},
	}

	for i, c := range b.cells {
		if c.Kind != KindWall {
			continue
		}
		wall := b.point(i)

		for dy := -1; dy <= 1; dy++ {
			for dx := -1; dx <= 1; dx++ {
				block(wall.Add(Point{X: dx, Y: dy}))
			}
		}

		if wall.X == 0 || wall.X == w-1 {
			block(wall.Add(Point{X: 0, Y: 2}))
			block(wall.Add(Point{X: 0, Y: -2}))
		}
		if wall.Y == 0 || wall.Y == h-1 {
			block(wall.Add(Point{X: 2, Y: 0}))
			block(wall.Add(Point{X: -2, Y: 0}))
		}

		for _, pair := range cornerPairs {
			if wall == pair[0] {
				block(pair[1])
			}
			if wall == pair[1] {
				block(pair[0])
			}
		}
	}

	out := make([]Point, 0, len(b.cells))
	for i, x := range blocked {
		if !x {
			out = append(out, b.point(i))
		}
	}
	return out
}

// heads finds the highest part of every snake id without validating bodies,
// so spawning still works on a board the tick would reject.
func (b *Board) heads() []Point {
	var best [256]int
	var pos [256]Point
	for i := range best {
		best[i] = -1
	}
	for i, c := range b.cells {
		if c.Kind == KindSnake && int(c.Part) > best[c.ID] {
			best[c.ID] = int(c.Part)
			pos[c.ID] = b.point(i)
		}
	}
	var out []Point
	for id, part := range best {
		if part >= 0 {
			out = append(out, pos[id])
		}
	}
	return out
}
