package game

import (
	"fmt"
	"iter"
	"math/rand/v2"
)

// Board owns the grid and the random stream used for apple and wall spawns.
//
// A Board is not safe for concurrent use. The game loop owns it during a
// tick; readers should take a Clone between ticks.
type Board struct {
	cells  []Cell
	width  int
	height int

	// applesEaten counts consumed natural apples and gates wall spawns.
	applesEaten int
	walls       bool

	pcg *rand.PCG
	rng *rand.Rand
}

// NewEmpty allocates an empty board with wall spawning enabled.
func NewEmpty(width, height int, seed uint64) *Board {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("game: invalid board dimensions %dx%d", width, height))
	}
	b := &Board{
		cells:  make([]Cell, width*height),
		width:  width,
		height: height,
		walls:  true,
	}
	b.Reseed(seed)
	return b
}

// New builds the starting board for a round: each player's four-segment
// snake at its slot and the natural apples of the configured tier.
func New(settings BoardSettings, seed uint64) (*Board, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	w, h := settings.Size.Dims()
	b := NewEmpty(w, h, seed)
	b.walls = settings.Walls

	for slot := 0; slot < int(settings.Players); slot++ {
		if err := b.PlaceSnake(uint8(slot), snakeBody(settings, slot)); err != nil {
			return nil, fmt.Errorf("place snake %d: %w", slot, err)
		}
	}
	for _, p := range applePositions(settings) {
		c, err := b.Get(p)
		if err != nil {
			return nil, fmt.Errorf("place apple: %w", err)
		}
		if !c.IsEmpty() {
			continue
		}
		b.put(p, AppleCell(true))
	}
	return b, nil
}

func (b *Board) Width() int       { return b.width }
func (b *Board) Height() int      { return b.height }
func (b *Board) ApplesEaten() int { return b.applesEaten }

// WallsEnabled reports whether eating apples spawns walls.
func (b *Board) WallsEnabled() bool     { return b.walls }
func (b *Board) SetWallsEnabled(v bool) { b.walls = v }

func (b *Board) InBounds(p Point) bool {
	return p.X >= 0 && p.X < b.width && p.Y >= 0 && p.Y < b.height
}

func (b *Board) Get(p Point) (Cell, error) {
	if !b.InBounds(p) {
		return Cell{}, fmt.Errorf("get (%d,%d) on %dx%d: %w", p.X, p.Y, b.width, b.height, ErrOutOfBounds)
	}
	return b.cells[p.Y*b.width+p.X], nil
}

func (b *Board) Set(p Point, c Cell) error {
	if !b.InBounds(p) {
		return fmt.Errorf("set (%d,%d) on %dx%d: %w", p.X, p.Y, b.width, b.height, ErrOutOfBounds)
	}
	b.cells[p.Y*b.width+p.X] = c
	return nil
}

// index is the internal fast path. Callers have already checked bounds, so
// a violation is a bug and panics.
func (b *Board) index(p Point) int {
	if !b.InBounds(p) {
		panic(fmt.Sprintf("game: internal access out of bounds (%d,%d) on %dx%d", p.X, p.Y, b.width, b.height))
	}
	return p.Y*b.width + p.X
}

func (b *Board) at(p Point) Cell     { return b.cells[b.index(p)] }
func (b *Board) put(p Point, c Cell) { b.cells[b.index(p)] = c }

func (b *Board) point(i int) Point {
	return Point{X: i % b.width, Y: i / b.width}
}

// All iterates every cell in index order.
func (b *Board) All() iter.Seq2[Point, Cell] {
	return func(yield func(Point, Cell) bool) {
		for i, c := range b.cells {
			if !yield(b.point(i), c) {
				return
			}
		}
	}
}

// PlaceSnake writes a body, ordered tail to head, onto empty cells.
func (b *Board) PlaceSnake(id uint8, body []Point) error {
	for _, p := range body {
		c, err := b.Get(p)
		if err != nil {
			return err
		}
		if !c.IsEmpty() {
			return fmt.Errorf("cell (%d,%d) is %s", p.X, p.Y, c.Kind)
		}
	}
	for part, p := range body {
		b.put(p, SnakeCell(id, part))
	}
	return nil
}

// Reseed replaces the random stream.
func (b *Board) Reseed(seed uint64) {
	b.pcg = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	b.rng = rand.New(b.pcg)
}

// Clone returns a deep copy, including an exact copy of the random stream.
func (b *Board) Clone() *Board {
	out := b.cloneGrid()
	pcg := *b.pcg
	out.pcg = &pcg
	out.rng = rand.New(out.pcg)
	return out
}

// CloneWithSeed returns a deep copy of the grid with an independent random
// stream, so spawns on the copy never mirror the original.
func (b *Board) CloneWithSeed(seed uint64) *Board {
	out := b.cloneGrid()
	out.Reseed(seed)
	return out
}

func (b *Board) cloneGrid() *Board {
	cells := make([]Cell, len(b.cells))
	copy(cells, b.cells)
	return &Board{
		cells:       cells,
		width:       b.width,
		height:      b.height,
		applesEaten: b.applesEaten,
		walls:       b.walls,
	}
}

// Equal compares dimensions, counters, the walls flag and cells. The random
// stream is not part of the comparison.
func (b *Board) Equal(o *Board) bool {
	if b.width != o.width || b.height != o.height || b.applesEaten != o.applesEaten || b.walls != o.walls {
		return false
	}
	for i := range b.cells {
		if b.cells[i] != o.cells[i] {
			return false
		}
	}
	return true
}

// Count returns how many cells match kind.
func (b *Board) Count(kind CellKind) int {
	n := 0
	for _, c := range b.cells {
		if c.Kind == kind {
			n++
		}
	}
	return n
}

// Cells returns a copy of the grid in index order (y*width + x).
func (b *Board) Cells() []Cell {
	out := make([]Cell, len(b.cells))
	copy(out, b.cells)
	return out
}

// FromCells rebuilds a board from a grid in index order, as returned by
// Cells. The slice is copied.
func FromCells(width, height int, cells []Cell, applesEaten int, walls bool, seed uint64) (*Board, error) {
	if width <= 0 || height <= 0 {
		return nil, fmt.Errorf("invalid board dimensions %dx%d", width, height)
	}
	if len(cells) != width*height {
		return nil, fmt.Errorf("board has %d cells, want %d", len(cells), width*height)
	}
	b := NewEmpty(width, height, seed)
	copy(b.cells, cells)
	b.applesEaten = applesEaten
	b.walls = walls
	return b, nil
}
