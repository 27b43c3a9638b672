// Package game defines the authoritative board model for the snake arena.
//
// The board is a flat array of cells indexed by y*width+x. Snakes are not
// stored as objects: every snake segment is a cell tagged with the snake id
// and a part index (0 at the tail), and the body is reconstructed from the
// grid whenever it is needed (see Board.Snakes).
package game

// CellKind is the occupant kind of a single board cell.
type CellKind uint8

const (
	KindEmpty CellKind = iota
	KindWall
	KindSnake
	KindApple
)

func (k CellKind) String() string {
	switch k {
	case KindEmpty:
		return "empty"
	case KindWall:
		return "wall"
	case KindSnake:
		return "snake"
	case KindApple:
		return "apple"
	default:
		return "unknown"
	}
}

// Cell is a tagged variant. ID and Part are only meaningful for KindSnake,
// Natural only for KindApple.
type Cell struct {
	Kind    CellKind
	ID      uint8
	Part    uint16
	Natural bool
}

func EmptyCell() Cell { return Cell{} }

func WallCell() Cell { return Cell{Kind: KindWall} }

func SnakeCell(id uint8, part int) Cell {
	return Cell{Kind: KindSnake, ID: id, Part: uint16(part)}
}

// AppleCell returns an apple. Natural apples respawn elsewhere when eaten;
// apples left behind by a dead snake do not.
func AppleCell(natural bool) Cell {
	return Cell{Kind: KindApple, Natural: natural}
}

func (c Cell) IsEmpty() bool { return c.Kind == KindEmpty }
func (c Cell) IsWall() bool  { return c.Kind == KindWall }
func (c Cell) IsSnake() bool { return c.Kind == KindSnake }
func (c Cell) IsApple() bool { return c.Kind == KindApple }

// Passable reports whether a head may enter the cell without taking damage,
// ignoring the own-tail exception.
func (c Cell) Passable() bool {
	return c.Kind == KindEmpty || c.Kind == KindApple
}

// IsTailOf reports whether the cell is the tail segment of snake id.
func (c Cell) IsTailOf(id uint8) bool {
	return c.Kind == KindSnake && c.ID == id && c.Part == 0
}

// Point is a board coordinate. (0,0) is the bottom-left cell.
type Point struct {
	X int `json:"x"`
	Y int `json:"y"`
}

func (p Point) Add(q Point) Point { return Point{X: p.X + q.X, Y: p.Y + q.Y} }
func (p Point) Sub(q Point) Point { return Point{X: p.X - q.X, Y: p.Y - q.Y} }

// Dist2 is the squared euclidean distance between p and q.
func (p Point) Dist2(q Point) int {
	dx, dy := p.X-q.X, p.Y-q.Y
	return dx*dx + dy*dy
}
