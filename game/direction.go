package game

import (
	"fmt"
	"strings"
)

// Direction is one of the four grid moves. Straight is the "no intent" input
// and means the snake keeps its current facing.
type Direction int8

const (
	Straight Direction = -1
	Up       Direction = 0
	Down     Direction = 1
	Left     Direction = 2
	Right    Direction = 3
)

// AllDirections lists the four moves in id order.
var AllDirections = [4]Direction{Up, Down, Left, Right}

var directionVecs = [4]Point{{X: 0, Y: 1}, {X: 0, Y: -1}, {X: -1, Y: 0}, {X: 1, Y: 0}}

// Valid reports whether d is one of the four moves.
func (d Direction) Valid() bool {
	return d >= Up && d <= Right
}

func (d Direction) Opposite() Direction {
	switch d {
	case Up:
		return Down
	case Down:
		return Up
	case Left:
		return Right
	case Right:
		return Left
	default:
		return Straight
	}
}

// Vec returns the unit offset of d. Straight has a zero offset.
func (d Direction) Vec() Point {
	if !d.Valid() {
		return Point{}
	}
	return directionVecs[d]
}

// DirectionOf converts a unit offset back to a Direction.
func DirectionOf(v Point) (Direction, bool) {
	for _, d := range AllDirections {
		if directionVecs[d] == v {
			return d, true
		}
	}
	return Straight, false
}

func (d Direction) String() string {
	switch d {
	case Up:
		return "up"
	case Down:
		return "down"
	case Left:
		return "left"
	case Right:
		return "right"
	case Straight:
		return "straight"
	default:
		return fmt.Sprintf("direction(%d)", int8(d))
	}
}

// ParseDirection accepts the names produced by String, case-insensitively.
// The empty string parses as Straight.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "up":
		return Up, nil
	case "down":
		return Down, nil
	case "left":
		return Left, nil
	case "right":
		return Right, nil
	case "", "straight", "none":
		return Straight, nil
	default:
		return Straight, fmt.Errorf("unknown direction %q", s)
	}
}

func (d Direction) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

func (d *Direction) UnmarshalText(text []byte) error {
	parsed, err := ParseDirection(string(text))
	if err != nil {
		return err
	}
	*d = parsed
	return nil
}
