package game

import (
	"fmt"
	"strconv"
	"strings"
)

// BoardSize is the board size tier.
type BoardSize uint8

const (
	Small BoardSize = iota
	Medium
	Large
)

// Dims returns the fixed width and height of the tier.
func (s BoardSize) Dims() (width, height int) {
	switch s {
	case Medium:
		return 17, 15
	case Large:
		return 24, 21
	default:
		return 10, 9
	}
}

func (s BoardSize) String() string {
	switch s {
	case Small:
		return "small"
	case Medium:
		return "medium"
	case Large:
		return "large"
	default:
		return fmt.Sprintf("size(%d)", uint8(s))
	}
}

func ParseBoardSize(v string) (BoardSize, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "small", "s":
		return Small, nil
	case "medium", "m":
		return Medium, nil
	case "large", "l":
		return Large, nil
	}
	return Small, fmt.Errorf("%w: board size %q", ErrInvalidSettings, v)
}

// AppleCount is the initial apple tier. The value is the number of apples.
type AppleCount uint8

const (
	OneApple    AppleCount = 1
	ThreeApples AppleCount = 3
	FiveApples  AppleCount = 5
)

func ParseAppleCount(v string) (AppleCount, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err == nil {
		switch AppleCount(n) {
		case OneApple, ThreeApples, FiveApples:
			return AppleCount(n), nil
		}
	}
	return OneApple, fmt.Errorf("%w: apple count %q (want 1, 3 or 5)", ErrInvalidSettings, v)
}

// PlayerCount is the number of snakes placed at construction, 1 to 4.
type PlayerCount uint8

func ParsePlayerCount(v string) (PlayerCount, error) {
	n, err := strconv.Atoi(strings.TrimSpace(v))
	if err != nil || n < 1 || n > 4 {
		return 1, fmt.Errorf("%w: player count %q (want 1-4)", ErrInvalidSettings, v)
	}
	return PlayerCount(n), nil
}

// BoardSettings is the immutable per-round configuration consumed by New.
type BoardSettings struct {
	Size    BoardSize   `json:"size"`
	Apples  AppleCount  `json:"apples"`
	Players PlayerCount `json:"players"`
	// Walls enables the periodic wall spawn on apple consumption.
	Walls bool `json:"walls"`
}

func DefaultBoardSettings() BoardSettings {
	return BoardSettings{Size: Small, Apples: OneApple, Players: 1, Walls: true}
}

func (s BoardSettings) Validate() error {
	if s.Size > Large {
		return fmt.Errorf("%w: size tier %d", ErrInvalidSettings, s.Size)
	}
	switch s.Apples {
	case OneApple, ThreeApples, FiveApples:
	default:
		return fmt.Errorf("%w: apple tier %d", ErrInvalidSettings, s.Apples)
	}
	if s.Players < 1 || s.Players > 4 {
		return fmt.Errorf("%w: player count %d", ErrInvalidSettings, s.Players)
	}
	return nil
}

// initialLength is the body length every snake starts with.
const initialLength = 4

// spawnLayout is where a snake's tail starts and which way the body extends.
type spawnLayout struct {
	tail Point
	dir  Direction
}

// multiplayerLayouts are the four corner slots. Negative coordinates are
// measured from the far edge and wrap modulo the board size.
var multiplayerLayouts = [4]spawnLayout{
	{tail: Point{X: 1, Y: 1}, dir: Right},
	{tail: Point{X: -2, Y: -2}, dir: Left},
	{tail: Point{X: 1, Y: -2}, dir: Down},
	{tail: Point{X: -2, Y: 1}, dir: Up},
}

// snakeBody returns the initial body for a player slot, ordered tail to head.
func snakeBody(settings BoardSettings, slot int) []Point {
	w, h := settings.Size.Dims()

	var layout spawnLayout
	if settings.Players == 1 {
		x := w/4 - 2
		if x < 0 {
			x = 0
		}
		layout = spawnLayout{tail: Point{X: x, Y: h / 2}, dir: Right}
	} else {
		layout = multiplayerLayouts[slot%len(multiplayerLayouts)]
	}

	tail := Point{X: wrap(layout.tail.X, w), Y: wrap(layout.tail.Y, h)}
	body := make([]Point, initialLength)
	for i := range body {
		body[i] = tail.Add(Point{X: layout.dir.Vec().X * i, Y: layout.dir.Vec().Y * i})
	}
	return body
}

var applePatterns = map[AppleCount][]Point{
	OneApple:    {{X: 0, Y: 0}},
	ThreeApples: {{X: 0, Y: 0}, {X: -2, Y: 2}, {X: -2, Y: -2}},
	FiveApples:  {{X: 0, Y: 0}, {X: -2, Y: 2}, {X: -2, Y: -2}, {X: 1, Y: 1}, {X: 1, Y: -1}},
}

// applePositions returns the initial natural apples. A lone player races
// toward an anchor ahead of its head; multiplayer apples sit around the centre.
func applePositions(settings BoardSettings) []Point {
	w, h := settings.Size.Dims()
	anchor := Point{X: w / 2, Y: h / 2}
	if settings.Players == 1 {
		anchor = Point{X: w - 3, Y: h / 2}
	}
	pattern := applePatterns[settings.Apples]
	out := make([]Point, 0, len(pattern))
	for _, off := range pattern {
		out = append(out, anchor.Add(off))
	}
	return out
}

func wrap(v, n int) int {
	return ((v % n) + n) % n
}
