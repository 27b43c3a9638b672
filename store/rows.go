package store

import (
	"fmt"

	"github.com/brensch/gunsnake/game"
)

// TickRow is one board snapshot: the state after tick Tick of a round,
// together with the inputs and events that produced it. Tick 0 is the
// starting board and carries no inputs.
//
// Cells holds the grid in index order (y*width + x), packed with PackCell.
// Inputs holds one direction per snake id, -1 for straight.
type TickRow struct {
	GameID string `parquet:"game_id,dict"`
	Round  int32  `parquet:"round"`
	Tick   int32  `parquet:"tick"`
	TimeMs int64  `parquet:"time_ms"`

	Width       int32 `parquet:"width"`
	Height      int32 `parquet:"height"`
	Walls       bool  `parquet:"walls"`
	ApplesEaten int32 `parquet:"apples_eaten"`

	Cells  []int32    `parquet:"cells"`
	Inputs []int32    `parquet:"inputs"`
	Events []EventRow `parquet:"events"`
	Scores []int32    `parquet:"scores"`

	// Source tells interactive rounds ("play") from generated ones
	// ("selfplay").
	Source string `parquet:"source,dict"`
}

type EventRow struct {
	Kind  string `parquet:"kind,dict"`
	Snake int32  `parquet:"snake"`
}

// Cell packing: kind in bits 0-1, natural in bit 2, snake id in bits 3-10,
// part in bits 11-26.
const (
	kindBits   = 0x3
	naturalBit = 1 << 2
	idShift    = 3
	partShift  = 11
	idMask     = 0xff
	partMask   = 0xffff
)

func PackCell(c game.Cell) int32 {
	v := int32(c.Kind) & kindBits
	switch c.Kind {
	case game.KindApple:
		if c.Natural {
			v |= naturalBit
		}
	case game.KindSnake:
		v |= int32(c.ID) << idShift
		v |= int32(c.Part) << partShift
	}
	return v
}

func UnpackCell(v int32) (game.Cell, error) {
	kind := game.CellKind(v & kindBits)
	switch kind {
	case game.KindEmpty:
		return game.EmptyCell(), nil
	case game.KindWall:
		return game.WallCell(), nil
	case game.KindApple:
		return game.AppleCell(v&naturalBit != 0), nil
	case game.KindSnake:
		return game.SnakeCell(uint8((v>>idShift)&idMask), int((v>>partShift)&partMask)), nil
	}
	return game.Cell{}, fmt.Errorf("unknown cell kind %d", kind)
}

// Snapshot describes one tick for NewTickRow.
type Snapshot struct {
	GameID string
	Round  int
	Tick   int
	TimeMs int64
	Board  *game.Board
	Inputs []game.Direction
	Events []game.Event
	Scores []int
	Source string
}

func NewTickRow(s Snapshot) TickRow {
	cells := s.Board.Cells()
	row := TickRow{
		GameID:      s.GameID,
		Round:       int32(s.Round),
		Tick:        int32(s.Tick),
		TimeMs:      s.TimeMs,
		Width:       int32(s.Board.Width()),
		Height:      int32(s.Board.Height()),
		Walls:       s.Board.WallsEnabled(),
		ApplesEaten: int32(s.Board.ApplesEaten()),
		Cells:       make([]int32, len(cells)),
		Inputs:      make([]int32, len(s.Inputs)),
		Events:      make([]EventRow, len(s.Events)),
		Scores:      make([]int32, len(s.Scores)),
		Source:      s.Source,
	}
	for i, c := range cells {
		row.Cells[i] = PackCell(c)
	}
	for i, d := range s.Inputs {
		row.Inputs[i] = int32(d)
	}
	for i, e := range s.Events {
		row.Events[i] = EventRow{Kind: e.Kind.String(), Snake: int32(e.Snake)}
	}
	for i, v := range s.Scores {
		row.Scores[i] = int32(v)
	}
	return row
}

// Board rebuilds the recorded grid. seed seeds the spawn stream of the
// returned board; the original stream is not recorded.
func (r TickRow) Board(seed uint64) (*game.Board, error) {
	cells := make([]game.Cell, len(r.Cells))
	for i, v := range r.Cells {
		c, err := UnpackCell(v)
		if err != nil {
			return nil, fmt.Errorf("cell %d: %w", i, err)
		}
		cells[i] = c
	}
	return game.FromCells(int(r.Width), int(r.Height), cells, int(r.ApplesEaten), r.Walls, seed)
}

func (r TickRow) GameEvents() ([]game.Event, error) {
	out := make([]game.Event, len(r.Events))
	for i, e := range r.Events {
		var kind game.EventKind
		if err := kind.UnmarshalText([]byte(e.Kind)); err != nil {
			return nil, err
		}
		out[i] = game.Event{Kind: kind, Snake: uint8(e.Snake)}
	}
	return out, nil
}

func (r TickRow) Directions() []game.Direction {
	out := make([]game.Direction, len(r.Inputs))
	for i, v := range r.Inputs {
		out[i] = game.Direction(v)
	}
	return out
}
