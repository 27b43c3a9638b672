package game

import (
	"encoding/json"
	"fmt"
	"math/rand/v2"
)

type cellJSON struct {
	Kind    CellKind `json:"kind"`
	ID      *uint8   `json:"id,omitempty"`
	Part    *uint16  `json:"part,omitempty"`
	Natural *bool    `json:"natural,omitempty"`
}

func (k CellKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *CellKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "empty":
		*k = KindEmpty
	case "wall":
		*k = KindWall
	case "snake":
		*k = KindSnake
	case "apple":
		*k = KindApple
	default:
		return fmt.Errorf("unknown cell kind %q", text)
	}
	return nil
}

// MarshalJSON writes only the fields that matter for the kind.
func (c Cell) MarshalJSON() ([]byte, error) {
	out := cellJSON{Kind: c.Kind}
	switch c.Kind {
	case KindSnake:
		id, part := c.ID, c.Part
		out.ID, out.Part = &id, &part
	case KindApple:
		natural := c.Natural
		out.Natural = &natural
	}
	return json.Marshal(out)
}

func (c *Cell) UnmarshalJSON(data []byte) error {
	var in cellJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	*c = Cell{Kind: in.Kind}
	switch in.Kind {
	case KindSnake:
		if in.ID == nil || in.Part == nil {
			return fmt.Errorf("snake cell without id or part")
		}
		c.ID, c.Part = *in.ID, *in.Part
	case KindApple:
		c.Natural = in.Natural == nil || *in.Natural
	}
	return nil
}

type boardJSON struct {
	Width       int    `json:"width"`
	Height      int    `json:"height"`
	ApplesEaten int    `json:"apples_eaten"`
	Walls       bool   `json:"walls"`
	Cells       []Cell `json:"cells"`
}

// MarshalJSON encodes the grid in index order. The random stream is not part
// of the wire format.
func (b *Board) MarshalJSON() ([]byte, error) {
	return json.Marshal(boardJSON{
		Width:       b.width,
		Height:      b.height,
		ApplesEaten: b.applesEaten,
		Walls:       b.walls,
		Cells:       b.cells,
	})
}

// UnmarshalJSON decodes a board and gives it a fresh random stream.
func (b *Board) UnmarshalJSON(data []byte) error {
	var in boardJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}
	if in.Width <= 0 || in.Height <= 0 {
		return fmt.Errorf("invalid board dimensions %dx%d", in.Width, in.Height)
	}
	if len(in.Cells) != in.Width*in.Height {
		return fmt.Errorf("board has %d cells, want %d", len(in.Cells), in.Width*in.Height)
	}
	b.cells = in.Cells
	b.width = in.Width
	b.height = in.Height
	b.applesEaten = in.ApplesEaten
	b.walls = in.Walls
	b.Reseed(rand.Uint64())
	return nil
}
