package game

import "fmt"

type EventKind uint8

const (
	// EventGameOver means no snake is left on the board.
	EventGameOver EventKind = iota
	EventAppleEaten
	// EventSnakeDamaged means a snake hit a wall, a body or the edge and its
	// body turned into apples.
	EventSnakeDamaged
)

func (k EventKind) String() string {
	switch k {
	case EventGameOver:
		return "game_over"
	case EventAppleEaten:
		return "apple_eaten"
	case EventSnakeDamaged:
		return "snake_damaged"
	default:
		return fmt.Sprintf("event(%d)", uint8(k))
	}
}

func (k EventKind) MarshalText() ([]byte, error) { return []byte(k.String()), nil }

func (k *EventKind) UnmarshalText(text []byte) error {
	switch string(text) {
	case "game_over":
		*k = EventGameOver
	case "apple_eaten":
		*k = EventAppleEaten
	case "snake_damaged":
		*k = EventSnakeDamaged
	default:
		return fmt.Errorf("unknown event kind %q", text)
	}
	return nil
}

// Event is one outcome of a tick. Snake is unset for EventGameOver.
type Event struct {
	Kind  EventKind `json:"kind"`
	Snake uint8     `json:"snake"`
}

func (e Event) String() string {
	if e.Kind == EventGameOver {
		return e.Kind.String()
	}
	return fmt.Sprintf("%s(%d)", e.Kind, e.Snake)
}

// HasEvent reports whether events contains kind for snake. Snake is ignored
// for EventGameOver.
func HasEvent(events []Event, kind EventKind, snake uint8) bool {
	for _, e := range events {
		if e.Kind == kind && (kind == EventGameOver || e.Snake == snake) {
			return true
		}
	}
	return false
}
