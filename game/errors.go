package game

import (
	"errors"
	"fmt"
)

var (
	// ErrOutOfBounds is returned by the public accessors for coordinates
	// outside the board.
	ErrOutOfBounds = errors.New("position out of bounds")

	// ErrNoSpace means a spawn found no eligible cell. It is expected and
	// callers simply skip the spawn.
	ErrNoSpace = errors.New("no space to spawn")

	// ErrNotEnoughInputs means the caller passed fewer inputs than there are
	// snake ids on the board.
	ErrNotEnoughInputs = errors.New("not enough inputs")

	ErrSnakeTooShort         = errors.New("snake too short to have a direction")
	ErrHeadNotAttachedToNeck = errors.New("head not attached to neck")
	ErrMalformedParts        = errors.New("snake parts are not contiguous")

	ErrInvalidSettings = errors.New("invalid board settings")
)

// SnakeError reports a consistency violation for one snake.
type SnakeError struct {
	ID  uint8
	Err error
}

func (e *SnakeError) Error() string {
	return fmt.Sprintf("snake %d: %v", e.ID, e.Err)
}

func (e *SnakeError) Unwrap() error { return e.Err }

// IsFatal reports whether err means the round can no longer continue: either
// the caller broke the tick contract or the grid is corrupted.
func IsFatal(err error) bool {
	return errors.Is(err, ErrNotEnoughInputs) ||
		errors.Is(err, ErrSnakeTooShort) ||
		errors.Is(err, ErrHeadNotAttachedToNeck) ||
		errors.Is(err, ErrMalformedParts)
}
