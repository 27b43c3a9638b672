package rules

import (
	"github.com/brensch/gunsnake/game"
)

// SafeMoves returns the directions that do not damage snake id on the next
// tick if every other snake stood still. Moving onto its own tail is allowed
// since the tail vacates. The reverse move is never included.
func SafeMoves(board *game.Board, id uint8) []game.Direction {
	you, ok, err := board.Snake(id)
	if err != nil || !ok || you.Len() < 2 {
		return nil
	}
	facing, err := you.Dir()
	if err != nil {
		return nil
	}

	var moves []game.Direction
	for _, d := range game.AllDirections {
		if d == facing.Opposite() {
			continue
		}
		if isSafe(board, you, you.Head().Add(d.Vec())) {
			moves = append(moves, d)
		}
	}
	return moves
}

func isSafe(board *game.Board, you game.Snake, p game.Point) bool {
	c, err := board.Get(p)
	if err != nil {
		return false
	}
	if c.Passable() {
		return true
	}
	return c.IsTailOf(you.ID)
}

// IsGameOver reports whether a round with the given number of players is
// finished. A solo round ends when its snake is gone; a multiplayer round
// ends once at most one snake is left.
func IsGameOver(board *game.Board, players int) bool {
	alive := len(board.SnakeIDs())
	if players <= 1 {
		return alive == 0
	}
	return alive <= 1
}

// IsTerminal reports whether snake id can no longer move safely, or is
// already gone.
func IsTerminal(board *game.Board, id uint8) bool {
	return len(SafeMoves(board, id)) == 0
}

// Winner returns the last snake standing of a finished multiplayer round.
func Winner(board *game.Board) (uint8, bool) {
	ids := board.SnakeIDs()
	if len(ids) != 1 {
		return 0, false
	}
	return ids[0], true
}
