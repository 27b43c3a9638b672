package rules

import (
	"github.com/brensch/gunsnake/game"
)

// soloBaseLength is the starting length subtracted from a solo score.
const soloBaseLength = 4

// Scores holds one point total per player slot.
type Scores []int

// NewScores returns zeroed scores for players slots.
func NewScores(players int) Scores {
	return make(Scores, players)
}

// Apply folds one tick's events into the scores. In a multiplayer round every
// snake still on the board gets a point for each other snake that took
// damage. A solo score tracks body growth and keeps its last value once the
// snake is gone.
func (s Scores) Apply(board *game.Board, events []game.Event) {
	if len(s) == 1 {
		if n := board.SnakeLen(0); n > 0 {
			s[0] = max(n-soloBaseLength, 0)
		}
		return
	}

	alive := board.SnakeIDs()
	for _, e := range events {
		if e.Kind != game.EventSnakeDamaged {
			continue
		}
		for _, id := range alive {
			if id != e.Snake && int(id) < len(s) {
				s[id]++
			}
		}
	}
}

// Leader returns the slot with the highest score, lowest slot on ties.
func (s Scores) Leader() int {
	best := 0
	for i, v := range s {
		if v > s[best] {
			best = i
		}
	}
	return best
}
