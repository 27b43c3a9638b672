package rules

import (
	"github.com/brensch/gunsnake/game"
)

// MaxQueuedInputs bounds how far ahead a player can buffer turns.
const MaxQueuedInputs = 3

// InputQueue buffers a player's turns between ticks so quick double taps
// are not lost. The zero value is an empty queue.
type InputQueue struct {
	dirs []game.Direction
}

// Push queues d unless the queue is full, d repeats the last queued
// direction, or d reverses it. It reports whether d was queued.
func (q *InputQueue) Push(d game.Direction) bool {
	if !d.Valid() || len(q.dirs) >= MaxQueuedInputs {
		return false
	}
	if n := len(q.dirs); n > 0 {
		last := q.dirs[n-1]
		if d == last || d == last.Opposite() {
			return false
		}
	}
	q.dirs = append(q.dirs, d)
	return true
}

// Pop removes the oldest direction. An empty queue yields Straight.
func (q *InputQueue) Pop() game.Direction {
	if len(q.dirs) == 0 {
		return game.Straight
	}
	d := q.dirs[0]
	q.dirs = q.dirs[1:]
	return d
}

func (q *InputQueue) Len() int { return len(q.dirs) }

func (q *InputQueue) Clear() { q.dirs = q.dirs[:0] }

// Peek returns a copy of the queued directions, oldest first.
func (q *InputQueue) Peek() []game.Direction {
	out := make([]game.Direction, len(q.dirs))
	copy(out, q.dirs)
	return out
}
