package rules

import (
	"slices"
	"testing"

	"github.com/brensch/gunsnake/game"
)

func mustParse(t *testing.T, rows ...string) *game.Board {
	t.Helper()
	b, err := game.ParseBoard(rows, 1)
	if err != nil {
		t.Fatalf("ParseBoard: %v", err)
	}
	return b
}

func TestSafeMoves(t *testing.T) {
	b := mustParse(t,
		".#...",
		"aA.o.",
		".b...",
		".B...",
	)
	t.Logf("Board:\n%s", b)
	got := SafeMoves(b, 0)
	want := []game.Direction{game.Right}
	if !slices.Equal(got, want) {
		t.Fatalf("SafeMoves=%v want %v (wall above, body below, neck behind)", got, want)
	}

	if got := SafeMoves(b, 5); got != nil {
		t.Fatalf("SafeMoves for a missing snake=%v want nil", got)
	}
}

func TestSafeMoves_OwnTailIsSafe(t *testing.T) {
	b := mustParse(t,
		"aA",
		"aa",
	)
	got := SafeMoves(b, 0)
	if !slices.Contains(got, game.Left) {
		t.Fatalf("SafeMoves=%v want the tail cell (left) to be safe", got)
	}
}

func TestIsGameOver(t *testing.T) {
	one := mustParse(t, "aA...")
	two := mustParse(t, "aA.bB")
	none := mustParse(t, ".....")

	if IsGameOver(one, 1) {
		t.Fatalf("solo round with a live snake is not over")
	}
	if !IsGameOver(none, 1) {
		t.Fatalf("solo round without a snake is over")
	}
	if IsGameOver(two, 2) {
		t.Fatalf("two live snakes is not over")
	}
	if !IsGameOver(one, 2) {
		t.Fatalf("one survivor ends a multiplayer round")
	}
	if w, ok := Winner(one); !ok || w != 0 {
		t.Fatalf("Winner=%d,%v want 0,true", w, ok)
	}
	if IsTerminal(one, 0) {
		t.Fatalf("snake with open space is not terminal")
	}
}

func TestScores_Multiplayer(t *testing.T) {
	b := mustParse(t,
		"aA.....",
		"bB.....",
		"cC.....",
	)
	s := NewScores(3)
	s.Apply(b, []game.Event{{Kind: game.EventSnakeDamaged, Snake: 3}})
	if !slices.Equal(s, Scores{1, 1, 1}) {
		t.Fatalf("scores=%v want [1 1 1]", s)
	}
	s.Apply(b, []game.Event{{Kind: game.EventSnakeDamaged, Snake: 1}, {Kind: game.EventAppleEaten, Snake: 0}})
	if !slices.Equal(s, Scores{2, 1, 2}) {
		t.Fatalf("scores=%v want [2 1 2]", s)
	}
	if s.Leader() != 0 {
		t.Fatalf("leader=%d want 0", s.Leader())
	}
}

func TestScores_Solo(t *testing.T) {
	b := mustParse(t, "aaaaaA.")
	s := NewScores(1)
	s.Apply(b, nil)
	if s[0] != 2 {
		t.Fatalf("score=%d want 2", s[0])
	}
	s.Apply(mustParse(t, "......."), []game.Event{{Kind: game.EventSnakeDamaged}})
	if s[0] != 2 {
		t.Fatalf("score after death=%d want 2 kept", s[0])
	}
}

func TestInputQueue(t *testing.T) {
	var q InputQueue
	if q.Pop() != game.Straight {
		t.Fatalf("empty queue must pop straight")
	}
	steps := []struct {
		d    game.Direction
		want bool
	}{
		{game.Up, true},
		{game.Up, false},
		{game.Down, false},
		{game.Left, true},
		{game.Straight, false},
		{game.Down, true},
		{game.Right, false},
	}
	for i, s := range steps {
		if got := q.Push(s.d); got != s.want {
			t.Fatalf("step %d: Push(%s)=%v want %v (queue %v)", i, s.d, got, s.want, q.Peek())
		}
	}
	if q.Len() != MaxQueuedInputs {
		t.Fatalf("len=%d want %d", q.Len(), MaxQueuedInputs)
	}
	for _, want := range []game.Direction{game.Up, game.Left, game.Down, game.Straight} {
		if got := q.Pop(); got != want {
			t.Fatalf("Pop=%s want %s", got, want)
		}
	}
	q.Push(game.Right)
	q.Clear()
	if q.Len() != 0 {
		t.Fatalf("Clear left %d entries", q.Len())
	}
}
