package game

import (
	"errors"
	"slices"
	"testing"
)

func spawnableSet(b *Board) map[Point]bool {
	out := make(map[Point]bool)
	for _, p := range b.Spawnable() {
		out[p] = true
	}
	return out
}

func TestSpawnable_CornerNeighboursExcluded(t *testing.T) {
	b := NewEmpty(10, 9, 1)
	got := spawnableSet(b)

	for _, p := range []Point{{X: 0, Y: 1}, {X: 1, Y: 0}, {X: 9, Y: 1}, {X: 8, Y: 0}, {X: 0, Y: 7}, {X: 1, Y: 8}, {X: 9, Y: 7}, {X: 8, Y: 8}} {
		if got[p] {
			t.Fatalf("%v next to a corner should be excluded", p)
		}
	}
	for _, p := range []Point{{X: 0, Y: 0}, {X: 9, Y: 8}, {X: 4, Y: 4}, {X: 0, Y: 4}} {
		if !got[p] {
			t.Fatalf("%v should be spawnable", p)
		}
	}
	if len(got) != 10*9-8 {
		t.Fatalf("spawnable=%d want %d", len(got), 10*9-8)
	}
}

func TestSpawnable_HeadBuffer(t *testing.T) {
	b := mustParse(t,
		"..........",
		"..........",
		"..........",
		"..........",
		"...aA.....",
		"..........",
		"..........",
		"..........",
		"..........",
	)
	got := spawnableSet(b)
	head := Point{X: 4, Y: 4}
	for _, off := range []Point{{X: 2, Y: 0}, {X: 2, Y: 2}, {X: -2, Y: 1}, {X: 0, Y: -2}, {X: 1, Y: 1}} {
		if got[head.Add(off)] {
			t.Fatalf("%v is inside the head buffer", head.Add(off))
		}
	}
	for _, off := range []Point{{X: 3, Y: 0}, {X: 0, Y: 3}, {X: 3, Y: 2}} {
		if !got[head.Add(off)] {
			t.Fatalf("%v is outside the head buffer", head.Add(off))
		}
	}
}

func TestSpawnable_WallSpacing(t *testing.T) {
	b := NewEmpty(10, 9, 1)
	_ = b.Set(Point{X: 5, Y: 5}, WallCell())
	_ = b.Set(Point{X: 0, Y: 4}, WallCell())
	got := spawnableSet(b)

	for dy := -1; dy <= 1; dy++ {
		for dx := -1; dx <= 1; dx++ {
			if p := (Point{X: 5 + dx, Y: 5 + dy}); got[p] {
				t.Fatalf("%v touches a wall", p)
			}
		}
	}
	if !got[Point{X: 7, Y: 5}] {
		t.Fatalf("(7,5) should be spawnable")
	}

	for _, p := range []Point{{X: 0, Y: 6}, {X: 0, Y: 2}} {
		if got[p] {
			t.Fatalf("%v is two cells along the border from a wall", p)
		}
	}
	if got[Point{X: 0, Y: 7}] {
		t.Fatalf("(0,7) should be excluded as a corner neighbour")
	}
	if !got[Point{X: 2, Y: 4}] {
		t.Fatalf("(2,4) is off the border and should be spawnable")
	}
}

func TestSpawnable_CornerPairs(t *testing.T) {
	b := NewEmpty(10, 9, 1)
	_ = b.Set(Point{X: 0, Y: 2}, WallCell())
	_ = b.Set(Point{X: 9, Y: 6}, WallCell())
	got := spawnableSet(b)
	if got[Point{X: 2, Y: 0}] {
		t.Fatalf("(2,0) pairs with the wall at (0,2)")
	}
	if got[Point{X: 7, Y: 8}] {
		t.Fatalf("(7,8) pairs with the wall at (9,6)")
	}
}

func TestSpawnable_DoesNotMutate(t *testing.T) {
	b, err := New(BoardSettings{Size: Medium, Apples: ThreeApples, Players: 2, Walls: true}, 3)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	_ = b.Set(Point{X: 8, Y: 3}, WallCell())
	before := b.Clone()
	first := b.Spawnable()
	second := b.Spawnable()
	if !slices.Equal(first, second) {
		t.Fatalf("Spawnable is not repeatable")
	}
	if !b.Equal(before) {
		t.Fatalf("Spawnable changed the board")
	}
}

func TestSpawnWall_FullBoard(t *testing.T) {
	b := NewEmpty(4, 4, 1)
	for p := range b.All() {
		_ = b.Set(p, AppleCell(true))
	}
	before := b.Clone()
	if _, err := b.SpawnWall(); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("SpawnWall err=%v want ErrNoSpace", err)
	}
	if _, err := b.SpawnApple(); !errors.Is(err, ErrNoSpace) {
		t.Fatalf("SpawnApple err=%v want ErrNoSpace", err)
	}
	if !b.Equal(before) {
		t.Fatalf("board changed on a failed spawn")
	}
}

func TestSpawnWall_LandsOnSpawnable(t *testing.T) {
	for seed := range uint64(50) {
		b, err := New(BoardSettings{Size: Small, Apples: FiveApples, Players: 4, Walls: true}, seed)
		if err != nil {
			t.Fatalf("New: %v", err)
		}
		allowed := spawnableSet(b)
		p, err := b.SpawnWall()
		if err != nil {
			t.Fatalf("seed %d: SpawnWall: %v", seed, err)
		}
		if !allowed[p] {
			t.Fatalf("seed %d: wall at %v is not spawnable\n%s", seed, p, b)
		}
	}
}
