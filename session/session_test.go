package session

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/brensch/gunsnake/config"
	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/logging"
	"github.com/brensch/gunsnake/store"
)

type memRecorder struct {
	mu    sync.Mutex
	games [][]store.TickRow
}

func (m *memRecorder) WriteGame(rows []store.TickRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.games = append(m.games, append([]store.TickRow(nil), rows...))
	return nil
}

func soloSettings() config.Settings {
	s := config.Default()
	s.TickRate = 0
	s.Seed = 42
	return s
}

func newSession(t *testing.T, settings config.Settings, opts ...Option) *Session {
	t.Helper()
	opts = append([]Option{WithLogger(logging.Discard())}, opts...)
	s, err := New(settings, opts...)
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	return s
}

func head(t *testing.T, b *game.Board, id uint8) game.Point {
	t.Helper()
	sn, ok, err := b.Snake(id)
	if err != nil || !ok {
		t.Fatalf("snake %d missing: ok=%v err=%v\n%s", id, ok, err, b)
	}
	return sn.Head()
}

func TestSession_InputQueue(t *testing.T) {
	s := newSession(t, soloSettings())

	if ok, err := s.Input(0, game.Up); !ok || err != nil {
		t.Fatalf("Input(Up)=%v,%v", ok, err)
	}
	if ok, _ := s.Input(0, game.Up); ok {
		t.Fatalf("repeated direction should be rejected")
	}
	if ok, _ := s.Input(0, game.Down); ok {
		t.Fatalf("reverse of the last queued direction should be rejected")
	}
	if !s.ShouldTick() {
		t.Fatalf("queued input should make the session want a tick")
	}

	f, err := s.Step(context.Background())
	if err != nil {
		t.Fatalf("Step: %v", err)
	}
	if f.Tick != 1 || head(t, f.Board, 0) != (game.Point{X: 3, Y: 5}) {
		t.Fatalf("tick=%d board:\n%s", f.Tick, f.Board)
	}
	if s.ShouldTick() {
		t.Fatalf("queue should be drained")
	}

	if _, err := s.Input(1, game.Up); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err=%v want ErrUnknownPlayer", err)
	}
}

func TestSession_AIPlayerRejectsInput(t *testing.T) {
	settings := soloSettings()
	settings.AIPlayers = []int{0}
	s := newSession(t, settings)
	if _, err := s.Input(0, game.Up); !errors.Is(err, ErrUnknownPlayer) {
		t.Fatalf("err=%v want ErrUnknownPlayer", err)
	}
	if err := s.Run(context.Background()); err == nil {
		t.Fatalf("tick-on-input without humans should refuse to run")
	}
}

func TestSession_SoloRoundRecorded(t *testing.T) {
	rec := &memRecorder{}
	s := newSession(t, soloSettings(), WithRecorder(rec))
	first := s.Snapshot()

	// Straight ahead: eat the apple at (7,4), then run off the right edge.
	var f Frame
	var err error
	for i := 0; i < 20; i++ {
		f, err = s.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d: %v", i, err)
		}
		if f.State == GameOver {
			break
		}
	}
	if f.State != GameOver || f.Tick != 7 {
		t.Fatalf("state=%s tick=%d, want game over at tick 7", f.State, f.Tick)
	}
	if !game.HasEvent(f.Events, game.EventGameOver, 0) || !game.HasEvent(f.Events, game.EventSnakeDamaged, 0) {
		t.Fatalf("events=%v", f.Events)
	}
	if f.Scores[0] < 1 {
		t.Fatalf("solo score=%d, want at least one apple", f.Scores[0])
	}
	if _, err := s.Step(context.Background()); !errors.Is(err, ErrRoundOver) {
		t.Fatalf("err=%v want ErrRoundOver", err)
	}
	if _, err := s.Input(0, game.Up); !errors.Is(err, ErrRoundOver) {
		t.Fatalf("err=%v want ErrRoundOver", err)
	}

	if len(rec.games) != 1 {
		t.Fatalf("recorded %d games, want 1", len(rec.games))
	}
	rows := rec.games[0]
	if len(rows) != 8 {
		t.Fatalf("recorded %d rows, want 8", len(rows))
	}
	for i, row := range rows {
		if row.GameID != first.GameID || int(row.Tick) != i || row.Round != 1 || row.Source != "play" {
			t.Fatalf("row %d: %+v", i, row)
		}
	}
	b, err := rows[0].Board(1)
	if err != nil || !b.Equal(first.Board) {
		t.Fatalf("first row is not the starting board: %v", err)
	}

	if err := s.Reset(); err != nil {
		t.Fatalf("Reset: %v", err)
	}
	next := s.Snapshot()
	if next.GameID == first.GameID || next.Round != 2 || next.State != Playing || next.Tick != 0 {
		t.Fatalf("after reset: %+v", next)
	}
}

func TestSession_FatalTickEndsRound(t *testing.T) {
	var buf bytes.Buffer
	logger, _ := logging.New(&buf, "json", 0)
	s := newSession(t, soloSettings(), WithLogger(logger))

	// Punch a hole in the body so the parts are no longer contiguous.
	_ = s.board.Set(game.Point{X: 1, Y: 4}, game.EmptyCell())

	_, err := s.Step(context.Background())
	if !errors.Is(err, game.ErrMalformedParts) {
		t.Fatalf("err=%v want ErrMalformedParts", err)
	}
	if s.State() != GameOver {
		t.Fatalf("state=%s want game over", s.State())
	}
	if out := buf.String(); !strings.Contains(out, "tick failed") || !strings.Contains(out, `"board":`) {
		t.Fatalf("log missing board dump:\n%s", out)
	}
}

func TestSession_AIPlayers(t *testing.T) {
	settings := config.Default()
	settings.Board = game.BoardSettings{Size: game.Medium, Apples: game.ThreeApples, Players: 2, Walls: true}
	settings.AIPlayers = []int{0, 1}
	settings.Search.Budget = 2 * time.Millisecond
	settings.Seed = 7
	s := newSession(t, settings)

	for i := 0; i < 40 && s.State() == Playing; i++ {
		f, err := s.Step(context.Background())
		if err != nil {
			t.Fatalf("Step %d: %v\n%s", i, err, f.Board)
		}
	}
	for _, id := range []uint8{0, 1} {
		if _, ok := s.Overlays().Get(id); !ok {
			t.Fatalf("no overlay for ai %d", id)
		}
	}
}

func TestSession_Subscribe(t *testing.T) {
	s := newSession(t, soloSettings())
	frames, cancel := s.Subscribe()
	defer cancel()

	if _, err := s.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	select {
	case f := <-frames:
		if f.Tick != 1 {
			t.Fatalf("frame tick=%d want 1", f.Tick)
		}
		// The frame owns its board.
		_ = f.Board.Set(game.Point{X: 0, Y: 0}, game.WallCell())
		if c, _ := s.Snapshot().Board.Get(game.Point{X: 0, Y: 0}); c.IsWall() {
			t.Fatalf("frame board aliases the session board")
		}
	case <-time.After(time.Second):
		t.Fatalf("no frame published")
	}

	cancel()
	if _, ok := <-frames; ok {
		t.Fatalf("channel should be closed after cancel")
	}
}

func TestSession_RunOnInput(t *testing.T) {
	s := newSession(t, soloSettings())
	frames, cancel := s.Subscribe()
	defer cancel()

	ctx, stop := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	if ok, err := s.Input(0, game.Down); !ok || err != nil {
		t.Fatalf("Input=%v,%v", ok, err)
	}
	select {
	case f := <-frames:
		if f.Tick != 1 || head(t, f.Board, 0) != (game.Point{X: 3, Y: 3}) {
			t.Fatalf("tick=%d board:\n%s", f.Tick, f.Board)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("input did not trigger a tick")
	}

	stop()
	if err := <-done; !errors.Is(err, context.Canceled) {
		t.Fatalf("Run=%v want context.Canceled", err)
	}
}

func TestSession_RunClockAutoReset(t *testing.T) {
	settings := config.Default()
	settings.AIPlayers = []int{0}
	settings.TickRate = 500
	settings.Search.Budget = time.Millisecond
	settings.Seed = 3
	s := newSession(t, settings, WithAutoReset(time.Millisecond))

	// Put a wall right in front of the snake so the first round ends fast.
	_ = s.board.Set(game.Point{X: 4, Y: 4}, game.WallCell())
	_ = s.board.Set(game.Point{X: 3, Y: 5}, game.WallCell())
	_ = s.board.Set(game.Point{X: 3, Y: 3}, game.WallCell())

	ctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
	defer cancel()
	if err := s.Run(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Run=%v", err)
	}
	if f := s.Snapshot(); f.Round < 2 {
		t.Fatalf("round=%d, want an automatic reset after the boxed-in round", f.Round)
	}
}
