// Package session runs rounds: it owns the authoritative board, collects
// player and AI inputs, ticks, keeps score and publishes a snapshot after
// every tick.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/brensch/gunsnake/config"
	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/logging"
	"github.com/brensch/gunsnake/rules"
	"github.com/brensch/gunsnake/search"
	"github.com/brensch/gunsnake/store"
)

var (
	ErrUnknownPlayer = errors.New("unknown player")
	ErrRoundOver     = errors.New("round is over")
)

type State uint8

const (
	Playing State = iota
	GameOver
)

func (s State) String() string {
	if s == GameOver {
		return "game_over"
	}
	return "playing"
}

func (s State) MarshalText() ([]byte, error) { return []byte(s.String()), nil }

// Frame is the published picture of a session after a tick. Board is a
// private clone and may be read freely.
type Frame struct {
	GameID string       `json:"game_id"`
	Round  int          `json:"round"`
	Tick   int          `json:"tick"`
	State  State        `json:"state"`
	Board  *game.Board  `json:"board"`
	Events []game.Event `json:"events"`
	Scores []int        `json:"scores"`
}

// Recorder receives the rows of every finished round.
type Recorder interface {
	WriteGame(rows []store.TickRow) error
}

type Option func(*Session)

func WithLogger(l *slog.Logger) Option { return func(s *Session) { s.logger = l } }

func WithRecorder(r Recorder) Option { return func(s *Session) { s.recorder = r } }

// WithSource tags recorded rows, for example "play" or "selfplay".
func WithSource(src string) Option { return func(s *Session) { s.source = src } }

// WithAutoReset makes Run start a new round d after a round ends.
func WithAutoReset(d time.Duration) Option { return func(s *Session) { s.autoReset = d } }

// Session is safe for concurrent use. Step holds the lock for the whole
// tick, including AI searches, so readers only ever observe whole ticks.
type Session struct {
	mu sync.Mutex

	settings config.Settings
	logger   *slog.Logger
	recorder Recorder
	source   string

	autoReset time.Duration
	endedAt   time.Time

	rng      *rand.Rand
	board    *game.Board
	queues   []rules.InputQueue
	ais      map[int]search.Chooser
	overlays *search.LastOverlay
	scores   rules.Scores
	state    State
	gameID   string
	round    int
	tick     int
	events   []game.Event
	rows     []store.TickRow

	wake chan struct{}

	subMu   sync.Mutex
	subs    map[int]chan Frame
	nextSub int
}

func New(settings config.Settings, opts ...Option) (*Session, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	seed := settings.Seed
	if seed == 0 {
		seed = rand.Uint64()
	}
	s := &Session{
		settings: settings,
		logger:   slog.Default(),
		source:   "play",
		rng:      rand.New(rand.NewPCG(seed, seed^0x2545f4914f6cdd1d)),
		overlays: &search.LastOverlay{},
		wake:     make(chan struct{}, 1),
		subs:     make(map[int]chan Frame),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "session")
	if err := s.Reset(); err != nil {
		return nil, err
	}
	return s, nil
}

// Reset finishes the current round, recording it, and starts a new one with
// a fresh board and game id.
func (s *Session) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.resetLocked()
}

func (s *Session) resetLocked() error {
	s.flushLocked()

	board, err := game.New(s.settings.Board, s.rng.Uint64())
	if err != nil {
		return fmt.Errorf("new board: %w", err)
	}
	players := int(s.settings.Board.Players)

	s.board = board
	s.queues = make([]rules.InputQueue, players)
	s.scores = rules.NewScores(players)
	s.ais = make(map[int]search.Chooser, len(s.settings.AIPlayers))
	for _, slot := range s.settings.AIPlayers {
		cfg := s.settings.Search
		cfg.Snake = uint8(slot)
		cfg.Seed = s.rng.Uint64()
		tree := search.NewTreeSearch(cfg)
		tree.Sink = s.overlays
		s.ais[slot] = search.Fallback{tree, search.NewRandomWalk(uint8(slot), s.rng.Uint64())}
	}
	s.state = Playing
	s.gameID = uuid.NewString()
	s.round++
	s.tick = 0
	s.events = nil
	s.rows = s.rows[:0]
	s.record(nil)

	s.logger.Info("round started", "game_id", s.gameID, "round", s.round,
		"size", s.settings.Board.Size.String(), "players", players)
	s.publish(s.frameLocked())
	return nil
}

// Input queues a direction for a human player. It reports whether the
// direction was accepted by the queue.
func (s *Session) Input(player int, d game.Direction) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if player < 0 || player >= len(s.queues) || s.settings.IsAI(player) {
		return false, fmt.Errorf("%w: %d", ErrUnknownPlayer, player)
	}
	if s.state == GameOver {
		return false, ErrRoundOver
	}
	ok := s.queues[player].Push(d)
	if ok {
		select {
		case s.wake <- struct{}{}:
		default:
		}
	}
	return ok, nil
}

// Step advances the round by one tick.
func (s *Session) Step(ctx context.Context) (Frame, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == GameOver {
		return s.frameLocked(), ErrRoundOver
	}

	inputs := s.collectInputs(ctx)
	events, err := s.board.Tick(inputs)
	if err != nil {
		if game.IsFatal(err) {
			s.logger.Error("tick failed, ending round", "game_id", s.gameID, "round", s.round,
				"tick", s.tick, logging.Board(s.board), "err", err)
			s.endLocked()
			s.publish(s.frameLocked())
		}
		return s.frameLocked(), err
	}

	s.tick++
	s.events = events
	s.scores.Apply(s.board, events)
	s.record(inputs)

	for _, e := range events {
		if e.Kind == game.EventSnakeDamaged {
			s.logger.Debug("snake damaged", "game_id", s.gameID, "snake", e.Snake, "tick", s.tick)
		}
	}
	if game.HasEvent(events, game.EventGameOver, 0) || rules.IsGameOver(s.board, len(s.queues)) {
		s.endLocked()
	}

	f := s.frameLocked()
	s.publish(f)
	return f, nil
}

// collectInputs pops one queued direction per human and asks every AI.
func (s *Session) collectInputs(ctx context.Context) []game.Direction {
	inputs := make([]game.Direction, len(s.queues))
	for slot := range inputs {
		ai, ok := s.ais[slot]
		if !ok {
			inputs[slot] = s.queues[slot].Pop()
			continue
		}
		dir, err := ai.Choose(ctx, s.board)
		if err != nil {
			if !errors.Is(err, search.ErrNoSnake) {
				s.logger.Debug("ai has no move", "snake", slot, "err", err)
			}
			dir = game.Straight
		}
		inputs[slot] = dir
	}
	return inputs
}

func (s *Session) endLocked() {
	s.state = GameOver
	s.endedAt = time.Now()
	attrs := []any{"game_id", s.gameID, "round", s.round, "ticks", s.tick, "scores", []int(s.scores)}
	if id, ok := rules.Winner(s.board); ok && len(s.queues) > 1 {
		attrs = append(attrs, "winner", id)
	}
	s.logger.Info("round over", attrs...)
	s.flushLocked()
}

func (s *Session) record(inputs []game.Direction) {
	if s.recorder == nil {
		return
	}
	s.rows = append(s.rows, store.NewTickRow(store.Snapshot{
		GameID: s.gameID,
		Round:  s.round,
		Tick:   s.tick,
		TimeMs: time.Now().UnixMilli(),
		Board:  s.board,
		Inputs: inputs,
		Events: s.events,
		Scores: s.scores,
		Source: s.source,
	}))
}

func (s *Session) flushLocked() {
	if s.recorder == nil || len(s.rows) == 0 {
		return
	}
	if err := s.recorder.WriteGame(s.rows); err != nil {
		s.logger.Error("record round", "game_id", s.gameID, "err", err)
	}
	s.rows = nil
}

// Close records the round in progress.
func (s *Session) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.flushLocked()
}

// ShouldTick reports whether a tick-on-input session has something to do.
func (s *Session) ShouldTick() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != Playing {
		return false
	}
	for slot := range s.queues {
		if !s.settings.IsAI(slot) && s.queues[slot].Len() > 0 {
			return true
		}
	}
	return false
}

// Run ticks until ctx is done. With a positive tick rate it ticks on a fixed
// clock; otherwise it ticks whenever a human player queues input.
func (s *Session) Run(ctx context.Context) error {
	if s.settings.TickRate <= 0 {
		if len(s.settings.AIPlayers) >= int(s.settings.Board.Players) {
			return fmt.Errorf("tick-on-input needs at least one human player")
		}
		return s.runOnInput(ctx)
	}

	interval := time.Duration(float64(time.Second) / s.settings.TickRate)
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.advance(ctx)
		}
	}
}

func (s *Session) runOnInput(ctx context.Context) error {
	var reset <-chan time.Time
	for {
		if s.State() == GameOver && s.autoReset > 0 && reset == nil {
			reset = time.After(s.autoReset)
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-reset:
			reset = nil
			s.advance(ctx)
		case <-s.wake:
			for s.ShouldTick() {
				if _, err := s.Step(ctx); err != nil {
					break
				}
			}
		}
	}
}

// advance runs one clock beat: a tick while playing, or the auto reset once
// it is due.
func (s *Session) advance(ctx context.Context) {
	if s.State() == GameOver {
		s.mu.Lock()
		due := s.autoReset > 0 && time.Since(s.endedAt) >= s.autoReset
		var err error
		if due {
			err = s.resetLocked()
		}
		s.mu.Unlock()
		if err != nil {
			s.logger.Error("reset failed", "err", err)
		}
		return
	}
	if _, err := s.Step(ctx); err != nil && !errors.Is(err, ErrRoundOver) {
		s.logger.Warn("step", "err", err)
	}
}

func (s *Session) State() State {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

func (s *Session) Settings() config.Settings { return s.settings }

// Overlays holds the latest search overlay of every AI player.
func (s *Session) Overlays() *search.LastOverlay { return s.overlays }

func (s *Session) Snapshot() Frame {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.frameLocked()
}

func (s *Session) frameLocked() Frame {
	return Frame{
		GameID: s.gameID,
		Round:  s.round,
		Tick:   s.tick,
		State:  s.state,
		Board:  s.board.Clone(),
		Events: append([]game.Event(nil), s.events...),
		Scores: append([]int(nil), s.scores...),
	}
}

// Subscribe returns a channel of frames and a function that cancels the
// subscription. Slow subscribers miss frames rather than stall the loop.
func (s *Session) Subscribe() (<-chan Frame, func()) {
	ch := make(chan Frame, 16)
	s.subMu.Lock()
	id := s.nextSub
	s.nextSub++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(f Frame) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	for _, ch := range s.subs {
		select {
		case ch <- f:
		default:
		}
	}
}
