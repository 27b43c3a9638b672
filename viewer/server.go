// Package viewer serves a running session over HTTP: board JSON, an HTML
// board page, remote input, the AI overlays and a websocket stream of
// frames. Recorded games can be browsed when a recording directory is set.
package viewer

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/gorilla/websocket"

	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/search"
	"github.com/brensch/gunsnake/session"
	"github.com/brensch/gunsnake/store"
)

// Server holds shared state for the handlers.
type Server struct {
	sess      *session.Session
	recordDir string
	logger    *slog.Logger
	upgrader  websocket.Upgrader
}

// NewServer serves sess. recordDir may be empty, which disables the
// /api/games endpoints.
func NewServer(sess *session.Session, recordDir string, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		sess:      sess,
		recordDir: recordDir,
		logger:    logger.With("component", "viewer"),
		upgrader:  websocket.Upgrader{CheckOrigin: func(r *http.Request) bool { return true }},
	}
}

// RegisterRoutes sets up every route on mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/", s.handleIndex)
	mux.HandleFunc("/api/board", s.handleBoard)
	mux.HandleFunc("/api/input", s.handleInput)
	mux.HandleFunc("/api/reset", s.handleReset)
	mux.HandleFunc("/api/overlay", s.handleOverlay)
	mux.HandleFunc("/api/points", s.handlePoints)
	mux.HandleFunc("/api/ws", s.handleWS)
	mux.HandleFunc("/api/games", s.handleGames)
	mux.HandleFunc("/api/games/", s.handleGame)
}

func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return mux
}

func (s *Server) handleIndex(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if !allow(w, r, http.MethodGet) {
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	if err := RenderFrameHTML(w, s.sess.Snapshot()); err != nil {
		s.logger.Error("render board page", "err", err)
	}
}

func (s *Server) handleBoard(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	writeJSON(w, s.sess.Snapshot())
}

// InputRequest is the body of POST /api/input and of websocket messages.
type InputRequest struct {
	Player    int    `json:"player"`
	Direction string `json:"direction"`
}

func (r InputRequest) direction() (game.Direction, error) {
	d, err := game.ParseDirection(r.Direction)
	if err != nil {
		return game.Straight, err
	}
	if !d.Valid() {
		return game.Straight, fmt.Errorf("direction is required")
	}
	return d, nil
}

type InputResponse struct {
	Accepted bool `json:"accepted"`
}

func (s *Server) handleInput(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	var req InputRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "bad input: "+err.Error(), http.StatusBadRequest)
		return
	}
	dir, err := req.direction()
	if err != nil {
		http.Error(w, "bad input: "+err.Error(), http.StatusBadRequest)
		return
	}
	ok, err := s.sess.Input(req.Player, dir)
	switch {
	case errors.Is(err, session.ErrUnknownPlayer):
		http.Error(w, err.Error(), http.StatusNotFound)
		return
	case errors.Is(err, session.ErrRoundOver):
		http.Error(w, err.Error(), http.StatusConflict)
		return
	case err != nil:
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, InputResponse{Accepted: ok})
}

func (s *Server) handleReset(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodPost) {
		return
	}
	if err := s.sess.Reset(); err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, s.sess.Snapshot())
}

// handleOverlay returns every AI overlay, or one with ?snake=N.
func (s *Server) handleOverlay(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	overlays := s.sess.Overlays()
	if id := parseIntQuery(r, "snake", -1); id >= 0 {
		o, ok := overlays.Get(uint8(id))
		if !ok {
			http.NotFound(w, r)
			return
		}
		writeJSON(w, o)
		return
	}
	all := overlays.All()
	if all == nil {
		all = []search.Overlay{}
	}
	writeJSON(w, all)
}

type PointsResponse struct {
	GameID string `json:"game_id"`
	Round  int    `json:"round"`
	Scores []int  `json:"scores"`
	Leader int    `json:"leader"`
}

func (s *Server) handlePoints(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	f := s.sess.Snapshot()
	leader := 0
	for i, v := range f.Scores {
		if v > f.Scores[leader] {
			leader = i
		}
	}
	writeJSON(w, PointsResponse{GameID: f.GameID, Round: f.Round, Scores: f.Scores, Leader: leader})
}

func (s *Server) handleGames(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if s.recordDir == "" {
		http.Error(w, "recording is disabled", http.StatusNotFound)
		return
	}
	games, err := store.ListGames(s.recordDir)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	offset := min(parseIntQuery(r, "offset", 0), len(games))
	limit := min(parseIntQuery(r, "limit", len(games)), len(games)-offset)
	writeJSON(w, games[offset:offset+limit])
}

// ReplayFrame is one recorded tick as served by /api/games/{id}.
type ReplayFrame struct {
	Round  int              `json:"round"`
	Tick   int              `json:"tick"`
	Board  *game.Board      `json:"board"`
	Inputs []game.Direction `json:"inputs"`
	Events []game.Event     `json:"events"`
	Scores []int32          `json:"scores"`
}

func (s *Server) handleGame(w http.ResponseWriter, r *http.Request) {
	if !allow(w, r, http.MethodGet) {
		return
	}
	if s.recordDir == "" {
		http.Error(w, "recording is disabled", http.StatusNotFound)
		return
	}
	gameID, err := url.PathUnescape(strings.TrimPrefix(r.URL.Path, "/api/games/"))
	if err != nil || gameID == "" || strings.Contains(gameID, "/") {
		http.Error(w, "bad game id", http.StatusBadRequest)
		return
	}
	rows, err := store.ReadGame(s.recordDir, gameID)
	if errors.Is(err, store.ErrGameNotFound) {
		http.NotFound(w, r)
		return
	}
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	frames, err := ReplayFrames(rows)
	if err != nil {
		http.Error(w, err.Error(), http.StatusInternalServerError)
		return
	}
	writeJSON(w, frames)
}

// ReplayFrames decodes recorded rows.
func ReplayFrames(rows []store.TickRow) ([]ReplayFrame, error) {
	out := make([]ReplayFrame, 0, len(rows))
	for _, row := range rows {
		b, err := row.Board(uint64(row.TimeMs))
		if err != nil {
			return nil, err
		}
		events, err := row.GameEvents()
		if err != nil {
			return nil, err
		}
		out = append(out, ReplayFrame{
			Round:  int(row.Round),
			Tick:   int(row.Tick),
			Board:  b,
			Inputs: row.Directions(),
			Events: events,
			Scores: row.Scores,
		})
	}
	return out, nil
}
