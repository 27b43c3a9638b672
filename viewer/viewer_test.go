package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gorilla/websocket"

	"github.com/brensch/gunsnake/config"
	"github.com/brensch/gunsnake/game"
	"github.com/brensch/gunsnake/logging"
	"github.com/brensch/gunsnake/search"
	"github.com/brensch/gunsnake/session"
	"github.com/brensch/gunsnake/store"
)

type frameJSON struct {
	GameID string     `json:"game_id"`
	Round  int        `json:"round"`
	Tick   int        `json:"tick"`
	State  string     `json:"state"`
	Board  game.Board `json:"board"`
	Scores []int      `json:"scores"`
}

func newSession(t *testing.T, opts ...session.Option) *session.Session {
	t.Helper()
	settings := config.Default()
	settings.TickRate = 0
	settings.Seed = 11
	opts = append([]session.Option{session.WithLogger(logging.Discard())}, opts...)
	sess, err := session.New(settings, opts...)
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	return sess
}

func serve(t *testing.T, sess *session.Session, recordDir string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(NewServer(sess, recordDir, logging.Discard()).Handler())
	t.Cleanup(srv.Close)
	return srv
}

func postInput(t *testing.T, base string, body string) *http.Response {
	t.Helper()
	resp, err := http.Post(base+"/api/input", "application/json", strings.NewReader(body))
	if err != nil {
		t.Fatalf("POST /api/input: %v", err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestBoardAndInput(t *testing.T) {
	sess := newSession(t)
	srv := serve(t, sess, "")

	resp, err := http.Get(srv.URL + "/api/board")
	if err != nil {
		t.Fatalf("GET /api/board: %v", err)
	}
	defer resp.Body.Close()
	var f frameJSON
	if err := json.NewDecoder(resp.Body).Decode(&f); err != nil {
		t.Fatalf("decode board: %v", err)
	}
	if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
		t.Fatalf("missing CORS header")
	}
	if f.State != "playing" || f.Round != 1 || !f.Board.Equal(sess.Snapshot().Board) {
		t.Fatalf("frame=%+v board:\n%s", f, &f.Board)
	}

	var in InputResponse
	resp = postInput(t, srv.URL, `{"player":0,"direction":"up"}`)
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil || !in.Accepted {
		t.Fatalf("first input accepted=%v err=%v", in.Accepted, err)
	}
	resp = postInput(t, srv.URL, `{"player":0,"direction":"up"}`)
	if err := json.NewDecoder(resp.Body).Decode(&in); err != nil || in.Accepted {
		t.Fatalf("repeated input accepted=%v err=%v", in.Accepted, err)
	}
	if resp := postInput(t, srv.URL, `{"player":3,"direction":"up"}`); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown player status=%d", resp.StatusCode)
	}
	if resp := postInput(t, srv.URL, `{"player":0}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("missing direction status=%d", resp.StatusCode)
	}
	if resp := postInput(t, srv.URL, `{"player":0,"direction":"sideways"}`); resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("bad direction status=%d", resp.StatusCode)
	}

	resp, err = http.Get(srv.URL + "/api/input")
	if err != nil {
		t.Fatalf("GET /api/input: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusMethodNotAllowed {
		t.Fatalf("GET /api/input status=%d", resp.StatusCode)
	}
}

func TestIndexPage(t *testing.T) {
	sess := newSession(t)
	srv := serve(t, sess, "")
	if _, err := sess.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}

	resp, err := http.Get(srv.URL + "/")
	if err != nil {
		t.Fatalf("GET /: %v", err)
	}
	defer resp.Body.Close()
	var page bytes.Buffer
	if _, err := page.ReadFrom(resp.Body); err != nil {
		t.Fatalf("read page: %v", err)
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(page.Bytes()))
	if err != nil {
		t.Fatalf("goquery: %v", err)
	}
	if got := doc.Find("#status").AttrOr("data-tick", ""); got != "1" {
		t.Fatalf("status tick=%q want 1", got)
	}
	if n := doc.Find("td.snake-0").Length(); n != 4 {
		t.Fatalf("snake cells=%d want 4", n)
	}

	b, err := ParseBoardHTML(bytes.NewReader(page.Bytes()), 1)
	if err != nil {
		t.Fatalf("ParseBoardHTML: %v", err)
	}
	want := sess.Snapshot().Board
	if !b.Equal(want) || b.WallsEnabled() != want.WallsEnabled() {
		t.Fatalf("page board differs\nwant:\n%s\ngot:\n%s", want, b)
	}

	if _, err := ParseBoardHTML(strings.NewReader("<p>nothing</p>"), 1); err == nil {
		t.Fatalf("want error without a board table")
	}

	resp, err = http.Get(srv.URL + "/nope")
	if err != nil {
		t.Fatalf("GET /nope: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("unknown path status=%d", resp.StatusCode)
	}
}

func TestRenderFrameHTML_AllKinds(t *testing.T) {
	b, err := game.ParseBoard([]string{"#o*.", "aaA.", "..bB"}, 1)
	if err != nil {
		t.Fatalf("ParseBoard: %v", err)
	}
	var buf bytes.Buffer
	if err := RenderFrameHTML(&buf, session.Frame{Board: b, Scores: []int{0, 0}}); err != nil {
		t.Fatalf("RenderFrameHTML: %v", err)
	}
	got, err := ParseBoardHTML(&buf, 1)
	if err != nil {
		t.Fatalf("ParseBoardHTML: %v", err)
	}
	if !got.Equal(b) {
		t.Fatalf("round trip differs\nwant:\n%s\ngot:\n%s", b, got)
	}
}

func TestWebsocketStream(t *testing.T) {
	sess := newSession(t)
	srv := serve(t, sess, "")

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/api/ws"
	dialer := websocket.Dialer{HandshakeTimeout: time.Second}
	conn, _, err := dialer.Dial(url, nil)
	if err != nil {
		t.Fatalf("dial: %v", err)
	}
	defer conn.Close()
	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))

	var f frameJSON
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read first frame: %v", err)
	}
	if f.Tick != 0 {
		t.Fatalf("first frame tick=%d want 0", f.Tick)
	}

	// Inputs sent over the socket reach the player's queue.
	if err := conn.WriteJSON(InputRequest{Player: 0, Direction: "down"}); err != nil {
		t.Fatalf("write input: %v", err)
	}
	deadline := time.Now().Add(2 * time.Second)
	for !sess.ShouldTick() {
		if time.Now().After(deadline) {
			t.Fatalf("websocket input never queued")
		}
		time.Sleep(5 * time.Millisecond)
	}

	if _, err := sess.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	if err := conn.ReadJSON(&f); err != nil {
		t.Fatalf("read tick frame: %v", err)
	}
	sn, ok, err := f.Board.Snake(0)
	if f.Tick != 1 || !ok || err != nil || sn.Head() != (game.Point{X: 3, Y: 3}) {
		t.Fatalf("tick frame=%d board:\n%s", f.Tick, &f.Board)
	}
}

func TestOverlayAndPoints(t *testing.T) {
	settings := config.Default()
	settings.Board.Players = 2
	settings.AIPlayers = []int{1}
	settings.Search.Budget = 2 * time.Millisecond
	settings.Seed = 5
	sess, err := session.New(settings, session.WithLogger(logging.Discard()))
	if err != nil {
		t.Fatalf("session.New: %v", err)
	}
	srv := serve(t, sess, "")

	get := func(path string, v any) int {
		t.Helper()
		resp, err := http.Get(srv.URL + path)
		if err != nil {
			t.Fatalf("GET %s: %v", path, err)
		}
		defer resp.Body.Close()
		if resp.StatusCode == http.StatusOK && v != nil {
			if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
				t.Fatalf("decode %s: %v", path, err)
			}
		}
		return resp.StatusCode
	}

	var all []search.Overlay
	if code := get("/api/overlay", &all); code != http.StatusOK || len(all) != 0 {
		t.Fatalf("overlays before any search: code=%d %v", code, all)
	}
	if _, err := sess.Step(context.Background()); err != nil {
		t.Fatalf("Step: %v", err)
	}
	var one search.Overlay
	if code := get("/api/overlay?snake=1", &one); code != http.StatusOK || one.Snake != 1 || len(one.Paths) == 0 {
		t.Fatalf("overlay code=%d %+v", code, one)
	}
	if code := get("/api/overlay?snake=0", nil); code != http.StatusNotFound {
		t.Fatalf("human overlay code=%d", code)
	}

	var pts PointsResponse
	if code := get("/api/points", &pts); code != http.StatusOK || len(pts.Scores) != 2 || pts.Round != 1 {
		t.Fatalf("points code=%d %+v", code, pts)
	}
}

func TestRecordedGames(t *testing.T) {
	dir := t.TempDir()
	rec, err := store.NewRecorder(dir, 1, logging.Discard())
	if err != nil {
		t.Fatalf("NewRecorder: %v", err)
	}
	sess := newSession(t, session.WithRecorder(rec))
	gameID := sess.Snapshot().GameID
	for sess.State() == session.Playing {
		if _, err := sess.Step(context.Background()); err != nil {
			t.Fatalf("Step: %v", err)
		}
	}
	srv := serve(t, sess, dir)

	resp, err := http.Get(srv.URL + "/api/games")
	if err != nil {
		t.Fatalf("GET /api/games: %v", err)
	}
	var games []store.GameSummary
	err = json.NewDecoder(resp.Body).Decode(&games)
	resp.Body.Close()
	if err != nil || len(games) != 1 || games[0].GameID != gameID || games[0].Source != "play" {
		t.Fatalf("games=%+v err=%v", games, err)
	}

	for _, q := range []string{"?offset=1&limit=9223372036854775807", "?offset=5", "?limit=0"} {
		resp, err := http.Get(srv.URL + "/api/games" + q)
		if err != nil {
			t.Fatalf("GET /api/games%s: %v", q, err)
		}
		var page []store.GameSummary
		err = json.NewDecoder(resp.Body).Decode(&page)
		resp.Body.Close()
		if resp.StatusCode != http.StatusOK || err != nil || len(page) != 0 {
			t.Fatalf("%s: status=%d games=%v err=%v", q, resp.StatusCode, page, err)
		}
	}

	resp, err = http.Get(srv.URL + "/api/games/" + gameID)
	if err != nil {
		t.Fatalf("GET game: %v", err)
	}
	var frames []ReplayFrame
	err = json.NewDecoder(resp.Body).Decode(&frames)
	resp.Body.Close()
	if err != nil || len(frames) != games[0].Ticks {
		t.Fatalf("frames=%d want %d err=%v", len(frames), games[0].Ticks, err)
	}
	last := frames[len(frames)-1]
	if !game.HasEvent(last.Events, game.EventGameOver, 0) {
		t.Fatalf("last recorded frame events=%v", last.Events)
	}

	resp, err = http.Get(srv.URL + "/api/games/missing")
	if err != nil {
		t.Fatalf("GET missing: %v", err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("missing game status=%d", resp.StatusCode)
	}
}
