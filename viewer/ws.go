package viewer

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

const (
	writeWait  = 2 * time.Second
	pingPeriod = 30 * time.Second
)

// handleWS streams frames: the current one on connect, then one per tick.
// Clients may send InputRequest messages to steer their snake.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("upgrade error", "err", err)
		return
	}
	defer conn.Close()

	frames, cancel := s.sess.Subscribe()
	defer cancel()

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			_, data, err := conn.ReadMessage()
			if err != nil {
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					s.logger.Debug("ws read", "err", err)
				}
				return
			}
			var req InputRequest
			if err := json.Unmarshal(data, &req); err != nil {
				continue
			}
			dir, err := req.direction()
			if err != nil {
				continue
			}
			if _, err := s.sess.Input(req.Player, dir); err != nil {
				s.logger.Debug("ws input", "player", req.Player, "err", err)
			}
		}
	}()

	if err := s.send(conn, s.sess.Snapshot()); err != nil {
		return
	}

	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()
	for {
		select {
		case <-done:
			return
		case <-r.Context().Done():
			return
		case f, ok := <-frames:
			if !ok {
				return
			}
			if err := s.send(conn, f); err != nil {
				return
			}
		case <-ping.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(writeWait)); err != nil {
				return
			}
		}
	}
}

func (s *Server) send(conn *websocket.Conn, v any) error {
	_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
	return conn.WriteJSON(v)
}
