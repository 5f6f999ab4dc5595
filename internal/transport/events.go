package transport

import (
	"context"
	"net/http"
	"time"

	"nhooyr.io/websocket"
	"nhooyr.io/websocket/wsjson"
)

const progressWriteTimeout = 5 * time.Second

// handleSyncEvents streams progress messages over a WebSocket until the
// client disconnects. Messages published before the upgrade are not replayed.
func (s *Server) handleSyncEvents(w http.ResponseWriter, r *http.Request) {
	conn, err := websocket.Accept(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket accept failed", "error", err)
		return
	}
	defer conn.CloseNow()

	ctx := conn.CloseRead(r.Context())
	msgs, unsubscribe := s.sync.Bus().Subscribe()
	defer unsubscribe()

	for {
		select {
		case <-ctx.Done():
			conn.Close(websocket.StatusNormalClosure, "")
			return
		case msg, ok := <-msgs:
			if !ok {
				conn.Close(websocket.StatusGoingAway, "stream closed")
				return
			}
			writeCtx, cancel := context.WithTimeout(ctx, progressWriteTimeout)
			err := wsjson.Write(writeCtx, conn, msg)
			cancel()
			if err != nil {
				s.logger.Debug("progress stream write failed", "error", err)
				return
			}
		}
	}
}
