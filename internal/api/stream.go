package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = pongWait * 9 / 10
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	CheckOrigin:     func(*http.Request) bool { return true },
}

// handleStream pushes the current composite on connect and then every
// stream interval until the client goes away.
func (s *Server) handleStream(c *gin.Context) {
	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.WithComponent("stream").WithError(err).Debug("websocket upgrade failed")
		return
	}
	defer conn.Close()

	entry := s.log.WithComponent("stream").WithField("request_id", c.GetString(requestIDKey))
	entry.Debug("stream client connected")

	// The read loop only services control frames; it ends when the client closes.
	closed := make(chan struct{})
	conn.SetReadLimit(512)
	_ = conn.SetReadDeadline(time.Now().Add(pongWait))
	conn.SetPongHandler(func(string) error {
		return conn.SetReadDeadline(time.Now().Add(pongWait))
	})
	go func() {
		defer close(closed)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	push := time.NewTicker(s.stream)
	defer push.Stop()
	ping := time.NewTicker(pingPeriod)
	defer ping.Stop()

	send := func() bool {
		snap, err := s.snapshot(c)
		if err != nil {
			entry.WithError(err).Warn("failed to compute gdp for stream")
			return true
		}
		_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
		if err := conn.WriteJSON(snap); err != nil {
			entry.WithError(err).Debug("stream write failed")
			return false
		}
		return true
	}

	if !send() {
		return
	}
	for {
		select {
		case <-c.Request.Context().Done():
			return
		case <-closed:
			entry.Debug("stream client disconnected")
			return
		case <-push.C:
			if !send() {
				return
			}
		case <-ping.C:
			_ = conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
