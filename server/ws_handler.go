package server

import (
	"context"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"github.com/hackai/chatd/stream"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
}

// wsFrameWriter relays protocol frames over a websocket, one JSON message
// per frame and a text [DONE] terminator, mirroring the SSE framing.
type wsFrameWriter struct {
	mu   sync.Mutex
	conn *websocket.Conn
}

func (w *wsFrameWriter) WriteFrame(f stream.Frame) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteJSON(f)
}

func (w *wsFrameWriter) WriteError(message string) error {
	return w.WriteFrame(stream.Frame{Type: stream.FrameError, ErrorText: message})
}

func (w *wsFrameWriter) WriteDone() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.conn.WriteMessage(websocket.TextMessage, []byte("[DONE]"))
}

// handleChatWS is the websocket variant of the chat endpoint. One socket
// serves one chat; each received submission produces one frame stream.
func (s *Server) handleChatWS(c *gin.Context) {
	sess := currentSession(c)
	chatID := c.Param("id")

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		s.log.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	writer := &wsFrameWriter{conn: conn}

	for {
		var req chatRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
				s.log.Debug("websocket closed", "chat_id", chatID, "error", err)
			}
			return
		}
		req.ID = chatID

		ctx, cancel := context.WithTimeout(c.Request.Context(), maxStreamDuration)
		history, status, errMsg := s.prepareChat(ctx, sess, req)
		if status != http.StatusOK {
			writer.WriteError(errMsg)
			writer.WriteDone()
			cancel()
			continue
		}

		s.relayChat(ctx, sess, req, history, writer)
		cancel()
	}
}
