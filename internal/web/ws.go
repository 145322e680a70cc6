package web

import (
	"errors"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/seralba/vitala-health-agent/internal/httpkit"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 4096,
	// Same-origin browser clients only; the frontend and API share a port.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// wsRequest is one user message from the browser.
type wsRequest struct {
	SessionID string `json:"session_id,omitempty"`
	Message   string `json:"message"`
}

// wsEvent is one server-to-browser event.
type wsEvent struct {
	Type      string `json:"type"` // "reply" or "error"
	SessionID string `json:"session_id,omitempty"`
	Text      string `json:"text,omitempty"`
	HTML      string `json:"html,omitempty"`
	Error     string `json:"error,omitempty"`
	Retryable bool   `json:"retryable,omitempty"`
}

// handleWS runs the chat conversation over a WebSocket. Each incoming
// message is one turn; each reply carries both the raw text and its
// markdown-rendered HTML.
func (s *Server) handleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		return
	}
	defer conn.Close()

	s.logger.Debug("websocket connected", "remote", r.RemoteAddr)

	for {
		var req wsRequest
		if err := conn.ReadJSON(&req); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				s.logger.Warn("websocket read failed", "error", err)
			}
			return
		}
		if req.Message == "" {
			s.writeEvent(conn, wsEvent{Type: "error", Error: "no message provided"})
			continue
		}

		sess := s.loop.Sessions().GetOrCreate(req.SessionID)

		reply, err := s.loop.Respond(r.Context(), sess, req.Message)
		if err != nil {
			event := wsEvent{Type: "error", SessionID: sess.ID, Error: "request failed"}
			if errors.Is(err, httpkit.ErrServiceUnavailable) {
				event.Error = "the assistant is temporarily unavailable"
				event.Retryable = true
			}
			s.writeEvent(conn, event)
			continue
		}

		s.writeEvent(conn, wsEvent{
			Type:      "reply",
			SessionID: sess.ID,
			Text:      reply,
			HTML:      renderMarkdown(reply),
		})
	}
}

func (s *Server) writeEvent(conn *websocket.Conn, event wsEvent) {
	conn.SetWriteDeadline(time.Now().Add(10 * time.Second))
	if err := conn.WriteJSON(event); err != nil {
		s.logger.Debug("websocket write failed", "error", err)
	}
}
