package ws

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-bookshop-assistant/internal/services"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 30 * time.Second
	maxMessageSize = 16 << 10
	turnTimeout    = 30 * time.Second
)

// inboundMessage is the only frame clients send.
type inboundMessage struct {
	Content        string `json:"content"`
	IdempotencyKey string `json:"idempotency_key,omitempty"`
}

// Client is one WebSocket connection bound to a chat session.
type Client struct {
	hub       *Hub
	conn      *websocket.Conn
	send      chan []byte
	sessionID string
	userID    string
	ctx       context.Context
}

// readPump reads chat messages until the connection fails. Turns run inline,
// so one connection never has two turns in flight.
func (c *Client) readPump() {
	defer func() {
		select {
		case c.hub.unregister <- c:
		case <-c.hub.done:
		}
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				log.Debug().Err(err).Str("session_id", c.sessionID).Msg("ws read closed")
			}
			return
		}

		var in inboundMessage
		if err := json.Unmarshal(raw, &in); err != nil {
			c.hub.enqueue(c.sessionID, c, Event{Type: EventError, Data: ErrorData{Code: "bad_request", Message: "invalid JSON"}})
			continue
		}

		ctx, cancel := context.WithTimeout(c.ctx, turnTimeout)
		c.hub.handleMessage(ctx, c, in)
		cancel()
	}
}

// writePump drains send and keeps the connection alive with pings.
func (c *Client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				return
			}

		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func (h *Hub) upgrader() *websocket.Upgrader {
	allowed := h.opts.AllowedOrigins
	return &websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin: func(r *http.Request) bool {
			origin := r.Header.Get("Origin")
			if len(allowed) == 0 || origin == "" {
				return true
			}
			for _, o := range allowed {
				if o == "*" || strings.EqualFold(o, origin) {
					return true
				}
			}
			return false
		},
	}
}

// callerID resolves the user like the HTTP handlers: context value, then
// X-User-ID header, then the user_id query parameter, then "demo-user".
func callerID(c *gin.Context) string {
	if v, ok := c.Get("userID"); ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	if h := strings.TrimSpace(c.GetHeader("X-User-ID")); h != "" {
		return h
	}
	if q := strings.TrimSpace(c.Query("user_id")); q != "" {
		return q
	}
	return "demo-user"
}

// Serve upgrades GET /ws/chat?session_id=<uuid> after checking that the
// session belongs to the caller.
//
// @Summary      Chat over WebSocket
// @Description  Upgrades to a WebSocket bound to one chat session. Send {"content": "..."} frames; replies arrive as ReceiveMessage and ReceiveAction events on every connection of the session.
// @Tags         Chat
// @Param        session_id  query   string  true   "Session ID (UUID)"
// @Param        X-User-ID   header  string  false  "Caller id (defaults to demo-user)"
// @Success      101
// @Failure      400  {object}  map[string]string
// @Failure      404  {object}  map[string]string
// @Router       /ws/chat [get]
func (h *Hub) Serve(c *gin.Context) {
	sessionID := c.Query("session_id")
	if _, err := uuid.Parse(sessionID); err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"code": "bad_request", "message": "session_id must be a UUID"})
		return
	}
	userID := callerID(c)

	if _, err := h.chat.GetSession(c.Request.Context(), userID, sessionID); err != nil {
		if errors.Is(err, services.ErrSessionNotFound) {
			c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"code": "not_found", "message": "session not found"})
			return
		}
		log.Error().Err(err).Str("session_id", sessionID).Msg("ws session lookup failed")
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"code": "internal_error", "message": "internal server error"})
		return
	}

	conn, err := h.upgrader().Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		// Upgrade has already written the HTTP error.
		log.Warn().Err(err).Str("session_id", sessionID).Msg("websocket upgrade failed")
		return
	}

	client := &Client{
		hub:       h,
		conn:      conn,
		send:      make(chan []byte, 64),
		sessionID: sessionID,
		userID:    userID,
		// the request context ends when this handler returns
		ctx: context.WithoutCancel(c.Request.Context()),
	}

	select {
	case h.register <- client:
	case <-h.done:
		_ = conn.Close()
		return
	}

	go client.writePump()
	go client.readPump()
}
