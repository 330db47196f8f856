// Package ws is the real-time chat transport. A Hub tracks WebSocket clients
// per chat session, runs inbound messages through the chat service and fans
// the replies out to every connection of that session.
package ws

import (
	"context"
	"encoding/json"
	"errors"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"

	"github.com/tbourn/go-bookshop-assistant/internal/domain"
	"github.com/tbourn/go-bookshop-assistant/internal/services"
)

// Event types sent to clients.
const (
	EventReceiveMessage = "ReceiveMessage"
	EventReceiveAction  = "ReceiveAction"
	EventError          = "Error"
)

// Event is the envelope of every outbound frame.
type Event struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// MessageData is the payload of a ReceiveMessage event.
type MessageData struct {
	Text       string               `json:"text"`
	Intent     string               `json:"intent,omitempty"`
	Confidence float64              `json:"confidence"`
	Books      []domain.BookSummary `json:"books"`
}

// ActionData is the payload of a ReceiveAction event.
type ActionData struct {
	Actions []domain.BotAction `json:"actions"`
}

// ErrorData is the payload of an Error event, sent to the offending client only.
type ErrorData struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ChatService is the part of the chat service the hub drives.
type ChatService interface {
	GetSession(ctx context.Context, userID, sessionID string) (*domain.ChatSession, error)
	SendMessage(ctx context.Context, userID, sessionID, content, idemKey string) (*domain.ChatTurn, bool, error)
}

// delivery is one encoded frame for a session. A non-nil target restricts it
// to a single client.
type delivery struct {
	sessionID string
	target    *Client
	data      []byte
}

// Hub owns the client registry. All map access happens on the Run goroutine.
type Hub struct {
	chat ChatService
	opts Options

	sessions   map[string]map[*Client]struct{}
	register   chan *Client
	unregister chan *Client
	deliver    chan delivery

	done     chan struct{}
	doneOnce sync.Once

	conns prometheus.Gauge
}

// Options tunes the hub. Zero values fall back to defaults.
type Options struct {
	// AllowedOrigins restricts the Origin header on upgrade. Empty allows all.
	AllowedOrigins []string
	// Registerer receives the connection gauge. Nil skips registration.
	Registerer prometheus.Registerer
}

// NewHub builds a hub around the chat service. Call Run before serving.
func NewHub(chat ChatService, opts Options) *Hub {
	h := &Hub{
		chat:       chat,
		opts:       opts,
		sessions:   make(map[string]map[*Client]struct{}),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		deliver:    make(chan delivery, 256),
		done:       make(chan struct{}),
		conns: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "bookshop",
			Name:      "ws_connections",
			Help:      "Open chat WebSocket connections.",
		}),
	}
	if opts.Registerer != nil {
		if err := opts.Registerer.Register(h.conns); err != nil {
			var are prometheus.AlreadyRegisteredError
			if !errors.As(err, &are) {
				log.Warn().Err(err).Msg("ws: gauge not registered")
			} else if g, ok := are.ExistingCollector.(prometheus.Gauge); ok {
				h.conns = g
			}
		}
	}
	return h
}

// Run processes registrations and deliveries until ctx is done, then closes
// every client.
func (h *Hub) Run(ctx context.Context) {
	defer h.doneOnce.Do(func() { close(h.done) })
	for {
		select {
		case <-ctx.Done():
			for sid, set := range h.sessions {
				for c := range set {
					h.drop(sid, c)
				}
			}
			return

		case c := <-h.register:
			set, ok := h.sessions[c.sessionID]
			if !ok {
				set = make(map[*Client]struct{})
				h.sessions[c.sessionID] = set
			}
			set[c] = struct{}{}
			h.conns.Inc()

		case c := <-h.unregister:
			if _, ok := h.sessions[c.sessionID][c]; ok {
				h.drop(c.sessionID, c)
			}

		case d := <-h.deliver:
			for c := range h.sessions[d.sessionID] {
				if d.target != nil && c != d.target {
					continue
				}
				select {
				case c.send <- d.data:
				default:
					// slow consumer
					h.drop(d.sessionID, c)
				}
			}
		}
	}
}

// drop removes c and closes its send channel. Run goroutine only.
func (h *Hub) drop(sessionID string, c *Client) {
	set := h.sessions[sessionID]
	delete(set, c)
	if len(set) == 0 {
		delete(h.sessions, sessionID)
	}
	close(c.send)
	h.conns.Dec()
}

// Publish queues ev for every connection of sessionID.
func (h *Hub) Publish(sessionID string, ev Event) {
	h.enqueue(sessionID, nil, ev)
}

func (h *Hub) enqueue(sessionID string, target *Client, ev Event) {
	data, err := json.Marshal(ev)
	if err != nil {
		log.Error().Err(err).Str("type", ev.Type).Msg("ws: encode event")
		return
	}
	select {
	case h.deliver <- delivery{sessionID: sessionID, target: target, data: data}:
	case <-h.done:
	}
}

// handleMessage runs one inbound chat message and publishes the outcome.
func (h *Hub) handleMessage(ctx context.Context, c *Client, in inboundMessage) {
	turn, _, err := h.chat.SendMessage(ctx, c.userID, c.sessionID, in.Content, in.IdempotencyKey)
	switch {
	case err == nil:
	case errors.Is(err, services.ErrEmptyContent):
		h.enqueue(c.sessionID, c, Event{Type: EventError, Data: ErrorData{Code: "bad_request", Message: "content required"}})
		return
	case errors.Is(err, services.ErrContentTooLong):
		h.enqueue(c.sessionID, c, Event{Type: EventError, Data: ErrorData{Code: "bad_request", Message: "content too long"}})
		return
	default:
		log.Error().Err(err).
			Str("session_id", c.sessionID).
			Str("user_id", c.userID).
			Msg("ws chat turn failed")
		h.Publish(c.sessionID, Event{
			Type: EventReceiveMessage,
			Data: MessageData{Text: services.ApologyText, Books: []domain.BookSummary{}},
		})
		return
	}

	resp := turn.Response()
	books := resp.Books
	if books == nil {
		books = []domain.BookSummary{}
	}
	h.Publish(c.sessionID, Event{
		Type: EventReceiveMessage,
		Data: MessageData{Text: resp.Text, Intent: resp.Intent, Confidence: resp.Confidence, Books: books},
	})
	if len(resp.Actions) > 0 {
		h.Publish(c.sessionID, Event{Type: EventReceiveAction, Data: ActionData{Actions: resp.Actions}})
	}
}
