package stream

import (
	"github.com/rs/zerolog"
)

// Broadcaster is the interface Hub implements, grounded on the teacher's
// websocket.Broadcaster -- kept separate from *Hub so a future Redis-backed
// fan-out adapter can stand in for horizontal scaling without callers
// changing, exactly as the teacher's doc comment on Broadcaster anticipates.
type Broadcaster interface {
	Broadcast(sessionID string, event *Event)
}

type broadcastMsg struct {
	sessionID string
	event     *Event
}

type subMsg struct {
	client    *Client
	sessionID string
	subscribe bool
}

// Hub manages websocket client connections and broadcasts Events to the
// clients subscribed to a given session id, grounded on
// internal/infrastructure/websocket.Hub's register/unregister/broadcast
// channel loop, narrowed from the teacher's user/workflow/execution
// three-level subscription index to a single session-id index since an
// evaluator.Session has no user or workflow concept.
type Hub struct {
	clients    map[*Client]bool
	register   chan *Client
	unregister chan *Client
	broadcast  chan *broadcastMsg
	subs       chan subMsg

	bySession map[string]map[*Client]bool

	logger zerolog.Logger
}

// NewHub creates a Hub; Run must be started in its own goroutine before
// clients can register.
func NewHub(logger zerolog.Logger) *Hub {
	return &Hub{
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unregister: make(chan *Client),
		broadcast:  make(chan *broadcastMsg, 256),
		subs:       make(chan subMsg),
		bySession:  make(map[string]map[*Client]bool),
		logger:     logger,
	}
}

// Run is the hub's single-goroutine event loop; it owns all mutation of the
// client/subscription maps so no locking is needed elsewhere in this file.
func (h *Hub) Run() {
	for {
		select {
		case c := <-h.register:
			h.clients[c] = true
			h.logger.Debug().Str("client_id", c.id).Int("total_clients", len(h.clients)).Msg("stream client registered")
		case c := <-h.unregister:
			if _, ok := h.clients[c]; !ok {
				continue
			}
			delete(h.clients, c)
			close(c.send)
			for sessionID := range c.subs {
				if peers, ok := h.bySession[sessionID]; ok {
					delete(peers, c)
					if len(peers) == 0 {
						delete(h.bySession, sessionID)
					}
				}
			}
			h.logger.Debug().Str("client_id", c.id).Msg("stream client unregistered")
		case msg := <-h.broadcast:
			peers := h.bySession[msg.sessionID]
			for c := range peers {
				select {
				case c.send <- msg.event:
				default:
					h.logger.Warn().Str("client_id", c.id).Msg("stream client buffer full, dropping event")
				}
			}
		case s := <-h.subs:
			if s.subscribe {
				h.subscribeLocked(s.client, s.sessionID)
			} else {
				h.unsubscribeLocked(s.client, s.sessionID)
			}
		}
	}
}

// Broadcast implements Broadcaster: enqueue event for delivery to every
// client subscribed to sessionID.
func (h *Hub) Broadcast(sessionID string, event *Event) {
	h.broadcast <- &broadcastMsg{sessionID: sessionID, event: event}
}

// Subscribe adds c to sessionID's fan-out set. Safe to call from any
// goroutine (e.g. Client.readPump): the mutation itself happens on Hub's own
// goroutine via the subs channel, the same single-writer discipline
// register/unregister use.
func (h *Hub) Subscribe(c *Client, sessionID string) {
	h.subs <- subMsg{client: c, sessionID: sessionID, subscribe: true}
}

// Unsubscribe removes c from sessionID's fan-out set.
func (h *Hub) Unsubscribe(c *Client, sessionID string) {
	h.subs <- subMsg{client: c, sessionID: sessionID, subscribe: false}
}

func (h *Hub) subscribeLocked(c *Client, sessionID string) {
	if h.bySession[sessionID] == nil {
		h.bySession[sessionID] = make(map[*Client]bool)
	}
	h.bySession[sessionID][c] = true
	c.subs[sessionID] = true
}

func (h *Hub) unsubscribeLocked(c *Client, sessionID string) {
	if peers, ok := h.bySession[sessionID]; ok {
		delete(peers, c)
		if len(peers) == 0 {
			delete(h.bySession, sessionID)
		}
	}
	delete(c.subs, sessionID)
}

// ClientCount reports how many clients are currently registered; read-only
// convenience for health checks, not used on the hot broadcast path.
func (h *Hub) ClientCount() int { return len(h.clients) }
