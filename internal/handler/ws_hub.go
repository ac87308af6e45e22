package handler

import (
	"encoding/json"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"
)

// EventConnected is the first message on every connection.
const EventConnected = "connected"

// WSEvent is the envelope for all WebSocket messages. Seq numbers the
// events of one game as seen by its current followers, so a gap means the
// receiver missed something and should refetch the state.
type WSEvent struct {
	Type   string `json:"type"`
	GameID string `json:"game_id"`
	Seq    uint64 `json:"seq,omitempty"`
	Data   any    `json:"data"`
}

// ClientMessage is the envelope for messages sent from the client.
type ClientMessage struct {
	Action string `json:"action"` // "subscribe" or "unsubscribe"
	GameID string `json:"game_id"`
}

// WSConn is one signed-in websocket with its outbound queue. games is
// owned by the Hub and only touched under its lock.
type WSConn struct {
	conn   *websocket.Conn
	userID string
	send   chan []byte
	games  map[string]struct{}
}

type room struct {
	followers map[*WSConn]struct{}
	seq       uint64
}

// Hub fans game events out to the connections following each game.
// Anyone signed in may follow a game; events carry no hidden information.
type Hub struct {
	mu    sync.Mutex
	conns map[*WSConn]struct{}
	rooms map[string]*room
}

// NewHub creates a new Hub.
func NewHub() *Hub {
	return &Hub{
		conns: make(map[*WSConn]struct{}),
		rooms: make(map[string]*room),
	}
}

// Register adds a connection to the hub.
func (h *Hub) Register(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if c.games == nil {
		c.games = make(map[string]struct{})
	}
	h.conns[c] = struct{}{}
}

// Unregister drops a connection from every game it follows and closes its
// send queue. Calling it twice is harmless.
func (h *Hub) Unregister(c *WSConn) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	delete(h.conns, c)
	for gameID := range c.games {
		h.leave(c, gameID)
	}
	close(c.send)
}

// Subscribe makes c follow a game. Unregistered connections are ignored.
func (h *Hub) Subscribe(c *WSConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.conns[c]; !ok {
		return
	}
	r := h.rooms[gameID]
	if r == nil {
		r = &room{followers: make(map[*WSConn]struct{})}
		h.rooms[gameID] = r
	}
	r.followers[c] = struct{}{}
	c.games[gameID] = struct{}{}
}

// Unsubscribe stops c following a game.
func (h *Hub) Unsubscribe(c *WSConn, gameID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.leave(c, gameID)
}

// leave requires h.mu. An emptied room is dropped along with its counter.
func (h *Hub) leave(c *WSConn, gameID string) {
	delete(c.games, gameID)
	r, ok := h.rooms[gameID]
	if !ok {
		return
	}
	delete(r.followers, c)
	if len(r.followers) == 0 {
		delete(h.rooms, gameID)
	}
}

// BroadcastToGame stamps the event with the game's next sequence number and
// queues it for every follower. Followers whose queue is full miss it.
func (h *Hub) BroadcastToGame(gameID string, event WSEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()

	r, ok := h.rooms[gameID]
	if !ok {
		return
	}
	r.seq++
	event.Seq = r.seq
	data, err := json.Marshal(event)
	if err != nil {
		log.Error().Err(err).Str("gameId", gameID).Str("type", event.Type).Msg("Failed to marshal WebSocket event")
		return
	}

	for c := range r.followers {
		select {
		case c.send <- data:
		default:
			log.Warn().Str("userId", c.userID).Str("gameId", gameID).Uint64("seq", event.Seq).Msg("Dropping WebSocket message, buffer full")
		}
	}
}

// BroadcastGameEvent implements service.Broadcaster.
func (h *Hub) BroadcastGameEvent(gameID, eventType string, data any) {
	h.BroadcastToGame(gameID, WSEvent{Type: eventType, GameID: gameID, Data: data})
}

// ConnectionCount returns the total number of active connections.
func (h *Hub) ConnectionCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.conns)
}

// GameSubscriberCount returns the number of connections following a game.
func (h *Hub) GameSubscriberCount(gameID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()
	if r, ok := h.rooms[gameID]; ok {
		return len(r.followers)
	}
	return 0
}
