package bot

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog/log"

	"github.com/freeeve/iron-alliance/api/internal/model"
	"github.com/freeeve/iron-alliance/api/pkg/campaign"
)

// WSEvent mirrors handler.WSEvent for client-side deserialization.
type WSEvent struct {
	Type   string          `json:"type"`
	GameID string          `json:"game_id"`
	Seq    uint64          `json:"seq"`
	Data   json.RawMessage `json:"data"`
}

// Client is an HTTP+WebSocket client for a single bot user.
type Client struct {
	name     string
	baseURL  string
	token    string
	userID   string
	wsConn   *websocket.Conn
	events   chan WSEvent
	httpC    *http.Client
	mu       sync.Mutex
	closedWS bool

	lastSeq map[string]uint64 // owned by readWSLoop
	missed  atomic.Int64
}

// NewClient creates a bot client targeting the given server URL.
func NewClient(name, baseURL string) *Client {
	return &Client{
		name:    name,
		baseURL: strings.TrimRight(baseURL, "/"),
		events:  make(chan WSEvent, 64),
		lastSeq: make(map[string]uint64),
		httpC:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name returns the bot name.
func (c *Client) Name() string { return c.name }

// UserID returns the bot's user ID after login.
func (c *Client) UserID() string { return c.userID }

// Login authenticates via the dev login endpoint.
func (c *Client) Login(ctx context.Context) error {
	var tokens struct {
		AccessToken string `json:"access_token"`
	}
	if err := c.do(ctx, http.MethodGet, "/auth/dev?name="+url.QueryEscape(c.name), nil, &tokens); err != nil {
		return fmt.Errorf("dev login: %w", err)
	}
	c.token = tokens.AccessToken

	var user model.User
	if err := c.do(ctx, http.MethodGet, "/api/v1/users/me", nil, &user); err != nil {
		return fmt.Errorf("get user: %w", err)
	}
	c.userID = user.ID
	log.Debug().Str("bot", c.name).Str("userId", c.userID).Msg("Bot logged in")
	return nil
}

// CreateGame creates a game and returns it.
func (c *Client) CreateGame(ctx context.Context, name string, turnTimeout time.Duration) (*model.Game, error) {
	body := map[string]string{"name": name, "turn_timeout": turnTimeout.String()}
	var g model.Game
	if err := c.do(ctx, http.MethodPost, "/api/v1/games", body, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// JoinGame claims factions in a waiting game.
func (c *Client) JoinGame(ctx context.Context, gameID string, factions []campaign.Faction) error {
	return c.do(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/join", map[string]any{"factions": factions}, nil)
}

// StartGame starts a game (creator only).
func (c *Client) StartGame(ctx context.Context, gameID string) error {
	return c.do(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/start", nil, nil)
}

// GetGame fetches game details including the seats.
func (c *Client) GetGame(ctx context.Context, gameID string) (*model.Game, error) {
	var g model.Game
	if err := c.do(ctx, http.MethodGet, "/api/v1/games/"+gameID, nil, &g); err != nil {
		return nil, err
	}
	return &g, nil
}

// State fetches the live game state.
func (c *Client) State(ctx context.Context, gameID string) (*campaign.GameState, error) {
	var gs campaign.GameState
	if err := c.do(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/state", nil, &gs); err != nil {
		return nil, err
	}
	return &gs, nil
}

// Legal fetches the actions available to the faction on move.
func (c *Client) Legal(ctx context.Context, gameID string) ([]campaign.LegalAction, error) {
	var resp struct {
		Actions []campaign.LegalAction `json:"actions"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/v1/games/"+gameID+"/legal", nil, &resp); err != nil {
		return nil, err
	}
	return resp.Actions, nil
}

// Submit sends one action.
func (c *Client) Submit(ctx context.Context, gameID string, a campaign.Action) error {
	return c.do(ctx, http.MethodPost, "/api/v1/games/"+gameID+"/actions", a, nil)
}

// ConnectWS opens a WebSocket connection and starts listening for events.
func (c *Client) ConnectWS(ctx context.Context) error {
	wsURL := strings.Replace(c.baseURL, "http", "ws", 1) + "/api/v1/ws?token=" + url.QueryEscape(c.token)
	conn, _, err := websocket.DefaultDialer.DialContext(ctx, wsURL, nil)
	if err != nil {
		return fmt.Errorf("ws dial: %w", err)
	}
	c.wsConn = conn

	go c.readWSLoop()
	return nil
}

// SubscribeGame sends a subscribe message for the given game.
func (c *Client) SubscribeGame(gameID string) error {
	msg := map[string]string{"action": "subscribe", "game_id": gameID}
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.wsConn.WriteJSON(msg)
}

// Missed returns how many game events the server numbered but this client
// never received, either dropped by the server or by a full Events channel.
func (c *Client) Missed() int64 { return c.missed.Load() }

// Events returns the channel of incoming WebSocket events. Events are
// dropped while the channel is full.
func (c *Client) Events() <-chan WSEvent { return c.events }

// CloseWS closes the WebSocket connection.
func (c *Client) CloseWS() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.wsConn != nil && !c.closedWS {
		c.closedWS = true
		c.wsConn.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""))
		c.wsConn.Close()
	}
}

func (c *Client) readWSLoop() {
	defer close(c.events)
	for {
		_, msg, err := c.wsConn.ReadMessage()
		if err != nil {
			c.mu.Lock()
			closed := c.closedWS
			c.mu.Unlock()
			if !closed {
				log.Debug().Err(err).Str("bot", c.name).Msg("WS read error")
			}
			return
		}
		var event WSEvent
		if err := json.Unmarshal(msg, &event); err != nil {
			continue
		}
		c.track(event)
		select {
		case c.events <- event:
		default:
			c.missed.Add(1)
		}
	}
}

// track counts gaps in a game's event numbering. A number at or below the
// last one seen means the server restarted the count.
func (c *Client) track(ev WSEvent) {
	if ev.GameID == "" || ev.Seq == 0 {
		return
	}
	if last := c.lastSeq[ev.GameID]; ev.Seq > last+1 && last > 0 {
		c.missed.Add(int64(ev.Seq - last - 1))
		log.Debug().Str("bot", c.name).Str("gameId", ev.GameID).Uint64("from", last).Uint64("to", ev.Seq).Msg("Missed game events")
	}
	c.lastSeq[ev.GameID] = ev.Seq
}

// APIError is a non-2xx response from the server.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.Path, e.Status, e.Body)
}

// do sends a request with an optional JSON body and decodes a JSON
// response into out when out is non-nil.
func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return err
		}
		body = bytes.NewReader(data)
	} else if method == http.MethodPost {
		body = strings.NewReader("{}")
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return err
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpC.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, _ := io.ReadAll(resp.Body)
	if resp.StatusCode >= 400 {
		return &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(data))}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
