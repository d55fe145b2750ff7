// Package server exposes matches over WebSocket and serves gRPC health checks.
package server

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/coupline/coup-server-go/internal/config"
	"github.com/coupline/coup-server-go/internal/game"
	"github.com/coupline/coup-server-go/internal/game/rules"
	"github.com/coupline/coup-server-go/internal/match"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	sendBufferSize = 64
)

// Message types exchanged with clients.
const (
	MsgCreate    = "create"
	MsgJoin      = "join"
	MsgAction    = "action"
	MsgChallenge = "challenge"
	MsgBlock     = "block"
	MsgExchange  = "exchange"

	MsgState = "state"
	MsgError = "error"
)

// Matches is the match manager surface the hub drives.
type Matches interface {
	Create(ctx context.Context, seats []game.PlayerSeat, settings rules.Settings) (*match.Snapshot, error)
	Act(ctx context.Context, gameID string, cmd match.Command) (*match.Snapshot, error)
	Get(ctx context.Context, gameID string) (*match.Snapshot, error)
}

// ClientMessage is a request sent by a client.
type ClientMessage struct {
	Type     string                `json:"type"`
	GameID   string                `json:"game_id,omitempty"`
	PlayerID string                `json:"player_id,omitempty"`
	Seats    []game.PlayerSeat     `json:"seats,omitempty"`
	Settings *rules.Settings       `json:"settings,omitempty"`
	Action   string                `json:"action,omitempty"`
	TargetID string                `json:"target_id,omitempty"`
	Card     string                `json:"card,omitempty"`
	Selected []rules.CharacterType `json:"selected,omitempty"`
	Version  int64                 `json:"version,omitempty"`
}

// ServerMessage is pushed to clients.
type ServerMessage struct {
	Type   string        `json:"type"`
	GameID string        `json:"game_id,omitempty"`
	State  *GameView     `json:"state,omitempty"`
	Error  *ErrorPayload `json:"error,omitempty"`
}

// ErrorPayload carries the gRPC code name of the failure, e.g. "InvalidArgument".
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Client is one WebSocket connection. A client watches at most one match.
type Client struct {
	id   string
	conn *websocket.Conn

	mu       sync.Mutex
	send     chan []byte
	closed   bool
	gameID   string
	playerID string
}

func (c *Client) subscription() (string, string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.gameID, c.playerID
}

// enqueue queues a frame without blocking. It reports false when the
// client is gone or too slow.
func (c *Client) enqueue(frame []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- frame:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		c.closed = true
		close(c.send)
	}
}

// Hub tracks connected clients and fans snapshots out to the clients
// watching each match. It implements match.Broadcaster.
type Hub struct {
	matches  Matches
	defaults rules.Settings
	cfg      config.WebSocketConfig
	upgrader websocket.Upgrader
	logger   *zap.Logger

	mu      sync.RWMutex
	clients map[*Client]bool
}

// NewHub creates a hub. Matches may be set later with SetMatches, since the
// manager usually needs the hub as its broadcaster.
func NewHub(cfg config.WebSocketConfig, defaults rules.Settings, logger *zap.Logger) *Hub {
	h := &Hub{
		defaults: defaults,
		cfg:      cfg,
		logger:   logger,
		clients:  make(map[*Client]bool),
	}
	h.upgrader = websocket.Upgrader{
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
		CheckOrigin:     h.checkOrigin,
	}
	return h
}

func (h *Hub) SetMatches(m Matches) {
	h.matches = m
}

func (h *Hub) checkOrigin(r *http.Request) bool {
	if len(h.cfg.AllowedOrigins) == 0 {
		return true
	}
	origin := r.Header.Get("Origin")
	for _, allowed := range h.cfg.AllowedOrigins {
		if allowed == origin {
			return true
		}
	}
	return false
}

func (h *Hub) register(c *Client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()

	if h.logger != nil {
		h.logger.Debug("client connected", zap.String("client_id", c.id))
	}
}

func (h *Hub) unregister(c *Client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	delete(h.clients, c)
	h.mu.Unlock()

	if ok {
		c.close()
		if h.logger != nil {
			h.logger.Debug("client disconnected", zap.String("client_id", c.id))
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Broadcast sends snap to every client watching its match, rendered for
// each viewer. Slow clients are dropped.
func (h *Hub) Broadcast(snap *match.Snapshot) {
	h.mu.RLock()
	var slow []*Client
	for c := range h.clients {
		gameID, playerID := c.subscription()
		if gameID != snap.GameID {
			continue
		}
		if !c.enqueue(h.encodeState(snap, playerID)) {
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		if h.logger != nil {
			h.logger.Warn("dropping slow client",
				zap.String("client_id", c.id),
				zap.String("game_id", snap.GameID),
			)
		}
		h.unregister(c)
	}
}

func (h *Hub) encodeState(snap *match.Snapshot, viewer string) []byte {
	return h.encode(ServerMessage{Type: MsgState, GameID: snap.GameID, State: NewGameView(snap, viewer)})
}

func (h *Hub) encode(msg ServerMessage) []byte {
	frame, err := json.Marshal(msg)
	if err != nil {
		if h.logger != nil {
			h.logger.Error("failed to encode message", zap.String("type", msg.Type), zap.Error(err))
		}
		frame, _ = json.Marshal(ServerMessage{Type: MsgError, Error: &ErrorPayload{Code: "Internal", Message: "encoding failed"}})
	}
	return frame
}

func (h *Hub) sendError(c *Client, gameID string, err error) {
	c.enqueue(h.encode(ServerMessage{
		Type:   MsgError,
		GameID: gameID,
		Error:  &ErrorPayload{Code: CodeFor(err).String(), Message: err.Error()},
	}))
}

func (h *Hub) handleMessage(ctx context.Context, c *Client, msg ClientMessage) {
	if h.matches == nil {
		h.sendError(c, msg.GameID, errNoMatches)
		return
	}

	switch msg.Type {
	case MsgCreate:
		settings := h.defaults
		if msg.Settings != nil {
			settings = *msg.Settings
		}
		if msg.PlayerID != "" && !seated(msg.Seats, msg.PlayerID) {
			h.sendError(c, "", errNotSeated)
			return
		}
		snap, err := h.matches.Create(ctx, msg.Seats, settings)
		if err != nil {
			h.sendError(c, "", err)
			return
		}
		h.subscribe(c, snap, msg.PlayerID)

	case MsgJoin:
		snap, err := h.matches.Get(ctx, msg.GameID)
		if err != nil {
			h.sendError(c, msg.GameID, err)
			return
		}
		if msg.PlayerID != "" {
			if _, ok := snap.State.Player(msg.PlayerID); !ok {
				h.sendError(c, msg.GameID, errNotSeated)
				return
			}
		}
		h.subscribe(c, snap, msg.PlayerID)

	case MsgAction, MsgChallenge, MsgBlock, MsgExchange:
		gameID, playerID := c.subscription()
		if gameID == "" || playerID == "" {
			h.sendError(c, msg.GameID, errNotJoined)
			return
		}
		cmd, err := commandFor(msg, playerID)
		if err != nil {
			h.sendError(c, gameID, err)
			return
		}
		// Success is reported through the broadcast.
		if _, err := h.matches.Act(ctx, gameID, cmd); err != nil {
			h.sendError(c, gameID, err)
		}

	default:
		h.sendError(c, msg.GameID, errUnknownMessage)
	}
}

func seated(seats []game.PlayerSeat, playerID string) bool {
	for _, seat := range seats {
		if strings.TrimSpace(seat.ID) == playerID {
			return true
		}
	}
	return false
}

func (h *Hub) subscribe(c *Client, snap *match.Snapshot, playerID string) {
	c.mu.Lock()
	c.gameID = snap.GameID
	c.playerID = playerID
	c.mu.Unlock()

	c.enqueue(h.encodeState(snap, playerID))
	if h.logger != nil {
		h.logger.Debug("client joined match",
			zap.String("client_id", c.id),
			zap.String("game_id", snap.GameID),
			zap.String("player", playerID),
		)
	}
}

// ServeHTTP upgrades the request and starts the client pumps.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		if h.logger != nil {
			h.logger.Warn("websocket upgrade failed", zap.Error(err))
		}
		return
	}

	c := &Client{
		id:   uuid.NewString(),
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

func (h *Hub) readPump(c *Client) {
	defer func() {
		h.unregister(c)
		c.conn.Close()
	}()

	if h.cfg.ReadLimit > 0 {
		c.conn.SetReadLimit(h.cfg.ReadLimit)
	}
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) && h.logger != nil {
				h.logger.Debug("websocket read failed", zap.String("client_id", c.id), zap.Error(err))
			}
			return
		}

		var msg ClientMessage
		if err := json.Unmarshal(data, &msg); err != nil {
			h.sendError(c, "", errMalformed)
			continue
		}
		h.handleMessage(context.Background(), c, msg)
	}
}

func (h *Hub) writePump(c *Client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.Unlock()

	for _, c := range clients {
		h.unregister(c)
	}
}
