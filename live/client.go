package live

import (
	"context"
	"encoding/json"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/matchpointhq/matchpoint-server/models"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = 25 * time.Second
	commandTimeout = 10 * time.Second
	maxMessageSize = 4096
	sendBufferSize = 256
)

// ScoreCommander executes scoring commands on behalf of a connection. The
// scoring service implements it; the live package only routes events.
type ScoreCommander interface {
	Snapshot(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
	StartMatch(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
	ScorePoint(ctx context.Context, matchID string, pointWinner int) (*models.Match, *models.MatchScore, error)
	UndoPoint(ctx context.Context, matchID string) (*models.Match, *models.MatchScore, error)
}

// Client is one live viewer connection. It may watch any number of match
// rooms at once; commands it sends are dispatched to the commander and
// failures come back as error events on this connection only.
type Client struct {
	ID string

	hub       *Hub
	conn      *websocket.Conn
	commander ScoreCommander
	logger    *slog.Logger
	send      chan []byte

	mu     sync.Mutex
	rooms  map[string]bool
	alive  bool
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, commander ScoreCommander, logger *slog.Logger) *Client {
	return &Client{
		ID:        uuid.NewString(),
		hub:       hub,
		conn:      conn,
		commander: commander,
		logger:    logger,
		send:      make(chan []byte, sendBufferSize),
		rooms:     make(map[string]bool),
		alive:     true,
	}
}

// ReadPump consumes inbound frames until the connection drops, dispatching
// each envelope. It must run in its own goroutine, one per connection.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.Unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.markAlive()
		c.conn.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, message, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				c.logger.Warn("unexpected close", slog.String("connection_id", c.ID), slog.Any("error", err))
			}
			return
		}
		c.handleMessage(message)
	}
}

// WritePump flushes the send channel to the socket and keeps the
// connection alive with periodic pings. One goroutine per connection.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case message, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, message); err != nil {
				c.logger.Warn("write failed", slog.String("connection_id", c.ID), slog.Any("error", err))
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

func (c *Client) handleMessage(raw []byte) {
	var envelope Envelope
	if err := json.Unmarshal(raw, &envelope); err != nil {
		c.sendError("malformed message")
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()

	switch envelope.Event {
	case EventJoinMatch:
		c.handleJoinMatch(ctx, envelope.Data)
	case EventLeaveMatch:
		c.handleLeaveMatch(envelope.Data)
	case EventScorePoint:
		c.handleScorePoint(ctx, envelope.Data)
	case EventUndoPoint:
		c.handleUndoPoint(ctx, envelope.Data)
	case EventStartMatch:
		c.handleStartMatch(ctx, envelope.Data)
	default:
		c.sendError("unknown event: " + envelope.Event)
	}
}

func (c *Client) handleJoinMatch(ctx context.Context, data json.RawMessage) {
	var payload JoinMatchPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		c.sendError("join_match requires match_id")
		return
	}

	c.hub.JoinRoom(c, payload.MatchID)

	// The joining viewer immediately gets the current state; nobody else
	// needs to hear about the join.
	match, score, err := c.commander.Snapshot(ctx, payload.MatchID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.sendEvent(EventMatchUpdated, MatchStatePayload{Match: match, Score: score})
}

func (c *Client) handleLeaveMatch(data json.RawMessage) {
	var payload JoinMatchPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		c.sendError("leave_match requires match_id")
		return
	}
	c.hub.LeaveRoom(c, payload.MatchID)
}

func (c *Client) handleScorePoint(ctx context.Context, data json.RawMessage) {
	var payload ScorePointPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		c.sendError("score_point requires match_id and point_winner")
		return
	}

	match, score, err := c.commander.ScorePoint(ctx, payload.MatchID, payload.PointWinner)
	if err != nil {
		c.sendError(err.Error())
		return
	}

	state := MatchStatePayload{Match: match, Score: score}
	c.hub.BroadcastToRoom(payload.MatchID, EventPointScored, state)
	if score.WinnerID != nil {
		c.hub.BroadcastToRoom(payload.MatchID, EventMatchEnded, state)
	}
}

func (c *Client) handleUndoPoint(ctx context.Context, data json.RawMessage) {
	var payload JoinMatchPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		c.sendError("undo_point requires match_id")
		return
	}

	match, score, err := c.commander.UndoPoint(ctx, payload.MatchID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.BroadcastToRoom(payload.MatchID, EventMatchUpdated, MatchStatePayload{Match: match, Score: score})
}

func (c *Client) handleStartMatch(ctx context.Context, data json.RawMessage) {
	var payload JoinMatchPayload
	if err := json.Unmarshal(data, &payload); err != nil || payload.MatchID == "" {
		c.sendError("start_match requires match_id")
		return
	}

	match, score, err := c.commander.StartMatch(ctx, payload.MatchID)
	if err != nil {
		c.sendError(err.Error())
		return
	}
	c.hub.BroadcastToRoom(payload.MatchID, EventMatchStarted, MatchStatePayload{Match: match, Score: score})
}

func (c *Client) sendEvent(event string, data interface{}) {
	message, err := marshalEvent(event, data)
	if err != nil {
		c.logger.Error("failed to marshal event", slog.String("event", event), slog.Any("error", err))
		return
	}
	if !c.enqueue(message) {
		c.markSuspect()
	}
}

func (c *Client) sendError(message string) {
	c.sendEvent(EventError, ErrorPayload{Message: message})
}

// enqueue offers a message to the send buffer without blocking. It reports
// false when the buffer is full or the client is already closed.
func (c *Client) enqueue(message []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- message:
		return true
	default:
		return false
	}
}

// close shuts the send channel exactly once.
func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

func (c *Client) closeConn() {
	if c.conn != nil {
		c.conn.Close()
	}
}

func (c *Client) markAlive() {
	c.mu.Lock()
	c.alive = true
	c.mu.Unlock()
}

func (c *Client) markSuspect() {
	c.mu.Lock()
	c.alive = false
	c.mu.Unlock()
}

// heartbeatOK reports whether the client answered since the previous probe
// and arms the next window.
func (c *Client) heartbeatOK() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ok := c.alive
	c.alive = false
	return ok
}

func (c *Client) addRoom(matchID string) {
	c.mu.Lock()
	c.rooms[matchID] = true
	c.mu.Unlock()
}

func (c *Client) removeRoom(matchID string) {
	c.mu.Lock()
	delete(c.rooms, matchID)
	c.mu.Unlock()
}

func (c *Client) roomIDs() map[string]bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	ids := make(map[string]bool, len(c.rooms))
	for id := range c.rooms {
		ids[id] = true
	}
	return ids
}
