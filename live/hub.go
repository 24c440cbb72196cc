package live

import (
	"context"
	"log/slog"
	"sync"
	"time"
)

// DefaultHeartbeatInterval is how often the hub probes registered
// connections. A connection that has not answered since the previous probe
// is treated as dead and removed everywhere.
const DefaultHeartbeatInterval = 30 * time.Second

// Hub tracks live viewer connections and the match rooms each one has
// joined. It is constructed explicitly and injected into whatever needs to
// broadcast; there is no package-level instance.
type Hub struct {
	Register   chan *Client
	Unregister chan *Client

	mu      sync.RWMutex
	clients map[*Client]bool
	rooms   map[string]map[*Client]bool

	heartbeatInterval time.Duration
	logger            *slog.Logger
}

func NewHub(logger *slog.Logger, heartbeatInterval time.Duration) *Hub {
	if heartbeatInterval <= 0 {
		heartbeatInterval = DefaultHeartbeatInterval
	}
	return &Hub{
		Register:          make(chan *Client),
		Unregister:        make(chan *Client),
		clients:           make(map[*Client]bool),
		rooms:             make(map[string]map[*Client]bool),
		heartbeatInterval: heartbeatInterval,
		logger:            logger,
	}
}

// Run owns the registry until ctx is cancelled: it consumes registration
// traffic and reaps connections that stopped answering heartbeat probes.
func (h *Hub) Run(ctx context.Context) {
	ticker := time.NewTicker(h.heartbeatInterval)
	defer ticker.Stop()

	for {
		select {
		case client := <-h.Register:
			h.addClient(client)
		case client := <-h.Unregister:
			h.RemoveClient(client)
		case <-ticker.C:
			h.checkHeartbeats()
		case <-ctx.Done():
			h.closeAll()
			return
		}
	}
}

func (h *Hub) addClient(client *Client) {
	h.mu.Lock()
	h.clients[client] = true
	total := len(h.clients)
	h.mu.Unlock()

	h.logger.Info("client registered", slog.String("connection_id", client.ID), slog.Int("total_clients", total))
}

// RemoveClient deletes the client from the registry and every room it had
// joined, then closes its send channel. No room or registry entry survives
// this call.
func (h *Hub) RemoveClient(client *Client) {
	h.mu.Lock()
	if _, ok := h.clients[client]; !ok {
		h.mu.Unlock()
		return
	}
	delete(h.clients, client)
	for matchID := range client.roomIDs() {
		h.removeFromRoomLocked(client, matchID)
	}
	h.mu.Unlock()

	client.close()
	h.logger.Info("client removed", slog.String("connection_id", client.ID))
}

// JoinRoom subscribes the client to a match room, creating the room on
// first join.
func (h *Hub) JoinRoom(client *Client, matchID string) {
	h.mu.Lock()
	room, ok := h.rooms[matchID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[matchID] = room
	}
	room[client] = true
	size := len(room)
	h.mu.Unlock()

	client.addRoom(matchID)
	h.logger.Info("client joined room",
		slog.String("connection_id", client.ID),
		slog.String("match_id", matchID),
		slog.Int("room_size", size))
}

// LeaveRoom unsubscribes the client from a match room; the room itself is
// dropped when the last subscriber leaves.
func (h *Hub) LeaveRoom(client *Client, matchID string) {
	h.mu.Lock()
	h.removeFromRoomLocked(client, matchID)
	h.mu.Unlock()

	client.removeRoom(matchID)
	h.logger.Info("client left room",
		slog.String("connection_id", client.ID),
		slog.String("match_id", matchID))
}

func (h *Hub) removeFromRoomLocked(client *Client, matchID string) {
	room, ok := h.rooms[matchID]
	if !ok {
		return
	}
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, matchID)
	}
}

// BroadcastToRoom serializes one event and delivers it to every subscriber
// of the match room. A subscriber whose send buffer is full or closed is
// skipped, logged and left for the heartbeat probe to deal with; the rest
// of the room still gets the event.
func (h *Hub) BroadcastToRoom(matchID string, event string, data interface{}) {
	message, err := marshalEvent(event, data)
	if err != nil {
		h.logger.Error("failed to marshal broadcast event",
			slog.String("match_id", matchID),
			slog.String("event", event),
			slog.Any("error", err))
		return
	}

	h.mu.RLock()
	room, ok := h.rooms[matchID]
	if !ok {
		h.mu.RUnlock()
		return
	}
	subscribers := make([]*Client, 0, len(room))
	for client := range room {
		subscribers = append(subscribers, client)
	}
	h.mu.RUnlock()

	for _, client := range subscribers {
		if !client.enqueue(message) {
			client.markSuspect()
			h.logger.Warn("dropped event for unresponsive client",
				slog.String("connection_id", client.ID),
				slog.String("match_id", matchID),
				slog.String("event", event))
		}
	}
}

func (h *Hub) checkHeartbeats() {
	h.mu.RLock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.RUnlock()

	for _, client := range clients {
		if !client.heartbeatOK() {
			h.logger.Warn("heartbeat missed, dropping client", slog.String("connection_id", client.ID))
			client.closeConn()
			h.RemoveClient(client)
		}
	}
}

func (h *Hub) closeAll() {
	h.mu.Lock()
	clients := make([]*Client, 0, len(h.clients))
	for client := range h.clients {
		clients = append(clients, client)
	}
	h.mu.Unlock()

	for _, client := range clients {
		client.closeConn()
		h.RemoveClient(client)
	}
	h.logger.Info("hub stopped")
}

// ClientCount reports the number of registered connections.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// RoomSize reports the number of subscribers in a match room.
func (h *Hub) RoomSize(matchID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[matchID])
}
