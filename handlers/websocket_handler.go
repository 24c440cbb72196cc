package handlers

import (
	"log/slog"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/matchpointhq/matchpoint-server/live"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		// TODO: restrict to the frontend origin once it is deployed behind
		// a fixed domain.
		return true
	},
}

type WebSocketHandler struct {
	hub       *live.Hub
	commander live.ScoreCommander
	logger    *slog.Logger
}

func NewWebSocketHandler(hub *live.Hub, commander live.ScoreCommander, logger *slog.Logger) *WebSocketHandler {
	return &WebSocketHandler{
		hub:       hub,
		commander: commander,
		logger:    logger,
	}
}

// ServeWs upgrades the connection and hands it to the hub. A single
// connection can join any number of match rooms afterwards via
// join_match messages.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error to the client.
		h.logger.Warn("websocket upgrade failed", slog.Any("error", err))
		return
	}

	client := live.NewClient(h.hub, conn, h.commander, h.logger)
	h.hub.Register <- client

	go client.WritePump()
	go client.ReadPump()

	h.logger.Info("websocket client connected", slog.String("client_id", client.ID))
}
