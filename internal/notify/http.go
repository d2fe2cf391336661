// Copyright (c) 2026 Hemeroteca. All rights reserved.

package notify

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
)

// writeDeadline bounds a single WebSocket write; a peer that cannot absorb
// a payload in this window counts as gone.
const writeDeadline = 10 * time.Second

// Handler upgrades HTTP requests to WebSocket connections fed by the hub.
type Handler struct {
	hub      *Hub
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHandler constructs a WebSocket [Handler] over the given hub. The feed
// carries public catalog data only, so any origin may subscribe.
func NewHandler(hub *Hub, logger *slog.Logger) *Handler {
	return &Handler{
		hub:    hub,
		logger: logger,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     func(*http.Request) bool { return true },
		},
	}
}

// Serve handles GET /ws requests.
func (handler *Handler) Serve(writer http.ResponseWriter, request *http.Request) {
	connection, err := handler.upgrader.Upgrade(writer, request, nil)
	if err != nil {
		// Upgrade already wrote the HTTP error response.
		handler.logger.Warn("notify_ws_upgrade_failed", slog.String("error", err.Error()))
		return
	}

	subscription := handler.hub.Subscribe()
	handler.logger.Info("notify_ws_client_connected", slog.Int("clients", handler.hub.Count()))

	// Reader goroutine: the feed is one-way, but reading is required to
	// process close frames and detect a gone peer.
	go func() {
		defer handler.hub.Unsubscribe(subscription)
		for {
			if _, _, err := connection.ReadMessage(); err != nil {
				return
			}
		}
	}()

	go func() {
		defer func() {
			handler.hub.Unsubscribe(subscription)
			_ = connection.Close()
			handler.logger.Info("notify_ws_client_disconnected", slog.Int("clients", handler.hub.Count()))
		}()

		for payload := range subscription {
			_ = connection.SetWriteDeadline(time.Now().Add(writeDeadline))
			if err := connection.WriteMessage(websocket.TextMessage, payload); err != nil {
				return
			}
		}

		// Channel closed: the hub dropped this client as too slow.
		_ = connection.SetWriteDeadline(time.Now().Add(writeDeadline))
		_ = connection.WriteMessage(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "subscriber too slow"))
	}()
}
