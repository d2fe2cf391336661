// Copyright (c) 2026 Hemeroteca. All rights reserved.

package notify

import (
	"context"
	"log/slog"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// reconnectDelay is how long the listener sleeps after losing its
// database connection before acquiring a new one.
const reconnectDelay = 5 * time.Second

// Listener holds one dedicated database connection on LISTEN and pushes
// every notification payload into the hub.
type Listener struct {
	pool    *pgxpool.Pool
	hub     *Hub
	channel string
	logger  *slog.Logger
}

// NewListener constructs a [Listener] for the given NOTIFY channel.
func NewListener(pool *pgxpool.Pool, hub *Hub, channel string, logger *slog.Logger) *Listener {
	return &Listener{pool: pool, hub: hub, channel: channel, logger: logger}
}

// Run blocks listening for notifications until the context is cancelled.
// Connection loss is survived by reconnecting; it is meant to be started
// as a goroutine from the composition root.
func (listener *Listener) Run(ctx context.Context) {
	for {
		if err := listener.listen(ctx); err != nil {
			if ctx.Err() != nil {
				return
			}
			listener.logger.Warn("notify_listener_reconnecting",
				slog.String("channel", listener.channel),
				slog.String("error", err.Error()),
			)
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(reconnectDelay):
		}
	}
}

// listen acquires a connection, subscribes, and relays payloads until the
// connection or the context dies.
func (listener *Listener) listen(ctx context.Context) error {
	connection, err := listener.pool.Acquire(ctx)
	if err != nil {
		return err
	}
	defer connection.Release()

	if _, err := connection.Exec(ctx, "LISTEN "+listener.channel); err != nil {
		return err
	}

	listener.logger.Info("notify_listener_started", slog.String("channel", listener.channel))

	for {
		notification, err := connection.Conn().WaitForNotification(ctx)
		if err != nil {
			return err
		}
		listener.hub.Broadcast([]byte(notification.Payload))
	}
}
