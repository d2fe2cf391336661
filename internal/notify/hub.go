// Copyright (c) 2026 Hemeroteca. All rights reserved.

// Package notify relays PostgreSQL NOTIFY payloads from the catalog
// database to connected WebSocket clients.
//
// Delivery is best-effort fan-out: the intranet frontend uses the feed
// only to refresh views, so a missed payload costs nothing more than a
// stale page until the next edit.
package notify

import (
	"sync"
)

// subscriberBuffer is the per-client payload queue. A client that falls
// this far behind is dropped instead of stalling the fan-out.
const subscriberBuffer = 16

// Hub fans incoming payloads out to all subscribed clients.
type Hub struct {
	mu          sync.Mutex
	subscribers map[chan []byte]bool
}

// NewHub constructs an empty [Hub].
func NewHub() *Hub {
	return &Hub{subscribers: make(map[chan []byte]bool)}
}

// Subscribe registers a new client and returns its payload channel. The
// channel is closed by the hub when the client is dropped.
func (hub *Hub) Subscribe() chan []byte {
	channel := make(chan []byte, subscriberBuffer)

	hub.mu.Lock()
	hub.subscribers[channel] = true
	hub.mu.Unlock()

	return channel
}

// Unsubscribe removes a client and closes its channel. Safe to call for a
// channel the hub has already dropped.
func (hub *Hub) Unsubscribe(channel chan []byte) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	if hub.subscribers[channel] {
		delete(hub.subscribers, channel)
		close(channel)
	}
}

// Broadcast delivers a payload to every subscriber without blocking.
// Subscribers with a full queue are dropped.
func (hub *Hub) Broadcast(payload []byte) {
	hub.mu.Lock()
	defer hub.mu.Unlock()

	for channel := range hub.subscribers {
		select {
		case channel <- payload:
		default:
			delete(hub.subscribers, channel)
			close(channel)
		}
	}
}

// Count reports the number of connected subscribers.
func (hub *Hub) Count() int {
	hub.mu.Lock()
	defer hub.mu.Unlock()
	return len(hub.subscribers)
}
