// Copyright (c) 2026 Hemeroteca. All rights reserved.

package notify_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hemeroteca/internal/notify"
)

func TestHub_BroadcastReachesAllSubscribers(t *testing.T) {
	hub := notify.NewHub()
	first := hub.Subscribe()
	second := hub.Subscribe()

	hub.Broadcast([]byte(`{"table":"revistas"}`))

	assert.Equal(t, `{"table":"revistas"}`, string(<-first))
	assert.Equal(t, `{"table":"revistas"}`, string(<-second))
	assert.Equal(t, 2, hub.Count())
}

func TestHub_UnsubscribedClientStopsReceiving(t *testing.T) {
	hub := notify.NewHub()
	subscription := hub.Subscribe()

	hub.Unsubscribe(subscription)
	hub.Broadcast([]byte("payload"))

	_, open := <-subscription
	assert.False(t, open)
	assert.Zero(t, hub.Count())

	// Unsubscribing twice must not panic on a closed channel.
	hub.Unsubscribe(subscription)
}

func TestHub_SlowSubscriberIsDropped(t *testing.T) {
	hub := notify.NewHub()
	slow := hub.Subscribe()

	// Fill the queue without draining, then push one more.
	for i := 0; i < 17; i++ {
		hub.Broadcast([]byte("x"))
	}

	assert.Zero(t, hub.Count())

	// The channel was closed after delivering the buffered payloads.
	received := 0
	for range slow {
		received++
	}
	require.Equal(t, 16, received)
}
