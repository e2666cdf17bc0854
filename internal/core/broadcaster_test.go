// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func receive(t *testing.T, ch chan Event) Event {
	t.Helper()
	select {
	case ev := <-ch:
		return ev
	case <-time.After(time.Second):
		t.Fatal("timeout waiting for event")
		return Event{}
	}
}

func TestBroadcaster_DeliversToEverySubscriber(t *testing.T) {
	bc := NewBroadcaster()
	stream := CombatStream("c1")
	ch1 := bc.Subscribe(stream)
	ch2 := bc.Subscribe(stream)
	other := bc.Subscribe(CombatStream("c2"))

	ev, err := NewEvent(stream, EventTypeTurn, SystemActor, map[string]string{"character_id": "alice"})
	require.NoError(t, err)
	bc.Broadcast(ev)

	assert.Equal(t, ev.ID, receive(t, ch1).ID)
	assert.Equal(t, ev.ID, receive(t, ch2).ID)
	assert.Empty(t, other)
}

func TestBroadcaster_Unsubscribe(t *testing.T) {
	bc := NewBroadcaster()
	ch := bc.Subscribe(CombatsStream)
	require.Equal(t, 1, bc.Subscribers(CombatsStream))

	bc.Unsubscribe(CombatsStream, ch)
	_, ok := <-ch
	assert.False(t, ok, "channel is closed")
	assert.Zero(t, bc.Subscribers(CombatsStream))

	// A second unsubscribe is a no-op rather than a double close.
	bc.Unsubscribe(CombatsStream, ch)
}

func TestBroadcaster_FullBufferDropsInsteadOfBlocking(t *testing.T) {
	bc := NewBroadcaster()
	ch := bc.Subscribe(CombatsStream)
	defer bc.Unsubscribe(CombatsStream, ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for range SubscriberBuffer + 10 {
			bc.Broadcast(Event{ID: NewULID(), Stream: CombatsStream, Type: EventTypeEnded})
		}
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("broadcast blocked on a full subscriber")
	}
	assert.Len(t, ch, SubscriberBuffer)
}

func TestEvent_Decode(t *testing.T) {
	type payload struct {
		CombatID string `json:"combat_id"`
	}
	ev, err := NewEvent(CombatStream("c1"), EventTypeEnded, SystemActor, payload{CombatID: "c1"})
	require.NoError(t, err)

	var got payload
	require.NoError(t, ev.Decode(&got))
	assert.Equal(t, "c1", got.CombatID)
	assert.Equal(t, "combat:c1", ev.Stream)
	assert.Equal(t, "system", ev.Actor.Kind.String())

	_, err = NewEvent("s", EventTypeLog, SystemActor, func() {})
	assert.Error(t, err)
}
