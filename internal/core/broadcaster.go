// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package core

import (
	"log/slog"
	"sync"
)

// SubscriberBuffer is the capacity of each subscription channel.
const SubscriberBuffer = 100

// Broadcaster fans events out to stream subscribers. Delivery never blocks
// the publisher: a subscriber whose buffer is full misses the event.
type Broadcaster struct {
	mu   sync.RWMutex
	subs map[string][]chan Event
}

// NewBroadcaster creates a new broadcaster.
func NewBroadcaster() *Broadcaster {
	return &Broadcaster{
		subs: make(map[string][]chan Event),
	}
}

// Subscribe creates a channel receiving events published on stream.
// Release it with Unsubscribe.
func (b *Broadcaster) Subscribe(stream string) chan Event {
	b.mu.Lock()
	defer b.mu.Unlock()

	ch := make(chan Event, SubscriberBuffer)
	b.subs[stream] = append(b.subs[stream], ch)
	return ch
}

// Unsubscribe removes and closes a subscription. Unknown channels are ignored.
func (b *Broadcaster) Unsubscribe(stream string, ch chan Event) {
	b.mu.Lock()
	defer b.mu.Unlock()

	subs := b.subs[stream]
	for i, sub := range subs {
		if sub != ch {
			continue
		}
		subs = append(subs[:i], subs[i+1:]...)
		if len(subs) == 0 {
			delete(b.subs, stream)
		} else {
			b.subs[stream] = subs
		}
		close(ch)
		return
	}
}

// Subscribers returns how many channels listen on stream.
func (b *Broadcaster) Subscribers(stream string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs[stream])
}

// Broadcast sends an event to all subscribers of its stream.
func (b *Broadcaster) Broadcast(event Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	for _, ch := range b.subs[event.Stream] {
		select {
		case ch <- event:
		default:
			slog.Warn("event dropped: subscriber buffer full",
				"stream", event.Stream,
				"event_id", event.ID.String(),
				"event_type", event.Type,
			)
		}
	}
}
