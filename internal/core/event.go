// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package core holds primitives shared by the combat server: ids and the
// event broadcaster that carries combat notifications.
package core

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
)

// EventType identifies the kind of event.
type EventType string

// Combat event types.
const (
	// EventTypeTurn announces that a player's turn has begun.
	EventTypeTurn EventType = "turn"
	// EventTypeLog carries newly appended combat log lines.
	EventTypeLog EventType = "log"
	// EventTypeEnded announces that a combat has finished or timed out.
	EventTypeEnded EventType = "ended"
)

// CombatsStream carries one EventTypeEnded per finished combat, for
// consumers that track every combat.
const CombatsStream = "combats"

// CombatStream returns the stream for one combat's events.
func CombatStream(combatID string) string { return "combat:" + combatID }

// ActorKind identifies what caused an event.
type ActorKind uint8

// Actor kinds.
const (
	ActorCharacter ActorKind = iota
	ActorSystem
	ActorAI
)

func (a ActorKind) String() string {
	switch a {
	case ActorCharacter:
		return "character"
	case ActorSystem:
		return "system"
	case ActorAI:
		return "ai"
	default:
		return "unknown"
	}
}

// Actor represents who or what caused an event.
type Actor struct {
	Kind ActorKind
	ID   string // character id, or "system"
}

// SystemActor is the actor for engine-initiated events.
var SystemActor = Actor{Kind: ActorSystem, ID: "system"}

// Event is a notification published on a stream.
type Event struct {
	ID        ulid.ULID
	Stream    string
	Type      EventType
	Timestamp time.Time
	Actor     Actor
	Payload   []byte // JSON
}

// NewEvent builds an event with a fresh id, encoding payload as JSON.
func NewEvent(stream string, typ EventType, actor Actor, payload any) (Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Event{}, fmt.Errorf("encode %s payload: %w", typ, err)
	}
	return Event{
		ID:        NewULID(),
		Stream:    stream,
		Type:      typ,
		Timestamp: time.Now(),
		Actor:     actor,
		Payload:   data,
	}, nil
}

// Decode unmarshals the event payload into v.
func (e Event) Decode(v any) error {
	if err := json.Unmarshal(e.Payload, v); err != nil {
		return fmt.Errorf("decode %s payload: %w", e.Type, err)
	}
	return nil
}
