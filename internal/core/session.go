// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package core

import (
	"log/slog"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/samber/oops"
)

// Session is a character's presence on the server. It outlives any single
// connection so a player who reconnects keeps their combat and log cursor.
type Session struct {
	CharacterID string
	Connections []string // active connection ids
	// CombatID is the last combat the character was seen in. It is kept
	// after the combat ends so the result can still be read.
	CombatID string
	// LogCursors holds the last combat log sequence delivered per combat.
	LogCursors   map[string]int
	LastActivity time.Time
}

func copySession(s *Session) *Session {
	return &Session{
		CharacterID:  s.CharacterID,
		Connections:  slices.Clone(s.Connections),
		CombatID:     s.CombatID,
		LogCursors:   maps.Clone(s.LogCursors),
		LastActivity: s.LastActivity,
	}
}

// SessionManager tracks character sessions. It is safe for concurrent use.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	now      func() time.Time
}

// NewSessionManager creates a session manager. A nil clock uses time.Now.
func NewSessionManager(now func() time.Time) *SessionManager {
	if now == nil {
		now = time.Now
	}
	return &SessionManager{
		sessions: make(map[string]*Session),
		now:      now,
	}
}

// Connect attaches a connection to a character's session, creating the
// session if needed, and returns a copy of it.
func (sm *SessionManager) Connect(charID, connID string) *Session {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[charID]
	if !exists {
		session = &Session{
			CharacterID: charID,
			LogCursors:  make(map[string]int),
		}
		sm.sessions[charID] = session
	}
	session.Connections = append(session.Connections, connID)
	session.LastActivity = sm.now()
	return copySession(session)
}

// Disconnect removes a connection. The session survives with zero
// connections.
func (sm *SessionManager) Disconnect(charID, connID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[charID]
	if !exists {
		slog.Debug("disconnect called for non-existent session",
			"character_id", charID,
			"conn_id", connID,
		)
		return
	}
	session.Connections = slices.DeleteFunc(session.Connections, func(id string) bool { return id == connID })
}

// SetCombat records the combat a character is in.
func (sm *SessionManager) SetCombat(charID, combatID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, ok := sm.sessions[charID]; ok {
		session.CombatID = combatID
	}
}

// UpdateCursor records the last log sequence delivered for a combat. Cursors
// only move forward.
func (sm *SessionManager) UpdateCursor(charID, combatID string, seq int) {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	session, exists := sm.sessions[charID]
	if !exists {
		return
	}
	if seq > session.LogCursors[combatID] {
		session.LogCursors[combatID] = seq
	}
}

// GetSession returns a copy of a character's session, or nil.
func (sm *SessionManager) GetSession(charID string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[charID]
	if !exists {
		return nil
	}
	return copySession(session)
}

// GetConnections returns the connection ids of a character.
func (sm *SessionManager) GetConnections(charID string) []string {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	session, exists := sm.sessions[charID]
	if !exists {
		return nil
	}
	return slices.Clone(session.Connections)
}

// EndSession removes a character's session.
func (sm *SessionManager) EndSession(charID string) error {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	if _, exists := sm.sessions[charID]; !exists {
		return oops.Code("SESSION_NOT_FOUND").
			With("character_id", charID).
			Errorf("session not found for character %s", charID)
	}
	delete(sm.sessions, charID)
	return nil
}

// UpdateActivity refreshes the last activity time of a session.
func (sm *SessionManager) UpdateActivity(charID string) {
	sm.mu.Lock()
	defer sm.mu.Unlock()
	if session, exists := sm.sessions[charID]; exists {
		session.LastActivity = sm.now()
	}
}

// Reap ends sessions with no connections idle for longer than maxIdle and
// returns how many it removed.
func (sm *SessionManager) Reap(maxIdle time.Duration) int {
	sm.mu.Lock()
	defer sm.mu.Unlock()

	threshold := sm.now().Add(-maxIdle)
	removed := 0
	for id, session := range sm.sessions {
		if len(session.Connections) == 0 && session.LastActivity.Before(threshold) {
			delete(sm.sessions, id)
			removed++
		}
	}
	return removed
}

// ListActiveSessions returns copies of every session.
func (sm *SessionManager) ListActiveSessions() []*Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()

	result := make([]*Session, 0, len(sm.sessions))
	for _, session := range sm.sessions {
		result = append(result, copySession(session))
	}
	return result
}
