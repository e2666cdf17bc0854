// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package gateway

// Client message types.
const (
	TypeCommand = "command"
)

// Server message types.
const (
	TypeWelcome = "welcome"
	TypeReply   = "reply"
	TypeError   = "error"
	TypeTurn    = "turn"
	TypeLog     = "log"
	TypeEnded   = "ended"
)

// CodeBadMessage reports a client frame the gateway does not understand.
const CodeBadMessage = "BAD_MESSAGE"

// ClientMessage is a frame sent by a player.
type ClientMessage struct {
	Type  string `json:"type"`
	Input string `json:"input"`
}

// ServerMessage is a frame sent to a player. Which fields are set depends on
// Type.
type ServerMessage struct {
	Type        string   `json:"type"`
	CombatID    string   `json:"combat_id,omitempty"`
	CharacterID string   `json:"character_id,omitempty"`
	Verb        string   `json:"verb,omitempty"`
	Text        string   `json:"text,omitempty"`
	Lines       []string `json:"lines,omitempty"`
	CurrentTurn string   `json:"current_turn,omitempty"`
	Ended       bool     `json:"ended,omitempty"`
	Status      string   `json:"status,omitempty"`
	Outcome     string   `json:"outcome,omitempty"`
	Winner      string   `json:"winner,omitempty"`
	Code        string   `json:"code,omitempty"`
	Message     string   `json:"message,omitempty"`
}
