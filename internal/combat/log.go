// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import (
	"fmt"
	"time"
)

// LogEntry is one line of the combat log.
type LogEntry struct {
	Seq     int
	Message string
	At      time.Time
}

// String formats the entry the way clients display it.
func (e LogEntry) String() string {
	return fmt.Sprintf("[#%d] %s", e.Seq, e.Message)
}

// Log is the append-only, sequenced record of everything that happened in a
// combat. Sequence numbers start at 1 and never repeat.
type Log struct {
	entries []LogEntry
	now     func() time.Time
}

// NewLog creates an empty log stamped with the given clock.
func NewLog(now func() time.Time) *Log {
	if now == nil {
		now = time.Now
	}
	return &Log{now: now}
}

// Add appends a message and returns the new entry.
func (l *Log) Add(message string) LogEntry {
	e := LogEntry{Seq: len(l.entries) + 1, Message: message, At: l.now()}
	l.entries = append(l.entries, e)
	return e
}

// Addf appends a formatted message.
func (l *Log) Addf(format string, args ...any) LogEntry {
	return l.Add(fmt.Sprintf(format, args...))
}

// Len returns the number of entries.
func (l *Log) Len() int { return len(l.entries) }

// LastSeq returns the sequence number of the newest entry, or 0.
func (l *Log) LastSeq() int { return len(l.entries) }

// Since returns the entries with a sequence number greater than seq.
func (l *Log) Since(seq int) []LogEntry {
	if seq < 0 {
		seq = 0
	}
	if seq >= len(l.entries) {
		return nil
	}
	return append([]LogEntry(nil), l.entries[seq:]...)
}

// LinesSince returns the formatted entries after seq.
func (l *Log) LinesSince(seq int) []string {
	entries := l.Since(seq)
	lines := make([]string, 0, len(entries))
	for _, e := range entries {
		lines = append(lines, e.String())
	}
	return lines
}

// Lines returns every entry formatted.
func (l *Log) Lines() []string { return l.LinesSince(0) }

// Messages returns every entry's bare message, without sequence numbers.
func (l *Log) Messages() []string {
	out := make([]string, 0, len(l.entries))
	for _, e := range l.entries {
		out = append(out, e.Message)
	}
	return out
}

func (l *Log) clone() *Log {
	return &Log{entries: append([]LogEntry(nil), l.entries...), now: l.now}
}
