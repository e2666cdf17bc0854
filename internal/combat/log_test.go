// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package combat

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestLog_SequenceAndFormat(t *testing.T) {
	l := NewLog(nil)
	e1 := l.Add("battle begins")
	e2 := l.Addf("%s attacks", "Alice")

	assert.Equal(t, 1, e1.Seq)
	assert.Equal(t, 2, e2.Seq)
	assert.Equal(t, "[#2] Alice attacks", e2.String())
	assert.Equal(t, 2, l.LastSeq())
}

func TestLog_Since(t *testing.T) {
	l := NewLog(nil)
	for _, m := range []string{"a", "b", "c"} {
		l.Add(m)
	}

	tests := []struct {
		name string
		seq  int
		want []string
	}{
		{name: "from start", seq: 0, want: []string{"[#1] a", "[#2] b", "[#3] c"}},
		{name: "after first", seq: 1, want: []string{"[#2] b", "[#3] c"}},
		{name: "caught up", seq: 3, want: []string{}},
		{name: "ahead of log", seq: 10, want: []string{}},
		{name: "negative treated as start", seq: -4, want: []string{"[#1] a", "[#2] b", "[#3] c"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, l.LinesSince(tt.seq))
		})
	}
}
