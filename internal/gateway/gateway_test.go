// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/command"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/observability"
)

type fakeDispatcher struct {
	mu       sync.Mutex
	requests []command.Request
	inputs   []string
}

func (f *fakeDispatcher) Dispatch(_ context.Context, req command.Request, input string) (*command.Reply, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	f.inputs = append(f.inputs, input)

	switch input {
	case "fight wolf":
		return &command.Reply{
			Verb:     command.VerbFight,
			CombatID: "c1",
			Text:     "[1] Aria attacks Wolf",
			Outcome: &engine.Outcome{
				Message: engine.MsgYourTurn, Log: []string{"[1] Aria attacks Wolf"},
				Status: combat.StatusActive, CurrentTurn: "aria", LastSeq: 1,
			},
		}, nil
	case "status":
		return &command.Reply{Verb: command.VerbStatus, CombatID: req.CombatID, Text: "status"}, nil
	default:
		return nil, combat.ErrNotYourTurn(req.CharacterID, "brom")
	}
}

func (f *fakeDispatcher) lastRequest() command.Request {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.requests[len(f.requests)-1]
}

type harness struct {
	srv      *httptest.Server
	sessions *core.SessionManager
	bc       *core.Broadcaster
	disp     *fakeDispatcher
	metrics  *observability.Metrics
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	h := &harness{
		sessions: core.NewSessionManager(nil),
		bc:       core.NewBroadcaster(),
		disp:     &fakeDispatcher{},
		metrics:  observability.NewMetrics(prometheus.NewRegistry()),
	}
	gw := New(h.disp, h.sessions, h.bc,
		WithMetrics(h.metrics),
		WithRateLimiter(command.NewRateLimiter(command.RateLimiterConfig{})),
	)
	h.srv = httptest.NewServer(gw.Handler())
	t.Cleanup(h.srv.Close)
	return h
}

func (h *harness) dial(t *testing.T, ctx context.Context, character string) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(h.srv.URL, "http") + "/ws?character=" + character
	conn, _, err := websocket.Dial(ctx, url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.CloseNow() })
	return conn
}

func read(t *testing.T, ctx context.Context, conn *websocket.Conn) ServerMessage {
	t.Helper()
	var msg ServerMessage
	require.NoError(t, wsjson.Read(ctx, conn, &msg))
	return msg
}

func send(t *testing.T, ctx context.Context, conn *websocket.Conn, input string) {
	t.Helper()
	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: TypeCommand, Input: input}))
}

func publish(t *testing.T, bc *core.Broadcaster, stream string, typ core.EventType, payload any) {
	t.Helper()
	ev, err := core.NewEvent(stream, typ, core.SystemActor, payload)
	require.NoError(t, err)
	bc.Broadcast(ev)
}

func TestGateway_RequiresCharacter(t *testing.T) {
	h := newHarness(t)
	resp, err := http.Get(h.srv.URL + "/ws")
	require.NoError(t, err)
	defer func() { _ = resp.Body.Close() }()
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.InDelta(t, 1, testutil.ToFloat64(h.metrics.ConnectionsTotal.WithLabelValues("rejected")), 1e-9)
}

func TestGateway_CommandRoundTrip(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := h.dial(t, ctx, "aria")

	welcome := read(t, ctx, conn)
	assert.Equal(t, TypeWelcome, welcome.Type)
	assert.Equal(t, "aria", welcome.CharacterID)

	send(t, ctx, conn, "fight wolf")
	reply := read(t, ctx, conn)
	assert.Equal(t, TypeReply, reply.Type)
	assert.Equal(t, command.VerbFight, reply.Verb)
	assert.Equal(t, "c1", reply.CombatID)
	assert.Equal(t, []string{"[1] Aria attacks Wolf"}, reply.Lines)
	assert.Equal(t, "aria", reply.CurrentTurn)
	assert.Equal(t, "active", reply.Status)

	session := h.sessions.GetSession("aria")
	require.NotNil(t, session)
	assert.Equal(t, "c1", session.CombatID)
	assert.Equal(t, 1, session.LogCursors["c1"])

	send(t, ctx, conn, "status")
	_ = read(t, ctx, conn)
	last := h.disp.lastRequest()
	assert.Equal(t, "c1", last.CombatID, "the session's combat is passed along")
	assert.Equal(t, "aria", last.CharacterID)
	assert.NotEmpty(t, last.SessionID)
}

func TestGateway_ErrorsUsePlayerMessages(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := h.dial(t, ctx, "aria")
	_ = read(t, ctx, conn)

	send(t, ctx, conn, "skip")
	msg := read(t, ctx, conn)
	assert.Equal(t, TypeError, msg.Type)
	assert.Equal(t, combat.CodeNotYourTurn, msg.Code)
	assert.Equal(t, "It is not your turn yet.", msg.Message)

	require.NoError(t, wsjson.Write(ctx, conn, ClientMessage{Type: "shout"}))
	msg = read(t, ctx, conn)
	assert.Equal(t, CodeBadMessage, msg.Code)
}

func TestGateway_PushesCombatEvents(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	conn := h.dial(t, ctx, "aria")
	_ = read(t, ctx, conn)

	send(t, ctx, conn, "fight wolf")
	_ = read(t, ctx, conn)

	stream := core.CombatStream("c1")
	require.Eventually(t, func() bool { return h.bc.Subscribers(stream) == 1 }, 2*time.Second, 10*time.Millisecond)

	// Already delivered with the reply.
	publish(t, h.bc, stream, core.EventTypeLog, engine.LogPayload{CombatID: "c1", Lines: []string{"[1] Aria attacks Wolf"}, LastSeq: 1})
	// Someone else's turn is not pushed.
	publish(t, h.bc, stream, core.EventTypeTurn, engine.TurnPayload{CombatID: "c1", CharacterID: "brom", LastSeq: 1})
	publish(t, h.bc, stream, core.EventTypeLog, engine.LogPayload{CombatID: "c1", Lines: []string{"[2] Wolf bites Aria"}, LastSeq: 2})
	publish(t, h.bc, stream, core.EventTypeTurn, engine.TurnPayload{CombatID: "c1", CharacterID: "aria", LastSeq: 2})
	publish(t, h.bc, stream, core.EventTypeEnded, engine.EndedPayload{CombatID: "c1", Status: "finished", Outcome: "victory", Winner: "dawn"})

	msg := read(t, ctx, conn)
	assert.Equal(t, TypeLog, msg.Type)
	assert.Equal(t, []string{"[2] Wolf bites Aria"}, msg.Lines)

	msg = read(t, ctx, conn)
	assert.Equal(t, TypeTurn, msg.Type)
	assert.Equal(t, "aria", msg.CharacterID)

	msg = read(t, ctx, conn)
	assert.Equal(t, TypeEnded, msg.Type)
	assert.Equal(t, "victory", msg.Outcome)
	assert.Equal(t, "dawn", msg.Winner)

	require.Eventually(t, func() bool { return h.bc.Subscribers(stream) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_ReconnectResumesCombat(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	h.sessions.Connect("aria", "old")
	h.sessions.SetCombat("aria", "c7")
	h.sessions.Disconnect("aria", "old")

	conn := h.dial(t, ctx, "aria")
	welcome := read(t, ctx, conn)
	assert.Equal(t, "c7", welcome.CombatID)
	require.Eventually(t, func() bool { return h.bc.Subscribers(core.CombatStream("c7")) == 1 }, 2*time.Second, 10*time.Millisecond)

	require.NoError(t, conn.Close(websocket.StatusNormalClosure, "bye"))
	require.Eventually(t, func() bool {
		return len(h.sessions.GetConnections("aria")) == 0 && h.bc.Subscribers(core.CombatStream("c7")) == 0
	}, 2*time.Second, 10*time.Millisecond)
}

func TestGateway_Serve(t *testing.T) {
	gw := New(&fakeDispatcher{}, core.NewSessionManager(nil), core.NewBroadcaster())
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- gw.Run(ctx, "127.0.0.1:0") }()
	cancel()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not stop")
	}
}
