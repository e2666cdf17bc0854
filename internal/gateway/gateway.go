// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package gateway exposes the combat commands to players over WebSocket and
// pushes combat events back to them.
package gateway

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/google/uuid"
	"github.com/samber/oops"
	"golang.org/x/sync/errgroup"

	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/command"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/observability"
	"github.com/clawworld/clawworld/pkg/errutil"
)

// DefaultWriteTimeout bounds a single frame write.
const DefaultWriteTimeout = 5 * time.Second

// Dispatcher runs one player command.
type Dispatcher interface {
	Dispatch(ctx context.Context, req command.Request, input string) (*command.Reply, error)
}

var _ Dispatcher = (*command.Dispatcher)(nil)

// Option configures a Gateway.
type Option func(*Gateway)

// WithRateLimiter lets the gateway release a connection's bucket on close.
func WithRateLimiter(rl *command.RateLimiter) Option {
	return func(g *Gateway) {
		g.limiter = rl
	}
}

// WithMetrics records connection metrics.
func WithMetrics(m *observability.Metrics) Option {
	return func(g *Gateway) {
		g.metrics = m
	}
}

// WithOriginPatterns sets the origins allowed to open a socket.
func WithOriginPatterns(patterns ...string) Option {
	return func(g *Gateway) {
		g.origins = patterns
	}
}

// WithLogger sets the gateway logger.
func WithLogger(logger *slog.Logger) Option {
	return func(g *Gateway) {
		g.logger = logger
	}
}

// Gateway accepts player connections on /ws.
type Gateway struct {
	dispatcher   Dispatcher
	sessions     *core.SessionManager
	bc           *core.Broadcaster
	limiter      *command.RateLimiter
	metrics      *observability.Metrics
	origins      []string
	writeTimeout time.Duration
	logger       *slog.Logger
}

// New creates a gateway.
func New(d Dispatcher, sessions *core.SessionManager, bc *core.Broadcaster, opts ...Option) *Gateway {
	g := &Gateway{
		dispatcher:   d,
		sessions:     sessions,
		bc:           bc,
		writeTimeout: DefaultWriteTimeout,
		logger:       slog.Default(),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Handler returns the gateway's HTTP routes.
func (g *Gateway) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.Handle("/ws", g)
	return mux
}

// Run serves the gateway on addr until ctx is done.
func (g *Gateway) Run(ctx context.Context, addr string) error {
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return oops.Code("GATEWAY_LISTEN_FAILED").With("addr", addr).Wrap(err)
	}
	return g.Serve(ctx, listener)
}

// Serve serves the gateway on listener until ctx is done.
func (g *Gateway) Serve(ctx context.Context, listener net.Listener) error {
	srv := &http.Server{
		Handler:           g.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Serve(listener)
	}()
	g.logger.Info("gateway listening", "addr", listener.Addr().String())

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return oops.Code("GATEWAY_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
	}
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return oops.Code("GATEWAY_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}

// ServeHTTP upgrades the request and serves one player until the socket
// closes. The character is named by the "character" query parameter.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	characterID := r.URL.Query().Get("character")
	if characterID == "" {
		g.countConnection("rejected")
		http.Error(w, "missing character", http.StatusBadRequest)
		return
	}

	conn, err := websocket.Accept(w, r, &websocket.AcceptOptions{OriginPatterns: g.origins})
	if err != nil {
		g.countConnection("failed")
		g.logger.WarnContext(r.Context(), "websocket accept failed", "error", err)
		return
	}
	g.countConnection("accepted")
	if g.metrics != nil {
		g.metrics.ConnectionsActive.Inc()
		defer g.metrics.ConnectionsActive.Dec()
	}

	c := &client{
		gw:          g,
		conn:        conn,
		characterID: characterID,
		connID:      uuid.NewString(),
		follow:      make(chan string, 1),
	}
	err = c.serve(r.Context())

	status := websocket.CloseStatus(err)
	switch {
	case err == nil, status == websocket.StatusNormalClosure, status == websocket.StatusGoingAway:
		conn.Close(websocket.StatusNormalClosure, "")
	default:
		g.logger.DebugContext(r.Context(), "connection closed",
			"character_id", characterID,
			"conn_id", c.connID,
			"error", err,
		)
		conn.CloseNow()
	}
}

func (g *Gateway) countConnection(result string) {
	if g.metrics != nil {
		g.metrics.ConnectionsTotal.WithLabelValues(result).Inc()
	}
}

// client is one open socket.
type client struct {
	gw          *Gateway
	conn        *websocket.Conn
	characterID string
	connID      string
	// follow carries the combat whose events should be pushed. Only the
	// read loop sends on it after start.
	follow chan string
}

func (c *client) serve(ctx context.Context) error {
	sessions := c.gw.sessions
	session := sessions.Connect(c.characterID, c.connID)
	defer func() {
		sessions.Disconnect(c.characterID, c.connID)
		if c.gw.limiter != nil {
			c.gw.limiter.Forget(c.connID)
		}
	}()

	if err := c.write(ctx, ServerMessage{Type: TypeWelcome, CharacterID: c.characterID, CombatID: session.CombatID}); err != nil {
		return err
	}
	if session.CombatID != "" {
		c.watch(session.CombatID)
	}

	group, gctx := errgroup.WithContext(ctx)
	group.Go(func() error { return c.readLoop(gctx) })
	group.Go(func() error { return c.pushLoop(gctx) })
	return group.Wait()
}

func (c *client) watch(combatID string) {
	select {
	case <-c.follow:
	default:
	}
	c.follow <- combatID
}

func (c *client) readLoop(ctx context.Context) error {
	for {
		var msg ClientMessage
		if err := wsjson.Read(ctx, c.conn, &msg); err != nil {
			return err
		}
		c.gw.sessions.UpdateActivity(c.characterID)

		if msg.Type != TypeCommand {
			if err := c.write(ctx, ServerMessage{Type: TypeError, Code: CodeBadMessage, Message: "Unsupported message."}); err != nil {
				return err
			}
			continue
		}
		if err := c.handleCommand(ctx, msg.Input); err != nil {
			return err
		}
	}
}

func (c *client) handleCommand(ctx context.Context, input string) error {
	var lastCombat string
	if s := c.gw.sessions.GetSession(c.characterID); s != nil {
		lastCombat = s.CombatID
	}
	req := command.Request{CharacterID: c.characterID, SessionID: c.connID, CombatID: lastCombat}

	reply, err := c.gw.dispatcher.Dispatch(ctx, req, input)
	if err != nil {
		msg := ServerMessage{Type: TypeError, Code: errutil.Code(err), Message: command.PlayerMessage(err)}
		return c.write(ctx, msg)
	}

	msg := ServerMessage{Type: TypeReply, Verb: reply.Verb, CombatID: reply.CombatID, Text: reply.Text}
	if reply.CombatID != "" {
		c.gw.sessions.SetCombat(c.characterID, reply.CombatID)
		if reply.CombatID != lastCombat {
			c.watch(reply.CombatID)
		}
	}
	if out := reply.Outcome; out != nil {
		msg.Lines = out.Log
		msg.CurrentTurn = out.CurrentTurn
		msg.Ended = out.Ended
		msg.Status = out.Status.String()
		c.gw.sessions.UpdateCursor(c.characterID, reply.CombatID, out.LastSeq)
	}
	return c.write(ctx, msg)
}

func (c *client) pushLoop(ctx context.Context) error {
	var (
		stream string
		events chan core.Event
	)
	release := func() {
		if events != nil {
			c.gw.bc.Unsubscribe(stream, events)
			events = nil
		}
	}
	defer release()

	for {
		select {
		case <-ctx.Done():
			return nil
		case combatID := <-c.follow:
			if core.CombatStream(combatID) == stream && events != nil {
				continue
			}
			release()
			stream = core.CombatStream(combatID)
			events = c.gw.bc.Subscribe(stream)
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			ended, err := c.push(ctx, ev)
			if err != nil {
				return err
			}
			if ended {
				release()
			}
		}
	}
}

// push forwards one combat event and reports whether it ended the combat.
func (c *client) push(ctx context.Context, ev core.Event) (bool, error) {
	var msg ServerMessage
	ended := false

	switch ev.Type {
	case core.EventTypeTurn:
		var p engine.TurnPayload
		if err := ev.Decode(&p); err != nil {
			return false, c.dropped(ctx, ev, err)
		}
		if p.CharacterID != c.characterID {
			return false, nil
		}
		msg = ServerMessage{Type: TypeTurn, CombatID: p.CombatID, CharacterID: p.CharacterID, Text: engine.MsgYourTurn}
	case core.EventTypeLog:
		var p engine.LogPayload
		if err := ev.Decode(&p); err != nil {
			return false, c.dropped(ctx, ev, err)
		}
		session := c.gw.sessions.GetSession(c.characterID)
		if session != nil && p.LastSeq <= session.LogCursors[p.CombatID] {
			return false, nil
		}
		c.gw.sessions.UpdateCursor(c.characterID, p.CombatID, p.LastSeq)
		msg = ServerMessage{Type: TypeLog, CombatID: p.CombatID, Lines: p.Lines}
	case core.EventTypeEnded:
		var p engine.EndedPayload
		if err := ev.Decode(&p); err != nil {
			return false, c.dropped(ctx, ev, err)
		}
		ended = true
		msg = ServerMessage{
			Type: TypeEnded, CombatID: p.CombatID, Ended: true,
			Status: p.Status, Outcome: p.Outcome, Winner: p.Winner, Text: engine.MsgEnded,
		}
	default:
		return false, nil
	}
	return ended, c.write(ctx, msg)
}

func (c *client) dropped(ctx context.Context, ev core.Event, err error) error {
	if c.gw.metrics != nil {
		c.gw.metrics.PushFailures.WithLabelValues(string(ev.Type)).Inc()
	}
	c.gw.logger.WarnContext(ctx, "undecodable combat event",
		"stream", ev.Stream,
		"event_type", ev.Type,
		"error", err,
	)
	return nil
}

func (c *client) write(ctx context.Context, msg ServerMessage) error {
	ctx, cancel := context.WithTimeout(ctx, c.gw.writeTimeout)
	defer cancel()
	if err := wsjson.Write(ctx, c.conn, msg); err != nil {
		if c.gw.metrics != nil {
			c.gw.metrics.PushFailures.WithLabelValues(msg.Type).Inc()
		}
		return err
	}
	return nil
}
