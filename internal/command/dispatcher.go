// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package command

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/combat/initiation"
	"github.com/clawworld/clawworld/internal/combat/skill"
	"github.com/clawworld/clawworld/internal/logging"
)

var tracer = otel.Tracer("clawworld/command")

// DefaultWaitTimeout bounds how long "wait" blocks for a turn.
const DefaultWaitTimeout = 30 * time.Second

// Combats is the part of the engine commands drive.
type Combats interface {
	ExecuteSkill(ctx context.Context, combatID, casterID, skillID, targetID string) (*engine.Outcome, error)
	SkipTurn(ctx context.Context, combatID, characterID string) (*engine.Outcome, error)
	Forfeit(ctx context.Context, combatID, characterID string) (*engine.Outcome, error)
	WaitForTurn(ctx context.Context, combatID, characterID string) (*engine.Outcome, error)
	CombatOf(characterID string) (string, bool)
	Combat(combatID string) (*combat.Instance, bool)
}

var _ Combats = (*engine.Engine)(nil)

// Initiator starts and joins fights.
type Initiator interface {
	Initiate(ctx context.Context, attackerID, targetID string) (*initiation.Result, error)
	Join(ctx context.Context, attackerID, combatID string) (*initiation.Result, error)
}

var _ Initiator = (*initiation.Service)(nil)

// Request identifies who sent a command.
type Request struct {
	CharacterID string
	// SessionID keys the rate limiter. Empty disables limiting for the call.
	SessionID string
	// CombatID is the fight the session last saw. It is used when the
	// character is no longer tracked by the engine, so a player can still
	// read the result of a fight that just ended.
	CombatID string
}

// Reply is the result of one command.
type Reply struct {
	Verb     string
	CombatID string
	// Text is a human readable rendering of the result.
	Text    string
	Outcome *engine.Outcome
}

// Option configures a Dispatcher.
type Option func(*Dispatcher)

// WithInitiator enables the fight and join commands.
func WithInitiator(in Initiator) Option {
	return func(d *Dispatcher) {
		d.initiator = in
	}
}

// WithRateLimiter enables per-session rate limiting.
func WithRateLimiter(rl *RateLimiter) Option {
	return func(d *Dispatcher) {
		d.limiter = rl
	}
}

// WithWaitTimeout bounds the wait command.
func WithWaitTimeout(timeout time.Duration) Option {
	return func(d *Dispatcher) {
		d.waitTimeout = timeout
	}
}

// WithLogger sets the dispatcher logger.
func WithLogger(logger *slog.Logger) Option {
	return func(d *Dispatcher) {
		d.logger = logger
	}
}

// Dispatcher parses player commands and runs them against the engine.
type Dispatcher struct {
	combats     Combats
	initiator   Initiator
	limiter     *RateLimiter
	waitTimeout time.Duration
	logger      *slog.Logger
}

// NewDispatcher creates a dispatcher over combats.
func NewDispatcher(combats Combats, opts ...Option) *Dispatcher {
	d := &Dispatcher{
		combats:     combats,
		waitTimeout: DefaultWaitTimeout,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Dispatch parses input and executes it for req.CharacterID.
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, input string) (reply *Reply, err error) {
	start := time.Now()
	if req.CharacterID == "" {
		return nil, ErrNoCharacter()
	}

	line, err := Parse(input)
	if err != nil {
		RecordCommand("invalid", StatusInvalid, time.Since(start))
		return nil, err
	}
	verb := line.Verb()

	ctx, span := tracer.Start(ctx, "combat.command",
		trace.WithAttributes(
			attribute.String("command.name", verb),
			attribute.String("character.id", req.CharacterID),
		),
	)
	status := StatusSuccess
	defer func() {
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			if status == StatusSuccess {
				status = StatusError
			}
		}
		span.End()
		RecordCommand(verb, status, time.Since(start))
	}()

	if d.limiter != nil && req.SessionID != "" {
		if allowed, cooldownMs := d.limiter.Allow(req.SessionID); !allowed {
			span.SetAttributes(attribute.Int64("command.cooldown_ms", cooldownMs))
			status = StatusRateLimited
			return nil, ErrRateLimited(cooldownMs)
		}
	}

	reply, err = d.run(ctx, req, line)
	if err != nil {
		d.logger.DebugContext(ctx, "command rejected",
			"command", verb,
			"character_id", req.CharacterID,
			"error", err,
		)
		return nil, err
	}
	reply.Verb = verb
	span.SetAttributes(attribute.String("combat.id", reply.CombatID))
	return reply, nil
}

func (d *Dispatcher) run(ctx context.Context, req Request, line *Line) (*Reply, error) {
	switch {
	case line.Help:
		return &Reply{Text: Usage()}, nil
	case line.Fight != nil:
		return d.initiate(ctx, req, line.Fight.ID)
	case line.Join != nil:
		if d.initiator == nil {
			return nil, ErrUnknownCommand(VerbJoin)
		}
		res, err := d.initiator.Join(ctx, req.CharacterID, line.Join.ID)
		if err != nil {
			return nil, err
		}
		return outcomeReply(res.CombatID, res.Outcome), nil
	case line.Attack != nil:
		combatID, err := d.combatOf(req)
		if err != nil && d.initiator != nil {
			// Attacking outside a fight starts one.
			return d.initiate(ctx, req, line.Attack.ID)
		}
		if err != nil {
			return nil, err
		}
		return d.act(ctx, combatID, func(ctx context.Context) (*engine.Outcome, error) {
			return d.combats.ExecuteSkill(ctx, combatID, req.CharacterID, skill.BasicAttackID, line.Attack.ID)
		})
	}

	combatID, err := d.combatOf(req)
	if err != nil {
		return nil, err
	}
	switch {
	case line.Cast != nil:
		return d.act(ctx, combatID, func(ctx context.Context) (*engine.Outcome, error) {
			return d.combats.ExecuteSkill(ctx, combatID, req.CharacterID, line.Cast.Skill, line.Cast.Target)
		})
	case line.Skip:
		return d.act(ctx, combatID, func(ctx context.Context) (*engine.Outcome, error) {
			return d.combats.SkipTurn(ctx, combatID, req.CharacterID)
		})
	case line.Flee:
		return d.act(ctx, combatID, func(ctx context.Context) (*engine.Outcome, error) {
			return d.combats.Forfeit(ctx, combatID, req.CharacterID)
		})
	case line.Wait:
		return d.act(ctx, combatID, func(ctx context.Context) (*engine.Outcome, error) {
			ctx, cancel := context.WithTimeout(ctx, d.waitTimeout)
			defer cancel()
			return d.combats.WaitForTurn(ctx, combatID, req.CharacterID)
		})
	default:
		inst, ok := d.combats.Combat(combatID)
		if !ok {
			return nil, combat.ErrCombatNotFound(combatID)
		}
		return &Reply{CombatID: combatID, Text: RenderStatus(inst, req.CharacterID)}, nil
	}
}

func (d *Dispatcher) initiate(ctx context.Context, req Request, targetID string) (*Reply, error) {
	if d.initiator == nil {
		return nil, ErrUnknownCommand(VerbFight)
	}
	res, err := d.initiator.Initiate(ctx, req.CharacterID, targetID)
	if err != nil {
		return nil, err
	}
	return outcomeReply(res.CombatID, res.Outcome), nil
}

func (d *Dispatcher) combatOf(req Request) (string, error) {
	if id, ok := d.combats.CombatOf(req.CharacterID); ok {
		return id, nil
	}
	if req.CombatID != "" {
		return req.CombatID, nil
	}
	return "", ErrNotInCombat(req.CharacterID)
}

func (d *Dispatcher) act(ctx context.Context, combatID string, fn func(context.Context) (*engine.Outcome, error)) (*Reply, error) {
	out, err := fn(logging.WithCombatID(ctx, combatID))
	if err != nil {
		return nil, err
	}
	return outcomeReply(combatID, out), nil
}

func outcomeReply(combatID string, out *engine.Outcome) *Reply {
	r := &Reply{CombatID: combatID, Outcome: out}
	if out == nil {
		return r
	}
	var b strings.Builder
	for _, l := range out.Log {
		b.WriteString(l)
		b.WriteByte('\n')
	}
	b.WriteString(out.Message)
	r.Text = b.String()
	return r
}

// RenderStatus describes a combat from one character's point of view.
func RenderStatus(inst *combat.Instance, viewerID string) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Combat %s on %s (%s, %s)\n", inst.ID, inst.MapID, inst.Type(), inst.Status)
	turn, _ := inst.CurrentTurn()
	for _, p := range inst.Parties() {
		fmt.Fprintf(&b, "%s:\n", p.FactionID)
		for _, c := range p.Characters {
			marker := " "
			switch {
			case c.ID == turn:
				marker = ">"
			case c.ID == viewerID:
				marker = "*"
			}
			state := ""
			switch {
			case c.Retreated:
				state = " (retreated)"
			case !c.Alive():
				state = " (defeated)"
			}
			fmt.Fprintf(&b, " %s %s [%s] HP %d/%d MP %d/%d%s\n",
				marker, c.Name, c.ID, c.Health, c.MaxHealth, c.Mana, c.MaxMana, state)
		}
	}
	return strings.TrimRight(b.String(), "\n")
}
