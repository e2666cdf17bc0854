// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package aftermath turns ended combats into world changes. It claims each
// combat's reward distribution exactly once, works out grants, penalties and
// enemy respawns, applies them to the world and archives the result.
package aftermath

import (
	"context"
	"log/slog"
	"maps"
	"time"

	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/combat/protection"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/logging"
	"github.com/clawworld/clawworld/pkg/errutil"
)

// PenaltyRate is the share of current experience lost by a defeated player
// above the map's recommended level.
const PenaltyRate = 0.1

// Report is everything one ended combat changes.
type Report struct {
	CombatID string
	MapID    string
	Type     combat.Type
	Status   combat.Status
	// Outcome is one of the engine Outcome* labels.
	Outcome string
	Winner  string
	EndedAt time.Time
	Log     []string

	Grants      []Grant
	Defeated    []Defeat
	Respawns    []Respawn
	Resets      []combat.EnemyReset
	FinalStates map[string]combat.FinalState
}

// Grant is a reward paid to one surviving player.
type Grant struct {
	PlayerID string
	Exp      int
	Gold     int
	Items    []string
}

// Defeat records a fallen player and the experience they lose.
type Defeat struct {
	PlayerID           string
	Level              int
	AllPlayersDefeated bool
	ExpLost            int
}

// Respawn schedules a defeated persistent enemy.
type Respawn struct {
	MapID      string
	InstanceID string
	At         time.Time
}

// Distributions hands out ended combats' results.
type Distributions interface {
	TakeRewardDistribution(combatID string) (*combat.RewardDistribution, bool)
	LogsSince(combatID string, seq int) ([]string, error)
}

var _ Distributions = (*engine.Engine)(nil)

// World is the persistent game state a report is applied to.
type World interface {
	// Experience returns a player's current experience.
	Experience(ctx context.Context, playerID string) (int, bool)
	Apply(ctx context.Context, r *Report) error
}

// Archive stores reports. Archiving the same combat twice must succeed
// without storing it twice.
type Archive interface {
	Archive(ctx context.Context, r *Report) error
}

// Option configures a Handler.
type Option func(*Handler)

// WithWorld sets the world reports are applied to.
func WithWorld(w World) Option {
	return func(h *Handler) {
		h.world = w
	}
}

// WithArchive replaces the default in-memory ledger.
func WithArchive(a Archive) Option {
	return func(h *Handler) {
		h.archive = a
	}
}

// WithClock sets the time source used for respawn schedules.
func WithClock(now func() time.Time) Option {
	return func(h *Handler) {
		h.clock = now
	}
}

// WithLogger sets the handler logger.
func WithLogger(logger *slog.Logger) Option {
	return func(h *Handler) {
		h.logger = logger
	}
}

// Handler processes ended combats.
type Handler struct {
	src     Distributions
	maps    protection.Maps
	world   World
	archive Archive
	clock   func() time.Time
	logger  *slog.Logger
}

// NewHandler creates a handler. Without WithArchive reports are kept in an
// in-memory Ledger.
func NewHandler(src Distributions, maps protection.Maps, opts ...Option) *Handler {
	h := &Handler{
		src:     src,
		maps:    maps,
		archive: NewLedger(),
		clock:   time.Now,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Archive returns the archive reports are written to.
func (h *Handler) Archive() Archive { return h.archive }

// Run handles every ended event on the combats stream until ctx is done.
func (h *Handler) Run(ctx context.Context, bc *core.Broadcaster) error {
	events := bc.Subscribe(core.CombatsStream)
	defer bc.Unsubscribe(core.CombatsStream, events)

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				return nil
			}
			if ev.Type != core.EventTypeEnded {
				continue
			}
			var ended engine.EndedPayload
			if err := ev.Decode(&ended); err != nil {
				h.logger.WarnContext(ctx, "dropping malformed ended event", "event_id", ev.ID.String(), "error", err)
				continue
			}
			if _, err := h.Handle(ctx, ended); err != nil {
				errutil.LogErrorContext(ctx, h.logger, "combat aftermath failed", err)
			}
		}
	}
}

// Handle claims the combat's distribution and applies it. A combat whose
// distribution was already claimed yields a nil report and no error.
func (h *Handler) Handle(ctx context.Context, ended engine.EndedPayload) (*Report, error) {
	ctx = logging.WithCombatID(ctx, ended.CombatID)
	dist, ok := h.src.TakeRewardDistribution(ended.CombatID)
	if !ok {
		h.logger.DebugContext(ctx, "distribution already claimed")
		return nil, nil
	}
	lines, err := h.src.LogsSince(ended.CombatID, 0)
	if err != nil {
		h.logger.WarnContext(ctx, "final log unavailable", "error", err)
	}

	r := h.Build(ctx, dist, ended.Outcome, lines)
	if h.world != nil {
		if err := h.world.Apply(ctx, r); err != nil {
			return r, oops.Code("AFTERMATH_APPLY_FAILED").
				With("combat_id", r.CombatID).
				With("operation", "apply report").
				Wrap(err)
		}
	}
	if err := h.archive.Archive(ctx, r); err != nil {
		return r, oops.Code("AFTERMATH_ARCHIVE_FAILED").
			With("combat_id", r.CombatID).
			With("operation", "archive report").
			Wrap(err)
	}
	h.logger.InfoContext(ctx, "combat aftermath applied",
		"outcome", r.Outcome,
		"grants", len(r.Grants),
		"defeated", len(r.Defeated),
		"respawns", len(r.Respawns),
		"resets", len(r.Resets),
	)
	return r, nil
}

// Build derives a report from a distribution.
func (h *Handler) Build(ctx context.Context, dist *combat.RewardDistribution, outcome string, lines []string) *Report {
	endedAt := h.clock()
	r := &Report{
		CombatID:    dist.CombatID,
		MapID:       dist.MapID,
		Type:        dist.CombatType,
		Status:      dist.Status,
		Outcome:     outcome,
		Winner:      dist.WinnerFaction,
		EndedAt:     endedAt,
		Log:         lines,
		FinalStates: maps.Clone(dist.FinalStates),
	}

	if dist.EnemiesNeedReset {
		r.Resets = append([]combat.EnemyReset(nil), dist.EnemiesToReset...)
	} else {
		for _, id := range dist.WinnerPlayers {
			g := Grant{PlayerID: id, Exp: dist.TotalExp, Gold: dist.GoldPerPlayer}
			if id == dist.LeaderID {
				g.Items = append([]string(nil), dist.Items...)
			}
			if g.Exp > 0 || g.Gold > 0 || len(g.Items) > 0 {
				r.Grants = append(r.Grants, g)
			}
		}
		for _, e := range dist.DefeatedEnemy {
			r.Respawns = append(r.Respawns, Respawn{
				MapID:      e.MapID,
				InstanceID: e.InstanceID,
				At:         endedAt.Add(time.Duration(e.RespawnSeconds) * time.Second),
			})
		}
	}

	recommended := h.recommendedLevel(dist.MapID)
	for _, d := range dist.DefeatedPlayer {
		defeat := Defeat{
			PlayerID:           d.PlayerID,
			Level:              d.Level,
			AllPlayersDefeated: d.AllPlayersDefeated,
		}
		if recommended != nil && d.Level > *recommended && h.world != nil {
			if exp, ok := h.world.Experience(ctx, d.PlayerID); ok {
				defeat.ExpLost = int(float64(exp) * PenaltyRate)
			}
		}
		r.Defeated = append(r.Defeated, defeat)
	}
	return r
}

func (h *Handler) recommendedLevel(mapID string) *int {
	if h.maps == nil {
		return nil
	}
	info, ok := h.maps.Map(mapID)
	if !ok {
		return nil
	}
	return info.RecommendedLevel
}
