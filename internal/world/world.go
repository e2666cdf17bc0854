// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package world holds the persistent game state combats are fought over:
// hero progress and the life cycle of every placed enemy. It supplies
// combatants to initiation and takes in aftermath reports.
package world

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/internal/combat/initiation"
	"github.com/clawworld/clawworld/internal/content"
	"github.com/clawworld/clawworld/internal/logging"
)

// Hero is a player's progress between combats.
type Hero struct {
	ID       string
	Name     string
	Faction  string
	Party    string
	MapID    string
	Waypoint string
	Level    int
	Exp      int
	Gold     int
	Items    []string
	Health   int
	Mana     int

	template content.Hero
}

// Spawn is one placed enemy.
type Spawn struct {
	ID         string
	MapID      string
	Group      string
	TemplateID string
	// RespawnAt is zero while the enemy is alive.
	RespawnAt time.Time

	template content.Enemy
}

// Alive reports whether the spawn can be fought at now.
func (s *Spawn) Alive(now time.Time) bool {
	return s.RespawnAt.IsZero() || !now.Before(s.RespawnAt)
}

// Option configures a World.
type Option func(*World)

// WithClock sets the time source for respawns.
func WithClock(now func() time.Time) Option {
	return func(w *World) {
		w.clock = now
	}
}

// WithLogger sets the world logger.
func WithLogger(logger *slog.Logger) Option {
	return func(w *World) {
		w.logger = logger
	}
}

// World is the in-memory game state built from a content pack.
type World struct {
	mu         sync.RWMutex
	heroes     map[string]*Hero
	heroOrder  []string
	spawns     map[string]*Spawn
	spawnOrder []string

	clock  func() time.Time
	logger *slog.Logger
}

var (
	_ initiation.Roster = (*World)(nil)
	_ aftermath.World   = (*World)(nil)
)

// New places every hero and spawn of a loaded pack.
func New(pack *content.Pack, opts ...Option) *World {
	w := &World{
		heroes: make(map[string]*Hero, len(pack.Heroes)),
		spawns: make(map[string]*Spawn),
		clock:  time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(w)
	}

	for _, h := range pack.Heroes {
		waypoint := h.Waypoint
		if waypoint == "" {
			waypoint = h.Map
		}
		w.heroes[h.ID] = &Hero{
			ID:       h.ID,
			Name:     h.Name,
			Faction:  h.Faction,
			Party:    h.Party,
			MapID:    h.Map,
			Waypoint: waypoint,
			Level:    h.Level,
			Exp:      h.Exp,
			Gold:     h.Gold,
			Health:   h.Stats.Health,
			Mana:     h.Stats.Mana,
			template: h,
		}
		w.heroOrder = append(w.heroOrder, h.ID)
	}
	for _, m := range pack.Maps {
		for _, s := range m.Spawns {
			tmpl, ok := pack.EnemyTemplate(s.Enemy)
			if !ok {
				continue
			}
			w.spawns[s.ID] = &Spawn{
				ID:         s.ID,
				MapID:      m.ID,
				Group:      s.Group,
				TemplateID: s.Enemy,
				template:   tmpl,
			}
			w.spawnOrder = append(w.spawnOrder, s.ID)
		}
	}
	return w
}

// Hero returns a copy of a hero's state.
func (w *World) Hero(id string) (Hero, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.heroes[id]
	if !ok {
		return Hero{}, false
	}
	out := *h
	out.Items = append([]string(nil), h.Items...)
	return out, true
}

// Heroes returns every hero in pack order.
func (w *World) Heroes() []Hero {
	w.mu.RLock()
	ids := append([]string(nil), w.heroOrder...)
	w.mu.RUnlock()

	out := make([]Hero, 0, len(ids))
	for _, id := range ids {
		if h, ok := w.Hero(id); ok {
			out = append(out, h)
		}
	}
	return out
}

// Spawn returns a copy of a spawn's state.
func (w *World) Spawn(id string) (Spawn, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	s, ok := w.spawns[id]
	if !ok {
		return Spawn{}, false
	}
	return *s, true
}

// SpawnsOn returns the spawns placed on a map, alive or not.
func (w *World) SpawnsOn(mapID string) []Spawn {
	w.mu.RLock()
	defer w.mu.RUnlock()
	var out []Spawn
	for _, id := range w.spawnOrder {
		if s := w.spawns[id]; s.MapID == mapID {
			out = append(out, *s)
		}
	}
	return out
}

// Move places a hero on another map.
func (w *World) Move(heroID, mapID string) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	h, ok := w.heroes[heroID]
	if !ok {
		return ErrHeroNotFound(heroID)
	}
	h.MapID = mapID
	return nil
}

// RestoreRespawns marks spawns as dead until their recorded respawn time.
// It returns how many spawns were known.
func (w *World) RestoreRespawns(respawns []aftermath.Respawn) int {
	w.mu.Lock()
	defer w.mu.Unlock()
	n := 0
	for _, rs := range respawns {
		if s, ok := w.spawns[rs.InstanceID]; ok && s.MapID == rs.MapID {
			s.RespawnAt = rs.At
			n++
		}
	}
	return n
}

// Combatant implements initiation.Roster.
func (w *World) Combatant(_ context.Context, id string) (initiation.Combatant, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	return w.combatant(id)
}

// Members implements initiation.Roster. Heroes group by party and spawns by
// spawn group, both limited to the same map.
func (w *World) Members(_ context.Context, id string) ([]initiation.Combatant, error) {
	w.mu.RLock()
	defer w.mu.RUnlock()

	self, err := w.combatant(id)
	if err != nil {
		return nil, err
	}
	if self.Group == "" {
		return []initiation.Combatant{self}, nil
	}
	order := w.spawnOrder
	if self.Character.IsPlayer() {
		order = w.heroOrder
	}
	var out []initiation.Combatant
	for _, oid := range order {
		c, err := w.combatant(oid)
		if err != nil {
			return nil, err
		}
		if c.Group == self.Group && c.MapID == self.MapID {
			out = append(out, c)
		}
	}
	return out, nil
}

func (w *World) combatant(id string) (initiation.Combatant, error) {
	if h, ok := w.heroes[id]; ok {
		c := h.template.Character()
		c.Name = h.Name
		c.Level = h.Level
		c.Health = min(h.Health, c.MaxHealth)
		c.Mana = min(h.Mana, c.MaxMana)
		c.Dead = c.Health <= 0
		return initiation.Combatant{Character: c, MapID: h.MapID, Group: h.Party}, nil
	}
	if s, ok := w.spawns[id]; ok {
		c := s.template.Character(s.ID, s.MapID)
		if !s.Alive(w.clock()) {
			c.Health = 0
			c.Dead = true
		}
		return initiation.Combatant{Character: c, MapID: s.MapID, Group: s.Group}, nil
	}
	return initiation.Combatant{}, combat.ErrCharacterNotFound("", id)
}

// Experience implements aftermath.World.
func (w *World) Experience(_ context.Context, playerID string) (int, bool) {
	w.mu.RLock()
	defer w.mu.RUnlock()
	h, ok := w.heroes[playerID]
	if !ok {
		return 0, false
	}
	return h.Exp, true
}

// Apply implements aftermath.World. Resets and respawns update enemies,
// grants pay the winners, surviving players keep their final health and
// mana, and defeated players lose their penalty and wake at their waypoint
// fully restored. Characters the world does not know are skipped.
func (w *World) Apply(ctx context.Context, r *aftermath.Report) error {
	if r == nil {
		return oops.Code(CodeInvalidReport).Errorf("nil report")
	}
	ctx = logging.WithCombatID(ctx, r.CombatID)
	w.mu.Lock()
	defer w.mu.Unlock()

	for _, reset := range r.Resets {
		if s := w.spawn(ctx, reset.MapID, reset.InstanceID); s != nil {
			s.RespawnAt = time.Time{}
		}
	}
	for _, rs := range r.Respawns {
		if s := w.spawn(ctx, rs.MapID, rs.InstanceID); s != nil {
			s.RespawnAt = rs.At
		}
	}

	for _, g := range r.Grants {
		h := w.hero(ctx, g.PlayerID)
		if h == nil {
			continue
		}
		h.Exp += g.Exp
		h.Gold += g.Gold
		h.Items = append(h.Items, g.Items...)
	}

	defeated := make(map[string]bool, len(r.Defeated))
	for _, d := range r.Defeated {
		defeated[d.PlayerID] = true
		h := w.hero(ctx, d.PlayerID)
		if h == nil {
			continue
		}
		h.Exp = max(0, h.Exp-d.ExpLost)
		h.MapID = h.Waypoint
		h.Health = h.template.Stats.Health
		h.Mana = h.template.Stats.Mana
		w.logger.InfoContext(ctx, "hero returned to waypoint",
			"hero_id", h.ID, "map_id", h.MapID, "exp_lost", d.ExpLost)
	}

	for id, fs := range r.FinalStates {
		if defeated[id] {
			continue
		}
		if h, ok := w.heroes[id]; ok {
			h.Health = fs.Health
			h.Mana = fs.Mana
		}
	}
	return nil
}

func (w *World) hero(ctx context.Context, id string) *Hero {
	h, ok := w.heroes[id]
	if !ok {
		w.logger.WarnContext(ctx, "report names unknown hero", "hero_id", id)
	}
	return h
}

// spawn requires both the map and the instance id to match.
func (w *World) spawn(ctx context.Context, mapID, instanceID string) *Spawn {
	s, ok := w.spawns[instanceID]
	if !ok || s.MapID != mapID {
		w.logger.WarnContext(ctx, "report names unknown spawn", "map_id", mapID, "spawn_id", instanceID)
		return nil
	}
	return s
}
