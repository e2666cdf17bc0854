// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package content

import (
	"errors"
	"fmt"
	"strings"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/ai"
	"github.com/clawworld/clawworld/internal/combat/damage"
	"github.com/clawworld/clawworld/internal/combat/protection"
	"github.com/clawworld/clawworld/internal/combat/settlement"
	"github.com/clawworld/clawworld/internal/combat/skill"
)

// compiled holds the runtime views of a pack.
type compiled struct {
	skills  skill.MapCatalog
	rewards settlement.MapRewards
	maps    protection.MapSet
	zones   *protection.SafeZones
	router  *ai.Router
	enemies map[string]Enemy
}

func cutAI(spec string) (kind, arg string, ok bool) {
	if spec == "" {
		return "", "", false
	}
	kind, arg, _ = strings.Cut(spec, ":")
	return kind, arg, true
}

// compile resolves every name in the pack into engine types. sources maps
// script names to Lua source.
func (p *Pack) compile(sources map[string]string) error {
	c := &compiled{
		skills:  make(skill.MapCatalog, len(p.Skills)),
		rewards: make(settlement.MapRewards, len(p.Enemies)),
		maps:    make(protection.MapSet, len(p.Maps)),
		router:  ai.NewRouter(),
		enemies: make(map[string]Enemy, len(p.Enemies)),
	}
	var errs []error

	for _, s := range p.Skills {
		def, err := s.Definition()
		if err != nil {
			errs = append(errs, err)
			continue
		}
		c.skills[s.ID] = def
	}

	for _, s := range p.Scripts {
		script, err := ai.CompileScript(s.Name, sources[s.Name])
		if err != nil {
			errs = append(errs, fmt.Errorf("script %q: %w", s.Name, err))
			continue
		}
		c.router.AddScript(script)
	}

	for _, e := range p.Enemies {
		c.enemies[e.ID] = e
		if err := c.router.Assign(e.ID, e.AI); err != nil {
			errs = append(errs, fmt.Errorf("enemy %q: %w", e.ID, err))
		}
		reward := settlement.FallbackReward(&combat.Character{MaxHealth: e.Stats.Health})
		if e.Exp != nil {
			reward.Exp = *e.Exp
		}
		if e.Gold != nil {
			reward.Gold = *e.Gold
		}
		for _, l := range e.Loot {
			reward.Loot = append(reward.Loot, settlement.LootEntry{ItemID: l.Item, Chance: l.Chance})
		}
		c.rewards[e.ID] = reward
	}

	for _, m := range p.Maps {
		c.maps[m.ID] = protection.MapInfo{ID: m.ID, Safe: m.Safe, RecommendedLevel: m.RecommendedLevel}
	}
	zones, err := protection.NewSafeZones(p.SafeZones)
	if err != nil {
		errs = append(errs, err)
	}
	c.zones = zones

	if err := errors.Join(errs...); err != nil {
		return err
	}
	p.compiled = c
	return nil
}

// Definition converts the skill into its engine form.
func (s Skill) Definition() (skill.Definition, error) {
	shape, err := skill.ParseTargetShape(s.Target)
	if err != nil {
		return skill.Definition{}, fmt.Errorf("skill %q: %w", s.ID, err)
	}
	dmg, err := damage.ParseType(s.Damage)
	if err != nil {
		return skill.Definition{}, fmt.Errorf("skill %q: %w", s.ID, err)
	}
	return skill.Definition{
		ID:         s.ID,
		Name:       s.Name,
		Target:     shape,
		Damage:     dmg,
		Multiplier: s.Multiplier,
		ManaCost:   s.ManaCost,
		Cooldown:   s.Cooldown,
	}, nil
}

func (p *Pack) mustCompiled() *compiled {
	if p.compiled == nil {
		panic("content: pack was parsed but not loaded")
	}
	return p.compiled
}

// Catalog returns the pack's skills.
func (p *Pack) Catalog() skill.Catalog { return p.mustCompiled().skills }

// Rewards returns per-template enemy rewards.
func (p *Pack) Rewards() settlement.RewardTable { return p.mustCompiled().rewards }

// MapSet returns map metadata for protection checks.
func (p *Pack) MapSet() protection.MapSet { return p.mustCompiled().maps }

// Zones returns the compiled safe-zone patterns.
func (p *Pack) Zones() *protection.SafeZones { return p.mustCompiled().zones }

// Router returns the AI router with every template assigned.
func (p *Pack) Router() *ai.Router { return p.mustCompiled().router }

// EnemyTemplate looks up an enemy template.
func (p *Pack) EnemyTemplate(id string) (Enemy, bool) {
	e, ok := p.mustCompiled().enemies[id]
	return e, ok
}

// FindMap looks up a map by id.
func (p *Pack) FindMap(id string) (Map, bool) {
	for _, m := range p.Maps {
		if m.ID == id {
			return m, true
		}
	}
	return Map{}, false
}

// EnemyFaction is the faction every enemy of a template fights for.
func EnemyFaction(templateID string) string { return "enemy_" + templateID }

// Character builds a fresh combatant for a spawn of this template.
func (e Enemy) Character(spawnID, mapID string) combat.Character {
	c := e.Stats.character()
	c.ID = spawnID
	c.Name = e.Name
	c.FactionID = EnemyFaction(e.ID)
	c.Kind = combat.KindEnemy
	c.Level = e.Level
	c.Skills = append([]string(nil), e.Skills...)
	c.TemplateID = e.ID
	c.EnemyInstanceID = spawnID
	c.EnemyMapID = mapID
	c.RespawnSeconds = e.RespawnSeconds
	return c
}

// Character builds the hero's combatant at full health and mana.
func (h Hero) Character() combat.Character {
	c := h.Stats.character()
	c.ID = h.ID
	c.Name = h.Name
	c.FactionID = h.Faction
	c.Kind = combat.KindPlayer
	c.Level = h.Level
	c.Skills = append([]string(nil), h.Skills...)
	c.PartyLeader = h.Leader
	return c
}

func (s Stats) character() combat.Character {
	return combat.Character{
		Health:          s.Health,
		MaxHealth:       s.Health,
		Mana:            s.Mana,
		MaxMana:         s.Mana,
		PhysicalAttack:  s.PhysicalAttack,
		PhysicalDefense: s.PhysicalDefense,
		MagicAttack:     s.MagicAttack,
		MagicDefense:    s.MagicDefense,
		Speed:           max(s.Speed, 1),
		CritRate:        s.CritRate,
		CritDamage:      s.CritDamage,
		HitRate:         s.HitRate,
		DodgeRate:       s.DodgeRate,
	}
}
