// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

// Package content loads the game data a combat server runs on: skills, enemy
// templates, maps with their spawns, starting heroes and Lua AI scripts.
//
// A pack is a directory holding pack.yaml and the script files it names.
package content

import (
	"errors"
	"fmt"
	"io/fs"
	"path"
	"regexp"

	"github.com/Masterminds/semver/v3"
	"gopkg.in/yaml.v3"

	"github.com/clawworld/clawworld/internal/combat/skill"
)

// ManifestFile is the pack manifest inside a pack directory.
const ManifestFile = "pack.yaml"

// EngineVersion is the content format this build understands. A pack's
// engine constraint must accept it.
const EngineVersion = "1.0.0"

// Pack is a parsed pack.yaml.
type Pack struct {
	Name    string `yaml:"name" jsonschema:"pattern=^[a-z][a-z0-9-]*$"`
	Version string `yaml:"version"`
	// Engine is a semver constraint on EngineVersion, such as "^1.0".
	Engine    string   `yaml:"engine,omitempty"`
	SafeZones []string `yaml:"safe_zones,omitempty"`
	Skills    []Skill  `yaml:"skills,omitempty"`
	Enemies   []Enemy  `yaml:"enemies,omitempty"`
	Maps      []Map    `yaml:"maps"`
	Heroes    []Hero   `yaml:"heroes,omitempty"`
	Scripts   []Script `yaml:"scripts,omitempty"`

	version  *semver.Version
	compiled *compiled
}

// Skill is a skill definition.
type Skill struct {
	ID         string  `yaml:"id"`
	Name       string  `yaml:"name"`
	Target     string  `yaml:"target" jsonschema:"enum=self,enum=ally,enum=allies,enum=enemy,enum=enemies"`
	Damage     string  `yaml:"damage" jsonschema:"enum=physical,enum=magical,enum=none"`
	Multiplier float64 `yaml:"multiplier" jsonschema:"minimum=0"`
	ManaCost   int     `yaml:"mana_cost,omitempty" jsonschema:"minimum=0"`
	Cooldown   int     `yaml:"cooldown,omitempty" jsonschema:"minimum=0"`
}

// Stats are a combatant's base attributes.
type Stats struct {
	Health          int     `yaml:"health" jsonschema:"minimum=1"`
	Mana            int     `yaml:"mana,omitempty" jsonschema:"minimum=0"`
	PhysicalAttack  int     `yaml:"physical_attack,omitempty" jsonschema:"minimum=0"`
	PhysicalDefense int     `yaml:"physical_defense,omitempty" jsonschema:"minimum=0"`
	MagicAttack     int     `yaml:"magic_attack,omitempty" jsonschema:"minimum=0"`
	MagicDefense    int     `yaml:"magic_defense,omitempty" jsonschema:"minimum=0"`
	Speed           int     `yaml:"speed" jsonschema:"minimum=1"`
	CritRate        float64 `yaml:"crit_rate,omitempty" jsonschema:"minimum=0,maximum=1"`
	CritDamage      float64 `yaml:"crit_damage,omitempty" jsonschema:"minimum=0"`
	HitRate         float64 `yaml:"hit_rate,omitempty" jsonschema:"minimum=0,maximum=1"`
	DodgeRate       float64 `yaml:"dodge_rate,omitempty" jsonschema:"minimum=0,maximum=1"`
}

// Enemy is an enemy template.
type Enemy struct {
	ID     string   `yaml:"id"`
	Name   string   `yaml:"name"`
	Level  int      `yaml:"level" jsonschema:"minimum=1"`
	Stats  Stats    `yaml:"stats"`
	Skills []string `yaml:"skills,omitempty"`
	// AI selects the decider: "simple", "simple:<targeting>" or "lua:<script>".
	AI string `yaml:"ai,omitempty"`
	// Exp and Gold override the health-based fallback reward.
	Exp            *int   `yaml:"exp,omitempty" jsonschema:"minimum=0"`
	Gold           *int   `yaml:"gold,omitempty" jsonschema:"minimum=0"`
	Loot           []Loot `yaml:"loot,omitempty"`
	RespawnSeconds int    `yaml:"respawn_seconds,omitempty" jsonschema:"minimum=0"`
}

// Loot is one possible drop.
type Loot struct {
	Item   string  `yaml:"item"`
	Chance float64 `yaml:"chance" jsonschema:"minimum=0,maximum=1"`
}

// Map is a map and the enemies placed on it.
type Map struct {
	ID               string  `yaml:"id"`
	Name             string  `yaml:"name"`
	Safe             bool    `yaml:"safe,omitempty"`
	RecommendedLevel *int    `yaml:"recommended_level,omitempty" jsonschema:"minimum=1"`
	Spawns           []Spawn `yaml:"spawns,omitempty"`
}

// Spawn places one persistent enemy on a map. Spawns sharing a group are
// fought together.
type Spawn struct {
	ID    string `yaml:"id"`
	Enemy string `yaml:"enemy"`
	Group string `yaml:"group,omitempty"`
}

// Hero is a starting player character.
type Hero struct {
	ID      string `yaml:"id"`
	Name    string `yaml:"name"`
	Faction string `yaml:"faction"`
	Party   string `yaml:"party,omitempty"`
	Map     string `yaml:"map"`
	// Waypoint is where the hero returns after being defeated. It defaults
	// to the starting map.
	Waypoint string   `yaml:"waypoint,omitempty"`
	Level    int      `yaml:"level" jsonschema:"minimum=1"`
	Exp      int      `yaml:"exp,omitempty" jsonschema:"minimum=0"`
	Gold     int      `yaml:"gold,omitempty" jsonschema:"minimum=0"`
	Leader   bool     `yaml:"leader,omitempty"`
	Stats    Stats    `yaml:"stats"`
	Skills   []string `yaml:"skills,omitempty"`
}

// Script names a Lua AI source file relative to the pack directory.
type Script struct {
	Name string `yaml:"name"`
	File string `yaml:"file"`
}

var idPattern = regexp.MustCompile(`^[a-z][a-z0-9_:.-]*$`)

// Load reads, validates and compiles the pack in fsys.
func Load(fsys fs.FS) (*Pack, error) {
	data, err := fs.ReadFile(fsys, ManifestFile)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", ManifestFile, err)
	}
	p, err := Parse(data)
	if err != nil {
		return nil, err
	}
	sources := make(map[string]string, len(p.Scripts))
	for _, s := range p.Scripts {
		src, err := fs.ReadFile(fsys, path.Clean(s.File))
		if err != nil {
			return nil, fmt.Errorf("script %q: %w", s.Name, err)
		}
		sources[s.Name] = string(src)
	}
	if err := p.compile(sources); err != nil {
		return nil, err
	}
	return p, nil
}

// Parse validates a manifest against the schema and the cross-reference
// rules. Scripts are not read; use Load for a runnable pack.
func Parse(data []byte) (*Pack, error) {
	if err := ValidateSchema(data); err != nil {
		return nil, err
	}
	var p Pack
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("invalid YAML: %w", err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

// Validate checks the rules a schema cannot express: versions, unique ids
// and references between sections.
func (p *Pack) Validate() error {
	var errs []error
	v, err := semver.NewVersion(p.Version)
	if err != nil {
		errs = append(errs, fmt.Errorf("version %q: %w", p.Version, err))
	}
	p.version = v
	if err := CheckEngine(p.Engine); err != nil {
		errs = append(errs, err)
	}

	skills := make(map[string]bool)
	for _, s := range p.Skills {
		errs = append(errs, checkID("skill", s.ID, skills)...)
	}
	known := func(kind, owner string, ids []string) {
		for _, id := range ids {
			if id != skill.BasicAttackID && !skills[id] {
				errs = append(errs, fmt.Errorf("%s %q: unknown skill %q", kind, owner, id))
			}
		}
	}

	scripts := make(map[string]bool)
	for _, s := range p.Scripts {
		errs = append(errs, checkID("script", s.Name, scripts)...)
	}

	enemies := make(map[string]bool)
	for _, e := range p.Enemies {
		errs = append(errs, checkID("enemy", e.ID, enemies)...)
		known("enemy", e.ID, e.Skills)
		if kind, name, ok := cutAI(e.AI); ok && kind == "lua" && !scripts[name] {
			errs = append(errs, fmt.Errorf("enemy %q: unknown AI script %q", e.ID, name))
		}
	}

	maps := make(map[string]bool)
	spawns := make(map[string]bool)
	for _, m := range p.Maps {
		errs = append(errs, checkID("map", m.ID, maps)...)
		for _, s := range m.Spawns {
			errs = append(errs, checkID("spawn", s.ID, spawns)...)
			if !enemies[s.Enemy] {
				errs = append(errs, fmt.Errorf("spawn %q: unknown enemy %q", s.ID, s.Enemy))
			}
		}
	}

	heroes := make(map[string]bool)
	for _, h := range p.Heroes {
		errs = append(errs, checkID("hero", h.ID, heroes)...)
		if spawns[h.ID] {
			errs = append(errs, fmt.Errorf("hero %q: id is also a spawn id", h.ID))
		}
		known("hero", h.ID, h.Skills)
		if !maps[h.Map] {
			errs = append(errs, fmt.Errorf("hero %q: unknown map %q", h.ID, h.Map))
		}
		if h.Waypoint != "" && !maps[h.Waypoint] {
			errs = append(errs, fmt.Errorf("hero %q: unknown waypoint %q", h.ID, h.Waypoint))
		}
	}
	return errors.Join(errs...)
}

// CheckEngine reports whether a pack engine constraint accepts this build.
// An empty constraint accepts every build.
func CheckEngine(constraint string) error {
	if constraint == "" {
		return nil
	}
	c, err := semver.NewConstraint(constraint)
	if err != nil {
		return fmt.Errorf("engine constraint %q: %w", constraint, err)
	}
	if !c.Check(semver.MustParse(EngineVersion)) {
		return fmt.Errorf("pack requires engine %s, this build is %s", constraint, EngineVersion)
	}
	return nil
}

// SemVer returns the parsed pack version.
func (p *Pack) SemVer() *semver.Version { return p.version }

func checkID(kind, id string, seen map[string]bool) []error {
	var errs []error
	if !idPattern.MatchString(id) {
		errs = append(errs, fmt.Errorf("%s id %q must start with a-z and contain only a-z, 0-9, '_', ':', '.', '-'", kind, id))
	}
	if seen[id] {
		errs = append(errs, fmt.Errorf("duplicate %s id %q", kind, id))
	}
	seen[id] = true
	return errs
}
