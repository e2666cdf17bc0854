// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package store

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat/aftermath"
)

// CombatSummary is an archived combat without its payouts.
type CombatSummary struct {
	ID      string
	MapID   string
	Type    string
	Status  string
	Outcome string
	Winner  string
	EndedAt time.Time
	Log     []string
}

// ArchiveRepository stores aftermath reports.
type ArchiveRepository struct {
	pool poolIface
}

var _ aftermath.Archive = (*ArchiveRepository)(nil)

// NewArchiveRepository creates a repository over pool.
func NewArchiveRepository(pool poolIface) *ArchiveRepository {
	return &ArchiveRepository{pool: pool}
}

// Archive writes a report and its payouts in one transaction and records
// respawn schedules. A combat that is already archived is left untouched.
func (r *ArchiveRepository) Archive(ctx context.Context, rep *aftermath.Report) error {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return oops.With("operation", "begin archive").With("combat_id", rep.CombatID).Wrap(err)
	}
	defer tx.Rollback(ctx) //nolint:errcheck // no-op after commit

	var winner any
	if rep.Winner != "" {
		winner = rep.Winner
	}
	log := rep.Log
	if log == nil {
		log = []string{}
	}
	_, err = tx.Exec(ctx,
		`INSERT INTO combats (id, map_id, combat_type, status, outcome, winner, ended_at, log)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
		rep.CombatID, rep.MapID, rep.Type.String(), rep.Status.String(), rep.Outcome, winner, rep.EndedAt, log)
	if isUniqueViolation(err) {
		return nil
	}
	if err != nil {
		return oops.With("operation", "insert combat").With("combat_id", rep.CombatID).Wrap(err)
	}

	for _, g := range rep.Grants {
		items := g.Items
		if items == nil {
			items = []string{}
		}
		if _, err := tx.Exec(ctx,
			`INSERT INTO combat_grants (combat_id, player_id, exp, gold, items)
			 VALUES ($1, $2, $3, $4, $5)`,
			rep.CombatID, g.PlayerID, g.Exp, g.Gold, items); err != nil {
			return oops.With("operation", "insert grant").With("combat_id", rep.CombatID).With("player_id", g.PlayerID).Wrap(err)
		}
	}

	for _, d := range rep.Defeated {
		if _, err := tx.Exec(ctx,
			`INSERT INTO combat_defeats (combat_id, player_id, level, exp_lost, all_fallen)
			 VALUES ($1, $2, $3, $4, $5)`,
			rep.CombatID, d.PlayerID, d.Level, d.ExpLost, d.AllPlayersDefeated); err != nil {
			return oops.With("operation", "insert defeat").With("combat_id", rep.CombatID).With("player_id", d.PlayerID).Wrap(err)
		}
	}

	for _, s := range rep.Respawns {
		if _, err := tx.Exec(ctx,
			`INSERT INTO enemy_respawns (map_id, instance_id, respawn_at, combat_id)
			 VALUES ($1, $2, $3, $4)
			 ON CONFLICT (map_id, instance_id) DO UPDATE SET respawn_at = $3, combat_id = $4`,
			s.MapID, s.InstanceID, s.At, rep.CombatID); err != nil {
			return oops.With("operation", "schedule respawn").With("instance_id", s.InstanceID).Wrap(err)
		}
	}

	for _, reset := range rep.Resets {
		if _, err := tx.Exec(ctx,
			`DELETE FROM enemy_respawns WHERE map_id = $1 AND instance_id = $2`,
			reset.MapID, reset.InstanceID); err != nil {
			return oops.With("operation", "reset enemy").With("instance_id", reset.InstanceID).Wrap(err)
		}
	}

	if err := tx.Commit(ctx); err != nil {
		return oops.With("operation", "commit archive").With("combat_id", rep.CombatID).Wrap(err)
	}
	return nil
}

// Combat loads an archived combat.
func (r *ArchiveRepository) Combat(ctx context.Context, combatID string) (*CombatSummary, error) {
	var s CombatSummary
	err := r.pool.QueryRow(ctx,
		`SELECT id, map_id, combat_type, status, outcome, COALESCE(winner, ''), ended_at, log
		 FROM combats WHERE id = $1`, combatID).
		Scan(&s.ID, &s.MapID, &s.Type, &s.Status, &s.Outcome, &s.Winner, &s.EndedAt, &s.Log)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ARCHIVE_NOT_FOUND").With("combat_id", combatID).Errorf("combat %s is not archived", combatID)
	}
	if err != nil {
		return nil, oops.With("operation", "get combat").With("combat_id", combatID).Wrap(err)
	}
	return &s, nil
}

// Grants returns the payouts of an archived combat.
func (r *ArchiveRepository) Grants(ctx context.Context, combatID string) ([]aftermath.Grant, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT player_id, exp, gold, items FROM combat_grants
		 WHERE combat_id = $1 ORDER BY player_id`, combatID)
	if err != nil {
		return nil, oops.With("operation", "list grants").With("combat_id", combatID).Wrap(err)
	}
	defer rows.Close()

	var grants []aftermath.Grant
	for rows.Next() {
		var g aftermath.Grant
		if err := rows.Scan(&g.PlayerID, &g.Exp, &g.Gold, &g.Items); err != nil {
			return nil, oops.With("operation", "scan grant row").Wrap(err)
		}
		grants = append(grants, g)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate grants").Wrap(err)
	}
	return grants, nil
}

// PendingRespawns lists enemies still waiting to respawn at now, so a
// restarted server keeps them dead.
func (r *ArchiveRepository) PendingRespawns(ctx context.Context, now time.Time) ([]aftermath.Respawn, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT map_id, instance_id, respawn_at FROM enemy_respawns
		 WHERE respawn_at > $1 ORDER BY respawn_at`, now)
	if err != nil {
		return nil, oops.With("operation", "list respawns").Wrap(err)
	}
	defer rows.Close()

	var out []aftermath.Respawn
	for rows.Next() {
		var s aftermath.Respawn
		if err := rows.Scan(&s.MapID, &s.InstanceID, &s.At); err != nil {
			return nil, oops.With("operation", "scan respawn row").Wrap(err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.With("operation", "iterate respawns").Wrap(err)
	}
	return out, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}
