// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/pashagolub/pgxmock/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/pkg/errutil"
)

var testEnded = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

func testReport() *aftermath.Report {
	return &aftermath.Report{
		CombatID: "01J0COMBAT",
		MapID:    "crossroads",
		Type:     combat.TypePVE,
		Status:   combat.StatusFinished,
		Outcome:  "victory",
		Winner:   "dawn",
		EndedAt:  testEnded,
		Log:      []string{"[1] Aria attacks"},
		Grants: []aftermath.Grant{
			{PlayerID: "aria", Exp: 90, Gold: 20, Items: []string{"wolf_pelt"}},
		},
		Defeated: []aftermath.Defeat{{PlayerID: "brom", Level: 12, ExpLost: 45}},
		Respawns: []aftermath.Respawn{{MapID: "crossroads", InstanceID: "camp-1", At: testEnded.Add(time.Minute)}},
		Resets:   []combat.EnemyReset{{MapID: "crossroads", InstanceID: "camp-2"}},
	}
}

func TestArchiveRepository_Archive(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		wantErr   string
	}{
		{
			name: "writes everything in one transaction",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO combats `).
					WithArgs("01J0COMBAT", "crossroads", "pve", "finished", "victory", "dawn", testEnded, []string{"[1] Aria attacks"}).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO combat_grants`).
					WithArgs("01J0COMBAT", "aria", 90, 20, []string{"wolf_pelt"}).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO combat_defeats`).
					WithArgs("01J0COMBAT", "brom", 12, 45, false).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO enemy_respawns`).
					WithArgs("crossroads", "camp-1", testEnded.Add(time.Minute), "01J0COMBAT").
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`DELETE FROM enemy_respawns`).
					WithArgs("crossroads", "camp-2").
					WillReturnResult(pgxmock.NewResult("DELETE", 1))
				mock.ExpectCommit()
			},
		},
		{
			name: "already archived is not an error",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO combats `).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(&pgconn.PgError{Code: pgerrcode.UniqueViolation})
				mock.ExpectRollback()
			},
		},
		{
			name: "grant failure rolls back",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin()
				mock.ExpectExec(`INSERT INTO combats `).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(),
						pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnResult(pgxmock.NewResult("INSERT", 1))
				mock.ExpectExec(`INSERT INTO combat_grants`).
					WithArgs(pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg(), pgxmock.AnyArg()).
					WillReturnError(errors.New("connection reset"))
				mock.ExpectRollback()
			},
			wantErr: "connection reset",
		},
		{
			name: "begin failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectBegin().WillReturnError(errors.New("too many clients"))
			},
			wantErr: "too many clients",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			err = NewArchiveRepository(mock).Archive(context.Background(), testReport())
			if tt.wantErr != "" {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			} else {
				require.NoError(t, err)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestArchiveRepository_ArchiveWithoutWinner(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`INSERT INTO combats `).
		WithArgs("c2", "wilds", "pve", "timeout", "timeout", nil, testEnded, []string{}).
		WillReturnResult(pgxmock.NewResult("INSERT", 1))
	mock.ExpectCommit()

	err = NewArchiveRepository(mock).Archive(context.Background(), &aftermath.Report{
		CombatID: "c2",
		MapID:    "wilds",
		Type:     combat.TypePVE,
		Status:   combat.StatusTimeout,
		Outcome:  "timeout",
		EndedAt:  testEnded,
	})
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepository_Combat(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT id, map_id, combat_type`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"id", "map_id", "combat_type", "status", "outcome", "winner", "ended_at", "log"}).
			AddRow("c1", "crossroads", "pve", "finished", "victory", "dawn", testEnded, []string{"a", "b"}))
	mock.ExpectQuery(`SELECT id, map_id, combat_type`).
		WithArgs("missing").
		WillReturnError(pgx.ErrNoRows)

	repo := NewArchiveRepository(mock)
	s, err := repo.Combat(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, &CombatSummary{
		ID: "c1", MapID: "crossroads", Type: "pve", Status: "finished",
		Outcome: "victory", Winner: "dawn", EndedAt: testEnded, Log: []string{"a", "b"},
	}, s)

	_, err = repo.Combat(context.Background(), "missing")
	errutil.AssertErrorCode(t, err, "ARCHIVE_NOT_FOUND")
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepository_Grants(t *testing.T) {
	mock, err := pgxmock.NewPool()
	require.NoError(t, err)
	defer mock.Close()

	mock.ExpectQuery(`SELECT player_id, exp, gold, items FROM combat_grants`).
		WithArgs("c1").
		WillReturnRows(pgxmock.NewRows([]string{"player_id", "exp", "gold", "items"}).
			AddRow("aria", 90, 20, []string{"wolf_pelt"}).
			AddRow("brom", 90, 20, []string{}))

	grants, err := NewArchiveRepository(mock).Grants(context.Background(), "c1")
	require.NoError(t, err)
	assert.Equal(t, []aftermath.Grant{
		{PlayerID: "aria", Exp: 90, Gold: 20, Items: []string{"wolf_pelt"}},
		{PlayerID: "brom", Exp: 90, Gold: 20, Items: []string{}},
	}, grants)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestArchiveRepository_PendingRespawns(t *testing.T) {
	tests := []struct {
		name      string
		setupMock func(mock pgxmock.PgxPoolIface)
		want      []aftermath.Respawn
		wantErr   bool
	}{
		{
			name: "lists future respawns",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT map_id, instance_id, respawn_at FROM enemy_respawns`).
					WithArgs(testEnded).
					WillReturnRows(pgxmock.NewRows([]string{"map_id", "instance_id", "respawn_at"}).
						AddRow("crossroads", "camp-1", testEnded.Add(time.Minute)))
			},
			want: []aftermath.Respawn{{MapID: "crossroads", InstanceID: "camp-1", At: testEnded.Add(time.Minute)}},
		},
		{
			name: "query failure",
			setupMock: func(mock pgxmock.PgxPoolIface) {
				mock.ExpectQuery(`SELECT map_id, instance_id, respawn_at FROM enemy_respawns`).
					WithArgs(testEnded).
					WillReturnError(errors.New("connection refused"))
			},
			wantErr: true,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mock, err := pgxmock.NewPool()
			require.NoError(t, err)
			defer mock.Close()
			tt.setupMock(mock)

			got, err := NewArchiveRepository(mock).PendingRespawns(context.Background(), testEnded)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.want, got)
			}
			assert.NoError(t, mock.ExpectationsWereMet())
		})
	}
}

func TestIsUniqueViolation(t *testing.T) {
	assert.True(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.UniqueViolation}))
	assert.False(t, isUniqueViolation(&pgconn.PgError{Code: pgerrcode.ForeignKeyViolation}))
	assert.False(t, isUniqueViolation(errors.New("plain")))
	assert.False(t, isUniqueViolation(nil))
}
