// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

//go:build integration

package store_test

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/clawworld/clawworld/internal/combat"
	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/internal/store"
)

// startPostgres runs a throwaway PostgreSQL and returns its URL.
func startPostgres(ctx context.Context) (string, func(), error) {
	container, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("clawworld_test"),
		postgres.WithUsername("clawworld"),
		postgres.WithPassword("clawworld"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(30*time.Second),
		),
	)
	if err != nil {
		return "", nil, err
	}
	connStr, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		return "", nil, err
	}
	return connStr, func() { _ = container.Terminate(ctx) }, nil
}

var _ = Describe("ArchiveRepository", func() {
	var (
		ctx       context.Context
		pool      *pgxpool.Pool
		repo      *store.ArchiveRepository
		terminate func()
		endedAt   time.Time
	)

	BeforeEach(func() {
		ctx = context.Background()
		connStr, stop, err := startPostgres(ctx)
		Expect(err).NotTo(HaveOccurred())
		terminate = stop

		migrator, err := store.NewMigrator(connStr)
		Expect(err).NotTo(HaveOccurred())
		Expect(migrator.Up()).To(Succeed())
		Expect(migrator.Close()).To(Succeed())

		pool, err = store.Connect(ctx, connStr, store.DefaultConnectOptions())
		Expect(err).NotTo(HaveOccurred())
		repo = store.NewArchiveRepository(pool)
		endedAt = time.Now().UTC().Truncate(time.Microsecond)
	})

	AfterEach(func() {
		pool.Close()
		terminate()
	})

	report := func(id string) *aftermath.Report {
		return &aftermath.Report{
			CombatID: id,
			MapID:    "crossroads",
			Type:     combat.TypePVE,
			Status:   combat.StatusFinished,
			Outcome:  "victory",
			Winner:   "dawn",
			EndedAt:  endedAt,
			Log:      []string{"[1] Aria attacks", "[2] Bandit is defeated"},
			Grants: []aftermath.Grant{
				{PlayerID: "aria", Exp: 90, Gold: 20, Items: []string{"bandit_map"}},
				{PlayerID: "brom", Exp: 90, Gold: 20},
			},
			Defeated: []aftermath.Defeat{{PlayerID: "brom", Level: 12, ExpLost: 45}},
			Respawns: []aftermath.Respawn{{MapID: "crossroads", InstanceID: "camp-1", At: endedAt.Add(time.Hour)}},
		}
	}

	It("archives a combat with its payouts", func() {
		Expect(repo.Archive(ctx, report("c1"))).To(Succeed())

		summary, err := repo.Combat(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Winner).To(Equal("dawn"))
		Expect(summary.Type).To(Equal("pve"))
		Expect(summary.Log).To(HaveLen(2))
		Expect(summary.EndedAt).To(BeTemporally("~", endedAt, time.Millisecond))

		grants, err := repo.Grants(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(grants).To(HaveLen(2))
		Expect(grants[0].Items).To(Equal([]string{"bandit_map"}))
		Expect(grants[1].Items).To(BeEmpty())
	})

	It("ignores a second archive of the same combat", func() {
		Expect(repo.Archive(ctx, report("c1"))).To(Succeed())
		again := report("c1")
		again.Winner = "dusk"
		Expect(repo.Archive(ctx, again)).To(Succeed())

		summary, err := repo.Combat(ctx, "c1")
		Expect(err).NotTo(HaveOccurred())
		Expect(summary.Winner).To(Equal("dawn"))
	})

	It("tracks respawns until a reset clears them", func() {
		Expect(repo.Archive(ctx, report("c1"))).To(Succeed())
		pending, err := repo.PendingRespawns(ctx, endedAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(HaveLen(1))
		Expect(pending[0].InstanceID).To(Equal("camp-1"))

		Expect(repo.Archive(ctx, &aftermath.Report{
			CombatID: "c2",
			MapID:    "crossroads",
			Outcome:  "retreat",
			EndedAt:  endedAt,
			Resets:   []combat.EnemyReset{{MapID: "crossroads", InstanceID: "camp-1"}},
		})).To(Succeed())
		pending, err = repo.PendingRespawns(ctx, endedAt)
		Expect(err).NotTo(HaveOccurred())
		Expect(pending).To(BeEmpty())
	})

	It("reports unarchived combats", func() {
		_, err := repo.Combat(ctx, "nope")
		Expect(err).To(HaveOccurred())
	})
})
