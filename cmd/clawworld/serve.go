// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/command"
	"github.com/clawworld/clawworld/internal/config"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/gateway"
	"github.com/clawworld/clawworld/internal/logging"
	"github.com/clawworld/clawworld/internal/observability"
	"github.com/clawworld/clawworld/internal/store"
)

// sessionMaxIdle is how long a disconnected player's session is kept.
const sessionMaxIdle = time.Hour

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the combat server",
		Long: `Run the combat engine, the websocket gateway players connect to,
and the metrics server. With DATABASE_URL set, finished combats are archived
in PostgreSQL and pending enemy respawns survive restarts.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configFile, cmd.Flags())
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runServe(ctx, cfg)
		},
	}
	config.BindFlags(cmd.Flags())
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := logging.SetupLevel("clawworld", version, cfg.LogFormat, logging.ParseLevel(cfg.LogLevel), nil)
	slog.SetDefault(logger)

	engineCfg, err := cfg.EngineConfig()
	if err != nil {
		return err
	}
	pack, err := loadPack(cfg.ContentDir)
	if err != nil {
		return err
	}

	opts := stackOptions{
		engine:      engineCfg,
		limiter:     cfg.RateLimiterConfig(),
		waitTimeout: cfg.Engine.WaitTimeout,
		logger:      logger,
	}

	var repo *store.ArchiveRepository
	if cfg.DatabaseURL != "" {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		pool, err := store.Connect(ctx, cfg.DatabaseURL, store.DefaultConnectOptions())
		if err != nil {
			return err
		}
		defer pool.Close()
		repo = store.NewArchiveRepository(pool)
		opts.archive = repo
	} else {
		logger.Warn("DATABASE_URL not set; combat results are kept in memory only")
	}

	s := newStack(pack, opts)
	if repo != nil {
		pending, err := repo.PendingRespawns(ctx, time.Now())
		if err != nil {
			return err
		}
		restored := s.world.RestoreRespawns(pending)
		logger.Info("restored enemy respawns", "pending", len(pending), "restored", restored)
	}

	var obs *observability.Server
	gatewayOpts := []gateway.Option{
		gateway.WithRateLimiter(s.limiter),
		gateway.WithOriginPatterns(cfg.AllowedOrigins...),
		gateway.WithLogger(logger),
	}
	if cfg.MetricsAddr != "" {
		obs = observability.NewServer(cfg.MetricsAddr, func() bool { return ctx.Err() == nil })
		engine.RegisterMetrics(obs.Registry())
		command.RegisterMetrics(obs.Registry())
		s.limiter.RegisterMetrics(obs.Registry())
		gatewayOpts = append(gatewayOpts, gateway.WithMetrics(obs.Metrics()))
	}
	sessions := core.NewSessionManager(nil)
	gw := gateway.New(s.dispatcher, sessions, s.bc, gatewayOpts...)

	logger.Info("starting combat server",
		"gateway_addr", cfg.GatewayAddr,
		"metrics_addr", cfg.MetricsAddr,
		"content", pack.Name,
		"content_version", pack.Version,
		"human_turn_policy", string(engineCfg.HumanTurnPolicy),
		"archive", archiveKind(s.aftermath.Archive()),
	)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		s.engine.RunSweeper(gctx, cfg.Engine.SweepInterval)
		return nil
	})
	g.Go(func() error { return s.aftermath.Run(gctx, s.bc) })
	g.Go(func() error {
		s.limiter.Run(gctx, command.DefaultCleanupInterval)
		return nil
	})
	g.Go(func() error {
		ticker := time.NewTicker(command.DefaultCleanupInterval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return nil
			case <-ticker.C:
				if n := sessions.Reap(sessionMaxIdle); n > 0 {
					logger.Debug("reaped idle sessions", "count", n)
				}
			}
		}
	})
	g.Go(func() error { return gw.Run(gctx, cfg.GatewayAddr) })
	if obs != nil {
		g.Go(func() error { return obs.Run(gctx) })
	}

	err = g.Wait()
	logger.Info("combat server stopped", "error", err)
	return err
}

func archiveKind(a aftermath.Archive) string {
	if _, ok := a.(*store.ArchiveRepository); ok {
		return "postgres"
	}
	return "memory"
}
