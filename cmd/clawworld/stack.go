// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"log/slog"
	"os"
	"time"

	"github.com/samber/oops"

	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/combat/initiation"
	"github.com/clawworld/clawworld/internal/combat/protection"
	"github.com/clawworld/clawworld/internal/combat/settlement"
	"github.com/clawworld/clawworld/internal/command"
	"github.com/clawworld/clawworld/internal/content"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/world"
)

// stack is every in-process component of a running server.
type stack struct {
	pack       *content.Pack
	bc         *core.Broadcaster
	engine     *engine.Engine
	world      *world.World
	initiator  *initiation.Service
	aftermath  *aftermath.Handler
	dispatcher *command.Dispatcher
	limiter    *command.RateLimiter
}

type stackOptions struct {
	engine      engine.Config
	limiter     command.RateLimiterConfig
	waitTimeout time.Duration
	archive     aftermath.Archive
	// seed fixes every combat's dice when non-zero.
	seed   uint64
	logger *slog.Logger
}

func loadPack(dir string) (*content.Pack, error) {
	pack, err := content.Load(os.DirFS(dir))
	if err != nil {
		return nil, oops.Code("CONTENT_INVALID").With("dir", dir).Wrap(err)
	}
	return pack, nil
}

func newStack(pack *content.Pack, opts stackOptions) *stack {
	logger := opts.logger
	if logger == nil {
		logger = slog.Default()
	}
	bc := core.NewBroadcaster()

	engineOpts := []engine.Option{
		engine.WithConfig(opts.engine),
		engine.WithBroadcaster(bc),
		engine.WithCatalog(pack.Catalog()),
		engine.WithDecider(pack.Router()),
		engine.WithSettler(settlement.New(pack.Rewards())),
		engine.WithLogger(logger),
	}
	if opts.seed != 0 {
		seed := opts.seed
		engineOpts = append(engineOpts, engine.WithDice(func(string) dice.Source { return dice.New(seed) }))
	}
	eng := engine.New(engineOpts...)

	w := world.New(pack, world.WithLogger(logger))
	checker := protection.NewChecker(pack.MapSet(), pack.Zones())
	initiator := initiation.NewService(eng, w, checker, initiation.WithLogger(logger))

	afterOpts := []aftermath.Option{aftermath.WithWorld(w), aftermath.WithLogger(logger)}
	if opts.archive != nil {
		afterOpts = append(afterOpts, aftermath.WithArchive(opts.archive))
	}
	handler := aftermath.NewHandler(eng, pack.MapSet(), afterOpts...)

	limiter := command.NewRateLimiter(opts.limiter)
	dispatcherOpts := []command.Option{
		command.WithInitiator(initiator),
		command.WithRateLimiter(limiter),
		command.WithLogger(logger),
	}
	if opts.waitTimeout > 0 {
		dispatcherOpts = append(dispatcherOpts, command.WithWaitTimeout(opts.waitTimeout))
	}

	return &stack{
		pack:       pack,
		bc:         bc,
		engine:     eng,
		world:      w,
		initiator:  initiator,
		aftermath:  handler,
		dispatcher: command.NewDispatcher(eng, dispatcherOpts...),
		limiter:    limiter,
	}
}
