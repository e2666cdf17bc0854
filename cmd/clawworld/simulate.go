// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/clawworld/clawworld/internal/combat/aftermath"
	"github.com/clawworld/clawworld/internal/combat/ai"
	"github.com/clawworld/clawworld/internal/combat/dice"
	"github.com/clawworld/clawworld/internal/combat/engine"
	"github.com/clawworld/clawworld/internal/config"
	"github.com/clawworld/clawworld/internal/core"
	"github.com/clawworld/clawworld/internal/logging"
)

type simulateOptions struct {
	contentDir string
	hero       string
	target     string
	seed       uint64
	maxTurns   int
}

// NewSimulateCmd creates the simulate subcommand.
func NewSimulateCmd() *cobra.Command {
	opts := simulateOptions{}
	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play one fight offline and print its log",
		Long: `Starts a fight between a hero and a spawned enemy, plays the hero with
the built-in AI and prints the combat log and aftermath. The same seed always
produces the same fight, which makes this handy for balancing content.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSimulate(cmd.Context(), cmd.OutOrStdout(), opts)
		},
	}
	cmd.Flags().StringVar(&opts.contentDir, "content-dir", config.DefaultContentDir, "content pack directory")
	cmd.Flags().StringVar(&opts.hero, "hero", "aria", "hero to play")
	cmd.Flags().StringVar(&opts.target, "target", "meadow-slime-1", "spawn to attack")
	cmd.Flags().Uint64Var(&opts.seed, "seed", 1, "dice seed")
	cmd.Flags().IntVar(&opts.maxTurns, "max-turns", 200, "give up after this many hero turns")
	return cmd
}

func runSimulate(ctx context.Context, out io.Writer, opts simulateOptions) error {
	if ctx == nil {
		ctx = context.Background()
	}
	pack, err := loadPack(opts.contentDir)
	if err != nil {
		return err
	}
	// Logs would interleave with the printed transcript.
	quiet := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := newStack(pack, stackOptions{
		engine: engine.DefaultConfig(),
		seed:   opts.seed,
		logger: quiet,
	})

	spawn, ok := s.world.Spawn(opts.target)
	if !ok {
		return oops.Code("TARGET_NOT_FOUND").With("target", opts.target).Errorf("no spawn named %s", opts.target)
	}
	if err := s.world.Move(opts.hero, spawn.MapID); err != nil {
		return err
	}

	ended := s.bc.Subscribe(core.CombatsStream)
	defer s.bc.Unsubscribe(core.CombatsStream, ended)

	res, err := s.initiator.Initiate(ctx, opts.hero, opts.target)
	if err != nil {
		return err
	}
	ctx = logging.WithCombatID(ctx, res.CombatID)
	fmt.Fprintf(out, "Combat %s: %s vs %s on %s (seed %d)\n\n", res.CombatID, opts.hero, opts.target, spawn.MapID, opts.seed)

	src := dice.New(opts.seed)
	hero := ai.NewSimple()
	for turns := 0; ; turns++ {
		current, ok := s.engine.CurrentTurn(res.CombatID)
		if !ok {
			break
		}
		if turns >= opts.maxTurns {
			return oops.Code("SIMULATION_TOO_LONG").
				With("combat_id", res.CombatID).
				Errorf("combat still running after %d turns", opts.maxTurns)
		}
		if err := playTurn(ctx, s, hero, src, res.CombatID, current); err != nil {
			return err
		}
	}

	lines, err := s.engine.LogsSince(res.CombatID, 0)
	if err != nil {
		return err
	}
	for _, l := range lines {
		fmt.Fprintln(out, l)
	}

	payload, err := awaitEnded(ctx, ended, res.CombatID)
	if err != nil {
		return err
	}
	report, err := s.aftermath.Handle(ctx, payload)
	if err != nil {
		return err
	}
	printReport(out, payload, report)
	return nil
}

// playTurn decides and acts for whoever holds the turn. Enemy turns are
// played by the engine itself, so this only ever sees players.
func playTurn(ctx context.Context, s *stack, decider ai.Decider, src dice.Source, combatID, actorID string) error {
	inst, ok := s.engine.Combat(combatID)
	if !ok {
		return nil
	}
	self, ok := inst.Character(actorID)
	if !ok {
		return oops.Code("CHARACTER_NOT_FOUND").With("character_id", actorID).Errorf("turn holder missing")
	}
	d, err := decider.Decide(ctx, ai.NewSituation(inst, self, s.pack.Catalog(), src))
	if err != nil || d.Action == ai.ActionSkip {
		_, err = s.engine.SkipTurn(ctx, combatID, actorID)
		return err
	}
	_, err = s.engine.ExecuteSkill(ctx, combatID, actorID, d.SkillID, d.TargetID)
	return err
}

func awaitEnded(ctx context.Context, events <-chan core.Event, combatID string) (engine.EndedPayload, error) {
	timeout := time.After(5 * time.Second)
	for {
		select {
		case <-ctx.Done():
			return engine.EndedPayload{}, ctx.Err()
		case <-timeout:
			return engine.EndedPayload{}, oops.Code("ENDED_EVENT_MISSING").
				With("combat_id", combatID).
				Errorf("no ended event")
		case ev := <-events:
			var p engine.EndedPayload
			if err := ev.Decode(&p); err != nil {
				return p, err
			}
			if p.CombatID == combatID {
				return p, nil
			}
		}
	}
}

func printReport(out io.Writer, p engine.EndedPayload, r *aftermath.Report) {
	fmt.Fprintf(out, "\nOutcome: %s (%s)", p.Outcome, p.Status)
	if p.Winner != "" {
		fmt.Fprintf(out, ", winner %s", p.Winner)
	}
	fmt.Fprintln(out)
	if r == nil {
		return
	}
	for _, g := range r.Grants {
		fmt.Fprintf(out, "  %s gains %d exp and %d gold", g.PlayerID, g.Exp, g.Gold)
		if len(g.Items) > 0 {
			fmt.Fprintf(out, " and %v", g.Items)
		}
		fmt.Fprintln(out)
	}
	for _, d := range r.Defeated {
		fmt.Fprintf(out, "  %s was defeated and loses %d exp\n", d.PlayerID, d.ExpLost)
	}
	for _, rs := range r.Respawns {
		fmt.Fprintf(out, "  %s respawns at %s\n", rs.InstanceID, rs.At.Format(time.RFC3339))
	}
}
