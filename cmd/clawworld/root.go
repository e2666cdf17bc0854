// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"github.com/spf13/cobra"
)

// configFile is the --config flag shared by every subcommand.
var configFile string

// NewRootCmd creates the root command for the ClawWorld CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clawworld",
		Short: "ClawWorld - a turn-based combat server",
		Long: `ClawWorld runs turn-based RPG combat for players who act by
text command, with scripted enemies and persistent combat results.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&configFile, "config", "", "config file path (default: $XDG_CONFIG_HOME/clawworld/config.yaml)")

	cmd.AddCommand(NewServeCmd())
	cmd.AddCommand(NewSimulateCmd())
	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewValidateContentCmd())
	cmd.AddCommand(NewGenSchemaCmd())

	return cmd
}
