// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/clawworld/clawworld/internal/config"
)

// NewValidateContentCmd creates the validate-content subcommand.
func NewValidateContentCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate-content [DIR]",
		Short: "Validate a content pack without starting the server",
		Long: `Loads a content pack the way the server does: the manifest is checked
against the schema and cross references, and every AI script is compiled.
Does NOT start the server or require a database connection.

Useful in CI pipelines to catch content errors early:
  clawworld validate-content ./content`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := config.DefaultContentDir
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidateContent(cmd, dir)
		},
	}
}

func runValidateContent(cmd *cobra.Command, dir string) error {
	pack, err := loadPack(dir)
	if err != nil {
		slog.Error("content validation failed", "dir", dir, "error", err)
		return err
	}
	cmd.Printf("%s %s: %d skills, %d enemies, %d maps, %d heroes, %d scripts\n",
		pack.Name, pack.Version,
		len(pack.Skills), len(pack.Enemies), len(pack.Maps), len(pack.Heroes), len(pack.Scripts))
	return nil
}
