// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"os"
	"path/filepath"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/clawworld/clawworld/internal/content"
)

// NewGenSchemaCmd creates the gen-schema subcommand.
func NewGenSchemaCmd() *cobra.Command {
	var out string
	cmd := &cobra.Command{
		Use:   "gen-schema",
		Short: "Write the content pack JSON Schema",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			schema, err := content.GenerateSchema()
			if err != nil {
				return oops.Code("SCHEMA_GENERATE_FAILED").Wrap(err)
			}
			if out == "" || out == "-" {
				_, err := cmd.OutOrStdout().Write(schema)
				return err
			}
			if err := os.MkdirAll(filepath.Dir(out), 0o750); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", out).Wrap(err)
			}
			if err := os.WriteFile(out, schema, 0o600); err != nil {
				return oops.Code("SCHEMA_WRITE_FAILED").With("path", out).Wrap(err)
			}
			cmd.Printf("Generated %s\n", out)
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "", "output file (default: stdout)")
	return cmd
}
