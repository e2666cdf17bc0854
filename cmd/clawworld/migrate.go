// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

package main

import (
	"os"
	"strconv"
	"strings"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/clawworld/clawworld/internal/config"
	"github.com/clawworld/clawworld/internal/store"
)

// NewMigrateCmd creates the migrate command and its subcommands.
func NewMigrateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Manage the combat archive schema",
		Long:  `Apply, roll back or inspect the PostgreSQL schema. DATABASE_URL must be set.`,
	}
	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				if len(pending) == 0 {
					cmd.Println("Schema is up to date")
					return nil
				}
				if err := m.Up(); err != nil {
					return err
				}
				for _, v := range pending {
					name, _ := store.MigrationName(v) //nolint:errcheck // version came from the embedded set
					cmd.Printf("Applied %s\n", name)
				}
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "down",
		Short: "Roll back the most recent migration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Steps(-1); err != nil {
					return err
				}
				version, _, err := m.Version()
				if err != nil {
					return err
				}
				cmd.Printf("Rolled back to version %d\n", version)
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Show the applied schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withMigrator(func(m *store.Migrator) error {
				version, dirty, err := m.Version()
				if err != nil {
					return err
				}
				pending, err := m.Pending()
				if err != nil {
					return err
				}
				cmd.Printf("Version: %d (dirty: %t, pending: %d)\n", version, dirty, len(pending))
				return nil
			})
		},
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "force VERSION",
		Short: "Mark a version as applied after a failed migration",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := parseForceVersion(args[0])
			if err != nil {
				return err
			}
			return withMigrator(func(m *store.Migrator) error {
				if err := m.Force(version); err != nil {
					return err
				}
				cmd.Printf("Forced version %d\n", version)
				return nil
			})
		},
	})
	return cmd
}

func getDatabaseURL() (string, error) {
	url := os.Getenv(config.DatabaseURLEnv)
	if url == "" {
		return "", oops.Code("CONFIG_INVALID").Errorf("%s environment variable is required", config.DatabaseURLEnv)
	}
	return url, nil
}

func parseForceVersion(s string) (int, error) {
	v, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, oops.Code("INVALID_VERSION").With("input", s).Errorf("version must be an integer")
	}
	return v, nil
}

func withMigrator(fn func(m *store.Migrator) error) error {
	url, err := getDatabaseURL()
	if err != nil {
		return err
	}
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // close error is secondary
	return fn(m)
}

// migrateUp applies pending migrations before serving.
func migrateUp(url string) error {
	m, err := store.NewMigrator(url)
	if err != nil {
		return err
	}
	defer func() { _ = m.Close() }() //nolint:errcheck // close error is secondary
	return m.Up()
}
