// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 ClawWorld Contributors

//go:build integration

package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/clawworld/clawworld/internal/store"
)

func TestMigrator_FullCycle(t *testing.T) {
	ctx := context.Background()
	connStr, terminate, err := startPostgres(ctx)
	require.NoError(t, err)
	defer terminate()

	migrator, err := store.NewMigrator(connStr)
	require.NoError(t, err)
	defer migrator.Close()

	version, dirty, err := migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	pending, err := migrator.Pending()
	require.NoError(t, err)
	require.NotEmpty(t, pending)

	require.NoError(t, migrator.Up())
	latest, _, err := migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, pending[len(pending)-1], latest)

	require.NoError(t, migrator.Steps(-1))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, latest-1, version)

	require.NoError(t, migrator.Steps(1))
	require.NoError(t, migrator.Down())
	version, dirty, err = migrator.Version()
	require.NoError(t, err)
	assert.Zero(t, version)
	assert.False(t, dirty)

	require.NoError(t, migrator.Up())
	require.NoError(t, migrator.Force(1))
	version, _, err = migrator.Version()
	require.NoError(t, err)
	assert.Equal(t, uint(1), version)
}
