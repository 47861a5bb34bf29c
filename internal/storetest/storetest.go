// Package storetest opens bootstrapped in-memory stores for tests.
package storetest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/require"

	"shop-backend/internal/config"
	"shop-backend/internal/metadata"
	"shop-backend/internal/store"
)

// New returns a fresh SQLite in-memory store with the catalog schema, the
// system tables and the seeded admin user, plus the catalog registry.
func New(t testing.TB) (*store.Store, *metadata.Registry) {
	t.Helper()

	reg, err := metadata.NewCatalogRegistry()
	require.NoError(t, err)

	ctx := context.Background()
	s, err := store.New(ctx, config.DatabaseConfig{Driver: "sqlite", Name: config.MemoryDB})
	require.NoError(t, err)
	t.Cleanup(s.Close)

	require.NoError(t, s.Bootstrap(ctx, reg))
	return s, reg
}
