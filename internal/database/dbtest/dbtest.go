// Package dbtest opens throwaway sqlite stores for tests.
package dbtest

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/matthieukhl/orderpulse/internal/config"
	"github.com/matthieukhl/orderpulse/internal/database"
)

// Config returns a sqlite store config rooted in t's temp dir.
func Config(t *testing.T) config.StoreConfig {
	t.Helper()
	path := filepath.Join(t.TempDir(), "orderpulse.db")
	return config.StoreConfig{
		Driver:       "sqlite",
		DSN:          path + "?_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
		MaxOpenConns: 1,
	}
}

// New opens a sqlite store, without tables, closed when t ends.
func New(t *testing.T) *database.DB {
	t.Helper()
	cfg := Config(t)
	db, err := database.NewConnection(context.Background(), &cfg)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

// NewWithSchema opens a sqlite store with the customers and orders tables.
func NewWithSchema(t *testing.T) *database.DB {
	t.Helper()
	db := New(t)
	require.NoError(t, db.SetupSchema(context.Background()))
	return db
}
