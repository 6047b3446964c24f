// Package dbtest opens migrated throwaway databases for package tests.
package dbtest

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"kryta-backend/internal/db"
)

// New returns a migrated SQLite database in t.TempDir(), closed on cleanup.
func New(t testing.TB) *db.DB {
	t.Helper()

	d, err := db.Connect("sqlite", filepath.Join(t.TempDir(), "kryta.db"))
	require.NoError(t, err)
	t.Cleanup(func() { _ = d.Close() })

	require.NoError(t, db.Migrate(d, zap.NewNop()))
	return d
}
