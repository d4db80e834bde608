// Package repostest opens throwaway in-memory databases for tests.
package repostest

import (
	"context"
	"database/sql"
	"testing"

	"github.com/canvasly/canvasly-server/models"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	_ "modernc.org/sqlite"
)

// NewDB returns a bun DB over a private in-memory sqlite database with the
// userdata schema attached and all tables created. A single connection is
// kept open so the memory database lives as long as the test.
func NewDB(t testing.TB) *bun.DB {
	t.Helper()

	sqldb, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	sqldb.SetMaxOpenConns(1)
	sqldb.SetMaxIdleConns(1)
	sqldb.SetConnMaxLifetime(0)

	db := bun.NewDB(sqldb, sqlitedialect.New())
	t.Cleanup(func() { _ = db.Close() })

	ctx := context.Background()
	_, err = db.ExecContext(ctx, "ATTACH DATABASE ':memory:' AS userdata")
	require.NoError(t, err)

	require.NoError(t, models.CreateTables(ctx, db))

	return db
}
