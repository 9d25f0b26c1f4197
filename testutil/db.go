package testutil

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/jmoiron/sqlx"

	"github.com/trezcool/unireg/core"
	"github.com/trezcool/unireg/storage/database"
)

func prepareDB(t *testing.T, conf *core.Config) *sqlx.DB {
	t.Helper()

	db, err := database.Open(conf)
	if err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	if err = database.Migrate(context.Background(), db); err != nil {
		t.Fatalf("PrepareDB() failed: %v", err)
	}
	return db
}

// PrepareDB opens a migrated, empty in-memory database closed at the end of the test.
// It runs on a single connection.
func PrepareDB(t *testing.T) *sqlx.DB {
	t.Helper()
	return prepareDB(t, core.NewTestConfig())
}

// PrepareFileDB opens a migrated, empty SQLite file in a temporary directory,
// with a regular connection pool so that transactions really contend for the write lock.
func PrepareFileDB(t *testing.T) *sqlx.DB {
	t.Helper()

	conf := core.NewTestConfig()
	conf.Database.Path = filepath.Join(t.TempDir(), "unireg.db")
	db := prepareDB(t, conf)
	db.SetMaxOpenConns(8)
	return db
}
