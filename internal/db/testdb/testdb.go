package testdb

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"
	"time"

	"github.com/porthealth/porthealth/internal/db"
	"github.com/porthealth/porthealth/internal/db/migrate"
	"github.com/porthealth/porthealth/migrations"
)

// Pools is a pair of connection pools to the same database.
type Pools struct {
	Write *sql.DB
	Read  *sql.DB
}

// RunWhile runs an in-memory database while the provided test is executing.
// It returns an empty database with all migrations applied.
//
// In-memory databases are private to a connection, so the returned *sql.DB
// is a write pool and should be used for reading as well.
func RunWhile(t testing.TB) *sql.DB {
	t.Helper()

	sqlDB := RunUnmigratedWhile(t)
	runMigrations(t, sqlDB)

	return sqlDB
}

// RunUnmigratedWhile runs an in-memory database while the provided test is executing.
// It returns an empty database without any migrations applied.
func RunUnmigratedWhile(t testing.TB) *sql.DB {
	t.Helper()

	return open(t, db.DriverCGO, ":memory:", true)
}

// RunFileWhile runs a database in a temporary file while the provided test is
// executing, using the given driver. It returns migrated read and write pools,
// which is what the application runs with.
func RunFileWhile(t testing.TB, driver db.Driver) Pools {
	t.Helper()

	file := filepath.Join(t.TempDir(), "test.db")

	pools := Pools{
		Write: open(t, driver, file, true),
	}

	// the read pool can only be opened once the file exists.
	runMigrations(t, pools.Write)

	pools.Read = open(t, driver, file, false)

	return pools
}

func open(t testing.TB, driver db.Driver, file string, write bool) *sql.DB {
	t.Helper()

	sqlDB, err := db.OpenSQLite(driver, file, write)
	if err != nil {
		t.Fatalf("failed to open database: %v", err)
	}

	t.Cleanup(func() {
		err := sqlDB.Close()
		if err != nil {
			t.Errorf("failed to close database: %v", err)
		}
	})

	return sqlDB
}

func runMigrations(t testing.TB, sqlDB *sql.DB) {
	t.Helper()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_, err := migrate.RunFS(ctx, sqlDB, migrations.FS, migrate.Metadata{})
	if err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}
}
