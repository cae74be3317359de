package migrate_test

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"testing/fstest"
	"time"

	"github.com/porthealth/porthealth/internal/db/migrate"
	"github.com/porthealth/porthealth/internal/db/testdb"
	"github.com/porthealth/porthealth/migrations"
)

func sqlFile(content string) *fstest.MapFile {
	return &fstest.MapFile{Data: []byte(content)}
}

func Test_RunFS(t *testing.T) {
	t.Run("ok, empty dir", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		meta := migrate.Metadata{
			AppVersion: "v1.0.0",
			Timestamp:  timeRFC3339(t, "2024-03-20T14:56:00Z"),
		}

		got, err := migrate.RunFS(context.Background(), db, fstest.MapFS{}, meta)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		assertMigrations(t, got, []migrate.Migration{})
		assertTable(t, db, []migrate.Migration{})
	})

	t.Run("ok, subdirs and non-sql files are skipped", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		meta := migrate.Metadata{
			AppVersion: "v1.0.0",
			Timestamp:  timeRFC3339(t, "2024-03-20T14:56:00Z"),
		}

		fileSys := fstest.MapFS{
			"1_readme.md":               sqlFile("not sql"),
			"2_create_test_table.sql":   sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
			"sub/3_add_row_to_test.sql": sqlFile("INSERT INTO test_table (id) VALUES (1)"),
		}

		got, err := migrate.RunFS(context.Background(), db, fileSys, meta)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		want := []migrate.Migration{
			{Sequence: 0, Filename: "2_create_test_table.sql", Metadata: meta},
		}
		assertMigrations(t, got, want)
		assertTable(t, db, want)
		assertNrOfRowsInTestTable(t, db, 0)
	})

	t.Run("ok, progression of migrations", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		metas := []migrate.Metadata{
			{AppVersion: "v1.0.0", Timestamp: timeRFC3339(t, "2024-03-20T14:56:00Z")},
			{AppVersion: "v2.0.0", Timestamp: timeRFC3339(t, "2024-04-20T14:56:00Z")},
		}

		run1 := fstest.MapFS{
			"1_create_test_table.sql": sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
		}

		run2 := fstest.MapFS{
			"1_create_test_table.sql": run1["1_create_test_table.sql"],
			"2_add_row.sql":           sqlFile("INSERT INTO test_table (id) VALUES (1)"),
			"3_add_another_row.sql":   sqlFile("INSERT INTO test_table (id) VALUES (2);\nINSERT INTO test_table (id) VALUES (3);"),
		}

		first := migrate.Migration{Sequence: 0, Filename: "1_create_test_table.sql", Metadata: metas[0]}
		second := []migrate.Migration{
			{Sequence: 1, Filename: "2_add_row.sql", Metadata: metas[1]},
			{Sequence: 2, Filename: "3_add_another_row.sql", Metadata: metas[1]},
		}

		t.Run("run_1", func(t *testing.T) {
			got, err := migrate.RunFS(context.Background(), db, run1, metas[0])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			assertMigrations(t, got, []migrate.Migration{first})
			assertTable(t, db, []migrate.Migration{first})
			assertNrOfRowsInTestTable(t, db, 0)
		})

		t.Run("run_2", func(t *testing.T) {
			got, err := migrate.RunFS(context.Background(), db, run2, metas[1])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			assertMigrations(t, got, second)
			assertTable(t, db, append([]migrate.Migration{first}, second...))
			assertNrOfRowsInTestTable(t, db, 3)
		})

		t.Run("run_2 again is a no-op", func(t *testing.T) {
			got, err := migrate.RunFS(context.Background(), db, run2, metas[1])
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}

			assertMigrations(t, got, []migrate.Migration{})
			assertNrOfRowsInTestTable(t, db, 3)
		})
	})

	t.Run("ok, application migrations", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		got, err := migrate.RunFS(context.Background(), db, migrations.FS, migrate.Metadata{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if len(got) == 0 {
			t.Fatalf("expected application migrations to run")
		}
	})

	t.Run("fail, file was removed", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		fileSys := fstest.MapFS{
			"1_create_test_table.sql": sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
		}

		_, err := migrate.RunFS(context.Background(), db, fileSys, migrate.Metadata{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = migrate.RunFS(context.Background(), db, fstest.MapFS{}, migrate.Metadata{})
		if !errors.Is(err, migrate.ErrMigrationsMismatch) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", migrate.ErrMigrationsMismatch, err)
		}
	})

	t.Run("fail, file was renamed", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		_, err := migrate.RunFS(context.Background(), db, fstest.MapFS{
			"1_create_test_table.sql": sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
		}, migrate.Metadata{})
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		_, err = migrate.RunFS(context.Background(), db, fstest.MapFS{
			"1_create_other_table.sql": sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
		}, migrate.Metadata{})
		if !errors.Is(err, migrate.ErrMigrationsMismatch) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", migrate.ErrMigrationsMismatch, err)
		}
	})

	t.Run("fail, invalid sql rolls back all pending migrations", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		fileSys := fstest.MapFS{
			"1_create_test_table.sql": sqlFile("CREATE TABLE test_table (id INTEGER PRIMARY KEY)"),
			"2_broken.sql":            sqlFile("THIS IS NOT SQL"),
		}

		_, err := migrate.RunFS(context.Background(), db, fileSys, migrate.Metadata{})

		var migrationErr migrate.MigrationError
		if !errors.As(err, &migrationErr) {
			t.Fatalf("expected a MigrationError, got %v", err)
		}

		if migrationErr.Sequence != 1 || migrationErr.Filename != "2_broken.sql" {
			t.Errorf("unexpected migration error: %+v", migrationErr)
		}

		_, err = migrate.QueryMigrations(context.Background(), db)
		if !errors.Is(err, migrate.ErrNoTable) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", migrate.ErrNoTable, err)
		}
	})
}

func Test_QueryMigrations(t *testing.T) {
	t.Run("fail, no table", func(t *testing.T) {
		db := testdb.RunUnmigratedWhile(t)

		_, err := migrate.QueryMigrations(context.Background(), db)
		if !errors.Is(err, migrate.ErrNoTable) {
			t.Fatalf("expected error %v, got %v (via errors.Is)", migrate.ErrNoTable, err)
		}
	})
}

func assertTable(t *testing.T, db *sql.DB, want []migrate.Migration) {
	t.Helper()

	got, err := migrate.QueryMigrations(context.Background(), db)
	if err != nil {
		t.Fatalf("failed to query migrations: %v", err)
	}

	assertMigrations(t, got, want)
}

func assertMigrations(t *testing.T, got, want []migrate.Migration) {
	t.Helper()

	if len(got) != len(want) {
		t.Fatalf("got %d migrations, want %d\ngot\n%+v\nwant\n%+v\n", len(got), len(want), got, want)
	}

	for i := range got {
		if !got[i].Equal(want[i]) {
			t.Errorf("got\n%+v\nwant\n%+v\n", got, want)
		}
	}
}

// assertNrOfRowsInTestTable checks the number of rows in the test_table.
// Some migrations add rows to it, enabling us to test if migrations were executed.
func assertNrOfRowsInTestTable(t *testing.T, db *sql.DB, want int) {
	t.Helper()

	row := db.QueryRow("SELECT COUNT(*) FROM test_table")

	var got int
	err := row.Scan(&got)
	if err != nil {
		t.Fatalf("failed to scan test_table: %v", err)
	}

	if got != want {
		t.Errorf("got %d, want %d", got, want)
	}
}

func timeRFC3339(t *testing.T, v string) time.Time {
	t.Helper()

	ts, err := time.Parse(time.RFC3339, v)
	if err != nil {
		t.Fatalf("failed to parse time: %v", err)
	}

	return ts
}
