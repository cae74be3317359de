package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/porthealth/porthealth/internal"
	"github.com/porthealth/porthealth/internal/db"
	"github.com/porthealth/porthealth/internal/db/migrate"
	"github.com/porthealth/porthealth/migrations"
)

const helpText = `Usage: dbmigrate [sqlite_file] [driver]

driver is "sqlite3" (cgo, default) or "sqlite" (pure go).`

func main() {
	if len(os.Args) < 2 || len(os.Args) > 3 {
		fmt.Fprintln(os.Stderr, helpText)
		os.Exit(1)
	}

	dbFile := os.Args[1]

	driver := db.DriverCGO
	if len(os.Args) == 3 {
		var err error
		driver, err = db.ParseDriver(os.Args[2])
		if err != nil {
			fmt.Fprintf(os.Stderr, "%v\n%s\n", err, helpText)
			os.Exit(1)
		}
	}

	sqlDB, err := db.OpenSQLite(driver, dbFile, true)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to open database: %v\n", err)
		os.Exit(1)
	}
	defer sqlDB.Close()

	ctx, cancel := context.WithTimeout(context.Background(), time.Second*60)
	defer cancel()

	meta := migrate.Metadata{
		AppVersion: internal.BuildRevision,
		Timestamp:  internal.BuildRevisionTime,
	}

	ran, err := migrate.RunFS(ctx, sqlDB, migrations.FS, meta)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to run migrations: %v\n", err)
		os.Exit(1)
	}

	for _, migration := range ran {
		fmt.Printf("%d: %s\n", migration.Sequence, migration.Filename)
	}
}
