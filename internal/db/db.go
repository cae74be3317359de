package db

import (
	"database/sql"
	"fmt"

	_ "github.com/mattn/go-sqlite3"
	_ "modernc.org/sqlite"
)

// Driver names a registered SQLite database/sql driver.
type Driver string

const (
	// DriverCGO is the mattn/go-sqlite3 driver. It requires cgo.
	DriverCGO Driver = "sqlite3"
	// DriverPureGo is the modernc.org/sqlite driver.
	DriverPureGo Driver = "sqlite"
)

// ParseDriver checks if raw names a supported driver.
func ParseDriver(raw string) (Driver, error) {
	switch d := Driver(raw); d {
	case DriverCGO, DriverPureGo:
		return d, nil
	default:
		return "", fmt.Errorf("unsupported sqlite driver %q", raw)
	}
}

// To run SQLite so that it works well with our app, we need a few options:
// - WAL Mode so that reads and writes don't block eachother.
// - A busy timeout, specifying the duration a connection will wait for a lock.
// - Foreign keys are enforced.
// - Write transactions take the write lock immediately (BEGIN IMMEDIATE), so two
//   writers can't both read and then both try to insert.
//
// The two drivers spell these options differently.
var options = map[Driver]struct{ write, read string }{
	DriverCGO: {
		write: "?mode=rwc&_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000&_txlock=immediate",
		read:  "?mode=ro&_foreign_keys=on&_journal_mode=wal&_busy_timeout=5000",
	},
	DriverPureGo: {
		write: "?mode=rwc&_pragma=foreign_keys(1)&_pragma=journal_mode(wal)&_pragma=busy_timeout(5000)&_txlock=immediate",
		read:  "?mode=ro&_pragma=foreign_keys(1)&_pragma=busy_timeout(5000)",
	},
}

// OpenSQLite opens a pool of SQLite connections. Different settings
// are appropriate for reading and writing, so this function needs to know
// what the sql.DB will be used for.
//
// A write pool only ever holds a single connection, all writes are serialized.
//
// See this comment for more information:
// https://github.com/mattn/go-sqlite3/issues/1179#issuecomment-1638083995
func OpenSQLite(driver Driver, dbFile string, write bool) (*sql.DB, error) {
	opts, ok := options[driver]
	if !ok {
		return nil, fmt.Errorf("unsupported sqlite driver %q", driver)
	}

	optsPostfix := opts.read
	if write {
		optsPostfix = opts.write
	}

	db, err := sql.Open(string(driver), "file:"+dbFile+optsPostfix)
	if err != nil {
		return nil, err
	}

	if write {
		// use only a single connection for writing.
		db.SetMaxOpenConns(1)
		db.SetMaxIdleConns(1)

		// don't close this connection.
		db.SetConnMaxLifetime(0)
		db.SetConnMaxIdleTime(0)
	}

	return db, nil
}
