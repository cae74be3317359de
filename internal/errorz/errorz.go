package errorz

import (
	"database/sql"
	"errors"

	"github.com/mattn/go-sqlite3"
	"modernc.org/sqlite"
	sqlitelib "modernc.org/sqlite/lib"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConstraintViolated = errors.New("constraint violated")
)

// MapDBErr maps database errors to appropriate errorz errors.
// Both the cgo (mattn) and the pure Go (modernc) SQLite drivers are supported.
// If err is nil, MapDBErr returns nil.
func MapDBErr(err error) error {
	if err == nil {
		return nil
	}

	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}

	sErr := sqlite3.Error{}
	if errors.As(err, &sErr) {
		if sErr.Code == sqlite3.ErrConstraint {
			return errors.Join(ErrConstraintViolated, err)
		}
	}

	var mErr *sqlite.Error
	if errors.As(err, &mErr) {
		// Code returns the extended result code, the primary code is in the lower byte.
		if mErr.Code()&0xff == sqlitelib.SQLITE_CONSTRAINT {
			return errors.Join(ErrConstraintViolated, err)
		}
	}

	return err
}
