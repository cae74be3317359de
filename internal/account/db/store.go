package db

import (
	"context"
	"database/sql"

	"github.com/porthealth/porthealth/internal/account"
)

// Store is responsible for interacting with a database.
//
// Writes go through the write pool, which is expected to hold a single
// connection so that write transactions are serialized. Reads outside of a
// transaction go through the read pool.
type Store struct {
	writeDB *sql.DB
	readDB  *sql.DB
}

// New creates a new Store.
func New(writeDB *sql.DB, readDB *sql.DB) *Store {
	return &Store{
		writeDB: writeDB,
		readDB:  readDB,
	}
}

// BeginTx starts a new write transaction. The transaction is bound to ctx:
// if ctx is done before the transaction is committed, it is rolled back.
func (s *Store) BeginTx(ctx context.Context) (account.Tx, error) {
	tx, err := s.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &Tx{
		ctx: ctx,
		tx:  tx,
	}, nil
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (s *Store) FindAccounts(ctx context.Context, filter *account.Filter) ([]account.Account, error) {
	return selectAccounts(ctx, s.readDB.QueryContext, filter)
}

// FindProfile returns the profile of the account with the provided id.
// It returns errorz.ErrNotFound if there is none.
func (s *Store) FindProfile(ctx context.Context, id account.ID) (account.Profile, error) {
	return selectProfile(ctx, s.readDB.QueryRowContext, id)
}
