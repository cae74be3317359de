package db

import (
	"context"
	"database/sql"

	"github.com/porthealth/porthealth/internal/account"
)

type Tx struct {
	ctx context.Context
	tx  *sql.Tx
}

func (t *Tx) Commit() error {
	return t.tx.Commit()
}

func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// CreateAccount creates an account in the database.
// It updates the accounts ID when successful.
// It returns errorz.ErrConstraintViolated if the email is already taken.
func (t *Tx) CreateAccount(a *account.Account) error {
	return insertAccount(t.ctx, t.tx.ExecContext, a)
}

// FindAccounts queries for accounts based on the provided filter.
// It returns an empty slice if no accounts are found.
func (t *Tx) FindAccounts(filter *account.Filter) ([]account.Account, error) {
	return selectAccounts(t.ctx, t.tx.QueryContext, filter)
}

// CreateProfile creates a patient profile in the database.
// It returns errorz.ErrConstraintViolated if the account already has a profile.
func (t *Tx) CreateProfile(p *account.Profile) error {
	return insertProfile(t.ctx, t.tx.ExecContext, p)
}
