package account

import (
	"context"
)

// Filter is used to filter accounts.
// Returned accounts must match all the provided fields.
// If a field is empty, it's ignored.
type Filter struct {
	IDs    []ID
	Emails []string
}

// Store provides access to the account store.
//
// Writes happen in transactions started with BeginTx, at most one of which is
// active at any time. The Find methods read outside of a transaction and only
// observe committed state.
type Store interface {
	BeginTx(ctx context.Context) (Tx, error)
	FindAccounts(ctx context.Context, filter *Filter) ([]Account, error)
	FindProfile(ctx context.Context, id ID) (Profile, error)
}

// Tx is a write transaction. If an error occurs on any of the Create/Find methods,
// the transaction is considered to have failed and should be rolled back.
// Tx is not safe for concurrent use.
type Tx interface {
	Commit() error
	Rollback() error

	CreateAccount(a *Account) error
	FindAccounts(filter *Filter) ([]Account, error)

	CreateProfile(p *Profile) error
}
