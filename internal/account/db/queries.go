package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/porthealth/porthealth/internal/account"
	"github.com/porthealth/porthealth/internal/db"
	"github.com/porthealth/porthealth/internal/errorz"
)

type execFunc func(ctx context.Context, query string, params ...any) (sql.Result, error)
type queryFunc func(ctx context.Context, query string, params ...any) (*sql.Rows, error)
type queryRowFunc func(ctx context.Context, query string, params ...any) *sql.Row

func insertAccount(ctx context.Context, ef execFunc, a *account.Account) error {
	if a.ID != 0 {
		return fmt.Errorf("account already has id %d: %w", a.ID, errorz.ErrConstraintViolated)
	}

	var q db.Query
	q.Unsafe(`INSERT INTO accounts (email, credential, role, created_at) VALUES (`)
	q.Params(a.Email, a.Credential.String(), a.Role, a.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	result, err := ef(ctx, s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return errorz.MapDBErr(err)
	}

	a.ID = account.ID(id)

	return nil
}

func selectAccounts(ctx context.Context, qf queryFunc, f *account.Filter) ([]account.Account, error) {
	var q db.Query
	q.Unsafe(`SELECT id, email, credential, role, created_at FROM accounts WHERE 1=1 `)

	if f != nil && len(f.IDs) > 0 {
		q.Unsafe(`AND id IN (`)
		q.Params(db.AnySlice(f.IDs)...)
		q.Unsafe(`) `)
	}

	if f != nil && len(f.Emails) > 0 {
		q.Unsafe(`AND email IN (`)
		q.Params(db.AnySlice(f.Emails)...)
		q.Unsafe(`) `)
	}

	q.Unsafe(`ORDER BY id ASC`)

	s, params := q.Get()

	rows, err := qf(ctx, s, params...)
	if err != nil {
		return nil, errorz.MapDBErr(err)
	}

	defer rows.Close()

	out := make([]account.Account, 0)
	for rows.Next() {
		var (
			a    account.Account
			role string
		)

		err := rows.Scan(&a.ID, &a.Email, &a.Credential, &role, &a.CreatedAt)
		if err != nil {
			return nil, errorz.MapDBErr(err)
		}

		a.Role, err = account.ParseRole(role)
		if err != nil {
			return nil, err
		}

		out = append(out, a)
	}

	if err := rows.Err(); err != nil {
		return nil, errorz.MapDBErr(err)
	}

	return out, nil
}

func insertProfile(ctx context.Context, ef execFunc, p *account.Profile) error {
	var q db.Query
	q.Unsafe(`INSERT INTO patient_profiles (account_id, gender, weight, age, height, allergies, diet, created_at) VALUES (`)
	q.Params(p.AccountID, p.Gender, p.Weight, p.Age, p.Height, p.Allergies, p.Diet, p.CreatedAt)
	q.Unsafe(`)`)

	s, params := q.Get()

	_, err := ef(ctx, s, params...)
	if err != nil {
		return errorz.MapDBErr(err)
	}

	return nil
}

func selectProfile(ctx context.Context, qf queryRowFunc, id account.ID) (account.Profile, error) {
	var q db.Query
	q.Unsafe(`SELECT account_id, gender, weight, age, height, allergies, diet, created_at FROM patient_profiles WHERE account_id = `)
	q.Param(id)

	s, params := q.Get()

	var p account.Profile
	err := qf(ctx, s, params...).Scan(&p.AccountID, &p.Gender, &p.Weight, &p.Age, &p.Height, &p.Allergies, &p.Diet, &p.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return account.Profile{}, fmt.Errorf("profile of account %d: %w", id, errorz.ErrNotFound)
	}
	if err != nil {
		return account.Profile{}, errorz.MapDBErr(err)
	}

	return p, nil
}
