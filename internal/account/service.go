package account

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/porthealth/porthealth/internal/errorz"
	"github.com/porthealth/porthealth/internal/krypto"
)

// opTimeout bounds every store operation, including the time spent
// waiting for the write lock.
const opTimeout = 5 * time.Second

// Service provides the account rules on top of a Store.
// It is safe for concurrent use.
type Service struct {
	store Store

	// comparisonHash is used to compare passwords when no account was found.
	comparisonHash krypto.Argon2Hash

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewService(s Store) (*Service, error) {
	tok, err := krypto.GenerateToken()
	if err != nil {
		return nil, err
	}

	hash, err := krypto.HashArgon2(tok[:])
	if err != nil {
		return nil, err
	}

	svc := &Service{
		store:          s,
		comparisonHash: hash,
		NowFunc:        time.Now,
	}

	return svc, nil
}

// CreateAccount persists a new account and returns its ID.
//
// The lookup and the insert happen in a single write transaction, so of two
// concurrent calls with the same email exactly one succeeds and the other
// returns ErrDuplicateEmail.
func (s *Service) CreateAccount(ctx context.Context, n NewAccount) (ID, error) {
	if n.Email == "" {
		return 0, ErrInvalidEmail
	}

	if n.Password.IsZero() {
		return 0, ErrInvalidPassword
	}

	if _, err := ParseRole(string(n.Role)); err != nil {
		return 0, err
	}

	// Hash outside of the transaction, there is no need to hold the write lock for it.
	credential, err := n.Password.Credential()
	if err != nil {
		return 0, err
	}

	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	a := Account{
		Email:      n.Email,
		Credential: credential,
		Role:       n.Role,
		CreatedAt:  s.NowFunc(),
	}

	err = s.inTx(ctx, func(tx Tx) error {
		existing, err := tx.FindAccounts(&Filter{
			Emails: []string{n.Email},
		})
		if err != nil {
			return unavailable(err)
		}

		if len(existing) > 0 {
			return ErrDuplicateEmail
		}

		err = tx.CreateAccount(&a)
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return ErrDuplicateEmail
		}
		if err != nil {
			return unavailable(err)
		}

		return nil
	})
	if err != nil {
		return 0, err
	}

	return a.ID, nil
}

// EmailExists reports whether an account with exactly this email exists.
func (s *Service) EmailExists(ctx context.Context, email string) (bool, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	accounts, err := s.store.FindAccounts(ctx, &Filter{
		Emails: []string{email},
	})
	if err != nil {
		return false, unavailable(err)
	}

	return len(accounts) > 0, nil
}

// FindAccount returns the account registered with email.
// It returns ErrUnknownEmail if there is no such account.
func (s *Service) FindAccount(ctx context.Context, email string) (Account, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	accounts, err := s.store.FindAccounts(ctx, &Filter{
		Emails: []string{email},
	})
	if err != nil {
		return Account{}, unavailable(err)
	}

	if len(accounts) != 1 {
		return Account{}, ErrUnknownEmail
	}

	return accounts[0], nil
}

// VerifyCredentials checks password against the credential stored for email
// and returns the matching account.
//
// It returns ErrUnknownEmail if no account exists for email and
// ErrInvalidCredential if the password does not match.
func (s *Service) VerifyCredentials(ctx context.Context, email string, pwd Password) (Account, error) {
	a, err := s.FindAccount(ctx, email)
	if errors.Is(err, ErrUnknownEmail) {
		// Do the same amount of work as for a known email.
		_ = pwd.Match(s.comparisonHash)
		return Account{}, ErrUnknownEmail
	}
	if err != nil {
		return Account{}, err
	}

	if !pwd.Match(a.Credential) {
		return Account{}, ErrInvalidCredential
	}

	return a, nil
}

// SaveProfile persists the profile of a patient account. A profile can only
// be saved once, a second attempt returns ErrProfileExists.
func (s *Service) SaveProfile(ctx context.Context, p Profile) error {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p.CreatedAt = s.NowFunc()

	return s.inTx(ctx, func(tx Tx) error {
		accounts, err := tx.FindAccounts(&Filter{
			IDs: []ID{p.AccountID},
		})
		if err != nil {
			return unavailable(err)
		}

		if len(accounts) != 1 {
			return ErrUnknownAccount
		}

		if accounts[0].Role != RolePatient {
			return fmt.Errorf("%w: profiles are only kept for patients", ErrInvalidRole)
		}

		err = tx.CreateProfile(&p)
		if errors.Is(err, errorz.ErrConstraintViolated) {
			return ErrProfileExists
		}
		if err != nil {
			return unavailable(err)
		}

		return nil
	})
}

// FindProfile returns the profile saved for account id.
// It returns errorz.ErrNotFound if no profile was saved.
// It does not wait for the write lock.
func (s *Service) FindProfile(ctx context.Context, id ID) (Profile, error) {
	ctx, cancel := context.WithTimeout(ctx, opTimeout)
	defer cancel()

	p, err := s.store.FindProfile(ctx, id)
	if errors.Is(err, errorz.ErrNotFound) {
		return Profile{}, err
	}
	if err != nil {
		return Profile{}, unavailable(err)
	}

	return p, nil
}

// inTx runs f in a write transaction. The transaction is rolled back if f
// returns an error and committed otherwise.
func (s *Service) inTx(ctx context.Context, f func(tx Tx) error) error {
	tx, err := s.store.BeginTx(ctx)
	if err != nil {
		return unavailable(err)
	}

	err = f(tx)
	if err != nil {
		rollbackErr := tx.Rollback()
		if rollbackErr != nil {
			return errors.Join(err, unavailable(rollbackErr))
		}
		return err
	}

	err = tx.Commit()
	if err != nil {
		return unavailable(err)
	}

	return nil
}
