package account

import (
	"errors"
	"fmt"
)

var (
	ErrDuplicateEmail     = errors.New("duplicate email")
	ErrUnknownEmail       = errors.New("unknown email")
	ErrUnknownAccount     = errors.New("unknown account")
	ErrInvalidCredential  = errors.New("invalid credential")
	ErrInvalidEmail       = errors.New("invalid email")
	ErrInvalidRole        = errors.New("invalid role")
	ErrProfileExists      = errors.New("profile already exists")
	ErrStorageUnavailable = errors.New("storage unavailable")
)

// unavailable marks err as a failure of the underlying storage.
// Both ErrStorageUnavailable and err can be matched with errors.Is.
func unavailable(err error) error {
	return fmt.Errorf("%w: %w", ErrStorageUnavailable, err)
}
