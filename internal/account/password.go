package account

import (
	"errors"
	"fmt"
	"log/slog"

	"github.com/porthealth/porthealth/internal/krypto"
)

const (
	// We put a generous upper cap on password length, so people can use
	// passphrases but we don't allow MBs of data as a password.
	maxPasswordBytes = 512

	// SecretMarker is a string we can look for in logs to see if the app
	// is accidentally exposing secrets.
	SecretMarker = krypto.SecretMarker
)

var ErrInvalidPassword = errors.New("invalid password")

// Password is a plaintext password.
//
// It should never be persisted, logged or exposed in any other way. To
// protect ourselves from accidentally doing so, the type implements
// several common interfaces that would allow it to be used inappropriately.
//
// There are only two operations allowed on a Password:
// - Deriving a credential from it.
// - Comparing it with an existing credential to see if they match.
type Password struct {
	plain []byte
}

// ParsePassword creates a new Password from a plaintext string.
// It errors if the password is empty or too long.
func ParsePassword(pwd string) (Password, error) {
	if len(pwd) == 0 || len(pwd) > maxPasswordBytes {
		return Password{}, ErrInvalidPassword
	}

	return Password{
		plain: []byte(pwd),
	}, nil
}

// Credential derives the credential that is stored for this password.
func (p Password) Credential() (krypto.Argon2Hash, error) {
	return krypto.HashArgon2(p.plain)
}

// Match checks if the password matches the given credential.
func (p Password) Match(c krypto.Argon2Hash) bool {
	return c.MatchBytes(p.plain)
}

// IsZero reports whether p was not created by ParsePassword.
func (p Password) IsZero() bool {
	return len(p.plain) == 0
}

func (p Password) Format(f fmt.State, verb rune) {
	f.Write([]byte(SecretMarker))
}

func (p Password) MarshalText() ([]byte, error) {
	return []byte(SecretMarker), nil
}

// LogValue implements the slog.LogValuer interface.
func (p Password) LogValue() slog.Value {
	return slog.StringValue(SecretMarker)
}
