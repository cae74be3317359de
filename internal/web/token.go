package web

import (
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/porthealth/porthealth/internal/account"
	"github.com/porthealth/porthealth/internal/krypto"
)

var ErrInvalidToken = errors.New("invalid token")

// tokenClaims are the claims of the token handed to an authenticated client.
// The subject is the account id.
type tokenClaims struct {
	Role account.Role `json:"role"`
	jwt.RegisteredClaims
}

// TokenIssuer issues and verifies HS256 signed tokens for authenticated accounts.
type TokenIssuer struct {
	key    krypto.Key
	expiry time.Duration

	// NowFunc is used to get the current time.
	// Exposed for testing purposes.
	NowFunc func() time.Time
}

func NewTokenIssuer(key krypto.Key, expiry time.Duration) *TokenIssuer {
	return &TokenIssuer{
		key:     key,
		expiry:  expiry,
		NowFunc: time.Now,
	}
}

// Issue returns a signed token for the account.
func (i *TokenIssuer) Issue(id account.ID, role account.Role) (string, error) {
	now := i.NowFunc()

	claims := tokenClaims{
		Role: role,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   strconv.Itoa(int(id)),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(i.expiry)),
		},
	}

	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(i.key.SecretValue())
}

// Verify checks the signature and expiry of raw and returns the account it was issued for.
func (i *TokenIssuer) Verify(raw string) (account.ID, account.Role, error) {
	var claims tokenClaims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return i.key.SecretValue(), nil
	},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(i.NowFunc),
	)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	id, err := strconv.Atoi(claims.Subject)
	if err != nil || id <= 0 {
		return 0, "", fmt.Errorf("%w: invalid subject %q", ErrInvalidToken, claims.Subject)
	}

	role, err := account.ParseRole(string(claims.Role))
	if err != nil {
		return 0, "", fmt.Errorf("%w: %w", ErrInvalidToken, err)
	}

	return account.ID(id), role, nil
}
