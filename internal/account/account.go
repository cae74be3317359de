package account

import (
	"fmt"
	"time"

	"github.com/porthealth/porthealth/internal/krypto"
)

// ID identifies an account. IDs are assigned by the store, increase
// monotonically and are never reused.
type ID int

// Role is the kind of user an account belongs to.
type Role string

const (
	RolePatient Role = "patient"
	RoleDoctor  Role = "doctor"
)

// ParseRole parses the stored representation of a role.
func ParseRole(raw string) (Role, error) {
	switch r := Role(raw); r {
	case RolePatient, RoleDoctor:
		return r, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, raw)
	}
}

// Account is the persisted record of a registered user.
// Accounts are never updated once created.
type Account struct {
	ID ID
	// Email is stored as provided, it is not normalized.
	Email      string
	Credential krypto.Argon2Hash
	Role       Role
	CreatedAt  time.Time
}

// NewAccount holds the data required to create an account.
type NewAccount struct {
	Email    string
	Password Password
	Role     Role
}

// Profile is the health information a patient provides after signing up.
type Profile struct {
	AccountID ID
	Gender    string
	Weight    string
	Age       string
	Height    string
	Allergies string
	Diet      string
	CreatedAt time.Time
}
