package onboarding

import (
	"fmt"

	"github.com/porthealth/porthealth/internal/account"
)

// Stage is the position of a session in the onboarding flow.
type Stage int

const (
	StageAnonymous Stage = iota
	// StageAwaitingRole is never entered: the role is collected together
	// with the rest of the signup form.
	StageAwaitingRole
	StageAwaitingProfile
	StageAuthenticated
)

var stageNames = map[Stage]string{
	StageAnonymous:       "anonymous",
	StageAwaitingRole:    "awaiting_role",
	StageAwaitingProfile: "awaiting_profile",
	StageAuthenticated:   "authenticated",
}

func (s Stage) String() string {
	name, ok := stageNames[s]
	if !ok {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return name
}

func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// screen returns the screen a session in stage s is shown.
func (s Stage) screen() Screen {
	switch s {
	case StageAwaitingRole:
		return ScreenSignup
	case StageAwaitingProfile:
		return ScreenProfile
	case StageAuthenticated:
		return ScreenDashboard
	default:
		return ScreenLogin
	}
}

// Screen is a screen of the app.
type Screen string

const (
	ScreenSignup    Screen = "signup"
	ScreenLogin     Screen = "login"
	ScreenProfile   Screen = "profile"
	ScreenDashboard Screen = "dashboard"
)

// Reason explains why a submit was rejected.
type Reason string

const (
	ReasonNone               Reason = ""
	ReasonIncompleteForm     Reason = "incomplete_form"
	ReasonInvalidPassword    Reason = "invalid_password"
	ReasonInvalidRole        Reason = "invalid_role"
	ReasonDuplicateEmail     Reason = "duplicate_email"
	ReasonUnknownEmail       Reason = "unknown_email"
	ReasonInvalidCredential  Reason = "invalid_credential"
	ReasonStorageUnavailable Reason = "storage_unavailable"
	ReasonNotAllowed         Reason = "not_allowed"
)

// Transition is the outcome of a submit. Either the session advanced and
// Reason is ReasonNone, or it stayed where it was and Reason says why.
type Transition struct {
	Stage     Stage        `json:"stage"`
	Screen    Screen       `json:"screen"`
	// AccountID is only set in StageAuthenticated.
	AccountID account.ID   `json:"accountId,omitempty"`
	Role      account.Role `json:"role,omitempty"`
	Reason    Reason       `json:"reason,omitempty"`
	// Fields names the empty form fields when Reason is ReasonIncompleteForm.
	Fields []string `json:"fields,omitempty"`
}

// Rejected reports whether the submit was rejected.
func (t Transition) Rejected() bool {
	return t.Reason != ReasonNone
}
