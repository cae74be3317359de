package onboarding

import (
	"sync"

	"github.com/porthealth/porthealth/internal/account"
)

// Session is the onboarding state of a single device. Sessions only live
// in memory and are safe for concurrent use, submits are serialized.
type Session struct {
	mu    sync.Mutex
	stage Stage
	role  account.Role
	// pending is the account created during signup, kept until the
	// profile step completes. The password is never kept.
	pending pendingAccount
}

type pendingAccount struct {
	email string
	id    account.ID
}

// NewSession returns a session in StageAnonymous.
func NewSession() *Session {
	return &Session{
		stage: StageAnonymous,
	}
}

// Stage returns the current stage of the session.
func (s *Session) Stage() Stage {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.stage
}

// current describes the session as a transition without a reason.
// s.mu must be held.
func (s *Session) current() Transition {
	return Transition{
		Stage:     s.stage,
		Screen:    s.stage.screen(),
		AccountID: s.accountID(),
		Role:      s.role,
	}
}

// reject returns a transition that keeps the session in its current stage.
// s.mu must be held.
func (s *Session) reject(screen Screen, reason Reason, fields ...string) Transition {
	return Transition{
		Stage:     s.stage,
		Screen:    screen,
		AccountID: s.accountID(),
		Role:      s.role,
		Reason:    reason,
		Fields:    fields,
	}
}

// accountID returns the id of the account, but only once the session is
// authenticated. Before that the id stays on the server.
// s.mu must be held.
func (s *Session) accountID() account.ID {
	if s.stage != StageAuthenticated {
		return 0
	}
	return s.pending.id
}
