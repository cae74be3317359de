package onboarding

import (
	"context"
	"errors"
	"log/slog"

	"github.com/porthealth/porthealth/internal/account"
)

// AccountStore is the part of the account service the controller depends on.
type AccountStore interface {
	CreateAccount(ctx context.Context, n account.NewAccount) (account.ID, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	VerifyCredentials(ctx context.Context, email string, pwd account.Password) (account.Account, error)
	SaveProfile(ctx context.Context, p account.Profile) error
}

// Controller drives sessions through the onboarding flow:
//
//	Anonymous --signup(Patient)--> AwaitingProfile --profile--> Authenticated
//	Anonymous --signup(Doctor)---> Authenticated
//	Anonymous --login------------> Authenticated
//
// Submits never return errors. Every outcome, including failures of the
// account store, is described by the returned Transition.
type Controller struct {
	logger *slog.Logger
	store  AccountStore
}

func NewController(logger *slog.Logger, store AccountStore) *Controller {
	return &Controller{
		logger: logger,
		store:  store,
	}
}

// Current returns the transition that describes where sess is now.
func (c *Controller) Current(sess *Session) Transition {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	return sess.current()
}

// SubmitSignup creates an account from the signup form. Patients continue
// to the profile screen, doctors are authenticated right away.
func (c *Controller) SubmitSignup(ctx context.Context, sess *Session, f SignupForm) Transition {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageAnonymous {
		return sess.reject(sess.stage.screen(), ReasonNotAllowed)
	}

	f.trim()
	if invalid := f.validate(); len(invalid) > 0 {
		return sess.reject(ScreenSignup, ReasonIncompleteForm, invalid.Keys()...)
	}

	role, ok := roleLabels[f.Role]
	if !ok {
		return sess.reject(ScreenSignup, ReasonInvalidRole)
	}

	pwd, err := account.ParsePassword(f.Password)
	if err != nil {
		return sess.reject(ScreenSignup, ReasonInvalidPassword)
	}

	id, err := c.store.CreateAccount(ctx, account.NewAccount{
		Email:    f.Email,
		Password: pwd,
		Role:     role,
	})
	if errors.Is(err, account.ErrDuplicateEmail) {
		return sess.reject(ScreenSignup, ReasonDuplicateEmail)
	}
	if err != nil {
		c.logger.Error("failed to create account", "error", err)
		return sess.reject(ScreenSignup, ReasonStorageUnavailable)
	}

	c.logger.Info("account created", "accountID", id, "role", role)

	sess.role = role
	sess.pending = pendingAccount{
		email: f.Email,
		id:    id,
	}

	if role == account.RoleDoctor {
		sess.stage = StageAuthenticated
	} else {
		sess.stage = StageAwaitingProfile
	}

	return sess.current()
}

// SubmitLogin authenticates the session with the login form.
func (c *Controller) SubmitLogin(ctx context.Context, sess *Session, f LoginForm) Transition {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageAnonymous {
		return sess.reject(sess.stage.screen(), ReasonNotAllowed)
	}

	f.trim()
	if invalid := f.validate(); len(invalid) > 0 {
		return sess.reject(ScreenLogin, ReasonIncompleteForm, invalid.Keys()...)
	}

	exists, err := c.store.EmailExists(ctx, f.Email)
	if err != nil {
		c.logger.Error("failed to check email", "error", err)
		return sess.reject(ScreenLogin, ReasonStorageUnavailable)
	}

	if !exists {
		return sess.reject(ScreenLogin, ReasonUnknownEmail)
	}

	pwd, err := account.ParsePassword(f.Password)
	if err != nil {
		// Passwords that can't be parsed were never accepted at signup.
		return sess.reject(ScreenLogin, ReasonInvalidCredential)
	}

	a, err := c.store.VerifyCredentials(ctx, f.Email, pwd)
	switch {
	case errors.Is(err, account.ErrUnknownEmail):
		return sess.reject(ScreenLogin, ReasonUnknownEmail)
	case errors.Is(err, account.ErrInvalidCredential):
		return sess.reject(ScreenLogin, ReasonInvalidCredential)
	case err != nil:
		c.logger.Error("failed to verify credentials", "error", err)
		return sess.reject(ScreenLogin, ReasonStorageUnavailable)
	}

	c.logger.Info("logged in", "accountID", a.ID, "role", a.Role)

	sess.role = a.Role
	sess.pending = pendingAccount{
		email: a.Email,
		id:    a.ID,
	}
	sess.stage = StageAuthenticated

	return sess.current()
}

// SubmitProfile saves the profile of a patient that just signed up.
func (c *Controller) SubmitProfile(ctx context.Context, sess *Session, f ProfileForm) Transition {
	sess.mu.Lock()
	defer sess.mu.Unlock()

	if sess.stage != StageAwaitingProfile {
		return sess.reject(sess.stage.screen(), ReasonNotAllowed)
	}

	f.trim()
	if invalid := f.validate(); len(invalid) > 0 {
		return sess.reject(ScreenProfile, ReasonIncompleteForm, invalid.Keys()...)
	}

	err := c.store.SaveProfile(ctx, f.profile(sess.pending.id))
	if errors.Is(err, account.ErrProfileExists) {
		return sess.reject(ScreenProfile, ReasonNotAllowed)
	}
	if err != nil {
		c.logger.Error("failed to save profile", "accountID", sess.pending.id, "error", err)
		return sess.reject(ScreenProfile, ReasonStorageUnavailable)
	}

	c.logger.Info("profile saved", "accountID", sess.pending.id)

	sess.stage = StageAuthenticated

	return sess.current()
}
