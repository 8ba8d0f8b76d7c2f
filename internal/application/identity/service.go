// Package identity resolves the signed-in user for a request: it verifies
// tokens with the identity provider and upserts the stored profile on first
// sign-in.
package identity

import (
	"context"
	"net/mail"
	"strings"
	"time"

	"github.com/turtacn/ChemXGen/internal/domain/user"
	"github.com/turtacn/ChemXGen/internal/infrastructure/monitoring/logging"
	"github.com/turtacn/ChemXGen/pkg/errors"
)

// DefaultSessionTimeout bounds session resolution.
const DefaultSessionTimeout = 3 * time.Second

// MinPasswordLength is enforced on sign-up.
const MinPasswordLength = 6

// Authenticator is the identity provider.
type Authenticator interface {
	PasswordLogin(ctx context.Context, email, password string) (*user.Tokens, error)
	Register(ctx context.Context, fullName, email, password string) (string, error)
	VerifyToken(ctx context.Context, accessToken string) (*user.Identity, error)
	Logout(ctx context.Context, refreshToken string) error
}

// Session is the current-user view.  Loading is true only when resolution
// has not finished; a finished anonymous session has a nil User.
type Session struct {
	User    *user.User `json:"user"`
	Loading bool       `json:"loading"`
}

// SignInResult is returned by SignIn.
type SignInResult struct {
	Tokens *user.Tokens `json:"tokens"`
	User   *user.User   `json:"user"`
}

// Service implements sign-in, sign-up, sign-out and session resolution.
type Service struct {
	auth     Authenticator
	profiles user.ProfileRepository
	logger   logging.Logger
	timeout  time.Duration
}

// Option configures a Service.
type Option func(*Service)

// WithSessionTimeout overrides DefaultSessionTimeout.
func WithSessionTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.timeout = d
		}
	}
}

// NewService creates the identity service.  profiles may be nil when no
// profile database is configured; every user then gets the fallback view.
func NewService(auth Authenticator, profiles user.ProfileRepository, logger logging.Logger, opts ...Option) *Service {
	s := &Service{auth: auth, profiles: profiles, logger: logger.Named("identity"), timeout: DefaultSessionTimeout}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Session resolves accessToken to a user.  Invalid tokens, provider errors
// and timeouts all yield an anonymous session; they are never returned as
// errors.
func (s *Service) Session(ctx context.Context, accessToken string) Session {
	if strings.TrimSpace(accessToken) == "" {
		return Session{}
	}
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	type resolved struct {
		u   *user.User
		err error
	}
	done := make(chan resolved, 1)
	go func() {
		id, err := s.auth.VerifyToken(ctx, accessToken)
		if err != nil {
			done <- resolved{err: err}
			return
		}
		done <- resolved{u: s.resolve(ctx, *id)}
	}()

	select {
	case r := <-done:
		if r.err != nil {
			s.logger.Debug("session token rejected", logging.Err(r.err))
			return Session{}
		}
		return Session{User: r.u}
	case <-ctx.Done():
		s.logger.Warn("session resolution timed out", logging.Duration("timeout", s.timeout))
		return Session{}
	}
}

// SignIn exchanges email and password for tokens and the user view.
func (s *Service) SignIn(ctx context.Context, email, password string) (*SignInResult, error) {
	email = strings.TrimSpace(email)
	if email == "" || password == "" {
		return nil, errors.New(errors.ErrCodeAuthInvalidCredentials, "email and password are required")
	}
	tokens, err := s.auth.PasswordLogin(ctx, email, password)
	if err != nil {
		return nil, err
	}
	id, err := s.auth.VerifyToken(ctx, tokens.AccessToken)
	if err != nil {
		return nil, err
	}
	s.logger.Info("user signed in", logging.String(logging.FieldUserID, id.ID))
	return &SignInResult{Tokens: tokens, User: s.resolve(ctx, *id)}, nil
}

// SignUp registers a new account.  The profile row is created lazily on the
// first session, like any other account.
func (s *Service) SignUp(ctx context.Context, fullName, email, password string) (string, error) {
	email = strings.TrimSpace(email)
	if _, err := mail.ParseAddress(email); err != nil {
		return "", errors.New(errors.ErrCodeValidation, "invalid email address")
	}
	if len(password) < MinPasswordLength {
		return "", errors.Newf(errors.ErrCodeValidation, "password must be at least %d characters", MinPasswordLength)
	}
	id, err := s.auth.Register(ctx, strings.TrimSpace(fullName), email, password)
	if err != nil {
		return "", err
	}
	s.logger.Info("user registered", logging.String(logging.FieldUserID, id))
	return id, nil
}

// SignOut revokes the refresh token.
func (s *Service) SignOut(ctx context.Context, refreshToken string) error {
	if refreshToken == "" {
		return nil
	}
	return s.auth.Logout(ctx, refreshToken)
}

// UpdateCredits records a credit balance for the user.
func (s *Service) UpdateCredits(ctx context.Context, userID string, credits int) error {
	if credits < 0 {
		return errors.New(errors.ErrCodeValidation, "credits must not be negative")
	}
	if s.profiles == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "profile store is not configured")
	}
	return s.profiles.UpdateCredits(ctx, userID, credits)
}

// UpdateTier changes the subscription tier of a user, typically after a
// completed checkout.
func (s *Service) UpdateTier(ctx context.Context, userID string, tier user.Tier) error {
	if s.profiles == nil {
		return errors.New(errors.ErrCodeServiceUnavailable, "profile store is not configured")
	}
	return s.profiles.UpdateTier(ctx, userID, tier)
}

// resolve loads the profile of id, inserting a default one on first use.
// Store failures degrade to the fallback view.
func (s *Service) resolve(ctx context.Context, id user.Identity) *user.User {
	if s.profiles == nil {
		return user.Fallback(id)
	}
	p, err := s.profiles.GetByID(ctx, id.ID)
	if err == nil {
		return user.FromProfile(id, p)
	}
	if !errors.IsNotFound(err) {
		s.logger.Error("failed to load profile", logging.String(logging.FieldUserID, id.ID), logging.Err(err))
		return user.Fallback(id)
	}
	created, err := s.profiles.Create(ctx, user.DefaultProfile(id))
	if err != nil {
		s.logger.Error("failed to create profile", logging.String(logging.FieldUserID, id.ID), logging.Err(err))
		return user.Fallback(id)
	}
	s.logger.Info("profile created", logging.String(logging.FieldUserID, id.ID))
	return user.FromProfile(id, created)
}
