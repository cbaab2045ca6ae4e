package service

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"minimarket/internal/apiclient"
	"minimarket/internal/domain"
	"minimarket/internal/notify"
	"minimarket/internal/store"
	"minimarket/internal/tokenstore"
	"minimarket/internal/validation"

	"github.com/golang-jwt/jwt/v5"
	"go.uber.org/zap"
)

var ErrLoginLocked = errors.New("too many failed login attempts")

const (
	DefaultMaxLoginAttempts = 5
	DefaultLockout          = time.Minute
)

type LoginInput struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// AuthService drives the auth slice through checking, logged out and
// logged in. The token lives only in the token store.
type AuthService struct {
	base
	tokens      tokenstore.Store
	now         func() time.Time
	maxAttempts int
	lockout     time.Duration

	mu          sync.Mutex
	failures    int
	lockedUntil time.Time
	lockTimer   *time.Timer
}

// NewAuthService creates a new AuthService
func NewAuthService(
	api Backend,
	st *store.Store,
	tokens tokenstore.Store,
	notifier notify.Notifier,
	logger *zap.Logger,
	maxAttempts int,
	lockout time.Duration,
) *AuthService {
	if maxAttempts <= 0 {
		maxAttempts = DefaultMaxLoginAttempts
	}
	if lockout <= 0 {
		lockout = DefaultLockout
	}
	return &AuthService{
		base:        newBase(api, st, notifier, logger, "auth"),
		tokens:      tokens,
		now:         time.Now,
		maxAttempts: maxAttempts,
		lockout:     lockout,
	}
}

// Login exchanges credentials for a session token. A failed login leaves
// the auth slice as it was.
func (s *AuthService) Login(ctx context.Context, in LoginInput) error {
	if err := validation.Struct(in); err != nil {
		return s.reject("Could not sign in", err)
	}
	if until, locked := s.locked(); locked {
		err := fmt.Errorf("%w, try again after %s", ErrLoginLocked, until.Format(time.Kitchen))
		return s.reject("Could not sign in", err)
	}

	return s.mutate("Signing in", "Welcome back", "Could not sign in",
		func() (*apiclient.Response, error) {
			return s.api.Public(ctx, http.MethodPost, "auth", in)
		},
		func(resp *apiclient.Response) error {
			return s.startSession(ctx, resp)
		},
	)
}

// mutate is wrapped so failed attempts feed the lockout
func (s *AuthService) mutate(progress, success, failure string, call func() (*apiclient.Response, error), apply func(*apiclient.Response) error) error {
	err := s.base.mutate(progress, success, failure, call, apply)
	if err != nil {
		s.recordFailure()
		return err
	}
	s.resetFailures()
	return nil
}

// CheckSession verifies the stored token, renewing it through the backend.
// Any failure clears the stored session and ends logged out.
func (s *AuthService) CheckSession(ctx context.Context) error {
	s.store.Dispatch(store.AuthChecking{})

	session, err := s.tokens.Load(ctx)
	if err != nil {
		s.logger.Error("Failed to read stored session", zap.Error(err))
		s.endSession(ctx)
		return fmt.Errorf("failed to read session: %w", err)
	}
	if session.Empty() {
		s.store.Dispatch(store.AuthLoggedOut{})
		return nil
	}
	if tokenExpired(session.Token, s.now()) {
		s.logger.Info("Stored token expired", zap.Time("issued_at", session.IssuedAt))
		s.endSession(ctx)
		return nil
	}

	resp, err := s.api.Authed(ctx, http.MethodGet, "auth/renew", nil)
	if err == nil {
		err = resp.Err()
	}
	if err == nil {
		err = s.startSession(ctx, resp)
	}
	if err != nil {
		s.logger.Warn("Session renewal failed", zap.Error(err))
		s.endSession(ctx)
		return fmt.Errorf("failed to renew session: %w", err)
	}
	return nil
}

// Logout clears the stored session
func (s *AuthService) Logout(ctx context.Context) {
	s.endSession(ctx)
	s.logger.Info("Logged out")
}

func (s *AuthService) startSession(ctx context.Context, resp *apiclient.Response) error {
	var token, name string
	if err := resp.Decode("token", &token); err != nil {
		return err
	}
	uid, err := decodeID(resp, "uid")
	if err != nil {
		return err
	}
	if err := resp.Decode("name", &name); err != nil {
		return err
	}

	if err := s.tokens.Save(ctx, domain.Session{Token: token, IssuedAt: s.now()}); err != nil {
		return fmt.Errorf("failed to store session: %w", err)
	}
	s.store.Dispatch(store.AuthLoggedIn{UID: uid, Name: name})
	return nil
}

func (s *AuthService) endSession(ctx context.Context) {
	if err := s.tokens.Clear(ctx); err != nil {
		s.logger.Error("Failed to clear stored session", zap.Error(err))
	}
	s.store.Dispatch(store.AuthLoggedOut{})
}

func (s *AuthService) locked() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lockedUntil, !s.lockedUntil.IsZero() && s.now().Before(s.lockedUntil)
}

func (s *AuthService) recordFailure() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures++
	if s.failures < s.maxAttempts {
		return
	}
	s.lockedUntil = s.now().Add(s.lockout)
	if s.lockTimer != nil {
		s.lockTimer.Stop()
	}
	s.lockTimer = time.AfterFunc(s.lockout, s.resetFailures)
	s.logger.Warn("Login locked", zap.Int("failures", s.failures), zap.Duration("lockout", s.lockout))
}

func (s *AuthService) resetFailures() {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.failures = 0
	s.lockedUntil = time.Time{}
	if s.lockTimer != nil {
		s.lockTimer.Stop()
		s.lockTimer = nil
	}
}

// tokenExpired reads the exp claim without verifying the signature; the
// backend stays the authority. Opaque tokens are never considered expired.
func tokenExpired(token string, now time.Time) bool {
	claims := jwt.RegisteredClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, &claims); err != nil {
		return false
	}
	return claims.ExpiresAt != nil && !now.Before(claims.ExpiresAt.Time)
}
