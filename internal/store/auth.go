package store

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

// signInTokens is implemented by token sources that remember the email used
// to sign in
type signInTokens interface {
	SignIn(email string, tokens interfaces.AuthTokens) error
}

// AuthStore holds the signed-in user
type AuthStore struct {
	backend interfaces.StoryBackend
	tokens  interfaces.TokenSource
	logger  *logging.Logger

	mu   sync.RWMutex
	user *interfaces.User
}

// NewAuthStore creates an auth store
func NewAuthStore(backend interfaces.StoryBackend, tokens interfaces.TokenSource) *AuthStore {
	return &AuthStore{
		backend: backend,
		tokens:  tokens,
		logger:  logging.GetStoreLogger().WithField("store", "auth"),
	}
}

// User returns the signed-in user, or nil
func (s *AuthStore) User() *interfaces.User {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.user == nil {
		return nil
	}
	u := *s.user
	return &u
}

// LoggedIn reports whether an access token is held
func (s *AuthStore) LoggedIn() bool {
	return s.tokens.AccessToken() != ""
}

// Login signs in and stores the issued tokens
func (s *AuthStore) Login(ctx context.Context, email, password string) (*interfaces.User, error) {
	email = strings.TrimSpace(email)
	resp, err := s.backend.Login(ctx, interfaces.LoginRequest{Email: email, Password: password})
	if err != nil {
		return nil, err
	}
	return s.signIn(email, resp)
}

// Register creates an account and signs it in
func (s *AuthStore) Register(ctx context.Context, req interfaces.RegisterRequest) (*interfaces.User, error) {
	req.Email = strings.TrimSpace(req.Email)
	resp, err := s.backend.Register(ctx, req)
	if err != nil {
		return nil, err
	}
	return s.signIn(req.Email, resp)
}

func (s *AuthStore) signIn(email string, resp *interfaces.AuthResponse) (*interfaces.User, error) {
	var err error
	if tokens, ok := s.tokens.(signInTokens); ok {
		err = tokens.SignIn(email, resp.Tokens())
	} else {
		err = s.tokens.UpdateTokens(resp.Tokens())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to store credentials: %w", err)
	}

	s.mu.Lock()
	user := resp.User
	s.user = &user
	s.mu.Unlock()

	s.logger.Info("Signed in", "user_id", user.ID.String())
	return &user, nil
}

// SetUser records the user when a session is resumed from saved tokens
func (s *AuthStore) SetUser(user *interfaces.User) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.user = user
}

// Logout ends the server session and clears local credentials. Local state is
// cleared even when the backend cannot be reached.
func (s *AuthStore) Logout(ctx context.Context) error {
	err := s.backend.Logout(ctx)
	if err != nil {
		s.logger.Warn("Backend logout failed", "error", err)
	}
	if clearErr := s.Clear(); clearErr != nil {
		return clearErr
	}
	return nil
}

// Clear forgets the user and the tokens
func (s *AuthStore) Clear() error {
	s.mu.Lock()
	s.user = nil
	s.mu.Unlock()
	return s.tokens.ClearTokens()
}

// ForgotPassword requests a reset email
func (s *AuthStore) ForgotPassword(ctx context.Context, email string) (string, error) {
	resp, err := s.backend.ForgotPassword(ctx, strings.TrimSpace(email))
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}

// ResetPassword sets a new password with a reset token
func (s *AuthStore) ResetPassword(ctx context.Context, token, password string) (string, error) {
	resp, err := s.backend.ResetPassword(ctx, interfaces.ResetPasswordRequest{Token: strings.TrimSpace(token), NewPassword: password})
	if err != nil {
		return "", err
	}
	return resp.Message, nil
}
