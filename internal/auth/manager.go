// Package auth manages the bearer tokens issued by the storytelling backend:
// in-memory session state, persistence into the active profile, and token
// validation.
package auth

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
)

// TokenMetadata contains the claims of a JWT access token
type TokenMetadata struct {
	Type      string    `json:"type"`
	IssuedAt  time.Time `json:"issuedAt,omitempty"`
	ExpiresAt time.Time `json:"expiresAt,omitempty"`
	Subject   string    `json:"subject,omitempty"`
	TokenKind string    `json:"tokenKind,omitempty"`
}

// Expired reports whether the token expires before now+skew
func (t *TokenMetadata) Expired(now time.Time, skew time.Duration) bool {
	if t == nil || t.ExpiresAt.IsZero() {
		return false
	}
	return !now.Add(skew).Before(t.ExpiresAt)
}

// SessionState describes the signed-in session
type SessionState struct {
	ProfileName  string         `json:"profileName"`
	Email        string         `json:"email,omitempty"`
	Access       *TokenMetadata `json:"access,omitempty"`
	SessionStart time.Time      `json:"sessionStart"`
	LastRefresh  time.Time      `json:"lastRefresh,omitempty"`
}

// ProfileStore persists a profile after its credentials change
type ProfileStore interface {
	SaveProfile(profile *interfaces.Profile) error
}

// Manager implements interfaces.AuthManager for one profile
type Manager struct {
	profile   *interfaces.Profile
	profiles  ProfileStore
	validator *TokenValidator
	logger    *logging.Logger
	now       func() time.Time

	mutex        sync.RWMutex
	accessToken  string
	refreshToken string
	session      *SessionState
}

// TokenValidator checks bearer token format
type TokenValidator struct {
	jwtRegex       *regexp.Regexp
	minTokenLength int
	maxTokenLength int
	now            func() time.Time
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now
func WithClock(now func() time.Time) Option {
	return func(m *Manager) {
		m.now = now
		m.validator.now = now
	}
}

// NewManager creates a manager for profile. Tokens already saved in the
// profile are loaded; profiles may be nil to keep tokens in memory only.
func NewManager(profile *interfaces.Profile, profiles ProfileStore, opts ...Option) (*Manager, error) {
	if profile == nil {
		return nil, fmt.Errorf("profile cannot be nil")
	}

	m := &Manager{
		profile:  profile,
		profiles: profiles,
		validator: &TokenValidator{
			jwtRegex:       regexp.MustCompile(`^[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+\.[A-Za-z0-9\-_]+$`),
			minTokenLength: 8,
			maxTokenLength: 8192,
			now:            time.Now,
		},
		logger: logging.GetAuthLogger(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(m)
	}

	if profile.Auth.Type == "bearer" && profile.Auth.Token != "" {
		m.accessToken = profile.Auth.Token
		m.refreshToken = profile.Auth.RefreshToken
		m.session = m.newSession()
	}

	return m, nil
}

func (m *Manager) newSession() *SessionState {
	return &SessionState{
		ProfileName:  m.profile.Name,
		Email:        m.profile.Auth.Email,
		Access:       m.extractJWTMetadata(m.accessToken),
		SessionStart: m.now(),
	}
}

// AccessToken returns the current access token
func (m *Manager) AccessToken() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.accessToken
}

// RefreshToken returns the current refresh token
func (m *Manager) RefreshToken() string {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	return m.refreshToken
}

// SignedIn reports whether an access token is held
func (m *Manager) SignedIn() bool {
	return m.AccessToken() != ""
}

// AccessTokenExpired reports whether the held access token has expired or
// will within skew. Opaque tokens never report expiry.
func (m *Manager) AccessTokenExpired(skew time.Duration) bool {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.accessToken == "" {
		return false
	}
	return m.extractJWTMetadata(m.accessToken).Expired(m.now(), skew)
}

// Session returns a copy of the session state, or nil when signed out
func (m *Manager) Session() *SessionState {
	m.mutex.RLock()
	defer m.mutex.RUnlock()
	if m.session == nil {
		return nil
	}
	s := *m.session
	return &s
}

// SignIn stores tokens issued by login or register and remembers email
func (m *Manager) SignIn(email string, tokens interfaces.AuthTokens) error {
	m.mutex.Lock()
	m.profile.Auth.Email = email
	m.mutex.Unlock()
	return m.UpdateTokens(tokens)
}

// UpdateTokens replaces the stored token pair and persists it to the profile
func (m *Manager) UpdateTokens(tokens interfaces.AuthTokens) error {
	if err := m.ValidateToken(tokens.AccessToken); err != nil {
		return fmt.Errorf("backend issued an unusable access token: %w", err)
	}

	m.mutex.Lock()
	refreshed := m.session != nil
	m.accessToken = tokens.AccessToken
	if tokens.RefreshToken != "" {
		m.refreshToken = tokens.RefreshToken
	}
	if refreshed {
		m.session.Access = m.extractJWTMetadata(m.accessToken)
		m.session.LastRefresh = m.now()
	} else {
		m.session = m.newSession()
	}
	m.profile.Auth.Type = "bearer"
	m.profile.Auth.Token = m.accessToken
	m.profile.Auth.RefreshToken = m.refreshToken
	profile := *m.profile
	m.mutex.Unlock()

	m.logger.Debug("Tokens updated", "profile", profile.Name, "refreshed", refreshed)
	return m.persist(&profile)
}

// ClearTokens forgets both tokens and removes them from the profile
func (m *Manager) ClearTokens() error {
	m.mutex.Lock()
	m.accessToken = ""
	m.refreshToken = ""
	m.session = nil
	m.profile.Auth.Type = "none"
	m.profile.Auth.Token = ""
	m.profile.Auth.RefreshToken = ""
	profile := *m.profile
	m.mutex.Unlock()

	m.logger.Info("Signed out", "profile", profile.Name)
	return m.persist(&profile)
}

func (m *Manager) persist(profile *interfaces.Profile) error {
	if m.profiles == nil {
		return nil
	}
	if err := m.profiles.SaveProfile(profile); err != nil {
		return fmt.Errorf("failed to save credentials for profile %s: %w", profile.Name, err)
	}
	return nil
}

// ValidateToken verifies the format and basic validity of a bearer token
func (m *Manager) ValidateToken(token string) error {
	return m.validator.ValidateToken(token)
}

// CreateAuthHeader constructs the Authorization header value
func (m *Manager) CreateAuthHeader(token string) (string, error) {
	if token == "" {
		return "", nil
	}
	if err := m.validator.validateTokenFormat(token); err != nil {
		return "", fmt.Errorf("invalid bearer token: %w", err)
	}
	return "Bearer " + token, nil
}

// ValidateToken checks format and, for JWTs, the exp and nbf claims
func (v *TokenValidator) ValidateToken(token string) error {
	if err := v.validateTokenFormat(token); err != nil {
		return err
	}
	if v.jwtRegex.MatchString(token) {
		return v.validateJWTClaims(strings.Split(token, ".")[1])
	}
	return nil
}

func (v *TokenValidator) validateTokenFormat(token string) error {
	if strings.TrimSpace(token) == "" {
		return fmt.Errorf("token cannot be empty")
	}
	if strings.ContainsAny(token, " \t\n\r") {
		return fmt.Errorf("token cannot contain whitespace")
	}
	if len(token) < v.minTokenLength {
		return fmt.Errorf("token too short (minimum %d characters)", v.minTokenLength)
	}
	if len(token) > v.maxTokenLength {
		return fmt.Errorf("token too long (maximum %d characters)", v.maxTokenLength)
	}
	return nil
}

// validateJWTClaims rejects expired and not-yet-valid JWTs
func (v *TokenValidator) validateJWTClaims(payload string) error {
	claims, err := decodeClaims(payload)
	if err != nil {
		return err
	}

	now := v.now()
	if exp, ok := claims["exp"].(float64); ok && now.After(time.Unix(int64(exp), 0)) {
		return fmt.Errorf("JWT token has expired")
	}
	if nbf, ok := claims["nbf"].(float64); ok && now.Before(time.Unix(int64(nbf), 0)) {
		return fmt.Errorf("JWT token is not yet valid")
	}
	return nil
}

func decodeClaims(payload string) (map[string]interface{}, error) {
	claimsBytes, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(payload, "="))
	if err != nil {
		return nil, fmt.Errorf("failed to decode JWT claims: %w", err)
	}
	var claims map[string]interface{}
	if err := json.Unmarshal(claimsBytes, &claims); err != nil {
		return nil, fmt.Errorf("invalid JWT claims JSON: %w", err)
	}
	return claims, nil
}

// extractJWTMetadata reads the claims of token; opaque tokens yield nil
func (m *Manager) extractJWTMetadata(token string) *TokenMetadata {
	if !m.validator.jwtRegex.MatchString(token) {
		return nil
	}
	claims, err := decodeClaims(strings.Split(token, ".")[1])
	if err != nil {
		return nil
	}

	metadata := &TokenMetadata{Type: "bearer"}
	if sub, ok := claims["sub"].(string); ok {
		metadata.Subject = sub
	}
	if kind, ok := claims["type"].(string); ok {
		metadata.TokenKind = kind
	}
	if iat, ok := claims["iat"].(float64); ok {
		metadata.IssuedAt = time.Unix(int64(iat), 0)
	}
	if exp, ok := claims["exp"].(float64); ok {
		metadata.ExpiresAt = time.Unix(int64(exp), 0)
	}
	return metadata
}
