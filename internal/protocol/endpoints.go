package protocol

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/storynest/console/internal/interfaces"
)

// Login signs in with email and password
func (c *Client) Login(ctx context.Context, req interfaces.LoginRequest) (*interfaces.AuthResponse, error) {
	if strings.TrimSpace(req.Email) == "" || req.Password == "" {
		return nil, fmt.Errorf("email and password are required")
	}
	var resp interfaces.AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: EndpointLogin, body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Register creates a parent account and signs it in
func (c *Client) Register(ctx context.Context, req interfaces.RegisterRequest) (*interfaces.AuthResponse, error) {
	var resp interfaces.AuthResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: EndpointRegister, body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// Refresh exchanges the refresh token for a new token pair and hands it to
// the token source
func (c *Client) Refresh(ctx context.Context) (*interfaces.AuthTokens, error) {
	if c.tokens == nil || c.tokens.RefreshToken() == "" {
		return nil, fmt.Errorf("no refresh token available")
	}

	ctx, cancel := context.WithTimeout(ctx, RefreshTimeout)
	defer cancel()

	var tokens interfaces.AuthTokens
	err := c.execute(ctx, call{
		method: http.MethodPost,
		path:   EndpointRefresh,
		body:   refreshRequest{RefreshToken: c.tokens.RefreshToken()},
		out:    &tokens,
	})
	if err != nil {
		return nil, err
	}
	if err := c.tokens.UpdateTokens(tokens); err != nil {
		return nil, fmt.Errorf("failed to store refreshed tokens: %w", err)
	}

	c.mutex.Lock()
	c.stats.TokenRefreshes++
	c.mutex.Unlock()
	c.logger.Debug("Access token refreshed")
	return &tokens, nil
}

// Logout invalidates the server-side session. The backend identifies the
// session by the refresh token.
func (c *Client) Logout(ctx context.Context) error {
	if c.tokens == nil || c.tokens.RefreshToken() == "" {
		return nil
	}
	return c.execute(ctx, call{method: http.MethodPost, path: EndpointLogout, auth: authRefresh})
}

// ForgotPassword requests a reset email. The backend answers with the same
// message whether or not the address exists.
func (c *Client) ForgotPassword(ctx context.Context, email string) (*interfaces.MessageResponse, error) {
	var resp interfaces.MessageResponse
	err := c.do(ctx, call{method: http.MethodPost, path: EndpointForgotPassword, body: forgotPasswordRequest{Email: email}, out: &resp})
	if err != nil {
		return nil, err
	}
	return &resp, nil
}

// ResetPassword sets a new password using the emailed reset token
func (c *Client) ResetPassword(ctx context.Context, req interfaces.ResetPasswordRequest) (*interfaces.MessageResponse, error) {
	var resp interfaces.MessageResponse
	if err := c.do(ctx, call{method: http.MethodPost, path: EndpointResetPassword, body: req, out: &resp}); err != nil {
		return nil, err
	}
	return &resp, nil
}

// ListChildren returns the signed-in parent's child profiles
func (c *Client) ListChildren(ctx context.Context) ([]interfaces.Child, error) {
	var children []interfaces.Child
	if err := c.do(ctx, call{method: http.MethodGet, path: EndpointChildren, out: &children, auth: authAccess}); err != nil {
		return nil, err
	}
	return children, nil
}

// CreateChild adds a child profile
func (c *Client) CreateChild(ctx context.Context, input interfaces.ChildInput) (*interfaces.Child, error) {
	if err := ValidateChildInput(input, true); err != nil {
		return nil, err
	}
	var child interfaces.Child
	if err := c.do(ctx, call{method: http.MethodPost, path: EndpointChildren, body: input, out: &child, auth: authAccess}); err != nil {
		return nil, err
	}
	return &child, nil
}

// GetChild fetches one child profile
func (c *Client) GetChild(ctx context.Context, id interfaces.ID) (*interfaces.Child, error) {
	var child interfaces.Child
	if err := c.do(ctx, call{method: http.MethodGet, path: resourcePath(EndpointChild, id), out: &child, auth: authAccess}); err != nil {
		return nil, err
	}
	return &child, nil
}

// UpdateChild changes the non-nil fields of input
func (c *Client) UpdateChild(ctx context.Context, id interfaces.ID, input interfaces.ChildInput) (*interfaces.Child, error) {
	if err := ValidateChildInput(input, false); err != nil {
		return nil, err
	}
	var child interfaces.Child
	if err := c.do(ctx, call{method: http.MethodPut, path: resourcePath(EndpointChild, id), body: input, out: &child, auth: authAccess}); err != nil {
		return nil, err
	}
	return &child, nil
}

// DeleteChild deactivates a child profile
func (c *Client) DeleteChild(ctx context.Context, id interfaces.ID) error {
	return c.do(ctx, call{method: http.MethodDelete, path: resourcePath(EndpointChild, id), auth: authAccess})
}

// ChildDashboard returns reading statistics for one child
func (c *Client) ChildDashboard(ctx context.Context, id interfaces.ID) (*interfaces.ChildDashboard, error) {
	var dashboard interfaces.ChildDashboard
	if err := c.do(ctx, call{method: http.MethodGet, path: resourcePath(EndpointChildDashboard, id), out: &dashboard, auth: authAccess}); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// ParentDashboard returns the family-wide reading summary
func (c *Client) ParentDashboard(ctx context.Context) (*interfaces.ParentDashboard, error) {
	var dashboard interfaces.ParentDashboard
	if err := c.do(ctx, call{method: http.MethodGet, path: EndpointParentDashboard, out: &dashboard, auth: authAccess}); err != nil {
		return nil, err
	}
	return &dashboard, nil
}

// ProgressReport returns a child's reading progress over period, one of
// interfaces.ProgressPeriods
func (c *Client) ProgressReport(ctx context.Context, childID interfaces.ID, period string) (*interfaces.ProgressReport, error) {
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("invalid period %q", period)
	}
	query := url.Values{}
	query.Set("period", period)

	var report interfaces.ProgressReport
	err := c.do(ctx, call{method: http.MethodGet, path: resourcePath(EndpointChildProgress, childID), query: query, out: &report, auth: authAccess})
	if err != nil {
		return nil, err
	}
	return &report, nil
}

// ListStories returns published stories matching filter
func (c *Client) ListStories(ctx context.Context, filter interfaces.StoryFilter) ([]interfaces.Story, error) {
	var stories []interfaces.Story
	err := c.do(ctx, call{method: http.MethodGet, path: EndpointStories, query: filterQuery(filter), out: &stories, auth: authAccess})
	if err != nil {
		return nil, err
	}
	return stories, nil
}

// GenerateStory asks the backend to write a new chapter for a child
func (c *Client) GenerateStory(ctx context.Context, req interfaces.GenerateStoryRequest) (*interfaces.Story, error) {
	if req.ChildID.IsZero() {
		return nil, fmt.Errorf("child id is required")
	}
	if strings.TrimSpace(req.Theme) == "" {
		return nil, fmt.Errorf("theme is required")
	}
	if req.ChapterNumber <= 0 {
		req.ChapterNumber = 1
	}

	var story interfaces.Story
	if err := c.do(ctx, call{method: http.MethodPost, path: EndpointGenerateStory, body: req, out: &story, auth: authAccess}); err != nil {
		return nil, err
	}
	return &story, nil
}

// GetStory fetches a story with its first chapter's choices
func (c *Client) GetStory(ctx context.Context, id interfaces.ID) (*interfaces.Story, error) {
	var story interfaces.Story
	if err := c.do(ctx, call{method: http.MethodGet, path: resourcePath(EndpointStory, id), out: &story, auth: authAccess}); err != nil {
		return nil, err
	}
	return &story, nil
}

// Recommendations returns stories picked for a child. limit <= 0 keeps the
// backend default.
func (c *Client) Recommendations(ctx context.Context, childID interfaces.ID, limit int) (*interfaces.StoryRecommendation, error) {
	query := url.Values{}
	if limit > 0 {
		query.Set("limit", strconv.Itoa(limit))
	}
	var rec interfaces.StoryRecommendation
	err := c.do(ctx, call{method: http.MethodGet, path: resourcePath(EndpointRecommendations, childID), query: query, out: &rec, auth: authAccess})
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CheckSafety runs the content safety check of a story for a child's age
func (c *Client) CheckSafety(ctx context.Context, id interfaces.ID, childAge int, language string) (*interfaces.SafetyCheck, error) {
	query := url.Values{}
	query.Set("child_age", strconv.Itoa(childAge))
	if language != "" {
		query.Set("language", language)
	}

	var check interfaces.SafetyCheck
	err := c.do(ctx, call{method: http.MethodPost, path: resourcePath(EndpointCheckSafety, id), query: query, out: &check, auth: authAccess})
	if err != nil {
		return nil, err
	}
	return &check, nil
}

// StartSession creates or resumes a reading session
func (c *Client) StartSession(ctx context.Context, storyID, childID interfaces.ID) (*interfaces.StorySession, error) {
	var session interfaces.StorySession
	err := c.do(ctx, call{
		method: http.MethodPost,
		path:   resourcePath(EndpointStartSession, storyID),
		body:   startSessionRequest{ChildID: childID},
		out:    &session,
		auth:   authAccess,
	})
	if err != nil {
		return nil, err
	}
	return &session, nil
}

// UpdateProgress records reading progress for a session
func (c *Client) UpdateProgress(ctx context.Context, sessionID interfaces.ID, progress interfaces.ReadingProgress) error {
	if progress.SessionID.IsZero() {
		progress.SessionID = sessionID
	}
	var ack interfaces.MessageResponse
	return c.do(ctx, call{method: http.MethodPut, path: resourcePath(EndpointUpdateProgress, sessionID), body: progress, out: &ack, auth: authAccess})
}

// SubmitChoice records a decision and returns the chapter it leads to
func (c *Client) SubmitChoice(ctx context.Context, sessionID interfaces.ID, req interfaces.ChoiceRequest) (*interfaces.ChoiceResult, error) {
	if req.ChoiceID == "" {
		return nil, fmt.Errorf("choice id is required")
	}
	if req.ChoiceID == interfaces.CustomChoiceID && strings.TrimSpace(req.CustomText) == "" {
		return nil, fmt.Errorf("custom choice requires text")
	}
	if req.Timestamp == "" {
		req.Timestamp = time.Now().UTC().Format(time.RFC3339)
	}

	var result interfaces.ChoiceResult
	err := c.do(ctx, call{method: http.MethodPost, path: resourcePath(EndpointSubmitChoice, sessionID), body: req, out: &result, auth: authAccess})
	if err != nil {
		return nil, err
	}
	return &result, nil
}

// Health probes the backend's root health endpoint
func (c *Client) Health(ctx context.Context) (*interfaces.HealthStatus, error) {
	ctx, cancel := context.WithTimeout(ctx, DefaultHealthTimeout)
	defer cancel()

	var status interfaces.HealthStatus
	if err := c.execute(ctx, call{method: http.MethodGet, path: EndpointHealth, out: &status, root: true}); err != nil {
		return nil, err
	}
	return &status, nil
}

// ValidateChildInput applies the backend's profile rules locally. create
// requires name and age.
func ValidateChildInput(input interfaces.ChildInput, create bool) error {
	if create && (input.Name == nil || strings.TrimSpace(*input.Name) == "") {
		return fmt.Errorf("child name is required")
	}
	if input.Name != nil && len(strings.TrimSpace(*input.Name)) > 100 {
		return fmt.Errorf("child name must be at most 100 characters")
	}
	if create && input.Age == nil {
		return fmt.Errorf("child age is required")
	}
	if input.Age != nil && (*input.Age < interfaces.MinChildAge || *input.Age > interfaces.MaxChildAge) {
		return fmt.Errorf("child age must be between %d and %d", interfaces.MinChildAge, interfaces.MaxChildAge)
	}
	if input.ReadingLevel != nil {
		switch *input.ReadingLevel {
		case interfaces.ReadingBeginner, interfaces.ReadingIntermediate, interfaces.ReadingAdvanced:
		default:
			return fmt.Errorf("unknown reading level %q", *input.ReadingLevel)
		}
	}
	if input.LanguagePreference != nil {
		switch *input.LanguagePreference {
		case "english", "hebrew":
		default:
			return fmt.Errorf("unsupported language %q", *input.LanguagePreference)
		}
	}
	for _, interest := range input.Interests {
		if !interfaces.ValidInterest(interest) {
			return fmt.Errorf("unknown interest %q", interest)
		}
	}
	return nil
}

// ValidPeriod reports whether period is a progress report period
func ValidPeriod(period string) bool {
	for _, p := range interfaces.ProgressPeriods {
		if p == period {
			return true
		}
	}
	return false
}

func resourcePath(format string, id interfaces.ID) string {
	return fmt.Sprintf(format, url.PathEscape(id.String()))
}

func filterQuery(filter interfaces.StoryFilter) url.Values {
	query := url.Values{}
	if !filter.ChildID.IsZero() {
		query.Set("child_id", filter.ChildID.String())
	}
	if filter.Theme != "" {
		query.Set("theme", filter.Theme)
	}
	if filter.Difficulty != "" {
		query.Set("difficulty", filter.Difficulty)
	}
	if filter.Language != "" {
		query.Set("language", filter.Language)
	}
	if filter.Limit > 0 {
		query.Set("limit", strconv.Itoa(filter.Limit))
	}
	return query
}
