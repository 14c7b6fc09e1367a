package protocol

import (
	"context"
	"encoding/base64"
	stderrors "errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/auth"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/mockapi"
)

type memoryTokens struct {
	mu      sync.Mutex
	access  string
	refresh string
	updates int
}

func (m *memoryTokens) AccessToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.access
}

func (m *memoryTokens) RefreshToken() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.refresh
}

func (m *memoryTokens) UpdateTokens(t interfaces.AuthTokens) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access = t.AccessToken
	if t.RefreshToken != "" {
		m.refresh = t.RefreshToken
	}
	m.updates++
	return nil
}

func (m *memoryTokens) ClearTokens() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.access, m.refresh = "", ""
	return nil
}

func newTestBackend(t *testing.T, cfg mockapi.Config) (*mockapi.Server, *httptest.Server) {
	t.Helper()
	backend := mockapi.NewServer(cfg, nil)
	ts := httptest.NewServer(backend.Handler())
	t.Cleanup(ts.Close)
	return backend, ts
}

func signedInClient(t *testing.T, ts *httptest.Server, opts ...Option) (*Client, *memoryTokens) {
	t.Helper()
	tokens := &memoryTokens{}
	client, err := NewClient(ts.URL+mockapi.APIPrefix, tokens, opts...)
	require.NoError(t, err)

	cfg := mockapi.DefaultConfig()
	resp, err := client.Login(context.Background(), interfaces.LoginRequest{Email: cfg.SeedEmail, Password: cfg.SeedPassword})
	require.NoError(t, err)
	require.NoError(t, tokens.UpdateTokens(resp.Tokens()))
	return client, tokens
}

func requireAPIError(t *testing.T, err error, code string) *apperrors.APIError {
	t.Helper()
	require.Error(t, err)
	var apiErr *apperrors.APIError
	require.True(t, stderrors.As(err, &apiErr), "expected APIError, got %T: %v", err, err)
	assert.Equal(t, code, apiErr.Code)
	return apiErr
}

func TestLoginAndListChildren(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)

	children, err := client.ListChildren(context.Background())
	require.NoError(t, err)
	require.Len(t, children, 2)
	assert.Equal(t, "Noa", children[0].Name)
	assert.Equal(t, "hebrew", children[0].LanguagePreference)
	assert.False(t, children[0].ID.IsZero())
}

func TestWrongPasswordIsAuthentication(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, err := NewClient(ts.URL+mockapi.APIPrefix, &memoryTokens{})
	require.NoError(t, err)

	_, err = client.Login(context.Background(), interfaces.LoginRequest{Email: "parent@example.com", Password: "wrong-password"})
	apiErr := requireAPIError(t, err, "HTTP_401")
	assert.Equal(t, "Incorrect email or password", apiErr.Message)
	assert.Equal(t, apperrors.CategoryAuthentication, apperrors.Classify(err, i18n.English).Category)
}

func TestMissingChildMapsToNotFound(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)

	_, err := client.GetChild(context.Background(), interfaces.ID("9999"))
	apiErr := requireAPIError(t, err, "HTTP_404")
	assert.Equal(t, "Child not found", apiErr.Message)
	assert.Equal(t, http.MethodGet, apiErr.Method)
	assert.Equal(t, apperrors.CategoryNotFound, apperrors.Classify(err, i18n.Hebrew).Category)
}

func TestExpiredAccessTokenIsRefreshedOnce(t *testing.T) {
	backend, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, tokens := signedInClient(t, ts)
	before := tokens.AccessToken()

	backend.ExpireAccessTokens()
	children, err := client.ListChildren(context.Background())
	require.NoError(t, err)
	assert.Len(t, children, 2)

	assert.NotEqual(t, before, tokens.AccessToken())
	assert.EqualValues(t, 1, client.Statistics().TokenRefreshes)
}

func TestAccessTokenNearExpiryIsRefreshedBeforeUse(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	tokens, err := auth.NewManager(&interfaces.Profile{Name: "test"}, nil)
	require.NoError(t, err)
	client, err := NewClient(ts.URL+mockapi.APIPrefix, tokens)
	require.NoError(t, err)
	t.Cleanup(client.Close)

	cfg := mockapi.DefaultConfig()
	resp, err := client.Login(context.Background(), interfaces.LoginRequest{Email: cfg.SeedEmail, Password: cfg.SeedPassword})
	require.NoError(t, err)

	enc := base64.RawURLEncoding
	claims := fmt.Sprintf(`{"sub":"1","exp":%d}`, time.Now().Add(RefreshSkew/3).Unix())
	expiring := resp.Tokens()
	expiring.AccessToken = enc.EncodeToString([]byte(`{"alg":"HS256"}`)) + "." + enc.EncodeToString([]byte(claims)) + ".c2ln"
	require.NoError(t, tokens.UpdateTokens(expiring))

	children, err := client.ListChildren(context.Background())
	require.NoError(t, err)
	assert.Len(t, children, 2)

	stats := client.Statistics()
	assert.EqualValues(t, 1, stats.TokenRefreshes)
	assert.Zero(t, stats.FailedRequests, "the expiring token is never sent")
	assert.NotEqual(t, expiring.AccessToken, tokens.AccessToken())
}

func TestFailedRefreshSurfacesOriginal401(t *testing.T) {
	backend, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, tokens := signedInClient(t, ts)
	tokens.refresh = "refresh.revoked"

	backend.ExpireAccessTokens()
	_, err := client.ListChildren(context.Background())
	requireAPIError(t, err, "HTTP_401")
	assert.True(t, apperrors.Classify(err, i18n.English).RequiresAuth())
}

func TestValidationDetailIsJoined(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, err := NewClient(ts.URL+mockapi.APIPrefix, nil)
	require.NoError(t, err)

	_, err = client.Register(context.Background(), interfaces.RegisterRequest{Email: "new@example.com", Name: "New", Password: "short"})
	apiErr := requireAPIError(t, err, "HTTP_422")
	assert.Equal(t, "Password must be at least 8 characters long", apiErr.Message)
	assert.Equal(t, apperrors.CategoryValidation, apperrors.Classify(err, i18n.English).Category)
}

func TestServerErrorIsRetryable(t *testing.T) {
	backend, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)

	backend.FailNext("/children/", http.StatusServiceUnavailable)
	_, err := client.ListChildren(context.Background())
	requireAPIError(t, err, "HTTP_503")
	assert.True(t, apperrors.Classify(err, i18n.English).ShouldRetry())

	_, err = client.ListChildren(context.Background())
	assert.NoError(t, err)
}

func TestUnreachableBackendIsNetworkError(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	client, err := NewClient(url+mockapi.APIPrefix, nil)
	require.NoError(t, err)
	_, err = client.Health(context.Background())
	requireAPIError(t, err, apperrors.CodeNetwork)
	assert.Equal(t, apperrors.CategoryNetwork, apperrors.Classify(err, i18n.English).Category)
}

func TestSlowResponseIsTimeout(t *testing.T) {
	cfg := mockapi.DefaultConfig()
	cfg.Latency = 300 * time.Millisecond
	_, ts := newTestBackend(t, cfg)
	client, _ := signedInClient(t, ts, WithTimeout(50*time.Millisecond))

	children, err := client.ListChildren(context.Background())
	require.NoError(t, err)
	_, err = client.GenerateStory(context.Background(), interfaces.GenerateStoryRequest{ChildID: children[0].ID, Theme: "forest"})
	requireAPIError(t, err, apperrors.CodeTimeout)
}

func TestStoryFlow(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)
	ctx := context.Background()

	children, err := client.ListChildren(ctx)
	require.NoError(t, err)
	kid := children[1]

	story, err := client.GenerateStory(ctx, interfaces.GenerateStoryRequest{ChildID: kid.ID, Theme: "space"})
	require.NoError(t, err)
	assert.Len(t, story.Content, 3)
	assert.Equal(t, 1, story.CurrentChapter)
	assert.Equal(t, 3, story.TotalChapters)
	require.Len(t, story.Choices, 3)
	assert.Contains(t, story.Content[0], kid.Name)

	fetched, err := client.GetStory(ctx, story.ID)
	require.NoError(t, err)
	assert.Equal(t, story.Content, fetched.Content)
	assert.Equal(t, "space", fetched.Theme)

	session, err := client.StartSession(ctx, story.ID, kid.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.CurrentChapter)

	require.NoError(t, client.UpdateProgress(ctx, session.ID, interfaces.ReadingProgress{WordsRead: 42, ReadingTime: 3}))

	result, err := client.SubmitChoice(ctx, session.ID, interfaces.ChoiceRequest{ChoiceID: story.Choices[0].ID.String()})
	require.NoError(t, err)
	assert.True(t, result.Success)
	assert.False(t, result.IsEnding)
	assert.Equal(t, 2, result.NextChapter)
	assert.Contains(t, result.BranchContent, story.Choices[0].Text)
	require.NotEmpty(t, result.NewChoices)

	result, err = client.SubmitChoice(ctx, session.ID, interfaces.ChoiceRequest{ChoiceID: interfaces.CustomChoiceID, CustomText: "Build a rocket"})
	require.NoError(t, err)
	assert.Contains(t, result.BranchContent, "Build a rocket")

	result, err = client.SubmitChoice(ctx, session.ID, interfaces.ChoiceRequest{ChoiceID: result.NewChoices[1].ID.String(), OptionIndex: 1})
	require.NoError(t, err)
	assert.True(t, result.IsEnding)
	assert.Equal(t, 100, result.CompletionPercentage)

	stories, err := client.ListStories(ctx, interfaces.StoryFilter{Theme: "space", Limit: 5})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	assert.Equal(t, story.ID, stories[0].ID)

	stories, err = client.ListStories(ctx, interfaces.StoryFilter{Theme: "dragons"})
	require.NoError(t, err)
	assert.Empty(t, stories)
}

func TestRecommendationsAndProgress(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)
	ctx := context.Background()

	children, err := client.ListChildren(ctx)
	require.NoError(t, err)
	kid := children[1]

	story, err := client.GenerateStory(ctx, interfaces.GenerateStoryRequest{ChildID: kid.ID, Theme: "ocean"})
	require.NoError(t, err)

	rec, err := client.Recommendations(ctx, kid.ID, 3)
	require.NoError(t, err)
	assert.True(t, rec.Personalized)
	require.Len(t, rec.Stories, 1)
	assert.Equal(t, story.ID, rec.Stories[0].ID)
	assert.Equal(t, "ocean", rec.Stories[0].Theme)

	report, err := client.ProgressReport(ctx, kid.ID, interfaces.PeriodMonth)
	require.NoError(t, err)
	assert.Equal(t, kid.ID, report.ChildID)
	assert.Equal(t, kid.Name, report.ChildName)
	require.NotNil(t, report.StartDate)
	assert.True(t, report.StartDate.Before(report.EndDate.Time))
	assert.NotEmpty(t, report.Recommendations)

	_, err = client.ProgressReport(ctx, kid.ID, "decade")
	assert.ErrorContains(t, err, "invalid period")
}

func TestCustomChoiceRequiresText(t *testing.T) {
	client, err := NewClient("http://localhost:1/api/v1", nil)
	require.NoError(t, err)
	_, err = client.SubmitChoice(context.Background(), "1", interfaces.ChoiceRequest{ChoiceID: interfaces.CustomChoiceID})
	assert.Error(t, err)
}

func TestCheckSafety(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)
	ctx := context.Background()

	children, err := client.ListChildren(ctx)
	require.NoError(t, err)
	story, err := client.GenerateStory(ctx, interfaces.GenerateStoryRequest{ChildID: children[0].ID, Theme: "animals"})
	require.NoError(t, err)
	assert.Equal(t, "hebrew", story.Language)

	check, err := client.CheckSafety(ctx, story.ID, 8, "hebrew")
	require.NoError(t, err)
	assert.True(t, check.IsSafe)
	assert.False(t, check.NeedsReview)
}

func TestChildLifecycle(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)
	ctx := context.Background()

	name, age, level := "Lia", 9, interfaces.ReadingAdvanced
	created, err := client.CreateChild(ctx, interfaces.ChildInput{Name: &name, Age: &age, ReadingLevel: &level, Interests: []string{"music"}})
	require.NoError(t, err)
	assert.Equal(t, "Lia", created.Name)

	newAge := 10
	updated, err := client.UpdateChild(ctx, created.ID, interfaces.ChildInput{Age: &newAge})
	require.NoError(t, err)
	assert.Equal(t, 10, updated.Age)
	assert.Equal(t, interfaces.ReadingAdvanced, updated.ReadingLevel)

	dashboard, err := client.ChildDashboard(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Lia", dashboard.Child.Name)

	parent, err := client.ParentDashboard(ctx)
	require.NoError(t, err)
	assert.Len(t, parent.ChildrenSummary, 3)

	require.NoError(t, client.DeleteChild(ctx, created.ID))
	_, err = client.GetChild(ctx, created.ID)
	requireAPIError(t, err, "HTTP_404")
}

func TestChildInputValidation(t *testing.T) {
	name, young, level := "Tom", 5, "expert"
	assert.Error(t, ValidateChildInput(interfaces.ChildInput{Name: &name, Age: &young}, true))
	assert.Error(t, ValidateChildInput(interfaces.ChildInput{ReadingLevel: &level}, false))
	assert.Error(t, ValidateChildInput(interfaces.ChildInput{Interests: []string{"cooking"}}, false))
	assert.Error(t, ValidateChildInput(interfaces.ChildInput{}, true))
	assert.NoError(t, ValidateChildInput(interfaces.ChildInput{}, false))
}

func TestPasswordReset(t *testing.T) {
	backend, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, err := NewClient(ts.URL+mockapi.APIPrefix, nil)
	require.NoError(t, err)
	ctx := context.Background()

	ack, err := client.ForgotPassword(ctx, "nobody@example.com")
	require.NoError(t, err)
	generic := ack.Message

	ack, err = client.ForgotPassword(ctx, "parent@example.com")
	require.NoError(t, err)
	assert.Equal(t, generic, ack.Message)

	token := backend.ResetTokenFor("parent@example.com")
	require.NotEmpty(t, token)
	_, err = client.ResetPassword(ctx, interfaces.ResetPasswordRequest{Token: token, NewPassword: "brand-new-pass"})
	require.NoError(t, err)

	_, err = client.Login(ctx, interfaces.LoginRequest{Email: "parent@example.com", Password: "brand-new-pass"})
	assert.NoError(t, err)
}

func TestLogoutRevokesSession(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, _ := signedInClient(t, ts)
	ctx := context.Background()

	require.NoError(t, client.Logout(ctx))
	_, err := client.ListChildren(ctx)
	requireAPIError(t, err, "HTTP_401")
}

func TestHealth(t *testing.T) {
	_, ts := newTestBackend(t, mockapi.DefaultConfig())
	client, err := NewClient(ts.URL+mockapi.APIPrefix, nil)
	require.NoError(t, err)

	status, err := client.Health(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "healthy", status.Status)
}

func TestBuildURL(t *testing.T) {
	client, err := NewClient("localhost:8000/api/v1/", nil)
	require.NoError(t, err)

	assert.Equal(t, "http://localhost:8000/api/v1/children/", client.buildURL(call{path: EndpointChildren}))
	assert.Equal(t, "http://localhost:8000/health", client.buildURL(call{path: EndpointHealth, root: true}))
	assert.Equal(t, "http://localhost:8000/api/v1/stories/?theme=space", client.buildURL(call{path: EndpointStories, query: filterQuery(interfaces.StoryFilter{Theme: "space"})}))
}
