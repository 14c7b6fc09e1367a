package store

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
)

// fakeBackend answers from fixed data. Calls to ListStories block on gate
// when one is installed for the filter's theme.
type fakeBackend struct {
	mu         sync.Mutex
	children   []interfaces.Child
	stories    map[string][]interfaces.Story
	gates      map[string]chan struct{}
	started    chan string
	listCalls  int32
	choice     *interfaces.ChoiceResult
	loggedOut  bool
	logoutErr  error
	lastChoice interfaces.ChoiceRequest
}

func newFakeBackend() *fakeBackend {
	return &fakeBackend{
		children: []interfaces.Child{
			{ID: "1", Name: "Noa", Age: 8, LanguagePreference: "hebrew"},
			{ID: "2", Name: "Max", Age: 10, LanguagePreference: "english"},
		},
		stories: map[string][]interfaces.Story{},
		gates:   map[string]chan struct{}{},
		started: make(chan string, 8),
	}
}

func (f *fakeBackend) Login(ctx context.Context, req interfaces.LoginRequest) (*interfaces.AuthResponse, error) {
	if req.Password != "storytime123" {
		return nil, errors.New("invalid credentials")
	}
	return &interfaces.AuthResponse{
		User:         interfaces.User{ID: "7", Email: req.Email, Name: "Dana"},
		AccessToken:  "access.token.value",
		RefreshToken: "refresh.token.value",
	}, nil
}

func (f *fakeBackend) Register(ctx context.Context, req interfaces.RegisterRequest) (*interfaces.AuthResponse, error) {
	return &interfaces.AuthResponse{
		User:         interfaces.User{ID: "8", Email: req.Email, Name: req.Name},
		AccessToken:  "access.new.value",
		RefreshToken: "refresh.new.value",
	}, nil
}

func (f *fakeBackend) Logout(ctx context.Context) error {
	f.loggedOut = true
	return f.logoutErr
}

func (f *fakeBackend) ForgotPassword(ctx context.Context, email string) (*interfaces.MessageResponse, error) {
	return &interfaces.MessageResponse{Message: "sent"}, nil
}

func (f *fakeBackend) ResetPassword(ctx context.Context, req interfaces.ResetPasswordRequest) (*interfaces.MessageResponse, error) {
	return &interfaces.MessageResponse{Message: "reset"}, nil
}

func (f *fakeBackend) ListChildren(ctx context.Context) ([]interfaces.Child, error) {
	return append([]interfaces.Child(nil), f.children...), nil
}

func (f *fakeBackend) CreateChild(ctx context.Context, input interfaces.ChildInput) (*interfaces.Child, error) {
	return &interfaces.Child{ID: "3", Name: *input.Name, Age: *input.Age}, nil
}

func (f *fakeBackend) GetChild(ctx context.Context, id interfaces.ID) (*interfaces.Child, error) {
	return nil, errors.New("not implemented")
}

func (f *fakeBackend) UpdateChild(ctx context.Context, id interfaces.ID, input interfaces.ChildInput) (*interfaces.Child, error) {
	return &interfaces.Child{ID: id, Name: *input.Name, LanguagePreference: "english"}, nil
}

func (f *fakeBackend) DeleteChild(ctx context.Context, id interfaces.ID) error {
	return nil
}

func (f *fakeBackend) ChildDashboard(ctx context.Context, id interfaces.ID) (*interfaces.ChildDashboard, error) {
	return &interfaces.ChildDashboard{Child: interfaces.Child{ID: id}, ReadingStreak: 3}, nil
}

func (f *fakeBackend) ParentDashboard(ctx context.Context) (*interfaces.ParentDashboard, error) {
	return &interfaces.ParentDashboard{ParentName: "Dana"}, nil
}

func (f *fakeBackend) ProgressReport(ctx context.Context, childID interfaces.ID, period string) (*interfaces.ProgressReport, error) {
	return &interfaces.ProgressReport{ChildID: childID, Period: period, StoriesCompleted: 2}, nil
}

func (f *fakeBackend) Recommendations(ctx context.Context, childID interfaces.ID, limit int) (*interfaces.StoryRecommendation, error) {
	stories := []interfaces.Story{{ID: "r1", Title: "Pick one"}, {ID: "r2", Title: "Pick two"}}
	return &interfaces.StoryRecommendation{Stories: stories[:min(limit, len(stories))], Personalized: true}, nil
}

func (f *fakeBackend) ListStories(ctx context.Context, filter interfaces.StoryFilter) ([]interfaces.Story, error) {
	atomic.AddInt32(&f.listCalls, 1)
	f.mu.Lock()
	gate := f.gates[filter.Theme]
	stories := f.stories[filter.Theme]
	f.mu.Unlock()

	f.started <- filter.Theme
	if gate != nil {
		<-gate
	}
	return stories, nil
}

func (f *fakeBackend) GenerateStory(ctx context.Context, req interfaces.GenerateStoryRequest) (*interfaces.Story, error) {
	return &interfaces.Story{
		ID:             "s1",
		Title:          "The Dragon",
		Theme:          req.Theme,
		Content:        []string{"Once upon a time."},
		Choices:        []interfaces.Choice{{ID: "c1", Text: "Fly"}},
		CurrentChapter: 1,
		TotalChapters:  3,
	}, nil
}

func (f *fakeBackend) GetStory(ctx context.Context, id interfaces.ID) (*interfaces.Story, error) {
	return &interfaces.Story{ID: id, Title: "Stored", Content: []string{"Hello."}}, nil
}

func (f *fakeBackend) CheckSafety(ctx context.Context, id interfaces.ID, childAge int, language string) (*interfaces.SafetyCheck, error) {
	return &interfaces.SafetyCheck{IsSafe: true, SafetyScore: 0.98}, nil
}

func (f *fakeBackend) StartSession(ctx context.Context, storyID, childID interfaces.ID) (*interfaces.StorySession, error) {
	return &interfaces.StorySession{ID: "sess", StoryID: storyID, ChildID: childID, CurrentChapter: 1}, nil
}

func (f *fakeBackend) UpdateProgress(ctx context.Context, sessionID interfaces.ID, progress interfaces.ReadingProgress) error {
	return nil
}

func (f *fakeBackend) SubmitChoice(ctx context.Context, sessionID interfaces.ID, req interfaces.ChoiceRequest) (*interfaces.ChoiceResult, error) {
	f.lastChoice = req
	return f.choice, nil
}

func (f *fakeBackend) Health(ctx context.Context) (*interfaces.HealthStatus, error) {
	return &interfaces.HealthStatus{Status: "healthy"}, nil
}

type memoryTokens struct {
	access, refresh string
}

func (m *memoryTokens) AccessToken() string  { return m.access }
func (m *memoryTokens) RefreshToken() string { return m.refresh }
func (m *memoryTokens) UpdateTokens(t interfaces.AuthTokens) error {
	m.access = t.AccessToken
	if t.RefreshToken != "" {
		m.refresh = t.RefreshToken
	}
	return nil
}
func (m *memoryTokens) ClearTokens() error {
	m.access, m.refresh = "", ""
	return nil
}

func TestTrackerDiscardsSupersededTickets(t *testing.T) {
	var tr Tracker
	first := tr.Begin("story")
	second := tr.Begin("story")
	other := tr.Begin("children")

	assert.False(t, tr.Current(first))
	assert.True(t, tr.Current(second))
	assert.True(t, tr.Current(other))

	applied := false
	assert.False(t, tr.Commit(first, func() { applied = true }))
	assert.False(t, applied)
	assert.True(t, tr.Commit(second, func() { applied = true }))
	assert.True(t, applied)

	tr.Invalidate("children")
	assert.False(t, tr.Current(other))
}

func TestLoadStoriesDiscardsStaleResponse(t *testing.T) {
	backend := newFakeBackend()
	backend.stories["space"] = []interfaces.Story{{ID: "old", Theme: "space"}}
	backend.stories["ocean"] = []interfaces.Story{{ID: "new", Theme: "ocean"}}
	backend.gates["space"] = make(chan struct{})
	s := NewStoryStore(backend)

	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := s.LoadStories(context.Background(), interfaces.StoryFilter{Theme: "space"})
		assert.NoError(t, err)
	}()
	require.Equal(t, "space", <-backend.started)

	stories, err := s.LoadStories(context.Background(), interfaces.StoryFilter{Theme: "ocean"})
	require.NoError(t, err)
	require.Len(t, stories, 1)
	<-backend.started

	close(backend.gates["space"])
	<-done

	got := s.Stories()
	require.Len(t, got, 1)
	assert.Equal(t, interfaces.ID("new"), got[0].ID)
	assert.Equal(t, "ocean", s.Snapshot().Filter.Theme)
}

func TestIdenticalLoadsShareOneRequest(t *testing.T) {
	backend := newFakeBackend()
	backend.stories["space"] = []interfaces.Story{{ID: "a", Theme: "space"}}
	backend.gates["space"] = make(chan struct{})
	s := NewStoryStore(backend)

	var wg sync.WaitGroup
	load := func() {
		defer wg.Done()
		stories, err := s.LoadStories(context.Background(), interfaces.StoryFilter{Theme: "space"})
		assert.NoError(t, err)
		assert.Len(t, stories, 1)
	}
	wg.Add(2)
	go load()
	<-backend.started
	go load()
	time.Sleep(50 * time.Millisecond)
	close(backend.gates["space"])
	wg.Wait()

	assert.Equal(t, int32(1), atomic.LoadInt32(&backend.listCalls))
}

func TestFilteredMatchesLocally(t *testing.T) {
	backend := newFakeBackend()
	backend.stories[""] = []interfaces.Story{
		{ID: "1", Theme: "space", Language: "english", ReadingLevel: "beginner"},
		{ID: "2", Theme: "ocean", Language: "hebrew", ReadingLevel: "beginner"},
		{ID: "3", Theme: "space", Language: "hebrew", ReadingLevel: "advanced"},
	}
	s := NewStoryStore(backend)
	_, err := s.LoadStories(context.Background(), interfaces.StoryFilter{})
	require.NoError(t, err)

	assert.Len(t, s.Filtered("", "", ""), 3)
	assert.Len(t, s.Filtered("space", "", ""), 2)
	assert.Len(t, s.Filtered("SPACE", "hebrew", ""), 1)
	assert.Empty(t, s.Filtered("ocean", "", "advanced"))
}

func TestGenerateLeavesStoreAlone(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	story, err := s.Generate(context.Background(), interfaces.GenerateStoryRequest{ChildID: "1", Theme: "dragons"})
	require.NoError(t, err)
	assert.Equal(t, interfaces.ID("s1"), story.ID)
	assert.Nil(t, s.Current())
	assert.Nil(t, s.Session())
}

func TestSetSessionRequiresCurrentStory(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	ctx := context.Background()

	session, err := s.OpenSession(ctx, "s1", "1")
	require.NoError(t, err)
	assert.False(t, s.SetSession(session), "no story shown yet")
	assert.Nil(t, s.Session())

	s.SetCurrent(&interfaces.Story{ID: "other"})
	assert.False(t, s.SetSession(session))

	s.SetCurrent(&interfaces.Story{ID: "s1"})
	assert.True(t, s.SetSession(session))
	assert.Equal(t, interfaces.ID("s1"), s.Session().StoryID)

	s.SetCurrent(&interfaces.Story{ID: "other"})
	assert.Nil(t, s.Session(), "a session never outlives its story")
}

func TestChoiceAppendsChapter(t *testing.T) {
	backend := newFakeBackend()
	s := NewStoryStore(backend)
	ctx := context.Background()

	_, err := s.SubmitChoice(ctx, interfaces.ChoiceRequest{ChoiceID: "c1"})
	require.Error(t, err, "no session yet")

	story, err := s.Generate(ctx, interfaces.GenerateStoryRequest{ChildID: "1", Theme: "dragons"})
	require.NoError(t, err)
	s.SetCurrent(story)
	_, err = s.StartSession(ctx, "1")
	require.NoError(t, err)

	backend.choice = &interfaces.ChoiceResult{
		Success:              true,
		BranchContent:        "You chose: Fly.\n\nThe dragon soared.",
		NextChapter:          2,
		CompletionPercentage: 66,
		NewChoices:           []interfaces.Choice{{ID: "c2", Text: "Land"}},
	}
	result, err := s.SubmitChoice(ctx, interfaces.ChoiceRequest{ChoiceID: "c1"})
	require.NoError(t, err)
	assert.Len(t, s.Current().Content, 1, "submitting alone does not append")

	s.ApplyChoice(result)
	current := s.Current()
	require.NotNil(t, current)
	assert.Equal(t, []string{"Once upon a time.", "You chose: Fly.", "The dragon soared."}, current.Content)
	assert.Equal(t, 2, current.CurrentChapter)
	assert.Equal(t, "Land", current.Choices[0].Text)
	assert.Equal(t, 66, s.Session().CompletionPercentage)
	assert.Equal(t, 2, s.Session().CurrentChapter)

	backend.choice = &interfaces.ChoiceResult{Success: false, Error: "bad choice"}
	_, err = s.SubmitChoice(ctx, interfaces.ChoiceRequest{ChoiceID: "c2"})
	assert.ErrorContains(t, err, "bad choice")
}

func TestCurrentIsACopy(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	story, err := s.Generate(context.Background(), interfaces.GenerateStoryRequest{ChildID: "1", Theme: "x"})
	require.NoError(t, err)
	s.SetCurrent(story)

	got := s.Current()
	got.Content[0] = "changed"
	story.Content[0] = "changed too"
	assert.Equal(t, "Once upon a time.", s.Current().Content[0])
}

func TestClearAllKeepsSession(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	ctx := context.Background()
	story, err := s.Generate(ctx, interfaces.GenerateStoryRequest{ChildID: "1", Theme: "x"})
	require.NoError(t, err)
	s.SetCurrent(story)
	_, err = s.StartSession(ctx, "1")
	require.NoError(t, err)
	_, err = s.CheckSafety(ctx, 8, "english")
	require.NoError(t, err)
	require.NotNil(t, s.Snapshot().Safety)

	s.ClearAll()
	assert.Nil(t, s.Current())
	assert.Empty(t, s.Stories())
	assert.NotNil(t, s.Session())

	s.Reset()
	assert.Nil(t, s.Session())
}

func TestFetchLeavesStoreAlone(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	story, err := s.Fetch(context.Background(), "42")
	require.NoError(t, err)
	assert.Equal(t, "Stored", story.Title)
	assert.Nil(t, s.Current())
}

func TestRecommendationsAreKeptUntilCleared(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	stories, err := s.LoadRecommendations(context.Background(), "2")
	require.NoError(t, err)
	require.Len(t, stories, 2)
	assert.Equal(t, "Pick one", s.Recommended()[0].Title)
	assert.Len(t, s.Snapshot().Recommended, 2)

	s.ClearAll()
	assert.Empty(t, s.Recommended())
}

func TestChildProgressReport(t *testing.T) {
	children := NewChildStore(newFakeBackend(), i18n.English)
	report, err := children.Progress(context.Background(), "2", interfaces.PeriodWeek)
	require.NoError(t, err)
	assert.Equal(t, interfaces.ID("2"), report.ChildID)
	assert.Equal(t, interfaces.PeriodWeek, report.Period)
	assert.Equal(t, 2, report.StoriesCompleted)
}

func TestSetCurrentSupersedesOlderTicket(t *testing.T) {
	s := NewStoryStore(newFakeBackend())
	ticket := s.Begin(resourceCurrent)
	s.SetCurrent(&interfaces.Story{ID: "mine"})

	assert.False(t, s.Commit(ticket, func() {}))
	assert.Equal(t, interfaces.ID("mine"), s.Current().ID)
}

func TestChildLanguageFollowsActiveChild(t *testing.T) {
	children := NewChildStore(newFakeBackend(), i18n.English)
	_, err := children.Load(context.Background())
	require.NoError(t, err)

	assert.Equal(t, i18n.English, children.Language())
	require.NoError(t, children.Select("1"))
	assert.Equal(t, i18n.Hebrew, children.Language())
	require.NoError(t, children.Select("2"))
	assert.Equal(t, i18n.English, children.Language())

	assert.Error(t, children.Select("99"))

	require.NoError(t, children.Delete(context.Background(), "2"))
	assert.Nil(t, children.Active())
	assert.Len(t, children.Children(), 1)

	children.SetFallbackLanguage(i18n.Hebrew)
	assert.Equal(t, i18n.Hebrew, children.Language())
}

func TestChildUpdateReplacesEntry(t *testing.T) {
	children := NewChildStore(newFakeBackend(), i18n.Hebrew)
	_, err := children.Load(context.Background())
	require.NoError(t, err)
	require.NoError(t, children.Select("1"))

	name := "Noa B"
	_, err = children.Update(context.Background(), "1", interfaces.ChildInput{Name: &name})
	require.NoError(t, err)
	assert.Equal(t, "Noa B", children.Active().Name)
	assert.Equal(t, i18n.English, children.Language())
}

func TestDashboards(t *testing.T) {
	children := NewChildStore(newFakeBackend(), "")

	child, err := children.Dashboard(context.Background(), "2")
	require.NoError(t, err)
	assert.Equal(t, interfaces.ID("2"), child.Child.ID)
	assert.Equal(t, 3, child.ReadingStreak)

	family, err := children.FamilyDashboard(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "Dana", family.ParentName)
}

func TestAuthLoginAndLogout(t *testing.T) {
	backend := newFakeBackend()
	tokens := &memoryTokens{}
	auth := NewAuthStore(backend, tokens)
	ctx := context.Background()

	_, err := auth.Login(ctx, "parent@example.com", "wrong")
	require.Error(t, err)
	assert.False(t, auth.LoggedIn())

	user, err := auth.Login(ctx, " parent@example.com ", "storytime123")
	require.NoError(t, err)
	assert.Equal(t, "Dana", user.Name)
	assert.True(t, auth.LoggedIn())
	assert.Equal(t, "refresh.token.value", tokens.RefreshToken())

	backend.logoutErr = errors.New("offline")
	require.NoError(t, auth.Logout(ctx))
	assert.True(t, backend.loggedOut)
	assert.False(t, auth.LoggedIn())
	assert.Nil(t, auth.User())
}
