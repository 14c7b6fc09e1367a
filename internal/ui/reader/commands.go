package reader

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/thread"
	"github.com/storynest/console/internal/ui/components"
)

// childID returns the active reader profile id, or ""
func (m *Model) childID() interfaces.ID {
	if child := m.deps.Children.Active(); child != nil {
		return child.ID
	}
	return ""
}

// beginCall derives the context of a generation, cancelling any previous one
func (m *Model) beginCall() (context.Context, context.CancelFunc) {
	m.cancelGeneration()
	ctx, cancel := m.deps.Policy.Context(context.Background())
	m.cancel = cancel
	return ctx, cancel
}

// cancelGeneration aborts the in-flight request, if any
func (m *Model) cancelGeneration() {
	if m.cancel != nil {
		m.cancel()
		m.cancel = nil
	}
}

// generateCmd asks for a new story on theme and opens a reading session
func (m *Model) generateCmd(token thread.Token, theme string) tea.Cmd {
	ctx, cancel := m.beginCall()
	stories := m.deps.Stories
	policy := m.deps.Policy
	lang := m.i18n.Language()
	childID := m.childID()
	req := interfaces.GenerateStoryRequest{ChildID: childID, Theme: theme, ChapterNumber: 1}

	return func() tea.Msg {
		defer cancel()
		story, err := apperrors.Retry(ctx, func(ctx context.Context) (*interfaces.Story, error) {
			return stories.Generate(ctx, req)
		}, "generate story", policy.MaxRetries, policy.Options(lang)...)
		if err != nil {
			return storyMsg{token: token, err: err}
		}

		msg := storyMsg{token: token, story: story}
		if !childID.IsZero() {
			msg.session, msg.sessionErr = stories.OpenSession(ctx, story.ID, childID)
		}
		return msg
	}
}

// chooseCmd submits a decision and waits for the chapter it leads to
func (m *Model) chooseCmd(token thread.Token, req interfaces.ChoiceRequest) tea.Cmd {
	ctx, cancel := m.beginCall()
	stories := m.deps.Stories
	policy := m.deps.Policy
	lang := m.i18n.Language()

	return func() tea.Msg {
		defer cancel()
		result, err := apperrors.Retry(ctx, func(ctx context.Context) (*interfaces.ChoiceResult, error) {
			return stories.SubmitChoice(ctx, req)
		}, "submit choice", policy.MaxRetries, policy.Options(lang)...)
		return chapterMsg{token: token, result: result, err: err}
	}
}

// sessionCmd opens or resumes the reading session for the current story
func (m *Model) sessionCmd() tea.Cmd {
	story := m.deps.Stories.Current()
	childID := m.childID()
	if story == nil || childID.IsZero() {
		return nil
	}
	stories := m.deps.Stories
	policy := m.deps.Policy

	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		session, err := stories.OpenSession(ctx, story.ID, childID)
		return sessionMsg{storyID: story.ID, session: session, err: err}
	}
}

// recommendCmd loads the stories picked for the active child while the
// thread is empty
func (m *Model) recommendCmd() tea.Cmd {
	childID := m.childID()
	if childID.IsZero() || m.thread.Len() > 0 {
		return nil
	}
	stories := m.deps.Stories
	policy := m.deps.Policy

	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		_, err := stories.LoadRecommendations(ctx, childID)
		return recommendedMsg{err: err}
	}
}

// openCmd loads a stored story to continue reading it
func (m *Model) openCmd(id interfaces.ID) tea.Cmd {
	ctx, cancel := m.beginCall()
	stories := m.deps.Stories

	return func() tea.Msg {
		defer cancel()
		story, err := stories.Fetch(ctx, id)
		return openedMsg{story: story, err: err}
	}
}

// safetyCmd runs the content check for the active child
func (m *Model) safetyCmd(story *interfaces.Story) tea.Cmd {
	child := m.deps.Children.Active()
	if story == nil || child == nil {
		return nil
	}
	stories := m.deps.Stories
	policy := m.deps.Policy
	age := child.Age
	language := string(m.i18n.Language())

	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		check, err := stories.CheckSafety(ctx, age, language)
		return safetyMsg{storyID: story.ID, check: check, err: err}
	}
}

// progressCmd reports the chapter just read. Failures are logged, never
// shown.
func (m *Model) progressCmd(words int) tea.Cmd {
	if m.deps.Stories.Session() == nil {
		return nil
	}
	elapsed := 0
	if !m.chapterStarted.IsZero() {
		elapsed = int(m.now().Sub(m.chapterStarted) / time.Second)
	}
	chapter := 1
	if story := m.deps.Stories.Current(); story != nil && story.CurrentChapter > 0 {
		chapter = story.CurrentChapter
	}
	progress := interfaces.ReadingProgress{
		WordsRead:         words,
		ReadingTime:       elapsed,
		CurrentPosition:   fmt.Sprintf("chapter-%d", chapter),
		AudioPlaybackTime: m.audioSeconds,
	}
	m.audioSeconds = 0
	m.chapterStarted = m.now()

	stories := m.deps.Stories
	policy := m.deps.Policy
	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		return progressMsg{err: stories.UpdateProgress(ctx, progress)}
	}
}

// failure reports err to the shell. retry is offered on the toast when the
// error is retryable.
func (m *Model) failure(err error, where string, retry tea.Cmd) tea.Cmd {
	lang := m.i18n.Language()
	return func() tea.Msg {
		return components.Failure(err, lang, where, retry)
	}
}

// resumeCmd asks the reader to re-run its last failed generation
func resumeCmd() tea.Msg {
	return resumeMsg{}
}
