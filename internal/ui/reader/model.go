// Package reader implements the story screen: a conversational thread of
// prompts and chapters with a composer, numbered choices, sibling branches
// for retold openings, and read-aloud playback.
package reader

import (
	"context"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/speech"
	"github.com/storynest/console/internal/store"
	"github.com/storynest/console/internal/thread"
	"github.com/storynest/console/internal/ui/components"
)

// Dependencies are the shared services the reader works against
type Dependencies struct {
	Stories  *store.StoryStore
	Children *store.ChildStore
	Speech   *speech.Synthesizer
	Voice    interfaces.SpeechConfig
	Theme    *content.ThemeManager
	Policy   components.RetryPolicy
}

// focusArea determines which part of the screen receives key input
type focusArea int

const (
	focusComposer focusArea = iota
	focusStory
)

// Messages produced by the reader's commands
type (
	storyMsg struct {
		token      thread.Token
		story      *interfaces.Story
		session    *interfaces.StorySession
		err        error
		sessionErr error
	}

	chapterMsg struct {
		token  thread.Token
		result *interfaces.ChoiceResult
		err    error
	}

	sessionMsg struct {
		storyID interfaces.ID
		session *interfaces.StorySession
		err     error
	}

	safetyMsg struct {
		storyID interfaces.ID
		check   *interfaces.SafetyCheck
		err     error
	}

	progressMsg struct {
		err error
	}

	speechMsg struct {
		event speech.Event
		ok    bool
	}

	recommendedMsg struct {
		err error
	}

	// openedMsg carries a stored story picked from the recommendations
	openedMsg struct {
		story *interfaces.Story
		err   error
	}

	// resumeMsg re-runs the last failed generation
	resumeMsg struct{}
)

// Model is the reader screen
type Model struct {
	deps   Dependencies
	i18n   i18n.Resolver
	thread *thread.Thread
	logger *logging.Logger
	now    func() time.Time

	composer textinput.Model
	spinner  spinner.Model
	viewport viewport.Model
	focus    focusArea
	width    int
	height   int

	// selected is the assistant message the story keys act on; "" follows
	// the newest one
	selected string

	cancel context.CancelFunc
	retry  func(thread.Token) tea.Cmd

	speechEvents <-chan speech.Event
	unsubscribe  func()
	utterances   map[string]string
	speaking     string
	audioStarted time.Time
	audioSeconds int

	chapterStarted time.Time
	safetyWarning  bool
	notice         string
}

// New creates the reader. When the store already holds an unfinished story
// it is restored as the opening turn.
func New(deps Dependencies, resolver i18n.Resolver) *Model {
	if deps.Speech == nil {
		deps.Speech = speech.Default()
	}
	if deps.Theme == nil {
		deps.Theme = content.NewThemeManager()
	}

	composer := textinput.New()
	composer.Prompt = "› "
	composer.CharLimit = 500
	composer.Focus()

	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = deps.Theme.GetAccentStyle()

	m := &Model{
		deps:       deps,
		i18n:       resolver,
		thread:     thread.New(),
		logger:     logging.GetUILogger().WithField("screen", "reader"),
		now:        time.Now,
		composer:   composer,
		spinner:    spin,
		viewport:   viewport.New(80, 20),
		utterances: make(map[string]string),
	}
	m.speechEvents, m.unsubscribe = deps.Speech.Subscribe(16)
	m.restore()
	m.updatePlaceholder()
	m.refresh(true)
	return m
}

// restore shows the store's current story, if any
func (m *Model) restore() {
	story := m.deps.Stories.Current()
	if story == nil || len(story.Content) == 0 {
		return
	}
	if err := m.thread.AppendAssistant(storyVariant(story)); err != nil {
		m.logger.Warn("Failed to restore story", "error", err)
		return
	}
	m.chapterStarted = m.now()
}

// Init starts listening for speech events, reopens the session of a
// restored story and otherwise loads the recommended stories
func (m *Model) Init() tea.Cmd {
	return tea.Batch(textinput.Blink, waitForSpeech(m.speechEvents), m.resumeSession(), m.recommendCmd())
}

// resumeSession opens a session for the restored story when the store holds
// none for it
func (m *Model) resumeSession() tea.Cmd {
	story := m.deps.Stories.Current()
	if story == nil || m.thread.Len() == 0 {
		return nil
	}
	if session := m.deps.Stories.Session(); session != nil && session.StoryID == story.ID {
		return nil
	}
	return m.sessionCmd()
}

// Close releases the speech subscription and stops playback started here
func (m *Model) Close() {
	m.cancelGeneration()
	if m.speaking != "" {
		m.deps.Speech.Stop()
	}
	if m.unsubscribe != nil {
		m.unsubscribe()
		m.unsubscribe = nil
	}
}

// Thread exposes the conversation for the shell and tests
func (m *Model) Thread() *thread.Thread {
	return m.thread
}

// Speaking returns the id of the message being read aloud, or ""
func (m *Model) Speaking() string {
	return m.speaking
}

// SafetyWarning reports whether the current story was flagged for review
func (m *Model) SafetyWarning() bool {
	return m.safetyWarning
}

// waitForSpeech delivers the next synthesizer event
func waitForSpeech(events <-chan speech.Event) tea.Cmd {
	if events == nil {
		return nil
	}
	return func() tea.Msg {
		ev, ok := <-events
		return speechMsg{event: ev, ok: ok}
	}
}

// storyVariant turns a story into the opening assistant turn
func storyVariant(story *interfaces.Story) thread.Variant {
	parts := make([]thread.Part, 0, len(story.Content)+1)
	for _, p := range story.Content {
		parts = append(parts, thread.TextPart(p))
	}
	parts = append(parts, closingPart(story.IsCompleted, story.Choices)...)
	return thread.Variant{Parts: parts, Payload: story}
}

// chapterVariant turns a choice result into the next assistant turn
func chapterVariant(result *interfaces.ChoiceResult) thread.Variant {
	paragraphs := interfaces.SplitParagraphs(result.BranchContent)
	parts := make([]thread.Part, 0, len(paragraphs)+1)
	for _, p := range paragraphs {
		parts = append(parts, thread.TextPart(p))
	}
	parts = append(parts, closingPart(result.IsEnding, result.NewChoices)...)
	return thread.Variant{Parts: parts, Payload: result}
}

func closingPart(ending bool, choices []interfaces.Choice) []thread.Part {
	switch {
	case ending:
		return []thread.Part{{Kind: thread.PartEnding}}
	case len(choices) > 0:
		return []thread.Part{{Kind: thread.PartChoices, Choices: choices}}
	default:
		return nil
	}
}
