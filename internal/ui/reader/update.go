package reader

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/speech"
	"github.com/storynest/console/internal/thread"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		if !m.thread.Generating() {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		m.refresh(false)
		return m, cmd

	case storyMsg:
		return m, m.handleStory(msg)

	case chapterMsg:
		return m, m.handleChapter(msg)

	case sessionMsg:
		if msg.err != nil {
			return m, m.failure(msg.err, "reader:session", m.sessionCmd())
		}
		m.deps.Stories.SetSession(msg.session)
		return m, nil

	case safetyMsg:
		m.handleSafety(msg)
		return m, nil

	case progressMsg:
		if msg.err != nil {
			m.logger.Warn("Failed to report reading progress", "error", msg.err)
		}
		return m, nil

	case speechMsg:
		if !msg.ok {
			return m, nil
		}
		m.handleSpeech(msg.event)
		return m, waitForSpeech(m.speechEvents)

	case recommendedMsg:
		if msg.err != nil {
			m.logger.Warn("Failed to load recommended stories", "error", msg.err)
			return m, nil
		}
		m.refresh(false)
		return m, nil

	case openedMsg:
		return m, m.handleOpened(msg)

	case resumeMsg:
		return m, m.resume()
	}

	if m.focus == focusComposer {
		var cmd tea.Cmd
		m.composer, cmd = m.composer.Update(msg)
		return m, cmd
	}
	return m, nil
}

// handleKey routes a key press by focus
func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	m.notice = ""
	key := msg.String()

	switch key {
	case "tab":
		m.toggleFocus()
		return nil
	case "esc":
		return m.escape()
	case "pgup", "pgdown":
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(msg)
		return cmd
	}

	if index, ok := digit(key); ok && (m.focus == focusStory || m.composer.Value() == "") {
		if cmd, handled := m.pick(index); handled {
			return cmd
		}
	}

	if m.focus == focusStory {
		return m.handleStoryKey(key)
	}

	if key == "enter" {
		return m.submit()
	}
	var cmd tea.Cmd
	m.composer, cmd = m.composer.Update(msg)
	return cmd
}

// handleStoryKey handles the single-letter actions available while the story
// has focus
func (m *Model) handleStoryKey(key string) tea.Cmd {
	switch key {
	case "up", "k":
		m.moveSelection(-1)
	case "down", "j":
		m.moveSelection(1)
	case "left", "h":
		return m.switchBranch(false)
	case "right", "l":
		return m.switchBranch(true)
	case "r":
		return m.regenerate()
	case "e":
		m.beginEdit()
	case "p":
		return m.toggleSpeech()
	case "enter":
		m.toggleFocus()
	}
	return nil
}

// digit maps "1".."9" to a zero-based index
func digit(key string) (int, bool) {
	if len(key) != 1 || key[0] < '1' || key[0] > '9' {
		return 0, false
	}
	return int(key[0] - '1'), true
}

func (m *Model) toggleFocus() {
	if m.focus == focusComposer {
		m.focus = focusStory
		m.composer.Blur()
	} else {
		m.focus = focusComposer
		m.composer.Focus()
	}
	m.refresh(false)
}

// escape stops a generation, leaves an edit, or returns focus to the
// composer
func (m *Model) escape() tea.Cmd {
	switch m.thread.State() {
	case thread.StateGenerating:
		if err := m.thread.Cancel(); err == nil {
			m.cancelGeneration()
			m.refresh(true)
		}
	case thread.StateEditing:
		if err := m.thread.CancelEdit(); err == nil {
			m.composer.Reset()
			m.updatePlaceholder()
			m.refresh(false)
		}
	default:
		if m.focus == focusStory {
			m.toggleFocus()
		}
	}
	return nil
}

// pick selects a suggestion on the empty thread or a choice of the newest
// chapter
func (m *Model) pick(index int) (tea.Cmd, bool) {
	if m.thread.State() == thread.StateEmpty {
		suggestions := i18n.Suggestions(m.i18n.Language())
		if index < len(suggestions) {
			return m.sendPrompt(suggestions[index]), true
		}
		recommended := m.deps.Stories.Recommended()
		if index -= len(suggestions); index < len(recommended) {
			return m.openCmd(recommended[index].ID), true
		}
		return nil, false
	}

	choices := m.openChoices()
	if index >= len(choices) || m.thread.State() != thread.StateActive {
		return nil, false
	}
	return m.choose(index, choices[index]), true
}

// openChoices returns the choices of the newest chapter while it is the last
// turn of the thread
func (m *Model) openChoices() []interfaces.Choice {
	last := m.thread.Last()
	if last == nil || last.Role != thread.RoleAssistant {
		return nil
	}
	return last.Choices()
}

// acceptsChoice reports whether free text continues the current story
// rather than starting a new one
func (m *Model) acceptsChoice() bool {
	last := m.thread.Last()
	return last != nil && last.Role == thread.RoleAssistant && !last.Ending() &&
		m.deps.Stories.Current() != nil
}

// submit sends the composer text
func (m *Model) submit() tea.Cmd {
	text := strings.TrimSpace(m.composer.Value())
	if text == "" {
		return nil
	}

	switch m.thread.State() {
	case thread.StateGenerating:
		return nil
	case thread.StateEditing:
		token, err := m.thread.SubmitEdit(text)
		if err != nil {
			m.logger.Warn("Edit rejected", "error", err)
			return nil
		}
		m.composer.Reset()
		m.deps.Stories.ClearCurrent()
		return m.startStory(token, text)
	}

	m.composer.Reset()
	if m.acceptsChoice() {
		return m.chooseCustom(text)
	}
	return m.sendPrompt(text)
}

// sendPrompt starts a new story from a prompt
func (m *Model) sendPrompt(text string) tea.Cmd {
	token, err := m.thread.Send(text)
	if err != nil {
		m.logger.Warn("Send rejected", "error", err)
		return nil
	}
	return m.startStory(token, text)
}

func (m *Model) startStory(token thread.Token, theme string) tea.Cmd {
	m.retry = func(token thread.Token) tea.Cmd { return m.generateCmd(token, theme) }
	m.safetyWarning = false
	m.selected = ""
	m.updatePlaceholder()
	m.refresh(true)
	return tea.Batch(m.generateCmd(token, theme), m.spinner.Tick)
}

// choose submits one of the offered choices
func (m *Model) choose(index int, choice interfaces.Choice) tea.Cmd {
	words := m.newestWords()
	token, err := m.thread.Send(choice.Text)
	if err != nil {
		m.logger.Warn("Choice rejected", "error", err)
		return nil
	}
	req := interfaces.ChoiceRequest{
		ChoiceID:    choice.ID.String(),
		OptionIndex: index,
		Timestamp:   m.now().UTC().Format(time.RFC3339),
	}
	return m.startChapter(token, req, words)
}

// chooseCustom submits the reader's own idea as the decision
func (m *Model) chooseCustom(text string) tea.Cmd {
	words := m.newestWords()
	token, err := m.thread.Send(text)
	if err != nil {
		m.logger.Warn("Choice rejected", "error", err)
		return nil
	}
	req := interfaces.ChoiceRequest{
		ChoiceID:   interfaces.CustomChoiceID,
		CustomText: text,
		Timestamp:  m.now().UTC().Format(time.RFC3339),
	}
	return m.startChapter(token, req, words)
}

func (m *Model) startChapter(token thread.Token, req interfaces.ChoiceRequest, words int) tea.Cmd {
	m.retry = func(token thread.Token) tea.Cmd { return m.chooseCmd(token, req) }
	m.selected = ""
	m.updatePlaceholder()
	m.refresh(true)
	return tea.Batch(m.progressCmd(words), m.chooseCmd(token, req), m.spinner.Tick)
}

// newestWords counts the words of the newest chapter
func (m *Model) newestWords() int {
	last := m.thread.LastAssistant()
	if last == nil {
		return 0
	}
	return content.WordCount(interfaces.SplitParagraphs(last.Text()))
}

// regenerate retells the opening chapter. Later chapters are fixed by the
// session's choices, so only a one-chapter thread can be retold.
func (m *Model) regenerate() tea.Cmd {
	if !m.canRegenerate() {
		return nil
	}
	token, err := m.thread.Regenerate()
	if err != nil {
		m.logger.Warn("Regenerate rejected", "error", err)
		return nil
	}
	return m.startStory(token, m.thread.Messages()[0].Text())
}

func (m *Model) canRegenerate() bool {
	msgs := m.thread.Messages()
	return m.thread.State() == thread.StateActive && len(msgs) == 2 &&
		msgs[0].Role == thread.RoleUser && msgs[1].Role == thread.RoleAssistant
}

// beginEdit revises the opening prompt
func (m *Model) beginEdit() {
	msgs := m.thread.Messages()
	if m.thread.State() != thread.StateActive || len(msgs) == 0 || msgs[0].Role != thread.RoleUser {
		return
	}
	if err := m.thread.BeginEdit(msgs[0].ID); err != nil {
		m.logger.Warn("Edit rejected", "error", err)
		return
	}
	m.composer.SetValue(msgs[0].Text())
	m.composer.CursorEnd()
	m.focus = focusComposer
	m.composer.Focus()
	m.updatePlaceholder()
	m.refresh(false)
}

// resume re-runs the generation that last failed
func (m *Model) resume() tea.Cmd {
	if m.retry == nil || m.thread.State() != thread.StateActive {
		return nil
	}
	var (
		token thread.Token
		err   error
	)
	if last := m.thread.Last(); last != nil && last.Role == thread.RoleUser {
		token, err = m.thread.Resume()
	} else {
		token, err = m.thread.Regenerate()
	}
	if err != nil {
		m.logger.Warn("Retry rejected", "error", err)
		return nil
	}
	m.refresh(true)
	return tea.Batch(m.retry(token), m.spinner.Tick)
}

// handleStory shows a generated story and makes it current. Replies for
// cancelled or superseded generations never reach the store.
func (m *Model) handleStory(msg storyMsg) tea.Cmd {
	if msg.err != nil {
		if !m.thread.Fail(msg.token) {
			return nil
		}
		m.cancel = nil
		m.refresh(true)
		return m.failure(msg.err, "reader:generate", resumeCmd)
	}
	if !m.thread.Complete(msg.token, storyVariant(msg.story)) {
		return nil
	}
	m.cancel = nil
	m.deps.Stories.SetCurrent(msg.story)
	m.deps.Stories.SetSession(msg.session)
	m.chapterStarted = m.now()
	m.refresh(true)

	cmds := []tea.Cmd{m.safetyCmd(msg.story)}
	if msg.sessionErr != nil {
		cmds = append(cmds, m.failure(msg.sessionErr, "reader:session", m.sessionCmd()))
	}
	return tea.Batch(cmds...)
}

// handleOpened shows a stored story as the opening turn. Stories that
// arrive after the thread has started are dropped.
func (m *Model) handleOpened(msg openedMsg) tea.Cmd {
	if m.thread.State() != thread.StateEmpty {
		return nil
	}
	m.cancel = nil
	if msg.err != nil {
		if errors.Is(msg.err, context.Canceled) {
			return nil
		}
		return m.failure(msg.err, "reader:open", nil)
	}
	m.deps.Stories.SetCurrent(msg.story)
	m.restore()
	m.safetyWarning = false
	m.refresh(true)
	return tea.Batch(m.sessionCmd(), m.safetyCmd(msg.story))
}

// handleChapter applies the chapter that follows a choice
func (m *Model) handleChapter(msg chapterMsg) tea.Cmd {
	if msg.err != nil {
		if !m.thread.Fail(msg.token) {
			return nil
		}
		m.cancel = nil
		m.refresh(true)
		return m.failure(msg.err, "reader:choice", resumeCmd)
	}
	if !m.thread.Complete(msg.token, chapterVariant(msg.result)) {
		return nil
	}
	m.cancel = nil
	m.deps.Stories.ApplyChoice(msg.result)
	m.chapterStarted = m.now()
	m.refresh(true)

	if msg.result.IsEnding {
		return m.progressCmd(content.WordCount(interfaces.SplitParagraphs(msg.result.BranchContent)))
	}
	return nil
}

// handleSafety raises the review notice when the current story was flagged
func (m *Model) handleSafety(msg safetyMsg) {
	if msg.err != nil {
		m.logger.Warn("Safety check failed", "error", msg.err)
		return
	}
	current := m.deps.Stories.Current()
	if current == nil || current.ID != msg.storyID || msg.check == nil {
		return
	}
	m.safetyWarning = !msg.check.IsSafe || msg.check.NeedsReview
	m.refresh(false)
}

// switchBranch shows a neighbouring sibling of the selected message and
// makes its story current
func (m *Model) switchBranch(next bool) tea.Cmd {
	msg := m.selectedMessage()
	if msg == nil || !msg.ShowPicker() || m.thread.Generating() {
		return nil
	}
	moved := false
	if next {
		moved = msg.Next()
	} else {
		moved = msg.Previous()
	}
	if !moved {
		return nil
	}
	if m.speaking == msg.ID {
		m.deps.Speech.Stop()
	}
	m.refresh(false)

	story, ok := msg.Current().Payload.(*interfaces.Story)
	if !ok {
		return nil
	}
	m.deps.Stories.SetCurrent(story)
	m.safetyWarning = false
	return tea.Batch(m.sessionCmd(), m.safetyCmd(story))
}

// assistantMessages lists the assistant turns in order
func (m *Model) assistantMessages() []*thread.Message {
	var out []*thread.Message
	for _, msg := range m.thread.Messages() {
		if msg.Role == thread.RoleAssistant {
			out = append(out, msg)
		}
	}
	return out
}

// selectedMessage returns the assistant message the story keys act on
func (m *Model) selectedMessage() *thread.Message {
	if m.selected != "" {
		if msg := m.thread.Message(m.selected); msg != nil {
			return msg
		}
		m.selected = ""
	}
	return m.thread.LastAssistant()
}

func (m *Model) moveSelection(delta int) {
	msgs := m.assistantMessages()
	if len(msgs) == 0 {
		return
	}
	current := len(msgs) - 1
	if sel := m.selectedMessage(); sel != nil {
		for i, msg := range msgs {
			if msg.ID == sel.ID {
				current = i
			}
		}
	}
	next := min(max(current+delta, 0), len(msgs)-1)
	if next == len(msgs)-1 {
		m.selected = ""
	} else {
		m.selected = msgs[next].ID
	}
	m.refresh(false)
}

// toggleSpeech reads the selected message aloud or stops it
func (m *Model) toggleSpeech() tea.Cmd {
	msg := m.selectedMessage()
	if msg == nil {
		return nil
	}
	if m.speaking == msg.ID {
		m.deps.Speech.Stop()
		return nil
	}
	if !m.deps.Speech.Available() {
		m.notice = m.i18n.T(i18n.ReaderSpeechUnavailable)
		return nil
	}

	id := m.deps.Speech.Play(speech.Utterance{
		Text:  msg.Text(),
		Lang:  m.i18n.Language().SpeechTag(),
		Rate:  m.deps.Voice.Rate,
		Pitch: m.deps.Voice.Pitch,
	})
	m.utterances[id] = msg.ID
	return nil
}

// handleSpeech follows the playback lifecycle of utterances started here
func (m *Model) handleSpeech(ev speech.Event) {
	msgID, ok := m.utterances[ev.UtteranceID]
	if !ok {
		return
	}

	switch ev.Kind {
	case speech.EventStart:
		m.speaking = msgID
		m.audioStarted = m.now()
	default:
		if m.speaking == msgID {
			m.speaking = ""
			if !m.audioStarted.IsZero() {
				m.audioSeconds += int(m.now().Sub(m.audioStarted) / time.Second)
				m.audioStarted = time.Time{}
			}
		}
		delete(m.utterances, ev.UtteranceID)
		if ev.Kind == speech.EventError && errors.Is(ev.Err, speech.ErrUnavailable) {
			m.notice = m.i18n.T(i18n.ReaderSpeechUnavailable)
		}
	}
	m.refresh(false)
}

// Notice returns the transient status line of the reader
func (m *Model) Notice() string {
	return m.notice
}

// FocusComposer hands key input to the composer
func (m *Model) FocusComposer() {
	if m.focus != focusComposer {
		m.toggleFocus()
	}
}
