package reader

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/thread"
	"github.com/storynest/console/internal/ui/components"
)

const (
	composerHeight = 3
	footerHeight   = 2
	minThreadRows  = 5
)

var (
	composerStyle = lipgloss.NewStyle().
			Border(lipgloss.NormalBorder()).
			BorderForeground(lipgloss.Color("#6C7086")).
			Padding(0, 1)

	composerFocusedStyle = lipgloss.NewStyle().
				Border(lipgloss.ThickBorder()).
				BorderForeground(lipgloss.Color("#89B4FA")).
				Padding(0, 1)

	selectedMarker = lipgloss.NewStyle().
			Foreground(lipgloss.Color("#89B4FA")).
			Bold(true)
)

// resize fits the thread viewport and composer to the screen
func (m *Model) resize(width, height int) {
	m.width, m.height = width, height
	m.viewport.Width = width
	m.viewport.Height = max(height-composerHeight-footerHeight, minThreadRows)
	m.composer.Width = max(width-8, 10)
	m.refresh(true)
}

// refresh re-renders the thread into the viewport, optionally following the
// newest content
func (m *Model) refresh(follow bool) {
	m.viewport.SetContent(m.renderThread())
	if follow {
		m.viewport.GotoBottom()
	}
}

// updatePlaceholder picks the composer hint for the current state
func (m *Model) updatePlaceholder() {
	switch {
	case m.thread.State() == thread.StateEditing:
		m.composer.Placeholder = m.i18n.T(i18n.ComposerEditHint)
	case m.thread.State() == thread.StateEmpty:
		m.composer.Placeholder = m.i18n.T(i18n.ComposerEmptyHint)
	default:
		m.composer.Placeholder = m.i18n.T(i18n.ComposerPlaceholder)
	}
}

// View implements tea.Model
func (m *Model) View() string {
	// The language can change between renders when the reader profile does.
	m.updatePlaceholder()

	sections := []string{
		m.viewport.View(),
		m.renderComposer(),
		m.renderFooter(),
	}
	return strings.Join(sections, "\n")
}

func (m *Model) textWidth() int {
	if m.width <= 0 {
		return 78
	}
	return max(m.width-4, 20)
}

// renderThread renders every turn, or the welcome screen when the thread is
// empty
func (m *Model) renderThread() string {
	if m.thread.State() == thread.StateEmpty {
		return m.renderWelcome()
	}

	theme := m.deps.Theme
	var blocks []string
	last := m.thread.Last()
	selected := m.selectedMessage()
	for _, msg := range m.thread.Messages() {
		blocks = append(blocks, m.renderMessage(msg, msg == last, selected != nil && msg.ID == selected.ID))
	}

	if m.thread.Generating() {
		blocks = append(blocks, m.spinner.View()+" "+theme.GetMutedStyle().Render(m.i18n.T(i18n.ThreadGenerating)))
	}
	if m.safetyWarning {
		blocks = append(blocks, components.RenderStatus("error", m.i18n.T(i18n.ReaderSafetyWarning)))
	}
	return strings.Join(blocks, "\n\n")
}

func (m *Model) renderWelcome() string {
	theme := m.deps.Theme
	dir := m.i18n.Direction()
	width := m.textWidth()

	lines := []string{
		content.Align(theme.GetTitleStyle(), dir).Width(width).Render(m.i18n.T(i18n.WelcomeTitle)),
		content.Align(theme.GetMutedStyle(), dir).Width(width).Render(m.i18n.T(i18n.WelcomeSubtitle)),
		"",
		content.Align(theme.GetAccentStyle(), dir).Width(width).Render(m.i18n.T(i18n.SuggestionsTitle)),
	}
	suggestions := i18n.Suggestions(m.i18n.Language())
	for i, s := range suggestions {
		lines = append(lines, content.Align(lipgloss.NewStyle(), dir).Width(width).Render(fmt.Sprintf("%d. %s", i+1, s)))
	}

	recommended := m.deps.Stories.Recommended()
	if len(recommended) > 0 {
		lines = append(lines, "", content.Align(theme.GetAccentStyle(), dir).Width(width).Render(m.i18n.T(i18n.RecommendedTitle)))
	}
	for i, story := range recommended {
		line := fmt.Sprintf("%d. %s", len(suggestions)+i+1, story.Title)
		if story.Theme != "" {
			line += theme.GetMutedStyle().Render(" · " + story.Theme)
		}
		lines = append(lines, content.Align(lipgloss.NewStyle(), dir).Width(width).Render(line))
	}
	return strings.Join(lines, "\n")
}

// renderMessage renders one turn with its label, body and, for the newest
// chapter, the choices it offers
func (m *Model) renderMessage(msg *thread.Message, newest, selected bool) string {
	theme := m.deps.Theme
	dir := m.i18n.Direction()
	width := m.textWidth()

	var label string
	var body string
	if msg.Role == thread.RoleUser {
		label = theme.GetUserStyle().Render(m.i18n.T(i18n.RoleUser))
		if m.thread.EditingID() == msg.ID {
			label += " " + theme.GetMutedStyle().Render("("+m.i18n.T(i18n.ActionEdit)+")")
		}
		body = content.RenderParagraphs([]string{msg.Text()}, width, dir, lipgloss.NewStyle())
	} else {
		label = theme.GetAssistantStyle().Render(m.i18n.T(i18n.RoleAssistant))
		if msg.ShowPicker() {
			label += " " + m.renderPicker(msg)
		}
		if m.speaking == msg.ID {
			label += " " + components.RenderStatus("playing", m.i18n.T(i18n.ActionStop))
		}
		body = content.RenderParagraphs(paragraphsOf(msg), width, dir, lipgloss.NewStyle())
	}

	if selected && m.focus == focusStory {
		label = selectedMarker.Render("▌") + " " + label
	}

	parts := []string{content.Align(lipgloss.NewStyle(), dir).Width(width).Render(label), body}

	if msg.Role == thread.RoleAssistant {
		if msg.Ending() {
			parts = append(parts, lipgloss.NewStyle().Width(width).Align(lipgloss.Center).
				Render(theme.GetTitleStyle().Render(m.i18n.T(i18n.ThreadTheEnd))))
		} else if newest && !m.thread.Generating() {
			if choices := m.renderChoices(msg); choices != "" {
				parts = append(parts, choices)
			}
		}
		if selected && m.focus == focusStory {
			parts = append(parts, m.renderActions(msg))
		}
	}
	return strings.Join(parts, "\n")
}

func paragraphsOf(msg *thread.Message) []string {
	var out []string
	for _, p := range msg.Parts() {
		if p.Kind == thread.PartText && p.Text != "" {
			out = append(out, p.Text)
		}
	}
	return out
}

// renderPicker renders ‹ 2/3 › with unavailable arrows dimmed
func (m *Model) renderPicker(msg *thread.Message) string {
	muted := m.deps.Theme.GetMutedStyle()
	accent := m.deps.Theme.GetAccentStyle()

	prev, next := muted.Render("‹"), muted.Render("›")
	if msg.CanPrevious() {
		prev = accent.Render("‹")
	}
	if msg.CanNext() {
		next = accent.Render("›")
	}
	return fmt.Sprintf("%s %d/%d %s", prev, msg.Position(), msg.Count(), next)
}

func (m *Model) renderChoices(msg *thread.Message) string {
	choices := msg.Choices()
	dir := m.i18n.Direction()
	width := m.textWidth()
	theme := m.deps.Theme

	lines := []string{content.Align(theme.GetAccentStyle(), dir).Width(width).Render(m.i18n.T(i18n.ThreadChoicesTitle))}
	for i, choice := range choices {
		if i >= 9 {
			break
		}
		lines = append(lines, content.Align(lipgloss.NewStyle(), dir).Width(width).
			Render(fmt.Sprintf("%d. %s", i+1, choice.Text)))
	}
	lines = append(lines, content.Align(theme.GetMutedStyle(), dir).Width(width).
		Render("✎ "+m.i18n.T(i18n.ReaderCustomChoice)))
	return strings.Join(lines, "\n")
}

// renderActions lists the story keys that apply to msg
func (m *Model) renderActions(msg *thread.Message) string {
	var hints []string
	if msg.ShowPicker() {
		hints = append(hints, "← "+m.i18n.T(i18n.BranchPrevious), "→ "+m.i18n.T(i18n.BranchNext))
	}
	if m.canRegenerate() && msg == m.thread.Last() {
		hints = append(hints, "r "+m.i18n.T(i18n.ActionRegenerate))
	}
	if m.thread.State() == thread.StateActive && m.thread.Len() > 0 && m.thread.Messages()[0].Role == thread.RoleUser {
		hints = append(hints, "e "+m.i18n.T(i18n.ActionEdit))
	}
	if m.speaking == msg.ID {
		hints = append(hints, "p "+m.i18n.T(i18n.ActionStop))
	} else {
		hints = append(hints, "p "+m.i18n.T(i18n.ActionPlay))
	}
	return m.deps.Theme.GetMutedStyle().Render(strings.Join(hints, " · "))
}

func (m *Model) renderComposer() string {
	style := composerStyle
	if m.focus == focusComposer {
		style = composerFocusedStyle
	}

	var action string
	switch m.thread.State() {
	case thread.StateGenerating:
		action = "esc " + m.i18n.T(i18n.ComposerCancel)
	case thread.StateEditing:
		action = "enter " + m.i18n.T(i18n.ComposerEditSubmit) + " · esc " + m.i18n.T(i18n.ComposerEditCancel)
	default:
		action = "enter " + m.i18n.T(i18n.ComposerSend)
	}

	line := m.composer.View() + "  " + m.deps.Theme.GetMutedStyle().Render(action)
	return style.Width(max(m.textWidth(), 20)).Render(line)
}

func (m *Model) renderFooter() string {
	muted := m.deps.Theme.GetMutedStyle()
	if m.notice != "" {
		return components.RenderStatus("info", m.notice) + "\n" + muted.Render(m.i18n.T(i18n.ReaderHelp))
	}
	return "\n" + muted.Render(m.i18n.T(i18n.ReaderHelp))
}
