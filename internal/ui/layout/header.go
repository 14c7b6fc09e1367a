// Package layout renders the chrome around every screen: the header with the
// greeting, backend health and the chapter breadcrumb.
package layout

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/ui/components"
)

var headerStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#CBA6F7")).
	Padding(0, 1)

var greetingStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#CBA6F7")).Bold(true)

// Height is the number of rows the header occupies
const Height = 3

// Header shows who is reading, how far the story has come and whether the
// backend is reachable
type Header struct {
	i18n   i18n.Resolver
	reader string
	health interfaces.BackendHealth
	story  *interfaces.Story
	width  int
}

// NewHeader creates a header that renders in the resolver's language
func NewHeader(resolver i18n.Resolver) *Header {
	return &Header{
		i18n:   resolver,
		health: interfaces.BackendHealth{Status: interfaces.HealthChecking},
	}
}

// SetReader sets the greeted name; "" greets a guest
func (h *Header) SetReader(name string) {
	h.reader = name
}

// SetHealth records the latest backend health check
func (h *Header) SetHealth(health interfaces.BackendHealth) {
	h.health = health
}

// SetStory tracks the chapter breadcrumb. nil hides it.
func (h *Header) SetStory(story *interfaces.Story) {
	if story == nil || story.TotalChapters <= 0 {
		h.story = nil
		return
	}
	h.story = story
}

// InStory reports whether the chapter breadcrumb is shown
func (h *Header) InStory() bool {
	return h.story != nil
}

// SetWidth sets the rendering width
func (h *Header) SetWidth(width int) {
	h.width = width
}

// View renders the header as a single bordered row
func (h *Header) View() string {
	greeting := h.i18n.T(i18n.HeaderGuest)
	if h.reader != "" {
		greeting = h.i18n.Tf(i18n.HeaderGreeting, h.reader)
	}
	left := greetingStyle.Render(greeting)
	right := h.renderHealth()

	middle := ""
	if h.story != nil {
		chapter := min(max(h.story.CurrentChapter, 1), h.story.TotalChapters)
		middle = h.i18n.Tf(i18n.HeaderChapter, chapter, h.story.TotalChapters) + " " +
			components.RenderSteps(chapter, h.story.TotalChapters)
	}

	if h.i18n.Direction() == i18n.RightToLeft {
		left, right = right, left
	}

	inner := max(h.width-4, 0)
	used := lipgloss.Width(left) + lipgloss.Width(middle) + lipgloss.Width(right)
	if inner == 0 || used+2 > inner {
		return headerStyle.Render(joinNonEmpty(left, middle, right))
	}

	gap := inner - used
	leftGap := gap / 2
	if middle == "" {
		leftGap = gap
	}
	row := left + spaces(leftGap) + middle + spaces(gap-leftGap) + right
	return headerStyle.Width(h.width - 2).Render(row)
}

func (h *Header) renderHealth() string {
	label := h.i18n.T(i18n.HeaderOffline)
	if h.health.Status == interfaces.HealthReady {
		label = h.i18n.T(i18n.HeaderOnline)
	}
	if h.health.Status == interfaces.HealthReady && h.health.ResponseTime > 0 {
		label = fmt.Sprintf("%s %dms", label, h.health.ResponseTime.Milliseconds())
	}
	return components.RenderStatus(h.health.Status, label)
}

func joinNonEmpty(parts ...string) string {
	out := ""
	for _, p := range parts {
		if p == "" {
			continue
		}
		if out != "" {
			out += "  "
		}
		out += p
	}
	return out
}

func spaces(n int) string {
	if n <= 0 {
		return ""
	}
	return fmt.Sprintf("%*s", n, "")
}
