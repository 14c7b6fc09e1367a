package login

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/ui/components"
)

var formStyle = lipgloss.NewStyle().
	Border(lipgloss.RoundedBorder()).
	BorderForeground(lipgloss.Color("#89B4FA")).
	Padding(1, 3)

var labelStyle = lipgloss.NewStyle().Width(14)

// View implements tea.Model
func (m *Model) View() string {
	theme := m.deps.Theme
	dir := m.i18n.Direction()

	lines := []string{theme.GetTitleStyle().Render(m.i18n.T(modeTitles[m.mode])), ""}
	for i, id := range m.fields() {
		label := m.i18n.T(fieldLabels[id])
		if i == m.focus {
			label = theme.GetAccentStyle().Render(label)
		}
		row := []string{labelStyle.Render(label), m.inputs[id].View()}
		if dir == i18n.RightToLeft {
			row[0], row[1] = row[1], row[0]
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, row...))
	}
	lines = append(lines, "")

	switch {
	case m.submitting:
		lines = append(lines, theme.GetMutedStyle().Render(m.i18n.T(i18n.LoginSubmitting)))
	case m.err != nil:
		lines = append(lines, theme.GetErrorStyle().Render(components.CategoryIcon(m.err.Category)+" "+m.err.Title),
			theme.GetMutedStyle().Render(m.err.Message))
	case m.notice != "":
		lines = append(lines, components.RenderStatus("info", m.notice))
	}

	help := i18n.LoginHelp
	if m.mode == ModeForgot || m.mode == ModeReset {
		help = i18n.FormBackHelp
	}
	lines = append(lines, "", theme.GetMutedStyle().Render(m.i18n.T(help)))

	form := formStyle.Render(content.Align(lipgloss.NewStyle(), dir).Render(strings.Join(lines, "\n")))
	if m.width <= 0 || m.height <= 0 {
		return form
	}
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, form)
}
