package children

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/ui/components"
)

var cursorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#89B4FA")).Bold(true)

// View implements tea.Model
func (m *Model) View() string {
	var body string
	switch {
	case m.form != nil:
		body = m.renderProfileForm()
	case m.library != nil:
		body = m.renderLibrary()
	case m.showDashboard:
		body = m.renderDashboard()
	default:
		body = m.renderList()
	}
	return content.Align(lipgloss.NewStyle(), m.i18n.Direction()).Padding(1, 2).Render(body)
}

func (m *Model) renderList() string {
	theme := m.deps.Theme
	lines := []string{theme.GetTitleStyle().Render(m.i18n.T(i18n.ChildrenTitle)), ""}

	children := m.deps.Children.Children()
	switch {
	case m.loading && len(children) == 0:
		lines = append(lines, m.spinner.View())
	case len(children) == 0:
		lines = append(lines, theme.GetMutedStyle().Render(m.i18n.T(i18n.ChildrenEmpty)))
	}

	active := m.deps.Children.Active()
	for i, child := range children {
		line := fmt.Sprintf("%s (%d)", child.Name, child.Age)
		if child.ReadingLevel != "" {
			line += theme.GetMutedStyle().Render(" · " + child.ReadingLevel)
		}
		if active != nil && active.ID == child.ID {
			line += " " + components.RenderStatus(interfaces.HealthReady, "")
		}
		if i == m.cursor {
			line = cursorStyle.Render("› ") + theme.GetAccentStyle().Render(line)
		} else {
			line = "  " + line
		}
		lines = append(lines, line)
	}

	lines = append(lines, "", theme.GetMutedStyle().Render(m.i18n.T(i18n.ChildrenHelp)))
	return strings.Join(lines, "\n")
}

func (m *Model) renderDashboard() string {
	theme := m.deps.Theme
	lines := []string{theme.GetTitleStyle().Render(m.i18n.T(i18n.ChildrenDashboard)), ""}

	if m.child == nil || m.family == nil {
		lines = append(lines, m.spinner.View())
	} else {
		lines = append(lines, m.renderChildSummary(), "",
			theme.GetAccentStyle().Render(m.i18n.T(i18n.DashboardFamily)),
			m.renderFamilyTable())
		if m.progress != nil {
			lines = append(lines, "", m.renderProgress())
		}
		for _, tip := range m.family.Recommendations {
			lines = append(lines, components.RenderStatus("info", tip))
		}
	}

	lines = append(lines, "", theme.GetMutedStyle().Render(m.i18n.T(i18n.DashboardHelp)))
	return strings.Join(lines, "\n")
}

func (m *Model) renderChildSummary() string {
	d := m.child
	rows := [][]string{
		{m.i18n.T(i18n.DashboardStories), strconv.Itoa(d.StoriesThisWeek)},
		{m.i18n.T(i18n.DashboardMinutes), strconv.Itoa(minutes(d.ReadingTimeToday))},
		{m.i18n.T(i18n.DashboardStreak), strconv.Itoa(d.ReadingStreak)},
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(d.Child.Name)
	for _, row := range rows {
		tw.AppendRow(table.Row{row[0], row[1]})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	out := tw.Render()
	if d.CurrentStory != nil {
		out += "\n" + m.i18n.Tf(i18n.DashboardCurrent, d.CurrentStory.StoryTitle, d.CurrentStory.CompletionPercentage) +
			" " + components.RenderProgressBar(d.CurrentStory.CompletionPercentage, 20, "█", "░")
	}
	return out
}

// renderFamilyTable lists every child of the family with a totals footer
func (m *Model) renderFamilyTable() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{
		m.i18n.T(i18n.DashboardChild),
		m.i18n.T(i18n.DashboardAge),
		m.i18n.T(i18n.DashboardStories),
		m.i18n.T(i18n.DashboardMinutes),
		m.i18n.T(i18n.DashboardStreak),
	})

	stories, seconds := 0, 0
	for _, c := range m.family.ChildrenSummary {
		tw.AppendRow(table.Row{c.Name, c.Age, c.StoriesCompletedThisWeek, minutes(c.ReadingTimeThisWeek), c.CurrentStreak})
		stories += c.StoriesCompletedThisWeek
		seconds += c.ReadingTimeThisWeek
	}
	tw.AppendFooter(table.Row{m.i18n.T(i18n.DashboardTotal), "", stories, minutes(seconds), m.family.FamilyReadingStreak})

	configs := make([]table.ColumnConfig, 0, 4)
	for col := 2; col <= 5; col++ {
		configs = append(configs, table.ColumnConfig{Number: col, Align: text.AlignRight, AlignFooter: text.AlignRight})
	}
	tw.SetColumnConfigs(configs)
	return tw.Render()
}

var periodNames = map[string]i18n.Key{
	interfaces.PeriodWeek:    i18n.ProgressPeriodWeek,
	interfaces.PeriodMonth:   i18n.ProgressPeriodMonth,
	interfaces.PeriodQuarter: i18n.ProgressPeriodQtr,
	interfaces.PeriodYear:    i18n.ProgressPeriodYear,
}

func (m *Model) renderProgress() string {
	p := m.progress
	level := p.CurrentReadingLevel
	if p.InitialReadingLevel != "" && p.InitialReadingLevel != p.CurrentReadingLevel {
		level = p.InitialReadingLevel + " → " + p.CurrentReadingLevel
	}

	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.SetTitle(m.i18n.Tf(i18n.ProgressTitle, m.i18n.T(periodNames[p.Period])))
	tw.AppendRow(table.Row{m.i18n.T(i18n.ProgressLevel), level})
	tw.AppendRow(table.Row{m.i18n.T(i18n.ProgressMinutes), p.TotalReadingTime})
	tw.AppendRow(table.Row{m.i18n.T(i18n.ProgressCompleted), p.StoriesCompleted})
	tw.AppendRow(table.Row{m.i18n.T(i18n.ProgressVocabulary), p.VocabularyGrowth})
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 2, Align: text.AlignRight}})

	out := tw.Render()
	for _, tip := range p.Recommendations {
		out += "\n" + components.RenderStatus("info", tip)
	}
	return out
}

// minutes converts the backend's reading seconds for display
func minutes(seconds int) int {
	return seconds / 60
}
