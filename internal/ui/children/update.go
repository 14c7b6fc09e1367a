package children

import (
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/ui/components"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case spinner.TickMsg:
		if m.loading {
			var cmd tea.Cmd
			m.spinner, cmd = m.spinner.Update(msg)
			return m, cmd
		}

	case loadedMsg:
		m.loading = false
		reloaded := m.reloading
		m.reloading = false
		if msg.err != nil {
			return m, m.failure(msg.err, "children.load", m.load)
		}
		m.cursor = min(m.cursor, max(len(msg.children)-1, 0))
		m.logger.Debug("Loaded children", "count", len(msg.children))
		if reloaded {
			return m, components.Notice(m.i18n.Tf(i18n.ChildrenReloaded, len(msg.children)))
		}

	case dashboardMsg:
		if !m.showDashboard {
			m.loading = false
			return m, nil
		}
		if msg.childID != m.dashboardID || msg.period != m.period {
			return m, nil
		}
		m.loading = false
		if msg.err != nil {
			m.showDashboard = false
			id := msg.childID
			return m, m.failure(msg.err, "children.dashboard", func() tea.Cmd {
				m.showDashboard = true
				return m.loadDashboard(id)
			})
		}
		m.child, m.family, m.progress = msg.child, msg.family, msg.progress

	case storiesMsg:
		return m, m.handleStories(msg)

	case storyOpenedMsg:
		return m, m.handleOpened(msg)

	case profileSavedMsg:
		return m, m.handleSaved(msg)

	case profileRemovedMsg:
		return m, m.handleRemoved(msg)

	case retryMsg:
		return m, msg.run()

	default:
		if m.form != nil {
			f := m.form
			var cmd tea.Cmd
			f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "ctrl+l" {
		return m.logout()
	}

	if m.form != nil {
		return m.handleFormKey(msg)
	}
	if m.library != nil {
		return m.handleLibraryKey(msg.String())
	}
	if m.showDashboard {
		switch msg.String() {
		case "esc", "d":
			m.showDashboard = false
			m.child, m.family, m.progress = nil, nil, nil
		case "p":
			if m.child == nil {
				return nil
			}
			m.period = nextPeriod(m.period)
			m.progress = nil
			return m.loadDashboard(m.dashboardID)
		}
		return nil
	}

	key := msg.String()
	if key != "x" {
		m.confirmRemove = ""
	}
	count := len(m.deps.Children.Children())
	switch key {
	case "up", "k":
		if count > 0 {
			m.cursor = (m.cursor - 1 + count) % count
		}
	case "down", "j":
		if count > 0 {
			m.cursor = (m.cursor + 1) % count
		}
	case "r":
		m.reloading = true
		return m.load()
	case "d":
		child, ok := m.highlighted()
		if !ok {
			return nil
		}
		m.showDashboard = true
		return m.loadDashboard(child.ID)
	case "s":
		child, ok := m.highlighted()
		if !ok {
			return nil
		}
		return m.openLibrary(child)
	case "a":
		m.openProfileForm(nil)
	case "e":
		child, ok := m.highlighted()
		if !ok {
			return nil
		}
		m.openProfileForm(&child)
	case "x":
		return m.confirmOrRemove()
	case "enter":
		return m.choose()
	}
	return nil
}

// nextPeriod cycles the progress report through the backend's periods
func nextPeriod(period string) string {
	periods := interfaces.ProgressPeriods
	for i, p := range periods {
		if p == period {
			return periods[(i+1)%len(periods)]
		}
	}
	return periods[0]
}

// choose activates the highlighted child
func (m *Model) choose() tea.Cmd {
	child, ok := m.highlighted()
	if !ok {
		return nil
	}
	if err := m.deps.Children.Select(child.ID); err != nil {
		return m.failure(err, "children.select", nil)
	}
	m.logger.Info("Selected child", "child_id", child.ID, "language", m.deps.Children.Language())
	return func() tea.Msg { return SelectedMsg{Child: child} }
}

// failure hands err to the shell. retry re-runs the failed load when the
// toast offers it.
func (m *Model) failure(err error, where string, retry func() tea.Cmd) tea.Cmd {
	var retryCmd tea.Cmd
	if retry != nil {
		retryCmd = func() tea.Msg { return retryMsg{run: retry} }
	}
	failure := components.Failure(err, m.i18n.Language(), where, retryCmd)
	return func() tea.Msg { return failure }
}
