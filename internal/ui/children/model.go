// Package children implements the reader-profile selector and the reading
// dashboard shown to the parent.
package children

import (
	"context"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"

	"github.com/storynest/console/internal/content"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/store"
	"github.com/storynest/console/internal/ui/components"
)

// SelectedMsg is sent once a child profile is active. Story is set when
// the child picked a stored story from the library.
type SelectedMsg struct {
	Child interfaces.Child
	Story *interfaces.Story
}

// LoggedOutMsg is sent after the parent signed out
type LoggedOutMsg struct{}

type (
	loadedMsg struct {
		children []interfaces.Child
		err      error
	}

	dashboardMsg struct {
		childID  interfaces.ID
		period   string
		child    *interfaces.ChildDashboard
		family   *interfaces.ParentDashboard
		progress *interfaces.ProgressReport
		err      error
	}

	// retryMsg re-runs a failed load on the update loop
	retryMsg struct {
		run func() tea.Cmd
	}
)

// Dependencies are the stores the selector works against
type Dependencies struct {
	Auth     *store.AuthStore
	Children *store.ChildStore
	Stories  *store.StoryStore
	Theme    *content.ThemeManager
	Policy   components.RetryPolicy
}

// Model is the child selector screen
type Model struct {
	deps    Dependencies
	i18n    i18n.Resolver
	logger  *logging.Logger
	spinner spinner.Model

	cursor  int
	loading bool

	// reloading marks a load the user asked for
	reloading bool

	showDashboard bool
	dashboardID   interfaces.ID
	period        string
	child         *interfaces.ChildDashboard
	family        *interfaces.ParentDashboard
	progress      *interfaces.ProgressReport

	library *library
	form    *profileForm

	// confirmRemove is the child a second x removes
	confirmRemove interfaces.ID

	width  int
	height int
}

// New creates the selector, positioned on the active child when there is one
func New(deps Dependencies, resolver i18n.Resolver) *Model {
	if deps.Theme == nil {
		deps.Theme = content.NewThemeManager()
	}
	spin := spinner.New()
	spin.Spinner = spinner.Dot
	spin.Style = deps.Theme.GetAccentStyle()

	m := &Model{
		deps:    deps,
		i18n:    resolver,
		logger:  logging.GetUILogger().WithField("screen", "children"),
		spinner: spin,
		period:  interfaces.PeriodWeek,
	}
	if active := deps.Children.Active(); active != nil {
		for i, child := range deps.Children.Children() {
			if child.ID == active.ID {
				m.cursor = i
			}
		}
	}
	return m
}

// Init loads the profiles unless the store already has them
func (m *Model) Init() tea.Cmd {
	if len(m.deps.Children.Children()) > 0 {
		return nil
	}
	return m.load()
}

// Cursor returns the index of the highlighted child
func (m *Model) Cursor() int {
	return m.cursor
}

// ShowingDashboard reports whether the dashboard replaces the list
func (m *Model) ShowingDashboard() bool {
	return m.showDashboard
}

func (m *Model) highlighted() (interfaces.Child, bool) {
	children := m.deps.Children.Children()
	if m.cursor < 0 || m.cursor >= len(children) {
		return interfaces.Child{}, false
	}
	return children[m.cursor], true
}

func (m *Model) load() tea.Cmd {
	m.loading = true
	children := m.deps.Children
	policy := m.deps.Policy
	lang := m.i18n.Language()
	fetch := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		list, err := apperrors.Retry(ctx, children.Load, "children.load", policy.MaxRetries, policy.Options(lang)...)
		return loadedMsg{children: list, err: err}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

// Period returns the span of the dashboard's progress report
func (m *Model) Period() string {
	return m.period
}

// loadDashboard fetches the child's statistics, the family's and the
// child's progress report together
func (m *Model) loadDashboard(id interfaces.ID) tea.Cmd {
	m.loading = true
	m.dashboardID = id
	children := m.deps.Children
	policy := m.deps.Policy
	period := m.period
	fetch := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()

		msg := dashboardMsg{childID: id, period: period}
		g, gctx := errgroup.WithContext(ctx)
		g.Go(func() error {
			d, err := children.Dashboard(gctx, id)
			msg.child = d
			return err
		})
		g.Go(func() error {
			f, err := children.FamilyDashboard(gctx)
			msg.family = f
			return err
		})
		g.Go(func() error {
			p, err := children.Progress(gctx, id, period)
			msg.progress = p
			return err
		})
		msg.err = g.Wait()
		return msg
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

func (m *Model) logout() tea.Cmd {
	auth := m.deps.Auth
	children := m.deps.Children
	policy := m.deps.Policy
	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		if err := auth.Logout(ctx); err != nil {
			logging.GetUILogger().Warn("Failed to clear credentials", "error", err)
		}
		children.Clear()
		return LoggedOutMsg{}
	}
}
