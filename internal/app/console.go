// Package app provides the root controller of the console. It owns the
// screen lifecycle (login, child selection and the story reader), the chrome
// around them, and the routing of failures to toasts or back to login.
package app

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/content"
	"github.com/storynest/console/internal/diagnostics"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/health"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/speech"
	"github.com/storynest/console/internal/store"
	"github.com/storynest/console/internal/ui/children"
	"github.com/storynest/console/internal/ui/components"
	"github.com/storynest/console/internal/ui/layout"
	"github.com/storynest/console/internal/ui/login"
	"github.com/storynest/console/internal/ui/reader"
)

// Screen identifies the model currently inside the boundary
type Screen int

const (
	ScreenLogin Screen = iota
	ScreenChildren
	ScreenReader
)

// String is the route reported with diagnostic records
func (s Screen) String() string {
	switch s {
	case ScreenChildren:
		return "/children"
	case ScreenReader:
		return "/story"
	default:
		return "/login"
	}
}

// statusHeight is the notice line under the screen
const statusHeight = 1

type (
	healthTickMsg struct{}

	healthMsg struct {
		health interfaces.BackendHealth
	}
)

// Dependencies holds everything the controller wires into its screens
type Dependencies struct {
	Auth      *store.AuthStore
	Children  *store.ChildStore
	Stories   *store.StoryStore
	Health    *health.Monitor
	Speech    *speech.Synthesizer
	Theme     *content.ThemeManager
	Inspector diagnostics.Inspector
	Profile   *interfaces.Profile
	Policy    components.RetryPolicy

	ToastDuration  time.Duration
	HealthInterval time.Duration

	// Schedule delays toast timers and health polls; tea.Tick by default
	Schedule components.Scheduler
}

// Controller is the root tea.Model
type Controller struct {
	deps   Dependencies
	i18n   i18n.Resolver
	logger *logging.Logger

	header   *layout.Header
	toasts   *components.ToastManager
	screen   Screen
	boundary *components.Boundary

	showDiagnostics bool
	notice          string

	// reading is the child whose story the store holds
	reading interfaces.ID

	width      int
	height     int
	bodyHeight int
}

// NewController creates the controller on the screen matching the stored
// session: the reader when a child is already active, the selector when only
// signed in, login otherwise.
func NewController(deps Dependencies) *Controller {
	if deps.Theme == nil {
		deps.Theme = content.NewThemeManager()
	}
	if deps.Speech == nil {
		deps.Speech = speech.Default()
	}
	if deps.Inspector == nil {
		deps.Inspector = diagnostics.New(diagnostics.Stores{Stories: deps.Stories, Children: deps.Children, Health: deps.Health})
	}
	if deps.Profile == nil {
		profile := interfaces.Profile{Name: "default"}
		deps.Profile = &profile
	}
	if deps.Schedule == nil {
		deps.Schedule = components.TickScheduler
	}
	if deps.HealthInterval <= 0 {
		deps.HealthInterval = health.DefaultPollInterval
	}

	toastOpts := components.DefaultToastOptions()
	if deps.ToastDuration > 0 {
		toastOpts.Duration = deps.ToastDuration
	}

	c := &Controller{
		deps:   deps,
		i18n:   i18n.NewResolver(deps.Children.Language),
		logger: logging.GetUILogger().WithComponent("app"),
		toasts: components.NewToastManager(components.WithDefaults(toastOpts), components.WithScheduler(deps.Schedule)),
	}
	c.header = layout.NewHeader(c.i18n)

	start := ScreenLogin
	if deps.Auth.LoggedIn() {
		start = ScreenChildren
		if active := deps.Children.Active(); active != nil {
			start = ScreenReader
			c.reading = active.ID
		}
	}
	c.mount(start)
	return c
}

// Init starts the first screen and the health poll
func (c *Controller) Init() tea.Cmd {
	return tea.Batch(c.boundary.Init(), c.checkHealth())
}

// Screen returns the active screen
func (c *Controller) Screen() Screen {
	return c.screen
}

// Active returns the model inside the boundary
func (c *Controller) Active() tea.Model {
	return c.boundary.Child()
}

// Toasts exposes the toast stack
func (c *Controller) Toasts() *components.ToastManager {
	return c.toasts
}

// mount replaces the boundary with a fresh model for s
func (c *Controller) mount(s Screen) {
	if c.boundary != nil {
		c.boundary.Close()
		c.logger.LogUIStateChange(c.screen.String(), s.String(), "route")
	}
	c.screen = s
	c.showDiagnostics = false
	apperrors.SetRoute(s.String())

	c.boundary = components.NewBoundary(s.String(), c.factory(s), c.i18n.Language,
		components.OnTrap(c.deps.Inspector.RecordError))
	if c.width > 0 {
		size := c.bodySize()
		c.bodyHeight = size.Height
		c.boundary.Update(size)
	}
}

// show mounts s and returns its start-up commands
func (c *Controller) show(s Screen) tea.Cmd {
	c.mount(s)
	return c.boundary.Init()
}

func (c *Controller) factory(s Screen) components.Factory {
	deps := c.deps
	switch s {
	case ScreenReader:
		return func() tea.Model {
			return reader.New(reader.Dependencies{
				Stories:  deps.Stories,
				Children: deps.Children,
				Speech:   deps.Speech,
				Voice:    deps.Profile.Speech,
				Theme:    deps.Theme,
				Policy:   deps.Policy,
			}, c.i18n)
		}
	case ScreenChildren:
		return func() tea.Model {
			return children.New(children.Dependencies{
				Auth:     deps.Auth,
				Children: deps.Children,
				Stories:  deps.Stories,
				Theme:    deps.Theme,
				Policy:   deps.Policy,
			}, c.i18n)
		}
	default:
		return func() tea.Model {
			return login.New(login.Dependencies{
				Auth:   deps.Auth,
				Theme:  deps.Theme,
				Policy: deps.Policy,
				Email:  deps.Profile.Auth.Email,
			}, c.i18n)
		}
	}
}

// checkHealth probes the backend once
func (c *Controller) checkHealth() tea.Cmd {
	monitor := c.deps.Health
	if monitor == nil {
		return nil
	}
	return func() tea.Msg {
		return healthMsg{health: monitor.Check(context.Background())}
	}
}

// bodySize is the window handed to the screen: everything but the header,
// the toast stack and the status line
func (c *Controller) bodySize() tea.WindowSizeMsg {
	height := c.height - layout.Height - statusHeight
	if toasts := c.toasts.View(c.width); toasts != "" {
		height -= lineCount(toasts)
	}
	return tea.WindowSizeMsg{Width: c.width, Height: max(height, 1)}
}

// fitBody resends the body size when the chrome around it changed height
func (c *Controller) fitBody() tea.Cmd {
	if c.width <= 0 {
		return nil
	}
	size := c.bodySize()
	if size.Height == c.bodyHeight {
		return nil
	}
	c.bodyHeight = size.Height
	_, cmd := c.boundary.Update(size)
	return cmd
}
