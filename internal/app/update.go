package app

import (
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/ui/children"
	"github.com/storynest/console/internal/ui/components"
	"github.com/storynest/console/internal/ui/login"
)

// Update handles routing messages itself and delegates the rest to the
// active screen
func (c *Controller) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmds []tea.Cmd
	if cmd := c.toasts.Update(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}

	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		c.width, c.height = msg.Width, msg.Height
		c.header.SetWidth(msg.Width)
		size := c.bodySize()
		c.bodyHeight = size.Height
		_, cmd := c.boundary.Update(size)
		return c, cmd

	case tea.KeyMsg:
		if handled, cmd := c.handleKey(msg); handled {
			return c, tea.Batch(cmd, c.fitBody())
		}

	case healthTickMsg:
		return c, c.checkHealth()

	case healthMsg:
		c.header.SetHealth(msg.health)
		return c, c.deps.Schedule(c.deps.HealthInterval, healthTickMsg{})

	case login.LoggedInMsg:
		c.notice = ""
		return c, c.show(ScreenChildren)

	case children.SelectedMsg:
		c.notice = ""
		if msg.Child.ID != c.reading {
			c.deps.Stories.Reset()
			c.reading = msg.Child.ID
		}
		if msg.Story != nil {
			c.deps.Stories.SetCurrent(msg.Story)
		}
		return c, c.show(ScreenReader)

	case children.LoggedOutMsg:
		return c, c.signedOut(c.i18n.T(i18n.LogoutDone))

	case components.AuthRequiredMsg:
		notice := ""
		if msg.Error != nil {
			notice = msg.Error.Message
		}
		return c, c.signedOut(notice)

	case components.ErrorMsg:
		return c, tea.Batch(c.handleError(msg), c.fitBody())

	case components.NoticeMsg:
		c.notice = msg.Text
		return c, nil
	}

	_, cmd := c.boundary.Update(msg)
	cmds = append(cmds, cmd, c.fitBody())
	return c, tea.Batch(cmds...)
}

// handleKey processes the shell's own bindings. The rest go to the screen.
func (c *Controller) handleKey(msg tea.KeyMsg) (bool, tea.Cmd) {
	switch msg.String() {
	case "ctrl+c":
		c.boundary.Close()
		return true, tea.Quit

	case "f12":
		if !c.deps.Inspector.Enabled() {
			return false, nil
		}
		c.showDiagnostics = !c.showDiagnostics
		return true, nil

	case "ctrl+x":
		if c.toasts.Latest() != nil {
			return true, c.toasts.DismissLatest()
		}

	case "ctrl+r":
		if t := c.toasts.Latest(); t != nil && t.CanRetry() {
			return true, c.toasts.RetryLatest()
		}

	case "ctrl+b":
		if c.screen == ScreenReader {
			c.notice = ""
			return true, c.show(ScreenChildren)
		}
	}

	if c.showDiagnostics {
		switch msg.String() {
		case "c":
			c.deps.Inspector.ClearCurrentStory()
		case "C":
			c.deps.Inspector.ClearStoryState()
		case "esc":
			c.showDiagnostics = false
		}
		return true, nil
	}
	return false, nil
}

// handleError routes a classified failure: authentication failures sign the
// user out, everything else becomes a toast
func (c *Controller) handleError(msg components.ErrorMsg) tea.Cmd {
	if msg.Error == nil {
		return nil
	}
	c.deps.Inspector.RecordError(msg.Error)
	if cmd := components.HandleAuthError(msg.Error, c.deps.Auth.Clear); cmd != nil {
		return cmd
	}
	_, cmd := c.toasts.Show(msg.Error, msg.Retry)
	return cmd
}

// signedOut drops every per-user cache and returns to login
func (c *Controller) signedOut(notice string) tea.Cmd {
	c.toasts.Clear()
	c.deps.Stories.Reset()
	c.deps.Children.Clear()
	c.notice = ""
	c.reading = ""

	cmd := c.show(ScreenLogin)
	if form, ok := c.boundary.Child().(*login.Model); ok && notice != "" {
		form.SetNotice(notice)
	}
	return tea.Batch(cmd, c.fitBody())
}
