package app

import (
	"strings"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/ui/components"
)

// View stacks the header, the active screen, the toasts and the status line
func (c *Controller) View() string {
	c.syncHeader()

	var body string
	if c.showDiagnostics {
		body = c.deps.Inspector.Panel(c.width)
	} else {
		body = c.boundary.View()
	}

	sections := []string{c.header.View(), body}
	if toasts := c.toasts.View(c.width); toasts != "" {
		sections = append(sections, toasts)
	}
	sections = append(sections, c.renderStatus())
	return strings.Join(sections, "\n")
}

// syncHeader copies the active child and story into the header
func (c *Controller) syncHeader() {
	name := ""
	if child := c.deps.Children.Active(); child != nil && c.screen != ScreenLogin {
		name = child.Name
	}
	c.header.SetReader(name)
	if c.screen == ScreenReader {
		c.header.SetStory(c.deps.Stories.Current())
	} else {
		c.header.SetStory(nil)
	}
}

func (c *Controller) renderStatus() string {
	muted := c.deps.Theme.GetMutedStyle()
	switch {
	case c.notice != "":
		return components.RenderStatus("info", c.notice)
	case c.screen == ScreenReader:
		return muted.Render(c.i18n.T(i18n.AppBackHelp))
	default:
		return ""
	}
}

func lineCount(s string) int {
	return strings.Count(s, "\n") + 1
}
