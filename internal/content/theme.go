// Package content turns story text and structured data into styled terminal
// output: themed lipgloss styles, direction-aware paragraph layout and
// syntax-highlighted JSON for the diagnostics panel.
package content

import (
	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/interfaces"
)

// ThemeManager builds lipgloss styles from a profile theme
type ThemeManager struct {
	currentTheme *interfaces.Theme
	styles       map[string]lipgloss.Style
}

// NewThemeManager creates a theme manager with the built-in palette
func NewThemeManager() *ThemeManager {
	tm := &ThemeManager{}
	tm.initializeDefaultStyles()
	return tm
}

// SetTheme applies theme colors on top of the defaults
func (tm *ThemeManager) SetTheme(theme *interfaces.Theme) {
	tm.currentTheme = theme
	tm.initializeDefaultStyles()
	tm.buildLipglossStyles()
}

// Theme returns the applied theme, or nil
func (tm *ThemeManager) Theme() *interfaces.Theme {
	return tm.currentTheme
}

// Style returns the named style, or a plain style for unknown names
func (tm *ThemeManager) Style(name string) lipgloss.Style {
	if style, ok := tm.styles[name]; ok {
		return style
	}
	return lipgloss.NewStyle()
}

// StatusStyle returns the style for a status such as "success" or "error"
func (tm *ThemeManager) StatusStyle(status string) lipgloss.Style {
	if style, ok := tm.styles["status_"+status]; ok {
		return style
	}
	return tm.styles["status_default"]
}

// Color returns the raw color for a status, used for borders
func (tm *ThemeManager) Color(status string) lipgloss.Color {
	return lipgloss.Color(tm.colorFor(status))
}

func (tm *ThemeManager) GetUserStyle() lipgloss.Style      { return tm.styles["user"] }
func (tm *ThemeManager) GetAssistantStyle() lipgloss.Style { return tm.styles["assistant"] }
func (tm *ThemeManager) GetMutedStyle() lipgloss.Style     { return tm.styles["muted"] }
func (tm *ThemeManager) GetAccentStyle() lipgloss.Style    { return tm.styles["accent"] }
func (tm *ThemeManager) GetErrorStyle() lipgloss.Style     { return tm.styles["error"] }
func (tm *ThemeManager) GetTitleStyle() lipgloss.Style     { return tm.styles["title"] }
func (tm *ThemeManager) GetBorderStyle() lipgloss.Style    { return tm.styles["border"] }

var defaultPalette = map[string]string{
	"success":   "#2e9d6a",
	"error":     "#e0475b",
	"warning":   "#f0a202",
	"info":      "#3a86ff",
	"accent":    "#8e5cf7",
	"muted":     "#8a8f98",
	"assistant": "#ff8fab",
	"user":      "#4cc9f0",
}

func (tm *ThemeManager) colorFor(name string) string {
	if t := tm.currentTheme; t != nil {
		var c string
		switch name {
		case "success":
			c = t.Success
		case "error":
			c = t.Error
		case "warning":
			c = t.Warning
		case "info":
			c = t.Info
		case "accent":
			c = t.Accent
		case "muted":
			c = t.Muted
		case "assistant":
			c = t.Assistant
		case "user":
			c = t.User
		}
		if c != "" {
			return c
		}
	}
	return defaultPalette[name]
}

func (tm *ThemeManager) initializeDefaultStyles() {
	tm.styles = map[string]lipgloss.Style{
		"status_default": lipgloss.NewStyle(),
		"title":          lipgloss.NewStyle().Bold(true),
		"border":         lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1),
	}
	tm.buildLipglossStyles()
}

// buildLipglossStyles creates the colored styles from the palette
func (tm *ThemeManager) buildLipglossStyles() {
	for _, status := range []string{"success", "error", "warning", "info"} {
		tm.styles["status_"+status] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor(status)))
	}
	tm.styles["error"] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor("error"))).Bold(true)
	tm.styles["accent"] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor("accent"))).Bold(true)
	tm.styles["muted"] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor("muted")))
	tm.styles["assistant"] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor("assistant"))).Bold(true)
	tm.styles["user"] = lipgloss.NewStyle().Foreground(lipgloss.Color(tm.colorFor("user"))).Bold(true)
	tm.styles["border"] = tm.styles["border"].BorderForeground(lipgloss.Color(tm.colorFor("muted")))
}
