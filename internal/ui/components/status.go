package components

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/interfaces"
)

// statusStyles maps status strings to their visual style
var statusStyles = map[string]lipgloss.Style{
	interfaces.HealthReady:    lipgloss.NewStyle().Foreground(lipgloss.Color("#2e9d6a")),
	interfaces.HealthOffline:  lipgloss.NewStyle().Foreground(lipgloss.Color("#e0475b")),
	interfaces.HealthError:    lipgloss.NewStyle().Foreground(lipgloss.Color("#f0a202")),
	interfaces.HealthChecking: lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8f98")),
	"playing":                 lipgloss.NewStyle().Foreground(lipgloss.Color("#8e5cf7")),
	"info":                    lipgloss.NewStyle().Foreground(lipgloss.Color("#3a86ff")),
}

var statusIcons = map[string]string{
	interfaces.HealthReady:    "●",
	interfaces.HealthOffline:  "○",
	interfaces.HealthError:    "◐",
	interfaces.HealthChecking: "◌",
	"playing":                 "🔊",
	"info":                    "ℹ",
}

// RenderStatus formats a status message with its icon and color
func RenderStatus(status, message string) string {
	style, ok := statusStyles[status]
	if !ok {
		style = lipgloss.NewStyle()
	}
	icon, ok := statusIcons[status]
	if !ok {
		icon = "·"
	}
	if message == "" {
		return style.Render(icon)
	}
	return style.Render(fmt.Sprintf("%s %s", icon, message))
}

// RenderProgressBar draws a bar of width cells for a 0-100 percentage
func RenderProgressBar(progress int, width int, fillChar, emptyChar string) string {
	if width <= 0 {
		return ""
	}
	progress = max(0, min(progress, 100))

	filledWidth := (progress * width) / 100
	return fmt.Sprintf("[%s%s]", strings.Repeat(fillChar, filledWidth), strings.Repeat(emptyChar, width-filledWidth))
}

// RenderSteps draws one marker per step, e.g. ●─◉─○ for step 2 of 3
func RenderSteps(current, total int) string {
	if total <= 0 {
		return ""
	}
	steps := make([]string, 0, total)
	for i := 1; i <= total; i++ {
		switch {
		case i < current:
			steps = append(steps, "●")
		case i == current:
			steps = append(steps, "◉")
		default:
			steps = append(steps, "○")
		}
	}
	return strings.Join(steps, "─")
}
