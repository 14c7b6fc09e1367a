// Package components provides the shared interface elements of the console:
// error toasts and their manager, the render-failure boundary, and status
// indicators.
package components

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
)

// categoryColors and categoryIcons drive toast and recovery screen styling
var categoryColors = map[apperrors.Category]lipgloss.Color{
	apperrors.CategoryNetwork:        lipgloss.Color("#f0a202"),
	apperrors.CategoryAuthentication: lipgloss.Color("#8e5cf7"),
	apperrors.CategoryAuthorization:  lipgloss.Color("#8e5cf7"),
	apperrors.CategoryValidation:     lipgloss.Color("#3a86ff"),
	apperrors.CategoryNotFound:       lipgloss.Color("#8a8f98"),
	apperrors.CategoryServerError:    lipgloss.Color("#e0475b"),
	apperrors.CategoryUnknown:        lipgloss.Color("#e0475b"),
}

var categoryIcons = map[apperrors.Category]string{
	apperrors.CategoryNetwork:        "📡",
	apperrors.CategoryAuthentication: "🔑",
	apperrors.CategoryAuthorization:  "🚫",
	apperrors.CategoryValidation:     "✏️",
	apperrors.CategoryNotFound:       "🔍",
	apperrors.CategoryServerError:    "🛠",
	apperrors.CategoryUnknown:        "❗",
}

// CategoryColor returns the accent color of a category
func CategoryColor(c apperrors.Category) lipgloss.Color {
	if color, ok := categoryColors[c]; ok {
		return color
	}
	return categoryColors[apperrors.CategoryUnknown]
}

// CategoryIcon returns the icon of a category
func CategoryIcon(c apperrors.Category) string {
	if icon, ok := categoryIcons[c]; ok {
		return icon
	}
	return categoryIcons[apperrors.CategoryUnknown]
}

var (
	recoveryTitleStyle  = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	recoveryActionStyle = lipgloss.NewStyle().Italic(true).MarginTop(1)
	recoveryKeyStyle    = lipgloss.NewStyle().Bold(true).Reverse(true).Padding(0, 1)
)

// RenderRecoveryScreen is the default full-screen view for a trapped render
// failure. Only the localized strings are shown.
func RenderRecoveryScreen(processed *apperrors.ProcessedError, width, height int) string {
	if processed == nil {
		return ""
	}
	color := CategoryColor(processed.Category)
	dir := processed.Language.Direction()

	var b strings.Builder
	b.WriteString(recoveryTitleStyle.Foreground(color).Render(CategoryIcon(processed.Category) + " " + processed.Title))
	b.WriteString("\n")
	b.WriteString(processed.Message)
	b.WriteString("\n")
	b.WriteString(recoveryActionStyle.Render(processed.Action))
	b.WriteString("\n\n")
	b.WriteString(recoveryKeyStyle.Render("r"))
	b.WriteString(" ")
	b.WriteString(i18n.T(processed.Language, i18n.BoundaryReset))

	align := lipgloss.Left
	if dir == i18n.RightToLeft {
		align = lipgloss.Right
	}
	box := lipgloss.NewStyle().
		Border(lipgloss.DoubleBorder()).
		BorderForeground(color).
		Padding(1, 3).
		Align(align).
		Render(b.String())

	if width <= 0 || height <= 0 {
		return box
	}
	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, box)
}
