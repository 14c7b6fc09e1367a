package content

import (
	"strings"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/i18n"
)

// RenderParagraphs wraps story paragraphs to width and aligns them for the
// text direction. Right-to-left text is right-aligned; glyph order is left to
// the terminal.
func RenderParagraphs(paragraphs []string, width int, dir i18n.Direction, style lipgloss.Style) string {
	if len(paragraphs) == 0 {
		return ""
	}
	style = Align(style, dir)
	if width > 0 {
		style = style.Width(width)
	}
	rendered := make([]string, 0, len(paragraphs))
	for _, p := range paragraphs {
		rendered = append(rendered, style.Render(strings.TrimSpace(p)))
	}
	return strings.Join(rendered, "\n\n")
}

// Align sets the horizontal alignment for dir
func Align(style lipgloss.Style, dir i18n.Direction) lipgloss.Style {
	if dir == i18n.RightToLeft {
		return style.Align(lipgloss.Right)
	}
	return style.Align(lipgloss.Left)
}

// WordCount counts whitespace-separated words across paragraphs
func WordCount(paragraphs []string) int {
	n := 0
	for _, p := range paragraphs {
		n += len(strings.Fields(p))
	}
	return n
}
