package content

import (
	"strings"
	"testing"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
)

func TestHighlightJSONKeepsContent(t *testing.T) {
	sh := NewSyntaxHighlighter("github", "noop")
	out, err := sh.HighlightJSON(map[string]interface{}{"title": "The Dragon", "chapter": 2})
	require.NoError(t, err)
	assert.Contains(t, out, `"title": "The Dragon"`)
	assert.Contains(t, out, `"chapter": 2`)
}

func TestHighlightTerminalAddsEscapes(t *testing.T) {
	sh := NewSyntaxHighlighter("monokai", "terminal256")
	out, err := sh.Highlight(`{"a": 1}`, "json")
	require.NoError(t, err)
	assert.Contains(t, out, "\x1b[")
}

func TestSetThemeRejectsUnknown(t *testing.T) {
	sh := NewSyntaxHighlighter("github", "noop")
	assert.Error(t, sh.SetTheme("no-such-style"))
	require.NoError(t, sh.SetTheme("monokai"))
	assert.Equal(t, "monokai", sh.Theme())
}

func TestRenderParagraphsAlignsRightToLeft(t *testing.T) {
	out := RenderParagraphs([]string{"שלום"}, 10, i18n.RightToLeft, lipgloss.NewStyle())
	line := strings.Split(out, "\n")[0]
	assert.True(t, strings.HasSuffix(line, "שלום"))
	assert.True(t, strings.HasPrefix(line, " "))

	ltr := RenderParagraphs([]string{"hello"}, 10, i18n.LeftToRight, lipgloss.NewStyle())
	assert.True(t, strings.HasPrefix(ltr, "hello"))
}

func TestRenderParagraphsSeparatesWithBlankLine(t *testing.T) {
	out := RenderParagraphs([]string{"one", "two"}, 0, i18n.LeftToRight, lipgloss.NewStyle())
	assert.Equal(t, "one\n\ntwo", out)
	assert.Empty(t, RenderParagraphs(nil, 10, i18n.LeftToRight, lipgloss.NewStyle()))
}

func TestWordCount(t *testing.T) {
	assert.Equal(t, 5, WordCount([]string{"Once upon a time.", "  End "}))
	assert.Zero(t, WordCount(nil))
}

func TestThemeOverridesPalette(t *testing.T) {
	tm := NewThemeManager()
	assert.Equal(t, lipgloss.Color("#e0475b"), tm.Color("error"))

	tm.SetTheme(&interfaces.Theme{Name: "night", Error: "#ff0000"})
	assert.Equal(t, lipgloss.Color("#ff0000"), tm.Color("error"))
	assert.Equal(t, lipgloss.Color("#2e9d6a"), tm.Color("success"), "unset colors keep the default")
	assert.Equal(t, "night", tm.Theme().Name)
}
