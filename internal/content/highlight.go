package content

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/alecthomas/chroma"
	"github.com/alecthomas/chroma/formatters"
	"github.com/alecthomas/chroma/lexers"
	"github.com/alecthomas/chroma/styles"
)

// SyntaxHighlighter colors source text for the terminal using chroma
type SyntaxHighlighter struct {
	formatter chroma.Formatter
	style     *chroma.Style
	theme     string
}

// NewSyntaxHighlighter creates a highlighter; unknown names fall back to the
// github style and the plain formatter
func NewSyntaxHighlighter(themeName, formatterName string) *SyntaxHighlighter {
	formatter := formatters.Get(formatterName)
	if formatter == nil {
		formatter = formatters.Fallback
	}
	style := styles.Get(themeName)
	if style == nil {
		style = styles.GitHub
	}
	return &SyntaxHighlighter{formatter: formatter, style: style, theme: themeName}
}

// Highlight colors code written in language. On failure the input is
// returned unchanged together with the error.
func (sh *SyntaxHighlighter) Highlight(code, language string) (string, error) {
	lexer := lexers.Get(language)
	if lexer == nil {
		lexer = lexers.Analyse(code)
	}
	if lexer == nil {
		lexer = lexers.Fallback
	}
	lexer = chroma.Coalesce(lexer)

	iterator, err := lexer.Tokenise(nil, code)
	if err != nil {
		return code, err
	}

	var highlighted strings.Builder
	if err := sh.formatter.Format(&highlighted, sh.style, iterator); err != nil {
		return code, err
	}
	return highlighted.String(), nil
}

// HighlightJSON indents v as JSON and colors it
func (sh *SyntaxHighlighter) HighlightJSON(v interface{}) (string, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode %T: %w", v, err)
	}
	return sh.Highlight(string(data), "json")
}

// SetTheme switches the chroma style
func (sh *SyntaxHighlighter) SetTheme(themeName string) error {
	style, ok := styles.Registry[themeName]
	if !ok {
		return fmt.Errorf("theme '%s' not found", themeName)
	}
	sh.style = style
	sh.theme = themeName
	return nil
}

// Theme returns the chroma style name in use
func (sh *SyntaxHighlighter) Theme() string {
	return sh.theme
}
