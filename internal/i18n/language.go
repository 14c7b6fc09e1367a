// Package i18n resolves every user-facing string of the console. Components
// never branch on the active language themselves; they ask the resolver for a
// key and render whatever comes back.
package i18n

import (
	"strings"

	"golang.org/x/text/language"
)

// Language is a language supported by the storytelling backend. The values
// match the backend's language_preference field.
type Language string

const (
	English Language = "english"
	Hebrew  Language = "hebrew"
)

// Direction is the text direction of a language.
type Direction int

const (
	LeftToRight Direction = iota
	RightToLeft
)

// String returns the conventional short name of the direction
func (d Direction) String() string {
	if d == RightToLeft {
		return "rtl"
	}
	return "ltr"
}

var (
	supportedTags = []language.Tag{language.English, language.Hebrew}
	matcher       = language.NewMatcher(supportedTags)
)

// Languages lists every supported language in a stable order.
func Languages() []Language {
	return []Language{English, Hebrew}
}

// Parse maps backend values ("hebrew"), BCP-47 tags ("he-IL", "iw") and
// locale strings ("en_US.UTF-8") onto a supported language. Anything it
// cannot place resolves to English.
func Parse(value string) Language {
	v := strings.ToLower(strings.TrimSpace(value))
	switch v {
	case "":
		return English
	case string(English):
		return English
	case string(Hebrew), "ivrit", "iw":
		return Hebrew
	}

	// Strip encoding suffixes from POSIX locales.
	if idx := strings.IndexAny(v, ".@"); idx >= 0 {
		v = v[:idx]
	}
	v = strings.ReplaceAll(v, "_", "-")

	tag, err := language.Parse(v)
	if err != nil {
		return English
	}
	_, index, confidence := matcher.Match(tag)
	if confidence == language.No {
		return English
	}
	if supportedTags[index] == language.Hebrew {
		return Hebrew
	}
	return English
}

// Valid reports whether l is one of the supported languages.
func (l Language) Valid() bool {
	return l == English || l == Hebrew
}

// Tag returns the BCP-47 tag for the language.
func (l Language) Tag() language.Tag {
	if l == Hebrew {
		return language.Hebrew
	}
	return language.English
}

// SpeechTag is the regional tag handed to speech engines.
func (l Language) SpeechTag() string {
	if l == Hebrew {
		return "he-IL"
	}
	return "en-US"
}

// Direction returns the writing direction of the language.
func (l Language) Direction() Direction {
	if l == Hebrew {
		return RightToLeft
	}
	return LeftToRight
}
