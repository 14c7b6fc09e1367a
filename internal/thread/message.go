package thread

import (
	"strings"
	"time"

	"github.com/storynest/console/internal/interfaces"
)

// Role identifies who authored a message
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
)

// PartKind distinguishes the pieces a message is rendered from
type PartKind int

const (
	PartText PartKind = iota
	PartChoices
	PartEnding
)

// Part is one renderable piece of a message
type Part struct {
	Kind    PartKind
	Text    string
	Choices []interfaces.Choice
}

// TextPart is a convenience constructor for a paragraph
func TextPart(text string) Part {
	return Part{Kind: PartText, Text: text}
}

// Variant is one sibling at an assistant position. Payload carries whatever
// produced the variant (the reader stores the story chapter there).
type Variant struct {
	ID        string
	Parts     []Part
	Payload   interface{}
	CreatedAt time.Time
}

// Message is one turn of the thread. User messages have exactly one variant;
// assistant messages have one per regeneration.
type Message struct {
	ID       string
	Role     Role
	variants []Variant
	cursor   int
}

// Parts returns the parts of the displayed variant
func (m *Message) Parts() []Part {
	return m.Current().Parts
}

// Current returns the displayed variant
func (m *Message) Current() Variant {
	if len(m.variants) == 0 {
		return Variant{}
	}
	return m.variants[m.cursor]
}

// Text joins the text parts of the displayed variant, one paragraph per line
func (m *Message) Text() string {
	var paragraphs []string
	for _, p := range m.Parts() {
		if p.Kind == PartText && p.Text != "" {
			paragraphs = append(paragraphs, p.Text)
		}
	}
	return strings.Join(paragraphs, "\n\n")
}

// Choices returns the choices offered by the displayed variant
func (m *Message) Choices() []interfaces.Choice {
	for _, p := range m.Parts() {
		if p.Kind == PartChoices {
			return p.Choices
		}
	}
	return nil
}

// Ending reports whether the displayed variant closes the story
func (m *Message) Ending() bool {
	for _, p := range m.Parts() {
		if p.Kind == PartEnding {
			return true
		}
	}
	return false
}

// Count is the number of sibling variants, always at least 1
func (m *Message) Count() int {
	return len(m.variants)
}

// Position is the 1-based index of the displayed variant
func (m *Message) Position() int {
	return m.cursor + 1
}

// ShowPicker reports whether the branch picker should be rendered
func (m *Message) ShowPicker() bool {
	return m.Count() > 1
}

// CanPrevious reports whether Previous would move the cursor
func (m *Message) CanPrevious() bool {
	return m.cursor > 0
}

// CanNext reports whether Next would move the cursor
func (m *Message) CanNext() bool {
	return m.cursor < len(m.variants)-1
}

// Previous shows the previous sibling. At position 1 it does nothing.
func (m *Message) Previous() bool {
	if !m.CanPrevious() {
		return false
	}
	m.cursor--
	return true
}

// Next shows the next sibling. At position Count it does nothing.
func (m *Message) Next() bool {
	if !m.CanNext() {
		return false
	}
	m.cursor++
	return true
}

func (m *Message) addVariant(v Variant) {
	m.variants = append(m.variants, v)
	m.cursor = len(m.variants) - 1
}
