package interfaces

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// ID is an entity identifier. The backend sends integer ids for stored
// entities and string ids for generated stories; both decode into ID.
type ID string

// String returns the identifier text
func (id ID) String() string {
	return string(id)
}

// IsZero reports whether the id is empty
func (id ID) IsZero() bool {
	return id == ""
}

// UnmarshalJSON accepts JSON numbers and strings
func (id *ID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = ID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid id %s: %w", data, err)
	}
	*id = ID(n.String())
	return nil
}

// MarshalJSON writes numeric ids as numbers so the backend's integer fields
// validate, and everything else as strings
func (id ID) MarshalJSON() ([]byte, error) {
	if _, err := strconv.ParseInt(string(id), 10, 64); err == nil {
		return []byte(id), nil
	}
	return json.Marshal(string(id))
}

// storyWire accepts both the camelCase shape returned by story generation and
// the snake_case shape returned by the story list and detail endpoints.
type storyWire struct {
	ID               ID              `json:"id"`
	Title            string          `json:"title"`
	Content          json.RawMessage `json:"content"`
	Language         string          `json:"language"`
	ReadingLevel     string          `json:"readingLevel"`
	DifficultyLevel  string          `json:"difficulty_level"`
	Theme            string          `json:"theme"`
	Themes           []string        `json:"themes"`
	Choices          []Choice        `json:"choices"`
	IsCompleted      *bool           `json:"isCompleted"`
	IsCompletedSnake *bool           `json:"is_completed"`
	CurrentChapter   int             `json:"currentChapter"`
	CurrentChapterS  int             `json:"current_chapter"`
	TotalChapters    int             `json:"totalChapters"`
	TotalChaptersS   int             `json:"total_chapters"`
	CreatedAt        string          `json:"createdAt"`
	CreatedAtSnake   string          `json:"created_at"`
}

// UnmarshalJSON decodes either backend story shape
func (s *Story) UnmarshalJSON(data []byte) error {
	var w storyWire
	if err := json.Unmarshal(data, &w); err != nil {
		return err
	}

	content, err := decodeContent(w.Content)
	if err != nil {
		return fmt.Errorf("story %s: %w", w.ID, err)
	}

	*s = Story{
		ID:             w.ID,
		Title:          w.Title,
		Content:        content,
		Language:       w.Language,
		ReadingLevel:   firstNonEmpty(w.ReadingLevel, w.DifficultyLevel),
		Theme:          w.Theme,
		Choices:        w.Choices,
		CurrentChapter: firstPositive(w.CurrentChapter, w.CurrentChapterS),
		TotalChapters:  firstPositive(w.TotalChapters, w.TotalChaptersS),
	}
	if s.Theme == "" && len(w.Themes) > 0 {
		s.Theme = w.Themes[0]
	}
	switch {
	case w.IsCompleted != nil:
		s.IsCompleted = *w.IsCompleted
	case w.IsCompletedSnake != nil:
		s.IsCompleted = *w.IsCompletedSnake
	}
	if created := firstNonEmpty(w.CreatedAt, w.CreatedAtSnake); created != "" {
		s.CreatedAt = parseTimestamp(created)
	}
	return nil
}

func decodeContent(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '[' {
		var paragraphs []string
		if err := json.Unmarshal(raw, &paragraphs); err != nil {
			return nil, fmt.Errorf("invalid content: %w", err)
		}
		return paragraphs, nil
	}
	var text string
	if err := json.Unmarshal(raw, &text); err != nil {
		return nil, fmt.Errorf("invalid content: %w", err)
	}
	return SplitParagraphs(text), nil
}

// SplitParagraphs splits story text on blank lines, dropping empty
// paragraphs
func SplitParagraphs(text string) []string {
	var out []string
	for _, p := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n\n") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Timestamp decodes both RFC 3339 and zone-less ISO timestamps.
type Timestamp struct {
	time.Time
}

// UnmarshalJSON accepts a JSON string timestamp or null
func (t *Timestamp) UnmarshalJSON(data []byte) error {
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		t.Time = time.Time{}
		return nil
	}
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return fmt.Errorf("invalid timestamp %s: %w", data, err)
	}
	t.Time = parseTimestamp(s)
	return nil
}

// MarshalJSON writes RFC 3339
func (t Timestamp) MarshalJSON() ([]byte, error) {
	return json.Marshal(t.Time.Format(time.RFC3339Nano))
}

// parseTimestamp accepts RFC 3339 and the naive ISO timestamps Python emits
// without a zone.
func parseTimestamp(value string) time.Time {
	for _, layout := range []string{time.RFC3339Nano, "2006-01-02T15:04:05.999999", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, value); err == nil {
			return t
		}
	}
	return time.Time{}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}
	return 0
}
