package children

import (
	"context"
	"sort"
	"strings"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
)

// libraryLimit caps the stories listed for one child
const libraryLimit = 50

// library lists the stored stories of one child. Empty filters match
// everything.
type library struct {
	child    interfaces.Child
	loading  bool
	cursor   int
	theme    string
	language string
	level    string
	opening  interfaces.ID
}

type (
	storiesMsg struct {
		childID interfaces.ID
		err     error
	}

	storyOpenedMsg struct {
		child interfaces.Child
		story *interfaces.Story
		err   error
	}
)

// ShowingLibrary reports whether the story library replaces the list
func (m *Model) ShowingLibrary() bool {
	return m.library != nil
}

func (m *Model) openLibrary(child interfaces.Child) tea.Cmd {
	m.library = &library{child: child}
	return m.loadStories()
}

func (m *Model) loadStories() tea.Cmd {
	m.library.loading = true
	m.loading = true
	stories := m.deps.Stories
	policy := m.deps.Policy
	lang := m.i18n.Language()
	childID := m.library.child.ID
	filter := interfaces.StoryFilter{ChildID: childID, Limit: libraryLimit}

	fetch := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		_, err := apperrors.Retry(ctx, func(ctx context.Context) ([]interfaces.Story, error) {
			return stories.LoadStories(ctx, filter)
		}, "stories.load", policy.MaxRetries, policy.Options(lang)...)
		return storiesMsg{childID: childID, err: err}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

// visibleStories applies the library filters to the loaded stories
func (m *Model) visibleStories() []interfaces.Story {
	l := m.library
	return m.deps.Stories.Filtered(l.theme, l.language, l.level)
}

func (m *Model) handleStories(msg storiesMsg) tea.Cmd {
	if m.library == nil || m.library.child.ID != msg.childID {
		return nil
	}
	m.library.loading = false
	m.loading = false
	if msg.err != nil {
		m.library = nil
		known := m.deps.Children.Children()
		return m.failure(msg.err, "stories.load", func() tea.Cmd {
			for _, c := range known {
				if c.ID == msg.childID {
					return m.openLibrary(c)
				}
			}
			return nil
		})
	}
	m.library.cursor = min(m.library.cursor, max(len(m.visibleStories())-1, 0))
	return nil
}

func (m *Model) handleLibraryKey(key string) tea.Cmd {
	l := m.library
	if l.loading || l.opening != "" {
		if key == "esc" {
			m.library = nil
			m.loading = false
		}
		return nil
	}

	visible := m.visibleStories()
	switch key {
	case "esc":
		m.library = nil
	case "up", "k":
		if len(visible) > 0 {
			l.cursor = (l.cursor - 1 + len(visible)) % len(visible)
		}
	case "down", "j":
		if len(visible) > 0 {
			l.cursor = (l.cursor + 1) % len(visible)
		}
	case "t":
		l.theme = nextValue(l.theme, m.storyValues(func(s interfaces.Story) string { return s.Theme }))
		l.cursor = 0
	case "g":
		l.language = nextValue(l.language, m.storyValues(func(s interfaces.Story) string { return s.Language }))
		l.cursor = 0
	case "v":
		l.level = nextValue(l.level, m.storyValues(func(s interfaces.Story) string { return s.ReadingLevel }))
		l.cursor = 0
	case "enter":
		if l.cursor < len(visible) {
			return m.openStory(visible[l.cursor].ID)
		}
	}
	return nil
}

// storyValues lists the distinct non-empty values of field across the
// loaded stories, sorted
func (m *Model) storyValues(field func(interfaces.Story) string) []string {
	seen := map[string]bool{}
	var values []string
	for _, s := range m.deps.Stories.Stories() {
		v := strings.ToLower(field(s))
		if v != "" && !seen[v] {
			seen[v] = true
			values = append(values, v)
		}
	}
	sort.Strings(values)
	return values
}

// nextValue cycles current through "" and values
func nextValue(current string, values []string) string {
	for i, v := range values {
		if v == current && i+1 < len(values) {
			return values[i+1]
		}
	}
	if current == "" && len(values) > 0 {
		return values[0]
	}
	return ""
}

// openStory loads the full story before the reader takes over
func (m *Model) openStory(id interfaces.ID) tea.Cmd {
	m.library.opening = id
	m.loading = true
	stories := m.deps.Stories
	policy := m.deps.Policy
	lang := m.i18n.Language()
	child := m.library.child

	fetch := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		story, err := apperrors.Retry(ctx, func(ctx context.Context) (*interfaces.Story, error) {
			return stories.Fetch(ctx, id)
		}, "stories.fetch", policy.MaxRetries, policy.Options(lang)...)
		return storyOpenedMsg{child: child, story: story, err: err}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

// handleOpened activates the library's child with the fetched story.
// Replies for a library that was closed meanwhile are dropped.
func (m *Model) handleOpened(msg storyOpenedMsg) tea.Cmd {
	if m.library == nil || m.library.child.ID != msg.child.ID || m.library.opening == "" {
		return nil
	}
	id := m.library.opening
	m.library.opening = ""
	m.loading = false
	if msg.err != nil {
		return m.failure(msg.err, "stories.fetch", func() tea.Cmd {
			if m.library == nil {
				return nil
			}
			return m.openStory(id)
		})
	}

	if err := m.deps.Children.Select(msg.child.ID); err != nil {
		return m.failure(err, "children.select", nil)
	}
	m.library = nil
	m.logger.Info("Opened stored story", "child_id", msg.child.ID, "story_id", msg.story.ID)
	selected := SelectedMsg{Child: msg.child, Story: msg.story}
	return func() tea.Msg { return selected }
}

func (m *Model) renderLibrary() string {
	theme := m.deps.Theme
	l := m.library
	lines := []string{theme.GetTitleStyle().Render(m.i18n.T(i18n.LibraryTitle) + " · " + l.child.Name), ""}

	anyValue := m.i18n.T(i18n.LibraryAny)
	lines = append(lines, theme.GetMutedStyle().Render(m.i18n.Tf(i18n.LibraryFilter,
		orDefault(l.theme, anyValue), orDefault(l.language, anyValue), orDefault(l.level, anyValue))), "")

	visible := m.visibleStories()
	switch {
	case l.loading || l.opening != "":
		lines = append(lines, m.spinner.View())
	case len(visible) == 0:
		lines = append(lines, theme.GetMutedStyle().Render(m.i18n.T(i18n.LibraryEmpty)))
	default:
		lines = append(lines, m.renderStoryTable(visible))
	}

	lines = append(lines, "", theme.GetMutedStyle().Render(m.i18n.T(i18n.LibraryHelp)))
	return strings.Join(lines, "\n")
}

func (m *Model) renderStoryTable(stories []interfaces.Story) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleLight)
	tw.AppendHeader(table.Row{
		"",
		m.i18n.T(i18n.LibraryColTitle),
		m.i18n.T(i18n.LibraryColTheme),
		m.i18n.T(i18n.LibraryColLanguage),
		m.i18n.T(i18n.LibraryColLevel),
		m.i18n.T(i18n.LibraryColChapters),
	})
	for i, s := range stories {
		marker := ""
		if i == m.library.cursor {
			marker = "›"
		}
		tw.AppendRow(table.Row{marker, s.Title, s.Theme, s.Language, s.ReadingLevel, s.TotalChapters})
	}
	tw.SetColumnConfigs([]table.ColumnConfig{{Number: 6, Align: text.AlignRight}})
	return tw.Render()
}

func orDefault(value, fallback string) string {
	if value == "" {
		return fallback
	}
	return value
}
