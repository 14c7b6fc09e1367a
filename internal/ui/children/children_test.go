package children

import (
	"context"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/mockapi/apitest"
	"github.com/storynest/console/internal/protocol"
	"github.com/storynest/console/internal/ui/components"
)

func newSelector(t *testing.T, h *apitest.Harness) *Model {
	t.Helper()
	return New(Dependencies{
		Auth:     h.Auth,
		Children: h.Children,
		Stories:  h.Stories,
		Policy:   components.RetryPolicy{Timeout: 5 * time.Second},
	}, i18n.NewResolver(h.Children.Language))
}

func press(m *Model, key string) tea.Cmd {
	var msg tea.KeyMsg
	switch key {
	case "enter":
		msg = tea.KeyMsg{Type: tea.KeyEnter}
	case "esc":
		msg = tea.KeyMsg{Type: tea.KeyEsc}
	case "tab":
		msg = tea.KeyMsg{Type: tea.KeyTab}
	case "down":
		msg = tea.KeyMsg{Type: tea.KeyDown}
	case "up":
		msg = tea.KeyMsg{Type: tea.KeyUp}
	case "ctrl+l":
		msg = tea.KeyMsg{Type: tea.KeyCtrlL}
	default:
		msg = tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(key)}
	}
	_, cmd := m.Update(msg)
	return cmd
}

// run feeds cmd's messages back into m and returns the ones meant for the
// shell
func run(t *testing.T, m *Model, cmd tea.Cmd) []tea.Msg {
	t.Helper()
	var out []tea.Msg
	queue := []tea.Cmd{cmd}
	for steps := 0; len(queue) > 0; steps++ {
		require.Less(t, steps, 50, "commands did not settle")
		next := queue[0]
		queue = queue[1:]
		if next == nil {
			continue
		}
		switch msg := next().(type) {
		case tea.BatchMsg:
			queue = append(queue, msg...)
		case spinner.TickMsg, nil:
		case components.ErrorMsg, components.NoticeMsg, SelectedMsg, LoggedOutMsg:
			out = append(out, msg)
		default:
			_, follow := m.Update(msg)
			queue = append(queue, follow)
		}
	}
	return out
}

func TestInitLoadsChildren(t *testing.T) {
	h := apitest.SignedIn(t)
	h.Children.Clear()
	m := newSelector(t, h)

	require.Empty(t, run(t, m, m.Init()))
	view := m.View()
	assert.Contains(t, view, "Who is reading today?")
	assert.Contains(t, view, "Noa (8)")
	assert.Contains(t, view, "Max (10)")
}

func TestInitSkipsLoadedChildren(t *testing.T) {
	m := newSelector(t, apitest.SignedIn(t))
	assert.Nil(t, m.Init())
}

func TestReloadPostsNotice(t *testing.T) {
	m := newSelector(t, apitest.SignedIn(t))

	out := run(t, m, press(m, "r"))
	require.Len(t, out, 1)
	assert.Equal(t, components.NoticeMsg{Text: "2 reader profiles loaded."}, out[0])

	m.Update(loadedMsg{})
	assert.False(t, m.reloading, "only the requested load posts a notice")
}

func TestSelectChild(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)

	press(m, "down")
	assert.Equal(t, 1, m.Cursor())
	press(m, "down")
	assert.Equal(t, 0, m.Cursor(), "cursor wraps")
	press(m, "up")

	out := run(t, m, press(m, "enter"))
	require.Len(t, out, 1)
	selected, ok := out[0].(SelectedMsg)
	require.True(t, ok)
	assert.Equal(t, selected.Child.ID, h.Children.Active().ID)
	assert.Equal(t, selected.Child.Name, h.Children.Children()[1].Name)
}

func TestCursorStartsOnActiveChild(t *testing.T) {
	h := apitest.SignedIn(t)
	h.SelectChild(t, h.Children.Children()[1].Name)

	m := newSelector(t, h)
	assert.Equal(t, 1, m.Cursor())
}

func TestSelectingHebrewChildSwitchesLanguage(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	for i, child := range h.Children.Children() {
		if child.Name == "Noa" {
			m.cursor = i
		}
	}

	run(t, m, press(m, "enter"))
	assert.Equal(t, i18n.Hebrew, h.Children.Language())
	assert.Contains(t, m.View(), "מי קורא היום?")
}

func TestEmptyFamily(t *testing.T) {
	h := apitest.SignedIn(t)
	for _, child := range h.Children.Children() {
		require.NoError(t, h.Children.Delete(context.Background(), child.ID))
	}
	m := newSelector(t, h)

	assert.Contains(t, m.View(), "No reader profiles yet")
	assert.Nil(t, press(m, "enter"))
	assert.Nil(t, press(m, "d"))
}

func TestDashboardShowsFamilyTable(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)

	require.Empty(t, run(t, m, press(m, "d")))
	require.True(t, m.ShowingDashboard())

	view := m.View()
	assert.Contains(t, view, "Reading dashboard")
	assert.Contains(t, view, h.Children.Children()[0].Name)
	assert.Contains(t, view, "Noa")
	assert.Contains(t, view, "Max")
	assert.Contains(t, view, "Read together before bedtime")

	press(m, "esc")
	assert.False(t, m.ShowingDashboard())
	assert.Contains(t, m.View(), "Who is reading today?")
}

func TestDashboardFailureOffersRetry(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	h.Backend.FailNext(protocol.EndpointParentDashboard, http.StatusServiceUnavailable)

	out := run(t, m, press(m, "d"))
	require.Len(t, out, 1)
	failure, ok := out[0].(components.ErrorMsg)
	require.True(t, ok)
	assert.Equal(t, apperrors.CategoryServerError, failure.Error.Category)
	assert.False(t, m.ShowingDashboard())
	require.NotNil(t, failure.Retry)

	require.Empty(t, run(t, m, failure.Retry))
	assert.True(t, m.ShowingDashboard())
	assert.Contains(t, m.View(), "Read together before bedtime")
}

func TestLogout(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)

	out := run(t, m, press(m, "ctrl+l"))
	require.Len(t, out, 1)
	assert.IsType(t, LoggedOutMsg{}, out[0])
	assert.False(t, h.Auth.LoggedIn())
	assert.Empty(t, h.Children.Children())
}

// highlight moves the cursor onto the seeded child called name
func highlight(t *testing.T, m *Model, h *apitest.Harness, name string) interfaces.Child {
	t.Helper()
	for i, child := range h.Children.Children() {
		if child.Name == name {
			m.cursor = i
			return child
		}
	}
	require.FailNow(t, "no seeded child named "+name)
	return interfaces.Child{}
}

func generate(t *testing.T, h *apitest.Harness, child interfaces.Child, theme string) *interfaces.Story {
	t.Helper()
	story, err := h.Stories.Generate(context.Background(), interfaces.GenerateStoryRequest{ChildID: child.ID, Theme: theme})
	require.NoError(t, err)
	return story
}

func TestDashboardShowsProgressForPeriod(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	highlight(t, m, h, "Max")

	require.Empty(t, run(t, m, press(m, "d")))
	view := m.View()
	assert.Contains(t, view, "Progress this week")
	assert.Contains(t, view, "Try a short story together this week")

	cmd := press(m, "p")
	assert.Equal(t, interfaces.PeriodMonth, m.Period())
	assert.NotContains(t, m.View(), "Progress this week")
	require.Empty(t, run(t, m, cmd))
	assert.Contains(t, m.View(), "Progress this month")
}

func TestDashboardDropsReplyForOlderPeriod(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	highlight(t, m, h, "Max")
	require.Empty(t, run(t, m, press(m, "d")))

	toMonth := press(m, "p")
	toQuarter := press(m, "p")
	require.Equal(t, interfaces.PeriodQuarter, m.Period())
	require.Empty(t, run(t, m, toMonth))
	assert.NotContains(t, m.View(), "Progress this month")
	require.Empty(t, run(t, m, toQuarter))
	assert.Contains(t, m.View(), "Progress this quarter")
}

func TestLibraryFiltersAndOpensStory(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	reader := highlight(t, m, h, "Max")
	other := h.Children.Children()[0]
	if other.ID == reader.ID {
		other = h.Children.Children()[1]
	}
	pirates := generate(t, h, reader, "pirates")
	generate(t, h, other, "space")

	require.Empty(t, run(t, m, press(m, "s")))
	require.True(t, m.ShowingLibrary())
	view := m.View()
	assert.Contains(t, view, "Story library · Max")
	assert.Contains(t, view, "Pirates Adventure")
	assert.Contains(t, view, "Space Adventure")
	assert.Contains(t, view, "Theme: any · Language: any · Level: any")

	press(m, "t")
	view = m.View()
	assert.Contains(t, view, "Theme: pirates")
	assert.Contains(t, view, "Pirates Adventure")
	assert.NotContains(t, view, "Space Adventure")

	out := run(t, m, press(m, "enter"))
	require.Len(t, out, 1)
	selected, ok := out[0].(SelectedMsg)
	require.True(t, ok)
	assert.Equal(t, reader.ID, selected.Child.ID)
	require.NotNil(t, selected.Story)
	assert.Equal(t, pirates.ID, selected.Story.ID)
	assert.Equal(t, reader.ID, h.Children.Active().ID)
	assert.False(t, m.ShowingLibrary())
	assert.Nil(t, h.Stories.Current(), "the shell makes the story current")
}

func TestLibraryFilterCyclesBackToAny(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	reader := highlight(t, m, h, "Max")
	generate(t, h, reader, "pirates")
	generate(t, h, reader, "space")
	require.Empty(t, run(t, m, press(m, "s")))

	press(m, "t")
	press(m, "t")
	assert.Contains(t, m.View(), "Theme: space")
	press(m, "t")
	assert.Contains(t, m.View(), "Theme: any")

	press(m, "v")
	assert.Contains(t, m.View(), "Level: intermediate")
	press(m, "esc")
	assert.False(t, m.ShowingLibrary())
	assert.Contains(t, m.View(), "Who is reading today?")
}

func TestLibraryEmpty(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	highlight(t, m, h, "Max")

	require.Empty(t, run(t, m, press(m, "s")))
	assert.Contains(t, m.View(), "No stories here yet.")
	assert.Nil(t, press(m, "enter"))
}

func TestLibraryClosedBeforeStoryArrives(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	generate(t, h, highlight(t, m, h, "Max"), "pirates")
	require.Empty(t, run(t, m, press(m, "s")))

	open := press(m, "enter")
	press(m, "esc")
	assert.Empty(t, run(t, m, open))
	assert.Nil(t, h.Children.Active())
	assert.False(t, m.ShowingLibrary())
}

func TestLibraryOpenFailureOffersRetry(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	story := generate(t, h, highlight(t, m, h, "Max"), "pirates")
	require.Empty(t, run(t, m, press(m, "s")))
	h.Backend.FailNext(fmt.Sprintf(protocol.EndpointStory, story.ID), http.StatusServiceUnavailable)

	out := run(t, m, press(m, "enter"))
	require.Len(t, out, 1)
	failure, ok := out[0].(components.ErrorMsg)
	require.True(t, ok)
	assert.Equal(t, apperrors.CategoryServerError, failure.Error.Category)
	assert.True(t, m.ShowingLibrary())
	require.NotNil(t, failure.Retry)

	out = run(t, m, failure.Retry)
	require.Len(t, out, 1)
	selected, ok := out[0].(SelectedMsg)
	require.True(t, ok)
	assert.Equal(t, story.ID, selected.Story.ID)
}

// typeInto fills the focused field of the profile editor
func typeInto(m *Model, text string) {
	m.Update(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune(text)})
}

func TestAddProfile(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)

	press(m, "a")
	require.True(t, m.ShowingProfileForm())
	assert.Contains(t, m.View(), "New reader profile")

	typeInto(m, "Lia")
	press(m, "tab")
	typeInto(m, "9")
	press(m, "tab")
	typeInto(m, "Hebrew")
	press(m, "tab")
	typeInto(m, "advanced")
	press(m, "tab")
	typeInto(m, "music, Art")

	out := run(t, m, press(m, "enter"))
	require.Len(t, out, 1)
	assert.Equal(t, components.NoticeMsg{Text: "Lia's profile was saved."}, out[0])
	assert.False(t, m.ShowingProfileForm())

	list := h.Children.Children()
	require.Len(t, list, 3)
	lia := list[m.Cursor()]
	assert.Equal(t, "Lia", lia.Name)
	assert.Equal(t, 9, lia.Age)
	assert.Equal(t, "hebrew", lia.LanguagePreference)
	assert.Equal(t, "advanced", lia.ReadingLevel)
	assert.Equal(t, []string{"music", "art"}, lia.Interests)
}

func TestProfileFormRejectsInvalidInput(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)

	press(m, "a")
	typeInto(m, "Lia")
	press(m, "tab")
	typeInto(m, "nine")
	for i := 0; i < 3; i++ {
		press(m, "enter")
	}
	assert.Nil(t, press(m, "enter"))
	require.NotNil(t, m.FormErr())
	assert.Equal(t, apperrors.CategoryValidation, m.FormErr().Category)
	assert.Contains(t, m.View(), "child age must be a number")

	m.form.inputs[profileAge].SetValue("4")
	assert.Nil(t, press(m, "enter"))
	require.NotNil(t, m.FormErr())
	assert.Contains(t, m.FormErr().Message, "between 7 and 12")

	press(m, "esc")
	assert.False(t, m.ShowingProfileForm())
	assert.Len(t, h.Children.Children(), 2)
}

func TestEditProfile(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	edited := highlight(t, m, h, "Max")

	press(m, "e")
	require.True(t, m.ShowingProfileForm())
	view := m.View()
	assert.Contains(t, view, "Edit reader profile")
	assert.Contains(t, view, "adventure, science")

	for i := 0; i < 4; i++ {
		press(m, "tab")
	}
	typeInto(m, ", music")
	out := run(t, m, press(m, "enter"))
	require.Len(t, out, 1)
	assert.Equal(t, components.NoticeMsg{Text: "Max's profile was saved."}, out[0])

	updated := h.Children.Children()[m.Cursor()]
	assert.Equal(t, edited.ID, updated.ID)
	assert.Equal(t, []string{"adventure", "science", "music"}, updated.Interests)
	assert.Equal(t, 10, updated.Age)
}

func TestRemoveProfileAsksFirst(t *testing.T) {
	h := apitest.SignedIn(t)
	m := newSelector(t, h)
	highlight(t, m, h, "Noa")

	out := run(t, m, press(m, "x"))
	assert.Equal(t, []tea.Msg{components.NoticeMsg{Text: "Press x again to remove Noa's profile."}}, out)
	assert.Len(t, h.Children.Children(), 2)

	press(m, "down")
	press(m, "up")
	out = run(t, m, press(m, "x"))
	assert.Equal(t, []tea.Msg{components.NoticeMsg{Text: "Press x again to remove Noa's profile."}}, out,
		"moving the cursor cancels the confirmation")

	out = run(t, m, press(m, "x"))
	assert.Equal(t, []tea.Msg{components.NoticeMsg{Text: "Noa's profile was removed."}}, out)
	require.Len(t, h.Children.Children(), 1)
	assert.Equal(t, "Max", h.Children.Children()[0].Name)
	assert.Equal(t, 0, m.Cursor())
}
