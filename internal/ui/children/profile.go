package children

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/protocol"
	"github.com/storynest/console/internal/ui/components"
)

const (
	profileName = iota
	profileAge
	profileLanguage
	profileLevel
	profileInterests
)

var profileLabels = []i18n.Key{
	profileName:      i18n.ProfileName,
	profileAge:       i18n.ProfileAge,
	profileLanguage:  i18n.ProfileLanguage,
	profileLevel:     i18n.ProfileLevel,
	profileInterests: i18n.ProfileInterests,
}

// profileForm adds a reader profile, or edits one when editing is set
type profileForm struct {
	editing    *interfaces.Child
	inputs     []textinput.Model
	focus      int
	submitting bool
	err        *apperrors.ProcessedError
}

type (
	profileSavedMsg struct {
		child *interfaces.Child
		err   error
	}

	profileRemovedMsg struct {
		child interfaces.Child
		err   error
	}
)

// ShowingProfileForm reports whether the profile editor replaces the list
func (m *Model) ShowingProfileForm() bool {
	return m.form != nil
}

// FormErr returns the failure shown under the profile editor
func (m *Model) FormErr() *apperrors.ProcessedError {
	if m.form == nil {
		return nil
	}
	return m.form.err
}

func newProfileForm(editing *interfaces.Child) *profileForm {
	f := &profileForm{editing: editing, inputs: make([]textinput.Model, len(profileLabels))}
	for i := range f.inputs {
		ti := textinput.New()
		ti.CharLimit = 100
		ti.Width = 40
		f.inputs[i] = ti
	}
	if editing != nil {
		f.inputs[profileName].SetValue(editing.Name)
		f.inputs[profileAge].SetValue(strconv.Itoa(editing.Age))
		f.inputs[profileLanguage].SetValue(editing.LanguagePreference)
		f.inputs[profileLevel].SetValue(editing.ReadingLevel)
		f.inputs[profileInterests].SetValue(strings.Join(editing.Interests, ", "))
	}
	f.focusField(0)
	return f
}

func (f *profileForm) focusField(index int) {
	for i := range f.inputs {
		f.inputs[i].Blur()
	}
	f.focus = (index + len(f.inputs)) % len(f.inputs)
	f.inputs[f.focus].Focus()
}

// input turns the form into a profile request. Empty optional fields are
// left to the backend's defaults.
func (f *profileForm) input() (interfaces.ChildInput, error) {
	var input interfaces.ChildInput
	value := func(i int) string { return strings.TrimSpace(f.inputs[i].Value()) }

	if name := value(profileName); name != "" {
		input.Name = &name
	}
	if raw := value(profileAge); raw != "" {
		age, err := strconv.Atoi(raw)
		if err != nil {
			return input, fmt.Errorf("child age must be a number")
		}
		input.Age = &age
	}
	if lang := strings.ToLower(value(profileLanguage)); lang != "" {
		input.LanguagePreference = &lang
	}
	if level := strings.ToLower(value(profileLevel)); level != "" {
		input.ReadingLevel = &level
	}
	for _, interest := range strings.Split(value(profileInterests), ",") {
		if interest = strings.ToLower(strings.TrimSpace(interest)); interest != "" {
			input.Interests = append(input.Interests, interest)
		}
	}
	return input, protocol.ValidateChildInput(input, f.editing == nil)
}

func (m *Model) openProfileForm(editing *interfaces.Child) {
	m.form = newProfileForm(editing)
	m.confirmRemove = ""
}

func (m *Model) handleFormKey(msg tea.KeyMsg) tea.Cmd {
	f := m.form
	if f.submitting {
		return nil
	}

	switch msg.String() {
	case "esc":
		m.form = nil
		return nil
	case "tab", "down":
		f.focusField(f.focus + 1)
		return nil
	case "shift+tab", "up":
		f.focusField(f.focus - 1)
		return nil
	case "enter":
		if f.focus < len(f.inputs)-1 {
			f.focusField(f.focus + 1)
			return nil
		}
		return m.saveProfile()
	}

	f.err = nil
	var cmd tea.Cmd
	f.inputs[f.focus], cmd = f.inputs[f.focus].Update(msg)
	return cmd
}

// saveProfile validates the form locally, then creates or updates the
// profile
func (m *Model) saveProfile() tea.Cmd {
	f := m.form
	input, err := f.input()
	if err != nil {
		f.err = &apperrors.ProcessedError{
			Category: apperrors.CategoryValidation,
			Title:    i18n.T(m.i18n.Language(), apperrors.CategoryValidation.TitleKey()),
			Message:  err.Error(),
			Language: m.i18n.Language(),
			Original: err,
		}
		return nil
	}

	f.submitting = true
	f.err = nil
	m.loading = true
	children := m.deps.Children
	policy := m.deps.Policy
	editing := f.editing

	save := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		var msg profileSavedMsg
		if editing == nil {
			msg.child, msg.err = children.Create(ctx, input)
		} else {
			msg.child, msg.err = children.Update(ctx, editing.ID, input)
		}
		return msg
	}
	return tea.Batch(save, m.spinner.Tick)
}

// handleSaved closes the editor on success. Rejections stay on the form;
// an expired session goes to the shell.
func (m *Model) handleSaved(msg profileSavedMsg) tea.Cmd {
	m.loading = false
	if m.form == nil {
		return nil
	}
	m.form.submitting = false
	if msg.err != nil {
		processed := apperrors.Classify(msg.err, m.i18n.Language())
		if processed.RequiresAuth() {
			m.form = nil
			return m.failure(msg.err, "children.save", nil)
		}
		apperrors.LogError(msg.err, "children.save")
		m.form.err = processed
		return nil
	}

	m.form = nil
	for i, child := range m.deps.Children.Children() {
		if child.ID == msg.child.ID {
			m.cursor = i
		}
	}
	m.logger.Info("Saved child profile", "child_id", msg.child.ID)
	return components.Notice(m.i18n.Tf(i18n.ProfileSaved, msg.child.Name))
}

// confirmOrRemove asks before the first x and removes on the second
func (m *Model) confirmOrRemove() tea.Cmd {
	child, ok := m.highlighted()
	if !ok {
		return nil
	}
	if m.confirmRemove != child.ID {
		m.confirmRemove = child.ID
		return components.Notice(m.i18n.Tf(i18n.ProfileConfirm, child.Name))
	}
	m.confirmRemove = ""
	return m.removeProfile(child)
}

func (m *Model) removeProfile(child interfaces.Child) tea.Cmd {
	m.loading = true
	children := m.deps.Children
	policy := m.deps.Policy
	fetch := func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()
		return profileRemovedMsg{child: child, err: children.Delete(ctx, child.ID)}
	}
	return tea.Batch(fetch, m.spinner.Tick)
}

func (m *Model) handleRemoved(msg profileRemovedMsg) tea.Cmd {
	m.loading = false
	if msg.err != nil {
		child := msg.child
		return m.failure(msg.err, "children.delete", func() tea.Cmd {
			return m.removeProfile(child)
		})
	}
	m.cursor = min(m.cursor, max(len(m.deps.Children.Children())-1, 0))
	m.logger.Info("Removed child profile", "child_id", msg.child.ID)
	return components.Notice(m.i18n.Tf(i18n.ProfileRemoved, msg.child.Name))
}

func (m *Model) renderProfileForm() string {
	theme := m.deps.Theme
	f := m.form
	title := i18n.ProfileAddTitle
	if f.editing != nil {
		title = i18n.ProfileEditTitle
	}
	lines := []string{theme.GetTitleStyle().Render(m.i18n.T(title)), ""}

	for i, input := range f.inputs {
		label := m.i18n.T(profileLabels[i])
		if i == f.focus {
			label = theme.GetAccentStyle().Render(label)
		}
		lines = append(lines, label, input.View(), "")
	}

	switch {
	case f.submitting:
		lines = append(lines, m.spinner.View())
	case f.err != nil:
		lines = append(lines, components.RenderStatus(interfaces.HealthError, f.err.Message))
	}
	lines = append(lines, "", theme.GetMutedStyle().Render(m.i18n.T(i18n.ProfileHelp)))
	return strings.Join(lines, "\n")
}
