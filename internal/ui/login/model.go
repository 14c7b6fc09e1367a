// Package login implements the signed-out screens: sign in, account
// registration and the two-step password reset.
package login

import (
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/storynest/console/internal/content"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/store"
	"github.com/storynest/console/internal/ui/components"
)

// Mode is the form currently shown
type Mode int

const (
	ModeLogin Mode = iota
	ModeRegister
	ModeForgot
	ModeReset
)

// String names the mode for logs
func (m Mode) String() string {
	switch m {
	case ModeRegister:
		return "register"
	case ModeForgot:
		return "forgot"
	case ModeReset:
		return "reset"
	default:
		return "login"
	}
}

type fieldID int

const (
	fieldName fieldID = iota
	fieldEmail
	fieldPassword
	fieldCode
)

var (
	fieldLabels = map[fieldID]i18n.Key{
		fieldName:     i18n.LoginName,
		fieldEmail:    i18n.LoginEmail,
		fieldPassword: i18n.LoginPassword,
		fieldCode:     i18n.ResetCode,
	}

	modeFields = map[Mode][]fieldID{
		ModeLogin:    {fieldEmail, fieldPassword},
		ModeRegister: {fieldName, fieldEmail, fieldPassword},
		ModeForgot:   {fieldEmail},
		ModeReset:    {fieldCode, fieldPassword},
	}

	modeTitles = map[Mode]i18n.Key{
		ModeLogin:    i18n.LoginTitle,
		ModeRegister: i18n.RegisterTitle,
		ModeForgot:   i18n.ForgotTitle,
		ModeReset:    i18n.ResetTitle,
	}
)

// LoggedInMsg is sent once the backend accepted the credentials
type LoggedInMsg struct {
	User *interfaces.User
}

// resultMsg carries the outcome of one form submission
type resultMsg struct {
	mode    Mode
	user    *interfaces.User
	message string
	err     error
}

// Dependencies are the services the form submits to
type Dependencies struct {
	Auth   *store.AuthStore
	Theme  *content.ThemeManager
	Policy components.RetryPolicy
	// Email prefills the address, usually from the active profile
	Email string
}

// Model is the signed-out screen
type Model struct {
	deps   Dependencies
	i18n   i18n.Resolver
	logger *logging.Logger

	mode   Mode
	inputs map[fieldID]*textinput.Model
	focus  int

	submitting bool
	err        *apperrors.ProcessedError
	notice     string

	width  int
	height int
}

// New creates the login screen in sign-in mode
func New(deps Dependencies, resolver i18n.Resolver) *Model {
	if deps.Theme == nil {
		deps.Theme = content.NewThemeManager()
	}

	m := &Model{
		deps:   deps,
		i18n:   resolver,
		logger: logging.GetUILogger().WithField("screen", "login"),
		inputs: make(map[fieldID]*textinput.Model, len(fieldLabels)),
	}
	for id := range fieldLabels {
		ti := textinput.New()
		ti.CharLimit = 120
		ti.Width = 40
		if id == fieldPassword {
			ti.EchoMode = textinput.EchoPassword
			ti.EchoCharacter = '•'
		}
		m.inputs[id] = &ti
	}
	m.inputs[fieldEmail].SetValue(deps.Email)
	m.setMode(ModeLogin)
	if deps.Email != "" {
		m.focusField(1)
	}
	return m
}

// Init implements tea.Model
func (m *Model) Init() tea.Cmd {
	return textinput.Blink
}

// Mode returns the form being shown
func (m *Model) Mode() Mode {
	return m.mode
}

// Err returns the last submission failure shown under the form
func (m *Model) Err() *apperrors.ProcessedError {
	return m.err
}

// Notice returns the confirmation line shown under the form
func (m *Model) Notice() string {
	return m.notice
}

// SetNotice shows text under the form, e.g. after signing out
func (m *Model) SetNotice(text string) {
	m.notice = text
}

// Value returns the current text of the field labelled key
func (m *Model) Value(key i18n.Key) string {
	for id, label := range fieldLabels {
		if label == key {
			return m.inputs[id].Value()
		}
	}
	return ""
}

func (m *Model) fields() []fieldID {
	return modeFields[m.mode]
}

// setMode switches forms. Shared fields such as the email keep their value.
func (m *Model) setMode(mode Mode) {
	if m.mode != mode {
		m.logger.LogUIStateChange(m.mode.String(), mode.String(), "form switch")
	}
	m.mode = mode
	m.err = nil
	m.inputs[fieldPassword].Reset()
	if mode != ModeReset {
		m.inputs[fieldCode].Reset()
	}
	m.focusField(0)
}

func (m *Model) focusField(index int) {
	for _, input := range m.inputs {
		input.Blur()
	}
	fields := m.fields()
	m.focus = (index + len(fields)) % len(fields)
	m.inputs[fields[m.focus]].Focus()
}

func (m *Model) focused() *textinput.Model {
	return m.inputs[m.fields()[m.focus]]
}
