package login

import (
	"context"
	"strings"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
)

// Update implements tea.Model
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)

	case resultMsg:
		return m, m.handleResult(msg)
	}

	var cmd tea.Cmd
	*m.focused(), cmd = m.focused().Update(msg)
	return m, cmd
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if m.submitting {
		return nil
	}

	switch msg.String() {
	case "tab", "down":
		m.focusField(m.focus + 1)
		return nil
	case "shift+tab", "up":
		m.focusField(m.focus - 1)
		return nil
	case "enter":
		if m.focus < len(m.fields())-1 {
			m.focusField(m.focus + 1)
			return nil
		}
		return m.submit()
	case "ctrl+r":
		if m.mode == ModeRegister {
			m.setMode(ModeLogin)
		} else {
			m.setMode(ModeRegister)
		}
		return nil
	case "ctrl+f":
		m.setMode(ModeForgot)
		return nil
	case "esc":
		if m.mode != ModeLogin {
			m.setMode(ModeLogin)
		}
		return nil
	}

	m.err = nil
	var cmd tea.Cmd
	*m.focused(), cmd = m.focused().Update(msg)
	return cmd
}

// submit validates the visible fields and sends the form
func (m *Model) submit() tea.Cmd {
	values := make(map[fieldID]string, len(m.fields()))
	for i, id := range m.fields() {
		v := m.inputs[id].Value()
		if id != fieldPassword {
			v = strings.TrimSpace(v)
		}
		if v == "" {
			m.focusField(i)
			m.err = &apperrors.ProcessedError{
				Category: apperrors.CategoryValidation,
				Title:    i18n.T(m.i18n.Language(), apperrors.CategoryValidation.TitleKey()),
				Message:  m.i18n.T(i18n.FormRequired),
				Language: m.i18n.Language(),
			}
			return nil
		}
		values[id] = v
	}

	m.submitting = true
	m.err = nil
	m.notice = ""

	auth := m.deps.Auth
	policy := m.deps.Policy
	lang := m.i18n.Language()
	mode := m.mode
	label := "auth." + mode.String()

	return func() tea.Msg {
		ctx, cancel := policy.Context(context.Background())
		defer cancel()

		result := resultMsg{mode: mode}
		switch mode {
		case ModeLogin:
			result.user, result.err = apperrors.Retry(ctx, func(ctx context.Context) (*interfaces.User, error) {
				return auth.Login(ctx, values[fieldEmail], values[fieldPassword])
			}, label, policy.MaxRetries, policy.Options(lang)...)
		case ModeRegister:
			req := interfaces.RegisterRequest{Name: values[fieldName], Email: values[fieldEmail], Password: values[fieldPassword]}
			result.user, result.err = apperrors.Retry(ctx, func(ctx context.Context) (*interfaces.User, error) {
				return auth.Register(ctx, req)
			}, label, policy.MaxRetries, policy.Options(lang)...)
		case ModeForgot:
			result.message, result.err = apperrors.Retry(ctx, func(ctx context.Context) (string, error) {
				return auth.ForgotPassword(ctx, values[fieldEmail])
			}, label, policy.MaxRetries, policy.Options(lang)...)
		case ModeReset:
			result.message, result.err = apperrors.Retry(ctx, func(ctx context.Context) (string, error) {
				return auth.ResetPassword(ctx, values[fieldCode], values[fieldPassword])
			}, label, policy.MaxRetries, policy.Options(lang)...)
		}
		return result
	}
}

// handleResult applies a finished submission. Failures stay on the form
// instead of going to the shell: an authentication error here means wrong
// credentials, not an expired session.
func (m *Model) handleResult(msg resultMsg) tea.Cmd {
	m.submitting = false
	if msg.mode != m.mode {
		return nil
	}
	if msg.err != nil {
		apperrors.LogError(msg.err, "login."+msg.mode.String())
		m.err = apperrors.Classify(msg.err, m.i18n.Language())
		m.inputs[fieldPassword].Reset()
		return nil
	}

	switch msg.mode {
	case ModeLogin, ModeRegister:
		m.inputs[fieldPassword].Reset()
		m.logger.Info("Signed in", "mode", msg.mode.String())
		user := msg.user
		return func() tea.Msg { return LoggedInMsg{User: user} }
	case ModeForgot:
		m.setMode(ModeReset)
		m.notice = m.i18n.T(i18n.ForgotSent)
	case ModeReset:
		m.setMode(ModeLogin)
		m.notice = m.i18n.T(i18n.ResetDone)
	}
	return nil
}
