package components

import (
	"context"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
)

// ErrorMsg carries a classified failure to the app shell, which routes it to
// login or shows it as a toast
type ErrorMsg struct {
	Error *apperrors.ProcessedError
	Retry tea.Cmd
}

// NoticeMsg is an informational line for the status bar
type NoticeMsg struct {
	Text string
}

// Notice returns a command that posts text to the status bar
func Notice(text string) tea.Cmd {
	return func() tea.Msg { return NoticeMsg{Text: text} }
}

// Failure classifies err in lang, reports it under where and wraps it for
// the app shell
func Failure(err error, lang i18n.Language, where string, retry tea.Cmd) ErrorMsg {
	apperrors.LogError(err, where)
	return ErrorMsg{Error: apperrors.Classify(err, lang), Retry: retry}
}

// RetryPolicy bounds one backend call made on behalf of a screen
type RetryPolicy struct {
	Timeout    time.Duration
	MaxRetries int
	BaseDelay  time.Duration
}

// DefaultRetryPolicy mirrors the environment defaults
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		Timeout:    60 * time.Second,
		MaxRetries: 2,
		BaseDelay:  apperrors.DefaultRetryBaseDelay,
	}
}

// Context derives the per-call deadline from parent
func (p RetryPolicy) Context(parent context.Context) (context.Context, context.CancelFunc) {
	if parent == nil {
		parent = context.Background()
	}
	if p.Timeout <= 0 {
		return context.WithCancel(parent)
	}
	return context.WithTimeout(parent, p.Timeout)
}

// Options returns the retry options for a call whose failures are shown in
// lang
func (p RetryPolicy) Options(lang i18n.Language) []apperrors.RetryOption {
	return []apperrors.RetryOption{
		apperrors.WithBaseDelay(p.BaseDelay),
		apperrors.WithLanguage(lang),
	}
}
