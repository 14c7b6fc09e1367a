package components

import (
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/google/uuid"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
)

const (
	// DefaultToastDuration is how long a toast stays before it starts to leave
	DefaultToastDuration = 5000 * time.Millisecond

	// ExitWindow is how long a toast shows its exiting state before removal
	ExitWindow = 300 * time.Millisecond
)

// ToastState is the lifecycle stage of a toast
type ToastState int

const (
	ToastVisible ToastState = iota
	ToastExiting
	ToastDismissed
)

func (s ToastState) String() string {
	switch s {
	case ToastVisible:
		return "visible"
	case ToastExiting:
		return "exiting"
	default:
		return "dismissed"
	}
}

// Scheduler delivers msg after d. tea.Tick in production; tests record the
// delays instead of waiting.
type Scheduler func(d time.Duration, msg tea.Msg) tea.Cmd

// TickScheduler schedules with tea.Tick
func TickScheduler(d time.Duration, msg tea.Msg) tea.Cmd {
	return tea.Tick(d, func(time.Time) tea.Msg { return msg })
}

type toastExpiredMsg struct{ id string }
type toastRemovedMsg struct{ id string }

// ToastOptions configures a toast
type ToastOptions struct {
	// AutoHide starts the dismissal timer when the toast appears
	AutoHide bool
	Duration time.Duration

	// Retry re-invokes the failed operation. It is offered only when the
	// error is retryable.
	Retry tea.Cmd

	// OnDismiss fires once when the toast is removed
	OnDismiss func()
}

// DefaultToastOptions auto-hides after DefaultToastDuration
func DefaultToastOptions() ToastOptions {
	return ToastOptions{AutoHide: true, Duration: DefaultToastDuration}
}

// Toast shows one processed error
type Toast struct {
	ID    string
	Error *apperrors.ProcessedError

	opts      ToastOptions
	state     ToastState
	dismissed bool
	schedule  Scheduler
}

// NewToast creates a visible toast
func NewToast(processed *apperrors.ProcessedError, opts ToastOptions, schedule Scheduler) *Toast {
	if opts.Duration <= 0 {
		opts.Duration = DefaultToastDuration
	}
	if schedule == nil {
		schedule = TickScheduler
	}
	return &Toast{
		ID:       uuid.NewString(),
		Error:    processed,
		opts:     opts,
		schedule: schedule,
	}
}

// Init starts the auto-hide timer
func (t *Toast) Init() tea.Cmd {
	if !t.opts.AutoHide {
		return nil
	}
	return t.schedule(t.opts.Duration, toastExpiredMsg{id: t.ID})
}

// State returns the lifecycle stage
func (t *Toast) State() ToastState {
	return t.state
}

// CanRetry reports whether the retry action is offered
func (t *Toast) CanRetry() bool {
	return t.Error != nil && t.Error.ShouldRetry() && t.opts.Retry != nil
}

// Dismiss starts the exit animation. Dismissing an exiting or dismissed
// toast does nothing.
func (t *Toast) Dismiss() tea.Cmd {
	if t.state != ToastVisible {
		return nil
	}
	t.state = ToastExiting
	return t.schedule(ExitWindow, toastRemovedMsg{id: t.ID})
}

// Retry dismisses the toast and re-invokes the failed operation
func (t *Toast) Retry() tea.Cmd {
	if !t.CanRetry() {
		return nil
	}
	return tea.Batch(t.Dismiss(), t.opts.Retry)
}

// Update handles the toast's own timer messages
func (t *Toast) Update(msg tea.Msg) tea.Cmd {
	switch msg := msg.(type) {
	case toastExpiredMsg:
		if msg.id == t.ID {
			return t.Dismiss()
		}
	case toastRemovedMsg:
		if msg.id == t.ID {
			t.finish()
		}
	}
	return nil
}

// finish marks the toast dismissed and fires OnDismiss exactly once
func (t *Toast) finish() {
	t.state = ToastDismissed
	if t.dismissed {
		return
	}
	t.dismissed = true
	if t.opts.OnDismiss != nil {
		t.opts.OnDismiss()
	}
}

var (
	toastStyle      = lipgloss.NewStyle().Border(lipgloss.RoundedBorder()).Padding(0, 1)
	toastTitleStyle = lipgloss.NewStyle().Bold(true)
	toastHintStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8f98"))
)

// View renders the toast; an exiting toast is drawn faint
func (t *Toast) View(width int) string {
	if t.Error == nil || t.state == ToastDismissed {
		return ""
	}
	lang := t.Error.Language
	color := CategoryColor(t.Error.Category)

	var b strings.Builder
	b.WriteString(toastTitleStyle.Foreground(color).Render(CategoryIcon(t.Error.Category) + " " + t.Error.Title))
	b.WriteString("\n")
	b.WriteString(t.Error.Message)
	if t.Error.Action != "" {
		b.WriteString(" ")
		b.WriteString(t.Error.Action)
	}
	b.WriteString("\n")
	hints := []string{"ctrl+x " + i18n.T(lang, i18n.ToastDismiss)}
	if t.CanRetry() {
		hints = append(hints, "ctrl+r "+i18n.T(lang, i18n.ToastRetry))
	}
	b.WriteString(toastHintStyle.Render(strings.Join(hints, " · ")))

	style := toastStyle.BorderForeground(color)
	if lang.Direction() == i18n.RightToLeft {
		style = style.Align(lipgloss.Right)
	}
	if width > 4 {
		style = style.Width(min(width-2, 60))
	}
	if t.state == ToastExiting {
		style = style.Faint(true)
	}
	return style.Render(b.String())
}

// ManagerOption configures a ToastManager
type ManagerOption func(*ToastManager)

// WithScheduler replaces tea.Tick for toast timers
func WithScheduler(s Scheduler) ManagerOption {
	return func(m *ToastManager) { m.schedule = s }
}

// WithDefaults sets the options applied by Show
func WithDefaults(opts ToastOptions) ManagerOption {
	return func(m *ToastManager) { m.defaults = opts }
}

// ToastManager holds the active toasts in arrival order
type ToastManager struct {
	toasts   []*Toast
	defaults ToastOptions
	schedule Scheduler
}

// NewToastManager creates an empty manager
func NewToastManager(opts ...ManagerOption) *ToastManager {
	m := &ToastManager{defaults: DefaultToastOptions(), schedule: TickScheduler}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// Show adds a toast with the default options and an optional retry
func (m *ToastManager) Show(processed *apperrors.ProcessedError, retry tea.Cmd) (string, tea.Cmd) {
	opts := m.defaults
	opts.Retry = retry
	return m.Add(processed, opts)
}

// Add appends a toast and returns its id and timer command
func (m *ToastManager) Add(processed *apperrors.ProcessedError, opts ToastOptions) (string, tea.Cmd) {
	toast := NewToast(processed, opts, m.schedule)
	m.toasts = append(m.toasts, toast)
	return toast.ID, toast.Init()
}

// Remove starts the exit of the toast with id
func (m *ToastManager) Remove(id string) tea.Cmd {
	if t := m.Get(id); t != nil {
		return t.Dismiss()
	}
	return nil
}

// Clear removes every toast at once, firing their callbacks
func (m *ToastManager) Clear() {
	for _, t := range m.toasts {
		t.finish()
	}
	m.toasts = nil
}

// Get returns the toast with id, or nil
func (m *ToastManager) Get(id string) *Toast {
	for _, t := range m.toasts {
		if t.ID == id {
			return t
		}
	}
	return nil
}

// Toasts returns the active toasts, oldest first
func (m *ToastManager) Toasts() []*Toast {
	return append([]*Toast(nil), m.toasts...)
}

// Len counts the active toasts
func (m *ToastManager) Len() int {
	return len(m.toasts)
}

// Latest returns the newest toast that is still visible, or nil
func (m *ToastManager) Latest() *Toast {
	for i := len(m.toasts) - 1; i >= 0; i-- {
		if m.toasts[i].state == ToastVisible {
			return m.toasts[i]
		}
	}
	return nil
}

// DismissLatest dismisses the newest visible toast
func (m *ToastManager) DismissLatest() tea.Cmd {
	if t := m.Latest(); t != nil {
		return t.Dismiss()
	}
	return nil
}

// RetryLatest retries the newest visible retryable toast
func (m *ToastManager) RetryLatest() tea.Cmd {
	if t := m.Latest(); t != nil {
		return t.Retry()
	}
	return nil
}

// Update routes timer messages to their toast and drops dismissed toasts
func (m *ToastManager) Update(msg tea.Msg) tea.Cmd {
	var id string
	switch msg := msg.(type) {
	case toastExpiredMsg:
		id = msg.id
	case toastRemovedMsg:
		id = msg.id
	default:
		return nil
	}

	t := m.Get(id)
	if t == nil {
		return nil
	}
	cmd := t.Update(msg)
	if t.State() == ToastDismissed {
		m.drop(id)
	}
	return cmd
}

func (m *ToastManager) drop(id string) {
	for i, t := range m.toasts {
		if t.ID == id {
			m.toasts = append(m.toasts[:i], m.toasts[i+1:]...)
			return
		}
	}
}

// View stacks the toasts, newest at the bottom
func (m *ToastManager) View(width int) string {
	if len(m.toasts) == 0 {
		return ""
	}
	views := make([]string, 0, len(m.toasts))
	for _, t := range m.toasts {
		if v := t.View(width); v != "" {
			views = append(views, v)
		}
	}
	return lipgloss.JoinVertical(lipgloss.Left, views...)
}
