package components

import (
	"fmt"

	tea "github.com/charmbracelet/bubbletea"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/logging"
)

// Factory builds a fresh child model for a boundary
type Factory func() tea.Model

// Fallback renders a trapped failure. reset rebuilds the child.
type Fallback func(processed *apperrors.ProcessedError, reset func() tea.Cmd) string

// BoundaryOption configures a Boundary
type BoundaryOption func(*Boundary)

// WithFallback replaces the default recovery screen
func WithFallback(f Fallback) BoundaryOption {
	return func(b *Boundary) { b.fallback = f }
}

// OnTrap registers a callback for every trapped failure
func OnTrap(fn func(*apperrors.ProcessedError)) BoundaryOption {
	return func(b *Boundary) { b.onTrap = fn }
}

// Boundary traps panics raised while its child updates or renders. A trapped
// failure is classified in the active language, logged, and replaced by a
// recovery view until Reset rebuilds the child from its factory.
type Boundary struct {
	name     string
	factory  Factory
	language func() i18n.Language
	fallback Fallback
	onTrap   func(*apperrors.ProcessedError)
	logger   *logging.Logger

	child   tea.Model
	trapped *apperrors.ProcessedError
	width   int
	height  int
}

// NewBoundary wraps the model built by factory
func NewBoundary(name string, factory Factory, language func() i18n.Language, opts ...BoundaryOption) *Boundary {
	b := &Boundary{
		name:     name,
		factory:  factory,
		language: language,
		logger:   logging.GetUILogger().WithField("boundary", name),
	}
	for _, opt := range opts {
		opt(b)
	}
	b.build("build")
	return b
}

// Child returns the wrapped model
func (b *Boundary) Child() tea.Model {
	return b.child
}

// Trapped returns the trapped failure, or nil
func (b *Boundary) Trapped() *apperrors.ProcessedError {
	return b.trapped
}

// Init initializes the child
func (b *Boundary) Init() (cmd tea.Cmd) {
	defer b.recover("init", &cmd)
	return b.child.Init()
}

// Update forwards msg to the child. While a failure is trapped only the
// reset key r and window size are handled.
func (b *Boundary) Update(msg tea.Msg) (model tea.Model, cmd tea.Cmd) {
	model = b
	if size, ok := msg.(tea.WindowSizeMsg); ok {
		b.width, b.height = size.Width, size.Height
	}

	if b.trapped != nil {
		if key, ok := msg.(tea.KeyMsg); ok && key.String() == "r" {
			return b, b.Reset()
		}
		return b, nil
	}

	defer b.recover("update", &cmd)
	child, childCmd := b.child.Update(msg)
	b.child = child
	return b, childCmd
}

// View renders the child, or the recovery view when a failure is trapped
func (b *Boundary) View() (view string) {
	if b.trapped == nil {
		view = b.renderChild()
	}
	if b.trapped != nil {
		if b.fallback != nil {
			return b.fallback(b.trapped, b.Reset)
		}
		return RenderRecoveryScreen(b.trapped, b.width, b.height)
	}
	return view
}

func (b *Boundary) renderChild() (view string) {
	var cmd tea.Cmd
	defer b.recover("view", &cmd)
	return b.child.View()
}

// Reset clears the trapped failure and starts a new child from the factory
func (b *Boundary) Reset() tea.Cmd {
	b.logger.Info("Boundary reset")
	b.trapped = nil
	b.Close()
	if !b.build("reset") {
		return nil
	}
	cmds := []tea.Cmd{b.Init()}
	if b.width > 0 {
		size := tea.WindowSizeMsg{Width: b.width, Height: b.height}
		cmds = append(cmds, func() tea.Msg { return size })
	}
	return tea.Batch(cmds...)
}

// build replaces the child with a fresh one from the factory. It reports
// false when the factory panicked, leaving that failure trapped.
func (b *Boundary) build(phase string) (ok bool) {
	var cmd tea.Cmd
	defer b.recover(phase, &cmd)
	b.child = b.factory()
	return true
}

// Close releases the child when it holds resources
func (b *Boundary) Close() {
	if closer, ok := b.child.(interface{ Close() }); ok {
		closer.Close()
	}
}

// Trap records err as the boundary's failure, as if the child had panicked
func (b *Boundary) Trap(err error) {
	processed := apperrors.Classify(err, b.activeLanguage())
	apperrors.LogError(err, "boundary:"+b.name)
	b.trapped = processed
	if b.onTrap != nil {
		b.onTrap(processed)
	}
}

func (b *Boundary) recover(phase string, cmd *tea.Cmd) {
	r := recover()
	if r == nil {
		return
	}
	b.logger.Error("Recovered panic", "phase", phase, "panic", fmt.Sprint(r))
	b.Trap(apperrors.NewPanicError(r))
	*cmd = nil
}

func (b *Boundary) activeLanguage() i18n.Language {
	if b.language == nil {
		return i18n.English
	}
	return b.language()
}
