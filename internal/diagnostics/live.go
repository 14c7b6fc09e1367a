//go:build devtools

package diagnostics

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/storynest/console/internal/content"
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/logging"
	"github.com/storynest/console/internal/store"
)

var (
	panelStyle = lipgloss.NewStyle().
			Border(lipgloss.DoubleBorder()).
			BorderForeground(lipgloss.Color("#f0a202")).
			Padding(0, 1)
	panelTitleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("#f0a202"))
	panelMutedStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#8a8f98"))
)

// New returns the live inspector over stores
func New(stores Stores) Inspector {
	return &live{
		stores:      stores,
		highlighter: content.NewSyntaxHighlighter("monokai", "terminal256"),
		logger:      logging.GetGlobalLogger().WithComponent("diagnostics"),
	}
}

type live struct {
	stores      Stores
	highlighter *content.SyntaxHighlighter
	logger      *logging.Logger

	mu     sync.Mutex
	errors []ErrorEntry
}

func (l *live) Enabled() bool { return true }

func (l *live) CurrentStory() *interfaces.Story {
	if l.stores.Stories == nil {
		return nil
	}
	return l.stores.Stories.Current()
}

func (l *live) Stories() []interfaces.Story {
	if l.stores.Stories == nil {
		return nil
	}
	return l.stores.Stories.Stories()
}

func (l *live) State() store.StoryState {
	if l.stores.Stories == nil {
		return store.StoryState{}
	}
	return l.stores.Stories.Snapshot()
}

func (l *live) InspectContent() string {
	out, err := l.highlighter.HighlightJSON(l.State())
	if err != nil {
		l.logger.Warn("Failed to render story state", "error", err)
		return err.Error()
	}
	return out
}

func (l *live) ClearCurrentStory() {
	if l.stores.Stories != nil {
		l.stores.Stories.ClearCurrent()
		l.logger.Info("Current story cleared from diagnostics")
	}
}

func (l *live) ClearStoryState() {
	if l.stores.Stories != nil {
		l.stores.Stories.ClearAll()
		l.logger.Info("Story state cleared from diagnostics")
	}
}

func (l *live) RecordError(processed *apperrors.ProcessedError) {
	if processed == nil {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.errors = append(l.errors, ErrorEntry{
		Category:  processed.Category.String(),
		Title:     processed.Title,
		Detail:    processed.Detail(),
		Timestamp: processed.Timestamp,
	})
	if len(l.errors) > maxErrorEntries {
		l.errors = l.errors[len(l.errors)-maxErrorEntries:]
	}
}

func (l *live) Errors() []ErrorEntry {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]ErrorEntry(nil), l.errors...)
}

func (l *live) Panel(width int) string {
	var b strings.Builder
	b.WriteString(panelTitleStyle.Render("Diagnostics"))
	b.WriteString(panelMutedStyle.Render("  c clear story · C clear all · esc close"))
	b.WriteString("\n\n")

	if l.stores.Children != nil {
		if child := l.stores.Children.Active(); child != nil {
			fmt.Fprintf(&b, "child: %s (%s) lang=%s\n", child.Name, child.ID, l.stores.Children.Language())
		} else {
			fmt.Fprintf(&b, "child: none lang=%s\n", l.stores.Children.Language())
		}
	}
	if l.stores.Health != nil {
		h := l.stores.Health.Last()
		trends := l.stores.Health.Trends(time.Hour)
		fmt.Fprintf(&b, "backend: %s %s (%.0f%% up, avg %s)\n", h.APIURL, h.Status, trends.UptimePercentage, trends.AverageResponseTime.Round(time.Millisecond))
	}
	b.WriteString("\n")
	b.WriteString(l.InspectContent())

	if errs := l.Errors(); len(errs) > 0 {
		b.WriteString("\n\n")
		b.WriteString(panelTitleStyle.Render("Errors"))
		for i := len(errs) - 1; i >= 0; i-- {
			e := errs[i]
			fmt.Fprintf(&b, "\n%s [%s] %s", e.Timestamp.Format("15:04:05"), e.Category, e.Detail)
		}
	}

	style := panelStyle
	if width > 4 {
		style = style.Width(width - 2)
	}
	return style.Render(b.String())
}
