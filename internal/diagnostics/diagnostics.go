// Package diagnostics exposes the client-side stores for inspection while
// developing. The live inspector is compiled in only with the devtools build
// tag; release builds get an inert one whose accessors are empty and whose
// mutators do nothing.
package diagnostics

import (
	"time"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/health"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/store"
)

// maxErrorEntries bounds the raw error panel
const maxErrorEntries = 20

// Stores are the live stores an inspector reads
type Stores struct {
	Stories  *store.StoryStore
	Children *store.ChildStore
	Health   *health.Monitor
}

// ErrorEntry is one failure with its raw detail
type ErrorEntry struct {
	Category  string    `json:"category"`
	Title     string    `json:"title"`
	Detail    string    `json:"detail"`
	Timestamp time.Time `json:"timestamp"`
}

// Inspector reads and resets client-side state for debugging
type Inspector interface {
	// Enabled reports whether this build carries the live inspector
	Enabled() bool

	CurrentStory() *interfaces.Story
	Stories() []interfaces.Story
	State() store.StoryState

	// InspectContent returns the story store as highlighted JSON
	InspectContent() string

	// ClearCurrentStory and ClearStoryState reset story state only; child
	// selection and the reading session are left alone
	ClearCurrentStory()
	ClearStoryState()

	// RecordError keeps the raw detail of a failure for the error panel
	RecordError(processed *apperrors.ProcessedError)
	Errors() []ErrorEntry

	// Panel renders the F12 overlay
	Panel(width int) string
}
