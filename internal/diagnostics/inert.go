//go:build !devtools

package diagnostics

import (
	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/store"
)

// New returns the inspector for this build, which does nothing
func New(Stores) Inspector {
	return inert{}
}

type inert struct{}

func (inert) Enabled() bool                         { return false }
func (inert) CurrentStory() *interfaces.Story       { return nil }
func (inert) Stories() []interfaces.Story           { return nil }
func (inert) State() store.StoryState               { return store.StoryState{} }
func (inert) InspectContent() string                { return "" }
func (inert) ClearCurrentStory()                    {}
func (inert) ClearStoryState()                      {}
func (inert) RecordError(*apperrors.ProcessedError) {}
func (inert) Errors() []ErrorEntry                  { return nil }
func (inert) Panel(int) string                      { return "" }
