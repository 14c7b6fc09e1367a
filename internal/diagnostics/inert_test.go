//go:build !devtools

package diagnostics

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/store"
)

func TestDefaultBuildIsInert(t *testing.T) {
	stories := store.NewStoryStore(nil)
	stories.SetCurrent(&interfaces.Story{ID: "s1", Title: "The Dragon"})

	inspector := New(Stores{Stories: stories})
	assert.False(t, inspector.Enabled())
	assert.Nil(t, inspector.CurrentStory())
	assert.Empty(t, inspector.Stories())
	assert.Empty(t, inspector.InspectContent())
	assert.Empty(t, inspector.Panel(80))

	inspector.RecordError(apperrors.Classify(context.DeadlineExceeded, i18n.English))
	assert.Empty(t, inspector.Errors())

	inspector.ClearStoryState()
	inspector.ClearCurrentStory()
	require.NotNil(t, stories.Current(), "mutators are no-ops")
	assert.Equal(t, "The Dragon", stories.Current().Title)
}
