//go:build devtools

package diagnostics

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/storynest/console/internal/errors"
	"github.com/storynest/console/internal/i18n"
	"github.com/storynest/console/internal/interfaces"
	"github.com/storynest/console/internal/store"
)

func TestLiveInspectorReadsStores(t *testing.T) {
	stories := store.NewStoryStore(nil)
	stories.SetCurrent(&interfaces.Story{ID: "s1", Title: "The Dragon"})

	inspector := New(Stores{Stories: stories})
	require.True(t, inspector.Enabled())
	require.NotNil(t, inspector.CurrentStory())
	assert.Equal(t, "The Dragon", inspector.CurrentStory().Title)
	assert.Contains(t, inspector.InspectContent(), "The Dragon")
	assert.Contains(t, inspector.Panel(100), "Diagnostics")
}

func TestLiveInspectorClearsStoryStateOnly(t *testing.T) {
	stories := store.NewStoryStore(nil)
	stories.SetCurrent(&interfaces.Story{ID: "s1"})

	inspector := New(Stores{Stories: stories})
	inspector.ClearCurrentStory()
	assert.Nil(t, inspector.CurrentStory())

	stories.SetCurrent(&interfaces.Story{ID: "s2"})
	inspector.ClearStoryState()
	assert.Nil(t, inspector.CurrentStory())
	assert.Empty(t, inspector.Stories())
}

func TestLiveInspectorKeepsRawErrors(t *testing.T) {
	inspector := New(Stores{})
	for i := 0; i < maxErrorEntries+5; i++ {
		inspector.RecordError(apperrors.Classify(apperrors.NewHTTPError(500, "boom"), i18n.English))
	}
	errs := inspector.Errors()
	require.Len(t, errs, maxErrorEntries)
	assert.Equal(t, "server_error", errs[0].Category)
	assert.Contains(t, errs[0].Detail, "boom")
	inspector.RecordError(nil)
	assert.Len(t, inspector.Errors(), maxErrorEntries)
}
