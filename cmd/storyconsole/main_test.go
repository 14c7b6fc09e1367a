package main

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storynest/console/internal/config"
)

func TestProfileCommands(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(dir, "config"))
	t.Setenv("XDG_DATA_HOME", filepath.Join(dir, "data"))

	handled, err := runProfileCommand(CommandLineArgs{Profile: "work"})
	assert.False(t, handled, "plain runs start the console")
	assert.NoError(t, err)

	manager, err := config.NewManager()
	require.NoError(t, err)
	profile := config.DefaultProfile()
	profile.Name = "work"
	require.NoError(t, manager.SaveProfile(&profile))

	handled, err = runProfileCommand(CommandLineArgs{ListProfiles: true})
	assert.True(t, handled)
	assert.NoError(t, err)

	handled, err = runProfileCommand(CommandLineArgs{RotateKey: true})
	assert.True(t, handled)
	require.NoError(t, err)

	handled, err = runProfileCommand(CommandLineArgs{DeleteProfile: "work"})
	assert.True(t, handled)
	require.NoError(t, err)

	reopened, err := config.NewManager()
	require.NoError(t, err)
	names, err := reopened.ListProfiles()
	require.NoError(t, err)
	assert.Equal(t, []string{config.DefaultProfileName}, names)

	_, err = runProfileCommand(CommandLineArgs{DeleteProfile: config.DefaultProfileName})
	assert.Error(t, err)
}
