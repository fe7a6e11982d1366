package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/config"
)

func TestDefaultSettingsFormat(t *testing.T) {
	t.Parallel()

	s := config.Default()
	want := audio.Format{SampleType: audio.SampleTypeFloat32, SampleRate: 44100, ChannelCount: 2}
	assert.True(t, s.Format().Equal(want))
	assert.True(t, s.Engine.EnableCaching)
	assert.True(t, s.Engine.EnableEffects)
}

func TestLoadWithoutConfigPathUsesDefaults(t *testing.T) {
	t.Parallel()

	s, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, uint(20), s.Device.BufferMs)
	assert.Equal(t, "info", s.Log.Level)
}

func TestLoadOverridesFromFile(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "graphplay.yaml")
	contents := "device:\n  sample_rate: 48000\n  channels: 1\n  null: true\nengine:\n  enable_effects: false\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0o644))

	s, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, uint(48000), s.Device.SampleRate)
	assert.Equal(t, uint(1), s.Device.Channels)
	assert.True(t, s.Device.Null)
	assert.False(t, s.Engine.EnableEffects)
	assert.True(t, s.Engine.EnableCaching, "unset keys must retain their default")
}

func TestLoadMissingConfigFileErrors(t *testing.T) {
	t.Parallel()

	_, err := config.Load("/nonexistent/graphplay.yaml")
	assert.Error(t, err)
}
