package engine_test

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/device"
	"github.com/kestrelaudio/graphcore/internal/engine"
)

func zeroSourceGraph(name string, format audio.Format) engine.GraphHandle {
	gc := audio.NewGraphClass(name, name)
	gc.AddElement(audio.ElementCreateArgs{
		ID:   name,
		Name: name,
		Type: "ZeroSource",
		Args: map[string]audio.ElementArg{
			"format":      format,
			"duration_ms": uint(0),
		},
	})
	gc.SetOutput(name, "out")
	return gc
}

// TestAudioEngineStartsAndRoutesMusic exercises the standard engine graph
// shape: Start must succeed against a device already at the engine's
// format, and PlayMusic must be able to add a track to the music bus
// without error.
func TestAudioEngineStartsAndRoutesMusic(t *testing.T) {
	t.Parallel()

	format := engine.DefaultFormat()
	eng := engine.New(engine.Config{Name: "test-engine", Format: format})

	dev := device.NewNullDevice(format)
	require.NoError(t, eng.Start(dev))
	defer eng.Stop()

	require.NoError(t, eng.PlayMusic(zeroSourceGraph("track-a", format), 0))
	require.Eventually(t, func() bool {
		return eng.MixerSourceCounts()["music"] == 1
	}, time.Second, 10*time.Millisecond)

	assert.Equal(t, 1, eng.StreamCount())
}

// TestAudioEnginePlaySoundEffectDisabled verifies that PlaySoundEffect is
// a no-op, not an error, when the engine was configured without effects.
func TestAudioEnginePlaySoundEffectDisabled(t *testing.T) {
	t.Parallel()

	format := engine.DefaultFormat()
	eng := engine.New(engine.Config{Name: "test-engine", Format: format, EnableEffects: false})

	dev := device.NewNullDevice(format)
	require.NoError(t, eng.Start(dev))
	defer eng.Stop()

	require.NoError(t, eng.PlaySoundEffect(zeroSourceGraph("boom", format), 0))
	assert.Equal(t, 0, eng.MixerSourceCounts()["effect"])
}

// TestAudioEngineRejectsMismatchedFormat verifies PlayMusic refuses a
// graph whose negotiated output format does not match the engine's.
func TestAudioEngineRejectsMismatchedFormat(t *testing.T) {
	t.Parallel()

	format := engine.DefaultFormat()
	eng := engine.New(engine.Config{Name: "test-engine", Format: format})

	dev := device.NewNullDevice(format)
	require.NoError(t, eng.Start(dev))
	defer eng.Stop()

	mono := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	err := eng.PlayMusic(zeroSourceGraph("bad-track", mono), 0)
	assert.Error(t, err)
}
