package device_test

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/device"
)

// TestNullDeviceDrainsPullPeriodically exercises the discard loop: Start
// must call pull repeatedly on its own schedule until Stop, without ever
// surfacing the pulled bytes anywhere.
func TestNullDeviceDrainsPullPeriodically(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	d := device.NewNullDevice(format)
	d.SetBufferSizeMillis(5)

	var calls atomic.Int32
	require.NoError(t, d.Start(func(dst []byte) int {
		calls.Add(1)
		return len(dst)
	}))

	require.Eventually(t, func() bool { return calls.Load() >= 3 }, time.Second, 5*time.Millisecond)
	require.NoError(t, d.Stop())

	seenAtStop := calls.Load()
	time.Sleep(20 * time.Millisecond)
	assert.Equal(t, seenAtStop, calls.Load(), "pull must not be called again after Stop returns")
}
