package audio_test

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/kestrelaudio/graphcore/internal/audio"
)

// fixedSource hands out a fixed total of bytes, a few at a time, then
// reports no more.
type fixedSource struct {
	mu        sync.Mutex
	remaining int
	format    audio.Format
}

func (s *fixedSource) Format() audio.Format { return s.format }

func (s *fixedSource) FillBuffer(dst []byte) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(dst)
	if n > s.remaining {
		n = s.remaining
	}
	if n > 64 {
		n = 64
	}
	s.remaining -= n
	return n
}

func (s *fixedSource) HasMore(int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.remaining > 0
}

func (s *fixedSource) Prepare(loader audio.Loader, params audio.PrepareParams) bool { return true }
func (s *fixedSource) Shutdown()                                                    {}
func (s *fixedSource) DispatchCommand(dest string, cmd audio.Command) bool          { return false }

// TestThreadProxySourceDeliversAllBytes exercises the decoupling contract:
// everything the wrapped source would have produced directly must still
// arrive through the proxy's channels, in order, with no loss or
// duplication.
func TestThreadProxySourceDeliversAllBytes(t *testing.T) {
	t.Parallel()

	inner := &fixedSource{remaining: 1000, format: audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}}
	proxy := audio.NewThreadProxySource(inner, 256, 4)
	require.True(t, proxy.Prepare(nil, audio.PrepareParams{}))

	total := 0
	dst := make([]byte, 100)
	for {
		n := proxy.FillBuffer(dst)
		total += n
		if n < len(dst) && !proxy.HasMore(0) {
			break
		}
	}
	assert.Equal(t, 1000, total)
	proxy.Shutdown()
}

// TestThreadProxySourceShutdownStopsWorker verifies that Shutdown leaves no
// goroutine running, even when the wrapped source would otherwise produce
// forever.
func TestThreadProxySourceShutdownStopsWorker(t *testing.T) {
	defer goleak.VerifyNone(t,
		goleak.IgnoreTopFunction("testing.(*T).Run"),
		goleak.IgnoreTopFunction("runtime.gopark"),
	)

	inner := &fixedSource{remaining: 1 << 30, format: audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}}
	proxy := audio.NewThreadProxySource(inner, 256, 4)
	require.True(t, proxy.Prepare(nil, audio.PrepareParams{}))

	dst := make([]byte, 64)
	_ = proxy.FillBuffer(dst)
	proxy.Shutdown()
}
