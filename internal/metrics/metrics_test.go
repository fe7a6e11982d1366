package metrics_test

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/metrics"
)

type fakeStreams struct{ n int }

func (f fakeStreams) StreamCount() int { return f.n }

type fakeBuffers struct{ allocs, reuses uint64 }

func (f fakeBuffers) BufferAllocations() uint64 { return f.allocs }
func (f fakeBuffers) BufferReuses() uint64      { return f.reuses }

type fakeMixers struct{ counts map[string]int }

func (f fakeMixers) MixerSourceCounts() map[string]int { return f.counts }

func TestCollectorExposesAllProvidedMetrics(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector(
		fakeStreams{n: 3},
		fakeBuffers{allocs: 10, reuses: 90},
		fakeMixers{counts: map[string]int{"music": 2, "effect": 1}},
		time.Now().Add(-5*time.Minute),
	)

	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	// 1 stream gauge + 2 buffer counters + 2 mixer gauges (one per bus) + 1 uptime gauge.
	assert.Equal(t, 6, count)
}

func TestCollectorToleratesNilProviders(t *testing.T) {
	t.Parallel()

	collector := metrics.NewCollector(nil, nil, nil, time.Now())
	reg := prometheus.NewRegistry()
	require.NoError(t, reg.Register(collector))

	count, err := testutil.GatherAndCount(reg)
	require.NoError(t, err)
	assert.Equal(t, 1, count, "only the uptime gauge should be emitted with no providers")
}
