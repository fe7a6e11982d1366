// Package metrics exposes the audio engine's runtime state as a Prometheus
// collector, gathered at scrape time rather than pushed, the same shape
// used elsewhere in the pack for custom collectors.
package metrics

import (
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// StreamCountProvider exposes how many streams the player currently owns.
type StreamCountProvider interface {
	StreamCount() int
}

// BufferPoolStats reports allocation pressure on the shared buffer pool.
type BufferPoolStats interface {
	BufferAllocations() uint64
	BufferReuses() uint64
}

// MixerSourceStats reports how many named sources a MixerSource-backed bus
// currently carries, keyed by bus name ("music", "effect").
type MixerSourceStats interface {
	MixerSourceCounts() map[string]int
}

// Collector gathers graph engine metrics. Any provider may be nil.
type Collector struct {
	streams   StreamCountProvider
	buffers   BufferPoolStats
	mixers    MixerSourceStats
	startTime time.Time

	streamsDesc      *prometheus.Desc
	bufferAllocDesc  *prometheus.Desc
	bufferReuseDesc  *prometheus.Desc
	mixerSourcesDesc *prometheus.Desc
	uptimeDesc       *prometheus.Desc
}

// NewCollector builds a Collector reading from the given providers.
func NewCollector(streams StreamCountProvider, buffers BufferPoolStats, mixers MixerSourceStats, startTime time.Time) *Collector {
	return &Collector{
		streams:   streams,
		buffers:   buffers,
		mixers:    mixers,
		startTime: startTime,

		streamsDesc: prometheus.NewDesc(
			"graphcore_player_streams_active",
			"Number of streams currently playing through the player.",
			nil, nil,
		),
		bufferAllocDesc: prometheus.NewDesc(
			"graphcore_buffer_pool_allocations_total",
			"Total buffers allocated fresh by the pool (pool miss).",
			nil, nil,
		),
		bufferReuseDesc: prometheus.NewDesc(
			"graphcore_buffer_pool_reuses_total",
			"Total buffers served from the pool without a fresh allocation.",
			nil, nil,
		),
		mixerSourcesDesc: prometheus.NewDesc(
			"graphcore_mixer_source_count",
			"Number of named sources currently attached to a mixer bus.",
			[]string{"bus"}, nil,
		),
		uptimeDesc: prometheus.NewDesc(
			"graphcore_uptime_seconds",
			"Seconds since the engine process started.",
			nil, nil,
		),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.streamsDesc
	ch <- c.bufferAllocDesc
	ch <- c.bufferReuseDesc
	ch <- c.mixerSourcesDesc
	ch <- c.uptimeDesc
}

// Collect implements prometheus.Collector, querying every provider at
// scrape time.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.streams != nil {
		ch <- prometheus.MustNewConstMetric(c.streamsDesc, prometheus.GaugeValue, float64(c.streams.StreamCount()))
	}

	if c.buffers != nil {
		ch <- prometheus.MustNewConstMetric(c.bufferAllocDesc, prometheus.CounterValue, float64(c.buffers.BufferAllocations()))
		ch <- prometheus.MustNewConstMetric(c.bufferReuseDesc, prometheus.CounterValue, float64(c.buffers.BufferReuses()))
	}

	if c.mixers != nil {
		counts := c.mixers.MixerSourceCounts()
		if counts == nil {
			slog.Warn("metrics: mixer source provider returned nil counts")
		}
		for bus, n := range counts {
			ch <- prometheus.MustNewConstMetric(c.mixerSourcesDesc, prometheus.GaugeValue, float64(n), bus)
		}
	}

	ch <- prometheus.MustNewConstMetric(c.uptimeDesc, prometheus.GaugeValue, time.Since(c.startTime).Seconds())
}
