package audio

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestPCMCachePutGetRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewPCMCache(time.Minute, time.Minute)
	format := Format{SampleType: SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	data := []byte{1, 2, 3, 4}

	c.Put("track.wav", SampleTypeInt16, format, data)

	gotFormat, gotData, ok := c.Get("track.wav", SampleTypeInt16)
	assert.True(t, ok)
	assert.True(t, gotFormat.Equal(format))
	assert.Equal(t, data, gotData)

	_, _, ok = c.Get("track.wav", SampleTypeFloat32)
	assert.False(t, ok, "a different sample type at the same path is a distinct cache key")
}

func TestPCMCacheClearEvictsEverything(t *testing.T) {
	t.Parallel()

	c := NewPCMCache(time.Minute, time.Minute)
	c.Put("a.wav", SampleTypeInt16, Format{SampleTypeInt16, 16000, 1}, []byte{1})
	c.Put("b.wav", SampleTypeInt16, Format{SampleTypeInt16, 16000, 1}, []byte{2})

	c.Clear()

	_, _, ok := c.Get("a.wav", SampleTypeInt16)
	assert.False(t, ok)
	_, _, ok = c.Get("b.wav", SampleTypeInt16)
	assert.False(t, ok)
}

func TestFileInfoCachePutGetRoundTrip(t *testing.T) {
	t.Parallel()

	c := NewFileInfoCache(time.Minute, time.Minute)
	info := FileInfo{Channels: 2, SampleRate: 44100, Seconds: float32(3.5)}

	_, ok := c.Get("song.wav")
	assert.False(t, ok, "an unprobed path must miss")

	c.Put("song.wav", info)
	got, ok := c.Get("song.wav")
	assert.True(t, ok)
	assert.Equal(t, info, got)
}
