package elements_test

import (
	"encoding/binary"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/audio/elements"
)

func int16Buffer(t *testing.T, alloc audio.Allocator, format audio.Format, samples []int16) audio.Buffer {
	t.Helper()
	buf := alloc.Allocate(len(samples) * 2)
	require.NoError(t, buf.SetByteSize(len(samples)*2))
	buf.SetFormat(format)
	data := buf.Bytes()
	for i, s := range samples {
		binary.LittleEndian.PutUint16(data[i*2:], uint16(s))
	}
	return buf
}

func readInt16(buf audio.Buffer) []int16 {
	data := buf.Bytes()
	out := make([]int16, len(data)/2)
	for i := range out {
		out[i] = int16(binary.LittleEndian.Uint16(data[i*2:]))
	}
	return out
}

func TestGainScalesSamples(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	g := elements.NewGain("g", "g", 0.5)
	require.True(t, g.Prepare(nil, audio.PrepareParams{}))

	buf := int16Buffer(t, alloc, format, []int16{1000, -2000, 4000})
	require.True(t, g.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	g.Process(alloc, events, 1)

	out, ok := g.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, []int16{500, -1000, 2000}, readInt16(out))
	out.Release()
}

func TestGainSetGainCmd(t *testing.T) {
	t.Parallel()

	g := elements.NewGain("g", "g", 1.0)
	g.ReceiveCommand(audio.Command{Payload: elements.GainSetGainCmd{Gain: 2.0}})

	format := testFormat()
	alloc := newAllocator()
	buf := int16Buffer(t, alloc, format, []int16{100})
	require.True(t, g.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	g.Process(alloc, events, 1)
	out, ok := g.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, []int16{200}, readInt16(out))
	out.Release()
}

func TestEffectFadeInRampsFromSilence(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	e := elements.NewEffect("fade", "fade", 0, 1000, audio.EffectKindFadeIn)
	require.True(t, e.Prepare(nil, audio.PrepareParams{}))

	buf := int16Buffer(t, alloc, format, []int16{10000})
	require.True(t, e.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	e.Process(alloc, events, 0)

	out, ok := e.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, int16(0), readInt16(out)[0], "a fade-in must start at zero gain")
	out.Release()
}

// TestEffectFadeInPassesThroughBeforeStart exercises a fade-in scheduled
// to start later in the stream: samples arriving before the start time
// must pass through at full gain rather than being silenced.
func TestEffectFadeInPassesThroughBeforeStart(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	e := elements.NewEffect("fade", "fade", 1000, 1000, audio.EffectKindFadeIn)
	require.True(t, e.Prepare(nil, audio.PrepareParams{}))

	buf := int16Buffer(t, alloc, format, []int16{10000})
	require.True(t, e.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	e.Process(alloc, events, 0)

	out, ok := e.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, int16(10000), readInt16(out)[0], "samples before the fade's start time must be unaffected")
	out.Release()
}

func TestStereoMakerDuplicatesMono(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	sm := elements.NewStereoMaker("stereo", "stereo", audio.ChannelBoth)
	require.True(t, sm.Prepare(nil, audio.PrepareParams{}))

	buf := int16Buffer(t, alloc, format, []int16{1234})
	require.True(t, sm.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	sm.Process(alloc, events, 1)

	out, ok := sm.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, uint(2), out.Format().ChannelCount)
	assert.Equal(t, []int16{1234, 1234}, readInt16(out))
	out.Release()
}

func TestStereoMakerPassesThroughAlreadyStereo(t *testing.T) {
	t.Parallel()

	stereoFormat := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 44100, ChannelCount: 2}
	alloc := newAllocator()
	sm := elements.NewStereoMaker("stereo", "stereo", audio.ChannelBoth)

	buf := int16Buffer(t, alloc, stereoFormat, []int16{1, 2})
	require.True(t, sm.InputPort(0).PushBuffer(buf))

	events := &audio.EventQueue{}
	sm.Process(alloc, events, 1)

	out, ok := sm.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, []int16{1, 2}, readInt16(out))
	out.Release()
}

func TestQueueDrainsUpstreamEvenWhenOutputFull(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	q := elements.NewQueue("q", "q")
	require.True(t, q.InputPort(0).PushBuffer(int16Buffer(t, alloc, format, []int16{1})))

	events := &audio.EventQueue{}
	q.Process(alloc, events, 1)
	assert.True(t, q.IsEmpty(), "the one buffer should have flowed straight through to the output port")

	out, ok := q.OutputPort(0).PullBuffer()
	require.True(t, ok)
	out.Release()

	// Fill the output port so the next push must queue internally.
	require.True(t, q.OutputPort(0).PushBuffer(int16Buffer(t, alloc, format, []int16{2})))
	require.True(t, q.InputPort(0).PushBuffer(int16Buffer(t, alloc, format, []int16{3})))
	q.Process(alloc, events, 1)
	assert.Equal(t, 1, q.QueueSize(), "a full output port must not stop the queue draining its input")
}

func TestNullDiscardsInput(t *testing.T) {
	t.Parallel()

	format := testFormat()
	alloc := newAllocator()
	n := elements.NewNull("sink", "sink")
	require.True(t, n.InputPort(0).PushBuffer(int16Buffer(t, alloc, format, []int16{1})))

	events := &audio.EventQueue{}
	assert.NotPanics(t, func() { n.Process(alloc, events, 1) })
	assert.False(t, n.InputPort(0).HasBuffers())
}

// TestMixerPrepareAcceptsMatchingInputFormats verifies that a Mixer with
// every input already negotiated to the same format prepares successfully
// and negotiates its output to that format.
func TestMixerPrepareAcceptsMatchingInputFormats(t *testing.T) {
	t.Parallel()

	format := testFormat()
	m := elements.NewMixer("mix", "mix", 2)
	m.InputPort(0).SetFormat(format)
	m.InputPort(1).SetFormat(format)

	require.True(t, m.Prepare(nil, audio.PrepareParams{}))
	assert.True(t, m.OutputPort(0).Format().Equal(format))
}

// TestMixerPrepareRejectsMismatchedInputFormats verifies that a Mixer
// whose inputs were negotiated to different formats fails Prepare instead
// of silently picking whichever input it happened to see first.
func TestMixerPrepareRejectsMismatchedInputFormats(t *testing.T) {
	t.Parallel()

	format := testFormat()
	other := audio.Format{SampleType: audio.SampleTypeFloat32, SampleRate: 44100, ChannelCount: 2}

	m := elements.NewMixer("mix", "mix", 2)
	m.InputPort(0).SetFormat(format)
	m.InputPort(1).SetFormat(other)

	assert.False(t, m.Prepare(nil, audio.PrepareParams{}), "inputs with differing formats must fail Prepare")
}
