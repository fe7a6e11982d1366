package audio_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/audio/elements"
	graphcoreerrors "github.com/kestrelaudio/graphcore/internal/errors"
)

func newAllocator() audio.Allocator {
	return audio.NewBufferPool(audio.DefaultBufferPoolConfig())
}

// TestGraphSingleSourcePassthrough exercises scenario 1: a ZeroSource
// feeding the graph output directly should produce one correctly sized
// buffer per tick and negotiate the graph's format to the source's own.
func TestGraphSingleSourcePassthrough(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	g := audio.NewGraph("passthrough", "passthrough")
	src := g.AddElement(elements.NewZeroSource("src", "src", format, 0))
	require.True(t, g.LinkGraphByName("src", "out"))

	ok := g.Prepare(nil, audio.PrepareParams{})
	require.True(t, ok, "prepare failed: %v", g.PrepareError())
	assert.True(t, g.Format().Equal(format))

	alloc := newAllocator()
	events := &audio.EventQueue{}
	for i := 0; i < 10; i++ {
		g.Process(alloc, events, 1)
		buf, ok := g.OutputPort(0).PullBuffer()
		require.True(t, ok, "tick %d produced no buffer", i)
		assert.Equal(t, 32, buf.ByteSize())
		buf.Release()
	}
	assert.False(t, src.IsSourceDone())
}

// TestGraphTopologicalSchedulingTwoRoots exercises scenario 2: two
// independent sources feed a Mixer, which must see both inputs in the same
// tick despite having no explicit ordering between the two upstream roots.
func TestGraphTopologicalSchedulingTwoRoots(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	g := audio.NewGraph("two-roots", "two-roots")
	a := g.AddElement(elements.NewZeroSource("A", "A", format, 0))
	b := g.AddElement(elements.NewZeroSource("B", "B", format, 0))
	mixer := g.AddElement(elements.NewMixer("C", "C", 2))

	require.True(t, g.LinkElementsByName("A", "out", "C", "in0"))
	require.True(t, g.LinkElementsByName("B", "out", "C", "in1"))
	require.True(t, g.LinkGraphByName("C", "out"))

	ok := g.Prepare(nil, audio.PrepareParams{})
	require.True(t, ok, "prepare failed: %v", g.PrepareError())

	alloc := newAllocator()
	events := &audio.EventQueue{}
	g.Process(alloc, events, 1)

	buf, ok := g.OutputPort(0).PullBuffer()
	require.True(t, ok, "mixer produced no output on the first tick")
	assert.Equal(t, 32, buf.ByteSize())
	buf.Release()

	_ = a
	_ = b
	_ = mixer
}

// TestGraphCycleDetectionThreeElements exercises scenario 3: a genuine
// cycle A -> B -> C -> A, built from Mixer elements since those expose both
// an input and an output port, must fail Prepare with a graph-cycle error
// and must not leave a partial topological order behind.
// elements, which (unlike Null) expose both an input and an output port,
// so A -> B -> C -> A can be wired directly.
func TestGraphCycleDetectionThreeElements(t *testing.T) {
	t.Parallel()

	g := audio.NewGraph("cyclic3", "cyclic3")
	a := g.AddElement(elements.NewMixer("A", "A", 1))
	b := g.AddElement(elements.NewMixer("B", "B", 1))
	c := g.AddElement(elements.NewMixer("C", "C", 1))

	g.LinkElements(a, a.OutputPort(0), b, b.InputPort(0))
	g.LinkElements(b, b.OutputPort(0), c, c.InputPort(0))
	g.LinkElements(c, c.OutputPort(0), a, a.InputPort(0))

	ok := g.Prepare(nil, audio.PrepareParams{})
	require.False(t, ok)
	err := g.PrepareError()
	require.Error(t, err)
	assert.True(t, graphcoreerrors.IsCategory(err, graphcoreerrors.CategoryGraphCycle))
}

// slowSink pulls from its single input port only when told to, modeling a
// downstream consumer slower than the graph's own tick rate.
type slowSink struct {
	audio.BaseElement
	name string
	id   string
	in   *audio.Port
	pull bool
	got  []audio.Buffer
}

func newSlowSink(name, id string) *slowSink {
	return &slowSink{name: name, id: id, in: audio.NewPort("in")}
}

func (s *slowSink) ID() string   { return s.id }
func (s *slowSink) Name() string { return s.name }
func (s *slowSink) Type() string { return "SlowSink" }

func (s *slowSink) NumInputPorts() int          { return 1 }
func (s *slowSink) InputPort(i int) *audio.Port { return s.in }

func (s *slowSink) Prepare(loader audio.Loader, params audio.PrepareParams) bool { return true }

func (s *slowSink) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	if !s.pull {
		return
	}
	if buf, ok := s.in.PullBuffer(); ok {
		s.got = append(s.got, buf)
	}
	s.pull = false
}

// TestGraphBackpressureQueueException exercises scenario 4: a Queue sitting
// between a fast source and a slow sink must keep absorbing upstream
// buffers into its own FIFO even while its output port is backed up,
// because Queue is exempt from the graph's backpressure skip.
func TestGraphBackpressureQueueException(t *testing.T) {
	t.Parallel()

	format := audio.Format{SampleType: audio.SampleTypeInt16, SampleRate: 16000, ChannelCount: 1}
	g := audio.NewGraph("backpressure", "backpressure")
	src := g.AddElement(elements.NewZeroSource("S", "S", format, 0))
	queue := g.AddElement(elements.NewQueue("Q", "Q")).(*elements.Queue)
	sink := newSlowSink("K", "K")
	g.AddElement(sink)

	require.True(t, g.LinkElementsByName("S", "out", "Q", "in"))
	g.LinkElements(queue, queue.OutputPort(0), sink, sink.InputPort(0))

	ok := g.Prepare(nil, audio.PrepareParams{})
	require.True(t, ok, "prepare failed: %v", g.PrepareError())

	alloc := newAllocator()
	events := &audio.EventQueue{}
	for i := 0; i < 10; i++ {
		if i%2 == 0 {
			sink.pull = true
		}
		g.Process(alloc, events, 1)
	}

	assert.LessOrEqual(t, queue.QueueSize(), 5, "queue must not grow past what the sink failed to drain")
	assert.Equal(t, 5, len(sink.got), "sink should have read exactly the ticks it asked to pull on")
	_ = src
}
