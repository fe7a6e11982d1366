package elements_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/audio/elements"
)

type fakeLoader struct {
	data map[string][]byte
}

func (l fakeLoader) Load(uri string) ([]byte, error) {
	if d, ok := l.data[uri]; ok {
		return d, nil
	}
	return nil, assertNotFoundErr
}

var assertNotFoundErr = &notFoundErr{}

type notFoundErr struct{}

func (*notFoundErr) Error() string { return "not found" }

// memoryDecoderFactory treats the "file bytes" as already-decoded PCM: it
// hands them back verbatim, a fixed chunk at a time, so filesource tests
// don't need a real codec.
type memoryDecoderFactory struct {
	format audio.Format
}

func (f memoryDecoderFactory) NewDecoder(data []byte, sampleType audio.SampleType) (audio.Decoder, error) {
	format := f.format
	format.SampleType = sampleType
	return &memoryDecoder{data: data, format: format}, nil
}

type memoryDecoder struct {
	data []byte
	pos  int
	format audio.Format
}

func (d *memoryDecoder) Format() audio.Format { return d.format }

func (d *memoryDecoder) Read(dst []byte) (int, error) {
	n := copy(dst, d.data[d.pos:])
	d.pos += n
	return n, nil
}

func (d *memoryDecoder) Seek(frame int) error {
	pos := frame * int(d.format.FrameSizeBytes())
	if pos < 0 {
		pos = 0
	}
	if pos > len(d.data) {
		pos = len(d.data)
	}
	d.pos = pos
	return nil
}

func (d *memoryDecoder) Close() error { return nil }

func TestFileSourceStreamsWithoutCaching(t *testing.T) {
	t.Parallel()

	format := testFormat()
	loader := fakeLoader{data: map[string][]byte{"track.pcm": {1, 2, 3, 4, 5, 6, 7, 8}}}
	fs := elements.NewFileSource("track", "track", "track.pcm", format.SampleType, 1)

	params := audio.PrepareParams{DecoderFactory: memoryDecoderFactory{format: format}}
	require.True(t, fs.Prepare(loader, params))
	assert.True(t, fs.OutputPort(0).Format().Equal(format))

	alloc := newAllocator()
	events := &audio.EventQueue{}

	fs.Process(alloc, events, 1)
	out, ok := fs.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, 8, out.ByteSize())
	out.Release()

	assert.False(t, fs.IsSourceDone())

	fs.Process(alloc, events, 1)
	_, ok = fs.OutputPort(0).PullBuffer()
	assert.False(t, ok, "a single-loop streaming source must produce nothing once exhausted")
	assert.True(t, fs.IsSourceDone())
}

func TestFileSourceStreamsWithLoopingWithoutCaching(t *testing.T) {
	t.Parallel()

	format := testFormat()
	loopBytes := make([]byte, format.MillisecondByteCount()) // one tick's worth, so loop boundary aligns with tick boundary
	for i := range loopBytes {
		loopBytes[i] = byte(i + 1)
	}
	loader := fakeLoader{data: map[string][]byte{"track.pcm": loopBytes}}
	fs := elements.NewFileSource("track", "track", "track.pcm", format.SampleType, 2)

	params := audio.PrepareParams{DecoderFactory: memoryDecoderFactory{format: format}}
	require.True(t, fs.Prepare(loader, params))

	alloc := newAllocator()
	events := &audio.EventQueue{}

	fs.Process(alloc, events, 1)
	out, ok := fs.OutputPort(0).PullBuffer()
	require.True(t, ok)
	assert.Equal(t, len(loopBytes), out.ByteSize())
	out.Release()
	assert.False(t, fs.IsSourceDone(), "streaming source must seek back to the start for its second loop")

	fs.Process(alloc, events, 1)
	out, ok = fs.OutputPort(0).PullBuffer()
	require.True(t, ok, "a second loop must replay the same bytes rather than ending the source")
	assert.Equal(t, len(loopBytes), out.ByteSize())
	out.Release()
	assert.False(t, fs.IsSourceDone())

	fs.Process(alloc, events, 1)
	_, ok = fs.OutputPort(0).PullBuffer()
	assert.False(t, ok, "the source must end once its loop count is exhausted")
	assert.True(t, fs.IsSourceDone())
}

func TestFileSourcePrepareFailsWhenLoaderErrors(t *testing.T) {
	t.Parallel()

	loader := fakeLoader{data: map[string][]byte{}}
	fs := elements.NewFileSource("missing", "missing", "missing.pcm", audio.SampleTypeInt16, 1)
	params := audio.PrepareParams{DecoderFactory: memoryDecoderFactory{format: testFormat()}}
	assert.False(t, fs.Prepare(loader, params))
}

func TestFileSourcePrepareFailsWithoutDecoderFactory(t *testing.T) {
	t.Parallel()

	loader := fakeLoader{data: map[string][]byte{"track.pcm": {1, 2}}}
	fs := elements.NewFileSource("track", "track", "track.pcm", audio.SampleTypeInt16, 1)
	assert.False(t, fs.Prepare(loader, audio.PrepareParams{}))
}
