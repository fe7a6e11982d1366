package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// StereoMaker turns a mono stream into a stereo one by duplicating each
// mono sample into both channels, or into just the left/right channel
// with silence in the other. A stream that's already stereo passes
// through unchanged.
type StereoMaker struct {
	audio.BaseElement
	name    string
	id      string
	in      *audio.Port
	out     *audio.Port
	channel audio.StereoChannel
}

// NewStereoMaker creates a StereoMaker that duplicates into which.
func NewStereoMaker(name, id string, which audio.StereoChannel) *StereoMaker {
	return &StereoMaker{
		name:    name,
		id:      id,
		in:      audio.NewPort("in"),
		out:     audio.NewPort("out"),
		channel: which,
	}
}

func (s *StereoMaker) ID() string   { return s.id }
func (s *StereoMaker) Name() string { return s.name }
func (s *StereoMaker) Type() string { return "StereoMaker" }

func (s *StereoMaker) NumInputPorts() int          { return 1 }
func (s *StereoMaker) InputPort(i int) *audio.Port {
	if i == 0 {
		return s.in
	}
	panic("elements: stereo maker has no such input port")
}
func (s *StereoMaker) NumOutputPorts() int          { return 1 }
func (s *StereoMaker) OutputPort(i int) *audio.Port {
	if i == 0 {
		return s.out
	}
	panic("elements: stereo maker has no such output port")
}

func (s *StereoMaker) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	f := s.in.Format()
	f.ChannelCount = 2
	s.out.SetFormat(f)
	return true
}

func (s *StereoMaker) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	buf, ok := s.in.PullBuffer()
	if !ok {
		return
	}

	format := buf.Format()
	if format.ChannelCount == 2 {
		if !s.out.PushBuffer(buf) {
			buf.Release()
		}
		return
	}

	bps := format.SampleType.BytesPerSample()
	mono := buf.Bytes()
	frames := len(mono) / bps
	stereo := allocator.Allocate(frames * bps * 2)
	stereoFmt := format
	stereoFmt.ChannelCount = 2
	stereo.SetFormat(stereoFmt)
	dst := stereo.Bytes()

	for i := 0; i < frames; i++ {
		sample := mono[i*bps : i*bps+bps]
		left := dst[i*bps*2 : i*bps*2+bps]
		right := dst[i*bps*2+bps : i*bps*2+bps*2]
		switch s.channel {
		case audio.ChannelLeft:
			copy(left, sample)
			zero(right)
		case audio.ChannelRight:
			zero(left)
			copy(right, sample)
		default:
			copy(left, sample)
			copy(right, sample)
		}
	}
	buf.Release()

	if !s.out.PushBuffer(stereo) {
		stereo.Release()
	}
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
