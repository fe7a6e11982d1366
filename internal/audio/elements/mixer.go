package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// Mixer sums N input streams of identical format into one output stream.
// Each tick it consumes whatever input ports currently hold a buffer and
// ignores the rest; if nothing is available on any input it produces
// nothing this tick.
type Mixer struct {
	audio.BaseElement
	name string
	id   string
	srcs []*audio.Port
	out  *audio.Port
}

// NewMixer creates a Mixer with numSrcs input ports named in0..in{N-1}.
func NewMixer(name, id string, numSrcs int) *Mixer {
	srcs := make([]*audio.Port, numSrcs)
	for i := range srcs {
		srcs[i] = audio.NewPort(portName("in", i))
	}
	return &Mixer{
		name: name,
		id:   id,
		srcs: srcs,
		out:  audio.NewPort("out"),
	}
}

func portName(prefix string, i int) string {
	const digits = "0123456789"
	if i < 10 {
		return prefix + string(digits[i])
	}
	return prefix + string(rune('0'+i/10)) + string(digits[i%10])
}

func (m *Mixer) ID() string   { return m.id }
func (m *Mixer) Name() string { return m.name }
func (m *Mixer) Type() string { return "Mixer" }

func (m *Mixer) NumInputPorts() int          { return len(m.srcs) }
func (m *Mixer) InputPort(i int) *audio.Port { return m.srcs[i] }
func (m *Mixer) NumOutputPorts() int         { return 1 }
func (m *Mixer) OutputPort(i int) *audio.Port {
	if i == 0 {
		return m.out
	}
	panic("elements: mixer has no such output port")
}

func (m *Mixer) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	var format audio.Format
	have := false
	for _, src := range m.srcs {
		if !src.Format().IsValid() {
			continue
		}
		if !have {
			format = src.Format()
			have = true
			continue
		}
		if !src.Format().Equal(format) {
			return false
		}
	}
	if !have {
		format = params.SuggestedFormat
	}
	m.out.SetFormat(format)
	return true
}

func (m *Mixer) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	var mixed audio.Buffer
	for _, src := range m.srcs {
		buf, ok := src.PullBuffer()
		if !ok {
			continue
		}
		if mixed == nil {
			mixed = allocator.Allocate(buf.ByteSize())
			mixed.SetFormat(buf.Format())
			copy(mixed.Bytes(), buf.Bytes())
			buf.Release()
			continue
		}
		mixSamples(mixed.Format(), mixed.Bytes(), buf.Bytes())
		buf.Release()
	}
	if mixed == nil {
		return
	}
	if !m.out.PushBuffer(mixed) {
		mixed.Release()
	}
}
