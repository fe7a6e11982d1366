package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// ZeroSource produces silence at a fixed format, either indefinitely
// (durationMillis == 0) or for a bounded stretch of stream time. It fills
// the gap left by FileSource for graphs that need a source element with
// no backing file — test fixtures, placeholder tracks, or a mixer input
// that must stay "live" while genuinely silent.
type ZeroSource struct {
	audio.BaseElement
	name           string
	id             string
	out            *audio.Port
	format         audio.Format
	durationMillis uint
	elapsedMillis  uint
}

// NewZeroSource creates a ZeroSource emitting format at the given
// duration; 0 means unbounded.
func NewZeroSource(name, id string, format audio.Format, durationMillis uint) *ZeroSource {
	return &ZeroSource{
		name:           name,
		id:             id,
		out:            audio.NewPort("out"),
		format:         format,
		durationMillis: durationMillis,
	}
}

func (z *ZeroSource) ID() string   { return z.id }
func (z *ZeroSource) Name() string { return z.name }
func (z *ZeroSource) Type() string { return "ZeroSource" }

func (z *ZeroSource) IsSource() bool { return true }
func (z *ZeroSource) IsSourceDone() bool {
	return z.durationMillis > 0 && z.elapsedMillis >= z.durationMillis
}

func (z *ZeroSource) NumOutputPorts() int          { return 1 }
func (z *ZeroSource) OutputPort(i int) *audio.Port {
	if i == 0 {
		return z.out
	}
	panic("elements: zero source has no such output port")
}

func (z *ZeroSource) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	format := z.format
	if !format.IsValid() {
		format = params.SuggestedFormat
	}
	if !format.IsValid() {
		return false
	}
	z.format = format
	z.out.SetFormat(format)
	return true
}

func (z *ZeroSource) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	if z.IsSourceDone() {
		return
	}
	if z.durationMillis > 0 {
		if remaining := z.durationMillis - z.elapsedMillis; milliseconds > remaining {
			milliseconds = remaining
		}
	}
	n := int(z.format.MillisecondByteCount() * milliseconds)
	if n == 0 {
		return
	}
	buf := allocator.Allocate(n)
	clear(buf.Bytes())
	buf.SetFormat(z.format)
	if !z.out.PushBuffer(buf) {
		buf.Release()
		return
	}
	z.elapsedMillis += milliseconds
}
