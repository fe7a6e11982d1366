package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// EffectSetEffectCmd restarts an Effect element with a new envelope.
type EffectSetEffectCmd struct {
	Time     uint
	Duration uint
	Effect   audio.EffectKind
}

// Effect ramps a stream's gain up or down over a fixed duration, starting
// at a given point in the stream's own elapsed time.
type Effect struct {
	audio.BaseElement
	name string
	id   string
	in   *audio.Port
	out  *audio.Port

	kind       audio.EffectKind
	startTime  uint
	duration   uint
	sampleTime float64
}

// NewEffect creates an Effect that begins at startTime milliseconds into
// the stream and ramps over duration milliseconds.
func NewEffect(name, id string, startTime, duration uint, kind audio.EffectKind) *Effect {
	return &Effect{
		name:      name,
		id:        id,
		in:        audio.NewPort("in"),
		out:       audio.NewPort("out"),
		kind:      kind,
		startTime: startTime,
		duration:  duration,
	}
}

func (e *Effect) ID() string   { return e.id }
func (e *Effect) Name() string { return e.name }
func (e *Effect) Type() string { return "Effect" }

func (e *Effect) NumInputPorts() int          { return 1 }
func (e *Effect) InputPort(i int) *audio.Port {
	if i == 0 {
		return e.in
	}
	panic("elements: effect has no such input port")
}
func (e *Effect) NumOutputPorts() int          { return 1 }
func (e *Effect) OutputPort(i int) *audio.Port {
	if i == 0 {
		return e.out
	}
	panic("elements: effect has no such output port")
}

// SetEffect restarts the effect with a new envelope.
func (e *Effect) SetEffect(kind audio.EffectKind, startTime, duration uint) {
	e.kind = kind
	e.startTime = startTime
	e.duration = duration
	e.sampleTime = 0
}

func (e *Effect) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	e.out.SetFormat(e.in.Format())
	return true
}

// envelopeAt returns the gain multiplier at t milliseconds of stream time.
func (e *Effect) envelopeAt(t float64) float64 {
	if e.duration == 0 {
		if e.kind == audio.EffectKindFadeIn {
			return 1
		}
		return 0
	}
	if t < float64(e.startTime) {
		// Before the start time, both fade kinds pass the signal through
		// unchanged: FadeIn hasn't begun ramping up from silence yet, and
		// FadeOut hasn't begun ramping down from full volume yet.
		return 1
	}
	progress := (t - float64(e.startTime)) / float64(e.duration)
	if progress > 1 {
		progress = 1
	}
	if e.kind == audio.EffectKindFadeIn {
		return progress
	}
	return 1 - progress
}

func (e *Effect) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	buf, ok := e.in.PullBuffer()
	if !ok {
		return
	}

	format := buf.Format()
	msPerFrame := 1000.0 / float64(format.SampleRate)

	forEachSample(format, buf.Bytes(), func(i int, v float64) float64 {
		frame := float64(i) / float64(format.ChannelCount)
		t := e.sampleTime + frame*msPerFrame
		return v * e.envelopeAt(t)
	})
	e.sampleTime += float64(milliseconds)

	if !e.out.PushBuffer(buf) {
		buf.Release()
	}
}

func (e *Effect) ReceiveCommand(cmd audio.Command) {
	if c, ok := cmd.Payload.(EffectSetEffectCmd); ok {
		e.SetEffect(c.Effect, c.Time, c.Duration)
	}
}

func (e *Effect) DispatchCommand(dest string, cmd audio.Command) bool {
	return audio.DispatchByName(e, dest, cmd)
}
