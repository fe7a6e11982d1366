package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// GainSetGainCmd changes a Gain element's multiplier.
type GainSetGainCmd struct {
	Gain float32
}

// Gain scales every sample passing through it by a constant multiplier.
type Gain struct {
	audio.BaseElement
	name string
	id   string
	in   *audio.Port
	out  *audio.Port
	gain float32
}

// NewGain creates a Gain element with the given initial multiplier.
func NewGain(name, id string, gain float32) *Gain {
	return &Gain{
		name: name,
		id:   id,
		in:   audio.NewPort("in"),
		out:  audio.NewPort("out"),
		gain: gain,
	}
}

func (g *Gain) ID() string   { return g.id }
func (g *Gain) Name() string { return g.name }
func (g *Gain) Type() string { return "Gain" }

func (g *Gain) NumInputPorts() int         { return 1 }
func (g *Gain) InputPort(i int) *audio.Port {
	if i == 0 {
		return g.in
	}
	panic("elements: gain has no such input port")
}
func (g *Gain) NumOutputPorts() int          { return 1 }
func (g *Gain) OutputPort(i int) *audio.Port {
	if i == 0 {
		return g.out
	}
	panic("elements: gain has no such output port")
}

// SetGain updates the multiplier directly, bypassing command dispatch.
func (g *Gain) SetGain(gain float32) { g.gain = gain }

func (g *Gain) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	g.out.SetFormat(g.in.Format())
	return true
}

func (g *Gain) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	buf, ok := g.in.PullBuffer()
	if !ok {
		return
	}
	if g.gain != 1.0 {
		gain := float64(g.gain)
		forEachSample(buf.Format(), buf.Bytes(), func(_ int, v float64) float64 { return v * gain })
	}
	if !g.out.PushBuffer(buf) {
		buf.Release()
	}
}

func (g *Gain) ReceiveCommand(cmd audio.Command) {
	if c, ok := cmd.Payload.(GainSetGainCmd); ok {
		g.gain = c.Gain
	}
}

func (g *Gain) DispatchCommand(dest string, cmd audio.Command) bool {
	return audio.DispatchByName(g, dest, cmd)
}
