package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// Null discards whatever buffer is pushed into its input port. Useful as
// a sink for a branch of the graph whose output nobody wants but which
// must still be pulled to keep upstream elements from stalling.
type Null struct {
	audio.BaseElement
	name string
	id   string
	in   *audio.Port
}

// NewNull creates a Null sink.
func NewNull(name, id string) *Null {
	return &Null{name: name, id: id, in: audio.NewPort("in")}
}

func (n *Null) ID() string   { return n.id }
func (n *Null) Name() string { return n.name }
func (n *Null) Type() string { return "Null" }

func (n *Null) NumInputPorts() int          { return 1 }
func (n *Null) InputPort(i int) *audio.Port {
	if i == 0 {
		return n.in
	}
	panic("elements: null has no such input port")
}

func (n *Null) Prepare(loader audio.Loader, params audio.PrepareParams) bool { return true }

func (n *Null) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	if buf, ok := n.in.PullBuffer(); ok {
		buf.Release()
	}
}
