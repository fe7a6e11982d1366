package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// Queue decouples producer and consumer rates by holding an unbounded
// internal FIFO of buffers behind its single-slot ports: it always drains
// its input port into the FIFO, and pushes from the FIFO to its output
// port whenever the output is free. This is why Queue is exempt from the
// graph's backpressure skip: a full downstream never starves its upstream.
type Queue struct {
	audio.BaseElement
	name  string
	id    string
	in    *audio.Port
	out   *audio.Port
	queue []audio.Buffer
}

// NewQueue creates an empty Queue.
func NewQueue(name, id string) *Queue {
	return &Queue{
		name: name,
		id:   id,
		in:   audio.NewPort("in"),
		out:  audio.NewPort("out"),
	}
}

func (q *Queue) ID() string   { return q.id }
func (q *Queue) Name() string { return q.name }
func (q *Queue) Type() string { return "Queue" }

func (q *Queue) NumInputPorts() int          { return 1 }
func (q *Queue) InputPort(i int) *audio.Port {
	if i == 0 {
		return q.in
	}
	panic("elements: queue has no such input port")
}
func (q *Queue) NumOutputPorts() int          { return 1 }
func (q *Queue) OutputPort(i int) *audio.Port {
	if i == 0 {
		return q.out
	}
	panic("elements: queue has no such output port")
}

func (q *Queue) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	q.out.SetFormat(q.in.Format())
	return true
}

// QueueSize returns the number of buffers currently held internally.
func (q *Queue) QueueSize() int { return len(q.queue) }

// IsEmpty reports whether the internal FIFO (not the ports) is empty.
func (q *Queue) IsEmpty() bool { return len(q.queue) == 0 }

func (q *Queue) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	if buf, ok := q.in.PullBuffer(); ok {
		q.queue = append(q.queue, buf)
	}
	if !q.out.HasBuffers() && len(q.queue) > 0 {
		buf := q.queue[0]
		q.queue = q.queue[1:]
		if !q.out.PushBuffer(buf) {
			buf.Release()
		}
	}
}
