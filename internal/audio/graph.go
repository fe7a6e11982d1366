package audio

import "github.com/kestrelaudio/graphcore/internal/errors"

// emptyReporter is implemented by elements that need an exemption from the
// graph's done-ness check beyond "is a source and is done" — currently
// only Queue, via IsEmpty().
type emptyReporter interface {
	IsEmpty() bool
}

// Graph is both a container of elements wired together by single-slot
// ports, and itself an Element with one output port that mirrors whichever
// element/port was designated as the graph's tail.
type Graph struct {
	BaseElement
	name string
	id   string

	elements []Element

	// srcMap[e] is the set of elements e depends on; dstMap[e] is the set
	// of elements that depend on e. Built as links are added.
	srcMap map[Element]map[Element]bool
	dstMap map[Element]map[Element]bool

	// portMap maps every linked output port (including sub-element output
	// ports linked to the graph's own output) to its destination port.
	portMap map[*Port]*Port

	topoOrder []Element

	format       Format
	outputPort   *Port
	graphSrcPort *Port

	done    bool
	prepErr error
}

// NewGraph creates an empty graph with the given id.
func NewGraph(name, id string) *Graph {
	return &Graph{
		name:       name,
		id:         id,
		srcMap:     make(map[Element]map[Element]bool),
		dstMap:     make(map[Element]map[Element]bool),
		portMap:    make(map[*Port]*Port),
		outputPort: NewPort("out"),
	}
}

func (g *Graph) ID() string   { return g.id }
func (g *Graph) Name() string { return g.name }
func (g *Graph) Type() string { return "Graph" }

func (g *Graph) IsSource() bool     { return true }
func (g *Graph) IsSourceDone() bool { return g.done }

func (g *Graph) NumOutputPorts() int      { return 1 }
func (g *Graph) OutputPort(index int) *Port {
	if index == 0 {
		return g.outputPort
	}
	panic("audio: graph has no such output port")
}

// Format returns the negotiated output format. Only meaningful after a
// successful Prepare.
func (g *Graph) Format() Format { return g.format }

// PrepareError returns the specific failure from the last Prepare call
// that returned false, or nil.
func (g *Graph) PrepareError() error { return g.prepErr }

// AddElement registers e with the graph. It is not linked anywhere yet.
func (g *Graph) AddElement(e Element) Element {
	g.elements = append(g.elements, e)
	g.srcMap[e] = make(map[Element]bool)
	g.dstMap[e] = make(map[Element]bool)
	return e
}

// FindElementByID returns the element with the given id, or nil.
func (g *Graph) FindElementByID(id string) Element {
	for _, e := range g.elements {
		if e.ID() == id {
			return e
		}
	}
	return nil
}

// FindElementByName returns the first element with the given name, or nil.
func (g *Graph) FindElementByName(name string) Element {
	for _, e := range g.elements {
		if e.Name() == name {
			return e
		}
	}
	return nil
}

// NumElements returns the number of elements added to the graph.
func (g *Graph) NumElements() int { return len(g.elements) }

// HasElement reports whether e was added to this graph.
func (g *Graph) HasElement(e Element) bool {
	_, ok := g.srcMap[e]
	return ok
}

// LinkElements wires srcPort (an output port of srcElem) to dstPort (an
// input port of dstElem), recording the dependency for topological
// scheduling.
func (g *Graph) LinkElements(srcElem Element, srcPort *Port, dstElem Element, dstPort *Port) {
	g.portMap[srcPort] = dstPort
	g.dstMap[srcElem][dstElem] = true
	g.srcMap[dstElem][srcElem] = true
}

// LinkGraph designates srcPort (an output port of srcElem) as the source
// for the graph's own external output port.
func (g *Graph) LinkGraph(srcElem Element, srcPort *Port) {
	g.portMap[srcPort] = g.outputPort
	g.graphSrcPort = srcPort
}

// LinkElementsByName is the declarative-authoring convenience used by
// GraphClass instantiation: it resolves elements and ports by name and
// reports whether every name was found.
func (g *Graph) LinkElementsByName(srcElemName, srcPortName, dstElemName, dstPortName string) bool {
	srcElem := g.FindElementByName(srcElemName)
	dstElem := g.FindElementByName(dstElemName)
	if srcElem == nil || dstElem == nil {
		return false
	}
	srcPort := findOutputPortByName(srcElem, srcPortName)
	dstPort := findInputPortByName(dstElem, dstPortName)
	if srcPort == nil || dstPort == nil {
		return false
	}
	g.LinkElements(srcElem, srcPort, dstElem, dstPort)
	return true
}

// LinkGraphByName resolves srcElemName/srcPortName and links it as the
// graph's output.
func (g *Graph) LinkGraphByName(srcElemName, srcPortName string) bool {
	srcElem := g.FindElementByName(srcElemName)
	if srcElem == nil {
		return false
	}
	srcPort := findOutputPortByName(srcElem, srcPortName)
	if srcPort == nil {
		return false
	}
	g.LinkGraph(srcElem, srcPort)
	return true
}

func findOutputPortByName(e Element, name string) *Port {
	for i := 0; i < e.NumOutputPorts(); i++ {
		if p := e.OutputPort(i); p.Name() == name {
			return p
		}
	}
	return nil
}

func findInputPortByName(e Element, name string) *Port {
	for i := 0; i < e.NumInputPorts(); i++ {
		if p := e.InputPort(i); p.Name() == name {
			return p
		}
	}
	return nil
}

// IsSrcPortTaken reports whether src already has an outgoing link.
func (g *Graph) IsSrcPortTaken(src *Port) bool {
	_, ok := g.portMap[src]
	return ok
}

// IsDstPortTaken reports whether some source port is already linked to dst.
func (g *Graph) IsDstPortTaken(dst *Port) bool {
	for _, d := range g.portMap {
		if d == dst {
			return true
		}
	}
	return false
}

// Prepare runs Kahn's algorithm over the dependency graph to establish a
// topological order, then prepares each element in that order and
// negotiates port formats along each link.
func (g *Graph) Prepare(loader Loader, params PrepareParams) bool {
	g.prepErr = nil

	deps := make(map[Element]map[Element]bool, len(g.srcMap))
	for e, s := range g.srcMap {
		cp := make(map[Element]bool, len(s))
		for d := range s {
			cp[d] = true
		}
		deps[e] = cp
	}

	var ready []Element
	for _, e := range g.elements {
		if len(deps[e]) == 0 {
			ready = append(ready, e)
		}
	}

	var topo []Element
	for len(ready) > 0 {
		e := ready[0]
		ready = ready[1:]
		topo = append(topo, e)
		for dependent := range g.dstMap[e] {
			delete(deps[dependent], e)
			if len(deps[dependent]) == 0 {
				ready = append(ready, dependent)
			}
		}
	}

	if len(topo) != len(g.elements) {
		g.prepErr = errors.Newf("audio graph %q: cycle detected among elements", g.name).
			Category(errors.CategoryGraphCycle).
			Context("graph", g.name).
			Build()
		return false
	}
	g.topoOrder = topo

	for _, e := range topo {
		if !e.Prepare(loader, params) {
			g.prepErr = errors.Newf("element %q (%s) failed to prepare", e.Name(), e.Type()).
				Category(errors.CategoryPreparation).
				Context("graph", g.name).
				Context("element", e.Name()).
				Build()
			return false
		}
		for i := 0; i < e.NumOutputPorts(); i++ {
			out := e.OutputPort(i)
			dst, ok := g.portMap[out]
			if !ok {
				continue
			}
			if !dst.CanAccept(out.Format()) {
				g.prepErr = errors.Newf("format mismatch linking %q.%s", e.Name(), out.Name()).
					Category(errors.CategoryPreparation).
					Context("graph", g.name).
					Context("element", e.Name()).
					Build()
				return false
			}
			dst.SetFormat(out.Format())
		}
	}

	if g.graphSrcPort == nil {
		g.prepErr = errors.Newf("audio graph %q: no element linked to the graph output", g.name).
			Category(errors.CategoryPreparation).
			Context("graph", g.name).
			Build()
		return false
	}
	g.format = g.graphSrcPort.Format()
	if !g.format.IsValid() {
		g.prepErr = errors.Newf("audio graph %q: negotiated output format is invalid: %s", g.name, g.format).
			Category(errors.CategoryPreparation).
			Context("graph", g.name).
			Build()
		return false
	}
	return true
}

// Process runs one tick: every element in topological order gets a chance
// to produce, subject to backpressure from its downstream ports, with
// Queue elements exempted so they can always drain their upstream.
func (g *Graph) Process(allocator Allocator, events *EventQueue, milliseconds uint) {
	for _, e := range g.topoOrder {
		if e.IsSource() && e.IsSourceDone() {
			continue
		}

		backpressured := false
		for i := 0; i < e.NumOutputPorts(); i++ {
			if dst, ok := g.portMap[e.OutputPort(i)]; ok && dst.IsFull() {
				backpressured = true
				break
			}
		}
		if backpressured && e.Type() != "Queue" {
			continue
		}

		e.Process(allocator, events, milliseconds)

		for i := 0; i < e.NumOutputPorts(); i++ {
			out := e.OutputPort(i)
			buf, ok := out.PullBuffer()
			if !ok {
				continue
			}
			buf.AddInfoTag(InfoTag{
				ElementName: e.Name(),
				ElementID:   e.ID(),
				Source:      e.IsSource(),
				SourceDone:  e.IsSourceDone(),
			})
			dst, ok := g.portMap[out]
			if !ok {
				continue
			}
			if !dst.PushBuffer(buf) {
				out.PushBuffer(buf)
			}
		}
	}

	g.done = g.computeDone()
}

func (g *Graph) computeDone() bool {
	for _, e := range g.elements {
		if e.IsSource() && !e.IsSourceDone() {
			return false
		}
		if e.Type() == "Queue" {
			if er, ok := e.(emptyReporter); ok && !er.IsEmpty() {
				return false
			}
		}
	}
	for _, e := range g.elements {
		for i := 0; i < e.NumOutputPorts(); i++ {
			if e.OutputPort(i).HasBuffers() {
				return false
			}
		}
	}
	return !g.outputPort.HasBuffers()
}

// Advance propagates wall-clock time to every element; order does not
// matter since Advance must not depend on sibling state within one tick.
func (g *Graph) Advance(milliseconds uint) {
	for _, e := range g.elements {
		e.Advance(milliseconds)
	}
}

// Shutdown releases resources held by every element.
func (g *Graph) Shutdown() {
	for _, e := range g.elements {
		e.Shutdown()
	}
}

// DispatchCommand recurses into every child element by name.
func (g *Graph) DispatchCommand(dest string, cmd Command) bool {
	if g.name == dest {
		g.ReceiveCommand(cmd)
		return true
	}
	for _, e := range g.elements {
		if e.DispatchCommand(dest, cmd) {
			return true
		}
	}
	return false
}

// DispatchByName is the shared leaf implementation of DispatchCommand for
// elements that have no sub-elements of their own: it matches the
// element's own name and, on a match, delivers the command directly.
func DispatchByName(e Element, dest string, cmd Command) bool {
	if e.Name() == dest {
		e.ReceiveCommand(cmd)
		return true
	}
	return false
}
