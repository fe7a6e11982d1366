package audio

// AudioGraphSource adapts a prepared *Graph's tick-based buffer production
// into the byte-pull interface a playback device expects: FillBuffer(dst)
// repeatedly ticks the graph and copies bytes out of whatever buffers its
// output port produces, retaining any partial remainder between calls.
type AudioGraphSource struct {
	graph     *Graph
	allocator Allocator
	events    *EventQueue

	pending    Buffer
	pendingOff int
}

// NewAudioGraphSource wraps an already-prepared graph. Each FillBuffer call
// derives its own tick length from the caller's requested byte count, so
// there is no fixed tick period to configure here.
func NewAudioGraphSource(graph *Graph, allocator Allocator) *AudioGraphSource {
	return &AudioGraphSource{
		graph:     graph,
		allocator: allocator,
		events:    &EventQueue{},
	}
}

// Format returns the graph's negotiated output format.
func (s *AudioGraphSource) Format() Format { return s.graph.Format() }

// Events returns the event queue the wrapped graph pushes to during
// Process; callers should drain it after every FillBuffer call.
func (s *AudioGraphSource) Events() *EventQueue { return s.events }

// Graph returns the wrapped graph, for command dispatch.
func (s *AudioGraphSource) Graph() *Graph { return s.graph }

// FillBuffer copies audio into dst, deriving its own tick length from the
// request: ms = len(dst) / ms_bytes(format), rounded down, and the target
// byte count is ms * ms_bytes(format). A request not aligned to a whole
// millisecond is served short rather than padded, so the bytes returned on
// a normal call are always a whole-millisecond multiple of ms_bytes(format)
// no greater than len(dst). The only exceptions are a transient underrun,
// which fills the rest of the request with silence and returns len(dst) so
// the device stream doesn't auto-pause, and end of stream, which returns the
// bytes copied before the graph ran out (0 once nothing is left).
func (s *AudioGraphSource) FillBuffer(dst []byte) int {
	msBytes := int(s.graph.Format().MillisecondByteCount())
	if msBytes == 0 {
		return 0
	}
	ms := uint(len(dst) / msBytes)
	target := int(ms) * msBytes
	if target == 0 {
		return 0
	}

	written := 0
	for written < target {
		if s.pending != nil {
			n := copy(dst[written:target], s.pending.Bytes()[s.pendingOff:])
			written += n
			s.pendingOff += n
			if s.pendingOff >= s.pending.ByteSize() {
				s.pending.Release()
				s.pending = nil
				s.pendingOff = 0
			}
			continue
		}

		if s.graph.IsSourceDone() {
			return written
		}

		s.graph.Process(s.allocator, s.events, ms)
		s.graph.Advance(ms)

		out := s.graph.OutputPort(0)
		buf, ok := out.PullBuffer()
		if !ok {
			if s.graph.IsSourceDone() {
				return written
			}
			for i := written; i < len(dst); i++ {
				dst[i] = 0
			}
			return len(dst)
		}
		s.pending = buf
		s.pendingOff = 0
	}
	return written
}

// HasMore reports whether the source can still produce bytes beyond what
// has already been read, given bytesReadSoFar bytes consumed to date.
func (s *AudioGraphSource) HasMore(bytesReadSoFar int) bool {
	if s.pending != nil {
		return true
	}
	return !s.graph.IsSourceDone()
}

// Prepare readies the wrapped graph. loader resolves any file-backed
// elements; params carries the suggested negotiation format.
func (s *AudioGraphSource) Prepare(loader Loader, params PrepareParams) bool {
	return s.graph.Prepare(loader, params)
}

// Shutdown tears down the wrapped graph and releases any retained buffer.
func (s *AudioGraphSource) Shutdown() {
	if s.pending != nil {
		s.pending.Release()
		s.pending = nil
	}
	s.graph.Shutdown()
}

// DispatchCommand forwards to the wrapped graph.
func (s *AudioGraphSource) DispatchCommand(dest string, cmd Command) bool {
	return s.graph.DispatchCommand(dest, cmd)
}
