package audio

import (
	"sync"
	"sync/atomic"

	"github.com/kestrelaudio/graphcore/internal/errors"
	"github.com/kestrelaudio/graphcore/internal/logging"
)

// PlaybackDevice is the sink a Player drains a Source into: something that
// owns a hardware or virtual output and calls FillBuffer from its own
// callback thread/goroutine. internal/device implements this over malgo.
type PlaybackDevice interface {
	Format() Format
	SetBufferSizeMillis(ms uint)
	Start(pull func(dst []byte) int) error
	Stop() error
}

// TrackStatus reports how a stream ended.
type TrackStatus int

const (
	TrackStatusSuccess TrackStatus = iota
	TrackStatusFailure
)

// SourceCompleteEvent fires once when a stream's source reports it is done
// and has drained, or failed.
type SourceCompleteEvent struct {
	ID     uint64
	Status TrackStatus
}

// SourceEventEvent forwards one event a stream's source pushed onto its own
// EventQueue (a MixerSourceDoneEvent, a MixerEffectDoneEvent, etc.) up to
// whoever is draining the player.
type SourceEventEvent struct {
	ID    uint64
	Event any
}

// PlayerEvent is the tagged union of events GetEvent returns; exactly one
// field is non-nil.
type PlayerEvent struct {
	Complete *SourceCompleteEvent
	Source   *SourceEventEvent
}

// Source is whatever a Player can drive: a ThreadProxySource wrapping an
// AudioGraphSource, in the normal case, but anything satisfying ByteSource
// plus command dispatch and event draining works.
type Source interface {
	ByteSource
	DrainEvents() []any
}

type stream struct {
	id       uint64
	source   Source
	device   PlaybackDevice
	paused   atomic.Bool
	done     atomic.Bool
	failed   atomic.Bool
}

// Player owns zero or more independently playing streams, each a Source
// pulled by its own PlaybackDevice, and collects their lifecycle/forwarded
// events into one queue a caller drains with GetEvent.
type Player struct {
	mu       sync.Mutex
	streams  map[uint64]*stream
	nextID   uint64
	eventsMu sync.Mutex
	events   []PlayerEvent
}

// NewPlayer creates an empty player.
func NewPlayer() *Player {
	return &Player{streams: make(map[uint64]*stream)}
}

// Play prepares source against device's format and starts it playing,
// returning an id usable with Cancel/Pause/Resume/SendCommand. device.Start
// is called with a pull function that feeds source.FillBuffer and, once the
// source is exhausted, pushes a SourceCompleteEvent.
func (p *Player) Play(source Source, device PlaybackDevice, loader Loader, params PrepareParams) (uint64, error) {
	params.SuggestedFormat = device.Format()
	if !source.Prepare(loader, params) {
		return 0, ErrPrepareFailed
	}

	p.mu.Lock()
	p.nextID++
	id := p.nextID
	st := &stream{id: id, source: source, device: device}
	p.streams[id] = st
	p.mu.Unlock()

	pull := func(dst []byte) int {
		if st.paused.Load() {
			for i := range dst {
				dst[i] = 0
			}
			return len(dst)
		}
		n := source.FillBuffer(dst)
		for _, ev := range source.DrainEvents() {
			p.pushEvent(PlayerEvent{Source: &SourceEventEvent{ID: id, Event: ev}})
		}
		if n < len(dst) && !source.HasMore(0) && st.done.CompareAndSwap(false, true) {
			status := TrackStatusSuccess
			if we, ok := source.(interface{ WorkerError() error }); ok && we.WorkerError() != nil {
				status = TrackStatusFailure
			}
			p.pushEvent(PlayerEvent{Complete: &SourceCompleteEvent{ID: id, Status: status}})
		}
		return n
	}

	if err := device.Start(pull); err != nil {
		p.mu.Lock()
		delete(p.streams, id)
		p.mu.Unlock()
		logging.Error("player: device failed to start", "stream_id", id, "error", err)
		return 0, err
	}
	return id, nil
}

// Cancel stops and tears down the named stream.
func (p *Player) Cancel(id uint64) {
	p.mu.Lock()
	st, ok := p.streams[id]
	if ok {
		delete(p.streams, id)
	}
	p.mu.Unlock()
	if !ok {
		return
	}
	_ = st.device.Stop()
	st.source.Shutdown()
}

// Pause silences the stream's output without tearing it down; the device
// keeps calling its pull function, which now returns silence.
func (p *Player) Pause(id uint64) {
	if st := p.find(id); st != nil {
		st.paused.Store(true)
	}
}

// Resume reverses Pause.
func (p *Player) Resume(id uint64) {
	if st := p.find(id); st != nil {
		st.paused.Store(false)
	}
}

// SendCommand routes cmd to dest within the named stream's source graph.
func (p *Player) SendCommand(id uint64, dest string, payload any) bool {
	st := p.find(id)
	if st == nil {
		return false
	}
	return st.source.DispatchCommand(dest, Command{Dest: dest, Payload: payload})
}

// StreamCount returns the number of streams currently registered, whether
// playing or paused.
func (p *Player) StreamCount() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.streams)
}

func (p *Player) find(id uint64) *stream {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.streams[id]
}

func (p *Player) pushEvent(ev PlayerEvent) {
	p.eventsMu.Lock()
	p.events = append(p.events, ev)
	p.eventsMu.Unlock()
}

// GetEvent pops the oldest pending event, reporting false when none remain.
func (p *Player) GetEvent() (PlayerEvent, bool) {
	p.eventsMu.Lock()
	defer p.eventsMu.Unlock()
	if len(p.events) == 0 {
		return PlayerEvent{}, false
	}
	ev := p.events[0]
	p.events = p.events[1:]
	return ev, true
}

// ErrPrepareFailed is returned by Play when the source's Prepare call
// reports failure (bad format negotiation, a missing decoder, and so on).
var ErrPrepareFailed = errors.Newf("player: source failed to prepare").Category(errors.CategoryPreparation).Build()
