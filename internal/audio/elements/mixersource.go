package elements

import (
	"sync/atomic"

	"github.com/kestrelaudio/graphcore/internal/audio"
)

// MixerEffect is applied to a source's buffers on every tick until it
// reports done, at which point MixerSource removes it and emits an
// EffectDoneEvent.
type MixerEffect interface {
	Apply(buf audio.Buffer)
	Advance(milliseconds uint)
	IsDone() bool
	Name() string
}

type fadeEffect struct {
	kind     audio.EffectKind
	duration float64
	elapsed  float64
}

// NewFadeIn ramps a source's gain from 0 to 1 over durationMillis.
func NewFadeIn(durationMillis uint) MixerEffect {
	return &fadeEffect{kind: audio.EffectKindFadeIn, duration: float64(durationMillis)}
}

// NewFadeOut ramps a source's gain from 1 to 0 over durationMillis.
func NewFadeOut(durationMillis uint) MixerEffect {
	return &fadeEffect{kind: audio.EffectKindFadeOut, duration: float64(durationMillis)}
}

func (e *fadeEffect) Name() string {
	if e.kind == audio.EffectKindFadeIn {
		return "FadeIn"
	}
	return "FadeOut"
}

func (e *fadeEffect) IsDone() bool { return e.elapsed >= e.duration }

func (e *fadeEffect) Advance(milliseconds uint) { e.elapsed += float64(milliseconds) }

func (e *fadeEffect) Apply(buf audio.Buffer) {
	progress := 1.0
	if e.duration > 0 {
		progress = e.elapsed / e.duration
		if progress > 1 {
			progress = 1
		} else if progress < 0 {
			progress = 0
		}
	}
	gain := progress
	if e.kind == audio.EffectKindFadeOut {
		gain = 1 - progress
	}
	forEachSample(buf.Format(), buf.Bytes(), func(_ int, v float64) float64 { return v * gain })
}

// MixerSourceAddSourceCmd attaches a new source element to the mixer.
type MixerSourceAddSourceCmd struct {
	Source audio.Element
	Paused bool
}

// MixerSourceDeleteAllCmd removes every current source, after waiting
// Millisecs of stream time if non-zero.
type MixerSourceDeleteAllCmd struct {
	Millisecs uint
}

// MixerSourceDeleteSourceCmd removes the named source, after waiting
// Millisecs of stream time if non-zero.
type MixerSourceDeleteSourceCmd struct {
	Name      string
	Millisecs uint
}

// MixerSourcePauseCmd pauses or resumes the named source, after waiting
// Millisecs of stream time if non-zero.
type MixerSourcePauseCmd struct {
	Name      string
	Paused    bool
	Millisecs uint
}

// MixerSourceCancelCmd cancels any late-scheduled command pending on the
// named source.
type MixerSourceCancelCmd struct {
	Name string
}

// MixerSourceSetEffectCmd applies an effect to the named source
// immediately, replacing whatever effect was running.
type MixerSourceSetEffectCmd struct {
	Name   string
	Effect MixerEffect
}

// MixerSourceDoneEvent is emitted when one of the mixer's sources runs out
// of data and is removed.
type MixerSourceDoneEvent struct {
	Mixer  string
	Source audio.Element
}

// MixerEffectDoneEvent is emitted when an effect applied to a source
// finishes.
type MixerEffectDoneEvent struct {
	Mixer  string
	Source string
	Effect MixerEffect
}

type mixerSourceEntry struct {
	element audio.Element
	effect  MixerEffect
	paused  bool
}

// lateCommand is a Pause/Delete/DeleteAll command scheduled to execute
// once remainingMillis of stream time has elapsed.
type lateCommand struct {
	target         string // source name; empty for DeleteAll
	remainingMillis float64
	exec           func(*MixerSource)
}

// MixerSource wraps an arbitrary number of named source elements,
// mixing their output into one stream, and accepts commands addressed by
// source name to add, remove, pause or apply an effect to a source
// without tearing down the mixer itself.
type MixerSource struct {
	audio.BaseElement
	name   string
	id     string
	format audio.Format
	out    *audio.Port

	sources   map[string]*mixerSourceEntry
	neverDone bool
	late      []lateCommand
	count     atomic.Int32
}

// NewMixerSource creates an empty MixerSource fixed at format.
func NewMixerSource(name, id string, format audio.Format) *MixerSource {
	return &MixerSource{
		name:    name,
		id:      id,
		format:  format,
		out:     audio.NewPort("out"),
		sources: make(map[string]*mixerSourceEntry),
	}
}

func (m *MixerSource) ID() string   { return m.id }
func (m *MixerSource) Name() string { return m.name }
func (m *MixerSource) Type() string { return "MixerSource" }

func (m *MixerSource) IsSource() bool { return true }

func (m *MixerSource) IsSourceDone() bool {
	if m.neverDone {
		return false
	}
	return len(m.sources) == 0
}

func (m *MixerSource) NumOutputPorts() int          { return 1 }
func (m *MixerSource) OutputPort(i int) *audio.Port {
	if i == 0 {
		return m.out
	}
	panic("elements: mixer source has no such output port")
}

// SetNeverDone controls whether IsSourceDone ever reports true; the
// engine's persistent effect/music buses run with this enabled so an
// empty mixer doesn't end the surrounding graph.
func (m *MixerSource) SetNeverDone(on bool) { m.neverDone = on }

// AddSource attaches element under its own name, optionally starting
// paused.
func (m *MixerSource) AddSource(element audio.Element, paused bool) {
	m.sources[element.Name()] = &mixerSourceEntry{element: element, paused: paused}
	m.count.Store(int32(len(m.sources)))
}

// DeleteSources removes every source without producing done events; used
// for a hard reset.
func (m *MixerSource) DeleteSources() {
	for _, entry := range m.sources {
		entry.element.Shutdown()
	}
	m.sources = make(map[string]*mixerSourceEntry)
	m.count.Store(0)
}

// DeleteSource removes the named source, if present.
func (m *MixerSource) DeleteSource(name string) {
	if entry, ok := m.sources[name]; ok {
		entry.element.Shutdown()
		delete(m.sources, name)
		m.count.Store(int32(len(m.sources)))
	}
}

// SourceCount returns the number of sources currently attached, safe to
// call from any goroutine (e.g. a metrics scrape) while the graph's own
// worker mutates the source map concurrently.
func (m *MixerSource) SourceCount() int { return int(m.count.Load()) }

// PauseSource pauses or resumes the named source.
func (m *MixerSource) PauseSource(name string, paused bool) {
	if entry, ok := m.sources[name]; ok {
		entry.paused = paused
	}
}

// SetSourceEffect replaces whatever effect is running on the named
// source.
func (m *MixerSource) SetSourceEffect(name string, effect MixerEffect) {
	if entry, ok := m.sources[name]; ok {
		entry.effect = effect
	}
}

func (m *MixerSource) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	m.out.SetFormat(m.format)
	sourceParams := params
	sourceParams.SuggestedFormat = m.format
	for _, entry := range m.sources {
		if !entry.element.Prepare(loader, sourceParams) {
			return false
		}
	}
	return true
}

func (m *MixerSource) Advance(milliseconds uint) {
	for _, entry := range m.sources {
		entry.element.Advance(milliseconds)
		if entry.effect != nil && !entry.paused {
			entry.effect.Advance(milliseconds)
		}
	}
	m.advanceLateCommands(milliseconds)
}

func (m *MixerSource) advanceLateCommands(milliseconds uint) {
	remaining := m.late[:0]
	for i := range m.late {
		cmd := m.late[i]
		cmd.remainingMillis -= float64(milliseconds)
		if cmd.remainingMillis <= 0 {
			cmd.exec(m)
			continue
		}
		remaining = append(remaining, cmd)
	}
	m.late = remaining
}

// scheduleLate enqueues exec to run once delayMillis of stream time has
// elapsed, or runs it immediately when delayMillis is 0.
func (m *MixerSource) scheduleLate(target string, delayMillis uint, exec func(*MixerSource)) {
	if delayMillis == 0 {
		exec(m)
		return
	}
	m.late = append(m.late, lateCommand{target: target, remainingMillis: float64(delayMillis), exec: exec})
}

// cancelLate drops any pending late command addressed to target.
func (m *MixerSource) cancelLate(target string) {
	remaining := m.late[:0]
	for _, cmd := range m.late {
		if cmd.target != target {
			remaining = append(remaining, cmd)
		}
	}
	m.late = remaining
}

func (m *MixerSource) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	var mixed audio.Buffer

	for name, entry := range m.sources {
		if entry.paused {
			continue
		}
		if entry.element.IsSource() && entry.element.IsSourceDone() {
			continue
		}

		entry.element.Process(allocator, events, milliseconds)
		out := entry.element.OutputPort(0)
		buf, ok := out.PullBuffer()
		if !ok {
			continue
		}

		if entry.effect != nil {
			entry.effect.Apply(buf)
		}

		if mixed == nil {
			mixed = allocator.Allocate(buf.ByteSize())
			mixed.SetFormat(buf.Format())
			copy(mixed.Bytes(), buf.Bytes())
		} else {
			mixSamples(mixed.Format(), mixed.Bytes(), buf.Bytes())
		}
		buf.Release()

		if entry.effect != nil && entry.effect.IsDone() {
			done := entry.effect
			entry.effect = nil
			events.Push(MixerEffectDoneEvent{Mixer: m.name, Source: name, Effect: done})
		}
	}

	m.removeDoneSources(events)

	if mixed != nil {
		if !m.out.PushBuffer(mixed) {
			mixed.Release()
		}
	}
}

func (m *MixerSource) removeDoneSources(events *audio.EventQueue) {
	for name, entry := range m.sources {
		if entry.element.IsSource() && entry.element.IsSourceDone() {
			delete(m.sources, name)
			events.Push(MixerSourceDoneEvent{Mixer: m.name, Source: entry.element})
		}
	}
	m.count.Store(int32(len(m.sources)))
}

func (m *MixerSource) ReceiveCommand(cmd audio.Command) {
	switch c := cmd.Payload.(type) {
	case MixerSourceAddSourceCmd:
		m.AddSource(c.Source, c.Paused)
	case MixerSourceDeleteAllCmd:
		m.scheduleLate("", c.Millisecs, func(m *MixerSource) { m.DeleteSources() })
	case MixerSourceDeleteSourceCmd:
		name := c.Name
		m.scheduleLate(name, c.Millisecs, func(m *MixerSource) { m.DeleteSource(name) })
	case MixerSourcePauseCmd:
		name, paused := c.Name, c.Paused
		m.scheduleLate(name, c.Millisecs, func(m *MixerSource) { m.PauseSource(name, paused) })
	case MixerSourceCancelCmd:
		m.cancelLate(c.Name)
	case MixerSourceSetEffectCmd:
		m.SetSourceEffect(c.Name, c.Effect)
	}
}

func (m *MixerSource) DispatchCommand(dest string, cmd audio.Command) bool {
	if m.name == dest {
		m.ReceiveCommand(cmd)
		return true
	}
	for _, entry := range m.sources {
		if entry.element.DispatchCommand(dest, cmd) {
			return true
		}
	}
	return false
}
