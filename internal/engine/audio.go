// Package engine multiplexes music and one-shot sound effect streams onto
// a single playback device, wiring together the graph, thread-proxy and
// player layers of internal/audio into the fixed shape described below.
package engine

import (
	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/audio/elements"
	"github.com/kestrelaudio/graphcore/internal/errors"
	"github.com/kestrelaudio/graphcore/internal/logging"
)

// EventType distinguishes the engine-level events surfaced through Update.
type EventType int

const (
	TrackDone EventType = iota
	EffectDone
)

// Event is the engine's re-export of the mixer-level done events, tagged
// with which bus (music or sound effect) produced it.
type Event struct {
	Type   EventType
	Track  string
	Source string // "music" or "effect"
}

// EventQueue accumulates Events across an Update call.
type EventQueue struct {
	events []Event
}

func (q *EventQueue) push(e Event) { q.events = append(q.events, e) }

// Drain removes and returns every queued event.
func (q *EventQueue) Drain() []Event {
	out := q.events
	q.events = nil
	return out
}

// Effect selects a fade shape for SetMusicEffect.
type Effect int

const (
	EffectFadeIn Effect = iota
	EffectFadeOut
)

// GraphHandle is an immutable, shareable graph declaration the caller
// builds once (e.g. loaded from a JSON asset) and hands to PlayMusic or
// PlaySoundEffect as many times as needed.
type GraphHandle = *audio.GraphClass

const (
	musicMixerName  = "music_mixer"
	musicGainName   = "music_gain"
	effectMixerName = "effect_mixer"
	effectGainName  = "effect_gain"
	mainMixerName   = "mixer"
)

// AudioEngine owns the standard engine graph (a mixer with two never-done
// MixerSource buses, one for music and one for sound effects, each behind
// its own gain stage) driven through a single ThreadProxySource and
// Player. PlayMusic/PlaySoundEffect each build a fresh per-track graph from
// a GraphHandle and add it as a named source on the matching bus.
type AudioEngine struct {
	name   string
	format audio.Format

	loader        audio.Loader
	decoderFact   audio.DecoderFactory
	pcmCache      *audio.PCMCache
	fileInfoCache *audio.FileInfoCache
	enableCaching bool
	enableEffects bool

	player  *audio.Player
	device  audio.PlaybackDevice
	graphID uint64

	musicMixer  *elements.MixerSource
	effectMixer *elements.MixerSource
}

// Config carries everything the engine needs to build its standard graph
// and wire decoding/caching.
type Config struct {
	Name          string
	Format        audio.Format
	Loader        audio.Loader
	DecoderFactory audio.DecoderFactory
	PCMCache      *audio.PCMCache
	FileInfoCache *audio.FileInfoCache
	EnableCaching bool
	EnableEffects bool
}

// DefaultFormat is 44.1kHz stereo Float32, the format every built-in
// graph in this package negotiates to.
func DefaultFormat() audio.Format {
	return audio.Format{SampleType: audio.SampleTypeFloat32, SampleRate: 44100, ChannelCount: 2}
}

// New creates an engine with the given configuration but does not yet
// touch any device; call Start to bring up playback.
func New(cfg Config) *AudioEngine {
	format := cfg.Format
	if !format.IsValid() {
		format = DefaultFormat()
	}
	return &AudioEngine{
		name:          cfg.Name,
		format:        format,
		loader:        cfg.Loader,
		decoderFact:   cfg.DecoderFactory,
		pcmCache:      cfg.PCMCache,
		fileInfoCache: cfg.FileInfoCache,
		enableCaching: cfg.EnableCaching,
		enableEffects: cfg.EnableEffects,
		player:        audio.NewPlayer(),
	}
}

// prepareParams is the PrepareParams every graph this engine builds shares.
func (e *AudioEngine) prepareParams() audio.PrepareParams {
	p := audio.PrepareParams{
		SuggestedFormat: e.format,
		DecoderFactory:  e.decoderFact,
	}
	if e.enableCaching {
		p.PCMCache = e.pcmCache
		p.FileInfoCache = e.fileInfoCache
	}
	return p
}

// Start builds the standard engine graph (mixer <- {effect_gain <-
// effect_mixer, music_gain <- music_mixer}), wraps it in a ThreadProxySource,
// and starts it playing against device.
func (e *AudioEngine) Start(device audio.PlaybackDevice) error {
	device.SetBufferSizeMillis(20)
	device.Format() // formats must already agree; engine never renegotiates the device

	g := audio.NewGraph(e.name, "audio-graph")

	mainMixer := elements.NewMixer(mainMixerName, "mixer-id", 2)
	effectMixer := elements.NewMixerSource(effectMixerName, "effect-mixer-id", e.format)
	effectGain := elements.NewGain(effectGainName, "effect-gain-id", 2.0)
	musicMixer := elements.NewMixerSource(musicMixerName, "music-mixer-id", e.format)
	musicGain := elements.NewGain(musicGainName, "music-gain-id", 2.0)

	effectMixer.SetNeverDone(true)
	musicMixer.SetNeverDone(true)

	g.AddElement(mainMixer)
	g.AddElement(effectMixer)
	g.AddElement(effectGain)
	g.AddElement(musicMixer)
	g.AddElement(musicGain)

	if !g.LinkElementsByName(effectMixerName, "out", effectGainName, "in") ||
		!g.LinkElementsByName(effectGainName, "out", mainMixerName, "in0") ||
		!g.LinkElementsByName(musicMixerName, "out", musicGainName, "in") ||
		!g.LinkElementsByName(musicGainName, "out", mainMixerName, "in1") ||
		!g.LinkGraphByName(mainMixerName, "out") {
		return errors.Newf("audio engine: failed to wire standard graph").
			Category(errors.CategoryPreparation).
			Build()
	}

	allocator := audio.NewBufferPool(audio.DefaultBufferPoolConfig())
	graphSource := audio.NewAudioGraphSource(g, allocator)
	proxy := audio.NewThreadProxySource(graphSource, int(e.format.MillisecondByteCount())*20*4, 4)

	id, err := e.player.Play(proxy, device, e.loader, e.prepareParams())
	if err != nil {
		return errors.Wrap(err).Category(errors.CategoryPreparation).Build()
	}
	e.device = device
	e.graphID = id
	e.musicMixer = musicMixer
	e.effectMixer = effectMixer
	logging.Info("audio engine started", "graph_id", id, "format", e.format.String())
	return nil
}

// StreamCount reports how many streams the player currently owns,
// satisfying metrics.StreamCountProvider.
func (e *AudioEngine) StreamCount() int { return e.player.StreamCount() }

// MixerSourceCounts reports the number of tracks/effects currently on each
// bus, satisfying metrics.MixerSourceStats.
func (e *AudioEngine) MixerSourceCounts() map[string]int {
	counts := make(map[string]int, 2)
	if e.musicMixer != nil {
		counts["music"] = e.musicMixer.SourceCount()
	}
	if e.effectMixer != nil {
		counts["effect"] = e.effectMixer.SourceCount()
	}
	return counts
}

// Stop cancels the standard graph stream and tears down the device.
func (e *AudioEngine) Stop() {
	if e.graphID != 0 {
		e.player.Cancel(e.graphID)
		e.graphID = 0
	}
}

// SetDebugPause pauses or resumes the whole engine output.
func (e *AudioEngine) SetDebugPause(on bool) {
	if on {
		e.player.Pause(e.graphID)
	} else {
		e.player.Resume(e.graphID)
	}
}

func (e *AudioEngine) sendCommand(dest string, payload any) {
	if !e.player.SendCommand(e.graphID, dest, payload) {
		logging.Warn("audio engine: command had no destination", "dest", dest)
	}
}

// PlayMusic prepares graph's music track and schedules it to start playing
// after when milliseconds of stream time.
func (e *AudioEngine) PlayMusic(graph GraphHandle, when uint) error {
	instance, err := elements.BuildGraph(graph)
	if err != nil {
		return errors.Wrap(err).Category(errors.CategoryPreparation).Build()
	}
	if !instance.Prepare(e.loader, e.prepareParams()) {
		return errors.Newf("audio engine: music graph %q failed to prepare", graph.Name).
			Category(errors.CategoryPreparation).
			Build()
	}
	if out := instance.OutputPort(0); !out.Format().Equal(e.format) {
		return errors.Newf("audio engine: music graph %q has incompatible output format %s", graph.Name, out.Format()).
			Category(errors.CategoryValidation).
			Build()
	}

	e.sendCommand(musicMixerName, elements.MixerSourceAddSourceCmd{Source: instance, Paused: true})
	e.sendCommand(musicMixerName, elements.MixerSourcePauseCmd{Name: graph.Name, Paused: false, Millisecs: when})
	return nil
}

// PauseMusic pauses the named music track after when milliseconds.
func (e *AudioEngine) PauseMusic(track string, when uint) {
	e.sendCommand(musicMixerName, elements.MixerSourcePauseCmd{Name: track, Paused: true, Millisecs: when})
}

// ResumeMusic resumes the named music track after when milliseconds.
func (e *AudioEngine) ResumeMusic(track string, when uint) {
	e.sendCommand(musicMixerName, elements.MixerSourcePauseCmd{Name: track, Paused: false, Millisecs: when})
}

// KillMusic removes the named music track after when milliseconds.
func (e *AudioEngine) KillMusic(track string, when uint) {
	e.sendCommand(musicMixerName, elements.MixerSourceDeleteSourceCmd{Name: track, Millisecs: when})
}

// KillAllMusic removes every music track after when milliseconds.
func (e *AudioEngine) KillAllMusic(when uint) {
	e.sendCommand(musicMixerName, elements.MixerSourceDeleteAllCmd{Millisecs: when})
}

// CancelMusicCmds drops any late-scheduled command still pending on track.
func (e *AudioEngine) CancelMusicCmds(track string) {
	e.sendCommand(musicMixerName, elements.MixerSourceCancelCmd{Name: track})
}

// SetMusicEffect applies a fade effect to the named music track.
func (e *AudioEngine) SetMusicEffect(track string, duration uint, effect Effect) {
	var mixerEffect elements.MixerEffect
	switch effect {
	case EffectFadeIn:
		mixerEffect = elements.NewFadeIn(duration)
	case EffectFadeOut:
		mixerEffect = elements.NewFadeOut(duration)
	}
	e.sendCommand(musicMixerName, elements.MixerSourceSetEffectCmd{Name: track, Effect: mixerEffect})
}

// SetMusicGain changes the music bus's gain.
func (e *AudioEngine) SetMusicGain(gain float32) {
	e.sendCommand(musicGainName, elements.GainSetGainCmd{Gain: gain})
}

// PlaySoundEffect prepares and plays a one-shot effect graph under its
// handle's own name; triggering the same handle again before the first
// instance finishes replaces it as a source of that name on the effect bus.
func (e *AudioEngine) PlaySoundEffect(graph GraphHandle, when uint) error {
	if !e.enableEffects {
		return nil
	}
	name := graph.Name
	instance, err := elements.BuildGraph(graph)
	if err != nil {
		return errors.Wrap(err).Category(errors.CategoryPreparation).Build()
	}
	if !instance.Prepare(e.loader, e.prepareParams()) {
		return errors.Newf("audio engine: sound effect graph %q failed to prepare", name).
			Category(errors.CategoryPreparation).
			Build()
	}
	if out := instance.OutputPort(0); !out.Format().Equal(e.format) {
		return errors.Newf("audio engine: sound effect graph %q has incompatible output format %s", name, out.Format()).
			Category(errors.CategoryValidation).
			Build()
	}

	e.sendCommand(effectMixerName, elements.MixerSourceAddSourceCmd{Source: instance, Paused: true})
	e.sendCommand(effectMixerName, elements.MixerSourcePauseCmd{Name: name, Paused: false, Millisecs: when})
	return nil
}

// SetSoundEffectGain changes the sound effect bus's gain.
func (e *AudioEngine) SetSoundEffectGain(gain float32) {
	e.sendCommand(effectGainName, elements.GainSetGainCmd{Gain: gain})
}

// KillAllSoundEffects removes every playing sound effect after when
// milliseconds.
func (e *AudioEngine) KillAllSoundEffects(when uint) {
	e.sendCommand(effectMixerName, elements.MixerSourceDeleteAllCmd{Millisecs: when})
}

// KillSoundEffect removes the named sound effect after when milliseconds.
func (e *AudioEngine) KillSoundEffect(track string, when uint) {
	e.sendCommand(effectMixerName, elements.MixerSourceDeleteSourceCmd{Name: track, Millisecs: when})
}

// Update pumps pending player events into events, re-tagging mixer-level
// done events as engine-level Track/EffectDone events.
func (e *AudioEngine) Update(events *EventQueue) {
	for {
		ev, ok := e.player.GetEvent()
		if !ok {
			return
		}
		if ev.Complete != nil {
			logging.Debug("audio engine source event", "id", ev.Complete.ID, "status", ev.Complete.Status)
			continue
		}
		if ev.Source == nil || events == nil {
			continue
		}
		e.routeSourceEvent(ev.Source.Event, events)
	}
}

func (e *AudioEngine) routeSourceEvent(raw any, events *EventQueue) {
	switch ev := raw.(type) {
	case elements.MixerSourceDoneEvent:
		events.push(Event{Type: TrackDone, Track: ev.Source.Name(), Source: busName(ev.Mixer)})
	case elements.MixerEffectDoneEvent:
		events.push(Event{Type: EffectDone, Track: ev.Source, Source: busName(ev.Mixer)})
	}
}

func busName(mixer string) string {
	switch mixer {
	case musicMixerName:
		return "music"
	case effectMixerName:
		return "effect"
	default:
		return mixer
	}
}
