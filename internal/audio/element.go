package audio

// Loader resolves a content URI to bytes. FileSource asks its Loader to
// resolve a file during Prepare; production loaders may read from disk,
// an asset bundle, or a network cache.
type Loader interface {
	Load(uri string) ([]byte, error)
}

// PrepareParams carries whatever context an element needs beyond the
// Loader during preparation. It is intentionally small today; user-defined
// elements may grow it as the graph's use cases grow.
type PrepareParams struct {
	// SuggestedFormat is the format the embedding engine would prefer a
	// source element negotiate to, when the element has no format of its
	// own (e.g. FileSource's output format is fixed by the decoded file,
	// but a ZeroSource uses whatever it's configured with).
	SuggestedFormat Format
	// DecoderFactory lets FileSource turn loaded file bytes into a
	// Decoder without the audio package depending on any concrete codec.
	DecoderFactory DecoderFactory
	// PCMCache and FileInfoCache are shared, optional caches. FileSource
	// consults PCMCache before decoding a file fully; no built-in element
	// reads FileInfoCache. Either may be nil.
	PCMCache     *PCMCache
	FileInfoCache *FileInfoCache
}

// Command is a typed message addressed to a named element. Payload holds
// one of the element-specific command structs declared alongside each
// concrete element (GainSetGainCmd, EffectSetEffectCmd, MixerSource's
// Add/Delete/Pause/Cancel/SetEffect commands, and so on).
type Command struct {
	Dest    string
	Payload any
}

// EventQueue accumulates events emitted by elements during a Process tick.
// The graph owns one per evaluation; AudioGraphSource and the engine drain
// it after each tick.
type EventQueue struct {
	events []any
}

// Push appends an event.
func (q *EventQueue) Push(event any) { q.events = append(q.events, event) }

// Drain removes and returns all queued events.
func (q *EventQueue) Drain() []any {
	out := q.events
	q.events = nil
	return out
}

// Element is a node in the graph: a stable id, a human name, a type tag,
// some input/output ports, and a command inbox. Built-in elements satisfy
// this by embedding BaseElement and overriding what they need.
type Element interface {
	ID() string
	Name() string
	Type() string

	// IsSource reports whether the element can originate buffers without
	// any input.
	IsSource() bool
	// IsSourceDone reports whether a source element has no more buffers to
	// produce. Must be monotonic: once true, stays true.
	IsSourceDone() bool

	// Prepare establishes output port formats and fixed internal state.
	// Returns false on misconfiguration; the graph fails preparation as a
	// whole rather than partially prepare.
	Prepare(loader Loader, params PrepareParams) bool
	// Process consumes at most one buffer per input port, produces at most
	// one buffer per output port, for the given elapsed time, and may push
	// events.
	Process(allocator Allocator, events *EventQueue, milliseconds uint)
	// Advance progresses wall-clock time for elements that track time
	// without necessarily producing a buffer every tick (MixerSource's
	// late-command scheduling).
	Advance(milliseconds uint)
	// Shutdown releases any external resources (open files, pending async
	// tasks).
	Shutdown()

	NumInputPorts() int
	InputPort(index int) *Port
	NumOutputPorts() int
	OutputPort(index int) *Port

	// ReceiveCommand delivers a command addressed directly to this element.
	ReceiveCommand(cmd Command)
	// DispatchCommand routes cmd to the element named dest, recursing into
	// sub-graphs (Graph, MixerSource) by name. Returns true if a matching
	// destination was found anywhere in the subtree.
	DispatchCommand(dest string, cmd Command) bool
}

// BaseElement supplies no-op defaults for the parts of the Element
// interface most concrete elements don't need, so each element only
// overrides what's meaningful for it.
type BaseElement struct{}

func (BaseElement) IsSource() bool                               { return false }
func (BaseElement) IsSourceDone() bool                            { return false }
func (BaseElement) Advance(uint)                                  {}
func (BaseElement) Shutdown()                                     {}
func (BaseElement) ReceiveCommand(Command)                        {}
func (BaseElement) DispatchCommand(dest string, cmd Command) bool { return false }
func (BaseElement) NumInputPorts() int                            { return 0 }
func (BaseElement) InputPort(int) *Port                           { panic("audio: no such input port") }
func (BaseElement) NumOutputPorts() int                           { return 0 }
func (BaseElement) OutputPort(int) *Port                          { panic("audio: no such output port") }

// IOStrategy controls how FileSource opens its backing decoder.
type IOStrategy int

const (
	IOStrategyDefault IOStrategy = iota
	IOStrategyMemory
	IOStrategyStream
	IOStrategyAsync
)

// StereoChannel selects which channel a mono source is duplicated into by
// StereoMaker.
type StereoChannel int

const (
	ChannelLeft StereoChannel = iota
	ChannelRight
	ChannelBoth
)

// EffectKind selects the shape of an Effect/MixerSource fade.
type EffectKind int

const (
	EffectKindFadeIn EffectKind = iota
	EffectKindFadeOut
)

// ElementArg is a value of one of the closed set of types GraphClass args
// may hold: string, float32, uint, bool, SampleType, Format, IOStrategy,
// StereoChannel or EffectKind. It is a tagged union implemented as `any`
// rather than an interface type, since every case is a plain value type
// and callers type-assert via FindElementArg.
type ElementArg any

// FindElementArg looks up name in args and type-asserts it to T. The
// second return is false if the key is absent or holds a different type.
func FindElementArg[T any](args map[string]ElementArg, name string) (T, bool) {
	v, ok := args[name]
	if !ok {
		var zero T
		return zero, false
	}
	t, ok := v.(T)
	return t, ok
}

// ElementDesc describes an element type's shape for the registry: the
// ports it exposes and the schema (name -> zero value of the expected
// type) of the args GraphClass instances of this type carry.
type ElementDesc struct {
	InputPorts  []PortDesc
	OutputPorts []PortDesc
	Args        map[string]ElementArg
}

// ElementCreateArgs is the declarative description of one element instance
// inside a GraphClass: its id, name, type, and the concrete arg values
// used to construct it.
type ElementCreateArgs struct {
	ID          string
	Name        string
	Type        string
	Args        map[string]ElementArg
	InputPorts  []PortDesc
	OutputPorts []PortDesc
}
