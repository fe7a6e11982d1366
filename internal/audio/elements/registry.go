package elements

import (
	"sort"
	"sync"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/errors"
)

type elementFactory func(args audio.ElementCreateArgs) (audio.Element, error)

var (
	registryMu sync.RWMutex
	factories  = map[string]elementFactory{
		"Gain":        buildGain,
		"Effect":      buildEffect,
		"StereoMaker": buildStereoMaker,
		"Mixer":       buildMixer,
		"Queue":       buildQueue,
		"Null":        buildNull,
		"ZeroSource":  buildZeroSource,
		"FileSource":  buildFileSource,
		"MixerSource": buildMixerSource,
	}
	descriptors = map[string]audio.ElementDesc{
		"Gain": {
			InputPorts:  []audio.PortDesc{{Name: "in"}},
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args:        map[string]audio.ElementArg{"gain": float32(1.0)},
		},
		"Effect": {
			InputPorts:  []audio.PortDesc{{Name: "in"}},
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args: map[string]audio.ElementArg{
				"time":     uint(0),
				"duration": uint(0),
				"kind":     audio.EffectKindFadeIn,
			},
		},
		"StereoMaker": {
			InputPorts:  []audio.PortDesc{{Name: "in"}},
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args:        map[string]audio.ElementArg{"channel": audio.ChannelLeft},
		},
		"Mixer": {
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args:        map[string]audio.ElementArg{"num_srcs": uint(2)},
		},
		"Queue": {
			InputPorts:  []audio.PortDesc{{Name: "in"}},
			OutputPorts: []audio.PortDesc{{Name: "out"}},
		},
		"Null": {
			InputPorts: []audio.PortDesc{{Name: "in"}},
		},
		"ZeroSource": {
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args: map[string]audio.ElementArg{
				"format":      audio.Format{},
				"duration_ms": uint(0),
			},
		},
		"FileSource": {
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args: map[string]audio.ElementArg{
				"file":        "",
				"sample_type": audio.SampleTypeInt16,
				"loop_count":  uint(1),
			},
		},
		"MixerSource": {
			OutputPorts: []audio.PortDesc{{Name: "out"}},
			Args: map[string]audio.ElementArg{
				"format":     audio.Format{},
				"never_done": false,
			},
		},
	}
)

// RegisterElement adds or replaces a factory for a user-defined element
// type, so declarative GraphClass documents can reference it.
func RegisterElement(elementType string, desc audio.ElementDesc, factory func(audio.ElementCreateArgs) (audio.Element, error)) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[elementType] = factory
	descriptors[elementType] = desc
}

// FindElementDesc returns the shape of elementType, if registered.
func FindElementDesc(elementType string) (audio.ElementDesc, bool) {
	registryMu.RLock()
	defer registryMu.RUnlock()
	desc, ok := descriptors[elementType]
	return desc, ok
}

// ListAudioElements returns every registered element type name, sorted.
func ListAudioElements() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	names := make([]string, 0, len(descriptors))
	for name := range descriptors {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CreateElement instantiates the element declared by args.
func CreateElement(args audio.ElementCreateArgs) (audio.Element, error) {
	registryMu.RLock()
	factory, ok := factories[args.Type]
	registryMu.RUnlock()
	if !ok {
		return nil, errors.Newf("no registered element type %q", args.Type).
			Category(errors.CategoryValidation).
			Context("element", args.Name).
			Build()
	}
	return factory(args)
}

// ClearCaches drops any cached decode results held by elements that cache
// (currently FileSource, via the caches threaded through PrepareParams;
// this exists so long-running hosts can reclaim memory between graphs).
func ClearCaches(pcm *audio.PCMCache, fileInfo *audio.FileInfoCache) {
	if pcm != nil {
		pcm.Clear()
	}
	if fileInfo != nil {
		fileInfo.Clear()
	}
}

func argOr[T any](args map[string]audio.ElementArg, name string, fallback T) T {
	if v, ok := audio.FindElementArg[T](args, name); ok {
		return v
	}
	return fallback
}

func buildGain(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewGain(args.Name, args.ID, argOr(args.Args, "gain", float32(1.0))), nil
}

func buildEffect(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewEffect(args.Name, args.ID,
		argOr(args.Args, "time", uint(0)),
		argOr(args.Args, "duration", uint(0)),
		argOr(args.Args, "kind", audio.EffectKindFadeIn)), nil
}

func buildStereoMaker(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewStereoMaker(args.Name, args.ID, argOr(args.Args, "channel", audio.ChannelLeft)), nil
}

func buildMixer(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewMixer(args.Name, args.ID, int(argOr(args.Args, "num_srcs", uint(2)))), nil
}

func buildQueue(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewQueue(args.Name, args.ID), nil
}

func buildNull(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewNull(args.Name, args.ID), nil
}

func buildZeroSource(args audio.ElementCreateArgs) (audio.Element, error) {
	return NewZeroSource(args.Name, args.ID,
		argOr(args.Args, "format", audio.Format{}),
		argOr(args.Args, "duration_ms", uint(0))), nil
}

func buildFileSource(args audio.ElementCreateArgs) (audio.Element, error) {
	fs := NewFileSource(args.Name, args.ID,
		argOr(args.Args, "file", ""),
		argOr(args.Args, "sample_type", audio.SampleTypeInt16),
		argOr(args.Args, "loop_count", uint(1)))
	fs.EnablePCMCaching(argOr(args.Args, "enable_pcm_caching", false))
	fs.EnableFileCaching(argOr(args.Args, "enable_file_caching", false))
	return fs, nil
}

func buildMixerSource(args audio.ElementCreateArgs) (audio.Element, error) {
	ms := NewMixerSource(args.Name, args.ID, argOr(args.Args, "format", audio.Format{}))
	ms.SetNeverDone(argOr(args.Args, "never_done", false))
	return ms, nil
}
