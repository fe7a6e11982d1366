package audio

import (
	"encoding/json"
	"fmt"
	"hash/fnv"
	"sort"
	"strings"

	"github.com/kestrelaudio/graphcore/internal/errors"
)


// LinkDesc is one declared edge in a GraphClass: the output port named
// SrcPort of the element with id SrcElement feeds the input port named
// DstPort of the element with id DstElement.
type LinkDesc struct {
	ID         string `json:"id"`
	SrcElement string `json:"src_element"`
	SrcPort    string `json:"src_port"`
	DstElement string `json:"dst_element"`
	DstPort    string `json:"dst_port"`
}

// GraphClass is the declarative, JSON-serializable description of a graph:
// which elements exist, how they're linked, and which element/port feeds
// the graph's own output. Graph.Prepare/Process never sees a GraphClass
// directly; the elements package turns one into a live *Graph.
type GraphClass struct {
	Name        string
	ID          string
	SrcElemID   string
	SrcElemPort string
	Links       []LinkDesc
	Elements    []ElementCreateArgs
}

// NewGraphClass starts an empty, unlinked graph class.
func NewGraphClass(name, id string) *GraphClass {
	return &GraphClass{Name: name, ID: id}
}

// AddElement appends a declared element instance.
func (g *GraphClass) AddElement(e ElementCreateArgs) {
	g.Elements = append(g.Elements, e)
}

// AddLink appends a declared edge.
func (g *GraphClass) AddLink(l LinkDesc) {
	g.Links = append(g.Links, l)
}

// SetOutput designates which element and output port feeds the graph's own
// output port once instantiated.
func (g *GraphClass) SetOutput(elementID, port string) {
	g.SrcElemID = elementID
	g.SrcElemPort = port
}

// Hash combines every field that affects the instantiated graph's
// behavior into a single value, stable across processes, so two
// GraphClass values that would build identical graphs hash identically.
func (g *GraphClass) Hash() uint64 {
	h := fnv.New64a()
	write := func(s string) {
		h.Write([]byte(s))
		h.Write([]byte{0})
	}

	write(g.Name)
	write(g.ID)
	write(g.SrcElemID)
	write(g.SrcElemPort)

	for _, l := range g.Links {
		write(l.ID)
		write(l.SrcPort)
		write(l.SrcElement)
		write(l.DstPort)
		write(l.DstElement)
	}

	for _, e := range g.Elements {
		write(e.ID)
		write(e.Name)
		write(e.Type)
		keys := make([]string, 0, len(e.Args))
		for k := range e.Args {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			write(k)
			write(fmt.Sprint(e.Args[k]))
		}
	}

	return h.Sum64()
}

type graphClassWire struct {
	Name        string              `json:"name"`
	ID          string              `json:"id"`
	SrcElemID   string              `json:"src_elem_id"`
	SrcElemPort string              `json:"src_elem_port"`
	Links       []LinkDesc          `json:"links"`
	Elements    []ElementCreateArgs `json:"elements"`
}

// IntoJSON serializes the graph class per the declarative contract: a
// top-level name/id/src_elem_id/src_elem_port/links/elements document with
// each element's args flattened into arg_<name> keys.
func (g *GraphClass) IntoJSON() ([]byte, error) {
	wire := graphClassWire{
		Name:        g.Name,
		ID:          g.ID,
		SrcElemID:   g.SrcElemID,
		SrcElemPort: g.SrcElemPort,
		Links:       g.Links,
		Elements:    g.Elements,
	}
	data, err := json.MarshalIndent(wire, "", "  ")
	if err != nil {
		return nil, errors.Wrap(fmt.Errorf("marshaling graph class to json: %w", err)).
			Category(errors.CategoryValidation).
			Context("graph_class", g.Name).
			Build()
	}
	return data, nil
}

// GraphClassFromJSON parses a declarative graph class document.
func GraphClassFromJSON(data []byte) (*GraphClass, error) {
	var wire graphClassWire
	if err := json.Unmarshal(data, &wire); err != nil {
		return nil, errors.Wrap(fmt.Errorf("parsing graph class json: %w", err)).
			Category(errors.CategoryValidation).
			Build()
	}
	return &GraphClass{
		Name:        wire.Name,
		ID:          wire.ID,
		SrcElemID:   wire.SrcElemID,
		SrcElemPort: wire.SrcElemPort,
		Links:       wire.Links,
		Elements:    wire.Elements,
	}, nil
}

// argWire is the on-disk shape of one ElementArg: a type tag plus its raw
// JSON value, needed because ElementArg itself is an untyped `any` over a
// closed set of Go types that json alone can't round-trip unambiguously.
type argWire struct {
	Type  string          `json:"type"`
	Value json.RawMessage `json:"value"`
}

func encodeArg(v ElementArg) (argWire, error) {
	switch val := v.(type) {
	case string:
		raw, _ := json.Marshal(val)
		return argWire{Type: "string", Value: raw}, nil
	case float32:
		raw, _ := json.Marshal(val)
		return argWire{Type: "float32", Value: raw}, nil
	case uint:
		raw, _ := json.Marshal(val)
		return argWire{Type: "uint", Value: raw}, nil
	case bool:
		raw, _ := json.Marshal(val)
		return argWire{Type: "bool", Value: raw}, nil
	case SampleType:
		raw, _ := json.Marshal(int(val))
		return argWire{Type: "sample_type", Value: raw}, nil
	case Format:
		raw, err := json.Marshal(struct {
			SampleType   int  `json:"sample_type"`
			SampleRate   uint `json:"sample_rate"`
			ChannelCount uint `json:"channel_count"`
		}{int(val.SampleType), val.SampleRate, val.ChannelCount})
		if err != nil {
			return argWire{}, err
		}
		return argWire{Type: "format", Value: raw}, nil
	case IOStrategy:
		raw, _ := json.Marshal(int(val))
		return argWire{Type: "io_strategy", Value: raw}, nil
	case StereoChannel:
		raw, _ := json.Marshal(int(val))
		return argWire{Type: "stereo_channel", Value: raw}, nil
	case EffectKind:
		raw, _ := json.Marshal(int(val))
		return argWire{Type: "effect_kind", Value: raw}, nil
	default:
		return argWire{}, errors.Newf("element arg of unsupported type %T", v).
			Category(errors.CategoryValidation).
			Build()
	}
}

func decodeArg(w argWire) (ElementArg, error) {
	switch w.Type {
	case "string":
		var s string
		err := json.Unmarshal(w.Value, &s)
		return s, err
	case "float32":
		var f float32
		err := json.Unmarshal(w.Value, &f)
		return f, err
	case "uint":
		var u uint
		err := json.Unmarshal(w.Value, &u)
		return u, err
	case "bool":
		var b bool
		err := json.Unmarshal(w.Value, &b)
		return b, err
	case "sample_type":
		var i int
		err := json.Unmarshal(w.Value, &i)
		return SampleType(i), err
	case "format":
		var f struct {
			SampleType   int  `json:"sample_type"`
			SampleRate   uint `json:"sample_rate"`
			ChannelCount uint `json:"channel_count"`
		}
		if err := json.Unmarshal(w.Value, &f); err != nil {
			return nil, err
		}
		return Format{SampleType: SampleType(f.SampleType), SampleRate: f.SampleRate, ChannelCount: f.ChannelCount}, nil
	case "io_strategy":
		var i int
		err := json.Unmarshal(w.Value, &i)
		return IOStrategy(i), err
	case "stereo_channel":
		var i int
		err := json.Unmarshal(w.Value, &i)
		return StereoChannel(i), err
	case "effect_kind":
		var i int
		err := json.Unmarshal(w.Value, &i)
		return EffectKind(i), err
	default:
		return nil, errors.Newf("element arg of unknown wire type %q", w.Type).
			Category(errors.CategoryValidation).
			Build()
	}
}

// MarshalJSON flattens Args into arg_<name> keys alongside id/name/type.
func (e ElementCreateArgs) MarshalJSON() ([]byte, error) {
	m := map[string]any{
		"id":   e.ID,
		"name": e.Name,
		"type": e.Type,
	}
	for name, v := range e.Args {
		wire, err := encodeArg(v)
		if err != nil {
			return nil, errors.Wrap(fmt.Errorf("encoding element arg %q: %w", name, err)).
				Context("element", e.Name).
				Context("arg", name).
				Build()
		}
		m["arg_"+name] = wire
	}
	return json.Marshal(m)
}

// UnmarshalJSON reverses MarshalJSON.
func (e *ElementCreateArgs) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if v, ok := raw["id"]; ok {
		if err := json.Unmarshal(v, &e.ID); err != nil {
			return err
		}
	}
	if v, ok := raw["name"]; ok {
		if err := json.Unmarshal(v, &e.Name); err != nil {
			return err
		}
	}
	if v, ok := raw["type"]; ok {
		if err := json.Unmarshal(v, &e.Type); err != nil {
			return err
		}
	}
	e.Args = make(map[string]ElementArg)
	for k, v := range raw {
		if !strings.HasPrefix(k, "arg_") {
			continue
		}
		var wire argWire
		if err := json.Unmarshal(v, &wire); err != nil {
			return err
		}
		val, err := decodeArg(wire)
		if err != nil {
			argName := strings.TrimPrefix(k, "arg_")
			return errors.Wrap(fmt.Errorf("decoding element arg %q: %w", argName, err)).
				Context("element", e.Name).
				Context("arg", argName).
				Build()
		}
		e.Args[strings.TrimPrefix(k, "arg_")] = val
	}
	return nil
}
