// Package audio implements the processing graph: formats, buffers, ports,
// the element contract, the topologically scheduled graph evaluator, the
// declarative graph class, and the adapters that turn a graph into a byte
// stream for a playback device.
package audio

import "fmt"

// SampleType is the underlying PCM sample representation.
type SampleType int

const (
	SampleTypeNotSet SampleType = iota
	SampleTypeFloat32
	SampleTypeInt16
	SampleTypeInt32
)

func (t SampleType) String() string {
	switch t {
	case SampleTypeFloat32:
		return "Float32"
	case SampleTypeInt16:
		return "Int16"
	case SampleTypeInt32:
		return "Int32"
	default:
		return "NotSet"
	}
}

// BytesPerSample returns the storage size of one sample of this type.
func (t SampleType) BytesPerSample() int {
	switch t {
	case SampleTypeFloat32, SampleTypeInt32:
		return 4
	case SampleTypeInt16:
		return 2
	default:
		return 0
	}
}

// Format describes a PCM stream: sample representation, rate and channel
// count. The zero value is NotSet and never valid.
type Format struct {
	SampleType   SampleType
	SampleRate   uint
	ChannelCount uint
}

// IsValid reports whether the format has a positive sample rate and a
// mono or stereo channel count.
func (f Format) IsValid() bool {
	if f.SampleRate == 0 {
		return false
	}
	return f.ChannelCount == 1 || f.ChannelCount == 2
}

// Equal reports field-wise equality.
func (f Format) Equal(o Format) bool {
	return f.SampleType == o.SampleType && f.SampleRate == o.SampleRate && f.ChannelCount == o.ChannelCount
}

// FrameSizeBytes is channels * bytes-per-sample. Panics if the sample type
// is unset, mirroring the BUG() assertion in the element this was modeled
// on: callers must only ask this of a format that has been negotiated.
func (f Format) FrameSizeBytes() uint {
	bps := f.SampleType.BytesPerSample()
	if bps == 0 {
		panic("audio: frame size requested for an unset sample type")
	}
	return f.ChannelCount * uint(bps)
}

// MillisecondByteCount is the number of bytes corresponding to one
// millisecond of audio at this format, i.e. (rate/1000) * frame size.
func (f Format) MillisecondByteCount() uint {
	return (f.SampleRate / 1000) * f.FrameSizeBytes()
}

func (f Format) String() string {
	var cc string
	switch f.ChannelCount {
	case 0:
		cc = "None"
	case 1:
		cc = "Mono"
	case 2:
		cc = "Stereo"
	default:
		cc = fmt.Sprintf("%d", f.ChannelCount)
	}
	return fmt.Sprintf("%s, %s @ %dHz", f.SampleType, cc, f.SampleRate)
}
