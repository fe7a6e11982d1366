// Package elements provides the built-in processing elements (Gain,
// Effect, StereoMaker, Mixer, Queue, Null, FileSource, MixerSource,
// ZeroSource), the element registry used to turn declarative GraphClass
// documents into live graphs, and the instantiation logic that builds a
// graph from one.
package elements

import (
	"encoding/binary"
	"math"

	"github.com/kestrelaudio/graphcore/internal/audio"
)

// forEachSample walks every sample of data, interpreted per format's
// SampleType, calling fn(sampleIndex, value) and writing back fn's
// result, clamped to the sample type's range. It is the one place the
// per-type scaling math used by Gain, Effect and MixerSource's fade
// effects lives.
func forEachSample(format audio.Format, data []byte, fn func(i int, v float64) float64) {
	switch format.SampleType {
	case audio.SampleTypeFloat32:
		n := len(data) / 4
		for i := 0; i < n; i++ {
			off := i * 4
			v := float64(math.Float32frombits(binary.LittleEndian.Uint32(data[off:])))
			v = fn(i, v)
			binary.LittleEndian.PutUint32(data[off:], math.Float32bits(float32(v)))
		}
	case audio.SampleTypeInt16:
		n := len(data) / 2
		for i := 0; i < n; i++ {
			off := i * 2
			v := float64(int16(binary.LittleEndian.Uint16(data[off:])))
			v = fn(i, v)
			data[off], data[off+1] = clampInt16(v)
		}
	case audio.SampleTypeInt32:
		n := len(data) / 4
		for i := 0; i < n; i++ {
			off := i * 4
			v := float64(int32(binary.LittleEndian.Uint32(data[off:])))
			v = fn(i, v)
			binary.LittleEndian.PutUint32(data[off:], uint32(clampInt32(v)))
		}
	}
}

func clampInt16(v float64) (byte, byte) {
	if v > 32767 {
		v = 32767
	} else if v < -32768 {
		v = -32768
	}
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], uint16(int16(v)))
	return b[0], b[1]
}

func clampInt32(v float64) int32 {
	if v > math.MaxInt32 {
		return math.MaxInt32
	}
	if v < math.MinInt32 {
		return math.MinInt32
	}
	return int32(v)
}

// mixSamples adds src into dst (both interpreted per format), saturating
// at the sample type's range. Used by Mixer and MixerSource.
func mixSamples(format audio.Format, dst, src []byte) {
	n := len(dst)
	if len(src) < n {
		n = len(src)
	}
	switch format.SampleType {
	case audio.SampleTypeFloat32:
		for off := 0; off+4 <= n; off += 4 {
			a := math.Float32frombits(binary.LittleEndian.Uint32(dst[off:]))
			b := math.Float32frombits(binary.LittleEndian.Uint32(src[off:]))
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(a+b))
		}
	case audio.SampleTypeInt16:
		for off := 0; off+2 <= n; off += 2 {
			a := int16(binary.LittleEndian.Uint16(dst[off:]))
			b := int16(binary.LittleEndian.Uint16(src[off:]))
			sum := float64(a) + float64(b)
			dst[off], dst[off+1] = clampInt16(sum)
		}
	case audio.SampleTypeInt32:
		for off := 0; off+4 <= n; off += 4 {
			a := int32(binary.LittleEndian.Uint32(dst[off:]))
			b := int32(binary.LittleEndian.Uint32(src[off:]))
			sum := float64(a) + float64(b)
			binary.LittleEndian.PutUint32(dst[off:], uint32(clampInt32(sum)))
		}
	}
}
