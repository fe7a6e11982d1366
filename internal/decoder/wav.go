// Package decoder turns loaded file bytes into audio.Decoder streams.
// WAVFactory is the only concrete implementation today, built on
// go-audio/wav the way the rest of the pack decodes WAV files; anything
// else (FLAC, MP3) is a matter of adding another DecoderFactory, never a
// change to FileSource itself.
package decoder

import (
	"bytes"
	"encoding/binary"
	"math"

	goaudio "github.com/go-audio/audio"
	"github.com/go-audio/wav"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/errors"
)

// WAVFactory builds Decoders over in-memory WAV file bytes.
type WAVFactory struct{}

// NewDecoder parses the WAV header from data and returns a Decoder that
// yields PCM frames re-encoded to sampleType as it's read.
func (WAVFactory) NewDecoder(data []byte, sampleType audio.SampleType) (audio.Decoder, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return nil, errors.Newf("not a valid WAV file").
			Category(errors.CategoryDecoder).
			Build()
	}

	format := audio.Format{
		SampleType:   sampleType,
		SampleRate:   uint(dec.SampleRate),
		ChannelCount: uint(dec.NumChans),
	}
	if !format.IsValid() {
		return nil, errors.Newf("WAV file has unsupported channel count %d", dec.NumChans).
			Category(errors.CategoryDecoder).
			Build()
	}

	return &wavDecoder{dec: dec, data: data, format: format, bitDepth: int(dec.BitDepth)}, nil
}

// FileInfo inspects data without fully decoding it, for callers that only
// need duration/channel metadata (e.g. a cache warm pass).
func (WAVFactory) FileInfo(data []byte) (audio.FileInfo, error) {
	dec := wav.NewDecoder(bytes.NewReader(data))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return audio.FileInfo{}, errors.Newf("not a valid WAV file").
			Category(errors.CategoryDecoder).
			Build()
	}
	duration, err := dec.Duration()
	if err != nil {
		return audio.FileInfo{}, errors.Wrap(err).Category(errors.CategoryDecoder).Build()
	}
	frames := uint(float64(dec.SampleRate) * duration.Seconds())
	return audio.FileInfo{
		Channels:   uint(dec.NumChans),
		Frames:     frames,
		SampleRate: uint(dec.SampleRate),
		Seconds:    float32(duration.Seconds()),
		Bytes:      uint(len(data)),
	}, nil
}

type wavDecoder struct {
	dec      *wav.Decoder
	data     []byte
	format   audio.Format
	bitDepth int
	buf      *goaudio.IntBuffer
}

func (d *wavDecoder) Format() audio.Format { return d.format }

// Read decodes up to len(dst) bytes of PCM, re-encoded to d.format's
// SampleType, returning 0, nil at end of stream rather than io.EOF since
// FileSource treats exhaustion as a normal terminal condition.
func (d *wavDecoder) Read(dst []byte) (int, error) {
	frameBytes := d.format.FrameSizeBytes()
	if frameBytes == 0 {
		return 0, nil
	}
	wantFrames := len(dst) / int(frameBytes)
	if wantFrames == 0 {
		return 0, nil
	}

	if d.buf == nil || cap(d.buf.Data) < wantFrames*int(d.format.ChannelCount) {
		d.buf = &goaudio.IntBuffer{
			Data:   make([]int, wantFrames*int(d.format.ChannelCount)),
			Format: &goaudio.Format{SampleRate: int(d.format.SampleRate), NumChannels: int(d.format.ChannelCount)},
		}
	}
	d.buf.Data = d.buf.Data[:wantFrames*int(d.format.ChannelCount)]
	n, err := d.dec.PCMBuffer(d.buf)
	if err != nil {
		return 0, errors.Wrap(err).Category(errors.CategoryDecoder).Build()
	}
	if n == 0 {
		return 0, nil
	}

	written := d.encode(dst, d.buf.Data[:n])
	return written, nil
}

// encode converts decoded integer samples (at the file's own bit depth)
// into d.format.SampleType's byte representation.
func (d *wavDecoder) encode(dst []byte, samples []int) int {
	divisor := bitDepthDivisor(d.bitDepth)
	off := 0
	for _, s := range samples {
		switch d.format.SampleType {
		case audio.SampleTypeFloat32:
			v := float32(s) / divisor
			binary.LittleEndian.PutUint32(dst[off:], math.Float32bits(v))
			off += 4
		case audio.SampleTypeInt32:
			binary.LittleEndian.PutUint32(dst[off:], uint32(int32(s)))
			off += 4
		default: // SampleTypeInt16
			v := int16(float32(s) / divisor * 32767)
			binary.LittleEndian.PutUint16(dst[off:], uint16(v))
			off += 2
		}
	}
	return off
}

func bitDepthDivisor(bitDepth int) float32 {
	switch bitDepth {
	case 24:
		return 8388608.0
	case 32:
		return 2147483648.0
	default:
		return 32768.0
	}
}

// Seek repositions decoding at frame, counted from the start of the file.
// go-audio/wav's Decoder has no native frame seek, so this reopens the
// chunk reader over the original bytes and discards frames up to the
// target, which is cheap relative to decoding a whole loop's worth of
// audio and only runs when a source actually loops.
func (d *wavDecoder) Seek(frame int) error {
	dec := wav.NewDecoder(bytes.NewReader(d.data))
	dec.ReadInfo()
	if !dec.IsValidFile() {
		return errors.Newf("not a valid WAV file").
			Category(errors.CategoryDecoder).
			Build()
	}
	d.dec = dec
	d.buf = nil

	if frame <= 0 {
		return nil
	}
	frameBytes := int(d.format.FrameSizeBytes())
	if frameBytes == 0 {
		return nil
	}
	discard := make([]byte, 4096-(4096%frameBytes))
	remaining := frame
	for remaining > 0 {
		want := remaining * frameBytes
		if want > len(discard) {
			want = len(discard)
		}
		n, err := d.Read(discard[:want])
		if err != nil {
			return err
		}
		if n == 0 {
			break
		}
		remaining -= n / frameBytes
	}
	return nil
}

func (d *wavDecoder) Close() error { return nil }
