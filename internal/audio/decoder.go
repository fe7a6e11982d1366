package audio

// Decoder turns a compressed or container-wrapped audio file into a
// stream of raw PCM frames at a fixed Format.
type Decoder interface {
	Format() Format
	// Read decodes into dst, returning the number of bytes written.
	// Returns 0, nil at end of stream rather than io.EOF, since callers
	// (FileSource) treat running out of frames as a normal terminal
	// condition rather than an error.
	Read(dst []byte) (int, error)
	// Seek repositions the decoder to the given frame, counted from the
	// start of the stream, so a source can loop without reopening the
	// underlying decoder.
	Seek(frame int) error
	Close() error
}

// DecoderFactory constructs a Decoder for a file's raw bytes, resampling
// or reinterpreting to the requested sample type as needed.
type DecoderFactory interface {
	NewDecoder(data []byte, sampleType SampleType) (Decoder, error)
}

// FileInfo is what ProbeFile-style inspection reports about an audio
// file without fully decoding it.
type FileInfo struct {
	Channels   uint
	Frames     uint
	SampleRate uint
	Seconds    float32
	Bytes      uint
}
