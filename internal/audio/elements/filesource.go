package elements

import "github.com/kestrelaudio/graphcore/internal/audio"

// FileSource decodes an audio file and produces its PCM content as a
// stream of buffers, optionally looping a fixed number of times. When PCM
// caching is enabled the file is decoded fully during Prepare and served
// from memory; otherwise it streams incrementally from the Decoder.
type FileSource struct {
	audio.BaseElement
	name string
	id   string
	file string
	port *audio.Port

	sampleType audio.SampleType
	loopCount  uint
	ioStrategy audio.IOStrategy

	enablePCMCaching  bool
	enableFileCaching bool

	format audio.Format

	decoder audio.Decoder
	pcmData []byte
	pcmPos  int

	playCount uint
	done      bool
}

// NewFileSource creates a FileSource reading file, decoded to sampleType,
// looped loopCount times (1 means play once).
func NewFileSource(name, id, file string, sampleType audio.SampleType, loopCount uint) *FileSource {
	if loopCount == 0 {
		loopCount = 1
	}
	return &FileSource{
		name:       name,
		id:         id,
		file:       file,
		port:       audio.NewPort("out"),
		sampleType: sampleType,
		loopCount:  loopCount,
	}
}

func (f *FileSource) ID() string   { return f.id }
func (f *FileSource) Name() string { return f.name }
func (f *FileSource) Type() string { return "FileSource" }

func (f *FileSource) IsSource() bool     { return true }
func (f *FileSource) IsSourceDone() bool { return f.done }

func (f *FileSource) NumOutputPorts() int          { return 1 }
func (f *FileSource) OutputPort(i int) *audio.Port {
	if i == 0 {
		return f.port
	}
	panic("elements: file source has no such output port")
}

// FileName returns the backing file path.
func (f *FileSource) FileName() string { return f.file }

// SetFileName changes the backing file path before Prepare is called.
func (f *FileSource) SetFileName(file string) { f.file = file }

// SetLoopCount changes how many times the file plays before the source is
// done.
func (f *FileSource) SetLoopCount(count uint) { f.loopCount = count }

// EnablePCMCaching toggles whole-file in-memory caching.
func (f *FileSource) EnablePCMCaching(on bool) { f.enablePCMCaching = on }

// EnableFileCaching records the file-caching flag. Prepare does not read
// it: the raw loaded file bytes are not cached either way.
func (f *FileSource) EnableFileCaching(on bool) { f.enableFileCaching = on }

// SetIOStrategy records the I/O strategy. Prepare does not read it: the
// decoder is always opened synchronously, inside Prepare.
func (f *FileSource) SetIOStrategy(strategy audio.IOStrategy) { f.ioStrategy = strategy }

func (f *FileSource) Prepare(loader audio.Loader, params audio.PrepareParams) bool {
	if params.PCMCache != nil {
		if format, data, ok := params.PCMCache.Get(f.file, f.sampleType); ok {
			f.format = format
			f.pcmData = data
			f.port.SetFormat(f.format)
			return true
		}
	}

	data, err := loader.Load(f.file)
	if err != nil {
		return false
	}
	if params.DecoderFactory == nil {
		return false
	}
	dec, err := params.DecoderFactory.NewDecoder(data, f.sampleType)
	if err != nil {
		return false
	}
	f.format = dec.Format()
	f.port.SetFormat(f.format)

	if f.enablePCMCaching {
		buf, err := readAllFrames(dec)
		dec.Close()
		if err != nil {
			return false
		}
		f.pcmData = buf
		if params.PCMCache != nil {
			params.PCMCache.Put(f.file, f.sampleType, f.format, buf)
		}
		return true
	}

	f.decoder = dec
	return true
}

func readAllFrames(dec audio.Decoder) ([]byte, error) {
	var out []byte
	chunk := make([]byte, 64*1024)
	for {
		n, err := dec.Read(chunk)
		if n > 0 {
			out = append(out, chunk[:n]...)
		}
		if n == 0 || err != nil {
			return out, err
		}
	}
}

func (f *FileSource) Process(allocator audio.Allocator, events *audio.EventQueue, milliseconds uint) {
	if f.done {
		return
	}
	want := int(f.format.MillisecondByteCount() * milliseconds)
	if want == 0 {
		return
	}

	out := allocator.Allocate(want)
	out.SetFormat(f.format)
	n := f.fill(out.Bytes())
	if n == 0 {
		out.Release()
		f.done = true
		return
	}
	if n < want {
		_ = out.SetByteSize(n)
	}
	if !f.port.PushBuffer(out) {
		out.Release()
	}
}

// fill copies up to len(dst) bytes from whichever backing store is
// active, looping back to the start when a pass completes and more loops
// remain.
func (f *FileSource) fill(dst []byte) int {
	if f.pcmData != nil {
		return f.fillFromMemory(dst)
	}
	return f.fillFromDecoder(dst)
}

func (f *FileSource) fillFromMemory(dst []byte) int {
	written := 0
	for written < len(dst) {
		remaining := len(f.pcmData) - f.pcmPos
		if remaining == 0 {
			f.playCount++
			if f.playCount >= f.loopCount {
				return written
			}
			f.pcmPos = 0
			remaining = len(f.pcmData)
		}
		n := copy(dst[written:], f.pcmData[f.pcmPos:])
		written += n
		f.pcmPos += n
	}
	return written
}

func (f *FileSource) fillFromDecoder(dst []byte) int {
	written := 0
	for written < len(dst) {
		n, err := f.decoder.Read(dst[written:])
		written += n
		if err != nil {
			f.playCount++
			return written
		}
		if n == 0 {
			f.playCount++
			if f.playCount >= f.loopCount {
				return written
			}
			if err := f.decoder.Seek(0); err != nil {
				return written
			}
			continue
		}
	}
	return written
}

func (f *FileSource) Shutdown() {
	if f.decoder != nil {
		f.decoder.Close()
		f.decoder = nil
	}
}
