package audio

import (
	"encoding/binary"
	"sync"
	"sync/atomic"

	"github.com/kestrelaudio/graphcore/internal/errors"
	"github.com/kestrelaudio/graphcore/internal/logging"
)

// canary is written after the usable payload of every pooled buffer and
// checked whenever the buffer is returned to its pool, to catch an element
// that wrote past the size it asked for.
const canary uint32 = 0xF4F5ABCD

// InfoTag is per-buffer provenance, stamped by the graph as it pushes a
// buffer from a producing element's output port into the next port.
type InfoTag struct {
	ElementName string
	ElementID   string
	Source      bool
	SourceDone  bool
}

// Buffer is a mutable region of PCM (or other element-specific) bytes with
// an associated Format and a trail of InfoTags recording who produced it.
// Buffers are reference counted: Acquire/Release pairs control when the
// backing storage returns to its pool.
type Buffer interface {
	Format() Format
	SetFormat(Format)
	// Bytes returns the writable payload, excluding the trailing canary.
	Bytes() []byte
	ByteSize() int
	// SetByteSize trims (or grows, up to capacity) the effective payload
	// length without reallocating the backing store.
	SetByteSize(n int) error
	AddInfoTag(tag InfoTag)
	InfoTags() []InfoTag
	Acquire()
	Release()
}

// bufferImpl is the concrete pooled Buffer.
type bufferImpl struct {
	format   Format
	data     []byte // capacity includes trailing canary bytes
	length   int    // usable payload length, excludes canary
	infos    []InfoTag
	refCount int32
	pool     *bufferPoolImpl
	mu       sync.Mutex
}

func (b *bufferImpl) Format() Format { return b.format }

func (b *bufferImpl) SetFormat(f Format) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.format = f
}

func (b *bufferImpl) Bytes() []byte {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.data[:b.length]
}

func (b *bufferImpl) ByteSize() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.length
}

func (b *bufferImpl) SetByteSize(n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if n < 0 || n+4 > cap(b.data) {
		return errors.Newf("invalid byte size %d for buffer of capacity %d", n, cap(b.data)-4).
			Category(errors.CategoryBufferOverrun).
			Context("requested", n).
			Context("capacity", cap(b.data)-4).
			Build()
	}
	b.length = n
	binary.LittleEndian.PutUint32(b.data[n:n+4], canary)
	return nil
}

func (b *bufferImpl) AddInfoTag(tag InfoTag) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.infos = append(b.infos, tag)
}

func (b *bufferImpl) InfoTags() []InfoTag {
	b.mu.Lock()
	defer b.mu.Unlock()
	out := make([]InfoTag, len(b.infos))
	copy(out, b.infos)
	return out
}

func (b *bufferImpl) Acquire() {
	atomic.AddInt32(&b.refCount, 1)
}

// Release drops a reference; at zero it is checked for a canary overrun and
// returned to its pool.
func (b *bufferImpl) Release() {
	if atomic.AddInt32(&b.refCount, -1) != 0 {
		return
	}
	b.mu.Lock()
	overrun := binary.LittleEndian.Uint32(b.data[b.length:b.length+4]) != canary
	b.mu.Unlock()
	if overrun {
		logging.Error("audio buffer canary overwritten, out-of-bounds write detected",
			"capacity", cap(b.data)-4, "length", b.length)
	}
	if b.pool != nil {
		b.pool.put(b)
	}
}

// BufferPoolConfig sizes the three pooling tiers used by PooledAllocator.
type BufferPoolConfig struct {
	SmallBufferSize   int
	MediumBufferSize  int
	LargeBufferSize   int
	MaxBuffersPerSize int
}

// DefaultBufferPoolConfig covers the buffer sizes a 44.1kHz stereo Float32
// graph produces at typical tick granularities (1-50ms).
func DefaultBufferPoolConfig() BufferPoolConfig {
	return BufferPoolConfig{
		SmallBufferSize:   4 * 1024,
		MediumBufferSize:  64 * 1024,
		LargeBufferSize:   1024 * 1024,
		MaxBuffersPerSize: 32,
	}
}

// Allocator is the contract elements use to obtain writable buffers during
// Process. Implementations may pool; callers must Release what they
// Acquire once a buffer leaves their ownership.
type Allocator interface {
	Allocate(bytes int) Buffer
}

// bufferPoolImpl is a three-tier sync.Pool backed Allocator, grounded in
// the tiered pool used for decoded-audio buffers elsewhere in the stack.
type bufferPoolImpl struct {
	small, medium, large sync.Pool
	config               BufferPoolConfig
	allocations          atomic.Uint64
	requests             atomic.Uint64
}

// BufferAllocations returns the number of buffers this pool has had to
// allocate fresh, satisfying metrics.BufferPoolStats.
func (p *bufferPoolImpl) BufferAllocations() uint64 { return p.allocations.Load() }

// BufferReuses returns the number of Allocate calls served from an existing
// pool tier without a fresh allocation, satisfying metrics.BufferPoolStats.
func (p *bufferPoolImpl) BufferReuses() uint64 {
	requests, allocs := p.requests.Load(), p.allocations.Load()
	if allocs > requests {
		return 0
	}
	return requests - allocs
}

// NewBufferPool builds a pooled Allocator. One pool is normally shared by
// all elements of a single graph/worker; it must not be shared across
// worker threads.
func NewBufferPool(config BufferPoolConfig) Allocator {
	p := &bufferPoolImpl{config: config}
	p.small.New = func() any { return p.newBuffer(config.SmallBufferSize) }
	p.medium.New = func() any { return p.newBuffer(config.MediumBufferSize) }
	p.large.New = func() any { return p.newBuffer(config.LargeBufferSize) }
	return p
}

func (p *bufferPoolImpl) newBuffer(size int) *bufferImpl {
	p.allocations.Add(1)
	data := make([]byte, size+4)
	binary.LittleEndian.PutUint32(data[size:size+4], canary)
	return &bufferImpl{data: data, length: size, pool: p}
}

func (p *bufferPoolImpl) Allocate(bytes int) Buffer {
	p.requests.Add(1)
	var buf *bufferImpl
	switch {
	case bytes <= p.config.SmallBufferSize:
		buf = p.small.Get().(*bufferImpl)
	case bytes <= p.config.MediumBufferSize:
		buf = p.medium.Get().(*bufferImpl)
	case bytes <= p.config.LargeBufferSize:
		buf = p.large.Get().(*bufferImpl)
	default:
		buf = p.newBuffer(bytes)
	}
	buf.infos = buf.infos[:0]
	buf.format = Format{}
	buf.refCount = 1
	_ = buf.SetByteSize(bytes)
	return buf
}

func (p *bufferPoolImpl) put(buf *bufferImpl) {
	capacity := cap(buf.data) - 4
	switch {
	case capacity <= p.config.SmallBufferSize:
		p.small.Put(buf)
	case capacity <= p.config.MediumBufferSize:
		p.medium.Put(buf)
	case capacity <= p.config.LargeBufferSize:
		p.large.Put(buf)
	}
}
