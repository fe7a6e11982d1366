package audio

import (
	"sync"
	"sync/atomic"

	"github.com/kestrelaudio/graphcore/internal/errors"
)

// ByteSource is anything that can be wrapped by ThreadProxySource: a graph
// adapted to bytes, or any other producer shaped the same way.
type ByteSource interface {
	Format() Format
	FillBuffer(dst []byte) int
	HasMore(bytesReadSoFar int) bool
	Prepare(loader Loader, params PrepareParams) bool
	Shutdown()
	DispatchCommand(dest string, cmd Command) bool
}

type vecBuffer struct {
	data   []byte
	length int
}

// ThreadProxySource decouples graph evaluation from the device callback
// thread: a dedicated goroutine pulls bytes out of the wrapped source into
// a small fixed pool of buffers, handed to the consumer through a pair of
// bounded channels, so a slow or blocking graph never stalls the caller of
// FillBuffer.
type ThreadProxySource struct {
	mu    sync.Mutex
	inner ByteSource

	bufferBytes int
	fillCh      chan *vecBuffer
	emptyCh     chan *vecBuffer
	shutdownCh  chan struct{}
	closeOnce   sync.Once
	shutdownOnce sync.Once
	wg          sync.WaitGroup

	workerErr   atomic.Value
	firstBuffer atomic.Bool

	pending    *vecBuffer
	pendingOff int
}

// NewThreadProxySource wraps inner. bufferBytes sizes each pooled buffer;
// poolSize is the number of buffers in flight between producer and
// consumer (3-4 is typical: one being filled, one or two in the channel,
// one being drained).
func NewThreadProxySource(inner ByteSource, bufferBytes, poolSize int) *ThreadProxySource {
	if poolSize < 2 {
		poolSize = 2
	}
	return &ThreadProxySource{
		inner:       inner,
		bufferBytes: bufferBytes,
		fillCh:      make(chan *vecBuffer, poolSize),
		emptyCh:     make(chan *vecBuffer, poolSize),
		shutdownCh:  make(chan struct{}),
	}
}

// Format returns the wrapped source's format; only meaningful after
// Prepare.
func (s *ThreadProxySource) Format() Format {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Format()
}

// Prepare prepares the wrapped source and starts the producer goroutine.
func (s *ThreadProxySource) Prepare(loader Loader, params PrepareParams) bool {
	s.mu.Lock()
	ok := s.inner.Prepare(loader, params)
	s.mu.Unlock()
	if !ok {
		return false
	}

	poolSize := cap(s.emptyCh)
	for i := 0; i < poolSize; i++ {
		s.emptyCh <- &vecBuffer{data: make([]byte, s.bufferBytes)}
	}

	s.wg.Add(1)
	go s.threadLoop()
	return true
}

func (s *ThreadProxySource) threadLoop() {
	defer s.wg.Done()
	defer func() {
		if r := recover(); r != nil {
			s.workerErr.Store(errors.Newf("audio proxy worker panicked: %v", r).
				Category(errors.CategoryWorkerException).
				Build())
			s.closeFillCh()
		}
	}()

	for {
		buf := s.getEmptyBuffer()
		if buf == nil {
			return
		}

		s.mu.Lock()
		n := s.inner.FillBuffer(buf.data)
		hasMore := s.inner.HasMore(0)
		s.mu.Unlock()

		buf.length = n
		if n == 0 && !hasMore {
			s.closeFillCh()
			return
		}
		if n == 0 {
			select {
			case s.emptyCh <- buf:
			case <-s.shutdownCh:
				return
			}
			continue
		}

		s.firstBuffer.Store(true)
		select {
		case s.fillCh <- buf:
		case <-s.shutdownCh:
			return
		}
	}
}

func (s *ThreadProxySource) closeFillCh() {
	s.closeOnce.Do(func() { close(s.fillCh) })
}

func (s *ThreadProxySource) getEmptyBuffer() *vecBuffer {
	select {
	case buf := <-s.emptyCh:
		return buf
	case <-s.shutdownCh:
		return nil
	}
}

// FillBuffer is called from the device callback thread. It blocks until
// enough data has been produced by the worker goroutine, or the source
// reaches end of stream, in which case it returns fewer bytes than
// requested.
func (s *ThreadProxySource) FillBuffer(dst []byte) int {
	written := 0
	for written < len(dst) {
		if s.pending == nil {
			buf, ok := <-s.fillCh
			if !ok {
				break
			}
			s.pending = buf
			s.pendingOff = 0
		}

		n := copy(dst[written:], s.pending.data[s.pendingOff:s.pending.length])
		written += n
		s.pendingOff += n
		if s.pendingOff >= s.pending.length {
			select {
			case s.emptyCh <- s.pending:
			default:
			}
			s.pending = nil
			s.pendingOff = 0
		}
	}
	return written
}

// HasMore reports whether there is more data pending or still being
// produced.
func (s *ThreadProxySource) HasMore(bytesReadSoFar int) bool {
	if s.pending != nil {
		return true
	}
	select {
	case buf, ok := <-s.fillCh:
		if !ok {
			return false
		}
		s.pending = buf
		s.pendingOff = 0
		return true
	default:
	}
	return s.workerErr.Load() == nil
}

// WorkerError returns the panic captured from the producer goroutine, if
// any.
func (s *ThreadProxySource) WorkerError() error {
	v := s.workerErr.Load()
	if v == nil {
		return nil
	}
	return v.(error)
}

// DispatchCommand forwards to the wrapped source under the same mutex the
// producer goroutine uses, so the graph is never touched concurrently.
func (s *ThreadProxySource) DispatchCommand(dest string, cmd Command) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.DispatchCommand(dest, cmd)
}

// eventSource is implemented by inner sources (AudioGraphSource) that
// accumulate events during Process.
type eventSource interface {
	Events() *EventQueue
}

// DrainEvents returns and clears events accumulated by the wrapped source,
// if it tracks any.
func (s *ThreadProxySource) DrainEvents() []any {
	s.mu.Lock()
	defer s.mu.Unlock()
	if es, ok := s.inner.(eventSource); ok {
		return es.Events().Drain()
	}
	return nil
}

// Shutdown stops the producer goroutine and shuts down the wrapped source.
func (s *ThreadProxySource) Shutdown() {
	s.shutdownOnce.Do(func() { close(s.shutdownCh) })
	s.wg.Wait()
	s.mu.Lock()
	s.inner.Shutdown()
	s.mu.Unlock()
}
