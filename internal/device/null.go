package device

import (
	"sync"
	"time"

	"github.com/kestrelaudio/graphcore/internal/audio"
)

// NullDevice discards whatever bytes it pulls, on its own ticking
// goroutine, standing in for real hardware in tests and in "graphplay
// play" runs with device.null set, where no sound card is required.
type NullDevice struct {
	format   audio.Format
	bufferMs uint

	mu      sync.Mutex
	stopped chan struct{}
	wg      sync.WaitGroup
}

// NewNullDevice creates a device that drains its source at the given
// format without producing any sound.
func NewNullDevice(format audio.Format) *NullDevice {
	return &NullDevice{format: format, bufferMs: 20}
}

func (d *NullDevice) Format() audio.Format { return d.format }

func (d *NullDevice) SetBufferSizeMillis(ms uint) { d.bufferMs = ms }

// Start runs pull on a fixed interval derived from the configured buffer
// size, discarding every byte produced.
func (d *NullDevice) Start(pull func(dst []byte) int) error {
	d.mu.Lock()
	d.stopped = make(chan struct{})
	stopped := d.stopped
	d.mu.Unlock()

	period := d.format.MillisecondByteCount() * d.bufferMs
	if period == 0 {
		period = 4096
	}
	buf := make([]byte, period)

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		ticker := time.NewTicker(time.Duration(d.bufferMs) * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-stopped:
				return
			case <-ticker.C:
				pull(buf)
			}
		}
	}()
	return nil
}

// Stop halts the discard loop.
func (d *NullDevice) Stop() error {
	d.mu.Lock()
	stopped := d.stopped
	d.mu.Unlock()
	if stopped != nil {
		close(stopped)
	}
	d.wg.Wait()
	return nil
}
