// Package device adapts the graph engine's Source contract onto a real
// sound card via malgo, the same cgo-free miniaudio binding the rest of the
// pack's audio code is built on.
package device

import (
	"runtime"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"
	"github.com/smallnest/ringbuffer"

	"github.com/kestrelaudio/graphcore/internal/audio"
	"github.com/kestrelaudio/graphcore/internal/errors"
	"github.com/kestrelaudio/graphcore/internal/logging"
)

// Info describes one enumerated playback device.
type Info struct {
	Index     int
	Name      string
	ID        string
	IsDefault bool
}

func backendForPlatform() (malgo.Backend, error) {
	switch runtime.GOOS {
	case "linux":
		return malgo.BackendAlsa, nil
	case "windows":
		return malgo.BackendWasapi, nil
	case "darwin":
		return malgo.BackendCoreaudio, nil
	default:
		return malgo.BackendNull, errors.Newf("unsupported operating system %q", runtime.GOOS).
			Category(errors.CategoryDevice).
			Build()
	}
}

// EnumeratePlaybackDevices lists the host's available playback sinks.
func EnumeratePlaybackDevices() ([]Info, error) {
	backend, err := backendForPlatform()
	if err != nil {
		return nil, err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDevice).
			Context("operation", "init_context").
			Build()
	}
	defer func() { _ = ctx.Uninit() }()

	infos, err := ctx.Devices(malgo.Playback)
	if err != nil {
		return nil, errors.New(err).
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}

	out := make([]Info, 0, len(infos))
	for i := range infos {
		if strings.Contains(infos[i].Name(), "Discard all samples") {
			continue
		}
		out = append(out, Info{
			Index:     i,
			Name:      infos[i].Name(),
			ID:        infos[i].ID.String(),
			IsDefault: infos[i].IsDefault == 1,
		})
	}
	return out, nil
}

func selectDevice(devices []malgo.DeviceInfo, name string) (*malgo.DeviceInfo, error) {
	if name == "" || name == "default" || name == "sysdefault" {
		for i := range devices {
			if devices[i].IsDefault == 1 {
				return &devices[i], nil
			}
		}
		if len(devices) > 0 {
			return &devices[0], nil
		}
	}
	for i := range devices {
		if devices[i].Name() == name {
			return &devices[i], nil
		}
	}
	for i := range devices {
		if strings.Contains(devices[i].Name(), name) {
			return &devices[i], nil
		}
	}
	return nil, errors.Newf("no matching playback device").
		Category(errors.CategoryDevice).
		Context("device_name", name).
		Context("available_devices", len(devices)).
		Build()
}

func sampleTypeToMalgoFormat(t audio.SampleType) malgo.FormatType {
	switch t {
	case audio.SampleTypeFloat32:
		return malgo.FormatF32
	case audio.SampleTypeInt32:
		return malgo.FormatS32
	default:
		return malgo.FormatS16
	}
}

// MalgoDevice implements audio.PlaybackDevice over a single malgo playback
// device. A feeder goroutine calls the pull function given to Start and
// writes its bytes into a ring buffer, which malgo's Data callback drains;
// the graph side of the pull does its own backpressure/silence handling
// (AudioGraphSource, ThreadProxySource).
type MalgoDevice struct {
	name       string
	format     audio.Format
	bufferMs   uint
	deviceName string

	ctx    *malgo.AllocatedContext
	device *malgo.Device

	ring       *ringbuffer.RingBuffer
	stopFeeder chan struct{}
	feederWG   sync.WaitGroup
}

// NewMalgoDevice opens no hardware yet; call Start to bring up the device.
// deviceName selects by exact name or name substring, or "default" for the
// system default sink.
func NewMalgoDevice(name, deviceName string, format audio.Format) *MalgoDevice {
	return &MalgoDevice{name: name, deviceName: deviceName, format: format, bufferMs: 20}
}

func (d *MalgoDevice) Format() audio.Format { return d.format }

func (d *MalgoDevice) SetBufferSizeMillis(ms uint) { d.bufferMs = ms }

// Start opens the backend, resolves the requested device, and begins
// streaming, calling pull from the feeder goroutine to keep the ring buffer
// that malgo's audio thread reads from filled.
func (d *MalgoDevice) Start(pull func(dst []byte) int) error {
	backend, err := backendForPlatform()
	if err != nil {
		return err
	}

	ctx, err := malgo.InitContext([]malgo.Backend{backend}, malgo.ContextConfig{}, nil)
	if err != nil {
		return errors.New(err).
			Category(errors.CategoryDevice).
			Context("operation", "init_context").
			Build()
	}

	playback, err := ctx.Devices(malgo.Playback)
	if err != nil {
		_ = ctx.Uninit()
		return errors.New(err).
			Category(errors.CategoryDevice).
			Context("operation", "enumerate_devices").
			Build()
	}
	deviceInfo, err := selectDevice(playback, d.deviceName)
	if err != nil {
		_ = ctx.Uninit()
		return err
	}

	deviceConfig := malgo.DefaultDeviceConfig(malgo.Playback)
	deviceConfig.Playback.Format = sampleTypeToMalgoFormat(d.format.SampleType)
	deviceConfig.Playback.Channels = uint32(d.format.ChannelCount)
	deviceConfig.Playback.DeviceID = deviceInfo.ID.Pointer()
	deviceConfig.SampleRate = uint32(d.format.SampleRate)
	deviceConfig.PeriodSizeInMilliseconds = uint32(d.bufferMs)
	deviceConfig.Alsa.NoMMap = 1

	// The malgo callback runs on a fixed period; pull's latency varies with
	// whatever's upstream (decoder I/O, a busy worker). A small ring buffer
	// between a feeder goroutine (calling pull) and the Data callback
	// absorbs that mismatch instead of blocking the audio thread on pull.
	periodBytes := int(d.format.MillisecondByteCount()) * int(d.bufferMs)
	if periodBytes <= 0 {
		periodBytes = 4096
	}
	d.ring = ringbuffer.New(periodBytes * 4)
	d.ring.SetBlocking(true)
	d.stopFeeder = make(chan struct{})
	d.feederWG.Add(1)
	go d.feed(pull, periodBytes)

	callbacks := malgo.DeviceCallbacks{
		Data: func(out, _ []byte, _ uint32) {
			n, _ := d.ring.Read(out)
			for i := n; i < len(out); i++ {
				out[i] = 0
			}
		},
		Stop: func() {
			logging.Warn("playback device stopped unexpectedly", "device", d.name)
		},
	}

	device, err := malgo.InitDevice(ctx.Context, deviceConfig, callbacks)
	if err != nil {
		_ = ctx.Uninit()
		return errors.New(err).
			Category(errors.CategoryDevice).
			Context("device_name", deviceInfo.Name()).
			Context("operation", "init_device").
			Build()
	}

	if err := device.Start(); err != nil {
		device.Uninit()
		_ = ctx.Uninit()
		return errors.New(err).
			Category(errors.CategoryDevice).
			Context("operation", "start_device").
			Build()
	}

	d.ctx = ctx
	d.device = device
	logging.Info("playback device started", "device", deviceInfo.Name(), "format", d.format.String(), "buffer_ms", d.bufferMs)
	return nil
}

// feed runs on its own goroutine, pulling bytes from the source and
// writing them into the ring buffer the Data callback reads from.
func (d *MalgoDevice) feed(pull func(dst []byte) int, periodBytes int) {
	defer d.feederWG.Done()
	buf := make([]byte, periodBytes)
	for {
		select {
		case <-d.stopFeeder:
			return
		default:
		}
		n := pull(buf)
		if n == 0 {
			continue
		}
		if _, err := d.ring.Write(buf[:n]); err != nil {
			return
		}
	}
}

// Stop halts streaming and releases the backend.
func (d *MalgoDevice) Stop() error {
	if d.stopFeeder != nil {
		close(d.stopFeeder)
	}
	if d.device != nil {
		_ = d.device.Stop()
		d.device.Uninit()
		d.device = nil
	}
	if d.ring != nil {
		d.ring.CloseWriter()
	}
	d.feederWG.Wait()
	if d.ctx != nil {
		_ = d.ctx.Uninit()
		d.ctx = nil
	}
	return nil
}
