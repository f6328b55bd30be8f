package speech

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/gen2brain/malgo"

	"github.com/hammamikhairi/vibecook/internal/domain"
	"github.com/hammamikhairi/vibecook/internal/logger"
)

var _ AudioSource = (*MicSource)(nil)

// MicSource captures the default input device through miniaudio.
type MicSource struct {
	log *logger.Logger

	mu     sync.Mutex
	mgCtx  *malgo.AllocatedContext
	device *malgo.Device
	frames chan []byte
	closed bool
}

// NewMicSource returns an unopened microphone source.
func NewMicSource(log *logger.Logger) *MicSource {
	return &MicSource{log: log}
}

// MicInfo describes a capture device.
type MicInfo struct {
	Name    string
	Default bool
}

// ListMics enumerates the capture devices.
func ListMics() ([]MicInfo, error) {
	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w", err)
	}
	defer freeContext(mgCtx)

	devices, err := mgCtx.Devices(malgo.Capture)
	if err != nil {
		return nil, fmt.Errorf("list capture devices: %w", err)
	}
	out := make([]MicInfo, 0, len(devices))
	for _, d := range devices {
		out = append(out, MicInfo{Name: d.Name(), Default: d.IsDefault != 0})
	}
	return out, nil
}

// ProbeMic reports whether any capture device is present.
func ProbeMic() bool {
	mics, err := ListMics()
	return err == nil && len(mics) > 0
}

// Open allocates and starts the capture device. Frames are raw S16LE mono
// PCM at SampleRate.
func (m *MicSource) Open(ctx context.Context) (<-chan []byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.device != nil {
		return nil, errors.New("microphone already open")
	}

	mgCtx, err := malgo.InitContext(nil, malgo.ContextConfig{}, nil)
	if err != nil {
		return nil, fmt.Errorf("init audio context: %w: %w", domain.ErrCapabilityUnavailable, err)
	}

	cfg := malgo.DefaultDeviceConfig(malgo.Capture)
	cfg.Capture.Format = malgo.FormatS16
	cfg.Capture.Channels = ChannelCount
	cfg.SampleRate = SampleRate

	frames := make(chan []byte, 64)
	callbacks := malgo.DeviceCallbacks{
		Data: func(_, samples []byte, _ uint32) {
			m.push(frames, samples)
		},
	}

	device, err := malgo.InitDevice(mgCtx.Context, cfg, callbacks)
	if err != nil {
		freeContext(mgCtx)
		return nil, classifyDeviceError(err)
	}
	if err := device.Start(); err != nil {
		device.Uninit()
		freeContext(mgCtx)
		return nil, classifyDeviceError(err)
	}

	m.mgCtx, m.device, m.frames, m.closed = mgCtx, device, frames, false
	m.log.Debug("mic: capturing (rate=%d, channels=%d)", SampleRate, ChannelCount)
	return frames, nil
}

// push copies a callback buffer into the frame channel. miniaudio reuses
// the buffer, and a full channel drops the frame rather than stall the
// audio thread.
func (m *MicSource) push(frames chan []byte, samples []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed || m.frames != frames {
		return
	}
	select {
	case frames <- append([]byte(nil), samples...):
	default:
		m.log.Warn("mic: frame dropped, consumer too slow")
	}
}

// Close stops the device and closes the frame channel. Safe to call when
// not open.
func (m *MicSource) Close() {
	m.mu.Lock()
	device, mgCtx, frames := m.device, m.mgCtx, m.frames
	if device == nil {
		m.mu.Unlock()
		return
	}
	m.closed = true
	m.device, m.mgCtx, m.frames = nil, nil, nil
	m.mu.Unlock()

	// Stop outside the lock: it waits for an in-flight data callback.
	if err := device.Stop(); err != nil {
		m.log.Warn("mic: stop device: %v", err)
	}
	device.Uninit()
	freeContext(mgCtx)
	close(frames)
	m.log.Debug("mic: closed")
}

func freeContext(mgCtx *malgo.AllocatedContext) {
	if mgCtx == nil {
		return
	}
	_ = mgCtx.Uninit()
	mgCtx.Free()
}

func classifyDeviceError(err error) error {
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "permission") || strings.Contains(msg, "access denied") {
		return fmt.Errorf("open microphone: %w: %w", domain.ErrPermissionDenied, err)
	}
	return fmt.Errorf("open microphone: %w", err)
}
