package mocks

import (
	"sync"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Resampler is a mock implementation of ports.Resampler.
// Without ConvertFunc it copies the samples into a new frame tagged with
// the target format.
type Resampler struct {
	ConvertFunc func(frame *media.Frame, target media.AudioFormat) (*media.Frame, error)
}

func (m *Resampler) Convert(frame *media.Frame, target media.AudioFormat) (*media.Frame, error) {
	if m.ConvertFunc != nil {
		return m.ConvertFunc(frame, target)
	}
	samples := append([]byte(nil), frame.Samples...)
	return media.NewAudioFrame(frame.PTS, samples, target, nil), nil
}

var _ ports.Resampler = (*Resampler)(nil)

// AudioDevice is a mock implementation of ports.AudioDevice. Tests pull
// audio by calling Pull, which invokes the registered callback.
type AudioDevice struct {
	mu       sync.Mutex
	callback ports.AudioCallback
	paused   bool
	opened   bool
	closed   bool
	pauses   []bool

	// Format overrides the format returned by Open.
	Format media.AudioFormat

	OpenFunc  func(want media.AudioFormat, callback ports.AudioCallback) (media.AudioFormat, error)
	CloseFunc func() error
}

func (m *AudioDevice) Open(want media.AudioFormat, callback ports.AudioCallback) (media.AudioFormat, error) {
	if m.OpenFunc != nil {
		return m.OpenFunc(want, callback)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.callback = callback
	m.opened = true
	m.paused = true
	if m.Format.Valid() {
		return m.Format, nil
	}
	return media.AudioFormat{SampleRate: want.SampleRate, Channels: 2}, nil
}

func (m *AudioDevice) SetPaused(paused bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.paused = paused
	m.pauses = append(m.pauses, paused)
}

func (m *AudioDevice) Close() error {
	m.mu.Lock()
	m.closed = true
	m.callback = nil
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Pull requests n bytes from the callback as the hardware would. It returns
// nil while the device is paused or closed.
func (m *AudioDevice) Pull(n int) []byte {
	m.mu.Lock()
	cb, paused := m.callback, m.paused
	m.mu.Unlock()
	if cb == nil || paused {
		return nil
	}
	out := make([]byte, n)
	cb(out)
	return out
}

// Paused reports the current pause state.
func (m *AudioDevice) Paused() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.paused
}

// PauseCalls returns the arguments of every SetPaused call.
func (m *AudioDevice) PauseCalls() []bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]bool(nil), m.pauses...)
}

// Closed reports whether Close was called.
func (m *AudioDevice) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.AudioDevice = (*AudioDevice)(nil)
