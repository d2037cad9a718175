// Package beepaudio plays audio through the system sound card with
// github.com/gopxl/beep/v2 and resamples decoded chunks to the device format.
package beepaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/gopxl/beep/v2"
	"github.com/gopxl/beep/v2/speaker"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

const (
	// DefaultSampleRate is used when the stream does not suggest one.
	DefaultSampleRate = 48000

	// DefaultBufferDuration is the speaker buffer length.
	DefaultBufferDuration = 50 * time.Millisecond
)

// Device implements ports.AudioDevice on beep's speaker. The speaker always
// mixes in stereo, so the negotiated format has two channels.
type Device struct {
	mu       sync.Mutex
	buffer   time.Duration
	ctrl     *beep.Ctrl
	opened   bool
	streamer *callbackStreamer
}

// New creates a device with the given speaker buffer length. Zero uses
// DefaultBufferDuration.
func New(buffer time.Duration) *Device {
	if buffer <= 0 {
		buffer = DefaultBufferDuration
	}
	return &Device{buffer: buffer}
}

// Open initialises the speaker and starts pulling from cb. Playback begins
// paused.
func (d *Device) Open(want media.AudioFormat, cb ports.AudioCallback) (media.AudioFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.opened {
		return media.AudioFormat{}, fmt.Errorf("beepaudio: device already open")
	}

	rate := want.SampleRate
	if rate <= 0 {
		rate = DefaultSampleRate
	}
	format := media.AudioFormat{SampleRate: rate, Channels: 2}

	sr := beep.SampleRate(rate)
	if err := speaker.Init(sr, sr.N(d.buffer)); err != nil {
		return media.AudioFormat{}, fmt.Errorf("init speaker: %w", err)
	}

	d.streamer = newCallbackStreamer(cb)
	d.ctrl = &beep.Ctrl{Streamer: d.streamer, Paused: true}
	speaker.Play(d.ctrl)
	d.opened = true
	return format, nil
}

// SetPaused pauses or resumes pulling from the callback.
func (d *Device) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ctrl == nil {
		return
	}
	speaker.Lock()
	d.ctrl.Paused = paused
	speaker.Unlock()
}

// Close stops playback and releases the sound card. After Close returns the
// callback is not invoked again.
func (d *Device) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if !d.opened {
		return nil
	}
	speaker.Clear()
	speaker.Close()
	d.ctrl = nil
	d.opened = false
	return nil
}

var _ ports.AudioDevice = (*Device)(nil)
