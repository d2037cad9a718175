// Package nullaudio provides an audio device that consumes audio in real
// time and discards it, for headless runs.
package nullaudio

import (
	"fmt"
	"sync"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// DefaultPeriod is how much audio is pulled per tick.
const DefaultPeriod = 20 * time.Millisecond

// Device implements ports.AudioDevice with a ticker goroutine.
type Device struct {
	period time.Duration

	mu     sync.Mutex
	paused bool
	stop   chan struct{}
	done   chan struct{}
	pulled int64
}

// New creates a device pulling period worth of audio per tick. Zero uses
// DefaultPeriod.
func New(period time.Duration) *Device {
	if period <= 0 {
		period = DefaultPeriod
	}
	return &Device{period: period, paused: true}
}

// Open starts the ticker. Playback begins paused.
func (d *Device) Open(want media.AudioFormat, cb ports.AudioCallback) (media.AudioFormat, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stop != nil {
		return media.AudioFormat{}, fmt.Errorf("nullaudio: device already open")
	}

	format := want
	if format.SampleRate <= 0 {
		format.SampleRate = 48000
	}
	if format.Channels <= 0 {
		format.Channels = 2
	}

	frames := int(int64(format.SampleRate) * int64(d.period) / int64(time.Second))
	buf := make([]byte, max(frames, 1)*format.BytesPerFrame())

	d.stop = make(chan struct{})
	d.done = make(chan struct{})
	go d.run(cb, buf, d.stop, d.done)
	return format, nil
}

func (d *Device) run(cb ports.AudioCallback, buf []byte, stop, done chan struct{}) {
	defer close(done)
	ticker := time.NewTicker(d.period)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			d.mu.Lock()
			paused := d.paused
			d.mu.Unlock()
			if paused {
				continue
			}
			cb(buf)
			d.mu.Lock()
			d.pulled += int64(len(buf))
			d.mu.Unlock()
		}
	}
}

// SetPaused pauses or resumes pulling.
func (d *Device) SetPaused(paused bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.paused = paused
}

// Pulled returns how many bytes were consumed so far.
func (d *Device) Pulled() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pulled
}

// Close stops the ticker and waits for the last callback to return.
func (d *Device) Close() error {
	d.mu.Lock()
	stop, done := d.stop, d.done
	d.stop = nil
	d.mu.Unlock()
	if stop == nil {
		return nil
	}
	close(stop)
	<-done
	return nil
}

var _ ports.AudioDevice = (*Device)(nil)
