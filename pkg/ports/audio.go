package ports

import "github.com/user/avplay/pkg/media"

// AudioCallback fills out with exactly len(out) bytes of interleaved
// little-endian float32 samples. It runs on the audio device's goroutine.
type AudioCallback func(out []byte)

// AudioDevice is the audio hardware abstraction.
type AudioDevice interface {
	// Open prepares the device for want and returns the format it will
	// actually request from callback. The device starts paused.
	Open(want media.AudioFormat, callback AudioCallback) (media.AudioFormat, error)

	// SetPaused stops or resumes callback invocations.
	SetPaused(paused bool)

	// Close stops the device. The callback is not invoked after Close returns.
	Close() error
}

// Resampler converts audio frames to the device format.
type Resampler interface {
	// Convert returns a new frame in target format. The input frame is not
	// released.
	Convert(frame *media.Frame, target media.AudioFormat) (*media.Frame, error)
}
