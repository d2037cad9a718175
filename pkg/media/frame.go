// Package media defines the data types that flow through the playback pipeline.
package media

import (
	"fmt"
	"image"
)

// Kind identifies the stream a packet or frame belongs to.
type Kind int

const (
	// KindOther marks units from streams the player does not decode.
	KindOther Kind = iota
	// KindVideo marks video units.
	KindVideo
	// KindAudio marks audio units.
	KindAudio
)

// String returns the string representation of the kind.
func (k Kind) String() string {
	switch k {
	case KindVideo:
		return "video"
	case KindAudio:
		return "audio"
	default:
		return "other"
	}
}

// AudioFormat describes interleaved little-endian float32 PCM.
type AudioFormat struct {
	SampleRate int
	Channels   int
}

// BytesPerFrame returns the size of one sample frame across all channels.
func (f AudioFormat) BytesPerFrame() int {
	return f.Channels * 4
}

// Valid reports whether the format can carry samples.
func (f AudioFormat) Valid() bool {
	return f.SampleRate > 0 && f.Channels > 0
}

func (f AudioFormat) String() string {
	return fmt.Sprintf("%d Hz/%dch", f.SampleRate, f.Channels)
}

// Packet is one compressed unit read from a source.
// Timestamps are in milliseconds.
type Packet struct {
	Kind     Kind
	PTS      int64
	DTS      int64
	Keyframe bool
	Data     []byte
}

// Frame is one decoded unit: a video image or a block of audio samples.
//
// A frame is move-only. Whoever holds it last (the producer until it is
// enqueued, the queue while buffered, the consumer after dequeue) must call
// Release exactly once.
type Frame struct {
	Kind Kind
	// PTS is the presentation timestamp in milliseconds.
	PTS int64

	// Image holds the picture of a video frame.
	Image *image.RGBA

	// Samples holds interleaved little-endian float32 PCM of an audio frame.
	Samples []byte
	Format  AudioFormat

	release func(*Frame)
}

// NewVideoFrame wraps a decoded picture.
func NewVideoFrame(pts int64, img *image.RGBA, release func(*Frame)) *Frame {
	return &Frame{Kind: KindVideo, PTS: pts, Image: img, release: release}
}

// NewAudioFrame wraps a decoded block of samples.
func NewAudioFrame(pts int64, samples []byte, format AudioFormat, release func(*Frame)) *Frame {
	return &Frame{Kind: KindAudio, PTS: pts, Samples: samples, Format: format, release: release}
}

// Release hands the frame back to its allocator.
// Calling it on a nil frame is a no-op.
func (f *Frame) Release() {
	if f == nil {
		return
	}
	if f.release != nil {
		f.release(f)
	}
	f.Image = nil
	f.Samples = nil
}

// DurationMs returns the playback duration of an audio frame.
func (f *Frame) DurationMs() int64 {
	if f.Kind != KindAudio || !f.Format.Valid() {
		return 0
	}
	frames := len(f.Samples) / f.Format.BytesPerFrame()
	return int64(frames) * 1000 / int64(f.Format.SampleRate)
}
