package beepaudio

import (
	"fmt"

	"github.com/gopxl/beep/v2"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// DefaultQuality is the interpolation quality passed to beep.Resample.
const DefaultQuality = 4

// Resampler implements ports.Resampler with beep.Resample and channel
// up/down-mixing.
//
// Chunks are converted independently, so a rate change can leave a small
// discontinuity at chunk boundaries.
type Resampler struct {
	quality int
}

// NewResampler creates a resampler. A quality outside 1..64 uses
// DefaultQuality.
func NewResampler(quality int) *Resampler {
	if quality < 1 || quality > 64 {
		quality = DefaultQuality
	}
	return &Resampler{quality: quality}
}

// Convert returns a new frame in target format. The input frame is left to
// the caller.
func (r *Resampler) Convert(frame *media.Frame, target media.AudioFormat) (*media.Frame, error) {
	if !frame.Format.Valid() || !target.Valid() {
		return nil, fmt.Errorf("beepaudio: cannot convert %s to %s", frame.Format, target)
	}

	frames := toStereo(frame.Samples, frame.Format.Channels)
	if frame.Format.SampleRate != target.SampleRate && len(frames) > 0 {
		frames = r.resample(frames, frame.Format.SampleRate, target.SampleRate)
	}
	return media.NewAudioFrame(frame.PTS, fromStereo(frames, target.Channels), target, nil), nil
}

func (r *Resampler) resample(in [][2]float64, from, to int) [][2]float64 {
	pos := 0
	src := beep.StreamerFunc(func(samples [][2]float64) (int, bool) {
		if pos >= len(in) {
			return 0, false
		}
		n := copy(samples, in[pos:])
		pos += n
		return n, true
	})
	rs := beep.Resample(r.quality, beep.SampleRate(from), beep.SampleRate(to), src)

	expected := len(in) * to / from
	out := make([][2]float64, 0, expected+1)
	buf := make([][2]float64, 512)
	for len(out) < expected {
		n, ok := rs.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok || n == 0 {
			break
		}
	}
	if len(out) > expected {
		out = out[:expected]
	}
	return out
}

var _ ports.Resampler = (*Resampler)(nil)
