package audiofeed

import (
	"encoding/binary"
	"math"
	"sync/atomic"
)

// Volume is the playback gain shared by the controller, which changes it,
// and the audio callback, which applies it.
type Volume struct {
	level atomic.Uint64
	muted atomic.Bool
	step  float64
}

// NewVolume creates a volume at level (clamped to 0..1) adjusted in steps.
func NewVolume(level, step float64) *Volume {
	if step <= 0 {
		step = 0.1
	}
	v := &Volume{step: step}
	v.set(level)
	return v
}

func (v *Volume) set(level float64) float64 {
	level = math.Max(0, math.Min(1, level))
	v.level.Store(math.Float64bits(level))
	return level
}

// Level returns the volume ignoring mute.
func (v *Volume) Level() float64 {
	return math.Float64frombits(v.level.Load())
}

// Adjust moves the volume by steps and returns the new level. The result is
// snapped to the step grid so repeated adjustments land on round values.
func (v *Volume) Adjust(steps int) float64 {
	level := v.Level() + float64(steps)*v.step
	return v.set(math.Round(level/v.step) * v.step)
}

// ToggleMute flips the mute state and returns it.
func (v *Volume) ToggleMute() bool {
	for {
		old := v.muted.Load()
		if v.muted.CompareAndSwap(old, !old) {
			return !old
		}
	}
}

// Muted reports whether output is silenced.
func (v *Volume) Muted() bool {
	return v.muted.Load()
}

// Gain returns the factor applied to samples.
func (v *Volume) Gain() float32 {
	if v.muted.Load() {
		return 0
	}
	return float32(v.Level())
}

// Apply scales little-endian float32 samples in place.
func (v *Volume) Apply(samples []byte) {
	gain := v.Gain()
	if gain == 1 {
		return
	}
	for i := 0; i+4 <= len(samples); i += 4 {
		s := math.Float32frombits(binary.LittleEndian.Uint32(samples[i:]))
		binary.LittleEndian.PutUint32(samples[i:], math.Float32bits(s*gain))
	}
}
