package beepaudio

import (
	"encoding/binary"
	"math"

	"github.com/user/avplay/pkg/ports"
)

// callbackStreamer adapts a byte-oriented audio callback to beep.Streamer.
// The callback produces interleaved stereo float32 little-endian PCM.
type callbackStreamer struct {
	cb  ports.AudioCallback
	buf []byte
}

func newCallbackStreamer(cb ports.AudioCallback) *callbackStreamer {
	return &callbackStreamer{cb: cb}
}

// Stream asks the callback for exactly len(samples) stereo frames. It never
// ends: silence comes back as zeros.
func (s *callbackStreamer) Stream(samples [][2]float64) (int, bool) {
	need := len(samples) * 8
	if cap(s.buf) < need {
		s.buf = make([]byte, need)
	}
	buf := s.buf[:need]
	s.cb(buf)
	decodeStereo(buf, samples)
	return len(samples), true
}

func (s *callbackStreamer) Err() error {
	return nil
}

// decodeStereo converts interleaved stereo float32 LE into dst.
func decodeStereo(src []byte, dst [][2]float64) {
	for i := range dst {
		off := i * 8
		if off+8 > len(src) {
			dst[i] = [2]float64{}
			continue
		}
		dst[i][0] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[off:])))
		dst[i][1] = float64(math.Float32frombits(binary.LittleEndian.Uint32(src[off+4:])))
	}
}

// toStereo reads interleaved float32 LE with the given channel count into
// stereo frames. Mono is duplicated; extra channels are folded into left and
// right by averaging odd and even channels.
func toStereo(src []byte, channels int) [][2]float64 {
	if channels <= 0 {
		return nil
	}
	frames := len(src) / (channels * 4)
	out := make([][2]float64, frames)
	for i := 0; i < frames; i++ {
		base := i * channels * 4
		sample := func(c int) float64 {
			return float64(math.Float32frombits(binary.LittleEndian.Uint32(src[base+c*4:])))
		}
		switch channels {
		case 1:
			v := sample(0)
			out[i] = [2]float64{v, v}
		case 2:
			out[i] = [2]float64{sample(0), sample(1)}
		default:
			var l, r float64
			var nl, nr int
			for c := 0; c < channels; c++ {
				if c%2 == 0 {
					l += sample(c)
					nl++
				} else {
					r += sample(c)
					nr++
				}
			}
			out[i] = [2]float64{l / float64(nl), r / float64(nr)}
		}
	}
	return out
}

// fromStereo writes stereo frames as interleaved float32 LE with the given
// channel count. Mono output averages left and right; channels beyond two
// repeat left and right.
func fromStereo(frames [][2]float64, channels int) []byte {
	out := make([]byte, len(frames)*channels*4)
	off := 0
	for _, f := range frames {
		for c := 0; c < channels; c++ {
			var v float64
			switch {
			case channels == 1:
				v = (f[0] + f[1]) / 2
			default:
				v = f[c%2]
			}
			binary.LittleEndian.PutUint32(out[off:], math.Float32bits(float32(v)))
			off += 4
		}
	}
	return out
}
