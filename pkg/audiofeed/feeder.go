// Package audiofeed implements the audio device callback that drains the
// audio queue into fixed-size device requests.
package audiofeed

import (
	"sync/atomic"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// FrameSource is the non-blocking end of the audio queue.
type FrameSource interface {
	TryDequeue() (*media.Frame, bool)
}

// Option configures a Feeder.
type Option func(*Feeder)

// WithCarryCapacity sets the initial carry buffer size in bytes.
func WithCarryCapacity(n int) Option {
	return func(f *Feeder) {
		f.carry = newCarryBuffer(n)
	}
}

// WithEpoch supplies the seek epoch. The epoch is odd while a seek is
// flushing the queue. When it changes, carried bytes belong to the old
// position and are discarded.
func WithEpoch(epoch func() uint64) Option {
	return func(f *Feeder) {
		f.epoch = epoch
	}
}

// Stats is a snapshot of the feeder counters.
type Stats struct {
	BytesOut  int64
	Underruns int64
	Frames    int64
}

// Feeder reconciles variable-length decoded chunks with the byte counts the
// audio device asks for.
//
// Fill is invoked serially by the device; the carry buffer is touched only
// from there and needs no lock.
type Feeder struct {
	queue     FrameSource
	resampler ports.Resampler
	volume    *Volume
	logger    ports.Logger
	format    media.AudioFormat

	carry     carryBuffer
	epoch     func() uint64
	lastEpoch uint64
	starved   bool
	failing   bool

	bytesOut  atomic.Int64
	underruns atomic.Int64
	frames    atomic.Int64
	lastPTS   atomic.Int64
}

// New creates a feeder draining queue. A nil resampler passes samples
// through unchanged.
func New(queue FrameSource, resampler ports.Resampler, volume *Volume, logger ports.Logger, opts ...Option) *Feeder {
	f := &Feeder{
		queue:     queue,
		resampler: resampler,
		volume:    volume,
		logger:    logger.WithComponent("audio"),
		carry:     newCarryBuffer(DefaultCarryCapacity),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// SetFormat sets the device format chunks are converted to. It must be
// called before the device starts invoking Fill.
func (f *Feeder) SetFormat(format media.AudioFormat) {
	f.format = format
}

// Fill writes exactly len(out) bytes. It never blocks on the queue: when no
// audio is buffered the rest of out is silence.
func (f *Feeder) Fill(out []byte) {
	f.syncEpoch(f.currentEpoch())

	n := f.carry.read(out)
	for n < len(out) {
		before := f.currentEpoch()
		frame, ok := f.queue.TryDequeue()
		if !ok {
			clear(out[n:])
			if !f.starved {
				f.starved = true
				f.underruns.Add(1)
			}
			break
		}
		f.starved = false

		// A frame taken while a seek was flushing may predate the seek.
		after := f.currentEpoch()
		if after != before || seeking(after) {
			frame.Release()
			f.syncEpoch(after)
			continue
		}
		f.syncEpoch(after)
		n += f.consume(frame, out[n:])
	}
	f.bytesOut.Add(int64(len(out)))
}

func (f *Feeder) currentEpoch() uint64 {
	if f.epoch == nil {
		return 0
	}
	return f.epoch()
}

// syncEpoch drops the carry buffer when the epoch moved since it was filled.
func (f *Feeder) syncEpoch(e uint64) {
	if e != f.lastEpoch {
		f.lastEpoch = e
		f.carry.reset()
	}
}

func seeking(epoch uint64) bool {
	return epoch%2 == 1
}

// consume converts one frame, writes what fits into out and carries the
// rest. The caller has already drained the carry buffer.
func (f *Feeder) consume(frame *media.Frame, out []byte) int {
	defer frame.Release()

	converted := frame
	if f.resampler != nil && f.format.Valid() && frame.Format != f.format {
		c, err := f.resampler.Convert(frame, f.format)
		if err != nil {
			if !f.failing {
				f.logger.Warn("Audio conversion failed: %v", err)
				f.failing = true
			}
			return 0
		}
		f.failing = false
		if c != frame {
			converted = c
			defer converted.Release()
		}
	}

	samples := converted.Samples
	f.volume.Apply(samples)

	written := copy(out, samples)
	if rest := samples[written:]; len(rest) > 0 {
		if f.carry.store(rest) {
			f.logger.Warn("Audio chunk of %d bytes exceeded the carry buffer", len(samples))
		}
	}

	f.frames.Add(1)
	f.lastPTS.Store(frame.PTS)
	return written
}

// LastPTS returns the timestamp of the most recently consumed audio frame.
func (f *Feeder) LastPTS() int64 {
	return f.lastPTS.Load()
}

// Stats returns a snapshot of the feeder counters.
func (f *Feeder) Stats() Stats {
	return Stats{
		BytesOut:  f.bytesOut.Load(),
		Underruns: f.underruns.Load(),
		Frames:    f.frames.Load(),
	}
}
