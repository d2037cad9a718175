package pipeline

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// State is the decode worker's lifecycle state.
type State int32

const (
	StateIdle State = iota
	StateRunning
	StateFlushing
	StateExiting
)

func (s State) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateRunning:
		return "running"
	case StateFlushing:
		return "flushing"
	case StateExiting:
		return "exiting"
	default:
		return "unknown"
	}
}

var (
	// errInterrupted makes the frame loop yield to a pending seek or shutdown.
	errInterrupted = errors.New("interrupted")
	// errFlushing means the source is exhausted but a drained decoder has not
	// handed out its last frames yet.
	errFlushing = errors.New("decoders flushing")
)

// WorkerStats is a snapshot of the worker counters.
type WorkerStats struct {
	VideoFrames int64
	AudioFrames int64
	// Dropped counts frames discarded by a blocked enqueue that observed a
	// seek or shutdown.
	Dropped     int64
	Seeks       int64
	FailedSeeks int64
	Flushed     int64
}

// Worker is the single producer of the pipeline. It reads packets from the
// source, drives the decoders and publishes frames into the queue matching
// their kind. It also executes seeks.
type Worker struct {
	pipe     *Pipeline
	source   ports.Source
	decoders []ports.Decoder
	logger   ports.Logger
	sleep    func(time.Duration)

	state atomic.Int32
	atEOF atomic.Bool

	// Touched only by the worker goroutine.
	pending *media.Packet
	eof     bool
	next    int
	fatal   error

	videoFrames atomic.Int64
	audioFrames atomic.Int64
	dropped     atomic.Int64
	seeks       atomic.Int64
	failedSeeks atomic.Int64
	flushed     atomic.Int64
}

// NewWorker creates a worker for the streams of m.
func NewWorker(p *Pipeline, m ports.Media, logger ports.Logger) *Worker {
	w := &Worker{
		pipe:   p,
		source: m.Source,
		logger: logger.WithComponent("worker"),
		sleep:  time.Sleep,
	}
	if m.Video != nil {
		w.decoders = append(w.decoders, m.Video)
	}
	if m.Audio != nil {
		w.decoders = append(w.decoders, m.Audio)
	}
	return w
}

// State returns the current lifecycle state.
func (w *Worker) State() State {
	return State(w.state.Load())
}

// AtEOF reports whether the source and every decoder are exhausted. It is
// cleared when a seek is served or the source yields data again.
func (w *Worker) AtEOF() bool {
	return w.atEOF.Load()
}

// Stats returns a snapshot of the worker counters.
func (w *Worker) Stats() WorkerStats {
	return WorkerStats{
		VideoFrames: w.videoFrames.Load(),
		AudioFrames: w.audioFrames.Load(),
		Dropped:     w.dropped.Load(),
		Seeks:       w.seeks.Load(),
		FailedSeeks: w.failedSeeks.Load(),
		Flushed:     w.flushed.Load(),
	}
}

// Run is the worker main loop. It returns nil when the pipeline is shut
// down or ctx is cancelled, and the cause when a read or decode error ends
// the worker. In the error case the pipeline is shut down before Run
// returns so the other goroutines unwind.
func (w *Worker) Run(ctx context.Context) (err error) {
	w.state.Store(int32(StateRunning))
	defer w.state.Store(int32(StateExiting))
	defer func() {
		if err != nil {
			w.logger.Error("Decode worker stopped: %v", err)
			w.pipe.Shutdown()
		}
	}()

	eofLogged := false
	for {
		if w.pipe.Done() || ctx.Err() != nil {
			return nil
		}

		w.pipe.Seek.Serve(w.executeSeek)
		if w.fatal != nil {
			return w.fatal
		}

		frame, err := w.nextFrame(ctx)
		switch {
		case errors.Is(err, errInterrupted):
			continue
		case errors.Is(err, errFlushing):
			w.sleep(w.pipe.cfg.EOFDelay)
			continue
		case errors.Is(err, ports.ErrEndOfStream):
			if !eofLogged {
				w.logger.Debug("End of stream reached, idling")
				eofLogged = true
			}
			w.atEOF.Store(true)
			w.sleep(w.pipe.cfg.EOFDelay)
			continue
		case err != nil:
			return err
		}
		eofLogged = false
		w.atEOF.Store(false)

		w.publish(ctx, frame)
	}
}

func (w *Worker) publish(ctx context.Context, frame *media.Frame) {
	q := w.pipe.Queue(frame.Kind)
	if q == nil {
		frame.Release()
		return
	}
	abort := func() bool {
		return w.pipe.Abort() || ctx.Err() != nil
	}
	if !q.Enqueue(frame, abort) {
		w.dropped.Add(1)
		return
	}
	if frame.Kind == media.KindVideo {
		w.videoFrames.Add(1)
	} else {
		w.audioFrames.Add(1)
	}
}

// nextFrame polls the decoders and feeds them packets until one of them
// yields a frame. It gives up early with errInterrupted when a seek or
// shutdown is pending.
func (w *Worker) nextFrame(ctx context.Context) (*media.Frame, error) {
	for {
		if w.pipe.Done() || w.pipe.Seek.Pending() || ctx.Err() != nil {
			return nil, errInterrupted
		}

		frame, exhausted, err := w.receive()
		if err != nil {
			return nil, err
		}
		if frame != nil {
			return frame, nil
		}

		if w.pending != nil {
			if err := w.send(*w.pending); err != nil {
				if errors.Is(err, ports.ErrDecoderBusy) {
					continue
				}
				return nil, err
			}
			w.pending = nil
			continue
		}

		pkt, err := w.source.ReadPacket()
		if errors.Is(err, ports.ErrEndOfStream) {
			if !w.eof {
				w.eof = true
				if err := w.drain(); err != nil {
					return nil, err
				}
				continue
			}
			if !exhausted {
				return nil, errFlushing
			}
			return nil, ports.ErrEndOfStream
		}
		if err != nil {
			return nil, fmt.Errorf("read packet: %w", err)
		}

		if w.eof {
			// The source produced data again after a drain; decoders must
			// start over before accepting it.
			if err := w.resetDecoders(); err != nil {
				return nil, err
			}
			w.eof = false
		}
		if w.decoderFor(pkt.Kind) == nil {
			continue
		}
		w.pending = &pkt
	}
}

// receive polls every decoder once, starting after the one that produced
// the previous frame so neither stream starves the other. Without a frame,
// the bool reports whether every decoder answered ErrEndOfStream.
func (w *Worker) receive() (*media.Frame, bool, error) {
	n := len(w.decoders)
	exhausted := true
	for i := 0; i < n; i++ {
		idx := (w.next + i) % n
		dec := w.decoders[idx]
		frame, err := dec.Receive()
		switch {
		case err == nil:
			w.next = (idx + 1) % n
			return frame, false, nil
		case errors.Is(err, ports.ErrEndOfStream):
			continue
		case errors.Is(err, ports.ErrNeedInput):
			exhausted = false
		default:
			return nil, false, fmt.Errorf("decode %s: %w", dec.Kind(), err)
		}
	}
	return nil, exhausted, nil
}

func (w *Worker) send(pkt media.Packet) error {
	dec := w.decoderFor(pkt.Kind)
	if dec == nil {
		return nil
	}
	if err := dec.Send(pkt); err != nil {
		if errors.Is(err, ports.ErrDecoderBusy) {
			return err
		}
		return fmt.Errorf("decode %s: %w", pkt.Kind, err)
	}
	return nil
}

func (w *Worker) drain() error {
	for _, dec := range w.decoders {
		if err := dec.Drain(); err != nil {
			return fmt.Errorf("drain %s decoder: %w", dec.Kind(), err)
		}
	}
	return nil
}

func (w *Worker) resetDecoders() error {
	for _, dec := range w.decoders {
		if err := dec.Reset(); err != nil {
			return fmt.Errorf("reset %s decoder: %w", dec.Kind(), err)
		}
	}
	return nil
}

func (w *Worker) decoderFor(kind media.Kind) ports.Decoder {
	for _, dec := range w.decoders {
		if dec.Kind() == kind {
			return dec
		}
	}
	return nil
}

// executeSeek runs under the coordinator lock. The controller is blocked in
// Request for its whole duration, and the worker is the only producer, so
// the flushes below cannot race with new frames being queued.
func (w *Worker) executeSeek(req SeekRequest) {
	w.state.Store(int32(StateFlushing))
	defer w.state.Store(int32(StateRunning))

	w.seeks.Add(1)
	if err := w.source.Seek(req.TargetMs, req.Backward); err != nil {
		w.failedSeeks.Add(1)
		w.logger.Warn("Seek to %d ms failed: %v", req.TargetMs, fmt.Errorf("%w: %w", ErrSeekFailed, err))
		return
	}

	if err := w.resetDecoders(); err != nil {
		w.fatal = err
		return
	}
	w.pending = nil
	w.eof = false
	w.atEOF.Store(false)

	video, audio := w.pipe.Drain()
	w.flushed.Add(int64(video + audio))
	w.logger.Debug("Seek to %d ms flushed %d video and %d audio frames", req.TargetMs, video, audio)
}
