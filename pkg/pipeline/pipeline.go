// Package pipeline owns the state shared by the decode worker, the
// controller and the audio callback: the two frame queues, the seek
// handshake and the shutdown flag.
package pipeline

import (
	"sync/atomic"
	"time"

	"github.com/user/avplay/pkg/framequeue"
	"github.com/user/avplay/pkg/media"
)

// Config controls queue sizes and polling intervals.
type Config struct {
	// QueueCapacity is the number of frames buffered per stream.
	QueueCapacity int
	// PollInterval bounds every blocking wait in the pipeline.
	PollInterval time.Duration
	// EOFDelay is how long the worker idles after reaching the end of input.
	EOFDelay time.Duration
}

// DefaultConfig returns the stock pipeline settings.
func DefaultConfig() Config {
	return Config{
		QueueCapacity: framequeue.DefaultCapacity,
		PollInterval:  framequeue.DefaultWaitTimeout,
		EOFDelay:      framequeue.DefaultWaitTimeout,
	}
}

// Pipeline is created once per opened source and passed to the worker,
// the controller and the audio feeder.
type Pipeline struct {
	Video *framequeue.Queue
	Audio *framequeue.Queue
	Seek  *SeekCoordinator

	cfg  Config
	done atomic.Bool
}

// New builds an idle pipeline.
func New(cfg Config) *Pipeline {
	def := DefaultConfig()
	if cfg.QueueCapacity <= 0 {
		cfg.QueueCapacity = def.QueueCapacity
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = def.PollInterval
	}
	if cfg.EOFDelay <= 0 {
		cfg.EOFDelay = def.EOFDelay
	}

	p := &Pipeline{
		Video: framequeue.New(cfg.QueueCapacity, framequeue.WithWaitTimeout(cfg.PollInterval)),
		Audio: framequeue.New(cfg.QueueCapacity, framequeue.WithWaitTimeout(cfg.PollInterval)),
		cfg:   cfg,
	}
	p.Seek = newSeekCoordinator(&p.done, cfg.PollInterval)
	return p
}

// Config returns the effective settings.
func (p *Pipeline) Config() Config {
	return p.cfg
}

// Done reports whether shutdown has been requested. The flag only ever
// moves from false to true.
func (p *Pipeline) Done() bool {
	return p.done.Load()
}

// Shutdown sets the done flag and wakes a controller blocked in a seek
// request. It is safe to call more than once and from any goroutine.
func (p *Pipeline) Shutdown() {
	if p.done.CompareAndSwap(false, true) {
		p.Seek.Wake()
	}
}

// Abort is the cancellation predicate for blocked enqueues: the frame is
// dropped when shutting down or when a seek is waiting to be served.
func (p *Pipeline) Abort() bool {
	return p.done.Load() || p.Seek.Pending()
}

// Queue returns the queue for kind, or nil for streams that are not played.
func (p *Pipeline) Queue(kind media.Kind) *framequeue.Queue {
	switch kind {
	case media.KindVideo:
		return p.Video
	case media.KindAudio:
		return p.Audio
	default:
		return nil
	}
}

// Drain releases every frame still buffered in both queues.
func (p *Pipeline) Drain() (video, audio int) {
	return p.Video.Flush(), p.Audio.Flush()
}
