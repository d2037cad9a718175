package ffmpegdecoder

import (
	"container/heap"
	"fmt"
	"image"
	"strconv"
	"sync"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

const (
	// DefaultSendWait bounds how long Send waits for room in the input
	// channel before reporting ErrDecoderBusy.
	DefaultSendWait = 5 * time.Millisecond

	audioChunkFrames = 1024
)

// Option configures a Decoder.
type Option func(*Decoder)

// WithSendWait sets the Send wait bound.
func WithSendWait(d time.Duration) Option {
	return func(dec *Decoder) {
		dec.sendWait = d
	}
}

// Decoder implements ports.Decoder on top of an ffmpeg child process.
type Decoder struct {
	mu       sync.Mutex
	kind     media.Kind
	path     string
	args     []string
	chunk    int
	partial  bool
	align    int
	sendWait time.Duration
	logger   ports.Logger

	proc    *process
	drained bool

	// Video
	size    media.Size
	pending ptsHeap
	lastPTS int64

	// Audio
	format    media.AudioFormat
	basePTS   int64
	haveBase  bool
	framesOut int64
}

// NewVideo creates a decoder producing RGBA frames of the given size.
func NewVideo(codec string, size media.Size, logger ports.Logger, opts ...Option) (*Decoder, error) {
	if size.Empty() {
		return nil, fmt.Errorf("ffmpegdecoder: invalid frame size %dx%d", size.Width, size.Height)
	}
	format, err := inputFormat(codec)
	if err != nil {
		return nil, err
	}
	path, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		kind:     media.KindVideo,
		path:     path,
		chunk:    size.Width * size.Height * 4,
		size:     size,
		sendWait: DefaultSendWait,
		logger:   logger.WithComponent("ffmpeg"),
		args: []string{
			"-hide_banner", "-loglevel", "error",
			"-fflags", "nobuffer",
			"-probesize", "65536",
			"-f", format,
			"-i", "pipe:0",
			"-an",
			"-vsync", "0",
			"-f", "rawvideo",
			"-pix_fmt", "rgba",
			"-s", fmt.Sprintf("%dx%d", size.Width, size.Height),
			"pipe:1",
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// NewAudio creates a decoder producing interleaved float32 PCM in format.
func NewAudio(codec string, format media.AudioFormat, logger ports.Logger, opts ...Option) (*Decoder, error) {
	if !format.Valid() {
		return nil, fmt.Errorf("ffmpegdecoder: invalid audio format %s", format)
	}
	input, err := inputFormat(codec)
	if err != nil {
		return nil, err
	}
	path, err := FindFFmpeg()
	if err != nil {
		return nil, err
	}

	d := &Decoder{
		kind:     media.KindAudio,
		path:     path,
		chunk:    audioChunkFrames * format.BytesPerFrame(),
		partial:  true,
		align:    format.BytesPerFrame(),
		format:   format,
		sendWait: DefaultSendWait,
		logger:   logger.WithComponent("ffmpeg"),
		args: []string{
			"-hide_banner", "-loglevel", "error",
			"-fflags", "nobuffer",
			"-f", input,
			"-i", "pipe:0",
			"-vn",
			"-f", "f32le",
			"-acodec", "pcm_f32le",
			"-ac", strconv.Itoa(format.Channels),
			"-ar", strconv.Itoa(format.SampleRate),
			"pipe:1",
		},
	}
	for _, opt := range opts {
		opt(d)
	}
	return d, nil
}

// Kind returns the stream kind.
func (d *Decoder) Kind() media.Kind {
	return d.kind
}

// Send queues one packet for the ffmpeg process, starting it if needed.
func (d *Decoder) Send(pkt media.Packet) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.drained {
		d.resetLocked()
	}
	if d.proc == nil {
		proc, err := startProcess(d.path, d.args, d.chunk, d.partial, d.align)
		if err != nil {
			return err
		}
		d.logger.Debug("Started ffmpeg for %s", d.kind)
		d.proc = proc
	}

	timer := time.NewTimer(d.sendWait)
	defer timer.Stop()
	select {
	case d.proc.in <- pkt.Data:
	case <-d.proc.exited:
		return d.exitError()
	case <-timer.C:
		return ports.ErrDecoderBusy
	}

	if d.kind == media.KindVideo {
		heap.Push(&d.pending, pkt.PTS)
	} else if !d.haveBase {
		d.basePTS = pkt.PTS
		d.haveBase = true
	}
	return nil
}

// Receive returns the next decoded frame without blocking.
func (d *Decoder) Receive() (*media.Frame, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.proc == nil {
		if d.drained {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}

	select {
	case buf, ok := <-d.proc.out:
		if !ok {
			if d.drained && d.proc.err == nil {
				return nil, ports.ErrEndOfStream
			}
			return nil, d.exitError()
		}
		return d.frame(buf), nil
	default:
		return nil, ports.ErrNeedInput
	}
}

func (d *Decoder) frame(buf []byte) *media.Frame {
	if d.kind == media.KindVideo {
		pts := d.lastPTS + 1
		if d.pending.Len() > 0 {
			pts = heap.Pop(&d.pending).(int64)
		}
		d.lastPTS = pts
		img := &image.RGBA{
			Pix:    buf,
			Stride: d.size.Width * 4,
			Rect:   image.Rect(0, 0, d.size.Width, d.size.Height),
		}
		return media.NewVideoFrame(pts, img, nil)
	}

	pts := d.basePTS + d.framesOut*1000/int64(d.format.SampleRate)
	d.framesOut += int64(len(buf) / d.format.BytesPerFrame())
	return media.NewAudioFrame(pts, buf, d.format, nil)
}

func (d *Decoder) exitError() error {
	if d.proc.err != nil {
		return d.proc.err
	}
	return fmt.Errorf("%w: %s", ErrProcessExited, d.proc.stderr.String())
}

// Drain closes the process input so it flushes its remaining frames.
func (d *Decoder) Drain() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.proc != nil {
		d.proc.closeInput()
	}
	d.drained = true
	return nil
}

// Reset kills the current process. The next Send starts a new one.
func (d *Decoder) Reset() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.resetLocked()
	return nil
}

func (d *Decoder) resetLocked() {
	if d.proc != nil {
		d.proc.kill()
		d.proc = nil
	}
	d.drained = false
	d.pending = d.pending[:0]
	d.lastPTS = 0
	d.haveBase = false
	d.framesOut = 0
}

// Close stops the process.
func (d *Decoder) Close() error {
	return d.Reset()
}

var _ ports.Decoder = (*Decoder)(nil)

// ptsHeap orders pending presentation timestamps. Decoders emit frames in
// presentation order while packets arrive in decode order.
type ptsHeap []int64

func (h ptsHeap) Len() int           { return len(h) }
func (h ptsHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h ptsHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *ptsHeap) Push(x any) {
	*h = append(*h, x.(int64))
}

func (h *ptsHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
