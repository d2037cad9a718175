package mocks

import (
	"image"
	"sync"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Decoder is a mock implementation of ports.Decoder.
// Without Func overrides it turns every packet into one frame through a
// single-slot buffer: Send reports ErrDecoderBusy while a frame waits to be
// received. Frames are allocated through Tracker when it is set.
type Decoder struct {
	mu       sync.Mutex
	kind     media.Kind
	slot     *media.Packet
	drained  bool
	resets   int
	received int

	Tracker *FrameTracker
	// AudioBytes is the sample payload size of each audio frame.
	AudioBytes int

	SendFunc    func(pkt media.Packet) error
	ReceiveFunc func() (*media.Frame, error)
	DrainFunc   func() error
	ResetFunc   func() error
	CloseFunc   func() error
}

// NewDecoder creates a passthrough decoder for kind.
func NewDecoder(kind media.Kind, tracker *FrameTracker) *Decoder {
	return &Decoder{kind: kind, Tracker: tracker, AudioBytes: 64}
}

func (m *Decoder) Kind() media.Kind {
	return m.kind
}

func (m *Decoder) Send(pkt media.Packet) error {
	if m.SendFunc != nil {
		return m.SendFunc(pkt)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot != nil {
		return ports.ErrDecoderBusy
	}
	m.slot = &pkt
	m.drained = false
	return nil
}

func (m *Decoder) Receive() (*media.Frame, error) {
	if m.ReceiveFunc != nil {
		return m.ReceiveFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.slot == nil {
		if m.drained {
			return nil, ports.ErrEndOfStream
		}
		return nil, ports.ErrNeedInput
	}
	pkt := *m.slot
	m.slot = nil
	m.received++
	return decodedFrame(m.kind, pkt, m.Tracker, m.AudioBytes), nil
}

func decodedFrame(kind media.Kind, pkt media.Packet, tracker *FrameTracker, audioBytes int) *media.Frame {
	var release func(*media.Frame)
	if tracker != nil {
		release = tracker.Hook()
	}
	if kind == media.KindAudio {
		format := media.AudioFormat{SampleRate: 48000, Channels: 2}
		return media.NewAudioFrame(pkt.PTS, make([]byte, audioBytes), format, release)
	}
	return media.NewVideoFrame(pkt.PTS, image.NewRGBA(image.Rect(0, 0, 16, 9)), release)
}

func (m *Decoder) Drain() error {
	if m.DrainFunc != nil {
		return m.DrainFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.drained = true
	return nil
}

func (m *Decoder) Reset() error {
	m.mu.Lock()
	m.resets++
	m.slot = nil
	m.drained = false
	m.mu.Unlock()
	if m.ResetFunc != nil {
		return m.ResetFunc()
	}
	return nil
}

func (m *Decoder) Close() error {
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Resets returns how many times Reset was called.
func (m *Decoder) Resets() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.resets
}

// LaggingDecoder behaves like a decoder with one frame of reorder delay: a
// frame comes out only once the next packet went in. After Drain the held
// frame is released when FlushDelay has passed; until then Receive reports
// ErrNeedInput.
type LaggingDecoder struct {
	mu      sync.Mutex
	kind    media.Kind
	held    *media.Packet
	ready   *media.Packet
	drained bool
	drainAt time.Time

	Tracker    *FrameTracker
	FlushDelay time.Duration
}

// NewLaggingDecoder creates a lagging decoder for kind.
func NewLaggingDecoder(kind media.Kind, tracker *FrameTracker, flushDelay time.Duration) *LaggingDecoder {
	return &LaggingDecoder{kind: kind, Tracker: tracker, FlushDelay: flushDelay}
}

func (m *LaggingDecoder) Kind() media.Kind {
	return m.kind
}

func (m *LaggingDecoder) Send(pkt media.Packet) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.ready != nil {
		return ports.ErrDecoderBusy
	}
	m.ready = m.held
	m.held = &pkt
	m.drained = false
	return nil
}

func (m *LaggingDecoder) Receive() (*media.Frame, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var pkt *media.Packet
	switch {
	case m.ready != nil:
		pkt, m.ready = m.ready, nil
	case !m.drained:
		return nil, ports.ErrNeedInput
	case m.held == nil:
		return nil, ports.ErrEndOfStream
	case time.Since(m.drainAt) < m.FlushDelay:
		return nil, ports.ErrNeedInput
	default:
		pkt, m.held = m.held, nil
	}
	return decodedFrame(m.kind, *pkt, m.Tracker, 64), nil
}

func (m *LaggingDecoder) Drain() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.drained {
		m.drained = true
		m.drainAt = time.Now()
	}
	return nil
}

func (m *LaggingDecoder) Reset() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.held, m.ready = nil, nil
	m.drained = false
	return nil
}

func (m *LaggingDecoder) Close() error {
	return nil
}

var (
	_ ports.Decoder = (*Decoder)(nil)
	_ ports.Decoder = (*LaggingDecoder)(nil)
)
