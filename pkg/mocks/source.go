package mocks

import (
	"sync"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Source is a mock implementation of ports.Source.
// Without Func overrides it replays Packets in order and seeks to the first
// packet whose PTS is at or after the target.
type Source struct {
	mu      sync.Mutex
	Packets []media.Packet
	pos     int
	seeks   []int64
	closed  bool

	InfoFunc       func() media.StreamInfo
	ReadPacketFunc func() (media.Packet, error)
	SeekFunc       func(targetMs int64, backward bool) error
	CloseFunc      func() error
}

// NewSource creates a mock source replaying packets.
func NewSource(packets []media.Packet) *Source {
	return &Source{Packets: packets}
}

// Timeline builds interleaved video and audio packets covering durationMs,
// one video packet every videoStep ms and one audio packet every audioStep ms.
// A zero step omits that stream.
func Timeline(durationMs, videoStep, audioStep int64) []media.Packet {
	var out []media.Packet
	var v, a int64
	for v < durationMs || a < durationMs {
		if videoStep > 0 && v < durationMs && (audioStep == 0 || v <= a || a >= durationMs) {
			out = append(out, media.Packet{Kind: media.KindVideo, PTS: v, DTS: v, Keyframe: true})
			v += videoStep
			continue
		}
		if audioStep > 0 && a < durationMs {
			out = append(out, media.Packet{Kind: media.KindAudio, PTS: a, DTS: a, Keyframe: true})
			a += audioStep
			continue
		}
		break
	}
	return out
}

func (m *Source) Info() media.StreamInfo {
	if m.InfoFunc != nil {
		return m.InfoFunc()
	}
	return media.StreamInfo{
		HasVideo:    true,
		VideoSize:   media.Size{Width: 16, Height: 9},
		HasAudio:    true,
		AudioFormat: media.AudioFormat{SampleRate: 48000, Channels: 2},
	}
}

func (m *Source) ReadPacket() (media.Packet, error) {
	if m.ReadPacketFunc != nil {
		return m.ReadPacketFunc()
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.pos >= len(m.Packets) {
		return media.Packet{}, ports.ErrEndOfStream
	}
	pkt := m.Packets[m.pos]
	m.pos++
	return pkt, nil
}

func (m *Source) Seek(targetMs int64, backward bool) error {
	m.mu.Lock()
	m.seeks = append(m.seeks, targetMs)
	m.mu.Unlock()
	if m.SeekFunc != nil {
		return m.SeekFunc(targetMs, backward)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.pos = len(m.Packets)
	for i, pkt := range m.Packets {
		if pkt.PTS >= targetMs {
			m.pos = i
			break
		}
	}
	return nil
}

func (m *Source) Close() error {
	m.mu.Lock()
	m.closed = true
	m.mu.Unlock()
	if m.CloseFunc != nil {
		return m.CloseFunc()
	}
	return nil
}

// Seeks returns the targets of every Seek call.
func (m *Source) Seeks() []int64 {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]int64(nil), m.seeks...)
}

// Closed reports whether Close was called.
func (m *Source) Closed() bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.closed
}

var _ ports.Source = (*Source)(nil)
