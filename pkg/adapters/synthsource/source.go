// Package synthsource generates a test pattern and a tone so the player can
// run without media files or external decoders.
//
// Locators have the form "synth:" or "synth:<duration>", for example
// "synth:30s". The default duration is one minute.
package synthsource

import (
	"encoding/binary"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

// Scheme is the locator prefix handled by this package.
const Scheme = "synth:"

const (
	DefaultDuration = time.Minute
	FrameInterval   = 40 // ms, 25 fps
	ChunkInterval   = 20 // ms of audio per packet
	KeyframeEvery   = 25 // one sync sample per second
)

// Config describes the generated streams.
type Config struct {
	Duration time.Duration
	Size     media.Size
	Format   media.AudioFormat
	ToneHz   float64
}

// DefaultConfig returns a 320x180, 48 kHz stereo configuration.
func DefaultConfig() Config {
	return Config{
		Duration: DefaultDuration,
		Size:     media.Size{Width: 320, Height: 180},
		Format:   media.AudioFormat{SampleRate: 48000, Channels: 2},
		ToneHz:   440,
	}
}

// ParseLocator reads a "synth:" locator into a Config.
func ParseLocator(locator string) (Config, error) {
	cfg := DefaultConfig()
	rest, ok := strings.CutPrefix(locator, Scheme)
	if !ok {
		return cfg, fmt.Errorf("synthsource: not a synth locator: %q", locator)
	}
	if rest == "" {
		return cfg, nil
	}
	d, err := time.ParseDuration(rest)
	if err != nil {
		return cfg, fmt.Errorf("synthsource: invalid duration %q: %w", rest, err)
	}
	if d <= 0 {
		return cfg, fmt.Errorf("synthsource: duration must be positive")
	}
	cfg.Duration = d
	return cfg, nil
}

// Open parses locator and returns a source with matching decoders.
func Open(locator string) (ports.Media, error) {
	cfg, err := ParseLocator(locator)
	if err != nil {
		return ports.Media{}, err
	}
	return New(cfg), nil
}

// New returns the source and decoders for cfg.
func New(cfg Config) ports.Media {
	return ports.Media{
		Source: NewSource(cfg),
		Video:  NewVideoDecoder(cfg.Size),
		Audio:  NewAudioDecoder(cfg.Format, cfg.ToneHz),
	}
}

// Source emits interleaved video and audio packets on a fixed grid.
// Packet payloads carry only the timestamp; the decoders synthesise the
// content.
type Source struct {
	mu         sync.Mutex
	cfg        Config
	durationMs int64
	nextVideo  int64
	nextAudio  int64
}

// NewSource creates a source for cfg.
func NewSource(cfg Config) *Source {
	return &Source{cfg: cfg, durationMs: cfg.Duration.Milliseconds()}
}

// Info describes the generated streams.
func (s *Source) Info() media.StreamInfo {
	return media.StreamInfo{
		HasVideo:    true,
		VideoCodec:  "synth",
		VideoSize:   s.cfg.Size,
		HasAudio:    true,
		AudioCodec:  "synth",
		AudioFormat: s.cfg.Format,
		DurationMs:  s.durationMs,
	}
}

// ReadPacket returns the earlier of the next video and audio packets.
func (s *Source) ReadPacket() (media.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	videoLeft := s.nextVideo < s.durationMs
	audioLeft := s.nextAudio < s.durationMs
	switch {
	case videoLeft && (!audioLeft || s.nextVideo <= s.nextAudio):
		pts := s.nextVideo
		s.nextVideo += FrameInterval
		return packet(media.KindVideo, pts, (pts/FrameInterval)%KeyframeEvery == 0), nil
	case audioLeft:
		pts := s.nextAudio
		s.nextAudio += ChunkInterval
		return packet(media.KindAudio, pts, true), nil
	}
	return media.Packet{}, ports.ErrEndOfStream
}

func packet(kind media.Kind, pts int64, key bool) media.Packet {
	data := make([]byte, 8)
	binary.LittleEndian.PutUint64(data, uint64(pts))
	return media.Packet{Kind: kind, PTS: pts, DTS: pts, Keyframe: key, Data: data}
}

// Seek moves both streams to the keyframe grid around targetMs.
func (s *Source) Seek(targetMs int64, backward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	gop := int64(FrameInterval * KeyframeEvery)
	target := max(targetMs, 0)
	key := target / gop * gop
	if !backward && key < target {
		key += gop
	}
	if last := (s.durationMs - 1) / gop * gop; key > last {
		key = max(last, 0)
	}
	s.nextVideo = key
	s.nextAudio = key
	return nil
}

// Close is a no-op.
func (s *Source) Close() error {
	return nil
}

var _ ports.Source = (*Source)(nil)
