// Package mp4source demultiplexes progressive MP4 files into packets.
//
// Only the moov sample tables are parsed up front; sample payloads are read
// from the file on demand. H.264 video is delivered as Annex B access units
// with parameter sets repeated on every sync sample. AAC audio is delivered
// with ADTS headers.
package mp4source

import (
	"errors"
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/Eyevinn/mp4ff/mp4"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/ports"
)

var (
	// ErrFragmented is returned for fragmented MP4 files.
	ErrFragmented = errors.New("mp4source: fragmented mp4 is not supported")

	// ErrNoPlayableStream is returned when no track has a supported codec.
	ErrNoPlayableStream = errors.New("mp4source: no playable stream")
)

// Source implements ports.Source for a progressive MP4 file.
type Source struct {
	mu     sync.Mutex
	file   *os.File
	info   media.StreamInfo
	video  *track
	audio  *track
	tracks []*track
	closed bool
}

// Open parses the MP4 file at path. Tracks with unsupported codecs are
// skipped with a warning.
func Open(path string, logger ports.Logger) (*Source, error) {
	logger = logger.WithComponent("mp4")

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open file: %w", err)
	}

	s, err := newSource(f, logger)
	if err != nil {
		f.Close()
		return nil, err
	}
	return s, nil
}

func newSource(f *os.File, logger ports.Logger) (*Source, error) {
	mp4File, err := mp4.DecodeFile(f, mp4.WithDecodeMode(mp4.DecModeLazyMdat))
	if err != nil {
		return nil, fmt.Errorf("decode mp4: %w", err)
	}
	if mp4File.IsFragmented() {
		return nil, ErrFragmented
	}
	if mp4File.Moov == nil {
		return nil, fmt.Errorf("no moov box found")
	}

	s := &Source{file: f}
	for _, trak := range mp4File.Moov.Traks {
		t, err := buildTrack(trak)
		if err != nil {
			return nil, err
		}
		if t == nil {
			continue
		}
		if !t.codec.Supported() {
			logger.Warn("Skipping %s track with unsupported codec %s", t.kind, t.codec)
			continue
		}
		switch {
		case t.kind == media.KindVideo && s.video == nil:
			s.video = t
		case t.kind == media.KindAudio && s.audio == nil:
			s.audio = t
		default:
			continue
		}
		s.tracks = append(s.tracks, t)
	}
	if s.video == nil && s.audio == nil {
		return nil, ErrNoPlayableStream
	}

	s.info = s.describe(mp4File.Moov)
	logger.Info("Opened %s: %s", f.Name(), describeInfo(s.info))
	return s, nil
}

func (s *Source) describe(moov *mp4.MoovBox) media.StreamInfo {
	var info media.StreamInfo
	if moov.Mvhd != nil && moov.Mvhd.Timescale > 0 {
		info.DurationMs = toMs(moov.Mvhd.Duration, moov.Mvhd.Timescale)
	}
	if v := s.video; v != nil {
		info.HasVideo = true
		info.VideoCodec = string(v.codec)
		info.VideoSize = media.Size{Width: v.width, Height: v.height}
		info.DurationMs = max(info.DurationMs, v.durationMs)
	}
	if a := s.audio; a != nil {
		info.HasAudio = true
		info.AudioCodec = string(a.codec)
		// Decoders always deliver stereo at the stream rate.
		info.AudioFormat = media.AudioFormat{SampleRate: a.sampleRate, Channels: 2}
		info.DurationMs = max(info.DurationMs, a.durationMs)
	}
	return info
}

func describeInfo(info media.StreamInfo) string {
	text := ""
	if info.HasVideo {
		text = fmt.Sprintf("video %s %dx%d", info.VideoCodec, info.VideoSize.Width, info.VideoSize.Height)
	}
	if info.HasAudio {
		if text != "" {
			text += ", "
		}
		text += fmt.Sprintf("audio %s %s", info.AudioCodec, info.AudioFormat)
	}
	return text
}

// Info returns the stream description.
func (s *Source) Info() media.StreamInfo {
	return s.info
}

// ReadPacket returns the next sample across all tracks in decode order.
func (s *Source) ReadPacket() (media.Packet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return media.Packet{}, ports.ErrEndOfStream
	}

	var t *track
	for _, candidate := range s.tracks {
		if candidate.done() {
			continue
		}
		if t == nil || candidate.peekDTS() < t.peekDTS() {
			t = candidate
		}
	}
	if t == nil {
		return media.Packet{}, ports.ErrEndOfStream
	}

	smp := t.samples[t.next]
	t.next++

	raw := make([]byte, smp.size)
	if _, err := s.file.ReadAt(raw, int64(smp.offset)); err != nil {
		if errors.Is(err, io.EOF) {
			return media.Packet{}, fmt.Errorf("read sample at %d: truncated file", smp.offset)
		}
		return media.Packet{}, fmt.Errorf("read sample at %d: %w", smp.offset, err)
	}

	data, err := s.payload(t, smp, raw)
	if err != nil {
		return media.Packet{}, err
	}
	return media.Packet{
		Kind:     t.kind,
		PTS:      smp.pts,
		DTS:      smp.dts,
		Keyframe: smp.sync,
		Data:     data,
	}, nil
}

func (s *Source) payload(t *track, smp sample, raw []byte) ([]byte, error) {
	switch t.codec {
	case CodecH264:
		var prefix []byte
		if smp.sync {
			prefix = t.paramSets
		}
		return avccToAnnexB(prefix, raw), nil
	case CodecAAC:
		if t.asc == nil {
			return raw, nil
		}
		return adtsFrame(t.asc, raw)
	default:
		return raw, nil
	}
}

// Seek positions video on a sync sample near targetMs and audio on the
// first sample at or after the chosen video position.
func (s *Source) Seek(targetMs int64, backward bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return errors.New("mp4source: source closed")
	}

	at := targetMs
	if s.video != nil {
		at = s.video.seekSync(targetMs, backward)
	}
	if s.audio != nil {
		s.audio.seekAt(at)
	}
	return nil
}

// Close closes the underlying file.
func (s *Source) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return nil
	}
	s.closed = true
	return s.file.Close()
}

var _ ports.Source = (*Source)(nil)
