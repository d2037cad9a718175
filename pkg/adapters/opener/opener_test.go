package opener

import (
	"errors"
	"testing"

	"github.com/user/avplay/pkg/adapters/logger"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/mocks"
	"github.com/user/avplay/pkg/ports"
)

func TestOpen_Synth(t *testing.T) {
	o := New(logger.NewNoop())
	m, err := o.Open("synth:5s")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	defer m.Close()

	info := m.Source.Info()
	if !info.HasVideo || !info.HasAudio {
		t.Errorf("synth source should have both streams: %+v", info)
	}
	if info.DurationMs != 5000 {
		t.Errorf("DurationMs = %d, want 5000", info.DurationMs)
	}
	if m.Video == nil || m.Audio == nil {
		t.Error("synth media is missing a decoder")
	}
}

func TestOpen_FileUsesDecoders(t *testing.T) {
	src := mocks.NewSource(nil)
	o := New(logger.NewNoop())

	var opened string
	o.openFile = func(path string, _ ports.Logger) (ports.Source, error) {
		opened = path
		return src, nil
	}
	o.newVideo = func(codec string, _ ports.Source, _ ports.Logger) (ports.Decoder, error) {
		return mocks.NewDecoder(media.KindVideo, nil), nil
	}
	o.newAudio = func(codec string, _ ports.Source, _ ports.Logger) (ports.Decoder, error) {
		return mocks.NewDecoder(media.KindAudio, nil), nil
	}

	m, err := o.Open("file:///tmp/clip.mp4")
	if err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	if opened != "/tmp/clip.mp4" {
		t.Errorf("opened %q, want /tmp/clip.mp4", opened)
	}
	if m.Video == nil || m.Audio == nil {
		t.Error("expected both decoders")
	}
}

func TestOpen_DecoderFailureClosesSource(t *testing.T) {
	src := mocks.NewSource(nil)
	errNoFFmpeg := errors.New("no ffmpeg")
	o := New(logger.NewNoop())
	o.openFile = func(string, ports.Logger) (ports.Source, error) { return src, nil }
	o.newVideo = func(string, ports.Source, ports.Logger) (ports.Decoder, error) {
		return nil, errNoFFmpeg
	}

	_, err := o.Open("clip.mp4")
	if !errors.Is(err, errNoFFmpeg) {
		t.Fatalf("Open error = %v, want wrapped decoder failure", err)
	}
	if !src.Closed() {
		t.Error("source left open after failure")
	}
}

func TestOpen_Empty(t *testing.T) {
	if _, err := New(logger.NewNoop()).Open("file://"); err == nil {
		t.Error("expected an error for an empty locator")
	}
}
