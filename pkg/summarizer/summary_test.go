package summarizer

import (
	"testing"
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/orchestrator"
)

func TestNewSummary(t *testing.T) {
	before := time.Now()
	summary := NewSummary()
	after := time.Now()

	if summary.GeneratedAt.Before(before) || summary.GeneratedAt.After(after) {
		t.Errorf("GeneratedAt should be between %v and %v, got %v",
			before, after, summary.GeneratedAt)
	}
}

func TestBuilder_WithLocator(t *testing.T) {
	summary := NewBuilder().
		WithLocator("movie.mp4").
		Build()

	if summary.Locator != "movie.mp4" {
		t.Errorf("expected locator 'movie.mp4', got '%s'", summary.Locator)
	}
}

func TestBuilder_WithResult(t *testing.T) {
	result := orchestrator.RunResult{
		Info: media.StreamInfo{
			HasVideo:   true,
			VideoCodec: "h264",
			VideoSize:  media.Size{Width: 1280, Height: 720},
		},
		FramesPresented: 250,
		Dropped:         2,
		Seeks:           3,
		FailedSeeks:     1,
		Underruns:       4,
		AudioBytes:      1 << 20,
		PlayedMs:        10000,
		WallTime:        11 * time.Second,
		ExitReason:      orchestrator.ExitQuit,
	}

	summary := NewBuilder().WithResult(result).Build()

	if summary.Streams.VideoCodec != "h264" {
		t.Errorf("expected video codec h264, got %q", summary.Streams.VideoCodec)
	}
	p := summary.Playback
	if p.FramesPresented != 250 || p.Dropped != 2 || p.Seeks != 3 || p.FailedSeeks != 1 {
		t.Errorf("unexpected counters: %+v", p)
	}
	if p.Underruns != 4 || p.AudioBytes != 1<<20 {
		t.Errorf("unexpected audio counters: %+v", p)
	}
	if p.PositionMs != 10000 || p.WallTime != 11*time.Second {
		t.Errorf("unexpected timing: %+v", p)
	}
	if p.ExitReason != "quit" {
		t.Errorf("expected exit reason 'quit', got %q", p.ExitReason)
	}
}

func TestBuilder_WithPlayback(t *testing.T) {
	summary := NewBuilder().
		WithStreams(media.StreamInfo{HasAudio: true}).
		WithPlayback(PlaybackInfo{Seeks: 7}).
		Build()

	if !summary.Streams.HasAudio {
		t.Error("expected audio stream")
	}
	if summary.Playback.Seeks != 7 {
		t.Errorf("expected 7 seeks, got %d", summary.Playback.Seeks)
	}
}
