// Package summarizer provides summary generation for playback sessions.
package summarizer

import (
	"time"

	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/orchestrator"
)

// Summary contains all data collected during a playback session.
type Summary struct {
	// Metadata
	GeneratedAt time.Time
	Locator     string

	// Stream information
	Streams media.StreamInfo

	// Playback results
	Playback PlaybackInfo
}

// PlaybackInfo contains the counters of a finished session.
type PlaybackInfo struct {
	FramesPresented int64
	Dropped         int64
	Seeks           int64
	FailedSeeks     int64
	Underruns       int64
	AudioBytes      int64
	PositionMs      int64
	WallTime        time.Duration
	ExitReason      string
}

// NewSummary creates a new Summary with the current timestamp.
func NewSummary() *Summary {
	return &Summary{
		GeneratedAt: time.Now(),
	}
}

// Builder provides a fluent interface for building a Summary.
type Builder struct {
	summary *Summary
}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{
		summary: NewSummary(),
	}
}

// WithLocator sets the played locator.
func (b *Builder) WithLocator(locator string) *Builder {
	b.summary.Locator = locator
	return b
}

// WithStreams sets stream information.
func (b *Builder) WithStreams(info media.StreamInfo) *Builder {
	b.summary.Streams = info
	return b
}

// WithPlayback sets playback counters.
func (b *Builder) WithPlayback(playback PlaybackInfo) *Builder {
	b.summary.Playback = playback
	return b
}

// WithResult copies streams and counters from a session result.
func (b *Builder) WithResult(result orchestrator.RunResult) *Builder {
	b.summary.Streams = result.Info
	b.summary.Playback = PlaybackInfo{
		FramesPresented: result.FramesPresented,
		Dropped:         result.Dropped,
		Seeks:           result.Seeks,
		FailedSeeks:     result.FailedSeeks,
		Underruns:       result.Underruns,
		AudioBytes:      result.AudioBytes,
		PositionMs:      result.PlayedMs,
		WallTime:        result.WallTime,
		ExitReason:      result.ExitReason.String(),
	}
	return b
}

// Build returns the constructed Summary.
func (b *Builder) Build() *Summary {
	return b.summary
}
