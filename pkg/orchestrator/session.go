package orchestrator

import (
	"fmt"
	"time"

	"github.com/user/avplay/pkg/audiofeed"
	"github.com/user/avplay/pkg/clock"
	"github.com/user/avplay/pkg/layout"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/pipeline"
	"github.com/user/avplay/pkg/ports"
)

// ExitReason tells why a session ended.
type ExitReason int

const (
	ExitNone ExitReason = iota
	ExitQuit
	ExitEndOfStream
	ExitInterrupted
	ExitWorkerError
)

func (r ExitReason) String() string {
	switch r {
	case ExitQuit:
		return "quit"
	case ExitEndOfStream:
		return "end of stream"
	case ExitInterrupted:
		return "interrupted"
	case ExitWorkerError:
		return "worker error"
	default:
		return "stopped"
	}
}

// RunResult contains the outcome of a playback session.
type RunResult struct {
	Info media.StreamInfo

	FramesPresented int64
	Dropped         int64
	Seeks           int64
	FailedSeeks     int64
	Underruns       int64
	AudioBytes      int64
	PlayedMs        int64 // last playback position

	WallTime   time.Duration
	ExitReason ExitReason
}

// session is the controller state. It is owned by the goroutine running
// the controller loop.
type session struct {
	config  Config
	info    media.StreamInfo
	pipe    *pipeline.Pipeline
	worker  *pipeline.Worker
	feeder  *audiofeed.Feeder
	volume  *audiofeed.Volume
	clock   *clock.Clock
	logger  ports.Logger
	hasSink bool

	aspect   layout.Ratio
	window   media.Size
	viewport media.Rect

	paused    bool
	presented int64
	dropped   int64
	seeks     int64

	// Audio-only position bookkeeping across seeks.
	audioBase       int64
	audioSeekFrames int64
}

func (s *session) resize(window media.Size) {
	s.window = window
	s.viewport = layout.ComputeViewport(layout.Input{Window: window, Aspect: s.aspect})
}

// position is the playback position in milliseconds: the last presented
// video frame, or the last played audio chunk when there is no video.
func (s *session) position() int64 {
	if s.info.HasVideo {
		return s.clock.LastPTS()
	}
	if s.feeder.Stats().Frames > s.audioSeekFrames {
		return s.feeder.LastPTS()
	}
	return s.audioBase
}

func (s *session) markSeek(target int64) {
	s.clock.Reset()
	s.clock.Presented(target)
	s.audioBase = target
	s.audioSeekFrames = s.feeder.Stats().Frames
	s.seeks++
}

// exhausted reports whether the input has ended and nothing is left to play.
func (s *session) exhausted() bool {
	return s.worker.AtEOF() && s.pipe.Video.Len() == 0 && s.pipe.Audio.Len() == 0
}

func (s *session) status(pts int64) string {
	text := formatPosition(pts)
	if s.info.DurationMs > 0 {
		text += " / " + formatPosition(s.info.DurationMs)
	}
	if s.hasSink {
		if s.volume.Muted() {
			text += "  muted"
		} else {
			text += fmt.Sprintf("  vol %d%%", int(s.volume.Level()*100+0.5))
		}
	}
	return text
}

func (s *session) result(reason ExitReason, wall time.Duration) RunResult {
	ws := s.worker.Stats()
	fs := s.feeder.Stats()
	return RunResult{
		Info:            s.info,
		FramesPresented: s.presented,
		Dropped:         s.dropped + ws.Dropped,
		Seeks:           s.seeks,
		FailedSeeks:     ws.FailedSeeks,
		Underruns:       fs.Underruns,
		AudioBytes:      fs.BytesOut,
		PlayedMs:        s.position(),
		WallTime:        wall,
		ExitReason:      reason,
	}
}

// formatPosition renders milliseconds as [h:]mm:ss.
func formatPosition(ms int64) string {
	if ms < 0 {
		ms = 0
	}
	total := ms / 1000
	h, m, sec := total/3600, (total/60)%60, total%60
	if h > 0 {
		return fmt.Sprintf("%d:%02d:%02d", h, m, sec)
	}
	return fmt.Sprintf("%02d:%02d", m, sec)
}
