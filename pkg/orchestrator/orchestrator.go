// Package orchestrator runs a playback session: it wires the decode worker,
// the audio device and the controller loop around one pipeline.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/user/avplay/pkg/audiofeed"
	"github.com/user/avplay/pkg/clock"
	"github.com/user/avplay/pkg/layout"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/pipeline"
	"github.com/user/avplay/pkg/ports"
)

// Config contains all configuration for a playback session.
type Config struct {
	Locator string

	// Pipeline
	Pipeline pipeline.Config

	// Audio
	Volume      float64
	VolumeStep  float64
	AudioBuffer int // carry buffer size in bytes

	// Presentation
	BackgroundColor color.RGBA
	ShowStatus      bool

	// ExitOnEOF ends the session once the input is exhausted and every
	// buffered frame has been played.
	ExitOnEOF bool
}

// DefaultConfig returns a Config with default values.
func DefaultConfig() Config {
	return Config{
		Pipeline:        pipeline.DefaultConfig(),
		Volume:          1.0,
		VolumeStep:      0.1,
		AudioBuffer:     audiofeed.DefaultCarryCapacity,
		BackgroundColor: color.RGBA{R: 0x00, G: 0x2b, B: 0x36, A: 0xff},
		ShowStatus:      true,
	}
}

// Option customises an Orchestrator.
type Option func(*Orchestrator)

// WithTime replaces the wall clock and the sleep function used for pacing.
func WithTime(now func() time.Time, sleep func(time.Duration)) Option {
	return func(o *Orchestrator) {
		o.now = now
		o.sleep = sleep
	}
}

// Orchestrator owns the collaborators of one playback session.
type Orchestrator struct {
	media     ports.Media
	scaler    ports.Scaler
	renderer  ports.Renderer
	device    ports.AudioDevice
	resampler ports.Resampler
	input     ports.Input
	logger    ports.Logger

	now   func() time.Time
	sleep func(time.Duration)
}

// New creates a new Orchestrator. device and input may be nil for sessions
// without audio output or without user control.
func New(
	m ports.Media,
	scaler ports.Scaler,
	renderer ports.Renderer,
	device ports.AudioDevice,
	resampler ports.Resampler,
	input ports.Input,
	logger ports.Logger,
	opts ...Option,
) *Orchestrator {
	o := &Orchestrator{
		media:     m,
		scaler:    scaler,
		renderer:  renderer,
		device:    device,
		resampler: resampler,
		input:     input,
		logger:    logger,
		now:       time.Now,
		sleep:     time.Sleep,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Run plays the media until the user quits, ctx is cancelled, the input
// ends with ExitOnEOF set, or the decode worker fails. A worker failure is
// returned as an error after the session has been torn down.
func (o *Orchestrator) Run(ctx context.Context, config Config) (RunResult, error) {
	started := o.now()
	info := o.media.Source.Info()
	if !info.HasVideo && !info.HasAudio {
		return RunResult{}, pipeline.NewSetupError("open source", errors.New("no playable stream"))
	}

	streams := o.media
	if info.HasAudio && o.device == nil {
		// Nothing would drain the audio queue; leave audio undecoded.
		streams.Audio = nil
	}
	if !info.HasVideo {
		streams.Video = nil
	}

	pipe := pipeline.New(config.Pipeline)
	worker := pipeline.NewWorker(pipe, streams, o.logger)
	volume := audiofeed.NewVolume(config.Volume, config.VolumeStep)
	feeder := audiofeed.New(pipe.Audio, o.resampler, volume, o.logger,
		audiofeed.WithCarryCapacity(config.AudioBuffer),
		audiofeed.WithEpoch(pipe.Seek.Epoch),
	)

	if streams.Audio != nil {
		want := media.AudioFormat{SampleRate: info.AudioFormat.SampleRate, Channels: 2}
		format, err := o.device.Open(want, feeder.Fill)
		if err != nil {
			return RunResult{}, pipeline.NewSetupError("open audio device", err)
		}
		feeder.SetFormat(format)
		o.logger.Info("Audio output: %s", format)
		defer o.device.Close()
	}

	o.logger.Info("Playing %s", config.Locator)

	s := &session{
		config:  config,
		info:    info,
		pipe:    pipe,
		worker:  worker,
		feeder:  feeder,
		volume:  volume,
		clock:   clock.New(o.now),
		aspect:  layout.AspectOf(info.VideoSize),
		logger:  o.logger.WithComponent("controller"),
		hasSink: streams.Audio != nil,
	}
	s.resize(o.renderer.Size())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Run(gctx)
	})

	if s.hasSink {
		o.device.SetPaused(false)
	}
	reason := o.loop(gctx, s)

	pipe.Shutdown()
	if s.hasSink {
		o.device.SetPaused(true)
	}
	workerErr := g.Wait()
	video, audio := pipe.Drain()
	o.logger.Debug("Released %d video and %d audio frames at shutdown", video, audio)

	if workerErr != nil {
		reason = ExitWorkerError
	} else if reason == ExitNone && ctx.Err() != nil {
		reason = ExitInterrupted
	}

	result := s.result(reason, o.now().Sub(started))
	if workerErr != nil {
		return result, fmt.Errorf("decode worker: %w", workerErr)
	}

	o.logger.Info("Playback finished: %s", reason)
	return result, nil
}

// loop is the controller. It never blocks for longer than one polling
// interval, or one frame delay, without checking input and the done flag.
func (o *Orchestrator) loop(ctx context.Context, s *session) ExitReason {
	poll := s.pipe.Config().PollInterval

	for {
		if ctx.Err() != nil {
			return ExitInterrupted
		}
		if s.pipe.Done() {
			return ExitNone
		}
		if o.handleInput(ctx, s) {
			return ExitQuit
		}
		if size := o.renderer.Size(); size != s.window {
			s.resize(size)
			s.logger.Debug("Resized to %dx%d, viewport %dx%d at %d,%d",
				size.Width, size.Height, s.viewport.Width, s.viewport.Height, s.viewport.X, s.viewport.Y)
		}

		if s.paused {
			o.sleep(poll)
			continue
		}

		if s.config.ExitOnEOF && s.exhausted() {
			return ExitEndOfStream
		}

		if !s.info.HasVideo {
			o.sleep(poll)
			continue
		}

		frame, ok := s.pipe.Video.TryDequeue()
		if !ok {
			o.sleep(poll)
			continue
		}
		o.present(s, frame)
	}
}

func (o *Orchestrator) present(s *session, frame *media.Frame) {
	defer frame.Release()

	pts := frame.PTS
	if delay := s.clock.Delay(pts); delay > 0 {
		o.sleep(delay)
	}

	img, err := o.scaler.Scale(frame, s.viewport.Size())
	if err != nil {
		s.dropped++
		s.logger.Warn("Failed to scale frame at %d ms: %v", pts, err)
		return
	}

	status := ""
	if s.config.ShowStatus {
		status = s.status(pts)
	}
	if err := o.renderer.Present(img, s.viewport, status); err != nil {
		s.dropped++
		s.logger.Warn("Failed to present frame at %d ms: %v", pts, err)
		return
	}
	s.clock.Presented(pts)
	s.presented++
}

// handleInput drains pending events and reports whether the user quit.
func (o *Orchestrator) handleInput(ctx context.Context, s *session) bool {
	if o.input == nil {
		return false
	}
	for {
		ev, ok := o.input.Poll()
		if !ok {
			return false
		}
		switch ev.Type {
		case ports.EventQuit:
			return true
		case ports.EventTogglePause:
			o.togglePause(s)
		case ports.EventSeek:
			o.seek(ctx, s, ev.SeekMs)
		case ports.EventVolume:
			level := s.volume.Adjust(ev.Steps)
			s.logger.Info("Volume %d%%", int(level*100+0.5))
		case ports.EventToggleMute:
			if s.volume.ToggleMute() {
				s.logger.Info("Muted")
			} else {
				s.logger.Info("Unmuted")
			}
		}
	}
}

func (o *Orchestrator) togglePause(s *session) {
	s.paused = !s.paused
	if s.hasSink {
		o.device.SetPaused(s.paused)
	}
	if s.paused {
		s.logger.Info("Paused at %s", formatPosition(s.position()))
		return
	}
	// Resume must not try to catch up on the time spent paused.
	s.clock.Reset()
	s.logger.Info("Resumed")
}

func (o *Orchestrator) seek(ctx context.Context, s *session, offsetMs int64) {
	// Targets past the end are left to the source.
	target := max(s.position()+offsetMs, 0)
	req := pipeline.SeekRequest{TargetMs: target, Backward: offsetMs < 0}

	s.logger.Info("Seeking to %s", formatPosition(target))
	if !s.pipe.Seek.Request(ctx, req) {
		s.logger.Debug("Seek to %d ms abandoned, pipeline is shutting down", target)
		return
	}
	s.markSeek(target)
}
