package orchestrator

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/user/avplay/pkg/adapters/logger"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/mocks"
	"github.com/user/avplay/pkg/pipeline"
	"github.com/user/avplay/pkg/ports"
)

// fakeTime advances only when the controller sleeps. Each sleep also yields
// briefly so the decode worker can make progress.
type fakeTime struct {
	mu      sync.Mutex
	t       time.Time
	onSleep func()
}

func newFakeTime() *fakeTime {
	return &fakeTime{t: time.Unix(1_700_000_000, 0)}
}

func (f *fakeTime) now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.t
}

func (f *fakeTime) sleep(d time.Duration) {
	f.mu.Lock()
	f.t = f.t.Add(d)
	hook := f.onSleep
	f.mu.Unlock()
	if hook != nil {
		hook()
	}
	time.Sleep(50 * time.Microsecond)
}

type testRig struct {
	source   *mocks.Source
	video    *mocks.Decoder
	audio    *mocks.Decoder
	// lagging replaces video when set.
	lagging  *mocks.LaggingDecoder
	tracker  *mocks.FrameTracker
	scaler   *mocks.Scaler
	renderer *mocks.Renderer
	device   *mocks.AudioDevice
	input    *mocks.Input
	clock    *fakeTime
}

func newRig(packets []media.Packet, withAudio bool) *testRig {
	tracker := mocks.NewFrameTracker()
	r := &testRig{
		source:   mocks.NewSource(packets),
		video:    mocks.NewDecoder(media.KindVideo, tracker),
		audio:    mocks.NewDecoder(media.KindAudio, tracker),
		tracker:  tracker,
		scaler:   &mocks.Scaler{},
		renderer: mocks.NewRenderer(640, 480),
		input:    mocks.NewInput(),
		clock:    newFakeTime(),
	}
	if withAudio {
		r.device = &mocks.AudioDevice{}
		// Audio is pulled whenever the controller sleeps, like a sound card
		// draining its buffer in real time.
		r.clock.onSleep = func() { r.device.Pull(256) }
	}
	return r
}

// quitAfter makes the input deliver a quit event once n frames were shown.
func (r *testRig) quitAfter(n int, also func(n int)) {
	r.renderer.OnPresent = func(i int) {
		if also != nil {
			also(i)
		}
		if i == n {
			r.input.Push(ports.Event{Type: ports.EventQuit})
		}
	}
}

func (r *testRig) run(t *testing.T, config Config) (RunResult, error) {
	t.Helper()
	var device ports.AudioDevice
	if r.device != nil {
		device = r.device
	}
	var video ports.Decoder = r.video
	if r.lagging != nil {
		video = r.lagging
	}
	o := New(
		ports.Media{Source: r.source, Video: video, Audio: r.audio},
		r.scaler,
		r.renderer,
		device,
		&mocks.Resampler{},
		r.input,
		logger.NewNoop(),
		WithTime(r.clock.now, r.clock.sleep),
	)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	result, err := o.Run(ctx, config)
	if ctx.Err() != nil {
		t.Fatalf("Run did not finish in time")
	}
	return result, err
}

func testConfig() Config {
	config := DefaultConfig()
	config.Pipeline.EOFDelay = time.Millisecond
	return config
}

func TestOrchestrator_Run_QuitStopsPlayback(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 0), false)
	rig.quitAfter(20, nil)

	result, err := rig.run(t, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitReason != ExitQuit {
		t.Errorf("ExitReason = %v, want quit", result.ExitReason)
	}
	if result.FramesPresented != 20 {
		t.Errorf("FramesPresented = %d, want 20", result.FramesPresented)
	}

	pts := rig.scaler.ScaledPTS()
	for i := 1; i < len(pts); i++ {
		if pts[i] <= pts[i-1] {
			t.Fatalf("frames out of order at %d: %v", i, pts)
		}
	}
	if d := rig.tracker.DoubleReleases(); d != 0 {
		t.Errorf("%d frames released twice", d)
	}
}

func TestOrchestrator_Run_SeekForwardShowsNoStaleFrames(t *testing.T) {
	rig := newRig(mocks.Timeline(120_000, 40, 0), false)
	rig.quitAfter(30, func(n int) {
		if n == 10 {
			rig.input.Push(ports.Event{Type: ports.EventSeek, SeekMs: 60_000})
		}
	})

	result, err := rig.run(t, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.Seeks != 1 {
		t.Errorf("Seeks = %d, want 1", result.Seeks)
	}

	// The tenth frame is at 360 ms, so the target is 60360 ms.
	seeks := rig.source.Seeks()
	if len(seeks) != 1 || seeks[0] != 60_360 {
		t.Fatalf("source seeks = %v, want [60360]", seeks)
	}

	pts := rig.scaler.ScaledPTS()
	if len(pts) != 30 {
		t.Fatalf("scaled %d frames, want 30", len(pts))
	}
	for i, p := range pts[10:] {
		if p < 60_360 {
			t.Errorf("frame %d after seek has stale pts %d", i+10, p)
		}
	}
	if pts[10] != 60_360 {
		t.Errorf("first frame after seek = %d, want 60360", pts[10])
	}
	if result.PlayedMs < 60_360 {
		t.Errorf("PlayedMs = %d, want at least 60360", result.PlayedMs)
	}
}

func TestOrchestrator_Run_SeekBackwardClampsAtZero(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 0), false)
	rig.quitAfter(15, func(n int) {
		if n == 5 {
			rig.input.Push(ports.Event{Type: ports.EventSeek, SeekMs: -60_000})
		}
	})

	if _, err := rig.run(t, testConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	seeks := rig.source.Seeks()
	if len(seeks) != 1 || seeks[0] != 0 {
		t.Fatalf("source seeks = %v, want [0]", seeks)
	}
	if pts := rig.scaler.ScaledPTS(); pts[5] != 0 {
		t.Errorf("first frame after seek = %d, want 0", pts[5])
	}
}

func TestOrchestrator_Run_PauseStopsPresentation(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 20), true)

	var paused atomic.Bool
	var idle atomic.Int32
	rig.renderer.OnPresent = func(n int) {
		if n == 5 {
			paused.Store(true)
			rig.input.Push(ports.Event{Type: ports.EventTogglePause})
		}
	}
	rig.clock.onSleep = func() {
		rig.device.Pull(256)
		if paused.Load() && idle.Add(1) == 20 {
			rig.input.Push(ports.Event{Type: ports.EventQuit})
		}
	}

	result, err := rig.run(t, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FramesPresented != 5 {
		t.Errorf("FramesPresented = %d, want 5", result.FramesPresented)
	}

	calls := rig.device.PauseCalls()
	// Unpaused at start, paused by the user, paused again at shutdown.
	want := []bool{false, true, true}
	if len(calls) != len(want) {
		t.Fatalf("SetPaused calls = %v, want %v", calls, want)
	}
	for i := range want {
		if calls[i] != want[i] {
			t.Fatalf("SetPaused calls = %v, want %v", calls, want)
		}
	}
	if !rig.device.Closed() {
		t.Error("audio device was not closed")
	}
}

func TestOrchestrator_Run_ResumeAfterPause(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 20), true)
	rig.quitAfter(10, func(n int) {
		if n == 5 {
			rig.input.Push(
				ports.Event{Type: ports.EventTogglePause},
				ports.Event{Type: ports.EventTogglePause},
			)
		}
	})

	result, err := rig.run(t, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.FramesPresented != 10 {
		t.Errorf("FramesPresented = %d, want 10", result.FramesPresented)
	}
	calls := rig.device.PauseCalls()
	if len(calls) < 3 || calls[1] != true || calls[2] != false {
		t.Errorf("SetPaused calls = %v, want pause then resume", calls)
	}
}

func TestOrchestrator_Run_VolumeAndMute(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 20), true)
	rig.quitAfter(4, func(n int) {
		switch n {
		case 1:
			rig.input.Push(ports.Event{Type: ports.EventVolume, Steps: -3})
		case 2:
			rig.input.Push(ports.Event{Type: ports.EventToggleMute})
		}
	})

	if _, err := rig.run(t, testConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	statuses := rig.renderer.Statuses()
	if len(statuses) != 4 {
		t.Fatalf("got %d statuses, want 4", len(statuses))
	}
	wants := []string{"00:00  vol 100%", "00:00  vol 70%", "00:00  muted"}
	for i, want := range wants {
		if statuses[i] != want {
			t.Errorf("status %d = %q, want %q", i, statuses[i], want)
		}
	}
}

func TestOrchestrator_Run_ResizeRecomputesViewport(t *testing.T) {
	rig := newRig(mocks.Timeline(10_000, 40, 0), false)
	rig.quitAfter(6, func(n int) {
		if n == 3 {
			rig.renderer.Resize(1280, 480)
		}
	})

	if _, err := rig.run(t, testConfig()); err != nil {
		t.Fatalf("Run failed: %v", err)
	}

	viewports := rig.renderer.Viewports()
	first := media.Rect{X: 0, Y: 60, Width: 640, Height: 360}
	if viewports[0] != first {
		t.Errorf("initial viewport = %+v, want %+v", viewports[0], first)
	}
	last := media.Rect{X: 213, Y: 0, Width: 853, Height: 480}
	if got := viewports[len(viewports)-1]; got != last {
		t.Errorf("viewport after resize = %+v, want %+v", got, last)
	}
}

func TestOrchestrator_Run_ExitOnEOF(t *testing.T) {
	rig := newRig(mocks.Timeline(400, 40, 0), false)
	config := testConfig()
	config.ExitOnEOF = true

	result, err := rig.run(t, config)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitReason != ExitEndOfStream {
		t.Errorf("ExitReason = %v, want end of stream", result.ExitReason)
	}
	if result.FramesPresented != 10 {
		t.Errorf("FramesPresented = %d, want 10", result.FramesPresented)
	}
}

func TestOrchestrator_Run_ExitOnEOFPresentsFlushedFrames(t *testing.T) {
	rig := newRig(mocks.Timeline(400, 40, 0), false)
	rig.lagging = mocks.NewLaggingDecoder(media.KindVideo, rig.tracker, 50*time.Millisecond)
	config := testConfig()
	config.ExitOnEOF = true

	result, err := rig.run(t, config)
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitReason != ExitEndOfStream {
		t.Errorf("ExitReason = %v, want end of stream", result.ExitReason)
	}
	if result.FramesPresented != 10 {
		t.Errorf("FramesPresented = %d, want 10", result.FramesPresented)
	}
}

func TestOrchestrator_Run_WorkerErrorEndsSession(t *testing.T) {
	errBroken := errors.New("broken container")
	rig := newRig(nil, false)
	var reads atomic.Int32
	rig.source.ReadPacketFunc = func() (media.Packet, error) {
		n := reads.Add(1)
		if n > 5 {
			return media.Packet{}, errBroken
		}
		pts := int64(n-1) * 40
		return media.Packet{Kind: media.KindVideo, PTS: pts, DTS: pts, Keyframe: true}, nil
	}

	result, err := rig.run(t, testConfig())
	if err == nil {
		t.Fatal("expected an error")
	}
	if !errors.Is(err, errBroken) {
		t.Errorf("error %v does not wrap the read failure", err)
	}
	if result.ExitReason != ExitWorkerError {
		t.Errorf("ExitReason = %v, want worker error", result.ExitReason)
	}
	if pipeline.IsSetupError(err) {
		t.Error("worker failure reported as setup error")
	}
}

func TestOrchestrator_Run_NoStreamIsSetupError(t *testing.T) {
	rig := newRig(nil, false)
	rig.source.InfoFunc = func() media.StreamInfo { return media.StreamInfo{} }

	_, err := rig.run(t, testConfig())
	if !pipeline.IsSetupError(err) {
		t.Fatalf("error = %v, want setup error", err)
	}
}

func TestOrchestrator_Run_AudioDeviceFailureIsSetupError(t *testing.T) {
	rig := newRig(mocks.Timeline(1000, 40, 20), true)
	errNoCard := errors.New("no sound card")
	rig.device.OpenFunc = func(media.AudioFormat, ports.AudioCallback) (media.AudioFormat, error) {
		return media.AudioFormat{}, errNoCard
	}

	_, err := rig.run(t, testConfig())
	if !pipeline.IsSetupError(err) || !errors.Is(err, errNoCard) {
		t.Fatalf("error = %v, want setup error wrapping the device failure", err)
	}
}

func TestOrchestrator_Run_CancelledContext(t *testing.T) {
	rig := newRig(mocks.Timeline(100_000, 40, 0), false)
	ctx, cancel := context.WithCancel(context.Background())
	rig.renderer.OnPresent = func(n int) {
		if n == 3 {
			cancel()
		}
	}

	o := New(
		ports.Media{Source: rig.source, Video: rig.video},
		rig.scaler, rig.renderer, nil, nil, nil, logger.NewNoop(),
		WithTime(rig.clock.now, rig.clock.sleep),
	)
	result, err := o.Run(ctx, testConfig())
	if err != nil {
		t.Fatalf("Run failed: %v", err)
	}
	if result.ExitReason != ExitInterrupted {
		t.Errorf("ExitReason = %v, want interrupted", result.ExitReason)
	}
}

func TestFormatPosition(t *testing.T) {
	tests := map[int64]string{
		0:         "00:00",
		61_500:    "01:01",
		3_723_000: "1:02:03",
		-5:        "00:00",
	}
	for ms, want := range tests {
		if got := formatPosition(ms); got != want {
			t.Errorf("formatPosition(%d) = %q, want %q", ms, got, want)
		}
	}
}
