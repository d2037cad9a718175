package pipeline

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/user/avplay/pkg/adapters/logger"
	"github.com/user/avplay/pkg/media"
	"github.com/user/avplay/pkg/mocks"
	"github.com/user/avplay/pkg/ports"
)

const testPoll = 16 * time.Millisecond

func testConfig() Config {
	return Config{QueueCapacity: 8, PollInterval: testPoll, EOFDelay: time.Millisecond}
}

type harness struct {
	pipe    *Pipeline
	source  *mocks.Source
	video   *mocks.Decoder
	audio   *mocks.Decoder
	tracker *mocks.FrameTracker
	worker  *Worker
	result  chan error
	cancel  context.CancelFunc
}

func newHarness(t *testing.T, packets []media.Packet) *harness {
	t.Helper()
	tracker := mocks.NewFrameTracker()
	h := &harness{
		pipe:    New(testConfig()),
		source:  mocks.NewSource(packets),
		video:   mocks.NewDecoder(media.KindVideo, tracker),
		audio:   mocks.NewDecoder(media.KindAudio, tracker),
		tracker: tracker,
		result:  make(chan error, 1),
	}
	h.worker = NewWorker(h.pipe, ports.Media{Source: h.source, Video: h.video, Audio: h.audio}, logger.NewNoop())
	return h
}

func (h *harness) start() {
	ctx, cancel := context.WithCancel(context.Background())
	h.cancel = cancel
	go func() { h.result <- h.worker.Run(ctx) }()
}

func (h *harness) stop(t *testing.T) error {
	t.Helper()
	h.pipe.Shutdown()
	defer h.cancel()
	select {
	case err := <-h.result:
		h.pipe.Drain()
		return err
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not exit after shutdown")
		return nil
	}
}

func TestSeekRequest_ReturnsWhenWorkerAlreadyExited(t *testing.T) {
	p := New(testConfig())
	p.Shutdown()

	start := time.Now()
	ok := p.Seek.Request(context.Background(), SeekRequest{TargetMs: 5000})
	assert.False(t, ok)
	assert.Less(t, time.Since(start), testPoll)
}

func TestSeekRequest_ReturnsWhenWorkerNeverServes(t *testing.T) {
	p := New(testConfig())

	go func() {
		time.Sleep(30 * time.Millisecond)
		p.Shutdown()
	}()

	start := time.Now()
	ok := p.Seek.Request(context.Background(), SeekRequest{TargetMs: 5000})
	elapsed := time.Since(start)

	assert.False(t, ok)
	assert.Less(t, elapsed, 30*time.Millisecond+2*testPoll)
}

func TestSeekRequest_HonoursContext(t *testing.T) {
	p := New(testConfig())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	assert.False(t, p.Seek.Request(ctx, SeekRequest{TargetMs: 1}))
	assert.True(t, p.Seek.Pending())
}

func TestSeekCoordinator_ServeAcknowledges(t *testing.T) {
	p := New(testConfig())

	served := make(chan SeekRequest, 1)
	var during uint64
	go func() {
		for !p.Seek.Serve(func(req SeekRequest) { during = p.Seek.Epoch(); served <- req }) {
			time.Sleep(time.Millisecond)
		}
	}()

	ok := p.Seek.Request(context.Background(), SeekRequest{TargetMs: 1234, Backward: true})
	require.True(t, ok)
	assert.Equal(t, SeekRequest{TargetMs: 1234, Backward: true}, <-served)
	assert.False(t, p.Seek.Pending())
	assert.Equal(t, uint64(1), during, "epoch is odd while the seek runs")
	assert.Equal(t, uint64(2), p.Seek.Epoch())
	assert.False(t, p.Seek.Serve(func(SeekRequest) { t.Error("served twice") }))
}

func TestWorker_PublishesFramesInOrder(t *testing.T) {
	h := newHarness(t, mocks.Timeline(400, 40, 20))
	h.start()

	var video, audio []int64
	deadline := time.After(2 * time.Second)
	for len(video) < 10 || len(audio) < 20 {
		if f, ok := h.pipe.Video.TryDequeue(); ok {
			video = append(video, f.PTS)
			f.Release()
		}
		if f, ok := h.pipe.Audio.TryDequeue(); ok {
			audio = append(audio, f.PTS)
			f.Release()
		}
		select {
		case <-deadline:
			t.Fatalf("timed out with %d video and %d audio frames", len(video), len(audio))
		default:
		}
	}

	for i, pts := range video {
		assert.Equal(t, int64(i*40), pts)
	}
	for i, pts := range audio {
		assert.Equal(t, int64(i*20), pts)
	}

	require.NoError(t, h.stop(t))
	assert.Equal(t, StateExiting, h.worker.State())
	assert.Equal(t, h.tracker.Created(), h.tracker.Released())
	assert.Zero(t, h.tracker.DoubleReleases())
}

func TestWorker_SeekDiscardsStaleFrames(t *testing.T) {
	h := newHarness(t, mocks.Timeline(120000, 40, 0))
	h.start()

	// Let the worker fill the queue and block on backpressure.
	require.Eventually(t, func() bool {
		return h.pipe.Video.Len() == h.pipe.Video.Cap()
	}, 2*time.Second, time.Millisecond)

	ok := h.pipe.Seek.Request(context.Background(), SeekRequest{TargetMs: 60000})
	require.True(t, ok)

	for i := 0; i < 20; i++ {
		f, ok := h.pipe.Video.DequeueWait(time.Second)
		require.True(t, ok)
		assert.GreaterOrEqual(t, f.PTS, int64(60000))
		f.Release()
	}

	require.NoError(t, h.stop(t))
	stats := h.worker.Stats()
	assert.Equal(t, int64(1), stats.Seeks)
	assert.GreaterOrEqual(t, stats.Flushed, int64(h.pipe.Video.Cap()))
	assert.Equal(t, 1, h.video.Resets())
	assert.Equal(t, []int64{60000}, h.source.Seeks())
	assert.Equal(t, h.tracker.Created(), h.tracker.Released())
	assert.Zero(t, h.tracker.DoubleReleases())
}

func TestWorker_FailedSeekKeepsPosition(t *testing.T) {
	h := newHarness(t, mocks.Timeline(10000, 40, 0))
	h.source.SeekFunc = func(int64, bool) error { return errors.New("not seekable") }
	h.start()

	require.Eventually(t, func() bool {
		return h.pipe.Video.Len() == h.pipe.Video.Cap()
	}, 2*time.Second, time.Millisecond)

	require.True(t, h.pipe.Seek.Request(context.Background(), SeekRequest{TargetMs: 5000}))

	f, ok := h.pipe.Video.DequeueWait(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(0), f.PTS)
	f.Release()

	assert.False(t, h.pipe.Done())
	require.NoError(t, h.stop(t))
	assert.Equal(t, int64(1), h.worker.Stats().FailedSeeks)
	assert.Zero(t, h.video.Resets())
}

func TestWorker_DecodeErrorIsFatal(t *testing.T) {
	h := newHarness(t, mocks.Timeline(1000, 40, 0))
	boom := errors.New("corrupt bitstream")
	h.video.ReceiveFunc = func() (*media.Frame, error) { return nil, boom }
	h.start()

	select {
	case err := <-h.result:
		require.Error(t, err)
		assert.ErrorIs(t, err, boom)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on decode error")
	}
	assert.True(t, h.pipe.Done())

	// A controller seeking now must not hang.
	assert.False(t, h.pipe.Seek.Request(context.Background(), SeekRequest{TargetMs: 0}))
	h.cancel()
}

func TestWorker_ReadErrorIsFatal(t *testing.T) {
	h := newHarness(t, nil)
	h.source.ReadPacketFunc = func() (media.Packet, error) {
		return media.Packet{}, ports.ErrResourceExhausted
	}
	h.start()

	select {
	case err := <-h.result:
		assert.ErrorIs(t, err, ports.ErrResourceExhausted)
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on read error")
	}
	assert.True(t, h.pipe.Done())
	h.cancel()
}

func TestWorker_EndOfStreamIdlesAndAllowsBackwardSeek(t *testing.T) {
	h := newHarness(t, mocks.Timeline(120, 40, 0))
	h.start()

	for i := 0; i < 3; i++ {
		f, ok := h.pipe.Video.DequeueWait(time.Second)
		require.True(t, ok)
		f.Release()
	}

	// Past the end the worker keeps running without producing anything.
	_, ok := h.pipe.Video.DequeueWait(50 * time.Millisecond)
	assert.False(t, ok)
	assert.False(t, h.pipe.Done())

	require.True(t, h.pipe.Seek.Request(context.Background(), SeekRequest{TargetMs: 0, Backward: true}))
	f, ok := h.pipe.Video.DequeueWait(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(0), f.PTS)
	f.Release()

	require.NoError(t, h.stop(t))
}

func TestWorker_EndOfStreamWaitsForDecoderFlush(t *testing.T) {
	tracker := mocks.NewFrameTracker()
	pipe := New(testConfig())
	dec := mocks.NewLaggingDecoder(media.KindVideo, tracker, 150*time.Millisecond)
	worker := NewWorker(pipe, ports.Media{Source: mocks.NewSource(mocks.Timeline(120, 40, 0)), Video: dec}, logger.NewNoop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	result := make(chan error, 1)
	go func() { result <- worker.Run(ctx) }()

	for _, want := range []int64{0, 40} {
		f, ok := pipe.Video.DequeueWait(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, f.PTS)
		f.Release()
	}

	// The source is exhausted but the last frame is still in the decoder.
	time.Sleep(40 * time.Millisecond)
	assert.False(t, worker.AtEOF())

	f, ok := pipe.Video.DequeueWait(time.Second)
	require.True(t, ok)
	assert.Equal(t, int64(80), f.PTS)
	f.Release()

	assert.Eventually(t, worker.AtEOF, time.Second, time.Millisecond)

	pipe.Shutdown()
	require.NoError(t, <-result)
	assert.Equal(t, tracker.Created(), tracker.Released())
}

func TestWorker_IgnoresOtherStreams(t *testing.T) {
	packets := []media.Packet{
		{Kind: media.KindOther, PTS: 0},
		{Kind: media.KindVideo, PTS: 0},
		{Kind: media.KindOther, PTS: 10},
		{Kind: media.KindVideo, PTS: 40},
	}
	h := newHarness(t, packets)
	h.start()

	for _, want := range []int64{0, 40} {
		f, ok := h.pipe.Video.DequeueWait(time.Second)
		require.True(t, ok)
		assert.Equal(t, want, f.PTS)
		f.Release()
	}
	require.NoError(t, h.stop(t))
}

func TestWorker_StopsOnContextCancel(t *testing.T) {
	h := newHarness(t, mocks.Timeline(100000, 40, 20))
	h.start()
	time.Sleep(10 * time.Millisecond)
	h.cancel()

	select {
	case err := <-h.result:
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("worker ignored context cancellation")
	}
	h.pipe.Drain()
}

func TestSetupError(t *testing.T) {
	cause := errors.New("no such file")
	err := NewSetupError("open source", cause)
	assert.True(t, IsSetupError(err))
	assert.ErrorIs(t, err, cause)
	assert.Equal(t, "setup open source: no such file", err.Error())
	assert.False(t, IsSetupError(cause))
}
