package mocks

import (
	"image"
	"sync"

	"github.com/user/avplay/pkg/media"
)

// FrameTracker creates instrumented frames and records every Release call,
// so tests can check that each handle is released exactly once.
type FrameTracker struct {
	mu       sync.Mutex
	created  int
	releases map[*media.Frame]int
	order    []int64
}

// NewFrameTracker creates an empty tracker.
func NewFrameTracker() *FrameTracker {
	return &FrameTracker{releases: make(map[*media.Frame]int)}
}

// Video creates a tracked 1x1 video frame.
func (t *FrameTracker) Video(pts int64) *media.Frame {
	t.mu.Lock()
	t.created++
	t.mu.Unlock()
	return media.NewVideoFrame(pts, image.NewRGBA(image.Rect(0, 0, 1, 1)), t.release)
}

// Audio creates a tracked audio frame holding samples.
func (t *FrameTracker) Audio(pts int64, samples []byte, format media.AudioFormat) *media.Frame {
	t.mu.Lock()
	t.created++
	t.mu.Unlock()
	return media.NewAudioFrame(pts, samples, format, t.release)
}

// Hook returns the release hook so other fakes can allocate tracked frames.
func (t *FrameTracker) Hook() func(*media.Frame) {
	t.mu.Lock()
	t.created++
	t.mu.Unlock()
	return t.release
}

func (t *FrameTracker) release(f *media.Frame) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.releases[f]++
	t.order = append(t.order, f.PTS)
}

// Created returns how many frames the tracker handed out.
func (t *FrameTracker) Created() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.created
}

// Released returns how many distinct frames were released at least once.
func (t *FrameTracker) Released() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.releases)
}

// ReleaseCount returns how many times f was released.
func (t *FrameTracker) ReleaseCount(f *media.Frame) int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.releases[f]
}

// DoubleReleases returns the number of frames released more than once.
func (t *FrameTracker) DoubleReleases() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	n := 0
	for _, c := range t.releases {
		if c > 1 {
			n++
		}
	}
	return n
}

// ReleasedPTS returns the timestamps of released frames in release order.
func (t *FrameTracker) ReleasedPTS() []int64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return append([]int64(nil), t.order...)
}
