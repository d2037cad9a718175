// Package clock paces video presentation against the wall clock.
package clock

import "time"

// Clock maps stream time to wall time. The mapping is anchored on the first
// frame shown after construction, a seek or a pause→resume transition.
// It is used from the controller goroutine only.
type Clock struct {
	now func() time.Time

	anchor      time.Time
	anchorValid bool
	lastPTS     int64
}

// New creates a clock reading time from now. A nil now uses time.Now.
func New(now func() time.Time) *Clock {
	if now == nil {
		now = time.Now
	}
	return &Clock{now: now}
}

// Delay returns how long to wait before presenting a frame with pts
// (milliseconds). The first call after a reset anchors the clock so that
// frame is due immediately. Late frames get a zero delay.
func (c *Clock) Delay(pts int64) time.Duration {
	now := c.now()
	if !c.anchorValid {
		c.anchor = now.Add(-time.Duration(pts) * time.Millisecond)
		c.anchorValid = true
	}
	elapsed := now.Sub(c.anchor)
	delay := time.Duration(pts)*time.Millisecond - elapsed
	if delay < 0 {
		return 0
	}
	return delay
}

// Presented records pts as the current playback position.
func (c *Clock) Presented(pts int64) {
	c.lastPTS = pts
}

// LastPTS returns the timestamp of the last presented frame.
func (c *Clock) LastPTS() int64 {
	return c.lastPTS
}

// Reset invalidates the anchor. The position is kept.
func (c *Clock) Reset() {
	c.anchorValid = false
}

// Anchored reports whether the clock currently has an anchor.
func (c *Clock) Anchored() bool {
	return c.anchorValid
}
